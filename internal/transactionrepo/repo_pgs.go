// Package transactionrepo manages the repository layer of the transfer ledger.
// Ledger rows are append only; no update or delete path exists.
package transactionrepo

import (
	"context"
	"database/sql"

	"github.com/lib/pq"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/go-arno/peerbank/internal/domain"
	"github.com/go-arno/peerbank/pkg/dbpkg"
	"github.com/go-arno/peerbank/pkg/errorspkg"
)

// RepoPGS facilitates ledger repository layer logic.
type RepoPGS struct {
	db dbpkg.SQLInterface
}

// NewRepoPGS returns ledger RepoPGS.
func NewRepoPGS(db *sql.DB) *RepoPGS {
	return &RepoPGS{
		db: db,
	}
}

// NewTxRepoPGS returns ledger RepoPGS scoped to the given transaction. The
// transfer engine always appends through a tx-scoped repo so the ledger row
// commits together with the balance updates.
func NewTxRepoPGS(db dbpkg.SQLInterface) *RepoPGS {
	return &RepoPGS{
		db: db,
	}
}

const appendQuery = `
INSERT INTO
    transactions (sender_id, receiver_id, amount, commission_fee)
VALUES
    ($1, $2, $3, $4)
RETURNING id, sender_id, receiver_id, amount, commission_fee, created_at
`

// Append creates the ledger entry for a completed transfer and returns it.
func (r *RepoPGS) Append(ctx context.Context, senderID, receiverID int32, amount, fee decimal.Decimal) (domain.Transaction, error) {
	l := zerolog.Ctx(ctx)

	row := r.db.QueryRowContext(ctx, appendQuery, senderID, receiverID, amount, fee)

	var t domain.Transaction

	err := row.Scan(
		&t.ID,
		&t.SenderID,
		&t.ReceiverID,
		&t.Amount,
		&t.CommissionFee,
		&t.CreatedAt,
	)
	if err != nil {
		l.Error().Err(err).Msgf("Append(ctx, %v, %v, %v, %v)", senderID, receiverID, amount, fee)

		if pqErr, ok := err.(*pq.Error); ok {
			switch pqErr.Constraint {
			case "transactions_sender_id_fkey", "transactions_receiver_id_fkey":
				return t, domain.ErrAccountNotFound
			case "transactions_amount_check":
				return t, domain.ErrInvalidAmount
			}
		}

		return t, errorspkg.ErrInternal
	}

	return t, nil
}

const getQuery = `
SELECT
	id, sender_id, receiver_id, amount, commission_fee, created_at
FROM transactions
WHERE id = $1
`

// Get returns the ledger entry with the given id.
func (r *RepoPGS) Get(ctx context.Context, id int64) (domain.Transaction, error) {
	l := zerolog.Ctx(ctx)

	row := r.db.QueryRowContext(ctx, getQuery, id)

	var t domain.Transaction

	err := row.Scan(
		&t.ID,
		&t.SenderID,
		&t.ReceiverID,
		&t.Amount,
		&t.CommissionFee,
		&t.CreatedAt,
	)
	if err != nil {
		l.Error().Err(err).Msgf("Get(ctx, %v)", id)
		return t, errorspkg.ErrInternal
	}

	return t, nil
}

const listQuery = `
SELECT
	id, sender_id, receiver_id, amount, commission_fee, created_at
FROM transactions
WHERE
    sender_id = $1 OR
    receiver_id = $1
ORDER BY created_at DESC, id DESC
LIMIT $2 OFFSET $3
`

// List returns the ledger entries touching the given account, newest first.
func (r *RepoPGS) List(ctx context.Context, arg domain.ListTransactionsParams) ([]domain.Transaction, error) {
	l := zerolog.Ctx(ctx)

	rows, err := r.db.QueryContext(ctx, listQuery, arg.AccountID, arg.Limit, arg.Offset)
	if err != nil {
		l.Error().Err(err).Msgf("List(ctx, %+v)", arg)
		return nil, errorspkg.ErrInternal
	}
	defer rows.Close()

	items := []domain.Transaction{}

	for rows.Next() {
		var t domain.Transaction
		if err := rows.Scan(
			&t.ID,
			&t.SenderID,
			&t.ReceiverID,
			&t.Amount,
			&t.CommissionFee,
			&t.CreatedAt,
		); err != nil {
			l.Error().Err(err).Send()
			return nil, errorspkg.ErrInternal
		}

		items = append(items, t)
	}

	if err := rows.Err(); err != nil {
		l.Error().Err(err).Send()
		return nil, errorspkg.ErrInternal
	}

	return items, nil
}
