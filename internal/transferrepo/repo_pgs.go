// Package transferrepo implements the atomic unit of a transfer: two
// version-guarded balance updates and one ledger append that commit together
// or not at all.
package transferrepo

import (
	"context"
	"database/sql"

	"github.com/rs/zerolog"

	"github.com/go-arno/peerbank/internal/accountrepo"
	"github.com/go-arno/peerbank/internal/domain"
	"github.com/go-arno/peerbank/internal/transactionrepo"
	"github.com/go-arno/peerbank/pkg/errorspkg"
)

// RepoPGS facilitates transfer repository layer logic.
type RepoPGS struct {
	conn *sql.DB
}

// NewRepoPGS returns transfer RepoPGS.
func NewRepoPGS(db *sql.DB) *RepoPGS {
	return &RepoPGS{
		conn: db,
	}
}

// Execute runs one attempt of the transfer commit. Both conditional updates
// and the ledger append run in a single database transaction; a version
// conflict on either account rolls the whole unit back and surfaces as
// *domain.ConflictError so the caller can retry with a fresh snapshot. No
// partially applied state is ever visible to other readers.
func (r *RepoPGS) Execute(ctx context.Context, arg domain.ExecuteTransferParams) (domain.Transaction, error) {
	l := zerolog.Ctx(ctx)

	var result domain.Transaction

	tx, err := r.conn.BeginTx(ctx, nil)
	if err != nil {
		l.Error().Err(err).Send()
		return result, errorspkg.ErrInternal
	}
	defer tx.Rollback()

	accounts := accountrepo.NewTxRepoPGS(tx)
	ledger := transactionrepo.NewTxRepoPGS(tx)

	if _, err = accounts.AddBalance(ctx, arg.SenderID, arg.TotalDebit.Neg(), arg.SenderVersion); err != nil {
		return result, err
	}

	if _, err = accounts.AddBalance(ctx, arg.ReceiverID, arg.Amount, arg.ReceiverVersion); err != nil {
		return result, err
	}

	result, err = ledger.Append(ctx, arg.SenderID, arg.ReceiverID, arg.Amount, arg.Fee)
	if err != nil {
		return result, err
	}

	if err = tx.Commit(); err != nil {
		l.Error().Err(err).Send()
		return domain.Transaction{}, errorspkg.ErrInternal
	}

	return result, nil
}
