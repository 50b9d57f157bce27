// Package accountrepo manages the repository layer of accounts.
package accountrepo

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

// RepoPGS facilitates account repository layer logic.
type RepoPGS struct {
	db dbpkg.SQLInterface
}

// NewRepoPGS returns account RepoPGS.
func NewRepoPGS(db *sql.DB) *RepoPGS {
	return &RepoPGS{
		db: db,
	}
}

// NewTxRepoPGS returns account RepoPGS scoped to the given transaction.
func NewTxRepoPGS(db dbpkg.SQLInterface) *RepoPGS {
	return &RepoPGS{
		db: db,
	}
}

const createQuery = `
INSERT INTO
    accounts (owner, balance)
VALUES
    ($1, $2)
RETURNING id, owner, balance, version, created_at
`

// Create opens an account with the given balance at version 0.
func (r *RepoPGS) Create(ctx context.Context, owner string, balance decimal.Decimal) (domain.Account, error) {
	l := zerolog.Ctx(ctx)

	row := r.db.QueryRowContext(ctx, createQuery, owner, balance)

	var a domain.Account

	err := row.Scan(
		&a.ID,
		&a.Owner,
		&a.Balance,
		&a.Version,
		&a.CreatedAt,
	)
	if err != nil {
		l.Error().Err(err).Msgf("Create(ctx, %v, %v)", owner, balance)

		if pqErr, ok := err.(*pq.Error); ok {
			switch pqErr.Constraint {
			case "accounts_owner_fkey":
				return a, domain.ErrOwnerNotFound
			case "accounts_owner_idx":
				return a, domain.ErrAccountAlreadyExists
			}
		}

		return a, errorspkg.ErrInternal
	}

	return a, nil
}

const getQuery = `
SELECT id, owner, balance, version, created_at FROM accounts
WHERE id = $1
`

// Get returns the account with its current balance and version. Both values
// come from the same row read, so together they form a consistent snapshot.
func (r *RepoPGS) Get(ctx context.Context, id int32) (domain.Account, error) {
	l := zerolog.Ctx(ctx)

	row := r.db.QueryRowContext(ctx, getQuery, id)

	var a domain.Account

	err := row.Scan(
		&a.ID,
		&a.Owner,
		&a.Balance,
		&a.Version,
		&a.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return a, domain.ErrAccountNotFound
		}

		l.Error().Err(err).Msgf("Get(ctx, %v)", id)

		return a, errorspkg.ErrInternal
	}

	return a, nil
}

const addBalanceQuery = `
UPDATE accounts
SET balance = balance + $1, version = version + 1
WHERE id = $2 AND version = $3
RETURNING id, owner, balance, version, created_at
`

// AddBalance applies delta to the account, guarded by the expected version.
// Zero affected rows means another writer bumped the version after the
// snapshot was taken; that is reported as *domain.ConflictError, never as a
// missing account.
func (r *RepoPGS) AddBalance(ctx context.Context, id int32, delta decimal.Decimal, expectedVersion int64) (domain.Account, error) {
	l := zerolog.Ctx(ctx)

	row := r.db.QueryRowContext(ctx, addBalanceQuery, delta, id, expectedVersion)

	var a domain.Account

	err := row.Scan(
		&a.ID,
		&a.Owner,
		&a.Balance,
		&a.Version,
		&a.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return a, &domain.ConflictError{AccountID: id, Version: expectedVersion}
		}

		l.Error().Err(err).Msgf("AddBalance(ctx, %v, %v, %v)", id, delta, expectedVersion)

		return a, errorspkg.ErrInternal
	}

	return a, nil
}

const listQuery = `
SELECT id, owner, balance, version, created_at FROM accounts
WHERE owner = $1
ORDER BY id
LIMIT $2 OFFSET $3
`

// List returns the accounts of the given owner.
func (r *RepoPGS) List(ctx context.Context, arg domain.ListAccountsParams) ([]domain.Account, error) {
	l := zerolog.Ctx(ctx)

	rows, err := r.db.QueryContext(ctx, listQuery, arg.Owner, arg.Limit, arg.Offset)
	if err != nil {
		l.Error().Err(err).Msgf("List(ctx, %+v)", arg)
		return nil, errorspkg.ErrInternal
	}
	defer rows.Close()

	items := []domain.Account{}

	for rows.Next() {
		var a domain.Account
		if err := rows.Scan(
			&a.ID,
			&a.Owner,
			&a.Balance,
			&a.Version,
			&a.CreatedAt,
		); err != nil {
			l.Error().Err(err).Send()
			return nil, errorspkg.ErrInternal
		}

		items = append(items, a)
	}

	if err := rows.Err(); err != nil {
		l.Error().Err(err).Send()
		return nil, errorspkg.ErrInternal
	}

	return items, nil
}
