// Package accountservice manages business logic layer of accounts.
package accountservice

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/go-arno/peerbank/internal/domain"
)

// Repo provides data access layer interface needed by account service layer.
//
//go:generate mockgen -source service.go -destination service_mock.go -package accountservice
type Repo interface {
	Create(ctx context.Context, owner string, balance decimal.Decimal) (domain.Account, error)
	Get(ctx context.Context, id int32) (domain.Account, error)
	List(ctx context.Context, arg domain.ListAccountsParams) ([]domain.Account, error)
}

// Cache provides the account snapshot cache. Failures are tolerated; the
// repo is always the source of truth.
type Cache interface {
	Get(ctx context.Context, accountID int32) (domain.Account, bool, error)
	Set(ctx context.Context, account domain.Account) error
}

// Service facilitates account service layer logic.
type Service struct {
	repo  Repo
	cache Cache
}

// New returns account service struct to manage account business logic.
func New(ar Repo, cache Cache) *Service {
	return &Service{
		repo:  ar,
		cache: cache,
	}
}

// Create opens an account for the given owner with the given opening balance.
func (s *Service) Create(ctx context.Context, owner, balance string) (domain.Account, error) {
	openingBalance, err := decimal.NewFromString(balance)
	if err != nil {
		return domain.Account{}, domain.ErrInvalidAmount
	}

	if openingBalance.IsNegative() {
		return domain.Account{}, domain.ErrNegativeAmount
	}

	return s.repo.Create(ctx, owner, openingBalance)
}

// Get returns the account for the given account ID, preferring the cached
// snapshot when one exists.
func (s *Service) Get(ctx context.Context, id int32) (domain.Account, error) {
	l := zerolog.Ctx(ctx)

	cached, found, err := s.cache.Get(ctx, id)
	if err != nil {
		l.Warn().Err(err).Int32("account_id", id).Msg("account cache read failed")
	} else if found {
		return cached, nil
	}

	account, err := s.repo.Get(ctx, id)
	if err != nil {
		return account, err
	}

	if err := s.cache.Set(ctx, account); err != nil {
		l.Warn().Err(err).Int32("account_id", id).Msg("account cache write failed")
	}

	return account, nil
}

// List returns accounts that are owned by the given user.
func (s *Service) List(ctx context.Context, owner string, pageSize, pageID int32) ([]domain.Account, error) {
	arg := domain.ListAccountsParams{
		Owner:  owner,
		Limit:  pageSize,
		Offset: (pageID - 1) * pageSize,
	}

	return s.repo.List(ctx, arg)
}
