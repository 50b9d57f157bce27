// Package transferservice implements the optimistic-concurrency transfer
// engine: validation, version-guarded debit and credit, retry on contention,
// and post-commit side effects.
package transferservice

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/go-arno/peerbank/internal/domain"
	"github.com/go-arno/peerbank/pkg/configpkg"
	"github.com/go-arno/peerbank/pkg/feepkg"
	"github.com/go-arno/peerbank/pkg/retrypkg"
)

// Repo provides the atomic commit interface needed by the engine.
//
//go:generate mockgen -source service.go -destination service_mock.go -package transferservice
type Repo interface {
	Execute(ctx context.Context, arg domain.ExecuteTransferParams) (domain.Transaction, error)
}

// AccountReader reads account snapshots. The engine reads through it directly,
// never through a cache: every retry needs the row's current balance and
// version.
type AccountReader interface {
	Get(ctx context.Context, id int32) (domain.Account, error)
}

// Notifier receives a committed transfer and the two new balances. It runs
// after the commit, at most once per success, and its failures never affect
// the reported outcome.
type Notifier interface {
	Notify(ctx context.Context, transaction domain.Transaction, senderBalance, receiverBalance decimal.Decimal) error
}

// Invalidator drops cached state for an account after its balance changed.
type Invalidator interface {
	Invalidate(ctx context.Context, accountID int32) error
}

// Service facilitates transfer business logic.
type Service struct {
	repo     Repo
	accounts AccountReader
	notifier Notifier
	cache    Invalidator
	rate     decimal.Decimal
	retry    retrypkg.Controller
}

// New returns a transfer Service configured with the commission rate and the
// retry policy from config.
func New(repo Repo, accounts AccountReader, notifier Notifier, cache Invalidator, config configpkg.Config) (*Service, error) {
	rate, err := decimal.NewFromString(config.CommissionRate)
	if err != nil {
		return nil, err
	}

	if rate.IsNegative() {
		return nil, errors.New("commission rate must not be negative")
	}

	return &Service{
		repo:     repo,
		accounts: accounts,
		notifier: notifier,
		cache:    cache,
		rate:     rate,
		retry:    retrypkg.New(config.TransferMaxAttempts, config.TransferBaseDelay),
	}, nil
}

// SetSleeper replaces the retry delay function. Tests inject a recording
// sleeper to assert the backoff schedule.
func (s *Service) SetSleeper(sleep retrypkg.Sleeper) {
	s.retry.Sleep = sleep
}

func (s *Service) validRequest(ctx context.Context, fromUsername string, arg domain.CreateTransferParams) (decimal.Decimal, error) {
	l := zerolog.Ctx(ctx)

	amount, err := decimal.NewFromString(arg.Amount)
	if err != nil {
		l.Info().Err(err).Send()
		return decimal.Decimal{}, domain.ErrInvalidAmount
	}

	if amount.LessThanOrEqual(decimal.Zero) {
		return decimal.Decimal{}, domain.ErrNegativeAmount
	}

	if arg.SenderID == arg.ReceiverID {
		return decimal.Decimal{}, domain.ErrSelfTransfer
	}

	sender, err := s.accounts.Get(ctx, arg.SenderID)
	if err != nil {
		l.Info().Err(err).Send()
		return decimal.Decimal{}, err
	}

	if sender.Owner != fromUsername {
		return decimal.Decimal{}, domain.ErrInvalidOwner
	}

	if sender.Balance.LessThan(feepkg.TotalDebit(amount, s.rate)) {
		return decimal.Decimal{}, domain.ErrInsufficientBalance
	}

	if _, err = s.accounts.Get(ctx, arg.ReceiverID); err != nil {
		l.Info().Err(err).Send()
		return decimal.Decimal{}, err
	}

	return amount, nil
}

// attempt runs one read-validate-commit cycle. Every call re-reads both
// accounts so a retry never reuses a stale snapshot.
func (s *Service) attempt(ctx context.Context, arg domain.CreateTransferParams, amount decimal.Decimal) (domain.TransferResult, error) {
	var result domain.TransferResult

	sender, err := s.accounts.Get(ctx, arg.SenderID)
	if err != nil {
		return result, err
	}

	receiver, err := s.accounts.Get(ctx, arg.ReceiverID)
	if err != nil {
		return result, err
	}

	fee := feepkg.Compute(amount, s.rate)
	totalDebit := amount.Add(fee)

	// Amounts can be stale between validation and write; re-check against
	// the snapshot this attempt will commit on.
	if sender.Balance.LessThan(totalDebit) {
		return result, domain.ErrInsufficientBalance
	}

	transaction, err := s.repo.Execute(ctx, domain.ExecuteTransferParams{
		SenderID:        arg.SenderID,
		SenderVersion:   sender.Version,
		TotalDebit:      totalDebit,
		ReceiverID:      arg.ReceiverID,
		ReceiverVersion: receiver.Version,
		Amount:          amount,
		Fee:             fee,
	})
	if err != nil {
		return result, err
	}

	result.Transaction = transaction
	result.SenderBalance = sender.Balance.Sub(totalDebit)
	result.ReceiverBalance = receiver.Balance.Add(amount)

	return result, nil
}

// Transfer moves amount from the sender account to the receiver account
// exactly once, applying the commission as a surcharge on the sender side.
// Contended attempts are retried with exponential backoff; once the budget is
// spent the caller receives *domain.ConflictExhaustedError.
func (s *Service) Transfer(ctx context.Context, fromUsername string, arg domain.CreateTransferParams) (domain.TransferResult, error) {
	l := zerolog.Ctx(ctx)

	var result domain.TransferResult

	amount, err := s.validRequest(ctx, fromUsername, arg)
	if err != nil {
		return result, err
	}

	err = s.retry.Do(ctx, func(ctx context.Context) error {
		var attemptErr error
		result, attemptErr = s.attempt(ctx, arg, amount)
		return attemptErr
	}, domain.IsConflict)

	if err != nil {
		var exhausted *retrypkg.ExhaustedError
		if errors.As(err, &exhausted) {
			err = &domain.ConflictExhaustedError{
				SenderID:   arg.SenderID,
				ReceiverID: arg.ReceiverID,
				Attempts:   exhausted.Attempts,
				Err:        exhausted.Err,
			}

			l.Warn().Err(err).Msg("transfer retries exhausted")
		}

		return domain.TransferResult{}, err
	}

	s.afterCommit(ctx, result)

	return result, nil
}

// afterCommit runs the best-effort side effects of a committed transfer:
// cache invalidation for both participants and the notification event. Their
// failures are logged and swallowed; retrying any of this would risk
// double-applying observable effects of a transfer that already committed.
func (s *Service) afterCommit(ctx context.Context, result domain.TransferResult) {
	l := zerolog.Ctx(ctx)

	for _, id := range []int32{result.Transaction.SenderID, result.Transaction.ReceiverID} {
		if err := s.cache.Invalidate(ctx, id); err != nil {
			l.Error().Err(err).Int32("account_id", id).Msg("cache invalidation failed")
		}
	}

	if err := s.notifier.Notify(ctx, result.Transaction, result.SenderBalance, result.ReceiverBalance); err != nil {
		l.Error().Err(err).Int64("transaction_id", result.Transaction.ID).Msg("transfer notification failed")
	}
}
