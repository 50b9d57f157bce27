package transferservice

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/go-arno/peerbank/internal/domain"
	"github.com/go-arno/peerbank/pkg/configpkg"
)

// memStore is an in-memory account store with the same contract as the
// postgres repos: version-guarded updates, atomic commit of both balance
// changes and the ledger append, no partial state.
type memStore struct {
	mu       sync.Mutex
	accounts map[int32]domain.Account
	ledger   []domain.Transaction
	nextID   int64

	// observed prior versions per account, for monotonicity checks
	applied map[int32][]int64
}

func newMemStore(accounts ...domain.Account) *memStore {
	s := &memStore{
		accounts: map[int32]domain.Account{},
		applied:  map[int32][]int64{},
	}
	for _, a := range accounts {
		s.accounts[a.ID] = a
	}

	return s
}

func (s *memStore) Get(ctx context.Context, id int32) (domain.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.accounts[id]
	if !ok {
		return domain.Account{}, domain.ErrAccountNotFound
	}

	return a, nil
}

func (s *memStore) Execute(ctx context.Context, arg domain.ExecuteTransferParams) (domain.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sender := s.accounts[arg.SenderID]
	if sender.Version != arg.SenderVersion {
		return domain.Transaction{}, &domain.ConflictError{AccountID: arg.SenderID, Version: arg.SenderVersion}
	}

	receiver := s.accounts[arg.ReceiverID]
	if receiver.Version != arg.ReceiverVersion {
		return domain.Transaction{}, &domain.ConflictError{AccountID: arg.ReceiverID, Version: arg.ReceiverVersion}
	}

	sender.Balance = sender.Balance.Sub(arg.TotalDebit)
	sender.Version++
	receiver.Balance = receiver.Balance.Add(arg.Amount)
	receiver.Version++

	s.accounts[arg.SenderID] = sender
	s.accounts[arg.ReceiverID] = receiver
	s.applied[arg.SenderID] = append(s.applied[arg.SenderID], arg.SenderVersion)
	s.applied[arg.ReceiverID] = append(s.applied[arg.ReceiverID], arg.ReceiverVersion)

	s.nextID++
	transaction := domain.Transaction{
		ID:            s.nextID,
		SenderID:      arg.SenderID,
		ReceiverID:    arg.ReceiverID,
		Amount:        arg.Amount,
		CommissionFee: arg.Fee,
		CreatedAt:     time.Now(),
	}
	s.ledger = append(s.ledger, transaction)

	return transaction, nil
}

type nopNotifier struct {
	mu    sync.Mutex
	count int
}

func (n *nopNotifier) Notify(ctx context.Context, transaction domain.Transaction, senderBalance, receiverBalance decimal.Decimal) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.count++

	return nil
}

type nopInvalidator struct{}

func (nopInvalidator) Invalidate(ctx context.Context, accountID int32) error { return nil }

func newConcurrencyService(t *testing.T, store *memStore, notifier *nopNotifier, rate string) *Service {
	t.Helper()

	config := configpkg.Config{
		CommissionRate:      rate,
		TransferMaxAttempts: 100,
		TransferBaseDelay:   time.Millisecond,
	}

	service, err := New(store, store, notifier, nopInvalidator{}, config)
	require.NoError(t, err)

	// Yield instead of sleeping so contention is real but the test is fast.
	service.SetSleeper(func(ctx context.Context, d time.Duration) error {
		runtime.Gosched()
		return nil
	})

	return service
}

func TestConcurrentTransfersNoLostUpdates(t *testing.T) {
	t.Parallel()

	const workers = 8

	sender := domain.Account{ID: 1, Owner: "alice", Balance: decimal.RequireFromString("10000")}
	receiver := domain.Account{ID: 2, Owner: "bob", Balance: decimal.RequireFromString("200")}

	store := newMemStore(sender, receiver)
	notifier := &nopNotifier{}
	service := newConcurrencyService(t, store, notifier, "0.015")

	arg := domain.CreateTransferParams{SenderID: 1, ReceiverID: 2, Amount: "100"}

	var wg sync.WaitGroup
	errs := make([]error, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)

		go func(i int) {
			defer wg.Done()
			_, errs[i] = service.Transfer(context.Background(), "alice", arg)
		}(i)
	}

	wg.Wait()

	for i, err := range errs {
		require.NoError(t, err, "worker %d", i)
	}

	// Same final state as any serial order of the 8 transfers: each moves
	// 100 and burns a 1.50 fee from the sender.
	finalSender, err := store.Get(context.Background(), 1)
	require.NoError(t, err)
	finalReceiver, err := store.Get(context.Background(), 2)
	require.NoError(t, err)

	require.True(t, finalSender.Balance.Equal(decimal.RequireFromString("9188")),
		"sender balance = %s, want 9188", finalSender.Balance)
	require.True(t, finalReceiver.Balance.Equal(decimal.RequireFromString("1000")),
		"receiver balance = %s, want 1000", finalReceiver.Balance)

	// Exactly one ledger entry and one notification per success.
	require.Len(t, store.ledger, workers)
	require.Equal(t, workers, notifier.count)

	// Version monotonicity: every successful update observed a distinct
	// prior version and the counter advanced by exactly one per update.
	for id, versions := range store.applied {
		seen := map[int64]bool{}
		for _, v := range versions {
			require.False(t, seen[v], "account %d: version %d observed twice", id, v)
			seen[v] = true
		}

		final, err := store.Get(context.Background(), id)
		require.NoError(t, err)
		require.Equal(t, int64(len(versions)), final.Version)
	}
}

func TestConcurrentOverdrawExactlyOneSucceeds(t *testing.T) {
	t.Parallel()

	sender := domain.Account{ID: 1, Owner: "alice", Balance: decimal.RequireFromString("80")}
	receiver := domain.Account{ID: 2, Owner: "bob", Balance: decimal.RequireFromString("0")}

	store := newMemStore(sender, receiver)
	notifier := &nopNotifier{}
	service := newConcurrencyService(t, store, notifier, "0")

	arg := domain.CreateTransferParams{SenderID: 1, ReceiverID: 2, Amount: "50"}

	var wg sync.WaitGroup
	errs := make([]error, 2)

	for i := 0; i < 2; i++ {
		wg.Add(1)

		go func(i int) {
			defer wg.Done()
			_, errs[i] = service.Transfer(context.Background(), "alice", arg)
		}(i)
	}

	wg.Wait()

	var successes, insufficient int
	for _, err := range errs {
		switch {
		case err == nil:
			successes++
		case errors.Is(err, domain.ErrInsufficientBalance):
			insufficient++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}

	require.Equal(t, 1, successes)
	require.Equal(t, 1, insufficient)

	finalSender, err := store.Get(context.Background(), 1)
	require.NoError(t, err)
	require.True(t, finalSender.Balance.Equal(decimal.RequireFromString("30")),
		"sender balance = %s, want 30 and never negative", finalSender.Balance)

	require.Len(t, store.ledger, 1)
}
