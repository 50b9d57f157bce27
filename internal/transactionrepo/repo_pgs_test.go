package transactionrepo

import (
	"context"
	"database/sql"
	"log"
	"os"
	"testing"

	_ "github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/go-arno/peerbank/internal/accountrepo"
	"github.com/go-arno/peerbank/internal/domain"
	"github.com/go-arno/peerbank/internal/userrepo"
	"github.com/go-arno/peerbank/pkg/configpkg"
	"github.com/go-arno/peerbank/pkg/passpkg"
	"github.com/go-arno/peerbank/pkg/randompkg"
)

var (
	testRepo        *RepoPGS
	testAccountRepo *accountrepo.RepoPGS
	testUserRepo    *userrepo.RepoPGS
)

func TestMain(m *testing.M) {
	config, err := configpkg.Load("../../configs")
	if err != nil {
		log.Fatal("cannot load config:", err)
	}

	testDB, err := sql.Open(config.DBDriver, config.DBSource)
	if err != nil {
		log.Fatal("cannot connect to db:", err)
	}

	testRepo = NewRepoPGS(testDB)
	testAccountRepo = accountrepo.NewRepoPGS(testDB)
	testUserRepo = userrepo.NewRepoPGS(testDB)

	os.Exit(m.Run())
}

func createRandomAccount(t *testing.T) domain.Account {
	hashedPassword, err := passpkg.Hash(randompkg.String(10))
	require.NoError(t, err)

	user, err := testUserRepo.Create(context.Background(), domain.CreateUserParams{
		Username:       randompkg.Owner(),
		HashedPassword: hashedPassword,
		FullName:       randompkg.Owner(),
		Email:          randompkg.Email(),
	})
	require.NoError(t, err)

	account, err := testAccountRepo.Create(context.Background(),
		user.Username, randompkg.MoneyAmountBetween(1_000, 10_000))
	require.NoError(t, err)

	return account
}

func TestAppend(t *testing.T) {
	sender := createRandomAccount(t)
	receiver := createRandomAccount(t)

	amount := decimal.NewFromInt(100)
	fee := decimal.RequireFromString("1.5")

	tx, err := testRepo.Append(context.Background(), sender.ID, receiver.ID, amount, fee)
	require.NoError(t, err)

	require.NotZero(t, tx.ID)
	require.Equal(t, sender.ID, tx.SenderID)
	require.Equal(t, receiver.ID, tx.ReceiverID)
	require.True(t, amount.Equal(tx.Amount))
	require.True(t, fee.Equal(tx.CommissionFee))
	require.NotZero(t, tx.CreatedAt)
}

func TestAppendConstraintViolations(t *testing.T) {
	sender := createRandomAccount(t)
	receiver := createRandomAccount(t)

	fee := decimal.RequireFromString("1.5")

	testCases := []struct {
		name       string
		senderID   int32
		receiverID int32
		amount     decimal.Decimal
		wantError  error
	}{
		{
			name:       "SenderNotFound",
			senderID:   -1,
			receiverID: receiver.ID,
			amount:     decimal.NewFromInt(100),
			wantError:  domain.ErrAccountNotFound,
		},
		{
			name:       "ReceiverNotFound",
			senderID:   sender.ID,
			receiverID: -1,
			amount:     decimal.NewFromInt(100),
			wantError:  domain.ErrAccountNotFound,
		},
		{
			name:       "NonPositiveAmount",
			senderID:   sender.ID,
			receiverID: receiver.ID,
			amount:     decimal.NewFromInt(-100),
			wantError:  domain.ErrInvalidAmount,
		},
	}

	for i := range testCases {
		tc := testCases[i]

		t.Run(tc.name, func(t *testing.T) {
			_, err := testRepo.Append(context.Background(),
				tc.senderID, tc.receiverID, tc.amount, fee)

			require.EqualError(t, err, tc.wantError.Error())
		})
	}
}

func TestGet(t *testing.T) {
	sender := createRandomAccount(t)
	receiver := createRandomAccount(t)

	created, err := testRepo.Append(context.Background(),
		sender.ID, receiver.ID, decimal.NewFromInt(100), decimal.RequireFromString("1.5"))
	require.NoError(t, err)

	got, err := testRepo.Get(context.Background(), created.ID)
	require.NoError(t, err)
	require.Equal(t, created.ID, got.ID)
	require.True(t, created.Amount.Equal(got.Amount))
}

func TestList(t *testing.T) {
	sender := createRandomAccount(t)
	receiver := createRandomAccount(t)

	for i := 0; i < 3; i++ {
		_, err := testRepo.Append(context.Background(),
			sender.ID, receiver.ID, decimal.NewFromInt(int64(10+i)), decimal.NewFromInt(1))
		require.NoError(t, err)
	}

	// Both sides of the transfer see the same ledger rows.
	for _, accountID := range []int32{sender.ID, receiver.ID} {
		transactions, err := testRepo.List(context.Background(), domain.ListTransactionsParams{
			AccountID: accountID,
			Limit:     10,
			Offset:    0,
		})
		require.NoError(t, err)
		require.Len(t, transactions, 3)
	}

	// Newest first.
	transactions, err := testRepo.List(context.Background(), domain.ListTransactionsParams{
		AccountID: sender.ID,
		Limit:     2,
		Offset:    0,
	})
	require.NoError(t, err)
	require.Len(t, transactions, 2)
	require.True(t, transactions[0].ID > transactions[1].ID)
}
