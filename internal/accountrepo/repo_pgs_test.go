package accountrepo

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"os"
	"testing"

	_ "github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/go-arno/peerbank/internal/domain"
	"github.com/go-arno/peerbank/internal/userrepo"
	"github.com/go-arno/peerbank/pkg/configpkg"
	"github.com/go-arno/peerbank/pkg/passpkg"
	"github.com/go-arno/peerbank/pkg/randompkg"
)

var (
	testRepo     *RepoPGS
	testUserRepo *userrepo.RepoPGS
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
	testUserRepo = userrepo.NewRepoPGS(testDB)

	os.Exit(m.Run())
}

func createRandomUser(t *testing.T) domain.User {
	hashedPassword, err := passpkg.Hash(randompkg.String(10))
	require.NoError(t, err)

	arg := domain.CreateUserParams{
		Username:       randompkg.Owner(),
		HashedPassword: hashedPassword,
		FullName:       randompkg.Owner(),
		Email:          randompkg.Email(),
	}

	testUser, err := testUserRepo.Create(context.Background(), arg)
	require.NoError(t, err)
	require.NotEmpty(t, testUser)

	return testUser
}

func createRandomAccount(t *testing.T, testUser domain.User) domain.Account {
	testBalance := randompkg.MoneyAmountBetween(1_000, 10_000)

	account, err := testRepo.Create(context.Background(), testUser.Username, testBalance)
	require.NoError(t, err)
	require.NotEmpty(t, account)

	require.Equal(t, testUser.Username, account.Owner)
	require.True(t, testBalance.Equal(account.Balance))
	require.Equal(t, int64(1), account.Version)

	require.NotZero(t, account.ID)
	require.NotZero(t, account.CreatedAt)

	return account
}

func TestCreate(t *testing.T) {
	testUser := createRandomUser(t)
	createRandomAccount(t, testUser)
}

func TestCreateConstraintViolations(t *testing.T) {
	testUser := createRandomUser(t)
	createRandomAccount(t, testUser)

	testCases := []struct {
		name      string
		owner     string
		wantError error
	}{
		{
			name:      "ErrOwnerNotFound",
			owner:     "NotFound",
			wantError: domain.ErrOwnerNotFound,
		},
		{
			name:      "ErrAccountAlreadyExists",
			owner:     testUser.Username,
			wantError: domain.ErrAccountAlreadyExists,
		},
	}

	for i := range testCases {
		tc := testCases[i]

		t.Run(tc.name, func(t *testing.T) {
			response, err := testRepo.Create(context.Background(),
				tc.owner, randompkg.MoneyAmountBetween(1_000, 10_000))

			require.EqualError(t, err, tc.wantError.Error())
			require.Empty(t, response)
		})
	}
}

func TestGet(t *testing.T) {
	testUser := createRandomUser(t)
	account := createRandomAccount(t, testUser)

	got, err := testRepo.Get(context.Background(), account.ID)
	require.NoError(t, err)

	require.Equal(t, account.ID, got.ID)
	require.Equal(t, account.Owner, got.Owner)
	require.True(t, account.Balance.Equal(got.Balance))
	require.Equal(t, account.Version, got.Version)
}

func TestGetNotFound(t *testing.T) {
	_, err := testRepo.Get(context.Background(), -1)
	require.EqualError(t, err, domain.ErrAccountNotFound.Error())
}

func TestAddBalance(t *testing.T) {
	testUser := createRandomUser(t)
	account := createRandomAccount(t, testUser)

	delta := decimal.NewFromInt(100)

	got, err := testRepo.AddBalance(context.Background(), account.ID, delta, account.Version)
	require.NoError(t, err)

	require.True(t, account.Balance.Add(delta).Equal(got.Balance))
	require.Equal(t, account.Version+1, got.Version)
}

func TestAddBalanceStaleVersion(t *testing.T) {
	testUser := createRandomUser(t)
	account := createRandomAccount(t, testUser)

	delta := decimal.NewFromInt(100)

	_, err := testRepo.AddBalance(context.Background(), account.ID, delta, account.Version)
	require.NoError(t, err)

	// The row moved to version+1 so the original version must no longer match.
	_, err = testRepo.AddBalance(context.Background(), account.ID, delta, account.Version)

	var conflict *domain.ConflictError
	require.True(t, errors.As(err, &conflict))
	require.Equal(t, account.ID, conflict.AccountID)
	require.Equal(t, account.Version, conflict.Version)

	got, err := testRepo.Get(context.Background(), account.ID)
	require.NoError(t, err)
	require.True(t, account.Balance.Add(delta).Equal(got.Balance))
}

func TestList(t *testing.T) {
	testUser := createRandomUser(t)
	account := createRandomAccount(t, testUser)

	arg := domain.ListAccountsParams{
		Owner:  testUser.Username,
		Limit:  5,
		Offset: 0,
	}

	accounts, err := testRepo.List(context.Background(), arg)
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	require.Equal(t, account.ID, accounts[0].ID)
}
