// Package helpers seeds database rows for integration tests.
package helpers

import (
	"context"
	"database/sql"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/go-arno/peerbank/internal/accountrepo"
	"github.com/go-arno/peerbank/internal/domain"
	"github.com/go-arno/peerbank/internal/userrepo"
	"github.com/go-arno/peerbank/pkg/passpkg"
	"github.com/go-arno/peerbank/pkg/randompkg"
)

// SeedUser inserts a user with a random password.
func SeedUser(t *testing.T, db *sql.DB) domain.User {
	t.Helper()

	hashedPassword, err := passpkg.Hash(randompkg.String(10))
	if err != nil {
		t.Fatalf("passpkg.Hash returned error: %v", err)
	}

	user, err := userrepo.NewRepoPGS(db).Create(context.Background(), domain.CreateUserParams{
		Username:       randompkg.Owner(),
		HashedPassword: hashedPassword,
		FullName:       randompkg.Owner(),
		Email:          randompkg.Email(),
	})
	if err != nil {
		t.Fatalf("seeding user returned error: %v", err)
	}

	return user
}

// SeedAccount opens an account for the given owner with the given balance.
func SeedAccount(t *testing.T, db *sql.DB, owner, balance string) domain.Account {
	t.Helper()

	account, err := accountrepo.NewRepoPGS(db).Create(context.Background(),
		owner, decimal.RequireFromString(balance))
	if err != nil {
		t.Fatalf("seeding account returned error: %v", err)
	}

	return account
}
