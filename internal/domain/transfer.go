package domain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	// ErrSelfTransfer indicates that sender and receiver are the same account.
	ErrSelfTransfer = errors.New("cannot transfer to the same account")
	// ErrInvalidAmount indicates invalid amount.
	ErrInvalidAmount = errors.New("invalid amount")
	// ErrNegativeAmount indicates non-positive amount.
	ErrNegativeAmount = errors.New("negative amount")
	// ErrInsufficientBalance indicates that the sender cannot cover amount plus fee.
	ErrInsufficientBalance = errors.New("insufficient balance")
	// ErrInvalidOwner indicates that the user is unauthorized to transfer money from the account.
	ErrInvalidOwner = errors.New("unauthorized owner")
)

// CreateTransferParams is the input data for the transfer.
type CreateTransferParams struct {
	SenderID   int32  `json:"sender_id"`
	ReceiverID int32  `json:"receiver_id"`
	Amount     string `json:"amount"` // must be positive
}

// ExecuteTransferParams carries one attempt's consistent snapshot into the
// atomic commit. Versions are the guards the conditional updates check.
type ExecuteTransferParams struct {
	SenderID        int32
	SenderVersion   int64
	TotalDebit      decimal.Decimal
	ReceiverID      int32
	ReceiverVersion int64
	Amount          decimal.Decimal
	Fee             decimal.Decimal
}

// TransferResult is returned to the caller after a committed transfer.
type TransferResult struct {
	Transaction     Transaction     `json:"transaction"`
	SenderBalance   decimal.Decimal `json:"sender_balance"`
	ReceiverBalance decimal.Decimal `json:"receiver_balance"`
}

// ConflictError reports a version-guarded update that matched zero rows:
// another writer bumped the account version after the snapshot was taken.
// It is the only retriable failure of the engine.
type ConflictError struct {
	AccountID int32
	Version   int64
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("account %d balance conflict at version %d", e.AccountID, e.Version)
}

// IsConflict reports whether err is a version conflict. Classification is
// structural, never inferred from the error text.
func IsConflict(err error) bool {
	var ce *ConflictError
	return errors.As(err, &ce)
}

// ConflictExhaustedError is returned once the retry budget is spent. It wraps
// the last conflict so callers can decide whether to resubmit.
type ConflictExhaustedError struct {
	SenderID   int32
	ReceiverID int32
	Attempts   int
	Err        error
}

func (e *ConflictExhaustedError) Error() string {
	return fmt.Sprintf("transfer %d -> %d still conflicting after %d attempts: %v",
		e.SenderID, e.ReceiverID, e.Attempts, e.Err)
}

func (e *ConflictExhaustedError) Unwrap() error { return e.Err }
