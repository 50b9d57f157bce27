package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction is the immutable ledger record of one completed transfer.
// There is no update or delete path for it.
type Transaction struct {
	ID            int64           `json:"id"`
	SenderID      int32           `json:"sender_id"`
	ReceiverID    int32           `json:"receiver_id"`
	Amount        decimal.Decimal `json:"amount"`
	CommissionFee decimal.Decimal `json:"commission_fee"`
	CreatedAt     time.Time       `json:"created_at"`
}

// ListTransactionsParams is the input data to list ledger entries that touch
// the given account.
type ListTransactionsParams struct {
	AccountID int32 `json:"account_id"`
	Limit     int32 `json:"limit"`
	Offset    int32 `json:"offset"`
}
