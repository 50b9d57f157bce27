// Package feepkg implements the commission policy applied to transfers.
//
// The fee is a surcharge: the sender is debited amount plus fee and the
// receiver is credited exactly the requested amount.
package feepkg

import "github.com/shopspring/decimal"

// precision is the ledger's minor-unit precision.
const precision = 2

// Compute returns the commission for the given amount at the given rate,
// rounded half to even to the ledger precision.
func Compute(amount, rate decimal.Decimal) decimal.Decimal {
	return amount.Mul(rate).RoundBank(precision)
}

// TotalDebit returns the full amount charged to the sender.
func TotalDebit(amount, rate decimal.Decimal) decimal.Decimal {
	return amount.Add(Compute(amount, rate))
}
