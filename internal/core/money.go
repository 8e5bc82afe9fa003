// Package core holds the domain model shared by the ledger, the budget
// aggregator, and the alert engine.
//
// Monetary amounts are stored as integer cents and converted to
// decimals for parsing, ratios, and display. Arithmetic never passes
// through float64.
package core

import (
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Money is a currency-agnostic amount in minor units (cents).
type Money struct {
	Cents int64
}

// NewMoneyFromCents wraps raw cents in a Money.
func NewMoneyFromCents(cents int64) Money {
	return Money{Cents: cents}
}

// ParseMoney converts a decimal string such as "12.34" to Money,
// rounding half-up on the third decimal place. Zero and negative
// amounts are rejected: the ledger records refunds as income, not as
// negative expenses.
func ParseMoney(s string) (Money, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, ErrInvalidAmount
	}
	if d.Sign() <= 0 {
		return Money{}, ErrInvalidAmount
	}
	cents := d.Round(2).Shift(2).IntPart()
	if cents <= 0 {
		return Money{}, ErrInvalidAmount
	}
	return Money{Cents: cents}, nil
}

// Decimal returns the amount as an exact two-place decimal.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.Cents, -2)
}

func (m Money) Add(o Money) Money        { return Money{Cents: m.Cents + o.Cents} }
func (m Money) Sub(o Money) Money        { return Money{Cents: m.Cents - o.Cents} }
func (m Money) IsZero() bool             { return m.Cents == 0 }
func (m Money) LessThan(o Money) bool    { return m.Cents < o.Cents }
func (m Money) AtLeast(o Money) bool     { return m.Cents >= o.Cents }
func (m Money) GreaterThan(o Money) bool { return m.Cents > o.Cents }

// String renders the amount with two decimal places, e.g. "12.34".
func (m Money) String() string {
	return m.Decimal().StringFixed(2)
}

// Validate rejects non-positive amounts. Applies to ledger amounts and
// budget limits; derived values like spent may legitimately be zero.
func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}
