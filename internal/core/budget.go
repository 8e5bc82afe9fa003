package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// DefaultAlertThreshold is the warning percentage used when a budget is
// created without an explicit threshold.
const DefaultAlertThreshold = 80

// BudgetStatus is derived from spent, limit, and the alert threshold.
// It is always recomputed on read, never stored.
type BudgetStatus string

const (
	StatusGood     BudgetStatus = "good"
	StatusModerate BudgetStatus = "moderate"
	StatusWarning  BudgetStatus = "warning"
	StatusExceeded BudgetStatus = "exceeded"
)

// Budget is the per-bucket spending ceiling plus the last-computed
// aggregate. Spent is derived, never authoritative: it must always be
// re-derivable from the expense transactions of its bucket.
type Budget struct {
	ID             int64
	Owner          string
	Category       Category
	Month          int // 1-12
	Year           int
	Limit          Money
	Spent          Money
	AlertThreshold int // percentage, 1-100
	AlertSent      bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Key returns the budget's natural aggregation key.
func (b Budget) Key() BucketKey {
	return BucketKey{Owner: b.Owner, Category: b.Category, Month: b.Month, Year: b.Year}
}

// Remaining is the headroom left under the limit, floored at zero.
func (b Budget) Remaining() Money {
	if b.Spent.AtLeast(b.Limit) {
		return Money{}
	}
	return b.Limit.Sub(b.Spent)
}

// Ratio is the unrounded spent/limit fraction. Threshold comparisons
// use this rather than the rounded percentage to avoid off-by-one
// misses at the boundary.
func (b Budget) Ratio() decimal.Decimal {
	if b.Limit.Cents == 0 {
		return decimal.Zero
	}
	return b.Spent.Decimal().Div(b.Limit.Decimal())
}

// Percentage is the display percentage, rounded half-up to an integer.
func (b Budget) Percentage() int {
	return int(b.Ratio().Mul(hundred).Round(0).IntPart())
}

// Exceeded reports whether spending has reached the limit itself.
func (b Budget) Exceeded() bool {
	return b.Spent.AtLeast(b.Limit)
}

// OverThreshold reports whether the unrounded ratio has reached the
// alert threshold.
func (b Budget) OverThreshold() bool {
	threshold := decimal.NewFromInt(int64(b.AlertThreshold))
	return b.Ratio().Mul(hundred).GreaterThanOrEqual(threshold)
}

// Status derives the budget's health classification.
func (b Budget) Status() BudgetStatus {
	switch {
	case b.Exceeded():
		return StatusExceeded
	case b.OverThreshold():
		return StatusWarning
	case b.Ratio().Mul(hundred).GreaterThanOrEqual(decimal.NewFromInt(50)):
		return StatusModerate
	default:
		return StatusGood
	}
}

// ValidateThreshold checks an alert threshold percentage. Zero is
// rejected because it would warn on an untouched budget.
func ValidateThreshold(threshold int) error {
	if threshold < 1 || threshold > 100 {
		return ErrInvalidThreshold
	}
	return nil
}

// ValidatePeriod checks a (year, month) budget period.
func ValidatePeriod(year, month int) error {
	if month < 1 || month > 12 {
		return ErrInvalidMonth
	}
	if year < 2000 || year > 2100 {
		return ErrInvalidYear
	}
	return nil
}
