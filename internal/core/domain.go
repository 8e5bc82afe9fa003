package core

import (
	"errors"
	"strings"
	"time"
)

// Kind distinguishes money leaving the ledger from money entering it.
type Kind string

const (
	KindExpense Kind = "expense"
	KindIncome  Kind = "income"
)

// Category is the closed set of canonical category names shared by the
// transaction ledger and the budget key. Values outside this set are
// rejected at the ledger-write boundary.
type Category string

const (
	CategoryFoodDining     Category = "Food & Dining"
	CategoryTransportation Category = "Transportation"
	CategoryShopping       Category = "Shopping"
	CategoryEntertainment  Category = "Entertainment"
	CategoryBillsUtilities Category = "Bills & Utilities"
	CategoryHealthcare     Category = "Healthcare"
	CategoryEducation      Category = "Education"
	CategoryTravel         Category = "Travel"
	CategoryInvestments    Category = "Investments"
	CategorySalary         Category = "Salary"
	CategoryFreelance      Category = "Freelance"
	CategoryBusiness       Category = "Business"
	CategoryRent           Category = "Rent"
	CategoryEMI            Category = "EMI"
	CategoryInsurance      Category = "Insurance"
	CategoryGifts          Category = "Gifts"
	CategoryOther          Category = "Other"
)

// Categories lists every valid category in display order.
var Categories = []Category{
	CategoryFoodDining,
	CategoryTransportation,
	CategoryShopping,
	CategoryEntertainment,
	CategoryBillsUtilities,
	CategoryHealthcare,
	CategoryEducation,
	CategoryTravel,
	CategoryInvestments,
	CategorySalary,
	CategoryFreelance,
	CategoryBusiness,
	CategoryRent,
	CategoryEMI,
	CategoryInsurance,
	CategoryGifts,
	CategoryOther,
}

func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// PaymentMethod is descriptive metadata with no invariants beyond
// membership in the enum.
type PaymentMethod string

const (
	PaymentCash       PaymentMethod = "cash"
	PaymentCard       PaymentMethod = "card"
	PaymentUPI        PaymentMethod = "upi"
	PaymentNetBanking PaymentMethod = "net-banking"
	PaymentWallet     PaymentMethod = "wallet"
	PaymentOther      PaymentMethod = "other"
)

func (p PaymentMethod) Valid() bool {
	switch p {
	case PaymentCash, PaymentCard, PaymentUPI, PaymentNetBanking, PaymentWallet, PaymentOther:
		return true
	}
	return false
}

// RecurrencePeriod is advisory only; the ledger never auto-generates
// future transactions from it.
type RecurrencePeriod string

const (
	RecurrenceDaily   RecurrencePeriod = "daily"
	RecurrenceWeekly  RecurrencePeriod = "weekly"
	RecurrenceMonthly RecurrencePeriod = "monthly"
	RecurrenceYearly  RecurrencePeriod = "yearly"
)

func (r RecurrencePeriod) Valid() bool {
	switch r {
	case RecurrenceDaily, RecurrenceWeekly, RecurrenceMonthly, RecurrenceYearly:
		return true
	}
	return false
}

var (
	ErrInvalidAmount        = errors.New("invalid amount")
	ErrUnknownCategory      = errors.New("unknown category")
	ErrInvalidKind          = errors.New("invalid transaction kind")
	ErrEmptyOwner           = errors.New("empty owner")
	ErrEmptyDescription     = errors.New("empty description")
	ErrInvalidPaymentMethod = errors.New("invalid payment method")
	ErrInvalidRecurrence    = errors.New("invalid recurrence period")
	ErrInvalidMonth         = errors.New("invalid month")
	ErrInvalidYear          = errors.New("invalid year")
	ErrInvalidLimit         = errors.New("invalid budget limit")
	ErrInvalidThreshold     = errors.New("invalid alert threshold")
	ErrNotFound             = errors.New("not found")
	ErrConflict             = errors.New("concurrent modification conflict")
)

// Transaction is a single ledger entry. OccurredAt is the economic
// date of the transaction, distinct from CreatedAt.
type Transaction struct {
	ID               int64
	Owner            string
	Kind             Kind
	Category         Category
	Amount           Money
	OccurredAt       time.Time
	PaymentMethod    PaymentMethod
	Description      string
	Tags             []string
	Notes            string
	Recurring        bool
	RecurrencePeriod RecurrencePeriod
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func (t Transaction) Validate() error {
	if strings.TrimSpace(t.Owner) == "" {
		return ErrEmptyOwner
	}
	if t.Kind != KindExpense && t.Kind != KindIncome {
		return ErrInvalidKind
	}
	if !t.Category.Valid() {
		return ErrUnknownCategory
	}
	if err := t.Amount.Validate(); err != nil {
		return err
	}
	if t.OccurredAt.IsZero() {
		return errors.New("occurred_at cannot be zero")
	}
	if len(strings.TrimSpace(t.Description)) == 0 {
		return ErrEmptyDescription
	}
	if len(t.Description) > 200 {
		return errors.New("description too long (max 200 characters)")
	}
	if len(t.Notes) > 500 {
		return errors.New("notes too long (max 500 characters)")
	}
	if t.PaymentMethod != "" && !t.PaymentMethod.Valid() {
		return ErrInvalidPaymentMethod
	}
	if t.Recurring && !t.RecurrencePeriod.Valid() {
		return ErrInvalidRecurrence
	}
	return nil
}

// Bucket returns the aggregation key the transaction falls into.
func (t Transaction) Bucket() BucketKey {
	at := t.OccurredAt.UTC()
	return BucketKey{
		Owner:    t.Owner,
		Category: t.Category,
		Month:    int(at.Month()),
		Year:     at.Year(),
	}
}

// BucketKey identifies one (owner, category, month, year) aggregate.
type BucketKey struct {
	Owner    string
	Category Category
	Month    int // 1-12
	Year     int
}

// Range returns the inclusive bounds of the bucket's month in UTC,
// [day 1 00:00:00, last day 23:59:59].
func (k BucketKey) Range() (time.Time, time.Time) {
	return MonthRange(k.Year, k.Month)
}

// MonthRange returns the inclusive bounds of a calendar month in UTC.
func MonthRange(year, month int) (time.Time, time.Time) {
	start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0).Add(-time.Second)
	return start, end
}
