package core

// RangeTotal is the aggregate of matching ledger rows over a date
// range. Zero-valued when nothing matches, never absent.
type RangeTotal struct {
	Total Money
	Count int64
}

// CategoryTotal is an amount aggregated per category.
type CategoryTotal struct {
	Category Category
	Total    Money
	Count    int64
}

// MonthlyTotal is one point of a month-over-month trend, split by kind.
type MonthlyTotal struct {
	Year  int
	Month int // 1-12
	Kind  Kind
	Total Money
	Count int64
}

// DailyTotal is the expense aggregate for one day of a month.
type DailyTotal struct {
	Day   int
	Total Money
	Count int64
}

// BudgetSummary rolls up all budgets of one (owner, month, year).
type BudgetSummary struct {
	TotalBudgets  int
	TotalLimit    Money
	TotalSpent    Money
	Remaining     Money
	Percentage    int
	ExceededCount int
	WarningCount  int
	HealthyCount  int
}
