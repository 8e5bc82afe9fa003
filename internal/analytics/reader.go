// Package analytics exposes read-only aggregate views over the ledger.
// Nothing here mutates state; every query delegates the arithmetic to
// SQL over stored integer cents, so results are exact.
package analytics

import (
	"context"
	"time"

	"finledger/internal/core"
	"finledger/internal/storage"
)

const defaultRecentLimit = 10

type Reader struct {
	repo *storage.SQLiteRepository
}

func NewReader(repo *storage.SQLiteRepository) *Reader {
	return &Reader{repo: repo}
}

// CategoryBreakdown returns per-category expense totals for a range,
// largest first. Categories with no expenses are omitted.
func (r *Reader) CategoryBreakdown(ctx context.Context, owner string, start, end time.Time) ([]core.CategoryTotal, error) {
	if owner == "" {
		return nil, core.ErrEmptyOwner
	}
	return r.repo.SumExpensesByCategory(ctx, owner, start, end)
}

// MonthlyTrend returns month-by-month totals split by kind, covering
// the given number of months up to and including the month of now.
func (r *Reader) MonthlyTrend(ctx context.Context, owner string, months int, now time.Time) ([]core.MonthlyTotal, error) {
	if owner == "" {
		return nil, core.ErrEmptyOwner
	}
	if months < 1 {
		months = 6
	}
	now = now.UTC()
	since := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).
		AddDate(0, -(months - 1), 0)
	return r.repo.MonthlyTotals(ctx, owner, since)
}

// DailyTotals returns the day-by-day expense profile of one month.
// Days without expenses are omitted.
func (r *Reader) DailyTotals(ctx context.Context, owner string, year, month int) ([]core.DailyTotal, error) {
	if owner == "" {
		return nil, core.ErrEmptyOwner
	}
	if err := core.ValidatePeriod(year, month); err != nil {
		return nil, err
	}
	return r.repo.DailyExpenseTotals(ctx, owner, year, month)
}

// Recent returns the owner's latest entries, newest first.
func (r *Reader) Recent(ctx context.Context, owner string, limit int64) ([]core.Transaction, error) {
	if owner == "" {
		return nil, core.ErrEmptyOwner
	}
	if limit <= 0 {
		limit = defaultRecentLimit
	}
	return r.repo.ListTransactions(ctx, storage.ListTransactionsParams{
		Owner: owner,
		Limit: limit,
	})
}
