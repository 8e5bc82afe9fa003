package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finledger/internal/core"
	"finledger/internal/storage"
)

func TestSweepCatchesOutOfBandDrift(t *testing.T) {
	s := newTestStack(t)
	ctx := context.Background()

	budget := setLimit(t, s, "alice", core.CategoryFoodDining, "100.00")

	// Ledger rows written without going through the service
	_, err := s.repo.CreateTransaction(ctx, storage.CreateTransactionParams{
		Owner:       "alice",
		Kind:        core.KindExpense,
		Category:    core.CategoryFoodDining,
		AmountCents: 9000,
		OccurredAt:  march,
		Description: "imported",
	})
	require.NoError(t, err)

	require.NoError(t, s.sweep.RunOnce(ctx, march))

	got, err := s.repo.GetBudget(ctx, budget.ID, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(9000), got.Spent.Cents)

	alerts := listAlerts(t, s.repo, "alice")
	require.Len(t, alerts, 1)
	assert.Equal(t, core.AlertBudgetWarning, alerts[0].Type)
}

func TestSweepIsIdempotent(t *testing.T) {
	s := newTestStack(t)
	ctx := context.Background()

	_ = setLimit(t, s, "alice", core.CategoryRent, "100.00")
	_ = setLimit(t, s, "bob", core.CategoryRent, "50.00")

	_, err := s.ledger.Record(ctx, expenseInput("alice", core.CategoryRent, "120.00", march))
	require.NoError(t, err)
	_, err = s.ledger.Record(ctx, expenseInput("bob", core.CategoryRent, "10.00", march))
	require.NoError(t, err)

	// Alice is past threshold and limit already
	require.Len(t, listAlerts(t, s.repo, "alice"), 2)

	require.NoError(t, s.sweep.RunOnce(ctx, march))
	require.NoError(t, s.sweep.RunOnce(ctx, march))

	assert.Len(t, listAlerts(t, s.repo, "alice"), 2)
	assert.Empty(t, listAlerts(t, s.repo, "bob"))
}

func TestSweepIgnoresOtherMonths(t *testing.T) {
	s := newTestStack(t)
	ctx := context.Background()

	budget := setLimit(t, s, "alice", core.CategoryShopping, "100.00")
	_, err := s.repo.CreateTransaction(ctx, storage.CreateTransactionParams{
		Owner:       "alice",
		Kind:        core.KindExpense,
		Category:    core.CategoryShopping,
		AmountCents: 9500,
		OccurredAt:  march,
		Description: "imported",
	})
	require.NoError(t, err)

	// Sweeping a different month leaves the march bucket untouched
	require.NoError(t, s.sweep.RunOnce(ctx, march.AddDate(0, 2, 0)))

	got, err := s.repo.GetBudget(ctx, budget.ID, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(0), got.Spent.Cents)
}

func TestMonthlyReports(t *testing.T) {
	s := newTestStack(t)
	ctx := context.Background()

	income := expenseInput("alice", core.CategorySalary, "2000.00", march)
	income.Kind = core.KindIncome
	_, err := s.ledger.Record(ctx, income)
	require.NoError(t, err)
	_, err = s.ledger.Record(ctx, expenseInput("alice", core.CategoryFoodDining, "500.00", march))
	require.NoError(t, err)

	// Run on April 1st for the March period
	april := time.Date(2025, time.April, 1, 6, 0, 0, 0, time.UTC)
	require.NoError(t, s.sweep.MonthlyReports(ctx, april))

	alerts := listAlerts(t, s.repo, "alice")
	require.Len(t, alerts, 1)
	report := alerts[0]
	assert.Equal(t, core.AlertMonthlyReport, report.Type)
	assert.Equal(t, core.SeverityInfo, report.Severity)
	assert.Contains(t, report.Message, "2000.00")
	assert.Contains(t, report.Message, "500.00")
	assert.Contains(t, report.Message, "1500.00")
	assert.Contains(t, report.Message, "75%")
	assert.Equal(t, "2025-03", report.Metadata["period"])

	// Re-running never duplicates the report
	require.NoError(t, s.sweep.MonthlyReports(ctx, april))
	assert.Len(t, listAlerts(t, s.repo, "alice"), 1)
}

func TestMonthlyReportsOnMonthEndDay(t *testing.T) {
	s := newTestStack(t)
	ctx := context.Background()

	income := expenseInput("carol", core.CategorySalary, "1000.00", time.Date(2025, time.May, 15, 9, 0, 0, 0, time.UTC))
	income.Kind = core.KindIncome
	_, err := s.ledger.Record(ctx, income)
	require.NoError(t, err)

	// Running on the 31st must not report on the still-open month:
	// stepping back a month must land in April, not normalize to May.
	mayEnd := time.Date(2025, time.May, 31, 6, 0, 0, 0, time.UTC)
	require.NoError(t, s.sweep.MonthlyReports(ctx, mayEnd))
	assert.Empty(t, listAlerts(t, s.repo, "carol"))

	// The May report arrives on the 1st of June as usual
	june := time.Date(2025, time.June, 1, 6, 0, 0, 0, time.UTC)
	require.NoError(t, s.sweep.MonthlyReports(ctx, june))
	alerts := listAlerts(t, s.repo, "carol")
	require.Len(t, alerts, 1)
	assert.Equal(t, "2025-05", alerts[0].Metadata["period"])
}

func TestMonthlyReportOverspend(t *testing.T) {
	s := newTestStack(t)
	ctx := context.Background()

	income := expenseInput("bob", core.CategoryFreelance, "100.00", march)
	income.Kind = core.KindIncome
	_, err := s.ledger.Record(ctx, income)
	require.NoError(t, err)
	_, err = s.ledger.Record(ctx, expenseInput("bob", core.CategoryTravel, "250.00", march))
	require.NoError(t, err)

	april := time.Date(2025, time.April, 1, 6, 0, 0, 0, time.UTC)
	require.NoError(t, s.sweep.MonthlyReports(ctx, april))

	alerts := listAlerts(t, s.repo, "bob")
	require.Len(t, alerts, 1)
	assert.Equal(t, core.SeverityWarning, alerts[0].Severity)
	assert.Contains(t, alerts[0].Message, "-150.00")
}
