package services

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"finledger/internal/core"
	"finledger/internal/storage"
)

func newTestRepo(t *testing.T) *storage.SQLiteRepository {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

type testStack struct {
	repo    *storage.SQLiteRepository
	engine  *AlertEngine
	budgets *BudgetService
	ledger  *LedgerService
	sweep   *SweepService
}

func newTestStack(t *testing.T) *testStack {
	t.Helper()
	repo := newTestRepo(t)
	engine := NewAlertEngine(nil)
	budgets := NewBudgetService(repo, engine, core.DefaultAlertThreshold)
	return &testStack{
		repo:    repo,
		engine:  engine,
		budgets: budgets,
		ledger:  NewLedgerService(repo, budgets),
		sweep:   NewSweepService(repo, budgets, engine, 2),
	}
}

func expenseInput(owner string, category core.Category, amount string, at time.Time) TransactionInput {
	money, err := core.ParseMoney(amount)
	if err != nil {
		panic(err)
	}
	return TransactionInput{
		Owner:       owner,
		Kind:        core.KindExpense,
		Category:    category,
		Amount:      money,
		OccurredAt:  at,
		Description: "test expense",
	}
}

func mustMoney(t *testing.T, s string) core.Money {
	t.Helper()
	m, err := core.ParseMoney(s)
	require.NoError(t, err)
	return m
}

func listAlerts(t *testing.T, repo *storage.SQLiteRepository, owner string) []core.Alert {
	t.Helper()
	alerts, err := repo.ListAlerts(context.Background(), storage.ListAlertsParams{Owner: owner})
	require.NoError(t, err)
	return alerts
}
