package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"finledger/internal/core"
	"finledger/internal/storage"
)

const defaultSweepConcurrency = 4

// SweepService is the scheduled reconciliation pass. It re-derives
// every budget of the current period from the ledger so that aggregates
// drifting out of band (manual edits, missed recomputes, restored
// backups) converge back to the ledger's truth, and it fires whatever
// alert transitions the corrected state implies.
type SweepService struct {
	repo        *storage.SQLiteRepository
	budgets     *BudgetService
	engine      *AlertEngine
	concurrency int
}

func NewSweepService(repo *storage.SQLiteRepository, budgets *BudgetService, engine *AlertEngine, concurrency int) *SweepService {
	if concurrency < 1 {
		concurrency = defaultSweepConcurrency
	}
	return &SweepService{
		repo:        repo,
		budgets:     budgets,
		engine:      engine,
		concurrency: concurrency,
	}
}

// RunOnce sweeps all budgets of the month containing now. Buckets are
// processed with bounded parallelism; one failing bucket is logged and
// skipped rather than aborting the pass. Running the sweep twice in a
// row is a no-op the second time: aggregates are already consistent and
// the engine fires on transitions only.
func (s *SweepService) RunOnce(ctx context.Context, now time.Time) error {
	now = now.UTC()
	month, year := int(now.Month()), now.Year()

	budgets, err := s.repo.ListBudgetsForPeriod(ctx, month, year)
	if err != nil {
		return fmt.Errorf("list budgets for period: %w", err)
	}
	if len(budgets) == 0 {
		return nil
	}

	var failed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for _, b := range budgets {
		key := b.Key()
		g.Go(func() error {
			if err := s.budgets.RecomputeBucket(gctx, key); err != nil {
				failed.Add(1)
				slog.ErrorContext(gctx, "Sweep bucket failed",
					"owner", key.Owner,
					"category", key.Category,
					"month", key.Month,
					"year", key.Year,
					"error", err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	slog.InfoContext(ctx, "Sweep completed",
		"month", month,
		"year", year,
		"buckets", len(budgets),
		"failed", failed.Load())
	if n := failed.Load(); n > 0 {
		return fmt.Errorf("sweep: %d of %d buckets failed", n, len(budgets))
	}
	return nil
}

// MonthlyReports generates one monthly_report alert per owner who had
// any ledger activity in the month preceding now. The alert store
// itself provides idempotence: an owner who already received a report
// since that month ended is skipped, so re-running the job after a
// crash never duplicates reports.
func (s *SweepService) MonthlyReports(ctx context.Context, now time.Time) error {
	// Step back from the first of the current month. AddDate on now
	// itself normalizes on short months (May 31 minus one month lands
	// back in May), which would report on the still-open period.
	now = now.UTC()
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	prev := first.AddDate(0, -1, 0)
	start, end := core.MonthRange(prev.Year(), int(prev.Month()))

	owners, err := s.repo.DistinctOwnersInRange(ctx, start, end)
	if err != nil {
		return fmt.Errorf("list active owners: %w", err)
	}

	var generated int
	for _, owner := range owners {
		existing, err := s.repo.CountAlertsOfTypeSince(ctx, owner, core.AlertMonthlyReport, end)
		if err != nil {
			return fmt.Errorf("check existing report for %s: %w", owner, err)
		}
		if existing > 0 {
			continue
		}

		alert, err := s.generateReport(ctx, owner, start, end)
		if err != nil {
			slog.ErrorContext(ctx, "Monthly report failed", "owner", owner, "error", err)
			continue
		}
		s.engine.Notify(ctx, []core.Alert{alert})
		generated++
	}

	slog.InfoContext(ctx, "Monthly reports generated",
		"period", start.Format("2006-01"),
		"owners", len(owners),
		"generated", generated)
	return nil
}

func (s *SweepService) generateReport(ctx context.Context, owner string, start, end time.Time) (core.Alert, error) {
	income, err := s.repo.SumTransactionsInRange(ctx, owner, core.KindIncome, start, end)
	if err != nil {
		return core.Alert{}, err
	}
	expense, err := s.repo.SumTransactionsInRange(ctx, owner, core.KindExpense, start, end)
	if err != nil {
		return core.Alert{}, err
	}

	saved := income.Total.Sub(expense.Total)
	rate := int64(0)
	if income.Total.Cents > 0 {
		rate = saved.Decimal().
			Div(income.Total.Decimal()).
			Mul(decimal.NewFromInt(100)).
			Round(0).IntPart()
	}

	severity := core.SeverityInfo
	if saved.Cents < 0 {
		severity = core.SeverityWarning
	}

	monthName := start.Format("January 2006")
	message := fmt.Sprintf("In %s you earned %s, spent %s, and saved %s (%d%% savings rate)",
		monthName, income.Total, expense.Total, saved, rate)
	return s.repo.CreateAlert(ctx, storage.CreateAlertParams{
		Owner:    owner,
		Type:     core.AlertMonthlyReport,
		Title:    fmt.Sprintf("Monthly Report: %s", monthName),
		Message:  message,
		Severity: severity,
		Metadata: map[string]any{
			"period":        start.Format("2006-01"),
			"income":        income.Total.String(),
			"expense":       expense.Total.String(),
			"saved":         saved.String(),
			"savings_rate":  rate,
			"income_count":  income.Count,
			"expense_count": expense.Count,
		},
	})
}
