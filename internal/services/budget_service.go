package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"finledger/internal/core"
	"finledger/internal/storage"
)

func isNotFound(err error) bool {
	return errors.Is(err, core.ErrNotFound)
}

// SetLimitInput carries everything needed to create or rewrite the
// budget for one bucket. A zero AlertThreshold selects the service
// default.
type SetLimitInput struct {
	Owner          string
	Category       core.Category
	Month          int
	Year           int
	Limit          core.Money
	AlertThreshold int
}

// BudgetService maintains the per-bucket spending ceilings and keeps
// their derived aggregates consistent with the ledger.
type BudgetService struct {
	repo             *storage.SQLiteRepository
	engine           *AlertEngine
	locks            *bucketLocks
	defaultThreshold int
}

func NewBudgetService(repo *storage.SQLiteRepository, engine *AlertEngine, defaultThreshold int) *BudgetService {
	if core.ValidateThreshold(defaultThreshold) != nil {
		defaultThreshold = core.DefaultAlertThreshold
	}
	return &BudgetService{
		repo:             repo,
		engine:           engine,
		locks:            newBucketLocks(),
		defaultThreshold: defaultThreshold,
	}
}

// SetLimit creates the budget for a bucket or rewrites its terms.
// Rewriting resets the warning suppression, so a budget that was
// already past its threshold warns again on the next recompute. The
// spent aggregate is recomputed from the ledger in the same
// transaction; alerts are deliberately not evaluated here, the next
// ledger write or sweep pass picks the new terms up.
func (s *BudgetService) SetLimit(ctx context.Context, input SetLimitInput) (core.Budget, error) {
	if strings.TrimSpace(input.Owner) == "" {
		return core.Budget{}, core.ErrEmptyOwner
	}
	if !input.Category.Valid() {
		return core.Budget{}, fmt.Errorf("category %q: %w", input.Category, core.ErrUnknownCategory)
	}
	if err := core.ValidatePeriod(input.Year, input.Month); err != nil {
		return core.Budget{}, err
	}
	if err := input.Limit.Validate(); err != nil {
		return core.Budget{}, fmt.Errorf("%w: %v", core.ErrInvalidLimit, err)
	}
	threshold := input.AlertThreshold
	if threshold == 0 {
		threshold = s.defaultThreshold
	}
	if err := core.ValidateThreshold(threshold); err != nil {
		return core.Budget{}, err
	}

	key := core.BucketKey{Owner: input.Owner, Category: input.Category, Month: input.Month, Year: input.Year}
	unlock := s.locks.lock(key)
	defer unlock()

	var budget core.Budget
	err := s.repo.InTx(ctx, func(q *storage.Queries) error {
		existing, err := q.GetBudgetByKey(ctx, key)
		switch {
		case err == nil:
			budget, err = q.UpdateBudgetTerms(ctx, existing.ID, input.Limit.Cents, threshold)
			if err != nil {
				return err
			}
		case isNotFound(err):
			budget, err = q.CreateBudget(ctx, storage.CreateBudgetParams{
				Owner:          input.Owner,
				Category:       input.Category,
				Month:          input.Month,
				Year:           input.Year,
				LimitCents:     input.Limit.Cents,
				AlertThreshold: threshold,
			})
			if err != nil {
				return err
			}
		default:
			return err
		}

		budget, _, err = s.recomputeInTx(ctx, q, budget)
		return err
	})
	if err != nil {
		return core.Budget{}, err
	}

	slog.InfoContext(ctx, "Budget limit set",
		"owner", budget.Owner,
		"category", budget.Category,
		"month", budget.Month,
		"year", budget.Year,
		"limit_cents", budget.Limit.Cents,
		"threshold", budget.AlertThreshold)
	return budget, nil
}

// recomputeInTx replaces the budget's spent aggregate with the full
// expense sum of its bucket and returns the refreshed budget along
// with the spent value it held before.
func (s *BudgetService) recomputeInTx(ctx context.Context, q *storage.Queries, b core.Budget) (core.Budget, core.Money, error) {
	previous := b.Spent
	cents, err := q.SumBucketExpenses(ctx, b.Key())
	if err != nil {
		return core.Budget{}, core.Money{}, fmt.Errorf("sum bucket expenses: %w", err)
	}
	if cents != previous.Cents {
		if err := q.UpdateBudgetSpent(ctx, b.ID, cents); err != nil {
			return core.Budget{}, core.Money{}, fmt.Errorf("update spent: %w", err)
		}
	}
	b.Spent = core.NewMoneyFromCents(cents)
	return b, previous, nil
}

// reconcileBucketInTx recomputes the bucket's budget (if one exists),
// evaluates alert transitions, and persists any resulting alerts, all
// inside the caller's transaction. It returns the alerts for post-commit
// notification. Buckets without a budget are a no-op.
func (s *BudgetService) reconcileBucketInTx(ctx context.Context, q *storage.Queries, key core.BucketKey) ([]core.Alert, error) {
	budget, err := q.GetBudgetByKey(ctx, key)
	if isNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	budget, previous, err := s.recomputeInTx(ctx, q, budget)
	if err != nil {
		return nil, err
	}
	intents := s.engine.Evaluate(budget, previous)
	return s.engine.Apply(ctx, q, budget, intents)
}

// RecomputeBucket re-derives one bucket's aggregate from the ledger and
// fires any alert transitions the refreshed state implies. It is safe
// to call at any time; a bucket that is already consistent produces no
// writes and no alerts.
func (s *BudgetService) RecomputeBucket(ctx context.Context, key core.BucketKey) error {
	unlock := s.locks.lock(key)
	defer unlock()

	var alerts []core.Alert
	err := s.repo.InTx(ctx, func(q *storage.Queries) error {
		var err error
		alerts, err = s.reconcileBucketInTx(ctx, q, key)
		return err
	})
	if err != nil {
		return err
	}
	s.engine.Notify(ctx, alerts)
	return nil
}

// Get returns one budget with a freshly derived spent aggregate, so a
// read never serves a stale number even if a recompute was missed.
func (s *BudgetService) Get(ctx context.Context, id int64, owner string) (core.Budget, error) {
	budget, err := s.repo.GetBudget(ctx, id, owner)
	if err != nil {
		return core.Budget{}, err
	}
	return s.refresh(ctx, budget)
}

// ListForMonth returns the owner's budgets for one period, each with a
// freshly derived spent aggregate.
func (s *BudgetService) ListForMonth(ctx context.Context, owner string, month, year int) ([]core.Budget, error) {
	if strings.TrimSpace(owner) == "" {
		return nil, core.ErrEmptyOwner
	}
	if err := core.ValidatePeriod(year, month); err != nil {
		return nil, err
	}

	budgets, err := s.repo.ListBudgets(ctx, owner, month, year)
	if err != nil {
		return nil, err
	}
	for i, b := range budgets {
		budgets[i], err = s.refresh(ctx, b)
		if err != nil {
			return nil, err
		}
	}
	return budgets, nil
}

// refresh re-derives the spent aggregate for a read path. Unlike
// RecomputeBucket it does not evaluate alerts; reads stay side-effect
// free apart from healing a stale stored number.
func (s *BudgetService) refresh(ctx context.Context, b core.Budget) (core.Budget, error) {
	unlock := s.locks.lock(b.Key())
	defer unlock()

	var refreshed core.Budget
	err := s.repo.InTx(ctx, func(q *storage.Queries) error {
		var err error
		refreshed, _, err = s.recomputeInTx(ctx, q, b)
		return err
	})
	if err != nil {
		return core.Budget{}, err
	}
	return refreshed, nil
}

func (s *BudgetService) Delete(ctx context.Context, id int64, owner string) error {
	budget, err := s.repo.GetBudget(ctx, id, owner)
	if err != nil {
		return err
	}

	unlock := s.locks.lock(budget.Key())
	defer unlock()

	if err := s.repo.DeleteBudget(ctx, id, owner); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Budget deleted",
		"owner", owner,
		"category", budget.Category,
		"month", budget.Month,
		"year", budget.Year)
	return nil
}

// Summary rolls the owner's budgets for one period into a single
// overview row.
func (s *BudgetService) Summary(ctx context.Context, owner string, month, year int) (core.BudgetSummary, error) {
	budgets, err := s.ListForMonth(ctx, owner, month, year)
	if err != nil {
		return core.BudgetSummary{}, err
	}

	var summary core.BudgetSummary
	summary.TotalBudgets = len(budgets)
	for _, b := range budgets {
		summary.TotalLimit = summary.TotalLimit.Add(b.Limit)
		summary.TotalSpent = summary.TotalSpent.Add(b.Spent)
		switch b.Status() {
		case core.StatusExceeded:
			summary.ExceededCount++
		case core.StatusWarning:
			summary.WarningCount++
		default:
			summary.HealthyCount++
		}
	}
	total := core.Budget{Limit: summary.TotalLimit, Spent: summary.TotalSpent}
	summary.Remaining = total.Remaining()
	summary.Percentage = total.Percentage()
	return summary, nil
}
