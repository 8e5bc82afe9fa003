package services

import (
	"context"
	"log/slog"
	"time"

	"finledger/internal/core"
	"finledger/internal/storage"
)

const (
	defaultQueryLimit = 50
	maxQueryLimit     = 500
)

// TransactionInput is the write-side shape of a ledger entry.
type TransactionInput struct {
	Owner            string
	Kind             core.Kind
	Category         core.Category
	Amount           core.Money
	OccurredAt       time.Time
	PaymentMethod    core.PaymentMethod
	Description      string
	Tags             []string
	Notes            string
	Recurring        bool
	RecurrencePeriod core.RecurrencePeriod
}

// TransactionPatch holds optional amendments; nil fields keep the
// stored value.
type TransactionPatch struct {
	Kind             *core.Kind
	Category         *core.Category
	Amount           *core.Money
	OccurredAt       *time.Time
	PaymentMethod    *core.PaymentMethod
	Description      *string
	Tags             *[]string
	Notes            *string
	Recurring        *bool
	RecurrencePeriod *core.RecurrencePeriod
}

// QueryParams filters and pages a ledger listing.
type QueryParams struct {
	Owner    string
	Start    time.Time
	End      time.Time
	Category core.Category
	Kind     core.Kind
	Limit    int64
	Offset   int64
}

// LedgerService owns transaction writes and keeps every touched budget
// bucket consistent within the same database transaction as the ledger
// mutation itself.
type LedgerService struct {
	repo    *storage.SQLiteRepository
	budgets *BudgetService
}

func NewLedgerService(repo *storage.SQLiteRepository, budgets *BudgetService) *LedgerService {
	return &LedgerService{repo: repo, budgets: budgets}
}

// Record validates and persists a new ledger entry. A zero OccurredAt
// defaults to the current time. An expense entry additionally
// recomputes its bucket's budget and fires any alert transitions
// before the transaction commits; income entries never touch budgets.
func (s *LedgerService) Record(ctx context.Context, input TransactionInput) (core.Transaction, error) {
	if input.OccurredAt.IsZero() {
		input.OccurredAt = time.Now().UTC()
	}

	candidate := transactionFromInput(input)
	if err := candidate.Validate(); err != nil {
		return core.Transaction{}, err
	}

	params := storage.CreateTransactionParams{
		Owner:            input.Owner,
		Kind:             input.Kind,
		Category:         input.Category,
		AmountCents:      input.Amount.Cents,
		OccurredAt:       input.OccurredAt,
		PaymentMethod:    input.PaymentMethod,
		Description:      input.Description,
		Tags:             input.Tags,
		Notes:            input.Notes,
		Recurring:        input.Recurring,
		RecurrencePeriod: input.RecurrencePeriod,
	}

	var (
		created core.Transaction
		alerts  []core.Alert
	)
	if input.Kind == core.KindExpense {
		key := candidate.Bucket()
		unlock := s.budgets.locks.lock(key)
		defer unlock()

		err := s.repo.InTx(ctx, func(q *storage.Queries) error {
			var err error
			created, err = q.CreateTransaction(ctx, params)
			if err != nil {
				return err
			}
			alerts, err = s.budgets.reconcileBucketInTx(ctx, q, key)
			return err
		})
		if err != nil {
			return core.Transaction{}, err
		}
	} else {
		var err error
		created, err = s.repo.CreateTransaction(ctx, params)
		if err != nil {
			return core.Transaction{}, err
		}
	}

	s.budgets.engine.Notify(ctx, alerts)
	slog.InfoContext(ctx, "Transaction recorded",
		"transaction_id", created.ID,
		"owner", created.Owner,
		"kind", created.Kind,
		"category", created.Category,
		"amount_cents", created.Amount.Cents)
	return created, nil
}

// Amend applies a partial update to an existing entry. Both the bucket
// the entry leaves and the bucket it enters are recomputed in the same
// transaction, so moving an expense across categories or months never
// leaves either aggregate stale.
func (s *LedgerService) Amend(ctx context.Context, id int64, owner string, patch TransactionPatch) (core.Transaction, error) {
	existing, err := s.repo.GetTransaction(ctx, id, owner)
	if err != nil {
		return core.Transaction{}, err
	}

	amended := applyPatch(existing, patch)
	if err := amended.Validate(); err != nil {
		return core.Transaction{}, err
	}

	keys := affectedBuckets(existing, amended)
	unlock := s.budgets.locks.lockAll(keys)
	defer unlock()

	var (
		updated core.Transaction
		alerts  []core.Alert
	)
	err = s.repo.InTx(ctx, func(q *storage.Queries) error {
		var err error
		updated, err = q.UpdateTransaction(ctx, storage.UpdateTransactionParams{
			ID:               id,
			Owner:            owner,
			Kind:             amended.Kind,
			Category:         amended.Category,
			AmountCents:      amended.Amount.Cents,
			OccurredAt:       amended.OccurredAt,
			PaymentMethod:    amended.PaymentMethod,
			Description:      amended.Description,
			Tags:             amended.Tags,
			Notes:            amended.Notes,
			Recurring:        amended.Recurring,
			RecurrencePeriod: amended.RecurrencePeriod,
		})
		if err != nil {
			return err
		}
		for _, key := range keys {
			bucketAlerts, err := s.budgets.reconcileBucketInTx(ctx, q, key)
			if err != nil {
				return err
			}
			alerts = append(alerts, bucketAlerts...)
		}
		return nil
	})
	if err != nil {
		return core.Transaction{}, err
	}

	s.budgets.engine.Notify(ctx, alerts)
	slog.InfoContext(ctx, "Transaction amended",
		"transaction_id", updated.ID,
		"owner", owner,
		"category", updated.Category,
		"amount_cents", updated.Amount.Cents)
	return updated, nil
}

// Retract deletes an entry and re-derives its bucket's budget. The
// aggregate shrinks, but previously fired alerts stay; the engine only
// reacts to upward crossings.
func (s *LedgerService) Retract(ctx context.Context, id int64, owner string) error {
	existing, err := s.repo.GetTransaction(ctx, id, owner)
	if err != nil {
		return err
	}

	if existing.Kind != core.KindExpense {
		if err := s.repo.DeleteTransaction(ctx, id, owner); err != nil {
			return err
		}
	} else {
		key := existing.Bucket()
		unlock := s.budgets.locks.lock(key)
		defer unlock()

		err = s.repo.InTx(ctx, func(q *storage.Queries) error {
			if err := q.DeleteTransaction(ctx, id, owner); err != nil {
				return err
			}
			_, err := s.budgets.reconcileBucketInTx(ctx, q, key)
			return err
		})
		if err != nil {
			return err
		}
	}

	slog.InfoContext(ctx, "Transaction retracted",
		"transaction_id", id,
		"owner", owner,
		"category", existing.Category)
	return nil
}

func (s *LedgerService) Get(ctx context.Context, id int64, owner string) (core.Transaction, error) {
	return s.repo.GetTransaction(ctx, id, owner)
}

// Query lists entries newest first. The limit defaults and is capped
// so a single call cannot drag the whole ledger through memory.
func (s *LedgerService) Query(ctx context.Context, params QueryParams) ([]core.Transaction, error) {
	if params.Owner == "" {
		return nil, core.ErrEmptyOwner
	}
	if params.Category != "" && !params.Category.Valid() {
		return nil, core.ErrUnknownCategory
	}
	limit := params.Limit
	if limit <= 0 {
		limit = defaultQueryLimit
	}
	if limit > maxQueryLimit {
		limit = maxQueryLimit
	}
	offset := params.Offset
	if offset < 0 {
		offset = 0
	}

	return s.repo.ListTransactions(ctx, storage.ListTransactionsParams{
		Owner:    params.Owner,
		Start:    params.Start,
		End:      params.End,
		Category: params.Category,
		Kind:     params.Kind,
		Limit:    limit,
		Offset:   offset,
	})
}

// SumByDateRange totals one kind of entry over an inclusive range.
func (s *LedgerService) SumByDateRange(ctx context.Context, owner string, kind core.Kind, start, end time.Time) (core.RangeTotal, error) {
	if owner == "" {
		return core.RangeTotal{}, core.ErrEmptyOwner
	}
	if kind != core.KindExpense && kind != core.KindIncome {
		return core.RangeTotal{}, core.ErrInvalidKind
	}
	return s.repo.SumTransactionsInRange(ctx, owner, kind, start, end)
}

// SumByCategory breaks down expenses per category over a range.
func (s *LedgerService) SumByCategory(ctx context.Context, owner string, start, end time.Time) ([]core.CategoryTotal, error) {
	if owner == "" {
		return nil, core.ErrEmptyOwner
	}
	return s.repo.SumExpensesByCategory(ctx, owner, start, end)
}

func transactionFromInput(input TransactionInput) core.Transaction {
	return core.Transaction{
		Owner:            input.Owner,
		Kind:             input.Kind,
		Category:         input.Category,
		Amount:           input.Amount,
		OccurredAt:       input.OccurredAt,
		PaymentMethod:    input.PaymentMethod,
		Description:      input.Description,
		Tags:             input.Tags,
		Notes:            input.Notes,
		Recurring:        input.Recurring,
		RecurrencePeriod: input.RecurrencePeriod,
	}
}

func applyPatch(t core.Transaction, patch TransactionPatch) core.Transaction {
	if patch.Kind != nil {
		t.Kind = *patch.Kind
	}
	if patch.Category != nil {
		t.Category = *patch.Category
	}
	if patch.Amount != nil {
		t.Amount = *patch.Amount
	}
	if patch.OccurredAt != nil {
		t.OccurredAt = *patch.OccurredAt
	}
	if patch.PaymentMethod != nil {
		t.PaymentMethod = *patch.PaymentMethod
	}
	if patch.Description != nil {
		t.Description = *patch.Description
	}
	if patch.Tags != nil {
		t.Tags = *patch.Tags
	}
	if patch.Notes != nil {
		t.Notes = *patch.Notes
	}
	if patch.Recurring != nil {
		t.Recurring = *patch.Recurring
	}
	if patch.RecurrencePeriod != nil {
		t.RecurrencePeriod = *patch.RecurrencePeriod
	}
	return t
}

// affectedBuckets returns the buckets whose aggregates an amendment can
// change: the one the entry leaves and the one it enters, deduplicated,
// counting only expense sides.
func affectedBuckets(before, after core.Transaction) []core.BucketKey {
	var keys []core.BucketKey
	if before.Kind == core.KindExpense {
		keys = append(keys, before.Bucket())
	}
	if after.Kind == core.KindExpense {
		key := after.Bucket()
		if len(keys) == 0 || keys[0] != key {
			keys = append(keys, key)
		}
	}
	return keys
}
