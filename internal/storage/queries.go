package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"finledger/internal/core"
)

// timeLayout is the canonical storage format for timestamps: RFC 3339
// in UTC, so lexicographic range comparisons in SQL match chronological
// order and sqlite date functions keep working.
const timeLayout = time.RFC3339

func fmtTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func joinTags(tags []string) string {
	return strings.Join(tags, ",")
}

func splitTags(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}

// DBTX is satisfied by both *sql.DB and *sql.Tx so every query can run
// inside or outside a transaction.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

// WithTx returns queries bound to the given transaction.
func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// ---- transactions ----

type rowScanner interface {
	Scan(dest ...any) error
}

const transactionColumns = `id, owner, kind, category, amount_cents, occurred_at,
	payment_method, description, tags, notes, recurring, recurrence_period,
	created_at, updated_at`

func scanTransaction(row rowScanner) (core.Transaction, error) {
	var (
		t                     core.Transaction
		occurredAt, createdAt string
		updatedAt, tags       string
		amountCents           int64
	)
	err := row.Scan(&t.ID, &t.Owner, &t.Kind, &t.Category, &amountCents, &occurredAt,
		&t.PaymentMethod, &t.Description, &tags, &t.Notes, &t.Recurring, &t.RecurrencePeriod,
		&createdAt, &updatedAt)
	if err != nil {
		return core.Transaction{}, err
	}
	t.Amount = core.NewMoneyFromCents(amountCents)
	t.OccurredAt = parseTime(occurredAt)
	t.Tags = splitTags(tags)
	t.CreatedAt = parseTime(createdAt)
	t.UpdatedAt = parseTime(updatedAt)
	return t, nil
}

type CreateTransactionParams struct {
	Owner            string
	Kind             core.Kind
	Category         core.Category
	AmountCents      int64
	OccurredAt       time.Time
	PaymentMethod    core.PaymentMethod
	Description      string
	Tags             []string
	Notes            string
	Recurring        bool
	RecurrencePeriod core.RecurrencePeriod
}

func (q *Queries) CreateTransaction(ctx context.Context, arg CreateTransactionParams) (core.Transaction, error) {
	now := fmtTime(time.Now())
	row := q.db.QueryRowContext(ctx, `
		INSERT INTO transactions (owner, kind, category, amount_cents, occurred_at,
			payment_method, description, tags, notes, recurring, recurrence_period,
			created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING `+transactionColumns,
		arg.Owner, arg.Kind, arg.Category, arg.AmountCents, fmtTime(arg.OccurredAt),
		arg.PaymentMethod, arg.Description, joinTags(arg.Tags), arg.Notes,
		arg.Recurring, arg.RecurrencePeriod, now, now)
	return scanTransaction(row)
}

func (q *Queries) GetTransaction(ctx context.Context, id int64, owner string) (core.Transaction, error) {
	row := q.db.QueryRowContext(ctx, `
		SELECT `+transactionColumns+` FROM transactions WHERE id = ? AND owner = ?`,
		id, owner)
	t, err := scanTransaction(row)
	if err == sql.ErrNoRows {
		return core.Transaction{}, fmt.Errorf("transaction %d: %w", id, core.ErrNotFound)
	}
	return t, err
}

type UpdateTransactionParams struct {
	ID               int64
	Owner            string
	Kind             core.Kind
	Category         core.Category
	AmountCents      int64
	OccurredAt       time.Time
	PaymentMethod    core.PaymentMethod
	Description      string
	Tags             []string
	Notes            string
	Recurring        bool
	RecurrencePeriod core.RecurrencePeriod
}

func (q *Queries) UpdateTransaction(ctx context.Context, arg UpdateTransactionParams) (core.Transaction, error) {
	row := q.db.QueryRowContext(ctx, `
		UPDATE transactions
		SET kind = ?, category = ?, amount_cents = ?, occurred_at = ?,
			payment_method = ?, description = ?, tags = ?, notes = ?,
			recurring = ?, recurrence_period = ?, updated_at = ?
		WHERE id = ? AND owner = ?
		RETURNING `+transactionColumns,
		arg.Kind, arg.Category, arg.AmountCents, fmtTime(arg.OccurredAt),
		arg.PaymentMethod, arg.Description, joinTags(arg.Tags), arg.Notes,
		arg.Recurring, arg.RecurrencePeriod, fmtTime(time.Now()),
		arg.ID, arg.Owner)
	t, err := scanTransaction(row)
	if err == sql.ErrNoRows {
		return core.Transaction{}, fmt.Errorf("transaction %d: %w", arg.ID, core.ErrNotFound)
	}
	return t, err
}

func (q *Queries) DeleteTransaction(ctx context.Context, id int64, owner string) error {
	res, err := q.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = ? AND owner = ?`, id, owner)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("transaction %d: %w", id, core.ErrNotFound)
	}
	return nil
}

type ListTransactionsParams struct {
	Owner    string
	Start    time.Time // zero means unbounded
	End      time.Time
	Category core.Category // empty means all
	Kind     core.Kind     // empty means all
	Limit    int64
	Offset   int64
}

// ListTransactions orders by occurred_at descending with id as a
// stable tie-break, so "most recent N" is deterministic.
func (q *Queries) ListTransactions(ctx context.Context, arg ListTransactionsParams) ([]core.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE owner = ?`
	args := []any{arg.Owner}
	if !arg.Start.IsZero() {
		query += ` AND occurred_at >= ?`
		args = append(args, fmtTime(arg.Start))
	}
	if !arg.End.IsZero() {
		query += ` AND occurred_at <= ?`
		args = append(args, fmtTime(arg.End))
	}
	if arg.Category != "" {
		query += ` AND category = ?`
		args = append(args, arg.Category)
	}
	if arg.Kind != "" {
		query += ` AND kind = ?`
		args = append(args, arg.Kind)
	}
	query += ` ORDER BY occurred_at DESC, id DESC`
	if arg.Limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, arg.Limit, arg.Offset)
	}

	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (q *Queries) SumTransactionsInRange(ctx context.Context, owner string, kind core.Kind, start, end time.Time) (core.RangeTotal, error) {
	var total core.RangeTotal
	var cents int64
	err := q.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(amount_cents), 0), COUNT(*)
		FROM transactions
		WHERE owner = ? AND kind = ? AND occurred_at >= ? AND occurred_at <= ?`,
		owner, kind, fmtTime(start), fmtTime(end)).Scan(&cents, &total.Count)
	if err != nil {
		return core.RangeTotal{}, err
	}
	total.Total = core.NewMoneyFromCents(cents)
	return total, nil
}

// SumExpensesByCategory aggregates expense rows only, ordered total
// descending with category name as the tie-break.
func (q *Queries) SumExpensesByCategory(ctx context.Context, owner string, start, end time.Time) ([]core.CategoryTotal, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT category, SUM(amount_cents), COUNT(*)
		FROM transactions
		WHERE owner = ? AND kind = 'expense' AND occurred_at >= ? AND occurred_at <= ?
		GROUP BY category
		ORDER BY SUM(amount_cents) DESC, category ASC`,
		owner, fmtTime(start), fmtTime(end))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []core.CategoryTotal
	for rows.Next() {
		var ct core.CategoryTotal
		var cents int64
		if err := rows.Scan(&ct.Category, &cents, &ct.Count); err != nil {
			return nil, err
		}
		ct.Total = core.NewMoneyFromCents(cents)
		out = append(out, ct)
	}
	return out, rows.Err()
}

// SumBucketExpenses is the authoritative aggregate behind budget
// recompute: the full sum of expense cents for one bucket.
func (q *Queries) SumBucketExpenses(ctx context.Context, key core.BucketKey) (int64, error) {
	start, end := key.Range()
	var cents int64
	err := q.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(amount_cents), 0)
		FROM transactions
		WHERE owner = ? AND category = ? AND kind = 'expense'
			AND occurred_at >= ? AND occurred_at <= ?`,
		key.Owner, key.Category, fmtTime(start), fmtTime(end)).Scan(&cents)
	return cents, err
}

func (q *Queries) MonthlyTotals(ctx context.Context, owner string, since time.Time) ([]core.MonthlyTotal, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT CAST(strftime('%Y', occurred_at) AS INTEGER),
			CAST(strftime('%m', occurred_at) AS INTEGER),
			kind, SUM(amount_cents), COUNT(*)
		FROM transactions
		WHERE owner = ? AND occurred_at >= ?
		GROUP BY 1, 2, 3
		ORDER BY 1, 2`,
		owner, fmtTime(since))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []core.MonthlyTotal
	for rows.Next() {
		var mt core.MonthlyTotal
		var cents int64
		if err := rows.Scan(&mt.Year, &mt.Month, &mt.Kind, &cents, &mt.Count); err != nil {
			return nil, err
		}
		mt.Total = core.NewMoneyFromCents(cents)
		out = append(out, mt)
	}
	return out, rows.Err()
}

func (q *Queries) DailyExpenseTotals(ctx context.Context, owner string, year, month int) ([]core.DailyTotal, error) {
	start, end := core.MonthRange(year, month)
	rows, err := q.db.QueryContext(ctx, `
		SELECT CAST(strftime('%d', occurred_at) AS INTEGER), SUM(amount_cents), COUNT(*)
		FROM transactions
		WHERE owner = ? AND kind = 'expense' AND occurred_at >= ? AND occurred_at <= ?
		GROUP BY 1
		ORDER BY 1`,
		owner, fmtTime(start), fmtTime(end))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []core.DailyTotal
	for rows.Next() {
		var dt core.DailyTotal
		var cents int64
		if err := rows.Scan(&dt.Day, &cents, &dt.Count); err != nil {
			return nil, err
		}
		dt.Total = core.NewMoneyFromCents(cents)
		out = append(out, dt)
	}
	return out, rows.Err()
}

func (q *Queries) DistinctOwnersInRange(ctx context.Context, start, end time.Time) ([]string, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT DISTINCT owner FROM transactions
		WHERE occurred_at >= ? AND occurred_at <= ?
		ORDER BY owner`,
		fmtTime(start), fmtTime(end))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var owner string
		if err := rows.Scan(&owner); err != nil {
			return nil, err
		}
		out = append(out, owner)
	}
	return out, rows.Err()
}

// ---- budgets ----

const budgetColumns = `id, owner, category, month, year, limit_cents, spent_cents,
	alert_threshold, alert_sent, created_at, updated_at`

func scanBudget(row rowScanner) (core.Budget, error) {
	var (
		b                      core.Budget
		limitCents, spentCents int64
		createdAt, updatedAt   string
	)
	err := row.Scan(&b.ID, &b.Owner, &b.Category, &b.Month, &b.Year, &limitCents,
		&spentCents, &b.AlertThreshold, &b.AlertSent, &createdAt, &updatedAt)
	if err != nil {
		return core.Budget{}, err
	}
	b.Limit = core.NewMoneyFromCents(limitCents)
	b.Spent = core.NewMoneyFromCents(spentCents)
	b.CreatedAt = parseTime(createdAt)
	b.UpdatedAt = parseTime(updatedAt)
	return b, nil
}

type CreateBudgetParams struct {
	Owner          string
	Category       core.Category
	Month          int
	Year           int
	LimitCents     int64
	AlertThreshold int
}

func (q *Queries) CreateBudget(ctx context.Context, arg CreateBudgetParams) (core.Budget, error) {
	now := fmtTime(time.Now())
	row := q.db.QueryRowContext(ctx, `
		INSERT INTO budgets (owner, category, month, year, limit_cents, spent_cents,
			alert_threshold, alert_sent, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, 0, ?, 0, ?, ?)
		RETURNING `+budgetColumns,
		arg.Owner, arg.Category, arg.Month, arg.Year, arg.LimitCents,
		arg.AlertThreshold, now, now)
	b, err := scanBudget(row)
	if isUniqueViolation(err) {
		// Lost a race on the natural key; the caller retries the upsert.
		return core.Budget{}, fmt.Errorf("budget %s/%s %d-%d: %w",
			arg.Owner, arg.Category, arg.Year, arg.Month, core.ErrConflict)
	}
	return b, err
}

func (q *Queries) GetBudgetByKey(ctx context.Context, key core.BucketKey) (core.Budget, error) {
	row := q.db.QueryRowContext(ctx, `
		SELECT `+budgetColumns+` FROM budgets
		WHERE owner = ? AND category = ? AND month = ? AND year = ?`,
		key.Owner, key.Category, key.Month, key.Year)
	b, err := scanBudget(row)
	if err == sql.ErrNoRows {
		return core.Budget{}, fmt.Errorf("budget %s/%s %d-%d: %w",
			key.Owner, key.Category, key.Year, key.Month, core.ErrNotFound)
	}
	return b, err
}

func (q *Queries) GetBudget(ctx context.Context, id int64, owner string) (core.Budget, error) {
	row := q.db.QueryRowContext(ctx, `
		SELECT `+budgetColumns+` FROM budgets WHERE id = ? AND owner = ?`, id, owner)
	b, err := scanBudget(row)
	if err == sql.ErrNoRows {
		return core.Budget{}, fmt.Errorf("budget %d: %w", id, core.ErrNotFound)
	}
	return b, err
}

// UpdateBudgetTerms rewrites limit and threshold and re-arms the
// warning alert: the user changed the contract, so past suppression no
// longer applies.
func (q *Queries) UpdateBudgetTerms(ctx context.Context, id int64, limitCents int64, alertThreshold int) (core.Budget, error) {
	row := q.db.QueryRowContext(ctx, `
		UPDATE budgets
		SET limit_cents = ?, alert_threshold = ?, alert_sent = 0, updated_at = ?
		WHERE id = ?
		RETURNING `+budgetColumns,
		limitCents, alertThreshold, fmtTime(time.Now()), id)
	b, err := scanBudget(row)
	if err == sql.ErrNoRows {
		return core.Budget{}, fmt.Errorf("budget %d: %w", id, core.ErrNotFound)
	}
	return b, err
}

// UpdateBudgetSpent replaces the derived aggregate wholesale. Spent is
// never incremented in place.
func (q *Queries) UpdateBudgetSpent(ctx context.Context, id int64, spentCents int64) error {
	_, err := q.db.ExecContext(ctx, `
		UPDATE budgets SET spent_cents = ?, updated_at = ? WHERE id = ?`,
		spentCents, fmtTime(time.Now()), id)
	return err
}

func (q *Queries) SetBudgetAlertSent(ctx context.Context, id int64, sent bool) error {
	_, err := q.db.ExecContext(ctx, `
		UPDATE budgets SET alert_sent = ?, updated_at = ? WHERE id = ?`,
		sent, fmtTime(time.Now()), id)
	return err
}

func (q *Queries) ListBudgets(ctx context.Context, owner string, month, year int) ([]core.Budget, error) {
	return q.queryBudgets(ctx, `
		SELECT `+budgetColumns+` FROM budgets
		WHERE owner = ? AND month = ? AND year = ?
		ORDER BY category ASC`,
		owner, month, year)
}

// ListBudgetsForPeriod returns every owner's budgets for one month;
// this is the sweep's worklist.
func (q *Queries) ListBudgetsForPeriod(ctx context.Context, month, year int) ([]core.Budget, error) {
	return q.queryBudgets(ctx, `
		SELECT `+budgetColumns+` FROM budgets
		WHERE month = ? AND year = ?
		ORDER BY owner, category`,
		month, year)
}

func (q *Queries) queryBudgets(ctx context.Context, query string, args ...any) ([]core.Budget, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []core.Budget
	for rows.Next() {
		b, err := scanBudget(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (q *Queries) DeleteBudget(ctx context.Context, id int64, owner string) error {
	res, err := q.db.ExecContext(ctx, `DELETE FROM budgets WHERE id = ? AND owner = ?`, id, owner)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("budget %d: %w", id, core.ErrNotFound)
	}
	return nil
}

// ---- alerts ----

const alertColumns = `id, owner, type, title, message, severity, is_read, read_at, metadata, created_at`

func scanAlert(row rowScanner) (core.Alert, error) {
	var (
		a         core.Alert
		readAt    sql.NullString
		metadata  string
		createdAt string
	)
	err := row.Scan(&a.ID, &a.Owner, &a.Type, &a.Title, &a.Message, &a.Severity,
		&a.IsRead, &readAt, &metadata, &createdAt)
	if err != nil {
		return core.Alert{}, err
	}
	if readAt.Valid {
		t := parseTime(readAt.String)
		a.ReadAt = &t
	}
	if metadata != "" {
		if err := json.Unmarshal([]byte(metadata), &a.Metadata); err != nil {
			return core.Alert{}, fmt.Errorf("decode alert metadata: %w", err)
		}
	}
	a.CreatedAt = parseTime(createdAt)
	return a, nil
}

type CreateAlertParams struct {
	Owner    string
	Type     core.AlertType
	Title    string
	Message  string
	Severity core.Severity
	Metadata map[string]any
}

func (q *Queries) CreateAlert(ctx context.Context, arg CreateAlertParams) (core.Alert, error) {
	metadata := "{}"
	if arg.Metadata != nil {
		raw, err := json.Marshal(arg.Metadata)
		if err != nil {
			return core.Alert{}, fmt.Errorf("encode alert metadata: %w", err)
		}
		metadata = string(raw)
	}
	severity := arg.Severity
	if severity == "" {
		severity = core.SeverityInfo
	}
	row := q.db.QueryRowContext(ctx, `
		INSERT INTO alerts (owner, type, title, message, severity, is_read, metadata, created_at)
		VALUES (?, ?, ?, ?, ?, 0, ?, ?)
		RETURNING `+alertColumns,
		arg.Owner, arg.Type, arg.Title, arg.Message, severity, metadata, fmtTime(time.Now()))
	return scanAlert(row)
}

func (q *Queries) GetAlert(ctx context.Context, id int64, owner string) (core.Alert, error) {
	row := q.db.QueryRowContext(ctx, `
		SELECT `+alertColumns+` FROM alerts WHERE id = ? AND owner = ?`, id, owner)
	a, err := scanAlert(row)
	if err == sql.ErrNoRows {
		return core.Alert{}, fmt.Errorf("alert %d: %w", id, core.ErrNotFound)
	}
	return a, err
}

type ListAlertsParams struct {
	Owner      string
	UnreadOnly bool
	Limit      int64
	Offset     int64
}

func (q *Queries) ListAlerts(ctx context.Context, arg ListAlertsParams) ([]core.Alert, error) {
	query := `SELECT ` + alertColumns + ` FROM alerts WHERE owner = ?`
	args := []any{arg.Owner}
	if arg.UnreadOnly {
		query += ` AND is_read = 0`
	}
	query += ` ORDER BY created_at DESC, id DESC`
	if arg.Limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, arg.Limit, arg.Offset)
	}

	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []core.Alert
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (q *Queries) CountUnreadAlerts(ctx context.Context, owner string) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM alerts WHERE owner = ? AND is_read = 0`, owner).Scan(&n)
	return n, err
}

func (q *Queries) MarkAlertRead(ctx context.Context, id int64, owner string) error {
	res, err := q.db.ExecContext(ctx, `
		UPDATE alerts SET is_read = 1, read_at = ? WHERE id = ? AND owner = ? AND is_read = 0`,
		fmtTime(time.Now()), id, owner)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		// Either missing or already read; distinguish for the caller.
		var exists int64
		if err := q.db.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM alerts WHERE id = ? AND owner = ?`, id, owner).Scan(&exists); err != nil {
			return err
		}
		if exists == 0 {
			return fmt.Errorf("alert %d: %w", id, core.ErrNotFound)
		}
	}
	return nil
}

func (q *Queries) MarkAllAlertsRead(ctx context.Context, owner string) (int64, error) {
	res, err := q.db.ExecContext(ctx, `
		UPDATE alerts SET is_read = 1, read_at = ? WHERE owner = ? AND is_read = 0`,
		fmtTime(time.Now()), owner)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// CountAlertsOfTypeSince supports idempotent scheduled jobs: a report
// is only generated when no alert of the same type exists for the
// period yet.
func (q *Queries) CountAlertsOfTypeSince(ctx context.Context, owner string, alertType core.AlertType, since time.Time) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM alerts WHERE owner = ? AND type = ? AND created_at >= ?`,
		owner, alertType, fmtTime(since)).Scan(&n)
	return n, err
}
