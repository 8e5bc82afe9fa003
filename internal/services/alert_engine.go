package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"finledger/internal/amqp"
	"finledger/internal/core"
	"finledger/internal/storage"
)

// AlertState is the explicit per-bucket alert classification. Keeping
// it a single tagged state (instead of independently mutated booleans)
// rules out contradictory warning/exceeded combinations.
type AlertState int

const (
	StateNormal AlertState = iota
	StateWarned
	StateExceeded
)

func (s AlertState) String() string {
	switch s {
	case StateWarned:
		return "warned"
	case StateExceeded:
		return "exceeded"
	default:
		return "normal"
	}
}

// AlertIntent is a not-yet-persisted alert produced by Evaluate.
type AlertIntent struct {
	Type     core.AlertType
	Title    string
	Message  string
	Severity core.Severity
	Metadata map[string]any
}

// AlertEngine turns budget state transitions into durable alerts and
// fans them out over AMQP. The publisher may be nil; alerts are then
// recorded but not pushed, and the downstream consumers pick them up
// by polling the store.
type AlertEngine struct {
	publisher *amqp.Client
}

func NewAlertEngine(publisher *amqp.Client) *AlertEngine {
	return &AlertEngine{publisher: publisher}
}

// StateOf classifies a budget for the alert state machine.
func StateOf(b core.Budget) AlertState {
	switch {
	case b.Exceeded():
		return StateExceeded
	case b.AlertSent:
		return StateWarned
	default:
		return StateNormal
	}
}

// Evaluate is a pure function of the budget after a recompute and the
// spent value before it. It returns zero, one, or two intents:
//
//   - budget_warning fires when the unrounded ratio has reached the
//     threshold and no warning has been delivered since the last reset.
//     A later drop below the threshold does not re-arm it; only editing
//     the budget terms does.
//   - budget_exceeded fires on the crossing edge only: spent reached
//     the limit now and had not before this recompute. Staying exceeded
//     across further recomputes produces nothing.
//
// Both can co-occur when a single transaction jumps past threshold and
// limit in one step. A spent decrease never revokes anything.
func (e *AlertEngine) Evaluate(b core.Budget, previousSpent core.Money) []AlertIntent {
	// The "before" state uses the current limit. Lowering a limit under
	// already-recorded spending therefore never produces an exceeded
	// edge; the terms change resets the warning flag instead, and the
	// re-armed warning carries the news.
	before := b
	before.Spent = previousSpent

	var intents []AlertIntent
	if StateOf(b) == StateExceeded && !before.Exceeded() {
		intents = append(intents, e.exceededIntent(b))
	}
	if b.OverThreshold() && !b.AlertSent {
		intents = append(intents, e.warningIntent(b))
	}
	return intents
}

func (e *AlertEngine) warningIntent(b core.Budget) AlertIntent {
	return AlertIntent{
		Type:     core.AlertBudgetWarning,
		Title:    fmt.Sprintf("Budget Alert: %s", b.Category),
		Message:  fmt.Sprintf("You've used %d%% of your %s budget for %s %d", b.Percentage(), b.Category, time.Month(b.Month), b.Year),
		Severity: core.SeverityWarning,
		Metadata: budgetMetadata(b),
	}
}

func (e *AlertEngine) exceededIntent(b core.Budget) AlertIntent {
	return AlertIntent{
		Type:     core.AlertBudgetExceeded,
		Title:    fmt.Sprintf("Budget Exceeded: %s", b.Category),
		Message:  fmt.Sprintf("Your %s budget for %s %d has been exceeded by %s", b.Category, time.Month(b.Month), b.Year, b.Spent.Sub(b.Limit)),
		Severity: core.SeverityCritical,
		Metadata: budgetMetadata(b),
	}
}

func budgetMetadata(b core.Budget) map[string]any {
	return map[string]any{
		"budget_id": b.ID,
		"category":  string(b.Category),
		"month":     b.Month,
		"year":      b.Year,
		"spent":     b.Spent.String(),
		"limit":     b.Limit.String(),
	}
}

// Apply persists the intents inside the caller's transaction and flips
// alert_sent for delivered warnings. Publishing happens separately via
// Notify, after the transaction commits.
func (e *AlertEngine) Apply(ctx context.Context, q *storage.Queries, b core.Budget, intents []AlertIntent) ([]core.Alert, error) {
	var alerts []core.Alert
	for _, intent := range intents {
		alert, err := q.CreateAlert(ctx, storage.CreateAlertParams{
			Owner:    b.Owner,
			Type:     intent.Type,
			Title:    intent.Title,
			Message:  intent.Message,
			Severity: intent.Severity,
			Metadata: intent.Metadata,
		})
		if err != nil {
			return nil, fmt.Errorf("create alert: %w", err)
		}
		if intent.Type == core.AlertBudgetWarning {
			if err := q.SetBudgetAlertSent(ctx, b.ID, true); err != nil {
				return nil, fmt.Errorf("set alert_sent: %w", err)
			}
		}
		alerts = append(alerts, alert)

		slog.InfoContext(ctx, "Alert recorded",
			"alert_id", alert.ID,
			"owner", b.Owner,
			"type", alert.Type,
			"category", b.Category,
			"month", b.Month,
			"year", b.Year,
			"spent_cents", b.Spent.Cents,
			"limit_cents", b.Limit.Cents)
	}
	return alerts, nil
}

// Notify publishes stored alerts to the notification exchange. Failures
// are logged and swallowed: the alert is already durable and the
// notify-worker can recover it from the store.
func (e *AlertEngine) Notify(ctx context.Context, alerts []core.Alert) {
	if e.publisher == nil || len(alerts) == 0 {
		return
	}
	for _, alert := range alerts {
		msg := amqp.NewAlertMessage(alert)
		if err := e.publisher.PublishAlert(ctx, msg); err != nil {
			slog.ErrorContext(ctx, "Failed to publish alert notification",
				"alert_id", alert.ID,
				"owner", alert.Owner,
				"type", alert.Type,
				"error", err)
		}
	}
}
