package http

import (
	"time"

	"finledger/internal/core"
)

type transactionResponse struct {
	ID               int64    `json:"id"`
	Kind             string   `json:"kind"`
	Category         string   `json:"category"`
	Amount           string   `json:"amount"`
	OccurredAt       string   `json:"occurred_at"`
	PaymentMethod    string   `json:"payment_method,omitempty"`
	Description      string   `json:"description"`
	Tags             []string `json:"tags,omitempty"`
	Notes            string   `json:"notes,omitempty"`
	Recurring        bool     `json:"recurring"`
	RecurrencePeriod string   `json:"recurrence_period,omitempty"`
	CreatedAt        string   `json:"created_at"`
	UpdatedAt        string   `json:"updated_at"`
}

func toTransactionResponse(t core.Transaction) transactionResponse {
	return transactionResponse{
		ID:               t.ID,
		Kind:             string(t.Kind),
		Category:         string(t.Category),
		Amount:           t.Amount.String(),
		OccurredAt:       t.OccurredAt.UTC().Format(time.RFC3339),
		PaymentMethod:    string(t.PaymentMethod),
		Description:      t.Description,
		Tags:             t.Tags,
		Notes:            t.Notes,
		Recurring:        t.Recurring,
		RecurrencePeriod: string(t.RecurrencePeriod),
		CreatedAt:        t.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:        t.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func toTransactionResponses(ts []core.Transaction) []transactionResponse {
	out := make([]transactionResponse, 0, len(ts))
	for _, t := range ts {
		out = append(out, toTransactionResponse(t))
	}
	return out
}

type budgetResponse struct {
	ID             int64  `json:"id"`
	Category       string `json:"category"`
	Month          int    `json:"month"`
	Year           int    `json:"year"`
	Limit          string `json:"limit"`
	Spent          string `json:"spent"`
	Remaining      string `json:"remaining"`
	Percentage     int    `json:"percentage"`
	Status         string `json:"status"`
	AlertThreshold int    `json:"alert_threshold"`
	AlertSent      bool   `json:"alert_sent"`
}

func toBudgetResponse(b core.Budget) budgetResponse {
	return budgetResponse{
		ID:             b.ID,
		Category:       string(b.Category),
		Month:          b.Month,
		Year:           b.Year,
		Limit:          b.Limit.String(),
		Spent:          b.Spent.String(),
		Remaining:      b.Remaining().String(),
		Percentage:     b.Percentage(),
		Status:         string(b.Status()),
		AlertThreshold: b.AlertThreshold,
		AlertSent:      b.AlertSent,
	}
}

type alertResponse struct {
	ID        int64          `json:"id"`
	Type      string         `json:"type"`
	Title     string         `json:"title"`
	Message   string         `json:"message"`
	Severity  string         `json:"severity"`
	IsRead    bool           `json:"is_read"`
	ReadAt    *string        `json:"read_at,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt string         `json:"created_at"`
}

func toAlertResponse(a core.Alert) alertResponse {
	resp := alertResponse{
		ID:        a.ID,
		Type:      string(a.Type),
		Title:     a.Title,
		Message:   a.Message,
		Severity:  string(a.Severity),
		IsRead:    a.IsRead,
		Metadata:  a.Metadata,
		CreatedAt: a.CreatedAt.UTC().Format(time.RFC3339),
	}
	if a.ReadAt != nil {
		readAt := a.ReadAt.UTC().Format(time.RFC3339)
		resp.ReadAt = &readAt
	}
	return resp
}

type categoryTotalResponse struct {
	Category string `json:"category"`
	Total    string `json:"total"`
	Count    int64  `json:"count"`
}

type monthlyTotalResponse struct {
	Year  int    `json:"year"`
	Month int    `json:"month"`
	Kind  string `json:"kind"`
	Total string `json:"total"`
	Count int64  `json:"count"`
}

type dailyTotalResponse struct {
	Day   int    `json:"day"`
	Total string `json:"total"`
	Count int64  `json:"count"`
}

type budgetSummaryResponse struct {
	TotalBudgets  int    `json:"total_budgets"`
	TotalLimit    string `json:"total_limit"`
	TotalSpent    string `json:"total_spent"`
	Remaining     string `json:"remaining"`
	Percentage    int    `json:"percentage"`
	ExceededCount int    `json:"exceeded_count"`
	WarningCount  int    `json:"warning_count"`
	HealthyCount  int    `json:"healthy_count"`
}
