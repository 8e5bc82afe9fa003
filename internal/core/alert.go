package core

import "time"

// AlertType enumerates the notification kinds the system records.
// Only the budget types and the monthly report are produced by this
// core; the rest are reserved for external producers sharing the
// alert store.
type AlertType string

const (
	AlertBudgetWarning       AlertType = "budget_warning"
	AlertBudgetExceeded      AlertType = "budget_exceeded"
	AlertMonthlyReport       AlertType = "monthly_report"
	AlertUnusualSpending     AlertType = "unusual_spending"
	AlertSavingsGoalAchieved AlertType = "savings_goal_achieved"
	AlertSavingsGoalMissed   AlertType = "savings_goal_missed"
	AlertLowBalance          AlertType = "low_balance"
)

type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
	SeveritySuccess  Severity = "success"
)

// Alert is a durably recorded notification. Immutable after creation
// except for the read marker; retention is an external concern.
type Alert struct {
	ID        int64
	Owner     string
	Type      AlertType
	Title     string
	Message   string
	Severity  Severity
	IsRead    bool
	ReadAt    *time.Time
	Metadata  map[string]any
	CreatedAt time.Time
}
