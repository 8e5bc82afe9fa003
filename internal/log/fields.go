package log

// Common field names for structured logging
const (
	FieldComponent  = "component"
	FieldRequestID  = "request_id"
	FieldClientIP   = "client_ip"
	FieldMethod     = "method"
	FieldPath       = "path"
	FieldStatusCode = "status_code"
	FieldDuration   = "duration_ms"
	FieldError      = "error"
	FieldOwner      = "owner"
	FieldCategory   = "category"
	FieldMonth      = "month"
	FieldYear       = "year"
	FieldAmount     = "amount_cents"
	FieldBudgetID   = "budget_id"
	FieldAlertID    = "alert_id"
	FieldAlertType  = "alert_type"
)

// Components defines standard component names
const (
	ComponentApp       = "app"
	ComponentHTTP      = "http"
	ComponentLedger    = "ledger"
	ComponentBudget    = "budget"
	ComponentAlert     = "alert"
	ComponentStorage   = "storage"
	ComponentAMQP      = "amqp"
	ComponentSweep     = "sweep"
	ComponentAnalytics = "analytics"
	ComponentSecurity  = "security"
	ComponentRateLimit = "rate_limit"
)
