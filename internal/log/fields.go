package log

// Common field names for structured logging
const (
	FieldComponent   = "component"
	FieldError       = "error"
	FieldOperation   = "operation"
	FieldSweep       = "sweep"
	FieldDuration    = "duration_ms"
	FieldUserID      = "user_id"
	FieldTxID        = "transaction_id"
	FieldBudgetID    = "budget_id"
	FieldGoalID      = "goal_id"
	FieldCategory    = "category"
	FieldAmount      = "amount"
	FieldFrequency   = "frequency"
	FieldNextDueDate = "next_due_date"
	FieldCreated     = "created"
	FieldAlerted     = "alerted"
	FieldCompleted   = "completed"
	FieldErrors      = "errors"
)

// Components defines standard component names
const (
	ComponentEngine    = "engine"
	ComponentScheduler = "scheduler"
	ComponentStorage   = "storage"
	ComponentNotify    = "notify"
	ComponentConfig    = "config"
)

// Sweep names used in scheduler and engine logs
const (
	SweepMaterialize   = "materialize"
	SweepBudgetAlerts  = "budget_alerts"
	SweepGoals         = "goal_completions"
	SweepMonthlyReport = "monthly_report"
)
