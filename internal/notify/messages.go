package notify

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// Routing keys for the notification exchange. A delivery worker (mail,
// push) binds on the keys it handles; this engine only publishes.
const (
	RouteBudgetAlert     = "budget.alert"
	RouteGoalAchievement = "goal.achievement"
	RouteMonthlyReport   = "report.monthly"
)

// BudgetAlertMessage carries a budget's static fields plus the spend
// snapshot computed in the same sweep that decided to alert. Consumers must
// not re-derive the numbers; the snapshot is the alert.
type BudgetAlertMessage struct {
	MessageID string    `json:"message_id"`
	UserID    string    `json:"user_id"`
	UserName  string    `json:"user_name"`
	Email     string    `json:"email"`
	Timestamp time.Time `json:"timestamp"`

	BudgetID       string          `json:"budget_id"`
	Category       string          `json:"category"`
	Amount         decimal.Decimal `json:"amount"`
	Period         string          `json:"period"`
	StartDate      time.Time       `json:"start_date"`
	EndDate        time.Time       `json:"end_date"`
	AlertThreshold int             `json:"alert_threshold"`

	Spent          decimal.Decimal `json:"spent"`
	Remaining      decimal.Decimal `json:"remaining"`
	PercentageUsed float64         `json:"percentage_used"`
	IsOverBudget   bool            `json:"is_over_budget"`
}

// GoalAchievementMessage announces a goal's transition to completed.
type GoalAchievementMessage struct {
	MessageID string    `json:"message_id"`
	UserID    string    `json:"user_id"`
	UserName  string    `json:"user_name"`
	Email     string    `json:"email"`
	Timestamp time.Time `json:"timestamp"`

	GoalID        string          `json:"goal_id"`
	Title         string          `json:"title"`
	Category      string          `json:"category"`
	TargetAmount  decimal.Decimal `json:"target_amount"`
	CurrentAmount decimal.Decimal `json:"current_amount"`
	Progress      float64         `json:"progress"`
}

// MonthlyReportMessage carries one owner's month summary.
type MonthlyReportMessage struct {
	MessageID string    `json:"message_id"`
	UserID    string    `json:"user_id"`
	UserName  string    `json:"user_name"`
	Email     string    `json:"email"`
	Timestamp time.Time `json:"timestamp"`

	Year             int             `json:"year"`
	Month            int             `json:"month"`
	TotalIncome      decimal.Decimal `json:"total_income"`
	TotalExpense     decimal.Decimal `json:"total_expense"`
	Balance          decimal.Decimal `json:"balance"`
	TransactionCount int             `json:"transaction_count"`
}

func marshalMessage(m any) ([]byte, error) {
	return json.Marshal(m)
}
