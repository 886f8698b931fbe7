package notify

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"fintrack/internal/core"
)

// Result reports the outcome of one dispatch attempt. Skipped means the
// dispatcher has no transport configured; it is not an error and callers
// must not retry on it.
type Result struct {
	Success bool
	Skipped bool
}

// Dispatcher hands notifications to the delivery side. Implementations must
// be safe for use from overlapping sweeps.
type Dispatcher interface {
	SendBudgetAlert(ctx context.Context, user core.User, budget core.Budget, status core.BudgetStatus) (Result, error)
	SendGoalAchievement(ctx context.Context, user core.User, goal core.Goal) (Result, error)
	SendMonthlyReport(ctx context.Context, user core.User, summary core.MonthlySummary) (Result, error)
}

// AMQPDispatcher publishes notification messages to the configured
// exchange. A nil client is a valid unconfigured state: every send is
// reported Skipped, mirroring the engine running without a broker.
type AMQPDispatcher struct {
	client *Client
}

func NewAMQPDispatcher(client *Client) *AMQPDispatcher {
	return &AMQPDispatcher{client: client}
}

func (d *AMQPDispatcher) SendBudgetAlert(ctx context.Context, user core.User, budget core.Budget, status core.BudgetStatus) (Result, error) {
	if d.client == nil {
		slog.DebugContext(ctx, "Notification transport not configured, skipping budget alert",
			"budget_id", budget.ID)
		return Result{Skipped: true}, nil
	}

	msg := BudgetAlertMessage{
		MessageID: uuid.NewString(),
		UserID:    user.ID,
		UserName:  user.Name,
		Email:     user.Email,
		Timestamp: time.Now().UTC(),

		BudgetID:       budget.ID,
		Category:       budget.Category,
		Amount:         budget.Amount,
		Period:         string(budget.Period),
		StartDate:      budget.StartDate,
		EndDate:        budget.EndDate,
		AlertThreshold: budget.AlertThreshold,

		Spent:          status.Spent,
		Remaining:      status.Remaining,
		PercentageUsed: status.PercentageUsed,
		IsOverBudget:   status.IsOverBudget,
	}

	if err := d.client.Publish(ctx, RouteBudgetAlert, msg); err != nil {
		return Result{}, err
	}
	return Result{Success: true}, nil
}

func (d *AMQPDispatcher) SendGoalAchievement(ctx context.Context, user core.User, goal core.Goal) (Result, error) {
	if d.client == nil {
		slog.DebugContext(ctx, "Notification transport not configured, skipping goal achievement",
			"goal_id", goal.ID)
		return Result{Skipped: true}, nil
	}

	msg := GoalAchievementMessage{
		MessageID: uuid.NewString(),
		UserID:    user.ID,
		UserName:  user.Name,
		Email:     user.Email,
		Timestamp: time.Now().UTC(),

		GoalID:        goal.ID,
		Title:         goal.Title,
		Category:      goal.Category,
		TargetAmount:  goal.TargetAmount,
		CurrentAmount: goal.CurrentAmount,
		Progress:      goal.ProgressPercentage(),
	}

	if err := d.client.Publish(ctx, RouteGoalAchievement, msg); err != nil {
		return Result{}, err
	}
	return Result{Success: true}, nil
}

func (d *AMQPDispatcher) SendMonthlyReport(ctx context.Context, user core.User, summary core.MonthlySummary) (Result, error) {
	if d.client == nil {
		slog.DebugContext(ctx, "Notification transport not configured, skipping monthly report",
			"user_id", user.ID)
		return Result{Skipped: true}, nil
	}

	msg := MonthlyReportMessage{
		MessageID: uuid.NewString(),
		UserID:    user.ID,
		UserName:  user.Name,
		Email:     user.Email,
		Timestamp: time.Now().UTC(),

		Year:             summary.Year,
		Month:            int(summary.Month),
		TotalIncome:      summary.TotalIncome,
		TotalExpense:     summary.TotalExpense,
		Balance:          summary.Balance(),
		TransactionCount: summary.TransactionCount,
	}

	if err := d.client.Publish(ctx, RouteMonthlyReport, msg); err != nil {
		return Result{}, err
	}
	return Result{Success: true}, nil
}
