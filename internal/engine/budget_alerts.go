package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/notify"
)

// BudgetAlertEvaluator sweeps every active budget, derives its consumption
// and dispatches alerts for budgets at or past their threshold.
type BudgetAlertEvaluator struct {
	budgets    BudgetStore
	users      UserStore
	dispatcher notify.Dispatcher
	timeouts   Timeouts

	// realert preserves the always-remind behavior: every sweep
	// re-alerts a budget that still qualifies. When disabled, a budget
	// alerts only on the transition into the alerting state; the memory is
	// in-process and resets on restart.
	realert bool

	mu       sync.Mutex
	lastSeen map[string]bool // budget id -> qualified on previous sweep
}

func NewBudgetAlertEvaluator(budgets BudgetStore, users UserStore, dispatcher notify.Dispatcher, timeouts Timeouts, realert bool) *BudgetAlertEvaluator {
	return &BudgetAlertEvaluator{
		budgets:    budgets,
		users:      users,
		dispatcher: dispatcher,
		timeouts:   timeouts.orDefaults(),
		realert:    realert,
		lastSeen:   make(map[string]bool),
	}
}

// AlertResult summarizes one alert sweep.
type AlertResult struct {
	Alerted int
	Errors  []error
}

// EvaluateBudgetAlerts recomputes every active budget's spend and
// dispatches an alert for each one at or past its threshold, or over its
// amount. The snapshot sent is always the one computed in this pass.
func (e *BudgetAlertEvaluator) EvaluateBudgetAlerts(ctx context.Context, asOf time.Time) (AlertResult, error) {
	findCtx, cancel := withTimeout(ctx, e.timeouts.Store)
	budgets, err := e.budgets.FindActiveBudgets(findCtx)
	cancel()
	if err != nil {
		return AlertResult{}, fmt.Errorf("find active budgets: %w", err)
	}

	slog.InfoContext(ctx, "Evaluating budget alerts", "active", len(budgets))

	var result AlertResult
	for _, budget := range budgets {
		if ctx.Err() != nil {
			result.Errors = append(result.Errors, ctx.Err())
			return result, nil
		}

		sent, err := e.evaluateOne(ctx, budget)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to evaluate budget",
				"budget_id", budget.ID,
				"category", budget.Category,
				"error", err)
			result.Errors = append(result.Errors, fmt.Errorf("budget %s: %w", budget.ID, err))
			continue
		}
		if sent {
			result.Alerted++
		}
	}

	slog.InfoContext(ctx, "Budget alert sweep complete",
		"alerted", result.Alerted,
		"errors", len(result.Errors))

	return result, nil
}

func (e *BudgetAlertEvaluator) evaluateOne(ctx context.Context, budget core.Budget) (bool, error) {
	sumCtx, cancel := withTimeout(ctx, e.timeouts.Store)
	spent, err := e.budgets.AggregateExpenseSum(sumCtx, budget.OwnerID, budget.Category, budget.StartDate, budget.EndDate)
	cancel()
	if err != nil {
		return false, fmt.Errorf("aggregate spend: %w", err)
	}

	status := core.ComputeSpend(budget, spent)
	qualifies := status.ShouldAlert || status.IsOverBudget

	if !e.shouldDispatch(budget.ID, qualifies) {
		return false, nil
	}

	userCtx, cancel := withTimeout(ctx, e.timeouts.Store)
	user, err := e.users.FindUser(userCtx, budget.OwnerID)
	cancel()
	if err != nil {
		return false, fmt.Errorf("find owner: %w", err)
	}
	if user.Email == "" {
		slog.DebugContext(ctx, "Budget owner has no notification address, skipping alert",
			"budget_id", budget.ID,
			"user_id", user.ID)
		return false, nil
	}

	notifyCtx, cancel := withTimeout(ctx, e.timeouts.Notify)
	res, err := e.dispatcher.SendBudgetAlert(notifyCtx, *user, budget, status)
	cancel()
	if err != nil {
		return false, fmt.Errorf("dispatch alert: %w", err)
	}
	if res.Skipped {
		slog.DebugContext(ctx, "Budget alert skipped by dispatcher", "budget_id", budget.ID)
		return false, nil
	}

	slog.InfoContext(ctx, "Budget alert dispatched",
		"budget_id", budget.ID,
		"category", budget.Category,
		"percentage_used", status.PercentageUsed,
		"over_budget", status.IsOverBudget)

	return true, nil
}

// shouldDispatch applies the re-alert policy and records the budget's
// current state. With realert on (the default) every qualifying sweep
// dispatches; otherwise only the rising edge does, and dropping back below
// the threshold arms the budget again.
func (e *BudgetAlertEvaluator) shouldDispatch(budgetID string, qualifies bool) bool {
	if e.realert {
		return qualifies
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	prev := e.lastSeen[budgetID]
	e.lastSeen[budgetID] = qualifies
	return qualifies && !prev
}
