// Package engine implements the periodic sweeps of the finance tracker:
// materializing recurring transactions, evaluating budget alerts and
// detecting goal completions. Each sweep processes its candidates one by
// one and isolates per-entity failures, so a bad row delays nothing but
// itself.
package engine

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
)

// TransactionStore is the slice of persistence the materializer needs.
type TransactionStore interface {
	FindDueRecurring(ctx context.Context, w core.DayWindow) ([]core.Transaction, error)
	CreateTransaction(ctx context.Context, t core.Transaction) (string, error)
	SaveTransaction(ctx context.Context, t core.Transaction) error
}

// BudgetStore is the slice of persistence the alert evaluator needs.
type BudgetStore interface {
	FindActiveBudgets(ctx context.Context) ([]core.Budget, error)
	AggregateExpenseSum(ctx context.Context, ownerID, category string, from, to time.Time) (decimal.Decimal, error)
}

// GoalStore is the slice of persistence the completion detector needs.
type GoalStore interface {
	FindIncompleteGoals(ctx context.Context) ([]core.Goal, error)
	SaveGoal(ctx context.Context, g core.Goal) error
}

// UserStore resolves entity owners for notification dispatch.
type UserStore interface {
	FindUser(ctx context.Context, id string) (*core.User, error)
}

// ReportStore is the slice of persistence the monthly report builder needs.
type ReportStore interface {
	ListUsers(ctx context.Context) ([]core.User, error)
	MonthlySummary(ctx context.Context, ownerID string, ref time.Time) (core.MonthlySummary, error)
}

// Timeouts are the per-item call budgets inside a sweep. A slow store or
// broker call times out for its entity only; the sweep moves on.
type Timeouts struct {
	Store  time.Duration
	Notify time.Duration
}

// DefaultTimeouts returns the budgets used when the caller passes zero
// values.
func DefaultTimeouts() Timeouts {
	return Timeouts{Store: 5 * time.Second, Notify: 5 * time.Second}
}

func (t Timeouts) orDefaults() Timeouts {
	def := DefaultTimeouts()
	if t.Store <= 0 {
		t.Store = def.Store
	}
	if t.Notify <= 0 {
		t.Notify = def.Notify
	}
	return t
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, d)
}
