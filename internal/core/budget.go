package core

import "github.com/shopspring/decimal"

// BudgetStatus is the derived, non-persisted view of a budget's consumption
// at one point in time. It is recomputed on every evaluation and never
// cached across sweeps.
type BudgetStatus struct {
	Spent          decimal.Decimal
	Remaining      decimal.Decimal
	PercentageUsed float64
	IsOverBudget   bool
	ShouldAlert    bool
}

// ComputeSpend derives a budget's consumption from the aggregated expense
// sum over its window. It is the single source of this arithmetic: the
// alert sweep and the reporting routes both go through it, so the two can
// never drift apart.
//
// Remaining may go negative. PercentageUsed is 0 for a zero-amount budget.
// ShouldAlert triggers at the threshold independently of IsOverBudget: a
// budget at 85% of a 1000 cap alerts without being over, and a budget at
// 120% is over regardless of its threshold.
func ComputeSpend(b Budget, spent decimal.Decimal) BudgetStatus {
	status := BudgetStatus{
		Spent:     spent,
		Remaining: b.Amount.Sub(spent),
	}
	if b.Amount.IsPositive() {
		status.PercentageUsed, _ = spent.Div(b.Amount).Mul(decimal.NewFromInt(100)).Float64()
	}
	status.IsOverBudget = spent.GreaterThan(b.Amount)
	status.ShouldAlert = status.PercentageUsed >= float64(b.AlertThreshold)
	return status
}
