package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// MonthlySummary is one owner's aggregated activity for a calendar month,
// used by the monthly report sweep.
type MonthlySummary struct {
	Year             int
	Month            time.Month
	TotalIncome      decimal.Decimal
	TotalExpense     decimal.Decimal
	TransactionCount int
}

// Balance is income minus expense for the month.
func (s MonthlySummary) Balance() decimal.Decimal {
	return s.TotalIncome.Sub(s.TotalExpense)
}

// IsEmpty reports whether the month had no activity at all. Empty months
// are not worth a report email.
func (s MonthlySummary) IsEmpty() bool {
	return s.TransactionCount == 0
}
