package core

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	Daily   Frequency = "daily"
	Weekly  Frequency = "weekly"
	Monthly Frequency = "monthly"
	Yearly  Frequency = "yearly"
)

const (
	Income  TransactionType = "income"
	Expense TransactionType = "expense"
)

const (
	PeriodMonthly BudgetPeriod = "monthly"
	PeriodYearly  BudgetPeriod = "yearly"
)

// DefaultAlertThreshold is the budget consumption percentage at which an
// alert fires when the owner has not set one explicitly.
const DefaultAlertThreshold = 80

type (
	Frequency       string
	TransactionType string
	BudgetPeriod    string

	// Transaction is a single ledger entry. A transaction flagged Recurring
	// also acts as the template for its own future instances: NextDueDate
	// drives generation and Frequency sets the cadence.
	Transaction struct {
		ID          string
		Title       string
		Amount      decimal.Decimal
		Type        TransactionType
		Category    string
		Date        time.Time
		Recurring   bool
		Frequency   Frequency
		NextDueDate time.Time
		Note        string
		OwnerID     string
	}

	// Budget caps spending for one owner+category over a date window.
	Budget struct {
		ID             string
		Category       string
		Amount         decimal.Decimal
		Period         BudgetPeriod
		StartDate      time.Time
		EndDate        time.Time
		AlertThreshold int // percent, 0-100
		IsActive       bool
		OwnerID        string
	}

	// Goal is a savings target. CurrentAmount is authoritative; IsCompleted
	// is a cached flag maintained by the completion sweep.
	Goal struct {
		ID            string
		Title         string
		TargetAmount  decimal.Decimal
		CurrentAmount decimal.Decimal
		TargetDate    time.Time
		Category      string
		IsCompleted   bool
		OwnerID       string
	}

	User struct {
		ID    string
		Name  string
		Email string
	}
)

var (
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrInvalidType      = errors.New("invalid transaction type")
	ErrInvalidPeriod    = errors.New("invalid budget period")
	ErrInvalidThreshold = errors.New("invalid alert threshold")
	ErrInvalidWindow    = errors.New("end date must be after start date")
	ErrEmptyTitle       = errors.New("empty title")
	ErrEmptyCategory    = errors.New("empty category")
	ErrMissingOwner     = errors.New("missing owner")
)

// ParseFrequency resolves a raw frequency string to a closed Frequency value.
// Unknown or empty input resolves to Monthly, so downstream date arithmetic
// never sees an open value.
func ParseFrequency(s string) Frequency {
	switch Frequency(strings.ToLower(strings.TrimSpace(s))) {
	case Daily:
		return Daily
	case Weekly:
		return Weekly
	case Monthly:
		return Monthly
	case Yearly:
		return Yearly
	default:
		return Monthly
	}
}

func (t Transaction) Validate() error {
	if len(strings.TrimSpace(t.Title)) == 0 {
		return ErrEmptyTitle
	}
	if t.Amount.IsNegative() {
		return ErrInvalidAmount
	}
	if t.Type != Income && t.Type != Expense {
		return ErrInvalidType
	}
	if strings.TrimSpace(t.Category) == "" {
		return ErrEmptyCategory
	}
	if t.OwnerID == "" {
		return ErrMissingOwner
	}
	return nil
}

func (b Budget) Validate() error {
	if strings.TrimSpace(b.Category) == "" {
		return ErrEmptyCategory
	}
	if b.Amount.IsNegative() {
		return ErrInvalidAmount
	}
	if b.Period != PeriodMonthly && b.Period != PeriodYearly {
		return ErrInvalidPeriod
	}
	if !b.EndDate.After(b.StartDate) {
		return ErrInvalidWindow
	}
	if b.AlertThreshold < 0 || b.AlertThreshold > 100 {
		return ErrInvalidThreshold
	}
	if b.OwnerID == "" {
		return ErrMissingOwner
	}
	return nil
}

// Overlaps reports whether two budget windows intersect. Active budgets for
// the same owner+category must not overlap; the CRUD layer enforces this at
// creation time, the sweeps assume it holds.
func (b Budget) Overlaps(other Budget) bool {
	return !b.StartDate.After(other.EndDate) && !other.StartDate.After(b.EndDate)
}

func (g Goal) Validate() error {
	if len(strings.TrimSpace(g.Title)) == 0 {
		return ErrEmptyTitle
	}
	if g.TargetAmount.IsNegative() {
		return ErrInvalidAmount
	}
	if g.CurrentAmount.IsNegative() {
		return ErrInvalidAmount
	}
	if g.OwnerID == "" {
		return ErrMissingOwner
	}
	return nil
}

// ProgressPercentage returns how far the goal has progressed toward its
// target, capped at 100.
func (g Goal) ProgressPercentage() float64 {
	if g.TargetAmount.IsZero() {
		return 0
	}
	pct, _ := g.CurrentAmount.Div(g.TargetAmount).Mul(decimal.NewFromInt(100)).Float64()
	if pct > 100 {
		return 100
	}
	return pct
}

// Achieved reports whether the goal's saved amount has reached its target.
func (g Goal) Achieved() bool {
	return g.CurrentAmount.GreaterThanOrEqual(g.TargetAmount)
}

// SyncCompletion recomputes the cached IsCompleted flag from CurrentAmount
// and reports whether it changed. The create/edit path uses this in both
// directions; the background sweep only ever flips false to true.
func (g *Goal) SyncCompletion() bool {
	completed := g.Achieved()
	if completed == g.IsCompleted {
		return false
	}
	g.IsCompleted = completed
	return true
}
