package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
	"fintrack/internal/notify"
)

// fakeStore backs every sweep in tests. Errors are injected per entity ID
// so a single test can fail one row and leave the rest healthy.
type fakeStore struct {
	mu sync.Mutex

	templates []core.Transaction
	budgets   []core.Budget
	goals     []core.Goal
	users     map[string]core.User
	spend     map[string]decimal.Decimal // budget category -> spent
	summaries map[string]core.MonthlySummary

	created     []core.Transaction
	saved       []core.Transaction
	flipped     []core.Goal
	summaryRefs []time.Time

	findErr   error
	createErr map[string]error // keyed by template title
	saveErr   map[string]error // keyed by transaction / goal ID
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:     make(map[string]core.User),
		spend:     make(map[string]decimal.Decimal),
		summaries: make(map[string]core.MonthlySummary),
		createErr: make(map[string]error),
		saveErr:   make(map[string]error),
	}
}

func (s *fakeStore) FindDueRecurring(ctx context.Context, w core.DayWindow) ([]core.Transaction, error) {
	if s.findErr != nil {
		return nil, s.findErr
	}
	var due []core.Transaction
	for _, t := range s.templates {
		if w.Contains(t.NextDueDate) {
			due = append(due, t)
		}
	}
	return due, nil
}

func (s *fakeStore) CreateTransaction(ctx context.Context, t core.Transaction) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.createErr[t.Title]; err != nil {
		return "", err
	}
	t.ID = fmt.Sprintf("tx-%d", len(s.created)+1)
	s.created = append(s.created, t)
	return t.ID, nil
}

func (s *fakeStore) SaveTransaction(ctx context.Context, t core.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.saveErr[t.ID]; err != nil {
		return err
	}
	s.saved = append(s.saved, t)
	for i := range s.templates {
		if s.templates[i].ID == t.ID {
			s.templates[i] = t
		}
	}
	return nil
}

func (s *fakeStore) FindActiveBudgets(ctx context.Context) ([]core.Budget, error) {
	if s.findErr != nil {
		return nil, s.findErr
	}
	return s.budgets, nil
}

func (s *fakeStore) AggregateExpenseSum(ctx context.Context, ownerID, category string, from, to time.Time) (decimal.Decimal, error) {
	if spent, ok := s.spend[category]; ok {
		return spent, nil
	}
	return decimal.Zero, nil
}

func (s *fakeStore) FindIncompleteGoals(ctx context.Context) ([]core.Goal, error) {
	if s.findErr != nil {
		return nil, s.findErr
	}
	var incomplete []core.Goal
	for _, g := range s.goals {
		if !g.IsCompleted {
			incomplete = append(incomplete, g)
		}
	}
	return incomplete, nil
}

func (s *fakeStore) SaveGoal(ctx context.Context, g core.Goal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.saveErr[g.ID]; err != nil {
		return err
	}
	s.flipped = append(s.flipped, g)
	for i := range s.goals {
		if s.goals[i].ID == g.ID {
			s.goals[i] = g
		}
	}
	return nil
}

func (s *fakeStore) FindUser(ctx context.Context, id string) (*core.User, error) {
	u, ok := s.users[id]
	if !ok {
		return nil, fmt.Errorf("user %s not found", id)
	}
	return &u, nil
}

func (s *fakeStore) ListUsers(ctx context.Context) ([]core.User, error) {
	if s.findErr != nil {
		return nil, s.findErr
	}
	var users []core.User
	for _, u := range s.users {
		users = append(users, u)
	}
	return users, nil
}

func (s *fakeStore) MonthlySummary(ctx context.Context, ownerID string, ref time.Time) (core.MonthlySummary, error) {
	s.mu.Lock()
	s.summaryRefs = append(s.summaryRefs, ref)
	s.mu.Unlock()
	if sum, ok := s.summaries[ownerID]; ok {
		return sum, nil
	}
	return core.MonthlySummary{Year: ref.Year(), Month: ref.Month()}, nil
}

// fakeDispatcher records every dispatch. Zero value reports Success; set
// skipped or err to exercise the other outcomes.
type fakeDispatcher struct {
	mu sync.Mutex

	alerts       []notify.BudgetAlertMessage
	achievements []core.Goal
	reports      []core.MonthlySummary

	skipped bool
	err     error
}

func (d *fakeDispatcher) result() (notify.Result, error) {
	if d.err != nil {
		return notify.Result{}, d.err
	}
	if d.skipped {
		return notify.Result{Skipped: true}, nil
	}
	return notify.Result{Success: true}, nil
}

func (d *fakeDispatcher) SendBudgetAlert(ctx context.Context, user core.User, budget core.Budget, status core.BudgetStatus) (notify.Result, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	res, err := d.result()
	if err != nil || res.Skipped {
		return res, err
	}
	d.alerts = append(d.alerts, notify.BudgetAlertMessage{
		UserID:         user.ID,
		Email:          user.Email,
		BudgetID:       budget.ID,
		Category:       budget.Category,
		Spent:          status.Spent,
		PercentageUsed: status.PercentageUsed,
		IsOverBudget:   status.IsOverBudget,
	})
	return res, nil
}

func (d *fakeDispatcher) SendGoalAchievement(ctx context.Context, user core.User, goal core.Goal) (notify.Result, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	res, err := d.result()
	if err != nil || res.Skipped {
		return res, err
	}
	d.achievements = append(d.achievements, goal)
	return res, nil
}

func (d *fakeDispatcher) SendMonthlyReport(ctx context.Context, user core.User, summary core.MonthlySummary) (notify.Result, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	res, err := d.result()
	if err != nil || res.Skipped {
		return res, err
	}
	d.reports = append(d.reports, summary)
	return res, nil
}
