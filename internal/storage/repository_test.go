package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func newTestUser(t *testing.T, repo *SQLiteRepository) string {
	t.Helper()
	id, err := repo.CreateUser(context.Background(), core.User{Name: "Ada", Email: "ada@example.com"})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	return id
}

func TestUserRoundTrip(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	id := newTestUser(t, repo)

	user, err := repo.FindUser(ctx, id)
	if err != nil {
		t.Fatalf("FindUser: %v", err)
	}
	if user.Name != "Ada" || user.Email != "ada@example.com" {
		t.Errorf("got user %+v", user)
	}

	if _, err := repo.FindUser(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("FindUser(missing) = %v, want ErrNotFound", err)
	}

	users, err := repo.ListUsers(ctx)
	if err != nil {
		t.Fatalf("ListUsers: %v", err)
	}
	if len(users) != 1 {
		t.Errorf("ListUsers returned %d users, want 1", len(users))
	}
}

func TestTransactionRoundTrip(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	owner := newTestUser(t, repo)

	due := time.Date(2025, time.March, 15, 0, 0, 0, 0, time.UTC)
	id, err := repo.CreateTransaction(ctx, core.Transaction{
		Title:       "Rent",
		Amount:      decimal.RequireFromString("950.50"),
		Type:        core.Expense,
		Category:    "housing",
		Date:        due.AddDate(0, -1, 0),
		Recurring:   true,
		Frequency:   core.Monthly,
		NextDueDate: due,
		OwnerID:     owner,
	})
	if err != nil {
		t.Fatalf("CreateTransaction: %v", err)
	}
	if id == "" {
		t.Fatal("CreateTransaction returned empty ID")
	}

	window := core.DayWindowOf(due)
	templates, err := repo.FindDueRecurring(ctx, window)
	if err != nil {
		t.Fatalf("FindDueRecurring: %v", err)
	}
	if len(templates) != 1 {
		t.Fatalf("found %d due templates, want 1", len(templates))
	}
	got := templates[0]
	if !got.Amount.Equal(decimal.RequireFromString("950.50")) {
		t.Errorf("amount = %s, want 950.50", got.Amount)
	}
	if got.Frequency != core.Monthly {
		t.Errorf("frequency = %q, want monthly", got.Frequency)
	}
	if !got.NextDueDate.Equal(due) {
		t.Errorf("next due = %v, want %v", got.NextDueDate, due)
	}

	got.NextDueDate = due.AddDate(0, 1, 0)
	if err := repo.SaveTransaction(ctx, got); err != nil {
		t.Fatalf("SaveTransaction: %v", err)
	}
	templates, err = repo.FindDueRecurring(ctx, window)
	if err != nil {
		t.Fatalf("FindDueRecurring after advance: %v", err)
	}
	if len(templates) != 0 {
		t.Errorf("advanced template still due: %d", len(templates))
	}
}

func TestFindDueRecurring_WindowIsHalfOpen(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	owner := newTestUser(t, repo)

	day := time.Date(2025, time.March, 15, 0, 0, 0, 0, time.UTC)
	for _, due := range []time.Time{
		day.Add(-time.Second),     // yesterday
		day,                       // midnight, included
		day.Add(23 * time.Hour),   // late in the day, included
		day.AddDate(0, 0, 1),      // next midnight, excluded
	} {
		_, err := repo.CreateTransaction(ctx, core.Transaction{
			Title:       "T",
			Amount:      decimal.NewFromInt(1),
			Type:        core.Expense,
			Category:    "c",
			Date:        due,
			Recurring:   true,
			Frequency:   core.Daily,
			NextDueDate: due,
			OwnerID:     owner,
		})
		if err != nil {
			t.Fatalf("CreateTransaction: %v", err)
		}
	}

	templates, err := repo.FindDueRecurring(ctx, core.DayWindowOf(day))
	if err != nil {
		t.Fatalf("FindDueRecurring: %v", err)
	}
	if len(templates) != 2 {
		t.Errorf("found %d templates in window, want 2", len(templates))
	}
}

func TestSaveTransaction_Missing(t *testing.T) {
	repo := newTestRepo(t)

	err := repo.SaveTransaction(context.Background(), core.Transaction{
		ID:     "missing",
		Title:  "X",
		Amount: decimal.NewFromInt(1),
	})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("SaveTransaction(missing) = %v, want ErrNotFound", err)
	}
}

func TestAggregateExpenseSum(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	owner := newTestUser(t, repo)

	from := time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, time.March, 31, 0, 0, 0, 0, time.UTC)

	rows := []struct {
		amount   string
		txType   core.TransactionType
		category string
		date     time.Time
	}{
		{"100.10", core.Expense, "groceries", from.AddDate(0, 0, 3)},
		{"50.20", core.Expense, "groceries", to},
		{"999", core.Expense, "groceries", to.AddDate(0, 0, 1)}, // outside window
		{"75", core.Expense, "transport", from.AddDate(0, 0, 5)},
		{"2000", core.Income, "groceries", from.AddDate(0, 0, 7)}, // income never counts
	}
	for _, row := range rows {
		_, err := repo.CreateTransaction(ctx, core.Transaction{
			Title:    "T",
			Amount:   decimal.RequireFromString(row.amount),
			Type:     row.txType,
			Category: row.category,
			Date:     row.date,
			OwnerID:  owner,
		})
		if err != nil {
			t.Fatalf("CreateTransaction: %v", err)
		}
	}

	sum, err := repo.AggregateExpenseSum(ctx, owner, "groceries", from, to)
	if err != nil {
		t.Fatalf("AggregateExpenseSum: %v", err)
	}
	if want := decimal.RequireFromString("150.30"); !sum.Equal(want) {
		t.Errorf("sum = %s, want %s", sum, want)
	}
}

func TestMonthlySummary(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	owner := newTestUser(t, repo)

	march := time.Date(2025, time.March, 10, 0, 0, 0, 0, time.UTC)
	entries := []struct {
		amount string
		txType core.TransactionType
		date   time.Time
	}{
		{"3000", core.Income, march},
		{"1200.50", core.Expense, march.AddDate(0, 0, 5)},
		{"99", core.Expense, march.AddDate(0, 1, 0)}, // april, excluded
	}
	for _, e := range entries {
		_, err := repo.CreateTransaction(ctx, core.Transaction{
			Title:    "T",
			Amount:   decimal.RequireFromString(e.amount),
			Type:     e.txType,
			Category: "misc",
			Date:     e.date,
			OwnerID:  owner,
		})
		if err != nil {
			t.Fatalf("CreateTransaction: %v", err)
		}
	}

	summary, err := repo.MonthlySummary(ctx, owner, march)
	if err != nil {
		t.Fatalf("MonthlySummary: %v", err)
	}
	if summary.Year != 2025 || summary.Month != time.March {
		t.Errorf("summary covers %d-%d, want 2025-3", summary.Year, int(summary.Month))
	}
	if summary.TransactionCount != 2 {
		t.Errorf("count = %d, want 2", summary.TransactionCount)
	}
	if !summary.TotalIncome.Equal(decimal.NewFromInt(3000)) {
		t.Errorf("income = %s, want 3000", summary.TotalIncome)
	}
	if want := decimal.RequireFromString("1200.50"); !summary.TotalExpense.Equal(want) {
		t.Errorf("expense = %s, want %s", summary.TotalExpense, want)
	}
}

func TestBudgetRoundTrip(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	owner := newTestUser(t, repo)

	active := core.Budget{
		Category:       "groceries",
		Amount:         decimal.NewFromInt(1000),
		Period:         core.PeriodMonthly,
		StartDate:      time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC),
		EndDate:        time.Date(2025, time.March, 31, 0, 0, 0, 0, time.UTC),
		AlertThreshold: 85,
		IsActive:       true,
		OwnerID:        owner,
	}
	if _, err := repo.CreateBudget(ctx, active); err != nil {
		t.Fatalf("CreateBudget: %v", err)
	}

	inactive := active
	inactive.Category = "old"
	inactive.IsActive = false
	if _, err := repo.CreateBudget(ctx, inactive); err != nil {
		t.Fatalf("CreateBudget: %v", err)
	}

	budgets, err := repo.FindActiveBudgets(ctx)
	if err != nil {
		t.Fatalf("FindActiveBudgets: %v", err)
	}
	if len(budgets) != 1 {
		t.Fatalf("found %d active budgets, want 1", len(budgets))
	}
	got := budgets[0]
	if got.Category != "groceries" || got.AlertThreshold != 85 {
		t.Errorf("got budget %+v", got)
	}
	if !got.Amount.Equal(decimal.NewFromInt(1000)) {
		t.Errorf("amount = %s, want 1000", got.Amount)
	}
}

func TestGoalRoundTrip(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	owner := newTestUser(t, repo)

	id, err := repo.CreateGoal(ctx, core.Goal{
		Title:         "Emergency fund",
		TargetAmount:  decimal.NewFromInt(5000),
		CurrentAmount: decimal.NewFromInt(4800),
		Category:      "savings",
		OwnerID:       owner,
	})
	if err != nil {
		t.Fatalf("CreateGoal: %v", err)
	}
	if id == "" {
		t.Fatal("CreateGoal returned empty ID")
	}

	goals, err := repo.FindIncompleteGoals(ctx)
	if err != nil {
		t.Fatalf("FindIncompleteGoals: %v", err)
	}
	if len(goals) != 1 {
		t.Fatalf("found %d incomplete goals, want 1", len(goals))
	}

	goal := goals[0]
	goal.CurrentAmount = decimal.NewFromInt(5000)
	goal.IsCompleted = true
	if err := repo.SaveGoal(ctx, goal); err != nil {
		t.Fatalf("SaveGoal: %v", err)
	}

	goals, err = repo.FindIncompleteGoals(ctx)
	if err != nil {
		t.Fatalf("FindIncompleteGoals after completion: %v", err)
	}
	if len(goals) != 0 {
		t.Errorf("completed goal still listed as incomplete")
	}

	if err := repo.SaveGoal(ctx, core.Goal{ID: "missing", Title: "X", TargetAmount: decimal.NewFromInt(1)}); !errors.Is(err, ErrNotFound) {
		t.Errorf("SaveGoal(missing) = %v, want ErrNotFound", err)
	}
}
