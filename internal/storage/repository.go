package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"fintrack/internal/core"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("not found")

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// CreateUser inserts a user, assigning an ID when the caller left it empty.
func (r *SQLiteRepository) CreateUser(ctx context.Context, u core.User) (string, error) {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (id, name, email) VALUES (?, ?, ?)`,
		u.ID, u.Name, u.Email)
	if err != nil {
		return "", fmt.Errorf("create user: %w", err)
	}
	return u.ID, nil
}

// FindUser returns the user with the given id, or ErrNotFound.
func (r *SQLiteRepository) FindUser(ctx context.Context, id string) (*core.User, error) {
	var u core.User
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, email FROM users WHERE id = ?`, id).
		Scan(&u.ID, &u.Name, &u.Email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("find user %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find user %s: %w", id, err)
	}
	return &u, nil
}

// ListUsers returns all users, ordered by creation.
func (r *SQLiteRepository) ListUsers(ctx context.Context) ([]core.User, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, email FROM users ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []core.User
	for rows.Next() {
		var u core.User
		if err := rows.Scan(&u.ID, &u.Name, &u.Email); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}
	return users, nil
}

// CreateTransaction inserts a transaction, assigning an ID when the caller
// left it empty, and returns the stored ID.
func (r *SQLiteRepository) CreateTransaction(ctx context.Context, t core.Transaction) (string, error) {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO transactions
		   (id, title, amount, type, category, date, recurring, frequency, next_due_date, note, owner_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.Title, t.Amount.String(), string(t.Type), t.Category,
		t.Date.UTC(), boolToInt(t.Recurring), string(t.Frequency),
		nullableTime(t.NextDueDate), t.Note, t.OwnerID)
	if err != nil {
		return "", fmt.Errorf("create transaction: %w", err)
	}

	slog.DebugContext(ctx, "Transaction saved",
		"transaction_id", t.ID,
		"category", t.Category,
		"amount", t.Amount.String(),
		"recurring", t.Recurring)

	return t.ID, nil
}

// SaveTransaction updates the mutable fields of an existing transaction.
// The materializer uses it to advance a template's next due date.
func (r *SQLiteRepository) SaveTransaction(ctx context.Context, t core.Transaction) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE transactions
		    SET title = ?, amount = ?, type = ?, category = ?, date = ?,
		        recurring = ?, frequency = ?, next_due_date = ?, note = ?
		  WHERE id = ?`,
		t.Title, t.Amount.String(), string(t.Type), t.Category, t.Date.UTC(),
		boolToInt(t.Recurring), string(t.Frequency), nullableTime(t.NextDueDate),
		t.Note, t.ID)
	if err != nil {
		return fmt.Errorf("save transaction %s: %w", t.ID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("save transaction %s: %w", t.ID, ErrNotFound)
	}
	return nil
}

// FindDueRecurring returns recurring templates whose next due date falls in
// the half-open window [w.From, w.To).
func (r *SQLiteRepository) FindDueRecurring(ctx context.Context, w core.DayWindow) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, title, amount, type, category, date, recurring, frequency, next_due_date, note, owner_id
		   FROM transactions
		  WHERE recurring = 1
		    AND next_due_date IS NOT NULL
		    AND next_due_date >= ?
		    AND next_due_date < ?
		  ORDER BY next_due_date`,
		w.From.UTC(), w.To.UTC())
	if err != nil {
		return nil, fmt.Errorf("find due recurring: %w", err)
	}
	defer rows.Close()

	return scanTransactions(rows)
}

// AggregateExpenseSum sums expense amounts for one owner+category inside the
// inclusive date range [from, to]. Summation happens on decimals in Go so
// the result never picks up float drift from SQLite.
func (r *SQLiteRepository) AggregateExpenseSum(ctx context.Context, ownerID, category string, from, to time.Time) (decimal.Decimal, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT amount FROM transactions
		  WHERE owner_id = ? AND type = 'expense' AND category = ?
		    AND date >= ? AND date <= ?`,
		ownerID, category, from.UTC(), to.UTC())
	if err != nil {
		return decimal.Zero, fmt.Errorf("aggregate expense sum: %w", err)
	}
	defer rows.Close()

	sum := decimal.Zero
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return decimal.Zero, fmt.Errorf("scan amount: %w", err)
		}
		amount, err := decimal.NewFromString(raw)
		if err != nil {
			return decimal.Zero, fmt.Errorf("parse amount %q: %w", raw, err)
		}
		sum = sum.Add(amount)
	}
	if err := rows.Err(); err != nil {
		return decimal.Zero, fmt.Errorf("iterate amounts: %w", err)
	}
	return sum, nil
}

// MonthlySummary aggregates one owner's income, expense and transaction
// count for the month containing ref.
func (r *SQLiteRepository) MonthlySummary(ctx context.Context, ownerID string, ref time.Time) (core.MonthlySummary, error) {
	from := time.Date(ref.Year(), ref.Month(), 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0)

	rows, err := r.db.QueryContext(ctx,
		`SELECT amount, type FROM transactions
		  WHERE owner_id = ? AND date >= ? AND date < ?`,
		ownerID, from, to)
	if err != nil {
		return core.MonthlySummary{}, fmt.Errorf("monthly summary: %w", err)
	}
	defer rows.Close()

	summary := core.MonthlySummary{
		Year:         from.Year(),
		Month:        from.Month(),
		TotalIncome:  decimal.Zero,
		TotalExpense: decimal.Zero,
	}
	for rows.Next() {
		var raw, kind string
		if err := rows.Scan(&raw, &kind); err != nil {
			return core.MonthlySummary{}, fmt.Errorf("scan summary row: %w", err)
		}
		amount, err := decimal.NewFromString(raw)
		if err != nil {
			return core.MonthlySummary{}, fmt.Errorf("parse amount %q: %w", raw, err)
		}
		switch core.TransactionType(kind) {
		case core.Income:
			summary.TotalIncome = summary.TotalIncome.Add(amount)
		case core.Expense:
			summary.TotalExpense = summary.TotalExpense.Add(amount)
		}
		summary.TransactionCount++
	}
	if err := rows.Err(); err != nil {
		return core.MonthlySummary{}, fmt.Errorf("iterate summary rows: %w", err)
	}
	return summary, nil
}

// CreateBudget inserts a budget, assigning an ID when the caller left it
// empty, and returns the stored ID.
func (r *SQLiteRepository) CreateBudget(ctx context.Context, b core.Budget) (string, error) {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO budgets
		   (id, category, amount, period, start_date, end_date, alert_threshold, is_active, owner_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.ID, b.Category, b.Amount.String(), string(b.Period),
		b.StartDate.UTC(), b.EndDate.UTC(), b.AlertThreshold,
		boolToInt(b.IsActive), b.OwnerID)
	if err != nil {
		return "", fmt.Errorf("create budget: %w", err)
	}
	return b.ID, nil
}

// FindActiveBudgets returns every active budget across all owners.
func (r *SQLiteRepository) FindActiveBudgets(ctx context.Context) ([]core.Budget, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, category, amount, period, start_date, end_date, alert_threshold, is_active, owner_id
		   FROM budgets
		  WHERE is_active = 1
		  ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("find active budgets: %w", err)
	}
	defer rows.Close()

	var budgets []core.Budget
	for rows.Next() {
		var (
			b         core.Budget
			amount    string
			period    string
			active    int
			startDate time.Time
			endDate   time.Time
		)
		if err := rows.Scan(&b.ID, &b.Category, &amount, &period, &startDate, &endDate,
			&b.AlertThreshold, &active, &b.OwnerID); err != nil {
			return nil, fmt.Errorf("scan budget: %w", err)
		}
		b.Amount, err = decimal.NewFromString(amount)
		if err != nil {
			return nil, fmt.Errorf("parse budget amount %q: %w", amount, err)
		}
		b.Period = core.BudgetPeriod(period)
		b.StartDate = startDate
		b.EndDate = endDate
		b.IsActive = active != 0
		budgets = append(budgets, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate budgets: %w", err)
	}
	return budgets, nil
}

// CreateGoal inserts a goal, assigning an ID when the caller left it empty,
// and returns the stored ID.
func (r *SQLiteRepository) CreateGoal(ctx context.Context, g core.Goal) (string, error) {
	if g.ID == "" {
		g.ID = uuid.NewString()
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO goals
		   (id, title, target_amount, current_amount, target_date, category, is_completed, owner_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		g.ID, g.Title, g.TargetAmount.String(), g.CurrentAmount.String(),
		g.TargetDate.UTC(), g.Category, boolToInt(g.IsCompleted), g.OwnerID)
	if err != nil {
		return "", fmt.Errorf("create goal: %w", err)
	}
	return g.ID, nil
}

// SaveGoal updates the mutable fields of an existing goal. The completion
// sweep uses it to persist the flipped flag.
func (r *SQLiteRepository) SaveGoal(ctx context.Context, g core.Goal) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE goals
		    SET title = ?, target_amount = ?, current_amount = ?, target_date = ?,
		        category = ?, is_completed = ?
		  WHERE id = ?`,
		g.Title, g.TargetAmount.String(), g.CurrentAmount.String(),
		g.TargetDate.UTC(), g.Category, boolToInt(g.IsCompleted), g.ID)
	if err != nil {
		return fmt.Errorf("save goal %s: %w", g.ID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("save goal %s: %w", g.ID, ErrNotFound)
	}
	return nil
}

// FindIncompleteGoals returns every goal not yet marked completed.
func (r *SQLiteRepository) FindIncompleteGoals(ctx context.Context) ([]core.Goal, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, title, target_amount, current_amount, target_date, category, is_completed, owner_id
		   FROM goals
		  WHERE is_completed = 0
		  ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("find incomplete goals: %w", err)
	}
	defer rows.Close()

	var goals []core.Goal
	for rows.Next() {
		var (
			g          core.Goal
			target     string
			current    string
			completed  int
			targetDate time.Time
		)
		if err := rows.Scan(&g.ID, &g.Title, &target, &current, &targetDate,
			&g.Category, &completed, &g.OwnerID); err != nil {
			return nil, fmt.Errorf("scan goal: %w", err)
		}
		if g.TargetAmount, err = decimal.NewFromString(target); err != nil {
			return nil, fmt.Errorf("parse target amount %q: %w", target, err)
		}
		if g.CurrentAmount, err = decimal.NewFromString(current); err != nil {
			return nil, fmt.Errorf("parse current amount %q: %w", current, err)
		}
		g.TargetDate = targetDate
		g.IsCompleted = completed != 0
		goals = append(goals, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate goals: %w", err)
	}
	return goals, nil
}

func scanTransactions(rows *sql.Rows) ([]core.Transaction, error) {
	var txs []core.Transaction
	for rows.Next() {
		var (
			t         core.Transaction
			amount    string
			kind      string
			recurring int
			frequency string
			nextDue   sql.NullTime
		)
		if err := rows.Scan(&t.ID, &t.Title, &amount, &kind, &t.Category, &t.Date,
			&recurring, &frequency, &nextDue, &t.Note, &t.OwnerID); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		parsed, err := decimal.NewFromString(amount)
		if err != nil {
			return nil, fmt.Errorf("parse amount %q: %w", amount, err)
		}
		t.Amount = parsed
		t.Type = core.TransactionType(kind)
		t.Recurring = recurring != 0
		t.Frequency = core.ParseFrequency(frequency)
		if nextDue.Valid {
			t.NextDueDate = nextDue.Time
		}
		txs = append(txs, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return txs, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullableTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC()
}
