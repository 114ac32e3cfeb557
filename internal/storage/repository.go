package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"ledger/internal/core"

	_ "modernc.org/sqlite"
)

// busyTimeoutMs lets the CLI and the worker share one database file.
const busyTimeoutMs = 5000

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
	tx      *sql.Tx
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", fmt.Sprintf("%s?_pragma=busy_timeout(%d)", dbPath, busyTimeoutMs))
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// One connection: operations are sequential and a transaction must see its own writes.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.tx != nil {
		return errors.New("close called on a transaction-scoped repository")
	}
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// WithinTx runs fn against a repository bound to a single transaction.
// The transaction commits when fn returns nil and rolls back on error or panic.
// Calls nested inside fn join the outer transaction.
func (r *SQLiteRepository) WithinTx(ctx context.Context, fn func(tx *SQLiteRepository) error) (err error) {
	if r.tx != nil {
		return fn(r)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return core.NewStorageError("begin transaction", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				slog.ErrorContext(ctx, "Failed to roll back transaction", "error", rbErr, "cause", err)
			}
			return
		}
		if cErr := tx.Commit(); cErr != nil {
			err = core.NewStorageError("commit transaction", cErr)
		}
	}()

	return fn(&SQLiteRepository{
		db:      r.db,
		queries: r.queries.WithTx(tx),
		tx:      tx,
	})
}

// notFoundOr maps sql.ErrNoRows to a NotFoundError and anything else to a StorageError.
func notFoundOr(err error, entity string, key any, op string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return core.NewNotFoundError(entity, key)
	}
	return core.NewStorageError(op, err)
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullID(id int64) sql.NullInt64 {
	return sql.NullInt64{Int64: id, Valid: id != 0}
}

// Expenses

func (r *SQLiteRepository) CreateExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	row, err := r.queries.CreateExpense(ctx, CreateExpenseParams{
		Category:    e.Category,
		Amount:      e.Amount.Float64(),
		Description: nullString(e.Description),
		GoalID:      nullID(e.GoalID),
	})
	if err != nil {
		return core.Expense{}, core.NewStorageError("create expense", err)
	}

	slog.DebugContext(ctx, "Expense saved to SQLite",
		"id", row.ID,
		"category", row.Category,
		"amount", row.Amount)

	return toCoreExpense(row)
}

func (r *SQLiteRepository) GetExpense(ctx context.Context, id int64) (core.Expense, error) {
	row, err := r.queries.GetExpense(ctx, id)
	if err != nil {
		return core.Expense{}, notFoundOr(err, "expense", id, "get expense")
	}
	return toCoreExpense(row)
}

// ListExpenses returns expenses in insertion order, filtered by exact category when category is not empty.
func (r *SQLiteRepository) ListExpenses(ctx context.Context, category string) ([]core.Expense, error) {
	var (
		rows []Expense
		err  error
	)
	if category == "" {
		rows, err = r.queries.ListExpenses(ctx)
	} else {
		rows, err = r.queries.ListExpensesByCategory(ctx, category)
	}
	if err != nil {
		return nil, core.NewStorageError("list expenses", err)
	}

	expenses := make([]core.Expense, len(rows))
	for i, row := range rows {
		if expenses[i], err = toCoreExpense(row); err != nil {
			return nil, err
		}
	}
	return expenses, nil
}

func (r *SQLiteRepository) UpdateExpenseAmount(ctx context.Context, id int64, amount core.Money) error {
	n, err := r.queries.UpdateExpenseAmount(ctx, UpdateExpenseAmountParams{
		Amount: amount.Float64(),
		ID:     id,
	})
	if err != nil {
		return core.NewStorageError("update expense amount", err)
	}
	if n == 0 {
		return core.NewNotFoundError("expense", id)
	}
	return nil
}

func (r *SQLiteRepository) DeleteExpense(ctx context.Context, id int64) error {
	n, err := r.queries.DeleteExpense(ctx, id)
	if err != nil {
		return core.NewStorageError("delete expense", err)
	}
	if n == 0 {
		return core.NewNotFoundError("expense", id)
	}
	return nil
}

func (r *SQLiteRepository) DeleteExpensesByCategory(ctx context.Context, category string) (int64, error) {
	n, err := r.queries.DeleteExpensesByCategory(ctx, category)
	if err != nil {
		return 0, core.NewStorageError("delete expenses by category", err)
	}
	return n, nil
}

func (r *SQLiteRepository) DetachExpensesFromGoal(ctx context.Context, goalID int64) (int64, error) {
	n, err := r.queries.DetachExpensesFromGoal(ctx, nullID(goalID))
	if err != nil {
		return 0, core.NewStorageError("detach expenses from goal", err)
	}
	return n, nil
}

func (r *SQLiteRepository) SumExpensesByCategory(ctx context.Context, category string) (core.Money, error) {
	total, err := r.queries.SumExpensesByCategory(ctx, category)
	if err != nil {
		return core.Money{}, core.NewStorageError("sum expenses", err)
	}
	return readMoney(total, "sum expenses")
}

// Income

func (r *SQLiteRepository) CreateIncome(ctx context.Context, in core.Income) (core.Income, error) {
	row, err := r.queries.CreateIncome(ctx, CreateIncomeParams{
		Category:    in.Category,
		Amount:      in.Amount.Float64(),
		Description: nullString(in.Description),
	})
	if err != nil {
		return core.Income{}, core.NewStorageError("create income", err)
	}

	slog.DebugContext(ctx, "Income saved to SQLite",
		"id", row.ID,
		"category", row.Category,
		"amount", row.Amount)

	return toCoreIncome(row)
}

func (r *SQLiteRepository) ListIncome(ctx context.Context, category string) ([]core.Income, error) {
	var (
		rows []Income
		err  error
	)
	if category == "" {
		rows, err = r.queries.ListIncome(ctx)
	} else {
		rows, err = r.queries.ListIncomeByCategory(ctx, category)
	}
	if err != nil {
		return nil, core.NewStorageError("list income", err)
	}

	income := make([]core.Income, len(rows))
	for i, row := range rows {
		if income[i], err = toCoreIncome(row); err != nil {
			return nil, err
		}
	}
	return income, nil
}

func (r *SQLiteRepository) DeleteIncome(ctx context.Context, id int64) error {
	n, err := r.queries.DeleteIncome(ctx, id)
	if err != nil {
		return core.NewStorageError("delete income", err)
	}
	if n == 0 {
		return core.NewNotFoundError("income", id)
	}
	return nil
}

func (r *SQLiteRepository) DeleteIncomeByCategory(ctx context.Context, category string) (int64, error) {
	n, err := r.queries.DeleteIncomeByCategory(ctx, category)
	if err != nil {
		return 0, core.NewStorageError("delete income by category", err)
	}
	return n, nil
}

// Budgets

func (r *SQLiteRepository) CreateBudget(ctx context.Context, b core.Budget) (core.Budget, error) {
	row, err := r.queries.CreateBudget(ctx, CreateBudgetParams{
		Category: b.Category,
		Budget:   b.Limit.Float64(),
	})
	if err != nil {
		return core.Budget{}, core.NewStorageError("create budget", err)
	}
	return toCoreBudget(row)
}

func (r *SQLiteRepository) UpdateBudgetLimit(ctx context.Context, id int64, limit core.Money) error {
	n, err := r.queries.UpdateBudget(ctx, UpdateBudgetParams{
		Budget: limit.Float64(),
		ID:     id,
	})
	if err != nil {
		return core.NewStorageError("update budget", err)
	}
	if n == 0 {
		return core.NewNotFoundError("budget", id)
	}
	return nil
}

func (r *SQLiteRepository) GetBudget(ctx context.Context, id int64) (core.Budget, error) {
	row, err := r.queries.GetBudget(ctx, id)
	if err != nil {
		return core.Budget{}, notFoundOr(err, "budget", id, "get budget")
	}
	return toCoreBudget(row)
}

func (r *SQLiteRepository) FindBudgetByCategory(ctx context.Context, category string) (core.Budget, error) {
	row, err := r.queries.GetBudgetByCategory(ctx, category)
	if err != nil {
		return core.Budget{}, notFoundOr(err, "budget for category", category, "get budget by category")
	}
	return toCoreBudget(row)
}

func (r *SQLiteRepository) ListBudgets(ctx context.Context) ([]core.Budget, error) {
	rows, err := r.queries.ListBudgets(ctx)
	if err != nil {
		return nil, core.NewStorageError("list budgets", err)
	}

	budgets := make([]core.Budget, len(rows))
	for i, row := range rows {
		if budgets[i], err = toCoreBudget(row); err != nil {
			return nil, err
		}
	}
	return budgets, nil
}

// Goals

func (r *SQLiteRepository) CreateGoal(ctx context.Context, g core.Goal) (core.Goal, error) {
	row, err := r.queries.CreateGoal(ctx, CreateGoalParams{
		GoalName:     g.Name,
		TargetAmount: g.Target.Float64(),
	})
	if err != nil {
		return core.Goal{}, core.NewStorageError("create goal", err)
	}
	return toCoreGoal(row)
}

func (r *SQLiteRepository) GetGoal(ctx context.Context, id int64) (core.Goal, error) {
	row, err := r.queries.GetGoal(ctx, id)
	if err != nil {
		return core.Goal{}, notFoundOr(err, "goal", id, "get goal")
	}
	return toCoreGoal(row)
}

// FindGoalByName returns the oldest goal with exactly this name.
func (r *SQLiteRepository) FindGoalByName(ctx context.Context, name string) (core.Goal, error) {
	row, err := r.queries.GetGoalByName(ctx, name)
	if err != nil {
		return core.Goal{}, notFoundOr(err, "goal named", name, "get goal by name")
	}
	return toCoreGoal(row)
}

func (r *SQLiteRepository) ListGoals(ctx context.Context) ([]core.Goal, error) {
	rows, err := r.queries.ListGoals(ctx)
	if err != nil {
		return nil, core.NewStorageError("list goals", err)
	}

	goals := make([]core.Goal, len(rows))
	for i, row := range rows {
		if goals[i], err = toCoreGoal(row); err != nil {
			return nil, err
		}
	}
	return goals, nil
}

func (r *SQLiteRepository) SetGoalCurrent(ctx context.Context, id int64, current core.Money) error {
	n, err := r.queries.SetGoalCurrentAmount(ctx, SetGoalCurrentAmountParams{
		CurrentAmount: sql.NullFloat64{Float64: current.Float64(), Valid: true},
		ID:            id,
	})
	if err != nil {
		return core.NewStorageError("update goal amount", err)
	}
	if n == 0 {
		return core.NewNotFoundError("goal", id)
	}
	return nil
}

func (r *SQLiteRepository) DeleteGoal(ctx context.Context, id int64) error {
	n, err := r.queries.DeleteGoal(ctx, id)
	if err != nil {
		return core.NewStorageError("delete goal", err)
	}
	if n == 0 {
		return core.NewNotFoundError("goal", id)
	}
	return nil
}

// readMoney converts a REAL column, reporting values outside the cents range as storage errors.
func readMoney(f float64, op string) (core.Money, error) {
	m, err := core.MoneyFromFloat(f)
	if err != nil {
		return core.Money{}, core.NewStorageError(op, err)
	}
	return m, nil
}

func toCoreExpense(e Expense) (core.Expense, error) {
	amount, err := readMoney(e.Amount, "read expense")
	if err != nil {
		return core.Expense{}, err
	}
	return core.Expense{
		ID:          e.ID,
		Category:    e.Category,
		Amount:      amount,
		Description: e.Description.String,
		GoalID:      e.GoalID.Int64,
	}, nil
}

func toCoreIncome(i Income) (core.Income, error) {
	amount, err := readMoney(i.Amount, "read income")
	if err != nil {
		return core.Income{}, err
	}
	return core.Income{
		ID:          i.ID,
		Category:    i.Category,
		Amount:      amount,
		Description: i.Description.String,
	}, nil
}

func toCoreBudget(b Budget) (core.Budget, error) {
	limit, err := readMoney(b.Budget, "read budget")
	if err != nil {
		return core.Budget{}, err
	}
	return core.Budget{
		ID:       b.ID,
		Category: b.Category,
		Limit:    limit,
	}, nil
}

// A NULL current_amount (possible in databases written before migrations) reads as zero.
func toCoreGoal(g Goal) (core.Goal, error) {
	target, err := readMoney(g.TargetAmount, "read goal")
	if err != nil {
		return core.Goal{}, err
	}
	current, err := readMoney(g.CurrentAmount.Float64, "read goal")
	if err != nil {
		return core.Goal{}, err
	}
	return core.Goal{
		ID:      g.ID,
		Name:    g.GoalName,
		Target:  target,
		Current: current,
	}, nil
}
