package storage

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledger/internal/core"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestNewSQLiteRepository_MigratesTwice(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "ledger.db")

	repo, err := NewSQLiteRepository(path)
	require.NoError(t, err)
	require.NoError(t, repo.Close())

	repo, err = NewSQLiteRepository(path)
	require.NoError(t, err, "reopening an up-to-date database must not fail")
	require.NoError(t, repo.Close())
}

func TestNewSQLiteRepository_AdoptsLegacySchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "budget_tracker.db")

	legacy, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	for _, stmt := range []string{
		`CREATE TABLE expenses (id INTEGER PRIMARY KEY, category TEXT NOT NULL, amount REAL NOT NULL, description TEXT)`,
		`CREATE TABLE income (id INTEGER PRIMARY KEY, category TEXT NOT NULL, amount REAL NOT NULL, description TEXT)`,
		`CREATE TABLE budgets (id INTEGER PRIMARY KEY, category TEXT NOT NULL, budget REAL NOT NULL)`,
		`CREATE TABLE goals (id INTEGER PRIMARY KEY, goal_name TEXT NOT NULL, target_amount REAL NOT NULL, current_amount REAL DEFAULT 0)`,
		`INSERT INTO goals (goal_name, target_amount) VALUES ('Rent', 1000)`,
		`INSERT INTO expenses (category, amount, description) VALUES ('Rent', 300, '')`,
		`INSERT INTO expenses (category, amount, description) VALUES ('Food', 12.5, 'lunch')`,
		`INSERT INTO budgets (category, budget) VALUES ('Food', 100)`,
		`INSERT INTO budgets (category, budget) VALUES ('Food', 100)`,
	} {
		_, err := legacy.Exec(stmt)
		require.NoError(t, err, stmt)
	}
	require.NoError(t, legacy.Close())

	repo, err := NewSQLiteRepository(path)
	require.NoError(t, err)
	defer repo.Close()

	ctx := context.Background()

	budgets, err := repo.ListBudgets(ctx)
	require.NoError(t, err)
	require.Len(t, budgets, 1, "duplicate budgets collapse to one per category")
	assert.Equal(t, int64(1), budgets[0].ID)

	expenses, err := repo.ListExpenses(ctx, "")
	require.NoError(t, err)
	require.Len(t, expenses, 2)
	assert.Equal(t, int64(1), expenses[0].GoalID, "expense named after a goal is linked by migration")
	assert.Equal(t, int64(0), expenses[1].GoalID)
	assert.Equal(t, int64(1250), expenses[1].Amount.Cents)

	goal, err := repo.GetGoal(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(0), goal.Current.Cents)
}

func TestExpenseCRUD(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	first, err := repo.CreateExpense(ctx, core.Expense{Category: "Food", Amount: core.Money{Cents: 1999}, Description: "groceries"})
	require.NoError(t, err)
	second, err := repo.CreateExpense(ctx, core.Expense{Category: "Travel", Amount: core.Money{Cents: 5000}})
	require.NoError(t, err)
	assert.Greater(t, second.ID, first.ID)

	all, err := repo.ListExpenses(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, first.ID, all[0].ID)
	assert.Equal(t, "groceries", all[0].Description)
	assert.Equal(t, "", all[1].Description)

	food, err := repo.ListExpenses(ctx, "Food")
	require.NoError(t, err)
	require.Len(t, food, 1)

	none, err := repo.ListExpenses(ctx, "food")
	require.NoError(t, err)
	assert.Empty(t, none, "category match is exact")

	require.NoError(t, repo.UpdateExpenseAmount(ctx, first.ID, core.Money{Cents: 2500}))
	got, err := repo.GetExpense(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2500), got.Amount.Cents)

	err = repo.UpdateExpenseAmount(ctx, 999, core.Money{Cents: 1})
	assert.True(t, errors.Is(err, core.ErrNotFound))

	require.NoError(t, repo.DeleteExpense(ctx, first.ID))
	_, err = repo.GetExpense(ctx, first.ID)
	assert.True(t, errors.Is(err, core.ErrNotFound))

	total, err := repo.SumExpensesByCategory(ctx, "Travel")
	require.NoError(t, err)
	assert.Equal(t, int64(5000), total.Cents)

	total, err = repo.SumExpensesByCategory(ctx, "Nothing")
	require.NoError(t, err)
	assert.True(t, total.IsZero())
}

func TestBudgetCategoryIsUnique(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	_, err := repo.CreateBudget(ctx, core.Budget{Category: "Food", Limit: core.Money{Cents: 100}})
	require.NoError(t, err)

	_, err = repo.CreateBudget(ctx, core.Budget{Category: "Food", Limit: core.Money{Cents: 200}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrStorage))
}

func TestWithinTx_RollsBackOnError(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := repo.WithinTx(ctx, func(tx *SQLiteRepository) error {
		if _, err := tx.CreateExpense(ctx, core.Expense{Category: "Food", Amount: core.Money{Cents: 100}}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	all, err := repo.ListExpenses(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, all, "rolled back insert must not be visible")
}

func TestWithinTx_RollsBackOnPanic(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	assert.Panics(t, func() {
		_ = repo.WithinTx(ctx, func(tx *SQLiteRepository) error {
			_, _ = tx.CreateGoal(ctx, core.Goal{Name: "Car", Target: core.Money{Cents: 100}})
			panic("unexpected")
		})
	})

	goals, err := repo.ListGoals(ctx)
	require.NoError(t, err)
	assert.Empty(t, goals)
}

func TestWithinTx_Commits(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	var goalID int64
	err := repo.WithinTx(ctx, func(tx *SQLiteRepository) error {
		g, err := tx.CreateGoal(ctx, core.Goal{Name: "Car", Target: core.Money{Cents: 100000}})
		if err != nil {
			return err
		}
		goalID = g.ID
		// nested call joins the same transaction
		return tx.WithinTx(ctx, func(inner *SQLiteRepository) error {
			return inner.SetGoalCurrent(ctx, g.ID, core.Money{Cents: 2500})
		})
	})
	require.NoError(t, err)

	g, err := repo.GetGoal(ctx, goalID)
	require.NoError(t, err)
	assert.Equal(t, int64(2500), g.Current.Cents)
}

func TestOutOfRangeAmountsAreStorageErrors(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	g, err := repo.CreateGoal(ctx, core.Goal{Name: "Big", Target: core.Money{Cents: 100}})
	require.NoError(t, err)
	_, err = repo.CreateExpense(ctx, core.Expense{Category: "Big", Amount: core.Money{Cents: 100}})
	require.NoError(t, err)

	// Written by another program: far beyond int64 cents.
	_, err = repo.db.ExecContext(ctx, `UPDATE goals SET current_amount = 1e17 WHERE id = ?`, g.ID)
	require.NoError(t, err)
	_, err = repo.db.ExecContext(ctx, `UPDATE expenses SET amount = 1e17`)
	require.NoError(t, err)

	_, err = repo.GetGoal(ctx, g.ID)
	assert.ErrorIs(t, err, core.ErrStorage)
	assert.ErrorIs(t, err, core.ErrAmountTooLarge)

	_, err = repo.ListGoals(ctx)
	assert.ErrorIs(t, err, core.ErrStorage)

	_, err = repo.ListExpenses(ctx, "")
	assert.ErrorIs(t, err, core.ErrStorage)

	_, err = repo.SumExpensesByCategory(ctx, "Big")
	assert.ErrorIs(t, err, core.ErrStorage)
	assert.ErrorIs(t, err, core.ErrAmountTooLarge)
}
