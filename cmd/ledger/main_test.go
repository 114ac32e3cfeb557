package main

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledger/internal/core"
)

// run executes one ledger invocation against dbPath, the way main does.
func run(t *testing.T, dbPath string, args ...string) (string, error) {
	t.Helper()
	t.Setenv("AMQP_URL", "")
	t.Setenv("GOOGLE_SPREADSHEET_ID", "")

	var out, errOut bytes.Buffer
	a := newApp()
	root := a.rootCmd()
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(append([]string{"--db", dbPath, "--log-level", "error"}, args...))

	err := root.Execute()
	a.close()
	return out.String(), err
}

func mustRun(t *testing.T, dbPath string, args ...string) string {
	t.Helper()
	out, err := run(t, dbPath, args...)
	require.NoError(t, err, "ledger %s", strings.Join(args, " "))
	return out
}

func TestParseID(t *testing.T) {
	tests := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{"1", 1, false},
		{" 42 ", 42, false},
		{"0", 0, true},
		{"-3", 0, true},
		{"abc", 0, true},
		{"1.5", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseID(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, core.ErrValidation)
				assert.ErrorIs(t, err, core.ErrInvalidID)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDescribeError(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{core.NewValidationError("amount", core.ErrInvalidAmount), "Invalid input: invalid amount: not a number"},
		{core.NewValidationError("amount", core.ErrAmountTooLarge), "Invalid input: invalid amount: too large"},
		{fmt.Errorf("delete expense 3: %w", core.NewNotFoundError("expense", 3)), "Not found: expense 3 not found"},
		{core.NewStorageError("create expense", errors.New("disk full")), "Storage failure: create expense: disk full"},
		{errors.New("boom"), "Error: boom"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, describeError(tt.err))
	}
}

func TestExpenseCommands(t *testing.T) {
	db := filepath.Join(t.TempDir(), "ledger.db")

	out := mustRun(t, db, "expense", "add", "Food", "12,50", "-d", "lunch")
	assert.Equal(t, "Expense #1 added: Food 12.50\n", out)
	mustRun(t, db, "expense", "add", "Travel", "80")

	out = mustRun(t, db, "expense", "list")
	assert.Contains(t, out, "lunch")
	assert.Contains(t, out, "Travel")

	out = mustRun(t, db, "expense", "list", "--category", "Food")
	assert.Contains(t, out, "12.50")
	assert.NotContains(t, out, "Travel")

	out = mustRun(t, db, "expense", "update", "1", "15")
	assert.Equal(t, "Expense #1 updated: Food 15.00\n", out)

	out = mustRun(t, db, "expense", "delete", "2")
	assert.Equal(t, "Expense #2 deleted.\n", out)

	_, err := run(t, db, "expense", "delete", "2")
	assert.ErrorIs(t, err, core.ErrNotFound)

	out = mustRun(t, db, "expense", "list", "-c", "Travel")
	assert.Equal(t, "No expenses recorded.\n", out)
}

func TestMalformedInputWritesNothing(t *testing.T) {
	db := filepath.Join(t.TempDir(), "ledger.db")

	for _, args := range [][]string{
		{"expense", "add", "Food", "twelve"},
		{"expense", "add", "Food", "--", "-5"},
		{"expense", "add", "Food", "0"},
		{"expense", "add", "Food", "1e20"},
		{"expense", "update", "x", "10"},
		{"income", "add", "Salary", "1e"},
		{"goal", "contribute", "one", "10"},
		{"budget", "get", "0"},
	} {
		_, err := run(t, db, args...)
		assert.ErrorIs(t, err, core.ErrValidation, "ledger %s", strings.Join(args, " "))
	}

	assert.Equal(t, "No expenses recorded.\n", mustRun(t, db, "expense", "list"))
	assert.Equal(t, "No income recorded.\n", mustRun(t, db, "income", "list"))
}

func TestOversizedAmountIsReportedAsTooLarge(t *testing.T) {
	db := filepath.Join(t.TempDir(), "ledger.db")

	_, err := run(t, db, "income", "add", "Salary", "1e20")
	require.ErrorIs(t, err, core.ErrAmountTooLarge)
	assert.Equal(t, "Invalid input: invalid amount: too large", describeError(err))
}

func TestIncomeCommands(t *testing.T) {
	db := filepath.Join(t.TempDir(), "ledger.db")

	mustRun(t, db, "income", "add", "Salary", "2500", "--description", "October")
	mustRun(t, db, "income", "add", "Gift", "50")
	mustRun(t, db, "income", "add", "Gift", "25")

	out := mustRun(t, db, "income", "delete-category", "Gift")
	assert.Equal(t, "Deleted 2 income record(s) in \"Gift\".\n", out)

	_, err := run(t, db, "income", "delete-category", "Gift")
	assert.ErrorIs(t, err, core.ErrNotFound)

	out = mustRun(t, db, "income", "delete", "1")
	assert.Equal(t, "Income #1 deleted.\n", out)
}

func TestBudgetCommands(t *testing.T) {
	db := filepath.Join(t.TempDir(), "ledger.db")

	out := mustRun(t, db, "budget", "set", "Food", "200")
	assert.Equal(t, "Budget #1 for Food set to 200.00.\n", out)
	out = mustRun(t, db, "budget", "set", "Food", "150")
	assert.Equal(t, "Budget #1 for Food set to 150.00.\n", out)

	out = mustRun(t, db, "budget", "list")
	assert.Equal(t, 2, strings.Count(out, "\n"), "header plus one budget")

	out = mustRun(t, db, "budget", "get", "1")
	assert.Equal(t, "Budget #1: Food 150.00\n", out)

	mustRun(t, db, "expense", "add", "Food", "160")
	out = mustRun(t, db, "budget", "status", "Food")
	assert.Contains(t, out, "160.00")
	assert.Contains(t, out, "over budget")

	_, err := run(t, db, "budget", "status", "Travel")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestGoalCommands(t *testing.T) {
	db := filepath.Join(t.TempDir(), "ledger.db")

	out := mustRun(t, db, "goal", "set", "Rent", "1000")
	assert.Equal(t, "Goal #1 \"Rent\" created with target 1000.00.\n", out)

	out = mustRun(t, db, "goal", "contribute", "1", "300")
	assert.Equal(t, "Contributed 300.00 to \"Rent\" (expense #1).\n", out)

	out = mustRun(t, db, "goal", "list")
	assert.Contains(t, out, "300.00")
	assert.Contains(t, out, "30.00%")

	out = mustRun(t, db, "expense", "list", "-c", "Rent")
	assert.Contains(t, out, core.ContributionDescription)

	out = mustRun(t, db, "expense", "delete", "1")
	assert.Equal(t, "Expense #1 deleted.\nGoal \"Rent\" rolled back to 0.00.\n", out)

	mustRun(t, db, "expense", "add", "Rent", "40")
	out = mustRun(t, db, "goal", "delete", "1", "--cascade")
	assert.Equal(t, "Goal #1 \"Rent\" deleted.\nDeleted 1 expense(s) in \"Rent\".\n", out)

	assert.Equal(t, "No goals set.\n", mustRun(t, db, "goal", "list"))
	assert.Equal(t, "No expenses recorded.\n", mustRun(t, db, "expense", "list"))
}

func TestExportPrintsSnapshotWithoutSpreadsheet(t *testing.T) {
	db := filepath.Join(t.TempDir(), "ledger.db")
	mustRun(t, db, "expense", "add", "Food", "12.5")
	mustRun(t, db, "goal", "set", "Bike", "0")

	out := mustRun(t, db, "export")
	for _, tab := range []string{"== Expenses ==", "== Income ==", "== Budgets ==", "== Goals =="} {
		assert.Contains(t, out, tab)
	}
	assert.Contains(t, out, "12.50")
	assert.Contains(t, out, "Bike")
}

func TestArgumentCountIsChecked(t *testing.T) {
	db := filepath.Join(t.TempDir(), "ledger.db")

	_, err := run(t, db, "expense", "add", "Food")
	assert.Error(t, err)
	_, err = run(t, db, "goal", "delete")
	assert.Error(t, err)
}
