package core

import (
	"strings"
)

// ContributionDescription is the description stamped on expenses created by goal contributions.
const ContributionDescription = "Contribution to financial goal"

type (
	Money struct {
		Cents int64
	}

	Expense struct {
		ID          int64
		Category    string
		Amount      Money
		Description string // optional
		GoalID      int64  // 0 when not linked to a goal
	}

	Income struct {
		ID          int64
		Category    string
		Amount      Money
		Description string // optional
	}

	// Budget is the spending limit for one category.
	Budget struct {
		ID       int64
		Category string
		Limit    Money
	}

	// Goal is a named savings target. Expenses whose category equals Name
	// count as belonging to it.
	Goal struct {
		ID      int64
		Name    string
		Target  Money
		Current Money
	}

	GoalProgress struct {
		Goal    Goal
		Percent float64
	}

	// DeletionResult describes what DeleteExpense changed.
	DeletionResult struct {
		Expense      Expense
		GoalAdjusted bool
		GoalName     string
		GoalCurrent  Money // goal amount after the rollback
	}

	GoalDeletion struct {
		Goal            Goal
		ExpensesDeleted int64
	}

	// BudgetStatus compares a budget with what was spent in its category.
	BudgetStatus struct {
		Budget    Budget
		Spent     Money
		Remaining Money
		Exceeded  bool
	}

	// Snapshot is a full read of the ledger, used for mirroring.
	Snapshot struct {
		Expenses []Expense
		Income   []Income
		Budgets  []Budget
		Goals    []GoalProgress
	}
)

func (e Expense) Validate() error {
	if strings.TrimSpace(e.Category) == "" {
		return NewValidationError("category", ErrEmptyCategory)
	}
	if e.Amount.Cents <= 0 {
		return NewValidationError("amount", ErrNonPositiveAmount)
	}
	return nil
}

func (i Income) Validate() error {
	if strings.TrimSpace(i.Category) == "" {
		return NewValidationError("category", ErrEmptyCategory)
	}
	if i.Amount.Cents <= 0 {
		return NewValidationError("amount", ErrNonPositiveAmount)
	}
	return nil
}

func (b Budget) Validate() error {
	if strings.TrimSpace(b.Category) == "" {
		return NewValidationError("category", ErrEmptyCategory)
	}
	if b.Limit.Cents < 0 {
		return NewValidationError("amount", ErrNegativeAmount)
	}
	return nil
}

func (g Goal) Validate() error {
	if strings.TrimSpace(g.Name) == "" {
		return NewValidationError("name", ErrEmptyGoalName)
	}
	if g.Target.Cents < 0 {
		return NewValidationError("target", ErrNegativeAmount)
	}
	if g.Current.Cents < 0 {
		return NewValidationError("current", ErrNegativeAmount)
	}
	return nil
}

// Progress returns Current as a percentage of Target; 0 for a zero target.
func (g Goal) Progress() float64 {
	return Percent(g.Current, g.Target)
}

// NewBudgetStatus computes remaining and exceeded from a budget and the spent total.
func NewBudgetStatus(b Budget, spent Money) BudgetStatus {
	return BudgetStatus{
		Budget:    b,
		Spent:     spent,
		Remaining: b.Limit.SubFloor(spent),
		Exceeded:  spent.Cents > b.Limit.Cents,
	}
}
