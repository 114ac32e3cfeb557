package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"ledger/internal/amqp"
	"ledger/internal/core"
	"ledger/internal/log"
	"ledger/internal/storage"
)

// EventPublisher delivers ledger events once a change is committed.
type EventPublisher interface {
	PublishLedgerEvent(ctx context.Context, e *amqp.LedgerEvent) error
}

// LedgerService owns expenses, income, budgets and goals and keeps goals
// consistent with the expenses that share their name.
type LedgerService struct {
	storage   *storage.SQLiteRepository
	publisher EventPublisher
	logger    *log.Logger
}

// NewLedgerService creates the service. publisher may be nil, in which case
// no events are sent.
func NewLedgerService(storage *storage.SQLiteRepository, publisher EventPublisher) *LedgerService {
	return &LedgerService{
		storage:   storage,
		publisher: publisher,
		logger: log.New(log.Config{
			Handler:   slog.Default().Handler(),
			Component: log.ComponentLedger,
		}),
	}
}

// Expenses

func (s *LedgerService) AddExpense(ctx context.Context, category string, amount core.Money, description string) (core.Expense, error) {
	e := core.Expense{Category: category, Amount: amount, Description: description}
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}

	created, err := s.storage.CreateExpense(ctx, e)
	if err != nil {
		return core.Expense{}, fmt.Errorf("add expense: %w", err)
	}

	s.logger.InfoContext(ctx, "Expense added",
		log.FieldExpenseID, created.ID,
		log.FieldCategory, created.Category,
		log.FieldAmount, created.Amount.String())
	s.publish(ctx, amqp.NewLedgerEvent(amqp.EventExpenseCreated, created.ID, created.Category, created.Amount))

	return created, nil
}

func (s *LedgerService) GetExpense(ctx context.Context, id int64) (core.Expense, error) {
	return s.storage.GetExpense(ctx, id)
}

// ListExpenses returns expenses in insertion order; a non-empty category filters by exact match.
func (s *LedgerService) ListExpenses(ctx context.Context, category string) ([]core.Expense, error) {
	return s.storage.ListExpenses(ctx, category)
}

// UpdateExpenseAmount changes the amount of an existing expense.
// It returns a NotFoundError when no expense has the id.
func (s *LedgerService) UpdateExpenseAmount(ctx context.Context, id int64, amount core.Money) (core.Expense, error) {
	if amount.Cents <= 0 {
		return core.Expense{}, core.NewValidationError("amount", core.ErrNonPositiveAmount)
	}

	var updated core.Expense
	err := s.storage.WithinTx(ctx, func(tx *storage.SQLiteRepository) error {
		e, err := tx.GetExpense(ctx, id)
		if err != nil {
			return err
		}
		if err := tx.UpdateExpenseAmount(ctx, id, amount); err != nil {
			return err
		}
		e.Amount = amount
		updated = e
		return nil
	})
	if err != nil {
		return core.Expense{}, fmt.Errorf("update expense %d: %w", id, err)
	}

	s.logger.InfoContext(ctx, "Expense amount updated",
		log.FieldExpenseID, id,
		log.FieldAmount, amount.String())
	s.publish(ctx, amqp.NewLedgerEvent(amqp.EventExpenseUpdated, id, updated.Category, amount))

	return updated, nil
}

// DeleteExpense removes an expense. When a goal is named like the expense's
// category, the goal's current amount is reduced by the expense amount,
// never below zero. Both writes share one transaction.
func (s *LedgerService) DeleteExpense(ctx context.Context, id int64) (core.DeletionResult, error) {
	var result core.DeletionResult
	err := s.storage.WithinTx(ctx, func(tx *storage.SQLiteRepository) error {
		e, err := tx.GetExpense(ctx, id)
		if err != nil {
			return err
		}
		if err := tx.DeleteExpense(ctx, id); err != nil {
			return err
		}
		result.Expense = e

		goal, err := tx.FindGoalByName(ctx, e.Category)
		if errors.Is(err, core.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		rolledBack := goal.Current.SubFloor(e.Amount)
		if err := tx.SetGoalCurrent(ctx, goal.ID, rolledBack); err != nil {
			return err
		}
		result.GoalAdjusted = true
		result.GoalName = goal.Name
		result.GoalCurrent = rolledBack
		return nil
	})
	if err != nil {
		return core.DeletionResult{}, fmt.Errorf("delete expense %d: %w", id, err)
	}

	s.logger.InfoContext(ctx, "Expense deleted",
		log.FieldExpenseID, id,
		log.FieldCategory, result.Expense.Category,
		"goal_adjusted", result.GoalAdjusted)
	s.publish(ctx, amqp.NewLedgerEvent(amqp.EventExpenseDeleted, id, result.Expense.Category, result.Expense.Amount))

	return result, nil
}

// Income

func (s *LedgerService) AddIncome(ctx context.Context, category string, amount core.Money, description string) (core.Income, error) {
	in := core.Income{Category: category, Amount: amount, Description: description}
	if err := in.Validate(); err != nil {
		return core.Income{}, err
	}

	created, err := s.storage.CreateIncome(ctx, in)
	if err != nil {
		return core.Income{}, fmt.Errorf("add income: %w", err)
	}

	s.logger.InfoContext(ctx, "Income added",
		log.FieldIncomeID, created.ID,
		log.FieldCategory, created.Category,
		log.FieldAmount, created.Amount.String())
	s.publish(ctx, amqp.NewLedgerEvent(amqp.EventIncomeCreated, created.ID, created.Category, created.Amount))

	return created, nil
}

func (s *LedgerService) ListIncome(ctx context.Context, category string) ([]core.Income, error) {
	return s.storage.ListIncome(ctx, category)
}

func (s *LedgerService) DeleteIncome(ctx context.Context, id int64) error {
	if err := s.storage.DeleteIncome(ctx, id); err != nil {
		return fmt.Errorf("delete income %d: %w", id, err)
	}

	s.logger.InfoContext(ctx, "Income deleted", log.FieldIncomeID, id)
	s.publish(ctx, amqp.NewLedgerEvent(amqp.EventIncomeDeleted, id, "", core.Money{}))
	return nil
}

// DeleteIncomeByCategory removes every income record in category and
// returns how many were removed. It returns a NotFoundError when none match.
func (s *LedgerService) DeleteIncomeByCategory(ctx context.Context, category string) (int64, error) {
	n, err := s.storage.DeleteIncomeByCategory(ctx, category)
	if err != nil {
		return 0, fmt.Errorf("delete income in %q: %w", category, err)
	}
	if n == 0 {
		return 0, core.NewNotFoundError("income in category", category)
	}

	s.logger.InfoContext(ctx, "Income category deleted",
		log.FieldCategory, category,
		log.FieldDeleted, n)
	s.publish(ctx, amqp.NewLedgerEvent(amqp.EventIncomeDeleted, 0, category, core.Money{}))
	return n, nil
}

// Budgets

// SetBudget creates the budget for category or overwrites its limit.
// The lookup and the write run in one transaction.
func (s *LedgerService) SetBudget(ctx context.Context, category string, limit core.Money) (core.Budget, error) {
	b := core.Budget{Category: category, Limit: limit}
	if err := b.Validate(); err != nil {
		return core.Budget{}, err
	}

	err := s.storage.WithinTx(ctx, func(tx *storage.SQLiteRepository) error {
		existing, err := tx.FindBudgetByCategory(ctx, category)
		switch {
		case err == nil:
			if err := tx.UpdateBudgetLimit(ctx, existing.ID, limit); err != nil {
				return err
			}
			b.ID = existing.ID
			return nil
		case errors.Is(err, core.ErrNotFound):
			created, err := tx.CreateBudget(ctx, b)
			if err != nil {
				return err
			}
			b = created
			return nil
		default:
			return err
		}
	})
	if err != nil {
		return core.Budget{}, fmt.Errorf("set budget for %q: %w", category, err)
	}

	s.logger.InfoContext(ctx, "Budget set",
		log.FieldBudgetID, b.ID,
		log.FieldCategory, b.Category,
		log.FieldBudgetLimit, b.Limit.String())
	s.publish(ctx, amqp.NewLedgerEvent(amqp.EventBudgetSet, b.ID, b.Category, b.Limit))

	return b, nil
}

// GetBudget looks a budget up by its row id.
func (s *LedgerService) GetBudget(ctx context.Context, id int64) (core.Budget, error) {
	return s.storage.GetBudget(ctx, id)
}

func (s *LedgerService) BudgetForCategory(ctx context.Context, category string) (core.Budget, error) {
	return s.storage.FindBudgetByCategory(ctx, category)
}

func (s *LedgerService) ListBudgets(ctx context.Context) ([]core.Budget, error) {
	return s.storage.ListBudgets(ctx)
}

// SpentInCategory sums the expenses recorded under category.
func (s *LedgerService) SpentInCategory(ctx context.Context, category string) (core.Money, error) {
	return s.storage.SumExpensesByCategory(ctx, category)
}

// BudgetStatus compares the budget of category with what was spent in it.
func (s *LedgerService) BudgetStatus(ctx context.Context, category string) (core.BudgetStatus, error) {
	var status core.BudgetStatus
	err := s.storage.WithinTx(ctx, func(tx *storage.SQLiteRepository) error {
		b, err := tx.FindBudgetByCategory(ctx, category)
		if err != nil {
			return err
		}
		spent, err := tx.SumExpensesByCategory(ctx, category)
		if err != nil {
			return err
		}
		status = core.NewBudgetStatus(b, spent)
		return nil
	})
	if err != nil {
		return core.BudgetStatus{}, fmt.Errorf("budget status for %q: %w", category, err)
	}
	return status, nil
}

// Goals

func (s *LedgerService) SetGoal(ctx context.Context, name string, target core.Money) (core.Goal, error) {
	g := core.Goal{Name: name, Target: target}
	if err := g.Validate(); err != nil {
		return core.Goal{}, err
	}

	created, err := s.storage.CreateGoal(ctx, g)
	if err != nil {
		return core.Goal{}, fmt.Errorf("set goal %q: %w", name, err)
	}

	s.logger.InfoContext(ctx, "Goal set",
		log.FieldGoalID, created.ID,
		log.FieldGoalName, created.Name,
		log.FieldAmount, created.Target.String())
	s.publish(ctx, amqp.NewLedgerEvent(amqp.EventGoalCreated, created.ID, created.Name, created.Target))

	return created, nil
}

func (s *LedgerService) GetGoal(ctx context.Context, id int64) (core.Goal, error) {
	return s.storage.GetGoal(ctx, id)
}

// ListGoalsWithProgress returns every goal with its completion percentage.
func (s *LedgerService) ListGoalsWithProgress(ctx context.Context) ([]core.GoalProgress, error) {
	goals, err := s.storage.ListGoals(ctx)
	if err != nil {
		return nil, err
	}

	progress := make([]core.GoalProgress, len(goals))
	for i, g := range goals {
		progress[i] = core.GoalProgress{Goal: g, Percent: g.Progress()}
	}
	return progress, nil
}

// ContributeToGoal adds amount to the goal and records the same amount as an
// expense in the goal's category. Overshooting the target is allowed, but a
// total past the largest supported amount is a ValidationError.
// Both writes share one transaction.
func (s *LedgerService) ContributeToGoal(ctx context.Context, id int64, amount core.Money) (core.Expense, error) {
	if amount.Cents <= 0 {
		return core.Expense{}, core.NewValidationError("amount", core.ErrNonPositiveAmount)
	}

	var (
		goal    core.Goal
		expense core.Expense
	)
	err := s.storage.WithinTx(ctx, func(tx *storage.SQLiteRepository) error {
		g, err := tx.GetGoal(ctx, id)
		if err != nil {
			return err
		}
		total, err := g.Current.Add(amount)
		if err != nil {
			return core.NewValidationError("amount", err)
		}
		g.Current = total
		if err := tx.SetGoalCurrent(ctx, g.ID, g.Current); err != nil {
			return err
		}
		goal = g

		expense, err = tx.CreateExpense(ctx, core.Expense{
			Category:    g.Name,
			Amount:      amount,
			Description: core.ContributionDescription,
			GoalID:      g.ID,
		})
		return err
	})
	if err != nil {
		return core.Expense{}, fmt.Errorf("contribute to goal %d: %w", id, err)
	}

	s.logger.InfoContext(ctx, "Goal contribution recorded",
		log.FieldGoalID, goal.ID,
		log.FieldGoalName, goal.Name,
		log.FieldAmount, amount.String(),
		log.FieldExpenseID, expense.ID)
	s.publish(ctx, amqp.NewLedgerEvent(amqp.EventGoalContributed, goal.ID, goal.Name, amount))

	return expense, nil
}

// DeleteGoal removes a goal. With cascade, every expense whose category equals
// the goal name is deleted too; otherwise those expenses stay and lose their
// explicit goal reference.
func (s *LedgerService) DeleteGoal(ctx context.Context, id int64, cascade bool) (core.GoalDeletion, error) {
	var result core.GoalDeletion
	err := s.storage.WithinTx(ctx, func(tx *storage.SQLiteRepository) error {
		g, err := tx.GetGoal(ctx, id)
		if err != nil {
			return err
		}
		if err := tx.DeleteGoal(ctx, id); err != nil {
			return err
		}
		result.Goal = g

		if !cascade {
			_, err := tx.DetachExpensesFromGoal(ctx, id)
			return err
		}
		n, err := tx.DeleteExpensesByCategory(ctx, g.Name)
		if err != nil {
			return err
		}
		result.ExpensesDeleted = n
		return nil
	})
	if err != nil {
		return core.GoalDeletion{}, fmt.Errorf("delete goal %d: %w", id, err)
	}

	s.logger.InfoContext(ctx, "Goal deleted",
		log.FieldGoalID, id,
		log.FieldGoalName, result.Goal.Name,
		log.FieldDeleted, result.ExpensesDeleted)
	s.publish(ctx, amqp.NewLedgerEvent(amqp.EventGoalDeleted, id, result.Goal.Name, core.Money{}))

	return result, nil
}

// Snapshot reads all four collections in one transaction.
func (s *LedgerService) Snapshot(ctx context.Context) (core.Snapshot, error) {
	var snap core.Snapshot
	err := s.storage.WithinTx(ctx, func(tx *storage.SQLiteRepository) error {
		var err error
		if snap.Expenses, err = tx.ListExpenses(ctx, ""); err != nil {
			return err
		}
		if snap.Income, err = tx.ListIncome(ctx, ""); err != nil {
			return err
		}
		if snap.Budgets, err = tx.ListBudgets(ctx); err != nil {
			return err
		}
		goals, err := tx.ListGoals(ctx)
		if err != nil {
			return err
		}
		snap.Goals = make([]core.GoalProgress, len(goals))
		for i, g := range goals {
			snap.Goals[i] = core.GoalProgress{Goal: g, Percent: g.Progress()}
		}
		return nil
	})
	if err != nil {
		return core.Snapshot{}, fmt.Errorf("read snapshot: %w", err)
	}
	return snap, nil
}

func (s *LedgerService) publish(ctx context.Context, e *amqp.LedgerEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishLedgerEvent(ctx, e); err != nil {
		// The local write already committed; the worker catches up on its next sync.
		s.logger.ErrorContext(ctx, "Failed to publish ledger event",
			log.FieldEventType, e.Type,
			log.FieldError, err)
	}
}

// Close closes storage and, when it supports it, the publisher.
func (s *LedgerService) Close() error {
	var errs []error

	if s.storage != nil {
		if err := s.storage.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}

	if c, ok := s.publisher.(io.Closer); ok {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("publisher: %w", err))
		}
	}

	return errors.Join(errs...)
}
