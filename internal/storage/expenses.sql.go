package storage

import (
	"context"
	"database/sql"
)

const createExpense = `-- name: CreateExpense :one
INSERT INTO expenses (category, amount, description, goal_id)
VALUES (?, ?, ?, ?)
RETURNING id, category, amount, description, goal_id
`

type CreateExpenseParams struct {
	Category    string
	Amount      float64
	Description sql.NullString
	GoalID      sql.NullInt64
}

func (q *Queries) CreateExpense(ctx context.Context, arg CreateExpenseParams) (Expense, error) {
	row := q.db.QueryRowContext(ctx, createExpense,
		arg.Category,
		arg.Amount,
		arg.Description,
		arg.GoalID,
	)
	var i Expense
	err := row.Scan(
		&i.ID,
		&i.Category,
		&i.Amount,
		&i.Description,
		&i.GoalID,
	)
	return i, err
}

const getExpense = `-- name: GetExpense :one
SELECT id, category, amount, description, goal_id FROM expenses
WHERE id = ?
`

func (q *Queries) GetExpense(ctx context.Context, id int64) (Expense, error) {
	row := q.db.QueryRowContext(ctx, getExpense, id)
	var i Expense
	err := row.Scan(
		&i.ID,
		&i.Category,
		&i.Amount,
		&i.Description,
		&i.GoalID,
	)
	return i, err
}

const listExpenses = `-- name: ListExpenses :many
SELECT id, category, amount, description, goal_id FROM expenses
ORDER BY id ASC
`

func (q *Queries) ListExpenses(ctx context.Context) ([]Expense, error) {
	rows, err := q.db.QueryContext(ctx, listExpenses)
	if err != nil {
		return nil, err
	}
	return scanExpenses(rows)
}

const listExpensesByCategory = `-- name: ListExpensesByCategory :many
SELECT id, category, amount, description, goal_id FROM expenses
WHERE category = ?
ORDER BY id ASC
`

func (q *Queries) ListExpensesByCategory(ctx context.Context, category string) ([]Expense, error) {
	rows, err := q.db.QueryContext(ctx, listExpensesByCategory, category)
	if err != nil {
		return nil, err
	}
	return scanExpenses(rows)
}

func scanExpenses(rows *sql.Rows) ([]Expense, error) {
	defer rows.Close()
	var items []Expense
	for rows.Next() {
		var i Expense
		if err := rows.Scan(
			&i.ID,
			&i.Category,
			&i.Amount,
			&i.Description,
			&i.GoalID,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const updateExpenseAmount = `-- name: UpdateExpenseAmount :execrows
UPDATE expenses SET amount = ? WHERE id = ?
`

type UpdateExpenseAmountParams struct {
	Amount float64
	ID     int64
}

func (q *Queries) UpdateExpenseAmount(ctx context.Context, arg UpdateExpenseAmountParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, updateExpenseAmount, arg.Amount, arg.ID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const deleteExpense = `-- name: DeleteExpense :execrows
DELETE FROM expenses WHERE id = ?
`

func (q *Queries) DeleteExpense(ctx context.Context, id int64) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteExpense, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const deleteExpensesByCategory = `-- name: DeleteExpensesByCategory :execrows
DELETE FROM expenses WHERE category = ?
`

func (q *Queries) DeleteExpensesByCategory(ctx context.Context, category string) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteExpensesByCategory, category)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const detachExpensesFromGoal = `-- name: DetachExpensesFromGoal :execrows
UPDATE expenses SET goal_id = NULL WHERE goal_id = ?
`

func (q *Queries) DetachExpensesFromGoal(ctx context.Context, goalID sql.NullInt64) (int64, error) {
	result, err := q.db.ExecContext(ctx, detachExpensesFromGoal, goalID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const sumExpensesByCategory = `-- name: SumExpensesByCategory :one
SELECT CAST(COALESCE(SUM(amount), 0) AS REAL) AS total FROM expenses
WHERE category = ?
`

func (q *Queries) SumExpensesByCategory(ctx context.Context, category string) (float64, error) {
	row := q.db.QueryRowContext(ctx, sumExpensesByCategory, category)
	var total float64
	err := row.Scan(&total)
	return total, err
}
