package storage

import (
	"context"
)

const createBudget = `-- name: CreateBudget :one
INSERT INTO budgets (category, budget)
VALUES (?, ?)
RETURNING id, category, budget
`

type CreateBudgetParams struct {
	Category string
	Budget   float64
}

func (q *Queries) CreateBudget(ctx context.Context, arg CreateBudgetParams) (Budget, error) {
	row := q.db.QueryRowContext(ctx, createBudget, arg.Category, arg.Budget)
	var i Budget
	err := row.Scan(&i.ID, &i.Category, &i.Budget)
	return i, err
}

const getBudget = `-- name: GetBudget :one
SELECT id, category, budget FROM budgets
WHERE id = ?
`

func (q *Queries) GetBudget(ctx context.Context, id int64) (Budget, error) {
	row := q.db.QueryRowContext(ctx, getBudget, id)
	var i Budget
	err := row.Scan(&i.ID, &i.Category, &i.Budget)
	return i, err
}

const getBudgetByCategory = `-- name: GetBudgetByCategory :one
SELECT id, category, budget FROM budgets
WHERE category = ?
ORDER BY id ASC
LIMIT 1
`

func (q *Queries) GetBudgetByCategory(ctx context.Context, category string) (Budget, error) {
	row := q.db.QueryRowContext(ctx, getBudgetByCategory, category)
	var i Budget
	err := row.Scan(&i.ID, &i.Category, &i.Budget)
	return i, err
}

const listBudgets = `-- name: ListBudgets :many
SELECT id, category, budget FROM budgets
ORDER BY id ASC
`

func (q *Queries) ListBudgets(ctx context.Context) ([]Budget, error) {
	rows, err := q.db.QueryContext(ctx, listBudgets)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Budget
	for rows.Next() {
		var i Budget
		if err := rows.Scan(&i.ID, &i.Category, &i.Budget); err != nil {
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

const updateBudget = `-- name: UpdateBudget :execrows
UPDATE budgets SET budget = ? WHERE id = ?
`

type UpdateBudgetParams struct {
	Budget float64
	ID     int64
}

func (q *Queries) UpdateBudget(ctx context.Context, arg UpdateBudgetParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, updateBudget, arg.Budget, arg.ID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
