package storage

import (
	"context"
	"database/sql"
)

const createIncome = `-- name: CreateIncome :one
INSERT INTO income (category, amount, description)
VALUES (?, ?, ?)
RETURNING id, category, amount, description
`

type CreateIncomeParams struct {
	Category    string
	Amount      float64
	Description sql.NullString
}

func (q *Queries) CreateIncome(ctx context.Context, arg CreateIncomeParams) (Income, error) {
	row := q.db.QueryRowContext(ctx, createIncome, arg.Category, arg.Amount, arg.Description)
	var i Income
	err := row.Scan(
		&i.ID,
		&i.Category,
		&i.Amount,
		&i.Description,
	)
	return i, err
}

const listIncome = `-- name: ListIncome :many
SELECT id, category, amount, description FROM income
ORDER BY id ASC
`

func (q *Queries) ListIncome(ctx context.Context) ([]Income, error) {
	rows, err := q.db.QueryContext(ctx, listIncome)
	if err != nil {
		return nil, err
	}
	return scanIncome(rows)
}

const listIncomeByCategory = `-- name: ListIncomeByCategory :many
SELECT id, category, amount, description FROM income
WHERE category = ?
ORDER BY id ASC
`

func (q *Queries) ListIncomeByCategory(ctx context.Context, category string) ([]Income, error) {
	rows, err := q.db.QueryContext(ctx, listIncomeByCategory, category)
	if err != nil {
		return nil, err
	}
	return scanIncome(rows)
}

func scanIncome(rows *sql.Rows) ([]Income, error) {
	defer rows.Close()
	var items []Income
	for rows.Next() {
		var i Income
		if err := rows.Scan(
			&i.ID,
			&i.Category,
			&i.Amount,
			&i.Description,
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

const deleteIncome = `-- name: DeleteIncome :execrows
DELETE FROM income WHERE id = ?
`

func (q *Queries) DeleteIncome(ctx context.Context, id int64) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteIncome, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const deleteIncomeByCategory = `-- name: DeleteIncomeByCategory :execrows
DELETE FROM income WHERE category = ?
`

func (q *Queries) DeleteIncomeByCategory(ctx context.Context, category string) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteIncomeByCategory, category)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
