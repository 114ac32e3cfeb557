package storage

import (
	"context"
	"database/sql"
)

const createGoal = `-- name: CreateGoal :one
INSERT INTO goals (goal_name, target_amount, current_amount)
VALUES (?, ?, 0)
RETURNING id, goal_name, target_amount, current_amount
`

type CreateGoalParams struct {
	GoalName     string
	TargetAmount float64
}

func (q *Queries) CreateGoal(ctx context.Context, arg CreateGoalParams) (Goal, error) {
	row := q.db.QueryRowContext(ctx, createGoal, arg.GoalName, arg.TargetAmount)
	var i Goal
	err := row.Scan(
		&i.ID,
		&i.GoalName,
		&i.TargetAmount,
		&i.CurrentAmount,
	)
	return i, err
}

const getGoal = `-- name: GetGoal :one
SELECT id, goal_name, target_amount, current_amount FROM goals
WHERE id = ?
`

func (q *Queries) GetGoal(ctx context.Context, id int64) (Goal, error) {
	row := q.db.QueryRowContext(ctx, getGoal, id)
	var i Goal
	err := row.Scan(
		&i.ID,
		&i.GoalName,
		&i.TargetAmount,
		&i.CurrentAmount,
	)
	return i, err
}

const getGoalByName = `-- name: GetGoalByName :one
SELECT id, goal_name, target_amount, current_amount FROM goals
WHERE goal_name = ?
ORDER BY id ASC
LIMIT 1
`

func (q *Queries) GetGoalByName(ctx context.Context, goalName string) (Goal, error) {
	row := q.db.QueryRowContext(ctx, getGoalByName, goalName)
	var i Goal
	err := row.Scan(
		&i.ID,
		&i.GoalName,
		&i.TargetAmount,
		&i.CurrentAmount,
	)
	return i, err
}

const listGoals = `-- name: ListGoals :many
SELECT id, goal_name, target_amount, current_amount FROM goals
ORDER BY id ASC
`

func (q *Queries) ListGoals(ctx context.Context) ([]Goal, error) {
	rows, err := q.db.QueryContext(ctx, listGoals)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Goal
	for rows.Next() {
		var i Goal
		if err := rows.Scan(
			&i.ID,
			&i.GoalName,
			&i.TargetAmount,
			&i.CurrentAmount,
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

const setGoalCurrentAmount = `-- name: SetGoalCurrentAmount :execrows
UPDATE goals SET current_amount = ? WHERE id = ?
`

type SetGoalCurrentAmountParams struct {
	CurrentAmount sql.NullFloat64
	ID            int64
}

func (q *Queries) SetGoalCurrentAmount(ctx context.Context, arg SetGoalCurrentAmountParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, setGoalCurrentAmount, arg.CurrentAmount, arg.ID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const deleteGoal = `-- name: DeleteGoal :execrows
DELETE FROM goals WHERE id = ?
`

func (q *Queries) DeleteGoal(ctx context.Context, id int64) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteGoal, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
