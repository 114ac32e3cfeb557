package storage

import (
	"database/sql"
)

type Budget struct {
	ID       int64
	Category string
	Budget   float64
}

type Expense struct {
	ID          int64
	Category    string
	Amount      float64
	Description sql.NullString
	GoalID      sql.NullInt64
}

type Goal struct {
	ID            int64
	GoalName      string
	TargetAmount  float64
	CurrentAmount sql.NullFloat64
}

type Income struct {
	ID          int64
	Category    string
	Amount      float64
	Description sql.NullString
}
