package sheets

import (
	"context"

	"ledger/internal/core"
)

// Ports for outbound adapters.
type (
	// SnapshotWriter mirrors a full ledger snapshot to an external store,
	// replacing whatever it held before.
	SnapshotWriter interface {
		WriteSnapshot(ctx context.Context, snap core.Snapshot) error
	}
)

// Tab names used by every SnapshotWriter.
const (
	TabExpenses = "Expenses"
	TabIncome   = "Income"
	TabBudgets  = "Budgets"
	TabGoals    = "Goals"
)

// Tabs lists the mirrored tabs in write order.
var Tabs = []string{TabExpenses, TabIncome, TabBudgets, TabGoals}

// Rows renders snap as one header row plus one row per record, keyed by tab name.
// Amounts are written in currency units.
func Rows(snap core.Snapshot) map[string][][]any {
	out := map[string][][]any{
		TabExpenses: {{"ID", "Category", "Amount", "Description", "Goal ID"}},
		TabIncome:   {{"ID", "Category", "Amount", "Description"}},
		TabBudgets:  {{"ID", "Category", "Limit"}},
		TabGoals:    {{"ID", "Name", "Target", "Current", "Progress %"}},
	}

	for _, e := range snap.Expenses {
		var goalID any = ""
		if e.GoalID != 0 {
			goalID = e.GoalID
		}
		out[TabExpenses] = append(out[TabExpenses], []any{e.ID, e.Category, e.Amount.Float64(), e.Description, goalID})
	}
	for _, in := range snap.Income {
		out[TabIncome] = append(out[TabIncome], []any{in.ID, in.Category, in.Amount.Float64(), in.Description})
	}
	for _, b := range snap.Budgets {
		out[TabBudgets] = append(out[TabBudgets], []any{b.ID, b.Category, b.Limit.Float64()})
	}
	for _, g := range snap.Goals {
		out[TabGoals] = append(out[TabGoals], []any{
			g.Goal.ID, g.Goal.Name, g.Goal.Target.Float64(), g.Goal.Current.Float64(), core.RoundPercent(g.Percent),
		})
	}
	return out
}
