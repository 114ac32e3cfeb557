package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"ledger/internal/backend"
	"ledger/internal/core"
	"ledger/internal/sheets"
)

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || id <= 0 {
		return 0, core.NewValidationError("id", core.ErrInvalidID)
	}
	return id, nil
}

func newTable(w io.Writer, header ...string) *tabwriter.Writer {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(header, "\t"))
	return tw
}

// Expenses

func (a *app) expenseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "expense",
		Short: "Record and manage expenses",
	}

	var description string
	add := &cobra.Command{
		Use:   "add <category> <amount>",
		Short: "Record an expense",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := core.ParseAmount(args[1])
			if err != nil {
				return err
			}
			e, err := a.ledger.AddExpense(cmd.Context(), args[0], amount, description)
			if err != nil {
				return err
			}
			printf(cmd.OutOrStdout(), "Expense #%d added: %s %s\n", e.ID, e.Category, e.Amount)
			return nil
		},
	}
	add.Flags().StringVarP(&description, "description", "d", "", "optional note")

	var category string
	list := &cobra.Command{
		Use:   "list",
		Short: "List expenses in insertion order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			expenses, err := a.ledger.ListExpenses(cmd.Context(), category)
			if err != nil {
				return err
			}
			if len(expenses) == 0 {
				printf(cmd.OutOrStdout(), "No expenses recorded.\n")
				return nil
			}
			tw := newTable(cmd.OutOrStdout(), "ID", "CATEGORY", "AMOUNT", "DESCRIPTION")
			for _, e := range expenses {
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", e.ID, e.Category, e.Amount, e.Description)
			}
			return tw.Flush()
		},
	}
	list.Flags().StringVarP(&category, "category", "c", "", "only show this category (exact match)")

	update := &cobra.Command{
		Use:   "update <id> <amount>",
		Short: "Change the amount of an expense",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			amount, err := core.ParseAmount(args[1])
			if err != nil {
				return err
			}
			e, err := a.ledger.UpdateExpenseAmount(cmd.Context(), id, amount)
			if err != nil {
				return err
			}
			printf(cmd.OutOrStdout(), "Expense #%d updated: %s %s\n", e.ID, e.Category, e.Amount)
			return nil
		},
	}

	del := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an expense, rolling back the goal named like its category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			res, err := a.ledger.DeleteExpense(cmd.Context(), id)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			printf(out, "Expense #%d deleted.\n", res.Expense.ID)
			if res.GoalAdjusted {
				printf(out, "Goal %q rolled back to %s.\n", res.GoalName, res.GoalCurrent)
			}
			return nil
		},
	}

	cmd.AddCommand(add, list, update, del)
	return cmd
}

// Income

func (a *app) incomeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "income",
		Short: "Record and manage income",
	}

	var description string
	add := &cobra.Command{
		Use:   "add <category> <amount>",
		Short: "Record income",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := core.ParseAmount(args[1])
			if err != nil {
				return err
			}
			in, err := a.ledger.AddIncome(cmd.Context(), args[0], amount, description)
			if err != nil {
				return err
			}
			printf(cmd.OutOrStdout(), "Income #%d added: %s %s\n", in.ID, in.Category, in.Amount)
			return nil
		},
	}
	add.Flags().StringVarP(&description, "description", "d", "", "optional note")

	var category string
	list := &cobra.Command{
		Use:   "list",
		Short: "List income in insertion order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			income, err := a.ledger.ListIncome(cmd.Context(), category)
			if err != nil {
				return err
			}
			if len(income) == 0 {
				printf(cmd.OutOrStdout(), "No income recorded.\n")
				return nil
			}
			tw := newTable(cmd.OutOrStdout(), "ID", "CATEGORY", "AMOUNT", "DESCRIPTION")
			for _, in := range income {
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", in.ID, in.Category, in.Amount, in.Description)
			}
			return tw.Flush()
		},
	}
	list.Flags().StringVarP(&category, "category", "c", "", "only show this category (exact match)")

	del := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete one income record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := a.ledger.DeleteIncome(cmd.Context(), id); err != nil {
				return err
			}
			printf(cmd.OutOrStdout(), "Income #%d deleted.\n", id)
			return nil
		},
	}

	delCategory := &cobra.Command{
		Use:   "delete-category <category>",
		Short: "Delete every income record in a category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := a.ledger.DeleteIncomeByCategory(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			printf(cmd.OutOrStdout(), "Deleted %d income record(s) in %q.\n", n, args[0])
			return nil
		},
	}

	cmd.AddCommand(add, list, del, delCategory)
	return cmd
}

// Budgets

func (a *app) budgetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "budget",
		Short: "Set and inspect category budgets",
	}

	set := &cobra.Command{
		Use:   "set <category> <amount>",
		Short: "Create or replace the budget of a category",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			limit, err := core.ParseAmount(args[1])
			if err != nil {
				return err
			}
			b, err := a.ledger.SetBudget(cmd.Context(), args[0], limit)
			if err != nil {
				return err
			}
			printf(cmd.OutOrStdout(), "Budget #%d for %s set to %s.\n", b.ID, b.Category, b.Limit)
			return nil
		},
	}

	get := &cobra.Command{
		Use:   "get <id>",
		Short: "Show a budget by its id (see budget list)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			b, err := a.ledger.GetBudget(cmd.Context(), id)
			if err != nil {
				return err
			}
			printf(cmd.OutOrStdout(), "Budget #%d: %s %s\n", b.ID, b.Category, b.Limit)
			return nil
		},
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List budgets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			budgets, err := a.ledger.ListBudgets(cmd.Context())
			if err != nil {
				return err
			}
			if len(budgets) == 0 {
				printf(cmd.OutOrStdout(), "No budgets set.\n")
				return nil
			}
			tw := newTable(cmd.OutOrStdout(), "ID", "CATEGORY", "LIMIT")
			for _, b := range budgets {
				fmt.Fprintf(tw, "%d\t%s\t%s\n", b.ID, b.Category, b.Limit)
			}
			return tw.Flush()
		},
	}

	status := &cobra.Command{
		Use:   "status <category>",
		Short: "Compare a category's spending with its budget",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.ledger.BudgetStatus(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			tw := newTable(cmd.OutOrStdout(), "CATEGORY", "LIMIT", "SPENT", "REMAINING", "STATUS")
			state := "ok"
			if s.Exceeded {
				state = "over budget"
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", s.Budget.Category, s.Budget.Limit, s.Spent, s.Remaining, state)
			return tw.Flush()
		},
	}

	cmd.AddCommand(set, get, list, status)
	return cmd
}

// Goals

func (a *app) goalCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "goal",
		Short: "Manage savings goals",
	}

	set := &cobra.Command{
		Use:   "set <name> <target>",
		Short: "Create a savings goal",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := core.ParseAmount(args[1])
			if err != nil {
				return err
			}
			g, err := a.ledger.SetGoal(cmd.Context(), args[0], target)
			if err != nil {
				return err
			}
			printf(cmd.OutOrStdout(), "Goal #%d %q created with target %s.\n", g.ID, g.Name, g.Target)
			return nil
		},
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List goals with their progress",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			goals, err := a.ledger.ListGoalsWithProgress(cmd.Context())
			if err != nil {
				return err
			}
			if len(goals) == 0 {
				printf(cmd.OutOrStdout(), "No goals set.\n")
				return nil
			}
			tw := newTable(cmd.OutOrStdout(), "ID", "NAME", "TARGET", "CURRENT", "PROGRESS")
			for _, g := range goals {
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%.2f%%\n",
					g.Goal.ID, g.Goal.Name, g.Goal.Target, g.Goal.Current, core.RoundPercent(g.Percent))
			}
			return tw.Flush()
		},
	}

	contribute := &cobra.Command{
		Use:   "contribute <id> <amount>",
		Short: "Add money to a goal, recording it as an expense",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			amount, err := core.ParseAmount(args[1])
			if err != nil {
				return err
			}
			e, err := a.ledger.ContributeToGoal(cmd.Context(), id, amount)
			if err != nil {
				return err
			}
			printf(cmd.OutOrStdout(), "Contributed %s to %q (expense #%d).\n", e.Amount, e.Category, e.ID)
			return nil
		},
	}

	var cascade bool
	del := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a goal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			res, err := a.ledger.DeleteGoal(cmd.Context(), id, cascade)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			printf(out, "Goal #%d %q deleted.\n", res.Goal.ID, res.Goal.Name)
			if cascade {
				printf(out, "Deleted %d expense(s) in %q.\n", res.ExpensesDeleted, res.Goal.Name)
			}
			return nil
		},
	}
	del.Flags().BoolVar(&cascade, "cascade", false, "also delete expenses whose category is the goal name")

	cmd.AddCommand(set, list, contribute, del)
	return cmd
}

// Export

func (a *app) exportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export",
		Short: "Write a full snapshot to the configured spreadsheet, or print it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			snap, err := a.ledger.Snapshot(ctx)
			if err != nil {
				return err
			}

			if !a.cfg.SheetsEnabled() {
				return printSnapshot(cmd.OutOrStdout(), snap)
			}

			mirrorConfig, err := backend.FromAppConfig(a.cfg)
			if err != nil {
				return err
			}
			mirror, err := backend.NewFactory(a.logger).CreateMirror(ctx, mirrorConfig)
			if err != nil {
				return err
			}
			if err := mirror.WriteSnapshot(ctx, snap); err != nil {
				return err
			}
			printf(cmd.OutOrStdout(), "Snapshot exported to spreadsheet %s.\n", a.cfg.GoogleSpreadsheetID)
			return nil
		},
	}
}

func printSnapshot(w io.Writer, snap core.Snapshot) error {
	rows := sheets.Rows(snap)
	for i, tab := range sheets.Tabs {
		if i > 0 {
			printf(w, "\n")
		}
		printf(w, "== %s ==\n", tab)

		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		for _, row := range rows[tab] {
			cells := make([]string, len(row))
			for j, v := range row {
				cells[j] = formatCell(v)
			}
			fmt.Fprintln(tw, strings.Join(cells, "\t"))
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}
	return nil
}

func formatCell(v any) string {
	if f, ok := v.(float64); ok {
		return strconv.FormatFloat(f, 'f', 2, 64)
	}
	return fmt.Sprint(v)
}
