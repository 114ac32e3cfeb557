package memory

import (
	"context"
	"testing"

	"ledger/internal/core"
)

func TestStore_WriteSnapshot(t *testing.T) {
	s := New()
	if _, ok := s.Last(); ok {
		t.Fatal("expected no snapshot before the first write")
	}

	snap := core.Snapshot{
		Expenses: []core.Expense{{ID: 1, Category: "Food", Amount: core.Money{Cents: 1250}}},
		Budgets:  []core.Budget{{ID: 3, Category: "Food", Limit: core.Money{Cents: 10000}}},
	}
	if err := s.WriteSnapshot(context.Background(), snap); err != nil {
		t.Fatalf("WriteSnapshot: %v", err)
	}

	got, ok := s.Last()
	if !ok || len(got.Expenses) != 1 || got.Expenses[0].Category != "Food" {
		t.Fatalf("unexpected snapshot: %+v", got)
	}

	expenses := s.Tab("Expenses")
	if len(expenses) != 2 {
		t.Fatalf("expected header plus one row, got %d rows", len(expenses))
	}
	if expenses[1][2] != 12.5 {
		t.Fatalf("expected amount 12.5, got %v", expenses[1][2])
	}
	if expenses[1][4] != "" {
		t.Fatalf("expected empty goal id, got %v", expenses[1][4])
	}
	if len(s.Tab("Income")) != 1 {
		t.Fatalf("expected only a header for Income")
	}

	if err := s.WriteSnapshot(context.Background(), core.Snapshot{}); err != nil {
		t.Fatalf("WriteSnapshot: %v", err)
	}
	if s.Writes() != 2 {
		t.Fatalf("expected 2 writes, got %d", s.Writes())
	}
	if got, _ := s.Last(); len(got.Expenses) != 0 {
		t.Fatalf("expected snapshot to be replaced")
	}
}

func TestStore_CancelledContext(t *testing.T) {
	s := New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := s.WriteSnapshot(ctx, core.Snapshot{}); err == nil {
		t.Fatal("expected error for cancelled context")
	}
	if s.Writes() != 0 {
		t.Fatalf("expected no writes, got %d", s.Writes())
	}
}
