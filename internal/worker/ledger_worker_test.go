package worker

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledger/internal/amqp"
	"ledger/internal/cache"
	"ledger/internal/core"
	"ledger/internal/log"
	"ledger/internal/sheets/memory"
)

type fakeLedger struct {
	mu            sync.Mutex
	budgets       map[string]core.Budget
	spent         map[string]core.Money
	budgetLookups int
	snapshotErr   error
	snapshots     int
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{
		budgets: make(map[string]core.Budget),
		spent:   make(map[string]core.Money),
	}
}

func (f *fakeLedger) BudgetForCategory(_ context.Context, category string) (core.Budget, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.budgetLookups++
	b, ok := f.budgets[category]
	if !ok {
		return core.Budget{}, core.NewNotFoundError("budget for category", category)
	}
	return b, nil
}

func (f *fakeLedger) SpentInCategory(_ context.Context, category string) (core.Money, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.spent[category], nil
}

func (f *fakeLedger) Snapshot(_ context.Context) (core.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.snapshots++
	if f.snapshotErr != nil {
		return core.Snapshot{}, f.snapshotErr
	}
	return core.Snapshot{Budgets: []core.Budget{{ID: 1, Category: "Food", Limit: core.Money{Cents: 100}}}}, nil
}

func newTestWorker(t *testing.T) (*LedgerWorker, *fakeLedger, *memory.Store, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	logger := log.New(log.Config{Level: slog.LevelDebug, Format: "json", Output: &buf})
	ledger := newFakeLedger()
	mirror := memory.New()
	w := NewLedgerWorker(ledger, mirror, cache.NewLRUCache[core.Budget](8, time.Minute), logger)
	return w, ledger, mirror, &buf
}

func event(t amqp.EventType, category string) *amqp.LedgerEvent {
	return amqp.NewLedgerEvent(t, 1, category, core.Money{Cents: 100})
}

func TestHandleEvent_BudgetExceeded(t *testing.T) {
	w, ledger, _, buf := newTestWorker(t)
	ledger.budgets["Food"] = core.Budget{ID: 1, Category: "Food", Limit: core.Money{Cents: 10000}}
	ledger.spent["Food"] = core.Money{Cents: 12000}

	require.NoError(t, w.HandleEvent(context.Background(), event(amqp.EventExpenseCreated, "Food")))

	assert.Contains(t, buf.String(), `"msg":"Budget exceeded"`)
	assert.Contains(t, buf.String(), `"component":"worker"`)
	assert.Contains(t, buf.String(), `"spent":"120.00"`)
}

func TestCheckBudget(t *testing.T) {
	tests := []struct {
		name      string
		spent     int64
		wantMsg   string
		wantNoMsg []string
		exceeded  bool
		remaining int64
	}{
		{
			name:      "well under",
			spent:     1000,
			wantNoMsg: []string{"Budget exceeded", "Budget nearly used"},
			remaining: 9000,
		},
		{
			name:      "near limit",
			spent:     8500,
			wantMsg:   "Budget nearly used",
			wantNoMsg: []string{"Budget exceeded"},
			remaining: 1500,
		},
		{
			name:      "exactly at limit",
			spent:     10000,
			wantMsg:   "Budget nearly used",
			wantNoMsg: []string{"Budget exceeded"},
			remaining: 0,
		},
		{
			name:     "over",
			spent:    10001,
			wantMsg:  "Budget exceeded",
			exceeded: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, ledger, _, buf := newTestWorker(t)
			ledger.budgets["Food"] = core.Budget{ID: 1, Category: "Food", Limit: core.Money{Cents: 10000}}
			ledger.spent["Food"] = core.Money{Cents: tt.spent}

			status, err := w.CheckBudget(context.Background(), "Food")
			require.NoError(t, err)
			assert.Equal(t, tt.exceeded, status.Exceeded)
			assert.Equal(t, tt.remaining, status.Remaining.Cents)
			if tt.wantMsg != "" {
				assert.Contains(t, buf.String(), tt.wantMsg)
			}
			for _, msg := range tt.wantNoMsg {
				assert.NotContains(t, buf.String(), msg)
			}
		})
	}
}

func TestCheckBudget_NoBudget(t *testing.T) {
	w, _, _, _ := newTestWorker(t)

	status, err := w.CheckBudget(context.Background(), "Travel")
	require.NoError(t, err)
	assert.Equal(t, core.BudgetStatus{}, status)
}

func TestHandleEvent_CachesBudgetsUntilBudgetSet(t *testing.T) {
	w, ledger, _, _ := newTestWorker(t)
	ctx := context.Background()
	ledger.budgets["Food"] = core.Budget{ID: 1, Category: "Food", Limit: core.Money{Cents: 10000}}

	require.NoError(t, w.HandleEvent(ctx, event(amqp.EventExpenseCreated, "Food")))
	require.NoError(t, w.HandleEvent(ctx, event(amqp.EventExpenseUpdated, "Food")))
	assert.Equal(t, 1, ledger.budgetLookups)

	ledger.budgets["Food"] = core.Budget{ID: 1, Category: "Food", Limit: core.Money{Cents: 50}}
	ledger.spent["Food"] = core.Money{Cents: 100}
	require.NoError(t, w.HandleEvent(ctx, event(amqp.EventBudgetSet, "Food")))

	status, err := w.CheckBudget(ctx, "Food")
	require.NoError(t, err)
	assert.Equal(t, 2, ledger.budgetLookups)
	assert.True(t, status.Exceeded, "the new limit is used after budget.set")
}

func TestHandleEvent_IgnoresNonSpendingEvents(t *testing.T) {
	w, ledger, _, _ := newTestWorker(t)
	ctx := context.Background()

	for _, typ := range []amqp.EventType{
		amqp.EventExpenseDeleted,
		amqp.EventIncomeCreated,
		amqp.EventIncomeDeleted,
		amqp.EventGoalCreated,
		amqp.EventGoalDeleted,
	} {
		require.NoError(t, w.HandleEvent(ctx, event(typ, "Food")))
	}
	assert.Zero(t, ledger.budgetLookups)
}

func TestSyncSnapshot_DirtyFlag(t *testing.T) {
	w, ledger, mirror, _ := newTestWorker(t)
	ctx := context.Background()

	assert.True(t, w.Dirty(), "a new worker always syncs once")
	require.NoError(t, w.SyncSnapshot(ctx, false))
	assert.Equal(t, 1, mirror.Writes())
	assert.False(t, w.Dirty())

	require.NoError(t, w.SyncSnapshot(ctx, false))
	assert.Equal(t, 1, mirror.Writes(), "clean mirror is not rewritten")
	assert.Equal(t, 1, ledger.snapshots)

	require.NoError(t, w.SyncSnapshot(ctx, true))
	assert.Equal(t, 2, mirror.Writes())

	require.NoError(t, w.HandleEvent(ctx, event(amqp.EventIncomeCreated, "Salary")))
	assert.True(t, w.Dirty())
	require.NoError(t, w.SyncSnapshot(ctx, false))
	assert.Equal(t, 3, mirror.Writes())

	snap, ok := mirror.Last()
	require.True(t, ok)
	assert.Len(t, snap.Budgets, 1)
}

func TestSyncSnapshot_FailureKeepsDirty(t *testing.T) {
	w, ledger, mirror, _ := newTestWorker(t)
	ctx := context.Background()
	ledger.snapshotErr = errors.New("database is locked")

	err := w.SyncSnapshot(ctx, false)
	require.Error(t, err)
	assert.True(t, w.Dirty())
	assert.Zero(t, mirror.Writes())

	ledger.snapshotErr = nil
	require.NoError(t, w.SyncSnapshot(ctx, false))
	assert.False(t, w.Dirty())
	assert.Equal(t, 1, mirror.Writes())
}

func TestRunSync_StopsOnCancel(t *testing.T) {
	w, _, mirror, _ := newTestWorker(t)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- w.RunSync(ctx, 5*time.Millisecond) }()

	require.Eventually(t, func() bool { return mirror.Writes() == 1 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("RunSync did not return after cancel")
	}
}
