package worker

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"ledger/internal/amqp"
	"ledger/internal/cache"
	"ledger/internal/core"
	"ledger/internal/log"
	"ledger/internal/sheets"
)

// Ledger is the read side of the ledger service the worker depends on.
type Ledger interface {
	BudgetForCategory(ctx context.Context, category string) (core.Budget, error)
	SpentInCategory(ctx context.Context, category string) (core.Money, error)
	Snapshot(ctx context.Context) (core.Snapshot, error)
}

// WarnThreshold is the share of a budget, in percent, above which spending is reported.
const WarnThreshold = 80.0

// LedgerWorker reacts to ledger events: it checks budgets after spending
// changes and keeps an external mirror of the ledger up to date.
type LedgerWorker struct {
	ledger  Ledger
	mirror  sheets.SnapshotWriter
	budgets *cache.LRUCache[core.Budget]
	logger  *log.Logger

	dirty atomic.Bool
}

// NewLedgerWorker creates a worker. The mirror starts out dirty so the first
// sync always writes.
func NewLedgerWorker(ledger Ledger, mirror sheets.SnapshotWriter, budgets *cache.LRUCache[core.Budget], logger *log.Logger) *LedgerWorker {
	w := &LedgerWorker{
		ledger:  ledger,
		mirror:  mirror,
		budgets: budgets,
		logger:  logger.WithComponent(log.ComponentWorker),
	}
	w.dirty.Store(true)
	return w
}

// HandleEvent processes one event from the queue. A returned error asks for redelivery.
func (w *LedgerWorker) HandleEvent(ctx context.Context, e *amqp.LedgerEvent) error {
	w.dirty.Store(true)

	w.logger.DebugContext(ctx, "Processing ledger event",
		log.FieldEventType, e.Type,
		log.FieldCategory, e.Category,
		"entity_id", e.EntityID)

	switch {
	case e.Type == amqp.EventBudgetSet:
		w.budgets.Delete(e.Category)
		return nil
	case e.Type.AffectsSpending():
		_, err := w.CheckBudget(ctx, e.Category)
		return err
	default:
		return nil
	}
}

// CheckBudget compares spending in category against its budget and logs when
// the warning threshold or the limit is crossed. A category without a
// budget yields a zero status.
func (w *LedgerWorker) CheckBudget(ctx context.Context, category string) (status core.BudgetStatus, err error) {
	budget, found, err := w.budgetFor(ctx, category)
	if err != nil || !found {
		return core.BudgetStatus{}, err
	}

	spent, err := w.ledger.SpentInCategory(ctx, category)
	if err != nil {
		return core.BudgetStatus{}, fmt.Errorf("sum spending for %q: %w", category, err)
	}

	status = core.NewBudgetStatus(budget, spent)
	used := core.Percent(spent, budget.Limit)

	switch {
	case status.Exceeded:
		w.logger.WarnContext(ctx, "Budget exceeded",
			log.FieldCategory, category,
			log.FieldBudgetLimit, budget.Limit.String(),
			log.FieldSpent, spent.String())
	case used >= WarnThreshold:
		w.logger.InfoContext(ctx, "Budget nearly used",
			log.FieldCategory, category,
			log.FieldBudgetLimit, budget.Limit.String(),
			log.FieldSpent, spent.String(),
			"used_percent", core.RoundPercent(used))
	}
	return status, nil
}

func (w *LedgerWorker) budgetFor(ctx context.Context, category string) (core.Budget, bool, error) {
	if b, ok := w.budgets.Get(category); ok {
		return b, true, nil
	}

	b, err := w.ledger.BudgetForCategory(ctx, category)
	if errors.Is(err, core.ErrNotFound) {
		return core.Budget{}, false, nil
	}
	if err != nil {
		return core.Budget{}, false, fmt.Errorf("load budget for %q: %w", category, err)
	}

	w.budgets.Set(category, b)
	return b, true, nil
}

// Dirty reports whether the mirror is behind the ledger.
func (w *LedgerWorker) Dirty() bool {
	return w.dirty.Load()
}

// SyncSnapshot writes a fresh snapshot to the mirror when the ledger changed
// since the last successful sync, or always when force is set. On failure the
// mirror stays dirty.
func (w *LedgerWorker) SyncSnapshot(ctx context.Context, force bool) error {
	if !w.dirty.Swap(false) && !force {
		return nil
	}

	if err := w.syncSnapshot(ctx); err != nil {
		w.dirty.Store(true)
		return err
	}
	return nil
}

func (w *LedgerWorker) syncSnapshot(ctx context.Context) error {
	start := time.Now()

	snap, err := w.ledger.Snapshot(ctx)
	if err != nil {
		return fmt.Errorf("read snapshot: %w", err)
	}
	if err := w.mirror.WriteSnapshot(ctx, snap); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}

	w.logger.InfoContext(ctx, "Snapshot synced",
		log.FieldOperation, log.OpSync,
		"expenses", len(snap.Expenses),
		"income", len(snap.Income),
		"budgets", len(snap.Budgets),
		"goals", len(snap.Goals),
		"duration", time.Since(start))
	return nil
}

// RunSync syncs every interval until ctx is done. Failed syncs are logged and
// retried on the next tick.
func (w *LedgerWorker) RunSync(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := w.SyncSnapshot(ctx, false); err != nil {
				w.logger.ErrorContext(ctx, "Snapshot sync failed", log.FieldError, err)
			}
		case <-ctx.Done():
			return nil
		}
	}
}
