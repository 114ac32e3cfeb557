package memory

import (
	"context"
	"sync"

	"ledger/internal/core"
	ports "ledger/internal/sheets"
)

// Store keeps the most recent snapshot in memory. It stands in for the
// spreadsheet when no mirror is configured.
type Store struct {
	mu     sync.Mutex
	last   core.Snapshot
	rows   map[string][][]any
	writes int
}

var _ ports.SnapshotWriter = (*Store)(nil)

func New() *Store {
	return &Store{}
}

// WriteSnapshot replaces the stored snapshot.
func (s *Store) WriteSnapshot(ctx context.Context, snap core.Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	rows := ports.Rows(snap)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.last = snap
	s.rows = rows
	s.writes++
	return nil
}

// Last returns the latest snapshot and whether one was ever written.
func (s *Store) Last() (core.Snapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last, s.writes > 0
}

// Tab returns the rows last written for tab, header included.
func (s *Store) Tab(tab string) [][]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rows[tab]
}

// Writes reports how many snapshots have been written.
func (s *Store) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}
