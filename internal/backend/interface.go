package backend

import (
	"context"

	"ledger/internal/sheets"
)

// Mirror is where ledger snapshots are written.
type Mirror = sheets.SnapshotWriter

// Factory creates the mirror selected by the configuration.
type Factory interface {
	CreateMirror(ctx context.Context, config Config) (Mirror, error)
}

// Config holds configuration for mirror creation.
type Config struct {
	Type MirrorType

	// Google Sheets specific
	GoogleSpreadsheetID      string
	GoogleServiceAccountFile string
	GoogleServiceAccountJSON string
}

// MirrorType names a SnapshotWriter implementation.
type MirrorType string

const (
	SheetsMirror MirrorType = "sheets"
	MemoryMirror MirrorType = "memory"
)

func (mt MirrorType) String() string {
	return string(mt)
}

func (mt MirrorType) IsValid() bool {
	switch mt {
	case SheetsMirror, MemoryMirror:
		return true
	default:
		return false
	}
}
