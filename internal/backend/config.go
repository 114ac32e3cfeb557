package backend

import (
	"errors"
	"fmt"

	"ledger/internal/config"
)

// FromAppConfig selects the Sheets mirror when a spreadsheet is configured
// and the in-memory mirror otherwise.
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, errors.New("app config is nil")
	}

	mirrorType := MemoryMirror
	if appConfig.SheetsEnabled() {
		mirrorType = SheetsMirror
	}

	return Config{
		Type:                     mirrorType,
		GoogleSpreadsheetID:      appConfig.GoogleSpreadsheetID,
		GoogleServiceAccountFile: appConfig.GoogleServiceAccountFile,
		GoogleServiceAccountJSON: appConfig.GoogleServiceAccountJSON,
	}, nil
}

// Validate validates the mirror configuration
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid mirror type: %s", c.Type)
	}

	if c.Type == SheetsMirror {
		if c.GoogleSpreadsheetID == "" {
			return errors.New("Google Spreadsheet ID is required for the sheets mirror")
		}
		if c.GoogleServiceAccountFile == "" && c.GoogleServiceAccountJSON == "" {
			return errors.New("either GoogleServiceAccountFile or GoogleServiceAccountJSON must be provided for the sheets mirror")
		}
	}
	return nil
}
