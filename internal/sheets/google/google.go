package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"ledger/internal/core"
	ports "ledger/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// Config selects the spreadsheet and the service account used to write it.
// CredentialsJSON wins over CredentialsFile when both are set.
type Config struct {
	SpreadsheetID   string
	CredentialsFile string
	CredentialsJSON string
}

// Client mirrors ledger snapshots into a spreadsheet, one tab per collection.
type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
}

// Ensure interface conformance
var _ ports.SnapshotWriter = (*Client)(nil)

// New creates a Sheets client authenticated with a service account.
func New(ctx context.Context, cfg Config) (*Client, error) {
	credentialsJSON, err := loadCredentials(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return NewWithOptions(ctx, cfg.SpreadsheetID,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
}

// NewWithOptions creates a client from raw API options.
func NewWithOptions(ctx context.Context, spreadsheetID string, opts ...goption.ClientOption) (*Client, error) {
	spreadsheetID = strings.TrimSpace(spreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing spreadsheet ID")
	}

	svc, err := gsheet.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	slog.InfoContext(ctx, "Google Sheets service created", "spreadsheet_id", spreadsheetID)
	return &Client{svc: svc, spreadsheetID: spreadsheetID}, nil
}

func loadCredentials(ctx context.Context, cfg Config) ([]byte, error) {
	inline := strings.TrimSpace(cfg.CredentialsJSON)
	file := strings.TrimSpace(cfg.CredentialsFile)

	switch {
	case inline != "":
		slog.DebugContext(ctx, "Using inline service account credentials")
		return []byte(inline), nil
	case file != "":
		slog.DebugContext(ctx, "Reading service account credentials", "path", file)
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return data, nil
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_SERVICE_ACCOUNT_FILE)")
	}
}

// WriteSnapshot replaces the contents of every mirrored tab with snap.
// Missing tabs are created first. New rows are written over the old ones,
// then any rows left below them are cleared.
func (c *Client) WriteSnapshot(ctx context.Context, snap core.Snapshot) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}

	if err := c.ensureTabs(ctx); err != nil {
		return err
	}

	rows := ports.Rows(snap)
	data := make([]*gsheet.ValueRange, 0, len(ports.Tabs))
	stale := make([]string, 0, len(ports.Tabs))
	for _, tab := range ports.Tabs {
		data = append(data, &gsheet.ValueRange{
			Range:  tab + "!A1",
			Values: rows[tab],
		})
		stale = append(stale, staleRange(tab, len(rows[tab])))
	}

	// Overwrite first so a failed call leaves the previous snapshot readable.
	_, err := c.svc.Spreadsheets.Values.BatchUpdate(c.spreadsheetID, &gsheet.BatchUpdateValuesRequest{
		ValueInputOption: "RAW",
		Data:             data,
	}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("write mirrored tabs: %w", err)
	}

	_, err = c.svc.Spreadsheets.Values.BatchClear(c.spreadsheetID, &gsheet.BatchClearValuesRequest{
		Ranges: stale,
	}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("clear stale rows: %w", err)
	}

	slog.DebugContext(ctx, "Snapshot written to Google Sheets",
		"expenses", len(snap.Expenses),
		"income", len(snap.Income),
		"budgets", len(snap.Budgets),
		"goals", len(snap.Goals))
	return nil
}

func (c *Client) ensureTabs(ctx context.Context) error {
	ss, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties.title").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("read spreadsheet: %w", err)
	}

	missing := missingTabs(ss)
	if len(missing) == 0 {
		return nil
	}

	requests := make([]*gsheet.Request, len(missing))
	for i, title := range missing {
		requests[i] = &gsheet.Request{
			AddSheet: &gsheet.AddSheetRequest{Properties: &gsheet.SheetProperties{Title: title}},
		}
	}
	_, err = c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, &gsheet.BatchUpdateSpreadsheetRequest{
		Requests: requests,
	}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("create tabs %v: %w", missing, err)
	}

	slog.InfoContext(ctx, "Created spreadsheet tabs", "tabs", missing)
	return nil
}

func missingTabs(ss *gsheet.Spreadsheet) []string {
	existing := make(map[string]bool)
	for _, sh := range ss.Sheets {
		if sh != nil && sh.Properties != nil {
			existing[sh.Properties.Title] = true
		}
	}

	var missing []string
	for _, tab := range ports.Tabs {
		if !existing[tab] {
			missing = append(missing, tab)
		}
	}
	return missing
}

// staleRange covers every row below the first written rows of tab.
func staleRange(tab string, written int) string {
	return fmt.Sprintf("%s!A%d:Z", tab, written+1)
}
