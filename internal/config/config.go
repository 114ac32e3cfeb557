package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"ledger/internal/log"
)

// Keys are matched case-insensitively against the environment, so
// KeySQLitePath is read from SQLITE_DB_PATH.
const (
	KeySQLitePath         = "sqlite_db_path"
	KeyLogLevel           = "log_level"
	KeyLogFormat          = "log_format"
	KeyAMQPURL            = "amqp_url"
	KeyAMQPExchange       = "amqp_exchange"
	KeyAMQPQueue          = "amqp_queue"
	KeySpreadsheetID      = "google_spreadsheet_id"
	KeyServiceAccountFile = "google_service_account_file"
	KeyServiceAccountJSON = "google_service_account_json"
	KeySyncInterval       = "sync_interval"
	KeyBudgetCacheSize    = "budget_cache_size"
	KeyBudgetCacheTTL     = "budget_cache_ttl"
)

type Config struct {
	// Database
	SQLiteDBPath string

	// Logging
	LogLevel  string
	LogFormat string

	// AMQP, disabled when AMQPURL is empty
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Google Sheets mirror, disabled when GoogleSpreadsheetID is empty
	GoogleSpreadsheetID      string
	GoogleServiceAccountFile string
	GoogleServiceAccountJSON string

	// Worker
	SyncInterval    time.Duration
	BudgetCacheSize int
	BudgetCacheTTL  time.Duration
}

// SetDefaults registers default values and environment lookup on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeySQLitePath, "./data/ledger.db")
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogFormat, "text")
	v.SetDefault(KeyAMQPURL, "")
	v.SetDefault(KeyAMQPExchange, "ledger")
	v.SetDefault(KeyAMQPQueue, "ledger_events")
	v.SetDefault(KeySpreadsheetID, "")
	v.SetDefault(KeyServiceAccountFile, "")
	v.SetDefault(KeyServiceAccountJSON, "")
	v.SetDefault(KeySyncInterval, 30*time.Second)
	v.SetDefault(KeyBudgetCacheSize, 128)
	v.SetDefault(KeyBudgetCacheTTL, 5*time.Minute)

	v.AutomaticEnv()
}

// Load reads the configuration from v. Flags bound to v take precedence
// over the environment, which takes precedence over defaults.
func Load(v *viper.Viper) *Config {
	SetDefaults(v)

	return &Config{
		SQLiteDBPath: v.GetString(KeySQLitePath),

		LogLevel:  v.GetString(KeyLogLevel),
		LogFormat: v.GetString(KeyLogFormat),

		AMQPURL:      v.GetString(KeyAMQPURL),
		AMQPExchange: v.GetString(KeyAMQPExchange),
		AMQPQueue:    v.GetString(KeyAMQPQueue),

		GoogleSpreadsheetID:      v.GetString(KeySpreadsheetID),
		GoogleServiceAccountFile: v.GetString(KeyServiceAccountFile),
		GoogleServiceAccountJSON: v.GetString(KeyServiceAccountJSON),

		SyncInterval:    v.GetDuration(KeySyncInterval),
		BudgetCacheSize: v.GetInt(KeyBudgetCacheSize),
		BudgetCacheTTL:  v.GetDuration(KeyBudgetCacheTTL),
	}
}

// AMQPEnabled reports whether events should be published.
func (c *Config) AMQPEnabled() bool {
	return c.AMQPURL != ""
}

// SheetsEnabled reports whether the snapshot mirror targets Google Sheets.
func (c *Config) SheetsEnabled() bool {
	return c.GoogleSpreadsheetID != ""
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	// Validate SQLite configuration
	if c.SQLiteDBPath == "" {
		errors = append(errors, "SQLite database path cannot be empty")
	} else {
		dir := filepath.Dir(c.SQLiteDBPath)
		if dir != "." && dir != "" {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				if err := os.MkdirAll(dir, 0755); err != nil {
					errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
				}
			}
		}
	}

	// Validate logging
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be one of debug, info, warn, error", c.LogLevel))
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		errors = append(errors, fmt.Sprintf("invalid log format '%s': must be 'text' or 'json'", c.LogFormat))
	}

	// Validate AMQP URL if provided
	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	// Validate Google Sheets mirror if enabled
	if c.GoogleSpreadsheetID != "" {
		hasFile := c.GoogleServiceAccountFile != ""
		hasJSON := c.GoogleServiceAccountJSON != ""
		if !hasFile && !hasJSON {
			errors = append(errors, "either GOOGLE_SERVICE_ACCOUNT_FILE or GOOGLE_SERVICE_ACCOUNT_JSON must be provided when GOOGLE_SPREADSHEET_ID is set")
		}
		if hasFile {
			if _, err := os.Stat(c.GoogleServiceAccountFile); os.IsNotExist(err) {
				errors = append(errors, fmt.Sprintf("Google service account file does not exist: %s", c.GoogleServiceAccountFile))
			}
		}
	}

	// Validate worker configuration
	if c.SyncInterval < time.Second {
		errors = append(errors, fmt.Sprintf("invalid sync interval %v: must be at least 1 second", c.SyncInterval))
	} else if c.SyncInterval > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid sync interval %v: must be at most 24 hours", c.SyncInterval))
	}

	if c.BudgetCacheSize < 1 {
		errors = append(errors, fmt.Sprintf("invalid budget cache size %d: must be at least 1", c.BudgetCacheSize))
	}
	if c.BudgetCacheTTL <= 0 {
		errors = append(errors, fmt.Sprintf("invalid budget cache TTL %v: must be positive", c.BudgetCacheTTL))
	}

	// Return combined errors
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}
