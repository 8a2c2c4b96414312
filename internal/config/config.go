package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/samber/lo"

	"adspend/internal/core"
)

// Backends the dashboard can read rows from.
const (
	BackendAppSheet = "appsheet"
	BackendSheets   = "sheets"
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
)

type Config struct {
	// HTTP Server
	Port           string
	TrustedProxies []string

	// Logging
	LogLevel  string
	LogFormat string

	// Database
	SQLiteDBPath string
	SnapshotKeep int

	// AMQP (optional; empty URL disables events)
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// AppSheet
	AppSheetBaseURL   string
	AppSheetAppID     string
	AppSheetTable     string
	AppSheetAccessKey string
	AppSheetLocale    string
	AppSheetTimezone  string

	// Google Sheets
	GoogleSpreadsheetID      string
	GoogleSheetRange         string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string
	GoogleOAuthClientJSON    string
	GoogleOAuthClientFile    string
	GoogleOAuthTokenJSON     string
	GoogleOAuthTokenFile     string

	// Memory backend
	MemorySeedFile string

	// Report schema and parsing
	ColumnDate        string
	ColumnSpend       string
	ColumnMessages    string
	ColumnCampaign    string
	DateLayout        string
	SearchFoldAccents bool
	CampaignFallback  string

	// Presentation
	Locale   string
	Currency string

	// Refresh
	FetchTimeout      time.Duration
	RefreshRatePerMin int
	RefreshBurst      int
	ViewCacheSize     int
	ViewCacheTTL      time.Duration

	// Worker
	SyncInterval      time.Duration
	WorkerMetricsAddr string

	// Backend selection
	DataBackend     string
	UpstreamBackend string
}

func Load() *Config {
	schema := core.DefaultSchema()
	cfg := &Config{
		Port:           getEnv("PORT", "8081"),
		TrustedProxies: getEnvList("TRUSTED_PROXIES"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		LogFormat:      getEnv("LOG_FORMAT", "text"),

		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/adspend.db"),
		SnapshotKeep: getEnvInt("SNAPSHOT_KEEP", 20),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "adspend"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "snapshot_updated"),

		AppSheetBaseURL:   getEnv("APPSHEET_BASE_URL", "https://api.appsheet.com/api/v2"),
		AppSheetAppID:     getEnv("APPSHEET_APP_ID", ""),
		AppSheetTable:     getEnv("APPSHEET_TABLE", "data_ads"),
		AppSheetAccessKey: getEnv("APPSHEET_ACCESS_KEY", ""),
		AppSheetLocale:    getEnv("APPSHEET_LOCALE", "vi-VN"),
		AppSheetTimezone:  getEnv("APPSHEET_TIMEZONE", "Asia/Ho_Chi_Minh"),

		GoogleSpreadsheetID:      getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSheetRange:         getEnv("GOOGLE_SHEET_RANGE", "data_ads!A:Z"),
		GoogleServiceAccountJSON: getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),
		GoogleServiceAccountFile: getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", ""),
		GoogleOAuthClientJSON:    getEnv("GOOGLE_OAUTH_CLIENT_JSON", ""),
		GoogleOAuthClientFile:    getEnv("GOOGLE_OAUTH_CLIENT_FILE", ""),
		GoogleOAuthTokenJSON:     getEnv("GOOGLE_OAUTH_TOKEN_JSON", ""),
		GoogleOAuthTokenFile:     getEnv("GOOGLE_OAUTH_TOKEN_FILE", ""),

		MemorySeedFile: getEnv("MEMORY_SEED_FILE", "data/rows.json"),

		ColumnDate:        getEnv("COLUMN_DATE", schema.Date),
		ColumnSpend:       getEnv("COLUMN_SPEND", schema.Spend),
		ColumnMessages:    getEnv("COLUMN_MESSAGES", schema.Messages),
		ColumnCampaign:    getEnv("COLUMN_CAMPAIGN", schema.Campaign),
		DateLayout:        getEnv("DATE_LAYOUT", string(core.LayoutDMY)),
		SearchFoldAccents: getEnvBool("SEARCH_FOLD_ACCENTS", false),
		CampaignFallback:  getEnv("CAMPAIGN_FALLBACK", core.DefaultCampaignPlaceholder),

		Locale:   getEnv("CURRENCY_LOCALE", "vi"),
		Currency: getEnv("CURRENCY", "VND"),

		FetchTimeout:      getEnvDuration("FETCH_TIMEOUT", 30*time.Second),
		RefreshRatePerMin: getEnvInt("REFRESH_RATE_PER_MIN", 6),
		RefreshBurst:      getEnvInt("REFRESH_BURST", 3),
		ViewCacheSize:     getEnvInt("VIEW_CACHE_SIZE", 256),
		ViewCacheTTL:      getEnvDuration("VIEW_CACHE_TTL", 10*time.Minute),

		SyncInterval:      getEnvDuration("SYNC_INTERVAL", 5*time.Minute),
		WorkerMetricsAddr: getEnv("WORKER_METRICS_ADDR", ""),

		DataBackend:     getEnv("DATA_BACKEND", BackendAppSheet),
		UpstreamBackend: getEnv("UPSTREAM_BACKEND", BackendAppSheet),
	}

	return cfg
}

// Schema returns the configured upstream column names.
func (c *Config) Schema() core.Schema {
	return core.Schema{
		Date:     c.ColumnDate,
		Spend:    c.ColumnSpend,
		Messages: c.ColumnMessages,
		Campaign: c.ColumnCampaign,
	}
}

// AMQPEnabled reports whether snapshot events are configured.
func (c *Config) AMQPEnabled() bool {
	return c.AMQPURL != ""
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	// Validate port
	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	// Validate data backend
	validBackends := []string{BackendAppSheet, BackendSheets, BackendMemory, BackendSQLite}
	if !slices.Contains(validBackends, c.DataBackend) {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	// The worker always reads a live upstream
	validUpstreams := []string{BackendAppSheet, BackendSheets}
	if !slices.Contains(validUpstreams, c.UpstreamBackend) {
		errors = append(errors, fmt.Sprintf("invalid upstream backend '%s': must be one of %v", c.UpstreamBackend, validUpstreams))
	}

	if _, err := core.ParseDateLayout(c.DateLayout); err != nil {
		errors = append(errors, fmt.Sprintf("invalid date layout '%s': must be 'dmy' or 'mdy'", c.DateLayout))
	}

	if err := c.Schema().Validate(); err != nil {
		errors = append(errors, "column names cannot be empty")
	}

	switch c.DataBackend {
	case BackendAppSheet:
		errors = append(errors, c.validateAppSheet()...)
	case BackendSheets:
		errors = append(errors, c.validateSheets()...)
	case BackendSQLite:
		errors = append(errors, c.validateSQLite()...)
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

	if c.FetchTimeout < time.Second {
		errors = append(errors, fmt.Sprintf("invalid fetch timeout %v: must be at least 1 second", c.FetchTimeout))
	} else if c.FetchTimeout > 5*time.Minute {
		errors = append(errors, fmt.Sprintf("invalid fetch timeout %v: must be at most 5 minutes", c.FetchTimeout))
	}

	if c.RefreshRatePerMin < 1 {
		errors = append(errors, fmt.Sprintf("invalid refresh rate %d: must be at least 1 per minute", c.RefreshRatePerMin))
	}
	if c.RefreshBurst < 1 {
		errors = append(errors, fmt.Sprintf("invalid refresh burst %d: must be at least 1", c.RefreshBurst))
	}

	if c.Locale == "" || c.Currency == "" {
		errors = append(errors, "currency locale and code cannot be empty")
	}

	// Validate worker configuration
	if c.SnapshotKeep < 1 {
		errors = append(errors, fmt.Sprintf("invalid snapshot retention %d: must be at least 1", c.SnapshotKeep))
	} else if c.SnapshotKeep > 1000 {
		errors = append(errors, fmt.Sprintf("invalid snapshot retention %d: must be at most 1000", c.SnapshotKeep))
	}

	if c.SyncInterval < time.Second {
		errors = append(errors, fmt.Sprintf("invalid sync interval %v: must be at least 1 second", c.SyncInterval))
	} else if c.SyncInterval > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid sync interval %v: must be at most 24 hours", c.SyncInterval))
	}

	// Return combined errors
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// ValidateUpstream checks the settings of the backend the worker reads.
func (c *Config) ValidateUpstream() error {
	var errors []string
	switch c.UpstreamBackend {
	case BackendAppSheet:
		errors = c.validateAppSheet()
	case BackendSheets:
		errors = c.validateSheets()
	}
	errors = append(errors, c.validateSQLite()...)
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

func (c *Config) validateAppSheet() []string {
	var errors []string
	if c.AppSheetAppID == "" {
		errors = append(errors, "APPSHEET_APP_ID is required when using appsheet backend")
	}
	if c.AppSheetTable == "" {
		errors = append(errors, "APPSHEET_TABLE is required when using appsheet backend")
	}
	if c.AppSheetAccessKey == "" {
		errors = append(errors, "APPSHEET_ACCESS_KEY is required when using appsheet backend")
	}
	if u, err := url.Parse(c.AppSheetBaseURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		errors = append(errors, fmt.Sprintf("invalid AppSheet base URL '%s': must be http(s)", c.AppSheetBaseURL))
	}
	return errors
}

func (c *Config) validateSheets() []string {
	var errors []string
	if c.GoogleSpreadsheetID == "" {
		errors = append(errors, "Google Spreadsheet ID is required when using sheets backend")
	}
	if c.GoogleSheetRange == "" {
		errors = append(errors, "Google Sheet range is required when using sheets backend")
	}

	hasFile := c.GoogleServiceAccountFile != ""
	hasOAuth := c.GoogleOAuthClientJSON != "" || c.GoogleOAuthClientFile != ""
	if !hasFile && c.GoogleServiceAccountJSON == "" && !hasOAuth {
		errors = append(errors, "either GOOGLE_SERVICE_ACCOUNT_FILE or GOOGLE_SERVICE_ACCOUNT_JSON must be provided for sheets backend")
	}
	if hasOAuth && c.GoogleOAuthTokenJSON == "" && c.GoogleOAuthTokenFile == "" {
		errors = append(errors, "GOOGLE_OAUTH_TOKEN_JSON or GOOGLE_OAUTH_TOKEN_FILE is required with an OAuth client (run oauth-init)")
	}
	if hasFile {
		if _, err := os.Stat(c.GoogleServiceAccountFile); os.IsNotExist(err) {
			errors = append(errors, fmt.Sprintf("Google service account file does not exist: %s", c.GoogleServiceAccountFile))
		}
	}
	return errors
}

func (c *Config) validateSQLite() []string {
	if c.SQLiteDBPath == "" {
		return []string{"SQLite database path cannot be empty when using sqlite backend"}
	}
	// Check if directory exists or can be created
	dir := filepath.Dir(c.SQLiteDBPath)
	if dir != "." && dir != "" {
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return []string{fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err)}
			}
		}
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

// getEnvList reads a comma-separated list, dropping blank entries.
func getEnvList(key string) []string {
	parts := strings.Split(os.Getenv(key), ",")
	return lo.Compact(lo.Map(parts, func(p string, _ int) string {
		return strings.TrimSpace(p)
	}))
}
