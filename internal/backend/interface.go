package backend

import (
	"context"

	"adspend/internal/source"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult contains the row source and optional cleanup function
type BackendResult struct {
	Source  source.RowSource
	Cleanup CleanupFunc
}

// Close runs the cleanup function, if any.
func (r *BackendResult) Close() error {
	if r == nil || r.Cleanup == nil {
		return nil
	}
	return r.Cleanup()
}

// Factory creates row sources based on configuration
type Factory interface {
	// CreateBackend creates a row source for the provided config
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	// Backend type
	Type BackendType

	// AppSheet specific
	AppSheetBaseURL   string
	AppSheetAppID     string
	AppSheetTable     string
	AppSheetAccessKey string
	AppSheetLocale    string
	AppSheetTimezone  string

	// Google Sheets specific
	GoogleSpreadsheetID      string
	GoogleSheetRange         string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string
	GoogleOAuthClientJSON    string
	GoogleOAuthClientFile    string
	GoogleOAuthTokenJSON     string
	GoogleOAuthTokenFile     string

	// SQLite specific
	SQLiteDBPath string

	// Memory backend specific
	MemorySeedFile string
}

// BackendType represents the type of backend
type BackendType string

const (
	AppSheetBackend BackendType = "appsheet"
	SheetsBackend   BackendType = "sheets"
	SQLiteBackend   BackendType = "sqlite"
	MemoryBackend   BackendType = "memory"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case AppSheetBackend, SheetsBackend, SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}

// IsUpstream reports whether the backend reads a live upstream table.
func (bt BackendType) IsUpstream() bool {
	return bt == AppSheetBackend || bt == SheetsBackend
}
