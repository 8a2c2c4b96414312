package backend

import (
	"fmt"

	"adspend/internal/config"
)

// FromAppConfig converts the application config to the backend config of
// the dashboard's data backend.
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}
	return fromAppConfig(appConfig, appConfig.DataBackend)
}

// UpstreamFromAppConfig builds the backend config for the live upstream the
// snapshot worker reads.
func UpstreamFromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}
	cfg, err := fromAppConfig(appConfig, appConfig.UpstreamBackend)
	if err != nil {
		return Config{}, err
	}
	if !cfg.Type.IsUpstream() {
		return Config{}, fmt.Errorf("backend %s is not a live upstream", cfg.Type)
	}
	return cfg, nil
}

func fromAppConfig(appConfig *config.Config, kind string) (Config, error) {
	backendType := BackendType(kind)
	if !backendType.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s", kind)
	}

	return Config{
		Type: backendType,

		AppSheetBaseURL:   appConfig.AppSheetBaseURL,
		AppSheetAppID:     appConfig.AppSheetAppID,
		AppSheetTable:     appConfig.AppSheetTable,
		AppSheetAccessKey: appConfig.AppSheetAccessKey,
		AppSheetLocale:    appConfig.AppSheetLocale,
		AppSheetTimezone:  appConfig.AppSheetTimezone,

		GoogleSpreadsheetID:      appConfig.GoogleSpreadsheetID,
		GoogleSheetRange:         appConfig.GoogleSheetRange,
		GoogleServiceAccountJSON: appConfig.GoogleServiceAccountJSON,
		GoogleServiceAccountFile: appConfig.GoogleServiceAccountFile,
		GoogleOAuthClientJSON:    appConfig.GoogleOAuthClientJSON,
		GoogleOAuthClientFile:    appConfig.GoogleOAuthClientFile,
		GoogleOAuthTokenJSON:     appConfig.GoogleOAuthTokenJSON,
		GoogleOAuthTokenFile:     appConfig.GoogleOAuthTokenFile,

		SQLiteDBPath:   appConfig.SQLiteDBPath,
		MemorySeedFile: appConfig.MemorySeedFile,
	}, nil
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}

	switch c.Type {
	case AppSheetBackend:
		if c.AppSheetAppID == "" || c.AppSheetTable == "" {
			return fmt.Errorf("AppSheet app id and table are required for appsheet backend")
		}
		if c.AppSheetAccessKey == "" {
			return fmt.Errorf("AppSheet access key is required for appsheet backend")
		}

	case SheetsBackend:
		if c.GoogleSpreadsheetID == "" {
			return fmt.Errorf("Google Spreadsheet ID is required for sheets backend")
		}
		if c.GoogleSheetRange == "" {
			return fmt.Errorf("Google Sheet range is required for sheets backend")
		}
		hasOAuth := c.GoogleOAuthClientJSON != "" || c.GoogleOAuthClientFile != ""
		if c.GoogleServiceAccountFile == "" && c.GoogleServiceAccountJSON == "" && !hasOAuth {
			return fmt.Errorf("either GoogleServiceAccountFile, GoogleServiceAccountJSON or an OAuth client must be provided for sheets backend")
		}

	case SQLiteBackend:
		if c.SQLiteDBPath == "" {
			return fmt.Errorf("SQLite database path is required for sqlite backend")
		}

	case MemoryBackend:
		// A missing seed file means an empty table
	}

	return nil
}

// GetBackendTypes returns all valid backend types
func GetBackendTypes() []BackendType {
	return []BackendType{AppSheetBackend, SheetsBackend, SQLiteBackend, MemoryBackend}
}

// GetBackendTypeStrings returns all valid backend type strings
func GetBackendTypeStrings() []string {
	types := GetBackendTypes()
	strings := make([]string, len(types))
	for i, t := range types {
		strings[i] = t.String()
	}
	return strings
}
