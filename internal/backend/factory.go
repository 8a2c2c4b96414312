package backend

import (
	"context"
	"fmt"
	"log/slog"

	"adspend/internal/source/appsheet"
	gsheet "adspend/internal/source/google"
	"adspend/internal/source/memory"
	"adspend/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{
		logger: logger,
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case AppSheetBackend:
		return f.createAppSheetBackend(config)
	case SheetsBackend:
		return f.createSheetsBackend(ctx, config)
	case SQLiteBackend:
		return f.createSQLiteBackend(config)
	case MemoryBackend:
		return f.createMemoryBackend(config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createAppSheetBackend(config Config) (*BackendResult, error) {
	cli, err := appsheet.New(appsheet.Config{
		BaseURL:   config.AppSheetBaseURL,
		AppID:     config.AppSheetAppID,
		Table:     config.AppSheetTable,
		AccessKey: config.AppSheetAccessKey,
		Locale:    config.AppSheetLocale,
		Timezone:  config.AppSheetTimezone,
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize AppSheet client: %w", err)
	}

	f.logger.Info("Initialized AppSheet backend",
		"app_id", config.AppSheetAppID,
		"table", config.AppSheetTable)

	return &BackendResult{Source: cli}, nil
}

func (f *DefaultFactory) createSheetsBackend(ctx context.Context, config Config) (*BackendResult, error) {
	cli, err := gsheet.New(ctx, gsheet.Config{
		SpreadsheetID:   config.GoogleSpreadsheetID,
		Range:           config.GoogleSheetRange,
		CredentialsJSON: config.GoogleServiceAccountJSON,
		CredentialsFile: config.GoogleServiceAccountFile,
		OAuthClientJSON: config.GoogleOAuthClientJSON,
		OAuthClientFile: config.GoogleOAuthClientFile,
		OAuthTokenJSON:  config.GoogleOAuthTokenJSON,
		OAuthTokenFile:  config.GoogleOAuthTokenFile,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
	}

	f.logger.Info("Initialized Google Sheets backend", "range", config.GoogleSheetRange)

	return &BackendResult{Source: cli}, nil
}

func (f *DefaultFactory) createSQLiteBackend(config Config) (*BackendResult, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}

	f.logger.Info("Initialized SQLite snapshot backend", "db_path", config.SQLiteDBPath)

	return &BackendResult{
		Source:  repo,
		Cleanup: repo.Close,
	}, nil
}

func (f *DefaultFactory) createMemoryBackend(config Config) (*BackendResult, error) {
	seed := config.MemorySeedFile
	if seed == "" {
		seed = "data/rows.json"
	}

	store, err := memory.NewFromFile(seed)
	if err != nil {
		return nil, fmt.Errorf("failed to load memory seed: %w", err)
	}

	f.logger.Info("Initialized memory backend", "seed_file", seed)

	return &BackendResult{Source: store}, nil
}
