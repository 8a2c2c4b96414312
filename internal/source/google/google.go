// Package google reads report rows from a Google Sheets range. The first row
// of the range is the header; every following row becomes one RawRecord.
package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"golang.org/x/oauth2"
	googleoauth "golang.org/x/oauth2/google"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"adspend/internal/core"
	"adspend/internal/source"
)

var _ source.RowSource = (*Client)(nil)

// Config selects the spreadsheet range and the credentials. A service
// account wins over an OAuth client and token pair.
type Config struct {
	SpreadsheetID   string
	Range           string // e.g. "data_ads!A:Z"
	CredentialsJSON string
	CredentialsFile string

	// OAuth user credentials, as written by cmd/oauth-init.
	OAuthClientJSON string
	OAuthClientFile string
	OAuthTokenJSON  string
	OAuthTokenFile  string
}

// HasOAuth reports whether an OAuth client is configured.
func (c Config) HasOAuth() bool {
	return strings.TrimSpace(c.OAuthClientJSON) != "" || strings.TrimSpace(c.OAuthClientFile) != ""
}

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	rng           string
}

// New creates a Sheets client authenticated with a service account.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	if strings.TrimSpace(cfg.Range) == "" {
		return nil, errors.New("missing sheet range")
	}
	svc, err := newSheetsService(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return NewWithService(svc, cfg.SpreadsheetID, cfg.Range), nil
}

// NewWithService wraps an already configured Sheets service.
func NewWithService(svc *gsheet.Service, spreadsheetID, rng string) *Client {
	return &Client{svc: svc, spreadsheetID: spreadsheetID, rng: rng}
}

func (c *Client) Name() string {
	return "sheets:" + c.rng
}

// newSheetsService initializes a read-only Sheets service from a service
// account (inline JSON, file, or GOOGLE_APPLICATION_CREDENTIALS) or, failing
// that, from an OAuth client and saved token.
func newSheetsService(ctx context.Context, cfg Config) (*gsheet.Service, error) {
	credsJSON := strings.TrimSpace(cfg.CredentialsJSON)
	credsFile := strings.TrimSpace(cfg.CredentialsFile)
	if credsJSON == "" && credsFile == "" && !cfg.HasOAuth() {
		credsFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var auth goption.ClientOption
	switch {
	case credsJSON != "" || credsFile != "":
		data, err := readInlineOrFile(credsJSON, credsFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		slog.InfoContext(ctx, "Creating Google Sheets service",
			"auth", "service_account",
			"credentials_size", len(data),
			"scope", gsheet.SpreadsheetsReadonlyScope)
		auth = goption.WithCredentialsJSON(data)
	case cfg.HasOAuth():
		ts, err := oauthTokenSource(ctx, cfg)
		if err != nil {
			return nil, err
		}
		slog.InfoContext(ctx, "Creating Google Sheets service",
			"auth", "oauth",
			"scope", gsheet.SpreadsheetsReadonlyScope)
		auth = goption.WithTokenSource(ts)
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	svc, err := gsheet.NewService(ctx, auth, goption.WithScopes(gsheet.SpreadsheetsReadonlyScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return svc, nil
}

// oauthTokenSource builds a refreshing token source from an OAuth client
// and a token saved by cmd/oauth-init.
func oauthTokenSource(ctx context.Context, cfg Config) (oauth2.TokenSource, error) {
	clientData, err := readInlineOrFile(cfg.OAuthClientJSON, cfg.OAuthClientFile)
	if err != nil {
		return nil, fmt.Errorf("read oauth client: %w", err)
	}
	conf, err := googleoauth.ConfigFromJSON(clientData, gsheet.SpreadsheetsReadonlyScope)
	if err != nil {
		return nil, fmt.Errorf("oauth config: %w", err)
	}

	if strings.TrimSpace(cfg.OAuthTokenJSON) == "" && strings.TrimSpace(cfg.OAuthTokenFile) == "" {
		return nil, errors.New("missing oauth token (set GOOGLE_OAUTH_TOKEN_JSON or GOOGLE_OAUTH_TOKEN_FILE)")
	}
	tokenData, err := readInlineOrFile(cfg.OAuthTokenJSON, cfg.OAuthTokenFile)
	if err != nil {
		return nil, fmt.Errorf("read oauth token: %w", err)
	}
	var tok oauth2.Token
	if err := json.Unmarshal(tokenData, &tok); err != nil {
		return nil, fmt.Errorf("decode oauth token: %w", err)
	}
	return conf.TokenSource(ctx, &tok), nil
}

func readInlineOrFile(inline, path string) ([]byte, error) {
	if v := strings.TrimSpace(inline); v != "" {
		return []byte(v), nil
	}
	return os.ReadFile(strings.TrimSpace(path))
}

// FetchRows reads the configured range and keys each data row by header.
func (c *Client) FetchRows(ctx context.Context) ([]core.RawRecord, error) {
	if c.svc == nil {
		return nil, errors.New("sheets service not initialized")
	}
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, c.rng).Context(ctx).Do()
	if err != nil {
		return nil, &core.NetworkError{Err: fmt.Errorf("read %s: %w", c.rng, err)}
	}
	records := valuesToRecords(resp.Values)
	slog.DebugContext(ctx, "Sheet rows fetched", "range", c.rng, "rows", len(records))
	return records, nil
}
