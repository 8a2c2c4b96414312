// Package appsheet reads report rows from an AppSheet table through the
// AppSheet REST API "Find" action.
package appsheet

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"adspend/internal/core"
	"adspend/internal/source"
)

const (
	DefaultBaseURL  = "https://api.appsheet.com/api/v2"
	DefaultLocale   = "vi-VN"
	DefaultTimezone = "Asia/Ho_Chi_Minh"

	accessKeyHeader = "ApplicationAccessKey"
	maxBodyBytes    = 32 << 20
	maxErrorExcerpt = 512
)

var _ source.RowSource = (*Client)(nil)

// Config holds the AppSheet connection settings.
type Config struct {
	BaseURL   string
	AppID     string
	Table     string
	AccessKey string
	Locale    string
	Timezone  string
}

// Client fetches every row of one AppSheet table.
type Client struct {
	cfg      Config
	endpoint string
	http     *http.Client
}

type findRequest struct {
	Action     string         `json:"Action"`
	Properties findProperties `json:"Properties"`
}

type findProperties struct {
	Locale   string `json:"Locale"`
	Timezone string `json:"Timezone"`
	Selector string `json:"Selector"`
}

// New validates cfg and returns a client. A nil httpClient uses a pooled
// client with conservative timeouts.
func New(cfg Config, httpClient *http.Client) (*Client, error) {
	if strings.TrimSpace(cfg.AppID) == "" {
		return nil, errors.New("missing AppSheet app id")
	}
	if strings.TrimSpace(cfg.Table) == "" {
		return nil, errors.New("missing AppSheet table name")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Locale == "" {
		cfg.Locale = DefaultLocale
	}
	if cfg.Timezone == "" {
		cfg.Timezone = DefaultTimezone
	}
	if httpClient == nil {
		httpClient = newHTTPClientWithPooling()
	}

	endpoint := fmt.Sprintf("%s/apps/%s/tables/%s/Action",
		strings.TrimRight(cfg.BaseURL, "/"),
		url.PathEscape(cfg.AppID),
		url.PathEscape(cfg.Table))

	return &Client{cfg: cfg, endpoint: endpoint, http: httpClient}, nil
}

func (c *Client) Name() string {
	return "appsheet:" + c.cfg.Table
}

// FetchRows posts a Find action that selects every row of the table.
//
// A non-2xx status or transport failure yields *core.NetworkError. An empty
// body or JSON null yields no rows. Any other non-array body yields
// *core.MalformedResponseError.
func (c *Client) FetchRows(ctx context.Context) ([]core.RawRecord, error) {
	body, err := json.Marshal(findRequest{
		Action: "Find",
		Properties: findProperties{
			Locale:   c.cfg.Locale,
			Timezone: c.cfg.Timezone,
			Selector: fmt.Sprintf("Filter(%s, TRUE)", c.cfg.Table),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal find request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build find request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set(accessKeyHeader, c.cfg.AccessKey)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &core.NetworkError{Err: err}
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &core.NetworkError{StatusCode: resp.StatusCode, Err: fmt.Errorf("read body: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &core.NetworkError{StatusCode: resp.StatusCode, Body: excerpt(payload)}
	}

	records, err := DecodeRows(payload)
	if err != nil {
		return nil, err
	}

	slog.DebugContext(ctx, "AppSheet rows fetched",
		"table", c.cfg.Table,
		"rows", len(records),
		"bytes", len(payload),
		"duration_ms", time.Since(start).Milliseconds())
	return records, nil
}

// DecodeRows parses an AppSheet response body. Non-object array elements
// are skipped.
func DecodeRows(payload []byte) ([]core.RawRecord, error) {
	if len(bytes.TrimSpace(payload)) == 0 {
		return []core.RawRecord{}, nil
	}

	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, &core.MalformedResponseError{Kind: "invalid JSON"}
	}

	switch v := doc.(type) {
	case nil:
		return []core.RawRecord{}, nil
	case []any:
		records := make([]core.RawRecord, 0, len(v))
		for _, item := range v {
			if obj, ok := item.(map[string]any); ok {
				records = append(records, core.RawRecord(obj))
			}
		}
		return records, nil
	default:
		return nil, &core.MalformedResponseError{Kind: jsonKind(v)}
	}
}

func jsonKind(v any) string {
	switch v.(type) {
	case map[string]any:
		return "object"
	case string:
		return "string"
	case json.Number:
		return "number"
	case bool:
		return "boolean"
	default:
		return fmt.Sprintf("%T", v)
	}
}

func excerpt(b []byte) string {
	s := strings.TrimSpace(string(b))
	if len(s) > maxErrorExcerpt {
		s = s[:maxErrorExcerpt] + "..."
	}
	return s
}

// newHTTPClientWithPooling creates an HTTP client with connection pooling
// and bounded timeouts for the AppSheet API.
func newHTTPClientWithPooling() *http.Client {
	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}

	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		MaxIdleConns:          20,
		MaxIdleConnsPerHost:   5,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		ForceAttemptHTTP2:     true,
	}

	return &http.Client{
		Transport: transport,
		Timeout:   60 * time.Second,
	}
}
