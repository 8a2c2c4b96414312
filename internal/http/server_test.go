package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"adspend/internal/core"
	"adspend/internal/dashboard"
	"adspend/internal/metrics"
	"adspend/internal/middleware/ratelimit"
	"adspend/internal/source/memory"
)

var fixedNow = func() time.Time { return time.Date(2025, 3, 15, 10, 0, 0, 0, time.UTC) }

func record(date, spend, messages, campaign string) core.RawRecord {
	s := core.DefaultSchema()
	return core.RawRecord{
		s.Date:     date,
		s.Spend:    spend,
		s.Messages: messages,
		s.Campaign: campaign,
	}
}

func sampleRecords() []core.RawRecord {
	return []core.RawRecord{
		record("01/03/2025", "1000000", "10", "Tết Sale"),
		record("01/03/2025", "500000", "5", "Brand"),
		record("02/03/2025", "200000", "0", "Brand"),
		record("15/02/2025", "300000", "3", "Tết Sale"),
		record("", "100000", "1", "Misc"),
	}
}

type testEnv struct {
	srv  *Server
	ctrl *dashboard.Controller
	src  *memory.Store
}

func newTestServer(t *testing.T, refresh bool, opts Options) testEnv {
	t.Helper()
	src := memory.New(sampleRecords())
	if opts.Metrics == nil {
		opts.Metrics = metrics.New()
	}
	ctrl := dashboard.New(context.Background(), src, dashboard.Options{
		Now:          fixedNow,
		FetchTimeout: time.Second,
		Metrics:      opts.Metrics,
	})
	if refresh {
		if _, err := ctrl.Refresh(context.Background()); err != nil {
			t.Fatalf("initial refresh: %v", err)
		}
	}
	srv := NewServer(":0", ctrl, opts)
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return testEnv{srv: srv, ctrl: ctrl, src: src}
}

func (e testEnv) do(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	e.srv.Handler.ServeHTTP(rr, req)
	return rr
}

func postForm(path string, form url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("HX-Request", "true")
	return req
}

func TestIndexAndHealth(t *testing.T) {
	env := newTestServer(t, true, Options{})

	rr := env.do(t, httptest.NewRequest(http.MethodGet, "/", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("index status=%d", rr.Code)
	}
	body := rr.Body.String()
	for _, want := range []string{"Báo cáo chi tiêu quảng cáo", "1.700.000 ₫", "Tháng 3/2025", `id="row-0"`} {
		if !strings.Contains(body, want) {
			t.Errorf("index body missing %q", want)
		}
	}

	for _, path := range []string{"/healthz", "/readyz"} {
		rr := env.do(t, httptest.NewRequest(http.MethodGet, path, nil))
		if rr.Code != http.StatusOK {
			t.Fatalf("%s status=%d", path, rr.Code)
		}
	}
}

func TestReadyzBeforeFirstRefresh(t *testing.T) {
	env := newTestServer(t, false, Options{})

	rr := env.do(t, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 before first refresh, got %d", rr.Code)
	}
}

func TestDashboardPartial(t *testing.T) {
	env := newTestServer(t, true, Options{})

	tests := []struct {
		name     string
		query    string
		trigger  string
		contains []string
		excludes []string
	}{
		{
			name:     "default month",
			query:    "",
			contains: []string{"1.700.000 ₫", "01/03/2025", "02/03/2025"},
			excludes: []string{"15/02/2025"},
		},
		{
			name:     "term and month",
			query:    "q=brand&month=3/2025",
			contains: []string{"700.000 ₫", "Brand"},
			excludes: []string{"1.700.000 ₫", "Tết Sale"},
		},
		{
			name:     "all time keeps undated bucket",
			query:    "month=all",
			contains: []string{"2.100.000 ₫", "15/02/2025", core.OtherBucket},
		},
		{
			name:     "invalid month falls back to default",
			query:    "month=13/2025",
			contains: []string{"1.700.000 ₫"},
		},
		{
			name:     "no match shows placeholder",
			query:    "q=zzz",
			contains: []string{"Không có dữ liệu", `class="no-data"`},
		},
		{
			name:     "month select event",
			query:    "q=t%E1%BA%BFt&month=2/2025",
			trigger:  "month",
			contains: []string{"300.000 ₫", "15/02/2025"},
			excludes: []string{"01/03/2025"},
		},
		{
			name:     "search event keeps month",
			query:    "q=brand&month=all",
			trigger:  "q",
			contains: []string{"700.000 ₫", "Brand"},
			excludes: []string{"Tết Sale"},
		},
		{
			name:     "space term is not trimmed",
			query:    "q=%20",
			trigger:  "q",
			contains: []string{"1.000.000 ₫", "Tết Sale"},
			excludes: []string{"02/03/2025", "1.700.000 ₫"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/ui/dashboard?"+tt.query, nil)
			if tt.trigger != "" {
				req.Header.Set("HX-Request", "true")
				req.Header.Set("HX-Trigger", tt.trigger)
			}
			rr := env.do(t, req)
			if rr.Code != http.StatusOK {
				t.Fatalf("status=%d", rr.Code)
			}
			body := rr.Body.String()
			if !strings.Contains(body, `id="dashboard"`) {
				t.Fatalf("partial missing dashboard section")
			}
			for _, want := range tt.contains {
				if !strings.Contains(body, want) {
					t.Errorf("body missing %q", want)
				}
			}
			for _, bad := range tt.excludes {
				if strings.Contains(body, bad) {
					t.Errorf("body should not contain %q", bad)
				}
			}
		})
	}
}

func TestRefreshReappliesFilter(t *testing.T) {
	env := newTestServer(t, true, Options{})

	rr := env.do(t, postForm("/ui/refresh", url.Values{"q": {"brand"}, "month": {"3/2025"}}))
	if rr.Code != http.StatusOK {
		t.Fatalf("refresh status=%d", rr.Code)
	}
	trigger := rr.Header().Get("HX-Trigger")
	if !strings.Contains(trigger, EventDashboardRefreshed) || !strings.Contains(trigger, `"generation":2`) {
		t.Fatalf("unexpected HX-Trigger %q", trigger)
	}
	body := rr.Body.String()
	if !strings.Contains(body, "700.000 ₫") || strings.Contains(body, "Tết Sale") {
		t.Fatalf("refresh did not keep the submitted filter: %s", body)
	}
	if got := env.src.Fetches(); got != 2 {
		t.Fatalf("fetches = %d, want 2", got)
	}
}

func TestRefreshFailureStillRenders(t *testing.T) {
	env := newTestServer(t, true, Options{})
	env.src.FailWith(&core.NetworkError{StatusCode: http.StatusBadGateway, Body: "upstream down"})

	rr := env.do(t, postForm("/ui/refresh", url.Values{}))
	if rr.Code != http.StatusOK {
		t.Fatalf("refresh status=%d", rr.Code)
	}
	trigger := rr.Header().Get("HX-Trigger")
	if !strings.Contains(trigger, EventShowNotification) || !strings.Contains(trigger, "Check CORS") {
		t.Fatalf("expected error notification, got %q", trigger)
	}
	body := rr.Body.String()
	if !strings.Contains(body, "1.700.000 ₫") {
		t.Fatalf("previous rows not rendered after failure")
	}
	if !strings.Contains(body, "status--error") {
		t.Fatalf("error status not rendered")
	}
}

func TestRefreshRateLimited(t *testing.T) {
	env := newTestServer(t, true, Options{
		RateLimit: ratelimit.Config{RequestsPerMinute: 1, Burst: 1},
	})

	first := env.do(t, postForm("/ui/refresh", url.Values{}))
	if first.Code != http.StatusOK {
		t.Fatalf("first refresh status=%d", first.Code)
	}
	second := env.do(t, postForm("/ui/refresh", url.Values{}))
	if second.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", second.Code)
	}
	if second.Header().Get("Retry-After") == "" {
		t.Fatalf("Retry-After header not set")
	}

	// Reads are never limited.
	rr := env.do(t, httptest.NewRequest(http.MethodGet, "/ui/dashboard", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("dashboard status=%d", rr.Code)
	}
}

func TestRefreshMethodNotAllowed(t *testing.T) {
	env := newTestServer(t, true, Options{})

	rr := env.do(t, httptest.NewRequest(http.MethodGet, "/ui/refresh", nil))
	if rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rr.Code)
	}
}

func TestSuggest(t *testing.T) {
	env := newTestServer(t, true, Options{})

	rr := env.do(t, httptest.NewRequest(http.MethodGet, "/ui/suggest?q=brd", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("suggest status=%d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), `<option value="Brand">`) {
		t.Fatalf("suggestions missing Brand: %s", rr.Body.String())
	}

	rr = env.do(t, httptest.NewRequest(http.MethodGet, "/ui/suggest", nil))
	if strings.TrimSpace(rr.Body.String()) != "" {
		t.Fatalf("empty term should yield no suggestions: %q", rr.Body.String())
	}
}

func TestSummaryJSON(t *testing.T) {
	env := newTestServer(t, true, Options{})

	rr := env.do(t, httptest.NewRequest(http.MethodGet, "/api/summary?q=brand", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("summary status=%d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("content type = %q", ct)
	}

	var got summaryResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.State.Status != dashboard.StatusReady || got.Month != "3/2025" || got.Term != "brand" {
		t.Fatalf("unexpected summary header %+v", got)
	}
	if got.KPIs.TotalSpend != "700.000 ₫" || got.KPIs.TotalMessages != "5" {
		t.Fatalf("unexpected KPIs %+v", got.KPIs)
	}
	if len(got.Table.Rows) != 2 || got.Matched != 2 {
		t.Fatalf("rows = %d matched = %d, want 2/2", len(got.Table.Rows), got.Matched)
	}
	if len(got.Months) == 0 || got.Months[0].Value != "all" {
		t.Fatalf("month options should start with all: %+v", got.Months)
	}
}

func TestSecurityHeadersAndRequestID(t *testing.T) {
	env := newTestServer(t, true, Options{})

	rr := env.do(t, httptest.NewRequest(http.MethodGet, "/", nil))
	if rr.Header().Get("X-Frame-Options") != "DENY" {
		t.Errorf("X-Frame-Options not set")
	}
	if rr.Header().Get("Content-Security-Policy") == "" {
		t.Errorf("CSP not set")
	}
	if !strings.HasPrefix(rr.Header().Get("X-Request-ID"), "req_") {
		t.Errorf("request id not generated: %q", rr.Header().Get("X-Request-ID"))
	}
}

func TestStaticAndMetrics(t *testing.T) {
	env := newTestServer(t, true, Options{})

	rr := env.do(t, httptest.NewRequest(http.MethodGet, "/static/app.css", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("static status=%d", rr.Code)
	}
	if !strings.Contains(rr.Header().Get("Cache-Control"), "max-age=3600") {
		t.Fatalf("static cache header = %q", rr.Header().Get("Cache-Control"))
	}

	rr = env.do(t, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("metrics status=%d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "adspend_refreshes_total") {
		t.Fatalf("metrics missing refresh counter")
	}
}
