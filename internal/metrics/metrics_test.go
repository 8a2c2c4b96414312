package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCounters(t *testing.T) {
	m := New()
	m.ObserveRefresh(ResultOK, 20*time.Millisecond)
	m.ObserveRefresh(ResultError, time.Millisecond)
	m.ObserveRefresh(ResultOK, time.Millisecond)
	m.CacheHit()
	m.CacheMiss()
	m.CacheMiss()
	m.SetRows(42)

	if got := testutil.ToFloat64(m.refreshes.WithLabelValues(ResultOK)); got != 2 {
		t.Fatalf("ok refreshes = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.viewCache.WithLabelValues("miss")); got != 2 {
		t.Fatalf("cache misses = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.rows); got != 42 {
		t.Fatalf("rows = %v, want 42", got)
	}
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := New()
	m.ObserveHTTP(http.MethodGet, 503)

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := w.Body.String()
	if !strings.Contains(body, `adspend_http_requests_total{code="5xx",method="GET"} 1`) {
		t.Fatalf("missing http counter in:\n%s", body)
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.ObserveRefresh(ResultOK, time.Second)
	m.SetRows(1)
	m.CacheHit()
	m.RateLimited()
	m.ObserveSnapshot(ResultOK)

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}
