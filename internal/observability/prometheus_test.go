package observability

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestHTTPMetricsObserveCountsByRoute(t *testing.T) {
	m := NewHTTPMetrics()
	m.Observe(http.MethodGet, "/api/users/{id}", http.StatusOK, 5*time.Millisecond)
	m.Observe(http.MethodGet, "/api/users/{id}", http.StatusOK, 7*time.Millisecond)
	m.Observe(http.MethodGet, "", http.StatusNotFound, time.Millisecond)

	if got := testutil.ToFloat64(m.RequestsTotal.WithLabelValues("GET", "/api/users/{id}", "200")); got != 2 {
		t.Fatalf("expected 2 requests for route, got %v", got)
	}
	if got := testutil.ToFloat64(m.RequestsTotal.WithLabelValues("GET", "unmatched", "404")); got != 1 {
		t.Fatalf("expected unmatched route bucket, got %v", got)
	}
}

func TestHTTPMetricsHandlerExposesCollectors(t *testing.T) {
	m := NewHTTPMetrics()
	m.Observe(http.MethodPost, "/api/users", http.StatusCreated, time.Millisecond)

	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	body := rr.Body.String()
	for _, want := range []string{"http_requests_total", "http_request_duration_seconds", "go_goroutines"} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected %q in scrape output", want)
		}
	}
}

func TestHTTPMetricsNilReceiverIsNoop(t *testing.T) {
	var m *HTTPMetrics
	m.Observe(http.MethodGet, "/", http.StatusOK, time.Millisecond)
}
