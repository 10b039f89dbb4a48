package obscheck

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sandeepkv93/user-center/internal/observability"
)

func TestSumSeries(t *testing.T) {
	body := `# HELP http_requests_total Total number of HTTP requests.
# TYPE http_requests_total counter
http_requests_total{method="GET",route="/api/users",status="200"} 7
http_requests_total{method="GET",route="/api/users",status="429"} 2
http_requests_total{method="GET",route="/health/ready",status="200"} 3
`
	got, err := sumSeries(strings.NewReader(body), "http_requests_total", `route="/api/users"`)
	if err != nil {
		t.Fatalf("sum series: %v", err)
	}
	if got != 9 {
		t.Fatalf("expected 9, got %v", got)
	}
}

func TestCheckAgainstInstrumentedServer(t *testing.T) {
	m := observability.NewHTTPMetrics()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/users", func(w http.ResponseWriter, r *http.Request) {
		m.Observe(r.Method, "/api/users", http.StatusOK, time.Millisecond)
		_, _ = w.Write([]byte("[]"))
	})
	mux.HandleFunc("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"status":"ready"}`))
	})
	mux.Handle("/metrics", m.Handler())
	srv := httptest.NewServer(mux)
	defer srv.Close()

	details, err := Check(context.Background(), srv.Client(), srv.URL, 300*time.Millisecond)
	if err != nil {
		t.Fatalf("check: %v (details %v)", err, details)
	}
	if details[1] != "readiness: ok" {
		t.Fatalf("unexpected details %v", details)
	}
}

func TestCheckFailsWhenNotReady(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health/ready" {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte("[]"))
	}))
	defer srv.Close()

	if _, err := Check(context.Background(), srv.Client(), srv.URL, 100*time.Millisecond); err == nil {
		t.Fatal("expected readiness failure")
	}
}
