package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRequestIDPropagated(t *testing.T) {
	handler := RequestID()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("X-Request-Id"); got != "req-123" {
			t.Errorf("request id not propagated, got %q", got)
		}
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-Id", "req-123")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if got := rec.Header().Get("X-Request-Id"); got != "req-123" {
		t.Fatalf("request id not echoed, got %q", got)
	}
}

func TestRequestIDGenerated(t *testing.T) {
	handler := RequestID()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Header().Get("X-Request-Id") == "" {
		t.Fatal("expected a generated request id")
	}
}

func TestLatencyAggregator(t *testing.T) {
	agg := newLatencyAggregator(4)

	if p50, p95 := agg.record("GET /x", 10); p50 != 10 || p95 != 10 {
		t.Fatalf("single sample: p50=%d p95=%d", p50, p95)
	}

	agg.record("GET /x", 20)
	agg.record("GET /x", 30)
	p50, p95 := agg.record("GET /x", 40)
	if p50 != 20 || p95 != 40 {
		t.Fatalf("four samples: p50=%d p95=%d", p50, p95)
	}

	// The window rolls: the oldest sample drops out.
	p50, p95 = agg.record("GET /x", 50)
	if p50 != 30 || p95 != 50 {
		t.Fatalf("rolled window: p50=%d p95=%d", p50, p95)
	}

	// Routes are independent.
	if p50, _ := agg.record("GET /y", 5); p50 != 5 {
		t.Fatalf("route isolation broken: p50=%d", p50)
	}
}

func TestPercentile(t *testing.T) {
	values := []int64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	if got := percentile(values, 0.5); got != 5 {
		t.Fatalf("p50 = %d", got)
	}
	if got := percentile(values, 0.95); got != 10 {
		t.Fatalf("p95 = %d", got)
	}
	if got := percentile(nil, 0.5); got != 0 {
		t.Fatalf("empty = %d", got)
	}
}
