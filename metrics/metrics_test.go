package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMiddlewareRecordsDurationAndCount(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /metrics-test", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	h := Middleware(mux)

	req := httptest.NewRequest(http.MethodGet, "/metrics-test", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if w.Code != http.StatusTeapot {
		t.Fatalf("expected status %d, got %d", http.StatusTeapot, w.Code)
	}
	if actual := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "GET /metrics-test", "418")); actual != 1 {
		t.Errorf("expected 1 request to be counted, got %v", actual)
	}
	if testutil.CollectAndCount(httpRequestDuration) < 1 {
		t.Error("expected request duration to be observed")
	}
}

func TestMiddlewareLabelsUnmatchedPaths(t *testing.T) {
	h := Middleware(http.NewServeMux())

	req := httptest.NewRequest(http.MethodGet, "/not-registered", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if actual := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "unknown", "404")); actual < 1 {
		t.Errorf("expected unmatched request to be counted as unknown, got %v", actual)
	}
}

func TestObserveStage(t *testing.T) {
	before := testutil.CollectAndCount(StageDuration)
	ObserveStage("metrics-test", time.Now().Add(-time.Second))
	if after := testutil.CollectAndCount(StageDuration); after != before+1 {
		t.Errorf("expected a new stage series, got %d before and %d after", before, after)
	}
}
