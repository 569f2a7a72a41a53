package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gazette-app/valguard/internal/metrics"
)

func TestMetricsHandler(t *testing.T) {
	rec := metrics.NewInMemory()
	rec.IncDebounceDecision(metrics.OutcomeAllowed)
	rec.IncDebounceDecision(metrics.OutcomeLockedOut)
	rec.IncCacheHit()
	rec.ObserveOperation("validate.article", 1500*time.Millisecond, true, false)
	rec.SetHeapUsedMB(42.5)

	w := httptest.NewRecorder()
	NewMetricsHandler(rec).Metrics(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}

	body := w.Body.String()
	for _, want := range []string{
		`valguard_debounce_decisions_total{outcome="allowed"} 1`,
		`valguard_debounce_decisions_total{outcome="locked_out"} 1`,
		`valguard_cache_hits_total 1`,
		`valguard_operation_duration_seconds_count 1`,
		`valguard_operation_duration_seconds_sum 1.500000`,
		`valguard_memory_heap_used_megabytes 42.500`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics output missing %q\n%s", want, body)
		}
	}
}

func TestMetricsHandler_NoSnapshotter(t *testing.T) {
	w := httptest.NewRecorder()
	NewMetricsHandler(nil).Metrics(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("expected status 503, got %d", w.Code)
	}
}
