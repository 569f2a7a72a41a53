package handler

import (
	"fmt"
	"io"
	"net/http"

	"github.com/gazette-app/valguard/internal/metrics"
)

// MetricsHandler exposes the in-memory recorder in Prometheus text format.
// It serves /metrics when METRICS_BACKEND=memory.
type MetricsHandler struct {
	snapshotter metrics.Snapshotter
}

// NewMetricsHandler creates a new MetricsHandler.
func NewMetricsHandler(snapshotter metrics.Snapshotter) *MetricsHandler {
	return &MetricsHandler{snapshotter: snapshotter}
}

// Metrics handles GET /metrics.
func (h *MetricsHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	if h.snapshotter == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}

	snap := h.snapshotter.Snapshot()

	w.Header().Set("Content-Type", "text/plain; version=0.0.4")

	writeMetric(w, "valguard_debounce_decisions_total{outcome=%q} %d\n", metrics.OutcomeAllowed, snap.DebounceAllowed)
	writeMetric(w, "valguard_debounce_decisions_total{outcome=%q} %d\n", metrics.OutcomeTooSoon, snap.DebounceTooSoon)
	writeMetric(w, "valguard_debounce_decisions_total{outcome=%q} %d\n", metrics.OutcomeLockedOut, snap.DebounceLockedOut)

	writeMetric(w, "valguard_cache_hits_total %d\n", snap.CacheHits)
	writeMetric(w, "valguard_cache_misses_total %d\n", snap.CacheMisses)
	writeMetric(w, "valguard_cache_coalesced_total %d\n", snap.CacheCoalesced)
	writeMetric(w, "valguard_cache_evictions_total %d\n", snap.CacheEvictions)

	writeMetric(w, "valguard_operation_duration_seconds_count %d\n", snap.OperationCount)
	writeMetric(w, "valguard_operation_duration_seconds_sum %.6f\n", float64(snap.OperationDurationTotal)/1e9)
	writeMetric(w, "valguard_operation_failures_total %d\n", snap.OperationFailures)

	writeMetric(w, "valguard_memory_heap_used_megabytes %.3f\n", snap.HeapUsedMB)

	writeMetric(w, "valguard_cleanup_runs_total %d\n", snap.CleanupRuns)
	writeMetric(w, "valguard_cleanup_reclaimed_total %d\n", snap.CleanupReclaimed)
	writeMetric(w, "valguard_cleanup_failures_total %d\n", snap.CleanupFailures)
}

func writeMetric(w io.Writer, format string, args ...any) {
	_, _ = fmt.Fprintf(w, format, args...)
}
