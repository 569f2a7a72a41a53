package handler

import (
	"maps"
	"net/http"
	"slices"

	"github.com/go-chi/chi/v5"

	"github.com/gazette-app/valguard/internal/cache"
	"github.com/gazette-app/valguard/internal/cleanup"
	"github.com/gazette-app/valguard/internal/debounce"
	"github.com/gazette-app/valguard/internal/handler/dto"
	"github.com/gazette-app/valguard/internal/memmon"
	"github.com/gazette-app/valguard/internal/perf"
)

// DebounceOps is the debouncer surface used by the operator endpoints.
type DebounceOps interface {
	Stats() debounce.Stats
	Lookup(callerID string) (debounce.Record, bool)
	ResetUser(callerID string)
}

// CacheOps is the cache surface used by the operator endpoints.
type CacheOps interface {
	Stats() cache.Stats
	Clear()
}

// PerfOps is the performance tracker surface used by the operator endpoints.
type PerfOps interface {
	Stats(operation string) (perf.Stats, bool)
	AllStats() map[string]perf.Stats
	ClearMetrics()
}

// MemoryOps is the memory monitor surface used by the operator endpoints.
type MemoryOps interface {
	Status() memmon.Status
	Readings() []memmon.Reading
	Trend() (memmon.Trend, bool)
	Start() error
	Stop()
	Running() bool
}

// CleanupOps is the cleanup scheduler surface used by the operator endpoints.
type CleanupOps interface {
	Stats() cleanup.RunStats
	ForceCleanup() int
}

// Components groups the protection layer for the operator endpoints.
type Components struct {
	Debouncer DebounceOps
	Cache     CacheOps
	Tracker   PerfOps
	Monitor   MemoryOps
	Scheduler CleanupOps
}

// DiagnosticsHandler serves the read-only introspection surface.
type DiagnosticsHandler struct {
	c Components
}

// NewDiagnosticsHandler creates a new DiagnosticsHandler.
func NewDiagnosticsHandler(c Components) *DiagnosticsHandler {
	return &DiagnosticsHandler{c: c}
}

// Overview handles GET /api/v1/diagnostics.
func (h *DiagnosticsHandler) Overview(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, dto.DiagnosticsResponse{
		Debounce:    dto.ToDebounceStatsResponse(h.c.Debouncer.Stats()),
		Cache:       dto.ToCacheStatsResponse(h.c.Cache.Stats()),
		Performance: h.allOperations(),
		Memory:      h.memoryStatus(),
		Cleanup:     dto.ToCleanupStatsResponse(h.c.Scheduler.Stats()),
	})
}

// Debounce handles GET /api/v1/diagnostics/debounce.
func (h *DiagnosticsHandler) Debounce(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, dto.ToDebounceStatsResponse(h.c.Debouncer.Stats()))
}

// Caller handles GET /api/v1/diagnostics/debounce/{callerID}.
func (h *DiagnosticsHandler) Caller(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "callerID")
	rec, ok := h.c.Debouncer.Lookup(id)
	if !ok {
		writeError(w, http.StatusNotFound, "CALLER_NOT_FOUND", "no debounce record for caller")
		return
	}
	writeJSON(w, http.StatusOK, dto.ToCallerRecordResponse(id, rec))
}

// Cache handles GET /api/v1/diagnostics/cache.
func (h *DiagnosticsHandler) Cache(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, dto.ToCacheStatsResponse(h.c.Cache.Stats()))
}

// Performance handles GET /api/v1/diagnostics/performance[?operation=name].
func (h *DiagnosticsHandler) Performance(w http.ResponseWriter, r *http.Request) {
	op := r.URL.Query().Get("operation")
	if op == "" {
		writeJSON(w, http.StatusOK, h.allOperations())
		return
	}

	stats, ok := h.c.Tracker.Stats(op)
	if !ok {
		writeError(w, http.StatusNotFound, "OPERATION_NOT_FOUND", "no recent records for operation")
		return
	}
	writeJSON(w, http.StatusOK, dto.ToOperationStatsResponse(op, stats))
}

// Memory handles GET /api/v1/diagnostics/memory.
func (h *DiagnosticsHandler) Memory(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.memoryStatus())
}

// MemoryReadings handles GET /api/v1/diagnostics/memory/readings.
func (h *DiagnosticsHandler) MemoryReadings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.c.Monitor.Readings())
}

// MemoryTrend handles GET /api/v1/diagnostics/memory/trend.
func (h *DiagnosticsHandler) MemoryTrend(w http.ResponseWriter, r *http.Request) {
	trend, ok := h.c.Monitor.Trend()
	if !ok {
		writeError(w, http.StatusNotFound, "TREND_UNAVAILABLE", "at least two readings are required")
		return
	}
	writeJSON(w, http.StatusOK, trend)
}

// Cleanup handles GET /api/v1/diagnostics/cleanup.
func (h *DiagnosticsHandler) Cleanup(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, dto.ToCleanupStatsResponse(h.c.Scheduler.Stats()))
}

func (h *DiagnosticsHandler) allOperations() []dto.OperationStatsResponse {
	all := h.c.Tracker.AllStats()
	out := make([]dto.OperationStatsResponse, 0, len(all))
	for _, op := range slices.Sorted(maps.Keys(all)) {
		out = append(out, dto.ToOperationStatsResponse(op, all[op]))
	}
	return out
}

func (h *DiagnosticsHandler) memoryStatus() dto.MemoryStatusResponse {
	return dto.MemoryStatusResponse{
		Status:  h.c.Monitor.Status(),
		Running: h.c.Monitor.Running(),
	}
}
