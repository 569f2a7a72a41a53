package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/gazette-app/valguard/internal/handler/dto"
	"github.com/gazette-app/valguard/internal/periodic"
)

// AdminHandler serves the operator write operations.
type AdminHandler struct {
	c      Components
	logger *slog.Logger
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(c Components, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{c: c, logger: logger}
}

// ResetCaller handles DELETE /api/v1/admin/debounce/{callerID}.
func (h *AdminHandler) ResetCaller(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "callerID")
	h.c.Debouncer.ResetUser(id)
	h.logger.Info("admin_caller_reset", "caller_id", id)
	w.WriteHeader(http.StatusNoContent)
}

// ClearCache handles POST /api/v1/admin/cache/clear.
func (h *AdminHandler) ClearCache(w http.ResponseWriter, r *http.Request) {
	h.c.Cache.Clear()
	h.logger.Info("admin_cache_cleared")
	w.WriteHeader(http.StatusNoContent)
}

// ClearMetrics handles POST /api/v1/admin/metrics/clear.
func (h *AdminHandler) ClearMetrics(w http.ResponseWriter, r *http.Request) {
	h.c.Tracker.ClearMetrics()
	h.logger.Info("admin_metrics_cleared")
	w.WriteHeader(http.StatusNoContent)
}

// ForceCleanup handles POST /api/v1/admin/cleanup.
func (h *AdminHandler) ForceCleanup(w http.ResponseWriter, r *http.Request) {
	n := h.c.Scheduler.ForceCleanup()
	h.logger.Info("admin_cleanup_forced", "reclaimed", n)
	writeJSON(w, http.StatusOK, dto.CleanupResultResponse{
		Reclaimed: n,
		Stats:     dto.ToCleanupStatsResponse(h.c.Scheduler.Stats()),
	})
}

// StartMemory handles POST /api/v1/admin/memory/start.
func (h *AdminHandler) StartMemory(w http.ResponseWriter, r *http.Request) {
	if err := h.c.Monitor.Start(); err != nil {
		if errors.Is(err, periodic.ErrAlreadyStarted) {
			writeError(w, http.StatusConflict, "ALREADY_RUNNING", "memory monitor is already running")
			return
		}
		h.logger.Error("admin_memory_start_failed", "error", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "an internal error occurred")
		return
	}
	h.logger.Info("admin_memory_started")
	writeJSON(w, http.StatusOK, dto.MemoryStatusResponse{Status: h.c.Monitor.Status(), Running: true})
}

// StopMemory handles POST /api/v1/admin/memory/stop.
func (h *AdminHandler) StopMemory(w http.ResponseWriter, r *http.Request) {
	h.c.Monitor.Stop()
	h.logger.Info("admin_memory_stopped")
	writeJSON(w, http.StatusOK, dto.MemoryStatusResponse{Status: h.c.Monitor.Status(), Running: false})
}
