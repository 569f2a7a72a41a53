package handler

import (
	"errors"
	"log/slog"
	"math"
	"net/http"
	"strconv"

	"github.com/gazette-app/valguard/internal/cache"
	"github.com/gazette-app/valguard/internal/handler/dto"
	"github.com/gazette-app/valguard/internal/middleware"
	"github.com/gazette-app/valguard/internal/service"
)

// ValidationHandler handles HTTP requests for validations.
type ValidationHandler struct {
	svc    *service.ValidationService
	logger *slog.Logger
}

// NewValidationHandler creates a new ValidationHandler.
func NewValidationHandler(svc *service.ValidationService, logger *slog.Logger) *ValidationHandler {
	return &ValidationHandler{
		svc:    svc,
		logger: logger,
	}
}

// Validate handles POST /api/v1/validate.
func (h *ValidationHandler) Validate(w http.ResponseWriter, r *http.Request) {
	var req dto.ValidateRequest
	if err := decodeJSON(r, &req); err != nil {
		if errors.Is(err, errBodyTooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", "request body too large")
			return
		}
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "invalid request body")
		return
	}

	callerID := middleware.GetCallerID(r.Context())
	out, err := h.svc.Validate(r.Context(), service.ValidateInput{
		CallerID:    callerID,
		Request:     req.ToModel(),
		BypassCache: req.BypassCache,
	})
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	if !out.Decision.Allowed {
		if out.Decision.Wait > 0 {
			secs := int(math.Ceil(out.Decision.Wait.Seconds()))
			w.Header().Set("Retry-After", strconv.Itoa(secs))
		}
		writeJSON(w, http.StatusTooManyRequests, dto.ToDebouncedResponse(out.Decision))
		return
	}

	h.logger.Info("validation_completed",
		"caller_id", callerID,
		"result_id", out.Result.ID,
		"kind", out.Result.Kind,
		"valid", out.Result.Valid,
		"cached", out.Cached,
		"shared", out.Shared,
	)

	writeJSON(w, http.StatusOK, dto.ValidateResponse{
		Result: out.Result,
		Cached: out.Cached,
		Shared: out.Shared,
	})
}

func (h *ValidationHandler) handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	ctxErr := r.Context().Err()
	switch {
	case errors.Is(err, service.ErrInvalidRequest):
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
	case ctxErr != nil && errors.Is(err, ctxErr):
		// Client went away; the shared computation continues for others.
		h.logger.Debug("validation_abandoned", "error", err)
		writeError(w, http.StatusRequestTimeout, "REQUEST_CANCELLED", "request cancelled")
	case errors.Is(err, cache.ErrFetchPanicked):
		h.logger.Error("validator_panicked", "error", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "an internal error occurred")
	default:
		h.logger.Warn("validation_failed", "error", err)
		writeError(w, http.StatusBadGateway, "VALIDATION_FAILED", "validation backend failed")
	}
}
