// Package service provides business logic for the application.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/gazette-app/valguard/internal/cache"
	"github.com/gazette-app/valguard/internal/debounce"
	"github.com/gazette-app/valguard/internal/metrics"
	"github.com/gazette-app/valguard/internal/model"
	"github.com/gazette-app/valguard/internal/perf"
	"github.com/gazette-app/valguard/internal/validator"
)

// ErrInvalidRequest is returned for payloads that cannot be validated.
var ErrInvalidRequest = errors.New("invalid validation request")

// OperationPrefix prefixes the performance tracker operation name; the
// content kind completes it.
const OperationPrefix = "validate."

// Metadata keys attached to tracked operations besides perf.MetadataCached.
const (
	metaShared  = "shared"
	metaBackend = "backend"
)

// ResultCache is the cache type holding validation verdicts.
type ResultCache = cache.Cache[*model.ValidationResult]

// ValidationService runs validation requests through the debouncer, the
// result cache and the performance tracker before reaching the validator.
type ValidationService struct {
	debouncer *debounce.Debouncer
	cache     *ResultCache
	tracker   *perf.Tracker
	validator validator.Validator
	metrics   metrics.Recorder
	logger    *slog.Logger
}

// NewValidationService creates a new ValidationService.
func NewValidationService(
	debouncer *debounce.Debouncer,
	resultCache *ResultCache,
	tracker *perf.Tracker,
	v validator.Validator,
	recorder metrics.Recorder,
	logger *slog.Logger,
) *ValidationService {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &ValidationService{
		debouncer: debouncer,
		cache:     resultCache,
		tracker:   tracker,
		validator: v,
		metrics:   recorder,
		logger:    logger.With("component", "validation"),
	}
}

// ValidateInput defines input for a validation.
type ValidateInput struct {
	CallerID    string
	Request     model.ValidationRequest
	BypassCache bool
}

// ValidateOutput is the outcome of Validate. Result is nil when the caller
// was debounced; check Decision.Allowed first.
type ValidateOutput struct {
	Decision debounce.Decision
	Result   *model.ValidationResult
	Cached   bool
	Shared   bool
}

// Validate checks the request, consults the debouncer and returns a cached
// or freshly computed verdict. Being debounced is not an error.
func (s *ValidationService) Validate(ctx context.Context, in ValidateInput) (*ValidateOutput, error) {
	req := in.Request.Normalized()
	if err := checkRequest(req); err != nil {
		return nil, err
	}

	decision := s.debouncer.ShouldAllowRequest(in.CallerID)
	s.metrics.IncDebounceDecision(outcome(decision))
	if !decision.Allowed {
		s.logger.Debug("validation debounced",
			"caller_id", in.CallerID,
			"reason", decision.Reason,
			"violations", decision.Violations,
		)
		return &ValidateOutput{Decision: decision}, nil
	}

	backend := s.validator.Name()
	key := cache.Key(backend, string(req.Kind), req.Content)

	end := s.tracker.StartOperation(OperationPrefix + string(req.Kind))
	result, info, err := s.cache.GetOrFetchInfo(ctx, key, func(ctx context.Context) (*model.ValidationResult, error) {
		return s.validator.Validate(ctx, req)
	}, cache.FetchOptions{BypassCache: in.BypassCache})
	if ctxErr := ctx.Err(); ctxErr == nil || !errors.Is(err, ctxErr) {
		// A caller that gave up says nothing about the shared computation,
		// which may still succeed for the others.
		end(err == nil, perf.Metadata{
			perf.MetadataCached: info.Hit,
			metaShared:          info.Shared,
			metaBackend:         backend,
		})
	}
	if err != nil {
		return nil, fmt.Errorf("validate %s with %s: %w", req.Kind, backend, err)
	}

	return &ValidateOutput{
		Decision: decision,
		Result:   result,
		Cached:   info.Hit,
		Shared:   info.Shared,
	}, nil
}

func checkRequest(req model.ValidationRequest) error {
	if !req.Kind.IsValid() {
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidRequest, req.Kind)
	}
	if req.Content == "" {
		return fmt.Errorf("%w: content is required", ErrInvalidRequest)
	}
	if len(req.Content) > model.MaxContentLength {
		return fmt.Errorf("%w: content exceeds %d bytes", ErrInvalidRequest, model.MaxContentLength)
	}
	return nil
}

func outcome(d debounce.Decision) string {
	switch {
	case d.Allowed:
		return metrics.OutcomeAllowed
	case d.LockedOut():
		return metrics.OutcomeLockedOut
	default:
		return metrics.OutcomeTooSoon
	}
}
