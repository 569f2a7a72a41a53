// Package validator provides the backends that judge a validation request:
// a local rule set and AI models reached through their vendor SDKs.
package validator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/gazette-app/valguard/internal/model"
)

var (
	// ErrEmptyResponse is returned when a model answers with no text.
	ErrEmptyResponse = errors.New("validator: empty model response")
	// ErrMalformedVerdict is returned when a model answer is not a verdict.
	ErrMalformedVerdict = errors.New("validator: malformed verdict")
	// ErrUnknownBackend is returned by New for an unsupported backend name.
	ErrUnknownBackend = errors.New("validator: unknown backend")
)

// Backend names accepted by New.
const (
	BackendRules     = "rules"
	BackendOpenAI    = "openai"
	BackendAnthropic = "anthropic"
)

// Validator judges content. Implementations must be safe for concurrent use.
type Validator interface {
	Validate(ctx context.Context, req model.ValidationRequest) (*model.ValidationResult, error)
	Name() string
}

// Config selects and configures a backend.
type Config struct {
	Backend   string
	Timeout   time.Duration
	MaxTokens int

	OpenAIAPIKey  string
	OpenAIModel   string
	OpenAIBaseURL string

	AnthropicAPIKey  string
	AnthropicModel   string
	AnthropicBaseURL string
}

// New builds the backend named by cfg.Backend.
func New(cfg Config) (Validator, error) {
	switch cfg.Backend {
	case "", BackendRules:
		return NewRules(), nil
	case BackendOpenAI:
		return NewOpenAI(OpenAIConfig{
			APIKey:    cfg.OpenAIAPIKey,
			Model:     cfg.OpenAIModel,
			BaseURL:   cfg.OpenAIBaseURL,
			MaxTokens: cfg.MaxTokens,
			Timeout:   cfg.Timeout,
		})
	case BackendAnthropic:
		return NewAnthropic(AnthropicConfig{
			APIKey:    cfg.AnthropicAPIKey,
			Model:     cfg.AnthropicModel,
			BaseURL:   cfg.AnthropicBaseURL,
			MaxTokens: cfg.MaxTokens,
			Timeout:   cfg.Timeout,
		})
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.Backend)
	}
}

func newResult(req model.ValidationRequest, v verdict, modelName string) *model.ValidationResult {
	issues := v.Issues
	if issues == nil {
		issues = []model.Issue{}
	}
	return &model.ValidationResult{
		ID:        ulid.Make().String(),
		Kind:      req.Kind,
		Valid:     v.Valid,
		Score:     clampScore(v.Score),
		Issues:    issues,
		Model:     modelName,
		CheckedAt: time.Now().UTC(),
	}
}

func clampScore(s float64) float64 {
	switch {
	case s < 0:
		return 0
	case s > 1:
		return 1
	default:
		return s
	}
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
