// Package config provides application configuration management.
// Configuration is loaded from environment variables following 12-factor principles.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

// ErrInvalidConfig is returned by Validate for inconsistent settings.
var ErrInvalidConfig = errors.New("invalid config")

// Config holds all application configuration.
// All fields are populated from environment variables.
type Config struct {
	// Application settings
	AppEnv  string `env:"APP_ENV" envDefault:"development"`
	AppPort int    `env:"APP_PORT" envDefault:"8080"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	// Server timeouts
	ReadTimeout     time.Duration `env:"READ_TIMEOUT" envDefault:"5s"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT" envDefault:"60s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`

	// Request body size limit in bytes (default 1MB)
	MaxRequestBodySize int64 `env:"MAX_REQUEST_BODY_SIZE" envDefault:"1048576"`

	// CORS configuration for the diagnostics dashboard.
	// Comma-separated list of allowed origins (e.g., "https://example.com,https://app.example.com")
	CORSAllowedOrigins string `env:"CORS_ALLOWED_ORIGINS" envDefault:""`

	// Bearer token for /api/v1/admin. Required in production.
	AdminToken string `env:"ADMIN_TOKEN" envDefault:""`

	// Request debouncer
	DebounceMinInterval   time.Duration `env:"DEBOUNCE_MIN_INTERVAL" envDefault:"2s"`
	DebounceMaxViolations int           `env:"DEBOUNCE_MAX_VIOLATIONS" envDefault:"5"`
	DebounceRecordTTL     time.Duration `env:"DEBOUNCE_RECORD_TTL" envDefault:"10m"`

	// Validation cache
	CacheMaxEntries int           `env:"CACHE_MAX_ENTRIES" envDefault:"500"`
	CacheTTL        time.Duration `env:"CACHE_TTL" envDefault:"5m"`

	// Performance tracker
	PerfRetention  time.Duration `env:"PERF_RETENTION" envDefault:"5m"`
	PerfMaxRecords int           `env:"PERF_MAX_RECORDS" envDefault:"10000"`

	// Memory monitor
	MemorySource         string        `env:"MEMORY_SOURCE" envDefault:"process"`
	MemorySampleInterval time.Duration `env:"MEMORY_SAMPLE_INTERVAL" envDefault:"30s"`
	MemoryMaxReadings    int           `env:"MEMORY_MAX_READINGS" envDefault:"60"`
	MemoryWarningMB      float64       `env:"MEMORY_WARNING_MB" envDefault:"512"`
	MemoryCriticalMB     float64       `env:"MEMORY_CRITICAL_MB" envDefault:"1024"`

	// Cleanup scheduler
	CleanupInterval time.Duration `env:"CLEANUP_INTERVAL" envDefault:"5m"`

	// Metrics: "prometheus" or "memory"
	MetricsBackend string `env:"METRICS_BACKEND" envDefault:"prometheus"`

	// Validator backend: "rules", "openai" or "anthropic"
	ValidatorBackend   string        `env:"VALIDATOR_BACKEND" envDefault:"rules"`
	ValidatorTimeout   time.Duration `env:"VALIDATOR_TIMEOUT" envDefault:"30s"`
	ValidatorMaxTokens int           `env:"VALIDATOR_MAX_TOKENS" envDefault:"1024"`
	OpenAIAPIKey       string        `env:"OPENAI_API_KEY" envDefault:""`
	OpenAIModel        string        `env:"OPENAI_MODEL" envDefault:"gpt-4o-mini"`
	AnthropicAPIKey    string        `env:"ANTHROPIC_API_KEY" envDefault:""`
	AnthropicModel     string        `env:"ANTHROPIC_MODEL" envDefault:"claude-3-5-haiku-latest"`
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// GetCORSAllowedOrigins parses the comma-separated origins string into a slice.
func (c *Config) GetCORSAllowedOrigins() []string {
	if c.CORSAllowedOrigins == "" {
		return nil
	}

	origins := strings.Split(c.CORSAllowedOrigins, ",")
	result := make([]string, 0, len(origins))

	for _, origin := range origins {
		trimmed := strings.TrimSpace(origin)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}

// Validate checks cross-field rules that struct tags cannot express.
func (c *Config) Validate() error {
	var problems []string
	add := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	if c.AppPort <= 0 || c.AppPort > 65535 {
		add("APP_PORT %d out of range", c.AppPort)
	}
	if c.DebounceMinInterval <= 0 {
		add("DEBOUNCE_MIN_INTERVAL must be positive")
	}
	if c.DebounceMaxViolations <= 0 {
		add("DEBOUNCE_MAX_VIOLATIONS must be positive")
	}
	if c.CacheMaxEntries <= 0 {
		add("CACHE_MAX_ENTRIES must be positive")
	}
	if c.CacheTTL <= 0 {
		add("CACHE_TTL must be positive")
	}
	if c.DebounceRecordTTL <= 0 {
		add("DEBOUNCE_RECORD_TTL must be positive")
	}
	if c.PerfRetention <= 0 {
		add("PERF_RETENTION must be positive")
	}
	if c.PerfMaxRecords <= 0 {
		add("PERF_MAX_RECORDS must be positive")
	}
	if c.MemoryMaxReadings <= 0 {
		add("MEMORY_MAX_READINGS must be positive")
	}
	if c.ValidatorTimeout <= 0 {
		add("VALIDATOR_TIMEOUT must be positive")
	}
	if c.ValidatorMaxTokens <= 0 {
		add("VALIDATOR_MAX_TOKENS must be positive")
	}
	if c.MemorySampleInterval <= 0 {
		add("MEMORY_SAMPLE_INTERVAL must be positive")
	}
	if c.MemoryWarningMB >= c.MemoryCriticalMB {
		add("MEMORY_WARNING_MB (%.0f) must be below MEMORY_CRITICAL_MB (%.0f)", c.MemoryWarningMB, c.MemoryCriticalMB)
	}
	if c.CleanupInterval <= 0 {
		add("CLEANUP_INTERVAL must be positive")
	}

	switch c.MemorySource {
	case "process", "runtime":
	default:
		add("MEMORY_SOURCE %q must be process or runtime", c.MemorySource)
	}

	switch c.MetricsBackend {
	case "prometheus", "memory":
	default:
		add("METRICS_BACKEND %q must be prometheus or memory", c.MetricsBackend)
	}

	switch c.ValidatorBackend {
	case "rules":
	case "openai":
		if c.OpenAIAPIKey == "" {
			add("OPENAI_API_KEY is required for the openai validator")
		}
	case "anthropic":
		if c.AnthropicAPIKey == "" {
			add("ANTHROPIC_API_KEY is required for the anthropic validator")
		}
	default:
		add("VALIDATOR_BACKEND %q must be rules, openai or anthropic", c.ValidatorBackend)
	}

	if c.IsProduction() && c.AdminToken == "" {
		add("ADMIN_TOKEN is required in production")
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
	}
	return nil
}

// Load parses environment variables and returns a validated Config.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
