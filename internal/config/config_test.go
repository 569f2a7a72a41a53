package config

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestConfig_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if cfg.AppEnv != "development" {
		t.Errorf("expected default AppEnv 'development', got %s", cfg.AppEnv)
	}
	if cfg.AppPort != 8080 {
		t.Errorf("expected default AppPort 8080, got %d", cfg.AppPort)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("expected default LogLevel 'info', got %s", cfg.LogLevel)
	}
	if cfg.LogFormat != "json" {
		t.Errorf("expected default LogFormat 'json', got %s", cfg.LogFormat)
	}
	if cfg.DebounceMinInterval != 2*time.Second {
		t.Errorf("expected default DebounceMinInterval 2s, got %s", cfg.DebounceMinInterval)
	}
	if cfg.DebounceMaxViolations != 5 {
		t.Errorf("expected default DebounceMaxViolations 5, got %d", cfg.DebounceMaxViolations)
	}
	if cfg.CacheMaxEntries != 500 {
		t.Errorf("expected default CacheMaxEntries 500, got %d", cfg.CacheMaxEntries)
	}
	if cfg.CacheTTL != 5*time.Minute {
		t.Errorf("expected default CacheTTL 5m, got %s", cfg.CacheTTL)
	}
	if cfg.PerfRetention != 5*time.Minute {
		t.Errorf("expected default PerfRetention 5m, got %s", cfg.PerfRetention)
	}
	if cfg.ValidatorBackend != "rules" {
		t.Errorf("expected default ValidatorBackend 'rules', got %s", cfg.ValidatorBackend)
	}
	if cfg.MetricsBackend != "prometheus" {
		t.Errorf("expected default MetricsBackend 'prometheus', got %s", cfg.MetricsBackend)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("APP_PORT", "9090")
	t.Setenv("DEBOUNCE_MIN_INTERVAL", "500ms")
	t.Setenv("CACHE_MAX_ENTRIES", "50")
	t.Setenv("MEMORY_SOURCE", "runtime")
	t.Setenv("VALIDATOR_BACKEND", "openai")
	t.Setenv("OPENAI_API_KEY", "sk-test")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.AppPort != 9090 {
		t.Errorf("expected AppPort 9090, got %d", cfg.AppPort)
	}
	if cfg.DebounceMinInterval != 500*time.Millisecond {
		t.Errorf("expected DebounceMinInterval 500ms, got %s", cfg.DebounceMinInterval)
	}
	if cfg.CacheMaxEntries != 50 {
		t.Errorf("expected CacheMaxEntries 50, got %d", cfg.CacheMaxEntries)
	}
	if cfg.MemorySource != "runtime" {
		t.Errorf("expected MemorySource runtime, got %s", cfg.MemorySource)
	}
}

func TestLoad_ParseError(t *testing.T) {
	t.Setenv("CACHE_TTL", "soon")

	if _, err := Load(); err == nil {
		t.Fatal("expected parse error, got nil")
	}
}

func TestLoad_InvalidCombination(t *testing.T) {
	t.Setenv("VALIDATOR_BACKEND", "anthropic")

	_, err := Load()
	if !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
	if !strings.Contains(err.Error(), "ANTHROPIC_API_KEY") {
		t.Errorf("expected error to name ANTHROPIC_API_KEY, got %v", err)
	}
}

func validConfig() Config {
	return Config{
		AppEnv:                "development",
		AppPort:               8080,
		DebounceMinInterval:   time.Second,
		DebounceMaxViolations: 5,
		DebounceRecordTTL:     time.Minute,
		CacheMaxEntries:       10,
		CacheTTL:              time.Minute,
		PerfRetention:         time.Minute,
		PerfMaxRecords:        100,
		MemorySource:          "process",
		MemorySampleInterval:  time.Second,
		MemoryMaxReadings:     10,
		MemoryWarningMB:       100,
		MemoryCriticalMB:      200,
		CleanupInterval:       time.Minute,
		MetricsBackend:        "memory",
		ValidatorBackend:      "rules",
		ValidatorTimeout:      time.Second,
		ValidatorMaxTokens:    256,
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"port", func(c *Config) { c.AppPort = 70000 }, "APP_PORT"},
		{"thresholds", func(c *Config) { c.MemoryWarningMB = 300 }, "MEMORY_WARNING_MB"},
		{"memory source", func(c *Config) { c.MemorySource = "swap" }, "MEMORY_SOURCE"},
		{"metrics backend", func(c *Config) { c.MetricsBackend = "statsd" }, "METRICS_BACKEND"},
		{"validator backend", func(c *Config) { c.ValidatorBackend = "gemini" }, "VALIDATOR_BACKEND"},
		{"openai key", func(c *Config) { c.ValidatorBackend = "openai" }, "OPENAI_API_KEY"},
		{"admin token in production", func(c *Config) { c.AppEnv = "production" }, "ADMIN_TOKEN"},
		{"debounce interval", func(c *Config) { c.DebounceMinInterval = 0 }, "DEBOUNCE_MIN_INTERVAL"},
		{"cache size", func(c *Config) { c.CacheMaxEntries = 0 }, "CACHE_MAX_ENTRIES"},
		{"debounce record ttl", func(c *Config) { c.DebounceRecordTTL = 0 }, "DEBOUNCE_RECORD_TTL"},
		{"perf retention", func(c *Config) { c.PerfRetention = -time.Second }, "PERF_RETENTION"},
		{"perf max records", func(c *Config) { c.PerfMaxRecords = 0 }, "PERF_MAX_RECORDS"},
		{"memory max readings", func(c *Config) { c.MemoryMaxReadings = 0 }, "MEMORY_MAX_READINGS"},
		{"validator timeout", func(c *Config) { c.ValidatorTimeout = 0 }, "VALIDATOR_TIMEOUT"},
		{"validator max tokens", func(c *Config) { c.ValidatorMaxTokens = 0 }, "VALIDATOR_MAX_TOKENS"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("expected no error, got %v", err)
				}
				return
			}
			if !errors.Is(err, ErrInvalidConfig) {
				t.Fatalf("expected ErrInvalidConfig, got %v", err)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error to mention %s, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestConfig_IsDevelopment(t *testing.T) {
	cfg := &Config{AppEnv: "development"}
	if !cfg.IsDevelopment() {
		t.Error("expected IsDevelopment to return true")
	}

	cfg.AppEnv = "production"
	if cfg.IsDevelopment() {
		t.Error("expected IsDevelopment to return false")
	}
}

func TestConfig_GetCORSAllowedOrigins(t *testing.T) {
	cfg := &Config{CORSAllowedOrigins: " https://a.example , ,https://b.example"}
	got := cfg.GetCORSAllowedOrigins()
	if len(got) != 2 || got[0] != "https://a.example" || got[1] != "https://b.example" {
		t.Errorf("unexpected origins %v", got)
	}

	cfg.CORSAllowedOrigins = ""
	if cfg.GetCORSAllowedOrigins() != nil {
		t.Error("expected nil for empty origins")
	}
}
