package main

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gazette-app/valguard/internal/cache"
	"github.com/gazette-app/valguard/internal/cleanup"
	"github.com/gazette-app/valguard/internal/config"
	"github.com/gazette-app/valguard/internal/debounce"
	"github.com/gazette-app/valguard/internal/handler"
	"github.com/gazette-app/valguard/internal/memmon"
	"github.com/gazette-app/valguard/internal/metrics"
	"github.com/gazette-app/valguard/internal/model"
	"github.com/gazette-app/valguard/internal/perf"
	"github.com/gazette-app/valguard/internal/server"
	"github.com/gazette-app/valguard/internal/service"
	"github.com/gazette-app/valguard/internal/validator"
)

const requestLabel = "Validation request"

// app holds the wired optimization layer.
type app struct {
	cfg    *config.Config
	logger *slog.Logger

	recorder       metrics.Recorder
	metricsHandler http.Handler

	debouncer *debounce.Debouncer
	cache     *service.ResultCache
	tracker   *perf.Tracker
	monitor   *memmon.Monitor
	scheduler *cleanup.Scheduler
	validator validator.Validator
	service   *service.ValidationService
}

func newApp(cfg *config.Config, logger *slog.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logger}

	switch cfg.MetricsBackend {
	case "memory":
		rec := metrics.NewInMemory()
		a.recorder = rec
		a.metricsHandler = http.HandlerFunc(handler.NewMetricsHandler(rec).Metrics)
	default:
		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		a.recorder = metrics.NewPrometheus(reg)
		a.metricsHandler = promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
	}

	a.debouncer = debounce.New(debounce.Config{
		MinInterval:   cfg.DebounceMinInterval,
		MaxViolations: cfg.DebounceMaxViolations,
		RecordTTL:     cfg.DebounceRecordTTL,
		RequestLabel:  requestLabel,
	})

	resultCache, err := cache.New[*model.ValidationResult](cache.Config{
		MaxEntries: cfg.CacheMaxEntries,
		TTL:        cfg.CacheTTL,
	}, cache.WithRecorder(a.recorder))
	if err != nil {
		return nil, fmt.Errorf("create result cache: %w", err)
	}
	a.cache = resultCache

	a.tracker = perf.New(perf.Config{
		Retention:  cfg.PerfRetention,
		MaxRecords: cfg.PerfMaxRecords,
	}, perf.WithRecorder(a.recorder))

	reader, err := memmon.NewReader(cfg.MemorySource)
	if err != nil {
		return nil, fmt.Errorf("create memory reader: %w", err)
	}
	a.monitor = memmon.New(reader, memmon.Config{
		Interval:    cfg.MemorySampleInterval,
		MaxReadings: cfg.MemoryMaxReadings,
		WarningMB:   cfg.MemoryWarningMB,
		CriticalMB:  cfg.MemoryCriticalMB,
	}, memmon.WithRecorder(a.recorder), memmon.WithLogger(logger))

	a.scheduler = cleanup.New(cleanup.Targets{
		Cache:     a.cache,
		Debouncer: a.debouncer,
		Tracker:   a.tracker,
	}, cleanup.Config{Interval: cfg.CleanupInterval},
		cleanup.WithRecorder(a.recorder),
		cleanup.WithLogger(logger),
	)

	a.validator, err = validator.New(validator.Config{
		Backend:         cfg.ValidatorBackend,
		Timeout:         cfg.ValidatorTimeout,
		MaxTokens:       cfg.ValidatorMaxTokens,
		OpenAIAPIKey:    cfg.OpenAIAPIKey,
		OpenAIModel:     cfg.OpenAIModel,
		AnthropicAPIKey: cfg.AnthropicAPIKey,
		AnthropicModel:  cfg.AnthropicModel,
	})
	if err != nil {
		return nil, fmt.Errorf("create validator: %w", err)
	}

	a.service = service.NewValidationService(a.debouncer, a.cache, a.tracker, a.validator, a.recorder, logger)

	return a, nil
}

func (a *app) components() handler.Components {
	return handler.Components{
		Debouncer: a.debouncer,
		Cache:     a.cache,
		Tracker:   a.tracker,
		Monitor:   a.monitor,
		Scheduler: a.scheduler,
	}
}

func (a *app) router() http.Handler {
	comps := a.components()
	return server.NewRouter(server.RouterDeps{
		Logger:      a.logger,
		Validation:  handler.NewValidationHandler(a.service, a.logger),
		Diagnostics: handler.NewDiagnosticsHandler(comps),
		Admin:       handler.NewAdminHandler(comps, a.logger),
		Health: handler.NewHealthHandler(map[string]handler.HealthChecker{
			"memory": a.monitor,
		}),
		Metrics:        a.metricsHandler,
		IsDevelopment:  a.cfg.IsDevelopment(),
		AllowedOrigins: a.cfg.GetCORSAllowedOrigins(),
		MaxBodyBytes:   a.cfg.MaxRequestBodySize,
		AdminToken:     a.cfg.AdminToken,
	})
}
