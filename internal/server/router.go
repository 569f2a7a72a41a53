package server

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/gazette-app/valguard/internal/handler"
	"github.com/gazette-app/valguard/internal/middleware"
)

// DefaultMaxBodyBytes caps request bodies when RouterDeps leaves it unset.
const DefaultMaxBodyBytes = 1 << 20

// RouterDeps carries everything the HTTP surface is built from.
type RouterDeps struct {
	Logger *slog.Logger

	Validation  *handler.ValidationHandler
	Diagnostics *handler.DiagnosticsHandler
	Admin       *handler.AdminHandler
	Health      *handler.HealthHandler

	// Metrics serves /metrics. Nil leaves the route unregistered.
	Metrics http.Handler

	IsDevelopment  bool
	AllowedOrigins []string
	MaxBodyBytes   int64
	AdminToken     string
}

// NewRouter builds the chi router for the host process.
func NewRouter(deps RouterDeps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	maxBody := deps.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = DefaultMaxBodyBytes
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer(logger))
	r.Use(middleware.Logger(logger))
	r.Use(middleware.SecurityHeaders(deps.IsDevelopment))
	r.Use(middleware.CORS(deps.AllowedOrigins))

	r.Get("/healthz", deps.Health.Healthz)
	r.Get("/readyz", deps.Health.Readyz)
	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.MaxBodySize(maxBody))

		r.With(middleware.CallerID).Post("/validate", deps.Validation.Validate)

		r.Route("/diagnostics", func(r chi.Router) {
			d := deps.Diagnostics
			r.Get("/", d.Overview)
			r.Get("/debounce", d.Debounce)
			r.Get("/debounce/{callerID}", d.Caller)
			r.Get("/cache", d.Cache)
			r.Get("/performance", d.Performance)
			r.Get("/memory", d.Memory)
			r.Get("/memory/readings", d.MemoryReadings)
			r.Get("/memory/trend", d.MemoryTrend)
			r.Get("/cleanup", d.Cleanup)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.AdminAuth(deps.AdminToken))
			a := deps.Admin
			r.Delete("/debounce/{callerID}", a.ResetCaller)
			r.Post("/cache/clear", a.ClearCache)
			r.Post("/metrics/clear", a.ClearMetrics)
			r.Post("/cleanup", a.ForceCleanup)
			r.Post("/memory/start", a.StartMemory)
			r.Post("/memory/stop", a.StopMemory)
		})
	})

	r.NotFound(handler.NotFound)
	r.MethodNotAllowed(handler.MethodNotAllowed)

	return r
}
