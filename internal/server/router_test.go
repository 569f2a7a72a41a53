package server

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gazette-app/valguard/internal/cache"
	"github.com/gazette-app/valguard/internal/cleanup"
	"github.com/gazette-app/valguard/internal/clock"
	"github.com/gazette-app/valguard/internal/debounce"
	"github.com/gazette-app/valguard/internal/handler"
	"github.com/gazette-app/valguard/internal/memmon"
	"github.com/gazette-app/valguard/internal/metrics"
	"github.com/gazette-app/valguard/internal/model"
	"github.com/gazette-app/valguard/internal/perf"
	"github.com/gazette-app/valguard/internal/service"
	"github.com/gazette-app/valguard/internal/validator"
)

var discard = slog.New(slog.DiscardHandler)

const body = `{"kind":"extraction","content":"{\"title\":\"Weekly\"}"}`

func newTestRouter(t *testing.T, adminToken string) http.Handler {
	t.Helper()

	clk := clock.NewMock(time.Time{})
	rec := metrics.NewInMemory()
	d := debounce.New(debounce.Config{MinInterval: time.Second, MaxViolations: 3, RequestLabel: "Validation request"},
		debounce.WithClock(clk))
	c, err := cache.New[*model.ValidationResult](cache.Config{MaxEntries: 10, TTL: time.Minute},
		cache.WithClock(clk), cache.WithRecorder(rec))
	if err != nil {
		t.Fatalf("cache.New: %v", err)
	}
	tr := perf.New(perf.Config{}, perf.WithClock(clk))
	mon := memmon.New(memmon.ReaderFunc(func(context.Context) (float64, error) { return 64, nil }),
		memmon.Config{Interval: time.Hour, WarningMB: 100, CriticalMB: 200}, memmon.WithClock(clk))
	sch := cleanup.New(cleanup.Targets{Cache: c, Debouncer: d, Tracker: tr}, cleanup.Config{}, cleanup.WithClock(clk))
	svc := service.NewValidationService(d, c, tr, validator.NewRules(), rec, discard)

	comps := handler.Components{Debouncer: d, Cache: c, Tracker: tr, Monitor: mon, Scheduler: sch}
	return NewRouter(RouterDeps{
		Logger:      discard,
		Validation:  handler.NewValidationHandler(svc, discard),
		Diagnostics: handler.NewDiagnosticsHandler(comps),
		Admin:       handler.NewAdminHandler(comps, discard),
		Health:      handler.NewHealthHandler(map[string]handler.HealthChecker{"memory": mon}),
		Metrics:     http.HandlerFunc(handler.NewMetricsHandler(rec).Metrics),
		AdminToken:  adminToken,
	})
}

func send(h http.Handler, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRouter_Routes(t *testing.T) {
	router := newTestRouter(t, "")

	tests := []struct {
		method string
		path   string
		status int
	}{
		{http.MethodGet, "/healthz", http.StatusOK},
		{http.MethodGet, "/metrics", http.StatusOK},
		{http.MethodGet, "/api/v1/diagnostics", http.StatusOK},
		{http.MethodGet, "/api/v1/diagnostics/debounce", http.StatusOK},
		{http.MethodGet, "/api/v1/diagnostics/debounce/nobody", http.StatusNotFound},
		{http.MethodGet, "/api/v1/diagnostics/cache", http.StatusOK},
		{http.MethodGet, "/api/v1/diagnostics/performance", http.StatusOK},
		{http.MethodGet, "/api/v1/diagnostics/memory", http.StatusOK},
		{http.MethodGet, "/api/v1/diagnostics/memory/readings", http.StatusOK},
		{http.MethodGet, "/api/v1/diagnostics/memory/trend", http.StatusNotFound},
		{http.MethodGet, "/api/v1/diagnostics/cleanup", http.StatusOK},
		{http.MethodPost, "/api/v1/admin/cache/clear", http.StatusNoContent},
		{http.MethodPost, "/api/v1/admin/metrics/clear", http.StatusNoContent},
		{http.MethodPost, "/api/v1/admin/cleanup", http.StatusOK},
		{http.MethodDelete, "/api/v1/admin/debounce/user-1", http.StatusNoContent},
		{http.MethodGet, "/api/v1/unknown", http.StatusNotFound},
		{http.MethodGet, "/api/v1/validate", http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rec := send(router, tt.method, tt.path, "", nil)
			if rec.Code != tt.status {
				t.Errorf("expected status %d, got %d: %s", tt.status, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestRouter_ValidateThenDebounce(t *testing.T) {
	router := newTestRouter(t, "")
	headers := map[string]string{"X-Caller-ID": "dashboard-1"}

	rec := send(router, http.MethodPost, "/api/v1/validate", body, headers)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("X-Request-ID header missing")
	}
	if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("security headers missing")
	}

	rec = send(router, http.MethodPost, "/api/v1/validate", body, headers)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected status 429, got %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("Retry-After header missing")
	}

	// A different caller is not affected.
	rec = send(router, http.MethodPost, "/api/v1/validate", body, map[string]string{"X-Caller-ID": "dashboard-2"})
	if rec.Code != http.StatusOK {
		t.Errorf("expected status 200 for second caller, got %d", rec.Code)
	}
}

func TestRouter_InvalidCallerID(t *testing.T) {
	router := newTestRouter(t, "")

	rec := send(router, http.MethodPost, "/api/v1/validate", body, map[string]string{"X-Caller-ID": "bad id"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", rec.Code)
	}
}

func TestRouter_BodyTooLarge(t *testing.T) {
	router := newTestRouter(t, "")

	big := `{"kind":"article","content":"` + strings.Repeat("a", DefaultMaxBodyBytes) + `"}`
	rec := send(router, http.MethodPost, "/api/v1/validate", big, nil)
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("expected status 413, got %d", rec.Code)
	}
}

func TestRouter_AdminAuth(t *testing.T) {
	router := newTestRouter(t, "s3cret")

	tests := []struct {
		name    string
		headers map[string]string
		status  int
	}{
		{"missing token", nil, http.StatusUnauthorized},
		{"wrong token", map[string]string{"Authorization": "Bearer nope"}, http.StatusForbidden},
		{"valid token", map[string]string{"Authorization": "Bearer s3cret"}, http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := send(router, http.MethodPost, "/api/v1/admin/cache/clear", "", tt.headers)
			if rec.Code != tt.status {
				t.Errorf("expected status %d, got %d", tt.status, rec.Code)
			}
		})
	}

	// Diagnostics stay readable without a token.
	if rec := send(router, http.MethodGet, "/api/v1/diagnostics/cache", "", nil); rec.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rec.Code)
	}
}

func TestRouter_ReadyzReflectsMemory(t *testing.T) {
	router := newTestRouter(t, "")

	// No reading yet: the monitor is not critical.
	if rec := send(router, http.MethodGet, "/readyz", "", nil); rec.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}
}
