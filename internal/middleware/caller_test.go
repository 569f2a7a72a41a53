package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func captureCaller(t *testing.T, req *http.Request) (string, *httptest.ResponseRecorder) {
	t.Helper()
	var got string
	handler := CallerID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = GetCallerID(r.Context())
	}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return got, rec
}

func TestCallerID_Header(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/validate", nil)
	req.Header.Set(CallerIDHeader, "user-42")

	got, rec := captureCaller(t, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if got != "user-42" {
		t.Errorf("caller = %q, want user-42", got)
	}
}

func TestCallerID_InvalidHeader(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/validate", nil)
	req.Header.Set(CallerIDHeader, "bad id")

	_, rec := captureCaller(t, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "INVALID_CALLER_ID") {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestCallerID_FromIP(t *testing.T) {
	t.Parallel()

	a := httptest.NewRequest(http.MethodPost, "/", nil)
	a.RemoteAddr = "203.0.113.7:5555"
	b := httptest.NewRequest(http.MethodPost, "/", nil)
	b.RemoteAddr = "203.0.113.7:6666"
	c := httptest.NewRequest(http.MethodPost, "/", nil)
	c.RemoteAddr = "198.51.100.1:5555"

	idA, _ := captureCaller(t, a)
	idB, _ := captureCaller(t, b)
	idC, _ := captureCaller(t, c)

	if !strings.HasPrefix(idA, ipCallerPrefix) {
		t.Errorf("caller = %q, want %q prefix", idA, ipCallerPrefix)
	}
	if strings.Contains(idA, "203.0.113.7") {
		t.Error("raw IP leaked into caller ID")
	}
	if idA != idB {
		t.Errorf("same IP, different ports: %q != %q", idA, idB)
	}
	if idA == idC {
		t.Error("different IPs share a caller ID")
	}
}

func TestClientIP(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{"forwarded chain", map[string]string{"X-Forwarded-For": "192.0.2.1, 10.0.0.1"}, "10.0.0.2:80", "192.0.2.1"},
		{"real ip", map[string]string{"X-Real-IP": "192.0.2.9"}, "10.0.0.2:80", "192.0.2.9"},
		{"remote addr", nil, "192.0.2.5:1234", "192.0.2.5"},
		{"remote addr without port", nil, "192.0.2.5", "192.0.2.5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			if got := ClientIP(req); got != tt.want {
				t.Errorf("ClientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}
