package middleware

import (
	"crypto/sha256"
	"encoding/hex"
	"net"
	"net/http"
	"strings"
)

// CallerIDHeader lets trusted clients name the identity they debounce under.
const CallerIDHeader = "X-Caller-ID"

// ipCallerPrefix marks caller IDs derived from the client address.
const ipCallerPrefix = "ip:"

// CallerID resolves the debounce identity of each request: the X-Caller-ID
// header when present, otherwise a hash of the client IP. Malformed headers
// are rejected with 400.
func CallerID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(CallerIDHeader)
		if id != "" {
			if err := ValidateCallerID(id); err != nil {
				writeError(w, http.StatusBadRequest, "INVALID_CALLER_ID", err.Error())
				return
			}
		} else {
			id = ipCallerPrefix + hashIP(ClientIP(r))
		}

		next.ServeHTTP(w, r.WithContext(WithCallerID(r.Context(), id)))
	})
}

// ClientIP extracts the client address, preferring proxy headers.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// hashIP keeps raw addresses out of logs and diagnostics.
func hashIP(ip string) string {
	sum := sha256.Sum256([]byte(ip))
	return hex.EncodeToString(sum[:8])
}
