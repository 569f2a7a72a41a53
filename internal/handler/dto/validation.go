// Package dto provides Data Transfer Objects for API requests and responses.
package dto

import (
	"time"

	"github.com/gazette-app/valguard/internal/cache"
	"github.com/gazette-app/valguard/internal/cleanup"
	"github.com/gazette-app/valguard/internal/debounce"
	"github.com/gazette-app/valguard/internal/memmon"
	"github.com/gazette-app/valguard/internal/model"
	"github.com/gazette-app/valguard/internal/perf"
)

// ErrorResponse represents an API error.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// ValidateRequest is the body of POST /api/v1/validate.
type ValidateRequest struct {
	Kind        string `json:"kind"`
	Content     string `json:"content"`
	Source      string `json:"source,omitempty"`
	BypassCache bool   `json:"bypass_cache,omitempty"`
}

// ToModel converts the request to the domain type.
func (r ValidateRequest) ToModel() model.ValidationRequest {
	return model.ValidationRequest{
		Kind:    model.ContentKind(r.Kind),
		Content: r.Content,
		Source:  r.Source,
	}
}

// ValidateResponse is returned for an accepted validation.
type ValidateResponse struct {
	Result *model.ValidationResult `json:"result"`
	Cached bool                    `json:"cached"`
	Shared bool                    `json:"shared"`
}

// DebouncedResponse is the 429 body for a debounced caller.
type DebouncedResponse struct {
	Error        string `json:"error"`
	Code         string `json:"code"`
	Reason       string `json:"reason"`
	RetryAfterMs int64  `json:"retry_after_ms,omitempty"`
	Violations   int    `json:"violations"`
	LockedOut    bool   `json:"locked_out"`
}

// ToDebouncedResponse converts a rejected decision.
func ToDebouncedResponse(d debounce.Decision) *DebouncedResponse {
	return &DebouncedResponse{
		Error:        d.Reason,
		Code:         "RATE_LIMITED",
		Reason:       d.Reason,
		RetryAfterMs: d.Wait.Milliseconds(),
		Violations:   d.Violations,
		LockedOut:    d.LockedOut(),
	}
}

// DebounceStatsResponse mirrors debounce.Stats.
type DebounceStatsResponse struct {
	ActiveUsers         int     `json:"active_users"`
	TotalViolations     int     `json:"total_violations"`
	AverageRequestCount float64 `json:"average_request_count"`
}

// ToDebounceStatsResponse converts debouncer stats.
func ToDebounceStatsResponse(s debounce.Stats) DebounceStatsResponse {
	return DebounceStatsResponse{
		ActiveUsers:         s.ActiveUsers,
		TotalViolations:     s.TotalViolations,
		AverageRequestCount: s.AverageRequestCount,
	}
}

// CallerRecordResponse is one caller's debounce record.
type CallerRecordResponse struct {
	CallerID       string    `json:"caller_id"`
	LastRequestAt  time.Time `json:"last_request_at"`
	LastAttemptAt  time.Time `json:"last_attempt_at"`
	ViolationCount int       `json:"violation_count"`
	RequestCount   int       `json:"request_count"`
}

// ToCallerRecordResponse converts a debounce record.
func ToCallerRecordResponse(id string, r debounce.Record) CallerRecordResponse {
	return CallerRecordResponse{
		CallerID:       id,
		LastRequestAt:  r.LastRequestAt,
		LastAttemptAt:  r.LastAttemptAt,
		ViolationCount: r.ViolationCount,
		RequestCount:   r.RequestCount,
	}
}

// CacheStatsResponse mirrors cache.Stats.
type CacheStatsResponse struct {
	Hits       uint64  `json:"hits"`
	Misses     uint64  `json:"misses"`
	Coalesced  uint64  `json:"coalesced"`
	Evictions  uint64  `json:"evictions"`
	Expired    uint64  `json:"expired"`
	Size       int     `json:"size"`
	MaxEntries int     `json:"max_entries"`
	InFlight   int64   `json:"in_flight"`
	HitRate    float64 `json:"hit_rate"`
}

// ToCacheStatsResponse converts cache stats.
func ToCacheStatsResponse(s cache.Stats) CacheStatsResponse {
	return CacheStatsResponse{
		Hits:       s.Hits,
		Misses:     s.Misses,
		Coalesced:  s.Coalesced,
		Evictions:  s.Evictions,
		Expired:    s.Expired,
		Size:       s.Size,
		MaxEntries: s.MaxEntries,
		InFlight:   s.InFlight,
		HitRate:    s.HitRate,
	}
}

// OperationStatsResponse is the aggregate of one tracked operation.
type OperationStatsResponse struct {
	Operation         string  `json:"operation"`
	TotalOperations   int     `json:"total_operations"`
	SuccessRate       float64 `json:"success_rate"`
	CacheHitRate      float64 `json:"cache_hit_rate"`
	AverageDurationMs float64 `json:"average_duration_ms"`
}

// ToOperationStatsResponse converts tracker stats.
func ToOperationStatsResponse(op string, s perf.Stats) OperationStatsResponse {
	return OperationStatsResponse{
		Operation:         op,
		TotalOperations:   s.TotalOperations,
		SuccessRate:       s.SuccessRate,
		CacheHitRate:      s.CacheHitRate,
		AverageDurationMs: float64(s.AverageDuration.Microseconds()) / 1000,
	}
}

// CleanupStatsResponse mirrors cleanup.RunStats.
type CleanupStatsResponse struct {
	TotalRuns         uint64     `json:"total_runs"`
	LastRunAt         *time.Time `json:"last_run_at"`
	LastRunReclaimed  int        `json:"last_run_reclaimed"`
	LastRunDurationMs float64    `json:"last_run_duration_ms"`
	LastRunFailures   int        `json:"last_run_failures"`
	TotalReclaimed    uint64     `json:"total_reclaimed"`
}

// ToCleanupStatsResponse converts scheduler stats. LastRunAt is null until
// the first pass.
func ToCleanupStatsResponse(s cleanup.RunStats) CleanupStatsResponse {
	resp := CleanupStatsResponse{
		TotalRuns:         s.TotalRuns,
		LastRunReclaimed:  s.LastRunReclaimed,
		LastRunDurationMs: float64(s.LastRunDuration.Microseconds()) / 1000,
		LastRunFailures:   s.LastRunFailures,
		TotalReclaimed:    s.TotalReclaimed,
	}
	if !s.LastRunAt.IsZero() {
		at := s.LastRunAt
		resp.LastRunAt = &at
	}
	return resp
}

// MemoryStatusResponse wraps the monitor status with its lifecycle state.
type MemoryStatusResponse struct {
	memmon.Status
	Running bool `json:"running"`
}

// DiagnosticsResponse combines every component's read-only view.
type DiagnosticsResponse struct {
	Debounce    DebounceStatsResponse    `json:"debounce"`
	Cache       CacheStatsResponse       `json:"cache"`
	Performance []OperationStatsResponse `json:"performance"`
	Memory      MemoryStatusResponse     `json:"memory"`
	Cleanup     CleanupStatsResponse     `json:"cleanup"`
}

// CleanupResultResponse is returned by a forced cleanup.
type CleanupResultResponse struct {
	Reclaimed int                  `json:"reclaimed"`
	Stats     CleanupStatsResponse `json:"stats"`
}
