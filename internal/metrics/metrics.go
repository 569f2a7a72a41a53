// Package metrics provides lightweight hooks for instrumentation.
package metrics

import "time"

// Debounce decision outcomes passed to IncDebounceDecision.
const (
	OutcomeAllowed   = "allowed"
	OutcomeTooSoon   = "too_soon"
	OutcomeLockedOut = "locked_out"
)

// Recorder captures metric events from the validation layer.
// Implementations can expose these to Prometheus or keep them in memory.
type Recorder interface {
	// Debouncer
	IncDebounceDecision(outcome string)

	// Validation cache
	IncCacheHit()
	IncCacheMiss()
	IncCacheCoalesced()
	IncCacheEviction(reason string) // reason: "capacity" or "ttl"

	// Performance tracker
	ObserveOperation(operation string, duration time.Duration, success, cached bool)

	// Memory monitor
	SetHeapUsedMB(mb float64)

	// Cleanup scheduler
	IncCleanupRun()
	AddCleanupReclaimed(step string, count int)
	IncCleanupFailure(step string)
}

// Snapshotter exposes a snapshot of current metrics.
type Snapshotter interface {
	Snapshot() Snapshot
}
