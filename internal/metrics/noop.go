package metrics

import "time"

// NoopRecorder implements Recorder with no-op methods.
type NoopRecorder struct{}

// NewNoop returns a Recorder that discards all metrics.
func NewNoop() Recorder {
	return &NoopRecorder{}
}

// IncDebounceDecision is a no-op.
func (n *NoopRecorder) IncDebounceDecision(outcome string) {}

// IncCacheHit is a no-op.
func (n *NoopRecorder) IncCacheHit() {}

// IncCacheMiss is a no-op.
func (n *NoopRecorder) IncCacheMiss() {}

// IncCacheCoalesced is a no-op.
func (n *NoopRecorder) IncCacheCoalesced() {}

// IncCacheEviction is a no-op.
func (n *NoopRecorder) IncCacheEviction(reason string) {}

// ObserveOperation is a no-op.
func (n *NoopRecorder) ObserveOperation(operation string, duration time.Duration, success, cached bool) {
}

// SetHeapUsedMB is a no-op.
func (n *NoopRecorder) SetHeapUsedMB(mb float64) {}

// IncCleanupRun is a no-op.
func (n *NoopRecorder) IncCleanupRun() {}

// AddCleanupReclaimed is a no-op.
func (n *NoopRecorder) AddCleanupReclaimed(step string, count int) {}

// IncCleanupFailure is a no-op.
func (n *NoopRecorder) IncCleanupFailure(step string) {}
