package metrics

import (
	"math"
	"sync/atomic"
	"time"
)

// Snapshot captures current in-memory counters.
type Snapshot struct {
	DebounceAllowed        uint64
	DebounceTooSoon        uint64
	DebounceLockedOut      uint64
	CacheHits              uint64
	CacheMisses            uint64
	CacheCoalesced         uint64
	CacheEvictions         uint64
	OperationCount         uint64
	OperationFailures      uint64
	OperationDurationTotal int64
	HeapUsedMB             float64
	CleanupRuns            uint64
	CleanupReclaimed       uint64
	CleanupFailures        uint64
}

// InMemoryRecorder stores metrics in memory. Used by tests and by the
// text exposition endpoint when Prometheus is disabled.
type InMemoryRecorder struct {
	debounceAllowed        uint64
	debounceTooSoon        uint64
	debounceLockedOut      uint64
	cacheHits              uint64
	cacheMisses            uint64
	cacheCoalesced         uint64
	cacheEvictions         uint64
	operationCount         uint64
	operationFailures      uint64
	operationDurationTotal int64
	heapUsedBits           uint64
	cleanupRuns            uint64
	cleanupReclaimed       uint64
	cleanupFailures        uint64
}

// NewInMemory returns a Recorder that stores counters in memory.
func NewInMemory() *InMemoryRecorder {
	return &InMemoryRecorder{}
}

// Snapshot returns a copy of the counters.
func (m *InMemoryRecorder) Snapshot() Snapshot {
	return Snapshot{
		DebounceAllowed:        atomic.LoadUint64(&m.debounceAllowed),
		DebounceTooSoon:        atomic.LoadUint64(&m.debounceTooSoon),
		DebounceLockedOut:      atomic.LoadUint64(&m.debounceLockedOut),
		CacheHits:              atomic.LoadUint64(&m.cacheHits),
		CacheMisses:            atomic.LoadUint64(&m.cacheMisses),
		CacheCoalesced:         atomic.LoadUint64(&m.cacheCoalesced),
		CacheEvictions:         atomic.LoadUint64(&m.cacheEvictions),
		OperationCount:         atomic.LoadUint64(&m.operationCount),
		OperationFailures:      atomic.LoadUint64(&m.operationFailures),
		OperationDurationTotal: atomic.LoadInt64(&m.operationDurationTotal),
		HeapUsedMB:             math.Float64frombits(atomic.LoadUint64(&m.heapUsedBits)),
		CleanupRuns:            atomic.LoadUint64(&m.cleanupRuns),
		CleanupReclaimed:       atomic.LoadUint64(&m.cleanupReclaimed),
		CleanupFailures:        atomic.LoadUint64(&m.cleanupFailures),
	}
}

// IncDebounceDecision counts a debouncer decision by outcome.
func (m *InMemoryRecorder) IncDebounceDecision(outcome string) {
	switch outcome {
	case OutcomeAllowed:
		atomic.AddUint64(&m.debounceAllowed, 1)
	case OutcomeTooSoon:
		atomic.AddUint64(&m.debounceTooSoon, 1)
	case OutcomeLockedOut:
		atomic.AddUint64(&m.debounceLockedOut, 1)
	}
}

// IncCacheHit increments cache hit counter.
func (m *InMemoryRecorder) IncCacheHit() {
	atomic.AddUint64(&m.cacheHits, 1)
}

// IncCacheMiss increments cache miss counter.
func (m *InMemoryRecorder) IncCacheMiss() {
	atomic.AddUint64(&m.cacheMisses, 1)
}

// IncCacheCoalesced increments the counter of callers that joined an in-flight fetch.
func (m *InMemoryRecorder) IncCacheCoalesced() {
	atomic.AddUint64(&m.cacheCoalesced, 1)
}

// IncCacheEviction increments cache eviction counter.
func (m *InMemoryRecorder) IncCacheEviction(reason string) {
	atomic.AddUint64(&m.cacheEvictions, 1)
}

// ObserveOperation records a completed tracked operation.
func (m *InMemoryRecorder) ObserveOperation(operation string, duration time.Duration, success, cached bool) {
	atomic.AddUint64(&m.operationCount, 1)
	if !success {
		atomic.AddUint64(&m.operationFailures, 1)
	}
	atomic.AddInt64(&m.operationDurationTotal, duration.Nanoseconds())
}

// SetHeapUsedMB stores the latest memory reading.
func (m *InMemoryRecorder) SetHeapUsedMB(mb float64) {
	atomic.StoreUint64(&m.heapUsedBits, math.Float64bits(mb))
}

// IncCleanupRun increments cleanup pass counter.
func (m *InMemoryRecorder) IncCleanupRun() {
	atomic.AddUint64(&m.cleanupRuns, 1)
}

// AddCleanupReclaimed adds to the reclaimed entries counter.
func (m *InMemoryRecorder) AddCleanupReclaimed(step string, count int) {
	if count > 0 {
		atomic.AddUint64(&m.cleanupReclaimed, uint64(count))
	}
}

// IncCleanupFailure increments cleanup step failure counter.
func (m *InMemoryRecorder) IncCleanupFailure(step string) {
	atomic.AddUint64(&m.cleanupFailures, 1)
}
