// Package perf aggregates latency, success and cache-hit metrics per
// operation over a sliding retention window.
package perf

import (
	"sort"
	"sync"
	"time"

	"github.com/gazette-app/valguard/internal/clock"
	"github.com/gazette-app/valguard/internal/metrics"
)

// Defaults applied by New for zero config values.
const (
	DefaultRetention  = 5 * time.Minute
	DefaultMaxRecords = 10000
)

// trimDivisor sets the extra share of MaxRecords dropped when the log
// overflows, so trimming happens once per batch of appends.
const trimDivisor = 10

// MetadataCached is the metadata key marking a result served from cache.
const MetadataCached = "cached"

// Config configures a Tracker.
type Config struct {
	// Retention is how long records count toward Stats.
	Retention time.Duration
	// MaxRecords caps the log; the oldest records are dropped first.
	MaxRecords int
}

// Metadata holds free-form tags attached to a record.
type Metadata map[string]any

// Cached reports whether the record was marked as a cache hit.
func (m Metadata) Cached() bool {
	v, ok := m[MetadataCached].(bool)
	return ok && v
}

// Record is one completed operation.
type Record struct {
	Operation string
	Duration  time.Duration
	Timestamp time.Time
	Success   bool
	Metadata  Metadata
}

// Stats aggregates the records of one operation. Rates are percentages.
type Stats struct {
	TotalOperations int
	SuccessRate     float64
	CacheHitRate    float64
	AverageDuration time.Duration
}

// EndFunc completes a span started by StartOperation.
type EndFunc func(success bool, metadata Metadata)

// Option configures a Tracker.
type Option func(*Tracker)

// WithClock overrides the time source.
func WithClock(c clock.Clock) Option {
	return func(t *Tracker) {
		if c != nil {
			t.clock = c
		}
	}
}

// WithRecorder forwards every recorded metric to r.
func WithRecorder(r metrics.Recorder) Option {
	return func(t *Tracker) {
		if r != nil {
			t.recorder = r
		}
	}
}

// Tracker is an append-only metric log. It is safe for concurrent use.
type Tracker struct {
	cfg      Config
	clock    clock.Clock
	recorder metrics.Recorder

	mu      sync.RWMutex
	records []Record
}

// New creates a Tracker. Zero config values fall back to the defaults.
func New(cfg Config, opts ...Option) *Tracker {
	if cfg.Retention <= 0 {
		cfg.Retention = DefaultRetention
	}
	if cfg.MaxRecords <= 0 {
		cfg.MaxRecords = DefaultMaxRecords
	}

	t := &Tracker{
		cfg:      cfg,
		clock:    clock.Real{},
		recorder: metrics.NewNoop(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// StartOperation starts timing name. Calling the returned function appends
// the record; calling it more than once records only the first call.
func (t *Tracker) StartOperation(name string) EndFunc {
	start := t.clock.Now()
	var once sync.Once

	return func(success bool, metadata Metadata) {
		once.Do(func() {
			now := t.clock.Now()
			t.RecordMetric(Record{
				Operation: name,
				Duration:  now.Sub(start),
				Timestamp: now,
				Success:   success,
				Metadata:  metadata,
			})
		})
	}
}

// RecordMetric appends r. A zero Timestamp is set to now.
func (t *Tracker) RecordMetric(r Record) {
	if r.Timestamp.IsZero() {
		r.Timestamp = t.clock.Now()
	}

	t.mu.Lock()
	t.records = append(t.records, r)
	if over := len(t.records) - t.cfg.MaxRecords; over > 0 {
		t.dropOldestLocked(over + t.cfg.MaxRecords/trimDivisor)
	}
	t.mu.Unlock()

	t.recorder.ObserveOperation(r.Operation, r.Duration, r.Success, r.Metadata.Cached())
}

// Stats aggregates the in-window records of name. The boolean is false when
// there are none, distinguishing "never ran" from "0% success".
func (t *Tracker) Stats(name string) (Stats, bool) {
	cutoff := t.clock.Now().Add(-t.cfg.Retention)

	t.mu.RLock()
	defer t.mu.RUnlock()

	var acc accumulator
	for i := range t.records {
		r := &t.records[i]
		if r.Operation != name || r.Timestamp.Before(cutoff) {
			continue
		}
		acc.add(r)
	}
	return acc.stats()
}

// AllStats aggregates every operation with in-window records.
func (t *Tracker) AllStats() map[string]Stats {
	cutoff := t.clock.Now().Add(-t.cfg.Retention)

	t.mu.RLock()
	defer t.mu.RUnlock()

	accs := make(map[string]*accumulator)
	for i := range t.records {
		r := &t.records[i]
		if r.Timestamp.Before(cutoff) {
			continue
		}
		acc, ok := accs[r.Operation]
		if !ok {
			acc = &accumulator{}
			accs[r.Operation] = acc
		}
		acc.add(r)
	}

	out := make(map[string]Stats, len(accs))
	for name, acc := range accs {
		out[name], _ = acc.stats()
	}
	return out
}

// Operations lists the names with in-window records, sorted.
func (t *Tracker) Operations() []string {
	all := t.AllStats()
	names := make([]string, 0, len(all))
	for name := range all {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ClearMetrics drops every record.
func (t *Tracker) ClearMetrics() {
	t.mu.Lock()
	t.records = nil
	t.mu.Unlock()
}

// Len returns the number of stored records, including ones outside the window.
func (t *Tracker) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.records)
}

// dropOldestLocked removes the n oldest records in place, keeping the
// backing array for later appends.
func (t *Tracker) dropOldestLocked(n int) {
	n = min(n, len(t.records))
	kept := copy(t.records, t.records[n:])
	clear(t.records[kept:])
	t.records = t.records[:kept]
}

// Prune discards records older than the retention window and returns how
// many were removed.
func (t *Tracker) Prune() int {
	cutoff := t.clock.Now().Add(-t.cfg.Retention)

	t.mu.Lock()
	defer t.mu.Unlock()

	kept := t.records[:0]
	for _, r := range t.records {
		if !r.Timestamp.Before(cutoff) {
			kept = append(kept, r)
		}
	}
	removed := len(t.records) - len(kept)
	// Zero the tail so dropped metadata maps can be collected.
	for i := len(kept); i < len(t.records); i++ {
		t.records[i] = Record{}
	}
	t.records = kept
	return removed
}

type accumulator struct {
	total     int
	successes int
	cached    int
	duration  time.Duration
}

func (a *accumulator) add(r *Record) {
	a.total++
	a.duration += r.Duration
	if r.Success {
		a.successes++
	}
	if r.Metadata.Cached() {
		a.cached++
	}
}

func (a *accumulator) stats() (Stats, bool) {
	if a.total == 0 {
		return Stats{}, false
	}
	n := float64(a.total)
	return Stats{
		TotalOperations: a.total,
		SuccessRate:     float64(a.successes) / n * 100,
		CacheHitRate:    float64(a.cached) / n * 100,
		AverageDuration: a.duration / time.Duration(a.total),
	}, true
}
