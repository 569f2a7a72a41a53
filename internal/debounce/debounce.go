// Package debounce implements a per-caller request debouncer with an
// escalating lockout.
//
// Each caller identity gets a record tracking its last accepted request and
// the number of violations (requests that arrived before MinInterval had
// elapsed). Once a caller accumulates MaxViolations it is locked out until
// ResetUser is called or its record ages past RecordTTL and is pruned by
// Cleanup. Violations never decay on their own.
package debounce

import (
	"sync"
	"time"

	"github.com/gazette-app/valguard/internal/clock"
)

// ReasonLockedOut is the rejection reason once a caller hit MaxViolations.
const ReasonLockedOut = "Too many rapid requests"

// Defaults applied by New for zero config values.
const (
	DefaultMinInterval   = 2 * time.Second
	DefaultMaxViolations = 5
	DefaultRecordTTL     = 10 * time.Minute
	DefaultRequestLabel  = "Request"
)

// Config configures a Debouncer.
type Config struct {
	// MinInterval is the minimum spacing between accepted requests per caller.
	MinInterval time.Duration
	// MaxViolations is the lockout threshold.
	MaxViolations int
	// RecordTTL is the inactivity window after which a record may be pruned.
	RecordTTL time.Duration
	// RequestLabel prefixes the "too soon" reason, e.g. "Validation request".
	RequestLabel string
}

// Decision is the outcome of ShouldAllowRequest.
type Decision struct {
	Allowed    bool
	Reason     string
	Wait       time.Duration
	Violations int
}

// LockedOut reports whether the decision is a hard lockout.
func (d Decision) LockedOut() bool {
	return !d.Allowed && d.Reason == ReasonLockedOut
}

// Record is a read-only view of one caller's debounce state.
type Record struct {
	LastRequestAt  time.Time
	LastAttemptAt  time.Time
	ViolationCount int
	RequestCount   int
}

// Stats summarizes the tracked callers.
type Stats struct {
	ActiveUsers         int
	TotalViolations     int
	AverageRequestCount float64
}

// Option configures a Debouncer.
type Option func(*Debouncer)

// WithClock overrides the time source.
func WithClock(c clock.Clock) Option {
	return func(d *Debouncer) {
		if c != nil {
			d.clock = c
		}
	}
}

// Debouncer tracks request pacing per caller. It is safe for concurrent use
// and never blocks on anything but its own mutex.
type Debouncer struct {
	cfg     Config
	clock   clock.Clock
	mu      sync.Mutex
	records map[string]*Record
}

// New creates a Debouncer. Zero config values fall back to the defaults.
func New(cfg Config, opts ...Option) *Debouncer {
	if cfg.MinInterval <= 0 {
		cfg.MinInterval = DefaultMinInterval
	}
	if cfg.MaxViolations <= 0 {
		cfg.MaxViolations = DefaultMaxViolations
	}
	if cfg.RecordTTL <= 0 {
		cfg.RecordTTL = DefaultRecordTTL
	}
	if cfg.RequestLabel == "" {
		cfg.RequestLabel = DefaultRequestLabel
	}

	d := &Debouncer{
		cfg:     cfg,
		clock:   clock.Real{},
		records: make(map[string]*Record),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Config returns the effective configuration.
func (d *Debouncer) Config() Config {
	return d.cfg
}

// ShouldAllowRequest decides whether callerID may proceed now and updates
// its record accordingly.
func (d *Debouncer) ShouldAllowRequest(callerID string) Decision {
	now := d.clock.Now()

	d.mu.Lock()
	defer d.mu.Unlock()

	rec, ok := d.records[callerID]
	if !ok {
		rec = &Record{}
		d.records[callerID] = rec
	}

	elapsed := now.Sub(rec.LastRequestAt)
	if rec.LastRequestAt.IsZero() ||
		(elapsed >= d.cfg.MinInterval && rec.ViolationCount < d.cfg.MaxViolations) {
		rec.LastRequestAt = now
		rec.LastAttemptAt = now
		rec.RequestCount++
		return Decision{Allowed: true, Violations: rec.ViolationCount}
	}

	rec.ViolationCount++
	rec.LastAttemptAt = now

	if rec.ViolationCount >= d.cfg.MaxViolations {
		return Decision{
			Allowed:    false,
			Reason:     ReasonLockedOut,
			Violations: rec.ViolationCount,
		}
	}

	wait := d.cfg.MinInterval - elapsed
	if wait < 0 {
		wait = 0
	}
	return Decision{
		Allowed:    false,
		Reason:     d.cfg.RequestLabel + " too soon",
		Wait:       wait,
		Violations: rec.ViolationCount,
	}
}

// ResetUser forgets callerID entirely; its next request is a first contact.
func (d *Debouncer) ResetUser(callerID string) {
	d.mu.Lock()
	delete(d.records, callerID)
	d.mu.Unlock()
}

// Lookup returns a copy of callerID's record.
func (d *Debouncer) Lookup(callerID string) (Record, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	rec, ok := d.records[callerID]
	if !ok {
		return Record{}, false
	}
	return *rec, true
}

// Stats returns aggregate counters over all tracked callers.
func (d *Debouncer) Stats() Stats {
	d.mu.Lock()
	defer d.mu.Unlock()

	stats := Stats{ActiveUsers: len(d.records)}
	if len(d.records) == 0 {
		return stats
	}

	totalRequests := 0
	for _, rec := range d.records {
		stats.TotalViolations += rec.ViolationCount
		totalRequests += rec.RequestCount
	}
	stats.AverageRequestCount = float64(totalRequests) / float64(len(d.records))
	return stats
}

// Cleanup removes records whose last attempt is older than RecordTTL and
// returns how many were removed.
func (d *Debouncer) Cleanup() int {
	now := d.clock.Now()

	d.mu.Lock()
	defer d.mu.Unlock()

	removed := 0
	for id, rec := range d.records {
		if now.Sub(rec.LastAttemptAt) > d.cfg.RecordTTL {
			delete(d.records, id)
			removed++
		}
	}
	return removed
}
