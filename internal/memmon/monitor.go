// Package memmon samples process memory on an interval and classifies the
// latest reading against warning and critical thresholds.
package memmon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gazette-app/valguard/internal/clock"
	"github.com/gazette-app/valguard/internal/metrics"
	"github.com/gazette-app/valguard/internal/periodic"
)

// ErrMemoryCritical is returned by Check when the latest reading is at or
// above the critical threshold.
var ErrMemoryCritical = errors.New("memory usage critical")

// Defaults applied by New for zero config values.
const (
	DefaultInterval    = 30 * time.Second
	DefaultMaxReadings = 60
	DefaultWarningMB   = 512
	DefaultCriticalMB  = 1024
)

// Level classifies a reading.
type Level string

const (
	LevelUnknown  Level = "unknown"
	LevelHealthy  Level = "healthy"
	LevelWarning  Level = "warning"
	LevelCritical Level = "critical"
)

// Config configures a Monitor.
type Config struct {
	Interval    time.Duration
	MaxReadings int
	WarningMB   float64
	CriticalMB  float64
}

func (c Config) withDefaults() Config {
	if c.Interval <= 0 {
		c.Interval = DefaultInterval
	}
	if c.MaxReadings <= 0 {
		c.MaxReadings = DefaultMaxReadings
	}
	if c.WarningMB <= 0 {
		c.WarningMB = DefaultWarningMB
	}
	if c.CriticalMB <= 0 {
		c.CriticalMB = DefaultCriticalMB
	}
	return c
}

// Reading is one memory sample.
type Reading struct {
	Timestamp  time.Time `json:"timestamp"`
	HeapUsedMB float64   `json:"heap_used_mb"`
}

// Trend compares the older and newer halves of the buffered readings.
type Trend struct {
	Increasing bool    `json:"increasing"`
	AverageMB  float64 `json:"average_mb"`
	PeakMB     float64 `json:"peak_mb"`
	CurrentMB  float64 `json:"current_mb"`
	ChangeRate float64 `json:"change_rate"`
}

// Status is the instantaneous view of the monitor.
type Status struct {
	HeapUsedMB float64 `json:"heap_used_mb"`
	Status     Level   `json:"status"`
	Trend      *Trend  `json:"trend,omitempty"`
}

// Option configures a Monitor.
type Option func(*Monitor)

// WithClock overrides the time source used to stamp readings.
func WithClock(c clock.Clock) Option {
	return func(m *Monitor) {
		if c != nil {
			m.clock = c
		}
	}
}

// WithRecorder publishes each sample to r.
func WithRecorder(r metrics.Recorder) Option {
	return func(m *Monitor) {
		if r != nil {
			m.recorder = r
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *Monitor) {
		if l != nil {
			m.logger = l
		}
	}
}

// Monitor keeps a ring buffer of the last MaxReadings samples.
type Monitor struct {
	reader   Reader
	cfg      Config
	clock    clock.Clock
	recorder metrics.Recorder
	logger   *slog.Logger
	task     *periodic.Task

	lifecycle sync.Mutex

	mu    sync.RWMutex
	ring  []Reading
	head  int // index of the oldest reading
	count int
}

// New creates a stopped Monitor.
func New(reader Reader, cfg Config, opts ...Option) *Monitor {
	cfg = cfg.withDefaults()
	m := &Monitor{
		reader:   reader,
		cfg:      cfg,
		clock:    clock.Real{},
		recorder: metrics.NewNoop(),
		logger:   slog.New(slog.DiscardHandler),
		ring:     make([]Reading, cfg.MaxReadings),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = m.logger.With("component", "memmon")
	m.task = periodic.New("memory-sampler", cfg.Interval, m.sample, m.logger)
	return m
}

// Config returns the effective configuration.
func (m *Monitor) Config() Config {
	return m.cfg
}

// Start discards previous readings, takes one sample and begins sampling
// every Interval.
func (m *Monitor) Start() error {
	m.lifecycle.Lock()
	defer m.lifecycle.Unlock()

	if m.task.Running() {
		return periodic.ErrAlreadyStarted
	}

	m.mu.Lock()
	m.head, m.count = 0, 0
	m.mu.Unlock()

	if err := m.task.Start(); err != nil {
		return fmt.Errorf("start memory sampler: %w", err)
	}
	m.logger.Info("memory monitor started",
		"interval", m.cfg.Interval,
		"warning_mb", m.cfg.WarningMB,
		"critical_mb", m.cfg.CriticalMB,
	)
	return nil
}

// Stop halts sampling. Readings are kept.
func (m *Monitor) Stop() {
	m.lifecycle.Lock()
	defer m.lifecycle.Unlock()

	if !m.task.Running() {
		return
	}
	m.task.Stop()
	m.logger.Info("memory monitor stopped")
}

// Shutdown stops the monitor, giving up when ctx ends first.
func (m *Monitor) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		m.Stop()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Running reports whether the sampler is active.
func (m *Monitor) Running() bool {
	return m.task.Running()
}

func (m *Monitor) sample(ctx context.Context) {
	mb, err := m.reader.ReadMB(ctx)
	if err != nil {
		m.logger.Warn("memory sample failed", "error", err)
		return
	}

	r := Reading{Timestamp: m.clock.Now(), HeapUsedMB: mb}
	m.add(r)
	m.recorder.SetHeapUsedMB(mb)

	if lvl := m.classify(mb); lvl != LevelHealthy {
		m.logger.Warn("memory usage elevated", "heap_used_mb", mb, "status", lvl)
	}
}

func (m *Monitor) add(r Reading) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.count < len(m.ring) {
		m.ring[(m.head+m.count)%len(m.ring)] = r
		m.count++
		return
	}
	m.ring[m.head] = r
	m.head = (m.head + 1) % len(m.ring)
}

// readingsLocked returns the buffer oldest first. Caller holds mu.
func (m *Monitor) readingsLocked() []Reading {
	out := make([]Reading, m.count)
	for i := 0; i < m.count; i++ {
		out[i] = m.ring[(m.head+i)%len(m.ring)]
	}
	return out
}

func (m *Monitor) classify(mb float64) Level {
	switch {
	case mb >= m.cfg.CriticalMB:
		return LevelCritical
	case mb >= m.cfg.WarningMB:
		return LevelWarning
	default:
		return LevelHealthy
	}
}

// Readings returns a copy of the buffered readings, oldest first.
func (m *Monitor) Readings() []Reading {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.readingsLocked()
}

// Latest returns the most recent reading.
func (m *Monitor) Latest() (Reading, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.count == 0 {
		return Reading{}, false
	}
	return m.ring[(m.head+m.count-1)%len(m.ring)], true
}

// Status reports the latest reading and its level without sampling.
func (m *Monitor) Status() Status {
	m.mu.RLock()
	readings := m.readingsLocked()
	m.mu.RUnlock()

	if len(readings) == 0 {
		return Status{Status: LevelUnknown}
	}

	current := readings[len(readings)-1].HeapUsedMB
	st := Status{HeapUsedMB: current, Status: m.classify(current)}
	if tr, ok := computeTrend(readings); ok {
		st.Trend = &tr
	}
	return st
}

// Trend reports growth across the buffer. ok is false with fewer than two
// readings.
func (m *Monitor) Trend() (Trend, bool) {
	return computeTrend(m.Readings())
}

// Check returns ErrMemoryCritical when the latest reading is critical.
func (m *Monitor) Check(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r, ok := m.Latest()
	if !ok {
		return nil
	}
	if m.classify(r.HeapUsedMB) == LevelCritical {
		return fmt.Errorf("%w: %.1f MB >= %.1f MB", ErrMemoryCritical, r.HeapUsedMB, m.cfg.CriticalMB)
	}
	return nil
}

func computeTrend(readings []Reading) (Trend, bool) {
	n := len(readings)
	if n < 2 {
		return Trend{}, false
	}

	mid := n / 2
	var firstSum, secondSum, total, peak float64
	for i, r := range readings {
		total += r.HeapUsedMB
		if r.HeapUsedMB > peak {
			peak = r.HeapUsedMB
		}
		if i < mid {
			firstSum += r.HeapUsedMB
		} else {
			secondSum += r.HeapUsedMB
		}
	}

	firstAvg := firstSum / float64(mid)
	secondAvg := secondSum / float64(n-mid)

	return Trend{
		Increasing: secondAvg > firstAvg,
		AverageMB:  total / float64(n),
		PeakMB:     peak,
		CurrentMB:  readings[n-1].HeapUsedMB,
		ChangeRate: secondAvg - firstAvg,
	}, true
}
