// Package cleanup periodically prunes the cache, debouncer and performance
// tracker so their memory stays bounded.
package cleanup

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/gazette-app/valguard/internal/clock"
	"github.com/gazette-app/valguard/internal/metrics"
	"github.com/gazette-app/valguard/internal/periodic"
)

// DefaultInterval is used when Config.Interval is zero.
const DefaultInterval = 5 * time.Minute

// Step names reported in logs and metrics.
const (
	StepCache     = "cache"
	StepDebouncer = "debouncer"
	StepTracker   = "tracker"
)

// StalePurger removes expired cache entries.
type StalePurger interface {
	PurgeStale() int
}

// RecordCleaner removes idle debounce records.
type RecordCleaner interface {
	Cleanup() int
}

// MetricPruner removes metric records outside the retention window.
type MetricPruner interface {
	Prune() int
}

// Targets are the components pruned on every pass. Nil targets are skipped.
type Targets struct {
	Cache     StalePurger
	Debouncer RecordCleaner
	Tracker   MetricPruner
}

// Config configures a Scheduler.
type Config struct {
	Interval time.Duration
}

// RunStats summarises the passes executed since the process started.
type RunStats struct {
	TotalRuns        uint64        `json:"total_runs"`
	LastRunAt        time.Time     `json:"last_run_at"`
	LastRunReclaimed int           `json:"last_run_reclaimed"`
	LastRunDuration  time.Duration `json:"last_run_duration"`
	LastRunFailures  int           `json:"last_run_failures"`
	TotalReclaimed   uint64        `json:"total_reclaimed"`
}

// StepFunc prunes something and returns how many items it removed.
type StepFunc func() int

type step struct {
	name string
	fn   StepFunc
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithClock overrides the time source.
func WithClock(c clock.Clock) Option {
	return func(s *Scheduler) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithRecorder reports passes to r.
func WithRecorder(r metrics.Recorder) Option {
	return func(s *Scheduler) {
		if r != nil {
			s.recorder = r
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Scheduler) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithStep appends a step that runs after the built-in ones.
func WithStep(name string, fn StepFunc) Option {
	return func(s *Scheduler) {
		if fn != nil {
			s.extra = append(s.extra, step{name: name, fn: fn})
		}
	}
}

// Scheduler runs cleanup passes on an interval.
type Scheduler struct {
	cfg      Config
	steps    []step
	extra    []step
	clock    clock.Clock
	recorder metrics.Recorder
	logger   *slog.Logger
	task     *periodic.Task

	// run serializes passes.
	run sync.Mutex

	mu    sync.RWMutex
	stats RunStats
}

// New creates a stopped Scheduler.
func New(targets Targets, cfg Config, opts ...Option) *Scheduler {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	s := &Scheduler{
		cfg:      cfg,
		clock:    clock.Real{},
		recorder: metrics.NewNoop(),
		logger:   slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "cleanup")

	if targets.Cache != nil {
		s.steps = append(s.steps, step{name: StepCache, fn: targets.Cache.PurgeStale})
	}
	if targets.Debouncer != nil {
		s.steps = append(s.steps, step{name: StepDebouncer, fn: targets.Debouncer.Cleanup})
	}
	if targets.Tracker != nil {
		s.steps = append(s.steps, step{name: StepTracker, fn: targets.Tracker.Prune})
	}
	s.steps = append(s.steps, s.extra...)
	s.extra = nil

	s.task = periodic.New("cleanup", cfg.Interval, func(context.Context) { s.ForceCleanup() }, s.logger)
	return s
}

// Config returns the effective configuration.
func (s *Scheduler) Config() Config {
	return s.cfg
}

// Start runs one pass and then one every Interval.
func (s *Scheduler) Start() error {
	if err := s.task.Start(); err != nil {
		return fmt.Errorf("start cleanup scheduler: %w", err)
	}
	s.logger.Info("cleanup scheduler started", "interval", s.cfg.Interval, "steps", len(s.steps))
	return nil
}

// Stop halts the schedule. A pass in progress completes first.
func (s *Scheduler) Stop() {
	if !s.task.Running() {
		return
	}
	s.task.Stop()
	s.logger.Info("cleanup scheduler stopped")
}

// Shutdown stops the scheduler, giving up when ctx ends first.
func (s *Scheduler) Shutdown(ctx context.Context) error {
	return s.task.Shutdown(ctx)
}

// Running reports whether the schedule is active.
func (s *Scheduler) Running() bool {
	return s.task.Running()
}

// ForceCleanup runs a pass synchronously and returns the number of items
// reclaimed.
func (s *Scheduler) ForceCleanup() int {
	s.run.Lock()
	defer s.run.Unlock()

	start := s.clock.Now()
	reclaimed, failures := 0, 0

	for _, st := range s.steps {
		n, err := runStep(st)
		if err != nil {
			failures++
			s.recorder.IncCleanupFailure(st.name)
			s.logger.Error("cleanup step failed", "step", st.name, "error", err)
			continue
		}
		reclaimed += n
		if n > 0 {
			s.recorder.AddCleanupReclaimed(st.name, n)
		}
	}

	end := s.clock.Now()
	s.recorder.IncCleanupRun()

	s.mu.Lock()
	s.stats.TotalRuns++
	s.stats.LastRunAt = end
	s.stats.LastRunReclaimed = reclaimed
	s.stats.LastRunDuration = end.Sub(start)
	s.stats.LastRunFailures = failures
	s.stats.TotalReclaimed += uint64(reclaimed)
	s.mu.Unlock()

	s.logger.Debug("cleanup pass complete",
		"reclaimed", reclaimed,
		"failures", failures,
		"duration", end.Sub(start),
	)
	return reclaimed
}

// Stats returns the run statistics.
func (s *Scheduler) Stats() RunStats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stats
}

func runStep(st step) (n int, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v\n%s", r, debug.Stack())
		}
	}()
	return st.fn(), nil
}
