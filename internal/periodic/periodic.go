// Package periodic runs a function on a fixed interval in a supervised
// background goroutine.
package periodic

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"
)

// ErrAlreadyStarted is returned by Start on a running task.
var ErrAlreadyStarted = errors.New("periodic: task already started")

// Func is the work executed on every tick.
type Func func(ctx context.Context)

// Task runs a Func once on Start and then every interval until Stop.
// Panics inside the Func are recovered and logged.
type Task struct {
	name     string
	interval time.Duration
	fn       Func
	logger   *slog.Logger

	mu      sync.Mutex
	started bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// New creates a Task. A nil logger discards output.
func New(name string, interval time.Duration, fn Func, logger *slog.Logger) *Task {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Task{
		name:     name,
		interval: interval,
		fn:       fn,
		logger:   logger.With("task", name),
	}
}

// Start runs the function once synchronously, then launches the ticker loop.
func (t *Task) Start() error {
	if t.interval <= 0 {
		return fmt.Errorf("periodic: task %q has non-positive interval %s", t.name, t.interval)
	}

	t.mu.Lock()
	if t.started {
		t.mu.Unlock()
		return ErrAlreadyStarted
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	t.started = true
	t.cancel = cancel
	t.done = done
	t.mu.Unlock()

	t.runOnce(ctx)

	go t.loop(ctx, done)

	t.logger.Debug("periodic task started", "interval", t.interval)
	return nil
}

// Stop cancels the loop and waits for it to exit. No tick runs after Stop
// returns. Stopping a stopped task is a no-op.
func (t *Task) Stop() {
	t.mu.Lock()
	if !t.started {
		t.mu.Unlock()
		return
	}
	cancel := t.cancel
	done := t.done
	t.started = false
	t.cancel = nil
	t.done = nil
	t.mu.Unlock()

	cancel()
	<-done

	t.logger.Debug("periodic task stopped")
}

// Shutdown stops the task, giving up when ctx ends first.
// It matches server.ShutdownFunc.
func (t *Task) Shutdown(ctx context.Context) error {
	stopped := make(chan struct{})
	go func() {
		t.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Running reports whether the task is started.
func (t *Task) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.started
}

func (t *Task) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// Prefer stopping over a tick that raced with cancellation.
			if ctx.Err() != nil {
				return
			}
			t.runOnce(ctx)
		}
	}
}

func (t *Task) runOnce(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			t.logger.Error("periodic task panicked",
				slog.Any("panic", r),
				slog.String("stack", string(debug.Stack())),
			)
		}
	}()
	t.fn(ctx)
}
