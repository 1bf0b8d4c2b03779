// Package schedule provides a cancellable fixed-interval task. Repeated work
// (status polling) shares one start/stop code path so cancellation on
// shutdown and cancellation on terminal state behave identically.
package schedule

import (
	"context"
	"sync"
	"time"
)

// Task runs a function on a fixed wall-clock cadence until stopped. Ticks
// never overlap: the function runs synchronously in the task goroutine, so a
// slow run delays processing of the next tick rather than stacking calls.
type Task struct {
	mu       sync.Mutex
	interval time.Duration
	fn       func(ctx context.Context)
	cancel   context.CancelFunc
	running  bool
}

// NewTask creates a task that will invoke fn every interval once started.
func NewTask(interval time.Duration, fn func(ctx context.Context)) *Task {
	return &Task{interval: interval, fn: fn}
}

// Start begins the tick loop. Calling Start on a running task is a no-op.
// The loop stops when Stop is called or the parent context is cancelled.
func (t *Task) Start(ctx context.Context) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.running {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	t.cancel = cancel
	t.running = true

	go t.loop(ctx)
}

func (t *Task) loop(ctx context.Context) {
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			t.mu.Lock()
			t.running = false
			t.mu.Unlock()
			return
		case <-ticker.C:
			t.fn(ctx)
		}
	}
}

// Stop cancels the tick loop. Safe to call multiple times and safe to call
// from within the task function itself; the loop exits before the next tick.
func (t *Task) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cancel != nil {
		t.cancel()
		t.cancel = nil
	}
	t.running = false
}

// IsRunning reports whether the tick loop is active.
func (t *Task) IsRunning() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.running
}
