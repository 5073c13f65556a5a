// Package throttle limits how often a high-frequency callback runs.
package throttle

import (
	"sync"
	"time"

	"github.com/Sriram-PR/md-navbar/pkg/schedule"
)

// Throttle wraps fn so that at most one deferred call is outstanding at a time.
//
// The first Invoke over the throttle's lifetime runs fn synchronously. After that, an Invoke
// with no call pending schedules fn to run window later with the argument given to that
// Invoke; Invokes arriving while a call is pending are dropped.
type Throttle[T any] struct {
	fn        func(T)
	window    time.Duration
	scheduler schedule.Scheduler

	mu      sync.Mutex
	started bool
	pending schedule.Timer
}

// New creates a throttle. A zero or negative window still defers to the next tick.
func New[T any](fn func(T), window time.Duration, scheduler schedule.Scheduler) *Throttle[T] {
	if window < 0 {
		window = 0
	}
	return &Throttle[T]{fn: fn, window: window, scheduler: scheduler}
}

// Invoke requests a call of fn with arg. It reports whether the call ran or was scheduled.
func (t *Throttle[T]) Invoke(arg T) bool {
	t.mu.Lock()
	if !t.started {
		t.started = true
		t.mu.Unlock()
		t.fn(arg)
		return true
	}
	if t.pending != nil {
		t.mu.Unlock()
		return false
	}

	var timer schedule.Timer
	timer = t.scheduler.AfterFunc(t.window, func() {
		t.mu.Lock()
		if t.pending != timer {
			t.mu.Unlock()
			return
		}
		t.pending = nil
		t.mu.Unlock()
		t.fn(arg)
	})
	t.pending = timer
	t.mu.Unlock()
	return true
}

// Pending reports whether a deferred call is outstanding.
func (t *Throttle[T]) Pending() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.pending != nil
}

// Stop cancels the outstanding call, if any. The throttle stays usable; the first-call
// bypass is not re-armed.
func (t *Throttle[T]) Stop() {
	t.mu.Lock()
	pending := t.pending
	t.pending = nil
	t.mu.Unlock()
	if pending != nil {
		pending.Stop()
	}
}
