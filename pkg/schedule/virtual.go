package schedule

import (
	"sort"
	"sync"
	"time"
)

// Virtual is a Scheduler driven by an explicit clock. Nothing fires until Advance moves the
// clock past a callback's due time, which makes throttle windows and settle delays
// deterministic in tests and offline simulations.
type Virtual struct {
	mu      sync.Mutex
	now     time.Duration
	seq     uint64
	pending []*virtualTimer
}

// NewVirtual returns a clock positioned at zero.
func NewVirtual() *Virtual {
	return &Virtual{}
}

type virtualTimer struct {
	v       *Virtual
	due     time.Duration
	seq     uint64
	fn      func()
	stopped bool
	fired   bool
}

// AfterFunc implements Scheduler.
func (v *Virtual) AfterFunc(d time.Duration, fn func()) Timer {
	if d < 0 {
		d = 0
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	v.seq++
	t := &virtualTimer{v: v, due: v.now + d, seq: v.seq, fn: fn}
	v.pending = append(v.pending, t)
	return t
}

func (t *virtualTimer) Stop() bool {
	t.v.mu.Lock()
	defer t.v.mu.Unlock()
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	t.v.removeLocked(t)
	return true
}

func (v *Virtual) removeLocked(t *virtualTimer) {
	for i, p := range v.pending {
		if p == t {
			v.pending = append(v.pending[:i], v.pending[i+1:]...)
			return
		}
	}
}

// Now returns the elapsed virtual time.
func (v *Virtual) Now() time.Duration {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.now
}

// Pending returns the number of callbacks waiting to fire.
func (v *Virtual) Pending() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.pending)
}

// Advance moves the clock forward by d, firing due callbacks in (due time, schedule order).
// Callbacks scheduled while firing run in the same call if they fall inside the window.
// It returns the number of callbacks run.
func (v *Virtual) Advance(d time.Duration) int {
	v.mu.Lock()
	target := v.now + d
	v.mu.Unlock()

	fired := 0
	for {
		v.mu.Lock()
		next := v.nextDueLocked(target)
		if next == nil {
			v.now = target
			v.mu.Unlock()
			return fired
		}
		v.removeLocked(next)
		next.fired = true
		if next.due > v.now {
			v.now = next.due
		}
		v.mu.Unlock()

		next.fn()
		fired++
	}
}

// Flush runs every callback that is due without moving the clock.
func (v *Virtual) Flush() int {
	return v.Advance(0)
}

func (v *Virtual) nextDueLocked(target time.Duration) *virtualTimer {
	if len(v.pending) == 0 {
		return nil
	}
	sort.SliceStable(v.pending, func(i, j int) bool {
		a, b := v.pending[i], v.pending[j]
		if a.due != b.due {
			return a.due < b.due
		}
		return a.seq < b.seq
	})
	if v.pending[0].due > target {
		return nil
	}
	return v.pending[0]
}
