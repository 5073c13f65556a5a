// Package schedule provides the deferred-execution primitives the navigation engine runs on.
//
// All callbacks scheduled through a Scheduler are expected to run one at a time, on the
// same logical thread as the code that scheduled them. Loop gives that guarantee with a
// single goroutine fed by wall-clock timers; Virtual gives it with a manually advanced
// clock for tests and simulations.
package schedule

import "time"

// Timer is a handle to a scheduled callback.
type Timer interface {
	// Stop cancels the callback. It reports whether the call was prevented, false if it
	// already ran or was already stopped.
	Stop() bool
}

// Scheduler runs fn once after at least d has elapsed.
type Scheduler interface {
	AfterFunc(d time.Duration, fn func()) Timer
}
