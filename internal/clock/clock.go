// Package clock abstracts wall time and delayed callbacks so timer-driven
// code (undo windows, auto-commit countdowns) can be driven by tests.
package clock

import "time"

// Timer is a scheduled callback that can be stopped before it fires.
type Timer interface {
	// Stop prevents the callback from running. It reports false if the
	// callback already ran or the timer was already stopped.
	Stop() bool
}

// Clock provides the current time and delayed callbacks.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

// Real is the system clock.
type Real struct{}

// New returns the system clock.
func New() Clock { return Real{} }

func (Real) Now() time.Time { return time.Now() }

func (Real) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}
