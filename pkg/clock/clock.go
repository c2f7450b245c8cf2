// Package clock abstracts wall time so due dates and accrual periods are
// testable. Production code injects System; tests inject a Fixed clock.
package clock

import "time"

type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

// System is the wall clock, always in UTC.
var System Clock = systemClock{}

// Fixed is a settable clock for tests.
type Fixed struct {
	t time.Time
}

func NewFixed(t time.Time) *Fixed { return &Fixed{t: t.UTC()} }

func (f *Fixed) Now() time.Time { return f.t }

// Advance moves the clock forward and returns the new time.
func (f *Fixed) Advance(d time.Duration) time.Time {
	f.t = f.t.Add(d)
	return f.t
}

// Set jumps the clock to an absolute instant.
func (f *Fixed) Set(t time.Time) { f.t = t.UTC() }
