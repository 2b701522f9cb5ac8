// Package system provides the wall clock used by the resource sampler.
package system

import "time"

// Clock reads the host clock. Times keep their monotonic reading so that
// elapsed durations are not disturbed by wall-clock steps.
type Clock struct{}

// New creates a new Clock.
func New() *Clock {
	return &Clock{}
}

// Now returns the current time.
func (Clock) Now() time.Time {
	return time.Now()
}

// Since returns the time elapsed since t.
func (c Clock) Since(t time.Time) time.Duration {
	return c.Now().Sub(t)
}
