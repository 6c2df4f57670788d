package testutil

import (
	"sync"
	"time"
)

// FixedClock is a settable wall clock for tests that derive date ranges
// from "now".
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type FixedClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewFixedClock creates a clock frozen at now.
func NewFixedClock(now time.Time) *FixedClock {
	return &FixedClock{now: now}
}

// ClockAt parses a YYYY-MM-DD date in UTC and returns a clock frozen at it.
// Panics on a malformed date; the argument is always a test literal.
func ClockAt(date string) *FixedClock {
	t, err := time.Parse(time.DateOnly, date)
	if err != nil {
		panic("testutil: bad clock date " + date)
	}
	return NewFixedClock(t)
}

// Now returns the frozen time. Its method value fits interval.Generator.Now.
func (c *FixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Set moves the clock to t.
func (c *FixedClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

// Advance moves the clock forward by d and returns the new time.
func (c *FixedClock) Advance(d time.Duration) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	return c.now
}
