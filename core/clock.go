package core

import "time"

// Clock is the monotonic microsecond time source for the scheduler loop
type Clock interface {
	// Now returns microseconds since an arbitrary fixed origin
	Now() uint64
}

// SystemClock reports microseconds elapsed since it was created
type SystemClock struct {
	start time.Time
}

// NewSystemClock creates a SystemClock starting at zero
func NewSystemClock() *SystemClock {
	return &SystemClock{start: time.Now()}
}

func (c *SystemClock) Now() uint64 {
	return uint64(time.Since(c.start) / time.Microsecond)
}

// ManualClock is a Clock advanced explicitly, for simulation and tests
type ManualClock struct {
	now uint64
}

// NewManualClock creates a ManualClock at t
func NewManualClock(t uint64) *ManualClock {
	return &ManualClock{now: t}
}

func (c *ManualClock) Now() uint64 {
	return c.now
}

// Set moves the clock to t. Time never runs backwards.
func (c *ManualClock) Set(t uint64) {
	if t > c.now {
		c.now = t
	}
}

// Advance moves the clock forward by d microseconds
func (c *ManualClock) Advance(d uint64) {
	c.now += d
}
