package timeutil

import "time"

// Clock reports wall-clock time that never moves backwards within the process.
//
// The wall reading is taken once, at construction; later readings add the
// elapsed time measured on the monotonic clock. Stepping the system clock
// therefore does not affect values returned by Now.
type Clock struct {
	anchor time.Time
	since  func(time.Time) time.Duration
}

// NewClock returns a Clock anchored at the current instant.
func NewClock() *Clock {
	return &Clock{anchor: time.Now(), since: time.Since}
}

// Now returns the current instant in UTC.
func (c *Clock) Now() time.Time {
	elapsed := c.since(c.anchor)
	if elapsed < 0 {
		elapsed = 0
	}
	return c.anchor.Add(elapsed).UTC().Round(0)
}

// Now returns the current time as a Time.
func Now() Time {
	return Time{Time: time.Now()}
}
