package engine

import "sync/atomic"

// Clock hands out the sequence numbers stamped on applied facts.
//
// Facts are applied by one goroutine in a fixed order, so the sequence of a
// run is reproducible: the same rules and the same lookups give every fact
// the same seq. Wall-clock time is never used for ordering.
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a clock whose first Next returns 1.
func NewClock() *Clock {
	return &Clock{}
}

// Next advances the clock and returns the new value.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the last value handed out.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
