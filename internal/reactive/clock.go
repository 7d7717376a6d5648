package reactive

import "sync/atomic"

// Clock hands out sequence numbers for changes and flush batches. Ordering
// in a trace comes from these numbers alone. The zero Clock is ready to use
// and safe for concurrent callers.
type Clock struct {
	last atomic.Int64
}

// NewClock returns a clock whose first tick is 1.
func NewClock() *Clock { return new(Clock) }

// NewClockAt returns a clock whose first tick is start+1, for continuing a
// sequence recorded elsewhere.
func NewClockAt(start int64) *Clock {
	c := new(Clock)
	c.last.Store(start)
	return c
}

// Next ticks the clock.
func (c *Clock) Next() int64 { return c.last.Add(1) }

// Current is the most recent tick, 0 before the first.
func (c *Clock) Current() int64 { return c.last.Load() }
