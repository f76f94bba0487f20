package testutil

import "sync/atomic"

// DeterministicClock stamps harness observations with a strictly
// increasing seq. The first call to Next returns 1.
//
// Safe for concurrent use, though the harness drives it from the single
// goroutine that flushes effects.
type DeterministicClock struct {
	seq atomic.Int64
}

// NewDeterministicClock creates a clock starting at 0.
func NewDeterministicClock() *DeterministicClock {
	return &DeterministicClock{}
}

// Next increments and returns the next seq.
func (c *DeterministicClock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the last seq handed out, or 0 before the first Next.
func (c *DeterministicClock) Current() int64 {
	return c.seq.Load()
}
