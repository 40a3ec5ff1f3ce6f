package stresstest

import "sync/atomic"

// AtomicCounter is a monotonic counter shared across sessions.
// The zero value is ready to use.
type AtomicCounter struct {
	v atomic.Int64
}

// Add atomically adds delta and returns the new value
func (c *AtomicCounter) Add(delta int64) int64 {
	return c.v.Add(delta)
}

// Inc atomically adds one and returns the new value
func (c *AtomicCounter) Inc() int64 {
	return c.v.Add(1)
}

// Value returns the current value
func (c *AtomicCounter) Value() int64 {
	return c.v.Load()
}

// Counters holds every result counter of a run. A single instance is passed
// by pointer into each session.
type Counters struct {
	FullPasses     AtomicCounter
	SegmentsPlayed AtomicCounter
	TokenErrors    AtomicCounter
	ManifestErrors AtomicCounter
	SegmentErrors  AtomicCounter
}
