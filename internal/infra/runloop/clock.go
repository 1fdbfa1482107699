package runloop

import (
	"sync/atomic"
	"time"
)

// Clock returns the current logical time in nanoseconds.
type Clock interface {
	Now() uint64
}

// Scheduler combines a clock with one-shot deferred execution.
//
// Callbacks passed to After run on the same execution thread as ordinary
// operations, never concurrently with them, and never before delay elapsed.
type Scheduler interface {
	Clock
	After(delay time.Duration, fn func())
}

// SystemClock is a wall-clock based, strictly monotonic nanosecond clock.
//
// Two calls never return the same value, so (sender, timestamp) pairs minted
// from it are unique within a process lifetime.
type SystemClock struct {
	last atomic.Uint64
}

// NewSystemClock creates a SystemClock.
func NewSystemClock() *SystemClock {
	return &SystemClock{}
}

// Now returns max(wall clock, previous + 1).
func (c *SystemClock) Now() uint64 {
	for {
		prev := c.last.Load()
		now := uint64(time.Now().UnixNano())
		if now <= prev {
			now = prev + 1
		}
		if c.last.CompareAndSwap(prev, now) {
			return now
		}
	}
}

// Nanos converts a delay in nanoseconds to a time.Duration, saturating at the
// largest representable duration.
func Nanos(d uint64) time.Duration {
	const maxDuration = uint64(1<<63 - 1)
	if d > maxDuration {
		return time.Duration(maxDuration)
	}
	return time.Duration(d)
}
