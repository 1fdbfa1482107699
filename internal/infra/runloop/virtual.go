package runloop

import (
	"container/heap"
	"time"
)

// Virtual is a deterministic Scheduler for tests.
//
// Time only moves through Advance or Set. Due callbacks run synchronously in
// deadline order (FIFO among equal deadlines) on the caller's goroutine. Now
// returns the same value until time is moved, like a frozen wall clock.
type Virtual struct {
	now    uint64
	seq    uint64
	timers timerHeap
}

// NewVirtual creates a virtual scheduler starting at start nanoseconds.
func NewVirtual(start uint64) *Virtual {
	return &Virtual{now: start}
}

// Now returns the current virtual time.
func (v *Virtual) Now() uint64 {
	return v.now
}

// After registers fn to run once the virtual time reaches now + delay.
func (v *Virtual) After(delay time.Duration, fn func()) {
	if delay < 0 {
		delay = 0
	}
	v.seq++
	heap.Push(&v.timers, &timer{
		at:  v.now + uint64(delay),
		seq: v.seq,
		fn:  fn,
	})
}

// Advance moves time forward by d and runs every callback that became due.
// It returns the number of callbacks run.
func (v *Virtual) Advance(d time.Duration) int {
	if d < 0 {
		d = 0
	}
	return v.Set(v.now + uint64(d))
}

// Set moves time to t, running due callbacks. Time never moves backwards.
func (v *Virtual) Set(t uint64) int {
	if t < v.now {
		t = v.now
	}

	fired := 0
	for v.timers.Len() > 0 && v.timers[0].at <= t {
		next := heap.Pop(&v.timers).(*timer)
		// Callbacks observe their own deadline as the current time.
		if next.at > v.now {
			v.now = next.at
		}
		next.fn()
		fired++
	}
	v.now = t
	return fired
}

// Tick moves time forward by one nanosecond.
func (v *Virtual) Tick() int {
	return v.Advance(1)
}

// Pending returns the number of registered callbacks not yet run.
func (v *Virtual) Pending() int {
	return v.timers.Len()
}

type timer struct {
	at  uint64
	seq uint64
	fn  func()
}

type timerHeap []*timer

func (h timerHeap) Len() int { return len(h) }

func (h timerHeap) Less(i, j int) bool {
	if h[i].at != h[j].at {
		return h[i].at < h[j].at
	}
	return h[i].seq < h[j].seq
}

func (h timerHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *timerHeap) Push(x any) {
	*h = append(*h, x.(*timer))
}

func (h *timerHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return item
}
