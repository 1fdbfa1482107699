package runloop

import (
	"testing"
	"time"
)

func TestVirtual_AdvanceRunsDueInOrder(t *testing.T) {
	v := NewVirtual(100)

	var order []int
	v.After(30, func() { order = append(order, 3) })
	v.After(10, func() { order = append(order, 1) })
	v.After(10, func() { order = append(order, 2) })
	v.After(50, func() { order = append(order, 4) })

	if n := v.Advance(9); n != 0 {
		t.Fatalf("Advance(9) ran %d callbacks, want 0", n)
	}
	if n := v.Advance(21); n != 3 {
		t.Fatalf("Advance(21) ran %d callbacks, want 3", n)
	}
	if v.Now() != 130 {
		t.Errorf("Now() = %d, want 130", v.Now())
	}
	if v.Pending() != 1 {
		t.Errorf("Pending() = %d, want 1", v.Pending())
	}

	want := []int{1, 2, 3}
	if len(order) != len(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}
}

func TestVirtual_CallbackSeesDeadline(t *testing.T) {
	v := NewVirtual(0)

	var seen uint64
	v.After(5*time.Nanosecond, func() { seen = v.Now() })
	v.Advance(100)

	if seen != 5 {
		t.Errorf("callback saw Now() = %d, want 5", seen)
	}
	if v.Now() != 100 {
		t.Errorf("Now() = %d, want 100", v.Now())
	}
}

func TestVirtual_CallbackSchedulingCallback(t *testing.T) {
	v := NewVirtual(0)

	count := 0
	v.After(1, func() {
		count++
		v.After(0, func() { count++ })
	})

	v.Advance(1)
	if count != 2 {
		t.Errorf("count = %d, want 2", count)
	}
}

func TestVirtual_SetNeverGoesBack(t *testing.T) {
	v := NewVirtual(50)
	v.Set(10)
	if v.Now() != 50 {
		t.Errorf("Now() = %d, want 50", v.Now())
	}
}

func TestSystemClock_StrictlyMonotonic(t *testing.T) {
	c := NewSystemClock()
	prev := c.Now()
	for i := 0; i < 10000; i++ {
		now := c.Now()
		if now <= prev {
			t.Fatalf("Now() = %d after %d", now, prev)
		}
		prev = now
	}
}

func TestNanos_Saturates(t *testing.T) {
	if got := Nanos(1 << 63); got != time.Duration(1<<63-1) {
		t.Errorf("Nanos(1<<63) = %d", got)
	}
	if got := Nanos(42); got != 42 {
		t.Errorf("Nanos(42) = %d", got)
	}
}
