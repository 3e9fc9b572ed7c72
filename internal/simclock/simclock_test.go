package simclock

import (
	"testing"
	"time"
)

func TestStepIsStrictlyMonotonic(t *testing.T) {
	c := New(20 * time.Millisecond)
	c.Start()
	prev := c.Stop()
	for i := 0; i < 5; i++ {
		next := c.Step()
		if next.Compare(prev) <= 0 {
			t.Fatalf("step %d: sim time did not strictly advance: prev=%+v next=%+v", i, prev, next)
		}
		prev = next
	}
}

func TestSimTimeFromRealEmptyMapReturnsZero(t *testing.T) {
	c := New(20 * time.Millisecond)
	got := c.SimTimeFromReal(time.Now())
	if got.Sec != 0 || got.Nsec != 0 {
		t.Fatalf("expected zero sim time for empty map, got %+v", got)
	}
}

func TestSimTimeFromRealLatestTickAtOrBefore(t *testing.T) {
	c := New(20 * time.Millisecond)
	c.Start()

	var wallTimes []time.Time
	for i := 0; i < 6; i++ {
		c.Step()
		wallTimes = append(wallTimes, time.Now())
		time.Sleep(time.Millisecond)
	}

	// A query exactly at or after the wall time of tick i must resolve to
	// that tick's sim time (the "latest tick whose wall time <= t_real"
	// rule from spec §4.1).
	for i, wt := range wallTimes {
		got := c.SimTimeFromReal(wt)
		wantMillis := int64(i+1) * 20
		if got.ToMillis() != wantMillis {
			t.Errorf("tick %d: SimTimeFromReal(%v) = %dms, want %dms", i, wt, got.ToMillis(), wantMillis)
		}
	}
}

func TestSimTimeFromRealBeforeFirstTickReturnsZero(t *testing.T) {
	c := New(20 * time.Millisecond)
	c.Start()
	before := time.Now()
	time.Sleep(time.Millisecond)
	c.Step()

	got := c.SimTimeFromReal(before)
	if got.Sec != 0 || got.Nsec != 0 {
		t.Fatalf("expected zero sim time before first tick, got %+v", got)
	}
}
