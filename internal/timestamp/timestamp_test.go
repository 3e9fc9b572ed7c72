package timestamp

import (
	"math"
	"testing"
)

func TestUnsetIsInvalid(t *testing.T) {
	u := Unset()
	if u.IsValid() {
		t.Fatalf("sentinel timestamp reported valid")
	}
}

func TestValidNonNegativeSeconds(t *testing.T) {
	tt := Timestamp{Sec: 0, Nsec: 0}
	if !tt.IsValid() {
		t.Fatalf("zero timestamp should be valid")
	}
	neg := Timestamp{Sec: -1, Nsec: 500}
	if neg.IsValid() {
		t.Fatalf("negative-second timestamp should be invalid, matching sec>=0 rule")
	}
}

func TestNanosRoundTrip(t *testing.T) {
	cases := []int64{0, 1, 999999999, 1000000000, 1500000000, -500000000}
	for _, ns := range cases {
		got := FromNanos(ns).ToNanos()
		if got != ns {
			t.Errorf("FromNanos(%d).ToNanos() = %d", ns, got)
		}
	}
}

func TestMillisRoundTrip(t *testing.T) {
	got := FromMillis(1234).ToMillis()
	if got != 1234 {
		t.Fatalf("millis round trip: got %d want 1234", got)
	}
}

func TestSecRoundTrip(t *testing.T) {
	cases := []float64{0, 1.5, 123.25, 0.000000001, -2.5}
	for _, s := range cases {
		got := FromSec(s).ToSec()
		if math.Abs(got-s) > 1e-6 {
			t.Errorf("FromSec(%v).ToSec() = %v", s, got)
		}
	}
	if got := FromSec(1.5); got.Sec != 1 || got.Nsec != 5e8 {
		t.Fatalf("FromSec(1.5) = %+v, want {Sec:1 Nsec:5e8}", got)
	}
}

func TestCompareOrdering(t *testing.T) {
	a := Timestamp{Sec: 1, Nsec: 0}
	b := Timestamp{Sec: 1, Nsec: 500}
	c := Timestamp{Sec: 2, Nsec: 0}
	if a.Compare(b) != -1 || b.Compare(a) != 1 {
		t.Fatalf("nsec ordering wrong")
	}
	if b.Compare(c) != -1 {
		t.Fatalf("sec ordering wrong")
	}
	if a.Compare(a) != 0 {
		t.Fatalf("equal ordering wrong")
	}
	if !a.Before(b) {
		t.Fatalf("Before should hold for a < b")
	}
}
