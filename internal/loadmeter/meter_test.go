// ABOUTME: Tests for the callback load meter
// ABOUTME: Uses a fake clock to verify smoothing and bounds

package loadmeter

import (
	"testing"
	"time"
)

// fakeClock returns a now func advancing by step on every other call, so
// each Begin/End pair observes exactly step of elapsed time.
func fakeClock(step time.Duration) func() time.Time {
	t := time.Unix(0, 0)
	tick := false
	return func() time.Time {
		if tick {
			t = t.Add(step)
		}
		tick = !tick
		return t
	}
}

func TestLoadStartsAtZero(t *testing.T) {
	m := New()
	if got := m.Load(); got != 0 {
		t.Errorf("expected 0, got %v", got)
	}
}

func TestLoadRisesTowardMeasurement(t *testing.T) {
	m := New()
	// 512 frames at 48kHz is a ~10.67ms budget; spend half of it.
	m.now = fakeClock(5333 * time.Microsecond)

	prev := 0.0
	for i := 0; i < 20; i++ {
		m.Begin()
		m.End(512, 48000)
		got := m.Load()
		if got < prev {
			t.Fatalf("iteration %d: load fell from %v to %v", i, prev, got)
		}
		prev = got
	}

	if prev < 0.4 || prev > 0.6 {
		t.Errorf("expected load near 0.5 after settling, got %v", prev)
	}
}

func TestLoadCanExceedOne(t *testing.T) {
	m := New()
	// Spend double the block budget every callback.
	m.now = fakeClock(2 * 10667 * time.Microsecond)

	for i := 0; i < 50; i++ {
		m.Begin()
		m.End(512, 48000)
	}
	if got := m.Load(); got < 1 {
		t.Errorf("expected overloaded reading above 1, got %v", got)
	}
	if got := m.Load(); got < 0 {
		t.Errorf("load must never be negative, got %v", got)
	}
}

func TestEndIgnoresBadParameters(t *testing.T) {
	m := New()
	m.now = fakeClock(time.Millisecond)
	m.Begin()
	m.End(0, 48000)
	m.End(512, 0)
	if got := m.Load(); got != 0 {
		t.Errorf("expected 0 after ignored measurements, got %v", got)
	}
}

func TestReset(t *testing.T) {
	m := New()
	m.now = fakeClock(time.Millisecond)
	m.Begin()
	m.End(64, 48000)
	if m.Load() == 0 {
		t.Fatal("expected nonzero load before reset")
	}
	m.Reset()
	if got := m.Load(); got != 0 {
		t.Errorf("expected 0 after reset, got %v", got)
	}
}
