package timer

import (
	"testing"
	"time"

	"github.com/claude/repflow/internal/clock"
)

type recorder struct {
	ticks   []Tick
	expired []uint64
}

func (r *recorder) hooks() Hooks {
	return Hooks{
		OnTick:   func(t Tick) { r.ticks = append(r.ticks, t) },
		OnExpire: func(gen uint64) { r.expired = append(r.expired, gen) },
	}
}

// TestRestCountdown verifies a 10 second rest ticks ten times with
// falling percentages, flags the last three seconds, and expires once.
func TestRestCountdown(t *testing.T) {
	clk := clock.Fake(time.Unix(0, 0))
	c := New(clk)
	var rec recorder

	gen := c.Start(KindRest, 10, rec.hooks())
	clk.Advance(15 * time.Second)

	if len(rec.ticks) != 10 {
		t.Fatalf("ticks = %d, want 10", len(rec.ticks))
	}
	first, last := rec.ticks[0], rec.ticks[9]
	if first.Remaining != 9 || first.Percent != 90 || first.EndingSoon {
		t.Errorf("first tick = %+v", first)
	}
	if last.Remaining != 0 || last.Percent != 0 {
		t.Errorf("last tick = %+v", last)
	}
	for _, tk := range rec.ticks {
		if want := tk.Remaining <= 3; tk.EndingSoon != want {
			t.Errorf("tick %d EndingSoon = %v", tk.Remaining, tk.EndingSoon)
		}
	}
	if len(rec.expired) != 1 || rec.expired[0] != gen {
		t.Errorf("expired = %v, want [%d]", rec.expired, gen)
	}
	if s := c.State(); s.Kind != KindNone {
		t.Errorf("state after expiry = %+v", s)
	}
	if clk.Pending() != 0 {
		t.Errorf("pending callbacks = %d, want 0", clk.Pending())
	}
}

// TestStartReleasesPrevious verifies a new countdown cancels the old one
// so the old hooks never fire again.
func TestStartReleasesPrevious(t *testing.T) {
	clk := clock.Fake(time.Unix(0, 0))
	c := New(clk)
	var old, cur recorder

	g1 := c.Start(KindRest, 5, old.hooks())
	clk.Advance(2 * time.Second)
	g2 := c.Start(KindExercise, 3, cur.hooks())
	if g2 == g1 {
		t.Fatal("generation did not change")
	}
	clk.Advance(10 * time.Second)

	if len(old.ticks) != 2 || len(old.expired) != 0 {
		t.Errorf("old countdown: %d ticks, %d expiries", len(old.ticks), len(old.expired))
	}
	if len(cur.expired) != 1 || cur.expired[0] != g2 {
		t.Errorf("new countdown expired = %v", cur.expired)
	}
}

// TestStopDropsPendingTick verifies nothing fires after Stop.
func TestStopDropsPendingTick(t *testing.T) {
	clk := clock.Fake(time.Unix(0, 0))
	c := New(clk)
	var rec recorder

	c.Start(KindRest, 3, rec.hooks())
	clk.Advance(time.Second)
	c.Stop()
	clk.Advance(10 * time.Second)

	if len(rec.ticks) != 1 || len(rec.expired) != 0 {
		t.Errorf("after stop: %d ticks, %d expiries", len(rec.ticks), len(rec.expired))
	}
}

// TestPauseExerciseOnly verifies pause freezes an exercise countdown,
// resume continues it, and rest countdowns refuse to pause.
func TestPauseExerciseOnly(t *testing.T) {
	clk := clock.Fake(time.Unix(0, 0))
	c := New(clk)
	var rec recorder

	c.Start(KindExercise, 5, rec.hooks())
	clk.Advance(2 * time.Second)
	if !c.Pause() {
		t.Fatal("Pause = false")
	}
	if c.Pause() {
		t.Error("second Pause = true")
	}
	clk.Advance(30 * time.Second)
	if s := c.State(); s.Remaining != 3 || !s.Paused {
		t.Errorf("paused state = %+v", s)
	}
	if !c.Resume() {
		t.Fatal("Resume = false")
	}
	clk.Advance(3 * time.Second)
	if len(rec.expired) != 1 {
		t.Errorf("expired = %d, want 1", len(rec.expired))
	}

	c.Start(KindRest, 5, Hooks{})
	if c.Pause() {
		t.Error("rest countdown paused")
	}
	if c.Resume() {
		t.Error("rest countdown resumed")
	}
}

// TestHooksMayReenter verifies a hook can start the next countdown, the
// way a finished rest hands over to the next exercise.
func TestHooksMayReenter(t *testing.T) {
	clk := clock.Fake(time.Unix(0, 0))
	c := New(clk)
	var next recorder

	c.Start(KindRest, 2, Hooks{OnExpire: func(uint64) {
		c.Start(KindExercise, 2, next.hooks())
	}})
	clk.Advance(4 * time.Second)

	if len(next.expired) != 1 {
		t.Errorf("chained countdown expiries = %d, want 1", len(next.expired))
	}
}

// TestStartFromPartial verifies a countdown restarted part way reports
// percentages against its full length and expires after the remainder.
func TestStartFromPartial(t *testing.T) {
	clk := clock.Fake(time.Unix(0, 0))
	c := New(clk)
	var rec recorder

	c.StartFrom(KindExercise, 20, 5, rec.hooks())
	if s := c.State(); s.Remaining != 5 || s.Total != 20 {
		t.Errorf("state = %+v, want 5 of 20", s)
	}
	clk.Advance(5 * time.Second)

	if len(rec.ticks) != 5 || rec.ticks[0].Percent != 20 {
		t.Errorf("ticks = %+v", rec.ticks)
	}
	if len(rec.expired) != 1 {
		t.Errorf("expired = %d, want 1", len(rec.expired))
	}
}
