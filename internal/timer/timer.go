// Package timer runs the one countdown a workout session owns at a time:
// either the exercise timer of a duration-based exercise or a rest
// interval between exercises.
package timer

import (
	"sync"
	"time"

	"github.com/claude/repflow/internal/clock"
)

// Kind identifies what a countdown is timing.
type Kind string

const (
	KindNone     Kind = "none"
	KindExercise Kind = "exercise"
	KindRest     Kind = "rest"
)

// EndingSoonSeconds is the remaining time at which a rest tick is
// flagged as ending soon.
const EndingSoonSeconds = 3

const tickInterval = time.Second

// Tick is one per-second report from a running countdown.
type Tick struct {
	Gen        uint64
	Kind       Kind
	Remaining  int
	Total      int
	Percent    float64
	EndingSoon bool
}

// Hooks receive countdown events. They are called without the
// controller's lock held, so they may call back into the Controller.
type Hooks struct {
	OnTick   func(Tick)
	OnExpire func(gen uint64)
}

// State is a point-in-time view of the controller.
type State struct {
	Kind      Kind `json:"kind"`
	Remaining int  `json:"remaining"`
	Total     int  `json:"total"`
	Paused    bool `json:"paused"`
}

// Controller owns a single timer handle. Starting a countdown releases
// whatever was running. Every release bumps a generation counter; a tick
// scheduled under an older generation is dropped when it fires.
type Controller struct {
	clock clock.Clock

	mu        sync.Mutex
	gen       uint64
	kind      Kind
	total     int
	remaining int
	paused    bool
	pending   clock.Timer
	hooks     Hooks
}

// New creates an idle Controller.
func New(c clock.Clock) *Controller {
	return &Controller{clock: c, kind: KindNone}
}

// Start releases any running countdown and starts a new one of the given
// kind. It returns the generation identifying this countdown; hooks
// receive it so callers can ignore events from countdowns they replaced.
func (c *Controller) Start(kind Kind, seconds int, hooks Hooks) uint64 {
	return c.StartFrom(kind, seconds, seconds, hooks)
}

// StartFrom is Start for a countdown of total seconds that already ran
// part way, leaving remaining seconds to go.
func (c *Controller) StartFrom(kind Kind, total, remaining int, hooks Hooks) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.releaseLocked()
	c.kind = kind
	c.total = total
	c.remaining = min(remaining, total)
	c.hooks = hooks
	c.scheduleLocked()
	return c.gen
}

// Stop releases whatever countdown is running.
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.releaseLocked()
}

// Pause freezes an exercise countdown. It reports false for rest
// countdowns, an idle controller, or one already paused.
func (c *Controller) Pause() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.kind != KindExercise || c.paused {
		return false
	}
	c.paused = true
	return true
}

// Resume restarts a paused exercise countdown.
func (c *Controller) Resume() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.kind != KindExercise || !c.paused {
		return false
	}
	c.paused = false
	return true
}

// State returns the current countdown state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return State{Kind: c.kind, Remaining: c.remaining, Total: c.total, Paused: c.paused}
}

func (c *Controller) releaseLocked() {
	if c.pending != nil {
		c.pending.Stop()
		c.pending = nil
	}
	c.gen++
	c.kind = KindNone
	c.total = 0
	c.remaining = 0
	c.paused = false
	c.hooks = Hooks{}
}

func (c *Controller) scheduleLocked() {
	gen := c.gen
	c.pending = c.clock.AfterFunc(tickInterval, func() { c.fire(gen) })
}

func (c *Controller) fire(gen uint64) {
	c.mu.Lock()
	if gen != c.gen || c.kind == KindNone {
		c.mu.Unlock()
		return
	}
	if c.paused {
		c.scheduleLocked()
		c.mu.Unlock()
		return
	}

	c.remaining--
	tick := Tick{
		Gen:        gen,
		Kind:       c.kind,
		Remaining:  c.remaining,
		Total:      c.total,
		EndingSoon: c.remaining <= EndingSoonSeconds,
	}
	if c.total > 0 {
		tick.Percent = float64(c.remaining*100) / float64(c.total)
	}
	hooks := c.hooks

	expired := c.remaining <= 0
	if expired {
		c.releaseLocked()
	} else {
		c.scheduleLocked()
	}
	c.mu.Unlock()

	if hooks.OnTick != nil {
		hooks.OnTick(tick)
	}
	if expired && hooks.OnExpire != nil {
		hooks.OnExpire(gen)
	}
}
