package session

import (
	"sync"
	"time"

	"github.com/claude/repflow/internal/models"
)

// EventType names a presentation signal.
type EventType string

const (
	EventSessionStarted     EventType = "sessionStarted"
	EventExerciseChanged    EventType = "exerciseChanged"
	EventRepsChanged        EventType = "repsChanged"
	EventRestStarted        EventType = "restStarted"
	EventRestTick           EventType = "restTick"
	EventRestEnded          EventType = "restEnded"
	EventExerciseTick       EventType = "exerciseTick"
	EventTimerPaused        EventType = "timerPaused"
	EventTimerResumed       EventType = "timerResumed"
	EventSetConfirmed       EventType = "setConfirmed"
	EventSessionCompleted   EventType = "sessionCompleted"
	EventSessionAborted     EventType = "sessionAborted"
	EventStatsUpdated       EventType = "statsUpdated"
	EventNavigationLocked   EventType = "navigationLocked"
	EventNavigationRestored EventType = "navigationRestored"
	EventReturnToPrograms   EventType = "returnToPrograms"
	EventHaptic             EventType = "haptic"
	EventNotification       EventType = "notification"
)

// Event is one signal for the presentation layer.
type Event struct {
	Type      EventType `json:"type"`
	SessionID string    `json:"sessionId,omitempty"`
	At        time.Time `json:"at"`
	Data      any       `json:"data,omitempty"`
}

// Payloads carried in Event.Data.
type (
	SessionStarted struct {
		ProgramID string         `json:"programId"`
		Workout   models.Workout `json:"workout"`
	}
	ExerciseChanged struct {
		Index    int          `json:"index"`
		Total    int          `json:"total"`
		Set      int          `json:"set"`
		Exercise ExerciseView `json:"exercise"`
	}
	RepsChanged struct {
		Index int `json:"index"`
		Reps  int `json:"reps"`
	}
	RestStarted struct {
		Seconds int `json:"seconds"`
	}
	RestTick struct {
		Remaining  int     `json:"remaining"`
		Percent    float64 `json:"percent"`
		EndingSoon bool    `json:"endingSoon"`
	}
	RestEnded struct {
		Skipped bool `json:"skipped"`
	}
	ExerciseTick struct {
		Remaining int `json:"remaining"`
		Total     int `json:"total"`
	}
	// TimerToggled carries the label the pause control should now show.
	TimerToggled struct {
		Label string `json:"label"`
	}
	SetConfirmed struct {
		ExerciseIndex int `json:"exerciseIndex"`
		Set           int `json:"set"`
		Reps          int `json:"reps,omitempty"`
		Seconds       int `json:"seconds,omitempty"`
	}
	SessionCompleted struct {
		ProgramID        string `json:"programId"`
		WorkoutID        string `json:"workoutId"`
		Minutes          int    `json:"minutes"`
		Calories         int    `json:"calories"`
		ProgramCompleted bool   `json:"programCompleted"`
	}
	SessionAborted struct {
		ExercisesDone int `json:"exercisesDone"`
	}
)

// Sink receives events. Emit is called with the engine lock held, so it
// must not block or call back into the Engine.
type Sink interface {
	Emit(Event)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Event)

func (f SinkFunc) Emit(ev Event) { f(ev) }

// Broadcaster fans events out to subscribers. A subscriber that falls
// behind loses events instead of stalling the engine.
type Broadcaster struct {
	mu   sync.Mutex
	subs map[chan Event]struct{}
	size int
}

// NewBroadcaster creates a Broadcaster whose subscriber channels buffer
// size events.
func NewBroadcaster(size int) *Broadcaster {
	if size <= 0 {
		size = 64
	}
	return &Broadcaster{subs: make(map[chan Event]struct{}), size: size}
}

func (b *Broadcaster) Emit(ev Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

// Subscribe returns a channel of future events and a function that
// unsubscribes and closes it.
func (b *Broadcaster) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, b.size)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, ch)
			b.mu.Unlock()
			close(ch)
		})
	}
}
