package session

import (
	"time"

	"github.com/claude/repflow/internal/models"
	"github.com/claude/repflow/internal/timer"
)

// State is the lifecycle state of a session.
type State string

const (
	StateIdle      State = "idle"
	StateActive    State = "active"
	StateCompleted State = "completed"
	StateAborted   State = "aborted"
)

// SetRecord is one confirmed set.
type SetRecord struct {
	Set     int       `json:"set"`
	Reps    int       `json:"reps,omitempty"`
	Seconds int       `json:"seconds,omitempty"`
	At      time.Time `json:"timestamp"`
}

// liveExercise is the session's mutable copy of an exercise template.
type liveExercise struct {
	models.Exercise
	reps      int
	completed []SetRecord
}

func newLiveExercise(e models.Exercise) *liveExercise {
	return &liveExercise{Exercise: e, reps: e.StartingReps()}
}

func (l *liveExercise) reset() {
	l.reps = l.StartingReps()
	l.completed = nil
}

func (l *liveExercise) hasSet(n int) bool {
	for _, r := range l.completed {
		if r.Set == n {
			return true
		}
	}
	return false
}

func (l *liveExercise) done() bool { return len(l.completed) >= l.SetCount() }

// ExerciseView is the render-ready form of a live exercise.
type ExerciseView struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Type        string      `json:"type"`
	Icon        string      `json:"icon"`
	TypeLabel   string      `json:"typeLabel"`
	TargetReps  int         `json:"targetReps,omitempty"`
	Duration    int         `json:"duration,omitempty"`
	Sets        int         `json:"sets"`
	Rest        int         `json:"rest"`
	CurrentReps int         `json:"currentReps"`
	Completed   []SetRecord `json:"completedSets"`
	Done        bool        `json:"done"`
}

func (l *liveExercise) view() ExerciseView {
	t := models.LookupExerciseType(l.Type)
	return ExerciseView{
		ID:          l.ID,
		Name:        l.Name,
		Type:        l.Type,
		Icon:        t.Icon,
		TypeLabel:   t.Label,
		TargetReps:  l.Reps,
		Duration:    l.Duration,
		Sets:        l.SetCount(),
		Rest:        l.RestSeconds(),
		CurrentReps: l.reps,
		Completed:   append([]SetRecord{}, l.completed...),
		Done:        l.done(),
	}
}

// Snapshot is a read-only copy of the session for rendering.
type Snapshot struct {
	ID          string         `json:"id,omitempty"`
	State       State          `json:"state"`
	ProgramID   string         `json:"programId,omitempty"`
	WorkoutID   string         `json:"workoutId,omitempty"`
	WorkoutName string         `json:"workoutName,omitempty"`
	Index       int            `json:"exerciseIndex"`
	Total       int            `json:"exerciseCount"`
	Set         int            `json:"set"`
	StartedAt   time.Time      `json:"startedAt,omitzero"`
	EndedAt     time.Time      `json:"endedAt,omitzero"`
	Timer       timer.State    `json:"timer"`
	Exercises   []ExerciseView `json:"exercises,omitempty"`
}

// Current returns the view of the current exercise, if any.
func (s Snapshot) Current() (ExerciseView, bool) {
	if s.Index < 0 || s.Index >= len(s.Exercises) {
		return ExerciseView{}, false
	}
	return s.Exercises[s.Index], true
}
