package models

import "fmt"

// Difficulty grades a program.
type Difficulty string

const (
	DifficultyBeginner     Difficulty = "beginner"
	DifficultyIntermediate Difficulty = "intermediate"
	DifficultyAdvanced     Difficulty = "advanced"
)

// Valid reports whether d is one of the known grades.
func (d Difficulty) Valid() bool {
	switch d {
	case DifficultyBeginner, DifficultyIntermediate, DifficultyAdvanced:
		return true
	}
	return false
}

const (
	// DefaultRestSeconds applies when an exercise sets neither rest field.
	DefaultRestSeconds = 60
	// DefaultReps seeds the adjustable rep counter for exercises without target reps.
	DefaultReps = 10
)

// Program is a static training plan. Immutable after load.
type Program struct {
	ID          string     `json:"id" yaml:"id"`
	Title       string     `json:"title" yaml:"title"`
	Description string     `json:"description,omitempty" yaml:"description"`
	Icon        string     `json:"icon,omitempty" yaml:"icon"`
	Difficulty  Difficulty `json:"difficulty" yaml:"difficulty"`
	// DurationWeeks of 0 means the program runs indefinitely.
	DurationWeeks int       `json:"durationWeeks,omitempty" yaml:"duration_weeks"`
	PerWeek       int       `json:"perWeek,omitempty" yaml:"per_week"`
	Workouts      []Workout `json:"workouts" yaml:"workouts"`
}

// Workout is one session template inside a program.
type Workout struct {
	ID          string     `json:"id" yaml:"id"`
	Name        string     `json:"name" yaml:"name"`
	Description string     `json:"description,omitempty" yaml:"description"`
	Type        string     `json:"type,omitempty" yaml:"type"`
	Minutes     int        `json:"duration" yaml:"duration"`
	Calories    int        `json:"calories" yaml:"calories"`
	Exercises   []Exercise `json:"exercises" yaml:"exercises"`
}

// Exercise is a template. Exactly one of Reps or Duration is set.
type Exercise struct {
	ID              string `json:"id" yaml:"id"`
	Name            string `json:"name" yaml:"name"`
	Type            string `json:"type" yaml:"type"`
	Reps            int    `json:"reps,omitempty" yaml:"reps"`
	Duration        int    `json:"duration,omitempty" yaml:"duration"`
	Sets            int    `json:"sets,omitempty" yaml:"sets"`
	Rest            int    `json:"rest,omitempty" yaml:"rest"`
	RestBetweenSets int    `json:"restBetweenSets,omitempty" yaml:"rest_between_sets"`
}

// Timed reports whether the exercise is driven by a countdown instead of reps.
func (e Exercise) Timed() bool { return e.Duration > 0 }

// SetCount returns the number of sets, defaulting to 1.
func (e Exercise) SetCount() int {
	if e.Sets <= 0 {
		return 1
	}
	return e.Sets
}

// RestSeconds returns the rest that follows this exercise.
func (e Exercise) RestSeconds() int {
	if e.Rest > 0 {
		return e.Rest
	}
	if e.RestBetweenSets > 0 {
		return e.RestBetweenSets
	}
	return DefaultRestSeconds
}

// StartingReps is the rep counter value a live copy begins with.
func (e Exercise) StartingReps() int {
	if e.Reps > 0 {
		return e.Reps
	}
	return DefaultReps
}

// Validate checks the template invariants.
func (e Exercise) Validate() error {
	switch {
	case e.ID == "":
		return fmt.Errorf("exercise %q: missing id", e.Name)
	case e.Reps <= 0 && e.Duration <= 0:
		return fmt.Errorf("exercise %s: needs reps or duration", e.ID)
	case e.Reps > 0 && e.Duration > 0:
		return fmt.Errorf("exercise %s: reps and duration are exclusive", e.ID)
	case e.Sets < 0:
		return fmt.Errorf("exercise %s: negative sets", e.ID)
	}
	return nil
}

// Validate checks the program, its workouts and exercises, including
// id uniqueness within each level.
func (p Program) Validate() error {
	if p.ID == "" {
		return fmt.Errorf("program %q: missing id", p.Title)
	}
	if p.Difficulty != "" && !p.Difficulty.Valid() {
		return fmt.Errorf("program %s: unknown difficulty %q", p.ID, p.Difficulty)
	}
	seen := make(map[string]bool, len(p.Workouts))
	for _, w := range p.Workouts {
		if w.ID == "" {
			return fmt.Errorf("program %s: workout %q missing id", p.ID, w.Name)
		}
		if seen[w.ID] {
			return fmt.Errorf("program %s: duplicate workout %s", p.ID, w.ID)
		}
		seen[w.ID] = true
		for _, e := range w.Exercises {
			if err := e.Validate(); err != nil {
				return fmt.Errorf("program %s workout %s: %w", p.ID, w.ID, err)
			}
		}
	}
	return nil
}

// Workout looks up a workout by id.
func (p Program) Workout(id string) (Workout, bool) {
	for _, w := range p.Workouts {
		if w.ID == id {
			return w, true
		}
	}
	return Workout{}, false
}

// Clone returns a deep copy so sessions never alias catalog templates.
func (w Workout) Clone() Workout {
	c := w
	c.Exercises = append([]Exercise(nil), w.Exercises...)
	return c
}
