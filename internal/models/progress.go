package models

import (
	"slices"
	"time"
)

// ActiveProgress tracks the program the user has adopted. Stored under
// the activeProgram key.
type ActiveProgress struct {
	ProgramID         string    `json:"programId"`
	StartedAt         time.Time `json:"startDate"`
	CompletedWorkouts []string  `json:"completedWorkouts"`
	LastWorkoutAt     time.Time `json:"lastWorkoutDate,omitzero"`
}

// MarkCompleted adds workoutID once. It reports whether the set grew.
func (p *ActiveProgress) MarkCompleted(workoutID string) bool {
	if slices.Contains(p.CompletedWorkouts, workoutID) {
		return false
	}
	p.CompletedWorkouts = append(p.CompletedWorkouts, workoutID)
	return true
}

// HasCompleted reports whether workoutID is in the completed set.
func (p ActiveProgress) HasCompleted(workoutID string) bool {
	return slices.Contains(p.CompletedWorkouts, workoutID)
}

// CompletedProgram is one entry of the completedPrograms history.
type CompletedProgram struct {
	ID          string    `json:"id"`
	ProgramID   string    `json:"programId"`
	StartedAt   time.Time `json:"startDate"`
	CompletedAt time.Time `json:"endDate"`
}
