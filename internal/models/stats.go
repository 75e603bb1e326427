package models

import "time"

// Totals is the running aggregate stored under the statistics key.
type Totals struct {
	Workouts int `json:"workouts"`
	Minutes  int `json:"minutes"`
	Calories int `json:"calories"`
}

// Sample is one dated measurement in weightHistory.
type Sample struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
}

// WorkoutLogEntry is one completed workout in workoutHistory.
type WorkoutLogEntry struct {
	Date      time.Time `json:"date"`
	ProgramID string    `json:"programId"`
	WorkoutID string    `json:"workoutId"`
	Minutes   int       `json:"minutes"`
	Calories  int       `json:"calories"`
}

// Profile is the user's personal data stored under the profile key.
type Profile struct {
	Name      string    `json:"name"`
	Age       int       `json:"age,omitempty"`
	HeightCm  float64   `json:"height,omitempty"`
	WeightKg  float64   `json:"weight,omitempty"`
	Goal      string    `json:"goal,omitempty"`
	Level     string    `json:"level,omitempty"`
	UpdatedAt time.Time `json:"updatedAt,omitzero"`
}
