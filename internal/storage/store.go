package storage

import "context"

// Store is a string key-value backend. Get reports ok=false for a
// missing key. Set with an empty value deletes the key.
type Store interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
}

// Lister is implemented by stores that can enumerate their keys.
type Lister interface {
	Keys(ctx context.Context, prefix string) ([]string, error)
}

// Persisted keys.
const (
	KeyProfile           = "profile"
	KeyActiveProgram     = "activeProgram"
	KeyPrograms          = "programs"
	KeyStatistics        = "statistics"
	KeyWeightHistory     = "weightHistory"
	KeyWorkoutHistory    = "workoutHistory"
	KeyCompletedPrograms = "completedPrograms"
)
