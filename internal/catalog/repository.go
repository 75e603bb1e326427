// Package catalog serves the static program catalog and tracks the
// user's progress through the program they have adopted.
package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/claude/repflow/internal/clock"
	"github.com/claude/repflow/internal/models"
	"github.com/claude/repflow/internal/storage"
)

// Repository answers catalog lookups from memory and persists progress
// through the storage gateway.
type Repository struct {
	store           *storage.Gateway
	clock           clock.Clock
	log             *slog.Logger
	alwaysAvailable string

	catMu    sync.RWMutex
	programs map[string]models.Program

	// progressMu serializes read-modify-write cycles on activeProgram
	// and completedPrograms.
	progressMu sync.Mutex
}

// Option configures a Repository.
type Option func(*Repository)

// WithClock overrides the clock used for progress timestamps.
func WithClock(c clock.Clock) Option {
	return func(r *Repository) { r.clock = c }
}

// WithAlwaysAvailable sets the program that never occupies the active
// slot. Defaults to DailyProgramID.
func WithAlwaysAvailable(id string) Option {
	return func(r *Repository) { r.alwaysAvailable = id }
}

// New creates a Repository over programs, which are validated.
func New(store *storage.Gateway, programs []models.Program, log *slog.Logger, opts ...Option) (*Repository, error) {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	r := &Repository{
		store:           store,
		clock:           clock.Real(),
		log:             log,
		alwaysAvailable: DailyProgramID,
	}
	for _, opt := range opts {
		opt(r)
	}
	if err := r.replace(programs); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Repository) replace(programs []models.Program) error {
	if err := validate(programs); err != nil {
		return fmt.Errorf("validating catalog: %w", err)
	}
	m := make(map[string]models.Program, len(programs))
	for _, p := range programs {
		m[p.ID] = p
	}
	r.catMu.Lock()
	r.programs = m
	r.catMu.Unlock()
	return nil
}

// AlwaysAvailable returns the id of the program exempt from the
// single-active-program rule.
func (r *Repository) AlwaysAvailable() string { return r.alwaysAvailable }

// Programs lists the catalog ordered by id.
func (r *Repository) Programs() []models.Program {
	r.catMu.RLock()
	defer r.catMu.RUnlock()
	out := make([]models.Program, 0, len(r.programs))
	for _, p := range r.programs {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// GetProgram looks up a program by id.
func (r *Repository) GetProgram(id string) (models.Program, error) {
	r.catMu.RLock()
	p, ok := r.programs[id]
	r.catMu.RUnlock()
	if !ok {
		return models.Program{}, fmt.Errorf("program %s: %w", id, models.ErrNotFound)
	}
	return p, nil
}

// GetWorkout returns a copy of one workout of a program.
func (r *Repository) GetWorkout(programID, workoutID string) (models.Workout, error) {
	p, err := r.GetProgram(programID)
	if err != nil {
		return models.Workout{}, err
	}
	w, ok := p.Workout(workoutID)
	if !ok {
		return models.Workout{}, fmt.Errorf("workout %s in program %s: %w", workoutID, programID, models.ErrNotFound)
	}
	return w.Clone(), nil
}

// ActivateProgram makes programID the user's active program and returns
// its progress record. Activating the already-active program returns the
// existing record. The always-available program gets a fresh record that
// is not persisted and leaves the active slot alone.
func (r *Repository) ActivateProgram(ctx context.Context, programID string) (models.ActiveProgress, error) {
	if _, err := r.GetProgram(programID); err != nil {
		return models.ActiveProgress{}, err
	}
	fresh := models.ActiveProgress{
		ProgramID:         programID,
		StartedAt:         r.clock.Now(),
		CompletedWorkouts: []string{},
	}
	if programID == r.alwaysAvailable {
		return fresh, nil
	}

	r.progressMu.Lock()
	defer r.progressMu.Unlock()

	if cur, ok := r.loadActive(ctx); ok {
		if cur.ProgramID == programID {
			return cur, nil
		}
		return models.ActiveProgress{}, fmt.Errorf("activating %s while %s is active: %w", programID, cur.ProgramID, models.ErrConflict)
	}

	if err := r.store.SaveJSON(ctx, storage.KeyActiveProgram, fresh); err != nil {
		r.log.Warn("active program not persisted", "program", programID, "error", err)
	}
	r.log.Info("program activated", "program", programID)
	return fresh, nil
}

// Completion describes what RecordWorkoutCompletion did.
type Completion struct {
	// Recorded is true when the workout was added to the completed set.
	Recorded bool
	// Archived is true when the program finished and moved to history.
	Archived bool
	Progress models.ActiveProgress
}

// RecordWorkoutCompletion credits workoutID to the active program. When
// every workout of the program is done, the progress is archived into
// completedPrograms and the active slot cleared. Without active progress
// for programID it logs and does nothing.
func (r *Repository) RecordWorkoutCompletion(ctx context.Context, programID, workoutID string) Completion {
	r.progressMu.Lock()
	defer r.progressMu.Unlock()

	cur, ok := r.loadActive(ctx)
	if !ok {
		r.log.Info("workout completed with no active program", "program", programID, "workout", workoutID)
		return Completion{}
	}
	if cur.ProgramID != programID {
		r.log.Info("workout completed outside the active program",
			"program", programID, "active", cur.ProgramID, "workout", workoutID)
		return Completion{Progress: cur}
	}
	p, err := r.GetProgram(programID)
	if err != nil {
		r.log.Warn("active program missing from catalog", "program", programID)
		return Completion{Progress: cur}
	}
	if _, ok := p.Workout(workoutID); !ok {
		r.log.Warn("completed workout not in program", "program", programID, "workout", workoutID)
		return Completion{Progress: cur}
	}

	now := r.clock.Now()
	res := Completion{Recorded: cur.MarkCompleted(workoutID)}
	cur.LastWorkoutAt = now

	if len(cur.CompletedWorkouts) >= len(p.Workouts) {
		r.archive(ctx, cur, now)
		res.Archived = true
		res.Progress = cur
		return res
	}

	if err := r.store.SaveJSON(ctx, storage.KeyActiveProgram, cur); err != nil {
		r.log.Warn("progress not persisted", "program", programID, "error", err)
	}
	res.Progress = cur
	return res
}

func (r *Repository) archive(ctx context.Context, cur models.ActiveProgress, end time.Time) {
	history := r.loadCompleted(ctx)
	history = append(history, models.CompletedProgram{
		ID:          uuid.NewString(),
		ProgramID:   cur.ProgramID,
		StartedAt:   cur.StartedAt,
		CompletedAt: end,
	})
	if err := r.store.SaveJSON(ctx, storage.KeyCompletedPrograms, history); err != nil {
		r.log.Warn("completed program not persisted", "program", cur.ProgramID, "error", err)
	}
	if err := r.store.SaveJSON(ctx, storage.KeyActiveProgram, nil); err != nil {
		r.log.Warn("active program not cleared", "program", cur.ProgramID, "error", err)
	}
	r.log.Info("program completed", "program", cur.ProgramID, "workouts", len(cur.CompletedWorkouts))
}

// ActiveProgress returns the stored progress record, if any.
func (r *Repository) ActiveProgress(ctx context.Context) (models.ActiveProgress, bool) {
	r.progressMu.Lock()
	defer r.progressMu.Unlock()
	return r.loadActive(ctx)
}

// CompletedPrograms returns the archive, oldest first.
func (r *Repository) CompletedPrograms(ctx context.Context) []models.CompletedProgram {
	r.progressMu.Lock()
	defer r.progressMu.Unlock()
	return r.loadCompleted(ctx)
}

// DeactivateProgram abandons the active program without archiving it.
func (r *Repository) DeactivateProgram(ctx context.Context) error {
	r.progressMu.Lock()
	defer r.progressMu.Unlock()

	cur, ok := r.loadActive(ctx)
	if !ok {
		return fmt.Errorf("active program: %w", models.ErrNotFound)
	}
	if err := r.store.SaveJSON(ctx, storage.KeyActiveProgram, nil); err != nil {
		return fmt.Errorf("clearing active program: %w", err)
	}
	r.log.Info("program abandoned", "program", cur.ProgramID, "completed", len(cur.CompletedWorkouts))
	return nil
}

func (r *Repository) loadActive(ctx context.Context) (models.ActiveProgress, bool) {
	var p models.ActiveProgress
	ok, err := r.store.LoadJSON(ctx, storage.KeyActiveProgram, &p)
	if err != nil {
		r.log.Warn("ignoring unreadable active program", "error", err)
		return models.ActiveProgress{}, false
	}
	if !ok || p.ProgramID == "" {
		return models.ActiveProgress{}, false
	}
	return p, true
}

func (r *Repository) loadCompleted(ctx context.Context) []models.CompletedProgram {
	var history []models.CompletedProgram
	if _, err := r.store.LoadJSON(ctx, storage.KeyCompletedPrograms, &history); err != nil {
		r.log.Warn("ignoring unreadable completed programs", "error", err)
		return nil
	}
	return history
}

// Save writes the catalog to storage as a chunked large value.
func (r *Repository) Save(ctx context.Context) error {
	if err := r.store.SaveLargeJSON(ctx, storage.KeyPrograms, r.Programs()); err != nil {
		return fmt.Errorf("saving catalog: %w", err)
	}
	return nil
}

// Replace swaps in a new catalog and persists it. Progress records that
// reference programs missing from the new catalog are left as stored.
func (r *Repository) Replace(ctx context.Context, programs []models.Program) error {
	if err := r.replace(programs); err != nil {
		return err
	}
	r.log.Info("catalog replaced", "programs", len(programs))
	return r.Save(ctx)
}

// Load replaces the in-memory catalog with the stored one. It reports
// false, leaving the catalog unchanged, when nothing is stored.
func (r *Repository) Load(ctx context.Context) (bool, error) {
	var programs []models.Program
	ok, err := r.store.LoadLargeJSON(ctx, storage.KeyPrograms, &programs)
	if err != nil {
		return false, fmt.Errorf("loading catalog: %w", err)
	}
	if !ok || len(programs) == 0 {
		return false, nil
	}
	if err := r.replace(programs); err != nil {
		return false, err
	}
	r.log.Info("catalog loaded from storage", "programs", len(programs))
	return true, nil
}
