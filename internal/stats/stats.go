// Package stats aggregates workout totals, the workout log and the
// weight history kept in storage.
package stats

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/claude/repflow/internal/clock"
	"github.com/claude/repflow/internal/models"
	"github.com/claude/repflow/internal/storage"
)

// Aggregator reads and updates the statistics keys. Updates are
// read-modify-write and serialized within the process.
type Aggregator struct {
	store *storage.Gateway
	clock clock.Clock
	log   *slog.Logger

	mu       sync.Mutex
	listener func(models.Totals)
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithClock overrides the clock used for log entries and windows.
func WithClock(c clock.Clock) Option {
	return func(a *Aggregator) { a.clock = c }
}

// New creates an Aggregator.
func New(store *storage.Gateway, log *slog.Logger, opts ...Option) *Aggregator {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	a := &Aggregator{store: store, clock: clock.Real(), log: log}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// OnUpdate registers fn to receive totals after every recorded workout.
func (a *Aggregator) OnUpdate(fn func(models.Totals)) {
	a.mu.Lock()
	a.listener = fn
	a.mu.Unlock()
}

// Totals returns the stored totals, zero if none.
func (a *Aggregator) Totals(ctx context.Context) models.Totals {
	var t models.Totals
	if _, err := a.store.LoadJSON(ctx, storage.KeyStatistics, &t); err != nil {
		a.log.Warn("ignoring unreadable statistics", "error", err)
		return models.Totals{}
	}
	return t
}

// RecordWorkout adds one workout with the given minutes and calories to
// the totals. Negative amounts count as zero so totals never decrease.
func (a *Aggregator) RecordWorkout(ctx context.Context, minutes, calories int) (models.Totals, error) {
	a.mu.Lock()
	t, err := a.recordLocked(ctx, minutes, calories)
	listener := a.listener
	a.mu.Unlock()

	if listener != nil && err == nil {
		listener(t)
	}
	return t, err
}

func (a *Aggregator) recordLocked(ctx context.Context, minutes, calories int) (models.Totals, error) {
	var t models.Totals
	if _, err := a.store.LoadJSON(ctx, storage.KeyStatistics, &t); err != nil {
		return models.Totals{}, fmt.Errorf("reading statistics: %w", err)
	}
	t.Workouts++
	t.Minutes += max(minutes, 0)
	t.Calories += max(calories, 0)
	if err := a.store.SaveJSON(ctx, storage.KeyStatistics, t); err != nil {
		return t, fmt.Errorf("saving statistics: %w", err)
	}
	return t, nil
}

// RecordCompletedWorkout updates the totals and appends a workout log
// entry. A failed log append is only logged. When the totals could not
// be updated the error is returned and the listener is not called.
func (a *Aggregator) RecordCompletedWorkout(ctx context.Context, programID, workoutID string, minutes, calories int) (models.Totals, error) {
	a.mu.Lock()
	t, err := a.recordLocked(ctx, minutes, calories)
	if err != nil {
		a.log.Error("workout totals not recorded", "program", programID, "workout", workoutID, "error", err)
	}
	if err := a.appendLogLocked(ctx, models.WorkoutLogEntry{
		Date:      a.clock.Now(),
		ProgramID: programID,
		WorkoutID: workoutID,
		Minutes:   max(minutes, 0),
		Calories:  max(calories, 0),
	}); err != nil {
		a.log.Error("workout log not recorded", "program", programID, "workout", workoutID, "error", err)
	}
	listener := a.listener
	a.mu.Unlock()

	if err != nil {
		return models.Totals{}, err
	}
	a.log.Info("workout recorded", "program", programID, "workout", workoutID,
		"total_workouts", t.Workouts, "total_minutes", t.Minutes)
	if listener != nil {
		listener(t)
	}
	return t, nil
}

// LogWorkout appends an entry to the workout log without touching the
// totals. Importers use it to backfill history.
func (a *Aggregator) LogWorkout(ctx context.Context, e models.WorkoutLogEntry) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.appendLogLocked(ctx, e)
}

func (a *Aggregator) appendLogLocked(ctx context.Context, e models.WorkoutLogEntry) error {
	entries, err := a.workoutLog(ctx)
	if err != nil {
		return err
	}
	entries = append(entries, e)
	if err := a.store.SaveJSON(ctx, storage.KeyWorkoutHistory, entries); err != nil {
		return fmt.Errorf("saving workout log: %w", err)
	}
	return nil
}

// WorkoutLog returns every logged workout, oldest first.
func (a *Aggregator) WorkoutLog(ctx context.Context) []models.WorkoutLogEntry {
	entries, err := a.workoutLog(ctx)
	if err != nil {
		a.log.Warn("ignoring unreadable workout log", "error", err)
		return nil
	}
	return entries
}

func (a *Aggregator) workoutLog(ctx context.Context) ([]models.WorkoutLogEntry, error) {
	var entries []models.WorkoutLogEntry
	if _, err := a.store.LoadJSON(ctx, storage.KeyWorkoutHistory, &entries); err != nil {
		return nil, fmt.Errorf("reading workout log: %w", err)
	}
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].Date.Before(entries[j].Date) })
	return entries, nil
}

// AddWeight appends a weight sample.
func (a *Aggregator) AddWeight(ctx context.Context, date time.Time, kg float64) error {
	if kg <= 0 {
		return fmt.Errorf("weight %.1f: %w", kg, models.ErrInvalid)
	}
	if date.IsZero() {
		date = a.clock.Now()
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	samples, err := a.weights(ctx)
	if err != nil {
		return err
	}
	samples = append(samples, models.Sample{Date: date, Value: kg})
	if err := a.store.SaveJSON(ctx, storage.KeyWeightHistory, samples); err != nil {
		return fmt.Errorf("saving weight history: %w", err)
	}
	return nil
}

// MergeWeights adds samples that are not already in the history, where
// a duplicate has the same instant and value. It returns how many were
// added. Non-positive values are skipped.
func (a *Aggregator) MergeWeights(ctx context.Context, in []models.Sample) (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	samples, err := a.weights(ctx)
	if err != nil {
		return 0, err
	}
	seen := make(map[string]bool, len(samples))
	for _, s := range samples {
		seen[sampleKey(s)] = true
	}
	added := 0
	for _, s := range in {
		if s.Value <= 0 || seen[sampleKey(s)] {
			continue
		}
		seen[sampleKey(s)] = true
		samples = append(samples, s)
		added++
	}
	if added == 0 {
		return 0, nil
	}
	if err := a.store.SaveJSON(ctx, storage.KeyWeightHistory, samples); err != nil {
		return 0, fmt.Errorf("saving weight history: %w", err)
	}
	return added, nil
}

// MergeWorkoutLog backfills log entries not already present, matching
// on date, program and workout. Totals are left alone.
func (a *Aggregator) MergeWorkoutLog(ctx context.Context, in []models.WorkoutLogEntry) (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	entries, err := a.workoutLog(ctx)
	if err != nil {
		return 0, err
	}
	seen := make(map[string]bool, len(entries))
	for _, e := range entries {
		seen[entryKey(e)] = true
	}
	added := 0
	for _, e := range in {
		if seen[entryKey(e)] {
			continue
		}
		seen[entryKey(e)] = true
		entries = append(entries, e)
		added++
	}
	if added == 0 {
		return 0, nil
	}
	if err := a.store.SaveJSON(ctx, storage.KeyWorkoutHistory, entries); err != nil {
		return 0, fmt.Errorf("saving workout log: %w", err)
	}
	return added, nil
}

func sampleKey(s models.Sample) string {
	return s.Date.UTC().Format(time.RFC3339) + "|" + strconv.FormatFloat(s.Value, 'f', -1, 64)
}

func entryKey(e models.WorkoutLogEntry) string {
	return e.Date.UTC().Format(time.RFC3339) + "|" + e.ProgramID + "|" + e.WorkoutID
}

func (a *Aggregator) weights(ctx context.Context) ([]models.Sample, error) {
	var samples []models.Sample
	if _, err := a.store.LoadJSON(ctx, storage.KeyWeightHistory, &samples); err != nil {
		return nil, fmt.Errorf("reading weight history: %w", err)
	}
	return samples, nil
}

// WeightPoint is one weight sample ready for charting.
type WeightPoint struct {
	Date  time.Time `json:"date"`
	Label string    `json:"label"`
	Value float64   `json:"value"`
}

// QueryWeightHistory returns the samples inside the period's trailing
// window in ascending date order, labelled for the period.
func (a *Aggregator) QueryWeightHistory(ctx context.Context, period Period) []WeightPoint {
	samples, err := a.weights(ctx)
	if err != nil {
		a.log.Warn("ignoring unreadable weight history", "error", err)
		return []WeightPoint{}
	}
	cutoff := period.Cutoff(a.clock.Now())

	out := make([]WeightPoint, 0, len(samples))
	for _, s := range samples {
		if s.Date.Before(cutoff) {
			continue
		}
		out = append(out, WeightPoint{Date: s.Date, Label: period.Label(s.Date), Value: s.Value})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

// Bucket is a count of workouts in one day or month.
type Bucket struct {
	Start time.Time `json:"start"`
	Label string    `json:"label"`
	Count int       `json:"count"`
}

// WorkoutCounts buckets the workout log: one bucket per day for week
// and month, one per month for year and all. Empty buckets are included
// so the series is continuous.
func (a *Aggregator) WorkoutCounts(ctx context.Context, period Period) []Bucket {
	entries := a.WorkoutLog(ctx)
	now := a.clock.Now()

	var first time.Time
	switch period {
	case PeriodWeek, PeriodMonth:
		first = startOfDay(now).AddDate(0, 0, 1-period.Days())
	case PeriodYear:
		first = startOfMonth(now).AddDate(0, -11, 0)
	default:
		if len(entries) == 0 {
			return []Bucket{}
		}
		first = startOfMonth(entries[0].Date.In(now.Location()))
	}

	var buckets []Bucket
	index := make(map[string]int)
	for t := first; !t.After(now); {
		index[t.Format(time.DateOnly)] = len(buckets)
		buckets = append(buckets, Bucket{Start: t, Label: period.Label(t)})
		if period.monthly() {
			t = t.AddDate(0, 1, 0)
		} else {
			t = t.AddDate(0, 0, 1)
		}
	}

	for _, e := range entries {
		d := e.Date.In(now.Location())
		key := startOfDay(d)
		if period.monthly() {
			key = startOfMonth(d)
		}
		if i, ok := index[key.Format(time.DateOnly)]; ok {
			buckets[i].Count++
		}
	}
	return buckets
}

// PeriodSummary totals the workouts logged inside a period.
type PeriodSummary struct {
	Period   Period `json:"period"`
	Workouts int    `json:"workouts"`
	Minutes  int    `json:"minutes"`
	Calories int    `json:"calories"`
}

// Summary totals the workout log inside the period's window.
func (a *Aggregator) Summary(ctx context.Context, period Period) PeriodSummary {
	cutoff := period.Cutoff(a.clock.Now())
	s := PeriodSummary{Period: period}
	for _, e := range a.WorkoutLog(ctx) {
		if e.Date.Before(cutoff) {
			continue
		}
		s.Workouts++
		s.Minutes += e.Minutes
		s.Calories += e.Calories
	}
	return s
}
