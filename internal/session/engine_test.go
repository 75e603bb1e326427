package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/claude/repflow/internal/catalog"
	"github.com/claude/repflow/internal/clock"
	"github.com/claude/repflow/internal/models"
	"github.com/claude/repflow/internal/stats"
	"github.com/claude/repflow/internal/storage"
	"github.com/claude/repflow/internal/timer"
)

const delay = 800 * time.Millisecond

type eventLog struct {
	mu     sync.Mutex
	events []Event
}

func (l *eventLog) Emit(ev Event) {
	l.mu.Lock()
	l.events = append(l.events, ev)
	l.mu.Unlock()
}

func (l *eventLog) count(t EventType) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, ev := range l.events {
		if ev.Type == t {
			n++
		}
	}
	return n
}

func (l *eventLog) types() []EventType {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]EventType, 0, len(l.events))
	for _, ev := range l.events {
		out = append(out, ev.Type)
	}
	return out
}

func (l *eventLog) last(t EventType) (Event, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := len(l.events) - 1; i >= 0; i-- {
		if l.events[i].Type == t {
			return l.events[i], true
		}
	}
	return Event{}, false
}

func (l *eventLog) reset() {
	l.mu.Lock()
	l.events = nil
	l.mu.Unlock()
}

type fakeFeedback struct {
	haptics []Haptic
	cues    []Cue
}

func (f *fakeFeedback) Haptic(h Haptic) { f.haptics = append(f.haptics, h) }
func (f *fakeFeedback) Notify(c Cue)    { f.cues = append(f.cues, c) }

// countingPrograms counts completion calls on top of the real repository.
type countingPrograms struct {
	*catalog.Repository
	completions int
}

func (c *countingPrograms) RecordWorkoutCompletion(ctx context.Context, programID, workoutID string) catalog.Completion {
	c.completions++
	return c.Repository.RecordWorkoutCompletion(ctx, programID, workoutID)
}

type harness struct {
	eng      *Engine
	clk      *clock.FakeClock
	programs *countingPrograms
	stats    *stats.Aggregator
	events   *eventLog
	feedback *fakeFeedback
}

func testPrograms() []models.Program {
	return append(catalog.Default(), models.Program{
		ID:         "test",
		Title:      "Test",
		Difficulty: models.DifficultyBeginner,
		Workouts: []models.Workout{
			{
				ID: "three", Name: "Three", Minutes: 15, Calories: 100,
				Exercises: []models.Exercise{
					{ID: "a", Name: "A", Type: "strength", Reps: 5, Sets: 2, Rest: 10},
					{ID: "b", Name: "B", Type: "static", Duration: 20, Rest: 10},
					{ID: "c", Name: "C", Type: "core", Reps: 8, Rest: 10},
				},
			},
			{ID: "empty", Name: "Empty"},
		},
	})
}

func newHarness(t *testing.T, opts ...Option) *harness {
	t.Helper()
	clk := clock.Fake(time.Date(2026, 4, 6, 7, 0, 0, 0, time.UTC))
	gw := storage.NewGateway(nil, storage.NewMemory(), nil)
	repo, err := catalog.New(gw, testPrograms(), nil, catalog.WithClock(clk))
	if err != nil {
		t.Fatalf("catalog.New: %v", err)
	}
	h := &harness{
		clk:      clk,
		programs: &countingPrograms{Repository: repo},
		stats:    stats.New(gw, nil, stats.WithClock(clk)),
		events:   &eventLog{},
		feedback: &fakeFeedback{},
	}
	base := []Option{
		WithClock(clk),
		WithSink(h.events),
		WithFeedback(h.feedback),
		WithConfig(Config{AdvanceDelay: delay, DefaultRest: 60}),
	}
	h.eng = New(h.programs, h.stats, append(base, opts...)...)
	return h
}

func (h *harness) start(t *testing.T, programID, workoutID string) {
	t.Helper()
	if _, err := h.eng.Start(context.Background(), programID, workoutID); err != nil {
		t.Fatalf("Start(%s, %s): %v", programID, workoutID, err)
	}
}

func (h *harness) confirm(t *testing.T, n int) {
	t.Helper()
	for range n {
		if err := h.eng.ConfirmSet(); err != nil {
			t.Fatalf("ConfirmSet: %v", err)
		}
	}
}

// TestStartErrors verifies lookup failures leave the engine idle and a
// second start is refused while a session runs.
func TestStartErrors(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	tests := []struct {
		program, workout string
		want             error
	}{
		{"nope", "w1", models.ErrNotFound},
		{"weight_loss", "nope", models.ErrNotFound},
		{"test", "empty", models.ErrEmptyWorkout},
	}
	for _, tt := range tests {
		if _, err := h.eng.Start(ctx, tt.program, tt.workout); !errors.Is(err, tt.want) {
			t.Errorf("Start(%s, %s) error = %v, want %v", tt.program, tt.workout, err, tt.want)
		}
		if s := h.eng.Snapshot(); s.State != StateIdle {
			t.Errorf("state after failed start = %s", s.State)
		}
	}
	if got := len(h.feedback.cues); got != len(tests) {
		t.Errorf("error cues = %d, want %d", got, len(tests))
	}

	h.start(t, "test", "three")
	if _, err := h.eng.Start(ctx, "weight_loss", "w1"); !errors.Is(err, models.ErrSessionActive) {
		t.Errorf("second Start error = %v, want ErrSessionActive", err)
	}
}

// TestStartEmitsOpeningEvents verifies the event sequence on start and
// the initial cursor.
func TestStartEmitsOpeningEvents(t *testing.T) {
	h := newHarness(t)
	snap, err := h.eng.Start(context.Background(), "test", "three")
	if err != nil {
		t.Fatal(err)
	}

	want := []EventType{EventSessionStarted, EventNavigationLocked, EventExerciseChanged}
	if diff := cmp.Diff(want, h.events.types()); diff != "" {
		t.Errorf("events (-want +got):\n%s", diff)
	}
	if snap.State != StateActive || snap.Index != 0 || snap.Set != 1 || snap.Total != 3 {
		t.Errorf("snapshot = %+v", snap)
	}
	cur, _ := snap.Current()
	if cur.CurrentReps != 5 || cur.Icon == "" || len(cur.Completed) != 0 {
		t.Errorf("current exercise = %+v", cur)
	}
}

// TestAdjustRepsFloor verifies reps never drop below one and each change
// gives a light haptic.
func TestAdjustRepsFloor(t *testing.T) {
	h := newHarness(t)
	h.start(t, "test", "three")

	if err := h.eng.AdjustReps(-999); err != nil {
		t.Fatal(err)
	}
	cur, _ := h.eng.Snapshot().Current()
	if cur.CurrentReps != 1 {
		t.Errorf("reps = %d, want 1", cur.CurrentReps)
	}
	if err := h.eng.AdjustReps(3); err != nil {
		t.Fatal(err)
	}
	cur, _ = h.eng.Snapshot().Current()
	if cur.CurrentReps != 4 {
		t.Errorf("reps = %d, want 4", cur.CurrentReps)
	}
	if h.events.count(EventRepsChanged) != 2 {
		t.Errorf("repsChanged = %d, want 2", h.events.count(EventRepsChanged))
	}
	if diff := cmp.Diff([]Haptic{HapticLight, HapticLight}, h.feedback.haptics); diff != "" {
		t.Errorf("haptics (-want +got):\n%s", diff)
	}

	// Once every set is confirmed the counter is locked.
	h.confirm(t, 2)
	if err := h.eng.AdjustReps(1); !errors.Is(err, models.ErrInvalidState) {
		t.Errorf("AdjustReps on done exercise error = %v, want ErrInvalidState", err)
	}
}

// TestConfirmSetIdempotent verifies k confirms record k sets with the
// current reps and a further confirm adds nothing.
func TestConfirmSetIdempotent(t *testing.T) {
	h := newHarness(t)
	h.start(t, "weight_loss", "w1")

	h.confirm(t, 3)
	h.confirm(t, 1)

	cur, _ := h.eng.Snapshot().Current()
	if len(cur.Completed) != 3 {
		t.Fatalf("completed sets = %d, want 3", len(cur.Completed))
	}
	for i, rec := range cur.Completed {
		if rec.Set != i+1 || rec.Reps != 15 {
			t.Errorf("set %d = %+v", i, rec)
		}
	}
	if got := h.events.count(EventSetConfirmed); got != 3 {
		t.Errorf("setConfirmed = %d, want 3", got)
	}
	if !cur.Done {
		t.Error("exercise not done after all sets")
	}
}

// TestAdvanceThroughWorkoutCompletesOnce verifies N-1 advances and a
// final advance finish the session once and credit it once.
func TestAdvanceThroughWorkoutCompletesOnce(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	if _, err := h.programs.ActivateProgram(ctx, "test"); err != nil {
		t.Fatal(err)
	}
	h.start(t, "test", "three")

	for i := 0; i < 2; i++ {
		if err := h.eng.AdvanceExercise(ctx); err != nil {
			t.Fatalf("advance %d: %v", i, err)
		}
	}
	if s := h.eng.Snapshot(); s.Index != 2 || s.State != StateActive {
		t.Fatalf("after advances: %+v", s)
	}
	if err := h.eng.AdvanceExercise(ctx); err != nil {
		t.Fatal(err)
	}
	if err := h.eng.Finish(ctx); err != nil {
		t.Errorf("second Finish: %v", err)
	}

	if s := h.eng.Snapshot(); s.State != StateCompleted {
		t.Errorf("state = %s, want completed", s.State)
	}
	if h.programs.completions != 1 {
		t.Errorf("RecordWorkoutCompletion calls = %d, want 1", h.programs.completions)
	}
	if got := h.events.count(EventSessionCompleted); got != 1 {
		t.Errorf("sessionCompleted = %d, want 1", got)
	}
	if tot := h.stats.Totals(ctx); tot != (models.Totals{Workouts: 1, Minutes: 15, Calories: 100}) {
		t.Errorf("totals = %+v", tot)
	}
	ev, _ := h.events.last(EventStatsUpdated)
	if tot, ok := ev.Data.(models.Totals); !ok || tot.Workouts != 1 {
		t.Errorf("statsUpdated data = %#v", ev.Data)
	}
	if got := h.events.count(EventReturnToPrograms); got != 1 {
		t.Errorf("returnToPrograms = %d, want 1", got)
	}
	if err := h.eng.AdvanceExercise(ctx); !errors.Is(err, models.ErrInvalidState) {
		t.Errorf("advance after completion error = %v, want ErrInvalidState", err)
	}
}

// TestCompletionWithoutStats verifies a session still completes when the
// totals cannot be written, without announcing totals it never saved.
func TestCompletionWithoutStats(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	broken := storage.NewMemory()
	broken.Fail = errors.New("disk full")
	h.eng = New(h.programs, stats.New(storage.NewGateway(nil, broken, nil), nil),
		WithClock(h.clk), WithSink(h.events), WithConfig(Config{AdvanceDelay: delay}))
	h.start(t, "test", "three")

	if err := h.eng.Finish(ctx); err != nil {
		t.Fatal(err)
	}
	if got := h.events.count(EventStatsUpdated); got != 0 {
		t.Errorf("statsUpdated = %d, want 0", got)
	}
	if got := h.events.count(EventSessionCompleted); got != 1 {
		t.Errorf("sessionCompleted = %d, want 1", got)
	}
}

// TestRestTimerEndsOnce verifies a 10 second rest ticks ten times, ends
// once and advances once, and a late skip is refused.
func TestRestTimerEndsOnce(t *testing.T) {
	h := newHarness(t)
	h.start(t, "test", "three")

	h.confirm(t, 2)
	h.clk.Advance(delay)
	if s := h.eng.Snapshot(); s.Timer.Kind != timer.KindRest || s.Timer.Remaining != 10 {
		t.Fatalf("timer after boundary = %+v", s.Timer)
	}
	ev, _ := h.events.last(EventRestStarted)
	if ev.Data.(RestStarted).Seconds != 10 {
		t.Errorf("restStarted = %+v", ev.Data)
	}

	h.clk.Advance(10 * time.Second)

	if got := h.events.count(EventRestTick); got != 10 {
		t.Errorf("restTick = %d, want 10", got)
	}
	if got := h.events.count(EventRestEnded); got != 1 {
		t.Errorf("restEnded = %d, want 1", got)
	}
	if s := h.eng.Snapshot(); s.Index != 1 {
		t.Errorf("index = %d, want 1", s.Index)
	}
	if err := h.eng.SkipRest(context.Background()); !errors.Is(err, models.ErrInvalidState) {
		t.Errorf("SkipRest after expiry error = %v, want ErrInvalidState", err)
	}
	if s := h.eng.Snapshot(); s.Index != 1 {
		t.Errorf("index after late skip = %d, want 1", s.Index)
	}
}

// TestSkipRestThenExpiry verifies skipping runs the continuation once
// and the cancelled countdown never fires it again.
func TestSkipRestThenExpiry(t *testing.T) {
	h := newHarness(t)
	h.start(t, "test", "three")

	h.confirm(t, 2)
	h.clk.Advance(delay)
	h.clk.Advance(5 * time.Second)

	if err := h.eng.SkipRest(context.Background()); err != nil {
		t.Fatalf("SkipRest: %v", err)
	}
	// Exercise b is timed (20s); stay short of its expiry.
	h.clk.Advance(10 * time.Second)

	if got := h.events.count(EventRestEnded); got != 1 {
		t.Errorf("restEnded = %d, want 1", got)
	}
	ev, _ := h.events.last(EventRestEnded)
	if !ev.Data.(RestEnded).Skipped {
		t.Error("restEnded not marked skipped")
	}
	if s := h.eng.Snapshot(); s.Index != 1 {
		t.Errorf("index = %d, want 1", s.Index)
	}
	if h.feedback.haptics[len(h.feedback.haptics)-1] != HapticMedium {
		t.Errorf("last haptic = %v, want medium", h.feedback.haptics)
	}
}

// TestWeightLossScenario runs weight_loss/w1 end to end: three confirmed
// sets, the rest, the 60 second timed exercise, then completion.
func TestWeightLossScenario(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	if _, err := h.programs.ActivateProgram(ctx, "weight_loss"); err != nil {
		t.Fatal(err)
	}
	h.start(t, "weight_loss", "w1")

	h.confirm(t, 3)
	h.clk.Advance(time.Second)
	if s := h.eng.Snapshot(); s.Timer.Kind != timer.KindRest {
		t.Fatalf("expected rest after exercise 1, timer = %+v", s.Timer)
	}
	h.clk.Advance(45 * time.Second)

	s := h.eng.Snapshot()
	if s.Index != 1 || s.Timer.Kind != timer.KindExercise || s.Timer.Remaining != 60 {
		t.Fatalf("exercise 2 not armed: index %d timer %+v", s.Index, s.Timer)
	}

	h.clk.Advance(60 * time.Second)
	h.clk.Advance(time.Second)

	if s := h.eng.Snapshot(); s.State != StateCompleted {
		t.Fatalf("state = %s, want completed", s.State)
	}
	if tot := h.stats.Totals(ctx); tot.Workouts != 1 {
		t.Errorf("workouts = %d, want 1", tot.Workouts)
	}
	p, ok := h.programs.ActiveProgress(ctx)
	if !ok {
		t.Fatal("active progress missing")
	}
	if diff := cmp.Diff([]string{"w1"}, p.CompletedWorkouts); diff != "" {
		t.Errorf("completed workouts (-want +got):\n%s", diff)
	}
	if got := h.events.count(EventExerciseTick); got != 60 {
		t.Errorf("exerciseTick = %d, want 60", got)
	}
	ev, _ := h.events.last(EventSetConfirmed)
	if sc := ev.Data.(SetConfirmed); sc.ExerciseIndex != 1 || sc.Seconds != 60 {
		t.Errorf("timed set = %+v", sc)
	}
}

// TestQuitRecordsNothing verifies quitting after the first exercise
// leaves statistics and progress untouched, and that declining the
// prompt keeps the session running.
func TestQuitRecordsNothing(t *testing.T) {
	ctx := context.Background()
	var prompts []Prompt
	answer := quitButtonContinue
	h := newHarness(t, WithDialog(DialogFunc(func(_ context.Context, p Prompt) (string, bool) {
		prompts = append(prompts, p)
		if answer == "" {
			return "", false
		}
		return answer, true
	})))
	if _, err := h.programs.ActivateProgram(ctx, "weight_loss"); err != nil {
		t.Fatal(err)
	}
	h.start(t, "weight_loss", "w1")
	h.confirm(t, 3)
	h.clk.Advance(time.Second)
	if err := h.eng.SkipRest(ctx); err != nil {
		t.Fatal(err)
	}

	for _, a := range []string{quitButtonContinue, ""} {
		answer = a
		quit, err := h.eng.Quit(ctx)
		if err != nil || quit {
			t.Fatalf("Quit(answer %q) = %v, %v; want false", a, quit, err)
		}
		if s := h.eng.Snapshot(); s.State != StateActive {
			t.Fatalf("state after declined quit = %s", s.State)
		}
	}

	answer = quitButtonFinish
	quit, err := h.eng.Quit(ctx)
	if err != nil || !quit {
		t.Fatalf("Quit = %v, %v; want true", quit, err)
	}

	if s := h.eng.Snapshot(); s.State != StateAborted {
		t.Errorf("state = %s, want aborted", s.State)
	}
	if tot := h.stats.Totals(ctx); tot != (models.Totals{}) {
		t.Errorf("totals = %+v, want zero", tot)
	}
	p, _ := h.programs.ActiveProgress(ctx)
	if len(p.CompletedWorkouts) != 0 {
		t.Errorf("completed workouts = %v, want none", p.CompletedWorkouts)
	}
	if h.programs.completions != 0 {
		t.Errorf("completion calls = %d, want 0", h.programs.completions)
	}
	if h.events.count(EventSessionAborted) != 1 || h.events.count(EventNavigationRestored) != 1 {
		t.Errorf("events = %v", h.events.types())
	}

	want := QuitPrompt()
	if diff := cmp.Diff(want, prompts[0]); diff != "" {
		t.Errorf("prompt (-want +got):\n%s", diff)
	}
	if want.Title != "Finish workout?" || want.Buttons[0].Kind != ButtonDestructive || want.Buttons[1].Label != "Continue" {
		t.Errorf("quit prompt = %+v", want)
	}

	// The aborted session's timer must not fire anything afterwards.
	h.events.reset()
	h.clk.Advance(2 * time.Minute)
	if got := h.events.types(); len(got) != 0 {
		t.Errorf("events after abort = %v", got)
	}
}

// TestQuitAfterSessionFinished verifies a quit confirmed after the
// session already completed reports nothing aborted.
func TestQuitAfterSessionFinished(t *testing.T) {
	ctx := context.Background()
	var h *harness
	h = newHarness(t, WithDialog(DialogFunc(func(ctx context.Context, _ Prompt) (string, bool) {
		if err := h.eng.Finish(ctx); err != nil {
			t.Errorf("Finish: %v", err)
		}
		return quitButtonFinish, true
	})))
	h.start(t, "test", "three")

	quit, err := h.eng.Quit(ctx)
	if err != nil || quit {
		t.Fatalf("Quit = %v, %v; want false, nil", quit, err)
	}
	if s := h.eng.Snapshot(); s.State != StateCompleted {
		t.Errorf("state = %s, want completed", s.State)
	}
	if got := h.events.count(EventSessionAborted); got != 0 {
		t.Errorf("sessionAborted = %d, want 0", got)
	}
	if h.programs.completions != 1 {
		t.Errorf("completion calls = %d, want 1", h.programs.completions)
	}
}

// TestQuitWithOverridesDialog verifies a per-call dialog answers the quit
// prompt in place of the engine's own.
func TestQuitWithOverridesDialog(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, WithDialog(DialogFunc(func(context.Context, Prompt) (string, bool) {
		t.Error("engine dialog consulted")
		return "", false
	})))
	h.start(t, "test", "three")

	quit, err := h.eng.QuitWith(ctx, DialogFunc(func(context.Context, Prompt) (string, bool) {
		return quitButtonFinish, true
	}))
	if err != nil || !quit {
		t.Fatalf("QuitWith = %v, %v; want true", quit, err)
	}
	if s := h.eng.Snapshot(); s.State != StateAborted {
		t.Errorf("state = %s, want aborted", s.State)
	}
}

// TestPauseResume verifies pausing freezes an exercise countdown and is
// refused outside exercise mode.
func TestPauseResume(t *testing.T) {
	h := newHarness(t)
	h.start(t, "test", "three")

	if err := h.eng.PauseExerciseTimer(); !errors.Is(err, models.ErrInvalidState) {
		t.Errorf("pause on reps exercise error = %v, want ErrInvalidState", err)
	}

	if err := h.eng.AdvanceExercise(context.Background()); err != nil {
		t.Fatal(err)
	}
	h.clk.Advance(5 * time.Second)
	if err := h.eng.PauseExerciseTimer(); err != nil {
		t.Fatalf("pause: %v", err)
	}
	ev, _ := h.events.last(EventTimerPaused)
	if ev.Data.(TimerToggled).Label != "Resume" {
		t.Errorf("paused label = %+v", ev.Data)
	}
	h.clk.Advance(time.Minute)
	if s := h.eng.Snapshot(); s.Timer.Remaining != 15 || !s.Timer.Paused {
		t.Errorf("paused timer = %+v", s.Timer)
	}
	if err := h.eng.PauseExerciseTimer(); !errors.Is(err, models.ErrInvalidState) {
		t.Errorf("double pause error = %v", err)
	}
	if err := h.eng.ResumeExerciseTimer(); err != nil {
		t.Fatalf("resume: %v", err)
	}
	ev, _ = h.events.last(EventTimerResumed)
	if ev.Data.(TimerToggled).Label != "Pause" {
		t.Errorf("resumed label = %+v", ev.Data)
	}
	h.clk.Advance(15 * time.Second)

	cur, _ := h.eng.Snapshot().Current()
	if !cur.Done {
		t.Errorf("timed exercise not done after resume: %+v", cur)
	}
}

// TestManualConfirmOnTimedExercise verifies confirming a timed set early
// stops its countdown and records the elapsed seconds.
func TestManualConfirmOnTimedExercise(t *testing.T) {
	h := newHarness(t)
	h.start(t, "test", "three")
	if err := h.eng.AdvanceExercise(context.Background()); err != nil {
		t.Fatal(err)
	}
	h.clk.Advance(7 * time.Second)
	h.confirm(t, 1)

	ev, _ := h.events.last(EventSetConfirmed)
	if sc := ev.Data.(SetConfirmed); sc.Seconds != 7 {
		t.Errorf("seconds = %d, want 7", sc.Seconds)
	}
	if s := h.eng.Snapshot(); s.Timer.Kind != timer.KindNone {
		t.Errorf("timer still running: %+v", s.Timer)
	}
}

// TestRetreatKeepsSets verifies moving back shows the earlier exercise
// with its recorded sets.
func TestRetreatKeepsSets(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.start(t, "test", "three")

	if err := h.eng.RetreatExercise(); !errors.Is(err, models.ErrInvalidState) {
		t.Errorf("retreat at 0 error = %v, want ErrInvalidState", err)
	}

	h.confirm(t, 1)
	if err := h.eng.AdvanceExercise(ctx); err != nil {
		t.Fatal(err)
	}
	if err := h.eng.RetreatExercise(); err != nil {
		t.Fatal(err)
	}
	s := h.eng.Snapshot()
	cur, _ := s.Current()
	if s.Index != 0 || len(cur.Completed) != 1 || s.Set != 2 {
		t.Errorf("after retreat: index %d set %d completed %d", s.Index, s.Set, len(cur.Completed))
	}
	if s.Timer.Kind != timer.KindNone {
		t.Errorf("timed exercise countdown survived retreat: %+v", s.Timer)
	}

	// Advancing again starts exercise b from scratch.
	if err := h.eng.AdvanceExercise(ctx); err != nil {
		t.Fatal(err)
	}
	cur, _ = h.eng.Snapshot().Current()
	if len(cur.Completed) != 0 {
		t.Errorf("exercise b not reset: %+v", cur)
	}
}

// TestManualRest verifies a default-length rest and that the current
// exercise is shown again when it ends.
func TestManualRest(t *testing.T) {
	h := newHarness(t)
	h.start(t, "test", "three")

	if err := h.eng.StartRestInterval(0); err != nil {
		t.Fatal(err)
	}
	ev, _ := h.events.last(EventRestStarted)
	if ev.Data.(RestStarted).Seconds != 60 {
		t.Errorf("rest seconds = %+v, want 60", ev.Data)
	}
	if err := h.eng.AdjustReps(1); !errors.Is(err, models.ErrInvalidState) {
		t.Errorf("AdjustReps during rest error = %v", err)
	}
	if err := h.eng.ConfirmSet(); !errors.Is(err, models.ErrInvalidState) {
		t.Errorf("ConfirmSet during rest error = %v", err)
	}

	before := h.events.count(EventExerciseChanged)
	h.clk.Advance(time.Minute)
	if got := h.events.count(EventExerciseChanged); got != before+1 {
		t.Errorf("exerciseChanged = %d, want %d", got, before+1)
	}
	if s := h.eng.Snapshot(); s.Index != 0 || s.Timer.Kind != timer.KindNone {
		t.Errorf("after manual rest: %+v", s)
	}
}

// TestManualRestAfterLastSet verifies a manual rest taken once an
// exercise is finished still moves on to the next exercise, whether the
// rest runs out or is skipped.
func TestManualRestAfterLastSet(t *testing.T) {
	tests := []struct {
		name   string
		before time.Duration
		skip   bool
	}{
		{"pending advance", 0, false},
		{"pending advance skipped", 0, true},
		{"during exercise rest", delay, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			h.start(t, "test", "three")
			h.confirm(t, 2)
			h.clk.Advance(tt.before)

			if err := h.eng.StartRestInterval(5); err != nil {
				t.Fatal(err)
			}
			if tt.skip {
				if err := h.eng.SkipRest(context.Background()); err != nil {
					t.Fatal(err)
				}
			} else {
				h.clk.Advance(5 * time.Second)
			}

			s := h.eng.Snapshot()
			if s.Index != 1 || s.Timer.Kind != timer.KindExercise || s.Timer.Remaining != 20 {
				t.Errorf("after rest: index %d timer %+v, want index 1 running 20s", s.Index, s.Timer)
			}
			h.clk.Advance(10 * time.Minute)
			if s := h.eng.Snapshot(); s.Index != 2 {
				t.Errorf("index after timed exercise = %d, want 2", s.Index)
			}
		})
	}
}

// TestManualRestKeepsExerciseCountdown verifies a manual rest in the middle
// of a timed exercise resumes its countdown instead of starting over.
func TestManualRestKeepsExerciseCountdown(t *testing.T) {
	h := newHarness(t)
	h.start(t, "test", "three")
	if err := h.eng.AdvanceExercise(context.Background()); err != nil {
		t.Fatal(err)
	}
	h.clk.Advance(15 * time.Second)

	if err := h.eng.StartRestInterval(3); err != nil {
		t.Fatal(err)
	}
	h.clk.Advance(3 * time.Second)
	if s := h.eng.Snapshot(); s.Timer != (timer.State{Kind: timer.KindExercise, Remaining: 5, Total: 20}) {
		t.Errorf("timer after rest = %+v, want 5 of 20 remaining", s.Timer)
	}

	h.clk.Advance(5 * time.Second)
	cur, _ := h.eng.Snapshot().Current()
	if !cur.Done {
		t.Errorf("exercise not done after remaining 5s: %+v", cur)
	}
}

// TestNoSession covers actions against an idle engine and Reset.
func TestNoSession(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	checks := map[string]error{
		"AdjustReps":      h.eng.AdjustReps(1),
		"ConfirmSet":      h.eng.ConfirmSet(),
		"AdvanceExercise": h.eng.AdvanceExercise(ctx),
		"SkipRest":        h.eng.SkipRest(ctx),
		"Finish":          h.eng.Finish(ctx),
		"Abort":           h.eng.Abort(ctx),
	}
	for name, err := range checks {
		if !errors.Is(err, models.ErrNoSession) {
			t.Errorf("%s error = %v, want ErrNoSession", name, err)
		}
	}

	h.start(t, "test", "three")
	if err := h.eng.Reset(); !errors.Is(err, models.ErrSessionActive) {
		t.Errorf("Reset while active error = %v", err)
	}
	if err := h.eng.Abort(ctx); err != nil {
		t.Fatal(err)
	}
	if err := h.eng.Abort(ctx); err != nil {
		t.Errorf("second Abort: %v", err)
	}
	if err := h.eng.Reset(); err != nil {
		t.Fatal(err)
	}
	if s := h.eng.Snapshot(); s.State != StateIdle {
		t.Errorf("state after reset = %s", s.State)
	}
}

// TestBroadcaster verifies fan-out, drop-on-full and unsubscribe.
func TestBroadcaster(t *testing.T) {
	b := NewBroadcaster(2)
	a, cancelA := b.Subscribe()
	c, cancelC := b.Subscribe()
	defer cancelC()

	for i := 0; i < 3; i++ {
		b.Emit(Event{Type: EventRestTick})
	}
	if len(a) != 2 || len(c) != 2 {
		t.Errorf("buffered = %d, %d; want 2, 2", len(a), len(c))
	}

	cancelA()
	cancelA()
	b.Emit(Event{Type: EventRestEnded})
	for range a {
	}
	if len(c) != 2 {
		t.Errorf("subscriber c = %d events, want 2 (full)", len(c))
	}
}
