// Package session drives a guided workout: the exercise and set cursor,
// rest intervals between exercises, duration timers, and the two ways a
// session ends (finished and credited, or quit with nothing recorded).
package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/claude/repflow/internal/catalog"
	"github.com/claude/repflow/internal/clock"
	"github.com/claude/repflow/internal/models"
	"github.com/claude/repflow/internal/timer"
)

// Programs is the catalog side of a session.
type Programs interface {
	GetWorkout(programID, workoutID string) (models.Workout, error)
	RecordWorkoutCompletion(ctx context.Context, programID, workoutID string) catalog.Completion
}

// Recorder receives completed workouts for statistics.
type Recorder interface {
	RecordCompletedWorkout(ctx context.Context, programID, workoutID string, minutes, calories int) (models.Totals, error)
}

// Config tunes engine timing.
type Config struct {
	// AdvanceDelay separates the last confirmed set of an exercise from
	// the move to rest or the next exercise.
	AdvanceDelay time.Duration
	// DefaultRest applies to manual rest intervals given no length.
	DefaultRest int
}

// DefaultConfig returns the standard timing.
func DefaultConfig() Config {
	return Config{AdvanceDelay: 800 * time.Millisecond, DefaultRest: models.DefaultRestSeconds}
}

// Engine owns at most one session. Every action and timer callback runs
// under one mutex, so they apply in a single order. Storage writes for a
// finished workout happen after the mutex is released.
type Engine struct {
	programs Programs
	stats    Recorder
	clock    clock.Clock
	timer    *timer.Controller
	sink     Sink
	feedback Feedback
	dialog   Dialog
	log      *slog.Logger
	cfg      Config

	mu   sync.Mutex
	sess *session

	// timerGen is the generation of the countdown this engine last
	// started; callbacks from any other generation are stale.
	timerGen uint64
	delay    clock.Timer
	delayGen uint64
}

type session struct {
	id        string
	programID string
	workout   models.Workout
	exercises []*liveExercise
	idx       int
	set       int
	startedAt time.Time
	endedAt   time.Time
	state     State

	// mode mirrors the kind of countdown the engine started; the
	// controller holds its remaining time.
	mode      timer.Kind
	afterRest func() *completion

	// advancing is set while an exercise-boundary transition is pending.
	advancing bool
}

func (s *session) current() *liveExercise { return s.exercises[s.idx] }
func (s *session) last() bool             { return s.idx == len(s.exercises)-1 }

// completion is the storage work of a finished session.
type completion struct {
	sessionID string
	programID string
	workoutID string
	minutes   int
	calories  int
}

// Option configures an Engine.
type Option func(*Engine)

func WithClock(c clock.Clock) Option   { return func(e *Engine) { e.clock = c } }
func WithSink(s Sink) Option           { return func(e *Engine) { e.sink = s } }
func WithFeedback(f Feedback) Option   { return func(e *Engine) { e.feedback = f } }
func WithDialog(d Dialog) Option       { return func(e *Engine) { e.dialog = d } }
func WithLogger(l *slog.Logger) Option { return func(e *Engine) { e.log = l } }
func WithConfig(cfg Config) Option     { return func(e *Engine) { e.cfg = cfg } }

// New creates an idle Engine.
func New(programs Programs, stats Recorder, opts ...Option) *Engine {
	e := &Engine{
		programs: programs,
		stats:    stats,
		clock:    clock.Real(),
		sink:     SinkFunc(func(Event) {}),
		feedback: noFeedback{},
		log:      slog.New(slog.DiscardHandler),
		cfg:      DefaultConfig(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.cfg.DefaultRest <= 0 {
		e.cfg.DefaultRest = models.DefaultRestSeconds
	}
	e.timer = timer.New(e.clock)
	return e
}

func (e *Engine) emit(t EventType, data any) {
	ev := Event{Type: t, At: e.clock.Now(), Data: data}
	if e.sess != nil {
		ev.SessionID = e.sess.id
	}
	e.sink.Emit(ev)
}

// active returns the running session or an error naming why there is none.
func (e *Engine) active() (*session, error) {
	switch {
	case e.sess == nil:
		return nil, models.ErrNoSession
	case e.sess.state != StateActive:
		return nil, fmt.Errorf("session is %s: %w", e.sess.state, models.ErrInvalidState)
	}
	return e.sess, nil
}

// Start begins a session on a copy of the workout. A finished or quit
// session still held by the engine is replaced.
func (e *Engine) Start(ctx context.Context, programID, workoutID string) (Snapshot, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.sess != nil && e.sess.state == StateActive {
		return Snapshot{}, models.ErrSessionActive
	}
	w, err := e.programs.GetWorkout(programID, workoutID)
	if err != nil {
		e.feedback.Notify(CueError)
		return Snapshot{}, fmt.Errorf("starting workout: %w", err)
	}
	if len(w.Exercises) == 0 {
		e.feedback.Notify(CueError)
		return Snapshot{}, fmt.Errorf("starting workout %s: %w", workoutID, models.ErrEmptyWorkout)
	}

	s := &session{
		id:        uuid.NewString(),
		programID: programID,
		workout:   w,
		set:       1,
		startedAt: e.clock.Now(),
		state:     StateActive,
		mode:      timer.KindNone,
	}
	for _, ex := range w.Exercises {
		s.exercises = append(s.exercises, newLiveExercise(ex))
	}
	e.sess = s

	e.log.Info("session started", "session", s.id, "program", programID, "workout", workoutID,
		"exercises", len(s.exercises))
	e.emit(EventSessionStarted, SessionStarted{ProgramID: programID, Workout: w})
	e.emit(EventNavigationLocked, nil)
	e.enterExerciseLocked()
	return e.snapshotLocked(), nil
}

// enterExerciseLocked shows the current exercise and arms its countdown
// when it is duration based and still has sets to do.
func (e *Engine) enterExerciseLocked() {
	e.showExerciseLocked()
	if ex := e.sess.current(); ex.Timed() && !ex.done() {
		e.armExerciseTimerLocked()
	}
}

func (e *Engine) showExerciseLocked() {
	s := e.sess
	e.emit(EventExerciseChanged, ExerciseChanged{
		Index:    s.idx,
		Total:    len(s.exercises),
		Set:      s.set,
		Exercise: s.current().view(),
	})
}

func (e *Engine) armExerciseTimerLocked() {
	d := e.sess.current().Duration
	e.resumeExerciseTimerLocked(d, d)
}

// resumeExerciseTimerLocked runs the current exercise's countdown from
// remaining seconds out of total.
func (e *Engine) resumeExerciseTimerLocked(total, remaining int) {
	e.sess.mode = timer.KindExercise
	e.timerGen = e.timer.StartFrom(timer.KindExercise, total, remaining, timer.Hooks{
		OnTick:   e.onExerciseTick,
		OnExpire: e.onExerciseExpire,
	})
}

// stopTimerLocked releases whatever countdown runs and forgets any rest
// continuation.
func (e *Engine) stopTimerLocked() {
	e.timer.Stop()
	e.timerGen = 0
	if s := e.sess; s != nil {
		s.mode = timer.KindNone
		s.afterRest = nil
	}
}

func (e *Engine) cancelDelayLocked() {
	if e.delay != nil {
		e.delay.Stop()
		e.delay = nil
	}
	e.delayGen++
	if e.sess != nil {
		e.sess.advancing = false
	}
}

func (e *Engine) onExerciseTick(t timer.Tick) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if t.Gen != e.timerGen || e.sess == nil {
		return
	}
	e.emit(EventExerciseTick, ExerciseTick{Remaining: t.Remaining, Total: t.Total})
}

func (e *Engine) onExerciseExpire(gen uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if gen != e.timerGen || e.sess == nil || e.sess.state != StateActive {
		return
	}
	e.timerGen = 0
	e.sess.mode = timer.KindNone
	e.feedback.Notify(CueSuccess)
	e.feedback.Haptic(HapticMedium)
	e.recordSetLocked()
}

// AdjustReps changes the rep counter of the current exercise, never
// below 1. Not allowed during rest or once the exercise is done.
func (e *Engine) AdjustReps(delta int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	s, err := e.active()
	if err != nil {
		return err
	}
	ex := s.current()
	if s.mode == timer.KindRest || ex.done() {
		return fmt.Errorf("adjusting reps: %w", models.ErrInvalidState)
	}
	ex.reps = max(ex.reps+delta, 1)
	e.emit(EventRepsChanged, RepsChanged{Index: s.idx, Reps: ex.reps})
	e.feedback.Haptic(HapticLight)
	return nil
}

// ConfirmSet records the current set. Confirming a set that is already
// recorded changes nothing. After the last set of the exercise the move
// to rest or the next exercise follows after the advance delay.
func (e *Engine) ConfirmSet() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	s, err := e.active()
	if err != nil {
		return err
	}
	if s.mode == timer.KindRest {
		return fmt.Errorf("confirming set: %w", models.ErrInvalidState)
	}
	e.recordSetLocked()
	return nil
}

func (e *Engine) recordSetLocked() {
	s := e.sess
	ex := s.current()
	if ex.hasSet(s.set) {
		return
	}

	rec := SetRecord{Set: s.set, At: e.clock.Now()}
	if ex.Timed() {
		rec.Seconds = ex.Duration
		if s.mode == timer.KindExercise {
			rec.Seconds = ex.Duration - e.timer.State().Remaining
			e.stopTimerLocked()
		}
	} else {
		rec.Reps = ex.reps
	}
	ex.completed = append(ex.completed, rec)
	e.emit(EventSetConfirmed, SetConfirmed{
		ExerciseIndex: s.idx,
		Set:           rec.Set,
		Reps:          rec.Reps,
		Seconds:       rec.Seconds,
	})

	if ex.done() {
		e.scheduleBoundaryLocked()
		return
	}
	s.set++
	if ex.Timed() {
		e.armExerciseTimerLocked()
	}
}

func (e *Engine) scheduleBoundaryLocked() {
	s := e.sess
	if s.advancing {
		return
	}
	e.cancelDelayLocked()
	s.advancing = true
	gen := e.delayGen
	e.delay = e.clock.AfterFunc(e.cfg.AdvanceDelay, func() { e.onBoundary(gen) })
}

func (e *Engine) onBoundary(gen uint64) {
	e.mu.Lock()
	if gen != e.delayGen || e.sess == nil || e.sess.state != StateActive {
		e.mu.Unlock()
		return
	}
	e.delay = nil
	e.sess.advancing = false
	job := e.boundaryLocked()
	e.mu.Unlock()

	if job != nil {
		e.complete(context.Background(), job)
	}
}

// boundaryLocked leaves a finished exercise: the last one finishes the
// session, any other rests and then advances.
func (e *Engine) boundaryLocked() *completion {
	s := e.sess
	if s.last() {
		return e.finishLocked()
	}
	e.startRestLocked(s.current().RestSeconds(), e.advanceLocked)
	return nil
}

// AdvanceExercise moves to the next exercise, or finishes the session
// from the last one. A running rest or pending transition is cancelled.
func (e *Engine) AdvanceExercise(ctx context.Context) error {
	e.mu.Lock()
	if _, err := e.active(); err != nil {
		e.mu.Unlock()
		return err
	}
	e.cancelDelayLocked()
	if e.sess.mode == timer.KindRest {
		e.stopTimerLocked()
		e.emit(EventRestEnded, RestEnded{Skipped: true})
	}
	job := e.advanceLocked()
	e.mu.Unlock()

	if job != nil {
		e.complete(ctx, job)
	}
	return nil
}

func (e *Engine) advanceLocked() *completion {
	s := e.sess
	if s.last() {
		return e.finishLocked()
	}
	e.stopTimerLocked()
	s.idx++
	s.set = 1
	s.current().reset()
	e.enterExerciseLocked()
	return nil
}

// RetreatExercise moves back one exercise, keeping the sets already
// recorded on it.
func (e *Engine) RetreatExercise() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	s, err := e.active()
	if err != nil {
		return err
	}
	if s.idx == 0 {
		return fmt.Errorf("retreating from first exercise: %w", models.ErrInvalidState)
	}
	e.cancelDelayLocked()
	if s.mode == timer.KindRest {
		e.emit(EventRestEnded, RestEnded{Skipped: true})
	}
	e.stopTimerLocked()
	s.idx--
	ex := s.current()
	s.set = min(len(ex.completed)+1, ex.SetCount())
	e.enterExerciseLocked()
	return nil
}

// StartRestInterval starts a manual rest. A non-positive length uses the
// default. When it ends the session carries on as it would have without
// the rest: a finished exercise advances, a rest already running keeps
// its continuation, and a running exercise countdown picks up where it
// stopped. Otherwise the current exercise is shown again.
func (e *Engine) StartRestInterval(seconds int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, err := e.active(); err != nil {
		return err
	}
	then := e.resumeAfterRestLocked()
	e.cancelDelayLocked()
	e.startRestLocked(seconds, then)
	return nil
}

// resumeAfterRestLocked captures what a manual rest should hand back to.
func (e *Engine) resumeAfterRestLocked() func() *completion {
	s := e.sess
	st := e.timer.State()
	switch {
	case s.advancing || s.current().done():
		return e.advanceLocked
	case s.mode == timer.KindRest && s.afterRest != nil:
		return s.afterRest
	case s.mode == timer.KindExercise && st.Remaining > 0:
		return func() *completion {
			e.showExerciseLocked()
			e.resumeExerciseTimerLocked(st.Total, st.Remaining)
			return nil
		}
	}
	return func() *completion {
		e.enterExerciseLocked()
		return nil
	}
}

func (e *Engine) startRestLocked(seconds int, then func() *completion) {
	s := e.sess
	if seconds <= 0 {
		seconds = e.cfg.DefaultRest
	}
	e.stopTimerLocked()
	s.mode = timer.KindRest
	s.afterRest = then
	e.timerGen = e.timer.Start(timer.KindRest, seconds, timer.Hooks{
		OnTick:   e.onRestTick,
		OnExpire: e.onRestExpire,
	})
	e.emit(EventRestStarted, RestStarted{Seconds: seconds})
}

func (e *Engine) onRestTick(t timer.Tick) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if t.Gen != e.timerGen || e.sess == nil {
		return
	}
	e.emit(EventRestTick, RestTick{Remaining: t.Remaining, Percent: t.Percent, EndingSoon: t.EndingSoon})
}

func (e *Engine) onRestExpire(gen uint64) {
	e.mu.Lock()
	if gen != e.timerGen || e.sess == nil || e.sess.state != StateActive || e.sess.mode != timer.KindRest {
		e.mu.Unlock()
		return
	}
	e.feedback.Notify(CueSuccess)
	job := e.endRestLocked(false)
	e.mu.Unlock()

	if job != nil {
		e.complete(context.Background(), job)
	}
}

// endRestLocked clears rest mode and runs the continuation exactly once.
func (e *Engine) endRestLocked(skipped bool) *completion {
	then := e.sess.afterRest
	e.stopTimerLocked()
	e.emit(EventRestEnded, RestEnded{Skipped: skipped})
	if then == nil {
		return nil
	}
	return then()
}

// SkipRest ends the current rest early and runs what its expiry would
// have run.
func (e *Engine) SkipRest(ctx context.Context) error {
	e.mu.Lock()
	s, err := e.active()
	if err != nil {
		e.mu.Unlock()
		return err
	}
	if s.mode != timer.KindRest {
		e.mu.Unlock()
		return fmt.Errorf("skipping rest: %w", models.ErrInvalidState)
	}
	e.feedback.Haptic(HapticMedium)
	job := e.endRestLocked(true)
	e.mu.Unlock()

	if job != nil {
		e.complete(ctx, job)
	}
	return nil
}

// PauseExerciseTimer freezes a running exercise countdown.
func (e *Engine) PauseExerciseTimer() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	s, err := e.active()
	if err != nil {
		return err
	}
	if s.mode != timer.KindExercise || !e.timer.Pause() {
		return fmt.Errorf("pausing timer: %w", models.ErrInvalidState)
	}
	e.emit(EventTimerPaused, TimerToggled{Label: "Resume"})
	e.feedback.Notify(CueWarning)
	return nil
}

// ResumeExerciseTimer continues a paused exercise countdown.
func (e *Engine) ResumeExerciseTimer() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	s, err := e.active()
	if err != nil {
		return err
	}
	if s.mode != timer.KindExercise || !e.timer.Resume() {
		return fmt.Errorf("resuming timer: %w", models.ErrInvalidState)
	}
	e.emit(EventTimerResumed, TimerToggled{Label: "Pause"})
	e.feedback.Notify(CueSuccess)
	return nil
}

// Finish completes the session and credits the workout. Calling it on a
// session that already ended does nothing.
func (e *Engine) Finish(ctx context.Context) error {
	e.mu.Lock()
	if e.sess == nil {
		e.mu.Unlock()
		return models.ErrNoSession
	}
	job := e.finishLocked()
	e.mu.Unlock()

	if job != nil {
		e.complete(ctx, job)
	}
	return nil
}

// teardownLocked releases every timer the session holds.
func (e *Engine) teardownLocked() {
	e.cancelDelayLocked()
	e.stopTimerLocked()
}

func (e *Engine) finishLocked() *completion {
	s := e.sess
	if s == nil || s.state != StateActive {
		return nil
	}
	e.teardownLocked()
	s.state = StateCompleted
	s.endedAt = e.clock.Now()
	return &completion{
		sessionID: s.id,
		programID: s.programID,
		workoutID: s.workout.ID,
		minutes:   s.workout.Minutes,
		calories:  s.workout.Calories,
	}
}

// complete writes a finished session through to the catalog and the
// statistics, then announces it. Runs without the engine lock.
func (e *Engine) complete(ctx context.Context, job *completion) {
	res := e.programs.RecordWorkoutCompletion(ctx, job.programID, job.workoutID)
	totals, statsErr := e.stats.RecordCompletedWorkout(ctx, job.programID, job.workoutID, job.minutes, job.calories)

	e.log.Info("session completed", "session", job.sessionID, "program", job.programID,
		"workout", job.workoutID, "program_completed", res.Archived)

	e.mu.Lock()
	defer e.mu.Unlock()
	if statsErr == nil {
		e.emitAs(job.sessionID, EventStatsUpdated, totals)
	}
	e.emitAs(job.sessionID, EventSessionCompleted, SessionCompleted{
		ProgramID:        job.programID,
		WorkoutID:        job.workoutID,
		Minutes:          job.minutes,
		Calories:         job.calories,
		ProgramCompleted: res.Archived,
	})
	e.feedback.Notify(CueSuccess)
	e.emitAs(job.sessionID, EventNavigationRestored, nil)
	e.emitAs(job.sessionID, EventReturnToPrograms, nil)
}

// emitAs emits for a session that may no longer be the engine's current one.
func (e *Engine) emitAs(sessionID string, t EventType, data any) {
	e.sink.Emit(Event{Type: t, SessionID: sessionID, At: e.clock.Now(), Data: data})
}

// Quit asks for confirmation and aborts the session if the user chooses
// to finish. It reports whether the session was aborted, which is false
// when it ended some other way while the prompt was open. Without a
// dialog the quit is treated as confirmed.
func (e *Engine) Quit(ctx context.Context) (bool, error) {
	return e.QuitWith(ctx, e.dialog)
}

// QuitWith is Quit answered by the given dialog instead of the engine's.
func (e *Engine) QuitWith(ctx context.Context, dialog Dialog) (bool, error) {
	e.mu.Lock()
	_, err := e.active()
	e.mu.Unlock()
	if err != nil {
		return false, err
	}

	if dialog != nil {
		id, ok := dialog.Confirm(ctx, QuitPrompt())
		if !ok || id != quitButtonFinish {
			return false, nil
		}
	}
	return e.abort()
}

// Abort ends the session without recording anything. Aborting a session
// that already ended does nothing.
func (e *Engine) Abort(ctx context.Context) error {
	_, err := e.abort()
	return err
}

// abort reports whether it moved an active session to aborted.
func (e *Engine) abort() (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := e.sess
	if s == nil {
		return false, models.ErrNoSession
	}
	if s.state != StateActive {
		return false, nil
	}
	e.teardownLocked()
	s.state = StateAborted
	s.endedAt = e.clock.Now()

	done := 0
	for _, ex := range s.exercises {
		if ex.done() {
			done++
		}
	}
	e.log.Info("session aborted", "session", s.id, "program", s.programID, "workout", s.workout.ID,
		"exercises_done", done)
	e.emit(EventSessionAborted, SessionAborted{ExercisesDone: done})
	e.emit(EventNavigationRestored, nil)
	e.emit(EventReturnToPrograms, nil)
	return true, nil
}

// Reset discards an ended session and returns the engine to idle.
func (e *Engine) Reset() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.sess != nil && e.sess.state == StateActive {
		return models.ErrSessionActive
	}
	e.sess = nil
	return nil
}

// Snapshot returns a copy of the session for rendering.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

func (e *Engine) snapshotLocked() Snapshot {
	s := e.sess
	if s == nil {
		return Snapshot{State: StateIdle, Timer: timer.State{Kind: timer.KindNone}}
	}
	snap := Snapshot{
		ID:          s.id,
		State:       s.state,
		ProgramID:   s.programID,
		WorkoutID:   s.workout.ID,
		WorkoutName: s.workout.Name,
		Index:       s.idx,
		Total:       len(s.exercises),
		Set:         s.set,
		StartedAt:   s.startedAt,
		EndedAt:     s.endedAt,
		Timer:       e.timer.State(),
		Exercises:   make([]ExerciseView, 0, len(s.exercises)),
	}
	for _, ex := range s.exercises {
		snap.Exercises = append(snap.Exercises, ex.view())
	}
	return snap
}
