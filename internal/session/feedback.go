package session

import (
	"context"

	"github.com/claude/repflow/internal/clock"
)

// Haptic is the strength of a haptic cue.
type Haptic string

const (
	HapticLight  Haptic = "light"
	HapticMedium Haptic = "medium"
	HapticHeavy  Haptic = "heavy"
)

// Cue is a notification-style feedback signal.
type Cue string

const (
	CueSuccess Cue = "success"
	CueWarning Cue = "warning"
	CueError   Cue = "error"
)

// Feedback is the fire-and-forget haptic and notification sink. Like
// Sink, it is called with the engine lock held.
type Feedback interface {
	Haptic(Haptic)
	Notify(Cue)
}

type noFeedback struct{}

func (noFeedback) Haptic(Haptic) {}
func (noFeedback) Notify(Cue)    {}

// SinkFeedback turns cues into haptic and notification events on Sink,
// for clients that play them back.
type SinkFeedback struct {
	Sink  Sink
	Clock clock.Clock
}

func (f SinkFeedback) Haptic(h Haptic) { f.emit(EventHaptic, h) }
func (f SinkFeedback) Notify(c Cue)    { f.emit(EventNotification, c) }

func (f SinkFeedback) emit(t EventType, data any) {
	c := f.Clock
	if c == nil {
		c = clock.Real()
	}
	f.Sink.Emit(Event{Type: t, At: c.Now(), Data: data})
}

// ButtonKind styles a dialog button.
type ButtonKind string

const (
	ButtonDefault     ButtonKind = "default"
	ButtonDestructive ButtonKind = "destructive"
	ButtonCancel      ButtonKind = "cancel"
)

// Button is one dialog choice.
type Button struct {
	ID    string     `json:"id"`
	Kind  ButtonKind `json:"type"`
	Label string     `json:"text"`
}

// Prompt is a modal confirmation request.
type Prompt struct {
	Title   string   `json:"title"`
	Message string   `json:"message"`
	Buttons []Button `json:"buttons"`
}

// Dialog shows a prompt and reports the chosen button id. ok is false
// when the user dismissed it without choosing.
type Dialog interface {
	Confirm(ctx context.Context, p Prompt) (id string, ok bool)
}

// DialogFunc adapts a function to Dialog.
type DialogFunc func(ctx context.Context, p Prompt) (string, bool)

func (f DialogFunc) Confirm(ctx context.Context, p Prompt) (string, bool) { return f(ctx, p) }

const (
	quitButtonFinish   = "finish"
	quitButtonContinue = "continue"
)

var quitPrompt = Prompt{
	Title:   "Finish workout?",
	Message: "Progress from this session will not be saved.",
	Buttons: []Button{
		{ID: quitButtonFinish, Kind: ButtonDestructive, Label: "Finish"},
		{ID: quitButtonContinue, Kind: ButtonCancel, Label: "Continue"},
	},
}

// QuitPrompt returns the confirmation shown before quitting a session.
func QuitPrompt() Prompt {
	p := quitPrompt
	p.Buttons = append([]Button(nil), quitPrompt.Buttons...)
	return p
}
