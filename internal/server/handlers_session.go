package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"slices"

	"github.com/claude/repflow/internal/models"
	"github.com/claude/repflow/internal/session"
)

type startRequest struct {
	ProgramID string `json:"programId"`
	WorkoutID string `json:"workoutId"`
}

type repsRequest struct {
	Delta int `json:"delta"`
}

type restRequest struct {
	Seconds int `json:"seconds"`
}

// quitRequest answers the quit prompt. An empty button means the prompt
// was dismissed.
type quitRequest struct {
	Button string `json:"button"`
}

type quitResponse struct {
	Quit    bool             `json:"quit"`
	Session session.Snapshot `json:"session"`
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Engine.Snapshot())
}

func (s *Server) handleResetSession(w http.ResponseWriter, r *http.Request) {
	if err := s.Engine.Reset(); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.Engine.Snapshot())
}

func (s *Server) handleStartSession(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	snap, err := s.Engine.Start(r.Context(), req.ProgramID, req.WorkoutID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, snap)
}

func (s *Server) handleAdjustReps(w http.ResponseWriter, r *http.Request) {
	var req repsRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := s.Engine.AdjustReps(req.Delta); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.Engine.Snapshot())
}

func (s *Server) handleStartRest(w http.ResponseWriter, r *http.Request) {
	var req restRequest
	if r.ContentLength != 0 && !decodeJSON(w, r, &req) {
		return
	}
	if err := s.Engine.StartRestInterval(req.Seconds); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.Engine.Snapshot())
}

func (s *Server) handleQuitPrompt(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, session.QuitPrompt())
}

// handleQuit applies the button chosen on the quit prompt.
func (s *Server) handleQuit(w http.ResponseWriter, r *http.Request) {
	var req quitRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Button != "" && !slices.ContainsFunc(session.QuitPrompt().Buttons, func(b session.Button) bool {
		return b.ID == req.Button
	}) {
		writeError(w, fmt.Errorf("quit button %q: %w", req.Button, models.ErrInvalid))
		return
	}
	quit, err := s.Engine.QuitWith(detach(r), session.DialogFunc(func(context.Context, session.Prompt) (string, bool) {
		return req.Button, req.Button != ""
	}))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, quitResponse{Quit: quit, Session: s.Engine.Snapshot()})
}

// sessionAction wraps a body-less engine call and answers with the
// resulting snapshot.
func (s *Server) sessionAction(fn func(r *http.Request) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := fn(r); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, s.Engine.Snapshot())
	}
}

// handleSessionEvents streams engine events as server-sent events. The
// first message is the current snapshot.
func (s *Server) handleSessionEvents(w http.ResponseWriter, r *http.Request) {
	if s.Events == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "event stream not configured"})
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "streaming not supported"})
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	events, unsubscribe := s.Events.Subscribe()
	defer unsubscribe()

	fmt.Fprintf(w, "event: snapshot\ndata: %s\n\n", mustJSON(s.Engine.Snapshot()))
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, mustJSON(ev))
			flusher.Flush()
		}
	}
}

func mustJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return `{}`
	}
	return string(b)
}
