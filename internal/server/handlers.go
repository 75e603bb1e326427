package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/claude/repflow/internal/models"
	"github.com/claude/repflow/internal/storage"
)

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, userInfoFromContext(r))
}

// --- Storage mirror ---

type storageValue struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

func storageKey(r *http.Request) (string, error) {
	key, err := url.PathUnescape(chi.URLParam(r, "key"))
	if err != nil || key == "" {
		return "", fmt.Errorf("invalid key: %w", models.ErrInvalid)
	}
	return key, nil
}

func (s *Server) handleListKeys(w http.ResponseWriter, r *http.Request) {
	lister, ok := s.Store.(storage.Lister)
	if !ok {
		writeJSON(w, http.StatusNotImplemented, map[string]string{"error": "store cannot list keys"})
		return
	}
	keys, err := lister.Keys(r.Context(), r.URL.Query().Get("prefix"))
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if keys == nil {
		keys = []string{}
	}
	writeJSON(w, http.StatusOK, keys)
}

func (s *Server) handleGetValue(w http.ResponseWriter, r *http.Request) {
	key, err := storageKey(r)
	if err != nil {
		writeError(w, err)
		return
	}
	value, ok, err := s.Store.Get(r.Context(), key)
	if err != nil {
		s.log.Error("storage read failed", "key", key, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "key not found"})
		return
	}
	writeJSON(w, http.StatusOK, storageValue{Key: key, Value: value})
}

func (s *Server) handlePutValue(w http.ResponseWriter, r *http.Request) {
	key, err := storageKey(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var body storageValue
	if !decodeJSON(w, r, &body) {
		return
	}
	if err := s.Store.Set(r.Context(), key, body.Value); err != nil {
		s.log.Error("storage write failed", "key", key, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeleteValue(w http.ResponseWriter, r *http.Request) {
	key, err := storageKey(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := s.Store.Set(r.Context(), key, ""); err != nil {
		s.log.Error("storage delete failed", "key", key, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- Programs and progress ---

func (s *Server) handleListPrograms(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Catalog.Programs())
}

func (s *Server) handleGetProgram(w http.ResponseWriter, r *http.Request) {
	p, err := s.Catalog.GetProgram(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleActivateProgram(w http.ResponseWriter, r *http.Request) {
	progress, err := s.Catalog.ActivateProgram(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, progress)
}

func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	progress, ok := s.Catalog.ActiveProgress(r.Context())
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no active program"})
		return
	}
	writeJSON(w, http.StatusOK, progress)
}

func (s *Server) handleDeactivate(w http.ResponseWriter, r *http.Request) {
	if err := s.Catalog.DeactivateProgram(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCompletedPrograms(w http.ResponseWriter, r *http.Request) {
	history := s.Catalog.CompletedPrograms(r.Context())
	if history == nil {
		history = []models.CompletedProgram{}
	}
	writeJSON(w, http.StatusOK, history)
}

// --- Helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// errorStatus maps domain errors to HTTP status codes.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrConflict),
		errors.Is(err, models.ErrSessionActive),
		errors.Is(err, models.ErrInvalidState),
		errors.Is(err, models.ErrNoSession):
		return http.StatusConflict
	case errors.Is(err, models.ErrInvalid), errors.Is(err, models.ErrEmptyWorkout):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrStorage):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, errorStatus(err), map[string]string{"error": err.Error()})
}

// decodeJSON reads the request body into v. On failure it writes a 400
// and returns false.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return false
	}
	return true
}

// detach returns the request context without its cancellation. Session
// completion writes run under it.
func detach(r *http.Request) context.Context {
	return context.WithoutCancel(r.Context())
}
