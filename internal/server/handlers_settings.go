package server

import (
	"net/http"
	"time"

	"github.com/claude/repflow/internal/models"
	"github.com/claude/repflow/internal/stats"
)

type weightRequest struct {
	// Date is optional; empty means now.
	Date   string  `json:"date"`
	Weight float64 `json:"weight"`
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Stats.Totals(r.Context()))
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	period, ok := periodParam(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.Stats.Summary(r.Context(), period))
}

func (s *Server) handleWeightHistory(w http.ResponseWriter, r *http.Request) {
	period, ok := periodParam(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.Stats.QueryWeightHistory(r.Context(), period))
}

func (s *Server) handleAddWeight(w http.ResponseWriter, r *http.Request) {
	var req weightRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	var date time.Time
	if req.Date != "" {
		var err error
		date, err = parseDate(req.Date)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid date: " + err.Error()})
			return
		}
	}
	if err := s.Stats.AddWeight(r.Context(), date, req.Weight); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

func (s *Server) handleWorkoutCounts(w http.ResponseWriter, r *http.Request) {
	period, ok := periodParam(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.Stats.WorkoutCounts(r.Context(), period))
}

func (s *Server) handleWorkoutLog(w http.ResponseWriter, r *http.Request) {
	entries := s.Stats.WorkoutLog(r.Context())
	if entries == nil {
		entries = []models.WorkoutLogEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	p, ok := s.Profiles.Get(r.Context())
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no profile"})
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handlePutProfile(w http.ResponseWriter, r *http.Request) {
	var p models.Profile
	if !decodeJSON(w, r, &p) {
		return
	}
	saved, err := s.Profiles.Save(r.Context(), p)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

// periodParam parses ?period=, writing a 400 when it is unknown.
func periodParam(w http.ResponseWriter, r *http.Request) (stats.Period, bool) {
	p, err := stats.ParsePeriod(r.URL.Query().Get("period"))
	if err != nil {
		writeError(w, err)
		return "", false
	}
	return p, true
}

// parseDate accepts RFC 3339 or YYYY-MM-DD.
func parseDate(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err == nil {
		return t, nil
	}
	return time.Parse(time.DateOnly, s)
}
