package server

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/claude/repflow/internal/importer"
)

// maxImportBytes caps an uncompressed import body.
const maxImportBytes = 32 << 20

func (s *Server) handleImportCatalog(w http.ResponseWriter, r *http.Request) {
	s.runImport(w, r, "catalog", (*importer.Importer).ImportCatalog)
}

func (s *Server) handleImportWeights(w http.ResponseWriter, r *http.Request) {
	s.runImport(w, r, "weights", (*importer.Importer).ImportWeights)
}

func (s *Server) handleImportWorkouts(w http.ResponseWriter, r *http.Request) {
	s.runImport(w, r, "workouts", (*importer.Importer).ImportWorkouts)
}

// runImport feeds the request body, decoded per Content-Encoding, to one
// importer phase and answers with its counters. ?dry_run=true parses
// without writing.
func (s *Server) runImport(w http.ResponseWriter, r *http.Request, source string,
	fn func(*importer.Importer, context.Context, io.Reader) error) {
	dryRun, _ := strconv.ParseBool(r.URL.Query().Get("dry_run"))

	body, err := importer.NewReader(r.Body, r.Header.Get("Content-Encoding"))
	if err != nil {
		writeJSON(w, http.StatusUnsupportedMediaType, map[string]string{"error": err.Error()})
		return
	}
	defer body.Close()

	start := time.Now()
	imp := importer.New(s.Catalog, s.Stats, s.log, dryRun)
	if err := fn(imp, r.Context(), io.LimitReader(body, maxImportBytes)); err != nil {
		s.log.Error("import failed", "source", source, "error", err)
		writeError(w, err)
		return
	}
	st := imp.Stats()
	s.log.Info("import complete", "source", source, "dry_run", dryRun,
		"duration", time.Since(start).String(), "rejected", len(st.RejectedRows))
	writeJSON(w, http.StatusOK, st)
}
