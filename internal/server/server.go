package server

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/claude/repflow/internal/catalog"
	"github.com/claude/repflow/internal/profile"
	"github.com/claude/repflow/internal/session"
	"github.com/claude/repflow/internal/stats"
	"github.com/claude/repflow/internal/storage"
)

// Deps are the components the HTTP API serves.
type Deps struct {
	// Store backs the storage API that HTTPStore clients talk to. It is
	// a raw backend, never the gateway, so a remote client cannot loop
	// back into itself. Nil disables the storage routes.
	Store    storage.Store
	Catalog  *catalog.Repository
	Engine   *session.Engine
	Events   *session.Broadcaster
	Stats    *stats.Aggregator
	Profiles *profile.Service
	// MCP, when set, is mounted at /mcp.
	MCP    http.Handler
	APIKey string
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	Deps
	log    *slog.Logger
	whois  WhoIsClient
	router chi.Router
}

// New creates a new Server with all routes configured.
func New(d Deps, log *slog.Logger) *Server {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	s := &Server{
		Deps:   d,
		log:    log,
		router: chi.NewRouter(),
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// SetTailscale identifies callers through the tailnet instead of the
// local dev identity.
func (s *Server) SetTailscale(lc WhoIsClient) {
	s.whois = lc
}

func (s *Server) routes() {
	s.router.Use(RequestLogging(s.log))
	s.router.Use(CORS)
	s.router.Use(s.identify)

	s.router.Get("/api/v1/me", s.handleMe)

	// Storage mirror (API key required)
	if s.Store != nil {
		s.router.Route("/api/v1/storage", func(r chi.Router) {
			r.Use(APIKeyAuth(s.APIKey))
			r.Get("/", s.handleListKeys)
			r.Get("/{key}", s.handleGetValue)
			r.Put("/{key}", s.handlePutValue)
			r.Delete("/{key}", s.handleDeleteValue)
		})
	}

	s.router.Get("/api/v1/programs", s.handleListPrograms)
	s.router.Get("/api/v1/programs/{id}", s.handleGetProgram)
	s.router.Post("/api/v1/programs/{id}/activate", s.handleActivateProgram)
	s.router.Get("/api/v1/progress", s.handleProgress)
	s.router.Delete("/api/v1/progress", s.handleDeactivate)
	s.router.Get("/api/v1/progress/completed", s.handleCompletedPrograms)

	s.router.Route("/api/v1/session", func(r chi.Router) {
		r.Get("/", s.handleSnapshot)
		r.Delete("/", s.handleResetSession)
		r.Get("/events", s.handleSessionEvents)
		r.Post("/start", s.handleStartSession)
		r.Post("/reps", s.handleAdjustReps)
		r.Post("/set", s.sessionAction(func(r *http.Request) error { return s.Engine.ConfirmSet() }))
		r.Post("/advance", s.sessionAction(func(r *http.Request) error { return s.Engine.AdvanceExercise(detach(r)) }))
		r.Post("/retreat", s.sessionAction(func(r *http.Request) error { return s.Engine.RetreatExercise() }))
		r.Post("/rest", s.handleStartRest)
		r.Post("/rest/skip", s.sessionAction(func(r *http.Request) error { return s.Engine.SkipRest(detach(r)) }))
		r.Post("/pause", s.sessionAction(func(r *http.Request) error { return s.Engine.PauseExerciseTimer() }))
		r.Post("/resume", s.sessionAction(func(r *http.Request) error { return s.Engine.ResumeExerciseTimer() }))
		r.Post("/finish", s.sessionAction(func(r *http.Request) error { return s.Engine.Finish(detach(r)) }))
		r.Post("/abort", s.sessionAction(func(r *http.Request) error { return s.Engine.Abort(detach(r)) }))
		r.Get("/quit", s.handleQuitPrompt)
		r.Post("/quit", s.handleQuit)
	})

	s.router.Get("/api/v1/stats", s.handleStats)
	s.router.Get("/api/v1/stats/summary", s.handleSummary)
	s.router.Get("/api/v1/stats/weight", s.handleWeightHistory)
	s.router.Post("/api/v1/stats/weight", s.handleAddWeight)
	s.router.Get("/api/v1/stats/workouts", s.handleWorkoutCounts)
	s.router.Get("/api/v1/stats/log", s.handleWorkoutLog)

	s.router.Get("/api/v1/profile", s.handleGetProfile)
	s.router.Put("/api/v1/profile", s.handlePutProfile)

	// Bulk import (API key required)
	s.router.Route("/api/v1/import", func(r chi.Router) {
		r.Use(APIKeyAuth(s.APIKey))
		r.Post("/catalog", s.handleImportCatalog)
		r.Post("/weights", s.handleImportWeights)
		r.Post("/workouts", s.handleImportWorkouts)
	})

	if s.MCP != nil {
		s.router.Handle("/mcp", s.MCP)
	}
}
