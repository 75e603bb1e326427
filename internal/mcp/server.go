// Package mcp exposes programs, progress, statistics and the live
// session to MCP clients.
package mcp

import (
	"log/slog"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// New creates an MCP server with all tools and resources registered.
func New(ds DataSource, version string, log *slog.Logger) *server.MCPServer {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	s := server.NewMCPServer("RepFlow", version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
		server.WithInstructions("RepFlow workout server. Browse training programs, check program progress, query workout statistics and weight history, and inspect the running workout session."),
	)

	h := &handlers{ds: ds, log: log, now: time.Now}

	// Tools
	s.AddTools(
		server.ServerTool{Tool: toolListPrograms, Handler: h.listPrograms},
		server.ServerTool{Tool: toolGetProgram, Handler: h.getProgram},
		server.ServerTool{Tool: toolGetProgress, Handler: h.getProgress},
		server.ServerTool{Tool: toolGetStatistics, Handler: h.getStatistics},
		server.ServerTool{Tool: toolGetWeightHistory, Handler: h.getWeightHistory},
		server.ServerTool{Tool: toolGetWorkoutCounts, Handler: h.getWorkoutCounts},
		server.ServerTool{Tool: toolGetWorkoutLog, Handler: h.getWorkoutLog},
		server.ServerTool{Tool: toolLogWeight, Handler: h.logWeight},
		server.ServerTool{Tool: toolGetSession, Handler: h.getSession},
	)

	// Resources
	s.AddResources(
		server.ServerResource{Resource: resSession, Handler: h.sessionResource},
		server.ServerResource{Resource: resProgress, Handler: h.progressResource},
		server.ServerResource{Resource: resCatalog, Handler: h.catalogResource},
	)

	return s
}

// handlers holds dependencies for MCP tool/resource handlers.
type handlers struct {
	ds  DataSource
	log *slog.Logger
	now func() time.Time
}

// --- Resource definitions ---

var resSession = mcp.NewResource(
	"repflow://session",
	"Current Session",
	mcp.WithResourceDescription("Snapshot of the running workout session: state, current exercise, set and timer"),
	mcp.WithMIMEType("application/json"),
)

var resProgress = mcp.NewResource(
	"repflow://progress",
	"Program Progress",
	mcp.WithResourceDescription("The active program with its completed workouts, plus the history of finished programs"),
	mcp.WithMIMEType("application/json"),
)

var resCatalog = mcp.NewResource(
	"repflow://catalog",
	"Program Catalog",
	mcp.WithResourceDescription("All training programs with their workouts and exercises"),
	mcp.WithMIMEType("application/json"),
)
