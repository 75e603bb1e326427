package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/claude/repflow/internal/catalog"
	"github.com/claude/repflow/internal/clock"
	"github.com/claude/repflow/internal/config"
	"github.com/claude/repflow/internal/mcp"
	"github.com/claude/repflow/internal/models"
	"github.com/claude/repflow/internal/profile"
	"github.com/claude/repflow/internal/server"
	"github.com/claude/repflow/internal/session"
	"github.com/claude/repflow/internal/stats"
	"github.com/claude/repflow/internal/storage"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"tailscale.com/tsnet"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	migrateOnly := flag.Bool("migrate-only", false, "run migrations and exit")
	flag.Parse()

	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	log.Info("RepFlow starting", "version", Version)

	// Load config
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	// Local store is always the fallback
	local, err := storage.OpenLocal(cfg.Storage.LocalDir)
	if err != nil {
		log.Error("failed to open local store", "dir", cfg.Storage.LocalDir, "error", err)
		os.Exit(1)
	}
	defer local.Close()

	// Primary store
	var primary storage.Store
	var mirror storage.Store = local
	switch cfg.Storage.Primary {
	case config.PrimaryPostgres:
		dsn := cfg.Storage.Database.DSN()
		if err := storage.RunMigrations(dsn, "migrations"); err != nil {
			log.Error("migration failed", "error", err)
			os.Exit(1)
		}
		log.Info("migrations applied")

		if *migrateOnly {
			log.Info("migrate-only: exiting")
			return
		}

		db, err := storage.New(ctx, dsn)
		if err != nil {
			log.Error("failed to connect database", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		primary, mirror = db, db
		log.Info("database connected")
	case config.PrimaryHTTP:
		primary = storage.NewHTTPStore(cfg.Storage.HTTP.URL, cfg.Storage.HTTP.APIKey)
		log.Info("using remote storage", "url", cfg.Storage.HTTP.URL)
	default:
		log.Info("using local storage only", "dir", cfg.Storage.LocalDir)
	}
	if *migrateOnly {
		log.Info("migrate-only: nothing to migrate for storage", "primary", cfg.Storage.Primary)
		return
	}

	compression, err := storage.ParseCompression(cfg.Storage.Compression)
	if err != nil {
		log.Error("invalid storage compression", "error", err)
		os.Exit(1)
	}
	gw := storage.NewGateway(primary, local, log,
		storage.WithChunkSize(cfg.Storage.ChunkSize),
		storage.WithCompression(compression),
	)

	// Catalog: file, then stored copy, then built-in
	programs := catalog.Default()
	if cfg.Catalog.File != "" {
		programs, err = catalog.LoadFile(cfg.Catalog.File)
		if err != nil {
			log.Error("failed to load catalog", "file", cfg.Catalog.File, "error", err)
			os.Exit(1)
		}
	}
	repo, err := catalog.New(gw, programs, log, catalog.WithAlwaysAvailable(cfg.Catalog.AlwaysAvailable))
	if err != nil {
		log.Error("invalid catalog", "error", err)
		os.Exit(1)
	}
	if cfg.Catalog.File != "" {
		if err := repo.Save(ctx); err != nil {
			log.Warn("catalog not persisted", "error", err)
		}
	} else if _, err := repo.Load(ctx); err != nil {
		log.Warn("stored catalog unreadable, using built-in", "error", err)
	}
	log.Info("catalog ready", "programs", len(repo.Programs()))

	// Services
	agg := stats.New(gw, log)
	agg.OnUpdate(func(t models.Totals) {
		log.Info("statistics updated", "workouts", t.Workouts, "minutes", t.Minutes, "calories", t.Calories)
	})
	profiles := profile.New(gw, agg, clock.Real(), log)
	events := session.NewBroadcaster(64)
	engine := session.New(repo, agg,
		session.WithSink(events),
		session.WithFeedback(session.SinkFeedback{Sink: events, Clock: clock.Real()}),
		session.WithLogger(log),
		session.WithConfig(session.Config{
			AdvanceDelay: cfg.Session.AdvanceDelay,
			DefaultRest:  cfg.Session.DefaultRest,
		}),
	)

	mcpSrv := mcp.New(&mcp.Local{Catalog: repo, Stats: agg, Engine: engine}, Version, log)

	// Create server
	srv := server.New(server.Deps{
		Store:    mirror,
		Catalog:  repo,
		Engine:   engine,
		Events:   events,
		Stats:    agg,
		Profiles: profiles,
		MCP:      mcpserver.NewStreamableHTTPServer(mcpSrv),
		APIKey:   cfg.Auth.APIKey,
	}, log)

	// Start server: tsnet or plain HTTP
	var listener net.Listener
	var tsServer *tsnet.Server

	if cfg.Tailscale.Enabled {
		tsServer = &tsnet.Server{
			Hostname: cfg.Tailscale.Hostname,
			Dir:      cfg.Tailscale.StateDir,
		}
		if err := tsServer.Start(); err != nil {
			log.Error("tsnet start failed", "error", err)
			os.Exit(1)
		}
		defer tsServer.Close()

		lc, err := tsServer.LocalClient()
		if err != nil {
			log.Error("tsnet local client failed", "error", err)
			os.Exit(1)
		}
		srv.SetTailscale(lc)

		listener, err = tsServer.Listen("tcp", ":80")
		if err != nil {
			log.Error("tsnet listen failed", "error", err)
			os.Exit(1)
		}
		log.Info("tsnet server starting", "hostname", cfg.Tailscale.Hostname)
	} else {
		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		listener, err = net.Listen("tcp", addr)
		if err != nil {
			log.Error("listen failed", "addr", addr, "error", err)
			os.Exit(1)
		}
		log.Info("server starting", "addr", addr, "mode", "dev (no tailscale)")
	}

	httpSrv := &http.Server{Handler: srv}

	go func() {
		if err := httpSrv.Serve(listener); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	log.Info("shutting down", "signal", sig)

	// A running session is abandoned without credit.
	if engine.Snapshot().State == session.StateActive {
		if err := engine.Abort(context.Background()); err != nil {
			log.Warn("session abort failed", "error", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", "error", err)
	}
	log.Info("server stopped")
}
