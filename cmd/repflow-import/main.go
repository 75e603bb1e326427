package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/claude/repflow/internal/catalog"
	"github.com/claude/repflow/internal/config"
	"github.com/claude/repflow/internal/importer"
	"github.com/claude/repflow/internal/stats"
	"github.com/claude/repflow/internal/storage"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	dir := flag.String("path", "", "directory with catalog*.yaml, weights*.csv and workouts*.csv exports (required)")
	dryRun := flag.Bool("dry-run", false, "report counts without writing to storage")
	flag.Parse()

	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	if *dir == "" {
		fmt.Fprintf(os.Stderr, "Usage: repflow-import -config config.yaml -path /path/to/exports [-dry-run]\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	// Verify export directory exists
	info, err := os.Stat(*dir)
	if err != nil || !info.IsDir() {
		log.Error("export path does not exist or is not a directory", "path", *dir)
		os.Exit(1)
	}

	// Load config
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	if *dryRun {
		log.Info("DRY RUN mode, nothing will be written to storage")
	}

	local, err := storage.OpenLocal(cfg.Storage.LocalDir)
	if err != nil {
		log.Error("failed to open local store", "error", err)
		os.Exit(1)
	}
	defer local.Close()

	var primary storage.Store
	switch cfg.Storage.Primary {
	case config.PrimaryPostgres:
		dsn := cfg.Storage.Database.DSN()
		if err := storage.RunMigrations(dsn, "migrations"); err != nil {
			log.Error("migration failed", "error", err)
			os.Exit(1)
		}
		db, err := storage.New(ctx, dsn)
		if err != nil {
			log.Error("failed to connect database", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		primary = db
		log.Info("database connected")
	case config.PrimaryHTTP:
		primary = storage.NewHTTPStore(cfg.Storage.HTTP.URL, cfg.Storage.HTTP.APIKey)
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

	repo, err := catalog.New(gw, catalog.Default(), log, catalog.WithAlwaysAvailable(cfg.Catalog.AlwaysAvailable))
	if err != nil {
		log.Error("invalid catalog", "error", err)
		os.Exit(1)
	}
	if _, err := repo.Load(ctx); err != nil {
		log.Warn("stored catalog unreadable", "error", err)
	}

	// Run import
	imp := importer.New(repo, stats.New(gw, log), log, *dryRun)
	st, err := imp.Import(ctx, *dir)
	if err != nil {
		log.Error("import failed", "error", err)
		printStats(log, st)
		os.Exit(1)
	}

	printStats(log, st)
	log.Info("import complete")
}

func printStats(log *slog.Logger, st *importer.Stats) {
	if st == nil {
		return
	}
	log.Info("import stats",
		"files_processed", st.FilesProcessed,
		"files_skipped", st.FilesSkipped,
		"files_errored", st.FilesErrored,
		"programs_loaded", st.ProgramsLoaded,
		"weights_inserted", st.WeightsInserted,
		"weights_duplicated", st.WeightsDuplicated,
		"workouts_inserted", st.WorkoutsInserted,
		"workouts_duplicated", st.WorkoutsDuplicated,
	)
	if len(st.RejectedRows) > 0 {
		log.Info("rejected rows", "rows", st.RejectedRows)
	}
}
