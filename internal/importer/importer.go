// Package importer backfills a RepFlow store from an export directory:
// a YAML program catalog, a weight CSV and a workout log CSV, each
// optionally zstd or lz4 compressed.
package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/claude/repflow/internal/catalog"
	"github.com/claude/repflow/internal/models"
)

// Stats tracks import progress.
type Stats struct {
	FilesProcessed int `json:"filesProcessed"`
	FilesSkipped   int `json:"filesSkipped"`
	FilesErrored   int `json:"filesErrored"`

	ProgramsLoaded     int `json:"programsLoaded"`
	WeightsInserted    int `json:"weightsInserted"`
	WeightsDuplicated  int `json:"weightsDuplicated"`
	WorkoutsInserted   int `json:"workoutsInserted"`
	WorkoutsDuplicated int `json:"workoutsDuplicated"`

	RejectedRows []string `json:"rejectedRows,omitempty"`
}

// Catalog receives an imported program catalog.
type Catalog interface {
	Replace(ctx context.Context, programs []models.Program) error
}

// History receives imported weight samples and workout log entries.
type History interface {
	MergeWeights(ctx context.Context, samples []models.Sample) (int, error)
	MergeWorkoutLog(ctx context.Context, entries []models.WorkoutLogEntry) (int, error)
}

// Importer reads export files and merges them into storage.
type Importer struct {
	catalog Catalog
	history History
	log     *slog.Logger
	dryRun  bool
	stats   Stats
}

// New creates a new Importer. A nil catalog skips catalog files.
func New(cat Catalog, history History, log *slog.Logger, dryRun bool) *Importer {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Importer{catalog: cat, history: history, log: log, dryRun: dryRun}
}

// Stats returns the counters accumulated so far.
func (imp *Importer) Stats() Stats { return imp.stats }

// Import processes every recognised file in dir in three phases:
// catalogs, then weights, then workouts. Files are matched by name
// prefix: catalog*.yaml, weights*.csv, workouts*.csv, with an optional
// .zst or .lz4 suffix. A file that fails is counted and logged; the
// rest of the directory is still imported.
func (imp *Importer) Import(ctx context.Context, dir string) (*Stats, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return &imp.stats, fmt.Errorf("reading import dir: %w", err)
	}

	var catalogs, weights, workouts []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		base := strings.TrimSuffix(strings.TrimSuffix(name, ".zst"), ".lz4")
		path := filepath.Join(dir, name)
		switch {
		case strings.HasPrefix(base, "catalog") && (strings.HasSuffix(base, ".yaml") || strings.HasSuffix(base, ".yml")):
			catalogs = append(catalogs, path)
		case strings.HasPrefix(base, "weights") && strings.HasSuffix(base, ".csv"):
			weights = append(weights, path)
		case strings.HasPrefix(base, "workouts") && strings.HasSuffix(base, ".csv"):
			workouts = append(workouts, path)
		default:
			imp.stats.FilesSkipped++
		}
	}
	sort.Strings(catalogs)
	sort.Strings(weights)
	sort.Strings(workouts)

	phases := []struct {
		name  string
		files []string
		fn    func(context.Context, io.Reader) error
	}{
		{"catalog", catalogs, imp.ImportCatalog},
		{"weights", weights, imp.ImportWeights},
		{"workouts", workouts, imp.ImportWorkouts},
	}
	for _, ph := range phases {
		for _, path := range ph.files {
			if err := ctx.Err(); err != nil {
				return &imp.stats, err
			}
			if err := imp.importFile(ctx, path, ph.fn); err != nil {
				imp.stats.FilesErrored++
				imp.log.Warn("import file failed", "phase", ph.name, "file", path, "error", err)
				continue
			}
			imp.stats.FilesProcessed++
		}
	}
	return &imp.stats, nil
}

func (imp *Importer) importFile(ctx context.Context, path string, fn func(context.Context, io.Reader) error) error {
	r, err := openFile(path)
	if err != nil {
		return err
	}
	defer r.Close()
	return fn(ctx, r)
}

// ImportCatalog replaces the program catalog with a YAML document.
func (imp *Importer) ImportCatalog(ctx context.Context, r io.Reader) error {
	if imp.catalog == nil {
		return errors.New("no catalog to import into")
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("reading catalog: %w", err)
	}
	programs, err := catalog.Parse(data)
	if err != nil {
		return err
	}
	if !imp.dryRun {
		if err := imp.catalog.Replace(ctx, programs); err != nil {
			return err
		}
	}
	imp.stats.ProgramsLoaded += len(programs)
	imp.log.Info("imported catalog", "programs", len(programs), "dry_run", imp.dryRun)
	return nil
}

// ImportWeights merges a date,weight CSV into the weight history. A
// header row is optional. Dates are YYYY-MM-DD or RFC 3339.
func (imp *Importer) ImportWeights(ctx context.Context, r io.Reader) error {
	rows, err := readRows(r, 2)
	if err != nil {
		return err
	}

	var samples []models.Sample
	for i, row := range rows {
		if i == 0 && isHeader(row[0]) {
			continue
		}
		date, err := parseDate(row[0])
		if err != nil {
			imp.reject(i, row, err)
			continue
		}
		kg, err := strconv.ParseFloat(strings.TrimSpace(row[1]), 64)
		if err != nil || kg <= 0 {
			imp.reject(i, row, fmt.Errorf("weight %q: %w", row[1], models.ErrInvalid))
			continue
		}
		samples = append(samples, models.Sample{Date: date, Value: kg})
	}

	added := len(samples)
	if !imp.dryRun {
		if added, err = imp.history.MergeWeights(ctx, samples); err != nil {
			return err
		}
	}
	imp.stats.WeightsInserted += added
	imp.stats.WeightsDuplicated += len(samples) - added
	imp.log.Info("imported weights", "rows", len(samples), "inserted", added)
	return nil
}

// ImportWorkouts merges a date,program,workout,minutes,calories CSV
// into the workout log. Running totals are not changed.
func (imp *Importer) ImportWorkouts(ctx context.Context, r io.Reader) error {
	rows, err := readRows(r, 5)
	if err != nil {
		return err
	}

	var entries []models.WorkoutLogEntry
	for i, row := range rows {
		if i == 0 && isHeader(row[0]) {
			continue
		}
		e, err := workoutEntry(row)
		if err != nil {
			imp.reject(i, row, err)
			continue
		}
		entries = append(entries, e)
	}

	added := len(entries)
	if !imp.dryRun {
		if added, err = imp.history.MergeWorkoutLog(ctx, entries); err != nil {
			return err
		}
	}
	imp.stats.WorkoutsInserted += added
	imp.stats.WorkoutsDuplicated += len(entries) - added
	imp.log.Info("imported workouts", "rows", len(entries), "inserted", added)
	return nil
}

func workoutEntry(row []string) (models.WorkoutLogEntry, error) {
	date, err := parseDate(row[0])
	if err != nil {
		return models.WorkoutLogEntry{}, err
	}
	programID := strings.TrimSpace(row[1])
	workoutID := strings.TrimSpace(row[2])
	if programID == "" || workoutID == "" {
		return models.WorkoutLogEntry{}, fmt.Errorf("missing program or workout: %w", models.ErrInvalid)
	}
	minutes, err := strconv.Atoi(strings.TrimSpace(row[3]))
	if err != nil || minutes < 0 {
		return models.WorkoutLogEntry{}, fmt.Errorf("minutes %q: %w", row[3], models.ErrInvalid)
	}
	calories, err := strconv.Atoi(strings.TrimSpace(row[4]))
	if err != nil || calories < 0 {
		return models.WorkoutLogEntry{}, fmt.Errorf("calories %q: %w", row[4], models.ErrInvalid)
	}
	return models.WorkoutLogEntry{
		Date:      date,
		ProgramID: programID,
		WorkoutID: workoutID,
		Minutes:   minutes,
		Calories:  calories,
	}, nil
}

func (imp *Importer) reject(i int, row []string, err error) {
	msg := fmt.Sprintf("row %d (%s): %v", i+1, strings.Join(row, ","), err)
	imp.stats.RejectedRows = append(imp.stats.RejectedRows, msg)
	imp.log.Debug("rejected row", "row", i+1, "error", err)
}

// readRows reads a CSV whose rows each have at least the given number of fields.
func readRows(r io.Reader, fields int) ([][]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.Comment = '#'
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading csv: %w: %w", models.ErrInvalid, err)
	}
	for i, row := range rows {
		if len(row) < fields {
			return nil, fmt.Errorf("csv row %d has %d fields, want %d: %w", i+1, len(row), fields, models.ErrInvalid)
		}
	}
	return rows, nil
}

func isHeader(field string) bool {
	_, err := parseDate(field)
	return err != nil && strings.EqualFold(strings.TrimSpace(field), "date")
}

// parseDate accepts RFC 3339 or a plain date, read as UTC midnight.
func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("date %q: %w", s, models.ErrInvalid)
	}
	return t, nil
}
