package mcp

import (
	"context"
	"time"

	"github.com/claude/repflow/internal/catalog"
	"github.com/claude/repflow/internal/models"
	"github.com/claude/repflow/internal/session"
	"github.com/claude/repflow/internal/stats"
)

// DataSource abstracts the data layer for MCP tools. Both Local (in
// process) and HTTPClient (remote via REST API) satisfy this interface.
type DataSource interface {
	ListPrograms(ctx context.Context) ([]models.Program, error)
	GetProgram(ctx context.Context, id string) (models.Program, error)
	// ActiveProgress returns nil when no program is active.
	ActiveProgress(ctx context.Context) (*models.ActiveProgress, error)
	CompletedPrograms(ctx context.Context) ([]models.CompletedProgram, error)
	Totals(ctx context.Context) (models.Totals, error)
	Summary(ctx context.Context, period stats.Period) (stats.PeriodSummary, error)
	WeightHistory(ctx context.Context, period stats.Period) ([]stats.WeightPoint, error)
	WorkoutCounts(ctx context.Context, period stats.Period) ([]stats.Bucket, error)
	WorkoutLog(ctx context.Context) ([]models.WorkoutLogEntry, error)
	AddWeight(ctx context.Context, date time.Time, kg float64) error
	Session(ctx context.Context) (session.Snapshot, error)
}

// Local serves MCP queries straight from the in-process services.
type Local struct {
	Catalog *catalog.Repository
	Stats   *stats.Aggregator
	Engine  *session.Engine
}

// Compile-time check: Local satisfies DataSource.
var _ DataSource = (*Local)(nil)

func (l *Local) ListPrograms(context.Context) ([]models.Program, error) {
	return l.Catalog.Programs(), nil
}

func (l *Local) GetProgram(_ context.Context, id string) (models.Program, error) {
	return l.Catalog.GetProgram(id)
}

func (l *Local) ActiveProgress(ctx context.Context) (*models.ActiveProgress, error) {
	p, ok := l.Catalog.ActiveProgress(ctx)
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (l *Local) CompletedPrograms(ctx context.Context) ([]models.CompletedProgram, error) {
	return l.Catalog.CompletedPrograms(ctx), nil
}

func (l *Local) Totals(ctx context.Context) (models.Totals, error) {
	return l.Stats.Totals(ctx), nil
}

func (l *Local) Summary(ctx context.Context, period stats.Period) (stats.PeriodSummary, error) {
	return l.Stats.Summary(ctx, period), nil
}

func (l *Local) WeightHistory(ctx context.Context, period stats.Period) ([]stats.WeightPoint, error) {
	return l.Stats.QueryWeightHistory(ctx, period), nil
}

func (l *Local) WorkoutCounts(ctx context.Context, period stats.Period) ([]stats.Bucket, error) {
	return l.Stats.WorkoutCounts(ctx, period), nil
}

func (l *Local) WorkoutLog(ctx context.Context) ([]models.WorkoutLogEntry, error) {
	return l.Stats.WorkoutLog(ctx), nil
}

func (l *Local) AddWeight(ctx context.Context, date time.Time, kg float64) error {
	return l.Stats.AddWeight(ctx, date, kg)
}

func (l *Local) Session(context.Context) (session.Snapshot, error) {
	if l.Engine == nil {
		return session.Snapshot{}, nil
	}
	return l.Engine.Snapshot(), nil
}
