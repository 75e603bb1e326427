// Package profile stores the user's personal data.
package profile

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/claude/repflow/internal/clock"
	"github.com/claude/repflow/internal/models"
	"github.com/claude/repflow/internal/storage"
)

// WeightRecorder receives the weight sample taken when a profile is saved.
type WeightRecorder interface {
	AddWeight(ctx context.Context, date time.Time, kg float64) error
}

// Service reads and writes the profile key.
type Service struct {
	store   *storage.Gateway
	weights WeightRecorder
	clock   clock.Clock
	log     *slog.Logger
}

// New creates a Service. weights may be nil.
func New(store *storage.Gateway, weights WeightRecorder, c clock.Clock, log *slog.Logger) *Service {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	if c == nil {
		c = clock.Real()
	}
	return &Service{store: store, weights: weights, clock: c, log: log}
}

// Get returns the stored profile.
func (s *Service) Get(ctx context.Context) (models.Profile, bool) {
	var p models.Profile
	ok, err := s.store.LoadJSON(ctx, storage.KeyProfile, &p)
	if err != nil {
		s.log.Warn("ignoring unreadable profile", "error", err)
		return models.Profile{}, false
	}
	return p, ok
}

// Save validates and stores p. When the weight changed, a sample is
// appended to the weight history.
func (s *Service) Save(ctx context.Context, p models.Profile) (models.Profile, error) {
	p.Name = strings.TrimSpace(p.Name)
	if err := Validate(p); err != nil {
		return models.Profile{}, err
	}
	prev, _ := s.Get(ctx)

	p.UpdatedAt = s.clock.Now()
	if err := s.store.SaveJSON(ctx, storage.KeyProfile, p); err != nil {
		return models.Profile{}, fmt.Errorf("saving profile: %w", err)
	}

	if p.WeightKg > 0 && p.WeightKg != prev.WeightKg && s.weights != nil {
		if err := s.weights.AddWeight(ctx, p.UpdatedAt, p.WeightKg); err != nil {
			s.log.Error("weight sample not recorded", "weight", p.WeightKg, "error", err)
		}
	}
	s.log.Info("profile saved", "name", p.Name)
	return p, nil
}

// Validate checks the optional numeric fields against plausible ranges.
func Validate(p models.Profile) error {
	if p.Name == "" {
		return fmt.Errorf("name is required: %w", models.ErrInvalid)
	}
	if p.Age != 0 && (p.Age < 10 || p.Age > 120) {
		return fmt.Errorf("age %d outside 10-120: %w", p.Age, models.ErrInvalid)
	}
	if p.HeightCm != 0 && (p.HeightCm < 100 || p.HeightCm > 250) {
		return fmt.Errorf("height %.0f cm outside 100-250: %w", p.HeightCm, models.ErrInvalid)
	}
	if p.WeightKg != 0 && (p.WeightKg < 20 || p.WeightKg > 400) {
		return fmt.Errorf("weight %.1f kg outside 20-400: %w", p.WeightKg, models.ErrInvalid)
	}
	return nil
}
