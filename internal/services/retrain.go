// Package services – RetrainService
//
// This file implements the retraining pipeline that turns the accumulated
// recommendation log into the next model generation:
//
//	Idle → Collecting → Fitting → Validating → {Activated | RolledBack}
//
// Exactly one run may hold the pipeline at a time; concurrent requests are
// rejected with ErrRetrainInProgress rather than queued, because a second
// run over the same rows would produce the same generation anyway. A failed
// or rolled-back run leaves the active generation untouched.
package services

import (
	"context"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/carebook/go-booking-backend/internal/domain"
	"github.com/carebook/go-booking-backend/internal/feature"
	"github.com/carebook/go-booking-backend/internal/model"
	"github.com/carebook/go-booking-backend/internal/repo"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Pipeline states, reported by State for operator visibility.
const (
	StateIdle       = "idle"
	StateCollecting = "collecting"
	StateFitting    = "fitting"
	StateValidating = "validating"
)

// RetrainService fits, validates, persists, and activates model generations.
type RetrainService struct {
	// DB is the database handle for log reads and generation writes.
	DB *gorm.DB
	// Models is the registry the new generation is published through.
	Models *model.Registry

	// MinRows is the minimum dataset size; smaller sets skip the retrain.
	MinRows int
	// MaxRows caps how many log rows one run reads, newest first.
	MaxRows int
	// RegressionMargin is how much accuracy a new generation may lose
	// against the active one before it is rolled back.
	RegressionMargin float64
	// HoldoutRatio and Seed are passed through to model.Fit.
	HoldoutRatio float64
	Seed         int64

	mu    sync.Mutex
	state string
}

// NewRetrainService constructs a RetrainService with conservative defaults.
func NewRetrainService(db *gorm.DB, models *model.Registry) *RetrainService {
	return &RetrainService{
		DB:               db,
		Models:           models,
		MinRows:          50,
		MaxRows:          5000,
		RegressionMargin: 0.02,
		HoldoutRatio:     0.2,
		Seed:             1,
		state:            StateIdle,
	}
}

// State reports the pipeline's current phase.
func (s *RetrainService) State() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *RetrainService) setState(st string) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

// Retrain builds a labeled dataset from all log rows created at or before
// asOf, fits a new generation, validates it against the active one, and —
// on success — persists and atomically activates it. In-flight Recommend
// calls see either the old generation or the new one in full, never a
// partial swap.
//
// Outcomes:
//   - (generation, nil): the new generation is active.
//   - (nil, ErrInsufficientData): dataset below MinRows; nothing changed.
//   - (nil, ErrModelRegression): new generation underperformed; rolled back.
//   - (nil, ErrRetrainInProgress): another run holds the pipeline.
func (s *RetrainService) Retrain(ctx context.Context, asOf time.Time) (*model.Generation, error) {
	if !s.mu.TryLock() {
		return nil, ErrRetrainInProgress
	}
	busy := s.state != StateIdle
	if !busy {
		s.state = StateCollecting
	}
	s.mu.Unlock()
	if busy {
		return nil, ErrRetrainInProgress
	}
	defer s.setState(StateIdle)

	tr := otel.Tracer("services/RetrainService")
	ctx, span := tr.Start(ctx, "Retrain",
		trace.WithAttributes(attribute.String("as_of", asOf.UTC().Format(time.RFC3339))),
	)
	defer span.End()

	// Collecting
	total, positives, err := repo.TrainingStats(ctx, s.DB, asOf)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Int64("rows", total), attribute.Int64("positives", positives))
	if total < int64(s.MinRows) {
		return nil, ErrInsufficientData
	}

	rows, err := repo.TrainingRows(ctx, s.DB, asOf, s.MaxRows)
	if err != nil {
		return nil, err
	}
	samples := make([]model.Sample, 0, len(rows))
	for _, r := range rows {
		samples = append(samples, model.Sample{
			Features: featureFromLog(r),
			Chosen:   r.Chosen,
		})
	}

	// Fitting
	s.setState(StateFitting)
	version, err := repo.NextModelVersion(ctx, s.DB)
	if err != nil {
		return nil, err
	}
	gen, err := model.Fit(samples, version, time.Now().UTC(), model.FitConfig{
		Seed:         s.Seed,
		HoldoutRatio: s.HoldoutRatio,
	})
	if err != nil {
		return nil, err
	}

	// Validating: compare against the active generation on the same rows,
	// so the margin measures the models and not the split.
	s.setState(StateValidating)
	if active := s.Models.Active(); active != nil {
		newAcc := model.Accuracy(gen, samples)
		oldAcc := model.Accuracy(active, samples)
		span.SetAttributes(
			attribute.Float64("accuracy.new", newAcc),
			attribute.Float64("accuracy.old", oldAcc),
		)
		if newAcc+s.RegressionMargin < oldAcc {
			return nil, ErrModelRegression
		}
	}

	// Activation: persist, flip the DB flag, then publish. The registry
	// swap is the single indivisible step the serving path observes.
	row, err := repo.InsertModelGeneration(ctx, s.DB, gen)
	if err != nil {
		return nil, err
	}
	if err := repo.ActivateModelGeneration(ctx, s.DB, row.ID); err != nil {
		return nil, err
	}
	s.Models.Activate(gen)
	return gen, nil
}

// featureFromLog rebuilds the feature vector from a persisted log row — the
// exact columns Recommend wrote, in the exact order, which is what keeps
// training and serving on one representation.
func featureFromLog(r domain.RecommendationLogEntry) feature.Vector {
	return feature.Vector{
		SameHour:    r.SameHour,
		SameDow:     r.SameDow,
		HourDiff:    r.HourDiff,
		SlotIsFree:  r.SlotIsFree,
		RecentCount: r.RecentCount,
	}
}
