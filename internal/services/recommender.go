// Package services – RecommenderService
//
// This file implements the scoring engine and the recommendation logger: it
// enumerates candidates through the SlotCatalog, extracts feature vectors,
// blends a rule-based prior with the active model generation's prediction,
// ranks with a deterministic total order, and records the full candidate set
// under a session identifier so the eventual choice can label the training
// data.
//
// Observability: public methods are OpenTelemetry-instrumented; spans carry
// the pair identifiers and candidate counts.
package services

import (
	"context"
	"errors"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/carebook/go-booking-backend/internal/domain"
	"github.com/carebook/go-booking-backend/internal/feature"
	"github.com/carebook/go-booking-backend/internal/model"
	"github.com/carebook/go-booking-backend/internal/repo"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Rule-score weights. The prior rewards matching the user's habitual hour
// and weekday, prefers free slots, decays with distance from the last
// booking, and adds a saturating engagement bonus so very frequent bookers
// cannot dominate the score.
const (
	weightSameHour   = 0.5
	weightSameDow    = 0.3
	weightSlotFree   = 0.2
	weightRecent     = 0.05
	recentBonusCap   = 5    // recent_count saturates here
	hourDecayScale   = 24.0 // e-folding horizon for the hour_diff penalty, in hours
)

// RecommendedSlot is one ranked candidate returned to the caller.
type RecommendedSlot struct {
	SlotID   string    `json:"slot_id"`
	SlotTime time.Time `json:"slot_time"`
	Score    float64   `json:"score"`
}

// RecommenderService owns the recommend → log → choose loop.
type RecommenderService struct {
	// DB is the GORM handle used for history lookups and session logging.
	DB *gorm.DB
	// Catalog enumerates candidate slots.
	Catalog *SlotCatalog
	// Extractor computes feature vectors.
	Extractor *feature.Extractor
	// Models publishes the active generation; may serve nil before the
	// first retrain, in which case scoring is rule-only.
	Models *model.Registry

	// BlendWeight is the convex weight on the rule score; the model
	// prediction receives 1 − BlendWeight. Ignored while no model is active.
	BlendWeight float64
	// HistoryLimit caps how many past bookings feed feature extraction.
	HistoryLimit int
}

// NewRecommenderService constructs a RecommenderService with defaults
// mirroring the calibration the log data was collected under.
func NewRecommenderService(db *gorm.DB, catalog *SlotCatalog, models *model.Registry) *RecommenderService {
	return &RecommenderService{
		DB:           db,
		Catalog:      catalog,
		Extractor:    feature.NewExtractor(),
		Models:       models,
		BlendWeight:  0.5,
		HistoryLimit: 200,
	}
}

// scoredCandidate pairs a candidate with its features and blended score for
// ranking and logging.
type scoredCandidate struct {
	slot     feature.Slot
	features feature.Vector
	score    float64
}

// Recommend returns the top-k free slots for the pair, ranked by blended
// score, and logs the complete extracted candidate set (taken slots
// included, as negative examples) under a fresh session ID.
//
// Guarantees:
//   - never returns a slot whose slot_is_free feature is 0
//   - ties rank deterministically: earlier slot_time first, then lower slot_id
//   - an empty result (no free candidates) is a normal outcome
//
// The returned session ID groups the logged rows; it is empty when nothing
// was logged because the catalog came back empty.
func (s *RecommenderService) Recommend(ctx context.Context, primaryID, secondaryID string, now time.Time, k int) (string, []RecommendedSlot, error) {
	tr := otel.Tracer("services/RecommenderService")
	ctx, span := tr.Start(ctx, "Recommend",
		trace.WithAttributes(
			attribute.String("primary.id", primaryID),
			attribute.String("secondary.id", secondaryID),
			attribute.Int("k", k),
		),
	)
	defer span.End()

	if k <= 0 {
		k = 2
	}

	candidates, err := s.Catalog.Candidates(ctx, primaryID, secondaryID, now)
	if err != nil {
		return "", nil, err
	}
	if len(candidates) == 0 {
		return "", []RecommendedSlot{}, nil
	}

	history, err := repo.ListBookingHistory(ctx, s.DB, primaryID, secondaryID, s.HistoryLimit)
	if err != nil {
		return "", nil, err
	}

	gen := s.Models.Active()
	scored := make([]scoredCandidate, 0, len(candidates))
	for _, cand := range candidates {
		v := s.Extractor.Extract(now, cand, history)
		scored = append(scored, scoredCandidate{
			slot:     cand,
			features: v,
			score:    s.blend(v, gen),
		})
	}
	span.SetAttributes(attribute.Int("candidates", len(scored)))

	// Log the full candidate set before filtering: unchosen and taken slots
	// are the negative examples the next generation trains on.
	sessionID := uuid.NewString()
	entries := make([]domain.RecommendationLogEntry, 0, len(scored))
	for _, sc := range scored {
		entries = append(entries, domain.RecommendationLogEntry{
			SessionID:       sessionID,
			PrimaryUserID:   primaryID,
			SecondaryUserID: secondaryID,
			SlotID:          sc.slot.ID,
			SlotTime:        sc.slot.Time.UTC(),
			SameHour:        sc.features.SameHour,
			SameDow:         sc.features.SameDow,
			HourDiff:        sc.features.HourDiff,
			SlotIsFree:      sc.features.SlotIsFree,
			RecentCount:     sc.features.RecentCount,
		})
	}
	if err := repo.LogShown(ctx, s.DB, entries); err != nil {
		return "", nil, err
	}

	free := scored[:0]
	for _, sc := range scored {
		if sc.features.SlotIsFree == 1 {
			free = append(free, sc)
		}
	}
	sort.SliceStable(free, func(a, b int) bool {
		if free[a].score != free[b].score {
			return free[a].score > free[b].score
		}
		if !free[a].slot.Time.Equal(free[b].slot.Time) {
			return free[a].slot.Time.Before(free[b].slot.Time)
		}
		return free[a].slot.ID < free[b].slot.ID
	})

	if k > len(free) {
		k = len(free)
	}
	out := make([]RecommendedSlot, 0, k)
	for _, sc := range free[:k] {
		out = append(out, RecommendedSlot{SlotID: sc.slot.ID, SlotTime: sc.slot.Time, Score: sc.score})
	}
	return sessionID, out, nil
}

// MarkChosen flips the chosen flag for the (session, slot) pair logged by a
// previous Recommend call. It is idempotent for repeated calls with the same
// arguments.
func (s *RecommenderService) MarkChosen(ctx context.Context, sessionID, slotID string) error {
	err := repo.MarkChosen(ctx, s.DB, sessionID, slotID)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrSessionNotFound
	case errors.Is(err, repo.ErrSessionDecided):
		return ErrSessionDecided
	default:
		return err
	}
}

// PreferredSlot serves the reminder flow: the single "book the same time
// again" suggestion, taken from the pair's most recent booking. Returns
// (nil, nil) when the pair has no history — callers present that as "no
// suggestion", not as a failure.
func (s *RecommenderService) PreferredSlot(ctx context.Context, primaryID, secondaryID string) (*time.Time, error) {
	last, err := repo.LatestBooking(ctx, s.DB, primaryID, secondaryID)
	if err != nil {
		return nil, err
	}
	if last == nil {
		return nil, nil
	}
	t := last.StartTime
	return &t, nil
}

// ruleScore computes the deterministic prior for a candidate.
func ruleScore(v feature.Vector) float64 {
	recent := v.RecentCount
	if recent > recentBonusCap {
		recent = recentBonusCap
	}
	return weightSameHour*float64(v.SameHour) +
		weightSameDow*float64(v.SameDow) +
		weightSlotFree*float64(v.SlotIsFree) +
		weightRecent*float64(recent) +
		math.Exp(-v.HourDiff/hourDecayScale)
}

// blend combines the rule prior with the active generation's prediction via
// the configured convex weight. Without an active generation the rule score
// stands alone.
func (s *RecommenderService) blend(v feature.Vector, gen *model.Generation) float64 {
	rule := ruleScore(v)
	if gen == nil {
		return rule
	}
	w := s.BlendWeight
	if w < 0 || w > 1 {
		w = 0.5
	}
	return w*rule + (1-w)*gen.Predict(v)
}
