// Package services – SlotCatalog
//
// The catalog is the read model over a primary user's declared availability:
// it answers "which future slots are worth ranking right now" with a bounded
// look-ahead window, so downstream feature extraction and scoring stay
// cheap no matter how much availability a provider has declared.
package services

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/carebook/go-booking-backend/internal/feature"
	"github.com/carebook/go-booking-backend/internal/repo"
)

// SlotCatalog enumerates candidate slots for ranking. It is read-only: no
// catalog call ever mutates slot state.
type SlotCatalog struct {
	// DB is the GORM handle used for slot queries.
	DB *gorm.DB
	// WindowDays bounds the look-ahead horizon.
	WindowDays int
	// MaxCandidates caps the number of slots considered per request.
	MaxCandidates int
}

// NewSlotCatalog constructs a catalog with sane bounds.
func NewSlotCatalog(db *gorm.DB) *SlotCatalog {
	return &SlotCatalog{DB: db, WindowDays: 30, MaxCandidates: 50}
}

// Candidates returns the primary user's declared slots strictly after now
// and inside the look-ahead window, soonest first. Booked slots are
// included — the scoring layer needs them as negative training signal but
// never offers them. An empty result is a normal outcome (a provider with
// no declared future availability), not an error.
func (c *SlotCatalog) Candidates(ctx context.Context, primaryID, secondaryID string, now time.Time) ([]feature.Slot, error) {
	until := now.AddDate(0, 0, c.WindowDays)
	rows, err := repo.ListFutureSlots(ctx, c.DB, primaryID, now, until, c.MaxCandidates)
	if err != nil {
		return nil, err
	}
	out := make([]feature.Slot, 0, len(rows))
	for _, r := range rows {
		out = append(out, feature.Slot{ID: r.ID, Time: r.SlotTime, IsBooked: r.IsBooked})
	}
	return out, nil
}
