// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the
// AvailabilitySlot model.
//
// The is_booked flag is only ever mutated through the two guarded updates
// below: MarkSlotBooked flips it false→true when a booking is confirmed, and
// ReleaseSlot flips it back on explicit cancellation. Both express their
// precondition in the WHERE clause, so concurrent confirmations of the same
// slot cannot both succeed.
package repo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/carebook/go-booking-backend/internal/domain"
)

// ErrSlotTaken is returned by MarkSlotBooked when the slot exists but is
// already booked. Distinguishing it from ErrNotFound lets the service report
// a conflict instead of a missing resource.
var ErrSlotTaken = errors.New("availability slot already booked")

// CreateSlot declares a new bookable instant for a primary user.
func CreateSlot(ctx context.Context, db *gorm.DB, primaryID string, slotTime time.Time) (*domain.AvailabilitySlot, error) {
	s := &domain.AvailabilitySlot{
		ID:            uuid.NewString(),
		PrimaryUserID: primaryID,
		SlotTime:      slotTime.UTC(),
		CreatedAt:     time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(s).Error; err != nil {
		return nil, err
	}
	return s, nil
}

// GetSlot fetches a single slot by ID, or ErrNotFound if missing.
func GetSlot(ctx context.Context, db *gorm.DB, id string) (*domain.AvailabilitySlot, error) {
	var s domain.AvailabilitySlot
	if err := db.WithContext(ctx).Where("id = ?", id).First(&s).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

// ListFutureSlots returns the primary user's declared slots with
// from < slot_time <= until, soonest first, capped at limit rows. Booked
// slots are included; the catalog needs them as negative examples and the
// scoring layer filters them from what users see.
func ListFutureSlots(ctx context.Context, db *gorm.DB, primaryID string, from, until time.Time, limit int) ([]domain.AvailabilitySlot, error) {
	var out []domain.AvailabilitySlot
	q := db.WithContext(ctx).
		Where("primary_user_id = ? AND slot_time > ? AND slot_time <= ?", primaryID, from.UTC(), until.UTC()).
		Order("slot_time asc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&out).Error
	return out, err
}

// MarkSlotBooked flips is_booked to true, guarded against double booking.
// Returns ErrSlotTaken when the slot exists but was already booked and
// ErrNotFound when it does not exist.
func MarkSlotBooked(ctx context.Context, db *gorm.DB, id string) error {
	res := db.WithContext(ctx).
		Model(&domain.AvailabilitySlot{}).
		Where("id = ? AND is_booked = ?", id, false).
		Update("is_booked", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		var count int64
		if err := db.WithContext(ctx).
			Model(&domain.AvailabilitySlot{}).
			Where("id = ?", id).
			Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return gorm.ErrRecordNotFound
		}
		return ErrSlotTaken
	}
	return nil
}

// ReleaseSlot flips is_booked back to false. Cancellation is the sole path
// to slot reuse; releasing an already-free slot is a no-op.
func ReleaseSlot(ctx context.Context, db *gorm.DB, id string) error {
	return db.WithContext(ctx).
		Model(&domain.AvailabilitySlot{}).
		Where("id = ? AND is_booked = ?", id, true).
		Update("is_booked", false).Error
}
