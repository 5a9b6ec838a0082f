// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Booking
// model.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations.
// They follow the "thin repository" approach: no business logic, only CRUD
// persistence and query composition.
//
// Error semantics:
//   - When a booking is not found, functions return gorm.ErrRecordNotFound
//     (also exported here as ErrNotFound for convenience).
//   - On DB errors (constraint violations, connectivity issues, etc.),
//     the raw gorm error is propagated.
package repo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/carebook/go-booking-backend/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// CreateBooking inserts a new booking row in status "booked". The booking ID
// is a randomly generated UUID and CreatedAt is set to UTC.
func CreateBooking(ctx context.Context, db *gorm.DB, primaryID, secondaryID string, start, end time.Time, slotID *string) (*domain.Booking, error) {
	b := &domain.Booking{
		ID:              uuid.NewString(),
		PrimaryUserID:   primaryID,
		SecondaryUserID: secondaryID,
		StartTime:       start.UTC(),
		EndTime:         end.UTC(),
		Status:          domain.StatusBooked,
		SlotID:          slotID,
		CreatedAt:       time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(b).Error; err != nil {
		return nil, err
	}
	return b, nil
}

// GetBooking fetches a single booking by ID, or ErrNotFound if missing.
func GetBooking(ctx context.Context, db *gorm.DB, id string) (*domain.Booking, error) {
	var b domain.Booking
	if err := db.WithContext(ctx).Where("id = ?", id).First(&b).Error; err != nil {
		return nil, err
	}
	return &b, nil
}

// ListBookingHistory returns up to limit bookings for the pair, most recent
// start time first. It returns an empty slice when the pair has no history.
func ListBookingHistory(ctx context.Context, db *gorm.DB, primaryID, secondaryID string, limit int) ([]domain.Booking, error) {
	var out []domain.Booking
	q := db.WithContext(ctx).
		Where("primary_user_id = ? AND secondary_user_id = ?", primaryID, secondaryID).
		Order("start_time desc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&out).Error
	return out, err
}

// LatestBooking returns the pair's most recent booking by start time, or
// (nil, nil) when the pair has no bookings at all. Absence of history is a
// normal state, not an error.
func LatestBooking(ctx context.Context, db *gorm.DB, primaryID, secondaryID string) (*domain.Booking, error) {
	var b domain.Booking
	err := db.WithContext(ctx).
		Where("primary_user_id = ? AND secondary_user_id = ?", primaryID, secondaryID).
		Order("start_time desc").
		First(&b).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// EarliestBooking returns the pair's oldest booking by start time, or
// (nil, nil) when the pair has none. The reminder planner uses it to decide
// whether a never-reminded pair is overdue.
func EarliestBooking(ctx context.Context, db *gorm.DB, primaryID, secondaryID string) (*domain.Booking, error) {
	var b domain.Booking
	err := db.WithContext(ctx).
		Where("primary_user_id = ? AND secondary_user_id = ?", primaryID, secondaryID).
		Order("start_time asc").
		First(&b).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// CountBookings returns the total bookings for the pair (pagination support).
func CountBookings(ctx context.Context, db *gorm.DB, primaryID, secondaryID string) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.Booking{}).
		Where("primary_user_id = ? AND secondary_user_id = ?", primaryID, secondaryID).
		Count(&total).Error
	return total, err
}

// ListBookingsPage returns a page of the pair's bookings, most recent start
// time first. The caller computes offset and limit.
func ListBookingsPage(ctx context.Context, db *gorm.DB, primaryID, secondaryID string, offset, limit int) ([]domain.Booking, error) {
	var out []domain.Booking
	err := db.WithContext(ctx).
		Where("primary_user_id = ? AND secondary_user_id = ?", primaryID, secondaryID).
		Order("start_time desc").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// UpdateBookingStatus transitions a booking's status. Completed bookings are
// immutable, which the WHERE clause enforces; a vanished or completed row
// surfaces as ErrNotFound and the caller decides how to report it.
func UpdateBookingStatus(ctx context.Context, db *gorm.DB, id, status string) error {
	res := db.WithContext(ctx).
		Model(&domain.Booking{}).
		Where("id = ? AND status <> ?", id, domain.StatusCompleted).
		Update("status", status)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
