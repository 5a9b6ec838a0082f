// Package services – BookingService
//
// This file implements booking confirmation and cancellation. Confirmation
// is the write that closes the recommendation loop: it creates the booking,
// consumes the availability slot with a guarded flip (a taken slot rejects
// the whole confirmation and leaves the recommendation log untouched), and
// labels the session's chosen row — all in one transaction.
package services

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/carebook/go-booking-backend/internal/domain"
	"github.com/carebook/go-booking-backend/internal/repo"
)

// ConfirmParams carries everything needed to confirm an appointment.
// SlotID is nil for manually entered times; SessionID is empty when the
// booking did not come out of a recommendation flow.
type ConfirmParams struct {
	PrimaryUserID   string
	SecondaryUserID string
	SlotID          *string
	StartTime       time.Time
	EndTime         time.Time
	SessionID       string
}

// BookingService implements the confirmation and cancellation use-cases.
type BookingService struct {
	// DB is the database handle used for all booking operations.
	DB *gorm.DB
}

// Confirm creates a booking from the given parameters.
//
// Semantics and validation:
//   - StartTime must be strictly before EndTime; otherwise ErrInvalidTimeRange.
//   - When SlotID is set, the slot must exist (ErrSlotNotFound) and must not
//     already be booked (ErrSlotTaken). The flip is guarded at the SQL level,
//     so two concurrent confirmations of one slot cannot both succeed.
//   - When both SessionID and SlotID are set, the matching recommendation
//     log row is marked chosen. A session that was never logged or that has
//     already decided on a different slot does not fail the booking — the
//     appointment is the user-visible outcome, the label is bookkeeping.
//
// Concurrency & atomicity:
//   - The booking insert, the slot flip, and the chosen-label update run in
//     a single transaction; a rejected slot leaves no booking row and no
//     mutated log entry behind.
func (s *BookingService) Confirm(ctx context.Context, p ConfirmParams) (*domain.Booking, error) {
	if !p.StartTime.Before(p.EndTime) {
		return nil, ErrInvalidTimeRange
	}

	var booking *domain.Booking
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if p.SlotID != nil {
			if err := repo.MarkSlotBooked(ctx, tx, *p.SlotID); err != nil {
				switch {
				case errors.Is(err, gorm.ErrRecordNotFound):
					return ErrSlotNotFound
				case errors.Is(err, repo.ErrSlotTaken):
					return ErrSlotTaken
				default:
					return err
				}
			}
		}

		b, err := repo.CreateBooking(ctx, tx, p.PrimaryUserID, p.SecondaryUserID, p.StartTime, p.EndTime, p.SlotID)
		if err != nil {
			return err
		}
		booking = b

		if p.SessionID != "" && p.SlotID != nil {
			err := repo.MarkChosen(ctx, tx, p.SessionID, *p.SlotID)
			if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) && !errors.Is(err, repo.ErrSessionDecided) {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return booking, nil
}

// Cancel transitions a booking to cancelled and releases its availability
// slot — the sole path by which a consumed slot becomes bookable again.
// Completed bookings are immutable and cancel as ErrBookingNotFound (the
// mutable row no longer exists from the caller's perspective).
func (s *BookingService) Cancel(ctx context.Context, bookingID string) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		b, err := repo.GetBooking(ctx, tx, bookingID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrBookingNotFound
			}
			return err
		}
		if err := repo.UpdateBookingStatus(ctx, tx, bookingID, domain.StatusCancelled); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrBookingNotFound
			}
			return err
		}
		if b.SlotID != nil {
			return repo.ReleaseSlot(ctx, tx, *b.SlotID)
		}
		return nil
	})
}

// ListPage returns a page of the pair's bookings plus the total count.
// It applies defaults for invalid page/pageSize.
func (s *BookingService) ListPage(ctx context.Context, primaryID, secondaryID string, page, pageSize int) ([]domain.Booking, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	total, err := repo.CountBookings(ctx, s.DB, primaryID, secondaryID)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.Booking{}, 0, nil
	}

	items, err := repo.ListBookingsPage(ctx, s.DB, primaryID, secondaryID, offset, pageSize)
	return items, total, err
}
