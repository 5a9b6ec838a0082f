// Package services – ReminderService
//
// This file implements the reminder planner: interval management per
// (primary, secondary) pair and the due-pair computation the background
// sweep dispatches from. The planner itself never sends anything; it only
// decides who is due, and MarkSent is the single mutation that closes the
// loop after the external notifier reports success.
package services

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/carebook/go-booking-backend/internal/domain"
	"github.com/carebook/go-booking-backend/internal/repo"
)

// DuePair is one reminder the sweep should dispatch: the pair, its setting
// row, and the preferred rebooking time (the pair's last appointment start),
// nil when history is gone.
type DuePair struct {
	SettingID       string     `json:"-"`
	PrimaryUserID   string     `json:"primary_user_id"`
	SecondaryUserID string     `json:"secondary_user_id"`
	PreferredSlot   *time.Time `json:"preferred_slot,omitempty"`
}

// ReminderService implements reminder-setting management and due planning.
type ReminderService struct {
	// DB is the database handle used for all reminder operations.
	DB *gorm.DB
}

// SetInterval creates or updates the pair's reminder interval and
// reactivates the setting. A non-positive interval is rejected with
// ErrInvalidInterval.
func (s *ReminderService) SetInterval(ctx context.Context, primaryID, secondaryID string, days int) (*domain.ReminderSetting, error) {
	if days <= 0 {
		return nil, ErrInvalidInterval
	}
	return repo.UpsertReminderSetting(ctx, s.DB, primaryID, secondaryID, days)
}

// Deactivate soft-deactivates the pair's reminders. The row is retained;
// a later SetInterval revives it.
func (s *ReminderService) Deactivate(ctx context.Context, primaryID, secondaryID string) error {
	err := repo.DeactivateReminderSetting(ctx, s.DB, primaryID, secondaryID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrReminderNotFound
	}
	return err
}

// DueReminders returns every pair whose reminder is due at the given
// instant. A pair is due when its setting is active and either
//
//   - no reminder was ever sent and the pair's earliest booking is older
//     than the interval (the relationship has been running long enough to
//     warrant a first nudge), or
//   - the last reminder is at least one interval old.
//
// Pairs with no booking history are never due: there is nothing to rebook.
// The computation is read-only; at-most-one-dispatch-per-interval holds as
// long as MarkSent is applied before the next sweep.
func (s *ReminderService) DueReminders(ctx context.Context, now time.Time) ([]DuePair, error) {
	settings, err := repo.ListActiveReminderSettings(ctx, s.DB)
	if err != nil {
		return nil, err
	}

	due := make([]DuePair, 0, len(settings))
	for _, set := range settings {
		interval := time.Duration(set.ReminderIntervalDays) * 24 * time.Hour

		if set.LastReminderSent != nil {
			if now.Sub(*set.LastReminderSent) < interval {
				continue
			}
		} else {
			earliest, err := repo.EarliestBooking(ctx, s.DB, set.PrimaryUserID, set.SecondaryUserID)
			if err != nil {
				return nil, err
			}
			if earliest == nil || now.Sub(earliest.StartTime) < interval {
				continue
			}
		}

		latest, err := repo.LatestBooking(ctx, s.DB, set.PrimaryUserID, set.SecondaryUserID)
		if err != nil {
			return nil, err
		}
		var preferred *time.Time
		if latest != nil {
			t := latest.StartTime
			preferred = &t
		}
		due = append(due, DuePair{
			SettingID:       set.ID,
			PrimaryUserID:   set.PrimaryUserID,
			SecondaryUserID: set.SecondaryUserID,
			PreferredSlot:   preferred,
		})
	}
	return due, nil
}

// MarkSent records that a reminder for the pair was dispatched at the given
// time. It is the planner's only mutation and must be applied after the
// notifier confirms delivery, and before the next sweep, to bound dispatch
// to one reminder per interval.
func (s *ReminderService) MarkSent(ctx context.Context, primaryID, secondaryID string, now time.Time) error {
	set, err := repo.GetReminderSetting(ctx, s.DB, primaryID, secondaryID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrReminderNotFound
		}
		return err
	}
	err = repo.MarkReminderSent(ctx, s.DB, set.ID, now)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrReminderNotFound
	}
	return err
}
