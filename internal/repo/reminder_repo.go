// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the
// ReminderSetting model. Settings are never hard-deleted; deactivation flips
// the active flag and a later upsert revives the row.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/carebook/go-booking-backend/internal/domain"
)

// UpsertReminderSetting creates the pair's setting or updates the interval
// on the existing row, reactivating it in either case. Interval validation
// belongs to the service layer.
func UpsertReminderSetting(ctx context.Context, db *gorm.DB, primaryID, secondaryID string, intervalDays int) (*domain.ReminderSetting, error) {
	s := &domain.ReminderSetting{
		ID:                   uuid.NewString(),
		PrimaryUserID:        primaryID,
		SecondaryUserID:      secondaryID,
		ReminderIntervalDays: intervalDays,
		Active:               true,
		CreatedAt:            time.Now().UTC(),
	}
	err := db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "primary_user_id"}, {Name: "secondary_user_id"}},
			DoUpdates: clause.Assignments(map[string]any{
				"reminder_interval_days": intervalDays,
				"active":                 true,
				"updated_at":             time.Now().UTC(),
			}),
		}).
		Create(s).Error
	if err != nil {
		return nil, err
	}
	return GetReminderSetting(ctx, db, primaryID, secondaryID)
}

// GetReminderSetting fetches the pair's setting, or ErrNotFound.
func GetReminderSetting(ctx context.Context, db *gorm.DB, primaryID, secondaryID string) (*domain.ReminderSetting, error) {
	var s domain.ReminderSetting
	err := db.WithContext(ctx).
		Where("primary_user_id = ? AND secondary_user_id = ?", primaryID, secondaryID).
		First(&s).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// DeactivateReminderSetting soft-deactivates the pair's setting. Returns
// ErrNotFound when no row exists for the pair.
func DeactivateReminderSetting(ctx context.Context, db *gorm.DB, primaryID, secondaryID string) error {
	res := db.WithContext(ctx).
		Model(&domain.ReminderSetting{}).
		Where("primary_user_id = ? AND secondary_user_id = ?", primaryID, secondaryID).
		Update("active", false)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ListActiveReminderSettings returns every active setting, oldest pair
// first, for the planner sweep.
func ListActiveReminderSettings(ctx context.Context, db *gorm.DB) ([]domain.ReminderSetting, error) {
	var out []domain.ReminderSetting
	err := db.WithContext(ctx).
		Where("active = ?", true).
		Order("created_at asc").
		Find(&out).Error
	return out, err
}

// MarkReminderSent stamps last_reminder_sent for the setting row. This is
// the planner's only mutation path; applying it before the next sweep is
// what bounds dispatch to one reminder per interval.
func MarkReminderSent(ctx context.Context, db *gorm.DB, id string, now time.Time) error {
	res := db.WithContext(ctx).
		Model(&domain.ReminderSetting{}).
		Where("id = ?", id).
		Update("last_reminder_sent", now.UTC())
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
