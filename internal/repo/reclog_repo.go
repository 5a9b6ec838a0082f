// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the
// RecommendationLogEntry model — the append-mostly table that doubles as the
// model's training set.
//
// Two invariants are enforced here rather than in the service layer, because
// they are exactly the kind of thing a retried request will otherwise break:
//   - all rows of one session are written in a single transaction
//     (a partially-logged session would pollute the training set)
//   - at most one row per session carries chosen = true, and flipping it is
//     idempotent for the same (session, slot) pair
package repo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/carebook/go-booking-backend/internal/domain"
)

// ErrSessionDecided is returned by MarkChosen when the session already has a
// different slot marked chosen. A second choice within one session is a
// client bug or a tampered request, never a valid state.
var ErrSessionDecided = errors.New("session already has a chosen slot")

// LogShown writes one row per shown candidate with chosen = false, all in a
// single transaction: the session appears in the log completely or not at
// all. Entries receive fresh UUIDs and a shared UTC created_at.
func LogShown(ctx context.Context, db *gorm.DB, entries []domain.RecommendationLogEntry) error {
	if len(entries) == 0 {
		return nil
	}
	now := time.Now().UTC()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i := range entries {
			entries[i].ID = uuid.NewString()
			entries[i].Chosen = false
			entries[i].CreatedAt = now
			if err := tx.Create(&entries[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// MarkChosen flips chosen = true on the (sessionID, slotID) row.
//
// Semantics:
//   - unknown pair → ErrNotFound (defends against expired or forged sessions)
//   - same pair already chosen → nil, no-op (safe under retries)
//   - a different slot in the session already chosen → ErrSessionDecided
//
// The check-and-flip runs inside a transaction so concurrent retries settle
// on exactly one chosen row.
func MarkChosen(ctx context.Context, db *gorm.DB, sessionID, slotID string) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row domain.RecommendationLogEntry
		err := tx.Where("session_id = ? AND slot_id = ?", sessionID, slotID).First(&row).Error
		if err != nil {
			return err
		}
		if row.Chosen {
			return nil
		}

		var taken int64
		if err := tx.Model(&domain.RecommendationLogEntry{}).
			Where("session_id = ? AND chosen = ?", sessionID, true).
			Count(&taken).Error; err != nil {
			return err
		}
		if taken > 0 {
			return ErrSessionDecided
		}

		return tx.Model(&domain.RecommendationLogEntry{}).
			Where("id = ?", row.ID).
			Update("chosen", true).Error
	})
}

// TrainingRows returns up to limit log rows with created_at <= asOf, newest
// first — the labeled dataset the retrain pipeline fits from.
func TrainingRows(ctx context.Context, db *gorm.DB, asOf time.Time, limit int) ([]domain.RecommendationLogEntry, error) {
	var out []domain.RecommendationLogEntry
	q := db.WithContext(ctx).
		Where("created_at <= ?", asOf.UTC()).
		Order("created_at desc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&out).Error
	return out, err
}

// TrainingStats returns aggregate metadata for the training set as of the
// given cutoff: total rows and how many are positive (chosen) examples. The
// retrain pipeline uses it for its minimum-size gate and for log output.
func TrainingStats(ctx context.Context, db *gorm.DB, asOf time.Time) (total, positives int64, err error) {
	q := db.WithContext(ctx).
		Model(&domain.RecommendationLogEntry{}).
		Where("created_at <= ?", asOf.UTC())

	if err = q.Count(&total).Error; err != nil {
		return 0, 0, err
	}
	if total == 0 {
		return 0, 0, nil
	}
	if err = q.Where("chosen = ?", true).Count(&positives).Error; err != nil {
		return 0, 0, err
	}
	return total, positives, nil
}
