// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the
// ModelGeneration model: persisting fitted generations and flipping the
// single active flag transactionally so restarts recover the exact
// generation the registry was serving.
package repo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/carebook/go-booking-backend/internal/domain"
	"github.com/carebook/go-booking-backend/internal/model"
)

// NextModelVersion returns one past the highest persisted version, starting
// at 1 for an empty table.
func NextModelVersion(ctx context.Context, db *gorm.DB) (int, error) {
	var row struct{ Version int }
	err := db.WithContext(ctx).
		Model(&domain.ModelGeneration{}).
		Select("version").
		Order("version desc").
		Limit(1).
		Scan(&row).Error
	if err != nil {
		return 0, err
	}
	return row.Version + 1, nil
}

// InsertModelGeneration persists a fitted generation (inactive). Activation
// is a separate, transactional step.
func InsertModelGeneration(ctx context.Context, db *gorm.DB, g *model.Generation) (*domain.ModelGeneration, error) {
	weights, err := g.MarshalWeights()
	if err != nil {
		return nil, err
	}
	row := &domain.ModelGeneration{
		ID:          uuid.NewString(),
		Version:     g.Version,
		Weights:     weights,
		Bias:        g.Bias,
		TrainedRows: g.TrainedRows,
		Accuracy:    g.Accuracy,
		TrainedAt:   g.TrainedAt.UTC(),
		CreatedAt:   time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(row).Error; err != nil {
		return nil, err
	}
	return row, nil
}

// ActivateModelGeneration clears any previously active row and activates the
// given one, in a single transaction. Either both flips land or neither.
func ActivateModelGeneration(ctx context.Context, db *gorm.DB, id string) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&domain.ModelGeneration{}).
			Where("active = ?", true).
			Update("active", false).Error; err != nil {
			return err
		}
		res := tx.Model(&domain.ModelGeneration{}).
			Where("id = ?", id).
			Update("active", true)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

// ActiveModelGeneration loads the persisted active generation, decoded and
// ready to serve, or (nil, nil) when no generation has been activated yet.
func ActiveModelGeneration(ctx context.Context, db *gorm.DB) (*model.Generation, error) {
	var row domain.ModelGeneration
	err := db.WithContext(ctx).Where("active = ?", true).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	g := &model.Generation{
		Version:     row.Version,
		Bias:        row.Bias,
		TrainedRows: row.TrainedRows,
		Accuracy:    row.Accuracy,
		TrainedAt:   row.TrainedAt,
	}
	if err := g.UnmarshalWeights(row.Weights); err != nil {
		return nil, err
	}
	return g, nil
}
