package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/amirphl/Susanoo/models"
	"gorm.io/gorm"
)

// SlugStateRepositoryImpl stores the slug generator length in the
// system_configs singleton row.
type SlugStateRepositoryImpl struct {
	*BaseRepository[models.SystemConfig, struct{}]
}

func NewSlugStateRepository(db *gorm.DB) SlugStateRepository {
	return &SlugStateRepositoryImpl{BaseRepository: NewBaseRepository[models.SystemConfig, struct{}](db)}
}

func (r *SlugStateRepositoryImpl) CurrentLength(ctx context.Context, initial int) (int, error) {
	db := r.getDB(ctx)
	var row models.SystemConfig
	err := db.Where("id = ?", models.SystemConfigSingletonID).First(&row).Error
	if err == nil {
		return row.SlugGenerationLength, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, fmt.Errorf("failed to read slug generation length: %w", err)
	}

	row = models.SystemConfig{ID: models.SystemConfigSingletonID, SlugGenerationLength: initial}
	if err := db.Create(&row).Error; err != nil {
		if !IsDuplicateKey(err) {
			return 0, fmt.Errorf("failed to seed system config: %w", err)
		}
		// Lost the seeding race; read the winner.
		if err := db.Where("id = ?", models.SystemConfigSingletonID).First(&row).Error; err != nil {
			return 0, fmt.Errorf("failed to read slug generation length: %w", err)
		}
	}
	return row.SlugGenerationLength, nil
}

// RaiseLength never lowers the stored value.
func (r *SlugStateRepositoryImpl) RaiseLength(ctx context.Context, length int) error {
	if _, err := r.CurrentLength(ctx, length); err != nil {
		return err
	}
	db := r.getDB(ctx)
	err := db.Model(&models.SystemConfig{}).
		Where("id = ? AND slug_generation_length < ?", models.SystemConfigSingletonID, length).
		Update("slug_generation_length", length).Error
	if err != nil {
		return fmt.Errorf("failed to raise slug generation length: %w", err)
	}
	return nil
}
