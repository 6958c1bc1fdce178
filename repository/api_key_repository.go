package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/amirphl/Susanoo/models"
	"gorm.io/gorm"
)

// APIKeyRepositoryImpl implements APIKeyRepository
type APIKeyRepositoryImpl struct {
	*BaseRepository[models.APIKey, struct{}]
}

func NewAPIKeyRepository(db *gorm.DB) APIKeyRepository {
	return &APIKeyRepositoryImpl{BaseRepository: NewBaseRepository[models.APIKey, struct{}](db)}
}

// ByPrefix loads the key together with its owner.
func (r *APIKeyRepositoryImpl) ByPrefix(ctx context.Context, prefix string) (*models.APIKey, error) {
	db := r.getDB(ctx)
	var row models.APIKey
	if err := db.Joins("User").Where("api_keys.prefix = ?", prefix).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find api key: %w", err)
	}
	return &row, nil
}

func (r *APIKeyRepositoryImpl) ListByUser(ctx context.Context, userID uint) ([]*models.APIKey, error) {
	db := r.getDB(ctx)
	var rows []*models.APIKey
	err := db.Where("user_id = ? AND revoked_at IS NULL", userID).
		Order("created_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list api keys: %w", err)
	}
	return rows, nil
}

func (r *APIKeyRepositoryImpl) TouchLastUsed(ctx context.Context, id uint, at time.Time) error {
	db := r.getDB(ctx)
	if err := db.Model(&models.APIKey{}).Where("id = ?", id).UpdateColumn("last_used_at", at).Error; err != nil {
		return fmt.Errorf("failed to update api key last used: %w", err)
	}
	return nil
}

func (r *APIKeyRepositoryImpl) Revoke(ctx context.Context, id uint, at time.Time) error {
	db := r.getDB(ctx)
	err := db.Model(&models.APIKey{}).
		Where("id = ? AND revoked_at IS NULL", id).
		Update("revoked_at", at).Error
	if err != nil {
		return fmt.Errorf("failed to revoke api key: %w", err)
	}
	return nil
}
