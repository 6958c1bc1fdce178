package repository

import (
	"context"
	"fmt"

	"github.com/amirphl/Susanoo/models"
	"gorm.io/gorm"
)

// ClickRepositoryImpl implements ClickRepository
type ClickRepositoryImpl struct {
	*BaseRepository[models.Click, models.ClickFilter]
}

func NewClickRepository(db *gorm.DB) ClickRepository {
	return &ClickRepositoryImpl{BaseRepository: NewBaseRepository[models.Click, models.ClickFilter](db)}
}

// UpdateEnrichment writes all derived attributes in one statement.
func (r *ClickRepositoryImpl) UpdateEnrichment(ctx context.Context, clickID uint, e models.ClickEnrichment) error {
	db := r.getDB(ctx)
	updates := map[string]any{
		"country":     e.Country,
		"city":        e.City,
		"region":      e.Region,
		"latitude":    e.Latitude,
		"longitude":   e.Longitude,
		"device_type": e.DeviceType,
		"browser":     e.Browser,
		"os":          e.OS,
		"raw_data":    e.RawData,
	}
	res := db.Model(&models.Click{}).Where("id = ?", clickID).Updates(updates)
	if res.Error != nil {
		return fmt.Errorf("failed to update click enrichment: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("failed to update click enrichment: click %d not found", clickID)
	}
	return nil
}

func (r *ClickRepositoryImpl) applyFilter(db *gorm.DB, f models.ClickFilter) *gorm.DB {
	if f.ID != nil {
		db = db.Where("id = ?", *f.ID)
	}
	if f.LinkID != nil {
		db = db.Where("link_id = ?", *f.LinkID)
	}
	if f.LinkIDs != nil {
		if len(f.LinkIDs) == 0 {
			db = db.Where("1 = 0")
		} else {
			db = db.Where("link_id IN ?", f.LinkIDs)
		}
	}
	if f.ClickedAfter != nil {
		db = db.Where("clicked_at >= ?", *f.ClickedAfter)
	}
	if f.OnlyUnenriched {
		db = db.Where("device_type IS NULL")
	}
	return db
}

func (r *ClickRepositoryImpl) ByFilter(ctx context.Context, filter models.ClickFilter, orderBy string, limit, offset int) ([]*models.Click, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.Click{}), filter)
	if orderBy != "" {
		query = query.Order(orderBy)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}
	var rows []*models.Click
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *ClickRepositoryImpl) Count(ctx context.Context, filter models.ClickFilter) (int64, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.Click{}), filter)
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *ClickRepositoryImpl) Exists(ctx context.Context, filter models.ClickFilter) (bool, error) {
	c, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return c > 0, nil
}
