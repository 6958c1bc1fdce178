package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/amirphl/Susanoo/models"
	"gorm.io/gorm"
)

// LinkRepositoryImpl implements LinkRepository and LinkTargetReader
type LinkRepositoryImpl struct {
	*BaseRepository[models.Link, models.LinkFilter]
}

func NewLinkRepository(db *gorm.DB) *LinkRepositoryImpl {
	return &LinkRepositoryImpl{BaseRepository: NewBaseRepository[models.Link, models.LinkFilter](db)}
}

func (r *LinkRepositoryImpl) ByShortCode(ctx context.Context, code string) (*models.Link, error) {
	db := r.getDB(ctx)
	var row models.Link
	if err := db.Where("short_code = ?", code).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find link by short code: %w", err)
	}
	return &row, nil
}

// TargetByShortCode loads the link with its owner in one query.
func (r *LinkRepositoryImpl) TargetByShortCode(ctx context.Context, code string) (*models.LinkTarget, error) {
	db := r.getDB(ctx)
	var row models.Link
	err := db.Joins("User").Where("links.short_code = ?", code).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to resolve short code: %w", err)
	}

	target := &models.LinkTarget{
		LinkID:    row.ID,
		ShortCode: row.ShortCode,
		LongURL:   row.LongURL,
		ExpiresAt: row.ExpiresAt,
		UserID:    row.UserID,
		TeamID:    row.TeamID,
	}
	if row.User != nil && row.User.ID != 0 {
		tier := row.User.Tier
		target.OwnerTier = &tier
	}
	return target, nil
}

func (r *LinkRepositoryImpl) ShortCodeExists(ctx context.Context, code string) (bool, error) {
	return r.Exists(ctx, models.LinkFilter{ShortCode: &code})
}

// IncrementClickCount bumps the counter with a single atomic UPDATE.
func (r *LinkRepositoryImpl) IncrementClickCount(ctx context.Context, linkID uint) error {
	db := r.getDB(ctx)
	res := db.Model(&models.Link{}).
		Where("id = ?", linkID).
		UpdateColumn("click_count", gorm.Expr("click_count + ?", 1))
	if res.Error != nil {
		return fmt.Errorf("failed to increment click count: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("failed to increment click count: link %d not found", linkID)
	}
	return nil
}

// DeleteByShortCode removes the link and its clicks.
func (r *LinkRepositoryImpl) DeleteByShortCode(ctx context.Context, code string) error {
	return r.write(ctx, func(db *gorm.DB) error {
		var row models.Link
		if err := db.Select("id").Where("short_code = ?", code).First(&row).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return fmt.Errorf("failed to find link for delete: %w", err)
		}
		if err := db.Where("link_id = ?", row.ID).Delete(&models.Click{}).Error; err != nil {
			return fmt.Errorf("failed to delete link clicks: %w", err)
		}
		if err := db.Delete(&models.Link{}, row.ID).Error; err != nil {
			return fmt.Errorf("failed to delete link: %w", err)
		}
		return nil
	})
}

func (r *LinkRepositoryImpl) applyFilter(db *gorm.DB, f models.LinkFilter) *gorm.DB {
	if f.ID != nil {
		db = db.Where("id = ?", *f.ID)
	}
	if f.ShortCode != nil {
		db = db.Where("short_code = ?", *f.ShortCode)
	}
	if f.UserID != nil {
		db = db.Where("user_id = ?", *f.UserID)
	}
	if f.TeamID != nil {
		db = db.Where("team_id = ?", *f.TeamID)
	}
	if f.PersonalOnly {
		db = db.Where("team_id IS NULL")
	}
	if f.CreatedAfter != nil {
		db = db.Where("created_at >= ?", *f.CreatedAfter)
	}
	return db
}

func (r *LinkRepositoryImpl) ByFilter(ctx context.Context, filter models.LinkFilter, orderBy string, limit, offset int) ([]*models.Link, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.Link{}), filter)
	if orderBy != "" {
		query = query.Order(orderBy)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}
	var rows []*models.Link
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *LinkRepositoryImpl) Count(ctx context.Context, filter models.LinkFilter) (int64, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.Link{}), filter)
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *LinkRepositoryImpl) Exists(ctx context.Context, filter models.LinkFilter) (bool, error) {
	c, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return c > 0, nil
}

var (
	_ LinkRepository   = (*LinkRepositoryImpl)(nil)
	_ LinkTargetReader = (*LinkRepositoryImpl)(nil)
)
