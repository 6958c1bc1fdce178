package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/amirphl/Susanoo/models"
	"gorm.io/gorm"
)

// TeamRepositoryImpl implements TeamRepository
type TeamRepositoryImpl struct {
	*BaseRepository[models.Team, struct{}]
}

func NewTeamRepository(db *gorm.DB) TeamRepository {
	return &TeamRepositoryImpl{BaseRepository: NewBaseRepository[models.Team, struct{}](db)}
}

// Membership returns the user's membership in the team, or nil if none.
func (r *TeamRepositoryImpl) Membership(ctx context.Context, teamID, userID uint) (*models.TeamMember, error) {
	db := r.getDB(ctx)
	var row models.TeamMember
	err := db.Where("team_id = ? AND user_id = ?", teamID, userID).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find team membership: %w", err)
	}
	return &row, nil
}

func (r *TeamRepositoryImpl) SaveMember(ctx context.Context, member *models.TeamMember) error {
	return r.write(ctx, func(db *gorm.DB) error {
		if err := db.Create(member).Error; err != nil {
			return fmt.Errorf("failed to save team member: %w", err)
		}
		return nil
	})
}
