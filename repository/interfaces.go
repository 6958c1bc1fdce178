// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"context"
	"time"

	"github.com/amirphl/Susanoo/models"
)

// RepositoryContext key for transaction in context
type contextKey string

const TxContextKey contextKey = "tx"

type Repository[T any, F any] interface {
	ByID(ctx context.Context, id uint) (*T, error)
	ByFilter(ctx context.Context, filter F, orderBy string, limit, offset int) ([]*T, error)
	Save(ctx context.Context, entity *T) error
	Count(ctx context.Context, filter F) (int64, error)
	Exists(ctx context.Context, filter F) (bool, error)
}

// LinkRepository defines operations for links
type LinkRepository interface {
	Repository[models.Link, models.LinkFilter]
	ByShortCode(ctx context.Context, code string) (*models.Link, error)
	ShortCodeExists(ctx context.Context, code string) (bool, error)
	IncrementClickCount(ctx context.Context, linkID uint) error
	DeleteByShortCode(ctx context.Context, code string) error
}

// LinkTargetReader is the narrow lookup used on the redirect path.
// A missing code yields (nil, nil).
type LinkTargetReader interface {
	TargetByShortCode(ctx context.Context, code string) (*models.LinkTarget, error)
}

// ClickRepository defines operations for clicks
type ClickRepository interface {
	Repository[models.Click, models.ClickFilter]
	UpdateEnrichment(ctx context.Context, clickID uint, e models.ClickEnrichment) error
}

// SlugStateRepository persists the slug generator's minimum length.
type SlugStateRepository interface {
	// CurrentLength returns the persisted length, seeding the row with
	// initial when it does not exist yet.
	CurrentLength(ctx context.Context, initial int) (int, error)
	// RaiseLength stores length if it is greater than the persisted value.
	RaiseLength(ctx context.Context, length int) error
}

// UserRepository defines read operations for users
type UserRepository interface {
	ByID(ctx context.Context, id uint) (*models.User, error)
	Save(ctx context.Context, user *models.User) error
}

// TeamRepository defines read operations for teams and memberships
type TeamRepository interface {
	ByID(ctx context.Context, id uint) (*models.Team, error)
	Save(ctx context.Context, team *models.Team) error
	Membership(ctx context.Context, teamID, userID uint) (*models.TeamMember, error)
	SaveMember(ctx context.Context, member *models.TeamMember) error
}

// APIKeyRepository defines operations for API keys
type APIKeyRepository interface {
	ByID(ctx context.Context, id uint) (*models.APIKey, error)
	ByPrefix(ctx context.Context, prefix string) (*models.APIKey, error)
	ListByUser(ctx context.Context, userID uint) ([]*models.APIKey, error)
	Save(ctx context.Context, key *models.APIKey) error
	TouchLastUsed(ctx context.Context, id uint, at time.Time) error
	Revoke(ctx context.Context, id uint, at time.Time) error
}
