package models

import "time"

// Subscription tiers. ADMIN is the system administrator role.
const (
	TierFree       = "FREE"
	TierStandard   = "STANDARD"
	TierPro        = "PRO"
	TierEnterprise = "ENTERPRISE"
	TierAdmin      = "ADMIN"
)

// User is owned by the account subsystem; this service only reads the tier.
type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Email     string    `gorm:"size:255;not null;uniqueIndex:uk_users_email" json:"email"`
	Name      *string   `gorm:"size:255" json:"name,omitempty"`
	Tier      string    `gorm:"size:20;not null;default:FREE" json:"tier"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (User) TableName() string { return "users" }

// IsPaidTier reports whether the tier is one of the paid subscription tiers.
func IsPaidTier(tier string) bool {
	switch tier {
	case TierStandard, TierPro, TierEnterprise:
		return true
	}
	return false
}

// UserFilter provides filter fields for repository queries
type UserFilter struct {
	ID    *uint
	Email *string
	Tier  *string
}
