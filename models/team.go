package models

import "time"

// Team member roles
const (
	TeamRoleOwner  = "OWNER"
	TeamRoleAdmin  = "ADMIN"
	TeamRoleMember = "MEMBER"
)

type Team struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:255;not null" json:"name"`
	OwnerID   uint      `gorm:"not null;index:idx_teams_owner_id" json:"owner_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Team) TableName() string { return "teams" }

// TeamMember links a user to a team with a role.
type TeamMember struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	TeamID    uint      `gorm:"not null;uniqueIndex:uk_team_members_team_user" json:"team_id"`
	UserID    uint      `gorm:"not null;uniqueIndex:uk_team_members_team_user;index:idx_team_members_user_id" json:"user_id"`
	Role      string    `gorm:"size:20;not null;default:MEMBER" json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

func (TeamMember) TableName() string { return "team_members" }

// CanManageLinks reports whether the role may create and administer team links.
func (m *TeamMember) CanManageLinks() bool {
	return m != nil && (m.Role == TeamRoleOwner || m.Role == TeamRoleAdmin)
}
