package models

import "time"

// Link maps a short code to its destination.
// UserID and TeamID are both optional; a link with neither is anonymous.
// ShortCode carries an explicit unique constraint so concurrent creators racing
// on the same code are rejected by storage.
type Link struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	ShortCode  string     `gorm:"size:64;not null;uniqueIndex:uk_links_short_code" json:"short_code"`
	LongURL    string     `gorm:"type:text;not null" json:"long_url"`
	Title      *string    `gorm:"size:255" json:"title,omitempty"`
	UserID     *uint      `gorm:"index:idx_links_user_id" json:"user_id,omitempty"`
	User       *User      `gorm:"foreignKey:UserID" json:"user,omitempty"`
	TeamID     *uint      `gorm:"index:idx_links_team_id" json:"team_id,omitempty"`
	Team       *Team      `gorm:"foreignKey:TeamID" json:"team,omitempty"`
	ExpiresAt  *time.Time `gorm:"index:idx_links_expires_at" json:"expires_at,omitempty"`
	ClickCount int64      `gorm:"not null;default:0" json:"click_count"`
	Clicks     []Click    `gorm:"foreignKey:LinkID;constraint:OnDelete:CASCADE" json:"-"`

	CreatedAt time.Time `gorm:"index:idx_links_created_at" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the table name for Link
func (Link) TableName() string { return "links" }

// LinkFilter provides filter fields for repository queries
type LinkFilter struct {
	ID           *uint
	ShortCode    *string
	UserID       *uint
	TeamID       *uint
	PersonalOnly bool
	CreatedAfter *time.Time
}

// LinkTarget is the read model the redirect path needs: the link plus
// the tier of its owner. It is what the link cache stores.
type LinkTarget struct {
	LinkID    uint       `json:"link_id"`
	ShortCode string     `json:"short_code"`
	LongURL   string     `json:"long_url"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	UserID    *uint      `json:"user_id,omitempty"`
	OwnerTier *string    `json:"owner_tier,omitempty"`
	TeamID    *uint      `json:"team_id,omitempty"`
}

// IsExpired reports whether the expiry lies strictly before now.
func (t *LinkTarget) IsExpired(now time.Time) bool {
	return t.ExpiresAt != nil && t.ExpiresAt.Before(now)
}
