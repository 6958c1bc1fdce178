package models

import "time"

// APIKey is a long-lived credential for the management API.
// Only the bcrypt hash of the secret is stored; Prefix is the public lookup part.
type APIKey struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	UserID     uint       `gorm:"not null;index:idx_api_keys_user_id" json:"user_id"`
	User       *User      `gorm:"foreignKey:UserID" json:"-"`
	Name       string     `gorm:"size:100;not null" json:"name"`
	Prefix     string     `gorm:"size:32;not null;uniqueIndex:uk_api_keys_prefix" json:"prefix"`
	KeyHash    string     `gorm:"size:255;not null" json:"-"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty"`
	RevokedAt  *time.Time `gorm:"index:idx_api_keys_revoked_at" json:"revoked_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

func (APIKey) TableName() string { return "api_keys" }

// IsActive reports whether the key has not been revoked.
func (k *APIKey) IsActive() bool { return k.RevokedAt == nil }
