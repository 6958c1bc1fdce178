package models

import (
	"encoding/json"
	"time"
)

// Click is one recorded visit to a link.
// The raw fields are written synchronously on the redirect path; the enrichment
// fields stay NULL until the background worker fills them in.
type Click struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	LinkID    uint      `gorm:"not null;index:idx_clicks_link_id" json:"link_id"`
	ClickedAt time.Time `gorm:"not null;index:idx_clicks_clicked_at" json:"clicked_at"`
	IPAddress string    `gorm:"size:64;not null" json:"ip_address"`
	UserAgent string    `gorm:"type:text;not null" json:"user_agent"`
	Referer   string    `gorm:"type:text;not null" json:"referer"`

	Country    *string  `gorm:"size:100" json:"country,omitempty"`
	City       *string  `gorm:"size:100" json:"city,omitempty"`
	Region     *string  `gorm:"size:100" json:"region,omitempty"`
	Latitude   *float64 `json:"latitude,omitempty"`
	Longitude  *float64 `json:"longitude,omitempty"`
	DeviceType *string  `gorm:"size:20" json:"device_type,omitempty"`
	Browser    *string  `gorm:"size:50" json:"browser,omitempty"`
	OS         *string  `gorm:"column:os;size:50" json:"os,omitempty"`

	RawData json.RawMessage `gorm:"type:jsonb" json:"raw_data,omitempty"`
}

// TableName returns the table name for Click
func (Click) TableName() string { return "clicks" }

// ClickEnrichment is the set of derived attributes written back onto a click
// in a single update.
type ClickEnrichment struct {
	Country    *string
	City       *string
	Region     *string
	Latitude   *float64
	Longitude  *float64
	DeviceType string
	Browser    string
	OS         string
	RawData    json.RawMessage
}

// ClickFilter provides filter fields for repository queries.
// A non-nil but empty LinkIDs matches nothing.
type ClickFilter struct {
	ID             *uint
	LinkID         *uint
	LinkIDs        []uint
	ClickedAfter   *time.Time
	OnlyUnenriched bool
}
