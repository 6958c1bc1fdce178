package models

import "time"

// SystemConfigSingletonID is the id of the only row in system_configs.
const SystemConfigSingletonID uint = 1

// SystemConfig is a single-row table holding process-wide tunables.
// SlugGenerationLength is the minimum length the slug generator starts at;
// it only ever grows.
type SystemConfig struct {
	ID                   uint      `gorm:"primaryKey" json:"id"`
	SlugGenerationLength int       `gorm:"not null;default:2" json:"slug_generation_length"`
	UpdatedAt            time.Time `json:"updated_at"`
}

func (SystemConfig) TableName() string { return "system_configs" }
