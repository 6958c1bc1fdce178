// Package models contains the persisted entities of the link shortener
package models

// All returns the entities in dependency order, for AutoMigrate.
func All() []any {
	return []any{
		&User{},
		&Team{},
		&TeamMember{},
		&Link{},
		&Click{},
		&APIKey{},
		&SystemConfig{},
	}
}
