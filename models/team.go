package models

import "gorm.io/gorm"

// Team is the tenancy boundary. Every other entity in this package carries
// a TeamID and all store queries are team-scoped. Teams themselves are
// created and destroyed by an external system (the dashboard); this core
// only reads the identifier.
type Team struct {
	gorm.Model
	Name string `gorm:"not null" json:"name"`

	// Timezone sets the team's day boundary for daily counter resets and
	// warmup day advancement: midnight in this zone rolls the day over.
	Timezone string `gorm:"default:'America/New_York'" json:"timezone"`

	Members []TeamMember `gorm:"foreignKey:TeamID" json:"members,omitempty"`
}

// TeamMember links an externally-managed user identifier to a Team. User
// profile, auth, and role management live outside this core; UserID is an
// opaque foreign reference.
type TeamMember struct {
	gorm.Model
	TeamID uint `gorm:"not null;index" json:"team_id"`
	UserID uint `gorm:"not null;index" json:"user_id"`
	Role   string `gorm:"default:'member'" json:"role"`

	Team Team `json:"-"`
}
