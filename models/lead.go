package models

import (
	"outreachengine/leadstate"

	"gorm.io/gorm"
)

// LeadList is a named, team-owned bag of leads with a cached count so list
// pages don't have to run a COUNT(*) on every request.
type LeadList struct {
	gorm.Model
	TeamID    uint   `gorm:"not null;index" json:"team_id"`
	Name      string `gorm:"not null" json:"name"`
	LeadCount int    `gorm:"default:0" json:"lead_count"`
}

// Lead is a recipient record. CustomFields is a flexible bag for
// campaign-author-defined merge variables that the template engine resolves
// under custom_fields.*.
type Lead struct {
	gorm.Model
	TeamID     uint  `gorm:"not null;index:idx_lead_team_email,unique" json:"team_id"`
	LeadListID *uint `gorm:"index" json:"lead_list_id"`

	Email       string `gorm:"not null;index:idx_lead_team_email,unique" json:"email"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	Company     string `json:"company"`
	Title       string `json:"title"`
	Phone       string `json:"phone"`
	LinkedinURL string `json:"linkedin_url"`
	Website     string `json:"website"`
	Country     string `json:"country"`
	City        string `json:"city"`
	Timezone    string `json:"timezone"`

	CustomFields JSONMap `gorm:"type:jsonb" json:"custom_fields"`

	Status leadstate.Status `gorm:"not null;default:'pending';index" json:"status"`
}
