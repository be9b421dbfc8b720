package store

import (
	"outreachengine/models"
)

// LogEmailEvent appends an email_events row.
func (s *Store) LogEmailEvent(teamID, emailID uint, eventType string, metadata models.JSONMap) error {
	return s.DB.Create(&models.EmailEvent{
		TeamID:    teamID,
		EmailID:   emailID,
		EventType: eventType,
		Metadata:  metadata,
		At:        Now(),
	}).Error
}

// LogInboxEvent appends an inbox_events row (auto_paused,
// disconnected, reconnected).
func (s *Store) LogInboxEvent(teamID, inboxID uint, eventType string, metadata models.JSONMap) error {
	return s.DB.Create(&models.InboxEvent{
		TeamID:    teamID,
		InboxID:   inboxID,
		EventType: eventType,
		Metadata:  metadata,
		At:        Now(),
	}).Error
}

// InboxBounceRate computes bounced_total/sent_total for the health check
// of the auto-pause rule. Returns (rate, hasEnoughVolume).
func InboxBounceRate(sentTotal, bouncedTotal int) (rate float64, hasEnoughVolume bool) {
	if sentTotal == 0 {
		return 0, false
	}
	return float64(bouncedTotal) / float64(sentTotal), true
}
