package store

import (
	"time"

	"gorm.io/gorm"

	"outreachengine/models"
)

// TeamTimezone returns the team's configured IANA timezone, falling back
// to the platform default when the row is missing or blank.
func (s *Store) TeamTimezone(teamID uint) string {
	var team models.Team
	if err := s.DB.First(&team, teamID).Error; err != nil || team.Timezone == "" {
		return models.DefaultTimezone
	}
	return team.Timezone
}

// WarmupStatesNeedingReset returns a team's enabled warmup states whose
// last_reset_date differs from localDate — the rows the daily reset task
// must roll over.
func (s *Store) WarmupStatesNeedingReset(teamID uint, localDate string) ([]models.WarmupState, error) {
	var states []models.WarmupState
	err := s.DB.
		Joins("JOIN inboxes ON inboxes.id = warmup_states.inbox_id").
		Where("inboxes.team_id = ? AND warmup_states.enabled = true AND warmup_states.last_reset_date <> ?", teamID, localDate).
		Find(&states).Error
	return states, err
}

// RollWarmupDay performs one warmup state's daily rollover: zero the
// *_today counters, advance current_day by one, stamp last_reset_date, and
// apply the phase transition. The last_reset_date guard in the WHERE makes
// the update idempotent under concurrent reset sweeps — only one writer
// wins per calendar date.
func (s *Store) RollWarmupDay(inboxID uint, localDate string, newPhase models.WarmupPhase) error {
	return s.DB.Model(&models.WarmupState{}).
		Where("inbox_id = ? AND last_reset_date <> ?", inboxID, localDate).
		Updates(map[string]interface{}{
			"sent_today":      0,
			"received_today":  0,
			"replied_today":   0,
			"spam_today":      0,
			"current_day":     gorm.Expr("current_day + 1"),
			"last_reset_date": localDate,
			"phase":           newPhase,
		}).Error
}

// DisableWarmup turns a warmup state off and parks it in the paused phase,
// used by the reconciliation pass and the
// provider-auth-failure handler.
func (s *Store) DisableWarmup(inboxID uint) error {
	return s.DB.Model(&models.WarmupState{}).Where("inbox_id = ?", inboxID).Updates(map[string]interface{}{
		"enabled": false,
		"phase":   models.WarmupPaused,
	}).Error
}

// TouchWarmupActivity stamps last_activity_at.
func (s *Store) TouchWarmupActivity(inboxID uint, at time.Time) error {
	return s.DB.Model(&models.WarmupState{}).Where("inbox_id = ?", inboxID).
		Update("last_activity_at", at).Error
}

// NetworkMailboxes returns the platform-owned counterparty pool for
// network-mode warmup.
func (s *Store) NetworkMailboxes() ([]models.NetworkMailbox, error) {
	var boxes []models.NetworkMailbox
	err := s.DB.Where("active = true").Find(&boxes).Error
	return boxes, err
}

// AllTeamIDsWithInboxes returns the distinct team IDs that own at least
// one inbox. The daily reset iterates these, not just warmup-enrolled
// teams: inboxes.sent_today is the authoritative daily cap for ordinary
// campaign sending and must roll over for every team.
func (s *Store) AllTeamIDsWithInboxes() ([]uint, error) {
	var ids []uint
	err := s.DB.Model(&models.Inbox{}).
		Distinct("team_id").
		Pluck("team_id", &ids).Error
	return ids, err
}

// TeamInboxIDs returns every inbox ID a team owns, for the daily reset of
// inboxes.sent_today.
func (s *Store) TeamInboxIDs(teamID uint) ([]uint, error) {
	var ids []uint
	err := s.DB.Model(&models.Inbox{}).Where("team_id = ?", teamID).Pluck("id", &ids).Error
	return ids, err
}

// AllInboxes returns every inbox with its warmup state preloaded, for the
// health monitor's periodic recompute.
func (s *Store) AllInboxes() ([]models.Inbox, error) {
	var inboxes []models.Inbox
	err := s.DB.Preload("WarmupState").Find(&inboxes).Error
	return inboxes, err
}

// InboxesForInboundFetch returns inboxes the reply processor should poll
// over IMAP: sendable status and IMAP credentials present.
func (s *Store) InboxesForInboundFetch() ([]models.Inbox, error) {
	var inboxes []models.Inbox
	err := s.DB.
		Where("status IN ? AND imap_host <> ''", []models.InboxStatus{models.InboxActive, models.InboxWarmingUp}).
		Find(&inboxes).Error
	return inboxes, err
}

// EmailByMessageID resolves a Message-ID back to the Email row, used by the
// tracking endpoints and the transport webhook.
func (s *Store) EmailByMessageID(messageID string) (*models.Email, error) {
	var email models.Email
	if err := s.DB.Where("message_id = ?", messageID).First(&email).Error; err != nil {
		return nil, err
	}
	return &email, nil
}

// GetCampaign fetches one campaign by ID.
func (s *Store) GetCampaign(campaignID uint) (*models.Campaign, error) {
	var campaign models.Campaign
	if err := s.DB.First(&campaign, campaignID).Error; err != nil {
		return nil, err
	}
	return &campaign, nil
}
