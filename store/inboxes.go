package store

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	"outreachengine/models"
)

// GetInbox fetches one inbox with its warmup state.
func (s *Store) GetInbox(inboxID uint) (*models.Inbox, error) {
	var inbox models.Inbox
	if err := s.DB.Preload("WarmupState").First(&inbox, inboxID).Error; err != nil {
		return nil, err
	}
	return &inbox, nil
}

// IncrementInboxSentToday bumps the authoritative sent_today/sent_total
// counters; this row is the authoritative cap, the scheduler's in-memory
// projection only approximates it within a tick.
func (s *Store) IncrementInboxSentToday(inboxID uint) error {
	return s.DB.Model(&models.Inbox{}).Where("id = ?", inboxID).Updates(map[string]interface{}{
		"sent_today": gorm.Expr("sent_today + 1"),
		"sent_total": gorm.Expr("sent_total + 1"),
	}).Error
}

// IncrementInboxBounced bumps bounced_total, used by the bounce-rate health
// check.
func (s *Store) IncrementInboxBounced(inboxID uint) error {
	return s.DB.Model(&models.Inbox{}).Where("id = ?", inboxID).
		Update("bounced_total", gorm.Expr("bounced_total + 1")).Error
}

// IncrementInboxSpam bumps spam_complaints_total.
func (s *Store) IncrementInboxSpam(inboxID uint) error {
	return s.DB.Model(&models.Inbox{}).Where("id = ?", inboxID).
		Update("spam_complaints_total", gorm.Expr("spam_complaints_total + 1")).Error
}

// PauseInboxForBounceRate transitions an inbox to paused with a reason,
// the auto-pause branch of the bounce-rate health check.
func (s *Store) PauseInboxForBounceRate(inboxID uint, bounceRatePct float64, at time.Time) error {
	reason := fmt.Sprintf("High bounce rate: %.1f%%", bounceRatePct)
	return s.DB.Model(&models.Inbox{}).Where("id = ?", inboxID).Updates(map[string]interface{}{
		"status":       models.InboxPaused,
		"paused_at":    at,
		"pause_reason": reason,
	}).Error
}

// SetInboxStatus transitions status (+ optional reason), used by the
// provider-auth-failure handler and reconnection.
func (s *Store) SetInboxStatus(inboxID uint, status models.InboxStatus, reason string) error {
	return s.DB.Model(&models.Inbox{}).Where("id = ?", inboxID).Updates(map[string]interface{}{
		"status":        status,
		"status_reason": reason,
	}).Error
}

// SetInboxHealthScore persists a recomputed health score.
func (s *Store) SetInboxHealthScore(inboxID uint, score int) error {
	return s.DB.Model(&models.Inbox{}).Where("id = ?", inboxID).Update("health_score", score).Error
}

// ResetDailyInboxCounters zeroes sent_today for the given inboxes, called
// by the daily reset task.
func (s *Store) ResetDailyInboxCounters(inboxIDs []uint) error {
	if len(inboxIDs) == 0 {
		return nil
	}
	return s.DB.Model(&models.Inbox{}).Where("id IN ?", inboxIDs).Update("sent_today", 0).Error
}

// PoolWarmupMailboxCount returns how many of a team's inboxes are enrolled
// in pool-mode warmup, for the two-mailbox-minimum reconciliation check.
func (s *Store) PoolWarmupMailboxCount(teamID uint) (int64, error) {
	var count int64
	err := s.DB.Model(&models.Inbox{}).
		Joins("JOIN warmup_states w ON w.inbox_id = inboxes.id").
		Where("inboxes.team_id = ? AND w.enabled = true AND w.warmup_mode = ?", teamID, models.WarmupPool).
		Count(&count).Error
	return count, err
}

// InboxesWithEnabledWarmup returns every inbox with warmup enabled, across
// all teams, for the warmup engine's tick.
func (s *Store) InboxesWithEnabledWarmup() ([]models.Inbox, error) {
	var inboxes []models.Inbox
	err := s.DB.
		Joins("JOIN warmup_states w ON w.inbox_id = inboxes.id").
		Where("w.enabled = true AND inboxes.status NOT IN ?", []models.InboxStatus{models.InboxError, models.InboxBanned}).
		Preload("WarmupState").
		Find(&inboxes).Error
	return inboxes, err
}

// PoolCounterparts returns candidate pool-warmup counterpart inboxes for a
// team, excluding the mailbox itself.
func (s *Store) PoolCounterparts(teamID uint, excludeInboxID uint) ([]models.Inbox, error) {
	var inboxes []models.Inbox
	err := s.DB.
		Joins("JOIN warmup_states w ON w.inbox_id = inboxes.id").
		Where("inboxes.team_id = ? AND inboxes.id <> ? AND w.enabled = true AND w.warmup_mode = ?", teamID, excludeInboxID, models.WarmupPool).
		Find(&inboxes).Error
	return inboxes, err
}

// UpdateWarmupState persists the mutable counters/phase on a warmup state
// row by inbox ID.
func (s *Store) UpdateWarmupState(inboxID uint, updates map[string]interface{}) error {
	return s.DB.Model(&models.WarmupState{}).Where("inbox_id = ?", inboxID).Updates(updates).Error
}

