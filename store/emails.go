package store

import (
	"time"

	"gorm.io/gorm"

	"outreachengine/models"
)

// EmailExists reports whether an Email row already exists for
// (campaignID, leadID, stepNumber), used
// defensively by the scheduler before insert (the DB constraint is the
// real guard).
func (s *Store) EmailExists(campaignID, leadID uint, stepNumber int) (bool, error) {
	var count int64
	err := s.DB.Model(&models.Email{}).
		Where("campaign_id = ? AND lead_id = ? AND step_number = ?", campaignID, leadID, stepNumber).
		Count(&count).Error
	return count > 0, err
}

// PriorEmail fetches the Email row for (campaignID, leadID, stepNumber),
// used to source threading headers for the next step.
func (s *Store) PriorEmail(campaignID, leadID uint, stepNumber int) (*models.Email, error) {
	var email models.Email
	err := s.DB.Where("campaign_id = ? AND lead_id = ? AND step_number = ?", campaignID, leadID, stepNumber).
		First(&email).Error
	if err != nil {
		return nil, err
	}
	return &email, nil
}

// AllPriorMessageIDs returns every message_id sent so far to this lead in
// this campaign, in step order, for building the References header.
func (s *Store) AllPriorMessageIDs(campaignID, leadID uint, beforeStep int) ([]string, error) {
	var ids []string
	err := s.DB.Model(&models.Email{}).
		Where("campaign_id = ? AND lead_id = ? AND step_number < ? AND message_id <> ''", campaignID, leadID, beforeStep).
		Order("step_number").
		Pluck("message_id", &ids).Error
	return ids, err
}

// CreateEmail inserts a new queued Email row. The DB-level unique index on
// (campaign_id, lead_id, step_number) is the true guard against double
// insert under concurrent ticks; a conflict here is reported as a
// duplicate-key error, not silently swallowed, so the caller can skip the
// candidate without corrupting state.
func (s *Store) CreateEmail(email *models.Email) error {
	return s.DB.Create(email).Error
}

// MarkSent transitions an Email to sent and stamps sent_at, called by the
// Send Worker after a successful transport ack, strictly before the
// campaign's sent counter is bumped.
func (s *Store) MarkSent(emailID uint, sentAt time.Time, messageID string) error {
	return s.DB.Model(&models.Email{}).Where("id = ?", emailID).Updates(map[string]interface{}{
		"status":     models.EmailSent,
		"sent_at":    sentAt,
		"message_id": messageID,
	}).Error
}

// MarkFailed records a permanent send failure that is not a bounce (e.g.
// transport dead-lettered after exhausting retries).
func (s *Store) MarkFailed(emailID uint) error {
	return s.DB.Model(&models.Email{}).Where("id = ?", emailID).Update("status", models.EmailFailed).Error
}

// MarkRetryPending moves an Email to retry_pending and increments its
// soft-bounce counter.
func (s *Store) MarkRetryPending(emailID uint, lastRetryAt time.Time) (newCount int, err error) {
	err = s.DB.Transaction(func(tx *gorm.DB) error {
		if e := tx.Model(&models.Email{}).Where("id = ?", emailID).Updates(map[string]interface{}{
			"status":            models.EmailRetryPending,
			"soft_bounce_count": gorm.Expr("soft_bounce_count + 1"),
			"last_retry_at":     lastRetryAt,
		}).Error; e != nil {
			return e
		}
		var email models.Email
		if e := tx.First(&email, emailID).Error; e != nil {
			return e
		}
		newCount = email.SoftBounceCount
		return nil
	})
	return newCount, err
}

// MarkBounced records a terminal bounce/complaint outcome on the Email row.
func (s *Store) MarkBounced(emailID uint, bounceType models.BounceType, reason string, at time.Time) error {
	return s.DB.Model(&models.Email{}).Where("id = ?", emailID).Updates(map[string]interface{}{
		"status":        models.EmailBounced,
		"bounce_type":   bounceType,
		"bounce_reason": reason,
		"bounced_at":    at,
	}).Error
}

// RequeueAsQueued resets an Email from retry_pending back to queued ahead
// of a retry send attempt.
func (s *Store) RequeueAsQueued(emailID uint) error {
	return s.DB.Model(&models.Email{}).Where("id = ?", emailID).Update("status", models.EmailQueued).Error
}

// GetEmail fetches one Email row by ID.
func (s *Store) GetEmail(emailID uint) (*models.Email, error) {
	var email models.Email
	if err := s.DB.First(&email, emailID).Error; err != nil {
		return nil, err
	}
	return &email, nil
}

// FindEmailByThreading looks up the Email a reply belongs to by thread ID
// first, falling back to In-Reply-To/Message-ID matching.
func (s *Store) FindEmailByThreading(threadID, inReplyTo string) (*models.Email, error) {
	var email models.Email
	q := s.DB.Model(&models.Email{})
	if threadID != "" {
		if err := q.Where("thread_id = ?", threadID).Order("step_number DESC").First(&email).Error; err == nil {
			return &email, nil
		}
	}
	if inReplyTo == "" {
		return nil, gorm.ErrRecordNotFound
	}
	if err := s.DB.Where("message_id = ?", inReplyTo).First(&email).Error; err != nil {
		return nil, err
	}
	return &email, nil
}

// CreateReply inserts a Reply row linked to the matched Email.
func (s *Store) CreateReply(reply *models.Reply) error {
	return s.DB.Create(reply).Error
}
