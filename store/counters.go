// Analytics counters. Every engagement counter is an atomic gorm.Expr
// increment, never a read-modify-write from application code.
package store

import (
	"time"

	"gorm.io/gorm"

	"outreachengine/models"
)

// IncrementEmailOpen bumps Email.open_count and stamps opened_at on first
// open only (COALESCE semantics).
func (s *Store) IncrementEmailOpen(emailID uint, at time.Time) error {
	return s.DB.Exec(
		`UPDATE emails SET open_count = open_count + 1, opened_at = COALESCE(opened_at, ?) WHERE id = ?`,
		at, emailID,
	).Error
}

// IncrementEmailClick bumps Email.click_count and stamps clicked_at on
// first click only.
func (s *Store) IncrementEmailClick(emailID uint, at time.Time) error {
	return s.DB.Exec(
		`UPDATE emails SET click_count = click_count + 1, clicked_at = COALESCE(clicked_at, ?) WHERE id = ?`,
		at, emailID,
	).Error
}

// IncrementCampaignSent bumps Campaign.sent_count. Called by the Send
// Worker strictly after the Email row's status flips to sent.
func (s *Store) IncrementCampaignSent(campaignID uint) error {
	return s.DB.Model(&models.Campaign{}).Where("id = ?", campaignID).
		Update("sent_count", gorm.Expr("sent_count + 1")).Error
}

// IncrementCampaignOpens bumps Campaign.open_count.
func (s *Store) IncrementCampaignOpens(campaignID uint) error {
	return s.DB.Model(&models.Campaign{}).Where("id = ?", campaignID).
		Update("open_count", gorm.Expr("open_count + 1")).Error
}

// IncrementCampaignClicks bumps Campaign.click_count.
func (s *Store) IncrementCampaignClicks(campaignID uint) error {
	return s.DB.Model(&models.Campaign{}).Where("id = ?", campaignID).
		Update("click_count", gorm.Expr("click_count + 1")).Error
}

// IncrementCampaignReplied bumps Campaign.replied_count.
func (s *Store) IncrementCampaignReplied(campaignID uint) error {
	return s.DB.Model(&models.Campaign{}).Where("id = ?", campaignID).
		Update("replied_count", gorm.Expr("replied_count + 1")).Error
}

// IncrementCampaignBounces bumps Campaign.bounced_count, preferring an
// atomic expression; a read-then-write fallback is unnecessary since
// gorm.Expr is already atomic at the SQL level.
func (s *Store) IncrementCampaignBounces(campaignID uint) error {
	return s.DB.Model(&models.Campaign{}).Where("id = ?", campaignID).
		Update("bounced_count", gorm.Expr("bounced_count + 1")).Error
}

// IncrementVariantStat bumps one of sent/opened/clicked/replied on a
// SequenceVariant row, parameterized by which counter fired.
func (s *Store) IncrementVariantStat(variantID uint, column string) error {
	return s.DB.Model(&models.SequenceVariant{}).Where("id = ?", variantID).
		Update(column, gorm.Expr(column+" + 1")).Error
}

const (
	VariantColumnSent    = "sent_count"
	VariantColumnOpened  = "open_count"
	VariantColumnClicked = "click_count"
	VariantColumnReplied = "reply_count"
)

// IncrementWarmupSentToday bumps a warmup state's daily + lifetime sent
// counters.
func (s *Store) IncrementWarmupSentToday(inboxID uint) error {
	return s.DB.Model(&models.WarmupState{}).Where("inbox_id = ?", inboxID).Updates(map[string]interface{}{
		"sent_today": gorm.Expr("sent_today + 1"),
		"sent_total": gorm.Expr("sent_total + 1"),
	}).Error
}

// IncrementWarmupReceivedToday bumps a warmup state's daily + lifetime
// received counters (a synthetic counterpart "opened" this mailbox's
// message).
func (s *Store) IncrementWarmupReceivedToday(inboxID uint) error {
	return s.DB.Model(&models.WarmupState{}).Where("inbox_id = ?", inboxID).Updates(map[string]interface{}{
		"received_today": gorm.Expr("received_today + 1"),
		"received_total": gorm.Expr("received_total + 1"),
	}).Error
}

// IncrementWarmupRepliedToday bumps a warmup state's daily + lifetime
// replied counters.
func (s *Store) IncrementWarmupRepliedToday(inboxID uint) error {
	return s.DB.Model(&models.WarmupState{}).Where("inbox_id = ?", inboxID).Updates(map[string]interface{}{
		"replied_today": gorm.Expr("replied_today + 1"),
		"replied_total": gorm.Expr("replied_total + 1"),
	}).Error
}

// IncrementWarmupSpamToday bumps a warmup state's daily + lifetime spam
// counters (a synthetic spam-complaint signal during warmup).
func (s *Store) IncrementWarmupSpamToday(inboxID uint) error {
	return s.DB.Model(&models.WarmupState{}).Where("inbox_id = ?", inboxID).Updates(map[string]interface{}{
		"spam_today": gorm.Expr("spam_today + 1"),
		"spam_total": gorm.Expr("spam_total + 1"),
	}).Error
}
