package store

import (
	"strings"
	"time"

	"gorm.io/gorm/clause"

	"outreachengine/leadstate"
	"outreachengine/models"
)

func onConflictDoNothing(columns ...string) clause.OnConflict {
	cols := make([]clause.Column, len(columns))
	for i, c := range columns {
		cols[i] = clause.Column{Name: c}
	}
	return clause.OnConflict{Columns: cols, DoNothing: true}
}

// IsSuppressed reports whether email is on the team's suppression list.
// Lookups are always team-scoped.
func (s *Store) IsSuppressed(teamID uint, email string) (bool, error) {
	var count int64
	err := s.DB.Model(&models.SuppressionEntry{}).
		Where("team_id = ? AND email = ?", teamID, strings.ToLower(email)).
		Count(&count).Error
	return count > 0, err
}

// Suppress inserts a suppression row, ignoring the unique-constraint
// violation if the email is already suppressed for this team.
func (s *Store) Suppress(teamID uint, email string, reason models.SuppressionReason, details string) error {
	entry := models.SuppressionEntry{
		TeamID:  teamID,
		Email:   strings.ToLower(email),
		Reason:  reason,
		Details: details,
	}
	return s.DB.Clauses(onConflictDoNothing("team_id", "email")).Create(&entry).Error
}

// Step1Candidates returns leads in the given list with status pending,
// capped at limit.
func (s *Store) Step1Candidates(leadListID uint, limit int) ([]models.Lead, error) {
	var leads []models.Lead
	err := s.DB.Where("lead_list_id = ? AND status = ?", leadListID, leadstate.Pending).
		Order("id").Limit(limit).Find(&leads).Error
	return leads, err
}

// blockingStatuses is the SQL-ready list of lead statuses that exclude a
// lead from further steps.
var blockingStatuses = []leadstate.Status{
	leadstate.Replied,
	leadstate.Interested,
	leadstate.NotInterested,
	leadstate.MeetingBooked,
	leadstate.Bounced,
	leadstate.Unsubscribed,
	leadstate.SpamReported,
	leadstate.SequenceComplete,
}

// nonFailingEmailStatuses is the set of Email.Status values that count as
// "a successful send" for gating the next step.
var nonFailingEmailStatuses = []models.EmailStatus{
	models.EmailSent,
	models.EmailDelivered,
	models.EmailOpened,
	models.EmailClicked,
}

// StepNCandidates returns leads eligible for stepNumber (N>1) as of `now`:
// they have a non-failing email at stepNumber-1 sent before cutoff (now
// minus the previous step's delay), whose current status does not block
// the sequence, who have no email row yet at stepNumber, and — when
// requireNoReply is true — who have not replied to any email in the
// campaign. Capped at limit.
func (s *Store) StepNCandidates(campaignID uint, stepNumber int, cutoff time.Time, requireNoReply bool, limit int) ([]models.Lead, error) {
	prevStep := stepNumber - 1

	var leads []models.Lead
	q := s.DB.Table("leads").
		Joins("JOIN emails prev ON prev.lead_id = leads.id AND prev.campaign_id = ? AND prev.step_number = ?", campaignID, prevStep).
		Where("prev.status IN ?", nonFailingEmailStatuses).
		Where("prev.sent_at IS NOT NULL AND prev.sent_at <= ?", cutoff).
		Where("leads.status NOT IN ?", blockingStatuses).
		Where("NOT EXISTS (SELECT 1 FROM emails cur WHERE cur.campaign_id = ? AND cur.lead_id = leads.id AND cur.step_number = ?)", campaignID, stepNumber)

	if requireNoReply {
		q = q.Where("NOT EXISTS (SELECT 1 FROM replies r JOIN emails e ON e.id = r.email_id WHERE e.campaign_id = ? AND e.lead_id = leads.id)", campaignID)
	}

	err := q.Order("leads.id").Limit(limit).Find(&leads).Error
	return leads, err
}

// LeadRepliedInCampaign reports whether the lead has replied to any email
// in the campaign, for sequence-condition evaluation.
func (s *Store) LeadRepliedInCampaign(campaignID, leadID uint) (bool, error) {
	var count int64
	err := s.DB.Model(&models.Reply{}).
		Joins("JOIN emails e ON e.id = replies.email_id").
		Where("e.campaign_id = ? AND e.lead_id = ?", campaignID, leadID).
		Count(&count).Error
	return count > 0, err
}

// UpdateLeadStatus applies the already-computed new status. Callers run the
// state machine (leadstate.Apply) first; this method is a plain write.
func (s *Store) UpdateLeadStatus(leadID uint, status leadstate.Status) error {
	return s.DB.Model(&models.Lead{}).Where("id = ?", leadID).Update("status", status).Error
}

// GetLead fetches one lead by ID.
func (s *Store) GetLead(leadID uint) (*models.Lead, error) {
	var lead models.Lead
	if err := s.DB.First(&lead, leadID).Error; err != nil {
		return nil, err
	}
	return &lead, nil
}

// CompletionSweepCandidates returns lead IDs in a campaign whose highest
// sequence step has a non-failing email and whose current status is
// in_sequence or contacted. These move to sequence_complete at the end of
// a scheduler tick.
func (s *Store) CompletionSweepCandidates(campaignID uint, lastStepNumber int) ([]uint, error) {
	var ids []uint
	err := s.DB.Table("leads").
		Joins("JOIN emails e ON e.lead_id = leads.id AND e.campaign_id = ? AND e.step_number = ?", campaignID, lastStepNumber).
		Where("e.status IN ?", nonFailingEmailStatuses).
		Where("leads.status IN ?", []leadstate.Status{leadstate.InSequence, leadstate.Contacted}).
		Pluck("leads.id", &ids).Error
	return ids, err
}
