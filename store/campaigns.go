package store

import (
	"gorm.io/gorm"

	"outreachengine/models"
)

// ActiveCampaigns returns every campaign with status=active, preloaded with
// its sequence steps (ordered) and their variants. Linked inboxes are not
// preloaded; CampaignInboxes loads them separately.
func (s *Store) ActiveCampaigns() ([]models.Campaign, error) {
	var campaigns []models.Campaign
	err := s.DB.
		Where("status = ?", models.CampaignActive).
		Preload("Steps", func(db *gorm.DB) *gorm.DB { return db.Order("step_number") }).
		Preload("Steps.Variants").
		Find(&campaigns).Error
	return campaigns, err
}

// CampaignInboxes returns the Inbox rows linked to a campaign, including
// each inbox's warmup state (needed to gate on status and re-derive
// effective limits).
func (s *Store) CampaignInboxes(campaignID uint) ([]models.Inbox, error) {
	var inboxes []models.Inbox
	err := s.DB.
		Joins("JOIN campaign_inboxes ci ON ci.inbox_id = inboxes.id").
		Where("ci.campaign_id = ?", campaignID).
		Preload("WarmupState").
		Find(&inboxes).Error
	return inboxes, err
}

// UpdateCampaignStatus transitions a campaign's lifecycle status.
func (s *Store) UpdateCampaignStatus(campaignID uint, status models.CampaignStatus) error {
	return s.DB.Model(&models.Campaign{}).Where("id = ?", campaignID).Update("status", status).Error
}

// VariantsForStep returns the A/B variants belonging to a step.
func (s *Store) VariantsForStep(stepID uint) ([]models.SequenceVariant, error) {
	var variants []models.SequenceVariant
	err := s.DB.Where("step_id = ?", stepID).Order("id").Find(&variants).Error
	return variants, err
}

// UpdateVariantWeights persists a map of variant ID -> new weight, used by
// the progressive shifting job.
func (s *Store) UpdateVariantWeights(weights map[uint]int, winnerID uint, declareWinner bool) error {
	return s.DB.Transaction(func(tx *gorm.DB) error {
		for id, weight := range weights {
			updates := map[string]interface{}{"weight": weight}
			if declareWinner {
				updates["is_winner"] = id == winnerID
			}
			if err := tx.Model(&models.SequenceVariant{}).Where("id = ?", id).Updates(updates).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// StepsWithVariants returns every SequenceStep across all campaigns that
// has two or more variants, for the progressive traffic-shifting job
//. Winner-declared steps are not excluded here; the caller's guard
// (variant.EvaluateShift) leaves them unchanged.
func (s *Store) StepsWithVariants() ([]models.SequenceStep, error) {
	var steps []models.SequenceStep
	err := s.DB.
		Joins("JOIN sequence_variants v ON v.step_id = sequence_steps.id").
		Group("sequence_steps.id").
		Having("COUNT(v.id) >= 2").
		Preload("Variants").
		Find(&steps).Error
	return steps, err
}
