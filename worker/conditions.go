package worker

import (
	"outreachengine/leadstate"
	"outreachengine/models"
)

// defaultSequenceCondition applies to any step N>1 without an
// explicit condition: continue while the lead has not replied.
var defaultSequenceCondition = models.SequenceCondition{Type: "no_reply", Action: "continue"}

// variantWeightsValid checks the invariant that a step's variant
// weights sum to exactly 100.
func variantWeightsValid(variants []models.SequenceVariant) bool {
	total := 0
	for _, v := range variants {
		total += v.Weight
	}
	return total == 100
}

// evaluateSequenceCondition applies the step's sequence_conditions entry
// against the previous step's engagement. It returns proceed=true
// only when the condition holds and its action is neither stop nor
// skip_step (continue, or any other value). A holding
// condition with action stop ends the lead's sequence; skip_step and a
// failed condition both leave the lead untouched for this tick.
func (cs *CampaignScheduler) evaluateSequenceCondition(campaign models.Campaign, step models.SequenceStep, settings models.CampaignSettings, lead models.Lead, prev *models.Email) (bool, error) {
	cond, ok := settings.SequenceConditions[step.StepNumber]
	if !ok || cond.Type == "" {
		cond = defaultSequenceCondition
	}

	replied := false
	if cond.Type == "no_reply" || cond.Type == "replied" {
		var err error
		replied, err = cs.Store.LeadRepliedInCampaign(campaign.ID, lead.ID)
		if err != nil {
			return false, err
		}
	}

	if !conditionHolds(cond, prev, replied) {
		return false, nil
	}

	switch cond.Action {
	case "stop":
		if next, ok := leadstate.Apply(lead.Status, leadstate.SequenceFinished); ok {
			if err := cs.Store.UpdateLeadStatus(lead.ID, next); err != nil {
				return false, err
			}
		}
		return false, nil
	case "skip_step":
		// See DESIGN.md: without a skipped-email marker in the data model
		// the step is deferred rather than hopped over.
		return false, nil
	default:
		return true, nil
	}
}

func conditionHolds(cond models.SequenceCondition, prev *models.Email, replied bool) bool {
	if prev == nil {
		return true
	}
	switch cond.Type {
	case "no_reply":
		return !replied
	case "replied":
		return replied
	case "no_open":
		return prev.OpenCount == 0
	case "opened":
		return prev.OpenCount > 0
	case "no_click":
		return prev.ClickCount == 0
	case "clicked":
		return prev.ClickCount > 0
	case "bounced":
		return prev.Status == models.EmailBounced
	default:
		return true
	}
}
