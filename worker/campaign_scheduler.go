package worker

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/paulbellamy/ratecounter"

	"outreachengine/leadstate"
	"outreachengine/models"
	"outreachengine/quota"
	"outreachengine/queue"
	"outreachengine/sendwindow"
	"outreachengine/store"
	"outreachengine/template"
	"outreachengine/variant"
)

// MaxEmailsPerRun caps how many candidate leads one scheduler tick will
// enqueue across all steps of a single campaign.
const MaxEmailsPerRun = 100

// CampaignScheduler is the campaign control loop: on each tick, for every
// active campaign, gate on the send window, enumerate eligible inboxes and
// candidate leads per step, and enqueue email-send jobs.
type CampaignScheduler struct {
	Store *store.Store
	Queue *queue.Queue
	Tick  time.Duration

	mu         sync.Mutex
	rotations  map[uint]int
	sendCounter *ratecounter.RateCounter
}

// NewCampaignScheduler builds a scheduler with a 5 minute cadence.
func NewCampaignScheduler(s *store.Store, q *queue.Queue) *CampaignScheduler {
	return &CampaignScheduler{
		Store:       s,
		Queue:       q,
		Tick:        5 * time.Minute,
		rotations:   make(map[uint]int),
		sendCounter: ratecounter.NewRateCounter(time.Minute),
	}
}

// Start runs the scheduler loop until ctx is cancelled.
func (cs *CampaignScheduler) Start(ctx context.Context) {
	ticker := time.NewTicker(cs.Tick)
	defer ticker.Stop()

	cs.RunOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cs.RunOnce(ctx)
		}
	}
}

// RunOnce processes every active campaign once. A per-campaign error is
// logged and never aborts the remaining campaigns.
func (cs *CampaignScheduler) RunOnce(ctx context.Context) {
	campaigns, err := cs.Store.ActiveCampaigns()
	if err != nil {
		LogError("scheduler_load_campaigns", err, nil)
		return
	}
	for _, campaign := range campaigns {
		if err := cs.processCampaign(ctx, campaign); err != nil {
			LogError("scheduler_process_campaign", err, map[string]interface{}{"campaign_id": campaign.ID})
		}
	}
	LogEvent("scheduler_tick_done", map[string]interface{}{
		"campaigns":     len(campaigns),
		"sends_per_min": cs.sendCounter.Rate(),
	})
}

func (cs *CampaignScheduler) processCampaign(ctx context.Context, campaign models.Campaign) error {
	settings := campaign.DecodeSettings()
	if !sendwindow.MaySendNow(sendWindowConfig(settings), time.Now()) {
		return nil
	}

	inboxes, err := cs.Store.CampaignInboxes(campaign.ID)
	if err != nil {
		return fmt.Errorf("load inboxes: %w", err)
	}
	capacity := cs.eligibleInboxes(inboxes)
	if len(capacity) == 0 {
		return nil
	}

	steps := append([]models.SequenceStep(nil), campaign.Steps...)
	sort.Slice(steps, func(i, j int) bool { return steps[i].StepNumber < steps[j].StepNumber })

	// Step numbers must form a dense 1..N. A campaign violating the
	// invariant is rejected with an operator event and left as-is.
	for i := range steps {
		if steps[i].StepNumber != i+1 {
			LogError("scheduler_steps_not_dense", fmt.Errorf("campaign %d: step numbers are not dense 1..N", campaign.ID), map[string]interface{}{"campaign_id": campaign.ID})
			return nil
		}
	}

	remaining := MaxEmailsPerRun
	requireNoReply := settings.StopOnReply == nil || *settings.StopOnReply

	for _, step := range steps {
		if remaining <= 0 {
			break
		}
		// Variant weights must sum to exactly 100. A violating
		// step is rejected for this tick; the campaign is not auto-paused.
		if len(step.Variants) > 0 && !variantWeightsValid(step.Variants) {
			LogError("scheduler_variant_weights", fmt.Errorf("campaign %d step %d: variant weights do not sum to 100", campaign.ID, step.StepNumber), map[string]interface{}{"campaign_id": campaign.ID, "step": step.StepNumber})
			continue
		}
		candidates, err := cs.candidatesForStep(campaign, step, requireNoReply, remaining)
		if err != nil {
			LogError("scheduler_candidates", err, map[string]interface{}{"campaign_id": campaign.ID, "step": step.StepNumber})
			continue
		}
		for i, lead := range candidates {
			if remaining <= 0 {
				break
			}
			inbox, ok := cs.nextInbox(campaign.ID, capacity)
			if !ok {
				break
			}
			created, err := cs.enqueueStepEmail(ctx, campaign, step, settings, lead, inbox, i)
			if err != nil {
				LogError("scheduler_enqueue", err, map[string]interface{}{"campaign_id": campaign.ID, "lead_id": lead.ID, "step": step.StepNumber})
				continue
			}
			// Policy rejections (suppressed, duplicate, condition not met)
			// consume neither the run budget nor inbox capacity.
			if !created {
				continue
			}
			remaining--
			cs.sendCounter.Incr(1)
			capacity = cs.decrementCapacity(capacity, inbox.ID)
		}
	}

	return cs.sweepCompletions(campaign, steps)
}

// eligibleInboxes filters to status active/warming_up, health >= floor, and
// remaining capacity today.
func (cs *CampaignScheduler) eligibleInboxes(inboxes []models.Inbox) []models.Inbox {
	out := make([]models.Inbox, 0, len(inboxes))
	for _, ib := range inboxes {
		if ib.Status != models.InboxActive && ib.Status != models.InboxWarmingUp {
			continue
		}
		if ib.HealthScore < quota.MinInboxHealthScore {
			continue
		}
		limit := quota.EffectiveDailyLimit(ib.DailySendLimit, ib.ThrottlePercentage)
		if ib.SentToday >= limit {
			continue
		}
		out = append(out, ib)
	}
	return out
}

// decrementCapacity reflects one more projected send against inbox id,
// dropping it from the candidate set once its effective limit is reached.
func (cs *CampaignScheduler) decrementCapacity(inboxes []models.Inbox, inboxID uint) []models.Inbox {
	out := make([]models.Inbox, 0, len(inboxes))
	for _, ib := range inboxes {
		if ib.ID == inboxID {
			ib.SentToday++
			limit := quota.EffectiveDailyLimit(ib.DailySendLimit, ib.ThrottlePercentage)
			if ib.SentToday >= limit {
				continue
			}
		}
		out = append(out, ib)
	}
	return out
}

// nextInbox advances the per-campaign round-robin counter, the only
// mutable process-local state the scheduler keeps. It is recreated on
// restart, costing at most one extra rotation nudge.
func (cs *CampaignScheduler) nextInbox(campaignID uint, inboxes []models.Inbox) (models.Inbox, bool) {
	if len(inboxes) == 0 {
		return models.Inbox{}, false
	}
	cs.mu.Lock()
	defer cs.mu.Unlock()
	idx := cs.rotations[campaignID] % len(inboxes)
	cs.rotations[campaignID] = idx + 1
	return inboxes[idx], true
}

func (cs *CampaignScheduler) candidatesForStep(campaign models.Campaign, step models.SequenceStep, requireNoReply bool, limit int) ([]models.Lead, error) {
	if step.StepNumber == 1 {
		return cs.Store.Step1Candidates(campaign.LeadListID, limit)
	}
	prevStep := findStep(campaign.Steps, step.StepNumber-1)
	if prevStep == nil {
		return nil, nil
	}
	delay := time.Duration(prevStep.DelayDays)*24*time.Hour + time.Duration(prevStep.DelayHours)*time.Hour
	cutoff := time.Now().Add(-delay)
	return cs.Store.StepNCandidates(campaign.ID, step.StepNumber, cutoff, requireNoReply, limit)
}

func findStep(steps []models.SequenceStep, number int) *models.SequenceStep {
	for i := range steps {
		if steps[i].StepNumber == number {
			return &steps[i]
		}
	}
	return nil
}

// enqueueStepEmail inserts the queued Email row and its send job for one
// candidate. created reports whether a send was actually produced: policy
// rejections (invalid address, suppressed, duplicate row, sequence
// condition not met) return (false, nil) so the caller leaves the run
// budget and the inbox's projected capacity untouched.
func (cs *CampaignScheduler) enqueueStepEmail(ctx context.Context, campaign models.Campaign, step models.SequenceStep, settings models.CampaignSettings, lead models.Lead, inbox models.Inbox, batchIndex int) (created bool, err error) {
	if !leadstate.ValidEmail(lead.Email) {
		return false, nil
	}
	suppressed, err := cs.Store.IsSuppressed(campaign.TeamID, lead.Email)
	if err != nil {
		return false, err
	}
	if suppressed {
		return false, nil
	}
	exists, err := cs.Store.EmailExists(campaign.ID, lead.ID, step.StepNumber)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}

	var prevEmail *models.Email
	if step.StepNumber > 1 {
		prevEmail, err = cs.Store.PriorEmail(campaign.ID, lead.ID, step.StepNumber-1)
		if err != nil {
			return false, err
		}
		proceed, err := cs.evaluateSequenceCondition(campaign, step, settings, lead, prevEmail)
		if err != nil {
			return false, err
		}
		if !proceed {
			return false, nil
		}
	}

	subject, body := step.Subject, step.BodyHTML
	var variantID *uint
	if len(step.Variants) > 0 {
		chosen := variant.Select(toVariants(step.Variants), rand.New(rand.NewSource(time.Now().UnixNano())))
		for _, v := range step.Variants {
			if v.ID == chosen.ID {
				subject, body = v.Subject, v.Body
				break
			}
		}
		id := chosen.ID
		variantID = &id
	}

	var inReplyTo, threadID, referencesHeader string
	if step.StepNumber > 1 {
		first, err := cs.Store.PriorEmail(campaign.ID, lead.ID, 1)
		if err == nil && first != nil {
			threadID = first.ThreadID
			if threadID == "" {
				threadID = first.MessageID
			}
			subject = "Re: " + strings.TrimPrefix(first.Subject, "Re: ")
		}
		if prevEmail != nil {
			inReplyTo = prevEmail.MessageID
		}
		priorIDs, err := cs.Store.AllPriorMessageIDs(campaign.ID, lead.ID, step.StepNumber)
		if err == nil {
			referencesHeader = strings.Join(priorIDs, " ")
		}
	}

	vars := leadVariables(lead, inbox)
	renderedSubject := template.Render(subject, vars, template.Options{})
	renderedBody := template.Render(body, vars, template.Options{Random: rand.New(rand.NewSource(time.Now().UnixNano()))})

	messageID := fmt.Sprintf("<%s@outreachengine>", uuid.New().String())
	if threadID == "" {
		threadID = messageID
	}

	email := models.Email{
		TeamID:           campaign.TeamID,
		CampaignID:       campaign.ID,
		StepID:           step.ID,
		StepNumber:       step.StepNumber,
		LeadID:           lead.ID,
		InboxID:          inbox.ID,
		VariantID:        variantID,
		FromEmail:        inbox.Email,
		ToEmail:          lead.Email,
		Subject:          renderedSubject,
		BodyHTML:         renderedBody,
		Status:           models.EmailQueued,
		MessageID:        messageID,
		InReplyTo:        inReplyTo,
		ReferencesHeader: referencesHeader,
		ThreadID:         threadID,
	}
	if err := cs.Store.CreateEmail(&email); err != nil {
		return false, err
	}

	idempotencyKey := fmt.Sprintf("campaign-%d-%d-%d-%s", campaign.ID, lead.ID, step.StepNumber, time.Now().Format("20060102"))
	jitter := time.Duration(batchIndex)*jitterBase() + randDuration(0, 30*time.Second)
	runAt := time.Now().Add(jitter)

	if err := cs.Queue.Enqueue(ctx, queue.KindEmailSend, idempotencyKey, queue.EmailSendJob{
		EmailID:      email.ID,
		LeadID:       lead.ID,
		CampaignID:   campaign.ID,
		InboxID:      inbox.ID,
		SequenceStep: step.StepNumber,
	}, runAt); err != nil {
		return false, err
	}
	return true, nil
}

// jitterBase draws U(30s, 120s) fresh per call; batch index i times this
// plus U(0, 30s) spreads a batch's sends non-uniformly.
func jitterBase() time.Duration {
	return randDuration(30*time.Second, 120*time.Second)
}

func randDuration(min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	return min + time.Duration(rand.Int63n(int64(max-min)))
}

func toVariants(svs []models.SequenceVariant) []variant.Variant {
	out := make([]variant.Variant, len(svs))
	for i, v := range svs {
		out[i] = variant.Variant{ID: v.ID, Weight: v.Weight, IsWinner: v.IsWinner, SentCount: v.SentCount, Opened: v.OpenCount, Clicked: v.ClickCount, Replied: v.ReplyCount}
	}
	return out
}

func (cs *CampaignScheduler) sweepCompletions(campaign models.Campaign, steps []models.SequenceStep) error {
	if len(steps) == 0 {
		return nil
	}
	lastStep := steps[len(steps)-1].StepNumber
	ids, err := cs.Store.CompletionSweepCandidates(campaign.ID, lastStep)
	if err != nil {
		return err
	}
	for _, leadID := range ids {
		if err := cs.Store.UpdateLeadStatus(leadID, leadstate.SequenceComplete); err != nil {
			LogError("scheduler_sweep_update", err, map[string]interface{}{"lead_id": leadID})
		}
	}
	return nil
}
