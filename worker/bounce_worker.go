package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"outreachengine/leadstate"
	"outreachengine/models"
	"outreachengine/quota"
	"outreachengine/queue"
	"outreachengine/store"
)

// softBounceRetryDelays is the soft-bounce backoff schedule, indexed by the
// email's soft_bounce_count before this bounce.
var softBounceRetryDelays = [...]time.Duration{
	1 * time.Hour,
	4 * time.Hour,
	24 * time.Hour,
}

// maxSoftBounceRetries is how many soft bounces an email absorbs before
// being treated as hard.
const maxSoftBounceRetries = 3

// BounceWorker consumes bounce-process jobs and turns delivery feedback
// into email, lead, suppression, and inbox state.
type BounceWorker struct {
	Store     *store.Store
	Queue     *queue.Queue
	BatchSize int
	Tick      time.Duration
}

// NewBounceWorker builds a bounce consumer.
func NewBounceWorker(s *store.Store, q *queue.Queue) *BounceWorker {
	return &BounceWorker{Store: s, Queue: q, BatchSize: 50, Tick: 10 * time.Second}
}

// Start runs the consume loop until ctx is cancelled.
func (w *BounceWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.Tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.RunOnce(ctx)
		}
	}
}

// RunOnce drains up to BatchSize due bounce jobs.
func (w *BounceWorker) RunOnce(ctx context.Context) {
	envs, err := w.Queue.DequeueDue(ctx, queue.KindBounceProcess, w.BatchSize)
	if err != nil {
		LogError("bounce_dequeue", err, nil)
		return
	}
	for _, env := range envs {
		var job queue.BounceProcessJob
		if err := json.Unmarshal(env.Payload, &job); err != nil {
			LogError("bounce_unmarshal", err, map[string]interface{}{"key": env.Key})
			continue
		}
		if err := w.Process(ctx, job); err != nil {
			LogError("bounce_process", err, map[string]interface{}{"email_id": job.EmailID, "type": job.BounceType})
		}
	}
}

// Process handles one bounce job end to end.
func (w *BounceWorker) Process(ctx context.Context, job queue.BounceProcessJob) error {
	email, err := w.Store.GetEmail(job.EmailID)
	if err != nil {
		return fmt.Errorf("load email: %w", err)
	}

	bounceType := models.BounceType(job.BounceType)
	reason := job.BounceReason

	if bounceType == models.BounceSoft {
		if email.SoftBounceCount < maxSoftBounceRetries {
			return w.scheduleRetry(ctx, job, email)
		}
		// Retries exhausted: treat as hard from here on.
		bounceType = models.BounceHard
		reason = reason + " (max retries exceeded)"
	}

	now := time.Now()
	if err := w.Store.MarkBounced(email.ID, bounceType, reason, now); err != nil {
		return fmt.Errorf("mark bounced: %w", err)
	}

	lead, err := w.Store.GetLead(job.LeadID)
	if err != nil {
		return fmt.Errorf("load lead: %w", err)
	}
	event := leadstate.EventFromBounceType(leadstate.BounceType(bounceType))
	if next, ok := leadstate.Apply(lead.Status, event); ok {
		if err := w.Store.UpdateLeadStatus(lead.ID, next); err != nil {
			return fmt.Errorf("update lead: %w", err)
		}
	} else {
		LogEvent("bounce_transition_blocked", map[string]interface{}{"lead_id": lead.ID, "status": lead.Status, "event": event})
	}

	switch bounceType {
	case models.BounceHard:
		if err := w.Store.Suppress(email.TeamID, lead.Email, models.SuppressionHardBounce, reason); err != nil {
			return fmt.Errorf("suppress: %w", err)
		}
	case models.BounceComplaint:
		if err := w.Store.Suppress(email.TeamID, lead.Email, models.SuppressionSpamComplaint, reason); err != nil {
			return fmt.Errorf("suppress: %w", err)
		}
		if err := w.Store.IncrementInboxSpam(job.InboxID); err != nil {
			LogError("bounce_incr_spam", err, map[string]interface{}{"inbox_id": job.InboxID})
		}
	}

	if err := w.Store.IncrementInboxBounced(job.InboxID); err != nil {
		LogError("bounce_incr_inbox", err, map[string]interface{}{"inbox_id": job.InboxID})
	}

	w.logAndCount(email, job, string(bounceType), reason)
	w.checkInboxHealth(job.InboxID, email.TeamID)
	return nil
}

// scheduleRetry is the soft-bounce-with-retries-remaining branch: mark
// retry_pending, bump the counter, and re-enqueue the send after the
// backoff delay. The lead is not transitioned.
func (w *BounceWorker) scheduleRetry(ctx context.Context, job queue.BounceProcessJob, email *models.Email) error {
	delay := softBounceRetryDelays[email.SoftBounceCount]

	newCount, err := w.Store.MarkRetryPending(email.ID, time.Now())
	if err != nil {
		return fmt.Errorf("mark retry pending: %w", err)
	}

	retryJob := queue.EmailSendJob{
		EmailID:      email.ID,
		LeadID:       email.LeadID,
		CampaignID:   email.CampaignID,
		InboxID:      email.InboxID,
		SequenceStep: email.StepNumber,
		IsRetry:      true,
		RetryCount:   newCount,
	}
	key := fmt.Sprintf("retry-%d-%d", email.ID, newCount)
	if err := w.Queue.Enqueue(ctx, queue.KindEmailSend, key, retryJob, time.Now().Add(delay)); err != nil {
		return fmt.Errorf("enqueue retry: %w", err)
	}

	if err := w.Store.LogEmailEvent(email.TeamID, email.ID, "retry_scheduled", models.JSONMap{
		"retry_count": newCount,
		"delay_ms":    delay.Milliseconds(),
		"reason":      job.BounceReason,
	}); err != nil {
		LogError("bounce_retry_event", err, map[string]interface{}{"email_id": email.ID})
	}
	return nil
}

func (w *BounceWorker) logAndCount(email *models.Email, job queue.BounceProcessJob, bounceType, reason string) {
	if err := w.Store.LogEmailEvent(email.TeamID, email.ID, "bounced", models.JSONMap{
		"bounce_type":     bounceType,
		"bounce_reason":   reason,
		"diagnostic_code": job.DiagnosticCode,
	}); err != nil {
		LogError("bounce_event", err, map[string]interface{}{"email_id": email.ID})
	}
	if job.CampaignID != 0 {
		if err := w.Store.IncrementCampaignBounces(job.CampaignID); err != nil {
			LogError("bounce_incr_campaign", err, map[string]interface{}{"campaign_id": job.CampaignID})
		}
	}
}

// checkInboxHealth applies the auto-pause rule after a hard bounce or
// complaint: enough volume plus a bounce rate over the threshold pauses
// the inbox.
func (w *BounceWorker) checkInboxHealth(inboxID, teamID uint) {
	inbox, err := w.Store.GetInbox(inboxID)
	if err != nil {
		LogError("bounce_health_load", err, map[string]interface{}{"inbox_id": inboxID})
		return
	}
	if inbox.SentTotal < quota.MinEmailsForRate {
		return
	}
	rate, ok := store.InboxBounceRate(inbox.SentTotal, inbox.BouncedTotal)
	if !ok || rate <= quota.BounceRateThreshold {
		return
	}

	ratePct := rate * 100
	if err := w.Store.PauseInboxForBounceRate(inbox.ID, ratePct, time.Now()); err != nil {
		LogError("bounce_auto_pause", err, map[string]interface{}{"inbox_id": inbox.ID})
		return
	}
	if err := w.Store.LogInboxEvent(teamID, inbox.ID, "auto_paused", models.JSONMap{
		"bounce_rate": ratePct,
		"sent_total":  inbox.SentTotal,
	}); err != nil {
		LogError("bounce_pause_event", err, map[string]interface{}{"inbox_id": inbox.ID})
	}
	LogEvent("inbox_auto_paused", map[string]interface{}{"inbox_id": inbox.ID, "bounce_rate_pct": ratePct})
}
