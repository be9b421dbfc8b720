package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"outreachengine/config"
	"outreachengine/leadstate"
	"outreachengine/models"
	"outreachengine/queue"
	"outreachengine/store"
	"outreachengine/template"
	"outreachengine/tracking"
	"outreachengine/transport"
)

// SendWorker drains the email-send queue and hands each job to Transport.
// The
// counter ordering matters: MarkSent must commit before the
// campaign's denormalized sent_count is bumped, so a crash between the two
// under-counts rather than double-counts on retry.
type SendWorker struct {
	Store     *store.Store
	Queue     *queue.Queue
	Transport transport.Transport
	BatchSize int
	Tick      time.Duration
}

// NewSendWorker builds a send worker over the default SMTP transport.
func NewSendWorker(s *store.Store, q *queue.Queue) *SendWorker {
	return &SendWorker{
		Store:     s,
		Queue:     q,
		Transport: transport.NewSMTPTransport(),
		BatchSize: 20,
		Tick:      5 * time.Second,
	}
}

// Start runs the consume loop until ctx is cancelled.
func (w *SendWorker) Start(ctx context.Context) {
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

// RunOnce drains up to BatchSize due jobs.
func (w *SendWorker) RunOnce(ctx context.Context) {
	envs, err := w.Queue.DequeueDue(ctx, queue.KindEmailSend, w.BatchSize)
	if err != nil {
		LogError("send_dequeue", err, nil)
		return
	}
	for _, env := range envs {
		var job queue.EmailSendJob
		if err := json.Unmarshal(env.Payload, &job); err != nil {
			LogError("send_unmarshal", err, map[string]interface{}{"key": env.Key})
			continue
		}
		w.process(ctx, env, job)
	}
}

func (w *SendWorker) process(ctx context.Context, env queue.Envelope, job queue.EmailSendJob) {
	email, err := w.Store.GetEmail(job.EmailID)
	if err != nil {
		LogError("send_load_email", err, map[string]interface{}{"email_id": job.EmailID})
		return
	}

	// In-flight jobs cancel if the parent campaign moved to paused between
	// enqueue and dispatch.
	campaign, err := w.Store.GetCampaign(job.CampaignID)
	if err != nil {
		LogError("send_load_campaign", err, map[string]interface{}{"campaign_id": job.CampaignID})
		return
	}
	if campaign.Status != models.CampaignActive {
		return
	}

	// A body still carrying template markup or a bracketed smart-placeholder
	// instruction must never reach the transport.
	if template.HasUnresolvedMarkup(email.BodyHTML) || template.HasSmartPlaceholder(email.BodyHTML) {
		if err := w.Store.MarkFailed(email.ID); err != nil {
			LogError("send_mark_failed", err, map[string]interface{}{"email_id": email.ID})
		}
		LogError("send_unresolved_markup", fmt.Errorf("email %d rendered body contains unresolved markup", email.ID), map[string]interface{}{"email_id": email.ID})
		return
	}

	inbox, err := w.Store.GetInbox(job.InboxID)
	if err != nil {
		LogError("send_load_inbox", err, map[string]interface{}{"inbox_id": job.InboxID})
		return
	}
	if inbox.Status != models.InboxActive && inbox.Status != models.InboxWarmingUp {
		return
	}

	// Soft-bounce retries cycle queued -> retry_pending -> queued.
	if job.IsRetry && email.Status == models.EmailRetryPending {
		if err := w.Store.RequeueAsQueued(email.ID); err != nil {
			LogError("send_requeue_status", err, map[string]interface{}{"email_id": email.ID})
			return
		}
	}

	creds := transport.SMTPCredentials{
		Host:     inbox.SMTPHost,
		Port:     inbox.SMTPPort,
		Username: inbox.SMTPUsername,
		Password: inbox.SMTPPassword,
	}
	settings := campaign.DecodeSettings()
	body := tracking.Inject(
		email.BodyHTML,
		config.AppConfig.TrackingBaseURL,
		email.MessageID,
		config.AppConfig.EncryptionKey,
		settings.TrackOpens,
		settings.TrackClicks,
	)

	msg := transport.Message{
		FromEmail:        email.FromEmail,
		FromName:         inbox.FromName,
		ToEmail:          email.ToEmail,
		Subject:          email.Subject,
		BodyHTML:         body,
		MessageID:        email.MessageID,
		InReplyTo:        email.InReplyTo,
		ReferencesHeader: email.ReferencesHeader,
	}

	result, err := w.Transport.Send(ctx, creds, msg)
	if err != nil {
		w.handleSendFailure(ctx, env, job, err)
		return
	}

	if err := w.Store.MarkSent(email.ID, result.AcceptedAt, email.MessageID); err != nil {
		LogError("send_mark_sent", err, map[string]interface{}{"email_id": email.ID})
		return
	}
	if err := w.Store.IncrementCampaignSent(job.CampaignID); err != nil {
		LogError("send_increment_campaign", err, map[string]interface{}{"campaign_id": job.CampaignID})
	}
	if lead, err := w.Store.GetLead(job.LeadID); err == nil {
		if next, ok := leadstate.Apply(lead.Status, leadstate.EmailSent); ok {
			if err := w.Store.UpdateLeadStatus(lead.ID, next); err != nil {
				LogError("send_lead_status", err, map[string]interface{}{"lead_id": lead.ID})
			}
		}
	}
	if err := w.Store.IncrementInboxSentToday(job.InboxID); err != nil {
		LogError("send_increment_inbox", err, map[string]interface{}{"inbox_id": job.InboxID})
	}
	if job.SequenceStep > 0 && email.VariantID != nil {
		if err := w.Store.IncrementVariantStat(*email.VariantID, store.VariantColumnSent); err != nil {
			LogError("send_increment_variant", err, map[string]interface{}{"variant_id": *email.VariantID})
		}
	}
}

// handleSendFailure retries any transport error other than a provider-auth
// failure a bounded number of times before marking the email permanently
// failed.
func (w *SendWorker) handleSendFailure(ctx context.Context, env queue.Envelope, job queue.EmailSendJob, sendErr error) {
	// Provider auth failures disconnect the inbox instead of burning
	// retries: the mailbox's token is gone, so every further send from it
	// would fail the same way.
	if transport.IsAuthFailure(sendErr.Error()) {
		w.handleDisconnect(job.InboxID, sendErr)
		return
	}

	const maxAttempts = 3
	if env.Attempt < maxAttempts {
		job.IsRetry = true
		job.RetryCount = env.Attempt + 1
		backoff := time.Duration(env.Attempt+1) * 2 * time.Minute
		if err := w.Queue.Requeue(ctx, queue.KindEmailSend, env, backoff); err != nil {
			LogError("send_requeue", err, map[string]interface{}{"email_id": job.EmailID})
		}
		LogEvent("send_retry_scheduled", map[string]interface{}{"email_id": job.EmailID, "attempt": env.Attempt + 1})
		return
	}
	if err := w.Store.MarkFailed(job.EmailID); err != nil {
		LogError("send_mark_failed", err, map[string]interface{}{"email_id": job.EmailID})
	}
	LogError("send_exhausted_retries", sendErr, map[string]interface{}{"email_id": job.EmailID})
}

// handleDisconnect moves the inbox to error with a disconnected reason and
// disables its warmup in the same pass.
func (w *SendWorker) handleDisconnect(inboxID uint, cause error) {
	inbox, err := w.Store.GetInbox(inboxID)
	if err != nil {
		LogError("send_disconnect_load", err, map[string]interface{}{"inbox_id": inboxID})
		return
	}
	reason := "disconnected: " + cause.Error()
	if err := w.Store.SetInboxStatus(inboxID, models.InboxError, reason); err != nil {
		LogError("send_disconnect_status", err, map[string]interface{}{"inbox_id": inboxID})
	}
	if err := w.Store.DisableWarmup(inboxID); err != nil {
		LogError("send_disconnect_disable", err, map[string]interface{}{"inbox_id": inboxID})
	}
	if err := w.Store.LogInboxEvent(inbox.TeamID, inboxID, "disconnected", models.JSONMap{"reason": cause.Error()}); err != nil {
		LogError("send_disconnect_event", err, map[string]interface{}{"inbox_id": inboxID})
	}
	LogEvent("inbox_disconnected", map[string]interface{}{"inbox_id": inboxID})
}
