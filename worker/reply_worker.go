package worker

import (
	"context"
	"time"

	"outreachengine/inbound"
	"outreachengine/leadstate"
	"outreachengine/models"
	"outreachengine/store"
	"outreachengine/transport"
)

// IntentClassifier is the external AI intent-detection collaborator.
// Implementations return one of interested / not_interested /
// meeting_booked / question / out_of_office / auto_reply / bounce, or an
// empty string when classification is unavailable.
type IntentClassifier interface {
	Classify(ctx context.Context, subject, body string) (string, error)
}

// intentEvents maps the classifier's labels onto lead-state events. Labels
// with no entry (question, out_of_office, auto_reply, bounce) leave the
// lead in replied.
var intentEvents = map[string]leadstate.Event{
	"interested":     leadstate.IntentInterested,
	"not_interested": leadstate.IntentNotInterested,
	"meeting_booked": leadstate.IntentMeetingBooked,
}

// ReplyWorker polls each connected inbox over IMAP, matches inbound
// messages to sent emails by threading headers, and applies the reply
// semantics: stop the sequence, classify intent, update counters.
type ReplyWorker struct {
	Store      *store.Store
	Fetcher    *inbound.Fetcher
	Classifier IntentClassifier
	Tick       time.Duration
}

// NewReplyWorker builds a reply consumer. classifier may be nil; replies
// are then recorded without intent.
func NewReplyWorker(s *store.Store, classifier IntentClassifier) *ReplyWorker {
	return &ReplyWorker{
		Store:      s,
		Fetcher:    inbound.NewFetcher(),
		Classifier: classifier,
		Tick:       2 * time.Minute,
	}
}

// Start runs the polling loop until ctx is cancelled.
func (w *ReplyWorker) Start(ctx context.Context) {
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

// RunOnce fetches unseen mail from every pollable inbox and processes each
// message. A per-inbox error never stops the remaining inboxes.
func (w *ReplyWorker) RunOnce(ctx context.Context) {
	inboxes, err := w.Store.InboxesForInboundFetch()
	if err != nil {
		LogError("reply_load_inboxes", err, nil)
		return
	}
	for i := range inboxes {
		inbox := &inboxes[i]
		messages, err := w.Fetcher.FetchUnseen(inbox)
		if err != nil {
			if transport.IsAuthFailure(err.Error()) {
				w.handleDisconnect(inbox, err)
			} else {
				LogError("reply_fetch", err, map[string]interface{}{"inbox_id": inbox.ID})
			}
			continue
		}
		for _, msg := range messages {
			if err := w.ProcessInbound(ctx, msg); err != nil {
				LogError("reply_process", err, map[string]interface{}{"inbox_id": inbox.ID, "message_id": msg.MessageID})
			}
		}
	}
}

// ProcessInbound matches one inbound message to a sent email and applies
// the reply transitions. Messages that match nothing are dropped silently
// (ordinary correspondence, not campaign replies). Also used directly by
// the transport webhook's reply branch.
func (w *ReplyWorker) ProcessInbound(ctx context.Context, msg inbound.Message) error {
	email, err := w.Store.FindEmailByThreading(msg.ThreadID, msg.InReplyTo)
	if err != nil {
		return nil
	}

	preview := msg.BodyText
	if len(preview) > 500 {
		preview = preview[:500]
	}
	reply := models.Reply{
		EmailID:     email.ID,
		FromEmail:   msg.From,
		BodyPreview: preview,
	}

	intent := ""
	if w.Classifier != nil {
		if label, err := w.Classifier.Classify(ctx, msg.Subject, msg.BodyText); err == nil {
			intent = label
		} else {
			LogError("reply_classify", err, map[string]interface{}{"email_id": email.ID})
		}
	}
	reply.Intent = intent

	if err := w.Store.CreateReply(&reply); err != nil {
		return err
	}

	lead, err := w.Store.GetLead(email.LeadID)
	if err != nil {
		return err
	}

	stopOnReply := models.DefaultStopOnReply
	if campaign, err := w.Store.GetCampaign(email.CampaignID); err == nil {
		settings := campaign.DecodeSettings()
		stopOnReply = settings.StopOnReply == nil || *settings.StopOnReply
	}

	if stopOnReply {
		if next, ok := leadstate.Apply(lead.Status, leadstate.ReplyReceived); ok {
			if err := w.Store.UpdateLeadStatus(lead.ID, next); err != nil {
				return err
			}
			lead.Status = next
		}
	}

	if event, ok := intentEvents[intent]; ok {
		if next, ok := leadstate.Apply(lead.Status, event); ok {
			if err := w.Store.UpdateLeadStatus(lead.ID, next); err != nil {
				return err
			}
		}
	}

	if err := w.Store.IncrementCampaignReplied(email.CampaignID); err != nil {
		LogError("reply_incr_campaign", err, map[string]interface{}{"campaign_id": email.CampaignID})
	}
	if email.VariantID != nil {
		if err := w.Store.IncrementVariantStat(*email.VariantID, store.VariantColumnReplied); err != nil {
			LogError("reply_incr_variant", err, map[string]interface{}{"variant_id": *email.VariantID})
		}
	}
	if err := w.Store.LogEmailEvent(email.TeamID, email.ID, "replied", models.JSONMap{
		"from":   msg.From,
		"intent": intent,
	}); err != nil {
		LogError("reply_event", err, map[string]interface{}{"email_id": email.ID})
	}

	return nil
}

func (w *ReplyWorker) handleDisconnect(inbox *models.Inbox, cause error) {
	reason := "disconnected: " + cause.Error()
	if err := w.Store.SetInboxStatus(inbox.ID, models.InboxError, reason); err != nil {
		LogError("reply_disconnect_status", err, map[string]interface{}{"inbox_id": inbox.ID})
	}
	if err := w.Store.DisableWarmup(inbox.ID); err != nil {
		LogError("reply_disconnect_disable", err, map[string]interface{}{"inbox_id": inbox.ID})
	}
	if err := w.Store.LogInboxEvent(inbox.TeamID, inbox.ID, "disconnected", models.JSONMap{"reason": cause.Error()}); err != nil {
		LogError("reply_disconnect_event", err, map[string]interface{}{"inbox_id": inbox.ID})
	}
	LogEvent("inbox_disconnected", map[string]interface{}{"inbox_id": inbox.ID})
}
