package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"

	"outreachengine/models"
	"outreachengine/quota"
	"outreachengine/queue"
	"outreachengine/store"
	"outreachengine/template"
	"outreachengine/transport"
	"outreachengine/warmup"
)

// WarmupEngine is the warmup control loop: per tick it reconciles warmup
// state against inbox status, computes each enrolled mailbox's ramped
// daily quota, picks counterparties without repeating recent pairs, and
// enqueues warmup-send jobs. It also consumes those jobs, sending the
// synthetic message and simulating (or scheduling) the counterparty's
// reply legs.
type WarmupEngine struct {
	Store     *store.Store
	Queue     *queue.Queue
	Transport transport.Transport
	Tick      time.Duration
	BatchSize int

	rng *rand.Rand
}

// NewWarmupEngine builds the engine with a 30 minute scheduling cadence;
// the consumer side drains on a much shorter interval inside Start.
func NewWarmupEngine(s *store.Store, q *queue.Queue) *WarmupEngine {
	return &WarmupEngine{
		Store:     s,
		Queue:     q,
		Transport: transport.NewSMTPTransport(),
		Tick:      30 * time.Minute,
		BatchSize: 20,
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Start runs the scheduling tick and the job consumer until ctx is
// cancelled.
func (we *WarmupEngine) Start(ctx context.Context) {
	scheduleTicker := time.NewTicker(we.Tick)
	consumeTicker := time.NewTicker(10 * time.Second)
	defer scheduleTicker.Stop()
	defer consumeTicker.Stop()

	we.ScheduleOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-scheduleTicker.C:
			we.ScheduleOnce(ctx)
		case <-consumeTicker.C:
			we.ConsumeOnce(ctx)
		}
	}
}

// ScheduleOnce runs one scheduling pass: reconcile first, then enqueue up
// to each mailbox's remaining quota.
func (we *WarmupEngine) ScheduleOnce(ctx context.Context) {
	we.reconcile()

	inboxes, err := we.Store.InboxesWithEnabledWarmup()
	if err != nil {
		LogError("warmup_load_inboxes", err, nil)
		return
	}
	for _, inbox := range inboxes {
		if err := we.scheduleInbox(ctx, inbox); err != nil {
			LogError("warmup_schedule_inbox", err, map[string]interface{}{"inbox_id": inbox.ID})
		}
	}
}

// reconcile fixes state drift before scheduling: enabled warmup forces inbox.status=warming_up, an errored
// inbox forces warmup off, and pool mode with fewer than two team
// mailboxes auto-disables.
func (we *WarmupEngine) reconcile() {
	inboxes, err := we.Store.AllInboxes()
	if err != nil {
		LogError("warmup_reconcile_load", err, nil)
		return
	}
	for _, inbox := range inboxes {
		ws := inbox.WarmupState
		if ws == nil {
			continue
		}

		if inbox.Status == models.InboxError && ws.Enabled {
			if err := we.Store.DisableWarmup(inbox.ID); err != nil {
				LogError("warmup_reconcile_disable", err, map[string]interface{}{"inbox_id": inbox.ID})
			}
			continue
		}

		if ws.Enabled && ws.WarmupMode != nil && *ws.WarmupMode == models.WarmupPool {
			count, err := we.Store.PoolWarmupMailboxCount(inbox.TeamID)
			if err != nil {
				LogError("warmup_reconcile_pool_count", err, map[string]interface{}{"team_id": inbox.TeamID})
				continue
			}
			if count < 2 {
				if err := we.Store.DisableWarmup(inbox.ID); err != nil {
					LogError("warmup_reconcile_disable", err, map[string]interface{}{"inbox_id": inbox.ID})
					continue
				}
				if inbox.Status == models.InboxWarmingUp {
					if err := we.Store.SetInboxStatus(inbox.ID, models.InboxActive, ""); err != nil {
						LogError("warmup_reconcile_status", err, map[string]interface{}{"inbox_id": inbox.ID})
					}
				}
				LogEvent("warmup_pool_auto_disabled", map[string]interface{}{"inbox_id": inbox.ID, "team_id": inbox.TeamID})
				continue
			}
		}

		if ws.Enabled && inbox.Status == models.InboxActive {
			if err := we.Store.SetInboxStatus(inbox.ID, models.InboxWarmingUp, ""); err != nil {
				LogError("warmup_reconcile_status", err, map[string]interface{}{"inbox_id": inbox.ID})
			}
		}
		if !ws.Enabled && inbox.Status == models.InboxWarmingUp {
			if err := we.Store.SetInboxStatus(inbox.ID, models.InboxActive, ""); err != nil {
				LogError("warmup_reconcile_status", err, map[string]interface{}{"inbox_id": inbox.ID})
			}
		}
	}
}

// counterpart is one candidate receiver: either a peer inbox (pool) or a
// platform network mailbox.
type counterpart struct {
	inboxID   uint
	email     string
	firstName string
	network   bool
}

func (we *WarmupEngine) scheduleInbox(ctx context.Context, inbox models.Inbox) error {
	ws := inbox.WarmupState
	if ws == nil || !ws.Enabled || ws.WarmupMode == nil {
		return nil
	}

	dailyQuota := quota.DailyQuota(ws.CurrentDay, quota.RampSpeed(ws.RampSpeed))
	if ws.TargetDailyVolume > 0 && dailyQuota > ws.TargetDailyVolume {
		dailyQuota = ws.TargetDailyVolume
	}

	pending, err := we.Queue.PendingWarmup(ctx, inbox.ID)
	if err != nil {
		return fmt.Errorf("pending count: %w", err)
	}
	remaining := dailyQuota - ws.SentToday - pending
	if remaining <= 0 {
		return nil
	}

	candidates, err := we.candidatesFor(inbox, *ws.WarmupMode)
	if err != nil {
		return err
	}
	if len(candidates) == 0 {
		return nil
	}

	picker := warmup.NewCounterpartPicker(len(candidates), we.rng)
	mainPool := warmup.MainPool()
	templateOrder := warmup.Shuffle(len(mainPool), we.rng)
	templateCursor := 0

	scheduled := 0
	// Each candidate is tried at most a couple of times; when every pair
	// was seen within the dedup TTL the pass simply schedules fewer sends
	// than quota.
	for attempts := 0; scheduled < remaining && attempts < len(candidates)*2; attempts++ {
		idx, ok := picker.Next()
		if !ok {
			break
		}
		cp := candidates[idx]

		isNew, err := we.Queue.SeenDedupPair(ctx, inbox.ID, cp.inboxID, string(quota.TemplateMain))
		if err != nil {
			return fmt.Errorf("dedup check: %w", err)
		}
		if !isNew {
			continue
		}

		tmpl := mainPool[templateOrder[templateCursor%len(templateOrder)]]
		templateCursor++

		plan := warmup.PlanThread(we.rng)
		job := queue.WarmupSendJob{
			FromInboxID:     inbox.ID,
			ToInboxID:       cp.inboxID,
			TemplateType:    string(quota.TemplateMain),
			ThreadDepth:     0,
			MaxThreadDepth:  plan.MaxDepth,
			IsNetworkWarmup: cp.network,
		}
		key := fmt.Sprintf("warmup-%d-%d-%s-%s", inbox.ID, cp.inboxID, tmpl.Type, time.Now().Format("20060102"))
		runAt := time.Now().Add(randDuration(time.Minute, 20*time.Minute))
		if err := we.Queue.Enqueue(ctx, queue.KindWarmupSend, key, job, runAt); err != nil {
			return fmt.Errorf("enqueue: %w", err)
		}
		if err := we.Queue.IncrPendingWarmup(ctx, inbox.ID); err != nil {
			LogError("warmup_pending_incr", err, map[string]interface{}{"inbox_id": inbox.ID})
		}
		scheduled++
	}

	if scheduled > 0 {
		LogEvent("warmup_scheduled", map[string]interface{}{"inbox_id": inbox.ID, "count": scheduled, "quota": dailyQuota})
	}
	return nil
}

func (we *WarmupEngine) candidatesFor(inbox models.Inbox, mode models.WarmupMode) ([]counterpart, error) {
	if mode == models.WarmupNetwork {
		boxes, err := we.Store.NetworkMailboxes()
		if err != nil {
			return nil, err
		}
		out := make([]counterpart, len(boxes))
		for i, b := range boxes {
			out[i] = counterpart{inboxID: b.ID, email: b.Email, firstName: b.FirstName, network: true}
		}
		return out, nil
	}

	peers, err := we.Store.PoolCounterparts(inbox.TeamID, inbox.ID)
	if err != nil {
		return nil, err
	}
	out := make([]counterpart, len(peers))
	for i, p := range peers {
		out[i] = counterpart{inboxID: p.ID, email: p.Email, firstName: p.SenderFirstName}
	}
	return out, nil
}

// ConsumeOnce drains up to BatchSize due warmup-send jobs.
func (we *WarmupEngine) ConsumeOnce(ctx context.Context) {
	envs, err := we.Queue.DequeueDue(ctx, queue.KindWarmupSend, we.BatchSize)
	if err != nil {
		LogError("warmup_dequeue", err, nil)
		return
	}
	for _, env := range envs {
		var job queue.WarmupSendJob
		if err := json.Unmarshal(env.Payload, &job); err != nil {
			LogError("warmup_unmarshal", err, map[string]interface{}{"key": env.Key})
			continue
		}
		if err := we.processJob(ctx, job); err != nil {
			LogError("warmup_process_job", err, map[string]interface{}{"from": job.FromInboxID, "to": job.ToInboxID, "type": job.TemplateType})
		}
	}
}

func (we *WarmupEngine) processJob(ctx context.Context, job queue.WarmupSendJob) error {
	if err := we.Queue.DecrPendingWarmup(ctx, job.FromInboxID); err != nil {
		LogError("warmup_pending_decr", err, map[string]interface{}{"inbox_id": job.FromInboxID})
	}

	from, err := we.Store.GetInbox(job.FromInboxID)
	if err != nil {
		return fmt.Errorf("load sender: %w", err)
	}
	// Jobs cancel if warmup was disabled between enqueue and dispatch.
	if from.WarmupState == nil || !from.WarmupState.Enabled {
		return nil
	}
	if from.Status == models.InboxError || from.Status == models.InboxBanned {
		return nil
	}

	cp, err := we.resolveCounterpart(job)
	if err != nil {
		return err
	}

	tmpl, ok := we.pickTemplate(quota.WarmupTemplateType(job.TemplateType))
	if !ok {
		return fmt.Errorf("unknown template type %q", job.TemplateType)
	}

	vars := template.Variables{
		"firstName":       cp.firstName,
		"senderFirstName": from.SenderFirstName,
	}
	if from.SenderFirstName == "" {
		vars["senderFirstName"] = from.FromName
	}
	body := template.Render(tmpl.Body, vars, template.Options{Random: we.rng})
	subject := template.Render(tmpl.Subject, vars, template.Options{Random: we.rng})
	if typ := quota.WarmupTemplateType(job.TemplateType); typ != quota.TemplateMain {
		// Reply/continuation/closer legs re-derive the subject from the
		// thread's initial message with a single Re: prefix.
		subject = "Re: " + strings.TrimPrefix(job.ThreadSubject, "Re: ")
	}

	if err := we.deliver(ctx, from, cp, subject, body); err != nil {
		if transport.IsAuthFailure(err.Error()) {
			we.handleDisconnect(from, err)
			return nil
		}
		return fmt.Errorf("deliver: %w", err)
	}

	now := time.Now()
	if err := we.Store.IncrementWarmupSentToday(from.ID); err != nil {
		LogError("warmup_incr_sent", err, map[string]interface{}{"inbox_id": from.ID})
	}
	if err := we.Store.TouchWarmupActivity(from.ID, now); err != nil {
		LogError("warmup_touch", err, map[string]interface{}{"inbox_id": from.ID})
	}
	if !cp.network {
		if err := we.Store.IncrementWarmupReceivedToday(cp.inboxID); err != nil {
			LogError("warmup_incr_received", err, map[string]interface{}{"inbox_id": cp.inboxID})
		}
	}

	if quota.WarmupTemplateType(job.TemplateType) == quota.TemplateMain {
		job.ThreadSubject = subject
	}
	we.scheduleNextLeg(ctx, from, cp, job)
	return nil
}

// resolveCounterpart loads the job's receiver: a peer inbox for pool
// warmup, a network mailbox otherwise.
func (we *WarmupEngine) resolveCounterpart(job queue.WarmupSendJob) (counterpart, error) {
	if job.IsNetworkWarmup {
		boxes, err := we.Store.NetworkMailboxes()
		if err != nil {
			return counterpart{}, err
		}
		for _, b := range boxes {
			if b.ID == job.ToInboxID {
				return counterpart{inboxID: b.ID, email: b.Email, firstName: b.FirstName, network: true}, nil
			}
		}
		return counterpart{}, fmt.Errorf("network mailbox %d not found", job.ToInboxID)
	}
	peer, err := we.Store.GetInbox(job.ToInboxID)
	if err != nil {
		return counterpart{}, fmt.Errorf("load counterpart: %w", err)
	}
	return counterpart{inboxID: peer.ID, email: peer.Email, firstName: peer.SenderFirstName}, nil
}

func (we *WarmupEngine) pickTemplate(typ quota.WarmupTemplateType) (warmup.Template, bool) {
	pool := warmup.PoolFor(typ)
	if len(pool) == 0 {
		return warmup.Template{}, false
	}
	return pool[we.rng.Intn(len(pool))], true
}

// deliver hands the synthetic message to the transport. Network-mode
// counterparties are simulated, so a network send only exercises the
// sender's own SMTP path; pool mode is a real mailbox-to-mailbox send.
func (we *WarmupEngine) deliver(ctx context.Context, from *models.Inbox, cp counterpart, subject, body string) error {
	creds := transport.SMTPCredentials{
		Host:     from.SMTPHost,
		Port:     from.SMTPPort,
		Username: from.SMTPUsername,
		Password: from.SMTPPassword,
	}
	msg := transport.Message{
		FromEmail: from.Email,
		FromName:  from.FromName,
		ToEmail:   cp.email,
		Subject:   subject,
		BodyHTML:  body,
		MessageID: fmt.Sprintf("<%s@outreachengine>", uuid.New().String()),
	}
	_, err := we.Transport.Send(ctx, creds, msg)
	return err
}

// scheduleNextLeg advances the synthetic conversation: after a main leg
// lands, the counterparty replies with probability reply_rate_target/100
// after a humanlike delay; every later leg continues or closes per the
// thread plan (warmup.NextLeg) with no further probability draw.
func (we *WarmupEngine) scheduleNextLeg(ctx context.Context, from *models.Inbox, cp counterpart, job queue.WarmupSendJob) {
	typ := quota.WarmupTemplateType(job.TemplateType)

	if typ == quota.TemplateMain {
		target := from.WarmupState.ReplyRateTarget
		if we.rng.Intn(100) >= target {
			return
		}
		we.enqueueLeg(ctx, cp, from, job, string(quota.TemplateReply), job.ThreadDepth+1)
		if err := we.Store.IncrementWarmupRepliedToday(from.ID); err != nil {
			LogError("warmup_incr_replied", err, map[string]interface{}{"inbox_id": from.ID})
		}
		return
	}

	legType, ok := warmup.NextLeg(job.ThreadDepth, job.MaxThreadDepth)
	if !ok {
		return
	}
	we.enqueueLeg(ctx, cp, from, job, legType, job.ThreadDepth+1)
}

// enqueueLeg queues the counterparty's side of the conversation. For a
// network thread the counterparty is simulated, so the leg is sent "from"
// the warmed mailbox's perspective only as counters; pool threads swap
// sender and receiver for a real return message.
func (we *WarmupEngine) enqueueLeg(ctx context.Context, legFrom counterpart, legTo *models.Inbox, parent queue.WarmupSendJob, legType string, depth int) {
	if parent.IsNetworkWarmup {
		// Simulated counterparty: the inbound leg only moves counters on
		// the warmed mailbox.
		if err := we.Store.IncrementWarmupReceivedToday(legTo.ID); err != nil {
			LogError("warmup_incr_received", err, map[string]interface{}{"inbox_id": legTo.ID})
		}
		return
	}

	isNew, err := we.Queue.SeenDedupPair(ctx, legFrom.inboxID, legTo.ID, legType)
	if err != nil {
		LogError("warmup_leg_dedup", err, map[string]interface{}{"from": legFrom.inboxID, "to": legTo.ID})
		return
	}
	if !isNew {
		return
	}

	job := queue.WarmupSendJob{
		FromInboxID:    legFrom.inboxID,
		ToInboxID:      legTo.ID,
		TemplateType:   legType,
		ThreadDepth:    depth,
		MaxThreadDepth: parent.MaxThreadDepth,
		ThreadSubject:  parent.ThreadSubject,
	}
	key := fmt.Sprintf("warmup-%d-%d-%s-%d-%s", legFrom.inboxID, legTo.ID, legType, depth, time.Now().Format("20060102"))
	runAt := time.Now().Add(randDuration(5*time.Minute, 45*time.Minute))
	if err := we.Queue.Enqueue(ctx, queue.KindWarmupSend, key, job, runAt); err != nil {
		LogError("warmup_leg_enqueue", err, map[string]interface{}{"from": legFrom.inboxID, "to": legTo.ID})
		return
	}
	if err := we.Queue.IncrPendingWarmup(ctx, legFrom.inboxID); err != nil {
		LogError("warmup_pending_incr", err, map[string]interface{}{"inbox_id": legFrom.inboxID})
	}
}

// handleDisconnect applies the provider-auth-failure transition: the
// inbox moves to error with a disconnected reason and warmup is disabled
// alongside.
func (we *WarmupEngine) handleDisconnect(inbox *models.Inbox, cause error) {
	reason := "disconnected: " + cause.Error()
	if err := we.Store.SetInboxStatus(inbox.ID, models.InboxError, reason); err != nil {
		LogError("warmup_disconnect_status", err, map[string]interface{}{"inbox_id": inbox.ID})
	}
	if err := we.Store.DisableWarmup(inbox.ID); err != nil {
		LogError("warmup_disconnect_disable", err, map[string]interface{}{"inbox_id": inbox.ID})
	}
	if err := we.Store.LogInboxEvent(inbox.TeamID, inbox.ID, "disconnected", models.JSONMap{"reason": cause.Error()}); err != nil {
		LogError("warmup_disconnect_event", err, map[string]interface{}{"inbox_id": inbox.ID})
	}
	LogEvent("inbox_disconnected", map[string]interface{}{"inbox_id": inbox.ID})
}
