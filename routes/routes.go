// Package routes exposes the small HTTP surface this engine needs: the
// tracking pixel and click redirect, the inbound transport webhook feeding
// the bounce/reply processors, and a health check.
package routes

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"outreachengine/inbound"
	"outreachengine/leadstate"
	"outreachengine/models"
	"outreachengine/queue"
	"outreachengine/store"
	"outreachengine/worker"
)

// Handler carries the dependencies the route handlers share.
type Handler struct {
	Store   *store.Store
	Queue   *queue.Queue
	Replies *worker.ReplyWorker

	validate *validator.Validate
}

// NewHandler wires the handler set.
func NewHandler(s *store.Store, q *queue.Queue, replies *worker.ReplyWorker) *Handler {
	return &Handler{Store: s, Queue: q, Replies: replies, validate: validator.New()}
}

// SetupRoutes registers every endpoint on the app.
func SetupRoutes(app *fiber.App, h *Handler) {
	app.Get("/healthz", h.HealthCheck)
	app.Get("/track/open/:messageID/:token", h.HandleOpenTracking)
	app.Get("/track/click/:messageID/:token", h.HandleClickTracking)
	app.Post("/webhooks/transport", h.HandleTransportWebhook)
}

// HealthCheck is the liveness/readiness endpoint.
func (h *Handler) HealthCheck(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "running",
		"version": "1.0.0",
	})
}

// HandleOpenTracking records one open and returns the transparent pixel.
func (h *Handler) HandleOpenTracking(c *fiber.Ctx) error {
	messageID := c.Params("messageID")
	token := c.Params("token")

	if !isValidToken(messageID, token) {
		return c.Status(fiber.StatusBadRequest).SendString("Invalid token")
	}

	h.recordOpen(messageID)
	return c.Type("gif").Send(transparentPixel())
}

// HandleClickTracking records one click and redirects to the original URL.
func (h *Handler) HandleClickTracking(c *fiber.Ctx) error {
	messageID := c.Params("messageID")
	token := c.Params("token")
	originalURL := c.Query("url")

	if !isValidToken(messageID, token) {
		return c.Status(fiber.StatusBadRequest).SendString("Invalid token")
	}
	if originalURL == "" {
		return c.Status(fiber.StatusBadRequest).SendString("Missing url")
	}

	h.recordClick(messageID)
	return c.Redirect(originalURL, fiber.StatusFound)
}

// recordOpen runs the open pipeline in its fixed order: email counter,
// email_events insert, campaign RPC, variant RPC — in that order.
func (h *Handler) recordOpen(messageID string) {
	email, err := h.Store.EmailByMessageID(messageID)
	if err != nil {
		return
	}
	now := time.Now()
	if err := h.Store.IncrementEmailOpen(email.ID, now); err != nil {
		worker.LogError("track_open_email", err, map[string]interface{}{"email_id": email.ID})
		return
	}
	if err := h.Store.LogEmailEvent(email.TeamID, email.ID, "opened", models.JSONMap{}); err != nil {
		worker.LogError("track_open_event", err, map[string]interface{}{"email_id": email.ID})
	}
	if email.CampaignID != 0 {
		if err := h.Store.IncrementCampaignOpens(email.CampaignID); err != nil {
			worker.LogError("track_open_campaign", err, map[string]interface{}{"campaign_id": email.CampaignID})
		}
	}
	if email.VariantID != nil {
		if err := h.Store.IncrementVariantStat(*email.VariantID, store.VariantColumnOpened); err != nil {
			worker.LogError("track_open_variant", err, map[string]interface{}{"variant_id": *email.VariantID})
		}
	}
}

func (h *Handler) recordClick(messageID string) {
	email, err := h.Store.EmailByMessageID(messageID)
	if err != nil {
		return
	}
	now := time.Now()
	if err := h.Store.IncrementEmailClick(email.ID, now); err != nil {
		worker.LogError("track_click_email", err, map[string]interface{}{"email_id": email.ID})
		return
	}
	if err := h.Store.LogEmailEvent(email.TeamID, email.ID, "clicked", models.JSONMap{}); err != nil {
		worker.LogError("track_click_event", err, map[string]interface{}{"email_id": email.ID})
	}
	if email.CampaignID != 0 {
		if err := h.Store.IncrementCampaignClicks(email.CampaignID); err != nil {
			worker.LogError("track_click_campaign", err, map[string]interface{}{"campaign_id": email.CampaignID})
		}
	}
	if email.VariantID != nil {
		if err := h.Store.IncrementVariantStat(*email.VariantID, store.VariantColumnClicked); err != nil {
			worker.LogError("track_click_variant", err, map[string]interface{}{"variant_id": *email.VariantID})
		}
	}
}

// transportWebhookInput is the external transport's delivery-feedback
// payload, gated by go-playground/validator struct tags.
type transportWebhookInput struct {
	EventType      string `json:"event_type" validate:"required,oneof=open click reply bounce unsubscribe"`
	MessageID      string `json:"message_id" validate:"required"`
	Email          string `json:"email" validate:"omitempty,email"`
	BounceType     string `json:"bounce_type" validate:"omitempty,oneof=hard soft complaint"`
	BounceReason   string `json:"bounce_reason"`
	DiagnosticCode string `json:"diagnostic_code"`
	Subject        string `json:"subject"`
	BodyText       string `json:"body_text"`
	FromEmail      string `json:"from_email"`
	Timestamp      int64  `json:"timestamp"`
}

// HandleTransportWebhook accepts open/click/reply/bounce events from the
// external send transport and routes each into the matching processor.
func (h *Handler) HandleTransportWebhook(c *fiber.Ctx) error {
	var input transportWebhookInput
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if err := h.validate.Struct(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	switch input.EventType {
	case "open":
		h.recordOpen(input.MessageID)
	case "click":
		h.recordClick(input.MessageID)
	case "reply":
		msg := inbound.Message{
			InReplyTo:  input.MessageID,
			From:       input.FromEmail,
			Subject:    input.Subject,
			BodyText:   input.BodyText,
			ReceivedAt: time.Unix(input.Timestamp, 0),
		}
		if err := h.Replies.ProcessInbound(c.Context(), msg); err != nil {
			worker.LogError("webhook_reply", err, map[string]interface{}{"message_id": input.MessageID})
		}
	case "bounce":
		if err := h.enqueueBounce(c, input); err != nil {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Email not found"})
		}
	case "unsubscribe":
		if err := h.handleUnsubscribe(input); err != nil {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Email not found"})
		}
	}

	return c.JSON(fiber.Map{"message": "Webhook processed successfully"})
}

// handleUnsubscribe suppresses the address and moves the lead to
// unsubscribed.
func (h *Handler) handleUnsubscribe(input transportWebhookInput) error {
	email, err := h.Store.EmailByMessageID(input.MessageID)
	if err != nil {
		return err
	}
	if err := h.Store.Suppress(email.TeamID, email.ToEmail, models.SuppressionUnsubscribe, ""); err != nil {
		worker.LogError("webhook_unsub_suppress", err, map[string]interface{}{"email_id": email.ID})
	}
	lead, err := h.Store.GetLead(email.LeadID)
	if err != nil {
		return nil
	}
	if next, ok := leadstate.Apply(lead.Status, leadstate.Unsubscribe); ok {
		if err := h.Store.UpdateLeadStatus(lead.ID, next); err != nil {
			worker.LogError("webhook_unsub_lead", err, map[string]interface{}{"lead_id": lead.ID})
		}
	}
	if err := h.Store.LogEmailEvent(email.TeamID, email.ID, "unsubscribed", models.JSONMap{}); err != nil {
		worker.LogError("webhook_unsub_event", err, map[string]interface{}{"email_id": email.ID})
	}
	return nil
}

func (h *Handler) enqueueBounce(c *fiber.Ctx, input transportWebhookInput) error {
	email, err := h.Store.EmailByMessageID(input.MessageID)
	if err != nil {
		return err
	}
	bounceType := input.BounceType
	if bounceType == "" {
		bounceType = string(models.BounceHard)
	}
	job := queue.BounceProcessJob{
		EmailID:        email.ID,
		LeadID:         email.LeadID,
		InboxID:        email.InboxID,
		CampaignID:     email.CampaignID,
		BounceType:     bounceType,
		BounceReason:   input.BounceReason,
		DiagnosticCode: input.DiagnosticCode,
	}
	key := "bounce-" + input.MessageID
	return h.Queue.Enqueue(c.Context(), queue.KindBounceProcess, key, job, time.Now())
}
