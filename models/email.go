package models

import "time"

import "gorm.io/gorm"

// EmailStatus tracks one outbound send attempt through delivery and
// engagement. Transitions are monotone except the soft-bounce retry cycle
// queued -> retry_pending -> queued.
type EmailStatus string

const (
	EmailQueued      EmailStatus = "queued"
	EmailSending     EmailStatus = "sending"
	EmailSent        EmailStatus = "sent"
	EmailDelivered   EmailStatus = "delivered"
	EmailOpened      EmailStatus = "opened"
	EmailClicked     EmailStatus = "clicked"
	EmailBounced     EmailStatus = "bounced"
	EmailRetryPending EmailStatus = "retry_pending"
	EmailFailed      EmailStatus = "failed"
)

// BounceType is the delivery-failure classification attached to a bounced
// email.
type BounceType string

const (
	BounceHard      BounceType = "hard"
	BounceSoft      BounceType = "soft"
	BounceComplaint BounceType = "complaint"
)

// Email is one per outbound send attempt. (CampaignID, LeadID, StepNumber)
// is unique — enforced by a DB constraint, not application logic, so
// concurrent scheduler ticks can never double-insert.
type Email struct {
	gorm.Model
	TeamID     uint  `gorm:"not null;index" json:"team_id"`
	CampaignID uint  `gorm:"not null;index:idx_email_campaign_lead_step,unique" json:"campaign_id"`
	StepID     uint  `gorm:"not null" json:"step_id"`
	StepNumber int   `gorm:"not null;index:idx_email_campaign_lead_step,unique" json:"step_number"`
	LeadID     uint  `gorm:"not null;index:idx_email_campaign_lead_step,unique" json:"lead_id"`
	InboxID    uint  `gorm:"not null;index" json:"inbox_id"`
	VariantID  *uint `json:"variant_id"`

	FromEmail string `json:"from_email"`
	ToEmail   string `gorm:"index" json:"to_email"`
	Subject   string `json:"subject"`
	BodyHTML  string `gorm:"type:text" json:"body_html"`

	Status EmailStatus `gorm:"not null;default:'queued';index" json:"status"`

	MessageID       string `gorm:"index" json:"message_id"`
	InReplyTo       string `json:"in_reply_to"`
	ReferencesHeader string `gorm:"type:text" json:"references_header"`
	ThreadID        string `gorm:"index" json:"thread_id"`

	OpenCount  int `gorm:"default:0" json:"open_count"`
	ClickCount int `gorm:"default:0" json:"click_count"`

	SoftBounceCount int        `gorm:"default:0" json:"soft_bounce_count"`
	BounceType      BounceType `json:"bounce_type"`
	BounceReason    string     `json:"bounce_reason"`

	SentAt      *time.Time `json:"sent_at"`
	OpenedAt    *time.Time `json:"opened_at"`
	ClickedAt   *time.Time `json:"clicked_at"`
	BouncedAt   *time.Time `json:"bounced_at"`
	LastRetryAt *time.Time `json:"last_retry_at"`
}

// Reply is an inbound message matched to a sent Email by threading headers.
type Reply struct {
	gorm.Model
	EmailID     uint   `gorm:"not null;index" json:"email_id"`
	FromEmail   string `json:"from_email"`
	BodyPreview string `gorm:"type:text" json:"body_preview"`
	Intent      string `json:"intent"` // interested|not_interested|meeting_booked|question|out_of_office|auto_reply|bounce
}

// SuppressionReason is why an email must never be sent to again.
type SuppressionReason string

const (
	SuppressionHardBounce    SuppressionReason = "hard_bounce"
	SuppressionSpamComplaint SuppressionReason = "spam_complaint"
	SuppressionUnsubscribe   SuppressionReason = "unsubscribe"
	SuppressionManual        SuppressionReason = "manual"
)

// SuppressionEntry is team-scoped; unique on (TeamID, Email).
type SuppressionEntry struct {
	gorm.Model
	TeamID  uint              `gorm:"not null;index:idx_suppression_team_email,unique" json:"team_id"`
	Email   string            `gorm:"not null;index:idx_suppression_team_email,unique" json:"email"`
	Reason  SuppressionReason `gorm:"not null" json:"reason"`
	Details string            `json:"details"`
}

// EmailEvent is an append-only analytics/audit log row.
type EmailEvent struct {
	gorm.Model
	TeamID    uint    `gorm:"not null;index" json:"team_id"`
	EmailID   uint    `gorm:"not null;index" json:"email_id"`
	EventType string  `gorm:"not null;index" json:"event_type"`
	Metadata  JSONMap `gorm:"type:jsonb" json:"metadata"`
	At        time.Time `gorm:"not null" json:"at"`
}

// InboxEvent is an append-only log of inbox-level lifecycle events
// (auto_paused, disconnected, reconnected).
type InboxEvent struct {
	gorm.Model
	TeamID    uint      `gorm:"not null;index" json:"team_id"`
	InboxID   uint      `gorm:"not null;index" json:"inbox_id"`
	EventType string    `gorm:"not null;index" json:"event_type"`
	Metadata  JSONMap   `gorm:"type:jsonb" json:"metadata"`
	At        time.Time `gorm:"not null" json:"at"`
}
