package models

import "gorm.io/gorm"

import "time"

// InboxProvider is the connected mailbox's wire protocol family. The
// provider-specific OAuth dance lives outside this core; SMTP/IMAP dialing
// is done by the default adapters in transport/ and inbound/ using the
// credentials kept on Inbox.
type InboxProvider string

const (
	ProviderGoogle    InboxProvider = "google"
	ProviderMicrosoft InboxProvider = "microsoft"
	ProviderSMTP      InboxProvider = "smtp"
)

// InboxStatus is the operational state the scheduler and health monitor
// gate on.
type InboxStatus string

const (
	InboxActive     InboxStatus = "active"
	InboxWarmingUp  InboxStatus = "warming_up"
	InboxPaused     InboxStatus = "paused"
	InboxError      InboxStatus = "error"
	InboxBanned     InboxStatus = "banned"
)

// Inbox is a mailbox owned by a team.
type Inbox struct {
	gorm.Model
	TeamID uint          `gorm:"not null;index" json:"team_id"`
	Provider InboxProvider `gorm:"not null" json:"provider"`
	Email    string        `gorm:"not null;index" json:"email"`
	FromName string        `json:"from_name"`

	// Sender-identity fields, exposed to the template engine as
	// senderFirstName/senderLastName/senderCompany/senderTitle/senderPhone/
	// senderWebsite.
	SenderFirstName string `json:"sender_first_name"`
	SenderLastName  string `json:"sender_last_name"`
	SenderCompany   string `json:"sender_company"`
	SenderTitle     string `json:"sender_title"`
	SenderPhone     string `json:"sender_phone"`
	SenderWebsite   string `json:"sender_website"`

	// SMTP/IMAP credentials for the default transport adapter and the IMAP
	// fetcher. This core stores and uses them as-is (no encryption layer);
	// never marshaled to JSON.
	SMTPHost     string `json:"-"`
	SMTPPort     int    `json:"-"`
	SMTPUsername string `json:"-"`
	SMTPPassword string `json:"-"`
	IMAPHost     string `json:"-"`
	IMAPPort     int    `json:"-"`
	IMAPUsername string `json:"-"`
	IMAPPassword string `json:"-"`

	Status       InboxStatus `gorm:"not null;default:'active';index" json:"status"`
	StatusReason string      `json:"status_reason"`
	PausedAt     *time.Time  `json:"paused_at"`
	PauseReason  string      `json:"pause_reason"`

	HealthScore int `gorm:"default:100" json:"health_score"`

	DailySendLimit      int `gorm:"default:50" json:"daily_send_limit"`
	SentToday           int `gorm:"default:0" json:"sent_today"`
	SentTotal           int `gorm:"default:0" json:"sent_total"`
	BouncedTotal        int `gorm:"default:0" json:"bounced_total"`
	SpamComplaintsTotal int `gorm:"default:0" json:"spam_complaints_total"`
	ThrottlePercentage  int `gorm:"default:100" json:"throttle_percentage"`

	Settings     InboxSettings `gorm:"embedded;embeddedPrefix:settings_" json:"settings"`
	WarmupState  *WarmupState  `gorm:"foreignKey:InboxID" json:"warmup_state,omitempty"`
}

// InboxSettings holds pacing hints layered on top of DailySendLimit.
type InboxSettings struct {
	HourlySendLimit  int `json:"hourly_send_limit"`
	MinDelaySeconds  int `gorm:"default:30" json:"min_delay_seconds"`
	MaxDelaySeconds  int `gorm:"default:120" json:"max_delay_seconds"`
}

// WarmupPhase is the lifecycle stage of an inbox's warmup protocol.
type WarmupPhase string

const (
	WarmupRamping    WarmupPhase = "ramping"
	WarmupMaintaining WarmupPhase = "maintaining"
	WarmupPaused     WarmupPhase = "paused"
	WarmupCompleted  WarmupPhase = "completed"
)

// WarmupMode distinguishes within-team peer warmup from platform-owned
// counterparties.
type WarmupMode string

const (
	WarmupPool    WarmupMode = "pool"
	WarmupNetwork WarmupMode = "network"
)

// RampSpeed mirrors quota.RampSpeed as a storable string; kept distinct so
// models has no dependency on the quota package's Go type, only its values.
type RampSpeed string

const (
	RampSlow   RampSpeed = "slow"
	RampNormal RampSpeed = "normal"
	RampFast   RampSpeed = "fast"
)

// WarmupState is the one-per-Inbox warmup protocol state.
type WarmupState struct {
	gorm.Model
	InboxID uint `gorm:"not null;uniqueIndex" json:"inbox_id"`

	Enabled          bool        `gorm:"default:false" json:"enabled"`
	Phase            WarmupPhase `gorm:"default:'ramping'" json:"phase"`
	CurrentDay       int         `gorm:"default:1" json:"current_day"`
	RampSpeed        RampSpeed   `gorm:"default:'normal'" json:"ramp_speed"`
	TargetDailyVolume int        `json:"target_daily_volume"`
	ReplyRateTarget  int         `gorm:"default:30" json:"reply_rate_target"`
	WarmupMode       *WarmupMode `json:"warmup_mode"`

	SentToday     int `gorm:"default:0" json:"sent_today"`
	ReceivedToday int `gorm:"default:0" json:"received_today"`
	RepliedToday  int `gorm:"default:0" json:"replied_today"`
	SpamToday     int `gorm:"default:0" json:"spam_today"`

	SentTotal     int `gorm:"default:0" json:"sent_total"`
	ReceivedTotal int `gorm:"default:0" json:"received_total"`
	RepliedTotal  int `gorm:"default:0" json:"replied_total"`
	SpamTotal     int `gorm:"default:0" json:"spam_total"`

	StartedAt      *time.Time `json:"started_at"`
	LastActivityAt *time.Time `json:"last_activity_at"`
	LastResetDate  string     `gorm:"index" json:"last_reset_date"` // YYYY-MM-DD in the team's timezone

	// CompletionDayCeiling ends the warmup outright (phase=completed) once
	// CurrentDay reaches it. Zero means no ceiling; the default lifecycle
	// moves to maintaining after day 30 and stays there.
	CompletionDayCeiling int `gorm:"default:0" json:"completion_day_ceiling"`
}

// NetworkMailbox is a platform-owned warmup counterparty for network-mode
// warmup. The counterparty side of the conversation is simulated;
// only the identity is real.
type NetworkMailbox struct {
	gorm.Model
	Email     string `gorm:"not null;uniqueIndex" json:"email"`
	FirstName string `json:"first_name"`
	Active    bool   `gorm:"default:true" json:"active"`
}
