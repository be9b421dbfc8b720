package models

import (
	"encoding/json"
	"time"

	"gorm.io/gorm"
)

// CampaignStatus gates whether the scheduler processes a campaign.
type CampaignStatus string

const (
	CampaignDraft     CampaignStatus = "draft"
	CampaignActive    CampaignStatus = "active"
	CampaignPaused    CampaignStatus = "paused"
	CampaignCompleted CampaignStatus = "completed"
	CampaignArchived  CampaignStatus = "archived"
)

// Campaign is the top-level sending unit: a lead list, a set of linked
// inboxes, an ordered sequence of steps, and a settings object.
type Campaign struct {
	gorm.Model
	TeamID     uint           `gorm:"not null;index" json:"team_id"`
	Name       string         `gorm:"not null" json:"name"`
	Status     CampaignStatus `gorm:"not null;default:'draft';index" json:"status"`
	LeadListID uint           `gorm:"not null;index" json:"lead_list_id"`

	Settings JSONMap `gorm:"type:jsonb" json:"settings"`

	StartedAt   *time.Time `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at"`

	// Denormalized counters, incremented only through the store's atomic
	// RPCs — never read-then-write from application code.
	SentCount     int `gorm:"default:0" json:"sent_count"`
	OpenCount     int `gorm:"default:0" json:"open_count"`
	ClickCount    int `gorm:"default:0" json:"click_count"`
	RepliedCount  int `gorm:"default:0" json:"replied_count"`
	BouncedCount  int `gorm:"default:0" json:"bounced_count"`

	Steps   []SequenceStep  `gorm:"foreignKey:CampaignID" json:"steps,omitempty"`
	Inboxes []CampaignInbox `gorm:"foreignKey:CampaignID" json:"-"`
}

// CampaignInbox is the many-to-many link between a Campaign and the Inboxes
// it is allowed to send from.
type CampaignInbox struct {
	gorm.Model
	CampaignID uint `gorm:"not null;index:idx_campaign_inbox,unique" json:"campaign_id"`
	InboxID    uint `gorm:"not null;index:idx_campaign_inbox,unique" json:"inbox_id"`
}

// SequenceStep is one ordered email in a campaign. StepNumber is 1-based
// and dense: 1..N with no gaps. Step 1 always has zero delay.
type SequenceStep struct {
	gorm.Model
	CampaignID uint `gorm:"not null;index:idx_step_campaign_number,unique" json:"campaign_id"`
	StepNumber int  `gorm:"not null;index:idx_step_campaign_number,unique" json:"step_number"`

	DelayDays  int    `gorm:"default:0" json:"delay_days"`
	DelayHours int    `gorm:"default:0" json:"delay_hours"`
	Subject    string `json:"subject"`
	BodyHTML   string `gorm:"type:text" json:"body_html"`

	Variants []SequenceVariant `gorm:"foreignKey:StepID" json:"variants,omitempty"`
}

// SequenceVariant is an optional A/B alternative for a step. Weights across
// a step must sum to 100. The store does not check this on write; the
// scheduler skips a step whose weights do not sum to 100.
type SequenceVariant struct {
	gorm.Model
	StepID   uint   `gorm:"not null;index" json:"step_id"`
	Subject  string `json:"subject"`
	Body     string `gorm:"type:text" json:"body"`
	Weight   int    `gorm:"default:0" json:"weight"`
	IsWinner bool   `gorm:"default:false" json:"is_winner"`

	SentCount int `gorm:"default:0" json:"sent_count"`
	OpenCount int `gorm:"default:0" json:"open_count"`
	ClickCount int `gorm:"default:0" json:"click_count"`
	ReplyCount int `gorm:"default:0" json:"reply_count"`
}

// CampaignSettings is the decoded shape of Campaign.Settings' recognized
// keys. Campaign.DecodeSettings unmarshals the JSONMap column into this
// shape; callers that only need a couple of keys may read the map directly
// instead.
type CampaignSettings struct {
	SendWindowStart string                     `json:"send_window_start"`
	SendWindowEnd   string                     `json:"send_window_end"`
	Timezone        string                     `json:"timezone"`
	SendDays        []string                   `json:"send_days"`
	Schedule        map[string][]ScheduleBlock `json:"schedule"`
	TrackOpens      bool                       `json:"track_opens"`
	TrackClicks     bool                       `json:"track_clicks"`
	StopOnReply     *bool                      `json:"stop_on_reply"`
	SequenceConditions map[int]SequenceCondition `json:"sequence_conditions"`
}

// ScheduleBlock is one {start,end} hour interval within a day's schedule.
type ScheduleBlock struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// SequenceCondition is a per-step gate evaluated against engagement on the
// previous step.
type SequenceCondition struct {
	Type   string `json:"type"`   // no_reply|no_open|no_click|replied|opened|clicked|bounced
	Action string `json:"action"` // continue|stop|skip_step
}

// DefaultStopOnReply applies when settings.stop_on_reply is absent.
const DefaultStopOnReply = true

// DefaultTimezone is used when a campaign's settings omit one.
const DefaultTimezone = "America/New_York"

// DecodeSettings round-trips Campaign.Settings through JSON into the typed
// CampaignSettings shape, applying the documented defaults for
// whichever keys are absent.
func (c *Campaign) DecodeSettings() CampaignSettings {
	var cs CampaignSettings
	if c.Settings != nil {
		if raw, err := json.Marshal(c.Settings); err == nil {
			_ = json.Unmarshal(raw, &cs)
		}
	}
	if cs.Timezone == "" {
		cs.Timezone = DefaultTimezone
	}
	if cs.StopOnReply == nil {
		v := DefaultStopOnReply
		cs.StopOnReply = &v
	}
	return cs
}
