// Package leadstate declares the closed set of lead statuses and events
// shared by the scheduler, bounce processor, and reply processor, and the
// table of legal transitions between them.
package leadstate

// Status is a lead's position in the outreach lifecycle.
type Status string

const (
	Pending           Status = "pending"
	InSequence        Status = "in_sequence"
	Contacted         Status = "contacted"
	Replied           Status = "replied"
	Interested        Status = "interested"
	NotInterested     Status = "not_interested"
	MeetingBooked     Status = "meeting_booked"
	Bounced           Status = "bounced"
	SoftBounced       Status = "soft_bounced"
	Unsubscribed      Status = "unsubscribed"
	SpamReported      Status = "spam_reported"
	SequenceComplete  Status = "sequence_complete"
)

// Event is something that happened to a lead that may trigger a transition.
type Event string

const (
	EmailSent             Event = "email_sent"
	EmailDelivered        Event = "email_delivered"
	ReplyReceived         Event = "reply_received"
	IntentInterested      Event = "intent_interested"
	IntentNotInterested   Event = "intent_not_interested"
	IntentMeetingBooked   Event = "intent_meeting_booked"
	HardBounce            Event = "hard_bounce"
	SoftBounce            Event = "soft_bounce"
	SpamComplaint         Event = "spam_complaint"
	Unsubscribe           Event = "unsubscribe"
	SequenceFinished      Event = "sequence_finished"
)

// blocking is the set of statuses that block further sequence steps.
// soft_bounced is deliberately absent: it may recover.
var blocking = map[Status]bool{
	Replied:          true,
	Interested:       true,
	NotInterested:    true,
	MeetingBooked:    true,
	Bounced:          true,
	Unsubscribed:     true,
	SpamReported:     true,
	SequenceComplete: true,
}

// terminal statuses never leave via any event in the table below; they are
// terminal with respect to outbound sends.
var terminal = map[Status]bool{
	Bounced:       true,
	Unsubscribed:  true,
	SpamReported:  true,
	MeetingBooked: true,
}

// transitions[state][event] = next state. Absent entries mean the
// transition is illegal from that state.
var transitions = map[Status]map[Event]Status{
	Pending: {
		EmailSent: InSequence,
	},
	InSequence: {
		EmailDelivered:      Contacted,
		ReplyReceived:       Replied,
		HardBounce:          Bounced,
		SoftBounce:          SoftBounced,
		SpamComplaint:       SpamReported,
		Unsubscribe:         Unsubscribed,
		SequenceFinished:    SequenceComplete,
		IntentInterested:    Interested,
		IntentNotInterested: NotInterested,
		IntentMeetingBooked: MeetingBooked,
	},
	Contacted: {
		ReplyReceived:       Replied,
		HardBounce:          Bounced,
		SoftBounce:          SoftBounced,
		SpamComplaint:       SpamReported,
		Unsubscribe:         Unsubscribed,
		SequenceFinished:    SequenceComplete,
		IntentInterested:    Interested,
		IntentNotInterested: NotInterested,
		IntentMeetingBooked: MeetingBooked,
	},
	SoftBounced: {
		EmailSent:           InSequence,
		HardBounce:          Bounced,
		SpamComplaint:       SpamReported,
		Unsubscribe:         Unsubscribed,
		SequenceFinished:    SequenceComplete,
	},
	Replied: {
		IntentInterested:    Interested,
		IntentNotInterested: NotInterested,
		IntentMeetingBooked: MeetingBooked,
		Unsubscribe:         Unsubscribed,
	},
	Interested: {
		IntentMeetingBooked: MeetingBooked,
		Unsubscribe:         Unsubscribed,
	},
	NotInterested: {
		Unsubscribe: Unsubscribed,
	},
}

// Apply looks up the legal next status for (current, event). ok is false
// when the transition is not in the table; callers should log and drop the
// event rather than treat it as an error.
func Apply(current Status, event Event) (next Status, ok bool) {
	byEvent, exists := transitions[current]
	if !exists {
		return current, false
	}
	next, ok = byEvent[event]
	return next, ok
}

// BlocksSequence reports whether a lead in this status may not receive
// further sequence steps.
func BlocksSequence(s Status) bool {
	return blocking[s]
}

// IsTerminal reports whether a lead in this status can only leave it via an
// explicit administrative transition (never via the events in this table).
func IsTerminal(s Status) bool {
	return terminal[s]
}

// BounceType enumerates the three delivery-feedback categories the bounce
// processor distinguishes.
type BounceType string

const (
	HardBounceType  BounceType = "hard"
	SoftBounceType  BounceType = "soft"
	ComplaintType   BounceType = "complaint"
)

// EventFromBounceType maps a bounce-processor classification to the lead
// event it should apply.
func EventFromBounceType(t BounceType) Event {
	switch t {
	case HardBounceType:
		return HardBounce
	case SoftBounceType:
		return SoftBounce
	case ComplaintType:
		return SpamComplaint
	default:
		return ""
	}
}
