package leadstate

import "testing"

func TestApplyLegalTransition(t *testing.T) {
	next, ok := Apply(Pending, EmailSent)
	if !ok || next != InSequence {
		t.Fatalf("Pending+EmailSent = (%v, %v), want (in_sequence, true)", next, ok)
	}
}

func TestApplyIllegalTransitionBlocked(t *testing.T) {
	_, ok := Apply(Bounced, EmailSent)
	if ok {
		t.Fatalf("Bounced+EmailSent should be illegal, got ok=true")
	}
}

func TestBlocksSequenceCoversSpecSet(t *testing.T) {
	mustBlock := []Status{Replied, Interested, NotInterested, MeetingBooked, Bounced, Unsubscribed, SpamReported, SequenceComplete}
	for _, s := range mustBlock {
		if !BlocksSequence(s) {
			t.Errorf("expected %s to block the sequence", s)
		}
	}
	if BlocksSequence(SoftBounced) {
		t.Errorf("soft_bounced must not block the sequence, it may recover")
	}
	if BlocksSequence(Pending) || BlocksSequence(InSequence) {
		t.Errorf("pending/in_sequence must not block the sequence")
	}
}

func TestEventFromBounceType(t *testing.T) {
	cases := map[BounceType]Event{
		HardBounceType: HardBounce,
		SoftBounceType: SoftBounce,
		ComplaintType:  SpamComplaint,
	}
	for bt, want := range cases {
		if got := EventFromBounceType(bt); got != want {
			t.Errorf("EventFromBounceType(%s) = %s, want %s", bt, got, want)
		}
	}
}

// Once a lead reaches a blocking
// status, no sequence of table-driven events can move it to a status that
// un-blocks the sequence again without an explicit administrative write
// (which this package never performs on its own).
func TestBlockingStatusesAreClosed(t *testing.T) {
	blockingStatuses := []Status{Bounced, Unsubscribed, SpamReported, MeetingBooked, NotInterested, SequenceComplete}
	allEvents := []Event{EmailSent, EmailDelivered, ReplyReceived, IntentInterested, IntentNotInterested,
		IntentMeetingBooked, HardBounce, SoftBounce, SpamComplaint, Unsubscribe, SequenceFinished}

	for _, s := range blockingStatuses {
		for _, e := range allEvents {
			next, ok := Apply(s, e)
			if ok && !BlocksSequence(next) {
				t.Errorf("%s+%s escaped to non-blocking %s", s, e, next)
			}
		}
	}
}

func TestTerminalStatusesHaveNoOutboundTransitions(t *testing.T) {
	for s := range terminal {
		if _, exists := transitions[s]; exists {
			t.Errorf("%s is terminal but has table transitions; terminal statuses must only change administratively", s)
		}
	}
}
