package worker

import (
	"testing"
	"time"

	"outreachengine/models"
	"outreachengine/sendwindow"
)

func TestSoftBounceRetrySchedule(t *testing.T) {
	want := []time.Duration{time.Hour, 4 * time.Hour, 24 * time.Hour}
	if len(softBounceRetryDelays) != len(want) {
		t.Fatalf("expected %d retry delays, got %d", len(want), len(softBounceRetryDelays))
	}
	for i, d := range want {
		if softBounceRetryDelays[i] != d {
			t.Errorf("delay[%d] = %v, want %v", i, softBounceRetryDelays[i], d)
		}
	}
	if maxSoftBounceRetries != 3 {
		t.Errorf("maxSoftBounceRetries = %d, want 3", maxSoftBounceRetries)
	}
}

func TestNextPhaseLifecycle(t *testing.T) {
	ws := models.WarmupState{Phase: models.WarmupRamping}

	if got := nextPhase(ws, 15); got != models.WarmupRamping {
		t.Errorf("day 15: got %v, want ramping", got)
	}
	if got := nextPhase(ws, 31); got != models.WarmupMaintaining {
		t.Errorf("day 31: got %v, want maintaining", got)
	}

	ws.CompletionDayCeiling = 45
	if got := nextPhase(ws, 45); got != models.WarmupCompleted {
		t.Errorf("day 45 with ceiling 45: got %v, want completed", got)
	}
	if got := nextPhase(ws, 40); got != models.WarmupMaintaining {
		t.Errorf("day 40 with ceiling 45: got %v, want maintaining", got)
	}
}

// An explicitly empty
// schedule map blocks sending regardless of any legacy window settings.
func TestEmptyScheduleBlocksAllSending(t *testing.T) {
	cs := models.CampaignSettings{
		Timezone:        "UTC",
		Schedule:        map[string][]models.ScheduleBlock{},
		SendWindowStart: "00:00",
		SendWindowEnd:   "23:59",
		SendDays:        []string{"mon", "tue", "wed", "thu", "fri", "sat", "sun"},
	}
	cfg := sendWindowConfig(cs)

	now := time.Date(2026, 8, 3, 12, 0, 0, 0, time.UTC) // a Monday, midday
	for i := 0; i < 7; i++ {
		at := now.Add(time.Duration(i) * 24 * time.Hour)
		if sendwindow.MaySendNow(cfg, at) {
			t.Fatalf("empty schedule must never permit sending, but %v did", at)
		}
	}
}

func TestSendWindowConfigSchedulePrecedence(t *testing.T) {
	cs := models.CampaignSettings{
		Timezone: "UTC",
		Schedule: map[string][]models.ScheduleBlock{
			"mon": {{Start: 9, End: 17}},
		},
		SendWindowStart: "00:00",
		SendWindowEnd:   "23:59",
	}
	cfg := sendWindowConfig(cs)

	monday10 := time.Date(2026, 8, 3, 10, 0, 0, 0, time.UTC)
	if !sendwindow.MaySendNow(cfg, monday10) {
		t.Error("Monday 10:00 should be inside the scheduled window")
	}
	tuesday10 := monday10.Add(24 * time.Hour)
	if sendwindow.MaySendNow(cfg, tuesday10) {
		t.Error("Tuesday has no schedule entry, sending must be blocked despite the legacy window")
	}
}

func TestConditionHolds(t *testing.T) {
	opened := &models.Email{OpenCount: 2}
	unopened := &models.Email{}
	bounced := &models.Email{Status: models.EmailBounced}

	cases := []struct {
		name    string
		cond    models.SequenceCondition
		prev    *models.Email
		replied bool
		want    bool
	}{
		{"no_reply holds without reply", models.SequenceCondition{Type: "no_reply"}, unopened, false, true},
		{"no_reply fails after reply", models.SequenceCondition{Type: "no_reply"}, unopened, true, false},
		{"replied needs a reply", models.SequenceCondition{Type: "replied"}, unopened, true, true},
		{"no_open fails once opened", models.SequenceCondition{Type: "no_open"}, opened, false, false},
		{"opened holds once opened", models.SequenceCondition{Type: "opened"}, opened, false, true},
		{"bounced matches bounced status", models.SequenceCondition{Type: "bounced"}, bounced, false, true},
		{"unknown type passes through", models.SequenceCondition{Type: "mystery"}, unopened, false, true},
	}
	for _, tc := range cases {
		if got := conditionHolds(tc.cond, tc.prev, tc.replied); got != tc.want {
			t.Errorf("%s: got %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestVariantWeightsValid(t *testing.T) {
	ok := []models.SequenceVariant{{Weight: 60}, {Weight: 40}}
	if !variantWeightsValid(ok) {
		t.Error("60/40 should be valid")
	}
	winner := []models.SequenceVariant{{Weight: 100}, {Weight: 0}}
	if !variantWeightsValid(winner) {
		t.Error("100/0 should be valid")
	}
	bad := []models.SequenceVariant{{Weight: 50}, {Weight: 40}}
	if variantWeightsValid(bad) {
		t.Error("50/40 should be invalid")
	}
}

func TestLeadVariablesMergesLeadAndInbox(t *testing.T) {
	lead := models.Lead{
		Email:     "jo@example.com",
		FirstName: "Jo",
		LastName:  "Smith",
		Company:   "Acme",
		CustomFields: models.JSONMap{
			"favorite_color": "green",
		},
	}
	inbox := models.Inbox{
		Email:           "sales@sender.io",
		FromName:        "Sam Seller",
		SenderFirstName: "Sam",
	}

	vars := leadVariables(lead, inbox)

	for key, want := range map[string]string{
		"firstName":                    "Jo",
		"fullName":                     "Jo Smith",
		"company":                      "Acme",
		"senderFirstName":              "Sam",
		"fromName":                     "Sam Seller",
		"fromEmail":                    "sales@sender.io",
		"custom_fields.favorite_color": "green",
	} {
		if got := vars[key]; got != want {
			t.Errorf("vars[%q] = %q, want %q", key, got, want)
		}
	}
}
