package sendwindow

import (
	"testing"
	"time"
)

func mustParse(t *testing.T, layout, value string) time.Time {
	t.Helper()
	tm, err := time.Parse(layout, value)
	if err != nil {
		t.Fatal(err)
	}
	return tm
}

func TestMaySendNowScheduleTakesPrecedence(t *testing.T) {
	cfg := Config{
		Timezone: "UTC",
		Legacy:   LegacyWindow{StartHHMM: "00:00", EndHHMM: "23:59", Days: DefaultSendDays()},
		Schedule: map[DayKey][]Interval{
			Mon: {{StartHour: 9, EndHour: 12}},
		},
	}
	// Monday at 10:00 UTC is within schedule.
	monday := mustParse(t, "2006-01-02T15:04:05Z", "2024-01-01T10:00:00Z")
	if !MaySendNow(cfg, monday) {
		t.Fatal("expected send permitted at 10:00 on scheduled Monday")
	}
	// Tuesday has no schedule entry at all -> must not send even though
	// legacy window would allow it.
	tuesday := mustParse(t, "2006-01-02T15:04:05Z", "2024-01-02T10:00:00Z")
	if MaySendNow(cfg, tuesday) {
		t.Fatal("expected no send on a day absent from the schedule map")
	}
}

// An explicitly empty schedule map blocks sending on every day.
func TestEmptyScheduleNeverSends(t *testing.T) {
	cfg := Config{
		Timezone: "UTC",
		Legacy:   LegacyWindow{StartHHMM: "00:00", EndHHMM: "23:59", Days: DefaultSendDays()},
		Schedule: map[DayKey][]Interval{},
	}
	now := mustParse(t, "2006-01-02T15:04:05Z", "2024-01-01T10:00:00Z")
	if MaySendNow(cfg, now) {
		t.Fatal("empty schedule map must never permit a send regardless of legacy window")
	}
}

func TestMaySendNowEmptyDayIntervalsMeansNoSend(t *testing.T) {
	cfg := Config{
		Timezone: "UTC",
		Schedule: map[DayKey][]Interval{
			Mon: {},
		},
	}
	monday := mustParse(t, "2006-01-02T15:04:05Z", "2024-01-01T10:00:00Z")
	if MaySendNow(cfg, monday) {
		t.Fatal("empty interval slice for a day must mean do not send")
	}
}

func TestMaySendNowLegacyWindow(t *testing.T) {
	cfg := Config{
		Timezone: "UTC",
		Legacy:   LegacyWindow{StartHHMM: "09:00", EndHHMM: "17:00", Days: DefaultSendDays()},
	}
	inside := mustParse(t, "2006-01-02T15:04:05Z", "2024-01-01T12:00:00Z")
	if !MaySendNow(cfg, inside) {
		t.Fatal("expected inside legacy window to permit send")
	}
	outside := mustParse(t, "2006-01-02T15:04:05Z", "2024-01-01T20:00:00Z")
	if MaySendNow(cfg, outside) {
		t.Fatal("expected outside legacy window to block send")
	}
	weekend := mustParse(t, "2006-01-02T15:04:05Z", "2024-01-06T12:00:00Z") // Saturday
	if MaySendNow(cfg, weekend) {
		t.Fatal("expected weekend (outside default send days) to block send")
	}
}

func TestMaySendNowRespectsTimezone(t *testing.T) {
	cfg := Config{
		Timezone: "America/New_York",
		Schedule: map[DayKey][]Interval{
			Mon: {{StartHour: 9, EndHour: 17}},
		},
	}
	// 13:00 UTC on a Monday is 08:00 or 09:00 America/New_York depending on
	// DST; use a clearly-inside UTC instant (15:00 UTC ~ 10-11am ET).
	monday := mustParse(t, "2006-01-02T15:04:05Z", "2024-01-01T15:00:00Z")
	if !MaySendNow(cfg, monday) {
		t.Fatal("expected send permitted once converted to America/New_York business hours")
	}
}
