// Package sendwindow is a pure evaluator that decides, for a given instant,
// timezone, and campaign schedule configuration, whether a send may happen
// right now.
package sendwindow

import "time"

// Interval is one allowed sending interval within a single day, in hours
// 0..24, half-open ([Start, End)).
type Interval struct {
	StartHour int
	EndHour   int
}

// DayKey is a lowercase three-letter weekday key: mon, tue, wed, thu, fri,
// sat, sun.
type DayKey string

const (
	Mon DayKey = "mon"
	Tue DayKey = "tue"
	Wed DayKey = "wed"
	Thu DayKey = "thu"
	Fri DayKey = "fri"
	Sat DayKey = "sat"
	Sun DayKey = "sun"
)

func dayKeyFor(t time.Time) DayKey {
	switch t.Weekday() {
	case time.Monday:
		return Mon
	case time.Tuesday:
		return Tue
	case time.Wednesday:
		return Wed
	case time.Thursday:
		return Thu
	case time.Friday:
		return Fri
	case time.Saturday:
		return Sat
	default:
		return Sun
	}
}

// LegacyWindow is the older (start, end, days) representation, used only
// when Schedule is nil.
type LegacyWindow struct {
	StartHHMM string // "HH:MM"
	EndHHMM   string // "HH:MM"
	Days      map[DayKey]bool
}

// Config is the resolved campaign send-window configuration.
type Config struct {
	Timezone string
	Legacy   LegacyWindow
	// Schedule, when non-nil (even an empty map), takes precedence over
	// Legacy; an empty map therefore never permits a send. An explicit
	// empty slice for a day key means "do not send that day" — distinct
	// from an absent key, which also means "do not send" (no schedule for
	// that day was configured).
	Schedule map[DayKey][]Interval
}

// MaySendNow decides whether sending is permitted at instant now, evaluated
// in the campaign's configured timezone.
func MaySendNow(cfg Config, now time.Time) bool {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		loc = time.UTC
	}
	local := now.In(loc)

	if cfg.Schedule != nil {
		return maySendBySchedule(cfg.Schedule, local)
	}
	return maySendByLegacy(cfg.Legacy, local)
}

func maySendBySchedule(schedule map[DayKey][]Interval, local time.Time) bool {
	intervals, ok := schedule[dayKeyFor(local)]
	if !ok || len(intervals) == 0 {
		return false
	}
	hour := local.Hour()
	for _, iv := range intervals {
		if hour >= iv.StartHour && hour < iv.EndHour {
			return true
		}
	}
	return false
}

func maySendByLegacy(legacy LegacyWindow, local time.Time) bool {
	if legacy.Days != nil && !legacy.Days[dayKeyFor(local)] {
		return false
	}
	start, err1 := time.Parse("15:04", legacy.StartHHMM)
	end, err2 := time.Parse("15:04", legacy.EndHHMM)
	if err1 != nil || err2 != nil {
		return false
	}
	nowMinutes := local.Hour()*60 + local.Minute()
	startMinutes := start.Hour()*60 + start.Minute()
	endMinutes := end.Hour()*60 + end.Minute()
	return nowMinutes >= startMinutes && nowMinutes < endMinutes
}

// DefaultSendDays returns the default send-day set, Monday through
// Friday.
func DefaultSendDays() map[DayKey]bool {
	return map[DayKey]bool{Mon: true, Tue: true, Wed: true, Thu: true, Fri: true}
}
