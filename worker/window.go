package worker

import (
	"outreachengine/models"
	"outreachengine/sendwindow"
)

// sendWindowConfig converts a campaign's decoded settings into the pure
// sendwindow.Config the evaluator understands. Keeping this mapping here
// (instead of in sendwindow itself) keeps sendwindow free of any models
// dependency.
func sendWindowConfig(cs models.CampaignSettings) sendwindow.Config {
	cfg := sendwindow.Config{Timezone: cs.Timezone}

	if cs.Schedule != nil {
		cfg.Schedule = make(map[sendwindow.DayKey][]sendwindow.Interval, len(cs.Schedule))
		for day, blocks := range cs.Schedule {
			intervals := make([]sendwindow.Interval, len(blocks))
			for i, b := range blocks {
				intervals[i] = sendwindow.Interval{StartHour: b.Start, EndHour: b.End}
			}
			cfg.Schedule[sendwindow.DayKey(day)] = intervals
		}
		return cfg
	}

	days := sendwindow.DefaultSendDays()
	if len(cs.SendDays) > 0 {
		days = make(map[sendwindow.DayKey]bool, len(cs.SendDays))
		for _, d := range cs.SendDays {
			days[sendwindow.DayKey(d)] = true
		}
	}
	cfg.Legacy = sendwindow.LegacyWindow{
		StartHHMM: valueOr(cs.SendWindowStart, "09:00"),
		EndHHMM:   valueOr(cs.SendWindowEnd, "17:00"),
		Days:      days,
	}
	return cfg
}

func valueOr(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
