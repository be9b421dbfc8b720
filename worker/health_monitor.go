package worker

import (
	"context"
	"time"

	"outreachengine/models"
	"outreachengine/quota"
	"outreachengine/queue"
	"outreachengine/store"
)

// HealthMonitor recomputes every inbox's health score on a fixed cadence
// and runs the per-minute daily reset task: at midnight in
// each team's timezone it zeroes the *_today counters, advances warmup
// current_day, and applies the maintaining/completed phase transitions.
type HealthMonitor struct {
	Store     *store.Store
	Queue     *queue.Queue
	ScoreTick time.Duration
	ResetTick time.Duration
}

// NewHealthMonitor builds the monitor with a 15 minute score cadence and
// a one-minute reset cadence.
func NewHealthMonitor(s *store.Store, q *queue.Queue) *HealthMonitor {
	return &HealthMonitor{
		Store:     s,
		Queue:     q,
		ScoreTick: 15 * time.Minute,
		ResetTick: time.Minute,
	}
}

// Start runs both loops until ctx is cancelled.
func (m *HealthMonitor) Start(ctx context.Context) {
	scoreTicker := time.NewTicker(m.ScoreTick)
	resetTicker := time.NewTicker(m.ResetTick)
	defer scoreTicker.Stop()
	defer resetTicker.Stop()

	m.RecomputeScores()
	for {
		select {
		case <-ctx.Done():
			return
		case <-scoreTicker.C:
			m.RecomputeScores()
		case <-resetTicker.C:
			m.RunDailyReset(ctx)
		}
	}
}

// RecomputeScores applies the health formula to every inbox and persists
// changed scores.
func (m *HealthMonitor) RecomputeScores() {
	inboxes, err := m.Store.AllInboxes()
	if err != nil {
		LogError("health_load_inboxes", err, nil)
		return
	}
	for _, inbox := range inboxes {
		in := quota.HealthScoreInput{
			SentTotal:    inbox.SentTotal,
			BouncedTotal: inbox.BouncedTotal,
			SpamTotal:    inbox.SpamComplaintsTotal,
		}
		if ws := inbox.WarmupState; ws != nil {
			in.WarmupEnabled = ws.Enabled
			in.CurrentDay = ws.CurrentDay
			in.RepliedTotal = ws.RepliedTotal
		}
		score := quota.HealthScore(in)
		if score == inbox.HealthScore {
			continue
		}
		if err := m.Store.SetInboxHealthScore(inbox.ID, score); err != nil {
			LogError("health_set_score", err, map[string]interface{}{"inbox_id": inbox.ID})
		}
	}
}

// RunDailyReset walks every team that owns at least one inbox and rolls
// its counters over when the team-local calendar date changes. The inbox
// sent_today reset applies to all teams — it is the authoritative daily
// cap for ordinary campaign sending, independent of warmup enrollment —
// guarded by a per-team per-date SET-NX claim. Warmup rows roll via their
// own last_reset_date conditional UPDATE. The single
// warmup:last_reset_date key claims each new UTC date for sweep
// bookkeeping, so one process per cluster logs the rollover.
func (m *HealthMonitor) RunDailyReset(ctx context.Context) {
	utcToday := time.Now().UTC().Format("2006-01-02")
	if claimed, err := m.Queue.TryClaimDailyReset(ctx, utcToday); err != nil {
		LogError("reset_claim", err, nil)
		return
	} else if claimed {
		LogEvent("daily_reset_claimed", map[string]interface{}{"date": utcToday})
	}

	teamIDs, err := m.Store.AllTeamIDsWithInboxes()
	if err != nil {
		LogError("reset_load_teams", err, nil)
		return
	}
	for _, teamID := range teamIDs {
		m.resetTeam(ctx, teamID)
	}
}

func (m *HealthMonitor) resetTeam(ctx context.Context, teamID uint) {
	tz := m.Store.TeamTimezone(teamID)
	loc, err := time.LoadLocation(tz)
	if err != nil {
		loc = time.UTC
	}
	localDate := time.Now().In(loc).Format("2006-01-02")

	claimed, err := m.Queue.TryClaimTeamDailyReset(ctx, teamID, localDate)
	if err != nil {
		LogError("reset_team_claim", err, map[string]interface{}{"team_id": teamID})
		return
	}
	if claimed {
		inboxIDs, err := m.Store.TeamInboxIDs(teamID)
		if err != nil {
			LogError("reset_load_inboxes", err, map[string]interface{}{"team_id": teamID})
			return
		}
		if err := m.Store.ResetDailyInboxCounters(inboxIDs); err != nil {
			LogError("reset_inbox_counters", err, map[string]interface{}{"team_id": teamID})
		}
	}

	states, err := m.Store.WarmupStatesNeedingReset(teamID, localDate)
	if err != nil {
		LogError("reset_load_states", err, map[string]interface{}{"team_id": teamID})
		return
	}
	for _, ws := range states {
		newDay := ws.CurrentDay + 1
		phase := nextPhase(ws, newDay)
		if err := m.Store.RollWarmupDay(ws.InboxID, localDate, phase); err != nil {
			LogError("reset_roll", err, map[string]interface{}{"inbox_id": ws.InboxID})
		}
	}
	if claimed || len(states) > 0 {
		LogEvent("daily_reset_done", map[string]interface{}{"team_id": teamID, "date": localDate, "warmups": len(states)})
	}
}

// nextPhase applies the warmup lifecycle: completed once the warmup state's
// CompletionDayCeiling is reached, maintaining past day 30, otherwise the current phase stands.
func nextPhase(ws models.WarmupState, newDay int) models.WarmupPhase {
	if ws.CompletionDayCeiling > 0 && newDay >= ws.CompletionDayCeiling {
		return models.WarmupCompleted
	}
	if newDay > 30 {
		return models.WarmupMaintaining
	}
	return ws.Phase
}
