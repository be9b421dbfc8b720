package worker

import (
	"context"
	"time"

	"outreachengine/store"
	"outreachengine/variant"
)

// VariantShifter is the progressive A/B traffic-shifting job: on its
// own cadence it walks every step with two or more variants, computes the
// two-proportion z-test between the leader and each rival, and shifts
// weights toward the leader as confidence accumulates. It may observe
// stale counters between ticks; that staleness is acceptable.
type VariantShifter struct {
	Store  *store.Store
	Metric variant.PrimaryMetric
	Tick   time.Duration
}

// NewVariantShifter builds the job with open rate as the primary metric.
func NewVariantShifter(s *store.Store) *VariantShifter {
	return &VariantShifter{Store: s, Metric: variant.OpenRate, Tick: time.Hour}
}

// Start runs the shifting loop until ctx is cancelled.
func (vs *VariantShifter) Start(ctx context.Context) {
	ticker := time.NewTicker(vs.Tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			vs.RunOnce()
		}
	}
}

// RunOnce evaluates every multi-variant step once.
func (vs *VariantShifter) RunOnce() {
	steps, err := vs.Store.StepsWithVariants()
	if err != nil {
		LogError("shift_load_steps", err, nil)
		return
	}
	for _, step := range steps {
		result := variant.EvaluateShift(vs.Metric, toVariants(step.Variants))
		if !result.Changed {
			continue
		}
		if err := vs.Store.UpdateVariantWeights(result.NewWeights, result.WinnerID, result.DeclareWin); err != nil {
			LogError("shift_update_weights", err, map[string]interface{}{"step_id": step.ID})
			continue
		}
		LogEvent("variant_shifted", map[string]interface{}{
			"step_id":        step.ID,
			"winner_id":      result.WinnerID,
			"declare_winner": result.DeclareWin,
		})
	}
}
