package quota

import "math"

// HealthScoreVolumeK is the scaling constant for the volume-score term,
// chosen so a mailbox with roughly 1000 lifetime sends reaches the
// volumeScore cap of 25.
const HealthScoreVolumeK = 8.3333

// HealthScoreInput is everything the health formula needs about one inbox.
type HealthScoreInput struct {
	WarmupEnabled bool
	CurrentDay    int
	SentTotal     int
	RepliedTotal  int
	BouncedTotal  int
	SpamTotal     int
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// HealthScore combines warmup progress, lifetime volume, reply rate, and
// bounce/spam penalties, rounding to the nearest
// integer and clamping to [0,100].
func HealthScore(in HealthScoreInput) int {
	dayScore := 0.0
	engagementBonus := 0.0
	if in.WarmupEnabled {
		dayScore = math.Min(40, float64(in.CurrentDay)*40.0/30.0)
		if in.CurrentDay > 7 {
			engagementBonus = 10
		}
	}

	sentTotal := math.Max(1, float64(in.SentTotal))
	volumeScore := math.Min(25, math.Log10(1+float64(in.SentTotal))*HealthScoreVolumeK)
	replyScore := math.Min(25, (float64(in.RepliedTotal)/sentTotal)*50)

	bounceRate := float64(in.BouncedTotal) / sentTotal
	spamRate := float64(in.SpamTotal) / sentTotal
	bouncePenalty := math.Min(10, bounceRate*10)
	spamPenalty := math.Min(20, spamRate*40)

	raw := dayScore + engagementBonus + volumeScore + replyScore - bouncePenalty - spamPenalty
	return int(math.Round(clamp(raw, 0, 100)))
}

// MinInboxHealthScore is the scheduler's floor: inboxes below this
// score are dropped from rotation.
const MinInboxHealthScore = 50

// MinEmailsForRate and BounceRateThreshold gate the bounce-processor
// auto-pause check.
const (
	MinEmailsForRate     = 50
	BounceRateThreshold  = 0.03
)

// EffectiveDailyLimit computes an inbox's effective cap for the current
// tick: floor(dailySendLimit * throttlePercentage / 100).
func EffectiveDailyLimit(dailySendLimit int, throttlePercentage int) int {
	return dailySendLimit * throttlePercentage / 100
}
