package quota

import "testing"

func TestHealthScoreBounded(t *testing.T) {
	in := HealthScoreInput{WarmupEnabled: true, CurrentDay: 1000, SentTotal: 1_000_000, RepliedTotal: 1_000_000}
	if s := HealthScore(in); s < 0 || s > 100 {
		t.Fatalf("score=%d out of [0,100]", s)
	}
}

func TestHealthScoreZeroWhenNothingHappened(t *testing.T) {
	if s := HealthScore(HealthScoreInput{}); s != 0 {
		t.Fatalf("score=%d, want 0 for an untouched inbox", s)
	}
}

func TestHealthScoreMonotoneInCurrentDay(t *testing.T) {
	base := HealthScoreInput{WarmupEnabled: true, SentTotal: 100, RepliedTotal: 10}
	prev := -1
	for day := 1; day <= 40; day++ {
		in := base
		in.CurrentDay = day
		score := HealthScore(in)
		if score < prev {
			t.Fatalf("day %d: score %d < previous %d", day, score, prev)
		}
		prev = score
	}
}

func TestHealthScoreMonotoneInReplyRateAndAgainstBounceSpam(t *testing.T) {
	low := HealthScore(HealthScoreInput{SentTotal: 100, RepliedTotal: 1})
	high := HealthScore(HealthScoreInput{SentTotal: 100, RepliedTotal: 50})
	if high < low {
		t.Fatalf("higher reply rate produced lower score: %d < %d", high, low)
	}

	clean := HealthScore(HealthScoreInput{SentTotal: 100})
	bounced := HealthScore(HealthScoreInput{SentTotal: 100, BouncedTotal: 20})
	if bounced > clean {
		t.Fatalf("bouncing inbox scored higher than clean one: %d > %d", bounced, clean)
	}

	spammed := HealthScore(HealthScoreInput{SentTotal: 100, SpamTotal: 20})
	if spammed > clean {
		t.Fatalf("spam-reported inbox scored higher than clean one: %d > %d", spammed, clean)
	}
}

func TestEffectiveDailyLimit(t *testing.T) {
	if got := EffectiveDailyLimit(500, 50); got != 250 {
		t.Fatalf("got %d, want 250", got)
	}
}

// TestAutoPauseThresholds exercises the auto-pause arithmetic: an
// inbox with sent_total >= 50 and bounce rate > 3% crosses the pause gate.
func TestAutoPauseThresholds(t *testing.T) {
	sentTotal, bouncedTotal := 100, 4
	bounceRate := float64(bouncedTotal) / float64(sentTotal)
	if sentTotal < MinEmailsForRate {
		t.Fatal("fixture too small for this test")
	}
	if bounceRate <= BounceRateThreshold {
		t.Fatalf("bounce rate %v should exceed threshold %v", bounceRate, BounceRateThreshold)
	}
}
