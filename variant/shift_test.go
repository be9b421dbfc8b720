package variant

import (
	"math"
	"testing"
)

// TestTrafficShiftDeclaresWinner: variant A (50%, 100 sends, 30 opens) vs
// B (50%, 100 sends, 50 opens). The pooled two-proportion test gives
// pHat=0.4, se=sqrt(0.4*0.6*(1/100+1/100))=0.06928, z=0.20/0.06928=2.887,
// confidence ~= 0.998 — comfortably past the 0.95 winner threshold, so B
// is declared winner at weight 100.
func TestTrafficShiftDeclaresWinner(t *testing.T) {
	a := Variant{ID: 1, Weight: 50, SentCount: 100, Opened: 30}
	b := Variant{ID: 2, Weight: 50, SentCount: 100, Opened: 50}

	z := ZScore(OpenRate, b, a)
	if math.Abs(z-2.887) > 0.01 {
		t.Fatalf("z=%v, want ~2.887", z)
	}
	conf := Confidence(z)
	if conf < 0.997 {
		t.Fatalf("confidence=%v, want >= 0.997", conf)
	}

	result := EvaluateShift(OpenRate, []Variant{a, b})
	if !result.Changed || !result.DeclareWin {
		t.Fatalf("expected a winner declaration, got %+v", result)
	}
	if result.WinnerID != 2 {
		t.Fatalf("winner=%d, want 2 (B)", result.WinnerID)
	}
	if result.NewWeights[2] != 100 || result.NewWeights[1] != 0 {
		t.Fatalf("weights=%v, want {1:0, 2:100}", result.NewWeights)
	}
}

func TestEvaluateShiftGuardSkipsBelowMinimumSends(t *testing.T) {
	a := Variant{ID: 1, Weight: 50, SentCount: 10, Opened: 3}
	b := Variant{ID: 2, Weight: 50, SentCount: 10, Opened: 8}
	result := EvaluateShift(OpenRate, []Variant{a, b})
	if result.Changed {
		t.Fatalf("expected no-op below MinSentForShift, got %+v", result)
	}
}

func TestEvaluateShiftGuardSkipsWhenAlreadyWinner(t *testing.T) {
	a := Variant{ID: 1, Weight: 100, SentCount: 200, Opened: 80, IsWinner: true}
	b := Variant{ID: 2, Weight: 0, SentCount: 200, Opened: 40}
	result := EvaluateShift(OpenRate, []Variant{a, b})
	if result.Changed {
		t.Fatalf("expected no-op once a winner exists, got %+v", result)
	}
}

func TestEvaluateShiftNoChangeBelowLowestThreshold(t *testing.T) {
	a := Variant{ID: 1, Weight: 50, SentCount: 100, Opened: 51}
	b := Variant{ID: 2, Weight: 50, SentCount: 100, Opened: 49}
	result := EvaluateShift(OpenRate, []Variant{a, b})
	if result.Changed {
		t.Fatalf("expected no-op for a negligible difference, got %+v", result)
	}
}

func TestZScoreZeroWhenSampleMissing(t *testing.T) {
	a := Variant{ID: 1, SentCount: 0}
	b := Variant{ID: 2, SentCount: 100, Opened: 50}
	if z := ZScore(OpenRate, a, b); z != 0 {
		t.Fatalf("z=%v, want 0", z)
	}
}
