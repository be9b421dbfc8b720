package variant

import (
	"math/rand"
	"testing"
)

func TestSelectZeroWeightReturnsFirst(t *testing.T) {
	vs := []Variant{{ID: 1, Weight: 0}, {ID: 2, Weight: 0}}
	got := Select(vs, rand.New(rand.NewSource(1)))
	if got.ID != 1 {
		t.Fatalf("got variant %d, want 1", got.ID)
	}
}

func TestSelectLastVariantReachable(t *testing.T) {
	vs := []Variant{{ID: 1, Weight: 1}, {ID: 2, Weight: 99}}
	seen := map[uint]bool{}
	r := rand.New(rand.NewSource(42))
	for i := 0; i < 2000; i++ {
		seen[Select(vs, r).ID] = true
	}
	if !seen[1] || !seen[2] {
		t.Fatalf("expected both variants reachable over many draws, seen=%v", seen)
	}
}

// Reset weights must sum to exactly 100 and differ pairwise by at most 1.
func TestResetWeightsSumTo100AndNearlyEven(t *testing.T) {
	for n := 1; n <= 10; n++ {
		weights := ResetWeights(n)
		sum := 0
		min, max := weights[0], weights[0]
		for _, w := range weights {
			sum += w
			if w < min {
				min = w
			}
			if w > max {
				max = w
			}
		}
		if sum != 100 {
			t.Errorf("n=%d: sum=%d, want 100", n, sum)
		}
		if max-min > 1 {
			t.Errorf("n=%d: weights differ by more than 1: %v", n, weights)
		}
	}
}

func TestDeclareWinner(t *testing.T) {
	vs := []Variant{{ID: 1, Weight: 50}, {ID: 2, Weight: 50}}
	got := DeclareWinner(vs, 2)
	if got[0].Weight != 0 || got[0].IsWinner {
		t.Fatalf("loser not zeroed: %+v", got[0])
	}
	if got[1].Weight != 100 || !got[1].IsWinner {
		t.Fatalf("winner not set: %+v", got[1])
	}
}
