package warmup

import (
	"math/rand"
	"testing"
)

func TestShuffleIsPermutation(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	perm := Shuffle(10, rng)
	seen := make(map[int]bool, 10)
	for _, v := range perm {
		if v < 0 || v >= 10 || seen[v] {
			t.Fatalf("Shuffle(10) produced invalid permutation: %v", perm)
		}
		seen[v] = true
	}
}

func TestCounterpartPickerReshufflesWhenExhausted(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	picker := NewCounterpartPicker(3, rng)
	seen := make(map[int]int)
	for i := 0; i < 9; i++ {
		idx, ok := picker.Next()
		if !ok {
			t.Fatal("expected Next to succeed")
		}
		if idx < 0 || idx >= 3 {
			t.Fatalf("index out of range: %d", idx)
		}
		seen[idx]++
	}
	for i := 0; i < 3; i++ {
		if seen[i] != 3 {
			t.Fatalf("expected each of 3 candidates to be picked exactly 3 times over 9 draws, got %v", seen)
		}
	}
}

func TestCounterpartPickerEmpty(t *testing.T) {
	picker := NewCounterpartPicker(0, rand.New(rand.NewSource(3)))
	if _, ok := picker.Next(); ok {
		t.Fatal("expected Next to fail for zero candidates")
	}
}

func TestNextLegSequence(t *testing.T) {
	maxDepth := 3
	typ, ok := NextLeg(0, maxDepth)
	if !ok || typ != "continuation" {
		t.Fatalf("depth 0/%d: got (%q, %v)", maxDepth, typ, ok)
	}
	typ, ok = NextLeg(2, maxDepth)
	if !ok || typ != "closer" {
		t.Fatalf("depth 2/%d: got (%q, %v)", maxDepth, typ, ok)
	}
	_, ok = NextLeg(3, maxDepth)
	if ok {
		t.Fatal("depth == maxDepth must stop the thread")
	}
}

func TestPlanThreadSingleOrMultiLevel(t *testing.T) {
	rng := rand.New(rand.NewSource(4))
	for i := 0; i < 50; i++ {
		plan := PlanThread(rng)
		if !plan.MultiLevel && plan.MaxDepth != 1 {
			t.Fatalf("single-reply plan must have MaxDepth 1, got %d", plan.MaxDepth)
		}
		if plan.MultiLevel && (plan.MaxDepth < 2 || plan.MaxDepth > 5) {
			t.Fatalf("multi-level plan MaxDepth out of range: %d", plan.MaxDepth)
		}
	}
}
