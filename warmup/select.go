package warmup

import "math/rand"

// Shuffle returns a Fisher-Yates shuffled permutation of [0, n), used both
// for counterpart selection and template rotation. rng is
// always explicit so production randomness and seeded test/preview
// randomness share one code path.
func Shuffle(n int, rng *rand.Rand) []int {
	indices := make([]int, n)
	for i := range indices {
		indices[i] = i
	}
	for i := n - 1; i > 0; i-- {
		j := rng.Intn(i + 1)
		indices[i], indices[j] = indices[j], indices[i]
	}
	return indices
}

// CounterpartPicker draws candidate counterpart indices without repeating
// a recently-used one. It shuffles once, hands out indices from the front,
// and reshuffles and continues once exhausted, so a mailbox pool where
// every pair was recently used still makes progress.
type CounterpartPicker struct {
	n       int
	rng     *rand.Rand
	order   []int
	cursor  int
}

// NewCounterpartPicker builds a picker over n candidates.
func NewCounterpartPicker(n int, rng *rand.Rand) *CounterpartPicker {
	if n <= 0 {
		return &CounterpartPicker{n: n, rng: rng}
	}
	return &CounterpartPicker{n: n, rng: rng, order: Shuffle(n, rng)}
}

// Next returns the next candidate index, reshuffling transparently when
// the current permutation is exhausted. ok is false only when n == 0.
func (p *CounterpartPicker) Next() (index int, ok bool) {
	if p.n <= 0 {
		return 0, false
	}
	if p.cursor >= len(p.order) {
		p.order = Shuffle(p.n, p.rng)
		p.cursor = 0
	}
	index = p.order[p.cursor]
	p.cursor++
	return index, true
}

// ThreadPlan is the depth/mode decision made once per warmup send: a
// 50/50 coin flip picks single-reply vs. multi-level, and multi-level
// chooses a max depth uniformly from {2,3,4,5}.
type ThreadPlan struct {
	MultiLevel bool
	MaxDepth   int
}

// PlanThread draws a ThreadPlan using rng.
func PlanThread(rng *rand.Rand) ThreadPlan {
	if rng.Intn(2) == 0 {
		return ThreadPlan{MultiLevel: false, MaxDepth: 1}
	}
	depths := []int{2, 3, 4, 5}
	return ThreadPlan{MultiLevel: true, MaxDepth: depths[rng.Intn(len(depths))]}
}

// NextLeg decides what synthetic-conversation leg should follow a reply at
// the given current depth: continuation while
// depth < maxDepth-1, a closer exactly at maxDepth-1, and nothing once
// maxDepth is reached.
func NextLeg(currentDepth, maxDepth int) (typ string, shouldSend bool) {
	if currentDepth >= maxDepth {
		return "", false
	}
	if currentDepth == maxDepth-1 {
		return "closer", true
	}
	return "continuation", true
}
