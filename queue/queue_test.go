package queue

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/require"
)

func newTestQueue(t *testing.T) (*Queue, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	q := &Queue{client: redis.NewClient(&redis.Options{Addr: mr.Addr()})}
	t.Cleanup(func() { q.Close() })
	return q, mr
}

// A warmup pair re-enqueued within
// 7 days reads as already seen; past the TTL it reads as new again.
func TestDedupPairPersistsForTTL(t *testing.T) {
	q, mr := newTestQueue(t)
	ctx := context.Background()

	isNew, err := q.SeenDedupPair(ctx, 1, 2, "main")
	require.NoError(t, err)
	require.True(t, isNew, "first sighting of a pair must be new")

	isNew, err = q.SeenDedupPair(ctx, 1, 2, "main")
	require.NoError(t, err)
	require.False(t, isNew, "second sighting within the TTL must be seen")

	// A different leg type is a distinct pair.
	isNew, err = q.SeenDedupPair(ctx, 1, 2, "reply")
	require.NoError(t, err)
	require.True(t, isNew)

	mr.FastForward(7*24*time.Hour + time.Second)

	isNew, err = q.SeenDedupPair(ctx, 1, 2, "main")
	require.NoError(t, err)
	require.True(t, isNew, "after the TTL the pair must read as new")
}

func TestEnqueueIsIdempotentPerKey(t *testing.T) {
	q, _ := newTestQueue(t)
	ctx := context.Background()

	job := EmailSendJob{EmailID: 10, LeadID: 20, CampaignID: 30, InboxID: 40, SequenceStep: 1}
	due := time.Now().Add(-time.Second)

	require.NoError(t, q.Enqueue(ctx, KindEmailSend, "campaign-30-20-1-20260801", job, due))
	require.NoError(t, q.Enqueue(ctx, KindEmailSend, "campaign-30-20-1-20260801", job, due))

	envs, err := q.DequeueDue(ctx, KindEmailSend, 10)
	require.NoError(t, err)
	require.Len(t, envs, 1, "duplicate idempotency keys must collapse to one job")
	require.Equal(t, "campaign-30-20-1-20260801", envs[0].Key)
}

func TestDequeueDueLeavesFutureJobs(t *testing.T) {
	q, _ := newTestQueue(t)
	ctx := context.Background()

	require.NoError(t, q.Enqueue(ctx, KindWarmupSend, "future", WarmupSendJob{FromInboxID: 1}, time.Now().Add(time.Hour)))
	require.NoError(t, q.Enqueue(ctx, KindWarmupSend, "due", WarmupSendJob{FromInboxID: 2}, time.Now().Add(-time.Minute)))

	envs, err := q.DequeueDue(ctx, KindWarmupSend, 10)
	require.NoError(t, err)
	require.Len(t, envs, 1)
	require.Equal(t, "due", envs[0].Key)

	// The future job stays put for a later pass.
	envs, err = q.DequeueDue(ctx, KindWarmupSend, 10)
	require.NoError(t, err)
	require.Empty(t, envs)
}

func TestRequeueBumpsAttempt(t *testing.T) {
	q, _ := newTestQueue(t)
	ctx := context.Background()

	require.NoError(t, q.Enqueue(ctx, KindBounceProcess, "b1", BounceProcessJob{EmailID: 1, BounceType: "soft"}, time.Now().Add(-time.Second)))
	envs, err := q.DequeueDue(ctx, KindBounceProcess, 1)
	require.NoError(t, err)
	require.Len(t, envs, 1)
	require.Equal(t, 0, envs[0].Attempt)

	require.NoError(t, q.Requeue(ctx, KindBounceProcess, envs[0], -time.Second))

	envs, err = q.DequeueDue(ctx, KindBounceProcess, 1)
	require.NoError(t, err)
	require.Len(t, envs, 1)
	require.Equal(t, 1, envs[0].Attempt)
}

func TestTryClaimDailyResetIsOncePerDate(t *testing.T) {
	q, _ := newTestQueue(t)
	ctx := context.Background()

	claimed, err := q.TryClaimDailyReset(ctx, "2026-08-01")
	require.NoError(t, err)
	require.True(t, claimed)

	claimed, err = q.TryClaimDailyReset(ctx, "2026-08-01")
	require.NoError(t, err)
	require.False(t, claimed, "same date must not be claimed twice")

	claimed, err = q.TryClaimDailyReset(ctx, "2026-08-02")
	require.NoError(t, err)
	require.True(t, claimed, "a new date rolls the claim over")
}

func TestTryClaimTeamDailyResetIsOncePerTeamAndDate(t *testing.T) {
	q, _ := newTestQueue(t)
	ctx := context.Background()

	claimed, err := q.TryClaimTeamDailyReset(ctx, 7, "2026-08-01")
	require.NoError(t, err)
	require.True(t, claimed)

	claimed, err = q.TryClaimTeamDailyReset(ctx, 7, "2026-08-01")
	require.NoError(t, err)
	require.False(t, claimed, "same team and date must not be claimed twice")

	// Another team, and the same team on the next date, each claim freshly.
	claimed, err = q.TryClaimTeamDailyReset(ctx, 8, "2026-08-01")
	require.NoError(t, err)
	require.True(t, claimed)

	claimed, err = q.TryClaimTeamDailyReset(ctx, 7, "2026-08-02")
	require.NoError(t, err)
	require.True(t, claimed)
}

func TestPendingWarmupCounter(t *testing.T) {
	q, _ := newTestQueue(t)
	ctx := context.Background()

	n, err := q.PendingWarmup(ctx, 5)
	require.NoError(t, err)
	require.Equal(t, 0, n, "missing key reads as zero")

	require.NoError(t, q.IncrPendingWarmup(ctx, 5))
	require.NoError(t, q.IncrPendingWarmup(ctx, 5))
	n, err = q.PendingWarmup(ctx, 5)
	require.NoError(t, err)
	require.Equal(t, 2, n)

	require.NoError(t, q.DecrPendingWarmup(ctx, 5))
	n, err = q.PendingWarmup(ctx, 5)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	// A stray extra decrement clamps at zero instead of going negative.
	require.NoError(t, q.DecrPendingWarmup(ctx, 5))
	require.NoError(t, q.DecrPendingWarmup(ctx, 5))
	n, err = q.PendingWarmup(ctx, 5)
	require.NoError(t, err)
	require.Equal(t, 0, n)
}
