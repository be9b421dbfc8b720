package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// pendingKey tracks how many warmup sends are already queued for a mailbox
// today, so the warmup engine's remaining = quota - sent_today -
// pending_in_queue doesn't have to scan the sorted set. The
// counter expires after a day so a crashed consumer can't wedge a mailbox
// forever.
func pendingKey(fromInboxID uint) string {
	return fmt.Sprintf("warmup:pending:%d", fromInboxID)
}

// IncrPendingWarmup bumps the pending-send counter for a mailbox.
func (q *Queue) IncrPendingWarmup(ctx context.Context, fromInboxID uint) error {
	key := pendingKey(fromInboxID)
	if err := q.client.Incr(ctx, key).Err(); err != nil {
		return err
	}
	return q.client.Expire(ctx, key, 25*time.Hour).Err()
}

// DecrPendingWarmup releases one pending slot once the consumer picked the
// job up. The floor guard keeps a double-decrement (job retried after a
// crash mid-process) from driving the counter negative.
func (q *Queue) DecrPendingWarmup(ctx context.Context, fromInboxID uint) error {
	key := pendingKey(fromInboxID)
	n, err := q.client.Decr(ctx, key).Result()
	if err != nil {
		return err
	}
	if n < 0 {
		return q.client.Set(ctx, key, 0, 25*time.Hour).Err()
	}
	return nil
}

// PendingWarmup reads the current pending-send count for a mailbox.
// A missing key reads as zero.
func (q *Queue) PendingWarmup(ctx context.Context, fromInboxID uint) (int, error) {
	n, err := q.client.Get(ctx, pendingKey(fromInboxID)).Int()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, err
	}
	return n, nil
}
