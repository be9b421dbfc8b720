// Package queue is a Redis-backed job queue: a delayed queue per job kind
// (sorted set keyed by due-time), the warmup pair dedup set (SET-NX with
// TTL), and the daily-reset CAS key.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"outreachengine/config"
)

// Queue wraps a redis client with the handful of primitives the schedulers
// and consumers need: delayed job enqueue/dequeue, idempotent job keys,
// dedup SET-NX, and a single CAS'd daily-reset marker.
type Queue struct {
	client *redis.Client
}

// New opens a redis client from config.RedisConfig.
func New(cfg config.RedisConfig) *Queue {
	return &Queue{
		client: redis.NewClient(&redis.Options{
			Addr:     cfg.Address,
			Password: cfg.Password,
			DB:       cfg.DB,
		}),
	}
}

// Kind names one of the three persisted job shapes.
type Kind string

const (
	KindEmailSend     Kind = "email-send"
	KindBounceProcess Kind = "bounce-process"
	KindWarmupSend    Kind = "warmup-send"
)

func zsetKey(kind Kind) string {
	return "queue:" + string(kind)
}

// EmailSendJob is the email-send queue payload.
type EmailSendJob struct {
	EmailID      uint `json:"emailId"`
	LeadID       uint `json:"leadId"`
	CampaignID   uint `json:"campaignId"`
	InboxID      uint `json:"inboxId"`
	SequenceStep int  `json:"sequenceStep"`
	IsRetry      bool `json:"isRetry,omitempty"`
	RetryCount   int  `json:"retryCount,omitempty"`
}

// BounceProcessJob is the bounce-process queue payload.
type BounceProcessJob struct {
	EmailID        uint   `json:"emailId"`
	LeadID         uint   `json:"leadId"`
	InboxID        uint   `json:"inboxId"`
	CampaignID     uint   `json:"campaignId,omitempty"`
	BounceType     string `json:"bounceType"`
	BounceReason   string `json:"bounceReason"`
	DiagnosticCode string `json:"diagnosticCode,omitempty"`
}

// WarmupSendJob is the warmup-send queue payload. ThreadSubject carries the
// initial message's subject down the reply/continuation/closer legs so the
// "Re: " subject can be re-derived without persisting warmup messages.
type WarmupSendJob struct {
	FromInboxID     uint   `json:"fromInboxId"`
	ToInboxID       uint   `json:"toInboxId"`
	TemplateType    string `json:"templateType"`
	ThreadDepth     int    `json:"threadDepth"`
	MaxThreadDepth  int    `json:"maxThreadDepth"`
	IsNetworkWarmup bool   `json:"isNetworkWarmup"`
	ThreadSubject   string `json:"threadSubject,omitempty"`
}

// Envelope is what's actually stored in the sorted set member: the job
// idempotency key, the attempt count, and the raw payload, so Dequeue can
// hand back attempt/enqueue-time bookkeeping without a second round trip.
type Envelope struct {
	Key      string          `json:"key"`
	Attempt  int             `json:"attempt"`
	Payload  json.RawMessage `json:"payload"`
	EnqueuedAt time.Time     `json:"enqueuedAt"`
}

// Enqueue schedules payload to become due at runAt, under idempotencyKey
// (e.g. campaign-<cid>-<leadid>-<step>-<YYYYMMDD>, which suppresses
// duplicate sends for the day). If a job with the same
// key is already pending, Enqueue is a silent no-op (ZADD NX keyed by
// score would allow duplicates with different scores, so idempotency is
// enforced via a separate SET-NX marker with a fixed 25-hour TTL).
func (q *Queue) Enqueue(ctx context.Context, kind Kind, idempotencyKey string, payload interface{}, runAt time.Time) error {
	marker := "queue:seen:" + string(kind) + ":" + idempotencyKey
	ok, err := q.client.SetNX(ctx, marker, 1, 25*time.Hour).Result()
	if err != nil {
		return fmt.Errorf("queue: dedup check failed: %w", err)
	}
	if !ok {
		return nil
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("queue: marshal payload: %w", err)
	}
	env := Envelope{Key: idempotencyKey, Payload: raw, EnqueuedAt: time.Now()}
	member, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("queue: marshal envelope: %w", err)
	}

	return q.client.ZAdd(ctx, zsetKey(kind), &redis.Z{
		Score:  float64(runAt.Unix()),
		Member: member,
	}).Err()
}

// DequeueDue pops up to limit jobs whose score (due time) has passed, for
// kind. Each returned Envelope's Payload should be json.Unmarshal'd into
// the kind-specific struct by the caller.
func (q *Queue) DequeueDue(ctx context.Context, kind Kind, limit int) ([]Envelope, error) {
	now := float64(time.Now().Unix())
	key := zsetKey(kind)

	members, err := q.client.ZRangeByScore(ctx, key, &redis.ZRangeBy{
		Min:   "-inf",
		Max:   fmt.Sprintf("%f", now),
		Count: int64(limit),
	}).Result()
	if err != nil {
		return nil, err
	}
	if len(members) == 0 {
		return nil, nil
	}

	toRemove := make([]interface{}, len(members))
	envs := make([]Envelope, 0, len(members))
	for i, m := range members {
		toRemove[i] = m
		var env Envelope
		if err := json.Unmarshal([]byte(m), &env); err != nil {
			continue
		}
		envs = append(envs, env)
	}
	if err := q.client.ZRem(ctx, key, toRemove...).Err(); err != nil {
		return nil, err
	}
	return envs, nil
}

// Requeue re-enqueues an envelope's payload after a delay, bumping its
// attempt count — used by the send worker's failed-send retry handling.
// The bounce processor's soft-bounce retries go through Enqueue instead.
func (q *Queue) Requeue(ctx context.Context, kind Kind, env Envelope, delay time.Duration) error {
	env.Attempt++
	member, err := json.Marshal(env)
	if err != nil {
		return err
	}
	return q.client.ZAdd(ctx, zsetKey(kind), &redis.Z{
		Score:  float64(time.Now().Add(delay).Unix()),
		Member: member,
	}).Err()
}

// Close releases the underlying redis connection pool.
func (q *Queue) Close() error {
	return q.client.Close()
}
