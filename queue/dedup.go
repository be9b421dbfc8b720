package queue

import (
	"context"
	"fmt"
	"time"

	"outreachengine/quota"
)

// SeenDedupPair atomically records a warmup (from, to, type) pair under
// quota.DedupKey with a 7-day TTL. ok=true means this call
// recorded a NEW pair (the caller may proceed); ok=false means the pair was
// already seen within the TTL window (the caller must pick a different
// counterpart).
func (q *Queue) SeenDedupPair(ctx context.Context, fromInboxID, toInboxID uint, typ string) (isNew bool, err error) {
	key := quota.DedupKey(fromInboxID, toInboxID, typ)
	ok, err := q.client.SetNX(ctx, key, 1, quota.DedupTTLDays*24*time.Hour).Result()
	return ok, err
}

// dailyResetKey is the single KV key guarding the daily-reset task via
// conditional CAS.
const dailyResetKey = "warmup:last_reset_date"

// TryClaimTeamDailyReset claims one team's inbox-counter reset for a
// local calendar date via SET-NX, so the per-minute reset loop zeroes
// inboxes.sent_today exactly once per team per day. Warmup rows carry
// their own last_reset_date guard and don't need this.
func (q *Queue) TryClaimTeamDailyReset(ctx context.Context, teamID uint, localDate string) (claimed bool, err error) {
	key := fmt.Sprintf("warmup:team_reset:%d:%s", teamID, localDate)
	return q.client.SetNX(ctx, key, 1, 48*time.Hour).Result()
}

// TryClaimDailyReset performs the CAS: it reads the stored last-reset
// date, and if it differs from today (YYYY-MM-DD), atomically swaps it in
// and returns true so exactly one process instance performs the reset for
// that calendar date. A Lua script makes the compare-and-set atomic
// without a separate WATCH/MULTI round trip.
func (q *Queue) TryClaimDailyReset(ctx context.Context, today string) (claimed bool, err error) {
	const script = `
local current = redis.call("GET", KEYS[1])
if current == ARGV[1] then
  return 0
end
redis.call("SET", KEYS[1], ARGV[1])
return 1
`
	res, err := q.client.Eval(ctx, script, []string{dailyResetKey}, today).Result()
	if err != nil {
		return false, err
	}
	n, _ := res.(int64)
	return n == 1, nil
}
