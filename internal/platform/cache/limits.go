package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/p-n-ai/tsea/internal/ai"
)

const (
	quotaPrefix = "tsea:quota:"
	ratePrefix  = "tsea:rl:"

	// quotaTTL outlives the daily window so a counter never expires early.
	quotaTTL = 25 * time.Hour
)

// incrWindow increments key and sets its expiry on first use.
var incrWindow = redis.NewScript(`
local n = redis.call("INCR", KEYS[1])
if n == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return n
`)

// consumeQuota counts one turn against a limit in a single step. A negative
// limit is unlimited; over the limit it undoes the increment and returns -1.
var consumeQuota = redis.NewScript(`
local n = redis.call("INCR", KEYS[1])
if n == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
local limit = tonumber(ARGV[2])
if limit >= 0 and n > limit then
  redis.call("DECR", KEYS[1])
  return -1
end
return n
`)

// Quota counts daily chat turns in Redis. Windows are UTC calendar days and
// rejected turns are not counted.
type Quota struct {
	client *redis.Client
	now    func() time.Time
}

// NewQuota creates a Redis-backed quota.
func NewQuota(client *redis.Client) *Quota {
	return &Quota{client: client, now: time.Now}
}

func (q *Quota) key(key string) string {
	return quotaPrefix + ai.WindowKey(q.now()) + ":" + key
}

func (q *Quota) Consume(ctx context.Context, key string, limit int) (bool, error) {
	if limit == 0 {
		return false, nil
	}

	n, err := consumeQuota.Run(ctx, q.client, []string{q.key(key)}, quotaTTL.Milliseconds(), limit).Int64()
	if err != nil {
		return false, fmt.Errorf("consume quota: %w", err)
	}
	return n >= 0, nil
}

func (q *Quota) Used(ctx context.Context, key string) (int, error) {
	n, err := q.client.Get(ctx, q.key(key)).Int()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read quota: %w", err)
	}
	return n, nil
}

// RateLimiter is a fixed-window request limiter shared by every server
// instance using the same Redis.
type RateLimiter struct {
	client *redis.Client
	limit  int
	window time.Duration
	now    func() time.Time
}

// NewRateLimiter allows limit requests per window for each key.
func NewRateLimiter(client *redis.Client, limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{client: client, limit: limit, window: window, now: time.Now}
}

// Allow records one request for key and reports whether it is within limit.
func (l *RateLimiter) Allow(ctx context.Context, key string) (bool, error) {
	slot := l.now().UnixNano() / int64(l.window)
	k := fmt.Sprintf("%s%s:%d", ratePrefix, key, slot)

	n, err := incrWindow.Run(ctx, l.client, []string{k}, l.window.Milliseconds()).Int64()
	if err != nil {
		return false, fmt.Errorf("rate limit: %w", err)
	}
	return n <= int64(l.limit), nil
}
