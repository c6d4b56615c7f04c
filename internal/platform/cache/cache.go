// Package cache connects to Redis (or Dragonfly) and keeps the counters that
// must be shared by every server instance: daily chat quotas and the /api/
// rate limit. Progress snapshots use the same client.
//
// Keys:
//
//	tsea:progress:<session>         progress snapshot (package progress)
//	tsea:quota:<yyyy-mm-dd>:<key>   chat turns used in a UTC day
//	tsea:rl:<key>:<slot>            requests in a fixed window
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache wraps a Redis client.
type Cache struct {
	Client *redis.Client
}

// ParseURL validates a Redis connection URL.
func ParseURL(url string) (*redis.Options, error) {
	if url == "" {
		return nil, fmt.Errorf("cache URL is empty")
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid cache URL: %w", err)
	}
	return opts, nil
}

// New connects and pings the server.
func New(ctx context.Context, url string) (*Cache, error) {
	opts, err := ParseURL(url)
	if err != nil {
		return nil, err
	}

	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("pinging cache: %w", err)
	}

	return &Cache{Client: client}, nil
}

// Quota returns a daily chat quota backed by this cache.
func (c *Cache) Quota() *Quota {
	return NewQuota(c.Client)
}

// RateLimiter returns a per-minute limiter backed by this cache.
func (c *Cache) RateLimiter(perMinute int) *RateLimiter {
	return NewRateLimiter(c.Client, perMinute, time.Minute)
}

func (c *Cache) Close() error {
	return c.Client.Close()
}

// HealthCheck verifies the cache connection is alive.
func (c *Cache) HealthCheck(ctx context.Context) error {
	return c.Client.Ping(ctx).Err()
}
