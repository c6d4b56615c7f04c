package cache_test

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/p-n-ai/tsea/internal/ai"
	"github.com/p-n-ai/tsea/internal/platform/cache"
	"github.com/p-n-ai/tsea/internal/platform/cache/cachetest"
)

var _ ai.Quota = (*cache.Quota)(nil)

func TestQuota_Redis(t *testing.T) {
	c := cachetest.Start(t)
	q := c.Quota()
	ctx := context.Background()
	key := "chat:" + uuid.NewString()

	for i := range 3 {
		ok, err := q.Consume(ctx, key, 3)
		if err != nil || !ok {
			t.Fatalf("Consume() #%d = %v, %v; want allowed", i+1, ok, err)
		}
	}
	ok, err := q.Consume(ctx, key, 3)
	if err != nil || ok {
		t.Fatalf("Consume() over limit = %v, %v; want rejected", ok, err)
	}

	used, err := q.Used(ctx, key)
	if err != nil {
		t.Fatalf("Used() error = %v", err)
	}
	if used != 3 {
		t.Errorf("Used() = %d, want 3 (rejected turns are not counted)", used)
	}

	// A higher limit lets the same window continue.
	if ok, _ := q.Consume(ctx, key, 4); !ok {
		t.Error("Consume() with raised limit should be allowed")
	}
}

func TestQuota_RedisConcurrentNeverOvershoots(t *testing.T) {
	c := cachetest.Start(t)
	q := c.Quota()
	ctx := context.Background()
	key := "chat:" + uuid.NewString()
	const limit = 5

	var allowed, maxSeen atomic.Int64
	done := make(chan struct{})
	var reader sync.WaitGroup
	reader.Add(1)
	go func() {
		defer reader.Done()
		for {
			select {
			case <-done:
				return
			default:
			}
			if n, err := q.Used(ctx, key); err == nil && int64(n) > maxSeen.Load() {
				maxSeen.Store(int64(n))
			}
		}
	}()

	var wg sync.WaitGroup
	for range 40 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := q.Consume(ctx, key, limit)
			if err != nil {
				t.Errorf("Consume() error = %v", err)
				return
			}
			if ok {
				allowed.Add(1)
			}
		}()
	}
	wg.Wait()
	close(done)
	reader.Wait()

	if got := allowed.Load(); got != limit {
		t.Errorf("allowed = %d, want %d", got, limit)
	}
	if got := maxSeen.Load(); got > limit {
		t.Errorf("Used() observed %d, want at most %d", got, limit)
	}
	if used, _ := q.Used(ctx, key); used != limit {
		t.Errorf("Used() = %d, want %d", used, limit)
	}
}

func TestQuota_RedisUnlimited(t *testing.T) {
	c := cachetest.Start(t)
	q := c.Quota()
	ctx := context.Background()
	key := "chat:" + uuid.NewString()

	for range 50 {
		if ok, err := q.Consume(ctx, key, ai.Unlimited); err != nil || !ok {
			t.Fatalf("Consume(unlimited) = %v, %v", ok, err)
		}
	}
	if used, _ := q.Used(ctx, key); used != 50 {
		t.Errorf("Used() = %d, want 50", used)
	}
}

func TestQuota_RedisUnusedKey(t *testing.T) {
	c := cachetest.Start(t)
	used, err := c.Quota().Used(context.Background(), "chat:nobody")
	if err != nil || used != 0 {
		t.Errorf("Used() = %d, %v; want 0, nil", used, err)
	}
}

func TestQuota_RedisSetsExpiry(t *testing.T) {
	c := cachetest.Start(t)
	ctx := context.Background()
	key := "chat:" + uuid.NewString()

	if _, err := c.Quota().Consume(ctx, key, 5); err != nil {
		t.Fatalf("Consume() error = %v", err)
	}
	redisKey := fmt.Sprintf("tsea:quota:%s:%s", ai.WindowKey(time.Now()), key)
	ttl, err := c.Client.PTTL(ctx, redisKey).Result()
	if err != nil {
		t.Fatalf("PTTL() error = %v", err)
	}
	if ttl <= 24*time.Hour || ttl > 25*time.Hour {
		t.Errorf("TTL = %s, want just under 25h", ttl)
	}
}

func TestRateLimiter_Redis(t *testing.T) {
	c := cachetest.Start(t)
	// A wide window keeps the test inside one slot.
	l := cache.NewRateLimiter(c.Client, 2, time.Hour)
	ctx := context.Background()
	ip := uuid.NewString()

	for i := range 2 {
		if ok, err := l.Allow(ctx, ip); err != nil || !ok {
			t.Fatalf("Allow() #%d = %v, %v; want allowed", i+1, ok, err)
		}
	}
	if ok, _ := l.Allow(ctx, ip); ok {
		t.Error("Allow() over limit should be rejected")
	}
	if ok, _ := l.Allow(ctx, "other-"+ip); !ok {
		t.Error("Allow() for a different key should be allowed")
	}
}
