package ai

import (
	"context"
	"sync"
	"time"
)

// Unlimited disables a quota.
const Unlimited = -1

// Quota counts assistant turns per key within a daily window.
type Quota interface {
	// Consume records one turn for key and reports whether it was within
	// limit. A negative limit never rejects.
	Consume(ctx context.Context, key string, limit int) (bool, error)
	// Used returns the turns recorded for key in the current window.
	Used(ctx context.Context, key string) (int, error)
}

// MemoryQuota is an in-process Quota for development and tests. Windows are
// UTC calendar days.
type MemoryQuota struct {
	mu    sync.Mutex
	now   func() time.Time
	day   string
	usage map[string]int
}

// NewMemoryQuota creates an empty in-memory quota.
func NewMemoryQuota() *MemoryQuota {
	return &MemoryQuota{
		now:   time.Now,
		usage: make(map[string]int),
	}
}

// SetClock replaces the time source.
func (q *MemoryQuota) SetClock(now func() time.Time) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.now = now
}

func (q *MemoryQuota) Consume(_ context.Context, key string, limit int) (bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.roll()

	if limit >= 0 && q.usage[key] >= limit {
		return false, nil
	}
	q.usage[key]++
	return true, nil
}

func (q *MemoryQuota) Used(_ context.Context, key string) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.roll()
	return q.usage[key], nil
}

// roll resets every counter when the day changes. Callers hold mu.
func (q *MemoryQuota) roll() {
	day := WindowKey(q.now())
	if day != q.day {
		q.day = day
		clear(q.usage)
	}
}

// WindowKey names the daily window containing t.
func WindowKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}
