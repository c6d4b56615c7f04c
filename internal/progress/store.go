package progress

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store persists progress records per session. Load never returns a nil record.
type Store interface {
	Load(ctx context.Context, sessionID string) (Progress, error)
	Save(ctx context.Context, sessionID string, p Progress) error
	Delete(ctx context.Context, sessionID string) error
}

// MemoryStore is an in-memory Store for development and tests.
type MemoryStore struct {
	records map[string]Progress
	mu      sync.RWMutex
}

// NewMemoryStore creates an empty in-memory progress store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]Progress)}
}

func (s *MemoryStore) Load(_ context.Context, sessionID string) (Progress, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.records[sessionID]
	if !ok {
		return New(), nil
	}
	return p.Clone(), nil
}

func (s *MemoryStore) Save(_ context.Context, sessionID string, p Progress) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.records[sessionID]
	if !ok {
		cur = New()
		s.records[sessionID] = cur
	}
	// Merge rather than replace so flags never flip back to false.
	for k, v := range p {
		if v {
			cur[k] = true
		}
	}
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, sessionID)
	return nil
}

const redisKeyPrefix = "tsea:progress:"

// RedisStore keeps each session's progress in a Redis hash whose fields are
// "module/item" keys. The hash expires together with the session.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore creates a Redis-backed progress store.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func (s *RedisStore) key(sessionID string) string {
	return redisKeyPrefix + sessionID
}

func (s *RedisStore) Load(ctx context.Context, sessionID string) (Progress, error) {
	fields, err := s.client.HGetAll(ctx, s.key(sessionID)).Result()
	if err != nil {
		return nil, fmt.Errorf("load progress: %w", err)
	}
	p := make(Progress, len(fields))
	for field, v := range fields {
		if v != "1" {
			continue
		}
		k, err := ParseKey(field)
		if err != nil {
			return nil, fmt.Errorf("load progress: %w", err)
		}
		p[k] = true
	}
	return p, nil
}

func (s *RedisStore) Save(ctx context.Context, sessionID string, p Progress) error {
	values := make(map[string]any, len(p))
	for k, v := range p {
		if v {
			values[k.String()] = "1"
		}
	}

	key := s.key(sessionID)
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		if len(values) > 0 {
			pipe.HSet(ctx, key, values)
		}
		if s.ttl > 0 {
			pipe.Expire(ctx, key, s.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("save progress: %w", err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, s.key(sessionID)).Err(); err != nil {
		return fmt.Errorf("delete progress: %w", err)
	}
	return nil
}
