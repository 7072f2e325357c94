package report

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	syncer "github.com/shulebook/shulebook/internal/sync"
)

// Store persists the most recent synchronization report for the admin API.
type Store interface {
	Save(ctx context.Context, rep *syncer.Report) error
	// Last returns nil, nil when no report has been saved yet (or it expired).
	Last(ctx context.Context) (*syncer.Report, error)
}

// RedisStore keeps the last report as JSON under a single key with a TTL, so
// stale reports age out on their own.
type RedisStore struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

// NewRedisStore creates a Redis-backed report store. Key may be empty.
func NewRedisStore(client *redis.Client, key string, ttl time.Duration) *RedisStore {
	if key == "" {
		key = "sync:last-report"
	}
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &RedisStore{client: client, key: key, ttl: ttl}
}

func (s *RedisStore) Save(ctx context.Context, rep *syncer.Report) error {
	b, err := json.Marshal(rep)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.key, b, s.ttl).Err()
}

func (s *RedisStore) Last(ctx context.Context) (*syncer.Report, error) {
	b, err := s.client.Get(ctx, s.key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}
	var rep syncer.Report
	if err := json.Unmarshal(b, &rep); err != nil {
		return nil, err
	}
	return &rep, nil
}

// MemoryStore holds the last report in process memory; the fallback when no
// Redis is configured.
type MemoryStore struct {
	mu   sync.RWMutex
	last *syncer.Report
}

func NewMemoryStore() *MemoryStore { return &MemoryStore{} }

func (s *MemoryStore) Save(ctx context.Context, rep *syncer.Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *rep
	s.last = &cp
	return nil
}

func (s *MemoryStore) Last(ctx context.Context) (*syncer.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.last == nil {
		return nil, nil
	}
	cp := *s.last
	return &cp, nil
}
