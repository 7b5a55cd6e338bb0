package infrastructure

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"

	"globalbooks/internal/pkg/apperr"
	"globalbooks/internal/pkg/redis"
)

// pendingMarker is stored while the request owning a key is still running.
const pendingMarker = "PENDING"

func keyInFlight(key string) error {
	return apperr.New(apperr.KindInvalidState, apperr.CodeInvalidState,
		"a request with Idempotency-Key %q is still in progress", key)
}

type idempotencyEntry struct {
	orderID string
	expires time.Time
}

// MemoryIdempotencyStore is an in-process port.IdempotencyStore. Entries
// expire after ttl.
type MemoryIdempotencyStore struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]idempotencyEntry
}

func NewMemoryIdempotencyStore(ttl time.Duration) *MemoryIdempotencyStore {
	return &MemoryIdempotencyStore{ttl: ttl, now: time.Now, entries: make(map[string]idempotencyEntry)}
}

func (s *MemoryIdempotencyStore) Claim(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	if e, ok := s.entries[key]; ok && now.Before(e.expires) {
		if e.orderID == "" {
			return "", false, keyInFlight(key)
		}
		return e.orderID, false, nil
	}
	s.entries[key] = idempotencyEntry{expires: now.Add(s.ttl)}
	return "", true, nil
}

func (s *MemoryIdempotencyStore) Complete(_ context.Context, key, orderID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = idempotencyEntry{orderID: orderID, expires: s.now().Add(s.ttl)}
	return nil
}

func (s *MemoryIdempotencyStore) Abandon(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}

// RedisIdempotencyStore claims keys with SET NX so that order-service
// replicas share them.
type RedisIdempotencyStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisIdempotencyStore(client *redis.Client, ttl time.Duration) *RedisIdempotencyStore {
	return &RedisIdempotencyStore{client: client, ttl: ttl}
}

func idempotencyKey(key string) string {
	return "order:idempotency:" + key
}

func (s *RedisIdempotencyStore) Claim(ctx context.Context, key string) (string, bool, error) {
	rdb := s.client.GetClient()
	// A key can expire between SET NX and GET; one retry covers that window.
	for range 2 {
		ok, err := rdb.SetNX(ctx, idempotencyKey(key), pendingMarker, s.ttl).Result()
		if err != nil {
			return "", false, apperr.Unavailable(errors.Wrap(err, "redis setnx"), "claim idempotency key")
		}
		if ok {
			return "", true, nil
		}

		val, err := rdb.Get(ctx, idempotencyKey(key)).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return "", false, apperr.Unavailable(errors.Wrap(err, "redis get"), "read idempotency key")
		}
		if val == pendingMarker {
			return "", false, keyInFlight(key)
		}
		return val, false, nil
	}
	return "", false, keyInFlight(key)
}

func (s *RedisIdempotencyStore) Complete(ctx context.Context, key, orderID string) error {
	err := s.client.GetClient().Set(ctx, idempotencyKey(key), orderID, s.ttl).Err()
	if err != nil {
		return apperr.Unavailable(errors.Wrap(err, "redis set"), "complete idempotency key")
	}
	return nil
}

func (s *RedisIdempotencyStore) Abandon(ctx context.Context, key string) error {
	err := s.client.GetClient().Del(ctx, idempotencyKey(key)).Err()
	if err != nil {
		return apperr.Unavailable(errors.Wrap(err, "redis del"), "abandon idempotency key")
	}
	return nil
}
