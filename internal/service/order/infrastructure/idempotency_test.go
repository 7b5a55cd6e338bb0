package infrastructure

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"globalbooks/internal/pkg/apperr"
	"globalbooks/internal/pkg/redis"
	"globalbooks/internal/service/order/domain/port"
)

func exerciseIdempotency(t *testing.T, store port.IdempotencyStore, key string) {
	ctx := context.Background()

	_, claimed, err := store.Claim(ctx, key)
	require.NoError(t, err)
	require.True(t, claimed)

	_, claimed, err = store.Claim(ctx, key)
	assert.False(t, claimed)
	assert.True(t, apperr.IsKind(err, apperr.KindInvalidState))

	require.NoError(t, store.Complete(ctx, key, "ORD-00000001"))
	orderID, claimed, err := store.Claim(ctx, key)
	require.NoError(t, err)
	assert.False(t, claimed)
	assert.Equal(t, "ORD-00000001", orderID)

	other := key + "-other"
	_, claimed, err = store.Claim(ctx, other)
	require.NoError(t, err)
	require.True(t, claimed)
	require.NoError(t, store.Abandon(ctx, other))
	_, claimed, err = store.Claim(ctx, other)
	require.NoError(t, err)
	assert.True(t, claimed)
}

func TestMemoryIdempotencyStore(t *testing.T) {
	exerciseIdempotency(t, NewMemoryIdempotencyStore(time.Hour), "key-1")
}

func TestMemoryIdempotencyStore_Expiry(t *testing.T) {
	store := NewMemoryIdempotencyStore(time.Minute)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }
	ctx := context.Background()

	_, _, err := store.Claim(ctx, "k")
	require.NoError(t, err)
	require.NoError(t, store.Complete(ctx, "k", "ORD-00000001"))

	now = now.Add(2 * time.Minute)
	_, claimed, err := store.Claim(ctx, "k")
	require.NoError(t, err)
	assert.True(t, claimed)
}

func TestRedisIdempotencyStore(t *testing.T) {
	addrs := os.Getenv("REDIS_ADDRS")
	if addrs == "" {
		t.Skip("REDIS_ADDRS not set")
	}
	client, err := redis.NewClient(context.Background(), addrs, os.Getenv("REDIS_PASSWORD"), 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	exerciseIdempotency(t, NewRedisIdempotencyStore(client, time.Minute), "test-"+uuid.NewString())
}
