package state

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisStore(t *testing.T, ttl time.Duration) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisStore(client, "vtubot:session:", ttl), mr
}

func TestRedisStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store, mr := newRedisStore(t, time.Minute)

	s := NewSession()
	s.Reset(stepPhone)
	s.Set("kind", "airtime")
	s.Set("price", "20000")
	require.NoError(t, store.Save(ctx, 42, s))

	assert.True(t, mr.Exists("vtubot:session:42"))
	assert.Equal(t, time.Minute, mr.TTL("vtubot:session:42"))

	got, err := store.Load(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, stepPhone, got.State)
	assert.Equal(t, "20000", got.Get("price"))
	assert.False(t, got.UpdatedAt.IsZero())
}

func TestRedisStoreExpiry(t *testing.T) {
	ctx := context.Background()
	store, mr := newRedisStore(t, time.Minute)

	s := NewSession()
	s.Reset(stepPhone)
	require.NoError(t, store.Save(ctx, 5, s))

	mr.FastForward(2 * time.Minute)

	got, err := store.Load(ctx, 5)
	require.NoError(t, err)
	assert.False(t, got.Active())
}

func TestRedisStoreClearAndIdleSave(t *testing.T) {
	ctx := context.Background()
	store, mr := newRedisStore(t, 0)

	s := NewSession()
	s.Reset(stepPhone)
	require.NoError(t, store.Save(ctx, 9, s))
	require.NoError(t, store.Clear(ctx, 9))
	assert.False(t, mr.Exists("vtubot:session:9"))

	require.NoError(t, store.Save(ctx, 9, s))
	s.Reset(StateIdle)
	require.NoError(t, store.Save(ctx, 9, s))
	assert.False(t, mr.Exists("vtubot:session:9"))
}

func TestRedisStoreCorruptPayload(t *testing.T) {
	store, mr := newRedisStore(t, time.Minute)
	require.NoError(t, mr.Set("vtubot:session:1", "{not json"))

	_, err := store.Load(context.Background(), 1)
	require.Error(t, err)
}
