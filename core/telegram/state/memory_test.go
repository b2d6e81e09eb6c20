package state

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const stepPhone State = "awaiting_phone"

func TestMemoryStoreRoundTripIsolatesCopies(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(time.Minute)

	s, err := store.Load(ctx, 7)
	require.NoError(t, err)
	assert.False(t, s.Active())

	s.Reset(stepPhone)
	s.Set("operator", "mtn")
	require.NoError(t, store.Save(ctx, 7, s))

	s.Set("operator", "glo")

	got, err := store.Load(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, stepPhone, got.State)
	assert.Equal(t, "mtn", got.Get("operator"))
}

func TestMemoryStoreExpiresIdleSessions(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(time.Minute)
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	s := NewSession()
	s.Reset(stepPhone)
	require.NoError(t, store.Save(ctx, 1, s))
	require.NoError(t, store.Save(ctx, 2, s))

	now = now.Add(2 * time.Minute)
	got, err := store.Load(ctx, 1)
	require.NoError(t, err)
	assert.False(t, got.Active())

	assert.Equal(t, 1, store.Sweep())
	assert.Equal(t, 0, store.Len())
}

func TestMemoryStoreSavingIdleClears(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(0)

	s := NewSession()
	s.Reset(stepPhone)
	require.NoError(t, store.Save(ctx, 3, s))
	assert.Equal(t, 1, store.Len())

	s.Reset(StateIdle)
	require.NoError(t, store.Save(ctx, 3, s))
	assert.Equal(t, 0, store.Len())

	assert.ErrorIs(t, store.Save(ctx, 3, nil), ErrNilSession)
}
