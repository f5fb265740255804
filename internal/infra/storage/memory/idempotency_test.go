package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shorestay/internal/app/middleware"
)

func TestIdempotencyStoreRoundTrip(t *testing.T) {
	store := NewIdempotencyStore()
	rec := middleware.IdempotencyRecord{Key: "k1", Payload: []byte(`{"ok":true}`), OccurredAt: time.Now()}
	require.NoError(t, store.Save(context.Background(), rec))

	got, found, err := store.Get(context.Background(), "k1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, rec.Payload, got.Payload)

	_, found, err = store.Get(context.Background(), "missing")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestIdempotencyStoreExpiresRecords(t *testing.T) {
	store := NewIdempotencyStore()
	store.TTL = time.Minute

	stale := middleware.IdempotencyRecord{Key: "old", OccurredAt: time.Now().Add(-2 * time.Minute)}
	fresh := middleware.IdempotencyRecord{Key: "new", OccurredAt: time.Now()}
	require.NoError(t, store.Save(context.Background(), stale))
	require.NoError(t, store.Save(context.Background(), fresh))

	_, found, err := store.Get(context.Background(), "old")
	require.NoError(t, err)
	assert.False(t, found)

	_, found, err = store.Get(context.Background(), "new")
	require.NoError(t, err)
	assert.True(t, found)
}
