package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testStoreLifecycle(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()

	id, err := store.Create(ctx, Data{UserID: "u1"}, time.Minute)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	data, err := store.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "u1", data.UserID)
	assert.False(t, data.HasCompletedMFA)

	err = store.Update(ctx, id, func(d *Data) error {
		d.HasCompletedMFA = true
		return nil
	})
	require.NoError(t, err)

	data, err = store.Get(ctx, id)
	require.NoError(t, err)
	assert.True(t, data.HasCompletedMFA)

	newID, err := store.Rotate(ctx, id)
	require.NoError(t, err)
	require.NotEqual(t, id, newID)

	_, err = store.Get(ctx, id)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	data, err = store.Get(ctx, newID)
	require.NoError(t, err)
	assert.True(t, data.HasCompletedMFA)

	require.NoError(t, store.Delete(ctx, newID))
	_, err = store.Get(ctx, newID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestMemoryStoreLifecycle(t *testing.T) {
	store := NewMemoryStore()
	defer store.Close()
	testStoreLifecycle(t, store)
}

func TestMemoryStoreExpiry(t *testing.T) {
	store := NewMemoryStore()
	defer store.Close()
	ctx := context.Background()

	id, err := store.Create(ctx, Data{UserID: "u1"}, time.Millisecond)
	require.NoError(t, err)

	time.Sleep(20 * time.Millisecond)
	_, err = store.Get(ctx, id)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestMemoryStoreTouchSlidesWindow(t *testing.T) {
	store := NewMemoryStore()
	defer store.Close()
	ctx := context.Background()

	id, err := store.Create(ctx, Data{UserID: "u1"}, 50*time.Millisecond)
	require.NoError(t, err)

	require.NoError(t, store.Touch(ctx, id, time.Minute))
	time.Sleep(80 * time.Millisecond)

	_, err = store.Get(ctx, id)
	assert.NoError(t, err)
}

func newTestRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisStore(client, "test"), mr
}

func TestRedisStoreLifecycle(t *testing.T) {
	store, _ := newTestRedisStore(t)
	testStoreLifecycle(t, store)
}

func TestRedisStoreExpiry(t *testing.T) {
	store, mr := newTestRedisStore(t)
	ctx := context.Background()

	id, err := store.Create(ctx, Data{UserID: "u1"}, time.Minute)
	require.NoError(t, err)

	mr.FastForward(2 * time.Minute)
	_, err = store.Get(ctx, id)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestRedisStoreTouchUnknownSession(t *testing.T) {
	store, _ := newTestRedisStore(t)
	err := store.Touch(context.Background(), "does-not-exist", time.Minute)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}
