package storage

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AchilleasB/roombook/booking-client/internal/core/ports"
)

func newRedisPair(t *testing.T) (*miniredis.Miniredis, *RedisStore, *RedisStore) {
	t.Helper()
	mr := miniredis.RunT(t)

	newClient := func() *redis.Client {
		c := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		t.Cleanup(func() { _ = c.Close() })
		return c
	}
	return mr, NewRedisStore(newClient(), nil), NewRedisStore(newClient(), nil)
}

func TestRedisStore_GetSetDelete(t *testing.T) {
	ctx := context.Background()
	mr, a, b := newRedisPair(t)

	_, ok, err := a.Get(ctx, ports.KeyAdminToken)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, a.Set(ctx, ports.KeyAdminToken, "admin-tok"))
	require.NoError(t, a.Set(ctx, ports.KeyStoreID, "7"))

	got, err := mr.Get(redisKeyPrefix + ports.KeyAdminToken)
	require.NoError(t, err)
	assert.Equal(t, "admin-tok", got)

	v, ok, err := b.Get(ctx, ports.KeyStoreID)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "7", v)

	require.NoError(t, b.Delete(ctx, ports.KeyAdminToken, ports.KeyStoreID))
	assert.False(t, mr.Exists(redisKeyPrefix+ports.KeyAdminToken))
	assert.False(t, mr.Exists(redisKeyPrefix+ports.KeyStoreID))
	require.NoError(t, b.Delete(ctx))
}

func TestRedisStore_WatchDeliversPeerWritesOnly(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	mr, a, b := newRedisPair(t)

	received := make(chan ports.StorageChange, 4)
	go func() {
		_ = a.Watch(ctx, ports.KeyRoomStatusUpdate, func(c ports.StorageChange) { received <- c })
	}()
	require.Eventually(t, func() bool {
		return len(mr.PubSubChannels(redisChannelPrefix+ports.KeyRoomStatusUpdate)) == 1
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, a.Set(ctx, ports.KeyRoomStatusUpdate, `{"own":true}`))
	require.NoError(t, b.Set(ctx, ports.KeyRoomStatusUpdate, `{"peer":true}`))

	select {
	case c := <-received:
		assert.Equal(t, `{"peer":true}`, c.Value)
		assert.Equal(t, b.Origin(), c.Origin)
		assert.Equal(t, ports.KeyRoomStatusUpdate, c.Key)
	case <-time.After(2 * time.Second):
		t.Fatal("peer change not delivered")
	}

	select {
	case c := <-received:
		t.Fatalf("unexpected extra change: %+v", c)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestRedisStore_GetSurfacesServerErrors(t *testing.T) {
	mr, a, _ := newRedisPair(t)
	mr.SetError("ERR injected failure")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_, _, err := a.Get(ctx, ports.KeyUserToken)
	assert.Error(t, err)
}
