package storage

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AchilleasB/roombook/booking-client/internal/core/ports"
)

func TestMemoryStore_SharedAcrossContexts(t *testing.T) {
	ctx := context.Background()
	hub := NewHub(nil)
	a, b := hub.Open(), hub.Open()

	require.NoError(t, a.Set(ctx, ports.KeyUserToken, "tok"))

	v, ok, err := b.Get(ctx, ports.KeyUserToken)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "tok", v)

	require.NoError(t, b.Delete(ctx, ports.KeyUserToken, ports.KeyUsername))
	_, ok, err = a.Get(ctx, ports.KeyUserToken)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryStore_WatchSkipsOwnWrites(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := NewHub(nil)
	a, b := hub.Open(), hub.Open()

	var mu sync.Mutex
	var seen []ports.StorageChange
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = a.Watch(ctx, ports.KeyRoomStatusUpdate, func(c ports.StorageChange) {
			mu.Lock()
			seen = append(seen, c)
			mu.Unlock()
		})
	}()
	require.Eventually(t, func() bool { return hub.Watchers(ports.KeyRoomStatusUpdate) == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, a.Set(ctx, ports.KeyRoomStatusUpdate, "own"))
	require.NoError(t, b.Set(ctx, ports.KeyUsername, "other key"))
	require.NoError(t, b.Set(ctx, ports.KeyRoomStatusUpdate, "peer"))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) == 1
	}, time.Second, 5*time.Millisecond)

	mu.Lock()
	assert.Equal(t, "peer", seen[0].Value)
	assert.Equal(t, b.Origin(), seen[0].Origin)
	mu.Unlock()

	cancel()
	<-done
	assert.Equal(t, 0, hub.Watchers(ports.KeyRoomStatusUpdate))
}
