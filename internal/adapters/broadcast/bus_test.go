package broadcast_test

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AchilleasB/roombook/booking-client/internal/adapters/broadcast"
	"github.com/AchilleasB/roombook/booking-client/internal/adapters/storage"
	"github.com/AchilleasB/roombook/booking-client/internal/core/domain"
	"github.com/AchilleasB/roombook/booking-client/internal/core/ports"
	"github.com/AchilleasB/roombook/booking-client/internal/metrics"
	"github.com/AchilleasB/roombook/booking-client/test/mocks"
)

// recorder collects delivered events.
type recorder struct {
	mu     sync.Mutex
	events []domain.RoomStatusChanged
}

func (r *recorder) listen(evt domain.RoomStatusChanged) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, evt)
}

func (r *recorder) get() []domain.RoomStatusChanged {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.RoomStatusChanged(nil), r.events...)
}

func newLocalBus(m *metrics.Metrics) *broadcast.Bus {
	return broadcast.NewBus(nil, mocks.TestLabels(), m, slog.New(slog.DiscardHandler))
}

func TestBus_LocalDeliveryInRegistrationOrder(t *testing.T) {
	bus := newLocalBus(nil)

	var order []string
	bus.Subscribe("a", func(domain.RoomStatusChanged) { order = append(order, "a") })
	bus.Subscribe("b", func(domain.RoomStatusChanged) { order = append(order, "b") })
	bus.Subscribe("c", func(domain.RoomStatusChanged) { order = append(order, "c") })
	// Re-registering keeps a's slot and replaces its callback.
	bus.Subscribe("a", func(domain.RoomStatusChanged) { order = append(order, "a2") })

	require.NoError(t, bus.Publish(context.Background(), domain.NewRoomStatusChanged(7, domain.RoomOccupied, "Room A")))
	assert.Equal(t, []string{"a2", "b", "c"}, order)
}

func TestBus_PanickingListenerDoesNotStopDelivery(t *testing.T) {
	m := metrics.New()
	bus := newLocalBus(m)

	rec := &recorder{}
	bus.Subscribe("first", rec.listen)
	bus.Subscribe("broken", func(domain.RoomStatusChanged) { panic("listener bug") })
	bus.Subscribe("last", rec.listen)

	require.NotPanics(t, func() {
		require.NoError(t, bus.Publish(context.Background(), domain.NewRoomStatusChanged(7, domain.RoomFree, "")))
	})
	assert.Len(t, rec.get(), 2)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ListenerPanics))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.BusDelivered))
}

func TestBus_UnsubscribeAndCleanup(t *testing.T) {
	bus := newLocalBus(nil)
	a, b := &recorder{}, &recorder{}
	bus.Subscribe("a", a.listen)
	bus.Subscribe("b", b.listen)

	bus.Unsubscribe("a")
	bus.Unsubscribe("missing")
	require.NoError(t, bus.Publish(context.Background(), domain.NewRoomStatusChanged(7, domain.RoomFree, "")))
	assert.Empty(t, a.get())
	assert.Len(t, b.get(), 1)

	bus.Cleanup()
	require.NoError(t, bus.Publish(context.Background(), domain.NewRoomStatusChanged(7, domain.RoomFree, "")))
	assert.Len(t, b.get(), 1)
}

func TestBus_PublishStampsAndNormalizes(t *testing.T) {
	bus := newLocalBus(nil)
	rec := &recorder{}
	bus.Subscribe("rec", rec.listen)

	require.NoError(t, bus.Publish(context.Background(), domain.RoomStatusChanged{RoomID: 7, Status: "使用中"}))
	for i := 0; i < 20; i++ {
		require.NoError(t, bus.Publish(context.Background(), domain.NewRoomStatusChanged(7, domain.RoomFree, "")))
	}

	events := rec.get()
	require.Len(t, events, 21)
	assert.Equal(t, domain.RoomOccupied, events[0].Status)
	assert.Equal(t, domain.RoomStatusEventType, events[0].Type)
	for i := 1; i < len(events); i++ {
		assert.Greater(t, events[i].Timestamp, events[i-1].Timestamp)
	}
}

func TestBus_PublishRejectsInvalidEvents(t *testing.T) {
	bus := newLocalBus(nil)
	rec := &recorder{}
	bus.Subscribe("rec", rec.listen)

	err := bus.Publish(context.Background(), domain.NewRoomStatusChanged(7, "cleaning", ""))
	assert.True(t, errors.Is(err, domain.ErrValidation))
	err = bus.Publish(context.Background(), domain.NewRoomStatusChanged(0, domain.RoomFree, ""))
	assert.True(t, errors.Is(err, domain.ErrValidation))
	assert.Empty(t, rec.get())
}

// failingTransport fails every send.
type failingTransport struct{}

func (failingTransport) Send(context.Context, []byte) error { return errors.New("transport down") }

func (failingTransport) Listen(ctx context.Context, _ func([]byte)) error {
	<-ctx.Done()
	return nil
}

func TestBus_LocalDeliveryCompletesBeforeTransportError(t *testing.T) {
	bus := broadcast.NewBus(failingTransport{}, mocks.TestLabels(), nil, slog.New(slog.DiscardHandler))
	rec := &recorder{}
	bus.Subscribe("rec", rec.listen)

	err := bus.Publish(context.Background(), domain.NewRoomStatusChanged(7, domain.RoomFree, ""))
	require.Error(t, err)
	assert.Len(t, rec.get(), 1)
}

type peer struct {
	bus   *broadcast.Bus
	store *storage.MemoryStore
	rec   *recorder
	m     *metrics.Metrics
}

func startPeers(t *testing.T, n int) (*storage.Hub, []*peer) {
	t.Helper()
	logger := slog.New(slog.DiscardHandler)
	hub := storage.NewHub(logger)
	ctx, cancel := context.WithCancel(context.Background())

	var wg sync.WaitGroup
	t.Cleanup(func() {
		cancel()
		wg.Wait()
	})

	peers := make([]*peer, n)
	for i := range peers {
		store := hub.Open()
		p := &peer{store: store, rec: &recorder{}, m: metrics.New()}
		p.bus = broadcast.NewBus(broadcast.NewStorageTransport(store), mocks.TestLabels(), p.m, logger)
		p.bus.Subscribe("rec", p.rec.listen)
		peers[i] = p

		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = p.bus.Run(ctx)
		}()
	}
	require.Eventually(t, func() bool { return hub.Watchers(ports.KeyRoomStatusUpdate) == n }, time.Second, 5*time.Millisecond)
	return hub, peers
}

func TestBus_CrossContextRoundTrip(t *testing.T) {
	_, peers := startPeers(t, 2)
	a, b := peers[0], peers[1]

	require.NoError(t, a.bus.Publish(context.Background(), domain.NewRoomStatusChanged(7, domain.RoomOccupied, "Room A")))

	require.Eventually(t, func() bool { return len(b.rec.get()) == 1 }, time.Second, 5*time.Millisecond)
	sent := a.rec.get()
	got := b.rec.get()
	require.Len(t, sent, 1)
	assert.Equal(t, sent[0], got[0])

	// The publisher never sees its own write come back.
	time.Sleep(20 * time.Millisecond)
	assert.Len(t, a.rec.get(), 1)
}

func TestBus_MalformedPeerPayloadIsDropped(t *testing.T) {
	hub, peers := startPeers(t, 1)
	b := peers[0]
	writer := hub.Open()

	payloads := map[string]string{
		"malformed":      `{"roomId":`,
		"unknown_status": `{"type":"ROOM_STATUS_UPDATE","roomId":7,"status":"cleaning","timestamp":1}`,
		"missing_room":   `{"type":"ROOM_STATUS_UPDATE","status":"free","timestamp":1}`,
		"unknown_type":   `{"type":"ROOM_DELETED","roomId":7,"status":"free","timestamp":1}`,
	}
	for reason, payload := range payloads {
		require.NoError(t, writer.Set(context.Background(), ports.KeyRoomStatusUpdate, payload))
		require.Eventually(t, func() bool {
			return testutil.ToFloat64(b.m.BusDropped.WithLabelValues(reason)) == 1
		}, time.Second, 5*time.Millisecond, reason)
	}
	assert.Empty(t, b.rec.get())

	// A localized payload from an older peer is still understood.
	require.NoError(t, writer.Set(context.Background(), ports.KeyRoomStatusUpdate,
		`{"type":"ROOM_STATUS_UPDATE","roomId":8,"status":"空闲","timestamp":5}`))
	require.Eventually(t, func() bool { return len(b.rec.get()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, domain.RoomFree, b.rec.get()[0].Status)
}
