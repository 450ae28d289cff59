// Package broadcast fans room status events out to listeners in this
// context and, through a transport, to every peer context.
package broadcast

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/AchilleasB/roombook/booking-client/internal/core/domain"
	"github.com/AchilleasB/roombook/booking-client/internal/core/ports"
	"github.com/AchilleasB/roombook/booking-client/internal/metrics"
)

type listener struct {
	id string
	fn func(domain.RoomStatusChanged)
}

// Bus delivers every published event synchronously to local listeners in
// registration order, then hands it to the transport. Events arriving from
// the transport are delivered to local listeners only.
type Bus struct {
	transport ports.EventTransport
	labels    *domain.Labels
	metrics   *metrics.Metrics
	logger    *slog.Logger
	now       func() time.Time

	mu        sync.Mutex
	listeners []listener
	lastStamp int64
}

var _ ports.RoomEventPublisher = (*Bus)(nil)

// NewBus creates a bus. A nil transport keeps delivery local.
func NewBus(transport ports.EventTransport, labels *domain.Labels, m *metrics.Metrics, logger *slog.Logger) *Bus {
	if m == nil {
		m = metrics.New()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{
		transport: transport,
		labels:    labels,
		metrics:   m,
		logger:    logger,
		now:       time.Now,
	}
}

// Subscribe registers fn under id. Re-using an id replaces its callback and
// keeps its delivery position.
func (b *Bus) Subscribe(id string, fn func(domain.RoomStatusChanged)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.listeners {
		if b.listeners[i].id == id {
			b.listeners[i].fn = fn
			return
		}
	}
	b.listeners = append(b.listeners, listener{id: id, fn: fn})
}

func (b *Bus) Unsubscribe(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.listeners {
		if b.listeners[i].id == id {
			b.listeners = append(b.listeners[:i], b.listeners[i+1:]...)
			return
		}
	}
}

// Cleanup removes every listener.
func (b *Bus) Cleanup() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listeners = nil
}

// Publish stamps evt, delivers it locally and sends it to peer contexts.
// Local delivery has completed when Publish returns, even on a transport
// error.
func (b *Bus) Publish(ctx context.Context, evt domain.RoomStatusChanged) error {
	if evt.RoomID <= 0 {
		return domain.NewValidationError("room status event without room id")
	}
	status, ok := b.labels.Parse(string(evt.Status))
	if !ok {
		return domain.NewValidationError(fmt.Sprintf("unknown room status %q", evt.Status))
	}
	evt.Status = status
	evt.Type = domain.RoomStatusEventType
	evt.Timestamp = b.stamp()

	b.metrics.BusPublished.Inc()
	b.dispatch(evt)

	if b.transport == nil {
		return nil
	}
	payload, err := Encode(evt)
	if err != nil {
		return fmt.Errorf("encode room status event: %w", err)
	}
	if err := b.transport.Send(ctx, payload); err != nil {
		return fmt.Errorf("send room status event: %w", err)
	}
	return nil
}

// stamp returns the current time in epoch milliseconds, forced to be
// strictly greater than the previous stamp.
func (b *Bus) stamp() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	ts := b.now().UnixMilli()
	if ts <= b.lastStamp {
		ts = b.lastStamp + 1
	}
	b.lastStamp = ts
	return ts
}

// Run delivers events from peer contexts until ctx is done.
func (b *Bus) Run(ctx context.Context) error {
	if b.transport == nil {
		<-ctx.Done()
		return nil
	}
	b.logger.Info("broadcast: listening for peer events")
	return b.transport.Listen(ctx, b.receive)
}

func (b *Bus) receive(payload []byte) {
	evt, err := Decode(payload, b.labels)
	if err != nil {
		b.metrics.BusDropped.WithLabelValues(dropReason(err)).Inc()
		b.logger.Warn("broadcast: dropping room status payload", "error", err)
		return
	}
	b.dispatch(evt)
}

func (b *Bus) dispatch(evt domain.RoomStatusChanged) {
	b.mu.Lock()
	snapshot := make([]listener, len(b.listeners))
	copy(snapshot, b.listeners)
	b.mu.Unlock()

	for _, l := range snapshot {
		b.deliver(l, evt)
	}
}

func (b *Bus) deliver(l listener, evt domain.RoomStatusChanged) {
	defer func() {
		if r := recover(); r != nil {
			b.metrics.ListenerPanics.Inc()
			b.logger.Warn("broadcast: listener failed", "listener", l.id, "panic", r)
		}
	}()
	l.fn(evt)
	b.metrics.BusDelivered.Inc()
}
