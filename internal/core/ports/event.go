package ports

import (
	"context"

	"github.com/AchilleasB/roombook/booking-client/internal/core/domain"
)

// RoomEventPublisher is how booking workflows announce room changes.
type RoomEventPublisher interface {
	Publish(ctx context.Context, evt domain.RoomStatusChanged) error
}

// EventTransport carries serialized events between contexts. Listen blocks
// until ctx is done and must not deliver the transport's own sends.
type EventTransport interface {
	Send(ctx context.Context, payload []byte) error
	Listen(ctx context.Context, deliver func(payload []byte)) error
}
