package broadcast

import (
	"context"

	"github.com/AchilleasB/roombook/booking-client/internal/core/ports"
)

// SharedStore is a durable store that also reports peer writes.
type SharedStore interface {
	ports.KVStore
	ports.ChangeFeed
}

// StorageTransport carries events through the roomStatusUpdate key. Every
// send overwrites the key with a complete event, and peers learn about it
// from the store's change notifications.
type StorageTransport struct {
	store SharedStore
}

var _ ports.EventTransport = (*StorageTransport)(nil)

func NewStorageTransport(store SharedStore) *StorageTransport {
	return &StorageTransport{store: store}
}

func (t *StorageTransport) Send(ctx context.Context, payload []byte) error {
	return t.store.Set(ctx, ports.KeyRoomStatusUpdate, string(payload))
}

func (t *StorageTransport) Listen(ctx context.Context, deliver func(payload []byte)) error {
	return t.store.Watch(ctx, ports.KeyRoomStatusUpdate, func(change ports.StorageChange) {
		deliver([]byte(change.Value))
	})
}
