package storage

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/AchilleasB/roombook/booking-client/internal/core/ports"
)

const watcherBuffer = 64

// Hub is process-local durable storage shared by every store opened from it.
// Each store stands for one execution context of the same application
// instance.
type Hub struct {
	mu       sync.RWMutex
	data     map[string]string
	watchers map[int]*watcher
	nextID   int
	logger   *slog.Logger
}

type watcher struct {
	key    string
	origin string
	ch     chan ports.StorageChange
}

func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		data:     make(map[string]string),
		watchers: make(map[int]*watcher),
		logger:   logger,
	}
}

// Open returns a new context view onto the hub.
func (h *Hub) Open() *MemoryStore {
	return &MemoryStore{hub: h, origin: uuid.NewString()}
}

// Watchers reports how many watches are registered for key.
func (h *Hub) Watchers(key string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, w := range h.watchers {
		if w.key == key {
			n++
		}
	}
	return n
}

// MemoryStore implements ports.KVStore and ports.ChangeFeed for one context.
type MemoryStore struct {
	hub    *Hub
	origin string
}

var (
	_ ports.KVStore    = (*MemoryStore)(nil)
	_ ports.ChangeFeed = (*MemoryStore)(nil)
)

func (s *MemoryStore) Origin() string {
	return s.origin
}

func (s *MemoryStore) Get(ctx context.Context, key string) (string, bool, error) {
	s.hub.mu.RLock()
	defer s.hub.mu.RUnlock()
	v, ok := s.hub.data[key]
	return v, ok, nil
}

func (s *MemoryStore) Set(ctx context.Context, key, value string) error {
	s.hub.mu.Lock()
	defer s.hub.mu.Unlock()

	s.hub.data[key] = value
	change := ports.StorageChange{Key: key, Value: value, Origin: s.origin}
	for _, w := range s.hub.watchers {
		if w.key != key || w.origin == s.origin {
			continue
		}
		select {
		case w.ch <- change:
		default:
			s.hub.logger.Warn("storage: watcher buffer full, dropping change", "key", key)
		}
	}
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, keys ...string) error {
	s.hub.mu.Lock()
	defer s.hub.mu.Unlock()
	for _, k := range keys {
		delete(s.hub.data, k)
	}
	return nil
}

// Watch delivers writes to key made by other stores of the hub. It returns
// nil once ctx is done.
func (s *MemoryStore) Watch(ctx context.Context, key string, fn func(ports.StorageChange)) error {
	w := &watcher{key: key, origin: s.origin, ch: make(chan ports.StorageChange, watcherBuffer)}

	s.hub.mu.Lock()
	id := s.hub.nextID
	s.hub.nextID++
	s.hub.watchers[id] = w
	s.hub.mu.Unlock()

	defer func() {
		s.hub.mu.Lock()
		delete(s.hub.watchers, id)
		s.hub.mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case change := <-w.ch:
			fn(change)
		}
	}
}
