package mocks

import (
	"context"
	"sync"

	"github.com/AchilleasB/roombook/booking-client/internal/core/domain"
	"github.com/AchilleasB/roombook/booking-client/internal/core/ports"
)

// MockRoomEventPublisher implements ports.RoomEventPublisher for testing.
// It lets the booking workflows run without a broadcast bus.
type MockRoomEventPublisher struct {
	mu sync.RWMutex

	// Track published events for verification
	PublishedEvents []domain.RoomStatusChanged

	// Error injection for testing error scenarios
	PublishError error

	PublishCallCount int

	// Journal, when set, records "publish" in call order
	Journal *Journal
}

var _ ports.RoomEventPublisher = (*MockRoomEventPublisher)(nil)

func NewMockRoomEventPublisher() *MockRoomEventPublisher {
	return &MockRoomEventPublisher{
		PublishedEvents: make([]domain.RoomStatusChanged, 0),
	}
}

func (m *MockRoomEventPublisher) Publish(ctx context.Context, evt domain.RoomStatusChanged) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.PublishCallCount++
	m.Journal.Record("publish")

	if m.PublishError != nil {
		return m.PublishError
	}

	m.PublishedEvents = append(m.PublishedEvents, evt)
	return nil
}

// GetPublishedEvents returns a copy of all events that were published.
func (m *MockRoomEventPublisher) GetPublishedEvents() []domain.RoomStatusChanged {
	m.mu.RLock()
	defer m.mu.RUnlock()

	events := make([]domain.RoomStatusChanged, len(m.PublishedEvents))
	copy(events, m.PublishedEvents)
	return events
}

func (m *MockRoomEventPublisher) GetPublishCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.PublishCallCount
}

// Reset clears all tracking data.
func (m *MockRoomEventPublisher) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.PublishedEvents = make([]domain.RoomStatusChanged, 0)
	m.PublishError = nil
	m.PublishCallCount = 0
}
