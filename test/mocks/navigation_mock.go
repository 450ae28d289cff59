package mocks

import (
	"sync"

	"github.com/AchilleasB/roombook/booking-client/internal/core/ports"
)

// MockNavigator records redirects and reports a settable current path.
type MockNavigator struct {
	mu        sync.RWMutex
	path      string
	Redirects []string
}

var _ ports.Navigator = (*MockNavigator)(nil)

func NewMockNavigator(path string) *MockNavigator {
	return &MockNavigator{path: path}
}

func (m *MockNavigator) CurrentPath() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.path
}

func (m *MockNavigator) SetPath(path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.path = path
}

func (m *MockNavigator) Redirect(path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Redirects = append(m.Redirects, path)
	m.path = path
}

func (m *MockNavigator) GetRedirects() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, len(m.Redirects))
	copy(out, m.Redirects)
	return out
}

// MockNotifier collects user-visible messages.
type MockNotifier struct {
	mu       sync.RWMutex
	Messages []string
}

var _ ports.Notifier = (*MockNotifier)(nil)

func (m *MockNotifier) Notify(message string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Messages = append(m.Messages, message)
}

func (m *MockNotifier) GetMessages() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, len(m.Messages))
	copy(out, m.Messages)
	return out
}
