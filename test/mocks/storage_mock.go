package mocks

import (
	"context"
	"sync"

	"github.com/AchilleasB/roombook/booking-client/internal/core/ports"
)

// MockKVStore provides an in-memory ports.KVStore with error injection.
type MockKVStore struct {
	mu   sync.RWMutex
	data map[string]string

	// Call tracking
	SetCalls    []string
	DeleteCalls [][]string

	// Error injection
	GetError    error
	SetError    error
	DeleteError error
	// SetKeyErrors fails Set for individual keys.
	SetKeyErrors map[string]error
}

var _ ports.KVStore = (*MockKVStore)(nil)

func NewMockKVStore() *MockKVStore {
	return &MockKVStore{data: make(map[string]string)}
}

func (m *MockKVStore) Get(ctx context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.GetError != nil {
		return "", false, m.GetError
	}
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *MockKVStore) Set(ctx context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.SetCalls = append(m.SetCalls, key)
	if m.SetError != nil {
		return m.SetError
	}
	if err := m.SetKeyErrors[key]; err != nil {
		return err
	}
	m.data[key] = value
	return nil
}

func (m *MockKVStore) Delete(ctx context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.DeleteCalls = append(m.DeleteCalls, keys)
	if m.DeleteError != nil {
		return m.DeleteError
	}
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

// Has reports whether key currently holds a value.
func (m *MockKVStore) Has(key string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.data[key]
	return ok
}

// Seed writes a value without recording a call.
func (m *MockKVStore) Seed(key, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
}

func (m *MockKVStore) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.data = make(map[string]string)
	m.SetCalls = nil
	m.DeleteCalls = nil
	m.GetError = nil
	m.SetError = nil
	m.DeleteError = nil
	m.SetKeyErrors = nil
}

// MockCookieJar counts resets.
type MockCookieJar struct {
	mu     sync.Mutex
	resets int
}

var _ ports.CookieJar = (*MockCookieJar)(nil)

func (m *MockCookieJar) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resets++
}

func (m *MockCookieJar) Resets() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.resets
}
