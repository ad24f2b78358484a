// Package mockstore provides a configurable mock implementation of storage.Storage for testing.
//
// The MockStorage type uses function fields for each method, allowing tests to inject
// failures while falling back to an in-memory map for methods that aren't customized.
package mockstore

import (
	"context"
	"sync"

	"github.com/sipico/covid-counter-client/internal/storage"
)

// MockStorage is a configurable mock implementation of storage.Storage.
// If a function field is nil, the method uses the embedded map.
type MockStorage struct {
	GetFunc    func(ctx context.Context, key string) (string, error)
	SetFunc    func(ctx context.Context, key, value string) error
	DeleteFunc func(ctx context.Context, key string) error
	CloseFunc  func() error

	mu     sync.Mutex
	values map[string]string
	// Writes counts Set and Delete calls that reached the default behavior.
	Writes int
}

// New returns a MockStorage seeded with values.
func New(values map[string]string) *MockStorage {
	m := &MockStorage{values: make(map[string]string)}
	for k, v := range values {
		m.values[k] = v
	}
	return m
}

// Get returns the stored value or storage.ErrNotFound.
func (m *MockStorage) Get(ctx context.Context, key string) (string, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, key)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	if !ok {
		return "", storage.ErrNotFound
	}
	return v, nil
}

// Set stores a value.
func (m *MockStorage) Set(ctx context.Context, key, value string) error {
	if m.SetFunc != nil {
		return m.SetFunc(ctx, key, value)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.values == nil {
		m.values = make(map[string]string)
	}
	m.values[key] = value
	m.Writes++
	return nil
}

// Delete removes a value.
func (m *MockStorage) Delete(ctx context.Context, key string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, key)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	m.Writes++
	return nil
}

// Close closes the mock.
func (m *MockStorage) Close() error {
	if m.CloseFunc != nil {
		return m.CloseFunc()
	}
	return nil
}

// Value returns the raw stored value for assertions.
func (m *MockStorage) Value(key string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	return v, ok
}

// Compile-time check that MockStorage implements storage.Storage.
var _ storage.Storage = (*MockStorage)(nil)
