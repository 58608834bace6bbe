package session

import (
	"context"
	"errors"
	"sync"
)

// ErrBackendUnavailable wraps failures reported by a durable backend.
var ErrBackendUnavailable = errors.New("session backend unavailable")

// Backend is a durable string key-value store. Store must write all values or none.
type Backend interface {
	Load(ctx context.Context, keys []string) (map[string]string, error)
	Store(ctx context.Context, values map[string]string) error
	Delete(ctx context.Context, keys []string) error
}

// MemoryBackend keeps values in a process-local map.
type MemoryBackend struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemoryBackend returns an empty MemoryBackend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{values: make(map[string]string)}
}

func (m *MemoryBackend) Load(_ context.Context, keys []string) (map[string]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string]string, len(keys))
	for _, k := range keys {
		if v, ok := m.values[k]; ok {
			out[k] = v
		}
	}
	return out, nil
}

func (m *MemoryBackend) Store(_ context.Context, values map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.values == nil {
		m.values = make(map[string]string, len(values))
	}
	for k, v := range values {
		m.values[k] = v
	}
	return nil
}

func (m *MemoryBackend) Delete(_ context.Context, keys []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, k := range keys {
		delete(m.values, k)
	}
	return nil
}

// Set writes a single raw value. Tests use it to seed malformed data.
func (m *MemoryBackend) Set(key, value string) {
	_ = m.Store(context.Background(), map[string]string{key: value})
}
