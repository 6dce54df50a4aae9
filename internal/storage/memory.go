package storage

import (
	"context"
	"fmt"
	"sync"
)

// MemoryKV keeps values in process memory. MaxValueSize, when positive,
// rejects larger writes with ErrQuotaExceeded.
type MemoryKV struct {
	mu           sync.RWMutex
	data         map[string]string
	MaxValueSize int
}

// NewMemoryKV creates an empty in-memory store.
func NewMemoryKV() *MemoryKV {
	return &MemoryKV{data: make(map[string]string)}
}

func (m *MemoryKV) Get(_ context.Context, key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

func (m *MemoryKV) Set(_ context.Context, key, value string) error {
	if m.MaxValueSize > 0 && len(value) > m.MaxValueSize {
		return fmt.Errorf("failed to set %s: %w", key, ErrQuotaExceeded)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *MemoryKV) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *MemoryKV) Close() error { return nil }
