// Package persist keeps selected store slices across sessions. Each slice is
// one JSON blob under its own key in a storage engine.
package persist

import (
	"context"
	"fmt"
	"sync"

	"reqdesk/internal/config"
)

// Engine is a key/value storage backend.
type Engine interface {
	GetItem(ctx context.Context, key string) ([]byte, bool, error)
	SetItem(ctx context.Context, key string, value []byte) error
	RemoveItem(ctx context.Context, key string) error
	Close() error
}

// MemoryEngine keeps items in process memory.
type MemoryEngine struct {
	mu    sync.RWMutex
	items map[string][]byte
}

// NewMemoryEngine returns an empty in-memory engine.
func NewMemoryEngine() *MemoryEngine {
	return &MemoryEngine{items: make(map[string][]byte)}
}

func (m *MemoryEngine) GetItem(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.items[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

func (m *MemoryEngine) SetItem(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[key] = append([]byte(nil), value...)
	return nil
}

func (m *MemoryEngine) RemoveItem(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, key)
	return nil
}

// Keys lists stored keys.
func (m *MemoryEngine) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.items))
	for k := range m.items {
		keys = append(keys, k)
	}
	return keys
}

func (m *MemoryEngine) Close() error { return nil }

// Open builds the engine named by cfg.
func Open(cfg config.StorageConfig) (Engine, error) {
	switch cfg.Driver {
	case "memory":
		return NewMemoryEngine(), nil
	case "sqlite3", "sqlite":
		return OpenSQLite(cfg.Path, cfg.Driver)
	default:
		return nil, fmt.Errorf("unknown storage driver: %s", cfg.Driver)
	}
}
