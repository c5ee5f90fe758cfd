package history

import (
	"context"
	"sync"

	"github.com/ppiankov/agentgate/internal/model"
)

// MemoryStore is an in-process store.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string][]model.HistoryEntry
	closed  bool
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string][]model.HistoryEntry)}
}

func (m *MemoryStore) Recent(_ context.Context, key string) ([]model.HistoryEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrStoreClosed
	}
	src := m.entries[key]
	out := make([]model.HistoryEntry, len(src))
	copy(out, src)
	return out, nil
}

func (m *MemoryStore) Append(_ context.Context, key string, entry model.HistoryEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrStoreClosed
	}
	h := append(m.entries[key], entry)
	if len(h) > model.MaxHistory {
		trimmed := make([]model.HistoryEntry, model.MaxHistory)
		copy(trimmed, h[len(h)-model.MaxHistory:])
		h = trimmed
	}
	m.entries[key] = h
	return nil
}

func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.entries = nil
	return nil
}
