package store

import (
	"context"
	"sort"
	"sync"

	"github.com/i474232898/met-local-forecast/internal/registry"
)

// MemoryStore is a concurrency-safe in-memory entry store. Entries do not
// survive a restart.
type MemoryStore struct {
	mu sync.RWMutex

	// key: entry id
	data map[string]registry.Entry
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data: make(map[string]registry.Entry),
	}
}

// Save inserts or replaces an entry.
func (s *MemoryStore) Save(_ context.Context, e registry.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[e.ID] = e
	return nil
}

// Delete removes the entry with id. Deleting a missing entry is not an error.
func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, id)
	return nil
}

// List returns all entries ordered by creation time.
func (s *MemoryStore) List(_ context.Context) ([]registry.Entry, error) {
	s.mu.RLock()
	out := make([]registry.Entry, 0, len(s.data))
	for _, e := range s.data {
		out = append(out, e)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

var _ registry.Store = (*MemoryStore)(nil)
