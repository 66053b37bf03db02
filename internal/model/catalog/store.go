package catalog

import (
	"strings"
	"sync"
)

// Store exposes model retrieval for HTTP handlers.
type Store interface {
	List() []Model
	FindByName(name string) (Model, bool)
}

// MemoryStore implements Store with an in-memory slice.
type MemoryStore struct {
	mu    sync.RWMutex
	items []Model
}

// NewMemoryStore returns a MemoryStore preloaded with the supplied models.
func NewMemoryStore(items []Model) *MemoryStore {
	return &MemoryStore{items: append([]Model(nil), items...)}
}

// Replace swaps the catalog contents, used after a fresh listing from the provider.
func (s *MemoryStore) Replace(items []Model) {
	s.mu.Lock()
	s.items = append([]Model(nil), items...)
	s.mu.Unlock()
}

// List returns the catalog.
func (s *MemoryStore) List() []Model {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Model(nil), s.items...)
}

// FindByName looks up a model by name. The "models/" prefix is optional.
func (s *MemoryStore) FindByName(name string) (Model, bool) {
	want := strings.TrimPrefix(name, "models/")

	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, item := range s.items {
		if strings.TrimPrefix(item.Name, "models/") == want {
			return item, true
		}
	}
	return Model{}, false
}
