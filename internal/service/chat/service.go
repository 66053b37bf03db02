package chat

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
)

var ErrWorkspaceRequired = errors.New("workspace id is required")

// Service keeps one Store per browser workspace for the life of the process.
type Service struct {
	mu         sync.RWMutex
	workspaces map[string]*Store
}

// NewService bootstraps the in-memory workspace registry.
func NewService() *Service {
	return &Service{workspaces: make(map[string]*Store)}
}

// NewWorkspaceID mints an identifier for a fresh browser workspace.
func NewWorkspaceID() string {
	return uuid.NewString()
}

// Workspace returns the store for id, creating it with its default session on first use.
func (s *Service) Workspace(_ context.Context, id string) (*Store, error) {
	if id == "" {
		return nil, ErrWorkspaceRequired
	}

	s.mu.RLock()
	store, ok := s.workspaces[id]
	s.mu.RUnlock()
	if ok {
		return store, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if store, ok := s.workspaces[id]; ok {
		return store, nil
	}
	store = NewStore()
	s.workspaces[id] = store
	return store, nil
}

// Len reports how many workspaces are held in memory.
func (s *Service) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.workspaces)
}
