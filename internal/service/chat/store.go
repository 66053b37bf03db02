package chat

import (
	"context"
	"errors"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/sadat-shakeeb/gemini-partner/backend/internal/model/chat"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrLastSession     = errors.New("cannot delete the last remaining session")
	ErrTurnInProgress  = errors.New("a reply is already being generated")
	ErrEmptyMessage    = errors.New("message content is required")
	ErrInvalidRole     = errors.New("invalid message role")
)

// Store holds the ordered chat sessions of one browser workspace.
// At least one session always exists.
type Store struct {
	mu       sync.RWMutex
	sessions []*chat.Session
	activeID int
	inFlight bool
	now      func() time.Time
}

// NewStore returns a store seeded with the default session, which is active.
func NewStore() *Store {
	s := &Store{now: func() time.Time { return time.Now().UTC() }}
	first := &chat.Session{ID: 1, Name: chat.SessionName(1), CreatedAt: s.now()}
	s.sessions = []*chat.Session{first}
	s.activeID = first.ID
	return s
}

// List returns summaries of all sessions in creation order.
func (s *Store) List(_ context.Context) []chat.Summary {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]chat.Summary, 0, len(s.sessions))
	for _, session := range s.sessions {
		out = append(out, session.Summarize())
	}
	return out
}

// ActiveID returns the identifier of the active session.
func (s *Store) ActiveID(_ context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activeID
}

// Active returns a copy of the active session.
func (s *Store) Active(_ context.Context) chat.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, _ := s.find(s.activeID)
	return copySession(session)
}

// Get returns a copy of the session with the given identifier.
func (s *Store) Get(_ context.Context, id int) (chat.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.find(id)
	if !ok {
		return chat.Session{}, ErrSessionNotFound
	}
	return copySession(session), nil
}

// Create appends a new empty session with identifier max+1 and makes it active.
func (s *Store) Create(_ context.Context) chat.Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	nextID := 0
	for _, session := range s.sessions {
		if session.ID > nextID {
			nextID = session.ID
		}
	}
	nextID++

	session := &chat.Session{ID: nextID, Name: chat.SessionName(nextID), CreatedAt: s.now()}
	s.sessions = append(s.sessions, session)
	s.activeID = session.ID
	return copySession(session)
}

// Switch makes the session with the given identifier active.
func (s *Store) Switch(_ context.Context, id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.find(id); !ok {
		return ErrSessionNotFound
	}
	s.activeID = id
	return nil
}

// Delete removes a session. Deleting the last remaining session is refused with
// ErrLastSession and leaves the store untouched. When the active session is
// removed, the first remaining session becomes active.
func (s *Store) Delete(_ context.Context, id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := -1
	for i, session := range s.sessions {
		if session.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return ErrSessionNotFound
	}
	if len(s.sessions) == 1 {
		log.Printf("[chat] warning: refusing to delete last session id=%d", id)
		return ErrLastSession
	}

	s.sessions = append(s.sessions[:idx], s.sessions[idx+1:]...)
	if s.activeID == id {
		s.activeID = s.sessions[0].ID
	}
	return nil
}

// Append adds a message to the tail of a session.
func (s *Store) Append(_ context.Context, id int, message chat.Message) (chat.Message, error) {
	if !message.Role.Valid() {
		return chat.Message{}, ErrInvalidRole
	}
	if message.Role == chat.RoleUser && strings.TrimSpace(message.Content) == "" && !message.HasImage() {
		return chat.Message{}, ErrEmptyMessage
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.find(id)
	if !ok {
		return chat.Message{}, ErrSessionNotFound
	}
	if message.CreatedAt.IsZero() {
		message.CreatedAt = s.now()
	}
	session.Messages = append(session.Messages, message)
	return message, nil
}

// BeginTurn reserves the store for one reply generation. Only one generation
// may be in flight per workspace; the returned release func must be called
// when the turn finishes.
func (s *Store) BeginTurn(_ context.Context, id int) (func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.find(id); !ok {
		return nil, ErrSessionNotFound
	}
	if s.inFlight {
		return nil, ErrTurnInProgress
	}
	s.inFlight = true

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			s.inFlight = false
			s.mu.Unlock()
		})
	}, nil
}

func (s *Store) find(id int) (*chat.Session, bool) {
	for _, session := range s.sessions {
		if session.ID == id {
			return session, true
		}
	}
	return nil, false
}

func copySession(session *chat.Session) chat.Session {
	if session == nil {
		return chat.Session{}
	}
	copied := *session
	copied.Messages = make([]chat.Message, len(session.Messages))
	copy(copied.Messages, session.Messages)
	return copied
}
