package chat

import (
	"fmt"
	"time"
)

// DefaultSessionName labels the session every workspace starts with.
const DefaultSessionName = "First Chat"

// Session is one independent conversation thread.
type Session struct {
	ID        int       `json:"id"`
	Name      string    `json:"name"`
	Messages  []Message `json:"messages"`
	CreatedAt time.Time `json:"createdAt"`
}

// Summary is the sidebar view of a session.
type Summary struct {
	ID           int    `json:"id"`
	Name         string `json:"name"`
	MessageCount int    `json:"messageCount"`
}

// SessionName returns the display name assigned to a newly created session.
func SessionName(id int) string {
	if id == 1 {
		return DefaultSessionName
	}
	return fmt.Sprintf("Chat %d", id)
}

// Summarize returns the sidebar view of s.
func (s Session) Summarize() Summary {
	return Summary{ID: s.ID, Name: s.Name, MessageCount: len(s.Messages)}
}
