package ai

import (
	"context"

	"github.com/sadat-shakeeb/gemini-partner/backend/internal/model/catalog"
	"github.com/sadat-shakeeb/gemini-partner/backend/internal/model/chat"
)

// Provider performs single upstream generation calls. Retrying is the caller's job.
type Provider interface {
	// Name is a short display name such as "Gemini".
	Name() string
	// Generate makes exactly one upstream call and passes every text fragment to
	// emit in arrival order. An error from emit aborts the call and is returned.
	Generate(ctx context.Context, req Request, emit func(fragment string) error) error
	// ListModels returns the models the credential can reach.
	ListModels(ctx context.Context) ([]catalog.Model, error)
}

// Request is the input of one reply generation. Either Prompt (plus an optional
// Image) or History is used, never both.
type Request struct {
	Model        string
	SystemPrompt string

	Prompt string
	Image  *chat.Image

	// History holds role-tagged turns ending with the current user turn.
	History []chat.Message
}

// Turns flattens the request into the ordered list of turns sent upstream.
func (r Request) Turns() []chat.Message {
	if len(r.History) > 0 {
		return r.History
	}
	return []chat.Message{{Role: chat.RoleUser, Content: r.Prompt, Image: r.Image}}
}

func (r Request) empty() bool {
	for _, turn := range r.Turns() {
		if turn.Content != "" || turn.HasImage() {
			return false
		}
	}
	return true
}
