package reply

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/sadat-shakeeb/gemini-partner/backend/internal/model/chat"
	"github.com/sadat-shakeeb/gemini-partner/backend/internal/service/ai"
	chatservice "github.com/sadat-shakeeb/gemini-partner/backend/internal/service/chat"
)

// Generator is the part of ai.Service a reply turn needs.
type Generator interface {
	BuildRequest(prior []chat.Message, userMessage chat.Message) ai.Request
	Stream(ctx context.Context, req ai.Request) (*ai.Stream, error)
}

// Service runs one chat exchange: store the user turn, stream the reply, store the reply.
type Service struct {
	gen Generator
}

// NewService creates the reply service.
func NewService(gen Generator) *Service {
	return &Service{gen: gen}
}

// Run appends userMessage to the chat, forwards every stream event to onEvent
// and appends the final reply. Nothing is appended for the assistant when the
// upstream fails; the user turn stays so the conversation shows what was asked.
func (s *Service) Run(ctx context.Context, store *chatservice.Store, chatID int, userMessage chat.Message, onEvent func(ai.Event) error) (chat.Message, error) {
	userMessage.Role = chat.RoleUser
	if strings.TrimSpace(userMessage.Content) == "" && !userMessage.HasImage() {
		return chat.Message{}, chatservice.ErrEmptyMessage
	}

	release, err := store.BeginTurn(ctx, chatID)
	if err != nil {
		return chat.Message{}, err
	}
	defer release()

	session, err := store.Get(ctx, chatID)
	if err != nil {
		return chat.Message{}, err
	}

	stream, err := s.gen.Stream(ctx, s.gen.BuildRequest(session.Messages, userMessage))
	if err != nil {
		return chat.Message{}, err
	}
	defer stream.Close()

	if _, err := store.Append(ctx, chatID, userMessage); err != nil {
		return chat.Message{}, err
	}

	var builder strings.Builder
	for {
		event, recvErr := stream.Recv()
		if errors.Is(recvErr, io.EOF) {
			break
		}
		if recvErr != nil {
			return chat.Message{}, recvErr
		}

		switch event.Type {
		case ai.EventDelta:
			builder.WriteString(event.Text)
		case ai.EventReset:
			builder.Reset()
		}

		if onEvent != nil {
			if err := onEvent(event); err != nil {
				return chat.Message{}, fmt.Errorf("failed to forward reply: %w", err)
			}
		}
	}

	assistant, err := store.Append(ctx, chatID, chat.Message{Role: chat.RoleAssistant, Content: builder.String()})
	if err != nil {
		return chat.Message{}, fmt.Errorf("failed to store reply: %w", err)
	}

	log.Printf("[reply] chat=%d stored reply length=%d", chatID, len(assistant.Content))
	return assistant, nil
}
