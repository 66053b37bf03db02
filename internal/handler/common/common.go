package common

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/sadat-shakeeb/gemini-partner/backend/internal/middleware"
	"github.com/sadat-shakeeb/gemini-partner/backend/internal/service/ai"
	chatservice "github.com/sadat-shakeeb/gemini-partner/backend/internal/service/chat"
	"github.com/sadat-shakeeb/gemini-partner/backend/internal/service/media"
)

var (
	ErrInvalidChatID = errors.New("invalid chat id")
	ErrInvalidBody   = errors.New("invalid request body")
)

// WorkspaceStore returns the chat store of the requesting browser workspace.
func WorkspaceStore(r *http.Request, chatSvc *chatservice.Service) (*chatservice.Store, error) {
	return chatSvc.Workspace(r.Context(), middleware.WorkspaceID(r.Context()))
}

// ChatID parses the {chatID} route parameter.
func ChatID(r *http.Request) (int, error) {
	id, err := strconv.Atoi(chi.URLParam(r, "chatID"))
	if err != nil || id < 1 {
		return 0, ErrInvalidChatID
	}
	return id, nil
}

// StatusFor maps service errors to HTTP status codes.
func StatusFor(err error) int {
	var upstream *ai.UpstreamError
	switch {
	case errors.Is(err, chatservice.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, chatservice.ErrLastSession), errors.Is(err, chatservice.ErrTurnInProgress):
		return http.StatusConflict
	case errors.Is(err, chatservice.ErrEmptyMessage), errors.Is(err, chatservice.ErrInvalidRole),
		errors.Is(err, chatservice.ErrWorkspaceRequired), errors.Is(err, ErrInvalidChatID), errors.Is(err, ErrInvalidBody),
		errors.Is(err, ai.ErrEmptyRequest), errors.Is(err, media.ErrUnsupportedType), errors.Is(err, media.ErrEmpty):
		return http.StatusBadRequest
	case errors.Is(err, media.ErrTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.As(err, &upstream):
		if upstream.Transient {
			return http.StatusServiceUnavailable
		}
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Message returns the user-facing text for err.
func Message(err error) string {
	var upstream *ai.UpstreamError
	if errors.As(err, &upstream) || errors.Is(err, ai.ErrEmptyRequest) {
		return ai.FallbackMessage(err)
	}
	return err.Error()
}
