package common

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/sadat-shakeeb/gemini-partner/backend/internal/service/ai"
	chatservice "github.com/sadat-shakeeb/gemini-partner/backend/internal/service/chat"
	"github.com/sadat-shakeeb/gemini-partner/backend/internal/service/media"
)

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{chatservice.ErrSessionNotFound, http.StatusNotFound},
		{fmt.Errorf("wrapped: %w", chatservice.ErrLastSession), http.StatusConflict},
		{chatservice.ErrTurnInProgress, http.StatusConflict},
		{chatservice.ErrEmptyMessage, http.StatusBadRequest},
		{fmt.Errorf("%w: unexpected EOF", ErrInvalidBody), http.StatusBadRequest},
		{media.ErrUnsupportedType, http.StatusBadRequest},
		{media.ErrTooLarge, http.StatusRequestEntityTooLarge},
		{&ai.UpstreamError{Provider: "Gemini", Attempts: 3, Transient: true}, http.StatusServiceUnavailable},
		{&ai.UpstreamError{Provider: "Gemini", Attempts: 1, Err: errors.New("401")}, http.StatusBadGateway},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := StatusFor(tc.err); got != tc.want {
			t.Errorf("StatusFor(%v) = %d, want %d", tc.err, got, tc.want)
		}
	}
}

func TestMessageUsesFallbackForUpstream(t *testing.T) {
	err := &ai.UpstreamError{Provider: "Gemini", Attempts: 3, Transient: true, Err: ai.ErrOverloaded}
	if got := Message(err); got != "Gemini is busy. Please try again in a moment." {
		t.Fatalf("unexpected message %q", got)
	}
	if got := Message(chatservice.ErrSessionNotFound); got != "session not found" {
		t.Fatalf("unexpected message %q", got)
	}
}
