package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/sadat-shakeeb/gemini-partner/backend/internal/handler/common"
	"github.com/sadat-shakeeb/gemini-partner/backend/internal/model/chat"
	"github.com/sadat-shakeeb/gemini-partner/backend/internal/service/ai"
	chatservice "github.com/sadat-shakeeb/gemini-partner/backend/internal/service/chat"
	"github.com/sadat-shakeeb/gemini-partner/backend/internal/service/media"
	"github.com/sadat-shakeeb/gemini-partner/backend/internal/service/reply"
	"github.com/sadat-shakeeb/gemini-partner/backend/pkg/utils"
)

// Handler streams model replies to the browser via Server-Sent Events.
type Handler struct {
	replySvc *reply.Service
	chatSvc  *chatservice.Service
	images   *media.Processor
}

// New creates a new stream handler
func New(replySvc *reply.Service, chatSvc *chatservice.Service, images *media.Processor) *Handler {
	return &Handler{
		replySvc: replySvc,
		chatSvc:  chatSvc,
		images:   images,
	}
}

// RegisterRoutes registers the message and streaming endpoints.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/chats/{chatID}/messages", h.handlePostMessage)
	r.Get("/stream/{chatID}", h.handleStreamQuery)
}

// StreamResponse represents a streaming response chunk
type StreamResponse struct {
	Event    string `json:"event"`
	ChatID   int    `json:"chatId,omitempty"`
	Content  string `json:"content,omitempty"`
	Attempt  int    `json:"attempt,omitempty"`
	DelayMs  int64  `json:"delayMs,omitempty"`
	Finished bool   `json:"finished,omitempty"`
	Error    string `json:"error,omitempty"`
}

type imagePayload struct {
	MIMEType string `json:"mimeType"`
	Data     []byte `json:"data"`
}

type messagePayload struct {
	Content string        `json:"content"`
	Image   *imagePayload `json:"image,omitempty"`
}

// handlePostMessage accepts JSON or multipart input and answers with an SSE stream.
func (h *Handler) handlePostMessage(w http.ResponseWriter, r *http.Request) {
	store, chatID, ok := h.resolve(w, r)
	if !ok {
		return
	}

	// Base64 inflates JSON uploads by a third; leave headroom for form fields.
	r.Body = http.MaxBytesReader(w, r.Body, h.images.MaxBytes()*4/3+(1<<20))

	message, err := h.parseMessage(r)
	if err != nil {
		utils.RespondError(w, common.StatusFor(err), err.Error())
		return
	}

	h.serve(r.Context(), w, store, chatID, message)
}

// handleStreamQuery is the EventSource-friendly text-only variant.
func (h *Handler) handleStreamQuery(w http.ResponseWriter, r *http.Request) {
	store, chatID, ok := h.resolve(w, r)
	if !ok {
		return
	}

	content := r.URL.Query().Get("message")
	if strings.TrimSpace(content) == "" {
		utils.RespondError(w, http.StatusBadRequest, "message query parameter is required")
		return
	}

	h.serve(r.Context(), w, store, chatID, chat.Message{Role: chat.RoleUser, Content: content})
}

func (h *Handler) serve(ctx context.Context, w http.ResponseWriter, store *chatservice.Store, chatID int, message chat.Message) {
	if err := h.HandleStreamRequest(ctx, w, store, chatID, message); err != nil {
		if errors.Is(err, context.Canceled) {
			log.Printf("[stream] client left chat=%d", chatID)
			return
		}
		log.Printf("[stream] error handling request chat=%d: %v", chatID, err)
	}
}

// HandleStreamRequest runs one exchange and writes it as SSE. Errors raised
// before the first event are answered with a JSON error and status code.
func (h *Handler) HandleStreamRequest(ctx context.Context, w http.ResponseWriter, store *chatservice.Store, chatID int, message chat.Message) error {
	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.RespondError(w, http.StatusInternalServerError, "streaming unsupported")
		return fmt.Errorf("streaming unsupported")
	}

	started := false
	start := func() error {
		if started {
			return nil
		}
		started = true
		utils.SetupSSEHeaders(w)
		w.WriteHeader(http.StatusOK)
		return utils.SendSSEChunk(w, flusher, StreamResponse{Event: "start", ChatID: chatID})
	}

	assistant, err := h.replySvc.Run(ctx, store, chatID, message, func(event ai.Event) error {
		if err := start(); err != nil {
			return err
		}
		if event.Type == ai.EventDone {
			return nil
		}
		return utils.SendSSEChunk(w, flusher, eventResponse(chatID, event))
	})
	if err != nil {
		if !started {
			utils.RespondError(w, common.StatusFor(err), common.Message(err))
			return err
		}
		_ = utils.SendSSEChunk(w, flusher, StreamResponse{Event: "error", ChatID: chatID, Error: common.Message(err)})
		_ = utils.SendSSEChunk(w, flusher, StreamResponse{Event: "end", ChatID: chatID, Finished: true})
		return err
	}

	if err := start(); err != nil {
		return err
	}
	if err := utils.SendSSEChunk(w, flusher, StreamResponse{Event: "message", ChatID: chatID, Content: assistant.Content}); err != nil {
		return err
	}
	if err := utils.SendSSEChunk(w, flusher, StreamResponse{Event: "end", ChatID: chatID, Finished: true}); err != nil {
		return err
	}

	log.Printf("[stream] completed response for chat=%d", chatID)
	return nil
}

func eventResponse(chatID int, event ai.Event) StreamResponse {
	resp := StreamResponse{Event: string(event.Type), ChatID: chatID, Attempt: event.Attempt}
	switch event.Type {
	case ai.EventDelta:
		resp.Content = event.Text
	case ai.EventRetry:
		resp.DelayMs = event.Delay.Milliseconds()
	}
	return resp
}

func (h *Handler) parseMessage(r *http.Request) (chat.Message, error) {
	contentType := r.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "multipart/form-data") {
		return h.parseMultipart(r)
	}

	var payload messagePayload
	if err := utils.DecodeJSON(r, &payload); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return chat.Message{}, media.ErrTooLarge
		}
		return chat.Message{}, common.ErrInvalidBody
	}

	message := chat.Message{Role: chat.RoleUser, Content: payload.Content}
	if payload.Image != nil {
		img, err := h.images.Process(payload.Image.Data)
		if err != nil {
			return chat.Message{}, err
		}
		message.Image = img
	}
	return message, nil
}

func (h *Handler) parseMultipart(r *http.Request) (chat.Message, error) {
	if err := r.ParseMultipartForm(h.images.MaxBytes()); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return chat.Message{}, media.ErrTooLarge
		}
		return chat.Message{}, fmt.Errorf("%w: %v", common.ErrInvalidBody, err)
	}
	if r.MultipartForm != nil {
		defer r.MultipartForm.RemoveAll()
	}

	message := chat.Message{Role: chat.RoleUser, Content: r.FormValue("content")}

	file, _, err := r.FormFile("image")
	if errors.Is(err, http.ErrMissingFile) {
		return message, nil
	}
	if err != nil {
		return chat.Message{}, fmt.Errorf("%w: %v", media.ErrUnsupportedType, err)
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, h.images.MaxBytes()+1))
	if err != nil {
		return chat.Message{}, fmt.Errorf("failed to read image: %w", err)
	}
	img, err := h.images.Process(data)
	if err != nil {
		return chat.Message{}, err
	}
	message.Image = img
	return message, nil
}

func (h *Handler) resolve(w http.ResponseWriter, r *http.Request) (*chatservice.Store, int, bool) {
	chatID, err := common.ChatID(r)
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return nil, 0, false
	}

	store, err := common.WorkspaceStore(r, h.chatSvc)
	if err != nil {
		utils.RespondError(w, common.StatusFor(err), err.Error())
		return nil, 0, false
	}
	return store, chatID, true
}
