package ws

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/sadat-shakeeb/gemini-partner/backend/internal/handler/common"
	"github.com/sadat-shakeeb/gemini-partner/backend/internal/model/chat"
	"github.com/sadat-shakeeb/gemini-partner/backend/internal/service/ai"
	chatservice "github.com/sadat-shakeeb/gemini-partner/backend/internal/service/chat"
	"github.com/sadat-shakeeb/gemini-partner/backend/internal/service/media"
	"github.com/sadat-shakeeb/gemini-partner/backend/internal/service/reply"
	"github.com/sadat-shakeeb/gemini-partner/backend/pkg/utils"
)

const (
	readTimeout  = 60 * time.Second
	pingInterval = 54 * time.Second
	writeTimeout = 10 * time.Second
)

// Handler streams replies over a WebSocket, one connection per open chat.
type Handler struct {
	replySvc *reply.Service
	chatSvc  *chatservice.Service
	images   *media.Processor
	upgrader websocket.Upgrader
}

// New creates the WebSocket handler.
func New(replySvc *reply.Service, chatSvc *chatservice.Service, images *media.Processor) *Handler {
	return &Handler{
		replySvc: replySvc,
		chatSvc:  chatSvc,
		images:   images,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// RegisterRoutes registers the WebSocket endpoint.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/ws/{chatID}", h.handleWebSocket)
}

type inboundMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// MessageData is the payload of an inbound "message".
type MessageData struct {
	Content string `json:"content"`
	Image   *struct {
		MIMEType string `json:"mimeType"`
		Data     []byte `json:"data"`
	} `json:"image,omitempty"`
}

type outgoingMessage struct {
	Type      string      `json:"type"`
	ChatID    int         `json:"chatId,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

type connection struct {
	conn   *websocket.Conn
	store  *chatservice.Store
	chatID int
}

func (h *Handler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	chatID, err := common.ChatID(r)
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	store, err := common.WorkspaceStore(r, h.chatSvc)
	if err != nil {
		utils.RespondError(w, common.StatusFor(err), err.Error())
		return
	}
	if _, err := store.Get(r.Context(), chatID); err != nil {
		utils.RespondError(w, common.StatusFor(err), err.Error())
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[ws] upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	log.Printf("[ws] new connection for chat=%d", chatID)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	conn.SetReadLimit(h.images.MaxBytes()*4/3 + (1 << 20))
	conn.SetReadDeadline(time.Now().Add(readTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(readTimeout))
	})

	go pingLoop(ctx, conn)

	c := &connection{conn: conn, store: store, chatID: chatID}
	for {
		var msg inboundMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[ws] read error chat=%d: %v", chatID, err)
			}
			return
		}

		h.handleMessage(ctx, c, &msg)

		conn.SetReadDeadline(time.Now().Add(readTimeout))
	}
}

func (h *Handler) handleMessage(ctx context.Context, c *connection, msg *inboundMessage) {
	switch msg.Type {
	case "message":
		h.handleChatMessage(ctx, c, msg.Data)
	default:
		c.sendError("unsupported message type: " + msg.Type)
	}
}

func (h *Handler) handleChatMessage(ctx context.Context, c *connection, raw json.RawMessage) {
	var data MessageData
	if err := json.Unmarshal(raw, &data); err != nil {
		c.sendError("invalid message payload")
		return
	}

	message := chat.Message{Role: chat.RoleUser, Content: data.Content}
	if data.Image != nil {
		img, err := h.images.Process(data.Image.Data)
		if err != nil {
			c.sendError(err.Error())
			return
		}
		message.Image = img
	}

	started := false
	assistant, err := h.replySvc.Run(ctx, c.store, c.chatID, message, func(event ai.Event) error {
		if !started {
			started = true
			if err := c.send("start", nil); err != nil {
				return err
			}
		}
		return c.sendEvent(event)
	})
	if err != nil {
		log.Printf("[ws] reply failed chat=%d: %v", c.chatID, err)
		c.sendError(common.Message(err))
		if started {
			_ = c.send("end", map[string]any{"finished": false})
		}
		return
	}

	if !started {
		if err := c.send("start", nil); err != nil {
			return
		}
	}
	if err := c.send("message", map[string]any{"content": assistant.Content}); err != nil {
		return
	}
	_ = c.send("end", map[string]any{"finished": true})
}

func (c *connection) sendEvent(event ai.Event) error {
	switch event.Type {
	case ai.EventDelta:
		return c.send("delta", map[string]any{"text": event.Text})
	case ai.EventReset:
		return c.send("reset", map[string]any{"attempt": event.Attempt})
	case ai.EventRetry:
		return c.send("retry", map[string]any{
			"attempt": event.Attempt,
			"delayMs": event.Delay.Milliseconds(),
		})
	}
	return nil
}

func (c *connection) send(msgType string, data interface{}) error {
	msg := outgoingMessage{
		Type:      msgType,
		ChatID:    c.chatID,
		Data:      data,
		Timestamp: time.Now().Unix(),
	}
	c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := c.conn.WriteJSON(msg); err != nil {
		log.Printf("[ws] write %s failed: %v", msgType, err)
		return err
	}
	return nil
}

func (c *connection) sendError(message string) {
	_ = c.send("error", map[string]string{"message": message})
}

// pingLoop keeps the connection alive; WriteControl is safe alongside WriteJSON.
func pingLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout)); err != nil {
				return
			}
		}
	}
}
