package chat

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sadat-shakeeb/gemini-partner/backend/internal/handler/common"
	"github.com/sadat-shakeeb/gemini-partner/backend/internal/model/chat"
	chatService "github.com/sadat-shakeeb/gemini-partner/backend/internal/service/chat"
	"github.com/sadat-shakeeb/gemini-partner/backend/pkg/utils"
)

// Handler 聊天会话的HTTP处理器
type Handler struct {
	chatSvc *chatService.Service
}

// New 创建聊天处理器
func New(chatSvc *chatService.Service) *Handler {
	return &Handler{chatSvc: chatSvc}
}

// RegisterRoutes 注册聊天相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/chats", h.handleListChats)
	r.Post("/chats", h.handleCreateChat)
	r.Get("/chats/active", h.handleGetActiveChat)
	r.Put("/chats/active", h.handleSwitchChat)
	r.Get("/chats/{chatID}", h.handleGetChat)
	r.Delete("/chats/{chatID}", h.handleDeleteChat)
}

type chatListResponse struct {
	ActiveID int            `json:"activeId"`
	Chats    []chat.Summary `json:"chats"`
}

func (h *Handler) handleListChats(w http.ResponseWriter, r *http.Request) {
	store, err := common.WorkspaceStore(r, h.chatSvc)
	if err != nil {
		utils.RespondError(w, common.StatusFor(err), err.Error())
		return
	}

	utils.RespondJSON(w, http.StatusOK, chatListResponse{
		ActiveID: store.ActiveID(r.Context()),
		Chats:    store.List(r.Context()),
	})
}

func (h *Handler) handleCreateChat(w http.ResponseWriter, r *http.Request) {
	store, err := common.WorkspaceStore(r, h.chatSvc)
	if err != nil {
		utils.RespondError(w, common.StatusFor(err), err.Error())
		return
	}

	utils.RespondJSON(w, http.StatusCreated, store.Create(r.Context()))
}

func (h *Handler) handleGetChat(w http.ResponseWriter, r *http.Request) {
	store, chatID, ok := h.resolve(w, r)
	if !ok {
		return
	}

	session, err := store.Get(r.Context(), chatID)
	if err != nil {
		utils.RespondError(w, common.StatusFor(err), err.Error())
		return
	}
	utils.RespondJSON(w, http.StatusOK, session)
}

func (h *Handler) handleGetActiveChat(w http.ResponseWriter, r *http.Request) {
	store, err := common.WorkspaceStore(r, h.chatSvc)
	if err != nil {
		utils.RespondError(w, common.StatusFor(err), err.Error())
		return
	}
	utils.RespondJSON(w, http.StatusOK, store.Active(r.Context()))
}

func (h *Handler) handleSwitchChat(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		ID int `json:"id"`
	}
	if err := utils.DecodeJSON(r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	store, err := common.WorkspaceStore(r, h.chatSvc)
	if err != nil {
		utils.RespondError(w, common.StatusFor(err), err.Error())
		return
	}

	if err := store.Switch(r.Context(), payload.ID); err != nil {
		utils.RespondError(w, common.StatusFor(err), err.Error())
		return
	}
	utils.RespondJSON(w, http.StatusOK, chatListResponse{
		ActiveID: store.ActiveID(r.Context()),
		Chats:    store.List(r.Context()),
	})
}

func (h *Handler) handleDeleteChat(w http.ResponseWriter, r *http.Request) {
	store, chatID, ok := h.resolve(w, r)
	if !ok {
		return
	}

	if err := store.Delete(r.Context(), chatID); err != nil {
		utils.RespondError(w, common.StatusFor(err), err.Error())
		return
	}
	utils.RespondJSON(w, http.StatusOK, chatListResponse{
		ActiveID: store.ActiveID(r.Context()),
		Chats:    store.List(r.Context()),
	})
}

func (h *Handler) resolve(w http.ResponseWriter, r *http.Request) (*chatService.Store, int, bool) {
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
