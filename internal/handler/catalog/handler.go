package catalog

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sadat-shakeeb/gemini-partner/backend/internal/model/catalog"
	"github.com/sadat-shakeeb/gemini-partner/backend/pkg/utils"
)

// Handler 模型目录的HTTP处理器
type Handler struct {
	models   catalog.Store
	provider string
	active   string
}

// New creates the catalog handler. provider and active describe the model replies come from.
func New(models catalog.Store, provider, active string) *Handler {
	return &Handler{
		models:   models,
		provider: provider,
		active:   active,
	}
}

// RegisterRoutes registers the model catalog routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/models", h.handleListModels)
	r.Get("/models/{name}", h.handleGetModel)
}

type modelListResponse struct {
	Provider string          `json:"provider"`
	Active   string          `json:"active"`
	Models   []catalog.Model `json:"models"`
}

// handleListModels lists the catalog, optionally filtered by ?action=.
func (h *Handler) handleListModels(w http.ResponseWriter, r *http.Request) {
	models := h.models.List()

	if action := r.URL.Query().Get("action"); action != "" {
		filtered := make([]catalog.Model, 0, len(models))
		for _, m := range models {
			if m.Supports(action) {
				filtered = append(filtered, m)
			}
		}
		models = filtered
	}
	if models == nil {
		models = []catalog.Model{}
	}

	utils.RespondJSON(w, http.StatusOK, modelListResponse{
		Provider: h.provider,
		Active:   h.active,
		Models:   models,
	})
}

func (h *Handler) handleGetModel(w http.ResponseWriter, r *http.Request) {
	model, ok := h.models.FindByName(chi.URLParam(r, "name"))
	if !ok {
		utils.RespondError(w, http.StatusNotFound, "model not found")
		return
	}
	utils.RespondJSON(w, http.StatusOK, model)
}
