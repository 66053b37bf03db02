package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	catalogHandler "github.com/sadat-shakeeb/gemini-partner/backend/internal/handler/catalog"
	"github.com/sadat-shakeeb/gemini-partner/backend/internal/handler/chat"
	"github.com/sadat-shakeeb/gemini-partner/backend/internal/handler/stream"
	"github.com/sadat-shakeeb/gemini-partner/backend/internal/handler/ws"
	middlewarePkg "github.com/sadat-shakeeb/gemini-partner/backend/internal/middleware"
	"github.com/sadat-shakeeb/gemini-partner/backend/internal/model/catalog"
	aiService "github.com/sadat-shakeeb/gemini-partner/backend/internal/service/ai"
	chatService "github.com/sadat-shakeeb/gemini-partner/backend/internal/service/chat"
	"github.com/sadat-shakeeb/gemini-partner/backend/internal/service/media"
	"github.com/sadat-shakeeb/gemini-partner/backend/internal/service/reply"
	"github.com/sadat-shakeeb/gemini-partner/backend/internal/web"
	"github.com/sadat-shakeeb/gemini-partner/backend/pkg/utils"
)

// NewRouter wires HTTP routes to core services.
func NewRouter(models catalog.Store, chatSvc *chatService.Service, aiSvc *aiService.Service, images *media.Processor) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	replySvc := reply.NewService(aiSvc)

	// Create handlers
	chatHandler := chat.New(chatSvc)
	streamHandler := stream.New(replySvc, chatSvc, images)
	wsHandler := ws.New(replySvc, chatSvc, images)
	modelHandler := catalogHandler.New(models, aiSvc.ProviderName(), aiSvc.Model())

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		utils.RespondJSON(w, http.StatusOK, map[string]string{
			"status":   "ok",
			"provider": aiSvc.ProviderName(),
			"model":    aiSvc.Model(),
		})
	})

	r.Route("/api", func(api chi.Router) {
		api.Use(middlewarePkg.Workspace)

		modelHandler.RegisterRoutes(api)
		chatHandler.RegisterRoutes(api)
		streamHandler.RegisterRoutes(api)
		wsHandler.RegisterRoutes(api)
	})

	r.Handle("/*", web.Handler())

	return r
}
