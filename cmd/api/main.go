package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sadat-shakeeb/gemini-partner/backend/internal/config"
	"github.com/sadat-shakeeb/gemini-partner/backend/internal/handler"
	"github.com/sadat-shakeeb/gemini-partner/backend/internal/model/catalog"
	"github.com/sadat-shakeeb/gemini-partner/backend/internal/service/ai"
	"github.com/sadat-shakeeb/gemini-partner/backend/internal/service/chat"
	"github.com/sadat-shakeeb/gemini-partner/backend/internal/service/media"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
		log.Println("continuing with system environment variables only")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	provider, err := ai.NewProvider(ctx, cfg.AI)
	if err != nil {
		log.Fatalf("failed to initialize %s client: %v", cfg.AI.Provider, err)
	}
	aiService := ai.NewService(provider, cfg.AI)
	log.Printf("AI service initialized provider=%s model=%s history=%v", aiService.ProviderName(), aiService.Model(), aiService.HistoryMode())

	models := loadCatalog(ctx, aiService)
	chatService := chat.NewService()
	images := media.NewProcessor(cfg.Image)

	router := handler.NewRouter(models, chatService, aiService, images)

	startServer(ctx, cfg.Server, router)
}

// loadCatalog lists the provider's models, falling back to the configured one.
func loadCatalog(ctx context.Context, aiService *ai.Service) *catalog.MemoryStore {
	listCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	store := catalog.NewMemoryStore(catalog.Seed(aiService.Model()))
	models, err := aiService.ListModels(listCtx)
	if err != nil {
		log.Printf("warning: %v", err)
		log.Println("continuing with the configured model only")
		return store
	}
	if len(models) > 0 {
		store.Replace(models)
	}
	log.Printf("model catalog loaded: %d models", len(store.List()))
	return store
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler) {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Printf("Gemini Partner listening on %s", addr)
	if err := runServer(ctx, srv); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
