package main

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/sadat-shakeeb/gemini-partner/backend/internal/config"
	"github.com/sadat-shakeeb/gemini-partner/backend/internal/model/catalog"
	"github.com/sadat-shakeeb/gemini-partner/backend/internal/service/ai"
)

func testAIConfig() config.AIConfig {
	return config.AIConfig{
		Provider:    config.ProviderGemini,
		Gemini:      config.GeminiConfig{APIKey: "key", Model: "gemini-2.5-flash"},
		MaxAttempts: 3,
	}
}

func TestLoadCatalogUsesProviderListing(t *testing.T) {
	provider := ai.NewMockProvider().WithModels([]catalog.Model{
		{Name: "models/gemini-2.5-flash"},
		{Name: "models/gemini-2.5-pro"},
	})

	store := loadCatalog(context.Background(), ai.NewService(provider, testAIConfig()))
	if got := len(store.List()); got != 2 {
		t.Fatalf("expected 2 models, got %d", got)
	}
}

func TestLoadCatalogFallsBackToConfiguredModel(t *testing.T) {
	provider := ai.NewMockProvider().WithModels(nil)

	store := loadCatalog(context.Background(), ai.NewService(provider, testAIConfig()))
	models := store.List()
	if len(models) != 1 || models[0].Name != "gemini-2.5-flash" {
		t.Fatalf("unexpected catalog %+v", models)
	}
}

func TestRunServerStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	srv := &http.Server{Addr: "127.0.0.1:0", Handler: http.NotFoundHandler()}

	done := make(chan error, 1)
	go func() { done <- runServer(ctx, srv) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("runServer err: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
