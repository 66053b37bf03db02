package ai

import (
	"context"
	"testing"

	"golang.org/x/time/rate"

	"github.com/sadat-shakeeb/gemini-partner/backend/internal/model/chat"
)

func TestBuildRequestSinglePrompt(t *testing.T) {
	svc, _ := newTestService(NewMockProvider())
	img := &chat.Image{MIMEType: "image/png", Data: []byte{1, 2, 3}}
	prior := []chat.Message{{Role: chat.RoleUser, Content: "earlier"}, {Role: chat.RoleAssistant, Content: "reply"}}

	req := svc.BuildRequest(prior, chat.Message{Role: chat.RoleUser, Content: "describe", Image: img})

	if req.Prompt != "describe" || req.Image != img {
		t.Fatalf("unexpected prompt request %+v", req)
	}
	if len(req.History) != 0 {
		t.Fatal("single-prompt mode must not replay history")
	}
	if req.Model != "gemini-2.5-flash" {
		t.Fatalf("unexpected model %q", req.Model)
	}
	turns := req.Turns()
	if len(turns) != 1 || turns[0].Role != chat.RoleUser || !turns[0].HasImage() {
		t.Fatalf("unexpected turns %+v", turns)
	}
}

func TestBuildRequestHistoryMode(t *testing.T) {
	cfg := testConfig()
	cfg.HistoryMode = true
	cfg.HistoryLimit = 3
	svc := NewService(NewMockProvider(), cfg)

	img := &chat.Image{MIMEType: "image/jpeg", Data: []byte{9}}
	prior := []chat.Message{
		{Role: chat.RoleUser, Content: "one"},
		{Role: chat.RoleAssistant, Content: "two"},
		{Role: chat.RoleUser, Content: "three", Image: img},
		{Role: chat.RoleAssistant, Content: "four"},
	}

	req := svc.BuildRequest(prior, chat.Message{Role: chat.RoleUser, Content: "five"})
	if req.Prompt != "" {
		t.Fatal("history mode must not set Prompt")
	}

	// Limit 3 keeps two..four, then the leading assistant turn is dropped.
	want := []string{"three", "four", "five"}
	if len(req.History) != len(want) {
		t.Fatalf("unexpected history %+v", req.History)
	}
	for i, content := range want {
		if req.History[i].Content != content {
			t.Fatalf("turn %d: got %q want %q", i, req.History[i].Content, content)
		}
	}
	if req.History[0].Role != chat.RoleUser {
		t.Fatal("history must open with a user turn")
	}
	if req.History[0].HasImage() {
		t.Fatal("prior turns are replayed as text only")
	}
}

func TestBuildRequestHistoryKeepsImageOnlyTurns(t *testing.T) {
	cfg := testConfig()
	cfg.HistoryMode = true
	svc := NewService(NewMockProvider(), cfg)

	img := &chat.Image{MIMEType: "image/png", Data: []byte{1}}
	prior := []chat.Message{
		{Role: chat.RoleUser, Image: img},
		{Role: chat.RoleAssistant, Content: "a cat"},
	}

	req := svc.BuildRequest(prior, chat.Message{Role: chat.RoleUser, Content: "what colour?"})
	if len(req.History) != 3 {
		t.Fatalf("unexpected history %+v", req.History)
	}
	if req.History[0].Role != chat.RoleUser || req.History[0].Content != imageOnlyPlaceholder {
		t.Fatalf("history opens with %+v", req.History[0])
	}
	if req.History[0].HasImage() {
		t.Fatal("prior turns are replayed as text only")
	}
	if req.History[1].Content != "a cat" || req.History[2].Content != "what colour?" {
		t.Fatalf("unexpected history %+v", req.History)
	}
}

func TestBuildRequestHistoryDropsLeadingAssistantTurns(t *testing.T) {
	cfg := testConfig()
	cfg.HistoryMode = true
	cfg.HistoryLimit = 2
	svc := NewService(NewMockProvider(), cfg)

	prior := []chat.Message{
		{Role: chat.RoleUser, Content: "one"},
		{Role: chat.RoleAssistant, Content: ""},
		{Role: chat.RoleAssistant, Content: "two"},
	}

	req := svc.BuildRequest(prior, chat.Message{Role: chat.RoleUser, Content: "three"})
	if len(req.History) != 1 || req.History[0].Content != "three" {
		t.Fatalf("unexpected history %+v", req.History)
	}
}

func TestRateLimiterConfigured(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimit = 5
	svc := NewService(NewMockProvider(MockTurn{Fragments: []string{"x"}}), cfg)

	if svc.limiter == nil || svc.limiter.Limit() != rate.Limit(5) {
		t.Fatal("expected a 5/s limiter")
	}
	if _, err := generate(svc, Request{Prompt: "hi"}); err != nil {
		t.Fatalf("Generate err: %v", err)
	}
}

func TestServiceListModels(t *testing.T) {
	svc, _ := newTestService(NewMockProvider())
	models, err := svc.ListModels(context.Background())
	if err != nil {
		t.Fatalf("ListModels err: %v", err)
	}
	if len(models) != 1 || models[0].Name != "mock-model" {
		t.Fatalf("unexpected models %+v", models)
	}
}
