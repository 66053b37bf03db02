package ai

import (
	"context"
	"fmt"
	"log"
	"time"

	"golang.org/x/time/rate"

	"github.com/sadat-shakeeb/gemini-partner/backend/internal/config"
	"github.com/sadat-shakeeb/gemini-partner/backend/internal/model/catalog"
	"github.com/sadat-shakeeb/gemini-partner/backend/internal/model/chat"
)

// imageOnlyPlaceholder stands in for a replayed user turn that only carried an image.
const imageOnlyPlaceholder = "[image]"

// Service turns chat turns into streamed replies, retrying transient upstream overload.
type Service struct {
	provider Provider
	cfg      config.AIConfig
	limiter  *rate.Limiter
	sleep    func(ctx context.Context, d time.Duration) error
}

// NewProvider builds the upstream client selected by cfg.Provider.
func NewProvider(ctx context.Context, cfg config.AIConfig) (Provider, error) {
	switch cfg.Provider {
	case config.ProviderGemini:
		return NewGeminiProvider(ctx, cfg)
	case config.ProviderArk:
		return NewArkProvider(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.Provider)
	}
}

// NewService wraps provider with the retry policy from cfg.
func NewService(provider Provider, cfg config.AIConfig) *Service {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}

	svc := &Service{
		provider: provider,
		cfg:      cfg,
		sleep:    sleepContext,
	}
	if cfg.RateLimit > 0 {
		svc.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), 1)
	}
	return svc
}

// ProviderName returns the display name of the upstream.
func (s *Service) ProviderName() string {
	return s.provider.Name()
}

// Model returns the configured model name.
func (s *Service) Model() string {
	return s.cfg.Model()
}

// HistoryMode reports whether prior turns are replayed upstream.
func (s *Service) HistoryMode() bool {
	return s.cfg.HistoryMode
}

// ListModels asks the provider for its model catalog.
func (s *Service) ListModels(ctx context.Context) ([]catalog.Model, error) {
	models, err := s.provider.ListModels(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s models: %w", s.provider.Name(), err)
	}
	return models, nil
}

// BuildRequest assembles the upstream request for a new user message. prior is
// the chat history before userMessage. In history mode the last HistoryLimit
// turns are replayed as text; otherwise only the new prompt and its image are sent.
func (s *Service) BuildRequest(prior []chat.Message, userMessage chat.Message) Request {
	req := Request{
		Model:        s.cfg.Model(),
		SystemPrompt: s.cfg.SystemPrompt,
	}

	if !s.cfg.HistoryMode {
		req.Prompt = userMessage.Content
		req.Image = userMessage.Image
		return req
	}

	limit := s.cfg.HistoryLimit
	if limit < 1 {
		limit = 1
	}
	start := 0
	if len(prior) > limit {
		start = len(prior) - limit
	}

	history := make([]chat.Message, 0, len(prior)-start+1)
	for _, msg := range prior[start:] {
		content := msg.Content
		if content == "" && msg.Role == chat.RoleUser && msg.HasImage() {
			content = imageOnlyPlaceholder
		}
		if content == "" {
			continue
		}
		history = append(history, chat.Message{Role: msg.Role, Content: content})
	}
	// Conversations sent upstream must open with a user turn.
	for len(history) > 0 && history[0].Role != chat.RoleUser {
		history = history[1:]
	}
	history = append(history, chat.Message{Role: chat.RoleUser, Content: userMessage.Content, Image: userMessage.Image})
	req.History = history
	return req
}

// Stream starts generating a reply. The returned stream must be drained or closed.
func (s *Service) Stream(ctx context.Context, req Request) (*Stream, error) {
	if req.empty() {
		return nil, ErrEmptyRequest
	}
	if req.Model == "" {
		req.Model = s.cfg.Model()
	}

	return newStream(ctx, func(ctx context.Context, ch chan<- Event) error {
		return s.run(ctx, req, ch)
	}), nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func logf(format string, args ...any) {
	log.Printf("[ai] "+format, args...)
}
