package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/genai"

	"github.com/sadat-shakeeb/gemini-partner/backend/internal/config"
	"github.com/sadat-shakeeb/gemini-partner/backend/internal/model/catalog"
	"github.com/sadat-shakeeb/gemini-partner/backend/internal/model/chat"
)

// GeminiProvider streams replies from the Google Gemini API.
type GeminiProvider struct {
	client      *genai.Client
	model       string
	temperature *float64
	maxTokens   *int
}

// NewGeminiProvider creates the shared Gemini client. It is read-only after construction.
func NewGeminiProvider(ctx context.Context, cfg config.AIConfig) (*GeminiProvider, error) {
	if cfg.Gemini.APIKey == "" {
		return nil, fmt.Errorf("%w: set GOOGLE_API_KEY", config.ErrMissingCredential)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.Gemini.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	return &GeminiProvider{
		client:      client,
		model:       cfg.Gemini.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
	}, nil
}

func (p *GeminiProvider) Name() string { return "Gemini" }

// Generate makes one GenerateContentStream call.
func (p *GeminiProvider) Generate(ctx context.Context, req Request, emit func(string) error) error {
	model := req.Model
	if model == "" {
		model = p.model
	}

	contents := geminiContents(req.Turns())
	for resp, err := range p.client.Models.GenerateContentStream(ctx, model, contents, p.generateConfig(req)) {
		if err != nil {
			return classifyGeminiError(err)
		}
		if resp == nil {
			continue
		}
		if text := resp.Text(); text != "" {
			if err := emit(text); err != nil {
				return err
			}
		}
	}
	return nil
}

// ListModels pages through every model visible to the API key.
func (p *GeminiProvider) ListModels(ctx context.Context) ([]catalog.Model, error) {
	var models []catalog.Model
	for m, err := range p.client.Models.All(ctx) {
		if err != nil {
			return nil, classifyGeminiError(err)
		}
		if m == nil {
			continue
		}
		models = append(models, catalog.Model{
			Name:             m.Name,
			DisplayName:      m.DisplayName,
			Description:      m.Description,
			SupportedActions: m.SupportedActions,
			InputTokenLimit:  int(m.InputTokenLimit),
			OutputTokenLimit: int(m.OutputTokenLimit),
		})
	}
	return models, nil
}

func (p *GeminiProvider) generateConfig(req Request) *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{}
	if req.SystemPrompt != "" {
		cfg.SystemInstruction = genai.NewContentFromText(req.SystemPrompt, genai.RoleUser)
	}
	if p.temperature != nil {
		cfg.Temperature = genai.Ptr(float32(*p.temperature))
	}
	if p.maxTokens != nil {
		cfg.MaxOutputTokens = int32(*p.maxTokens)
	}
	return cfg
}

func geminiContents(turns []chat.Message) []*genai.Content {
	contents := make([]*genai.Content, 0, len(turns))
	for _, turn := range turns {
		parts := make([]*genai.Part, 0, 2)
		if turn.Content != "" {
			parts = append(parts, genai.NewPartFromText(turn.Content))
		}
		if turn.HasImage() {
			parts = append(parts, genai.NewPartFromBytes(turn.Image.Data, turn.Image.MIMEType))
		}
		if len(parts) == 0 {
			continue
		}

		var role genai.Role = genai.RoleUser
		if turn.Role == chat.RoleAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromParts(parts, role))
	}
	return contents
}

// classifyGeminiError marks 503 / UNAVAILABLE responses as overload.
func classifyGeminiError(err error) error {
	if apiErr, ok := asGeminiAPIError(err); ok {
		if apiErr.Code == http.StatusServiceUnavailable || apiErr.Status == "UNAVAILABLE" {
			return fmt.Errorf("%w: %w", ErrOverloaded, err)
		}
	}
	return err
}

func asGeminiAPIError(err error) (genai.APIError, bool) {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return *apiErrPtr, true
	}
	return genai.APIError{}, false
}
