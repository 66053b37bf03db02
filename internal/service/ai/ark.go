package ai

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/sadat-shakeeb/gemini-partner/backend/internal/config"
	"github.com/sadat-shakeeb/gemini-partner/backend/internal/model/catalog"
	"github.com/sadat-shakeeb/gemini-partner/backend/internal/model/chat"
)

const defaultArkSystemPrompt = "You are a helpful assistant."

// ArkProvider streams replies from a Volcengine Ark model through an eino chain.
type ArkProvider struct {
	model string
	chain compose.Runnable[map[string]any, *schema.Message]
}

// NewArkProvider builds the Ark chat model and compiles the prompt chain.
func NewArkProvider(ctx context.Context, cfg config.AIConfig) (*ArkProvider, error) {
	var temperature *float32
	if cfg.Temperature != nil {
		val := float32(*cfg.Temperature)
		temperature = &val
	}

	chatModel, err := ark.NewChatModel(ctx, &ark.ChatModelConfig{
		BaseURL:     cfg.Ark.BaseURL,
		Region:      cfg.Ark.Region,
		APIKey:      cfg.Ark.APIKey,
		AccessKey:   cfg.Ark.AccessKey,
		SecretKey:   cfg.Ark.SecretKey,
		Model:       cfg.Ark.Model,
		MaxTokens:   cfg.MaxTokens,
		Temperature: temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create chat model: %w", err)
	}

	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage("{system}"),
		schema.MessagesPlaceholder("history", false),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile chat chain: %w", err)
	}

	return &ArkProvider{model: cfg.Ark.Model, chain: runnable}, nil
}

func (p *ArkProvider) Name() string { return "Ark" }

// Generate makes one streaming chain call.
func (p *ArkProvider) Generate(ctx context.Context, req Request, emit func(string) error) error {
	stream, err := p.chain.Stream(ctx, arkChainInput(req))
	if err != nil {
		return classifyArkError(err)
	}
	defer stream.Close()

	for {
		chunk, recvErr := stream.Recv()
		if errors.Is(recvErr, io.EOF) {
			return nil
		}
		if recvErr != nil {
			return classifyArkError(recvErr)
		}
		if chunk == nil || chunk.Content == "" {
			continue
		}
		if err := emit(chunk.Content); err != nil {
			return err
		}
	}
}

// ListModels reports the configured endpoint; Ark has no listing call for it.
func (p *ArkProvider) ListModels(_ context.Context) ([]catalog.Model, error) {
	return catalog.Seed(p.model), nil
}

func arkChainInput(req Request) map[string]any {
	system := req.SystemPrompt
	if system == "" {
		system = defaultArkSystemPrompt
	}
	return map[string]any{
		"system":  system,
		"history": arkMessages(req.Turns()),
	}
}

func arkMessages(turns []chat.Message) []*schema.Message {
	messages := make([]*schema.Message, 0, len(turns))
	for _, turn := range turns {
		switch turn.Role {
		case chat.RoleAssistant:
			messages = append(messages, schema.AssistantMessage(turn.Content, nil))
		case chat.RoleUser:
			if !turn.HasImage() {
				messages = append(messages, schema.UserMessage(turn.Content))
				continue
			}
			parts := make([]schema.ChatMessagePart, 0, 2)
			if turn.Content != "" {
				parts = append(parts, schema.ChatMessagePart{Type: schema.ChatMessagePartTypeText, Text: turn.Content})
			}
			parts = append(parts, schema.ChatMessagePart{
				Type:     schema.ChatMessagePartTypeImageURL,
				ImageURL: &schema.ChatMessageImageURL{URL: dataURL(turn.Image)},
			})
			messages = append(messages, &schema.Message{Role: schema.User, MultiContent: parts})
		}
	}
	return messages
}

func dataURL(img *chat.Image) string {
	return "data:" + img.MIMEType + ";base64," + base64.StdEncoding.EncodeToString(img.Data)
}

// arkOverloadSignals are the lowercased fragments Ark puts in overload errors.
var arkOverloadSignals = []string{
	"status code: 503",
	"serveroverloaded",
	"service unavailable",
}

// classifyArkError marks Ark overload responses. The SDK only exposes them as text.
func classifyArkError(err error) error {
	msg := strings.ToLower(err.Error())
	for _, signal := range arkOverloadSignals {
		if strings.Contains(msg, signal) {
			return fmt.Errorf("%w: %w", ErrOverloaded, err)
		}
	}
	return err
}
