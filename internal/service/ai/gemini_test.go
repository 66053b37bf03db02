package ai

import (
	"errors"
	"fmt"
	"testing"

	"google.golang.org/genai"

	"github.com/sadat-shakeeb/gemini-partner/backend/internal/model/chat"
)

func TestGeminiContentsMapsRolesAndImages(t *testing.T) {
	turns := []chat.Message{
		{Role: chat.RoleUser, Content: "hi"},
		{Role: chat.RoleAssistant, Content: "hello"},
		{Role: chat.RoleUser, Content: "what is this", Image: &chat.Image{MIMEType: "image/png", Data: []byte{1}}},
		{Role: chat.RoleUser},
	}

	contents := geminiContents(turns)
	if len(contents) != 3 {
		t.Fatalf("expected empty turn to be skipped, got %d contents", len(contents))
	}
	if contents[1].Role != string(genai.RoleModel) {
		t.Fatalf("expected model role, got %q", contents[1].Role)
	}
	last := contents[2]
	if len(last.Parts) != 2 || last.Parts[0].Text != "what is this" {
		t.Fatalf("unexpected parts %+v", last.Parts)
	}
	if last.Parts[1].InlineData == nil || last.Parts[1].InlineData.MIMEType != "image/png" {
		t.Fatalf("expected inline image part, got %+v", last.Parts[1])
	}
}

func TestClassifyGeminiError(t *testing.T) {
	unavailable := genai.APIError{Code: 503, Status: "UNAVAILABLE", Message: "The model is overloaded."}
	if err := classifyGeminiError(fmt.Errorf("stream: %w", unavailable)); !IsTransient(err) {
		t.Fatalf("expected 503 to be transient, got %v", err)
	}

	quota := genai.APIError{Code: 429, Status: "RESOURCE_EXHAUSTED"}
	if err := classifyGeminiError(quota); IsTransient(err) {
		t.Fatal("quota errors must not be retried")
	}

	if err := classifyGeminiError(errors.New("dial tcp: timeout")); IsTransient(err) {
		t.Fatal("network errors must not be retried")
	}
}

func TestGeminiGenerateConfig(t *testing.T) {
	temp := 0.4
	tokens := 256
	p := &GeminiProvider{model: "gemini-2.5-flash", temperature: &temp, maxTokens: &tokens}

	cfg := p.generateConfig(Request{SystemPrompt: "be brief"})
	if cfg.SystemInstruction == nil || cfg.SystemInstruction.Parts[0].Text != "be brief" {
		t.Fatalf("unexpected system instruction %+v", cfg.SystemInstruction)
	}
	if cfg.Temperature == nil || *cfg.Temperature != float32(0.4) {
		t.Fatalf("unexpected temperature %v", cfg.Temperature)
	}
	if cfg.MaxOutputTokens != 256 {
		t.Fatalf("unexpected max tokens %d", cfg.MaxOutputTokens)
	}

	bare := (&GeminiProvider{}).generateConfig(Request{})
	if bare.SystemInstruction != nil || bare.Temperature != nil {
		t.Fatal("expected empty config")
	}
}
