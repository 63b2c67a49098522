package tools

import (
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/foundry-9/quilltap/chat"
	"github.com/foundry-9/quilltap/llm"
)

// imageProvider satisfies llm.Provider for the image path only.
type imageProvider struct {
	llm.Provider
	lastPrompt string
}

func (p *imageProvider) GenerateImage(ctx context.Context, req *llm.ImageRequest) (*llm.ImageResponse, error) {
	p.lastPrompt = req.Prompt
	return &llm.ImageResponse{
		Images: []llm.GeneratedImage{{MimeType: "image/png", Data: []byte{1, 2, 3}}},
	}, nil
}

type memSink struct {
	saved int
}

func (s *memSink) SaveImage(ctx context.Context, chatID string, img llm.GeneratedImage) (string, error) {
	s.saved++
	return "https://cdn.example/" + chatID + "/1.png", nil
}

func TestGenerateImageTool(t *testing.T) {
	provider := &imageProvider{}
	sink := &memSink{}

	r := NewRegistry(zerolog.Nop())
	r.RegisterImageGeneration(provider, "gemini-2.5-flash-image", sink)

	call := llm.ToolCallRequest{
		Name:      "generate_image",
		Arguments: map[string]any{"prompt": "a portrait of {{user}} in oil paint"},
	}
	execCtx := chat.ExecutionContext{ChatID: "c1", Participant: "Ada"}

	result, err := r.Execute(context.Background(), call, execCtx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Success {
		t.Fatalf("expected success, got %+v", result)
	}

	if !strings.Contains(provider.lastPrompt, "Ada") || strings.Contains(provider.lastPrompt, "{{user}}") {
		t.Errorf("expected speaker placeholder resolved, got %q", provider.lastPrompt)
	}
	if sink.saved != 1 {
		t.Errorf("expected the image stored once, got %d", sink.saved)
	}

	payload, ok := result.Result.(map[string]any)
	if !ok {
		t.Fatalf("unexpected result shape: %T", result.Result)
	}
	if url, _ := payload["url"].(string); !strings.HasPrefix(url, "https://cdn.example/c1/") {
		t.Errorf("expected stored image url, got %v", payload["url"])
	}
}

func TestGenerateImageToolRequiresPrompt(t *testing.T) {
	r := NewRegistry(zerolog.Nop())
	r.RegisterImageGeneration(&imageProvider{}, "", nil)

	call := llm.ToolCallRequest{Name: "generate_image", Arguments: map[string]any{}}
	result, err := r.Execute(context.Background(), call, chat.ExecutionContext{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Success || !strings.Contains(result.Error, "prompt") {
		t.Errorf("expected a prompt validation failure, got %+v", result)
	}
}

func TestGenerateImageToolWithoutSink(t *testing.T) {
	r := NewRegistry(zerolog.Nop())
	r.RegisterImageGeneration(&imageProvider{}, "", nil)

	call := llm.ToolCallRequest{Name: "generate_image", Arguments: map[string]any{"prompt": "a cat"}}
	result, err := r.Execute(context.Background(), call, chat.ExecutionContext{ChatID: "c1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Success {
		t.Fatalf("expected success, got %+v", result)
	}
	payload := result.Result.(map[string]any)
	if payload["bytes"] != 3 {
		t.Errorf("expected byte count reported, got %v", payload["bytes"])
	}
}
