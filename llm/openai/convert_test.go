package openai

import (
	"strings"
	"testing"

	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"

	"github.com/foundry-9/quilltap/llm"
)

func newTestAdapter(t *testing.T) *Adapter {
	t.Helper()
	a, err := New("sk-test", "", "gpt-4o", zerolog.Nop())
	if err != nil {
		t.Fatalf("failed to create adapter: %v", err)
	}
	return a
}

func TestBuildChatRequestAttachmentPartialFailure(t *testing.T) {
	a := newTestAdapter(t)

	req := &llm.Request{
		Messages: []llm.Message{{
			Role:    llm.RoleUser,
			Content: "look at these",
			Attachments: []llm.Attachment{
				{ID: "a1", MimeType: "image/png", Data: []byte{1}},
				{ID: "a2", MimeType: "application/zip", Data: []byte{2}},
				{ID: "a3", MimeType: "image/jpeg"}, // data never fetched
			},
		}},
	}

	chatReq, outcome, err := a.buildChatRequest(req, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(outcome.Sent) != 1 || outcome.Sent[0] != "a1" {
		t.Errorf("expected only a1 sent, got %+v", outcome.Sent)
	}
	if len(outcome.Failed) != 2 {
		t.Fatalf("expected two failures, got %+v", outcome.Failed)
	}
	for _, f := range outcome.Failed {
		if f.ID != "a2" && f.ID != "a3" {
			t.Errorf("unexpected failed attachment: %+v", f)
		}
	}

	// The message still goes out with the text and the surviving image.
	msg := chatReq.Messages[0]
	if len(msg.MultiContent) != 2 {
		t.Errorf("expected text part plus one image part, got %d parts", len(msg.MultiContent))
	}
	if !strings.HasPrefix(msg.MultiContent[1].ImageURL.URL, "data:image/png;base64,") {
		t.Errorf("unexpected image part: %q", msg.MultiContent[1].ImageURL.URL)
	}
}

func TestBuildChatRequestAllAttachmentsFailed(t *testing.T) {
	a := newTestAdapter(t)

	req := &llm.Request{
		Messages: []llm.Message{{
			Role:        llm.RoleUser,
			Content:     "just text after all",
			Attachments: []llm.Attachment{{ID: "a1", MimeType: "application/zip", Data: []byte{1}}},
		}},
	}

	chatReq, outcome, err := a.buildChatRequest(req, false)
	if err != nil {
		t.Fatalf("attachment failures must never abort the request: %v", err)
	}
	if len(outcome.Failed) != 1 {
		t.Fatalf("expected one failure, got %+v", outcome.Failed)
	}
	msg := chatReq.Messages[0]
	if msg.Content != "just text after all" || len(msg.MultiContent) != 0 {
		t.Errorf("expected fallback to plain content, got %+v", msg)
	}
}

func TestBuildChatRequestSampling(t *testing.T) {
	a := newTestAdapter(t)
	temp := 0.3
	topP := 0.8

	both, _, err := a.buildChatRequest(&llm.Request{Temperature: &temp, TopP: &topP}, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if both.Temperature != float32(temp) || both.TopP != 0 {
		t.Errorf("expected temperature to win over top_p, got temp=%v topP=%v", both.Temperature, both.TopP)
	}

	neither, _, err := a.buildChatRequest(&llm.Request{}, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if neither.Temperature != float32(llm.DefaultTemperature) {
		t.Errorf("expected default temperature, got %v", neither.Temperature)
	}
}

func TestBuildChatRequestTools(t *testing.T) {
	a := newTestAdapter(t)

	req := &llm.Request{
		Tools: []llm.Tool{llm.NewFunctionTool("web_search", "Search the web", nil)},
	}
	chatReq, _, err := a.buildChatRequest(req, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chatReq.Tools) != 1 || chatReq.Tools[0].Function.Name != "web_search" {
		t.Errorf("unexpected tools: %+v", chatReq.Tools)
	}
	if chatReq.ToolChoice != "auto" {
		t.Errorf("expected auto tool choice, got %v", chatReq.ToolChoice)
	}
}

func TestBuildChatRequestStreamOptions(t *testing.T) {
	a := newTestAdapter(t)

	streaming, _, err := a.buildChatRequest(&llm.Request{}, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !streaming.Stream || streaming.StreamOptions == nil || !streaming.StreamOptions.IncludeUsage {
		t.Errorf("expected streaming request to ask for the usage chunk")
	}

	blocking, _, err := a.buildChatRequest(&llm.Request{}, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if blocking.Stream || blocking.StreamOptions != nil {
		t.Errorf("expected non-streaming request without stream options")
	}
}

func TestBuildChatRequestModelRequired(t *testing.T) {
	a, err := New("sk-test", "", "", zerolog.Nop())
	if err != nil {
		t.Fatalf("failed to create adapter: %v", err)
	}
	if _, _, err := a.buildChatRequest(&llm.Request{}, false); err == nil {
		t.Errorf("expected error when no model is configured or requested")
	}
}

func TestChatRoleMapping(t *testing.T) {
	tests := []struct {
		role llm.MessageRole
		want string
	}{
		{llm.RoleSystem, openai.ChatMessageRoleSystem},
		{llm.RoleUser, openai.ChatMessageRoleUser},
		{llm.RoleAssistant, openai.ChatMessageRoleAssistant},
		{llm.RoleTool, openai.ChatMessageRoleUser},
	}
	for _, tt := range tests {
		if got := chatRole(tt.role); got != tt.want {
			t.Errorf("chatRole(%q) = %q, want %q", tt.role, got, tt.want)
		}
	}
}

func TestBuildChatMessageEncodesByMimeClass(t *testing.T) {
	a, err := NewWithProfile("sk-test", "gpt-4o", Profile{
		Name:      llm.ProviderOpenRouter,
		MimeTypes: []string{"image/png", "text/*"},
	}, zerolog.Nop())
	if err != nil {
		t.Fatalf("failed to create adapter: %v", err)
	}

	req := &llm.Request{
		Messages: []llm.Message{{
			Role:    llm.RoleUser,
			Content: "see attached",
			Attachments: []llm.Attachment{
				{ID: "a1", Filename: "notes.txt", MimeType: "text/plain", Data: []byte("hello")},
				{ID: "a2", Filename: "pic.png", MimeType: "image/png", Data: []byte{1}},
			},
		}},
	}

	chatReq, outcome, err := a.buildChatRequest(req, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(outcome.Sent) != 2 {
		t.Fatalf("expected both attachments sent, got %+v", outcome)
	}

	parts := chatReq.Messages[0].MultiContent
	if len(parts) != 3 {
		t.Fatalf("expected text, attachment text and image parts, got %d", len(parts))
	}

	// Text attachments become inline text parts, never image URLs.
	text := parts[1]
	if text.Type != openai.ChatMessagePartTypeText || text.ImageURL != nil {
		t.Errorf("text attachment encoded as %q part", text.Type)
	}
	if !strings.Contains(text.Text, "notes.txt") || !strings.Contains(text.Text, "hello") {
		t.Errorf("text attachment content lost: %q", text.Text)
	}

	image := parts[2]
	if image.Type != openai.ChatMessagePartTypeImageURL || image.ImageURL == nil {
		t.Errorf("image attachment encoded as %q part", image.Type)
	}
}

func TestBuildChatMessageRejectsUnencodableMime(t *testing.T) {
	a, err := NewWithProfile("sk-test", "gpt-4o", Profile{
		Name:      llm.ProviderOpenRouter,
		MimeTypes: []string{"application/pdf"},
	}, zerolog.Nop())
	if err != nil {
		t.Fatalf("failed to create adapter: %v", err)
	}

	req := &llm.Request{
		Messages: []llm.Message{{
			Role:        llm.RoleUser,
			Content:     "read this",
			Attachments: []llm.Attachment{{ID: "a1", Filename: "doc.pdf", MimeType: "application/pdf", Data: []byte{1}}},
		}},
	}

	chatReq, outcome, err := a.buildChatRequest(req, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(outcome.Failed) != 1 || outcome.Failed[0].ID != "a1" {
		t.Fatalf("expected the pdf recorded as failed, got %+v", outcome)
	}
	// The message still carries the text, never a mislabeled image part.
	if chatReq.Messages[0].MultiContent[0].Type != openai.ChatMessagePartTypeText {
		t.Errorf("unexpected parts: %+v", chatReq.Messages[0].MultiContent)
	}
}

func TestBuildToolsCapsDescriptionLength(t *testing.T) {
	long := strings.Repeat("x", 4*maxToolDescriptionBytes)
	tools := buildTools([]llm.Tool{llm.NewFunctionTool("generate_image", long, nil)})

	desc := tools[0].Function.Description
	if len(desc) > maxToolDescriptionBytes {
		t.Errorf("description not capped: %d bytes", len(desc))
	}
	if !strings.HasSuffix(desc, "length limit]") {
		t.Errorf("expected truncation notice suffix, got %q", desc[len(desc)-40:])
	}

	short := buildTools([]llm.Tool{llm.NewFunctionTool("get_weather", "Current weather", nil)})
	if short[0].Function.Description != "Current weather" {
		t.Errorf("short description modified: %q", short[0].Function.Description)
	}
}
