package ollama

import (
	"strings"
	"testing"

	"github.com/ollama/ollama/api"
	"github.com/rs/zerolog"

	"github.com/foundry-9/quilltap/llm"
)

func TestMergeToolCall(t *testing.T) {
	var calls []api.ToolCall

	calls = mergeToolCall(calls, api.ToolCall{Function: api.ToolCallFunction{
		Name:      "get_weather",
		Arguments: api.ToolCallFunctionArguments{"city": "Oslo"},
	}})
	calls = mergeToolCall(calls, api.ToolCall{Function: api.ToolCallFunction{
		Name:      "get_weather",
		Arguments: api.ToolCallFunctionArguments{"unit": "celsius"},
	}})
	calls = mergeToolCall(calls, api.ToolCall{Function: api.ToolCallFunction{
		Name:      "web_search",
		Arguments: api.ToolCallFunctionArguments{"query": "news"},
	}})

	if len(calls) != 2 {
		t.Fatalf("expected 2 distinct calls, got %d", len(calls))
	}
	weather := calls[0].Function
	if weather.Arguments["city"] != "Oslo" || weather.Arguments["unit"] != "celsius" {
		t.Errorf("expected argument maps merged, got %+v", weather.Arguments)
	}
}

func TestRawFromToolCallsSynthesizesWireShape(t *testing.T) {
	raw := rawFromToolCalls("Checking.", []api.ToolCall{
		{Function: api.ToolCallFunction{
			Name:      "get_weather",
			Arguments: api.ToolCallFunctionArguments{"city": "Oslo"},
		}},
	})

	if raw.Role != "assistant" || raw.Content != "Checking." {
		t.Errorf("unexpected raw message: %+v", raw)
	}
	if len(raw.ToolCalls) != 1 {
		t.Fatalf("expected one tool call, got %d", len(raw.ToolCalls))
	}
	call := raw.ToolCalls[0]
	if call.Type != "function" {
		t.Errorf("expected synthesized function type, got %q", call.Type)
	}
	if !strings.HasPrefix(call.ID, "call_") {
		t.Errorf("expected synthesized call id, got %q", call.ID)
	}

	// The synthesized shape must satisfy the OpenAI-family parser.
	parsed := llm.ParseOpenAIToolCalls(raw, zerolog.Nop())
	if len(parsed) != 1 || parsed[0].Name != "get_weather" || parsed[0].Arguments["city"] != "Oslo" {
		t.Errorf("unexpected parsed calls: %+v", parsed)
	}
}

func TestParseHost(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"http://localhost:11434", "http://localhost:11434"},
		{"https://gpu-box:11434", "https://gpu-box:11434"},
		{"gpu-box:11434", "http://gpu-box:11434"},
	}

	for _, tt := range tests {
		u, err := parseHost(tt.in)
		if err != nil {
			t.Fatalf("parseHost(%q): %v", tt.in, err)
		}
		if u.String() != tt.want {
			t.Errorf("parseHost(%q) = %q, want %q", tt.in, u.String(), tt.want)
		}
	}
}
