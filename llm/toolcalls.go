package llm

import (
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"
)

// The parsers below extract structured tool calls from a fully-drained raw
// response. They accept whatever shape an adapter reconstructed (typed struct
// or map) and traverse it through a JSON view, mirroring each vendor's wire
// format. An empty result is a valid "no tool calls" outcome, never an error.

// ParseOpenAIToolCalls extracts tool calls from an OpenAI-style response.
// tool_calls may appear at the top level (a bare message object) or under
// choices[0].message (a full completion object). Entries must have
// type "function". Arguments arrive as a JSON string (empty parses to {});
// object-valued arguments, as produced by Ollama, are accepted as-is.
// A malformed entry is logged and skipped without dropping the others.
func ParseOpenAIToolCalls(raw any, logger zerolog.Logger) []ToolCallRequest {
	m, ok := toJSONMap(raw)
	if !ok {
		return nil
	}

	calls, ok := m["tool_calls"].([]any)
	if !ok {
		if msg, ok := dig(m, "choices", 0, "message"); ok {
			calls, _ = msg["tool_calls"].([]any)
		}
	}

	out := make([]ToolCallRequest, 0, len(calls))
	for _, entry := range calls {
		call, err := parseOpenAIToolCallEntry(entry)
		if err != nil {
			logger.Error().Err(err).Msg("skipping malformed tool call entry")
			continue
		}
		out = append(out, call)
	}
	return out
}

func parseOpenAIToolCallEntry(entry any) (ToolCallRequest, error) {
	e, ok := entry.(map[string]any)
	if !ok {
		return ToolCallRequest{}, fmt.Errorf("tool call entry is not an object")
	}
	if t, _ := e["type"].(string); t != "function" {
		return ToolCallRequest{}, fmt.Errorf("unexpected tool call type %q", e["type"])
	}
	fn, ok := e["function"].(map[string]any)
	if !ok {
		return ToolCallRequest{}, fmt.Errorf("tool call entry has no function")
	}
	name, _ := fn["name"].(string)
	if name == "" {
		return ToolCallRequest{}, fmt.Errorf("tool call entry has no function name")
	}

	args := map[string]any{}
	switch v := fn["arguments"].(type) {
	case string:
		if v != "" {
			if err := json.Unmarshal([]byte(v), &args); err != nil {
				return ToolCallRequest{}, fmt.Errorf("parse arguments for %s: %w", name, err)
			}
		}
	case map[string]any:
		args = v
	case nil:
	default:
		return ToolCallRequest{}, fmt.Errorf("unexpected arguments type %T for %s", v, name)
	}

	return ToolCallRequest{Name: name, Arguments: args}, nil
}

// ParseAnthropicToolCalls extracts tool calls from an Anthropic-style
// response: content blocks with type "tool_use", input pre-parsed as an object.
func ParseAnthropicToolCalls(raw any, logger zerolog.Logger) []ToolCallRequest {
	m, ok := toJSONMap(raw)
	if !ok {
		return nil
	}
	blocks, _ := m["content"].([]any)

	var out []ToolCallRequest
	for _, entry := range blocks {
		block, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		if t, _ := block["type"].(string); t != "tool_use" {
			continue
		}
		name, _ := block["name"].(string)
		if name == "" {
			logger.Error().Msg("skipping tool_use block without a name")
			continue
		}
		input, _ := block["input"].(map[string]any)
		if input == nil {
			input = map[string]any{}
		}
		out = append(out, ToolCallRequest{Name: name, Arguments: input})
	}
	return out
}

// ParseGoogleToolCalls extracts tool calls from a Google-style response:
// candidates[0].content.parts entries carrying a functionCall with args
// pre-parsed as an object.
func ParseGoogleToolCalls(raw any, logger zerolog.Logger) []ToolCallRequest {
	m, ok := toJSONMap(raw)
	if !ok {
		return nil
	}
	content, ok := dig(m, "candidates", 0, "content")
	if !ok {
		return nil
	}
	parts, _ := content["parts"].([]any)

	var out []ToolCallRequest
	for _, entry := range parts {
		part, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		fc, ok := part["functionCall"].(map[string]any)
		if !ok {
			continue
		}
		name, _ := fc["name"].(string)
		if name == "" {
			logger.Error().Msg("skipping functionCall without a name")
			continue
		}
		args, _ := fc["args"].(map[string]any)
		if args == nil {
			args = map[string]any{}
		}
		out = append(out, ToolCallRequest{Name: name, Arguments: args})
	}
	return out
}

// toJSONMap views raw through its JSON encoding so parsers work uniformly on
// typed structs and maps.
func toJSONMap(raw any) (map[string]any, bool) {
	if raw == nil {
		return nil, false
	}
	if m, ok := raw.(map[string]any); ok {
		return m, true
	}
	b, err := json.Marshal(raw)
	if err != nil {
		return nil, false
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, false
	}
	return m, true
}

// dig walks a JSON map along keys; an int key indexes into an array.
func dig(m map[string]any, path ...any) (map[string]any, bool) {
	var cur any = m
	for _, p := range path {
		switch key := p.(type) {
		case string:
			obj, ok := cur.(map[string]any)
			if !ok {
				return nil, false
			}
			cur, ok = obj[key]
			if !ok {
				return nil, false
			}
		case int:
			arr, ok := cur.([]any)
			if !ok || key < 0 || key >= len(arr) {
				return nil, false
			}
			cur = arr[key]
		}
	}
	out, ok := cur.(map[string]any)
	return out, ok
}
