package llm

import "unicode/utf8"

// OpenAIFunction is the OpenAI-style tool dialect: a function definition with
// a JSON Schema parameters object. Also consumed by OpenAI-compatible vendors
// (OpenRouter, Grok, Ollama).
type OpenAIFunction struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Parameters  map[string]any `json:"parameters"`
}

// AnthropicTool is the Anthropic tool dialect: the schema travels under
// input_schema.
type AnthropicTool struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	InputSchema map[string]any `json:"input_schema"`
}

// GoogleDeclaration is the Google function-declaration dialect.
type GoogleDeclaration struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Parameters  map[string]any `json:"parameters"`
}

// ToOpenAIFunction derives the OpenAI-style function shape from a canonical tool.
func ToOpenAIFunction(t Tool) OpenAIFunction {
	return OpenAIFunction{
		Name:        t.Function.Name,
		Description: t.Function.Description,
		Parameters:  schemaOrEmpty(t.Function.Parameters),
	}
}

// ToAnthropicTool derives the Anthropic tool shape from a canonical tool.
func ToAnthropicTool(t Tool) AnthropicTool {
	return AnthropicTool{
		Name:        t.Function.Name,
		Description: t.Function.Description,
		InputSchema: schemaOrEmpty(t.Function.Parameters),
	}
}

// ToGoogleDeclaration derives the Google function declaration from a canonical tool.
func ToGoogleDeclaration(t Tool) GoogleDeclaration {
	return GoogleDeclaration{
		Name:        t.Function.Name,
		Description: t.Function.Description,
		Parameters:  schemaOrEmpty(t.Function.Parameters),
	}
}

func schemaOrEmpty(params map[string]any) map[string]any {
	if params == nil {
		return map[string]any{"type": "object", "properties": map[string]any{}}
	}
	return params
}

// truncationNotice is appended to tool descriptions cut down to fit a vendor
// byte cap. Its length counts against the same budget.
const truncationNotice = " [Note: description truncated to fit length limit]"

// ApplyDescriptionLimit truncates a tool's description to at most maxBytes
// bytes, appending a fixed truncation notice within the budget. Some vendors
// impose hard byte caps on tool-use prompts (a 1024-byte image-generation
// prompt limit has been observed on one vendor routed through another). If the
// notice alone exceeds the budget the tool is returned unmodified rather than
// producing a corrupt description. Truncation is idempotent.
func ApplyDescriptionLimit(t Tool, maxBytes int) Tool {
	desc := t.Function.Description
	if len(desc) <= maxBytes {
		return t
	}
	if len(truncationNotice) >= maxBytes {
		return t
	}

	keep := maxBytes - len(truncationNotice)
	// Back off to a rune boundary so the cut never splits a UTF-8 sequence.
	for keep > 0 && !utf8.RuneStart(desc[keep]) {
		keep--
	}

	t.Function.Description = desc[:keep] + truncationNotice
	return t
}
