package ollama

import (
	"fmt"

	"github.com/ollama/ollama/api"

	"github.com/foundry-9/quilltap/llm"
)

var supportedMimeTypes = []string{
	"image/png", "image/jpeg",
	"text/*",
}

// buildChatRequest converts a canonical request into an Ollama chat request.
// Ollama accepts system messages in the message array directly, so no system
// extraction is needed. Image attachments ride in the message's Images field;
// text attachments are inlined into the content.
func buildChatRequest(req *llm.Request, model string, stream bool) (*api.ChatRequest, *llm.AttachmentOutcome) {
	outcome := &llm.AttachmentOutcome{}

	messages := make([]api.Message, 0, len(req.Messages))
	for _, msg := range req.Messages {
		messages = append(messages, buildMessage(msg, outcome))
	}

	chatReq := &api.ChatRequest{
		Model:    model,
		Messages: messages,
		Stream:   &stream,
		Options:  make(map[string]any),
	}

	if len(req.Tools) > 0 {
		chatReq.Tools = buildTools(req.Tools)
	}
	if req.MaxTokens > 0 {
		chatReq.Options["num_predict"] = int(req.MaxTokens)
	}
	if len(req.Stop) > 0 {
		chatReq.Options["stop"] = req.Stop
	}

	temperature, topP := llm.ResolveSampling(req)
	if temperature != nil {
		chatReq.Options["temperature"] = *temperature
	} else if topP != nil {
		chatReq.Options["top_p"] = *topP
	}

	return chatReq, outcome
}

func buildMessage(msg llm.Message, outcome *llm.AttachmentOutcome) api.Message {
	out := api.Message{
		Role:    chatRole(msg.Role),
		Content: msg.Content,
	}

	for i := range msg.Attachments {
		att := &msg.Attachments[i]
		if !att.Fetched() {
			outcome.AddFailed(att.ID, fmt.Sprintf("attachment %s has no data", att.Filename))
			continue
		}
		if !llm.MimeSupported(att.MimeType, supportedMimeTypes) {
			outcome.AddFailed(att.ID, fmt.Sprintf("unsupported mime type %s", att.MimeType))
			continue
		}
		if llm.IsTextMime(att.MimeType) {
			out.Content += fmt.Sprintf("\n\nAttachment %s:\n%s", att.Filename, string(att.Data))
		} else {
			out.Images = append(out.Images, api.ImageData(att.Data))
		}
		outcome.AddSent(att.ID)
	}

	return out
}

func chatRole(role llm.MessageRole) string {
	if role == llm.RoleTool {
		return "user"
	}
	return string(role)
}

// buildTools converts canonical tools to Ollama's typed tool format. Ollama's
// property schema is narrower than raw JSON Schema, so only the type strings
// survive the mapping.
func buildTools(tools []llm.Tool) []api.Tool {
	out := make([]api.Tool, 0, len(tools))
	for _, t := range tools {
		dialect := llm.ToOpenAIFunction(t)

		properties := make(map[string]api.ToolProperty)
		if props, ok := dialect.Parameters["properties"].(map[string]any); ok {
			for name, prop := range props {
				properties[name] = toolProperty(prop)
			}
		}

		var required []string
		switch vals := dialect.Parameters["required"].(type) {
		case []string:
			required = vals
		case []any:
			for _, v := range vals {
				if s, ok := v.(string); ok {
					required = append(required, s)
				}
			}
		}

		out = append(out, api.Tool{
			Type: "function",
			Function: api.ToolFunction{
				Name:        dialect.Name,
				Description: dialect.Description,
				Parameters: api.ToolFunctionParameters{
					Type:       "object",
					Properties: properties,
					Required:   required,
				},
			},
		})
	}
	return out
}

func toolProperty(prop any) api.ToolProperty {
	propMap, ok := prop.(map[string]any)
	if !ok {
		return api.ToolProperty{Type: []string{"string"}}
	}

	out := api.ToolProperty{}
	if t, ok := propMap["type"].(string); ok {
		out.Type = []string{t}
	} else {
		out.Type = []string{"string"}
	}
	if desc, ok := propMap["description"].(string); ok {
		out.Description = desc
	}
	if enum, ok := propMap["enum"].([]any); ok {
		out.Enum = enum
	}
	return out
}
