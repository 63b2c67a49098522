package anthropic

import (
	"encoding/base64"
	"fmt"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/samber/lo"

	"github.com/foundry-9/quilltap/llm"
)

const defaultMaxTokens = 4096

var supportedMimeTypes = []string{
	"image/png", "image/jpeg", "image/gif", "image/webp",
	"application/pdf",
	"text/*",
}

// buildParams converts a canonical request into Anthropic API params. The
// system prompt travels as a top-level block list, not as a message, so it is
// extracted from the message slice first. Attachment failures are collected
// into outcome rather than failing the request.
func buildParams(req *llm.Request, outcome *llm.AttachmentOutcome) (anthropic.MessageNewParams, error) {
	system, rest := llm.SystemPrompt(req.Messages)

	messages := make([]anthropic.MessageParam, 0, len(rest))
	for _, msg := range rest {
		messages = append(messages, buildMessage(msg, outcome))
	}

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(req.Model),
		MaxTokens: maxTokens,
		Messages:  messages,
	}
	if system != "" {
		params.System = buildSystemBlocks(system)
	}
	if len(req.Tools) > 0 {
		params.Tools = buildTools(req.Tools)
	}
	if req.WebSearchEnabled {
		// Server-side web search is a vendor tool, not a function
		// declaration, so it rides alongside the converted tool list.
		params.Tools = append(params.Tools, anthropic.ToolUnionParam{
			OfWebSearchTool20250305: &anthropic.WebSearchTool20250305Param{},
		})
	}
	if len(req.Stop) > 0 {
		params.StopSequences = req.Stop
	}

	temperature, topP := llm.ResolveSampling(req)
	if temperature != nil {
		params.Temperature = anthropic.Float(*temperature)
	} else if topP != nil {
		params.TopP = anthropic.Float(*topP)
	}

	return params, nil
}

// buildMessage converts one canonical message. Tool-result messages arrive
// already re-expressed as user text, so only the user/assistant distinction
// matters on the wire.
func buildMessage(msg llm.Message, outcome *llm.AttachmentOutcome) anthropic.MessageParam {
	blocks := make([]anthropic.ContentBlockParamUnion, 0, 1+len(msg.Attachments))
	if msg.Content != "" {
		blocks = append(blocks, anthropic.NewTextBlock(msg.Content))
	}

	for i := range msg.Attachments {
		att := &msg.Attachments[i]
		block, err := buildAttachmentBlock(att)
		if err != nil {
			outcome.AddFailed(att.ID, err.Error())
			continue
		}
		blocks = append(blocks, block)
		outcome.AddSent(att.ID)
	}

	if len(blocks) == 0 {
		blocks = append(blocks, anthropic.NewTextBlock(msg.Content))
	}

	if msg.Role == llm.RoleAssistant {
		return anthropic.NewAssistantMessage(blocks...)
	}
	return anthropic.NewUserMessage(blocks...)
}

func buildAttachmentBlock(att *llm.Attachment) (anthropic.ContentBlockParamUnion, error) {
	if !att.Fetched() {
		return anthropic.ContentBlockParamUnion{}, fmt.Errorf("attachment %s has no data", att.Filename)
	}
	if !llm.MimeSupported(att.MimeType, supportedMimeTypes) {
		return anthropic.ContentBlockParamUnion{}, fmt.Errorf("unsupported mime type %s", att.MimeType)
	}

	switch {
	case att.MimeType == "application/pdf":
		return anthropic.NewDocumentBlock(anthropic.Base64PDFSourceParam{
			Data: base64.StdEncoding.EncodeToString(att.Data),
		}), nil
	case llm.IsTextMime(att.MimeType):
		text := fmt.Sprintf("Attachment %s:\n%s", att.Filename, string(att.Data))
		return anthropic.NewTextBlock(text), nil
	default:
		return anthropic.NewImageBlockBase64(att.MimeType, base64.StdEncoding.EncodeToString(att.Data)), nil
	}
}

// buildSystemBlocks creates the system block list with prompt caching enabled.
// Cache control on the system block caches the full prefix (tools, system) for
// repeated requests in the same conversation.
func buildSystemBlocks(systemPrompt string) []anthropic.TextBlockParam {
	return []anthropic.TextBlockParam{
		{Text: systemPrompt, CacheControl: anthropic.NewCacheControlEphemeralParam()},
	}
}

func buildTools(tools []llm.Tool) []anthropic.ToolUnionParam {
	return lo.Map(tools, func(t llm.Tool, _ int) anthropic.ToolUnionParam {
		dialect := llm.ToAnthropicTool(t)
		return anthropic.ToolUnionParam{
			OfTool: &anthropic.ToolParam{
				Name:        dialect.Name,
				Description: anthropic.String(dialect.Description),
				InputSchema: anthropic.ToolInputSchemaParam{
					Type:       "object",
					Properties: dialect.InputSchema["properties"],
					Required:   stringSlice(dialect.InputSchema["required"]),
				},
			},
		}
	})
}

// stringSlice coerces a schema "required" value, which may arrive as
// []string or as []any after a JSON roundtrip.
func stringSlice(v any) []string {
	switch vals := v.(type) {
	case []string:
		return vals
	case []any:
		out := make([]string, 0, len(vals))
		for _, item := range vals {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}
