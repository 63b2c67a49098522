package openai

import (
	"encoding/base64"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/foundry-9/quilltap/llm"
)

// maxToolDescriptionBytes is the vendor cap on function descriptions. Longer
// descriptions are truncated with a notice rather than rejected upstream.
const maxToolDescriptionBytes = 1024

// buildChatRequest applies the shared formatting algorithm: role mapping,
// multi-part attachment encoding with partial-failure collection, tool
// attachment in auto mode, and sampling-parameter resolution. The streaming
// and non-streaming paths use identical formatting.
func (a *Adapter) buildChatRequest(req *llm.Request, stream bool) (openai.ChatCompletionRequest, *llm.AttachmentOutcome, error) {
	if req.Model == "" && a.model == "" {
		return openai.ChatCompletionRequest{}, nil, fmt.Errorf("model is required")
	}
	model := req.Model
	if model == "" {
		model = a.model
	}

	outcome := &llm.AttachmentOutcome{}
	messages := make([]openai.ChatCompletionMessage, 0, len(req.Messages))
	for _, msg := range req.Messages {
		messages = append(messages, a.buildChatMessage(msg, outcome))
	}

	chatReq := openai.ChatCompletionRequest{
		Model:    model,
		Messages: messages,
		Stream:   stream,
	}
	if stream {
		// Usage only arrives on the final chunk when explicitly requested.
		chatReq.StreamOptions = &openai.StreamOptions{IncludeUsage: true}
	}

	if len(req.Tools) > 0 {
		chatReq.Tools = buildTools(req.Tools)
		chatReq.ToolChoice = "auto"
	}

	if req.MaxTokens > 0 {
		chatReq.MaxTokens = int(req.MaxTokens)
	}
	if len(req.Stop) > 0 {
		chatReq.Stop = req.Stop
	}

	temperature, topP := llm.ResolveSampling(req)
	if temperature != nil {
		chatReq.Temperature = float32(*temperature)
	}
	if topP != nil {
		chatReq.TopP = float32(*topP)
	}

	return chatReq, outcome, nil
}

// buildChatMessage converts one canonical message. Messages without
// attachments use the plain-text shape; messages with attachments become a
// multi-part content array. A single failed attachment never aborts the
// message: it is recorded in the outcome and the rest is sent.
func (a *Adapter) buildChatMessage(msg llm.Message, outcome *llm.AttachmentOutcome) openai.ChatCompletionMessage {
	role := chatRole(msg.Role)

	if len(msg.Attachments) == 0 {
		return openai.ChatCompletionMessage{Role: role, Content: msg.Content}
	}

	var parts []openai.ChatMessagePart
	if msg.Content != "" {
		parts = append(parts, openai.ChatMessagePart{
			Type: openai.ChatMessagePartTypeText,
			Text: msg.Content,
		})
	}

	for _, att := range msg.Attachments {
		switch {
		case !llm.MimeSupported(att.MimeType, a.profile.MimeTypes):
			outcome.AddFailed(att.ID, fmt.Sprintf("unsupported MIME type %s", att.MimeType))
		case !att.Fetched():
			outcome.AddFailed(att.ID, "attachment data not available")
		case llm.IsTextMime(att.MimeType):
			parts = append(parts, openai.ChatMessagePart{
				Type: openai.ChatMessagePartTypeText,
				Text: fmt.Sprintf("Attachment %s:\n%s", att.Filename, string(att.Data)),
			})
			outcome.AddSent(att.ID)
		case strings.HasPrefix(att.MimeType, "image/"):
			parts = append(parts, openai.ChatMessagePart{
				Type: openai.ChatMessagePartTypeImageURL,
				ImageURL: &openai.ChatMessageImageURL{
					URL: dataURL(att.MimeType, att.Data),
				},
			})
			outcome.AddSent(att.ID)
		default:
			// Only text and image_url parts exist on this wire shape.
			outcome.AddFailed(att.ID, fmt.Sprintf("no content part encoding for %s", att.MimeType))
		}
	}

	// All attachments failed and there was no text: fall back to the plain
	// shape so the vendor never sees an empty part array.
	if len(parts) == 0 {
		return openai.ChatCompletionMessage{Role: role, Content: msg.Content}
	}

	return openai.ChatCompletionMessage{Role: role, MultiContent: parts}
}

func chatRole(role llm.MessageRole) string {
	switch role {
	case llm.RoleSystem:
		return openai.ChatMessageRoleSystem
	case llm.RoleAssistant:
		return openai.ChatMessageRoleAssistant
	case llm.RoleTool:
		// Canonical tool results are re-expressed as user turns upstream;
		// anything that still carries the tool role is sent the same way.
		return openai.ChatMessageRoleUser
	default:
		return openai.ChatMessageRoleUser
	}
}

// buildTools derives the vendor tool list from canonical definitions.
// Selection is always left to the model ("auto"), never forced.
func buildTools(tools []llm.Tool) []openai.Tool {
	out := make([]openai.Tool, 0, len(tools))
	for _, t := range tools {
		fn := llm.ToOpenAIFunction(llm.ApplyDescriptionLimit(t, maxToolDescriptionBytes))
		out = append(out, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        fn.Name,
				Description: fn.Description,
				Parameters:  fn.Parameters,
			},
		})
	}
	return out
}

func dataURL(mimeType string, data []byte) string {
	return fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(data))
}

func decodeBase64(s string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(s)
}
