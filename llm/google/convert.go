package google

import (
	"fmt"

	"google.golang.org/genai"

	"github.com/foundry-9/quilltap/llm"
)

var supportedMimeTypes = []string{
	"image/png", "image/jpeg", "image/gif", "image/webp",
	"application/pdf",
	"audio/mpeg", "audio/wav",
	"text/*",
}

// buildContents converts canonical messages into Gemini contents plus the
// generation config. The system prompt travels as SystemInstruction, and
// assistant turns use the "model" role.
func buildContents(req *llm.Request, outcome *llm.AttachmentOutcome) ([]*genai.Content, *genai.GenerateContentConfig) {
	system, rest := llm.SystemPrompt(req.Messages)

	contents := make([]*genai.Content, 0, len(rest))
	for _, msg := range rest {
		contents = append(contents, buildContent(msg, outcome))
	}

	config := &genai.GenerateContentConfig{}
	if system != "" {
		config.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: system}},
		}
	}
	if req.MaxTokens > 0 {
		config.MaxOutputTokens = int32(req.MaxTokens)
	}
	if len(req.Stop) > 0 {
		config.StopSequences = req.Stop
	}
	if len(req.Tools) > 0 {
		config.Tools = buildTools(req.Tools)
	}

	temperature, topP := llm.ResolveSampling(req)
	if temperature != nil {
		config.Temperature = genai.Ptr(float32(*temperature))
	} else if topP != nil {
		config.TopP = genai.Ptr(float32(*topP))
	}

	return contents, config
}

func buildContent(msg llm.Message, outcome *llm.AttachmentOutcome) *genai.Content {
	parts := make([]*genai.Part, 0, 1+len(msg.Attachments))
	if msg.Content != "" {
		parts = append(parts, &genai.Part{Text: msg.Content})
	}

	for i := range msg.Attachments {
		att := &msg.Attachments[i]
		part, err := buildAttachmentPart(att)
		if err != nil {
			outcome.AddFailed(att.ID, err.Error())
			continue
		}
		parts = append(parts, part)
		outcome.AddSent(att.ID)
	}

	if len(parts) == 0 {
		parts = append(parts, &genai.Part{Text: msg.Content})
	}

	role := genai.RoleUser
	if msg.Role == llm.RoleAssistant {
		role = genai.RoleModel
	}
	return &genai.Content{Role: role, Parts: parts}
}

func buildAttachmentPart(att *llm.Attachment) (*genai.Part, error) {
	if !att.Fetched() {
		return nil, fmt.Errorf("attachment %s has no data", att.Filename)
	}
	if !llm.MimeSupported(att.MimeType, supportedMimeTypes) {
		return nil, fmt.Errorf("unsupported mime type %s", att.MimeType)
	}

	if llm.IsTextMime(att.MimeType) {
		text := fmt.Sprintf("Attachment %s:\n%s", att.Filename, string(att.Data))
		return &genai.Part{Text: text}, nil
	}
	return &genai.Part{
		InlineData: &genai.Blob{MIMEType: att.MimeType, Data: att.Data},
	}, nil
}

// buildTools converts canonical tools to Gemini function declarations. The
// declarations share one genai.Tool as the API expects.
func buildTools(tools []llm.Tool) []*genai.Tool {
	declarations := make([]*genai.FunctionDeclaration, 0, len(tools))
	for _, t := range tools {
		dialect := llm.ToGoogleDeclaration(t)
		declarations = append(declarations, &genai.FunctionDeclaration{
			Name:                 dialect.Name,
			Description:          dialect.Description,
			ParametersJsonSchema: dialect.Parameters,
		})
	}
	return []*genai.Tool{{FunctionDeclarations: declarations}}
}
