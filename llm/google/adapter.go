// Package google implements the llm.Provider contract for Google's Gemini
// API using the google.golang.org/genai SDK. It covers streaming chat,
// function calling, and image generation.
package google

import (
	"context"
	"strings"

	"github.com/rs/zerolog"
	"google.golang.org/genai"

	"github.com/foundry-9/quilltap/llm"
)

const defaultImageModel = "gemini-2.5-flash-image"

// Adapter implements llm.Provider for Google Gemini.
type Adapter struct {
	client *genai.Client
	model  string
	logger zerolog.Logger
}

// New creates a Gemini provider against the Gemini API backend.
func New(apiKey, model string, logger zerolog.Logger) (*Adapter, error) {
	if apiKey == "" {
		return nil, llm.NewConfigurationError(llm.ProviderGoogle, "API key")
	}
	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, llm.NewProviderError("failed to create Gemini client", err)
	}
	return &Adapter{
		client: client,
		model:  model,
		logger: logger,
	}, nil
}

func (a *Adapter) Name() string { return llm.ProviderGoogle }

func (a *Adapter) SupportsFileAttachments() bool { return true }

func (a *Adapter) SupportedMimeTypes() []string {
	return append([]string(nil), supportedMimeTypes...)
}

func (a *Adapter) SupportsImageGeneration() bool { return true }

func (a *Adapter) SupportsNativeWebSearch() bool { return false }

// SendMessage sends a request and blocks for the complete response.
func (a *Adapter) SendMessage(ctx context.Context, req *llm.Request) (*llm.Response, error) {
	outcome := &llm.AttachmentOutcome{}
	contents, config := buildContents(req, outcome)

	result, err := a.client.Models.GenerateContent(ctx, a.modelFor(req), contents, config)
	if err != nil {
		return nil, llm.NewProviderError("gemini request failed", err)
	}

	var text strings.Builder
	if len(result.Candidates) > 0 && result.Candidates[0].Content != nil {
		for _, part := range result.Candidates[0].Content.Parts {
			text.WriteString(part.Text)
		}
	}

	response := &llm.Response{
		Content:     text.String(),
		Attachments: outcome,
		Raw:         result,
	}
	if len(result.Candidates) > 0 {
		response.StopReason = string(result.Candidates[0].FinishReason)
	}
	if result.UsageMetadata != nil {
		response.Usage = usageFromMetadata(result.UsageMetadata)
	}
	return response, nil
}

// StreamMessage sends a request and returns a pull iterator over the
// response events.
func (a *Adapter) StreamMessage(ctx context.Context, req *llm.Request) (llm.Stream, error) {
	outcome := &llm.AttachmentOutcome{}
	contents, config := buildContents(req, outcome)

	chunks := a.client.Models.GenerateContentStream(ctx, a.modelFor(req), contents, config)
	return newContentStream(ctx, chunks, outcome, a.logger), nil
}

// ValidateAPIKey probes the key by starting a model listing.
func (a *Adapter) ValidateAPIKey(ctx context.Context) bool {
	for _, err := range a.client.Models.All(ctx) {
		if err != nil {
			a.logger.Debug().Err(err).Msg("gemini API key validation failed")
			return false
		}
		return true
	}
	return true
}

// AvailableModels lists model names, best effort.
func (a *Adapter) AvailableModels(ctx context.Context) []string {
	var models []string
	for model, err := range a.client.Models.All(ctx) {
		if err != nil {
			a.logger.Debug().Err(err).Msg("gemini model listing failed")
			return nil
		}
		models = append(models, strings.TrimPrefix(model.Name, "models/"))
	}
	return models
}

// GenerateImage generates images with a Gemini image model. Images come back
// as inline data parts alongside any explanatory text.
func (a *Adapter) GenerateImage(ctx context.Context, req *llm.ImageRequest) (*llm.ImageResponse, error) {
	model := req.Model
	if model == "" {
		model = defaultImageModel
	}

	result, err := a.client.Models.GenerateContent(ctx, model, genai.Text(req.Prompt), nil)
	if err != nil {
		return nil, llm.NewProviderError("gemini image generation failed", err)
	}
	if len(result.Candidates) == 0 || result.Candidates[0].Content == nil {
		return nil, llm.NewProviderError("gemini returned no candidates", nil)
	}

	response := &llm.ImageResponse{Raw: result}
	for _, part := range result.Candidates[0].Content.Parts {
		if part.InlineData == nil {
			continue
		}
		response.Images = append(response.Images, llm.GeneratedImage{
			MimeType: part.InlineData.MIMEType,
			Data:     part.InlineData.Data,
		})
	}
	if len(response.Images) == 0 {
		return nil, llm.NewProviderError("gemini returned no image data", nil)
	}
	return response, nil
}

func (a *Adapter) modelFor(req *llm.Request) string {
	if req.Model != "" {
		return req.Model
	}
	return a.model
}

func usageFromMetadata(metadata *genai.GenerateContentResponseUsageMetadata) *llm.Usage {
	return &llm.Usage{
		PromptTokens:     int64(metadata.PromptTokenCount),
		CompletionTokens: int64(metadata.CandidatesTokenCount),
		TotalTokens:      int64(metadata.TotalTokenCount),
	}
}

var _ llm.Provider = (*Adapter)(nil)
