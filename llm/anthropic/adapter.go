// Package anthropic implements the llm.Provider contract for Anthropic's
// Messages API using the official Go SDK.
package anthropic

import (
	"context"
	"strings"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rs/zerolog"

	"github.com/foundry-9/quilltap/llm"
)

// Adapter implements llm.Provider for Anthropic.
type Adapter struct {
	client *anthropic.Client
	model  string
	logger zerolog.Logger
}

// New creates an Anthropic provider.
func New(apiKey, model string, logger zerolog.Logger) (*Adapter, error) {
	if apiKey == "" {
		return nil, llm.NewConfigurationError(llm.ProviderAnthropic, "API key")
	}
	client := anthropic.NewClient(option.WithAPIKey(apiKey))
	return &Adapter{
		client: &client,
		model:  model,
		logger: logger,
	}, nil
}

func (a *Adapter) Name() string { return llm.ProviderAnthropic }

func (a *Adapter) SupportsFileAttachments() bool { return true }

func (a *Adapter) SupportedMimeTypes() []string {
	return append([]string(nil), supportedMimeTypes...)
}

func (a *Adapter) SupportsImageGeneration() bool { return false }

// SupportsNativeWebSearch reports true: Claude models can use the server-side
// web search tool, so the orchestrator need not inject a client-side one.
func (a *Adapter) SupportsNativeWebSearch() bool { return true }

// SendMessage sends a request and blocks for the complete response.
func (a *Adapter) SendMessage(ctx context.Context, req *llm.Request) (*llm.Response, error) {
	outcome := &llm.AttachmentOutcome{}
	params, err := buildParams(a.withModel(req), outcome)
	if err != nil {
		return nil, err
	}

	message, err := a.client.Messages.New(ctx, params)
	if err != nil {
		return nil, llm.NewProviderError("anthropic request failed", err)
	}

	var text strings.Builder
	for _, blockUnion := range message.Content {
		if block, ok := blockUnion.AsAny().(anthropic.TextBlock); ok {
			text.WriteString(block.Text)
		}
	}

	return &llm.Response{
		Content: text.String(),
		Usage: &llm.Usage{
			PromptTokens:     message.Usage.InputTokens,
			CompletionTokens: message.Usage.OutputTokens,
			TotalTokens:      message.Usage.InputTokens + message.Usage.OutputTokens,
		},
		Attachments: outcome,
		StopReason:  string(message.StopReason),
		Raw:         message,
	}, nil
}

// StreamMessage sends a request and returns a pull iterator over the
// response events.
func (a *Adapter) StreamMessage(ctx context.Context, req *llm.Request) (llm.Stream, error) {
	outcome := &llm.AttachmentOutcome{}
	params, err := buildParams(a.withModel(req), outcome)
	if err != nil {
		return nil, err
	}

	stream := a.client.Messages.NewStreaming(ctx, params)
	return newMessageStream(ctx, stream, outcome, a.logger), nil
}

// ValidateAPIKey probes the key with a model listing, the cheapest
// authenticated call.
func (a *Adapter) ValidateAPIKey(ctx context.Context) bool {
	_, err := a.client.Models.List(ctx, anthropic.ModelListParams{})
	if err != nil {
		a.logger.Debug().Err(err).Msg("anthropic API key validation failed")
		return false
	}
	return true
}

// AvailableModels lists model ids, best effort.
func (a *Adapter) AvailableModels(ctx context.Context) []string {
	page, err := a.client.Models.List(ctx, anthropic.ModelListParams{})
	if err != nil {
		a.logger.Debug().Err(err).Msg("anthropic model listing failed")
		return nil
	}
	models := make([]string, 0, len(page.Data))
	for _, info := range page.Data {
		models = append(models, info.ID)
	}
	return models
}

// GenerateImage is not supported by Anthropic.
func (a *Adapter) GenerateImage(ctx context.Context, req *llm.ImageRequest) (*llm.ImageResponse, error) {
	return nil, llm.NewNotSupportedError(llm.ProviderAnthropic, "image generation")
}

// withModel fills the adapter's default model into requests that omit one.
func (a *Adapter) withModel(req *llm.Request) *llm.Request {
	if req.Model != "" || a.model == "" {
		return req
	}
	withDefault := *req
	withDefault.Model = a.model
	return &withDefault
}

var _ llm.Provider = (*Adapter)(nil)
