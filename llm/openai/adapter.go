// Package openai implements the llm.Provider interface on top of the
// OpenAI Chat Completions API. Through configurable profiles it also backs
// every OpenAI-compatible vendor (OpenRouter, Grok, self-hosted endpoints).
package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"

	"github.com/foundry-9/quilltap/llm"
)

// OpenAI API errors don't directly expose retry-after headers.
// We use a default retry-after duration for rate limits.
const defaultRetryAfter = 60 * time.Second

// defaultMimeTypes are the attachment types the Chat Completions vision path
// accepts as inline base64 image parts.
var defaultMimeTypes = []string{"image/jpeg", "image/png", "image/gif", "image/webp"}

// Profile describes how an OpenAI-compatible endpoint differs from stock
// OpenAI: its identity, capabilities, and accepted attachment types.
type Profile struct {
	Name            string
	BaseURL         string
	Organization    string
	MimeTypes       []string
	ImageGeneration bool
	NativeWebSearch bool
	ExtraHeaders    map[string]string
}

// Adapter implements llm.Provider for OpenAI and OpenAI-compatible vendors.
type Adapter struct {
	client  *openai.Client
	profile Profile
	model   string // default model when the request omits one
	logger  zerolog.Logger
}

// New creates an adapter for the stock OpenAI API.
func New(apiKey, organization, model string, logger zerolog.Logger) (*Adapter, error) {
	return NewWithProfile(apiKey, model, Profile{
		Name:            llm.ProviderOpenAI,
		Organization:    organization,
		MimeTypes:       defaultMimeTypes,
		ImageGeneration: true,
	}, logger)
}

// NewCompatible creates an adapter for a generic OpenAI-compatible endpoint.
// The base URL is required: there is no sensible default for self-hosted
// deployments, so its absence is a configuration fault.
func NewCompatible(apiKey, baseURL, model string, logger zerolog.Logger) (*Adapter, error) {
	if baseURL == "" {
		return nil, llm.NewConfigurationError(llm.ProviderOpenAICompatible, "base URL")
	}
	return NewWithProfile(apiKey, model, Profile{
		Name:      llm.ProviderOpenAICompatible,
		BaseURL:   baseURL,
		MimeTypes: defaultMimeTypes,
	}, logger)
}

// NewWithProfile creates an adapter for any endpoint speaking the OpenAI wire
// protocol. Vendor subpackages (openrouter, grok) call this with their own
// profiles.
func NewWithProfile(apiKey, model string, profile Profile, logger zerolog.Logger) (*Adapter, error) {
	if apiKey == "" {
		return nil, llm.NewConfigurationError(profile.Name, "API key")
	}

	config := openai.DefaultConfig(apiKey)
	if profile.BaseURL != "" {
		config.BaseURL = profile.BaseURL
	}
	if profile.Organization != "" {
		config.OrgID = profile.Organization
	}
	var transport http.RoundTripper = http.DefaultTransport
	if len(profile.ExtraHeaders) > 0 {
		transport = headerTransport{headers: profile.ExtraHeaders, base: transport}
	}
	if profile.NativeWebSearch {
		transport = searchTransport{base: transport}
	}
	if transport != http.DefaultTransport {
		config.HTTPClient = &http.Client{Transport: transport}
	}
	if len(profile.MimeTypes) == 0 {
		profile.MimeTypes = defaultMimeTypes
	}

	return &Adapter{
		client:  openai.NewClientWithConfig(config),
		profile: profile,
		model:   model,
		logger:  logger.With().Str("provider", profile.Name).Logger(),
	}, nil
}

// headerTransport injects static headers into every request. OpenRouter uses
// this for its attribution headers.
type headerTransport struct {
	headers map[string]string
	base    http.RoundTripper
}

func (t headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())
	for k, v := range t.headers {
		clone.Header.Set(k, v)
	}
	return t.base.RoundTrip(clone)
}

func (a *Adapter) Name() string                  { return a.profile.Name }
func (a *Adapter) SupportsFileAttachments() bool { return true }
func (a *Adapter) SupportedMimeTypes() []string  { return a.profile.MimeTypes }
func (a *Adapter) SupportsImageGeneration() bool { return a.profile.ImageGeneration }
func (a *Adapter) SupportsNativeWebSearch() bool { return a.profile.NativeWebSearch }

// SendMessage implements llm.Provider.SendMessage.
func (a *Adapter) SendMessage(ctx context.Context, req *llm.Request) (*llm.Response, error) {
	if req == nil {
		return nil, fmt.Errorf("request is required")
	}

	chatReq, outcome, err := a.buildChatRequest(req, false)
	if err != nil {
		return nil, err
	}
	if req.WebSearchEnabled && a.profile.NativeWebSearch {
		ctx = withLiveSearch(ctx)
	}

	chatResp, err := a.client.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		return nil, convertAPIError(a.profile.Name, err)
	}
	if len(chatResp.Choices) == 0 {
		return nil, fmt.Errorf("no choices in response")
	}

	choice := chatResp.Choices[0]
	usage := &llm.Usage{
		PromptTokens:     int64(chatResp.Usage.PromptTokens),
		CompletionTokens: int64(chatResp.Usage.CompletionTokens),
		TotalTokens:      int64(chatResp.Usage.TotalTokens),
	}

	return &llm.Response{
		Content:     choice.Message.Content,
		Usage:       usage,
		Attachments: outcome,
		StopReason:  stopReason(choice.FinishReason),
		Raw:         choice.Message,
	}, nil
}

// StreamMessage implements llm.Provider.StreamMessage.
func (a *Adapter) StreamMessage(ctx context.Context, req *llm.Request) (llm.Stream, error) {
	if req == nil {
		return nil, fmt.Errorf("request is required")
	}

	chatReq, outcome, err := a.buildChatRequest(req, true)
	if err != nil {
		return nil, err
	}
	if req.WebSearchEnabled && a.profile.NativeWebSearch {
		ctx = withLiveSearch(ctx)
	}

	stream, err := a.client.CreateChatCompletionStream(ctx, chatReq)
	if err != nil {
		return nil, convertAPIError(a.profile.Name, err)
	}

	return newChatStream(ctx, stream, a.profile.Name, outcome, a.logger), nil
}

// ValidateAPIKey implements llm.Provider.ValidateAPIKey with the cheapest
// probe available: a model listing.
func (a *Adapter) ValidateAPIKey(ctx context.Context) bool {
	_, err := a.client.ListModels(ctx)
	if err != nil {
		a.logger.Warn().Err(err).Msg("api key validation failed")
		return false
	}
	return true
}

// AvailableModels implements llm.Provider.AvailableModels.
func (a *Adapter) AvailableModels(ctx context.Context) []string {
	list, err := a.client.ListModels(ctx)
	if err != nil {
		a.logger.Warn().Err(err).Msg("model listing failed")
		return []string{}
	}
	models := make([]string, 0, len(list.Models))
	for _, m := range list.Models {
		models = append(models, m.ID)
	}
	return models
}

// GenerateImage implements llm.Provider.GenerateImage via the Images API.
func (a *Adapter) GenerateImage(ctx context.Context, req *llm.ImageRequest) (*llm.ImageResponse, error) {
	if !a.profile.ImageGeneration {
		return nil, llm.NewNotSupportedError(a.profile.Name, "image generation")
	}

	count := req.Count
	if count <= 0 {
		count = 1
	}
	imgReq := openai.ImageRequest{
		Prompt:         req.Prompt,
		Model:          req.Model,
		N:              count,
		Size:           req.Size,
		ResponseFormat: openai.CreateImageResponseFormatB64JSON,
	}

	resp, err := a.client.CreateImage(ctx, imgReq)
	if err != nil {
		return nil, convertAPIError(a.profile.Name, err)
	}

	images := make([]llm.GeneratedImage, 0, len(resp.Data))
	for _, d := range resp.Data {
		img := llm.GeneratedImage{MimeType: "image/png", URL: d.URL}
		if d.B64JSON != "" {
			data, err := decodeBase64(d.B64JSON)
			if err != nil {
				a.logger.Warn().Err(err).Msg("failed to decode generated image")
				continue
			}
			img.Data = data
		}
		images = append(images, img)
	}

	return &llm.ImageResponse{Images: images, Raw: resp}, nil
}

// stopReason maps vendor finish reasons to the neutral vocabulary.
func stopReason(reason openai.FinishReason) string {
	switch reason {
	case openai.FinishReasonLength:
		return "max_tokens"
	case openai.FinishReasonToolCalls:
		return "tool_calls"
	default:
		return "stop"
	}
}

// convertAPIError converts OpenAI API errors to llm.Error types.
func convertAPIError(provider string, err error) error {
	if err == nil {
		return nil
	}

	var apiErr *openai.APIError
	if !errors.As(err, &apiErr) {
		return llm.NewProviderError(fmt.Sprintf("%s API error", provider), err)
	}

	switch apiErr.HTTPStatusCode {
	case http.StatusTooManyRequests:
		retryAfter := defaultRetryAfter
		return llm.NewRateLimitError(
			fmt.Sprintf("%s rate limit: %s", provider, apiErr.Message),
			&retryAfter,
			err,
		)
	case http.StatusRequestEntityTooLarge:
		return llm.NewRequestTooLargeError(
			fmt.Sprintf("%s request too large: %s", provider, apiErr.Message),
			err,
		)
	case http.StatusBadRequest:
		return &llm.Error{
			Type:        llm.ErrorTypeInvalidRequest,
			Message:     fmt.Sprintf("%s invalid request: %s", provider, apiErr.Message),
			Retryable:   false,
			StatusCode:  apiErr.HTTPStatusCode,
			ProviderErr: err,
		}
	case http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable:
		return &llm.Error{
			Type:        llm.ErrorTypeProvider,
			Message:     fmt.Sprintf("%s server error: %s", provider, apiErr.Message),
			Retryable:   true,
			StatusCode:  apiErr.HTTPStatusCode,
			ProviderErr: err,
		}
	default:
		return &llm.Error{
			Type:        llm.ErrorTypeProvider,
			Message:     fmt.Sprintf("%s API error: %s", provider, apiErr.Message),
			Retryable:   false,
			StatusCode:  apiErr.HTTPStatusCode,
			ProviderErr: err,
		}
	}
}
