// Package ollama implements the llm.Provider contract for local Ollama
// servers using the official API client.
package ollama

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/ollama/ollama/api"
	"github.com/rs/zerolog"

	"github.com/foundry-9/quilltap/llm"
)

// rawMessage mirrors the OpenAI-style wire shape of a completed assistant
// message. Ollama's own response omits tool-call ids and the type
// discriminator, so the adapter synthesizes them to keep the raw response
// parseable by the OpenAI-family tool-call parser.
type rawMessage struct {
	Role      string        `json:"role"`
	Content   string        `json:"content"`
	ToolCalls []rawToolCall `json:"tool_calls,omitempty"`
}

type rawToolCall struct {
	ID       string      `json:"id"`
	Type     string      `json:"type"`
	Function rawFunction `json:"function"`
}

type rawFunction struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

func rawFromToolCalls(content string, calls []api.ToolCall) rawMessage {
	raw := rawMessage{Role: "assistant", Content: content}
	for _, call := range calls {
		args := make(map[string]any, len(call.Function.Arguments))
		for k, v := range call.Function.Arguments {
			args[k] = v
		}
		raw.ToolCalls = append(raw.ToolCalls, rawToolCall{
			ID:   "call_" + uuid.NewString(),
			Type: "function",
			Function: rawFunction{
				Name:      call.Function.Name,
				Arguments: args,
			},
		})
	}
	return raw
}

// Adapter implements llm.Provider for Ollama.
type Adapter struct {
	client *api.Client
	model  string
	logger zerolog.Logger
}

// New creates an Ollama provider. An empty host falls back to the
// environment (OLLAMA_HOST, default http://localhost:11434).
func New(host, model string, logger zerolog.Logger) (*Adapter, error) {
	var client *api.Client
	if host != "" {
		baseURL, err := parseHost(host)
		if err != nil {
			return nil, llm.NewConfigurationError(llm.ProviderOllama, "host")
		}
		client = api.NewClient(baseURL, &http.Client{})
	} else {
		var err error
		client, err = api.ClientFromEnvironment()
		if err != nil {
			return nil, fmt.Errorf("failed to create ollama client: %w", err)
		}
	}

	return &Adapter{
		client: client,
		model:  model,
		logger: logger,
	}, nil
}

// parseHost parses a host string into a URL, defaulting to http.
func parseHost(host string) (*url.URL, error) {
	if !strings.HasPrefix(host, "http://") && !strings.HasPrefix(host, "https://") {
		host = "http://" + host
	}
	return url.Parse(host)
}

func (a *Adapter) Name() string { return llm.ProviderOllama }

func (a *Adapter) SupportsFileAttachments() bool { return true }

func (a *Adapter) SupportedMimeTypes() []string {
	return append([]string(nil), supportedMimeTypes...)
}

func (a *Adapter) SupportsImageGeneration() bool { return false }

func (a *Adapter) SupportsNativeWebSearch() bool { return false }

// SendMessage sends a request and blocks for the complete response.
func (a *Adapter) SendMessage(ctx context.Context, req *llm.Request) (*llm.Response, error) {
	model := a.modelFor(req)
	if model == "" {
		return nil, llm.NewConfigurationError(llm.ProviderOllama, "model")
	}

	chatReq, outcome := buildChatRequest(req, model, false)

	var chatResp api.ChatResponse
	err := a.client.Chat(ctx, chatReq, func(resp api.ChatResponse) error {
		chatResp = resp
		return nil
	})
	if err != nil {
		return nil, llm.NewProviderError("ollama chat request failed", err)
	}

	return &llm.Response{
		Content:     chatResp.Message.Content,
		Usage:       usageFromResponse(&chatResp),
		Attachments: outcome,
		StopReason:  chatResp.DoneReason,
		Raw:         rawFromToolCalls(chatResp.Message.Content, chatResp.Message.ToolCalls),
	}, nil
}

// StreamMessage sends a request and returns a pull iterator over the
// response events.
func (a *Adapter) StreamMessage(ctx context.Context, req *llm.Request) (llm.Stream, error) {
	model := a.modelFor(req)
	if model == "" {
		return nil, llm.NewConfigurationError(llm.ProviderOllama, "model")
	}

	chatReq, outcome := buildChatRequest(req, model, true)
	return newChatStream(ctx, a.client, chatReq, outcome, a.logger), nil
}

// ValidateAPIKey probes server reachability. Ollama has no API keys, so an
// answering server means the provider is usable.
func (a *Adapter) ValidateAPIKey(ctx context.Context) bool {
	_, err := a.client.List(ctx)
	if err != nil {
		a.logger.Debug().Err(err).Msg("ollama server probe failed")
		return false
	}
	return true
}

// AvailableModels lists locally installed models, best effort.
func (a *Adapter) AvailableModels(ctx context.Context) []string {
	resp, err := a.client.List(ctx)
	if err != nil {
		a.logger.Debug().Err(err).Msg("ollama model listing failed")
		return nil
	}
	models := make([]string, 0, len(resp.Models))
	for _, m := range resp.Models {
		models = append(models, m.Name)
	}
	return models
}

// GenerateImage is not supported by Ollama.
func (a *Adapter) GenerateImage(ctx context.Context, req *llm.ImageRequest) (*llm.ImageResponse, error) {
	return nil, llm.NewNotSupportedError(llm.ProviderOllama, "image generation")
}

func (a *Adapter) modelFor(req *llm.Request) string {
	if req.Model != "" {
		return req.Model
	}
	return a.model
}

func usageFromResponse(resp *api.ChatResponse) *llm.Usage {
	usage := &llm.Usage{
		PromptTokens:     int64(resp.PromptEvalCount),
		CompletionTokens: int64(resp.EvalCount),
	}
	usage.TotalTokens = usage.PromptTokens + usage.CompletionTokens
	return usage
}

var _ llm.Provider = (*Adapter)(nil)
