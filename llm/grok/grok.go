// Package grok provides the xAI Grok adapter. Grok's API is OpenAI
// compatible, so the adapter is a profile over llm/openai pointed at the xAI
// endpoint. Grok carries native web search (Live Search), so the capability
// flag lets the orchestrator skip injecting a search tool.
package grok

import (
	"github.com/rs/zerolog"

	"github.com/foundry-9/quilltap/llm"
	"github.com/foundry-9/quilltap/llm/openai"
)

// BaseURL is the xAI API endpoint.
const BaseURL = "https://api.x.ai/v1"

// New creates a Grok provider.
func New(apiKey, model string, logger zerolog.Logger) (*openai.Adapter, error) {
	return openai.NewWithProfile(apiKey, model, openai.Profile{
		Name:    llm.ProviderGrok,
		BaseURL: BaseURL,
		MimeTypes: []string{
			"image/png", "image/jpeg", "image/webp",
			"text/*",
		},
		NativeWebSearch: true,
	}, logger)
}
