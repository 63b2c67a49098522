// Package factory constructs providers from identifiers. It lives apart from
// package llm so the registry type does not import the vendor adapters, which
// would cycle back into llm.
package factory

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/foundry-9/quilltap/llm"
	"github.com/foundry-9/quilltap/llm/anthropic"
	"github.com/foundry-9/quilltap/llm/google"
	"github.com/foundry-9/quilltap/llm/grok"
	"github.com/foundry-9/quilltap/llm/ollama"
	"github.com/foundry-9/quilltap/llm/openai"
	"github.com/foundry-9/quilltap/llm/openrouter"
)

// vendorDomains maps API hostnames to provider identifiers for base-URL
// auto-detection. A subdomain of a listed domain matches too.
var vendorDomains = map[string]string{
	"openai.com":    llm.ProviderOpenAI,
	"openrouter.ai": llm.ProviderOpenRouter,
	"x.ai":          llm.ProviderGrok,
}

// New builds a provider by identifier. Identifiers are case-insensitive and
// resolve statically. An openai_compatible request whose base URL points at a
// known vendor is upgraded to that vendor's native adapter.
func New(name string, opts llm.Options) (llm.Provider, error) {
	switch strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), "-", "_") {
	case llm.ProviderOpenAI:
		return openai.New(opts.APIKey, opts.Organization, opts.Model, opts.Logger)
	case llm.ProviderAnthropic:
		return anthropic.New(opts.APIKey, opts.Model, opts.Logger)
	case llm.ProviderGoogle:
		return google.New(opts.APIKey, opts.Model, opts.Logger)
	case llm.ProviderGrok:
		return grok.New(opts.APIKey, opts.Model, opts.Logger)
	case llm.ProviderOpenRouter:
		return openrouter.New(opts.APIKey, opts.Model, opts.Logger)
	case llm.ProviderOllama:
		host := opts.Host
		if host == "" {
			host = opts.BaseURL
		}
		return ollama.New(host, opts.Model, opts.Logger)
	case llm.ProviderOpenAICompatible:
		if vendor, ok := DetectVendor(opts.BaseURL); ok {
			return New(vendor, opts)
		}
		return openai.NewCompatible(opts.APIKey, opts.BaseURL, opts.Model, opts.Logger)
	default:
		return nil, fmt.Errorf("unknown provider: %s", name)
	}
}

// DetectVendor inspects a base URL and reports the native provider it points
// at, if any. Only http and https URLs are considered; any other scheme is a
// non-match so malformed or hostile values fall through to the generic
// adapter instead of being misrouted.
func DetectVendor(baseURL string) (string, bool) {
	if baseURL == "" {
		return "", false
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", false
	}

	host := strings.ToLower(u.Hostname())
	for domain, vendor := range vendorDomains {
		if host == domain || strings.HasSuffix(host, "."+domain) {
			return vendor, true
		}
	}
	return "", false
}

// Bootstrap registers every built-in provider on a registry. Use it as the
// bootstrap hook of llm.NewRegistry so construction stays lazy.
func Bootstrap(registry *llm.Registry) {
	for _, name := range []string{
		llm.ProviderOpenAI,
		llm.ProviderAnthropic,
		llm.ProviderGoogle,
		llm.ProviderGrok,
		llm.ProviderOllama,
		llm.ProviderOpenRouter,
		llm.ProviderOpenAICompatible,
	} {
		provider := name
		registry.Register(provider, func(opts llm.Options) (llm.Provider, error) {
			return New(provider, opts)
		})
	}
}
