package config

import (
	"os"

	"github.com/rs/zerolog"

	"github.com/foundry-9/quilltap/llm"
)

// envKeys maps a provider identifier to the environment variable holding
// its API key. Environment values override the config file.
var envKeys = map[string]string{
	"openai":     "OPENAI_API_KEY",
	"anthropic":  "ANTHROPIC_API_KEY",
	"google":     "GEMINI_API_KEY",
	"grok":       "XAI_API_KEY",
	"openrouter": "OPENROUTER_API_KEY",
}

// ProviderOptions resolves the llm.Options for a named provider from the
// config file and environment variables.
func (c *Config) ProviderOptions(name string, logger zerolog.Logger) llm.Options {
	opts := llm.Options{Logger: logger}

	if pc := c.Providers[name]; pc != nil {
		opts.APIKey = pc.APIKey
		opts.BaseURL = pc.BaseURL
		opts.Host = pc.Host
		opts.Model = pc.Model
		opts.Organization = pc.Organization
	}

	if envVar, ok := envKeys[name]; ok {
		if key := os.Getenv(envVar); key != "" {
			opts.APIKey = key
		}
	}

	switch name {
	case "openai":
		if org := os.Getenv("OPENAI_ORG_ID"); org != "" {
			opts.Organization = org
		}
	case "ollama":
		if host := os.Getenv("OLLAMA_HOST"); host != "" {
			opts.Host = host
		}
	case "openai_compatible":
		if base := os.Getenv("OPENAI_BASE_URL"); base != "" {
			opts.BaseURL = base
		}
		if key := os.Getenv("OPENAI_API_KEY"); key != "" && opts.APIKey == "" {
			opts.APIKey = key
		}
	}

	return opts
}

// ConfiguredProviders returns the identifiers of providers that have
// enough configuration to be constructed: an API key for hosted vendors,
// a host for ollama, or a base URL for openai_compatible.
func (c *Config) ConfiguredProviders() []string {
	var names []string
	for _, name := range []string{"openai", "anthropic", "google", "grok", "openrouter", "ollama", "openai_compatible"} {
		opts := c.ProviderOptions(name, zerolog.Nop())
		switch name {
		case "ollama":
			if opts.Host != "" {
				names = append(names, name)
			}
		case "openai_compatible":
			if opts.BaseURL != "" {
				names = append(names, name)
			}
		default:
			if opts.APIKey != "" {
				names = append(names, name)
			}
		}
	}
	return names
}
