package factory

import (
	"testing"

	"github.com/rs/zerolog"

	"github.com/foundry-9/quilltap/llm"
)

func TestDetectVendor(t *testing.T) {
	tests := []struct {
		name    string
		baseURL string
		vendor  string
		ok      bool
	}{
		{name: "openai api host", baseURL: "https://api.openai.com/v1", vendor: llm.ProviderOpenAI, ok: true},
		{name: "openai apex", baseURL: "https://openai.com/v1", vendor: llm.ProviderOpenAI, ok: true},
		{name: "openrouter", baseURL: "https://openrouter.ai/api/v1", vendor: llm.ProviderOpenRouter, ok: true},
		{name: "grok", baseURL: "https://api.x.ai/v1", vendor: llm.ProviderGrok, ok: true},
		{name: "case insensitive host", baseURL: "https://API.OPENAI.COM/v1", vendor: llm.ProviderOpenAI, ok: true},
		{name: "http allowed", baseURL: "http://api.x.ai/v1", vendor: llm.ProviderGrok, ok: true},
		{name: "lookalike suffix rejected", baseURL: "https://notopenai.com/v1", ok: false},
		{name: "embedded domain rejected", baseURL: "https://openai.com.evil.example/v1", ok: false},
		{name: "unknown host", baseURL: "https://llama.internal:8080/v1", ok: false},
		{name: "non-http scheme rejected", baseURL: "javascript:alert(1)", ok: false},
		{name: "file scheme rejected", baseURL: "file:///etc/passwd", ok: false},
		{name: "empty", baseURL: "", ok: false},
		{name: "garbage", baseURL: "://not a url", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vendor, ok := DetectVendor(tt.baseURL)
			if ok != tt.ok {
				t.Fatalf("DetectVendor(%q) ok = %v, want %v", tt.baseURL, ok, tt.ok)
			}
			if ok && vendor != tt.vendor {
				t.Errorf("DetectVendor(%q) = %q, want %q", tt.baseURL, vendor, tt.vendor)
			}
		})
	}
}

func TestNewUnknownProvider(t *testing.T) {
	if _, err := New("frontier", llm.Options{}); err == nil {
		t.Errorf("expected error for unknown provider")
	}
}

func TestNewIdentifierNormalization(t *testing.T) {
	// Ollama needs no API key, so construction succeeds offline.
	for _, name := range []string{"ollama", "Ollama", " OLLAMA "} {
		p, err := New(name, llm.Options{Host: "http://localhost:11434", Logger: zerolog.Nop()})
		if err != nil {
			t.Fatalf("New(%q): %v", name, err)
		}
		if p.Name() != llm.ProviderOllama {
			t.Errorf("New(%q).Name() = %q", name, p.Name())
		}
	}
}

func TestCompatibleUpgradesToNativeAdapter(t *testing.T) {
	opts := llm.Options{
		APIKey:  "sk-test",
		BaseURL: "https://api.openai.com/v1",
		Logger:  zerolog.Nop(),
	}
	p, err := New("openai-compatible", opts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Name() != llm.ProviderOpenAI {
		t.Errorf("expected upgrade to %q, got %q", llm.ProviderOpenAI, p.Name())
	}
}

func TestCompatibleKeepsGenericAdapter(t *testing.T) {
	opts := llm.Options{
		APIKey:  "sk-test",
		BaseURL: "https://llama.internal:8080/v1",
		Logger:  zerolog.Nop(),
	}
	p, err := New("openai_compatible", opts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Name() == llm.ProviderOpenAI {
		t.Errorf("expected generic adapter, got native openai")
	}
}

func TestBootstrapRegistersAllProviders(t *testing.T) {
	registry := llm.NewRegistry(Bootstrap)

	for _, name := range []string{
		llm.ProviderOpenAI,
		llm.ProviderAnthropic,
		llm.ProviderGoogle,
		llm.ProviderGrok,
		llm.ProviderOllama,
		llm.ProviderOpenRouter,
		llm.ProviderOpenAICompatible,
	} {
		if !registry.Has(name) {
			t.Errorf("expected %q to be registered", name)
		}
	}
}
