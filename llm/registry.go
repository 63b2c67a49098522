package llm

import (
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// Provider identifiers resolved by the registry and factory.
const (
	ProviderOpenAI           = "openai"
	ProviderAnthropic        = "anthropic"
	ProviderGoogle           = "google"
	ProviderGrok             = "grok"
	ProviderOllama           = "ollama"
	ProviderOpenRouter       = "openrouter"
	ProviderOpenAICompatible = "openai_compatible"
)

// Options carries everything a provider builder may need. Unused fields are
// ignored by builders that do not need them.
type Options struct {
	APIKey       string
	BaseURL      string
	Model        string
	Organization string
	Host         string // Ollama
	HTTPClient   *http.Client
	Logger       zerolog.Logger
}

// BuildFunc constructs a Provider from resolved options.
type BuildFunc func(opts Options) (Provider, error)

// Registry maps provider identifiers to builders. It is an explicit value
// threaded to callers as a dependency, not a module-level singleton; tests
// construct a fresh Registry per case. A bootstrap hook, when configured, is
// invoked lazily on the first resolution so plugin-populated registries need
// no eager initialization.
type Registry struct {
	mu        sync.RWMutex
	builders  map[string]BuildFunc
	bootstrap func(*Registry)
	bootOnce  sync.Once
}

// NewRegistry creates a registry. bootstrap may be nil; when set it runs once,
// on demand, before the first resolution.
func NewRegistry(bootstrap func(*Registry)) *Registry {
	return &Registry{
		builders:  make(map[string]BuildFunc),
		bootstrap: bootstrap,
	}
}

// Register adds or replaces the builder for a provider identifier.
func (r *Registry) Register(name string, build BuildFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.builders[normalizeProviderName(name)] = build
}

// Resolve builds a provider by identifier. If the registry has a bootstrap
// hook that has not run yet, it runs first.
func (r *Registry) Resolve(name string, opts Options) (Provider, error) {
	r.ensureBootstrapped()

	r.mu.RLock()
	build, ok := r.builders[normalizeProviderName(name)]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown provider: %s", name)
	}
	return build(opts)
}

// Has reports whether a builder is registered for the identifier.
func (r *Registry) Has(name string) bool {
	r.ensureBootstrapped()
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.builders[normalizeProviderName(name)]
	return ok
}

// Providers returns the registered identifiers in sorted order.
func (r *Registry) Providers() []string {
	r.ensureBootstrapped()
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.builders))
	for name := range r.builders {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ensureBootstrapped runs the bootstrap hook exactly once. Once.Do blocks
// concurrent resolvers until the hook returns, so no caller can observe a
// partially populated registry. The hook itself calls Register, which takes
// mu, so mu is never held across the hook.
func (r *Registry) ensureBootstrapped() {
	r.bootOnce.Do(func() {
		if r.bootstrap != nil {
			r.bootstrap(r)
		}
	})
}

// normalizeProviderName folds identifiers so "OPENAI", "OpenAI" and
// "openai" resolve alike, and treats '-' and '_' as equivalent.
func normalizeProviderName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	return strings.ReplaceAll(name, "-", "_")
}
