package llm

import (
	"errors"
	"sync"
	"testing"
	"time"
)

type stubProvider struct {
	Provider
	name string
}

func (s *stubProvider) Name() string { return s.name }

func stubBuilder(name string) BuildFunc {
	return func(opts Options) (Provider, error) {
		return &stubProvider{name: name}, nil
	}
}

func TestRegistryResolve(t *testing.T) {
	r := NewRegistry(nil)
	r.Register(ProviderOpenAI, stubBuilder(ProviderOpenAI))

	p, err := r.Resolve("openai", Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Name() != ProviderOpenAI {
		t.Errorf("expected %q, got %q", ProviderOpenAI, p.Name())
	}

	if _, err := r.Resolve("missing", Options{}); err == nil {
		t.Errorf("expected error for unknown provider")
	}
}

func TestRegistryNormalizesNames(t *testing.T) {
	r := NewRegistry(nil)
	r.Register("OpenAI-Compatible", stubBuilder(ProviderOpenAICompatible))

	for _, name := range []string{"openai_compatible", "OPENAI-COMPATIBLE", " openai_compatible "} {
		if !r.Has(name) {
			t.Errorf("expected %q to resolve", name)
		}
	}
}

func TestRegistryBootstrapRunsOnce(t *testing.T) {
	calls := 0
	r := NewRegistry(func(r *Registry) {
		calls++
		r.Register(ProviderAnthropic, stubBuilder(ProviderAnthropic))
	})

	if !r.Has(ProviderAnthropic) {
		t.Fatalf("expected bootstrap to register the provider")
	}
	_, _ = r.Resolve(ProviderAnthropic, Options{})
	_ = r.Providers()

	if calls != 1 {
		t.Errorf("expected bootstrap to run once, ran %d times", calls)
	}
}

func TestRegistryRegisterReplaces(t *testing.T) {
	r := NewRegistry(nil)
	r.Register(ProviderOllama, func(opts Options) (Provider, error) {
		return nil, errors.New("old builder")
	})
	r.Register(ProviderOllama, stubBuilder(ProviderOllama))

	p, err := r.Resolve(ProviderOllama, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Name() != ProviderOllama {
		t.Errorf("expected replacement builder to win")
	}
}

func TestRegistryProvidersSorted(t *testing.T) {
	r := NewRegistry(nil)
	r.Register(ProviderOllama, stubBuilder(ProviderOllama))
	r.Register(ProviderAnthropic, stubBuilder(ProviderAnthropic))
	r.Register(ProviderGoogle, stubBuilder(ProviderGoogle))

	got := r.Providers()
	want := []string{ProviderAnthropic, ProviderGoogle, ProviderOllama}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("expected %v, got %v", want, got)
			break
		}
	}
}

func TestRegistryConcurrentResolveWaitsForBootstrap(t *testing.T) {
	r := NewRegistry(func(r *Registry) {
		// A deliberately slow hook so concurrent resolvers arrive mid-bootstrap.
		time.Sleep(20 * time.Millisecond)
		r.Register(ProviderOpenAI, stubBuilder(ProviderOpenAI))
	})

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := r.Resolve(ProviderOpenAI, Options{}); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("resolve observed a partially bootstrapped registry: %v", err)
	}
}
