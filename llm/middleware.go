package llm

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// WithModelListRetry decorates a provider so the best-effort discovery calls
// (AvailableModels, ValidateAPIKey) retry transient failures with exponential
// backoff. The conversation paths (SendMessage, StreamMessage, GenerateImage)
// pass through untouched: retry policy for a live turn belongs to the caller,
// not the core.
func WithModelListRetry(p Provider, maxElapsed time.Duration) Provider {
	return &retryingProvider{Provider: p, maxElapsed: maxElapsed}
}

type retryingProvider struct {
	Provider
	maxElapsed time.Duration
}

func (r *retryingProvider) AvailableModels(ctx context.Context) []string {
	var models []string
	op := func() error {
		models = r.Provider.AvailableModels(ctx)
		if len(models) == 0 {
			return errNoModels
		}
		return nil
	}
	_ = backoff.Retry(op, r.newBackoff(ctx))
	return models
}

func (r *retryingProvider) ValidateAPIKey(ctx context.Context) bool {
	valid := false
	op := func() error {
		valid = r.Provider.ValidateAPIKey(ctx)
		if !valid {
			return errKeyProbeFailed
		}
		return nil
	}
	_ = backoff.Retry(op, r.newBackoff(ctx))
	return valid
}

func (r *retryingProvider) newBackoff(ctx context.Context) backoff.BackOffContext {
	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = r.maxElapsed
	return backoff.WithContext(b, ctx)
}

var (
	errKeyProbeFailed = NewProviderError("api key probe failed", nil)
	errNoModels       = NewProviderError("model listing returned no models", nil)
)
