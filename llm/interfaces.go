package llm

import (
	"context"
)

// Provider is the single polymorphic interface each vendor implements.
// Implementations handle vendor-specific wire formats internally; the
// formatting applied by SendMessage and StreamMessage is identical.
type Provider interface {
	// Name returns the provider identifier (e.g. "openai", "anthropic").
	Name() string

	// SupportsFileAttachments reports whether the vendor accepts binary
	// attachments at all. Vendors without binary support still receive
	// text-typed attachments decoded inline.
	SupportsFileAttachments() bool

	// SupportedMimeTypes lists the MIME types the vendor accepts as
	// attachment parts. Attachments outside this list are collected as
	// per-attachment failures, never fatal errors.
	SupportedMimeTypes() []string

	// SupportsImageGeneration reports whether GenerateImage is available.
	SupportsImageGeneration() bool

	// SupportsNativeWebSearch reports whether the vendor performs web search
	// server-side. When true, callers must not also attach a generic
	// web-search tool to avoid double invocation.
	SupportsNativeWebSearch() bool

	// SendMessage sends a request and returns the complete response.
	SendMessage(ctx context.Context, req *Request) (*Response, error)

	// StreamMessage sends a request and returns a stream of events. The
	// stream is single-pass and forward-only; abandoning iteration and
	// calling Close is the only cancellation primitive.
	StreamMessage(ctx context.Context, req *Request) (Stream, error)

	// ValidateAPIKey performs the cheapest vendor-specific probe for the
	// configured credentials. It never returns an error; failures are
	// reported via the return value and logged.
	ValidateAPIKey(ctx context.Context) bool

	// AvailableModels returns the models the configured credentials can
	// access. Best-effort: returns an empty slice on any failure.
	AvailableModels(ctx context.Context) []string

	// GenerateImage produces images for vendors with the capability.
	// Vendors without it return a not-supported Error, never a silent
	// empty result.
	GenerateImage(ctx context.Context, req *ImageRequest) (*ImageResponse, error)
}

// Stream represents a streaming response from an LLM.
type Stream interface {
	// Next advances to the next event in the stream.
	// Returns false when the stream is complete or an error occurs.
	Next() bool

	// Event returns the current event.
	// Should only be called after Next() returns true.
	Event() *StreamEvent

	// Err returns any error that occurred during streaming.
	Err() error

	// Close closes the stream and releases resources.
	Close() error
}
