package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
)

// liveSearchKey marks a request context as wanting the vendor's server-side
// web search enabled.
type liveSearchKey struct{}

func withLiveSearch(ctx context.Context) context.Context {
	return context.WithValue(ctx, liveSearchKey{}, true)
}

// searchTransport enables xAI Live Search by injecting search_parameters into
// the outgoing JSON body. The wire library has no field for vendor request
// extensions, so flagged requests are rewritten in transit.
type searchTransport struct {
	base http.RoundTripper
}

func (t searchTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Context().Value(liveSearchKey{}) == nil || req.Body == nil {
		return t.base.RoundTrip(req)
	}

	body, err := io.ReadAll(req.Body)
	req.Body.Close()
	if err != nil {
		return nil, err
	}

	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		// Not a JSON object body; send it unchanged.
		req.Body = io.NopCloser(bytes.NewReader(body))
		return t.base.RoundTrip(req)
	}
	payload["search_parameters"] = map[string]any{"mode": "auto"}

	rewritten, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	clone := req.Clone(req.Context())
	clone.Body = io.NopCloser(bytes.NewReader(rewritten))
	clone.ContentLength = int64(len(rewritten))
	clone.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(rewritten)), nil
	}
	return t.base.RoundTrip(clone)
}
