package chat

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
)

// SSETransport writes events as Server-Sent-Events records, one
// "data: {...}\n\n" frame per event, flushing after each write when the
// underlying writer supports it.
type SSETransport struct {
	w       io.Writer
	mu      sync.Mutex
	flusher http.Flusher
	closed  bool
}

// NewSSETransport wraps a writer. When w is an http.ResponseWriter the caller
// is expected to have set the text/event-stream headers already; see
// PrepareSSE.
func NewSSETransport(w io.Writer) *SSETransport {
	t := &SSETransport{w: w}
	if flusher, ok := w.(http.Flusher); ok {
		t.flusher = flusher
	}
	return t
}

// PrepareSSE sets the response headers for an SSE stream.
func PrepareSSE(header http.Header) {
	header.Set("Content-Type", "text/event-stream")
	header.Set("Cache-Control", "no-cache")
	header.Set("Connection", "keep-alive")
}

// Send writes one event frame.
func (t *SSETransport) Send(event *Event) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return fmt.Errorf("transport closed")
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal SSE payload: %w", err)
	}
	if _, err := fmt.Fprintf(t.w, "data: %s\n\n", data); err != nil {
		return fmt.Errorf("write SSE data: %w", err)
	}
	if t.flusher != nil {
		t.flusher.Flush()
	}
	return nil
}

// Close marks the transport closed. The HTTP response itself is finished by
// the handler returning.
func (t *SSETransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	return nil
}

var _ Transport = (*SSETransport)(nil)
