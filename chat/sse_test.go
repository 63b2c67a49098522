package chat

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestSSETransportFraming(t *testing.T) {
	rec := httptest.NewRecorder()
	PrepareSSE(rec.Header())
	transport := NewSSETransport(rec)

	if err := transport.Send(contentEvent("hello")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := transport.Send(&Event{Type: EventDone, MessageID: "m1"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if ct := rec.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("expected text/event-stream content type, got %q", ct)
	}

	body := rec.Body.String()
	frames := strings.Split(strings.TrimSuffix(body, "\n\n"), "\n\n")
	if len(frames) != 2 {
		t.Fatalf("expected 2 frames, got %d: %q", len(frames), body)
	}

	for i, frame := range frames {
		if !strings.HasPrefix(frame, "data: ") {
			t.Fatalf("frame %d missing data prefix: %q", i, frame)
		}
		var event Event
		if err := json.Unmarshal([]byte(strings.TrimPrefix(frame, "data: ")), &event); err != nil {
			t.Fatalf("frame %d is not valid JSON: %v", i, err)
		}
	}

	var first Event
	_ = json.Unmarshal([]byte(strings.TrimPrefix(frames[0], "data: ")), &first)
	if first.Type != EventContent || first.Content != "hello" {
		t.Errorf("unexpected first event: %+v", first)
	}
}

func TestSSETransportSendAfterClose(t *testing.T) {
	rec := httptest.NewRecorder()
	transport := NewSSETransport(rec)

	if err := transport.Close(); err != nil {
		t.Fatalf("unexpected close error: %v", err)
	}
	if err := transport.Send(contentEvent("late")); err == nil {
		t.Errorf("expected error sending after close")
	}
	if rec.Body.Len() != 0 {
		t.Errorf("expected no bytes written after close")
	}
}
