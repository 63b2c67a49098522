package anthropic

import (
	"context"
	"encoding/json"
	"strings"
	"sync"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/packages/ssestream"
	"github.com/rs/zerolog"

	"github.com/foundry-9/quilltap/llm"
)

// rawMessage mirrors the wire shape of a completed Anthropic message. The
// streaming accumulator rebuilds it from deltas so the terminal event's Raw
// matches what a non-streaming call would have returned.
type rawMessage struct {
	ID         string     `json:"id,omitempty"`
	Type       string     `json:"type"`
	Role       string     `json:"role"`
	Content    []rawBlock `json:"content"`
	StopReason string     `json:"stop_reason,omitempty"`
}

type rawBlock struct {
	Type  string         `json:"type"`
	Text  string         `json:"text,omitempty"`
	ID    string         `json:"id,omitempty"`
	Name  string         `json:"name,omitempty"`
	Input map[string]any `json:"input,omitempty"`
}

// blockDraft is one in-progress content block, keyed by the stream's block
// index. Tool input JSON accumulates as raw text and is parsed only when the
// block stops.
type blockDraft struct {
	kind      string
	text      strings.Builder
	toolID    string
	toolName  string
	inputJSON strings.Builder
}

func (b *blockDraft) finalize() rawBlock {
	block := rawBlock{Type: b.kind}
	switch b.kind {
	case "text":
		block.Text = b.text.String()
	case "tool_use":
		block.ID = b.toolID
		block.Name = b.toolName
		input := make(map[string]any)
		if b.inputJSON.Len() > 0 {
			if err := json.Unmarshal([]byte(b.inputJSON.String()), &input); err != nil {
				input = make(map[string]any)
			}
		}
		block.Input = input
	}
	return block
}

// messageStream implements llm.Stream for Anthropic streaming responses.
type messageStream struct {
	ctx     context.Context
	stream  *ssestream.Stream[anthropic.MessageStreamEventUnion]
	outcome *llm.AttachmentOutcome
	events  []*llm.StreamEvent
	current int
	mu      sync.Mutex
	cond    *sync.Cond
	err     error
	done    bool
	started bool
	logger  zerolog.Logger
}

func newMessageStream(ctx context.Context, stream *ssestream.Stream[anthropic.MessageStreamEventUnion], outcome *llm.AttachmentOutcome, logger zerolog.Logger) *messageStream {
	s := &messageStream{
		ctx:     ctx,
		stream:  stream,
		outcome: outcome,
		events:  make([]*llm.StreamEvent, 0),
		current: -1,
		logger:  logger,
	}
	s.cond = sync.NewCond(&s.mu)
	return s
}

// Next advances to the next event in the stream.
func (s *messageStream) Next() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		s.started = true
		go s.run()
	}

	s.current++
	for s.current >= len(s.events) && !s.done && s.err == nil {
		s.cond.Wait()
	}

	if s.err != nil {
		return false
	}
	return s.current < len(s.events)
}

// Event returns the current event.
func (s *messageStream) Event() *llm.StreamEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current < 0 || s.current >= len(s.events) {
		return nil
	}
	return s.events[s.current]
}

// Err returns any error that occurred during streaming.
func (s *messageStream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Close closes the stream and releases resources.
func (s *messageStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.done = true
	s.cond.Broadcast()
	if s.stream != nil {
		return s.stream.Close()
	}
	return nil
}

func (s *messageStream) emit(event *llm.StreamEvent) {
	s.mu.Lock()
	s.events = append(s.events, event)
	s.cond.Broadcast()
	s.mu.Unlock()
}

// run consumes the SSE stream and normalizes it. Text deltas become content
// events; tool input deltas only feed the accumulator and are never surfaced
// as content.
func (s *messageStream) run() {
	defer func() {
		s.mu.Lock()
		s.done = true
		s.cond.Broadcast()
		s.mu.Unlock()
	}()

	raw := rawMessage{Type: "message", Role: "assistant"}
	drafts := make(map[int64]*blockDraft)
	var order []int64
	usage := &llm.Usage{}

	for s.stream.Next() {
		event := s.stream.Current()

		switch evt := event.AsAny().(type) {
		case anthropic.MessageStartEvent:
			raw.ID = evt.Message.ID
			usage.PromptTokens = evt.Message.Usage.InputTokens

		case anthropic.ContentBlockStartEvent:
			draft := &blockDraft{}
			switch block := evt.ContentBlock.AsAny().(type) {
			case anthropic.TextBlock:
				draft.kind = "text"
			case anthropic.ToolUseBlock:
				draft.kind = "tool_use"
				draft.toolID = block.ID
				draft.toolName = block.Name
			default:
				continue
			}
			drafts[evt.Index] = draft
			order = append(order, evt.Index)

		case anthropic.ContentBlockDeltaEvent:
			draft := drafts[evt.Index]
			if draft == nil {
				continue
			}
			switch delta := evt.Delta.AsAny().(type) {
			case anthropic.TextDelta:
				if delta.Text != "" {
					draft.text.WriteString(delta.Text)
					s.emit(&llm.StreamEvent{Content: delta.Text})
				}
			case anthropic.InputJSONDelta:
				draft.inputJSON.WriteString(delta.PartialJSON)
			}

		case anthropic.ContentBlockStopEvent:
			// Block contents are finalized lazily at message stop; nothing
			// to do per block.

		case anthropic.MessageDeltaEvent:
			usage.CompletionTokens = evt.Usage.OutputTokens
			if evt.Delta.StopReason != "" {
				raw.StopReason = string(evt.Delta.StopReason)
			}

		case anthropic.MessageStopEvent:
			for _, index := range order {
				raw.Content = append(raw.Content, drafts[index].finalize())
			}
			usage.TotalTokens = usage.PromptTokens + usage.CompletionTokens
			s.emit(&llm.StreamEvent{
				Done:        true,
				Usage:       usage,
				Attachments: s.outcome,
				Raw:         raw,
			})
			return
		}
	}

	if err := s.stream.Err(); err != nil {
		s.mu.Lock()
		s.err = llm.NewProviderError("anthropic stream failed", err)
		s.cond.Broadcast()
		s.mu.Unlock()
		return
	}

	// Stream ended without a message_stop. Emit the terminal event from what
	// accumulated so consumers always see exactly one.
	for _, index := range order {
		raw.Content = append(raw.Content, drafts[index].finalize())
	}
	usage.TotalTokens = usage.PromptTokens + usage.CompletionTokens
	s.emit(&llm.StreamEvent{
		Done:        true,
		Usage:       usage,
		Attachments: s.outcome,
		Raw:         raw,
	})
}

var _ llm.Stream = (*messageStream)(nil)
