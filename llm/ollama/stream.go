package ollama

import (
	"context"
	"strings"
	"sync"

	"github.com/ollama/ollama/api"
	"github.com/rs/zerolog"

	"github.com/foundry-9/quilltap/llm"
)

// chatStream implements llm.Stream for Ollama streaming responses. The API
// client drives a callback, so the goroutine runs Chat and the callback feeds
// the event buffer.
type chatStream struct {
	ctx     context.Context
	client  *api.Client
	req     *api.ChatRequest
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

func newChatStream(ctx context.Context, client *api.Client, req *api.ChatRequest, outcome *llm.AttachmentOutcome, logger zerolog.Logger) *chatStream {
	s := &chatStream{
		ctx:     ctx,
		client:  client,
		req:     req,
		outcome: outcome,
		events:  make([]*llm.StreamEvent, 0),
		current: -1,
		logger:  logger,
	}
	s.cond = sync.NewCond(&s.mu)
	return s
}

// Next advances to the next event in the stream.
func (s *chatStream) Next() bool {
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
func (s *chatStream) Event() *llm.StreamEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current < 0 || s.current >= len(s.events) {
		return nil
	}
	return s.events[s.current]
}

// Err returns any error that occurred during streaming.
func (s *chatStream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Close marks the stream done. The underlying request is torn down when the
// context is cancelled.
func (s *chatStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.done = true
	s.cond.Broadcast()
	return nil
}

func (s *chatStream) emit(event *llm.StreamEvent) {
	s.mu.Lock()
	s.events = append(s.events, event)
	s.cond.Broadcast()
	s.mu.Unlock()
}

// run drives the chat call. Ollama streams incremental content tokens and
// sends tool calls with fully-formed argument objects, merged by function
// name across chunks.
func (s *chatStream) run() {
	defer func() {
		s.mu.Lock()
		s.done = true
		s.cond.Broadcast()
		s.mu.Unlock()
	}()

	var text strings.Builder
	var calls []api.ToolCall
	terminalSent := false

	err := s.client.Chat(s.ctx, s.req, func(resp api.ChatResponse) error {
		if resp.Message.Content != "" {
			text.WriteString(resp.Message.Content)
			s.emit(&llm.StreamEvent{Content: resp.Message.Content})
		}

		for _, call := range resp.Message.ToolCalls {
			calls = mergeToolCall(calls, call)
		}

		if resp.Done && !terminalSent {
			terminalSent = true
			s.emit(&llm.StreamEvent{
				Done:        true,
				Usage:       usageFromResponse(&resp),
				Attachments: s.outcome,
				Raw:         rawFromToolCalls(text.String(), calls),
			})
		}
		return nil
	})

	if err != nil && !terminalSent {
		s.mu.Lock()
		s.err = llm.NewProviderError("ollama stream failed", err)
		s.cond.Broadcast()
		s.mu.Unlock()
	}
}

// mergeToolCall folds a streamed tool call into the accumulated list. Chunks
// for the same function merge their argument maps; a new name starts a new
// call.
func mergeToolCall(calls []api.ToolCall, call api.ToolCall) []api.ToolCall {
	for i := range calls {
		if calls[i].Function.Name == call.Function.Name {
			if calls[i].Function.Arguments == nil {
				calls[i].Function.Arguments = make(api.ToolCallFunctionArguments)
			}
			for k, v := range call.Function.Arguments {
				calls[i].Function.Arguments[k] = v
			}
			return calls
		}
	}
	return append(calls, call)
}

var _ llm.Stream = (*chatStream)(nil)
