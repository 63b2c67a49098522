package openai

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"

	"github.com/foundry-9/quilltap/llm"
)

// responseAccumulator mirrors the vendor's full non-streaming response shape
// while it is being reconstructed from deltas: accumulated text plus an
// index-keyed list of in-progress tool calls. Vendors stream tool-call
// argument fragments keyed by positional index, not id, so the merge is by
// index until the id arrives.
type responseAccumulator struct {
	content      strings.Builder
	toolCalls    []*toolCallDraft
	finishReason openai.FinishReason
	usage        *llm.Usage
}

type toolCallDraft struct {
	id   string
	name string
	args strings.Builder
}

// mergeToolCall folds one streamed tool-call delta into the accumulator.
// Argument fragments are appended as raw string pieces; they are never parsed
// until the stream has fully drained.
func (acc *responseAccumulator) mergeToolCall(delta openai.ToolCall) {
	index := 0
	if delta.Index != nil {
		index = *delta.Index
	}
	for len(acc.toolCalls) <= index {
		acc.toolCalls = append(acc.toolCalls, &toolCallDraft{})
	}

	draft := acc.toolCalls[index]
	if delta.ID != "" {
		draft.id = delta.ID
	}
	if delta.Function.Name != "" {
		draft.name = delta.Function.Name
	}
	if delta.Function.Arguments != "" {
		draft.args.WriteString(delta.Function.Arguments)
	}
}

// message materializes the accumulator as the vendor-native final message,
// the shape a non-streaming call would have returned.
func (acc *responseAccumulator) message() openai.ChatCompletionMessage {
	msg := openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleAssistant,
		Content: acc.content.String(),
	}
	for _, draft := range acc.toolCalls {
		msg.ToolCalls = append(msg.ToolCalls, openai.ToolCall{
			ID:   draft.id,
			Type: openai.ToolTypeFunction,
			Function: openai.FunctionCall{
				Name:      draft.name,
				Arguments: draft.args.String(),
			},
		})
	}
	return msg
}

// chatStream implements llm.Stream for OpenAI-style streaming responses.
type chatStream struct {
	ctx      context.Context
	stream   *openai.ChatCompletionStream
	provider string
	outcome  *llm.AttachmentOutcome
	events   []*llm.StreamEvent
	current  int
	mu       sync.Mutex
	cond     *sync.Cond
	err      error
	done     bool
	started  bool
	logger   zerolog.Logger
}

func newChatStream(ctx context.Context, stream *openai.ChatCompletionStream, provider string, outcome *llm.AttachmentOutcome, logger zerolog.Logger) *chatStream {
	s := &chatStream{
		ctx:      ctx,
		stream:   stream,
		provider: provider,
		outcome:  outcome,
		events:   make([]*llm.StreamEvent, 0),
		current:  -1,
		logger:   logger,
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

// Close closes the stream and releases resources.
func (s *chatStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.done = true
	s.cond.Broadcast()
	if s.stream != nil {
		return s.stream.Close()
	}
	return nil
}

func (s *chatStream) emit(event *llm.StreamEvent) {
	s.mu.Lock()
	s.events = append(s.events, event)
	s.cond.Broadcast()
	s.mu.Unlock()
}

func (s *chatStream) fail(err error) {
	s.mu.Lock()
	s.err = err
	s.done = true
	s.cond.Broadcast()
	s.mu.Unlock()
}

func (s *chatStream) finish() {
	s.mu.Lock()
	s.done = true
	s.cond.Broadcast()
	s.mu.Unlock()
}

// run consumes the vendor stream and normalizes it into StreamEvents.
// Text deltas are forwarded immediately; tool-call argument fragments are
// only merged into the accumulator. Exactly one terminal event is emitted.
func (s *chatStream) run() {
	defer s.finish()

	acc := &responseAccumulator{}
	terminalSent := false

	for {
		response, err := s.stream.Recv()
		if err != nil {
			if errors.Is(err, io.EOF) {
				// Ended without a finish_reason chunk. Unusual, but emit the
				// terminal event from whatever accumulated.
				if !terminalSent {
					s.emitTerminal(acc)
				}
				return
			}
			if terminalSent {
				// Already terminal; the remaining drain failed, which only
				// means the connection is gone.
				s.logger.Debug().Err(err).Msg("error draining stream after terminal event")
				return
			}
			s.fail(convertAPIError(s.provider, err))
			return
		}

		// The usage chunk can trail the finish_reason chunk.
		if response.Usage != nil && response.Usage.TotalTokens > 0 {
			acc.usage = &llm.Usage{
				PromptTokens:     int64(response.Usage.PromptTokens),
				CompletionTokens: int64(response.Usage.CompletionTokens),
				TotalTokens:      int64(response.Usage.TotalTokens),
			}
			if acc.finishReason != "" && acc.finishReason != openai.FinishReasonToolCalls && !terminalSent {
				terminalSent = true
				s.emitTerminal(acc)
				return
			}
		}

		if len(response.Choices) == 0 {
			continue
		}
		choice := response.Choices[0]

		if choice.Delta.Content != "" {
			acc.content.WriteString(choice.Delta.Content)
			s.emit(&llm.StreamEvent{Content: choice.Delta.Content})
		}

		for _, toolDelta := range choice.Delta.ToolCalls {
			acc.mergeToolCall(toolDelta)
		}

		if choice.FinishReason != "" {
			acc.finishReason = choice.FinishReason

			if choice.FinishReason == openai.FinishReasonToolCalls {
				// Tool-call continuations do not reliably carry a subsequent
				// usage chunk: go terminal now and keep draining the
				// transport in the background so the connection is not left
				// dangling.
				terminalSent = true
				s.emitTerminal(acc)
				s.drain()
				return
			}
			// For ordinary stops, wait for the trailing usage chunk before
			// emitting the terminal event; EOF also terminates.
		}
	}
}

func (s *chatStream) emitTerminal(acc *responseAccumulator) {
	s.emit(&llm.StreamEvent{
		Done:        true,
		Usage:       acc.usage,
		Attachments: s.outcome,
		Raw:         acc.message(),
	})
}

// drain consumes remaining chunks after the terminal event without emitting
// anything further.
func (s *chatStream) drain() {
	for {
		if _, err := s.stream.Recv(); err != nil {
			return
		}
	}
}

var _ llm.Stream = (*chatStream)(nil)
