package google

import (
	"context"
	"iter"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"google.golang.org/genai"

	"github.com/foundry-9/quilltap/llm"
)

// contentStream implements llm.Stream for Gemini streaming responses.
type contentStream struct {
	ctx     context.Context
	chunks  iter.Seq2[*genai.GenerateContentResponse, error]
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

func newContentStream(ctx context.Context, chunks iter.Seq2[*genai.GenerateContentResponse, error], outcome *llm.AttachmentOutcome, logger zerolog.Logger) *contentStream {
	s := &contentStream{
		ctx:     ctx,
		chunks:  chunks,
		outcome: outcome,
		events:  make([]*llm.StreamEvent, 0),
		current: -1,
		logger:  logger,
	}
	s.cond = sync.NewCond(&s.mu)
	return s
}

// Next advances to the next event in the stream.
func (s *contentStream) Next() bool {
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
func (s *contentStream) Event() *llm.StreamEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current < 0 || s.current >= len(s.events) {
		return nil
	}
	return s.events[s.current]
}

// Err returns any error that occurred during streaming.
func (s *contentStream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Close marks the stream done. The underlying iterator is abandoned; its
// transport is torn down when the request context is cancelled.
func (s *contentStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.done = true
	s.cond.Broadcast()
	return nil
}

func (s *contentStream) emit(event *llm.StreamEvent) {
	s.mu.Lock()
	s.events = append(s.events, event)
	s.cond.Broadcast()
	s.mu.Unlock()
}

// run consumes the chunk iterator. Gemini streams text in fragments but
// function calls as whole parts, so text accumulates into a builder while
// calls are collected as-is.
func (s *contentStream) run() {
	defer func() {
		s.mu.Lock()
		s.done = true
		s.cond.Broadcast()
		s.mu.Unlock()
	}()

	var text strings.Builder
	var calls []*genai.Part
	var finishReason genai.FinishReason
	var usage *genai.GenerateContentResponseUsageMetadata

	for chunk, err := range s.chunks {
		if err != nil {
			s.mu.Lock()
			s.err = llm.NewProviderError("gemini stream failed", err)
			s.cond.Broadcast()
			s.mu.Unlock()
			return
		}

		if chunk.UsageMetadata != nil {
			usage = chunk.UsageMetadata
		}
		if len(chunk.Candidates) == 0 {
			continue
		}
		candidate := chunk.Candidates[0]
		if candidate.FinishReason != "" {
			finishReason = candidate.FinishReason
		}
		if candidate.Content == nil {
			continue
		}

		for _, part := range candidate.Content.Parts {
			if part.Text != "" {
				text.WriteString(part.Text)
				s.emit(&llm.StreamEvent{Content: part.Text})
			}
			if part.FunctionCall != nil {
				calls = append(calls, part)
			}
		}
	}

	parts := make([]*genai.Part, 0, 1+len(calls))
	if text.Len() > 0 {
		parts = append(parts, &genai.Part{Text: text.String()})
	}
	parts = append(parts, calls...)

	raw := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content:      &genai.Content{Role: genai.RoleModel, Parts: parts},
			FinishReason: finishReason,
		}},
		UsageMetadata: usage,
	}

	event := &llm.StreamEvent{
		Done:        true,
		Attachments: s.outcome,
		Raw:         raw,
	}
	if usage != nil {
		event.Usage = usageFromMetadata(usage)
	}
	s.emit(event)
}

var _ llm.Stream = (*contentStream)(nil)
