package chat

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/foundry-9/quilltap/llm"
)

// DefaultMaxToolRounds bounds the tool-call loop. The cap is a safety bound
// against a vendor and a tool oscillating indefinitely; hitting it is a
// logged warning, not an error, and accumulated state is still finalized.
const DefaultMaxToolRounds = 5

// TurnOptions configures one conversation turn.
type TurnOptions struct {
	ChatID      string
	UserID      string
	CharacterID string
	Participant string

	Model       string
	Temperature *float64
	TopP        *float64
	MaxTokens   int64
	Stop        []string

	// WebSearchAllowed permits web search for this turn, served natively by
	// the vendor when supported, otherwise via the generic tool.
	WebSearchAllowed bool
	// ImageProfileConfigured enables the image-generation tool.
	ImageProfileConfigured bool
	// MaxToolRounds overrides DefaultMaxToolRounds when positive.
	MaxToolRounds int
}

func (o *TurnOptions) maxToolRounds() int {
	if o.MaxToolRounds > 0 {
		return o.MaxToolRounds
	}
	return DefaultMaxToolRounds
}

// TurnRunner drives one conversation turn: build the request, stream the
// vendor response, detect and execute tool calls, loop bounded by the
// iteration cap, then persist and emit the terminal event. Persistence
// happens only during finalization; partial text already forwarded to the
// transport is never retracted.
type TurnRunner struct {
	provider llm.Provider
	executor ToolExecutor
	store    MessageStore
	logger   zerolog.Logger
}

// NewTurnRunner creates a runner for one provider. Executor and store may be
// shared across turns; the runner itself is stateless between Run calls.
func NewTurnRunner(provider llm.Provider, executor ToolExecutor, store MessageStore, logger zerolog.Logger) *TurnRunner {
	return &TurnRunner{
		provider: provider,
		executor: executor,
		store:    store,
		logger:   logger.With().Str("component", "turnRunner").Logger(),
	}
}

// Run executes one turn against the canonicalized history. The transport is
// closed exactly once on every path, after a terminal done or error event.
func (r *TurnRunner) Run(ctx context.Context, opts *TurnOptions, history []llm.Message, transport Transport) error {
	var closeOnce sync.Once
	closeTransport := func() {
		closeOnce.Do(func() {
			if err := transport.Close(); err != nil {
				r.logger.Warn().Err(err).Msg("failed to close transport")
			}
		})
	}
	defer closeTransport()

	tools := buildTools(opts, r.provider)
	messages := history

	usage := &UsageSummary{}
	attachments := &AttachmentSummary{}
	var allResults []*llm.ToolExecutionResult
	var finalText strings.Builder
	rounds := 0

	for {
		req := r.buildRequest(opts, messages, tools)

		roundText, raw, err := r.streamRound(ctx, req, transport, usage, attachments)
		if err != nil {
			r.logger.Error().Err(err).Str("chatId", opts.ChatID).Msg("turn aborted by streaming failure")
			if sendErr := transport.Send(errorEvent(err.Error())); sendErr != nil {
				r.logger.Warn().Err(sendErr).Msg("failed to deliver error event")
			}
			closeTransport()
			return err
		}

		appendText(&finalText, roundText)

		calls := r.parseToolCalls(raw)
		if len(calls) == 0 {
			break
		}

		results := r.executeCalls(ctx, opts, calls)
		allResults = append(allResults, results...)
		messages = appendToolRound(messages, roundText, calls, results)

		rounds++
		if rounds >= opts.maxToolRounds() {
			r.logger.Warn().
				Int("rounds", rounds).
				Str("chatId", opts.ChatID).
				Msg("tool-call iteration cap reached, finalizing accumulated state")
			break
		}
	}

	messageID := r.finalize(ctx, opts, finalText.String(), allResults)

	done := &Event{
		Type:        EventDone,
		MessageID:   messageID,
		Usage:       usage,
		Attachments: attachments,
		ToolResults: allResults,
	}
	if err := transport.Send(done); err != nil {
		r.logger.Warn().Err(err).Msg("failed to deliver done event")
	}
	closeTransport()
	return nil
}

func (r *TurnRunner) buildRequest(opts *TurnOptions, messages []llm.Message, tools []llm.Tool) *llm.Request {
	return &llm.Request{
		Messages:         messages,
		Model:            opts.Model,
		Temperature:      opts.Temperature,
		TopP:             opts.TopP,
		MaxTokens:        opts.MaxTokens,
		Stop:             opts.Stop,
		Tools:            tools,
		WebSearchEnabled: opts.WebSearchAllowed && r.provider.SupportsNativeWebSearch(),
	}
}

// streamRound consumes one vendor stream, forwarding content deltas to the
// transport in order and returning the round's accumulated text plus the raw
// terminal response.
func (r *TurnRunner) streamRound(ctx context.Context, req *llm.Request, transport Transport, usage *UsageSummary, attachments *AttachmentSummary) (string, any, error) {
	stream, err := r.provider.StreamMessage(ctx, req)
	if err != nil {
		return "", nil, err
	}
	defer func() {
		if closeErr := stream.Close(); closeErr != nil {
			r.logger.Debug().Err(closeErr).Msg("stream close failed")
		}
	}()

	var text strings.Builder
	var raw any

	for stream.Next() {
		event := stream.Event()
		if event == nil {
			continue
		}
		if event.Done {
			usage.add(event.Usage)
			attachments.merge(event.Attachments)
			raw = event.Raw
			continue
		}
		if event.Content == "" {
			continue
		}
		text.WriteString(event.Content)
		if err := transport.Send(contentEvent(event.Content)); err != nil {
			return "", nil, err
		}
	}
	if err := stream.Err(); err != nil {
		return "", nil, err
	}

	return text.String(), raw, nil
}

// parseToolCalls dispatches the raw response to the parser matching the
// provider's response family.
func (r *TurnRunner) parseToolCalls(raw any) []llm.ToolCallRequest {
	switch r.provider.Name() {
	case llm.ProviderAnthropic:
		return llm.ParseAnthropicToolCalls(raw, r.logger)
	case llm.ProviderGoogle:
		return llm.ParseGoogleToolCalls(raw, r.logger)
	default:
		return llm.ParseOpenAIToolCalls(raw, r.logger)
	}
}

// executeCalls runs the detected calls strictly sequentially. Tool side
// effects must not interleave, so no concurrency here. A failing executor
// becomes a failed result fed back to the model, not an aborted turn.
func (r *TurnRunner) executeCalls(ctx context.Context, opts *TurnOptions, calls []llm.ToolCallRequest) []*llm.ToolExecutionResult {
	execCtx := ExecutionContext{
		ChatID:      opts.ChatID,
		UserID:      opts.UserID,
		CharacterID: opts.CharacterID,
		Participant: opts.Participant,
		Provider:    r.provider.Name(),
		Model:       opts.Model,
	}

	results := make([]*llm.ToolExecutionResult, 0, len(calls))
	for _, call := range calls {
		result, err := r.executor.Execute(ctx, call, execCtx)
		if err != nil {
			r.logger.Error().Err(err).Str("tool", call.Name).Msg("tool execution failed")
			result = &llm.ToolExecutionResult{
				ToolName: call.Name,
				Success:  false,
				Error:    err.Error(),
				Metadata: &llm.ToolExecutionMetadata{Provider: execCtx.Provider, Model: execCtx.Model},
			}
		}
		results = append(results, result)
	}
	return results
}

// finalize persists the turn's messages and returns the id to report in the
// done event: the assistant message id when text was produced, else the first
// tool-result id, else empty.
func (r *TurnRunner) finalize(ctx context.Context, opts *TurnOptions, text string, results []*llm.ToolExecutionResult) string {
	var messageID string

	if trimmed := strings.TrimSpace(text); trimmed != "" {
		msg := &StoredMessage{
			ID:        uuid.NewString(),
			ChatID:    opts.ChatID,
			Role:      llm.RoleAssistant,
			Content:   trimmed,
			CreatedAt: time.Now().UTC(),
		}
		if err := r.store.AddMessage(ctx, msg); err != nil {
			r.logger.Error().Err(err).Str("chatId", opts.ChatID).Msg("failed to persist assistant message")
		} else {
			messageID = msg.ID
		}
	}

	for _, result := range results {
		msg := &StoredMessage{
			ID:        uuid.NewString(),
			ChatID:    opts.ChatID,
			Role:      llm.RoleTool,
			Content:   result.ResultText(),
			ToolName:  result.ToolName,
			CreatedAt: time.Now().UTC(),
		}
		if err := r.store.AddMessage(ctx, msg); err != nil {
			r.logger.Error().Err(err).Str("chatId", opts.ChatID).Str("tool", result.ToolName).Msg("failed to persist tool result")
			continue
		}
		if messageID == "" {
			messageID = msg.ID
		}
	}

	return messageID
}

// appendToolRound extends the conversation with the assistant's tool-call
// turn and one user message per result. With no assistant text a placeholder
// marks that a call occurred so the history stays well formed.
func appendToolRound(messages []llm.Message, roundText string, calls []llm.ToolCallRequest, results []*llm.ToolExecutionResult) []llm.Message {
	summary := strings.TrimSpace(roundText)
	if summary == "" {
		summary = placeholderFor(calls)
	}
	messages = append(messages, llm.Message{Role: llm.RoleAssistant, Content: summary})

	for _, result := range results {
		messages = append(messages, toolResultMessage(result))
	}
	return messages
}

func placeholderFor(calls []llm.ToolCallRequest) string {
	names := make([]string, 0, len(calls))
	for _, call := range calls {
		names = append(names, call.Name)
	}
	return fmt.Sprintf(toolCallPlaceholder, strings.Join(names, ", "))
}

func appendText(builder *strings.Builder, text string) {
	if text == "" {
		return
	}
	if builder.Len() > 0 {
		builder.WriteString("\n")
	}
	builder.WriteString(text)
}
