package chat

import "github.com/foundry-9/quilltap/llm"

// Event types written to the transport.
const (
	EventContent = "content"
	EventDone    = "done"
	EventError   = "error"
)

// Event is one record written to the transport. Content events carry a text
// delta; the done event carries the turn summary; the error event carries a
// message. Exactly one done or error event ends every turn.
type Event struct {
	Type        string                     `json:"type"`
	Content     string                     `json:"content,omitempty"`
	MessageID   string                     `json:"messageId,omitempty"`
	Usage       *UsageSummary              `json:"usage,omitempty"`
	Attachments *AttachmentSummary         `json:"attachments,omitempty"`
	ToolResults []*llm.ToolExecutionResult `json:"toolResults,omitempty"`
	Error       string                     `json:"error,omitempty"`
}

// UsageSummary is the accumulated token usage across all rounds of a turn.
type UsageSummary struct {
	PromptTokens     int64 `json:"promptTokens"`
	CompletionTokens int64 `json:"completionTokens"`
	TotalTokens      int64 `json:"totalTokens"`
}

func (u *UsageSummary) add(usage *llm.Usage) {
	if usage == nil {
		return
	}
	u.PromptTokens += usage.PromptTokens
	u.CompletionTokens += usage.CompletionTokens
	u.TotalTokens += usage.TotalTokens
}

// AttachmentSummary is the merged attachment outcome across all rounds.
type AttachmentSummary struct {
	Sent   []string                `json:"sent"`
	Failed []llm.AttachmentFailure `json:"failed"`
}

func (a *AttachmentSummary) merge(outcome *llm.AttachmentOutcome) {
	if outcome == nil {
		return
	}
	a.Sent = append(a.Sent, outcome.Sent...)
	a.Failed = append(a.Failed, outcome.Failed...)
}

func contentEvent(delta string) *Event {
	return &Event{Type: EventContent, Content: delta}
}

func errorEvent(message string) *Event {
	return &Event{Type: EventError, Error: message}
}
