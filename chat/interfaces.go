package chat

import (
	"context"
	"time"

	"github.com/foundry-9/quilltap/llm"
)

// StoredMessage is one persisted chat message. Tool-result messages carry the
// tool name so history canonicalization can re-express them for the vendor.
type StoredMessage struct {
	ID        string
	ChatID    string
	Role      llm.MessageRole
	Content   string
	ToolName  string
	CreatedAt time.Time
}

// ExecutionContext identifies the conversation a tool call runs under. The
// participant id, when set, resolves speaker placeholders in generated-image
// prompts.
type ExecutionContext struct {
	ChatID      string
	UserID      string
	CharacterID string
	Participant string
	Provider    string
	Model       string
}

// ToolExecutor runs one detected tool call. The runner calls it once per
// call, sequentially; errors are folded into a failed result rather than
// aborting the turn.
type ToolExecutor interface {
	Execute(ctx context.Context, call llm.ToolCallRequest, execCtx ExecutionContext) (*llm.ToolExecutionResult, error)
}

// MessageStore persists chat messages. The runner writes only during
// finalization, never mid-stream.
type MessageStore interface {
	AddMessage(ctx context.Context, msg *StoredMessage) error
	UpdateMessage(ctx context.Context, chatID, messageID string, content string) error
	Messages(ctx context.Context, chatID string) ([]StoredMessage, error)
}

// Transport delivers events to the caller, typically as an SSE response.
// Close is called exactly once per turn, on every path.
type Transport interface {
	Send(event *Event) error
	Close() error
}
