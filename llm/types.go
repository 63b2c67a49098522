package llm

import (
	"encoding/json"
	"strings"
)

// MessageRole represents the role of a message in a conversation.
type MessageRole string

const (
	RoleSystem    MessageRole = "system"
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
	RoleTool      MessageRole = "tool"
)

// Attachment represents a file attached to a message. Data is nil until the
// attachment content has been fetched; a nil Data is a recoverable
// per-attachment failure at send time, not a fatal error.
type Attachment struct {
	ID       string
	Filename string
	MimeType string
	Data     []byte
}

// Fetched reports whether the attachment content is available for encoding.
func (a *Attachment) Fetched() bool {
	return len(a.Data) > 0
}

// Message represents a single message in a conversation. Ordering within a
// request is significant. A system message appears at most once; vendors that
// require out-of-band system transport extract it during formatting.
type Message struct {
	Role        MessageRole
	Content     string
	Attachments []Attachment
}

// Tool is the canonical tool definition. Every vendor tool format is derived
// from this shape, never the reverse.
type Tool struct {
	Type     string // always "function"
	Function ToolFunction
}

// ToolFunction describes the callable surface of a canonical tool.
// Parameters is a JSON Schema object.
type ToolFunction struct {
	Name        string
	Description string
	Parameters  map[string]any
}

// NewFunctionTool creates a canonical tool with the given name, description,
// and JSON Schema parameters.
func NewFunctionTool(name, description string, parameters map[string]any) Tool {
	return Tool{
		Type: "function",
		Function: ToolFunction{
			Name:        name,
			Description: description,
			Parameters:  parameters,
		},
	}
}

// Request represents a complete vendor-neutral LLM request.
type Request struct {
	Messages         []Message
	Model            string
	Temperature      *float64
	TopP             *float64
	MaxTokens        int64
	Stop             []string
	Tools            []Tool
	WebSearchEnabled bool
}

// Usage represents token usage reported by a vendor for one call.
type Usage struct {
	PromptTokens     int64
	CompletionTokens int64
	TotalTokens      int64
}

// AttachmentFailure records why a single attachment could not be sent.
type AttachmentFailure struct {
	ID    string
	Error string
}

// AttachmentOutcome collects per-attachment results from message formatting.
// Attachment failures are always partial; the rest of the message is still
// sent and the caller surfaces failures to the end user.
type AttachmentOutcome struct {
	Sent   []string
	Failed []AttachmentFailure
}

// AddSent records an attachment that was encoded into the outgoing message.
func (o *AttachmentOutcome) AddSent(id string) {
	o.Sent = append(o.Sent, id)
}

// AddFailed records an attachment that could not be encoded.
func (o *AttachmentOutcome) AddFailed(id, reason string) {
	o.Failed = append(o.Failed, AttachmentFailure{ID: id, Error: reason})
}

// Response represents a complete non-streaming vendor response.
// Raw holds the vendor-native final message object; the tool-call parsers in
// toolcalls.go operate on it.
type Response struct {
	Content     string
	Usage       *Usage
	Attachments *AttachmentOutcome
	StopReason  string
	Raw         any
}

// StreamEvent is one element of a Stream. While Done is false only Content is
// set: an incremental, order-preserving text delta. The single terminal event
// has Done true and carries Usage, the AttachmentOutcome computed during
// formatting, and Raw, the vendor-native final response reconstructed from
// streamed deltas. Concatenating the Content of all non-terminal events yields
// exactly the text Raw reports.
type StreamEvent struct {
	Content     string
	Done        bool
	Usage       *Usage
	Attachments *AttachmentOutcome
	Raw         any
}

// ToolCallRequest is a structured tool invocation extracted from a
// fully-drained raw response.
type ToolCallRequest struct {
	Name      string
	Arguments map[string]any
}

// ToolExecutionMetadata identifies the provider/model context a tool ran under.
type ToolExecutionMetadata struct {
	Provider string
	Model    string
}

// ToolExecutionResult is produced by the external tool executor. The core only
// consumes this shape.
type ToolExecutionResult struct {
	ToolName string
	Success  bool
	Result   any
	Error    string
	Metadata *ToolExecutionMetadata
}

// ResultText renders the execution result as text suitable for feeding back to
// the model as a tool-result turn.
func (r *ToolExecutionResult) ResultText() string {
	if !r.Success {
		return "Error: " + r.Error
	}
	switch v := r.Result.(type) {
	case string:
		return v
	case []byte:
		return string(v)
	default:
		b, err := json.Marshal(r.Result)
		if err != nil {
			return ""
		}
		return string(b)
	}
}

// ImageRequest describes an image-generation call for providers that support it.
type ImageRequest struct {
	Prompt string
	Model  string
	Size   string
	Count  int
}

// GeneratedImage is one image produced by GenerateImage.
type GeneratedImage struct {
	MimeType string
	Data     []byte
	URL      string
}

// ImageResponse is the result of an image-generation call.
type ImageResponse struct {
	Images []GeneratedImage
	Raw    any
}

// SystemPrompt extracts the single system message from msgs and returns the
// remaining messages. Vendors that transport the system prompt out-of-band
// (Anthropic, Google) use this during formatting.
func SystemPrompt(msgs []Message) (string, []Message) {
	var system string
	rest := make([]Message, 0, len(msgs))
	for _, m := range msgs {
		if m.Role == RoleSystem && system == "" {
			system = m.Content
			continue
		}
		rest = append(rest, m)
	}
	return system, rest
}

// ToJSON marshals a message for debugging and logging.
func (m Message) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// TrimmedContent returns the message content with surrounding whitespace removed.
func (m Message) TrimmedContent() string {
	return strings.TrimSpace(m.Content)
}
