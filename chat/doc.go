// Package chat drives conversation turns against an LLM provider.
//
// A turn moves through a fixed sequence: build the canonical request from
// stored history, stream the vendor response while forwarding text deltas to
// the caller's transport, detect tool calls in the drained raw response,
// execute them sequentially through the external executor, feed results back
// as follow-up turns, and repeat until the vendor stops calling tools or the
// iteration cap is reached. Only then is anything persisted.
//
// Collaborators are narrow interfaces: ToolExecutor runs detected calls,
// MessageStore persists finalized messages, Transport delivers events
// (typically SSE). The runner owns none of them.
package chat
