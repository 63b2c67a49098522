// Package llm provides a provider-neutral abstraction layer for Large Language Model (LLM) APIs.
//
// This package defines the canonical request/response types, interfaces, and utilities that
// allow the codebase to work with multiple LLM vendors (OpenAI, Anthropic, Google, Grok,
// Ollama, OpenRouter, generic OpenAI-compatible endpoints) without being tightly coupled
// to any specific vendor's SDK or wire format.
//
// # Core Concepts
//
//  1. Messages: the Message type represents a conversation message with a role (system,
//     user, assistant, tool), text content, and optional file attachments.
//
//  2. Tools: the Tool type is the single canonical tool definition. All vendor tool
//     formats (OpenAI function, Anthropic input_schema, Google parameters) are derived
//     from it via the translator functions in toolschema.go, never the reverse.
//
//  3. Provider interface: each vendor implements Provider once, behind capability flags.
//     SendMessage performs a non-streaming call; StreamMessage returns a single-pass,
//     forward-only Stream of events. Both paths apply identical message and attachment
//     formatting.
//
//  4. Streams: a Stream yields ordered content deltas followed by exactly one terminal
//     event carrying usage, per-attachment outcomes, and the vendor-native final response
//     reconstructed from streamed deltas. Concatenating the non-terminal content deltas
//     reproduces the text the terminal raw response reports. Tool-call argument fragments
//     are never surfaced as content; they are accumulated internally and only become
//     visible through the raw response once fully drained.
//
//  5. Tool calls: the parser functions in toolcalls.go extract ToolCallRequest values
//     from a fully-drained raw response, one parser per vendor response family.
//
//  6. Errors: the Error type provides provider-neutral error handling with support for
//     configuration faults, unsupported capabilities, rate limits, and retryability.
//
// # Extension Points
//
// To add a new vendor:
//  1. Implement the Provider interface in a subpackage.
//  2. Derive the vendor tool format from the canonical Tool via the translator functions.
//  3. Reconstruct the vendor's non-streaming response shape from streamed deltas so the
//     matching parser can extract tool calls from it.
//  4. Translate vendor errors to llm.Error values.
//
// Providers are resolved by name through a Registry (see registry.go) or the static
// factory package, which also auto-detects known vendors from OpenAI-compatible base URLs.
package llm
