// Package tools implements the tool-execution collaborator consumed by the
// chat runner: a registry of named handlers dispatched per detected call.
package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/foundry-9/quilltap/chat"
	"github.com/foundry-9/quilltap/llm"
)

// Handler executes one tool call and returns its result payload.
type Handler func(ctx context.Context, args map[string]any, execCtx chat.ExecutionContext) (any, error)

// Registry maps tool names to handlers and implements chat.ToolExecutor.
type Registry struct {
	handlers map[string]Handler
	logger   zerolog.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(logger zerolog.Logger) *Registry {
	return &Registry{
		handlers: make(map[string]Handler),
		logger:   logger.With().Str("component", "tool_registry").Logger(),
	}
}

// Register registers a handler for a tool name.
func (r *Registry) Register(name string, h Handler) {
	r.logger.Debug().Str("name", name).Msg("registering tool handler")
	r.handlers[name] = h
}

// Has reports whether a handler is registered for the tool name.
func (r *Registry) Has(name string) bool {
	_, ok := r.handlers[name]
	return ok
}

// Execute dispatches a tool call. Handler failures become unsuccessful
// results so the model sees the error text; only an unknown tool is an
// executor-level error.
func (r *Registry) Execute(ctx context.Context, call llm.ToolCallRequest, execCtx chat.ExecutionContext) (*llm.ToolExecutionResult, error) {
	h, ok := r.handlers[call.Name]
	if !ok {
		r.logger.Error().Str("tool", call.Name).Msg("unknown tool requested")
		return nil, fmt.Errorf("unknown tool: %s", call.Name)
	}

	if args, err := json.Marshal(call.Arguments); err == nil {
		r.logger.Info().
			Str("tool", call.Name).
			Str("chatId", execCtx.ChatID).
			RawJSON("args", args).
			Msg("executing tool")
	}

	metadata := &llm.ToolExecutionMetadata{Provider: execCtx.Provider, Model: execCtx.Model}

	result, err := h(ctx, call.Arguments, execCtx)
	if err != nil {
		r.logger.Warn().Str("tool", call.Name).Err(err).Msg("tool returned error")
		return &llm.ToolExecutionResult{
			ToolName: call.Name,
			Success:  false,
			Error:    err.Error(),
			Metadata: metadata,
		}, nil
	}

	return &llm.ToolExecutionResult{
		ToolName: call.Name,
		Success:  true,
		Result:   result,
		Metadata: metadata,
	}, nil
}

var _ chat.ToolExecutor = (*Registry)(nil)
