package openai

import (
	"testing"

	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"

	"github.com/foundry-9/quilltap/llm"
)

func indexPtr(i int) *int { return &i }

func TestResponseAccumulatorMergesToolCallFragments(t *testing.T) {
	acc := &responseAccumulator{}

	// The id and name arrive in the first delta, argument fragments trickle
	// in afterwards keyed only by index.
	acc.mergeToolCall(openai.ToolCall{
		Index:    indexPtr(0),
		ID:       "call_abc",
		Function: openai.FunctionCall{Name: "get_weather"},
	})
	acc.mergeToolCall(openai.ToolCall{Index: indexPtr(0), Function: openai.FunctionCall{Arguments: `{"city":`}})
	acc.mergeToolCall(openai.ToolCall{Index: indexPtr(0), Function: openai.FunctionCall{Arguments: `"Oslo"}`}})

	msg := acc.message()
	if len(msg.ToolCalls) != 1 {
		t.Fatalf("expected one tool call, got %d", len(msg.ToolCalls))
	}
	call := msg.ToolCalls[0]
	if call.ID != "call_abc" || call.Function.Name != "get_weather" {
		t.Errorf("unexpected call header: %+v", call)
	}
	if call.Function.Arguments != `{"city":"Oslo"}` {
		t.Errorf("expected fragments concatenated, got %q", call.Function.Arguments)
	}
}

func TestResponseAccumulatorParallelToolCalls(t *testing.T) {
	acc := &responseAccumulator{}

	acc.mergeToolCall(openai.ToolCall{Index: indexPtr(0), ID: "call_a", Function: openai.FunctionCall{Name: "first", Arguments: `{}`}})
	acc.mergeToolCall(openai.ToolCall{Index: indexPtr(1), ID: "call_b", Function: openai.FunctionCall{Name: "second"}})
	acc.mergeToolCall(openai.ToolCall{Index: indexPtr(1), Function: openai.FunctionCall{Arguments: `{"n":1}`}})

	msg := acc.message()
	if len(msg.ToolCalls) != 2 {
		t.Fatalf("expected two tool calls, got %d", len(msg.ToolCalls))
	}
	if msg.ToolCalls[0].Function.Name != "first" || msg.ToolCalls[1].Function.Name != "second" {
		t.Errorf("index order lost: %+v", msg.ToolCalls)
	}
	if msg.ToolCalls[1].Function.Arguments != `{"n":1}` {
		t.Errorf("arguments merged into the wrong draft: %+v", msg.ToolCalls[1])
	}
}

func TestReconstructedMessageFeedsParser(t *testing.T) {
	acc := &responseAccumulator{}
	acc.content.WriteString("Checking the weather.")
	acc.mergeToolCall(openai.ToolCall{
		Index:    indexPtr(0),
		ID:       "call_abc",
		Function: openai.FunctionCall{Name: "get_weather", Arguments: `{"city":"Oslo"}`},
	})

	msg := acc.message()
	if msg.Content != "Checking the weather." {
		t.Errorf("expected accumulated content in the raw message, got %q", msg.Content)
	}

	calls := llm.ParseOpenAIToolCalls(msg, zerolog.Nop())
	if len(calls) != 1 {
		t.Fatalf("expected the parser to read the reconstructed message, got %+v", calls)
	}
	if calls[0].Name != "get_weather" || calls[0].Arguments["city"] != "Oslo" {
		t.Errorf("unexpected parsed call: %+v", calls[0])
	}
}

func TestResponseAccumulatorNoToolCalls(t *testing.T) {
	acc := &responseAccumulator{}
	acc.content.WriteString("Plain answer.")

	msg := acc.message()
	if len(msg.ToolCalls) != 0 {
		t.Errorf("expected no tool calls, got %+v", msg.ToolCalls)
	}
	if calls := llm.ParseOpenAIToolCalls(msg, zerolog.Nop()); len(calls) != 0 {
		t.Errorf("expected no parsed calls, got %+v", calls)
	}
}
