package chat

import (
	"fmt"

	"github.com/samber/lo"

	"github.com/foundry-9/quilltap/llm"
)

// toolResultPrefix opens the canonical re-expression of a tool result. Tool
// results travel as ordinary user-role messages so every vendor, including
// ones without a native tool-result role, consumes them uniformly.
const toolResultPrefix = "[Tool Result: %s]"

// toolCallPlaceholder stands in for assistant text when a vendor emitted a
// tool call with no accompanying text.
const toolCallPlaceholder = "[Calling tool: %s]"

// Canonicalize converts stored history into vendor-neutral request messages.
// Tool-result messages are re-expressed as user messages with the tool-result
// prefix; everything else passes through with its role intact.
func Canonicalize(history []StoredMessage) []llm.Message {
	return lo.Map(history, func(msg StoredMessage, _ int) llm.Message {
		if msg.Role == llm.RoleTool {
			return llm.Message{
				Role:    llm.RoleUser,
				Content: fmt.Sprintf(toolResultPrefix, msg.ToolName) + "\n" + msg.Content,
			}
		}
		return llm.Message{Role: msg.Role, Content: msg.Content}
	})
}

func toolResultMessage(result *llm.ToolExecutionResult) llm.Message {
	return llm.Message{
		Role:    llm.RoleUser,
		Content: fmt.Sprintf(toolResultPrefix, result.ToolName) + "\n" + result.ResultText(),
	}
}

// GenerateImageTool is the canonical image-generation tool offered to vendors
// when an image profile is configured.
var GenerateImageTool = llm.NewFunctionTool(
	"generate_image",
	"Generate an image from a text prompt. Use when the user asks for a picture, drawing, or any visual content.",
	map[string]any{
		"type": "object",
		"properties": map[string]any{
			"prompt": map[string]any{
				"type":        "string",
				"description": "A detailed description of the image to generate.",
			},
		},
		"required": []string{"prompt"},
	},
)

// WebSearchTool is the canonical web-search tool, offered only to vendors
// without native web search.
var WebSearchTool = llm.NewFunctionTool(
	"web_search",
	"Search the web for current information. Use for questions about recent events or facts that may have changed.",
	map[string]any{
		"type": "object",
		"properties": map[string]any{
			"query": map[string]any{
				"type":        "string",
				"description": "The search query.",
			},
		},
		"required": []string{"query"},
	},
)

// buildTools assembles the tool list from active capabilities. The image tool
// requires a configured image profile. When the vendor has native web search
// the generic tool is withheld so a query is never answered twice.
func buildTools(opts *TurnOptions, provider llm.Provider) []llm.Tool {
	var tools []llm.Tool
	if opts.ImageProfileConfigured {
		tools = append(tools, GenerateImageTool)
	}
	if opts.WebSearchAllowed && !provider.SupportsNativeWebSearch() {
		tools = append(tools, WebSearchTool)
	}
	return tools
}
