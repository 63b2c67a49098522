package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/foundry-9/quilltap/chat"
)

// SearchFunc performs a web search and returns a textual summary of results.
type SearchFunc func(ctx context.Context, query string) (string, error)

// RegisterWebSearch wires the web_search tool to a search backend. The tool
// is only offered to vendors without native web search, so the backend is
// whatever the deployment configures.
func (r *Registry) RegisterWebSearch(search SearchFunc) {
	r.Register("web_search", func(ctx context.Context, args map[string]any, execCtx chat.ExecutionContext) (any, error) {
		query, _ := args["query"].(string)
		if strings.TrimSpace(query) == "" {
			return nil, fmt.Errorf("web_search requires a non-empty query")
		}
		if search == nil {
			return nil, fmt.Errorf("web search backend is not configured")
		}

		results, err := search(ctx, query)
		if err != nil {
			return nil, fmt.Errorf("web search failed: %w", err)
		}
		return map[string]any{"query": query, "results": results}, nil
	})
}
