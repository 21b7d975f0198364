package mcp

import "github.com/modelcontextprotocol/go-sdk/mcp"

const (
	toolDocsSearch  = "docs_search"
	toolDocsResolve = "docs_resolve"
)

// ToolDefinitions returns the documentation MCP tool definitions.
func ToolDefinitions() []*mcp.Tool {
	return []*mcp.Tool{
		{
			Name:        toolDocsSearch,
			Description: "Docs tool. Full-text search over the served documentation pages. Matches page titles (weighted higher) and body text; the last word also matches as a prefix so partial words work. Returns up to max_results hits ordered by relevance, each with title, absolute url and a short snippet around the first match. Pass lang (for example \"ru\") to restrict hits to one language section.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"query": map[string]any{
						"type":        "string",
						"description": "Words to search for (required, non-blank)",
					},
					"lang": map[string]any{
						"type":        "string",
						"description": "Optional language section, the first path segment of page URLs",
					},
					"max_results": map[string]any{
						"type":        "integer",
						"description": "Maximum hits to return (default 10, max 20)",
						"minimum":     1,
						"maximum":     20,
					},
				},
				"required": []string{"query"},
			},
		},
		{
			Name:        toolDocsResolve,
			Description: "Docs tool. Show how the content server maps a URL path to a file: extension-less paths get .html appended and paths ending in / get index.html. Query and fragment are kept. Returns the resolved path, whether that file exists, and its absolute url.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"path": map[string]any{
						"type":        "string",
						"description": "URL path as a browser would request it, e.g. /ru/syntax/cut or /ru/search/?tabs=a_b",
					},
				},
				"required": []string{"path"},
			},
		},
	}
}
