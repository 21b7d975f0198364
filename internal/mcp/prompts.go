package mcp

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const docsWorkflowPromptName = "docs_workflow"

func registerPrompts(mcpServer *mcp.Server) {
	for _, prompt := range PromptDefinitions() {
		mcpServer.AddPrompt(prompt, promptHandler())
	}
}

// PromptDefinitions returns MCP prompt definitions.
func PromptDefinitions() []*mcp.Prompt {
	return []*mcp.Prompt{
		{
			Name:        docsWorkflowPromptName,
			Title:       "Documentation lookup",
			Description: "Brief guidance for finding and linking documentation pages.",
		},
	}
}

func promptHandler() mcp.PromptHandler {
	return func(_ context.Context, _ *mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
		return &mcp.GetPromptResult{
			Description: "Brief guidance for finding and linking documentation pages.",
			Messages: []*mcp.PromptMessage{
				{
					Role:    mcp.Role("user"),
					Content: &mcp.TextContent{Text: "Use docs_search to find pages by topic and quote the returned url when answering. Use docs_resolve to check that a path you want to link actually exists before citing it."},
				},
			},
		}, nil
	}
}
