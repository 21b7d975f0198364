package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/diplodoc-platform/testpack/internal/errs"
	"github.com/diplodoc-platform/testpack/internal/search"
	"github.com/diplodoc-platform/testpack/internal/site"
	"github.com/diplodoc-platform/testpack/internal/urlutil"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Handler implements MCP tool call handling.
type Handler struct {
	searcher search.Searcher
	pages    *site.Handler
	baseURL  string
}

// NewHandler creates a handler. A nil searcher disables docs_search.
func NewHandler(searcher search.Searcher, pages *site.Handler, baseURL string) *Handler {
	return &Handler{
		searcher: searcher,
		pages:    pages,
		baseURL:  baseURL,
	}
}

// createToolHandler returns a tool handler function for the given tool name.
func (h *Handler) createToolHandler(name string) func(ctx context.Context, req *mcp.CallToolRequest, args map[string]any) (*mcp.CallToolResult, any, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, args map[string]any) (*mcp.CallToolResult, any, error) {
		result, err := h.HandleToolCall(ctx, name, args)
		return result, nil, err
	}
}

// HandleToolCall routes tool calls to appropriate handlers.
func (h *Handler) HandleToolCall(ctx context.Context, name string, arguments map[string]any) (*mcp.CallToolResult, error) {
	switch name {
	case toolDocsSearch:
		return h.handleDocsSearch(ctx, arguments)
	case toolDocsResolve:
		return h.handleDocsResolve(arguments)
	default:
		return newToolResultError(errs.New(errs.NotFound, fmt.Sprintf("unknown tool: %s", name))), nil
	}
}

type toolErrorPayload struct {
	Code    errs.Code `json:"code"`
	Message string    `json:"message"`
}

// newToolResultText creates a successful tool result with text content.
func newToolResultText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
		},
	}
}

// newToolResultError creates a tool result carrying a coded error payload.
func newToolResultError(err error) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: marshalToolJSON(toolErrorPayload{Code: errs.CodeOf(err), Message: errs.MessageOf(err)})},
		},
		IsError: true,
	}
}

func marshalToolJSON(value any) string {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return fmt.Sprintf(`{"error":"failed to marshal response","detail":%q}`, err.Error())
	}
	return string(data)
}

// decodeToolArgs maps loosely typed arguments onto a struct, rejecting
// unknown fields.
func decodeToolArgs(args map[string]any, dst any) error {
	if args == nil {
		args = map[string]any{}
	}
	raw, err := json.Marshal(args)
	if err != nil {
		return errs.Wrap(errs.InvalidArgument, "arguments are not valid JSON", err)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return errs.Wrap(errs.InvalidArgument, "invalid arguments: "+err.Error(), err)
	}
	return nil
}

type docsSearchArgs struct {
	Query      string `json:"query"`
	Lang       string `json:"lang,omitempty"`
	MaxResults int    `json:"max_results,omitempty"`
}

type docsSearchHit struct {
	Title   string  `json:"title"`
	URL     string  `json:"url"`
	Snippet string  `json:"snippet,omitempty"`
	Score   float64 `json:"score"`
}

type docsSearchResult struct {
	Query string          `json:"query"`
	Total int             `json:"total"`
	Hits  []docsSearchHit `json:"hits"`
}

func (h *Handler) handleDocsSearch(ctx context.Context, args map[string]any) (*mcp.CallToolResult, error) {
	if h.searcher == nil {
		return newToolResultError(errs.New(errs.Unavailable, "search is disabled on this server")), nil
	}
	var in docsSearchArgs
	if err := decodeToolArgs(args, &in); err != nil {
		return newToolResultError(err), nil
	}
	if in.MaxResults < 0 || in.MaxResults > search.MaxLimit {
		return newToolResultError(errs.New(errs.InvalidArgument, fmt.Sprintf("max_results must be between 1 and %d", search.MaxLimit))), nil
	}

	hits, err := h.searcher.Search(ctx, search.Query{Text: in.Query, Lang: in.Lang, Limit: in.MaxResults})
	if err != nil {
		return newToolResultError(err), nil
	}
	out := docsSearchResult{Query: in.Query, Total: len(hits), Hits: make([]docsSearchHit, 0, len(hits))}
	for _, hit := range hits {
		out.Hits = append(out.Hits, docsSearchHit{
			Title:   hit.Title,
			URL:     urlutil.BuildAbsolute(h.baseURL, hit.URL),
			Snippet: hit.Snippet,
			Score:   hit.Score,
		})
	}
	return newToolResultText(marshalToolJSON(out)), nil
}

type docsResolveArgs struct {
	Path string `json:"path"`
}

type docsResolveResult struct {
	Path     string `json:"path"`
	Resolved string `json:"resolved"`
	Exists   bool   `json:"exists"`
	URL      string `json:"url"`
}

func (h *Handler) handleDocsResolve(args map[string]any) (*mcp.CallToolResult, error) {
	var in docsResolveArgs
	if err := decodeToolArgs(args, &in); err != nil {
		return newToolResultError(err), nil
	}
	if in.Path == "" {
		return newToolResultError(errs.New(errs.InvalidArgument, "path is required")), nil
	}

	resolved, err := site.Resolve(in.Path)
	if err != nil {
		return newToolResultError(err), nil
	}
	u, err := url.Parse(resolved)
	if err != nil {
		return newToolResultError(errs.Wrap(errs.InvalidArgument, "invalid url", err)), nil
	}
	out := docsResolveResult{
		Path:     in.Path,
		Resolved: resolved,
		Exists:   h.pages != nil && u.Host == "" && h.pages.Exists(u.Path),
		URL:      urlutil.BuildAbsolute(h.baseURL, resolved),
	}
	return newToolResultText(marshalToolJSON(out)), nil
}
