// Package server assembles the docserver HTTP handler.
package server

import (
	"io"
	"io/fs"
	"net/http"

	"github.com/diplodoc-platform/testpack/internal/obs"
	"github.com/diplodoc-platform/testpack/internal/ratelimit"
	"github.com/diplodoc-platform/testpack/internal/search"
	"github.com/diplodoc-platform/testpack/internal/site"
	"github.com/diplodoc-platform/testpack/internal/urlutil"
)

// WelcomeText is the /healthz body.
const WelcomeText = "Welcome to the Playwright Test Server!"

// MCPPath is where the MCP endpoint is mounted when enabled.
const MCPPath = "/-/mcp"

// Deps are the parts New wires together. Searcher and MCP are optional.
type Deps struct {
	Root       fs.FS
	Searcher   search.Searcher
	Limiter    *ratelimit.Limiter
	MaxResults int
	MCP        http.Handler
}

// New returns the root handler: health check, search suggest, MCP and the
// content server behind request correlation and access logging.
func New(d Deps) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		obs.SetRoute(r.Context(), "healthz")
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		io.WriteString(w, WelcomeText)
	})
	if d.Searcher != nil {
		mux.Handle(search.SuggestPath, search.NewSuggestHandler(d.Searcher, d.Limiter, d.MaxResults))
	}
	if d.MCP != nil {
		mux.Handle(MCPPath, d.MCP)
	}
	mux.Handle("/", site.NewHandler(d.Root))

	return obs.RequestContextMiddleware(urlutil.ClientIP, obs.AccessLogMiddleware("server", mux))
}
