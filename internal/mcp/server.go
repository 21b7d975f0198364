// Package mcp exposes the documentation site to MCP clients over the
// Streamable HTTP transport.
package mcp

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/diplodoc-platform/testpack/internal/logutil"
	"github.com/diplodoc-platform/testpack/internal/obs"
	"github.com/diplodoc-platform/testpack/internal/search"
	"github.com/diplodoc-platform/testpack/internal/site"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Server wraps the MCP server with docs tool handling.
type Server struct {
	mcpServer   *mcp.Server
	handler     *Handler
	httpHandler http.Handler
}

const (
	serverName    = "diplodoc-testpack"
	serverVersion = "1.0.0"

	maxMCPBodyBytes           = 1 << 20
	mcpDebugBodyLogLimitBytes = 8 * 1024
	allowedMethods            = "POST, DELETE, OPTIONS"
)

type mcpResponseLogger struct {
	http.ResponseWriter
	statusCode int
	wrote      bool
	body       []byte
	truncated  bool
}

func newMCPResponseLogger(w http.ResponseWriter) *mcpResponseLogger {
	return &mcpResponseLogger{
		ResponseWriter: w,
		statusCode:     http.StatusOK,
		body:           make([]byte, 0, 512),
	}
}

func (w *mcpResponseLogger) WriteHeader(code int) {
	if w.wrote {
		return
	}
	w.wrote = true
	w.statusCode = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *mcpResponseLogger) Write(p []byte) (int, error) {
	w.wrote = true
	if len(w.body) < mcpDebugBodyLogLimitBytes {
		remaining := mcpDebugBodyLogLimitBytes - len(w.body)
		if len(p) <= remaining {
			w.body = append(w.body, p...)
		} else {
			w.body = append(w.body, p[:remaining]...)
			w.truncated = true
		}
	} else {
		w.truncated = true
	}
	return w.ResponseWriter.Write(p)
}

func (w *mcpResponseLogger) Flush() {
	if flusher, ok := w.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func formatBodyForLog(b []byte, truncated bool) string {
	if len(b) == 0 {
		return ""
	}
	text := logutil.TruncateForLog(string(b), mcpDebugBodyLogLimitBytes)
	if truncated {
		return text + " [truncated]"
	}
	return text
}

func formatMCPHeadersForLog(headers http.Header) string {
	return logutil.FormatHeadersForLog(headers)
}

// isASCII reports whether s is non-blank printable ASCII.
func isASCII(s string) bool {
	if strings.TrimSpace(s) == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < 0x21 || s[i] > 0x7e {
			return false
		}
	}
	return true
}

// NewServer creates an MCP server with the docs tools registered. searcher
// may be nil when search is disabled; pages answers docs_resolve existence
// checks and baseURL makes returned links absolute.
func NewServer(searcher search.Searcher, pages *site.Handler, baseURL string) *Server {
	handler := NewHandler(searcher, pages, baseURL)

	mcpServer := mcp.NewServer(
		&mcp.Implementation{
			Name:    serverName,
			Version: serverVersion,
		},
		nil,
	)

	for _, tool := range ToolDefinitions() {
		mcp.AddTool(mcpServer, tool, handler.createToolHandler(tool.Name))
	}
	registerPrompts(mcpServer)

	// Stateless JSON responses: every request stands alone, so the
	// initialize handshake is skipped.
	httpHandler := mcp.NewStreamableHTTPHandler(
		func(r *http.Request) *mcp.Server {
			return mcpServer
		},
		&mcp.StreamableHTTPOptions{
			JSONResponse: true,
			Stateless:    true,
		},
	)

	return &Server{
		mcpServer:   mcpServer,
		handler:     handler,
		httpHandler: httpHandler,
	}
}

// ServeHTTP implements http.Handler for the Streamable HTTP transport.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	obs.SetRoute(r.Context(), "mcp")
	log := obs.From(r.Context()).With("pkg", "mcp")

	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Accept, Mcp-Session-Id, Last-Event-ID")
	w.Header().Set("Access-Control-Allow-Methods", allowedMethods)

	switch r.Method {
	case http.MethodOptions:
		w.Header().Set("Access-Control-Max-Age", "86400")
		w.WriteHeader(http.StatusNoContent)
		return
	case http.MethodPost, http.MethodDelete:
	default:
		// Stateless mode has no server-initiated stream to attach to.
		w.Header().Set("Allow", allowedMethods)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if sid := r.Header.Get("Mcp-Session-Id"); sid != "" && !isASCII(sid) {
		http.Error(w, "invalid Mcp-Session-Id header", http.StatusBadRequest)
		return
	}

	var reqBody []byte
	if r.Body != nil && r.Method == http.MethodPost {
		var err error
		reqBody, err = io.ReadAll(http.MaxBytesReader(w, r.Body, maxMCPBodyBytes))
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				log.Warn("mcp_request_too_large", "limit", maxMCPBodyBytes)
				http.Error(w, "request body too large", http.StatusRequestEntityTooLarge)
				return
			}
			log.Warn("mcp_request_read_failed", "error", err)
			http.Error(w, "failed to read request body", http.StatusBadRequest)
			return
		}
		r.Body = io.NopCloser(bytes.NewReader(reqBody))
	}

	log.Debug("mcp_request",
		"method", r.Method,
		"headers", formatMCPHeadersForLog(r.Header),
		"body", formatBodyForLog(reqBody, false),
	)

	respLogger := newMCPResponseLogger(w)
	func() {
		defer func() {
			if rec := recover(); rec != nil {
				log.Error("mcp_handler_panic", "panic", rec)
				if !respLogger.wrote {
					http.Error(respLogger, "Internal server error", http.StatusInternalServerError)
				}
			}
		}()
		s.httpHandler.ServeHTTP(respLogger, r)
	}()

	if !respLogger.wrote {
		log.Error("mcp_no_response", "method", r.Method)
		http.Error(respLogger, "MCP handler returned without writing response", http.StatusInternalServerError)
		return
	}

	if respLogger.statusCode >= http.StatusBadRequest {
		log.Warn("mcp_request_failed",
			"method", r.Method,
			"status", respLogger.statusCode,
			"response", formatBodyForLog(respLogger.body, respLogger.truncated),
		)
		return
	}
	log.Debug("mcp_response",
		"status", respLogger.statusCode,
		"content_type", respLogger.Header().Get("Content-Type"),
		"body", formatBodyForLog(respLogger.body, respLogger.truncated),
	)
}
