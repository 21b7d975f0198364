// Package obs holds the process-wide structured logger and per-request
// annotations shared by the docserver handlers.
package obs

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

type requestInfoKey struct{}

// RequestInfo is the per-request record the access log reports. Handlers
// downstream of RequestContextMiddleware fill Resolved and Route.
type RequestInfo struct {
	ID       string
	ClientIP string

	mu       sync.Mutex
	resolved string
	route    string
}

var (
	loggerMu sync.RWMutex
	logger   *slog.Logger
	level    = new(slog.LevelVar)
)

// Init configures the global JSON logger on stderr. Calling it twice is a no-op.
func Init() {
	loggerMu.Lock()
	defer loggerMu.Unlock()
	if logger != nil {
		return
	}
	logger = newLogger(os.Stderr)
	slog.SetDefault(logger)
}

// SetLevel changes the minimum level of the global logger.
func SetLevel(l slog.Level) {
	level.Set(l)
}

// ParseLevel maps debug/info/warn/error to a slog level. Unknown names map to info.
func ParseLevel(name string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// SetOutputForTests sends debug-level output to w until the returned func runs.
func SetOutputForTests(w io.Writer) func() {
	loggerMu.Lock()
	prev, prevLevel := logger, level.Level()
	level.Set(slog.LevelDebug)
	logger = newLogger(w)
	slog.SetDefault(logger)
	loggerMu.Unlock()

	return func() {
		loggerMu.Lock()
		defer loggerMu.Unlock()
		level.Set(prevLevel)
		logger = prev
		if logger == nil {
			logger = newLogger(os.Stderr)
		}
		slog.SetDefault(logger)
	}
}

func newLogger(w io.Writer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(_ []string, attr slog.Attr) slog.Attr {
			if t, ok := attr.Value.Any().(time.Time); ok && attr.Key == slog.TimeKey {
				return slog.String(slog.TimeKey, t.UTC().Format(time.RFC3339Nano))
			}
			return attr
		},
	}))
}

func current() *slog.Logger {
	loggerMu.RLock()
	l := logger
	loggerMu.RUnlock()
	if l == nil {
		Init()
		loggerMu.RLock()
		l = logger
		loggerMu.RUnlock()
	}
	return l
}

// Pkg returns a logger tagged with package name.
func Pkg(pkg string) *slog.Logger {
	return current().With("pkg", pkg)
}

// From returns a logger carrying the request id from ctx, if any.
func From(ctx context.Context) *slog.Logger {
	l := current()
	if info := Info(ctx); info != nil && info.ID != "" {
		return l.With("request_id", info.ID)
	}
	return l
}

// WithInfo attaches info to ctx.
func WithInfo(ctx context.Context, info *RequestInfo) context.Context {
	return context.WithValue(ctx, requestInfoKey{}, info)
}

// Info returns the request record stored in ctx, or nil outside a request.
func Info(ctx context.Context) *RequestInfo {
	if ctx == nil {
		return nil
	}
	info, _ := ctx.Value(requestInfoKey{}).(*RequestInfo)
	return info
}

// SetResolved records the file path a URL was rewritten to.
func SetResolved(ctx context.Context, resolved string) {
	if info := Info(ctx); info != nil {
		info.mu.Lock()
		info.resolved = resolved
		info.mu.Unlock()
	}
}

// SetRoute records which surface handled the request (content, suggest, mcp).
func SetRoute(ctx context.Context, route string) {
	if info := Info(ctx); info != nil {
		info.mu.Lock()
		info.route = route
		info.mu.Unlock()
	}
}

// Resolved returns the value recorded by SetResolved.
func (i *RequestInfo) Resolved() string {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.resolved
}

// Route returns the value recorded by SetRoute.
func (i *RequestInfo) Route() string {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.route
}

func newRequestID() string {
	return "req-" + uuid.NewString()
}
