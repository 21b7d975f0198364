package obs

import (
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// statusRecorder tracks the status and size of a response.
type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int64
}

func (r *statusRecorder) WriteHeader(code int) {
	if r.status == 0 {
		r.status = code
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(p []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	n, err := r.ResponseWriter.Write(p)
	r.bytes += int64(n)
	return n, err
}

func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// RequestContextMiddleware attaches a RequestInfo to every request. The id
// comes from X-Request-Id when the caller sent one and is echoed back.
func RequestContextMiddleware(clientIP func(*http.Request) string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get("X-Request-Id"))
		if id == "" || len(id) > 128 {
			id = newRequestID()
		}
		w.Header().Set("X-Request-Id", id)

		info := &RequestInfo{ID: id}
		if clientIP != nil {
			info.ClientIP = clientIP(r)
		}
		next.ServeHTTP(w, r.WithContext(WithInfo(r.Context(), info)))
	})
}

// AccessLogMiddleware emits one http_access event per request. Server errors
// log at warn, everything else at debug so a test run stays quiet.
func AccessLogMiddleware(pkg string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w}
		next.ServeHTTP(rec, r)
		if rec.status == 0 {
			rec.status = http.StatusOK
		}

		lvl := slog.LevelDebug
		if rec.status >= http.StatusInternalServerError {
			lvl = slog.LevelWarn
		}
		attrs := []any{
			"pkg", pkg,
			"method", r.Method,
			"path", r.URL.Path,
			"query", r.URL.RawQuery,
			"status", rec.status,
			"dur_ms", float64(time.Since(start).Microseconds()) / 1000.0,
			"resp_bytes", rec.bytes,
		}
		if info := Info(r.Context()); info != nil {
			if route := info.Route(); route != "" {
				attrs = append(attrs, "route", route)
			}
			if resolved := info.Resolved(); resolved != "" {
				attrs = append(attrs, "resolved", resolved)
			}
			if info.ClientIP != "" {
				attrs = append(attrs, "client_ip", info.ClientIP)
			}
		}
		From(r.Context()).Log(r.Context(), lvl, "http_access", attrs...)
	})
}
