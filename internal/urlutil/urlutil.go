// Package urlutil builds absolute links and identifies callers.
package urlutil

import (
	"net"
	"net/http"
	"strings"
)

// BuildAbsolute builds an absolute URL from a base origin and a path.
func BuildAbsolute(base, path string) string {
	base = normalizeBaseURL(base)
	if path == "" {
		return base
	}
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	if strings.HasPrefix(path, "/") {
		return base + path
	}
	return base + "/" + path
}

// ClientIP returns the caller address used as a rate-limit key.
// The first X-Forwarded-For hop wins over RemoteAddr.
func ClientIP(r *http.Request) string {
	if r == nil {
		return ""
	}
	if fwd := strings.TrimSpace(r.Header.Get("X-Forwarded-For")); fwd != "" {
		if comma := strings.Index(fwd, ","); comma >= 0 {
			fwd = fwd[:comma]
		}
		if ip := strings.TrimSpace(fwd); ip != "" {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
	if err != nil {
		return strings.TrimSpace(r.RemoteAddr)
	}
	return host
}

func normalizeBaseURL(base string) string {
	base = strings.TrimSpace(base)
	if base == "" {
		return ""
	}
	return strings.TrimRight(base, "/")
}
