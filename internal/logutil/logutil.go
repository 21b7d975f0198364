// Package logutil formats request data for structured log fields.
package logutil

import (
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"
)

const truncatedMarker = "... [truncated]"

// sensitiveMarkers match normalised header or parameter names whose values
// never reach the log.
var sensitiveMarkers = []string{"authorization", "token", "secret", "cookie", "amz", "apikey", "password"}

// IsSensitiveLogField reports whether a header or parameter name likely
// carries a credential. Dashes, underscores and case are ignored.
func IsSensitiveLogField(key string) bool {
	normalized := strings.NewReplacer("-", "", "_", "").Replace(strings.ToLower(strings.TrimSpace(key)))
	for _, marker := range sensitiveMarkers {
		if strings.Contains(normalized, marker) {
			return true
		}
	}
	return false
}

// FormatHeadersForLog renders headers as sorted key="value" pairs with
// credentials redacted.
func FormatHeadersForLog(headers http.Header) string {
	if len(headers) == 0 {
		return "{}"
	}
	return formatPairs(len(headers), func(yield func(string, []string)) {
		for k, v := range headers {
			yield(strings.ToLower(k), v)
		}
	})
}

// FormatQueryForLog renders a query string the same way, truncating each
// value to maxChars runes. Repeated parameters such as tabs keep their order.
func FormatQueryForLog(values url.Values, maxChars int) string {
	if len(values) == 0 {
		return "{}"
	}
	return formatPairs(len(values), func(yield func(string, []string)) {
		for k, vs := range values {
			short := make([]string, len(vs))
			for i, v := range vs {
				short[i] = TruncateForLog(v, maxChars)
			}
			yield(k, short)
		}
	})
}

func formatPairs(n int, each func(yield func(string, []string))) string {
	keys := make([]string, 0, n)
	vals := make(map[string][]string, n)
	each(func(k string, v []string) {
		keys = append(keys, k)
		vals[k] = v
	})
	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteString("; ")
		}
		value := strings.Join(vals[k], ", ")
		if IsSensitiveLogField(k) {
			value = "[REDACTED]"
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(strconv.Quote(value))
	}
	return b.String()
}

// TruncateForLog trims value to one line of at most maxChars runes.
// maxChars <= 0 disables truncation.
func TruncateForLog(value string, maxChars int) string {
	oneLine := strings.ReplaceAll(strings.TrimSpace(value), "\n", "\\n")
	if maxChars <= 0 || utf8.RuneCountInString(oneLine) <= maxChars {
		return oneLine
	}
	cut, n := 0, 0
	for i := range oneLine {
		if n == maxChars {
			cut = i
			break
		}
		n++
	}
	return oneLine[:cut] + truncatedMarker
}
