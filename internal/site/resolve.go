// Package site serves a built documentation site with extension-less URLs.
package site

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/diplodoc-platform/testpack/internal/errs"
)

// IndexFile is served for paths that end in a slash.
const IndexFile = "index.html"

// hasExtension matches a tail ending in a dot followed by at least one character.
var hasExtension = regexp.MustCompile(`\..+?$`)

// Tail returns the substring after the final slash of p.
func Tail(p string) string {
	return p[strings.LastIndex(p, "/")+1:]
}

// RewritePath applies the extension-less rewrite to a URL path.
// An empty tail gets index.html, a tail without an extension gets .html,
// anything else is left alone.
func RewritePath(p string) string {
	if p == "" {
		p = "/"
	}
	tail := Tail(p)
	switch {
	case tail == "":
		return p + IndexFile
	case !hasExtension.MatchString(tail):
		return p + ".html"
	default:
		return p
	}
}

// Resolve rewrites the decoded path of rawURL and returns the full URL with its query
// and fragment unchanged. rawURL may be a request target ("/a/b?x#y") or an
// absolute URL.
func Resolve(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", errs.Wrap(errs.InvalidArgument, "invalid url", err)
	}
	if u.Opaque != "" {
		return "", errs.New(errs.InvalidArgument, "opaque urls cannot be resolved")
	}

	// The handler rewrites the decoded path, so Resolve does too.
	u.Path = RewritePath(u.Path)
	u.RawPath = ""
	return u.String(), nil
}
