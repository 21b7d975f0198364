package site

import (
	"bytes"
	"errors"
	"io"
	"io/fs"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/diplodoc-platform/testpack/internal/errs"
	"github.com/diplodoc-platform/testpack/internal/obs"
)

// Handler serves files from a content root after the extension-less rewrite.
// It keeps no state between requests.
type Handler struct {
	root fs.FS
}

// NewHandler returns a handler serving root. A nil root answers 404 for every
// path, which is how a missing content directory behaves.
func NewHandler(root fs.FS) *Handler {
	return &Handler{root: root}
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	resolved := RewritePath(r.URL.Path)
	obs.SetRoute(r.Context(), "content")
	obs.SetResolved(r.Context(), resolved)
	name, ok := fsName(resolved)
	if !ok {
		h.notFound(w, r, resolved)
		return
	}

	content, modTime, err := h.open(name)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			obs.From(r.Context()).Warn("site_open_failed", "pkg", "site", "name", name, "error", err)
		}
		h.notFound(w, r, resolved)
		return
	}

	obs.From(r.Context()).Debug("site_resolved", "pkg", "site", "path", r.URL.Path, "name", name)
	http.ServeContent(w, r, name, modTime, content)
}

func (h *Handler) notFound(w http.ResponseWriter, r *http.Request, resolved string) {
	obs.From(r.Context()).Debug("site_not_found", "pkg", "site", "path", r.URL.Path, "resolved", resolved)
	errs.WriteHTTP(w, errs.New(errs.NotFound, "Cannot GET "+r.URL.Path))
}

// Exists reports whether the rewritten form of urlPath names a file in the root.
func (h *Handler) Exists(urlPath string) bool {
	name, ok := fsName(RewritePath(urlPath))
	if !ok || h.root == nil {
		return false
	}
	info, err := fs.Stat(h.root, name)
	return err == nil && !info.IsDir()
}

// open returns a seekable view of a regular file. Directories are not-found.
func (h *Handler) open(name string) (io.ReadSeeker, time.Time, error) {
	if h.root == nil {
		return nil, time.Time{}, fs.ErrNotExist
	}
	f, err := h.root.Open(name)
	if err != nil {
		return nil, time.Time{}, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, time.Time{}, err
	}
	if info.IsDir() {
		return nil, time.Time{}, fs.ErrNotExist
	}

	// The file is closed on return, so the body is copied out.
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, time.Time{}, err
	}
	return bytes.NewReader(data), info.ModTime(), nil
}

// fsName turns a rooted URL path into an fs.FS name, rejecting anything that
// is not a valid path after cleaning.
func fsName(urlPath string) (string, bool) {
	if !strings.HasPrefix(urlPath, "/") {
		urlPath = "/" + urlPath
	}
	name := strings.TrimPrefix(path.Clean(urlPath), "/")
	if name == "" || !fs.ValidPath(name) {
		return "", false
	}
	return name, true
}
