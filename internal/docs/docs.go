// Package docs generates the documentation site the widget tests run
// against. Pages are markdown with block directives for cuts, tabs and
// diagrams plus glossary terms; every page shares one layout with the
// header, search box and table of contents.
package docs

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"mime"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/diplodoc-platform/testpack/internal/obs"
)

//go:embed all:fixtures
var fixtures embed.FS

//go:embed assets
var assets embed.FS

// AssetsDir is the output directory of the widget runtime.
const AssetsDir = "_assets"

// Fixtures returns the built-in source tree.
func Fixtures() fs.FS {
	sub, err := fs.Sub(fixtures, "fixtures")
	if err != nil {
		panic(err)
	}
	return sub
}

// Site is a generated site keyed by site-relative path.
type Site struct {
	Files map[string][]byte
}

// Paths returns every file path in lexical order.
func (s *Site) Paths() []string {
	out := make([]string, 0, len(s.Files))
	for p := range s.Files {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Build renders every page listed in the source tree's TOC, copies the other
// non-markdown files and adds the widget runtime.
func Build(src fs.FS) (*Site, error) {
	toc, err := LoadTOC(src)
	if err != nil {
		return nil, err
	}
	site := &Site{Files: make(map[string][]byte)}

	listed := make(map[string]bool)
	for _, p := range toc.Pages() {
		listed[p] = true
		data, err := fs.ReadFile(src, p)
		if err != nil {
			return nil, fmt.Errorf("read page: %w", err)
		}
		out, err := renderPage(toc, p, string(data))
		if err != nil {
			return nil, err
		}
		site.Files[OutputPath(p)] = out
	}

	err = fs.WalkDir(src, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || p == TOCFile {
			return err
		}
		if strings.HasSuffix(p, ".md") {
			if !listed[p] {
				obs.Pkg("docs").Warn("page_not_in_toc", "path", p)
			}
			return nil
		}
		data, err := fs.ReadFile(src, p)
		if err != nil {
			return err
		}
		site.Files[p] = data
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("copy sources: %w", err)
	}

	err = fs.WalkDir(assets, "assets", func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		data, err := fs.ReadFile(assets, p)
		if err != nil {
			return err
		}
		site.Files[path.Join(AssetsDir, strings.TrimPrefix(p, "assets/"))] = data
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("copy assets: %w", err)
	}
	return site, nil
}

func renderPage(toc *TOC, src, body string) ([]byte, error) {
	doc, err := parseDocument(src, body)
	if err != nil {
		return nil, err
	}
	page := OutputPath(src)
	content, err := newRenderer(page, doc.terms).render(doc)
	if err != nil {
		return nil, err
	}

	title := extractTitle(body)
	if title == "" {
		title = toc.Name(src)
	}
	if title == "" {
		title = toc.Title
	}

	lang := toc.Lang
	if first, _, ok := strings.Cut(src, "/"); ok && len(first) == 2 {
		lang = first
	}

	d := layoutData{
		Lang:      lang,
		Title:     title,
		SiteTitle: toc.Title,
		Root:      rootPrefix(page),
		Home:      resolveLink(page, toc.Href),
		Search:    resolveLink(page, SearchPage),
		Endpoint:  SuggestEndpoint,
		Nav:       toc.Nav(page),
		Content:   template.HTML(content),
	}
	for _, l := range toc.Header.Links {
		d.Links = append(d.Links, Link{Text: l.Text, Href: resolveLink(page, l.Href)})
	}
	if dd := toc.Header.Dropdown; dd != nil {
		menu := &Dropdown{Text: dd.Text}
		for _, l := range dd.Items {
			menu.Items = append(menu.Items, Link{Text: l.Text, Href: resolveLink(page, l.Href)})
		}
		d.Dropdown = menu
	}
	out, err := renderLayout(d)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", src, err)
	}
	return out, nil
}

// extractTitle returns the first H1 heading of a markdown source.
func extractTitle(md string) string {
	for _, line := range strings.Split(md, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "# ") {
			return strings.TrimSpace(strings.TrimPrefix(line, "# "))
		}
	}
	return ""
}

// WriteDir writes the site under dir.
func (s *Site) WriteDir(dir string) error {
	for _, p := range s.Paths() {
		dst := filepath.Join(dir, filepath.FromSlash(p))
		if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
			return err
		}
		if err := os.WriteFile(dst, s.Files[p], 0o644); err != nil {
			return err
		}
	}
	return nil
}

// Uploader stores one object. *s3client.Client satisfies it.
type Uploader interface {
	PutObject(ctx context.Context, key string, content []byte, contentType string) error
}

// Publish uploads the site under prefix.
func (s *Site) Publish(ctx context.Context, up Uploader, prefix string) error {
	log := obs.From(ctx).With("pkg", "docs")
	for _, p := range s.Paths() {
		ct := mime.TypeByExtension(path.Ext(p))
		if ct == "" {
			ct = "application/octet-stream"
		}
		key := path.Join(prefix, p)
		if err := up.PutObject(ctx, key, s.Files[p], ct); err != nil {
			return fmt.Errorf("publish %s: %w", key, err)
		}
	}
	log.Info("site_published", "files", len(s.Files), "prefix", prefix)
	return nil
}
