package docs

import (
	"fmt"
	"io/fs"
	"path"
	"strings"

	"gopkg.in/yaml.v3"
)

// TOCFile is the table of contents at the root of a source tree.
const TOCFile = "toc.yaml"

// TOC describes the site: its title, header navigation and page tree.
type TOC struct {
	Title  string    `yaml:"title"`
	Href   string    `yaml:"href"`
	Lang   string    `yaml:"lang"`
	Header Header    `yaml:"header"`
	Items  []TOCItem `yaml:"items"`
}

// Header is the navigation shown at the top of every page.
type Header struct {
	Links    []Link    `yaml:"links"`
	Dropdown *Dropdown `yaml:"dropdown"`
}

// Link is a header link. Href is a source path ("ru/syntax/cut.md"), a
// root-absolute URL ("/ru/search/index.html") or an external URL.
type Link struct {
	Text string `yaml:"text"`
	Href string `yaml:"href"`
}

// Dropdown is a header menu.
type Dropdown struct {
	Text  string `yaml:"text"`
	Items []Link `yaml:"items"`
}

// TOCItem is a page link, a section with children, or both.
type TOCItem struct {
	Name  string    `yaml:"name"`
	Href  string    `yaml:"href"`
	Items []TOCItem `yaml:"items"`
}

// LoadTOC reads and validates TOCFile from src.
func LoadTOC(src fs.FS) (*TOC, error) {
	data, err := fs.ReadFile(src, TOCFile)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", TOCFile, err)
	}
	var toc TOC
	if err := yaml.Unmarshal(data, &toc); err != nil {
		return nil, fmt.Errorf("parse %s: %w", TOCFile, err)
	}
	if toc.Href == "" {
		toc.Href = "index.md"
	}
	if toc.Lang == "" {
		toc.Lang = "ru"
	}
	seen := make(map[string]bool)
	var check func([]TOCItem) error
	check = func(items []TOCItem) error {
		for _, it := range items {
			if it.Name == "" {
				return fmt.Errorf("%s: item without name", TOCFile)
			}
			if it.Href != "" {
				if !isSource(it.Href) {
					return fmt.Errorf("%s: %q must point to a .md file", TOCFile, it.Href)
				}
				if seen[it.Href] {
					return fmt.Errorf("%s: %q listed twice", TOCFile, it.Href)
				}
				seen[it.Href] = true
			}
			if err := check(it.Items); err != nil {
				return err
			}
		}
		return nil
	}
	if err := check(toc.Items); err != nil {
		return nil, err
	}
	return &toc, nil
}

// Pages returns every source path the site renders: the root page first,
// then TOC entries in order.
func (t *TOC) Pages() []string {
	out := []string{t.Href}
	var walk func([]TOCItem)
	walk = func(items []TOCItem) {
		for _, it := range items {
			if it.Href != "" && it.Href != t.Href {
				out = append(out, it.Href)
			}
			walk(it.Items)
		}
	}
	walk(t.Items)
	return out
}

// Name returns the TOC label for a source path.
func (t *TOC) Name(src string) string {
	var found string
	var walk func([]TOCItem)
	walk = func(items []TOCItem) {
		for _, it := range items {
			if found != "" {
				return
			}
			if it.Href == src {
				found = it.Name
				return
			}
			walk(it.Items)
		}
	}
	walk(t.Items)
	return found
}

func isSource(p string) bool {
	return path.Ext(stripSuffix(p)) == ".md" && !isExternal(p)
}

func isExternal(p string) bool {
	return strings.Contains(p, "://") || strings.HasPrefix(p, "//") || strings.HasPrefix(p, "mailto:")
}

// stripSuffix drops the query and fragment of a link.
func stripSuffix(p string) string {
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		return p[:i]
	}
	return p
}

// OutputPath maps a source path to the page it renders.
func OutputPath(src string) string {
	return strings.TrimSuffix(src, ".md") + ".html"
}

// relHref returns the link from page (a site-relative output path) to target
// (a site-relative path).
func relHref(page, target string) string {
	from := strings.Split(path.Dir(page), "/")
	if path.Dir(page) == "." {
		from = nil
	}
	to := strings.Split(target, "/")
	i := 0
	for i < len(from) && i < len(to)-1 && from[i] == to[i] {
		i++
	}
	parts := make([]string, 0, len(from)-i+len(to)-i)
	for range from[i:] {
		parts = append(parts, "..")
	}
	parts = append(parts, to[i:]...)
	return strings.Join(parts, "/")
}

// rootPrefix is the relative path from page to the site root, ending in "/"
// or empty.
func rootPrefix(page string) string {
	depth := strings.Count(page, "/")
	return strings.Repeat("../", depth)
}

// resolveLink turns a header or TOC link into an href for page.
func resolveLink(page, href string) string {
	switch {
	case href == "":
		return ""
	case isExternal(href), strings.HasPrefix(href, "/"), strings.HasPrefix(href, "#"):
		return href
	case isSource(href):
		base := stripSuffix(href)
		return relHref(page, OutputPath(base)) + href[len(base):]
	default:
		return relHref(page, href)
	}
}

// NavItem is a rendered TOC entry.
type NavItem struct {
	Name   string
	Href   string
	Active bool
	Items  []NavItem
}

// Nav renders the TOC for page, marking its own entry active.
func (t *TOC) Nav(page string) []NavItem {
	var build func([]TOCItem) []NavItem
	build = func(items []TOCItem) []NavItem {
		out := make([]NavItem, 0, len(items))
		for _, it := range items {
			n := NavItem{Name: it.Name, Items: build(it.Items)}
			if it.Href != "" {
				n.Href = resolveLink(page, it.Href)
				n.Active = OutputPath(it.Href) == page
			}
			out = append(out, n)
		}
		return out
	}
	return build(t.Items)
}
