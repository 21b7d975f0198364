package docs

import (
	"bytes"
	"fmt"
	"html"
	"regexp"
	"strings"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/ast"
	mdhtml "github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
	"github.com/microcosm-cc/bluemonday"
)

const termAnchor = "#dc-term-"

var (
	policy = newPolicy()

	reTermAnchor = regexp.MustCompile(`<a href="` + termAnchor + `([A-Za-z0-9_\-]+)"[^>]*>(.*?)</a>`)
	reOuterP     = regexp.MustCompile(`^\s*<p>(.*)</p>\s*$`)
)

func newPolicy() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.AllowElements("pre", "code")
	p.AllowAttrs("class").OnElements("code", "pre")
	return p
}

// renderer turns one parsed page into the markup of its main content.
type renderer struct {
	page  string
	terms map[string]string

	cuts     int
	groups   int
	diagrams int
	refs     int
	used     []string
	usedSet  map[string]bool
}

func newRenderer(page string, terms map[string]string) *renderer {
	return &renderer{page: page, terms: terms, usedSet: make(map[string]bool)}
}

// renderMarkdown converts markdown to sanitized HTML. Links to .md sources
// point at the rendered pages; term links become term references.
func (r *renderer) renderMarkdown(md string) (string, error) {
	extensions := parser.CommonExtensions | parser.AutoHeadingIDs | parser.NoEmptyLineBeforeBlock
	doc := parser.NewWithExtensions(extensions).Parse([]byte(md))

	ast.WalkFunc(doc, func(node ast.Node, entering bool) ast.WalkStatus {
		link, ok := node.(*ast.Link)
		if !ok || !entering {
			return ast.GoToNext
		}
		dest := string(link.Destination)
		switch {
		case strings.HasPrefix(dest, "*"):
			link.Destination = []byte(termAnchor + dest[1:])
		case isSource(dest):
			base := stripSuffix(dest)
			link.Destination = []byte(OutputPath(base) + dest[len(base):])
		}
		return ast.GoToNext
	})

	renderer := mdhtml.NewRenderer(mdhtml.RendererOptions{Flags: mdhtml.CommonFlags | mdhtml.HrefTargetBlank})
	out := string(policy.SanitizeBytes(markdown.Render(doc, renderer)))

	var missing string
	out = reTermAnchor.ReplaceAllStringFunc(out, func(m string) string {
		sub := reTermAnchor.FindStringSubmatch(m)
		key, label := sub[1], sub[2]
		if _, ok := r.terms[key]; !ok {
			if missing == "" {
				missing = key
			}
			return label
		}
		return r.termRef(key, label)
	})
	if missing != "" {
		return "", fmt.Errorf("%s: term %q has no definition", r.page, missing)
	}
	return out, nil
}

// renderInline renders a one-line markdown fragment without its paragraph.
func (r *renderer) renderInline(md string) (string, error) {
	out, err := r.renderMarkdown(md)
	if err != nil {
		return "", err
	}
	if m := reOuterP.FindStringSubmatch(out); m != nil && !strings.Contains(m[1], "<p>") {
		return m[1], nil
	}
	return strings.TrimSpace(out), nil
}

func (r *renderer) termRef(key, label string) string {
	r.refs++
	if !r.usedSet[key] {
		r.usedSet[key] = true
		r.used = append(r.used, key)
	}
	return fmt.Sprintf(`<i class="yfm yfm-term_title" term-key=":%s" role="button" tabindex="0" aria-describedby="dfn-%s" id="term-%d">%s</i>`,
		key, key, r.refs, label)
}

// render writes nodes and then the tooltips of every term they reference.
func (r *renderer) render(doc *document) (string, error) {
	var b bytes.Buffer
	if err := r.nodes(&b, doc.nodes); err != nil {
		return "", err
	}
	for _, key := range r.used {
		def, err := r.renderInline(r.terms[key])
		if err != nil {
			return "", err
		}
		fmt.Fprintf(&b, `<dfn class="yfm yfm-term_dfn" id="dfn-%s" role="dialog" aria-live="polite" aria-modal="true">%s</dfn>`+"\n", key, def)
	}
	return b.String(), nil
}

func (r *renderer) nodes(b *bytes.Buffer, nodes []node) error {
	inList := false
	for _, n := range nodes {
		c, isCut := n.(*cutNode)
		listCut := isCut && c.inList
		if listCut && !inList {
			b.WriteString(`<ul class="yfm-cut-list">` + "\n")
		}
		if !listCut && inList {
			b.WriteString("</ul>\n")
		}
		inList = listCut

		var err error
		switch n := n.(type) {
		case textNode:
			var out string
			out, err = r.renderMarkdown(n.src)
			b.WriteString(out)
		case *cutNode:
			if listCut {
				b.WriteString("<li>")
			}
			err = r.cut(b, n)
			if listCut {
				b.WriteString("</li>\n")
			}
		case *tabsNode:
			err = r.tabs(b, n)
		case mermaidNode:
			r.diagrams++
			b.WriteString(renderDiagram(fmt.Sprintf("mermaid-%d", r.diagrams), n.src))
		}
		if err != nil {
			return err
		}
	}
	if inList {
		b.WriteString("</ul>\n")
	}
	return nil
}

func (r *renderer) cut(b *bytes.Buffer, c *cutNode) error {
	r.cuts++
	id := c.id
	if id == "" {
		id = fmt.Sprintf("cut-%d", r.cuts)
	}
	title, err := r.renderInline(c.title)
	if err != nil {
		return err
	}
	fmt.Fprintf(b, `<details class="yfm-cut"><summary class="yfm-cut-title" id="%s">%s</summary>`+"\n", html.EscapeString(id), title)
	b.WriteString(`<div class="yfm-cut-content">` + "\n")
	if err := r.nodes(b, c.children); err != nil {
		return err
	}
	b.WriteString("</div></details>\n")
	return nil
}

func (r *renderer) tabs(b *bytes.Buffer, t *tabsNode) error {
	r.groups++
	gid := fmt.Sprintf("tabs-%d", r.groups)
	variant := t.variant
	if variant == "" {
		variant = "regular"
	}

	ids := make([]string, len(t.tabs))
	seen := make(map[string]bool)
	for i, tab := range t.tabs {
		if seen[tab.slug] {
			return fmt.Errorf("%s: tab slug %q repeated in one group", r.page, tab.slug)
		}
		seen[tab.slug] = true
		ids[i] = gid + "-" + tab.slug
	}

	class := "yfm-tabs"
	switch variant {
	case "radio":
		class += " yfm-tabs-vertical"
	case "dropdown":
		class += " yfm-tabs-dropdown"
	case "accordion":
		class += " yfm-tabs-accordion"
	case "regular":
	default:
		return fmt.Errorf("%s: unknown tabs variant %q", r.page, variant)
	}
	fmt.Fprintf(b, `<div class="%s" id="%s" data-diplodoc-variant="%s"`, class, gid, variant)
	if t.group != "" {
		fmt.Fprintf(b, ` data-diplodoc-group="%s"`, html.EscapeString(t.group))
	}
	b.WriteString(">\n")

	// Radio groups start with nothing selected; the others show the first tab.
	active := func(i int) bool { return i == 0 && variant != "radio" }

	title := func(tag, class string, i int, tab *tabNode) {
		if active(i) {
			class += " active"
		}
		fmt.Fprintf(b, `<%s class="%s" role="tab" id="%s" data-diplodoc-key="%s" aria-controls="%s-panel" aria-selected="%t" tabindex="0">%s</%s>`+"\n",
			tag, class, ids[i], html.EscapeString(tab.slug), ids[i], active(i), html.EscapeString(tab.label), tag)
	}
	panel := func(i int, tab *tabNode) error {
		class := "yfm-tab-panel"
		if active(i) {
			class += " active"
		}
		fmt.Fprintf(b, `<div class="%s" role="tabpanel" id="%s-panel" aria-labelledby="%s" data-title="%s">`+"\n",
			class, ids[i], ids[i], html.EscapeString(tab.label))
		if err := r.nodes(b, tab.children); err != nil {
			return err
		}
		b.WriteString("</div>\n")
		return nil
	}

	switch variant {
	case "regular":
		b.WriteString(`<div class="yfm-tab-list" role="tablist">` + "\n")
		for i, tab := range t.tabs {
			title("div", "yfm-tab", i, tab)
		}
		b.WriteString("</div>\n")
		for i, tab := range t.tabs {
			if err := panel(i, tab); err != nil {
				return err
			}
		}
	case "dropdown":
		fmt.Fprintf(b, `<div class="yfm-tabs-dropdown-select" role="button" tabindex="0" aria-haspopup="listbox" aria-expanded="false">%s</div>`+"\n", dropdownPlaceholder)
		b.WriteString(`<ul class="yfm-tabs-dropdown-menu" role="listbox">` + "\n")
		for i, tab := range t.tabs {
			title("li", "yfm-tab", i, tab)
		}
		b.WriteString("</ul>\n")
		for i, tab := range t.tabs {
			if err := panel(i, tab); err != nil {
				return err
			}
		}
	default:
		class := "yfm-tab"
		if variant == "radio" {
			class = "yfm-vertical-tab"
		}
		for i, tab := range t.tabs {
			title("div", class, i, tab)
			if err := panel(i, tab); err != nil {
				return err
			}
		}
	}
	b.WriteString("</div>\n")
	return nil
}

const dropdownPlaceholder = "Выберите вариант"
