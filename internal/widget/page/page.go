// Package page builds widget state from a served document and routes typed
// events to it. It is the DOM-free counterpart of the page runtime.
package page

import (
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/diplodoc-platform/testpack/internal/errs"
	"github.com/diplodoc-platform/testpack/internal/widget"
	"github.com/diplodoc-platform/testpack/internal/widget/cut"
	"github.com/diplodoc-platform/testpack/internal/widget/diagram"
	"github.com/diplodoc-platform/testpack/internal/widget/suggest"
	"github.com/diplodoc-platform/testpack/internal/widget/tabs"
	"github.com/diplodoc-platform/testpack/internal/widget/term"
	"golang.org/x/net/html"
)

type tabRef struct {
	group string
	index int
}

// Page is the widget state of one loaded document.
type Page struct {
	URL   *url.URL
	Title string

	Cuts   *cut.Tree
	Tabs   *tabs.Registry
	Terms  *term.Registry
	Search *suggest.Session

	searchID  string
	diagrams  map[string]*diagram.Viewer
	diagOrder []string
	tabTitles map[string]tabRef
}

// Load parses a document served at u, applies the URL's tabs query and
// fragment at now, and returns the effects of the initial navigation.
func Load(r io.Reader, u *url.URL, now time.Time) (*Page, []widget.Effect, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, nil, errs.Wrap(errs.InvalidArgument, "parse page", err)
	}
	cp := *u
	p := &Page{
		URL:       &cp,
		Cuts:      cut.NewTree(),
		Tabs:      tabs.NewRegistry(),
		Terms:     term.NewRegistry(),
		diagrams:  make(map[string]*diagram.Viewer),
		tabTitles: make(map[string]tabRef),
	}
	b := &builder{page: p}
	b.walk(doc)
	if b.err != nil {
		return nil, nil, b.err
	}
	for _, gb := range b.groups {
		g, err := tabs.NewGroup(gb.id, gb.key, gb.variant, gb.tabs, gb.active)
		if err != nil {
			return nil, nil, err
		}
		if err := p.Tabs.Add(g); err != nil {
			return nil, nil, err
		}
	}

	p.Tabs.ApplyQuery(p.URL.Query())
	var effects []widget.Effect
	if p.URL.Fragment != "" {
		effects = p.Cuts.Navigate(p.URL.Fragment, now)
	}
	return p, effects, nil
}

type groupBuilder struct {
	id      string
	key     string
	variant tabs.Variant
	tabs    []tabs.Tab
	active  int
}

type builder struct {
	page     *Page
	cuts     []string
	groups   []*groupBuilder
	open     []*groupBuilder
	inSearch int
	err      error
}

func (b *builder) fail(err error) {
	if b.err == nil {
		b.err = err
	}
}

func (b *builder) walk(n *html.Node) {
	if b.err != nil {
		return
	}
	popCut, popGroup, popSearch := false, false, false

	if n.Type == html.ElementNode {
		switch {
		case n.Data == "title" && b.page.Title == "":
			b.page.Title = text(n)

		case n.Data == "details" && hasClass(n, "yfm-cut"):
			summary := firstChildWithClass(n, "yfm-cut-title")
			if summary == nil {
				break
			}
			id, _ := attr(summary, "id")
			parent := ""
			if len(b.cuts) > 0 {
				parent = b.cuts[len(b.cuts)-1]
			}
			_, open := attr(n, "open")
			if err := b.page.Cuts.Add(id, text(summary), parent, open); err != nil {
				b.fail(err)
				return
			}
			b.cuts = append(b.cuts, id)
			popCut = true

		case hasClass(n, "yfm-tabs"):
			gb := &groupBuilder{
				id:      attrOr(n, "id", fmt.Sprintf("tabs-%d", len(b.groups)+1)),
				key:     attrOr(n, "data-diplodoc-group", ""),
				variant: tabs.ParseVariant(attrOr(n, "data-diplodoc-variant", "")),
				active:  -1,
			}
			b.groups = append(b.groups, gb)
			b.open = append(b.open, gb)
			popGroup = true

		case (hasClass(n, "yfm-tab") || hasClass(n, "yfm-vertical-tab")) && len(b.open) > 0:
			gb := b.open[len(b.open)-1]
			slug := attrOr(n, "data-diplodoc-key", "")
			id := attrOr(n, "id", fmt.Sprintf("%s-tab-%d", gb.id, len(gb.tabs)))
			if hasClass(n, "active") && gb.active < 0 {
				gb.active = len(gb.tabs)
			}
			b.page.tabTitles[id] = tabRef{group: gb.id, index: len(gb.tabs)}
			gb.tabs = append(gb.tabs, tabs.Tab{Label: text(n), Slug: slug, ID: id})

		case n.Data == "i" && hasClass(n, "yfm-term_title"):
			id, _ := attr(n, "id")
			dfn, _ := attr(n, "aria-describedby")
			key := strings.TrimPrefix(attrOr(n, "term-key", ""), ":")
			if err := b.page.Terms.Add(term.Term{ID: id, Key: key, TooltipID: dfn, Title: text(n)}); err != nil {
				b.fail(err)
				return
			}

		case hasClass(n, "dc-search-suggest"):
			b.inSearch++
			popSearch = true

		case n.Data == "input" && b.inSearch > 0 && b.page.Search == nil:
			b.page.searchID = attrOr(n, "id", "search-input")
			b.page.Search = suggest.NewSession()

		case hasClass(n, "mermaid"):
			id := attrOr(n, "id", fmt.Sprintf("mermaid-%d", len(b.page.diagOrder)+1))
			b.page.diagrams[id] = diagram.NewViewer(id)
			b.page.diagOrder = append(b.page.diagOrder, id)
		}
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		b.walk(c)
	}

	if popCut {
		b.cuts = b.cuts[:len(b.cuts)-1]
	}
	if popGroup {
		b.open = b.open[:len(b.open)-1]
	}
	if popSearch {
		b.inSearch--
	}
}

// SearchID returns the id of the search input, or "" when the page has none.
func (p *Page) SearchID() string { return p.searchID }

// Diagram returns the viewer for diagram id.
func (p *Page) Diagram(id string) (*diagram.Viewer, bool) {
	v, ok := p.diagrams[id]
	return v, ok
}

// Diagrams returns diagram ids in document order.
func (p *Page) Diagrams() []string {
	return append([]string(nil), p.diagOrder...)
}

// Query returns the query string the page publishes for its tab selections.
func (p *Page) Query() url.Values {
	return p.Tabs.Query(p.URL.Query())
}

// Dispatch applies one event. An event naming an element that is not on the
// page returns a TargetNotFound error and leaves every widget unchanged.
func (p *Page) Dispatch(ev widget.Event) ([]widget.Effect, error) {
	switch e := ev.(type) {
	case widget.Click:
		return p.click(e)
	case widget.KeyPress:
		return p.key(e)
	case widget.Input:
		return p.input(e)
	case widget.HashChange:
		p.URL.Fragment = e.Fragment
		return p.Cuts.Navigate(e.Fragment, e.At), nil
	case widget.Tick:
		p.Cuts.Tick(e.Now)
		return nil, nil
	default:
		return nil, errs.New(errs.InvalidArgument, fmt.Sprintf("unsupported event %T", ev))
	}
}

func (p *Page) known(id string) bool {
	if _, ok := p.tabTitles[id]; ok {
		return true
	}
	if _, ok := p.diagrams[id]; ok {
		return true
	}
	return p.Cuts.Has(id) || p.Terms.Has(id) || p.Terms.IsTooltip(id) || (id != "" && id == p.searchID)
}

func (p *Page) click(e widget.Click) ([]widget.Effect, error) {
	if e.Target != "" && !p.known(e.Target) {
		return nil, errs.New(errs.TargetNotFound, "no element "+e.Target)
	}

	// Outside clicks dismiss the tooltip and the suggest popup.
	if !p.Terms.Has(e.Target) && !p.Terms.IsTooltip(e.Target) {
		p.Terms.ClickOutside()
	}
	if p.Search != nil && e.Target != p.searchID {
		p.Search.ClickOutside()
	}

	switch {
	case e.Target == "":
		return nil, nil
	case p.Cuts.Has(e.Target):
		return nil, p.Cuts.Toggle(e.Target)
	case p.Terms.Has(e.Target):
		return nil, p.Terms.Toggle(e.Target)
	case e.Target == p.searchID:
		p.Search.Focus()
		return nil, nil
	}
	if ref, ok := p.tabTitles[e.Target]; ok {
		return p.activateTab(ref)
	}
	if v, ok := p.diagrams[e.Target]; ok {
		v.Activate()
		if e.Action != "" {
			return nil, v.Action(e.Action)
		}
	}
	return nil, nil
}

func (p *Page) activateTab(ref tabRef) ([]widget.Effect, error) {
	before := p.Query().Encode()
	if err := p.Tabs.Activate(ref.group, ref.index); err != nil {
		return nil, err
	}
	after := p.Query()
	if after.Encode() == before {
		return nil, nil
	}
	p.URL.RawQuery = after.Encode()
	return []widget.Effect{{Kind: widget.ReplaceQuery, Target: p.URL.RawQuery}}, nil
}

func (p *Page) key(e widget.KeyPress) ([]widget.Effect, error) {
	if !p.known(e.Target) {
		return nil, errs.New(errs.TargetNotFound, "no element "+e.Target)
	}
	if e.Target == p.searchID {
		return p.searchKey(e.Key), nil
	}
	if p.Terms.Has(e.Target) {
		return p.Terms.Key(e.Target, e.Key)
	}
	if e.Key == widget.KeyEscape {
		return p.Terms.Escape(), nil
	}
	if p.Cuts.Has(e.Target) {
		switch {
		case widget.IsActivation(e.Key):
			return nil, p.Cuts.Toggle(e.Target)
		case e.Key == widget.KeyTab:
			if next := p.Cuts.Next(e.Target, false); next != "" {
				return []widget.Effect{{Kind: widget.Focus, Target: next}}, nil
			}
		}
		return nil, nil
	}
	if ref, ok := p.tabTitles[e.Target]; ok && widget.IsActivation(e.Key) {
		return p.activateTab(ref)
	}
	return nil, nil
}

func (p *Page) searchKey(key string) []widget.Effect {
	switch key {
	case widget.KeyArrowDown:
		p.Search.Down()
	case widget.KeyArrowUp:
		p.Search.Up()
	case widget.KeyEscape:
		p.Search.Escape()
	case widget.KeyEnter:
		if u, ok := p.Search.Enter(); ok {
			return []widget.Effect{{Kind: widget.Navigate, Target: u}}
		}
	}
	return nil
}

func (p *Page) input(e widget.Input) ([]widget.Effect, error) {
	if p.Search == nil || e.Target != p.searchID {
		return nil, errs.New(errs.TargetNotFound, "no text field "+e.Target)
	}
	ticket, ok := p.Search.Type(e.Value)
	if !ok {
		return nil, nil
	}
	return []widget.Effect{{Kind: widget.Lookup, Target: ticket.Query, Seq: ticket.Seq}}, nil
}

// ResolveSearch delivers the outcome of the lookup started by a Lookup
// effect. Stale outcomes are dropped and reported as false.
func (p *Page) ResolveSearch(seq uint64, query string, results []suggest.Result, err error) bool {
	if p.Search == nil {
		return false
	}
	return p.Search.Resolve(suggest.Ticket{Seq: seq, Query: query}, results, err)
}

// SelectResult handles a click on suggestion i.
func (p *Page) SelectResult(i int) ([]widget.Effect, error) {
	if p.Search == nil {
		return nil, errs.New(errs.TargetNotFound, "page has no search box")
	}
	u, ok := p.Search.Select(i)
	if !ok {
		return nil, errs.New(errs.TargetNotFound, "no suggestion "+strconv.Itoa(i))
	}
	return []widget.Effect{{Kind: widget.Navigate, Target: u}}, nil
}
