// Package search indexes the served documentation pages with bleve and
// answers the search-suggest box.
package search

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/mapping"
	bquery "github.com/blevesearch/bleve/v2/search/query"
	"github.com/diplodoc-platform/testpack/internal/errs"
	"github.com/diplodoc-platform/testpack/internal/obs"
	"github.com/diplodoc-platform/testpack/internal/widget/suggest"
	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html"
)

const (
	DefaultLimit = 10
	MaxLimit     = 20

	batchSize     = 100
	snippetRunes  = 160
	contentMarker = "dc-doc-page__main"
)

// Doc is one indexed page.
type Doc struct {
	URL   string `json:"url"`
	Title string `json:"title"`
	Lang  string `json:"lang"`
	Body  string `json:"body"`
}

// Query is a search request.
type Query struct {
	Text  string
	Lang  string
	Limit int
}

// Result is one ranked hit.
type Result struct {
	Title   string  `json:"title"`
	URL     string  `json:"url"`
	Snippet string  `json:"snippet"`
	Score   float64 `json:"score"`
}

// Index is an in-memory full-text index over documentation pages. Build
// swaps in a fresh index; searches keep running against the old one until
// the swap.
type Index struct {
	mu    sync.RWMutex
	idx   bleve.Index
	count int
}

// New returns an empty index.
func New() *Index {
	return &Index{}
}

func newMapping() mapping.IndexMapping {
	text := bleve.NewTextFieldMapping()
	text.Analyzer = "standard"

	kw := bleve.NewTextFieldMapping()
	kw.Analyzer = keyword.Name
	kw.IncludeInAll = false

	stored := bleve.NewTextFieldMapping()
	stored.Index = false
	stored.IncludeInAll = false

	doc := bleve.NewDocumentMapping()
	doc.AddFieldMappingsAt("title", text)
	doc.AddFieldMappingsAt("body", text)
	doc.AddFieldMappingsAt("lang", kw)
	doc.AddFieldMappingsAt("url", stored)

	m := bleve.NewIndexMapping()
	m.DefaultMapping = doc
	m.DefaultAnalyzer = "standard"
	return m
}

// Build walks every *.html file in fsys and replaces the index contents.
func (i *Index) Build(ctx context.Context, fsys fs.FS) error {
	logger := obs.From(ctx).With("pkg", "search")
	start := time.Now()

	docs, err := Collect(ctx, fsys)
	if err != nil {
		return err
	}

	next, err := bleve.NewMemOnly(newMapping())
	if err != nil {
		return fmt.Errorf("create index: %w", err)
	}
	batch := next.NewBatch()
	for n, d := range docs {
		if err := batch.Index(d.URL, d); err != nil {
			next.Close()
			return fmt.Errorf("add %s to batch: %w", d.URL, err)
		}
		if (n+1)%batchSize == 0 {
			if err := next.Batch(batch); err != nil {
				next.Close()
				return fmt.Errorf("index batch: %w", err)
			}
			batch = next.NewBatch()
		}
	}
	if batch.Size() > 0 {
		if err := next.Batch(batch); err != nil {
			next.Close()
			return fmt.Errorf("index final batch: %w", err)
		}
	}

	i.mu.Lock()
	old := i.idx
	i.idx = next
	i.count = len(docs)
	i.mu.Unlock()
	if old != nil {
		if err := old.Close(); err != nil {
			logger.Warn("search_index_close_failed", "err", err)
		}
	}

	logger.Info("search_index_built", "docs", len(docs), "dur_ms", time.Since(start).Milliseconds())
	return nil
}

// Collect extracts a Doc from every *.html file in fsys, sorted by URL.
// A root that does not exist yields no documents.
func Collect(ctx context.Context, fsys fs.FS) ([]Doc, error) {
	var docs []Doc
	err := fs.WalkDir(fsys, ".", func(name string, d fs.DirEntry, err error) error {
		if err != nil {
			if name == "." && errors.Is(err, fs.ErrNotExist) {
				return fs.SkipAll
			}
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			if name != "." && strings.HasPrefix(d.Name(), "_") {
				return fs.SkipDir
			}
			return nil
		}
		if path.Ext(name) != ".html" {
			return nil
		}
		data, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("read %s: %w", name, err)
		}
		doc, err := Extract(name, data)
		if err != nil {
			return err
		}
		if doc.Body != "" || doc.Title != "" {
			docs = append(docs, doc)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(docs, func(a, b int) bool { return docs[a].URL < docs[b].URL })
	return docs, nil
}

var strip = bluemonday.StrictPolicy()

// Extract turns a served page into a Doc. Only the main content area is
// indexed so that navigation chrome does not match every query.
func Extract(name string, data []byte) (Doc, error) {
	root, err := html.Parse(bytes.NewReader(data))
	if err != nil {
		return Doc{}, fmt.Errorf("parse %s: %w", name, err)
	}
	doc := Doc{URL: "/" + strings.TrimPrefix(name, "/")}
	if first, _, ok := strings.Cut(strings.TrimPrefix(name, "/"), "/"); ok {
		doc.Lang = first
	}

	var title, main, body *html.Node
	var find func(*html.Node)
	find = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch {
			case n.Data == "title" && title == nil:
				title = n
			case n.Data == "body" && body == nil:
				body = n
			case main == nil && hasClass(n, contentMarker):
				main = n
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			find(c)
		}
	}
	find(root)

	if title != nil && title.FirstChild != nil {
		doc.Title = strings.TrimSpace(title.FirstChild.Data)
	}
	content := main
	if content == nil {
		content = body
	}
	if content != nil {
		var buf bytes.Buffer
		for c := content.FirstChild; c != nil; c = c.NextSibling {
			if err := html.Render(&buf, c); err != nil {
				return Doc{}, fmt.Errorf("render %s: %w", name, err)
			}
			buf.WriteByte(' ')
		}
		doc.Body = strings.Join(strings.Fields(html.UnescapeString(strip.Sanitize(buf.String()))), " ")
	}
	return doc, nil
}

func hasClass(n *html.Node, class string) bool {
	for _, a := range n.Attr {
		if a.Key != "class" {
			continue
		}
		for _, c := range strings.Fields(a.Val) {
			if c == class {
				return true
			}
		}
	}
	return false
}

// Len returns the number of indexed pages.
func (i *Index) Len() int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.count
}

// Search returns hits for q ordered by score.
func (i *Index) Search(ctx context.Context, q Query) ([]Result, error) {
	text := strings.TrimSpace(q.Text)
	if text == "" {
		return nil, errs.New(errs.InvalidArgument, "query is required")
	}
	limit := q.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	i.mu.RLock()
	defer i.mu.RUnlock()
	if i.idx == nil {
		return nil, errs.New(errs.Unavailable, "search index not built")
	}

	req := bleve.NewSearchRequest(buildQuery(text, q.Lang))
	req.Size = limit
	req.Fields = []string{"title", "url", "body"}

	res, err := i.idx.SearchInContext(ctx, req)
	if err != nil {
		return nil, errs.Wrap(errs.Unavailable, "search failed", err)
	}

	results := make([]Result, 0, len(res.Hits))
	for _, hit := range res.Hits {
		r := Result{URL: hit.ID, Score: hit.Score}
		if v, ok := hit.Fields["title"].(string); ok {
			r.Title = v
		}
		if v, ok := hit.Fields["url"].(string); ok && v != "" {
			r.URL = v
		}
		if v, ok := hit.Fields["body"].(string); ok {
			r.Snippet = Snippet(v, text, snippetRunes)
		}
		results = append(results, r)
	}
	return results, nil
}

// buildQuery matches the text in titles (boosted) and bodies, plus a prefix
// match on the last word so partially typed words find pages.
func buildQuery(text, lang string) bquery.Query {
	title := bleve.NewMatchQuery(text)
	title.SetField("title")
	title.SetBoost(2)

	body := bleve.NewMatchQuery(text)
	body.SetField("body")

	clauses := []bquery.Query{title, body}
	words := strings.Fields(strings.ToLower(text))
	if last := words[len(words)-1]; len([]rune(last)) >= 2 {
		prefix := bleve.NewPrefixQuery(last)
		prefix.SetField("body")
		clauses = append(clauses, prefix)
	}
	var q bquery.Query = bleve.NewDisjunctionQuery(clauses...)

	if lang != "" {
		l := bleve.NewTermQuery(lang)
		l.SetField("lang")
		q = bleve.NewConjunctionQuery(q, l)
	}
	return q
}

// Snippet returns about max runes of body around the first occurrence of any
// word of text.
func Snippet(body, text string, max int) string {
	runes := []rune(body)
	if len(runes) <= max {
		return body
	}
	lower := strings.ToLower(body)
	at := -1
	for _, w := range strings.Fields(strings.ToLower(text)) {
		if idx := strings.Index(lower, w); idx >= 0 && (at < 0 || idx < at) {
			at = idx
		}
	}
	start := 0
	if at > 0 {
		start = len([]rune(lower[:at])) - max/4
		if start < 0 {
			start = 0
		}
	}
	end := start + max
	if end > len(runes) {
		end = len(runes)
		start = end - max
	}
	out := strings.TrimSpace(string(runes[start:end]))
	if start > 0 {
		out = "…" + out
	}
	if end < len(runes) {
		out += "…"
	}
	return out
}

// Suggest implements suggest.Lookup.
func (i *Index) Suggest(ctx context.Context, text string, limit int) ([]suggest.Result, error) {
	hits, err := i.Search(ctx, Query{Text: text, Limit: limit})
	if err != nil {
		return nil, err
	}
	out := make([]suggest.Result, 0, len(hits))
	for _, h := range hits {
		out = append(out, suggest.Result{Title: h.Title, URL: h.URL, Snippet: h.Snippet})
	}
	return out, nil
}

// Close releases the index.
func (i *Index) Close() error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.idx == nil {
		return nil
	}
	err := i.idx.Close()
	i.idx = nil
	i.count = 0
	return err
}
