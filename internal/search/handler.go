package search

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/diplodoc-platform/testpack/internal/errs"
	"github.com/diplodoc-platform/testpack/internal/logutil"
	"github.com/diplodoc-platform/testpack/internal/obs"
	"github.com/diplodoc-platform/testpack/internal/ratelimit"
	"github.com/diplodoc-platform/testpack/internal/urlutil"
	"github.com/diplodoc-platform/testpack/internal/widget/suggest"
)

// SuggestPath is where the page runtime sends suggest requests.
const SuggestPath = "/-/search/suggest"

const queryLogLimit = 64

// Searcher is the read side of an Index.
type Searcher interface {
	Search(ctx context.Context, q Query) ([]Result, error)
}

// SuggestResponse is the JSON body of a suggest response.
type SuggestResponse struct {
	Query string           `json:"query"`
	Items []suggest.Result `json:"items"`
}

type suggestHandler struct {
	searcher   Searcher
	maxResults int
}

// NewSuggestHandler serves GET SuggestPath?q=&lang=&limit=. A nil limiter
// disables rate limiting.
func NewSuggestHandler(s Searcher, limiter *ratelimit.Limiter, maxResults int) http.Handler {
	h := &suggestHandler{searcher: s, maxResults: maxResults}
	if limiter == nil {
		return h
	}
	return ratelimit.Middleware(limiter, urlutil.ClientIP)(h)
}

func (h *suggestHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	obs.SetRoute(r.Context(), "suggest")
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	params := r.URL.Query()
	q := Query{Text: params.Get("q"), Lang: params.Get("lang"), Limit: h.maxResults}
	if v := params.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			errs.WriteHTTP(w, errs.New(errs.InvalidArgument, "limit must be a positive integer"))
			return
		}
		if h.maxResults <= 0 || n < h.maxResults {
			q.Limit = n
		}
	}

	logger := obs.From(r.Context()).With("pkg", "search")
	hits, err := h.searcher.Search(r.Context(), q)
	if err != nil {
		logger.Debug("search_suggest_failed", "params", logutil.FormatQueryForLog(params, queryLogLimit), "code", errs.CodeOf(err))
		errs.WriteHTTP(w, err)
		return
	}

	resp := SuggestResponse{Query: q.Text, Items: make([]suggest.Result, 0, len(hits))}
	for _, hit := range hits {
		resp.Items = append(resp.Items, suggest.Result{Title: hit.Title, URL: hit.URL, Snippet: hit.Snippet})
	}
	logger.Debug("search_suggest", "q", logutil.TruncateForLog(q.Text, queryLogLimit), "lang", q.Lang, "hits", len(resp.Items))
	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
