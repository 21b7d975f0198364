package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/diplodoc-platform/testpack/internal/obs"
	"github.com/diplodoc-platform/testpack/internal/search"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSearcher struct{}

func (stubSearcher) Search(_ context.Context, q search.Query) ([]search.Result, error) {
	return []search.Result{{Title: "Hit for " + q.Text, URL: "/ru/search/article-1.html"}}, nil
}

func testRoot() fstest.MapFS {
	return fstest.MapFS{
		"index.html":         {Data: []byte("<h1>home</h1>")},
		"ru/syntax/cut.html": {Data: []byte("<h1>cut</h1>")},
	}
}

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestNew_Healthz(t *testing.T) {
	rec := get(t, New(Deps{Root: testRoot()}), "/healthz")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, WelcomeText, rec.Body.String())
}

func TestNew_ServesPagesWithoutExtension(t *testing.T) {
	h := New(Deps{Root: testRoot()})

	rec := get(t, h, "/ru/syntax/cut")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "<h1>cut</h1>")

	rec = get(t, h, "/")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "home")

	assert.Equal(t, http.StatusNotFound, get(t, h, "/ru/syntax/missing").Code)
}

func TestNew_MissingRootServesNotFound(t *testing.T) {
	h := New(Deps{Root: os.DirFS(filepath.Join(t.TempDir(), "missing"))})

	assert.Equal(t, http.StatusNotFound, get(t, h, "/").Code)
	assert.Equal(t, http.StatusNotFound, get(t, h, "/ru/syntax/cut").Code)
	assert.Equal(t, http.StatusOK, get(t, h, "/healthz").Code)
}

func TestNew_SuggestOnlyWithSearcher(t *testing.T) {
	without := get(t, New(Deps{Root: testRoot()}), search.SuggestPath+"?q=test")
	assert.Equal(t, http.StatusNotFound, without.Code, "falls through to the content server")

	rec := get(t, New(Deps{Root: testRoot(), Searcher: stubSearcher{}, MaxResults: 5}), search.SuggestPath+"?q=test")
	require.Equal(t, http.StatusOK, rec.Code)
	var resp search.SuggestResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Items, 1)
	assert.Equal(t, "/ru/search/article-1.html", resp.Items[0].URL)
}

func TestNew_MountsMCP(t *testing.T) {
	var called bool
	h := New(Deps{Root: testRoot(), MCP: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusAccepted)
	})})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, MCPPath, strings.NewReader("{}")))
	assert.True(t, called)
	assert.Equal(t, http.StatusAccepted, rec.Code)
}

func TestNew_CorrelatesAndLogsRequests(t *testing.T) {
	var buf bytes.Buffer
	restore := obs.SetOutputForTests(&buf)
	defer restore()

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ru/syntax/cut?tabs=a_b", nil)
	req.Header.Set("X-Request-Id", "req-42")
	New(Deps{Root: testRoot()}).ServeHTTP(rec, req)

	assert.Equal(t, "req-42", rec.Header().Get("X-Request-Id"))

	var access map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		var event map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &event))
		if event["msg"] == "http_access" {
			access = event
		}
	}
	require.NotNil(t, access, buf.String())
	assert.Equal(t, "server", access["pkg"])
	assert.Equal(t, "/ru/syntax/cut", access["path"])
	assert.Equal(t, "tabs=a_b", access["query"])
	assert.Equal(t, "req-42", access["request_id"])
	assert.Equal(t, "content", access["route"])
	assert.Equal(t, "/ru/syntax/cut.html", access["resolved"])
	assert.Equal(t, "192.0.2.1", access["client_ip"])
}
