package site

import (
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRoot() fstest.MapFS {
	mod := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	return fstest.MapFS{
		"index.html":                 {Data: []byte("<h1>root</h1>"), ModTime: mod},
		"ru/syntax/cut.html":         {Data: []byte("<h1>cut</h1>"), ModTime: mod},
		"ru/search/index.html":       {Data: []byte("<h1>search</h1>"), ModTime: mod},
		"_assets/widgets.css":        {Data: []byte("body{}"), ModTime: mod},
		"_assets/widgets.js":         {Data: []byte("void 0;"), ModTime: mod},
		"ru/syntax/empty/index.html": {Data: []byte(""), ModTime: mod},
	}
}

func get(t *testing.T, h http.Handler, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func TestHandler_ServesRewrittenPaths(t *testing.T) {
	h := NewHandler(testRoot())

	cases := []struct {
		target, body, contentType string
	}{
		{"/", "<h1>root</h1>", "text/html; charset=utf-8"},
		{"/index.html", "<h1>root</h1>", "text/html; charset=utf-8"},
		{"/ru/syntax/cut", "<h1>cut</h1>", "text/html; charset=utf-8"},
		{"/ru/syntax/cut?tabs=a_b", "<h1>cut</h1>", "text/html; charset=utf-8"},
		{"/ru/search/", "<h1>search</h1>", "text/html; charset=utf-8"},
		{"/_assets/widgets.css", "body{}", "text/css; charset=utf-8"},
	}
	for _, tc := range cases {
		rec := get(t, h, http.MethodGet, tc.target)
		require.Equal(t, http.StatusOK, rec.Code, "GET %s", tc.target)
		assert.Equal(t, tc.body, rec.Body.String(), "GET %s", tc.target)
		assert.Equal(t, tc.contentType, rec.Header().Get("Content-Type"), "GET %s", tc.target)
	}

	rec := get(t, h, http.MethodGet, "/_assets/widgets.js")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "javascript")
}

func TestHandler_NotFound(t *testing.T) {
	h := NewHandler(testRoot())
	for _, target := range []string{
		"/missing",
		"/ru/syntax/",
		"/ru/syntax/cut.htm",
		"/ru/syntax/empty",
		"/../etc/passwd",
	} {
		rec := get(t, h, http.MethodGet, target)
		assert.Equal(t, http.StatusNotFound, rec.Code, "GET %s", target)
	}

	rec := get(t, NewHandler(nil), http.MethodGet, "/")
	assert.Equal(t, http.StatusNotFound, rec.Code, "nil root must behave as not found")
}

func TestHandler_DirectoryIsNotServed(t *testing.T) {
	root := testRoot()
	root["docs.html/index.html"] = &fstest.MapFile{Data: []byte("x")}
	h := NewHandler(root)

	rec := get(t, h, http.MethodGet, "/docs.html")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandler_HeadAndMethods(t *testing.T) {
	h := NewHandler(testRoot())

	rec := get(t, h, http.MethodHead, "/ru/syntax/cut")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Body.String())
	assert.Equal(t, "12", rec.Header().Get("Content-Length"))

	rec = get(t, h, http.MethodPost, "/ru/syntax/cut")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, "GET, HEAD", rec.Header().Get("Allow"))
}

func TestHandler_ConditionalGet(t *testing.T) {
	h := NewHandler(testRoot())
	req := httptest.NewRequest(http.MethodGet, "/ru/syntax/cut", nil)
	req.Header.Set("If-Modified-Since", time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC).Format(http.TimeFormat))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotModified, rec.Code)
}

func TestHandler_NoRedirectForIndex(t *testing.T) {
	srv := httptest.NewServer(NewHandler(testRoot()))
	defer srv.Close()

	client := srv.Client()
	client.CheckRedirect = func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse }

	resp, err := client.Get(srv.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, strings.Contains(string(body), "root"))
}

func TestHandler_Exists(t *testing.T) {
	h := NewHandler(testRoot())
	assert.True(t, h.Exists("/ru/syntax/cut"))
	assert.True(t, h.Exists("/"))
	assert.False(t, h.Exists("/ru/syntax"))
	assert.False(t, h.Exists("/nope"))
}

func TestHandler_AgreesWithResolveOnEscapedPaths(t *testing.T) {
	h := NewHandler(testRoot())

	for _, target := range []string{"/ru/syntax/cut%2Ehtml", "/ru/syntax/c%75t", "/ru/search%2F"} {
		resolved, err := Resolve(target)
		require.NoError(t, err)
		u, err := url.Parse(resolved)
		require.NoError(t, err)

		rec := get(t, h, http.MethodGet, target)
		assert.Equal(t, http.StatusOK, rec.Code, "GET %s", target)
		assert.True(t, h.Exists(u.Path), "Resolve(%s) = %s must name the served file", target, resolved)
	}
}
