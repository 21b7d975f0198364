// Package browser provides shared test utilities for Playwright browser tests.
// All browser test files use BrowserTestEnv via SetupBrowserTestEnv(t).
package browser

import (
	"context"
	"fmt"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/diplodoc-platform/testpack/internal/docs"
	"github.com/diplodoc-platform/testpack/internal/search"
	"github.com/diplodoc-platform/testpack/internal/server"
)

const (
	// Never introduce a larger timeout value anywhere in tests/browser.
	browserMaxTimeoutMS = 5000
	browserMaxTimeout   = 5 * time.Second
)

var browserFixtureMu sync.Mutex
var browserSharedFixture *BrowserTestEnv

// BrowserTestEnv serves the generated fixture site with search enabled.
type BrowserTestEnv struct {
	Server  *httptest.Server
	BaseURL string
	Root    string
	Index   *search.Index

	pw        *playwright.Playwright
	browser   playwright.Browser
	browserMu sync.Mutex
}

// SetupBrowserTestEnv returns the shared environment, building it on first use.
func SetupBrowserTestEnv(t *testing.T) *BrowserTestEnv {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping browser test in short mode")
	}

	browserFixtureMu.Lock()
	defer browserFixtureMu.Unlock()

	if browserSharedFixture == nil {
		browserSharedFixture = createBrowserTestEnv(t)
	}
	return browserSharedFixture
}

func createBrowserTestEnv(t *testing.T) *BrowserTestEnv {
	t.Helper()

	site, err := docs.Build(docs.Fixtures())
	if err != nil {
		t.Fatalf("Failed to build fixture site: %v", err)
	}

	root, err := os.MkdirTemp("", "browser-site-*")
	if err != nil {
		t.Fatalf("Failed to create site dir: %v", err)
	}
	if err := site.WriteDir(root); err != nil {
		_ = os.RemoveAll(root)
		t.Fatalf("Failed to write fixture site: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), browserMaxTimeout)
	defer cancel()
	index := search.New()
	if err := index.Build(ctx, os.DirFS(root)); err != nil {
		_ = os.RemoveAll(root)
		t.Fatalf("Failed to build search index: %v", err)
	}

	srv := httptest.NewServer(server.New(server.Deps{
		Root:       os.DirFS(root),
		Searcher:   index,
		MaxResults: search.DefaultLimit,
	}))

	return &BrowserTestEnv{
		Server:  srv,
		BaseURL: srv.URL,
		Root:    root,
		Index:   index,
	}
}

func cleanupSharedBrowserTestEnv() {
	browserFixtureMu.Lock()
	defer browserFixtureMu.Unlock()

	env := browserSharedFixture
	if env == nil {
		return
	}
	if env.browser != nil {
		_ = env.browser.Close()
	}
	if env.pw != nil {
		_ = env.pw.Stop()
	}
	if env.Server != nil {
		env.Server.Close()
	}
	if env.Index != nil {
		_ = env.Index.Close()
	}
	if env.Root != "" {
		_ = os.RemoveAll(env.Root)
	}
	browserSharedFixture = nil
}

// InitBrowser initializes Playwright and launches Chromium. Skips the test if not available.
func (env *BrowserTestEnv) InitBrowser(t *testing.T) {
	t.Helper()

	env.browserMu.Lock()
	defer env.browserMu.Unlock()

	if env.browser != nil {
		return
	}

	pw, err := playwright.Run()
	if err != nil {
		t.Skip("Playwright not available:", err)
	}

	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(true),
	})
	if err != nil {
		_ = pw.Stop()
		t.Skip("Could not launch browser:", err)
	}
	env.pw = pw
	env.browser = browser
}

// NewPage opens a page in a fresh context sized like a desktop window. The
// context is closed when the test ends.
func (env *BrowserTestEnv) NewPage(t *testing.T) playwright.Page {
	t.Helper()

	env.InitBrowser(t)
	ctx, err := env.browser.NewContext(playwright.BrowserNewContextOptions{
		Viewport: &playwright.Size{Width: 1280, Height: 800},
	})
	if err != nil {
		t.Fatalf("could not create browser context: %v", err)
	}
	t.Cleanup(func() { _ = ctx.Close() })
	ctx.SetDefaultTimeout(browserMaxTimeoutMS)
	ctx.SetDefaultNavigationTimeout(browserMaxTimeoutMS)

	page, err := ctx.NewPage()
	if err != nil {
		t.Fatalf("could not create page: %v", err)
	}
	return page
}

// =============================================================================
// Navigation and wait helpers
// =============================================================================

// Navigate navigates to a path on the test server and waits for DOMContentLoaded.
func Navigate(t *testing.T, page playwright.Page, baseURL, path string) {
	t.Helper()

	_, err := page.Goto(baseURL+path, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
		Timeout:   playwright.Float(browserMaxTimeoutMS),
	})
	if err != nil {
		t.Fatalf("Failed to navigate to %s: %v", path, err)
	}
}

// WaitForSelector waits for an element to be visible and returns its locator.
func WaitForSelector(t *testing.T, page playwright.Page, selector string) playwright.Locator {
	t.Helper()

	first := page.Locator(selector).First()
	err := first.WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateVisible,
		Timeout: playwright.Float(browserMaxTimeoutMS),
	})
	if err != nil {
		content, _ := page.Content()
		if len(content) > 500 {
			content = content[:500] + "..."
		}
		t.Logf("Current URL: %s", page.URL())
		t.Logf("Content preview: %s", content)
		t.Fatalf("Failed to wait for selector %s: %v", selector, err)
	}
	return first
}

// WaitForCondition polls a JS predicate until it returns true.
func WaitForCondition(t *testing.T, page playwright.Page, what, predicate string, arg any) {
	t.Helper()

	_, err := page.WaitForFunction(predicate, arg, playwright.PageWaitForFunctionOptions{
		Timeout: playwright.Float(browserMaxTimeoutMS),
	})
	if err != nil {
		t.Fatalf("Timed out waiting for %s: %v", what, err)
	}
}

// Click clicks the first element matching selector.
func Click(t *testing.T, page playwright.Page, selector string) {
	t.Helper()

	if err := page.Locator(selector).First().Click(); err != nil {
		t.Fatalf("Failed to click %s: %v", selector, err)
	}
}

// Press sends one key to the focused element.
func Press(t *testing.T, page playwright.Page, key string) {
	t.Helper()

	if err := page.Keyboard().Press(key); err != nil {
		t.Fatalf("Failed to press %s: %v", key, err)
	}
}

// EvalBool evaluates a JS expression that returns a boolean.
func EvalBool(t *testing.T, page playwright.Page, expr string, arg any) bool {
	t.Helper()

	v, err := page.Evaluate(expr, arg)
	if err != nil {
		t.Fatalf("Failed to evaluate %s: %v", expr, err)
	}
	b, ok := v.(bool)
	if !ok {
		t.Fatalf("Expected boolean from %s, got %T", expr, v)
	}
	return b
}

// EvalString evaluates a JS expression that returns a string.
func EvalString(t *testing.T, page playwright.Page, expr string, arg any) string {
	t.Helper()

	v, err := page.Evaluate(expr, arg)
	if err != nil {
		t.Fatalf("Failed to evaluate %s: %v", expr, err)
	}
	if v == nil {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		t.Fatalf("Expected string from %s, got %T", expr, v)
	}
	return s
}

// EvalNumber evaluates a JS expression that returns a number.
func EvalNumber(t *testing.T, page playwright.Page, expr string, arg any) float64 {
	t.Helper()

	v, err := page.Evaluate(expr, arg)
	if err != nil {
		t.Fatalf("Failed to evaluate %s: %v", expr, err)
	}
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	default:
		t.Fatalf("Expected number from %s, got %T", expr, v)
		return 0
	}
}

// =============================================================================
// Widget state helpers
// =============================================================================

// IsCutOpen reports whether the cut whose title has the given id is expanded.
func IsCutOpen(t *testing.T, page playwright.Page, id string) bool {
	t.Helper()
	return EvalBool(t, page, `(id) => {
		const title = document.getElementById(id);
		return !!title && title.closest('details').open;
	}`, id)
}

// ActiveTabSlugs returns the active tab slug of every tabs container with
// the given group key, in document order. "" marks a group with none.
func ActiveTabSlugs(t *testing.T, page playwright.Page, group string) []string {
	t.Helper()

	v, err := page.Evaluate(`(group) => {
		return Array.from(document.querySelectorAll('.yfm-tabs[data-diplodoc-group="' + group + '"]')).map((g) => {
			const active = Array.from(g.querySelectorAll('[data-diplodoc-key].active')).find((el) => el.closest('.yfm-tabs') === g);
			return active ? active.getAttribute('data-diplodoc-key') : '';
		});
	}`, group)
	if err != nil {
		t.Fatalf("Failed to read active tabs of %s: %v", group, err)
	}
	raw, ok := v.([]any)
	if !ok {
		t.Fatalf("Expected array of slugs, got %T", v)
	}
	out := make([]string, 0, len(raw))
	for _, s := range raw {
		str, _ := s.(string)
		out = append(out, str)
	}
	return out
}

// TabsQuery returns the tabs= values of the current page URL.
func TabsQuery(t *testing.T, page playwright.Page) []string {
	t.Helper()

	v := EvalString(t, page, `() => new URLSearchParams(location.search).getAll('tabs').join(',')`, nil)
	if v == "" {
		return nil
	}
	return strings.Split(v, ",")
}

// VisiblePanels counts visible panels that belong directly to the tabs container id.
func VisiblePanels(t *testing.T, page playwright.Page, id string) int {
	t.Helper()

	return int(EvalNumber(t, page, `(id) => {
		const g = document.getElementById(id);
		return Array.from(g.querySelectorAll('.yfm-tab-panel'))
			.filter((p) => p.closest('.yfm-tabs') === g && p.offsetParent !== null).length;
	}`, id))
}

// OpenTooltips returns the ids of visible term tooltips.
func OpenTooltips(t *testing.T, page playwright.Page) []string {
	t.Helper()

	v := EvalString(t, page, `() => Array.from(document.querySelectorAll('dfn.yfm-term_dfn'))
		.filter((d) => getComputedStyle(d).display !== 'none')
		.map((d) => d.id).join(',')`, nil)
	if v == "" {
		return nil
	}
	return strings.Split(v, ",")
}

func sameStrings(a, b []string) bool {
	return fmt.Sprint(a) == fmt.Sprint(b)
}
