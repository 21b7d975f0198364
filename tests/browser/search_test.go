package browser

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/playwright-community/playwright-go"
)

const searchPage = "/ru/search/"

func typeQuery(t *testing.T, page playwright.Page, query string) {
	t.Helper()

	if err := page.Locator("#search-input").Fill(query); err != nil {
		t.Fatalf("failed to type %q: %v", query, err)
	}
}

func waitForSuggestions(t *testing.T, page playwright.Page) int {
	t.Helper()

	WaitForCondition(t, page, "suggestions to settle", `() => {
		const list = document.querySelector('.dc-search-suggest__list');
		return document.querySelector('.dc-search-suggest__loader').hidden &&
			(list.classList.contains('dc-search-suggest__list_empty') ||
				document.querySelectorAll('#search-suggest-list > li').length > 0);
	}`, nil)
	return int(EvalNumber(t, page, `() => document.querySelectorAll('#search-suggest-list > li').length`, nil))
}

func activeSuggestion(t *testing.T, page playwright.Page) string {
	t.Helper()
	return EvalString(t, page, `() => {
		const active = document.querySelectorAll('[data-qa="list-active-item"]');
		return active.length === 1 ? active[0].id : String(active.length);
	}`, nil)
}

func TestBrowser_Search_NoResults(t *testing.T) {
	env := SetupBrowserTestEnv(t)
	page := env.NewPage(t)
	Navigate(t, page, env.BaseURL, searchPage)

	typeQuery(t, page, "qwxzyv")
	if n := waitForSuggestions(t, page); n != 0 {
		t.Fatalf("expected no suggestions, got %d", n)
	}
	visible, err := page.Locator(".dc-search-suggest__empty").IsVisible()
	if err != nil || !visible {
		t.Errorf("empty state should be shown: visible=%v err=%v", visible, err)
	}
}

func TestBrowser_Search_ResultsForQuery(t *testing.T) {
	env := SetupBrowserTestEnv(t)
	page := env.NewPage(t)
	Navigate(t, page, env.BaseURL, searchPage)

	typeQuery(t, page, "test")
	n := waitForSuggestions(t, page)
	if n != 2 {
		t.Fatalf("expected 2 suggestions for \"test\", got %d", n)
	}
	if visible, _ := page.Locator(".dc-search-suggest__empty").IsVisible(); visible {
		t.Error("empty state should be hidden when there are results")
	}

	links, err := page.Locator("#search-suggest-list a.dc-search-suggest__item").All()
	if err != nil {
		t.Fatalf("failed to list suggestion links: %v", err)
	}
	for _, link := range links {
		href, _ := link.GetAttribute("href")
		if !strings.HasPrefix(href, "/ru/search/article-") {
			t.Errorf("suggestion should link to a search article, got %q", href)
		}
		title, _ := link.Locator(".dc-search-suggest__item-title").TextContent()
		if strings.TrimSpace(title) == "" {
			t.Errorf("suggestion %q has an empty title", href)
		}
	}
	if got := activeSuggestion(t, page); got != "0" {
		t.Errorf("no suggestion should be active before arrow keys, got %q", got)
	}
}

func TestBrowser_Search_ArrowKeysClamp(t *testing.T) {
	env := SetupBrowserTestEnv(t)
	page := env.NewPage(t)
	Navigate(t, page, env.BaseURL, searchPage)

	typeQuery(t, page, "test")
	if n := waitForSuggestions(t, page); n != 2 {
		t.Fatalf("expected 2 suggestions, got %d", n)
	}

	steps := []struct {
		key  string
		want string
	}{
		{"ArrowDown", "search-suggest-item-0"},
		{"ArrowDown", "search-suggest-item-1"},
		{"ArrowDown", "search-suggest-item-1"},
		{"ArrowUp", "search-suggest-item-0"},
		{"ArrowUp", "search-suggest-item-0"},
	}
	for i, step := range steps {
		Press(t, page, step.key)
		if got := activeSuggestion(t, page); got != step.want {
			t.Fatalf("step %d (%s): active = %q, want %q", i, step.key, got, step.want)
		}
	}
	if got := EvalString(t, page, `() => document.getElementById('search-input').getAttribute('aria-activedescendant')`, nil); got != "search-suggest-item-0" {
		t.Errorf("input should point at the active option, got %q", got)
	}
}

func TestBrowser_Search_EnterOpensActiveResult(t *testing.T) {
	env := SetupBrowserTestEnv(t)
	page := env.NewPage(t)
	Navigate(t, page, env.BaseURL, searchPage)

	typeQuery(t, page, "test")
	if n := waitForSuggestions(t, page); n != 2 {
		t.Fatalf("expected 2 suggestions, got %d", n)
	}
	Press(t, page, "ArrowDown")
	Press(t, page, "ArrowDown")
	href := EvalString(t, page, `() => document.querySelector('#search-suggest-item-1 a').getAttribute('href')`, nil)

	Press(t, page, "Enter")
	if err := page.WaitForURL("**"+href, playwright.PageWaitForURLOptions{
		Timeout: playwright.Float(browserMaxTimeoutMS),
	}); err != nil {
		t.Fatalf("Enter should navigate to %s: %v (url %s)", href, err, page.URL())
	}
}

func TestBrowser_Search_EscapeClosesKeepingQuery(t *testing.T) {
	env := SetupBrowserTestEnv(t)
	page := env.NewPage(t)
	Navigate(t, page, env.BaseURL, searchPage)

	typeQuery(t, page, "test")
	waitForSuggestions(t, page)
	Press(t, page, "Escape")

	if visible, _ := page.Locator(".dc-search-suggest__popup").IsVisible(); visible {
		t.Error("Escape should close the popup")
	}
	value, err := page.Locator("#search-input").InputValue()
	if err != nil {
		t.Fatalf("failed to read input: %v", err)
	}
	if value != "test" {
		t.Errorf("Escape should keep the query, got %q", value)
	}
}

func TestBrowser_Search_ClearingHidesPopup(t *testing.T) {
	env := SetupBrowserTestEnv(t)
	page := env.NewPage(t)
	Navigate(t, page, env.BaseURL, searchPage)

	typeQuery(t, page, "test")
	waitForSuggestions(t, page)
	typeQuery(t, page, "")

	if visible, _ := page.Locator(".dc-search-suggest__popup").IsVisible(); visible {
		t.Error("clearing the query should hide the popup")
	}
	if n := int(EvalNumber(t, page, `() => document.querySelectorAll('#search-suggest-list > li').length`, nil)); n != 0 {
		t.Errorf("clearing the query should drop suggestions, got %d", n)
	}
}

func TestBrowser_Search_LatestQueryWins(t *testing.T) {
	env := SetupBrowserTestEnv(t)
	page := env.NewPage(t)
	Navigate(t, page, env.BaseURL, searchPage)

	if err := page.Locator("#search-input").PressSequentially("qwxzyv"); err != nil {
		t.Fatalf("failed to type: %v", err)
	}
	typeQuery(t, page, "test")
	if n := waitForSuggestions(t, page); n != 2 {
		t.Errorf("results should reflect the last query, got %d", n)
	}
	if EvalBool(t, page, `() => document.querySelector('.dc-search-suggest__list').classList.contains('dc-search-suggest__list_empty')`, nil) {
		t.Error("a stale empty response must not override newer results")
	}
}

func TestBrowser_Search_FooterCarriesQuery(t *testing.T) {
	env := SetupBrowserTestEnv(t)
	page := env.NewPage(t)
	Navigate(t, page, env.BaseURL, searchPage)

	typeQuery(t, page, "test")
	waitForSuggestions(t, page)
	href, err := page.Locator(".dc-search-suggest__footer a").GetAttribute("href")
	if err != nil {
		t.Fatalf("failed to read footer link: %v", err)
	}
	if !strings.HasSuffix(href, "?text=test") {
		t.Errorf("footer link should carry the query, got %q", href)
	}
}

func TestBrowser_Search_ClickSuggestionNavigatesAndCloses(t *testing.T) {
	env := SetupBrowserTestEnv(t)
	page := env.NewPage(t)
	Navigate(t, page, env.BaseURL, searchPage)

	typeQuery(t, page, "test")
	if n := waitForSuggestions(t, page); n != 2 {
		t.Fatalf("expected 2 suggestions, got %d", n)
	}
	href := EvalString(t, page, `() => document.querySelector('#search-suggest-item-0 a').getAttribute('href')`, nil)

	Click(t, page, "#search-suggest-item-0 a.dc-search-suggest__item")
	if err := page.WaitForURL("**"+href, playwright.PageWaitForURLOptions{
		Timeout: playwright.Float(browserMaxTimeoutMS),
	}); err != nil {
		t.Fatalf("clicking a suggestion should open %s: %v (url %s)", href, err, page.URL())
	}
	WaitForSelector(t, page, ".dc-doc-page__main h1")

	if visible, _ := page.Locator(".dc-search-suggest__popup").IsVisible(); visible {
		t.Error("the suggest popup must be closed after navigation")
	}
	if n := int(EvalNumber(t, page, `() => document.querySelectorAll('#search-suggest-list > li').length`, nil)); n != 0 {
		t.Errorf("the new page should not carry suggestions, got %d", n)
	}
}

func TestBrowser_Search_LoaderWhileLoading(t *testing.T) {
	env := SetupBrowserTestEnv(t)
	page := env.NewPage(t)

	release := make(chan struct{})
	var once sync.Once
	unblock := func() { once.Do(func() { close(release) }) }
	t.Cleanup(unblock)

	if err := page.Route("**/-/search/suggest*", func(route playwright.Route) {
		select {
		case <-release:
		case <-time.After(browserMaxTimeout):
		}
		_ = route.Continue()
	}); err != nil {
		t.Fatalf("failed to hold suggest responses: %v", err)
	}
	Navigate(t, page, env.BaseURL, searchPage)

	typeQuery(t, page, "test")
	WaitForCondition(t, page, "loader to show", `() => !document.querySelector('.dc-search-suggest__loader').hidden`, nil)
	if n := int(EvalNumber(t, page, `() => document.querySelectorAll('#search-suggest-list > li').length`, nil)); n != 0 {
		t.Errorf("no suggestions may render while loading, got %d", n)
	}
	if EvalBool(t, page, `() => document.querySelector('.dc-search-suggest__list').classList.contains('dc-search-suggest__list_empty')`, nil) {
		t.Error("loading must not be reported as an empty result")
	}

	unblock()
	if n := waitForSuggestions(t, page); n != 2 {
		t.Fatalf("expected 2 suggestions once the response arrives, got %d", n)
	}
	if EvalBool(t, page, `() => !document.querySelector('.dc-search-suggest__loader').hidden`, nil) {
		t.Error("the loader should hide once results render")
	}
}
