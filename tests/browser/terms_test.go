package browser

import (
	"math"
	"testing"
)

const termsPage = "/ru/syntax/terms"

func TestBrowser_Terms_OnlyOneTooltipOpen(t *testing.T) {
	env := SetupBrowserTestEnv(t)
	page := env.NewPage(t)
	Navigate(t, page, env.BaseURL, termsPage)

	if got := OpenTooltips(t, page); len(got) != 0 {
		t.Fatalf("no tooltip should be open on load, got %v", got)
	}

	Click(t, page, "#term-1")
	WaitForSelector(t, page, "#dfn-api.open")
	if got := OpenTooltips(t, page); !sameStrings(got, []string{"dfn-api"}) {
		t.Fatalf("expected only dfn-api open, got %v", got)
	}

	Click(t, page, "#term-2")
	WaitForSelector(t, page, "#dfn-sdk.open")
	if got := OpenTooltips(t, page); !sameStrings(got, []string{"dfn-sdk"}) {
		t.Errorf("opening a second term should close the first, got %v", got)
	}
}

func TestBrowser_Terms_RepeatedTermSharesDefinition(t *testing.T) {
	env := SetupBrowserTestEnv(t)
	page := env.NewPage(t)
	Navigate(t, page, env.BaseURL, termsPage)

	for _, id := range []string{"term-1", "term-3"} {
		got := EvalString(t, page, `(id) => document.getElementById(id).getAttribute('aria-describedby')`, id)
		if got != "dfn-api" {
			t.Errorf("%s should describe itself with dfn-api, got %q", id, got)
		}
	}
	if n := int(EvalNumber(t, page, `() => document.querySelectorAll('#dfn-api').length`, nil)); n != 1 {
		t.Errorf("definition should render once, got %d", n)
	}

	Click(t, page, "#term-3")
	if got := OpenTooltips(t, page); !sameStrings(got, []string{"dfn-api"}) {
		t.Errorf("second mention should open the shared definition, got %v", got)
	}
}

func TestBrowser_Terms_ClickTogglesSameTerm(t *testing.T) {
	env := SetupBrowserTestEnv(t)
	page := env.NewPage(t)
	Navigate(t, page, env.BaseURL, termsPage)

	Click(t, page, "#term-1")
	WaitForSelector(t, page, "#dfn-api.open")
	Click(t, page, "#term-1")
	if got := OpenTooltips(t, page); len(got) != 0 {
		t.Errorf("clicking the open term again should close it, got %v", got)
	}
}

func TestBrowser_Terms_EscapeClosesAndRefocuses(t *testing.T) {
	env := SetupBrowserTestEnv(t)
	page := env.NewPage(t)
	Navigate(t, page, env.BaseURL, termsPage)

	Click(t, page, "#term-2")
	WaitForSelector(t, page, "#dfn-sdk.open")
	if expanded := EvalString(t, page, `() => document.getElementById('term-2').getAttribute('aria-expanded')`, nil); expanded != "true" {
		t.Errorf("open term should report aria-expanded=true, got %q", expanded)
	}

	Press(t, page, "Escape")
	if got := OpenTooltips(t, page); len(got) != 0 {
		t.Fatalf("Escape should close the tooltip, got %v", got)
	}
	if got := EvalString(t, page, `() => document.activeElement && document.activeElement.id`, nil); got != "term-2" {
		t.Errorf("focus should return to the term, got %q", got)
	}
	if expanded := EvalString(t, page, `() => document.getElementById('term-2').getAttribute('aria-expanded')`, nil); expanded != "false" {
		t.Errorf("closed term should report aria-expanded=false, got %q", expanded)
	}
}

func TestBrowser_Terms_OutsideClickCloses(t *testing.T) {
	env := SetupBrowserTestEnv(t)
	page := env.NewPage(t)
	Navigate(t, page, env.BaseURL, termsPage)

	Click(t, page, "#term-1")
	WaitForSelector(t, page, "#dfn-api.open")

	// A click inside the tooltip keeps it open.
	Click(t, page, "#dfn-api")
	if got := OpenTooltips(t, page); !sameStrings(got, []string{"dfn-api"}) {
		t.Fatalf("click inside the tooltip should keep it open, got %v", got)
	}

	Click(t, page, ".dc-doc-page__main h1")
	if got := OpenTooltips(t, page); len(got) != 0 {
		t.Errorf("click outside should close the tooltip, got %v", got)
	}
}

func TestBrowser_Terms_KeyboardOpens(t *testing.T) {
	env := SetupBrowserTestEnv(t)
	page := env.NewPage(t)
	Navigate(t, page, env.BaseURL, termsPage)

	if err := page.Locator("#term-2").Focus(); err != nil {
		t.Fatalf("failed to focus term: %v", err)
	}
	Press(t, page, "Enter")
	if got := OpenTooltips(t, page); !sameStrings(got, []string{"dfn-sdk"}) {
		t.Fatalf("Enter on a focused term should open it, got %v", got)
	}
	Press(t, page, "Space")
	if got := OpenTooltips(t, page); len(got) != 0 {
		t.Errorf("Space on the open term should close it, got %v", got)
	}
}

func TestBrowser_Terms_TooltipPlacedBelowTerm(t *testing.T) {
	env := SetupBrowserTestEnv(t)
	page := env.NewPage(t)
	Navigate(t, page, env.BaseURL, termsPage)

	Click(t, page, "#term-2")
	WaitForSelector(t, page, "#dfn-sdk.open")

	termBottom := EvalNumber(t, page, `() => document.getElementById('term-2').getBoundingClientRect().bottom`, nil)
	termLeft := EvalNumber(t, page, `() => document.getElementById('term-2').getBoundingClientRect().left`, nil)
	tipTop := EvalNumber(t, page, `() => document.getElementById('dfn-sdk').getBoundingClientRect().top`, nil)
	tipLeft := EvalNumber(t, page, `() => document.getElementById('dfn-sdk').getBoundingClientRect().left`, nil)

	if tipTop < termBottom || tipTop-termBottom > 20 {
		t.Errorf("tooltip top %.0f should sit just below the term bottom %.0f", tipTop, termBottom)
	}
	if math.Abs(tipLeft-termLeft) > 2 {
		t.Errorf("tooltip left %.0f should align with the term left %.0f", tipLeft, termLeft)
	}
	if parent := EvalString(t, page, `() => document.getElementById('dfn-sdk').parentElement.tagName`, nil); parent != "BODY" {
		t.Errorf("tooltip should be attached to the body, got parent %s", parent)
	}
}
