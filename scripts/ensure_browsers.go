// Command ensure_browsers installs the Playwright driver and Chromium used by
// tests/browser.
//
// Usage:
//
//	go run ./scripts/ensure_browsers.go
package main

import (
	"fmt"
	"os"

	"github.com/playwright-community/playwright-go"
)

func main() {
	err := playwright.Install(&playwright.RunOptions{
		Browsers: []string{"chromium"},
		Verbose:  true,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "install playwright: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("chromium ready")
}
