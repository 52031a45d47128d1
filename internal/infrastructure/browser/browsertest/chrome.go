package browsertest

import (
	"os"
	"testing"

	"github.com/go-rod/rod/lib/launcher"
)

// RequireChromeEnv turns a missing browser from a skip into a failure. CI sets
// it after installing Chromium.
const RequireChromeEnv = "SCRAPER_REQUIRE_CHROME"

// LaunchChrome starts a headless Chrome for the test and returns its DevTools
// URL. Without a local binary the test is skipped, unless RequireChromeEnv is set.
func LaunchChrome(t *testing.T) string {
	t.Helper()
	if _, has := launcher.LookPath(); !has {
		if os.Getenv(RequireChromeEnv) != "" {
			t.Fatalf("no Chrome/Chromium binary found and %s is set", RequireChromeEnv)
		}
		t.Skip("no Chrome/Chromium binary found")
	}

	l := launcher.New().Headless(true).NoSandbox(true)
	controlURL, err := l.Launch()
	if err != nil {
		t.Fatalf("launch chrome: %v", err)
	}
	t.Cleanup(func() {
		l.Kill()
		l.Cleanup()
	})
	return controlURL
}
