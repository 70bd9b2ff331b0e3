// internal/browser/chrome.go
package browser

import (
	"os"
	"os/exec"
)

// Candidate Chrome/Chromium binaries, most specific first. The env override
// wins over all of them.
var chromeCandidates = []string{
	"/usr/bin/google-chrome-stable",
	"/usr/bin/google-chrome",
	"/usr/bin/chromium-browser",
	"/usr/bin/chromium",
	"/opt/google/chrome/chrome",
	"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
}

// FindChrome locates a usable Chrome binary. Returns "" when none is
// installed; callers should surface that as a configuration error rather
// than letting the driver fail with an opaque exec message.
func FindChrome() string {
	if p := os.Getenv("PULSE_CHROME_PATH"); p != "" {
		return p
	}
	for _, candidate := range chromeCandidates {
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	for _, name := range []string{"google-chrome-stable", "google-chrome", "chromium-browser", "chromium"} {
		if p, err := exec.LookPath(name); err == nil {
			return p
		}
	}
	return ""
}

// DetectRestricted reports whether the environment cannot run the
// interactive flows (QR scan login, manual challenge solving): either the
// operator forced non-interactive mode or there is no display server to
// show a browser window on. This only seeds the configuration default; the
// sessions and crawl paths read the configured value, not the environment.
func DetectRestricted() bool {
	if os.Getenv("PULSE_NON_INTERACTIVE") != "" {
		return true
	}
	if os.Getenv("CI") != "" || os.Getenv("CODESPACES") != "" {
		return true
	}
	return os.Getenv("DISPLAY") == "" && os.Getenv("WAYLAND_DISPLAY") == ""
}
