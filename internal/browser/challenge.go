// internal/browser/challenge.go
package browser

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	// ScanLoginTimeout bounds the wait for a human to scan a QR code.
	ScanLoginTimeout = 2 * time.Minute
	// GatewayTimeout bounds the wait for an anti-bot interstitial to clear.
	GatewayTimeout = 30 * time.Second
	// challengePoll is the interval between page state probes.
	challengePoll = time.Second
)

// sessionCookieMinLen separates a real login token from the placeholder
// value the login page sets before authentication completes.
const sessionCookieMinLen = 50

// WaitForScanLogin blocks until the operator finishes a QR scan login in
// the visible browser window. Completion is detected two ways: the session
// cookie appears with a real token value, or the QR container leaves the
// DOM because the page navigated on. In a restricted environment this
// returns immediately with an error instead of hanging for two minutes.
func (s *Session) WaitForScanLogin(ctx context.Context, cookieName, qrSelector string) error {
	if s.opts.Restricted {
		return fmt.Errorf("scan login requires an interactive display: restricted environment")
	}

	log.Info().
		Str("platform", string(s.platform)).
		Msg("Waiting for QR scan login, please scan with the mobile app")

	deadline := time.Now().Add(ScanLoginTimeout)
	for time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(challengePoll):
		}

		if v := s.CookieValue(cookieName); len(v) >= sessionCookieMinLen {
			log.Info().Str("platform", string(s.platform)).Msg("Scan login completed")
			return nil
		}

		if qrSelector != "" {
			var present bool
			expr := fmt.Sprintf(`document.querySelector(%q) !== null`, qrSelector)
			if err := s.Evaluate(ctx, expr, &present); err == nil && !present {
				// QR gone and some cookie set means the page moved past login.
				if s.CookieValue(cookieName) != "" {
					log.Info().Str("platform", string(s.platform)).Msg("Scan login completed")
					return nil
				}
			}
		}
	}
	return fmt.Errorf("scan login timed out after %s", ScanLoginTimeout)
}

// gatewayMarkers in the title indicate the interstitial is still up.
var gatewayMarkers = []string{"just a moment", "cloudflare", "attention required"}

// WaitForGatewayChallenge waits for an enterprise anti-bot interstitial to
// clear. The page counts as passed only when the challenge markers are gone
// AND at least one of the expected content markers is present in the
// document, so a blank error page never counts as success.
func (s *Session) WaitForGatewayChallenge(ctx context.Context, contentMarkers []string) error {
	log.Debug().Str("platform", string(s.platform)).Msg("Checking for gateway challenge")

	deadline := time.Now().Add(GatewayTimeout)
	for time.Now().Before(deadline) {
		title, err := s.Title()
		if err == nil && !containsAnyFold(title, gatewayMarkers) {
			html, err := s.HTML(ctx)
			if err == nil && containsAnyFold(html, contentMarkers) {
				// Save the clearance cookies right away; a crash later in
				// the crawl should not cost the next run another challenge.
				if cookies, err := s.Cookies(); err == nil {
					s.persistCookies(cookies)
				}
				return nil
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(challengePoll):
		}
	}
	return fmt.Errorf("gateway challenge did not clear within %s", GatewayTimeout)
}

func containsAnyFold(haystack string, needles []string) bool {
	lower := strings.ToLower(haystack)
	for _, n := range needles {
		if strings.Contains(lower, strings.ToLower(n)) {
			return true
		}
	}
	return false
}
