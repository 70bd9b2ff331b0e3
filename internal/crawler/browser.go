// internal/crawler/browser.go
package crawler

import (
	"context"
	"time"

	"github.com/campaignpulse/pulse/pkg/models"
)

// Browser is the slice of the browser session the platform crawlers drive.
// Narrowed to an interface here so platform packages can be tested against
// canned page snapshots without Chrome.
type Browser interface {
	Navigate(ctx context.Context, url string) error
	HTML(ctx context.Context) (string, error)
	Title() (string, error)
	Evaluate(ctx context.Context, expr string, out interface{}) error
	CookieValue(name string) string
	ScrollBottom(settle time.Duration) error
	WaitForScanLogin(ctx context.Context, cookieName, qrSelector string) error
	WaitForGatewayChallenge(ctx context.Context, contentMarkers []string) error
	// Restricted reports whether the session runs without an interactive
	// display, so interactive fallbacks should be skipped up front.
	Restricted() bool
	Close()
}

// BrowserFactory opens a fresh browser session for one platform. mobile
// selects the mobile UA and viewport.
type BrowserFactory func(ctx context.Context, platform models.Platform, mobile bool) (Browser, error)
