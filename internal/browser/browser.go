// Package browser manages the headless Chrome session the dynamic
// extraction strategies run in: lifecycle, cookie injection, stealth
// patches, page snapshots, and in-page script evaluation.
package browser

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"github.com/rs/zerolog/log"

	"github.com/campaignpulse/pulse/internal/session"
	"github.com/campaignpulse/pulse/pkg/models"
)

// ErrChromeNotFound is returned when no Chrome binary could be located.
var ErrChromeNotFound = errors.New("chrome browser not found")

// Options configures a browser session.
type Options struct {
	Headless   bool
	Mobile     bool // mobile UA + viewport, used for m.facebook.com
	UserAgent  string
	Proxy      string
	Timeout    time.Duration // per-navigation timeout
	Restricted bool          // no interactive display; login waits fail fast
}

// Session is one live browser with injected authentication state. It is not
// safe for concurrent use; the batch runner crawls sequentially anyway.
type Session struct {
	platform models.Platform
	store    *session.Store
	opts     Options

	allocCancel context.CancelFunc
	ctx         context.Context
	cancel      context.CancelFunc

	navigated bool
}

// New launches Chrome and prepares a session for one platform. Stored
// cookies for the platform are loaded and injected before the first
// navigation so the page never renders logged-out first.
func New(ctx context.Context, platform models.Platform, store *session.Store, opts Options) (*Session, error) {
	execPath := FindChrome()
	if execPath == "" {
		return nil, ErrChromeNotFound
	}
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.UserAgent == "" {
		if opts.Mobile {
			opts.UserAgent = mobileUserAgent
		} else {
			opts.UserAgent = desktopUserAgent
		}
	}

	allocOpts := []chromedp.ExecAllocatorOption{
		chromedp.ExecPath(execPath),
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
		chromedp.Flag("headless", opts.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-background-networking", true),
		chromedp.Flag("disable-breakpad", true),
		chromedp.Flag("disable-client-side-phishing-detection", true),
		chromedp.Flag("disable-default-apps", true),
		chromedp.Flag("disable-hang-monitor", true),
		chromedp.Flag("disable-ipc-flooding-protection", true),
		chromedp.Flag("disable-prompt-on-repost", true),
		chromedp.Flag("disable-renderer-backgrounding", true),
		chromedp.Flag("disable-sync", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("force-color-profile", "srgb"),
		chromedp.Flag("metrics-recording-only", true),
		chromedp.Flag("mute-audio", true),
		chromedp.UserAgent(opts.UserAgent),
	}
	if opts.Mobile {
		allocOpts = append(allocOpts, chromedp.WindowSize(390, 844))
	} else {
		allocOpts = append(allocOpts, chromedp.WindowSize(1280, 900))
	}
	if opts.Proxy != "" {
		allocOpts = append(allocOpts, chromedp.ProxyServer(opts.Proxy))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, allocOpts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	s := &Session{
		platform:    platform,
		store:       store,
		opts:        opts,
		allocCancel: allocCancel,
		ctx:         browserCtx,
		cancel:      browserCancel,
	}

	if err := chromedp.Run(browserCtx,
		network.Enable(),
		chromedp.ActionFunc(func(ctx context.Context) error {
			_, err := page.AddScriptToEvaluateOnNewDocument(stealthScript).Do(ctx)
			return err
		}),
	); err != nil {
		s.teardown()
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}

	if store != nil {
		if data, err := store.Load(platform); err == nil {
			if err := s.InjectCookies(data.Cookies); err != nil {
				log.Warn().Err(err).Str("platform", string(platform)).Msg("Cookie injection failed")
			} else {
				log.Debug().
					Str("platform", string(platform)).
					Int("cookie_count", len(data.Cookies)).
					Msg("Session cookies injected")
			}
		}
	}

	return s, nil
}

// InjectCookies sets cookies into the browser's cookie jar. Cookies with an
// unparseable SameSite value are injected without one; dropping the
// attribute beats dropping the cookie.
func (s *Session) InjectCookies(cookies []session.Cookie) error {
	params := make([]*network.CookieParam, 0, len(cookies))
	for _, c := range cookies {
		cookie := &network.CookieParam{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			HTTPOnly: c.HTTPOnly,
			Secure:   c.Secure,
		}
		if c.Expires > 0 {
			t := time.Unix(int64(c.Expires), 0)
			expires := cdp.TimeSinceEpoch(t)
			cookie.Expires = &expires
		}
		switch strings.ToLower(c.SameSite) {
		case "strict":
			cookie.SameSite = network.CookieSameSiteStrict
		case "lax":
			cookie.SameSite = network.CookieSameSiteLax
		case "none":
			cookie.SameSite = network.CookieSameSiteNone
		}
		params = append(params, cookie)
	}
	if len(params) == 0 {
		return nil
	}
	return chromedp.Run(s.ctx, network.SetCookies(params))
}

// Navigate loads url and waits for the document to be ready. The
// per-navigation timeout bounds the whole load.
func (s *Session) Navigate(ctx context.Context, url string) error {
	navCtx, cancel := context.WithTimeout(s.ctx, s.opts.Timeout)
	defer cancel()
	stop := propagateCancel(ctx, cancel)
	defer stop()

	err := chromedp.Run(navCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
	if err != nil {
		return fmt.Errorf("navigation to %s failed: %w", url, err)
	}
	s.navigated = true
	return nil
}

// WaitVisible blocks until the selector is visible or the timeout passes.
func (s *Session) WaitVisible(selector string, timeout time.Duration) error {
	waitCtx, cancel := context.WithTimeout(s.ctx, timeout)
	defer cancel()
	return chromedp.Run(waitCtx, chromedp.WaitVisible(selector, chromedp.ByQuery))
}

// ScrollBottom scrolls to the page bottom and idles briefly so lazy content
// (comment lists, deferred counters) gets a chance to load.
func (s *Session) ScrollBottom(settle time.Duration) error {
	return chromedp.Run(s.ctx,
		chromedp.Evaluate(`window.scrollTo(0, document.body.scrollHeight)`, nil),
		chromedp.Sleep(settle),
	)
}

// HTML returns a snapshot of the rendered document.
func (s *Session) HTML(ctx context.Context) (string, error) {
	snapCtx, cancel := context.WithTimeout(s.ctx, s.opts.Timeout)
	defer cancel()
	stop := propagateCancel(ctx, cancel)
	defer stop()

	var html string
	err := chromedp.Run(snapCtx, chromedp.OuterHTML("html", &html, chromedp.ByQuery))
	if err != nil {
		return "", fmt.Errorf("failed to snapshot page: %w", err)
	}
	return html, nil
}

// Title returns the current document title.
func (s *Session) Title() (string, error) {
	var title string
	err := chromedp.Run(s.ctx, chromedp.Title(&title))
	return title, err
}

// Evaluate runs a JavaScript expression in the page and unmarshals the
// result into out. Used both for reading embedded state objects and for
// calling the platform's own in-page API functions, which lets the page's
// scripts handle request signing.
func (s *Session) Evaluate(ctx context.Context, expr string, out interface{}) error {
	evalCtx, cancel := context.WithTimeout(s.ctx, s.opts.Timeout)
	defer cancel()
	stop := propagateCancel(ctx, cancel)
	defer stop()

	return chromedp.Run(evalCtx, chromedp.Evaluate(expr, out,
		func(p *runtime.EvaluateParams) *runtime.EvaluateParams {
			return p.WithAwaitPromise(true)
		}))
}

// Restricted reports whether this session runs without an interactive
// display.
func (s *Session) Restricted() bool { return s.opts.Restricted }

// Cookies reads the browser's current cookie jar.
func (s *Session) Cookies() ([]session.Cookie, error) {
	var raw []*network.Cookie
	err := chromedp.Run(s.ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		raw, err = network.GetCookies().Do(ctx)
		return err
	}))
	if err != nil {
		return nil, fmt.Errorf("failed to read cookies: %w", err)
	}
	cookies := make([]session.Cookie, len(raw))
	for i, c := range raw {
		cookies[i] = session.Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Expires:  c.Expires,
			HTTPOnly: c.HTTPOnly,
			Secure:   c.Secure,
			SameSite: string(c.SameSite),
		}
	}
	return cookies, nil
}

// CookieValue returns the value of the named cookie, or "" if absent.
func (s *Session) CookieValue(name string) string {
	cookies, err := s.Cookies()
	if err != nil {
		return ""
	}
	for _, c := range cookies {
		if c.Name == name {
			return c.Value
		}
	}
	return ""
}

// persistCookies saves the given cookie jar to the session store.
// Persistence failures are logged, never fatal.
func (s *Session) persistCookies(cookies []session.Cookie) {
	if s.store == nil || len(cookies) == 0 {
		return
	}
	data := &session.Data{
		Platform:  s.platform,
		Cookies:   cookies,
		UserAgent: s.opts.UserAgent,
	}
	maxExpires := 0.0
	for _, c := range cookies {
		if c.Expires > maxExpires {
			maxExpires = c.Expires
		}
	}
	if maxExpires > 0 {
		data.ExpiresAt = time.Unix(int64(maxExpires), 0)
	}
	if err := s.store.Save(data); err != nil {
		log.Warn().Err(err).Str("platform", string(s.platform)).Msg("Failed to persist session")
	}
}

// Close shuts the browser down. If any navigation happened, the current
// cookie jar is persisted first so refreshed tokens survive to the next run.
func (s *Session) Close() {
	if s.navigated {
		if cookies, err := s.Cookies(); err == nil {
			s.persistCookies(cookies)
		}
	}
	s.teardown()
}

func (s *Session) teardown() {
	if s.cancel != nil {
		s.cancel()
	}
	if s.allocCancel != nil {
		s.allocCancel()
	}
}

// propagateCancel cancels fn when outer is done, so a caller-level
// cancellation interrupts a chromedp run bound to the session context.
func propagateCancel(outer context.Context, fn context.CancelFunc) (stop func()) {
	if outer == nil {
		return func() {}
	}
	done := make(chan struct{})
	go func() {
		select {
		case <-outer.Done():
			fn()
		case <-done:
		}
	}()
	return func() { close(done) }
}
