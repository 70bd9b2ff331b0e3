// Package crawlertest provides a scripted fake browser for platform
// crawler tests, so extraction logic runs against canned page snapshots
// instead of live Chrome.
package crawlertest

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/campaignpulse/pulse/internal/crawler"
	"github.com/campaignpulse/pulse/pkg/models"
)

// FakeBrowser satisfies crawler.Browser with canned responses.
type FakeBrowser struct {
	Page      string            // HTML snapshot returned by HTML()
	PageTitle string            // document title
	Cookies   map[string]string // jar contents for CookieValue
	// EvalResults maps an expression substring to the value Evaluate stores.
	// The longest key contained in the expression wins, so overlapping URL
	// prefixes script independently.
	EvalResults map[string]interface{}

	NavigateErr  error
	ChallengeErr error
	ScanErr      error
	// RestrictedEnv makes the fake report a non-interactive environment.
	RestrictedEnv bool

	NavigatedTo []string
	EvalExprs   []string
	Closed      bool
}

var _ crawler.Browser = (*FakeBrowser)(nil)

func (f *FakeBrowser) Navigate(_ context.Context, url string) error {
	f.NavigatedTo = append(f.NavigatedTo, url)
	return f.NavigateErr
}

func (f *FakeBrowser) HTML(context.Context) (string, error) { return f.Page, nil }

func (f *FakeBrowser) Title() (string, error) { return f.PageTitle, nil }

func (f *FakeBrowser) Evaluate(_ context.Context, expr string, out interface{}) error {
	f.EvalExprs = append(f.EvalExprs, expr)
	best := ""
	for key := range f.EvalResults {
		if key != "" && strings.Contains(expr, key) && len(key) > len(best) {
			best = key
		}
	}
	if best != "" {
		return assign(out, f.EvalResults[best])
	}
	return fmt.Errorf("no scripted result for expression")
}

func (f *FakeBrowser) CookieValue(name string) string { return f.Cookies[name] }

func (f *FakeBrowser) ScrollBottom(time.Duration) error { return nil }

func (f *FakeBrowser) WaitForScanLogin(context.Context, string, string) error { return f.ScanErr }

func (f *FakeBrowser) WaitForGatewayChallenge(context.Context, []string) error {
	return f.ChallengeErr
}

func (f *FakeBrowser) Restricted() bool { return f.RestrictedEnv }

func (f *FakeBrowser) Close() { f.Closed = true }

// Factory returns a BrowserFactory that always hands out f.
func Factory(f *FakeBrowser) crawler.BrowserFactory {
	return func(context.Context, models.Platform, bool) (crawler.Browser, error) {
		return f, nil
	}
}

func assign(out interface{}, val interface{}) error {
	switch dst := out.(type) {
	case *string:
		s, ok := val.(string)
		if !ok {
			return fmt.Errorf("scripted value is %T, want string", val)
		}
		*dst = s
	case *bool:
		b, ok := val.(bool)
		if !ok {
			return fmt.Errorf("scripted value is %T, want bool", val)
		}
		*dst = b
	case *int:
		n, ok := val.(int)
		if !ok {
			return fmt.Errorf("scripted value is %T, want int", val)
		}
		*dst = n
	default:
		return fmt.Errorf("unsupported evaluate target %T", out)
	}
	return nil
}
