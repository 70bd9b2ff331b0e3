// Package facebook crawls Facebook post metrics through the mobile site.
// m.facebook.com serves a server-rendered page with the counts serialized
// inline, far easier to read than the desktop React tree, so every crawl
// rewrites the URL to the mobile host and runs under a mobile user agent.
package facebook

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/campaignpulse/pulse/internal/chain"
	"github.com/campaignpulse/pulse/internal/crawler"
	"github.com/campaignpulse/pulse/internal/extract"
	"github.com/campaignpulse/pulse/internal/numfmt"
	"github.com/campaignpulse/pulse/internal/postid"
	"github.com/campaignpulse/pulse/pkg/models"
)

// Crawler implements crawler.PlatformCrawler for Facebook.
type Crawler struct {
	factory crawler.BrowserFactory
}

// New creates the Facebook crawler.
func New(factory crawler.BrowserFactory) *Crawler {
	return &Crawler{factory: factory}
}

func (c *Crawler) Platform() models.Platform { return models.PlatformFacebook }

var mobileHostRe = regexp.MustCompile(`^(https?://)(?:www\.|web\.|m\.)?(facebook\.com)`)

// MobileURL rewrites a post URL onto the mobile host. fb.watch short links
// redirect there on their own.
func MobileURL(url string) string {
	return mobileHostRe.ReplaceAllString(url, "${1}m.${2}")
}

// Crawl fetches metrics for one post.
func (c *Crawler) Crawl(ctx context.Context, ref models.PostReference) *models.CrawlResult {
	if ref.PostID == "" {
		if id, ok := postid.Extract(ref.URL, models.PlatformFacebook); ok {
			ref.PostID = id
		}
	}

	b, err := c.factory(ctx, models.PlatformFacebook, true)
	if err != nil {
		result := models.NewResult(ref)
		result.SetError(models.ErrKindUnknown, err.Error())
		return result
	}
	defer b.Close()

	if err := b.Navigate(ctx, MobileURL(ref.URL)); err != nil {
		result := models.NewResult(ref)
		result.SetError(models.ErrKindTransientNetwork, err.Error())
		return result
	}

	ch := chain.New(models.PlatformFacebook, []chain.Strategy{
		chain.Func{StrategyName: "serialized_counts", Fn: func(ctx context.Context, ref models.PostReference) (*models.CrawlResult, error) {
			return c.extractSerialized(ctx, b, ref)
		}},
		chain.Func{StrategyName: "dom", Fn: func(ctx context.Context, ref models.PostReference) (*models.CrawlResult, error) {
			return c.extractDOM(ctx, b, ref)
		}},
	}, chain.WithEarlyStop(false)) // shares often only show in the rendered footer
	return ch.Run(ctx, ref)
}

var (
	reactionCountRe = regexp.MustCompile(`"reaction_count":\{"count":(\d+)`)
	shareCountRe    = regexp.MustCompile(`"share_count":\{"count":(\d+)`)
	commentCountRe  = regexp.MustCompile(`"comment_count":\{"total_count":(\d+)`)
	ownerNameRe     = regexp.MustCompile(`"owner":\{[^}]*?"name":"([^"]+)"`)
	removedRe       = regexp.MustCompile(`content (?:isn't available|not found)|此內容目前無法顯示`)
)

// extractSerialized reads the counts Facebook serializes into the mobile
// page's inline data.
func (c *Crawler) extractSerialized(ctx context.Context, b crawler.Browser, ref models.PostReference) (*models.CrawlResult, error) {
	html, err := b.HTML(ctx)
	if err != nil {
		return nil, err
	}
	if isLoginRedirect(html) {
		return nil, chain.NewCrawlError(models.ErrKindSessionExpired, "redirected to login", chain.ErrSessionExpired)
	}
	if removedRe.MatchString(html) {
		return nil, chain.NewCrawlError(models.ErrKindNotFound, "post removed or restricted", chain.ErrPostNotFound)
	}

	result := models.NewResult(ref)
	if m := reactionCountRe.FindStringSubmatch(html); m != nil {
		result.Likes = numfmt.Parse(m[1])
	}
	if m := shareCountRe.FindStringSubmatch(html); m != nil {
		result.Shares = models.IntPtr(numfmt.Parse(m[1]))
	}
	if m := commentCountRe.FindStringSubmatch(html); m != nil {
		result.Comments = numfmt.Parse(m[1])
	}
	if m := ownerNameRe.FindStringSubmatch(html); m != nil {
		result.Author = m[1]
	}
	if result.Empty() {
		return nil, nil
	}
	return result, nil
}

// extractDOM reads the rendered mobile footer. The labels arrive localized
// ("3 則留言", "5 次分享"), which the numeric parser strips down.
func (c *Crawler) extractDOM(ctx context.Context, b crawler.Browser, ref models.PostReference) (*models.CrawlResult, error) {
	_ = b.ScrollBottom(500 * time.Millisecond)
	html, err := b.HTML(ctx)
	if err != nil {
		return nil, err
	}
	doc, err := extract.ParseDocument(html)
	if err != nil {
		return nil, err
	}

	result := models.NewResult(ref)
	extract.ApplyRules(doc, []extract.Rule{
		{Field: extract.FieldAuthor, Selectors: []string{"header h3 a", "h3 strong a", "[data-ft] h3 a"}},
		{Field: extract.FieldLikes, Selectors: []string{
			"div[aria-label*='reaction'] span",
			"[data-sigil='reactions-sentence'] span",
			"div._1g06",
		}},
	}, result)

	// Comment and share totals live in footer text like "12 則留言 · 3 次分享".
	footer := doc.Find("div[data-sigil='comments-token'], span._1j-c, div._1fnt").First().Text()
	if footer == "" {
		footer = doc.Find("footer").First().Text()
	}
	if result.Comments == 0 {
		result.Comments = footerCount(footer, []string{"則留言", "comments", "comment"})
	}
	if result.Shares == nil {
		if n := footerCount(footer, []string{"次分享", "shares", "share"}); n > 0 {
			result.Shares = models.IntPtr(n)
		}
	}
	if result.Empty() {
		return nil, nil
	}
	return result, nil
}

var footerNumRe = regexp.MustCompile(`[\d.,]+[KMB万億]?`)

// footerCount pulls the number attached to one of the labels out of a
// footer sentence like "12 則留言 · 3 次分享": the nearest number before
// the label belongs to it.
func footerCount(footer string, labels []string) int {
	for _, label := range labels {
		idx := strings.Index(footer, label)
		if idx < 0 {
			continue
		}
		nums := footerNumRe.FindAllString(footer[:idx], -1)
		for i := len(nums) - 1; i >= 0; i-- {
			if n := numfmt.Parse(nums[i]); n > 0 {
				return n
			}
		}
	}
	return 0
}

// isLoginRedirect detects the mobile login interstitial.
func isLoginRedirect(html string) bool {
	return strings.Contains(html, "login_form") || strings.Contains(html, "m_login_email")
}
