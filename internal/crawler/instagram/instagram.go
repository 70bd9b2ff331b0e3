// Package instagram crawls Instagram post metrics. Three data sources, in
// falling order of reliability: the _sharedData blob old page builds still
// ship, a scoped regex pass over the serialized React props near the
// shortcode, and the in-page GraphQL endpoint as the authenticated path.
package instagram

import (
	"context"
	"encoding/json"
	"fmt"
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

const (
	sessionCookie = "sessionid"
	// graphQLQueryHash identifies the public shortcode_media query.
	graphQLQueryHash = "b3055c01b4b222b8a47dc12b090e4e64"
	// scopeRadius bounds the regex window around the shortcode so counts
	// from neighboring feed entries never bleed in.
	scopeRadius = 5000
)

// Crawler implements crawler.PlatformCrawler for Instagram.
type Crawler struct {
	factory crawler.BrowserFactory
}

// New creates the Instagram crawler.
func New(factory crawler.BrowserFactory) *Crawler {
	return &Crawler{factory: factory}
}

func (c *Crawler) Platform() models.Platform { return models.PlatformInstagram }

// Crawl fetches metrics for one post.
func (c *Crawler) Crawl(ctx context.Context, ref models.PostReference) *models.CrawlResult {
	if ref.PostID == "" {
		if id, ok := postid.Extract(ref.URL, models.PlatformInstagram); ok {
			ref.PostID = id
		} else {
			result := models.NewResult(ref)
			result.SetError(models.ErrKindValidation, "cannot determine shortcode from URL")
			return result
		}
	}

	b, err := c.factory(ctx, models.PlatformInstagram, false)
	if err != nil {
		result := models.NewResult(ref)
		result.SetError(models.ErrKindUnknown, err.Error())
		return result
	}
	defer b.Close()

	if err := b.Navigate(ctx, ref.URL); err != nil {
		result := models.NewResult(ref)
		result.SetError(models.ErrKindTransientNetwork, err.Error())
		return result
	}

	ch := chain.New(models.PlatformInstagram, []chain.Strategy{
		chain.Func{StrategyName: "shared_data", Fn: func(ctx context.Context, ref models.PostReference) (*models.CrawlResult, error) {
			return c.extractSharedData(ctx, b, ref)
		}},
		chain.Func{StrategyName: "scoped_regex", Fn: func(ctx context.Context, ref models.PostReference) (*models.CrawlResult, error) {
			return c.extractScopedRegex(ctx, b, ref)
		}},
		chain.Func{StrategyName: "graphql", Fn: func(ctx context.Context, ref models.PostReference) (*models.CrawlResult, error) {
			return c.extractGraphQL(ctx, b, ref)
		}},
		chain.Func{StrategyName: "dom", Fn: func(ctx context.Context, ref models.PostReference) (*models.CrawlResult, error) {
			return c.extractDOM(ctx, b, ref)
		}},
	})
	return ch.Run(ctx, ref)
}

// mediaResult maps a shortcode_media node into a result.
func mediaResult(ref models.PostReference, media map[string]interface{}) *models.CrawlResult {
	result := models.NewResult(ref)
	if author, ok := extract.WalkString(media, "owner.username"); ok {
		result.Author = author
	}
	if n, ok := extract.WalkInt(media, "edge_media_preview_like.count"); ok {
		result.Likes = n
	}
	if n, ok := extract.WalkInt(media, "edge_liked_by.count"); ok && result.Likes == 0 {
		result.Likes = n
	}
	if n, ok := extract.WalkInt(media, "edge_media_to_parent_comment.count"); ok {
		result.Comments = n
	}
	if n, ok := extract.WalkInt(media, "edge_media_to_comment.count"); ok && result.Comments == 0 {
		result.Comments = n
	}
	if n, ok := extract.WalkInt(media, "video_view_count"); ok {
		result.Views = models.IntPtr(n)
	}
	if caption, ok := extract.WalkString(media, "edge_media_to_caption.edges.0.node.text"); ok {
		result.Content = caption
	}
	if thumb, ok := extract.WalkString(media, "display_url"); ok {
		result.ThumbnailURL = thumb
	}
	return result
}

// extractSharedData reads the legacy window._sharedData payload.
func (c *Crawler) extractSharedData(ctx context.Context, b crawler.Browser, ref models.PostReference) (*models.CrawlResult, error) {
	html, err := b.HTML(ctx)
	if err != nil {
		return nil, err
	}
	if isLoginWall(html) {
		return nil, chain.NewCrawlError(models.ErrKindSessionExpired, "login wall served", chain.ErrSessionExpired)
	}
	state, err := extract.ExtractState(html, extract.PatternSharedData)
	if err != nil {
		return nil, err
	}
	media, ok := extract.Walk(state, "entry_data.PostPage.0.graphql.shortcode_media")
	if !ok {
		return nil, fmt.Errorf("shortcode_media missing from shared data")
	}
	m, ok := media.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("unexpected shortcode_media shape")
	}
	return mediaResult(ref, m), nil
}

var (
	likeCountRe    = regexp.MustCompile(`"edge_media_preview_like":\{"count":(\d+)`)
	commentCountRe = regexp.MustCompile(`"edge_media_to_parent_comment":\{"count":(\d+)`)
	ownerRe        = regexp.MustCompile(`"owner":\{[^}]*?"username":"([^"]+)"`)
	viewCountRe    = regexp.MustCompile(`"video_view_count":(\d+)`)
)

// extractScopedRegex searches the serialized props inside a window around
// the shortcode.
func (c *Crawler) extractScopedRegex(ctx context.Context, b crawler.Browser, ref models.PostReference) (*models.CrawlResult, error) {
	html, err := b.HTML(ctx)
	if err != nil {
		return nil, err
	}
	window, ok := extract.ScopedSearch(html, ref.PostID, scopeRadius)
	if !ok {
		return nil, fmt.Errorf("shortcode %s not present in page", ref.PostID)
	}

	result := models.NewResult(ref)
	if m := likeCountRe.FindStringSubmatch(window); m != nil {
		result.Likes = numfmt.Parse(m[1])
	}
	if m := commentCountRe.FindStringSubmatch(window); m != nil {
		result.Comments = numfmt.Parse(m[1])
	}
	if m := ownerRe.FindStringSubmatch(window); m != nil {
		result.Author = m[1]
	}
	if m := viewCountRe.FindStringSubmatch(window); m != nil {
		result.Views = models.IntPtr(numfmt.Parse(m[1]))
	}
	if result.Author == "" && result.Likes == 0 && result.Comments == 0 {
		return nil, nil
	}
	return result, nil
}

// extractGraphQL calls the public GraphQL query from inside the page, where
// the platform's own cookies and headers ride along.
func (c *Crawler) extractGraphQL(ctx context.Context, b crawler.Browser, ref models.PostReference) (*models.CrawlResult, error) {
	if b.CookieValue(sessionCookie) == "" {
		return nil, chain.NewCrawlError(models.ErrKindSessionExpired, "no Instagram session cookie", chain.ErrSessionExpired)
	}

	url := fmt.Sprintf(
		`https://www.instagram.com/graphql/query/?query_hash=%s&variables={"shortcode":%q}`,
		graphQLQueryHash, ref.PostID)
	expr := fmt.Sprintf(`(async () => {
		const res = await fetch(%q, { credentials: 'include', headers: { 'x-requested-with': 'XMLHttpRequest' } });
		if (!res.ok) { return JSON.stringify({ __status: res.status }); }
		return await res.text();
	})()`, url)

	var raw string
	if err := b.Evaluate(ctx, expr, &raw); err != nil {
		return nil, fmt.Errorf("graphql fetch failed: %w", err)
	}

	var payload map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil, fmt.Errorf("bad graphql payload: %w", err)
	}
	if status, ok := extract.WalkInt(payload, "__status"); ok {
		if status == 429 {
			return nil, chain.NewCrawlError(models.ErrKindRateLimited, "graphql rate limited", nil)
		}
		return nil, fmt.Errorf("graphql returned HTTP %d", status)
	}
	media, ok := extract.Walk(payload, "data.shortcode_media")
	if !ok {
		return nil, fmt.Errorf("graphql response missing media")
	}
	m, ok := media.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("unexpected graphql media shape")
	}
	return mediaResult(ref, m), nil
}

// extractDOM scrapes the rendered post page. Counts here are already
// display-formatted ("1,234 likes").
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
		{Field: extract.FieldAuthor, Selectors: []string{"header a[href^='/'][role='link']", "header h2 a"}},
		{Field: extract.FieldLikes, Selectors: []string{"section span[role='button'] span", "section a[href$='/liked_by/'] span"}},
		{Field: extract.FieldThumbnail, Selectors: []string{"article img"}, Attr: "src"},
	}, result)
	if result.Empty() {
		return nil, nil
	}
	return result, nil
}

var loginWallRe = regexp.MustCompile(`loginForm|"is_logged_in":false`)

// isLoginWall detects the logged-out interstitial. A page that still
// carries the media payload is usable even when the wall banner renders.
func isLoginWall(html string) bool {
	return loginWallRe.MatchString(html) && !strings.Contains(html, "shortcode_media")
}
