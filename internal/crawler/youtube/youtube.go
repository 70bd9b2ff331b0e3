// Package youtube crawls YouTube video metrics. The watch page embeds
// ytInitialPlayerResponse with the video details; the like count only lives
// in the rendered action bar, so a DOM pass backs the state blob up.
package youtube

import (
	"context"
	"regexp"
	"time"

	"github.com/campaignpulse/pulse/internal/chain"
	"github.com/campaignpulse/pulse/internal/crawler"
	"github.com/campaignpulse/pulse/internal/extract"
	"github.com/campaignpulse/pulse/internal/numfmt"
	"github.com/campaignpulse/pulse/internal/postid"
	"github.com/campaignpulse/pulse/pkg/models"
)

// Crawler implements crawler.PlatformCrawler for YouTube.
type Crawler struct {
	factory crawler.BrowserFactory
}

// New creates the YouTube crawler.
func New(factory crawler.BrowserFactory) *Crawler {
	return &Crawler{factory: factory}
}

func (c *Crawler) Platform() models.Platform { return models.PlatformYouTube }

// Crawl fetches metrics for one video.
func (c *Crawler) Crawl(ctx context.Context, ref models.PostReference) *models.CrawlResult {
	if ref.PostID == "" {
		if id, ok := postid.Extract(ref.URL, models.PlatformYouTube); ok {
			ref.PostID = id
		}
	}

	b, err := c.factory(ctx, models.PlatformYouTube, false)
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

	ch := chain.New(models.PlatformYouTube, []chain.Strategy{
		chain.Func{StrategyName: "player_response", Fn: func(ctx context.Context, ref models.PostReference) (*models.CrawlResult, error) {
			return c.extractPlayerResponse(ctx, b, ref)
		}},
		chain.Func{StrategyName: "page_regex", Fn: func(ctx context.Context, ref models.PostReference) (*models.CrawlResult, error) {
			return c.extractPageRegex(ctx, b, ref)
		}},
		chain.Func{StrategyName: "dom", Fn: func(ctx context.Context, ref models.PostReference) (*models.CrawlResult, error) {
			return c.extractDOM(ctx, b, ref)
		}},
	}, chain.WithEarlyStop(false)) // likes come from later layers than views
	return ch.Run(ctx, ref)
}

// extractPlayerResponse reads the player config blob: title, channel and
// exact view count. Unavailable videos carry a playability error instead of
// video details, which is the reliable deleted-video signal.
func (c *Crawler) extractPlayerResponse(ctx context.Context, b crawler.Browser, ref models.PostReference) (*models.CrawlResult, error) {
	html, err := b.HTML(ctx)
	if err != nil {
		return nil, err
	}
	state, err := extract.ExtractState(html, extract.PatternYtPlayerResponse)
	if err != nil {
		return nil, err
	}

	if status, ok := extract.WalkString(state, "playabilityStatus.status"); ok && status == "ERROR" {
		return nil, chain.NewCrawlError(models.ErrKindNotFound, "video unavailable", chain.ErrPostNotFound)
	}

	result := models.NewResult(ref)
	if title, ok := extract.WalkString(state, "videoDetails.title"); ok {
		result.Title = title
	}
	if author, ok := extract.WalkString(state, "videoDetails.author"); ok {
		result.Author = author
	}
	if views, ok := extract.WalkString(state, "videoDetails.viewCount"); ok {
		result.Views = models.IntPtr(numfmt.Parse(views))
	}
	if thumb, ok := extract.WalkString(state, "videoDetails.thumbnail.thumbnails.0.url"); ok {
		result.ThumbnailURL = thumb
	}
	return result, nil
}

// Like and comment counts as they appear in the watch page's serialized UI
// data. The aria-label variant survives most layout experiments.
var (
	likeLabelRe    = regexp.MustCompile(`"label":"([\d,.]+[KMB万億]?)\s*(?:likes|個讚|人觉得)"?`)
	likeCountRe    = regexp.MustCompile(`"likeCount":"?(\d+)"?`)
	commentCountRe = regexp.MustCompile(`"commentCount":\{"simpleText":"([\d,.]+[KMB万億]?)"`)
)

// extractPageRegex digs counts out of the raw serialized page data.
func (c *Crawler) extractPageRegex(ctx context.Context, b crawler.Browser, ref models.PostReference) (*models.CrawlResult, error) {
	html, err := b.HTML(ctx)
	if err != nil {
		return nil, err
	}

	result := models.NewResult(ref)
	if m := likeCountRe.FindStringSubmatch(html); m != nil {
		result.Likes = numfmt.Parse(m[1])
	} else if m := likeLabelRe.FindStringSubmatch(html); m != nil {
		result.Likes = numfmt.Parse(m[1])
	}
	if m := commentCountRe.FindStringSubmatch(html); m != nil {
		result.Comments = numfmt.Parse(m[1])
	}
	if result.Likes == 0 && result.Comments == 0 {
		return nil, nil
	}
	return result, nil
}

// extractDOM reads the rendered watch page. Comment counts need a scroll:
// the comment section lazy-loads below the fold.
func (c *Crawler) extractDOM(ctx context.Context, b crawler.Browser, ref models.PostReference) (*models.CrawlResult, error) {
	_ = b.ScrollBottom(800 * time.Millisecond)
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
		{Field: extract.FieldTitle, Selectors: []string{"h1.ytd-watch-metadata yt-formatted-string", "h1.title"}},
		{Field: extract.FieldAuthor, Selectors: []string{"ytd-channel-name #text a", "#owner-name a"}},
		{Field: extract.FieldLikes, Selectors: []string{
			"like-button-view-model button",
			"ytd-toggle-button-renderer #text",
		}, Attr: "aria-label"},
		{Field: extract.FieldViews, Selectors: []string{"#info .view-count", "span.view-count"}},
		{Field: extract.FieldComments, Selectors: []string{"ytd-comments-header-renderer #count yt-formatted-string"}},
	}, result)
	if result.Empty() {
		return nil, nil
	}
	return result, nil
}
