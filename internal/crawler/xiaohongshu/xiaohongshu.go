// Package xiaohongshu crawls Xiaohongshu (RED) notes. The detail page ships
// its data in window.__INITIAL_STATE__, with counts rendered in the
// Chinese abbreviated format ("2.6万"), and requires a logged-in
// web_session cookie; without one the page serves a QR login wall.
package xiaohongshu

import (
	"context"
	"fmt"
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
	sessionCookie = "web_session"
	qrSelector    = ".login-container .qrcode, .qrcode-img"
)

// Crawler implements crawler.PlatformCrawler for Xiaohongshu.
type Crawler struct {
	factory crawler.BrowserFactory
}

// New creates the Xiaohongshu crawler.
func New(factory crawler.BrowserFactory) *Crawler {
	return &Crawler{factory: factory}
}

func (c *Crawler) Platform() models.Platform { return models.PlatformXiaohongshu }

// Crawl fetches metrics for one note.
func (c *Crawler) Crawl(ctx context.Context, ref models.PostReference) *models.CrawlResult {
	if ref.PostID == "" {
		if id, ok := postid.Extract(ref.URL, models.PlatformXiaohongshu); ok {
			ref.PostID = id
		}
	}

	b, err := c.factory(ctx, models.PlatformXiaohongshu, false)
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

	if err := c.ensureLoggedIn(ctx, b); err != nil {
		result := models.NewResult(ref)
		result.SetError(chain.Classify(err), err.Error())
		return result
	}

	ch := chain.New(models.PlatformXiaohongshu, []chain.Strategy{
		chain.Func{StrategyName: "initial_state", Fn: func(ctx context.Context, ref models.PostReference) (*models.CrawlResult, error) {
			return c.extractInitialState(ctx, b, ref)
		}},
		chain.Func{StrategyName: "dom", Fn: func(ctx context.Context, ref models.PostReference) (*models.CrawlResult, error) {
			return c.extractDOM(ctx, b, ref)
		}},
	}, chain.WithEarlyStop(false)) // the DOM pass adds favorites the state blob sometimes omits
	result := ch.Run(ctx, ref)
	result.CapComments(10)
	return result
}

// ensureLoggedIn verifies the session cookie is live. With no valid cookie
// the page shows a QR wall: interactive environments hand control to the
// operator for a scan, restricted ones fail fast.
func (c *Crawler) ensureLoggedIn(ctx context.Context, b crawler.Browser) error {
	if len(b.CookieValue(sessionCookie)) >= 50 {
		return nil
	}
	if b.Restricted() {
		return chain.NewCrawlError(models.ErrKindEnvironmentRestrict,
			"login required but environment cannot show a QR code", chain.ErrEnvRestricted)
	}
	if err := b.WaitForScanLogin(ctx, sessionCookie, qrSelector); err != nil {
		return chain.NewCrawlError(models.ErrKindSessionExpired, err.Error(), chain.ErrSessionExpired)
	}
	return nil
}

// extractInitialState walks the note detail map embedded in the page.
func (c *Crawler) extractInitialState(ctx context.Context, b crawler.Browser, ref models.PostReference) (*models.CrawlResult, error) {
	html, err := b.HTML(ctx)
	if err != nil {
		return nil, err
	}
	state, err := extract.ExtractState(html, extract.PatternInitialState)
	if err != nil {
		return nil, err
	}

	base := fmt.Sprintf("note.noteDetailMap.%s.note", ref.PostID)
	if _, ok := extract.Walk(state, base); !ok {
		return nil, fmt.Errorf("note %s missing from page state", ref.PostID)
	}

	result := models.NewResult(ref)
	if title, ok := extract.WalkString(state, base+".title"); ok {
		result.Title = title
	}
	if author, ok := extract.WalkString(state, base+".user.nickname"); ok {
		result.Author = author
	}
	// Interaction counts arrive as strings in the abbreviated format.
	result.Likes = stateCount(state, base+".interactInfo.likedCount")
	result.Comments = stateCount(state, base+".interactInfo.commentCount")
	result.Favorites = stateCount(state, base+".interactInfo.collectedCount")
	if n := stateCount(state, base+".interactInfo.shareCount"); n > 0 {
		result.Shares = models.IntPtr(n)
	}
	if thumb, ok := extract.WalkString(state, base+".imageList.0.urlDefault"); ok {
		result.ThumbnailURL = thumb
	}
	if desc, ok := extract.WalkString(state, base+".desc"); ok {
		result.Content = desc
	}
	return result, nil
}

// stateCount reads a count that may be a JSON number or an abbreviated
// string.
func stateCount(state map[string]interface{}, path string) int {
	if n, ok := extract.WalkInt(state, path); ok {
		return n
	}
	if s, ok := extract.WalkString(state, path); ok {
		return numfmt.Parse(s)
	}
	return 0
}

// extractDOM reads the rendered engagement bar. The count spans sit next to
// their icon wrappers; labels like "点赞" leak into the text on some
// variants, which the numeric parser already tolerates.
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
	clean := func(s string) string {
		return strings.NewReplacer("点赞", "", "收藏", "", "评论", "", "分享", "").Replace(s)
	}
	extract.ApplyRules(doc, []extract.Rule{
		{Field: extract.FieldAuthor, Selectors: []string{".author-container .username", ".info .name"}},
		{Field: extract.FieldTitle, Selectors: []string{"#detail-title", ".note-content .title"}},
		{Field: extract.FieldLikes, Selectors: []string{".like-wrapper .count", ".engage-bar .like-wrapper span.count"}, Clean: clean},
		{Field: extract.FieldFavorites, Selectors: []string{".collect-wrapper .count", ".engage-bar .collect-wrapper span.count"}, Clean: clean},
		{Field: extract.FieldComments, Selectors: []string{".chat-wrapper .count", ".engage-bar .chat-wrapper span.count"}, Clean: clean},
	}, result)

	result.CommentsList = extract.CollectComments(doc,
		".comment-item", ".author .name", ".note-text", ".like .count", 10)
	if result.Content == "" {
		result.Content = extract.ContentMarkdown(doc, []string{"#detail-desc", ".note-content .desc"})
	}
	if result.Empty() {
		return nil, nil
	}
	return result, nil
}
