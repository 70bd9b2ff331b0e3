// Package dcard crawls Dcard posts. Dcard sits behind an enterprise
// anti-bot gateway, so every crawl first waits the interstitial out, then
// calls the forum's own JSON API from inside the page where the requests
// carry the browser's cleared state automatically.
package dcard

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/campaignpulse/pulse/internal/chain"
	"github.com/campaignpulse/pulse/internal/crawler"
	"github.com/campaignpulse/pulse/internal/extract"
	"github.com/campaignpulse/pulse/internal/postid"
	"github.com/campaignpulse/pulse/pkg/models"
)

const (
	apiBase         = "https://www.dcard.tw/service/api/v2/posts/"
	apiFallbackBase = "https://www.dcard.tw/_api/posts/"
	commentLimit    = 10
)

// contentMarkers prove the real page is behind the interstitial.
var contentMarkers = []string{"dcard", "__NEXT_DATA__", "likeCount"}

// Crawler implements crawler.PlatformCrawler for Dcard.
type Crawler struct {
	factory crawler.BrowserFactory
}

// New creates the Dcard crawler.
func New(factory crawler.BrowserFactory) *Crawler {
	return &Crawler{factory: factory}
}

func (c *Crawler) Platform() models.Platform { return models.PlatformDcard }

// Crawl fetches metrics for one Dcard post.
func (c *Crawler) Crawl(ctx context.Context, ref models.PostReference) *models.CrawlResult {
	if ref.PostID == "" {
		if id, ok := postid.Extract(ref.URL, models.PlatformDcard); ok {
			ref.PostID = id
		} else {
			result := models.NewResult(ref)
			result.SetError(models.ErrKindValidation, "cannot determine post ID from URL")
			return result
		}
	}

	b, err := c.factory(ctx, models.PlatformDcard, false)
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
	if err := b.WaitForGatewayChallenge(ctx, contentMarkers); err != nil {
		result := models.NewResult(ref)
		result.SetError(models.ErrKindChallengeRequired, err.Error())
		return result
	}

	ch := chain.New(models.PlatformDcard, []chain.Strategy{
		chain.Func{StrategyName: "api", Fn: func(ctx context.Context, ref models.PostReference) (*models.CrawlResult, error) {
			return c.extractAPI(ctx, b, ref)
		}},
		chain.Func{StrategyName: "next_data", Fn: func(ctx context.Context, ref models.PostReference) (*models.CrawlResult, error) {
			return c.extractNextData(ctx, b, ref)
		}},
		chain.Func{StrategyName: "dom", Fn: func(ctx context.Context, ref models.PostReference) (*models.CrawlResult, error) {
			return c.extractDOM(ctx, b, ref)
		}},
	})
	result := ch.Run(ctx, ref)
	result.CapComments(commentLimit)
	return result
}

// apiPost is the subset of the post payload the report needs.
type apiPost struct {
	Title        string `json:"title"`
	Excerpt      string `json:"excerpt"`
	LikeCount    int    `json:"likeCount"`
	CommentCount int    `json:"commentCount"`
	School       string `json:"school"`
	Department   string `json:"department"`
	WithNickname bool   `json:"withNickname"`
	Media        []struct {
		URL string `json:"url"`
	} `json:"media"`
}

type apiComment struct {
	Content    string `json:"content"`
	LikeCount  int    `json:"likeCount"`
	School     string `json:"school"`
	Department string `json:"department"`
	Hidden     bool   `json:"hidden"`
}

// extractAPI calls Dcard's JSON API from inside the page. Running the fetch
// in-page keeps the gateway clearance cookies and TLS fingerprint the
// interstitial just approved.
func (c *Crawler) extractAPI(ctx context.Context, b crawler.Browser, ref models.PostReference) (*models.CrawlResult, error) {
	raw, status, err := fetchInPage(ctx, b, apiBase+ref.PostID)
	if err != nil || status == 403 {
		// The service path is occasionally blocked while the legacy one
		// still answers.
		raw, status, err = fetchInPage(ctx, b, apiFallbackBase+ref.PostID)
	}
	if err != nil {
		return nil, err
	}
	switch {
	case status == 404:
		return nil, chain.NewCrawlError(models.ErrKindNotFound, "post not found", chain.ErrPostNotFound)
	case status == 429:
		return nil, chain.NewCrawlError(models.ErrKindRateLimited, "API rate limited", nil)
	case status >= 400:
		// Gateway blocks and 5xx answers clear up on a later pass, so keep
		// the failure in retryable territory.
		return nil, chain.NewCrawlError(models.ErrKindTransientNetwork, fmt.Sprintf("API returned HTTP %d", status), nil)
	}

	var post apiPost
	if err := json.Unmarshal([]byte(raw), &post); err != nil {
		return nil, fmt.Errorf("failed to decode post payload: %w", err)
	}

	result := models.NewResult(ref)
	result.Title = post.Title
	result.Content = post.Excerpt
	result.Likes = post.LikeCount
	result.Comments = post.CommentCount
	result.Author = authorLabel(post.School, post.Department)
	if len(post.Media) > 0 {
		result.ThumbnailURL = post.Media[0].URL
	}

	c.fetchComments(ctx, b, ref.PostID, result)
	return result, nil
}

// fetchComments samples the first comments. Best-effort: a comment failure
// never spoils the metrics already collected.
func (c *Crawler) fetchComments(ctx context.Context, b crawler.Browser, postID string, result *models.CrawlResult) {
	url := fmt.Sprintf("%s%s/comments?limit=%d", apiBase, postID, commentLimit)
	raw, status, err := fetchInPage(ctx, b, url)
	if err != nil || status >= 400 {
		return
	}
	var comments []apiComment
	if err := json.Unmarshal([]byte(raw), &comments); err != nil {
		return
	}
	for _, cm := range comments {
		if cm.Hidden || cm.Content == "" {
			continue
		}
		result.CommentsList = append(result.CommentsList, models.Comment{
			Author: authorLabel(cm.School, cm.Department),
			Text:   cm.Content,
			Likes:  models.IntPtr(cm.LikeCount),
		})
	}
}

// fetchInPage runs a same-origin fetch inside the page and returns the body
// and HTTP status.
func fetchInPage(ctx context.Context, b crawler.Browser, url string) (body string, status int, err error) {
	expr := fmt.Sprintf(`(async () => {
		const res = await fetch(%q, { credentials: 'include', headers: { accept: 'application/json' } });
		const text = res.ok ? await res.text() : '';
		return JSON.stringify({ status: res.status, body: text });
	})()`, url)

	var wrapped string
	if err := b.Evaluate(ctx, expr, &wrapped); err != nil {
		return "", 0, fmt.Errorf("in-page fetch failed: %w", err)
	}
	var envelope struct {
		Status int    `json:"status"`
		Body   string `json:"body"`
	}
	if err := json.Unmarshal([]byte(wrapped), &envelope); err != nil {
		return "", 0, fmt.Errorf("bad fetch envelope: %w", err)
	}
	return envelope.Body, envelope.Status, nil
}

// authorLabel mirrors how the forum displays posters: department over
// school, anonymous otherwise.
func authorLabel(school, department string) string {
	switch {
	case department != "":
		return department
	case school != "":
		return school
	}
	return "匿名"
}

// extractNextData reads the server-rendered page state.
func (c *Crawler) extractNextData(ctx context.Context, b crawler.Browser, ref models.PostReference) (*models.CrawlResult, error) {
	html, err := b.HTML(ctx)
	if err != nil {
		return nil, err
	}
	state, err := extract.ExtractState(html, extract.PatternNextData)
	if err != nil {
		return nil, err
	}

	result := models.NewResult(ref)
	base := "props.pageProps.post"
	if title, ok := extract.WalkString(state, base+".title"); ok {
		result.Title = title
	}
	if n, ok := extract.WalkInt(state, base+".likeCount"); ok {
		result.Likes = n
	}
	if n, ok := extract.WalkInt(state, base+".commentCount"); ok {
		result.Comments = n
	}
	school, _ := extract.WalkString(state, base+".school")
	department, _ := extract.WalkString(state, base+".department")
	if school != "" || department != "" {
		result.Author = authorLabel(school, department)
	}
	if result.Title == "" && result.Likes == 0 && result.Comments == 0 && result.Author == "" {
		return nil, fmt.Errorf("page state carries no post payload")
	}
	return result, nil
}

// extractDOM is the last-ditch selector pass over the rendered article.
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
		{Field: extract.FieldTitle, Selectors: []string{"article h1", "h1"}},
		{Field: extract.FieldAuthor, Selectors: []string{"article header a[href*='/@']", "div[class*='PostAuthor']"}},
		{Field: extract.FieldLikes, Selectors: []string{"div[class*='like'] span", "button[aria-label*='心情'] span"}},
		{Field: extract.FieldComments, Selectors: []string{"div[class*='comment'] span", "button[aria-label*='回應'] span"}},
	}, result)
	result.Content = extract.ContentMarkdown(doc, []string{"article div[class*='Post_content']", "article"})
	if result.Empty() {
		return nil, nil
	}
	return result, nil
}
