package youtube

import (
	"context"
	"testing"

	"github.com/campaignpulse/pulse/internal/crawler/crawlertest"
	"github.com/campaignpulse/pulse/pkg/models"
)

func ref() models.PostReference {
	return models.PostReference{
		URL:      "https://www.youtube.com/watch?v=dQw4w9WgXcQ",
		Platform: models.PlatformYouTube,
		PostID:   "dQw4w9WgXcQ",
	}
}

func watchPage() string {
	return `<html><script>var ytInitialPlayerResponse = {"playabilityStatus":{"status":"OK"},` +
		`"videoDetails":{"title":"Launch video","author":"BrandChannel","viewCount":"152345"}};</script>` +
		`<script>var ytInitialData = {"x":{"likeCount":"4821","commentCount":{"simpleText":"1,203"}}};</script></html>`
}

func TestCrawlFromEmbeddedState(t *testing.T) {
	fb := &crawlertest.FakeBrowser{Page: watchPage()}
	result := New(crawlertest.Factory(fb)).Crawl(context.Background(), ref())

	if result.Error != "" {
		t.Fatalf("unexpected error: %s", result.Error)
	}
	if result.Author != "BrandChannel" || result.Title != "Launch video" {
		t.Fatalf("result = %+v", result)
	}
	if result.Views == nil || *result.Views != 152345 {
		t.Fatalf("views = %v", result.Views)
	}
	if result.Likes != 4821 {
		t.Errorf("likes = %d", result.Likes)
	}
	if result.Comments != 1203 {
		t.Errorf("comments = %d", result.Comments)
	}
	if result.Favorites != 0 {
		t.Errorf("favorites must stay zero for video platform")
	}
}

func TestCrawlUnavailableVideo(t *testing.T) {
	page := `<script>var ytInitialPlayerResponse = {"playabilityStatus":{"status":"ERROR","reason":"Video unavailable"}};</script>`
	fb := &crawlertest.FakeBrowser{Page: page}
	result := New(crawlertest.Factory(fb)).Crawl(context.Background(), ref())
	if result.ErrorKind != models.ErrKindNotFound {
		t.Fatalf("kind = %s (%s)", result.ErrorKind, result.Error)
	}
}

func TestCrawlDOMFallback(t *testing.T) {
	page := `<html><body>
		<h1 class="title">Fallback title</h1>
		<div id="owner-name"><a>SomeChannel</a></div>
		<span class="view-count">152,345 views</span>
	</body></html>`
	fb := &crawlertest.FakeBrowser{Page: page}
	result := New(crawlertest.Factory(fb)).Crawl(context.Background(), ref())

	if result.Author != "SomeChannel" {
		t.Fatalf("author = %q", result.Author)
	}
	if result.Views == nil || *result.Views != 152345 {
		t.Fatalf("views = %v", result.Views)
	}
}

func TestPageRegexNoCounts(t *testing.T) {
	c := New(crawlertest.Factory(&crawlertest.FakeBrowser{Page: "<html></html>"}))
	fb := &crawlertest.FakeBrowser{Page: "<html>nothing here</html>"}
	partial, err := c.extractPageRegex(context.Background(), fb, ref())
	if err != nil || partial != nil {
		t.Fatalf("want nil/nil for a page without counts, got %v, %v", partial, err)
	}
}
