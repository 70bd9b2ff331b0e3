package xiaohongshu

import (
	"context"
	"strings"
	"testing"

	"github.com/campaignpulse/pulse/internal/crawler/crawlertest"
	"github.com/campaignpulse/pulse/pkg/models"
)

const noteID = "65f1c2d3000000001203abcd"

func ref() models.PostReference {
	return models.PostReference{
		URL:      "https://www.xiaohongshu.com/explore/" + noteID,
		Platform: models.PlatformXiaohongshu,
		PostID:   noteID,
	}
}

func loggedIn() map[string]string {
	return map[string]string{sessionCookie: strings.Repeat("x", 64)}
}

func statePage() string {
	return `<html><script>window.__INITIAL_STATE__={"note":{"noteDetailMap":{"` + noteID + `":{"note":{` +
		`"title":"春日穿搭","desc":"分享一下","user":{"nickname":"小美"},` +
		`"interactInfo":{"likedCount":"2.6万","commentCount":"482","collectedCount":"8921","shareCount":120}` +
		`}}}}};</script></html>`
}

func TestCrawlFromInitialState(t *testing.T) {
	fb := &crawlertest.FakeBrowser{Page: statePage(), Cookies: loggedIn()}
	result := New(crawlertest.Factory(fb)).Crawl(context.Background(), ref())

	if result.Error != "" {
		t.Fatalf("unexpected error: %s", result.Error)
	}
	if result.Author != "小美" || result.Title != "春日穿搭" {
		t.Fatalf("result = %+v", result)
	}
	if result.Likes != 26000 {
		t.Errorf("likes = %d", result.Likes)
	}
	if result.Favorites != 8921 {
		t.Errorf("favorites = %d", result.Favorites)
	}
	if result.Shares == nil || *result.Shares != 120 {
		t.Errorf("shares = %v", result.Shares)
	}
	if result.Comments != 482 {
		t.Errorf("comments = %d", result.Comments)
	}
}

func TestCrawlDOMFallback(t *testing.T) {
	page := `<html><body>
		<div class="author-container"><span class="username">小美</span></div>
		<div class="engage-bar">
			<span class="like-wrapper"><span class="count">1.2万</span></span>
			<span class="collect-wrapper"><span class="count">3456</span></span>
			<span class="chat-wrapper"><span class="count">789</span></span>
		</div>
	</body></html>`
	fb := &crawlertest.FakeBrowser{Page: page, Cookies: loggedIn()}
	result := New(crawlertest.Factory(fb)).Crawl(context.Background(), ref())

	if result.Error != "" {
		t.Fatalf("unexpected error: %s", result.Error)
	}
	if result.Likes != 12000 || result.Favorites != 3456 || result.Comments != 789 {
		t.Fatalf("metrics = %d/%d/%d", result.Likes, result.Favorites, result.Comments)
	}
}

func TestCrawlRestrictedWithoutSession(t *testing.T) {
	fb := &crawlertest.FakeBrowser{Page: statePage(), RestrictedEnv: true}
	result := New(crawlertest.Factory(fb)).Crawl(context.Background(), ref())
	if result.ErrorKind != models.ErrKindEnvironmentRestrict {
		t.Fatalf("kind = %s", result.ErrorKind)
	}
}

func TestStateCountFormats(t *testing.T) {
	state := map[string]interface{}{
		"str": "2.6万",
		"num": float64(123),
	}
	if got := stateCount(state, "str"); got != 26000 {
		t.Errorf("str = %d", got)
	}
	if got := stateCount(state, "num"); got != 123 {
		t.Errorf("num = %d", got)
	}
	if got := stateCount(state, "missing"); got != 0 {
		t.Errorf("missing = %d", got)
	}
}
