package dcard

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/campaignpulse/pulse/internal/chain"
	"github.com/campaignpulse/pulse/internal/crawler/crawlertest"
	"github.com/campaignpulse/pulse/pkg/models"
)

func ref() models.PostReference {
	return models.PostReference{
		URL:      "https://www.dcard.tw/f/relationship/p/256688912",
		Platform: models.PlatformDcard,
		PostID:   "256688912",
	}
}

func envelope(t *testing.T, status int, body interface{}) string {
	t.Helper()
	raw := ""
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		raw = string(b)
	}
	env, err := json.Marshal(map[string]interface{}{"status": status, "body": raw})
	if err != nil {
		t.Fatal(err)
	}
	return string(env)
}

func TestCrawlViaAPI(t *testing.T) {
	fb := &crawlertest.FakeBrowser{
		EvalResults: map[string]interface{}{
			"/posts/256688912/comments": envelope(t, 200, []map[string]interface{}{
				{"content": "推", "likeCount": 3, "school": "某大學"},
				{"content": "hidden one", "hidden": true},
			}),
			"/posts/256688912": envelope(t, 200, map[string]interface{}{
				"title":        "分手後還能當朋友嗎",
				"excerpt":      "想聽聽大家的看法",
				"likeCount":    2627,
				"commentCount": 480,
				"school":       "某大學",
				"department":   "心理系",
			}),
		},
	}

	result := New(crawlertest.Factory(fb)).Crawl(context.Background(), ref())

	if result.Error != "" {
		t.Fatalf("unexpected error: %s", result.Error)
	}
	if result.Likes != 2627 || result.Comments != 480 {
		t.Fatalf("metrics = %d/%d", result.Likes, result.Comments)
	}
	if result.Author != "心理系" {
		t.Fatalf("author = %q", result.Author)
	}
	if len(result.CommentsList) != 1 || result.CommentsList[0].Text != "推" {
		t.Fatalf("comments = %+v", result.CommentsList)
	}
	if !fb.Closed {
		t.Fatal("browser not closed")
	}
}

func TestCrawlNotFound(t *testing.T) {
	fb := &crawlertest.FakeBrowser{
		EvalResults: map[string]interface{}{
			"/posts/256688912": envelope(t, 404, nil),
		},
	}
	result := New(crawlertest.Factory(fb)).Crawl(context.Background(), ref())
	if result.ErrorKind != models.ErrKindNotFound {
		t.Fatalf("kind = %s (%s)", result.ErrorKind, result.Error)
	}
}

func TestExtractAPIBlockedIsTransient(t *testing.T) {
	// A persistent 403 from both API paths should stay retryable, not
	// surface as an unknown failure.
	fb := &crawlertest.FakeBrowser{
		EvalResults: map[string]interface{}{
			"/posts/256688912": envelope(t, 403, nil),
		},
	}
	result, err := New(crawlertest.Factory(fb)).extractAPI(context.Background(), fb, ref())
	if result != nil {
		t.Fatalf("expected no result, got %+v", result)
	}
	var ce *chain.CrawlError
	if !errors.As(err, &ce) {
		t.Fatalf("err = %v", err)
	}
	if ce.Kind != models.ErrKindTransientNetwork {
		t.Fatalf("kind = %s", ce.Kind)
	}
}

func TestCrawlChallengeBlocked(t *testing.T) {
	fb := &crawlertest.FakeBrowser{ChallengeErr: errors.New("gateway challenge did not clear")}
	result := New(crawlertest.Factory(fb)).Crawl(context.Background(), ref())
	if result.ErrorKind != models.ErrKindChallengeRequired {
		t.Fatalf("kind = %s", result.ErrorKind)
	}
}

func TestCrawlFallsBackToNextData(t *testing.T) {
	fb := &crawlertest.FakeBrowser{
		Page: `<script id="__NEXT_DATA__" type="application/json">` +
			`{"props":{"pageProps":{"post":{"title":"fallback","likeCount":7,"commentCount":2,"school":"某大學"}}}}` +
			`</script>`,
	}
	// No scripted fetch results: the API strategy fails and the chain moves on.
	result := New(crawlertest.Factory(fb)).Crawl(context.Background(), ref())

	if result.Error != "" {
		t.Fatalf("unexpected error: %s", result.Error)
	}
	if result.Title != "fallback" || result.Likes != 7 || result.Comments != 2 {
		t.Fatalf("result = %+v", result)
	}
	if result.Author != "某大學" {
		t.Fatalf("author = %q", result.Author)
	}
}

func TestCrawlMissingPostID(t *testing.T) {
	r := models.PostReference{URL: "https://www.dcard.tw/f/relationship", Platform: models.PlatformDcard}
	result := New(crawlertest.Factory(&crawlertest.FakeBrowser{})).Crawl(context.Background(), r)
	if result.ErrorKind != models.ErrKindValidation {
		t.Fatalf("kind = %s", result.ErrorKind)
	}
}

func TestAuthorLabel(t *testing.T) {
	if got := authorLabel("某大學", "心理系"); got != "心理系" {
		t.Fatalf("got %q", got)
	}
	if got := authorLabel("某大學", ""); got != "某大學" {
		t.Fatalf("got %q", got)
	}
	if got := authorLabel("", ""); got != "匿名" {
		t.Fatalf("got %q", got)
	}
}
