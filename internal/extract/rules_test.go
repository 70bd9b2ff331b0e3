package extract

import (
	"strings"
	"testing"

	"github.com/campaignpulse/pulse/pkg/models"
)

const samplePage = `<html><body>
<div class="post">
  <span class="author-name">creatorA</span>
  <h1 class="note-title">Spring haul</h1>
  <span class="like-wrapper .count">2.6万</span>
  <span class="chat-wrapper .count">482</span>
  <div class="comments">
    <div class="comment-item">
      <span class="name">u1</span><span class="note-text">nice</span><span class="like .count">12</span>
    </div>
    <div class="comment-item">
      <span class="name">u2</span><span class="note-text">love it</span>
    </div>
    <div class="comment-item">
      <span class="name">u3</span><span class="note-text"></span>
    </div>
  </div>
</div>
</body></html>`

func TestApplyRulesFirstSelectorWins(t *testing.T) {
	doc, err := ParseDocument(samplePage)
	if err != nil {
		t.Fatal(err)
	}
	result := &models.CrawlResult{Platform: models.PlatformXiaohongshu}
	rules := []Rule{
		{Field: FieldAuthor, Selectors: []string{".missing-modern", ".author-name"}},
		{Field: FieldTitle, Selectors: []string{".note-title"}},
		{Field: FieldLikes, Selectors: []string{`span[class="like-wrapper .count"]`}},
		{Field: FieldComments, Selectors: []string{`span[class="chat-wrapper .count"]`}},
		{Field: FieldViews, Selectors: []string{".nonexistent"}},
	}
	ApplyRules(doc, rules, result)

	if result.Author != "creatorA" {
		t.Errorf("author = %q", result.Author)
	}
	if result.Title != "Spring haul" {
		t.Errorf("title = %q", result.Title)
	}
	if result.Likes != 26000 {
		t.Errorf("likes = %d", result.Likes)
	}
	if result.Comments != 482 {
		t.Errorf("comments = %d", result.Comments)
	}
	if result.Views != nil {
		t.Error("views should stay nil when no selector matches")
	}
}

func TestApplyRulesDoesNotOverwrite(t *testing.T) {
	doc, err := ParseDocument(samplePage)
	if err != nil {
		t.Fatal(err)
	}
	result := &models.CrawlResult{Platform: models.PlatformXiaohongshu, Author: "earlier"}
	ApplyRules(doc, []Rule{{Field: FieldAuthor, Selectors: []string{".author-name"}}}, result)
	if result.Author != "earlier" {
		t.Errorf("author overwritten: %q", result.Author)
	}
}

func TestApplyRulesClean(t *testing.T) {
	html := `<div><span id="likes">讚 1,234 次</span></div>`
	doc, err := ParseDocument(html)
	if err != nil {
		t.Fatal(err)
	}
	result := &models.CrawlResult{}
	ApplyRules(doc, []Rule{{
		Field:     FieldLikes,
		Selectors: []string{"#likes"},
		Clean: func(s string) string {
			return strings.NewReplacer("讚", "", "次", "").Replace(s)
		},
	}}, result)
	if result.Likes != 1234 {
		t.Errorf("likes = %d", result.Likes)
	}
}

func TestCollectComments(t *testing.T) {
	doc, err := ParseDocument(samplePage)
	if err != nil {
		t.Fatal(err)
	}
	comments := CollectComments(doc, ".comment-item", ".name", ".note-text", `span[class="like .count"]`, 10)
	if len(comments) != 2 {
		t.Fatalf("comments = %+v", comments)
	}
	if comments[0].Author != "u1" || comments[0].Text != "nice" {
		t.Errorf("first comment = %+v", comments[0])
	}
	if comments[0].Likes == nil || *comments[0].Likes != 12 {
		t.Errorf("first comment likes = %v", comments[0].Likes)
	}
	if comments[1].Likes != nil {
		t.Error("second comment has no likes node")
	}
}

func TestCollectCommentsCap(t *testing.T) {
	var sb strings.Builder
	sb.WriteString("<div>")
	for i := 0; i < 30; i++ {
		sb.WriteString(`<div class="c"><span class="a">u</span><span class="t">text</span></div>`)
	}
	sb.WriteString("</div>")
	doc, err := ParseDocument(sb.String())
	if err != nil {
		t.Fatal(err)
	}
	comments := CollectComments(doc, ".c", ".a", ".t", "", 10)
	if len(comments) != 10 {
		t.Fatalf("len = %d, want 10", len(comments))
	}
}
