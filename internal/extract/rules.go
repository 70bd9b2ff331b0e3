// Package extract turns page snapshots into metric values. It has three
// layers: declarative CSS selector rules over rendered HTML, embedded
// JSON state blobs dug out of script tags, and post body normalization.
package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog/log"

	"github.com/campaignpulse/pulse/internal/numfmt"
	"github.com/campaignpulse/pulse/pkg/models"
)

// Field names a CrawlResult slot a rule can fill.
type Field string

const (
	FieldAuthor    Field = "author"
	FieldTitle     Field = "title"
	FieldLikes     Field = "likes"
	FieldComments  Field = "comments"
	FieldShares    Field = "shares"
	FieldFavorites Field = "favorites"
	FieldViews     Field = "views"
	FieldThumbnail Field = "thumbnail"
)

// Rule binds one result field to an ordered list of CSS selectors. The
// selectors are tried in order and the first one yielding a non-empty value
// wins, so each rule encodes the platform's markup variants from newest to
// oldest. Attr reads an attribute instead of the text content.
type Rule struct {
	Field     Field
	Selectors []string
	Attr      string
	// Clean optionally rewrites the raw value before parsing, e.g. to cut
	// a "讚 1,234 次" label down to its number.
	Clean func(string) string
}

// ApplyRules evaluates rules against doc and fills the matching fields of
// result. Numeric fields go through the locale-aware parser; a selector
// that matches but parses to zero still counts as a match, zero is a valid
// count.
func ApplyRules(doc *goquery.Document, rules []Rule, result *models.CrawlResult) {
	for _, rule := range rules {
		raw, ok := firstMatch(doc, rule)
		if !ok {
			continue
		}
		if rule.Clean != nil {
			raw = rule.Clean(raw)
		}
		setField(result, rule.Field, raw)
	}
}

func firstMatch(doc *goquery.Document, rule Rule) (string, bool) {
	for _, sel := range rule.Selectors {
		node := doc.Find(sel).First()
		if node.Length() == 0 {
			continue
		}
		var raw string
		if rule.Attr != "" {
			raw, _ = node.Attr(rule.Attr)
		} else {
			raw = node.Text()
		}
		raw = strings.TrimSpace(raw)
		if raw != "" {
			return raw, true
		}
	}
	return "", false
}

func setField(result *models.CrawlResult, field Field, raw string) {
	switch field {
	case FieldAuthor:
		if result.Author == "" {
			result.Author = raw
		}
	case FieldTitle:
		if result.Title == "" {
			result.Title = raw
		}
	case FieldThumbnail:
		if result.ThumbnailURL == "" {
			result.ThumbnailURL = raw
		}
	case FieldLikes:
		if result.Likes == 0 {
			result.Likes = numfmt.Parse(raw)
		}
	case FieldComments:
		if result.Comments == 0 {
			result.Comments = numfmt.Parse(raw)
		}
	case FieldFavorites:
		if result.Favorites == 0 {
			result.Favorites = numfmt.Parse(raw)
		}
	case FieldShares:
		if result.Shares == nil {
			result.Shares = models.IntPtr(numfmt.Parse(raw))
		}
	case FieldViews:
		if result.Views == nil {
			result.Views = models.IntPtr(numfmt.Parse(raw))
		}
	default:
		log.Warn().Str("field", string(field)).Msg("Unknown rule field")
	}
}

// ParseDocument wraps goquery document construction from a rendered HTML
// snapshot.
func ParseDocument(html string) (*goquery.Document, error) {
	return goquery.NewDocumentFromReader(strings.NewReader(html))
}

// CollectComments extracts up to max sampled comments using the given
// container/author/text/likes selectors. Empty-text nodes are skipped.
func CollectComments(doc *goquery.Document, containerSel, authorSel, textSel, likesSel string, max int) []models.Comment {
	var comments []models.Comment
	doc.Find(containerSel).EachWithBreak(func(_ int, node *goquery.Selection) bool {
		text := strings.TrimSpace(node.Find(textSel).First().Text())
		if text == "" {
			return true
		}
		c := models.Comment{
			Author: strings.TrimSpace(node.Find(authorSel).First().Text()),
			Text:   text,
		}
		if likesSel != "" {
			if raw := strings.TrimSpace(node.Find(likesSel).First().Text()); raw != "" {
				c.Likes = models.IntPtr(numfmt.Parse(raw))
			}
		}
		comments = append(comments, c)
		return max <= 0 || len(comments) < max
	})
	return comments
}
