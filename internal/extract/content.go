// internal/extract/content.go
package extract

import (
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
)

var mdConverter = md.NewConverter("", true, nil)

// ContentMarkdown converts the post body found at any of the selectors into
// markdown, so reports keep paragraph breaks and links without raw HTML.
// Returns "" when no selector matches or conversion fails; the body is a
// nice-to-have, never a crawl failure.
func ContentMarkdown(doc *goquery.Document, selectors []string) string {
	for _, sel := range selectors {
		node := doc.Find(sel).First()
		if node.Length() == 0 {
			continue
		}
		html, err := goquery.OuterHtml(node)
		if err != nil || html == "" {
			continue
		}
		out, err := mdConverter.ConvertString(html)
		if err != nil {
			continue
		}
		out = strings.TrimSpace(out)
		if out != "" {
			return out
		}
	}
	return ""
}
