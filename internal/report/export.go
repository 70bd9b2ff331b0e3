// internal/report/export.go
package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/campaignpulse/pulse/internal/numfmt"
)

// WriteJSON writes the full report, entries included.
func (r *CampaignReport) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

var csvHeader = []string{
	"platform", "url", "post_id", "author", "title",
	"likes", "comments", "shares", "favorites", "views",
	"valid", "failure_reason", "error",
}

// WriteCSV writes one row per crawled post. Metrics a platform does not
// expose stay blank rather than reading as zero.
func (r *CampaignReport) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, e := range r.Entries {
		res := e.Result
		row := []string{
			string(res.Platform),
			res.URL,
			res.PostID,
			res.Author,
			res.Title,
			strconv.Itoa(res.Likes),
			strconv.Itoa(res.Comments),
			optional(res.Shares),
			strconv.Itoa(res.Favorites),
			optional(res.Views),
			strconv.FormatBool(e.Valid),
			string(e.Reason),
			res.Error,
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func optional(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

// WriteMarkdown writes the human summary: per-platform totals, then the
// failure tally.
func (r *CampaignReport) WriteMarkdown(w io.Writer) error {
	var b strings.Builder
	fmt.Fprintf(&b, "# Campaign engagement report\n\n")
	fmt.Fprintf(&b, "Generated %s — %d posts, %d with usable metrics.\n\n",
		r.GeneratedAt.Format("2006-01-02 15:04"), r.Total, r.ValidCount)

	b.WriteString("| Platform | Posts | Valid | Likes | Comments | Shares | Favorites | Views |\n")
	b.WriteString("|---|---|---|---|---|---|---|---|\n")
	for _, s := range r.Platforms {
		fmt.Fprintf(&b, "| %s | %d | %d | %s | %s | %s | %s | %s |\n",
			s.Platform.DisplayName(), s.Posts, s.Valid,
			numfmt.Format(s.Likes), numfmt.Format(s.Comments),
			numfmt.Format(s.Shares), numfmt.Format(s.Favorite),
			numfmt.Format(s.Views))
	}

	if len(r.Failures) > 0 {
		b.WriteString("\n## Failures\n\n")
		for reason, count := range r.Failures {
			fmt.Fprintf(&b, "- %s: %d\n", reason, count)
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}
