// Package urlparse classifies raw post URLs by platform and normalizes them
// into the canonical shape the crawlers expect.
package urlparse

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"net/url"
	"strings"

	"golang.org/x/net/publicsuffix"

	"github.com/campaignpulse/pulse/internal/postid"
	"github.com/campaignpulse/pulse/pkg/models"
)

// Registrable domains mapped to the platform that owns them. Xiaohongshu
// short links (xhslink.com) resolve server-side, so the short host
// classifies even though the post ID only becomes available after the
// redirect.
var platformDomains = map[string]models.Platform{
	"xiaohongshu.com": models.PlatformXiaohongshu,
	"xhslink.com":     models.PlatformXiaohongshu,
	"youtube.com":     models.PlatformYouTube,
	"youtu.be":        models.PlatformYouTube,
	"instagram.com":   models.PlatformInstagram,
	"facebook.com":    models.PlatformFacebook,
	"fb.com":          models.PlatformFacebook,
	"fb.watch":        models.PlatformFacebook,
	"dcard.tw":        models.PlatformDcard,
}

// DetectPlatform returns the platform owning rawURL, or false when the host
// is not one we crawl. Matching is by registrable domain (eTLD+1), so
// m.facebook.com and www.youtube.com classify while look-alike hosts such
// as facebook.com.example.org do not.
func DetectPlatform(rawURL string) (models.Platform, bool) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || u.Host == "" {
		return "", false
	}
	host := strings.ToLower(u.Hostname())
	domain, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return "", false
	}
	p, ok := platformDomains[domain]
	return p, ok
}

// Normalize rewrites rawURL into the canonical form the crawlers navigate
// to: scheme forced to https, tracking parameters dropped, and the youtu.be
// shortener expanded to a full watch URL so a single pattern set covers it.
func Normalize(rawURL string, platform models.Platform) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return rawURL
	}
	u.Scheme = "https"
	u.Fragment = ""

	switch platform {
	case models.PlatformYouTube:
		if strings.HasSuffix(u.Hostname(), "youtu.be") {
			id := strings.TrimPrefix(u.Path, "/")
			return "https://www.youtube.com/watch?v=" + id
		}
		// Keep only the video ID out of a watch URL query string.
		if strings.Contains(u.Path, "/watch") {
			q := url.Values{}
			if v := u.Query().Get("v"); v != "" {
				q.Set("v", v)
			}
			u.RawQuery = q.Encode()
		}
	case models.PlatformXiaohongshu:
		// xsec tokens are session-bound share signatures; keep them, the
		// detail page rejects requests without one on shared links.
	default:
		q := u.Query()
		for _, k := range []string{"utm_source", "utm_medium", "utm_campaign", "igshid", "igsh", "mibextid"} {
			q.Del(k)
		}
		u.RawQuery = q.Encode()
	}
	return u.String()
}

// Parse classifies and normalizes one URL into a PostReference.
func Parse(rawURL string) (models.PostReference, error) {
	rawURL = strings.TrimSpace(rawURL)
	platform, ok := DetectPlatform(rawURL)
	if !ok {
		return models.PostReference{}, fmt.Errorf("unsupported post URL %q", rawURL)
	}
	norm := Normalize(rawURL, platform)
	ref := models.PostReference{URL: norm, Platform: platform}
	if id, ok := postid.Extract(norm, platform); ok {
		ref.PostID = id
	}
	return ref, nil
}

// ParseLines reads one URL per line, skipping blanks and # comments.
// Unclassifiable lines are returned in skipped rather than failing the whole
// batch.
func ParseLines(r io.Reader) (refs []models.PostReference, skipped []string, err error) {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		ref, perr := Parse(line)
		if perr != nil {
			skipped = append(skipped, line)
			continue
		}
		refs = append(refs, ref)
	}
	return refs, skipped, sc.Err()
}

// ParseCSV reads URLs out of a CSV stream. The URL is taken from a column
// whose header contains "url" (case-insensitive); with no header match the
// first column is used.
func ParseCSV(r io.Reader) (refs []models.PostReference, skipped []string, err error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	col := 0
	first := true
	for {
		rec, rerr := cr.Read()
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			return refs, skipped, rerr
		}
		if len(rec) == 0 {
			continue
		}
		if first {
			first = false
			headerRow := false
			for i, cell := range rec {
				if strings.Contains(strings.ToLower(cell), "url") {
					col = i
					headerRow = true
					break
				}
			}
			if headerRow {
				continue
			}
			// No header: fall through and treat the row as data.
		}
		if col >= len(rec) {
			continue
		}
		cell := strings.TrimSpace(rec[col])
		if cell == "" {
			continue
		}
		ref, perr := Parse(cell)
		if perr != nil {
			skipped = append(skipped, cell)
			continue
		}
		refs = append(refs, ref)
	}
	return refs, skipped, nil
}
