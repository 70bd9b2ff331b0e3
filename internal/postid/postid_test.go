package postid

import (
	"testing"

	"github.com/campaignpulse/pulse/pkg/models"
)

func TestExtract(t *testing.T) {
	cases := []struct {
		url      string
		platform models.Platform
		want     string
	}{
		{"https://www.xiaohongshu.com/explore/65f1c2d3000000001203abcd", models.PlatformXiaohongshu, "65f1c2d3000000001203abcd"},
		{"https://www.xiaohongshu.com/discovery/item/65f1c2d3000000001203abcd", models.PlatformXiaohongshu, "65f1c2d3000000001203abcd"},
		{"https://www.youtube.com/watch?v=dQw4w9WgXcQ", models.PlatformYouTube, "dQw4w9WgXcQ"},
		{"https://youtu.be/dQw4w9WgXcQ", models.PlatformYouTube, "dQw4w9WgXcQ"},
		{"https://www.youtube.com/shorts/aBcDeFgHiJk", models.PlatformYouTube, "aBcDeFgHiJk"},
		{"https://www.instagram.com/p/Cxyz123_aB/", models.PlatformInstagram, "Cxyz123_aB"},
		{"https://www.instagram.com/someuser/reel/Cxyz123_aB/", models.PlatformInstagram, "Cxyz123_aB"},
		{"https://www.facebook.com/somepage/posts/1234567890", models.PlatformFacebook, "1234567890"},
		{"https://m.facebook.com/story.php?story_fbid=987654&id=1", models.PlatformFacebook, "987654"},
		{"https://www.facebook.com/watch/?v=1&fbid=555", models.PlatformFacebook, "555"},
		{"https://www.dcard.tw/f/relationship/p/256688912", models.PlatformDcard, "256688912"},
		{"https://www.dcard.tw/@someone/241234567", models.PlatformDcard, "241234567"},
	}
	for _, c := range cases {
		got, ok := Extract(c.url, c.platform)
		if !ok || got != c.want {
			t.Errorf("Extract(%q, %s) = (%q, %v), want %q", c.url, c.platform, got, ok, c.want)
		}
	}
}

func TestExtractNoMatch(t *testing.T) {
	if id, ok := Extract("https://www.dcard.tw/f/relationship", models.PlatformDcard); ok {
		t.Fatalf("expected no match, got %q", id)
	}
	if id, ok := Extract("https://example.com/whatever", models.PlatformYouTube); ok {
		t.Fatalf("expected no match, got %q", id)
	}
}
