package extract

import (
	"testing"
)

func TestExtractStateJSON(t *testing.T) {
	html := `<html><script>window.__INITIAL_STATE__={"note":{"noteDetailMap":{"abc":{"note":{"likedCount":"2627"}}}}};</script></html>`
	state, err := ExtractState(html, PatternInitialState)
	if err != nil {
		t.Fatal(err)
	}
	got, ok := WalkString(state, "note.noteDetailMap.abc.note.likedCount")
	if !ok || got != "2627" {
		t.Fatalf("got %q, %v", got, ok)
	}
}

func TestExtractStateTolerantJS(t *testing.T) {
	// Real blobs carry undefined and unquoted keys; plain JSON decoding
	// rejects them, the JS evaluation path must not.
	html := `<script>window.__INITIAL_STATE__={note:{count:123,missing:undefined,}};</script>`
	state, err := ExtractState(html, PatternInitialState)
	if err != nil {
		t.Fatal(err)
	}
	n, ok := WalkInt(state, "note.count")
	if !ok || n != 123 {
		t.Fatalf("count = %d, %v", n, ok)
	}
	if _, ok := Walk(state, "note.missing"); ok {
		t.Fatal("undefined values must be dropped")
	}
}

func TestExtractStateMissing(t *testing.T) {
	if _, err := ExtractState("<html></html>", PatternSharedData); err == nil {
		t.Fatal("expected error for absent blob")
	}
}

func TestExtractStateNextData(t *testing.T) {
	html := `<script id="__NEXT_DATA__" type="application/json">{"props":{"pageProps":{"post":{"likeCount":42}}}}</script>`
	state, err := ExtractState(html, PatternNextData)
	if err != nil {
		t.Fatal(err)
	}
	n, ok := WalkInt(state, "props.pageProps.post.likeCount")
	if !ok || n != 42 {
		t.Fatalf("likeCount = %d, %v", n, ok)
	}
}

func TestWalkArrayIndex(t *testing.T) {
	state := map[string]interface{}{
		"edges": []interface{}{
			map[string]interface{}{"node": map[string]interface{}{"text": "first"}},
		},
	}
	got, ok := WalkString(state, "edges.0.node.text")
	if !ok || got != "first" {
		t.Fatalf("got %q, %v", got, ok)
	}
	if _, ok := Walk(state, "edges.5.node"); ok {
		t.Fatal("out-of-range index must miss")
	}
}

func TestScopedSearch(t *testing.T) {
	html := `aaaa SHORTCODE bbbb`
	window, ok := ScopedSearch(html, "SHORTCODE", 4)
	if !ok {
		t.Fatal("anchor not found")
	}
	if window != "aaa SHORTCODE bbb" {
		t.Fatalf("window = %q", window)
	}
	if _, ok := ScopedSearch(html, "missing", 4); ok {
		t.Fatal("missing anchor must report false")
	}
}
