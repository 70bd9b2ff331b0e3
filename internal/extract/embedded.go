// internal/extract/embedded.go
package extract

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/dop251/goja"
)

// StatePattern locates one embedded state blob inside raw page HTML. The
// platforms ship their data server-side as a JS assignment inside a script
// tag; the capture group must grab the object literal.
type StatePattern struct {
	Name string
	Re   *regexp.Regexp
}

// Well-known state blob patterns. The non-greedy bodies stop at the first
// closing script tag so one regex never swallows two blobs.
var (
	PatternInitialState = StatePattern{
		Name: "initial_state",
		Re:   regexp.MustCompile(`(?s)window\.__INITIAL_STATE__\s*=\s*(\{.+?\})\s*(?:;|</script>)`),
	}
	PatternSharedData = StatePattern{
		Name: "shared_data",
		Re:   regexp.MustCompile(`(?s)window\._sharedData\s*=\s*(\{.+?\});</script>`),
	}
	PatternNextData = StatePattern{
		Name: "next_data",
		Re:   regexp.MustCompile(`(?s)<script id="__NEXT_DATA__" type="application/json">(\{.+?\})</script>`),
	}
	PatternYtInitialData = StatePattern{
		Name: "yt_initial_data",
		Re:   regexp.MustCompile(`(?s)var ytInitialData\s*=\s*(\{.+?\});`),
	}
	PatternYtPlayerResponse = StatePattern{
		Name: "yt_player_response",
		Re:   regexp.MustCompile(`(?s)var ytInitialPlayerResponse\s*=\s*(\{.+?\});`),
	}
)

// ExtractState finds the pattern's blob in html and decodes it into a
// generic map. Plain JSON decoding is tried first; blobs that are JS rather
// than JSON (unquoted keys, undefined values, trailing commas) are
// re-evaluated through an embedded JS engine, which tolerates everything a
// browser would.
func ExtractState(html string, pattern StatePattern) (map[string]interface{}, error) {
	m := pattern.Re.FindStringSubmatch(html)
	if m == nil {
		return nil, fmt.Errorf("state blob %s not found", pattern.Name)
	}
	blob := m[1]

	var state map[string]interface{}
	if err := json.Unmarshal([]byte(blob), &state); err == nil {
		return state, nil
	}
	return evalJSObject(blob)
}

// evalJSObject evaluates a JS object literal and round-trips it through
// JSON.stringify, which drops functions and turns undefined into nulls.
func evalJSObject(blob string) (map[string]interface{}, error) {
	vm := goja.New()
	v, err := vm.RunString("JSON.stringify((" + blob + "))")
	if err != nil {
		return nil, fmt.Errorf("state blob is not valid JS: %w", err)
	}
	out, ok := v.Export().(string)
	if !ok || out == "" || out == "undefined" {
		return nil, fmt.Errorf("state blob evaluated to nothing")
	}
	var state map[string]interface{}
	if err := json.Unmarshal([]byte(out), &state); err != nil {
		return nil, fmt.Errorf("failed to decode evaluated state: %w", err)
	}
	return state, nil
}

// Walk descends a decoded state map along a dotted path ("note.likes").
// Numeric path segments index into arrays. Returns false when any segment
// is missing.
func Walk(state map[string]interface{}, path string) (interface{}, bool) {
	var cur interface{} = state
	for _, seg := range strings.Split(path, ".") {
		switch node := cur.(type) {
		case map[string]interface{}:
			v, ok := node[seg]
			if !ok {
				return nil, false
			}
			cur = v
		case []interface{}:
			idx := -1
			fmt.Sscanf(seg, "%d", &idx)
			if idx < 0 || idx >= len(node) {
				return nil, false
			}
			cur = node[idx]
		default:
			return nil, false
		}
	}
	return cur, true
}

// WalkInt reads an integer at path. JSON numbers decode as float64; string
// counts ("2.6万") go through their own parser at the call site, so here a
// string is a miss.
func WalkInt(state map[string]interface{}, path string) (int, bool) {
	v, ok := Walk(state, path)
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return int(n), true
	case int64:
		return int(n), true
	}
	return 0, false
}

// WalkString reads a string at path.
func WalkString(state map[string]interface{}, path string) (string, bool) {
	v, ok := Walk(state, path)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// ScopedSearch cuts a window of radius bytes around the first occurrence of
// anchor in html. Used to keep count regexes from matching a neighboring
// post's numbers on feed-like pages.
func ScopedSearch(html, anchor string, radius int) (string, bool) {
	idx := strings.Index(html, anchor)
	if idx < 0 {
		return "", false
	}
	lo := idx - radius
	if lo < 0 {
		lo = 0
	}
	hi := idx + len(anchor) + radius
	if hi > len(html) {
		hi = len(html)
	}
	return html[lo:hi], true
}
