// Package jsontree provides generic walks over parsed JSON/YAML documents
// (trees of map[string]any / []any / scalars): dotted-path existence checks,
// completeness scoring, and typed accessors.
package jsontree

import (
	"strings"
)

// ---------------------------------------------------------------------------
// Path existence
// ---------------------------------------------------------------------------

// Exists reports whether path resolves against root.
//
// Paths are dotted key sequences. A segment ending in "[]" requires the key
// to hold a non-empty array, and the remainder of the path to resolve for
// EVERY element of that array (conjunction, not existence). An empty array
// does not satisfy a "[]" segment.
//
// Missing keys, nil values, and type mismatches all report false; malformed
// paths never panic. Callers turn false into their own "missing field"
// messages.
func Exists(root any, path string) bool {
	if path == "" {
		return root != nil
	}
	return exists(root, strings.Split(path, "."))
}

func exists(node any, segments []string) bool {
	if len(segments) == 0 {
		return node != nil
	}
	seg := segments[0]

	if key, ok := strings.CutSuffix(seg, "[]"); ok {
		obj, ok := node.(map[string]any)
		if !ok {
			return false
		}
		arr, ok := obj[key].([]any)
		if !ok || len(arr) == 0 {
			return false
		}
		for _, elem := range arr {
			if !exists(elem, segments[1:]) {
				return false
			}
		}
		return true
	}

	obj, ok := node.(map[string]any)
	if !ok {
		return false
	}
	child, ok := obj[seg]
	if !ok || child == nil {
		return false
	}
	return exists(child, segments[1:])
}

// ---------------------------------------------------------------------------
// Completeness scoring
// ---------------------------------------------------------------------------

// DefaultPlaceholders are substrings that mark a string leaf as unfilled
// scaffolding rather than real content.
var DefaultPlaceholders = []string{"your-", "..."}

// Score counts total vs. filled leaf fields under a node.
type Score struct {
	Total  int
	Filled int
}

// Percent returns the completeness as a rounded 0–100 percentage.
// A subtree with no leaves scores 0.
func (s Score) Percent() int {
	if s.Total == 0 {
		return 0
	}
	return int(float64(s.Filled)/float64(s.Total)*100 + 0.5)
}

// Add accumulates another score into s.
func (s *Score) Add(other Score) {
	s.Total += other.Total
	s.Filled += other.Filled
}

// ScoreNode walks node and counts leaf fields.
//
// Only maps are recursed into; arrays and strings are leaves. A string leaf
// is filled unless empty or containing a placeholder marker; an array leaf
// is filled iff non-empty (elements are not inspected); any other non-nil
// leaf is filled. The walk is pure and order-insensitive.
func ScoreNode(node any) Score {
	return ScoreNodeWith(node, DefaultPlaceholders)
}

// ScoreNodeWith is ScoreNode with a caller-supplied placeholder marker list.
func ScoreNodeWith(node any, placeholders []string) Score {
	switch v := node.(type) {
	case map[string]any:
		var s Score
		for _, child := range v {
			s.Add(ScoreNodeWith(child, placeholders))
		}
		return s
	case string:
		return Score{Total: 1, Filled: boolToInt(isFilledString(v, placeholders))}
	case []any:
		return Score{Total: 1, Filled: boolToInt(len(v) > 0)}
	case nil:
		return Score{Total: 1}
	default:
		// Numbers, booleans, and anything else non-nil count as filled.
		return Score{Total: 1, Filled: 1}
	}
}

func isFilledString(s string, placeholders []string) bool {
	if s == "" {
		return false
	}
	for _, marker := range placeholders {
		if strings.Contains(s, marker) {
			return false
		}
	}
	return true
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// ---------------------------------------------------------------------------
// Typed accessors
// ---------------------------------------------------------------------------

// GetMap resolves a dotted path to a map value. Returns an empty (non-nil)
// map when the path is absent or not a map, so callers can chain lookups.
func GetMap(root map[string]any, path string) map[string]any {
	node, ok := get(root, path)
	if !ok {
		return map[string]any{}
	}
	obj, ok := node.(map[string]any)
	if !ok {
		return map[string]any{}
	}
	return obj
}

// GetList resolves a dotted path to an array value, or nil.
func GetList(root map[string]any, path string) []any {
	node, ok := get(root, path)
	if !ok {
		return nil
	}
	arr, _ := node.([]any)
	return arr
}

// GetString resolves a dotted path to a string, or fallback.
func GetString(root map[string]any, path, fallback string) string {
	node, ok := get(root, path)
	if !ok {
		return fallback
	}
	s, ok := node.(string)
	if !ok {
		return fallback
	}
	return s
}

// Strings converts an []any of strings to []string, skipping non-strings.
func Strings(list []any) []string {
	var out []string
	for _, v := range list {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// get resolves a plain dotted path (no "[]" segments) to its value.
func get(root map[string]any, path string) (any, bool) {
	var node any = root
	for _, seg := range strings.Split(path, ".") {
		obj, ok := node.(map[string]any)
		if !ok {
			return nil, false
		}
		node, ok = obj[seg]
		if !ok {
			return nil, false
		}
	}
	return node, node != nil
}
