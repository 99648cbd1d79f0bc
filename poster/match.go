package poster

import (
	"regexp"
	"strings"
)

var trailingParenRe = regexp.MustCompile(`\s*\([^)]*\)\s*$`)

// NormalizeLabel prepares a UI label for comparison: trims whitespace, drops
// a trailing parenthetical annotation ("Auto's (12.345)" -> "auto's") and
// lower-cases the rest.
func NormalizeLabel(s string) string {
	s = strings.TrimSpace(s)
	s = trailingParenRe.ReplaceAllString(s, "")
	return strings.ToLower(strings.TrimSpace(s))
}

// MatchesExact reports whether a wanted category name equals a UI label
// after normalization.
func MatchesExact(want, label string) bool {
	w := NormalizeLabel(want)
	return w != "" && w == NormalizeLabel(label)
}

// MatchesPartial is the substring fallback, containment in either direction.
// "Tools" matches "Tools & Garden" and vice versa; that over-matches
// same-prefix categories, but it is how the site's own suggestions behave
// and a stricter rule would miss legitimate renames.
func MatchesPartial(want, label string) bool {
	w, l := NormalizeLabel(want), NormalizeLabel(label)
	if w == "" || l == "" {
		return false
	}
	return strings.Contains(l, w) || strings.Contains(w, l)
}

// BestMatch picks the label that matches a wanted category name: the first
// exact match wins over any substring match, regardless of order. Returns -1
// when nothing matches.
func BestMatch(want string, labels []string) int {
	for i, l := range labels {
		if MatchesExact(want, l) {
			return i
		}
	}
	for i, l := range labels {
		if MatchesPartial(want, l) {
			return i
		}
	}
	return -1
}

// SplitCategoryPath splits a ">"-delimited category path into trimmed,
// non-empty segments from root to leaf.
func SplitCategoryPath(path string) []string {
	var parts []string
	for _, p := range strings.Split(path, ">") {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return parts
}

// FieldNameVariants returns the form control names a category field may be
// registered under. The site uses both the bare lowercase name and the
// bracketed single-select convention, depending on the category.
func FieldNameVariants(name string) []string {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil
	}
	lower := strings.ToLower(name)
	variants := []string{
		"singleSelectAttribute[" + name + "]",
		name,
	}
	if lower != name {
		variants = append(variants, "singleSelectAttribute["+lower+"]", lower)
	}
	return variants
}
