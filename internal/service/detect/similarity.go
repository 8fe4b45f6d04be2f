package detect

import (
	"regexp"
	"strings"
)

var nonWordPattern = regexp.MustCompile(`[^\w\s]`)
var whitespacePattern = regexp.MustCompile(`\s+`)

// normalizeText lower-cases, strips punctuation, and collapses whitespace.
func normalizeText(s string) string {
	s = strings.ToLower(s)
	s = nonWordPattern.ReplaceAllString(s, "")
	s = whitespacePattern.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// tokenSet splits normalized text into a set of tokens.
func tokenSet(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, tok := range strings.Split(normalizeText(s), " ") {
		if tok != "" {
			set[tok] = struct{}{}
		}
	}
	return set
}

// TextSimilarity returns the Jaccard similarity of the token sets of two
// strings, in [0, 1]. Two empty strings score 0, not 1: an empty union says
// nothing about the texts matching, and treating it as identity would group
// every pair of blank posts.
func TextSimilarity(a, b string) float64 {
	setA := tokenSet(a)
	setB := tokenSet(b)

	union := len(setB)
	intersection := 0
	for tok := range setA {
		if _, ok := setB[tok]; ok {
			intersection++
		} else {
			union++
		}
	}

	if union == 0 {
		return 0
	}

	return float64(intersection) / float64(union)
}
