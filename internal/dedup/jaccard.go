package dedup

import (
	"strings"
	"unicode"
)

// DefaultThreshold is the title similarity at which two items are duplicates.
const DefaultThreshold = 0.6

// NormalizeTitle lowercases s and drops every character that is neither a
// letter, digit, underscore nor whitespace.
func NormalizeTitle(s string) string {
	var sb strings.Builder
	sb.Grow(len(s))
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || unicode.IsSpace(r) {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

type tokenSet map[string]struct{}

// Tokens returns the set of words in the normalized title.
func Tokens(title string) map[string]struct{} {
	set := make(tokenSet)
	for _, w := range strings.Fields(NormalizeTitle(title)) {
		set[w] = struct{}{}
	}
	return set
}

func jaccardSets(a, b tokenSet) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	small, large := a, b
	if len(small) > len(large) {
		small, large = large, small
	}
	inter := 0
	for w := range small {
		if _, ok := large[w]; ok {
			inter++
		}
	}
	return float64(inter) / float64(len(a)+len(b)-inter)
}

// Jaccard returns the word-set Jaccard index of two titles. Titles without
// any words have similarity 0.
func Jaccard(a, b string) float64 {
	return jaccardSets(Tokens(a), Tokens(b))
}

// Similar reports whether two titles reach threshold.
func Similar(a, b string, threshold float64) bool {
	ta, tb := Tokens(a), Tokens(b)
	if len(ta) == 0 || len(tb) == 0 {
		return false
	}
	return jaccardSets(ta, tb) >= threshold
}
