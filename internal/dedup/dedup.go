// Package dedup implements title normalization and the near-duplicate
// similarity metric.
package dedup

import (
	"math"
	"sort"
	"strings"
	"unicode"

	"github.com/agnivade/levenshtein"
)

// Threshold is the minimum similarity score at which two titles are
// considered near-duplicates.
const Threshold = 75

var stopwords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "in": {}, "on": {}, "at": {}, "to": {},
	"for": {}, "of": {}, "and": {}, "is": {}, "are": {}, "was": {}, "were": {},
}

// Normalize lowercases the title, strips punctuation, collapses whitespace
// and removes stopwords. Deterministic and pure.
func Normalize(title string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(title) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			b.WriteRune(r)
		}
	}
	words := strings.Fields(b.String())
	kept := words[:0]
	for _, w := range words {
		if _, skip := stopwords[w]; !skip {
			kept = append(kept, w)
		}
	}
	return strings.Join(kept, " ")
}

// Similarity returns a token-order-insensitive similarity score in [0, 100]:
// the normalized edit distance between the two strings after sorting their
// tokens. 100 means the sorted token sequences are identical.
func Similarity(a, b string) int {
	sa := sortTokens(a)
	sb := sortTokens(b)
	if sa == sb {
		return 100
	}
	if sa == "" || sb == "" {
		return 0
	}
	dist := levenshtein.ComputeDistance(sa, sb)
	longer := len([]rune(sa))
	if l := len([]rune(sb)); l > longer {
		longer = l
	}
	if dist >= longer {
		return 0
	}
	return int(math.Round(100 * float64(longer-dist) / float64(longer)))
}

func sortTokens(s string) string {
	tokens := strings.Fields(s)
	sort.Strings(tokens)
	return strings.Join(tokens, " ")
}
