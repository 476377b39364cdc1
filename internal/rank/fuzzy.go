// Package rank implements the approximate-string similarity used to
// re-rank BM25 candidates. Scores tolerate typos and token reordering
// that exact lexical matching misses.
package rank

import (
	"math"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"

	"github.com/skovand/lexica/internal/index"
)

// TokenSortRatio returns a token-order-insensitive similarity in [0, 100].
// Both texts are tokenized, tokens sorted alphabetically, and the joined
// sequences compared by normalized edit distance. 100 means an identical
// token multiset up to case; 0 means nothing in common.
//
// The measure is symmetric: TokenSortRatio(a, b) == TokenSortRatio(b, a).
func TokenSortRatio(a, b string) int {
	sa := sortedTokenString(a)
	sb := sortedTokenString(b)

	if sa == sb {
		return 100
	}
	if sa == "" || sb == "" {
		return 0
	}

	dist := levenshtein.ComputeDistance(sa, sb)
	longest := utf8.RuneCountInString(sa)
	if n := utf8.RuneCountInString(sb); n > longest {
		longest = n
	}

	ratio := int(math.Round(100 * (1 - float64(dist)/float64(longest))))
	if ratio < 0 {
		return 0
	}
	return ratio
}

func sortedTokenString(text string) string {
	tokens := index.Tokenize(text)
	sort.Strings(tokens)
	return strings.Join(tokens, " ")
}
