package matching

import (
	"math"
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"
)

// TokenSortRatio computes an order-independent similarity score in
// [0, 100] between two strings: both are tokenized, tokens sorted
// alphabetically, and the rejoined strings compared by edit distance.
// Names that differ only in word order score 100.
func TokenSortRatio(a, b string) int {
	sa := sortTokens(a)
	sb := sortTokens(b)
	if sa == "" || sb == "" {
		return 0
	}
	if sa == sb {
		return 100
	}

	dist := levenshtein.ComputeDistance(sa, sb)
	longest := len([]rune(sa))
	if l := len([]rune(sb)); l > longest {
		longest = l
	}
	ratio := 1.0 - float64(dist)/float64(longest)
	if ratio < 0 {
		ratio = 0
	}
	return int(math.Round(ratio * 100))
}

func sortTokens(s string) string {
	tokens := strings.Fields(s)
	sort.Strings(tokens)
	return strings.Join(tokens, " ")
}
