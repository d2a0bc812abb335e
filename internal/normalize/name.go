package normalize

import (
	"strings"
	"unicode"
)

// Honorific prefixes and suffixes stripped at word boundaries. Closed
// sets: anything else stays part of the name.
var (
	namePrefixes = map[string]bool{
		"dr": true, "mr": true, "mrs": true, "ms": true, "miss": true,
	}
	nameSuffixes = map[string]bool{
		"jr": true, "sr": true, "ii": true, "iii": true, "iv": true,
		"md": true, "phd": true, "esq": true,
	}
)

// PersonName wraps a lowercased, punctuation-stripped, title-stripped,
// word-order-normalized name. The zero value is the empty-name state,
// meaning "no name signal available" rather than a hard error.
type PersonName struct {
	value string
}

// Empty reports whether nothing remained after stripping.
func (n PersonName) Empty() bool { return n.value == "" }

// String returns the normalized name, or "" for the empty state.
func (n PersonName) String() string { return n.value }

// Equal reports normalized equality. Empty names equal nothing.
func (n PersonName) Equal(other PersonName) bool {
	return !n.Empty() && !other.Empty() && n.value == other.value
}

// Name normalizes a raw display name: lowercases, reorders a single-comma
// "Last, First" form to "First Last", strips punctuation except internal
// hyphens, strips honorific prefixes and suffixes, and collapses
// whitespace. Normalization is idempotent.
func Name(raw string) PersonName {
	s := strings.ToLower(strings.TrimSpace(raw))

	// "Last, First" -> "First Last". Only a single comma is treated as a
	// reorder. Suffixes are trimmed per segment first, so "Smith, John MD"
	// reorders to "john smith" and "Jane Smith, MD" keeps its order (the
	// comma there separates a suffix, not a surname).
	if strings.Count(s, ",") == 1 {
		parts := strings.SplitN(s, ",", 2)
		left := trimSuffixes(parts[0])
		right := trimSuffixes(parts[1])
		if right == "" {
			s = left
		} else {
			s = right + " " + left
		}
	}

	s = stripNamePunctuation(s)

	tokens := strings.Fields(s)
	for len(tokens) > 0 && namePrefixes[tokens[0]] {
		tokens = tokens[1:]
	}
	for len(tokens) > 0 && nameSuffixes[tokens[len(tokens)-1]] {
		tokens = tokens[:len(tokens)-1]
	}

	return PersonName{value: strings.Join(tokens, " ")}
}

// trimSuffixes strips punctuation from a comma segment and drops
// trailing honorific suffix tokens.
func trimSuffixes(segment string) string {
	tokens := strings.Fields(stripNamePunctuation(segment))
	for len(tokens) > 0 && nameSuffixes[tokens[len(tokens)-1]] {
		tokens = tokens[:len(tokens)-1]
	}
	return strings.Join(tokens, " ")
}

// stripNamePunctuation removes punctuation but preserves hyphens between
// letters, so hyphenated surnames survive.
func stripNamePunctuation(s string) string {
	runes := []rune(s)
	var b strings.Builder
	for i, r := range runes {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r):
			b.WriteRune(r)
		case r == '-' && i > 0 && i < len(runes)-1 &&
			unicode.IsLetter(runes[i-1]) && unicode.IsLetter(runes[i+1]):
			b.WriteRune(r)
		case r == '\'' || r == '’':
			// apostrophes join, they don't separate: o'brien -> obrien
		default:
			b.WriteRune(' ')
		}
	}
	return b.String()
}
