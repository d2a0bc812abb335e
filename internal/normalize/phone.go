package normalize

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/nyaruka/phonenumbers"
)

// ErrInvalidPhone indicates a raw phone string that could not be parsed
// into any valid number. It is recovered locally: the returned PhoneNumber
// carries the error state and the caller treats the phone as unusable.
var ErrInvalidPhone = errors.New("invalid phone number")

var (
	labelPrefixRe = regexp.MustCompile(`(?i)^\s*(phone|cell|mobile|work|home|tel|fax)\s*[:.]?\s*`)
	extensionRe   = regexp.MustCompile(`(?i)[\s,]*(ext\.?|extension|x)\s*\d+\s*$`)
	orSplitRe     = regexp.MustCompile(`(?i)\s+or\s+`)
)

// PhoneNumber wraps a phone number in canonical E.164 form, or an error
// state when the input could not be normalized. Error-state values never
// compare equal to anything, including other error-state values.
type PhoneNumber struct {
	canonical string
	note      string
	err       error
}

// Valid reports whether the number normalized successfully.
func (p PhoneNumber) Valid() bool { return p.err == nil }

// Err returns the normalization error, or nil.
func (p PhoneNumber) Err() error { return p.err }

// String returns the canonical E.164 form, or "" in error state.
func (p PhoneNumber) String() string { return p.canonical }

// Note returns a diagnostic note attached during pre-cleaning, such as a
// dropped alternate number from an "A or B" input.
func (p PhoneNumber) Note() string { return p.note }

// Equal reports canonical equality. An error-state value equals nothing.
func (p PhoneNumber) Equal(other PhoneNumber) bool {
	if !p.Valid() || !other.Valid() {
		return false
	}
	return p.canonical == other.canonical
}

// Last10 returns the last ten digits of the canonical number, or "" when
// the value is in error state or has fewer than ten digits. Comparing
// last-10 digits catches country-code-only mismatches.
func (p PhoneNumber) Last10() string {
	if !p.Valid() {
		return ""
	}
	digits := strings.TrimPrefix(p.canonical, "+")
	if len(digits) < 10 {
		return ""
	}
	return digits[len(digits)-10:]
}

// Phone normalizes a raw phone string to canonical E.164 form, applying
// defaultRegion when the input has no explicit country code.
//
// Pre-cleaning strips label prefixes ("Phone:", "Cell:"), extension
// suffixes ("ext 123"), alphabetic characters, and takes the first
// segment of an "A or B" construct.
func Phone(raw, defaultRegion string) PhoneNumber {
	cleaned, note := precleanPhone(raw)
	if cleaned == "" || !strings.ContainsAny(cleaned, "0123456789") {
		return PhoneNumber{note: note, err: fmt.Errorf("%w: no digits in %q", ErrInvalidPhone, raw)}
	}

	parsed, err := phonenumbers.Parse(cleaned, defaultRegion)
	if err != nil {
		return PhoneNumber{note: note, err: fmt.Errorf("%w: %v", ErrInvalidPhone, err)}
	}
	if !phonenumbers.IsValidNumber(parsed) {
		return PhoneNumber{note: note, err: fmt.Errorf("%w: %q fails number-plan validation", ErrInvalidPhone, raw)}
	}

	return PhoneNumber{
		canonical: phonenumbers.Format(parsed, phonenumbers.E164),
		note:      note,
	}
}

func precleanPhone(raw string) (cleaned, note string) {
	s := strings.TrimSpace(raw)
	s = labelPrefixRe.ReplaceAllString(s, "")

	if parts := orSplitRe.Split(s, 2); len(parts) == 2 {
		s = strings.TrimSpace(parts[0])
		note = "dropped alternate number: " + strings.TrimSpace(parts[1])
	}

	s = extensionRe.ReplaceAllString(s, "")

	// Drop remaining alphabetics; keep a leading "+" and everything the
	// parser understands (digits, separators).
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '+' && b.Len() == 0:
			b.WriteRune(r)
		case strings.ContainsRune("()-. ", r):
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String()), note
}
