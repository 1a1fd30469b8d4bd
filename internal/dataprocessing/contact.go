package dataprocessing

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// NormContact canonicalizes a contact name: NFKC normalization, whitespace
// runs collapsed to one space, trimmed, then upper-cased with French rules.
// It is the only identity match between the two source tables.
func NormContact(s string) string {
	s = norm.NFKC.String(s)
	s = strings.Join(strings.Fields(s), " ")
	// a Caser keeps state, so each call gets its own
	return cases.Upper(language.French).String(s)
}
