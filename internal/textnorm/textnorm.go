// Package textnorm normalizes names and labels so that roster snapshots,
// catalog entries and participation records compare consistently.
package textnorm

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Upper trims s, collapses inner whitespace and upper-cases it.
// Accents are preserved: "João  Souza" becomes "JOÃO SOUZA".
func Upper(s string) string {
	// Casers are stateful and must not be shared between goroutines.
	return cases.Upper(language.BrazilianPortuguese).String(strings.Join(strings.Fields(s), " "))
}

// Fold lower-cases s and strips diacritics for keyword matching.
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	return strings.ToLower(strings.Join(strings.Fields(folded), " "))
}

// Key is the comparison key for department and group names.
// Two labels denote the same scope when their keys are equal.
func Key(s string) string {
	return Fold(s)
}

// Equal reports whether two labels denote the same scope.
func Equal(a, b string) bool {
	return Key(a) == Key(b)
}
