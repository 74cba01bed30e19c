package similarity

import (
	"strings"
	"unicode"
)

// streetTokens are dropped before comparing addresses so "Main St" and
// "Main Street" line up.
var streetTokens = map[string]struct{}{
	"street": {}, "st": {},
	"avenue": {}, "ave": {},
	"road": {}, "rd": {},
	"boulevard": {}, "blvd": {},
	"drive": {}, "dr": {},
	"lane": {}, "ln": {},
	"court": {}, "ct": {},
	"place": {}, "pl": {},
	"suite": {}, "ste": {},
}

// NormalizeName lower-cases s, replaces punctuation with spaces and collapses
// whitespace.
func NormalizeName(s string) string {
	return strings.Join(words(s), " ")
}

// NormalizePhone keeps only the digits of s.
func NormalizePhone(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// NormalizeAddress is NormalizeName with street-type tokens removed.
func NormalizeAddress(s string) string {
	parts := words(s)
	kept := parts[:0]
	for _, p := range parts {
		if _, ok := streetTokens[p]; ok {
			continue
		}
		kept = append(kept, p)
	}
	return strings.Join(kept, " ")
}

func words(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
