// Package similarity holds the string, address and phone comparisons used by
// identity matching and deduplication. Every score is on a 0-100 scale.
package similarity

import (
	"strings"
	"unicode/utf8"

	"business-ranking-workers/internal/models"

	"github.com/agnivade/levenshtein"
)

// StringSimilarity compares a and b after lower-casing and trimming. It
// returns 100 for an exact match and 0 when either side is empty.
func StringSimilarity(a, b string) float64 {
	a = strings.ToLower(strings.TrimSpace(a))
	b = strings.ToLower(strings.TrimSpace(b))
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 100
	}

	maxLen := utf8.RuneCountInString(a)
	if n := utf8.RuneCountInString(b); n > maxLen {
		maxLen = n
	}
	dist := levenshtein.ComputeDistance(a, b)
	return 100 * float64(maxLen-dist) / float64(maxLen)
}

// AddressSimilarity compares a free-form address with a structured one.
func AddressSimilarity(freeform string, addr *models.PostalAddress) float64 {
	if addr == nil {
		return 0
	}
	return StringSimilarity(NormalizeAddress(freeform), NormalizeAddress(FormatAddress(addr)))
}

// FormatAddress joins the address lines, locality, administrative area and
// postal code with spaces, skipping empty parts.
func FormatAddress(addr *models.PostalAddress) string {
	if addr == nil {
		return ""
	}
	parts := make([]string, 0, len(addr.AddressLines)+3)
	for _, l := range addr.AddressLines {
		if l = strings.TrimSpace(l); l != "" {
			parts = append(parts, l)
		}
	}
	for _, p := range []string{addr.Locality, addr.AdministrativeArea, addr.PostalCode} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " ")
}

// PhoneMatch compares the digits of a and b. Numbers match when equal or when
// one contains the other, which covers a missing country code.
func PhoneMatch(a, b string) bool {
	da, db := NormalizePhone(a), NormalizePhone(b)
	if da == "" || db == "" {
		return false
	}
	return da == db || strings.Contains(da, db) || strings.Contains(db, da)
}
