// Package normalize folds movie titles to a canonical form used for local
// substring search, so "Amélie" matches a query for "amelie".
package normalize

import (
	"strings"
	"unicode"

	"github.com/mozillazg/go-unidecode"
)

// Title lowercases, romanizes, and collapses whitespace in a title.
func Title(value string) string {
	romanized := strings.TrimSpace(unidecode.Unidecode(value))
	lowered := strings.ToLower(romanized)

	var b strings.Builder
	b.Grow(len(lowered))
	lastSpace := false
	for _, r := range lowered {
		if unicode.IsSpace(r) {
			if !lastSpace && b.Len() > 0 {
				b.WriteByte(' ')
			}
			lastSpace = true
			continue
		}
		lastSpace = false
		b.WriteRune(r)
	}
	return strings.TrimRight(b.String(), " ")
}
