// Package sanitize cleans user-supplied text before it is stored or broadcast.
package sanitize

import (
	"strings"
	"unicode"
)

// Text caps s at maxRunes runes, then strips markup brackets, control
// characters and surrounding whitespace.
func Text(s string, maxRunes int) string {
	if maxRunes <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) > maxRunes {
		runes = runes[:maxRunes]
	}

	var b strings.Builder
	b.Grow(len(runes))
	for _, r := range runes {
		if r == '<' || r == '>' {
			continue
		}
		if unicode.IsControl(r) {
			r = ' '
		}
		b.WriteRune(r)
	}
	return strings.TrimSpace(b.String())
}
