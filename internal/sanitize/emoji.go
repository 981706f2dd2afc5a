package sanitize

import (
	"strings"
	"unicode"
)

// emojiRanges is the codepoint table treated as emoji. It is a formatting
// rule, not a complete classification.
var emojiRanges = &unicode.RangeTable{
	R16: []unicode.Range16{
		{Lo: 0x2600, Hi: 0x26FF, Stride: 1}, // misc symbols
		{Lo: 0x2700, Hi: 0x27BF, Stride: 1}, // dingbats
	},
	R32: []unicode.Range32{
		{Lo: 0x1F300, Hi: 0x1F5FF, Stride: 1}, // symbols and pictographs
		{Lo: 0x1F600, Hi: 0x1F64F, Stride: 1}, // emoticons
		{Lo: 0x1F680, Hi: 0x1F6FF, Stride: 1}, // transport and map
		{Lo: 0x1F700, Hi: 0x1F77F, Stride: 1}, // alchemical
		{Lo: 0x1F780, Hi: 0x1F7FF, Stride: 1}, // geometric shapes extended
		{Lo: 0x1F800, Hi: 0x1F8FF, Stride: 1}, // supplemental arrows-c
		{Lo: 0x1F900, Hi: 0x1F9FF, Stride: 1}, // supplemental symbols and pictographs
		{Lo: 0x1FA00, Hi: 0x1FA6F, Stride: 1}, // chess symbols
		{Lo: 0x1FA70, Hi: 0x1FAFF, Stride: 1}, // symbols and pictographs extended-a
	},
}

const (
	variationSelector = '\uFE0F'
	zeroWidthJoiner   = '\u200D'
)

// IsEmoji reports whether r falls in the emoji table.
func IsEmoji(r rune) bool {
	return unicode.Is(emojiRanges, r)
}

// StripEmoji removes emoji. When keepFirst is set the first emoji (with its
// variation selector) survives.
func StripEmoji(s string, keepFirst bool) string {
	var b strings.Builder
	b.Grow(len(s))
	kept := false
	keeping := false
	for _, r := range s {
		switch {
		case IsEmoji(r):
			keeping = keepFirst && !kept
			if keeping {
				kept = true
				b.WriteRune(r)
			}
		case r == variationSelector || r == zeroWidthJoiner:
			if keeping && r == variationSelector {
				b.WriteRune(r)
			}
		default:
			keeping = false
			b.WriteRune(r)
		}
	}
	return b.String()
}
