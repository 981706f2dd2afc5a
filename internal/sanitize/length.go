package sanitize

import (
	"strings"
	"unicode"
)

// Budget bounds reply length in runes.
type Budget struct {
	Limit    int // texts up to Limit are left alone
	Cut      int // hard cut position
	MinBreak int // earliest accepted sentence break
}

// Shorten cuts text exceeding the budget at the last sentence break inside
// [MinBreak, Cut], else hard-cuts at Cut and terminates the sentence.
func Shorten(text string, b Budget) string {
	r := []rune(text)
	if b.Cut <= 0 || len(r) <= b.Limit {
		return text
	}

	best := -1
	for i := 0; i < len(r)-1; i++ {
		if !isTerminal(r[i]) || !unicode.IsSpace(r[i+1]) {
			continue
		}
		end := i + 1
		if end > b.Cut {
			break
		}
		if end >= b.MinBreak {
			best = end
		}
	}
	if best > 0 {
		return strings.TrimSpace(string(r[:best]))
	}

	cut := b.Cut
	if cut > len(r) {
		cut = len(r)
	}
	return terminate(string(r[:cut]))
}

// terminate trims text and makes sure it ends in sentence punctuation.
func terminate(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return s
	}
	s = strings.TrimRight(s, ",;: ")
	if s == "" {
		return s
	}
	last := []rune(s)
	if !isTerminal(last[len(last)-1]) {
		s += "."
	}
	return s
}

func isTerminal(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}
