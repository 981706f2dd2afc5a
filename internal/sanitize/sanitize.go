// Package sanitize shapes generated text before it is sent. Every stage is
// total over strings and the final output is never empty.
package sanitize

import (
	"math/rand"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/keshon/autoresponder/internal/config"
	"github.com/keshon/autoresponder/internal/persona"
)

// NeutralPhrase replaces output that every stage reduced to nothing.
const NeutralPhrase = "Will respond soon."

var disclaimers = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^\s*as an ai( language model)?[,.:;]?\s*`),
	regexp.MustCompile(`(?i)^\s*i am an ai( language model)?[,.:;]?\s*`),
	regexp.MustCompile(`(?i)^\s*as a language model[,.:;]?\s*`),
	regexp.MustCompile(`(?i)^\s*i'm sorry,? but\s*`),
}

var (
	sorryI      = regexp.MustCompile(`(?i)^\s*sorry,\s*i\b`)
	spaces      = regexp.MustCompile(`[ \t]{2,}`)
	spaceBefore = regexp.MustCompile(`\s+([,.!?])`)
	hedges      = regexp.MustCompile(`(?i)\b(i think|maybe|perhaps|possibly)\b,?\s*`)
	wouldLike   = regexp.MustCompile(`(?i)\bwould (like|love) to\b`)
	modals      = regexp.MustCompile(`(?i)\b(could|would|should)\b([^']|$)`)
	iWant       = regexp.MustCompile(`(?i)^i want\b`)
)

// Sanitizer applies the output stages. The zero value is not usable; use New.
type Sanitizer struct {
	intn func(n int) int
}

func New() *Sanitizer {
	return &Sanitizer{intn: rand.Intn}
}

// SetRand replaces the random source used for fallback and term picks.
func (s *Sanitizer) SetRand(intn func(n int) int) {
	s.intn = intn
}

// Apply runs the stages in order: disclaimers, substitutions, emoji, length,
// content shaping, safety.
func (s *Sanitizer) Apply(p *config.Policy, prof persona.Profile, text string) string {
	out := StripDisclaimers(text)
	out = Substitute(out, prof.Substitutions)
	out = tidy(StripEmoji(out, prof.Emoji == persona.EmojiOne))
	out = Shorten(out, BudgetFor(p.Sanitizer, prof.LengthCap))
	if prof.Shaping.Enabled {
		out = s.shape(out, prof.Shaping)
	}
	if prof.Safety == persona.SafetyClamped && Unsafe(out, p.Safety) {
		out = pick(p.Safety.Fallbacks, s.intn)
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return NeutralPhrase
	}
	return out
}

// BudgetFor returns the global budget, or a tight budget of capLen runes when
// a per-identity cap is set.
func BudgetFor(g config.SanitizerBudget, capLen int) Budget {
	if capLen > 0 {
		return Budget{Limit: capLen, Cut: capLen}
	}
	return Budget{Limit: g.Limit, Cut: g.Cut, MinBreak: g.MinBreak}
}

// StripDisclaimers removes assistant-style opening phrases.
func StripDisclaimers(s string) string {
	stripped := false
	for changed := true; changed; {
		changed = false
		for _, re := range disclaimers {
			if loc := re.FindStringIndex(s); loc != nil {
				s = s[loc[1]:]
				changed, stripped = true, true
			}
		}
	}
	if sorryI.MatchString(s) {
		s = sorryI.ReplaceAllString(s, "I")
		stripped = true
	}
	if stripped {
		s = capitalize(strings.TrimSpace(s))
	}
	return s
}

// Substitute replaces whole words case-insensitively.
func Substitute(s string, subs []persona.Substitution) string {
	if len(subs) == 0 {
		return s
	}
	for _, sub := range subs {
		re := regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(sub.From) + `\b`)
		s = re.ReplaceAllLiteralString(s, sub.To)
	}
	return tidy(s)
}

func (s *Sanitizer) shape(text string, sh persona.Shaping) string {
	words := strings.Fields(text)
	if utf8.RuneCountInString(text) > 50 && len(words) > 8 {
		text = strings.Join(words[:8], " ")
	}
	text = hedges.ReplaceAllString(text, "")
	text = wouldLike.ReplaceAllString(text, "will")
	text = modals.ReplaceAllString(text, "will${2}")
	text = iWant.ReplaceAllString(text, "I will")
	text = capitalize(tidy(text))

	question := strings.HasSuffix(text, "?")
	if sh.WordCap > 0 {
		limit := sh.WordCap
		if question {
			limit++
		}
		if words := strings.Fields(text); len(words) > limit {
			text = strings.Join(words[:limit], " ")
			if question && !strings.HasSuffix(text, "?") {
				text = strings.TrimRight(text, ",;:.! ") + "?"
			}
		}
	}
	text = terminate(text)

	if len(sh.InjectTerms) > 0 && !question && !containsAnyPhrase(text, sh.InjectTerms) {
		term := sh.InjectTerms[s.intn(len(sh.InjectTerms))]
		body := strings.TrimRight(text, ".!")
		end := text[len(body):]
		if end == "" {
			end = "."
		}
		text = body + " " + term + end
	}
	return text
}

// Unsafe reports whether text trips the enabled safety hooks. The lexicon
// hook checks Words; the strict hook checks Words and Patterns.
func Unsafe(text string, sf config.Safety) bool {
	if !sf.Lexicon && !sf.Strict {
		return false
	}
	if containsAnyPhrase(text, sf.Words) {
		return true
	}
	if sf.Strict {
		for _, re := range sf.CompiledPatterns() {
			if re.MatchString(text) {
				return true
			}
		}
	}
	return false
}

// containsAnyPhrase matches phrases as whole-word sequences, ignoring case.
func containsAnyPhrase(text string, phrases []string) bool {
	tokens := words(text)
	for _, ph := range phrases {
		want := words(ph)
		if len(want) == 0 || len(want) > len(tokens) {
			continue
		}
		for i := 0; i+len(want) <= len(tokens); i++ {
			match := true
			for j, w := range want {
				if tokens[i+j] != w {
					match = false
					break
				}
			}
			if match {
				return true
			}
		}
	}
	return false
}

func words(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\''
	})
}

func tidy(s string) string {
	s = spaces.ReplaceAllString(s, " ")
	s = spaceBefore.ReplaceAllString(s, "$1")
	return strings.TrimSpace(s)
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError || !unicode.IsLower(r) {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

func pick(pool []string, intn func(int) int) string {
	if len(pool) == 0 {
		return NeutralPhrase
	}
	return pool[intn(len(pool))]
}
