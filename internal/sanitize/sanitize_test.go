package sanitize

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keshon/autoresponder/internal/config"
	"github.com/keshon/autoresponder/internal/persona"
)

func newSanitizer() *Sanitizer {
	s := New()
	s.SetRand(func(int) int { return 0 })
	return s
}

func defaultProfile() persona.Profile {
	return persona.Profile{Style: persona.StyleDefault, Emoji: persona.EmojiNone}
}

func TestHardTruncation(t *testing.T) {
	in := strings.Repeat("a", 60) + " " + strings.Repeat("b", 40) + ". " + strings.Repeat("c", 37)
	require.Equal(t, 140, len(in))

	out := newSanitizer().Apply(config.DefaultPolicy(), defaultProfile(), in)
	assert.LessOrEqual(t, utf8.RuneCountInString(out), 91)
	assert.True(t, strings.HasSuffix(out, "."), out)
}

func TestSentenceBreakTruncation(t *testing.T) {
	in := "Hey, so this is a fairly long opening sentence here. And then the second one keeps going on. Then a third that runs way past the cut."
	out := newSanitizer().Apply(config.DefaultPolicy(), defaultProfile(), in)
	assert.Equal(t, "Hey, so this is a fairly long opening sentence here.", out)
}

func TestTrailingCommaBecomesPeriod(t *testing.T) {
	out := Shorten("one two three, four five six", Budget{Limit: 10, Cut: 14})
	assert.Equal(t, "one two three.", out)
}

func TestPerIdentityCap(t *testing.T) {
	prof := defaultProfile()
	prof.LengthCap = 40
	out := newSanitizer().Apply(config.DefaultPolicy(), prof, "I will be there soon. Traffic is really bad today honestly ok")
	assert.Equal(t, "I will be there soon.", out)
}

func TestIdempotentOnShortText(t *testing.T) {
	s := newSanitizer()
	p := config.DefaultPolicy()
	for _, in := range []string{"Sounds good, see you at eight!", "Haan, kal milte hain.", "What time works for you?"} {
		once := s.Apply(p, defaultProfile(), in)
		assert.Equal(t, in, once)
		assert.Equal(t, once, s.Apply(p, defaultProfile(), once))
	}
}

func TestEmojiPolicy(t *testing.T) {
	s := newSanitizer()
	p := config.DefaultPolicy()

	assert.Equal(t, "Hi there!", s.Apply(p, defaultProfile(), "Hi 😊 there 🎉!"))

	one := defaultProfile()
	one.Emoji = persona.EmojiOne
	assert.Equal(t, "gg 🔥 nice", s.Apply(p, one, "gg 🔥🔥 nice 😎"))
	assert.Equal(t, "ok \u2764\uFE0F bye ", StripEmoji("ok \u2764\uFE0F bye \u2728", true))
}

func TestStripDisclaimers(t *testing.T) {
	assert.Equal(t, "I can't do that.", StripDisclaimers("As an AI, I can't do that."))
	assert.Equal(t, "That is hard.", StripDisclaimers("I'm sorry, but that is hard."))
	assert.Equal(t, "I am late", StripDisclaimers("Sorry, i am late"))
	assert.Equal(t, "no disclaimer here", StripDisclaimers("no disclaimer here"))
}

func TestSubstitutions(t *testing.T) {
	prof := persona.Resolve(func() *config.Policy {
		p := config.DefaultPolicy()
		p.Personas["r"] = config.PersonaEntry{Style: config.StyleRomantic}
		return p
	}(), persona.Request{Identity: "r"})

	out := newSanitizer().Apply(config.DefaultPolicy(), prof, "Hi Jaan, miss you sweetheart.")
	assert.Equal(t, "Hi baby, miss you.", out)
}

func TestShaping(t *testing.T) {
	s := newSanitizer()
	p := config.DefaultPolicy()
	prof := defaultProfile()
	prof.Shaping = persona.Shaping{Enabled: true, WordCap: 6}

	assert.Equal(t, "I will see you.", s.Apply(p, prof, "I think I would like to see you maybe later tonight."))
	assert.Equal(t, "You will come over.", s.Apply(p, prof, "You should come over"))
	assert.Equal(t, "I wouldn't go.", s.Apply(p, prof, "I wouldn't go"))
	assert.Equal(t, "I will call.", s.Apply(p, prof, "i want call"))

	prof.Shaping.WordCap = 3
	assert.Equal(t, "Are you coming to?", s.Apply(p, prof, "Are you coming to the party later?"))

	prof.Shaping = persona.Shaping{Enabled: true, InjectTerms: []string{"tonight"}}
	assert.Equal(t, "I will call you tonight.", s.Apply(p, prof, "I will call you."))
	assert.Equal(t, "See you tonight!", s.Apply(p, prof, "See you tonight!"))
	assert.Equal(t, "Free later?", s.Apply(p, prof, "Free later?"))
}

func TestSafetyHooks(t *testing.T) {
	s := newSanitizer()
	p := config.DefaultPolicy()
	prot := defaultProfile()
	prot.Safety = persona.SafetyClamped

	assert.Equal(t, p.Safety.Fallbacks[0], s.Apply(p, prot, "Sending you a kiss."))
	assert.Equal(t, "Sending you a kiss.", s.Apply(p, defaultProfile(), "Sending you a kiss."), "only clamped profiles are filtered")
	assert.Equal(t, "Send me a pic please.", s.Apply(p, prot, "Send me a pic please."), "patterns need the strict hook")

	p.Safety.Strict = true
	assert.Equal(t, p.Safety.Fallbacks[0], s.Apply(p, prot, "Send me a pic please."))

	p.Safety.Strict = false
	p.Safety.Lexicon = false
	assert.Equal(t, "Sending you a kiss.", s.Apply(p, prot, "Sending you a kiss."))
}

func TestNeverEmpty(t *testing.T) {
	s := newSanitizer()
	p := config.DefaultPolicy()
	assert.Equal(t, NeutralPhrase, s.Apply(p, defaultProfile(), "😊😊"))
	assert.Equal(t, NeutralPhrase, s.Apply(p, defaultProfile(), "As an AI,"))
	assert.Equal(t, NeutralPhrase, s.Apply(p, defaultProfile(), "   "))

	p.Safety.Fallbacks = nil
	prot := defaultProfile()
	prot.Safety = persona.SafetyClamped
	assert.Equal(t, NeutralPhrase, s.Apply(p, prot, "a kiss"))
}
