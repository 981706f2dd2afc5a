// Package convo derives conversation signals (topics, sentiment, language
// mix, repetition) from a bounded window of recent turns.
package convo

import (
	"regexp"
	"strings"
	"unicode"
)

// Window is the number of recent turns kept in a Context.
const Window = 15

// Role tags who authored a turn.
type Role string

const (
	RoleThem Role = "them"
	RoleSelf Role = "self"
)

type Turn struct {
	Role   Role
	Author string
	Text   string
}

type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNegative Sentiment = "negative"
	SentimentNeutral  Sentiment = "neutral"
)

// Language style levels.
const (
	StyleMostlyHinglish = "Primarily Hinglish with some English mixed in"
	StyleMixed          = "Mix of Hindi and English with more English words"
	StyleMostlyEnglish  = "Mostly English with occasional Hindi words"
	StyleEnglish        = "Primarily English messages"
	StyleNoHistory      = "No previous messages to analyze"
)

// Repetition labels.
const (
	RepeatStatus   = "repeatedly asking how they are"
	RepeatActivity = "repeatedly asking what they're doing"
	RepeatExact    = "repeating the exact same message"
)

// Context is derived fresh for every message and never stored.
type Context struct {
	Turns         []Turn
	Topics        []string
	Sentiment     Sentiment
	LanguageStyle string
	Repetition    string
}

type topic struct {
	name     string
	keywords []string
}

var topics = []topic{
	{"work", []string{"work", "job", "office"}},
	{"education", []string{"study", "class", "college"}},
	{"entertainment", []string{"movie", "film", "watch"}},
	{"food", []string{"food", "eat", "restaurant"}},
	{"gaming", []string{"game", "play", "valorant"}},
}

var gamingSubtopics = []topic{
	{"valorant agents", []string{"jett", "raze", "phoenix", "reyna"}},
	{"valorant maps", []string{"bind", "haven", "split", "ascent"}},
	{"valorant weapons", []string{"vandal", "phantom", "operator", "sheriff"}},
	{"ranked", []string{"rank", "competitive", "radiant", "immortal"}},
}

var (
	positiveWords = set("happy", "good", "great", "love", "nice", "awesome", "wonderful", "thanks", "thank", "cool", "excited")
	negativeWords = set("sad", "bad", "terrible", "hate", "awful", "upset", "angry", "annoyed", "disappointed", "sorry")
	hinglishWords = set("kya", "main", "tum", "aap", "hai", "hain", "mein", "kar", "raha", "rahi", "ho",
		"kaise", "kyun", "acha", "nahi", "haan", "baat", "kuch", "bahut", "thoda")
)

var (
	statusInquiry   = regexp.MustCompile(`(?i)how are you|kaise ho|kaisa hai|kya haal hai`)
	activityInquiry = regexp.MustCompile(`(?i)what (are you doing|do you do)|kya kar rahe ho|kya kar rahi ho`)
)

// Assemble builds a Context from history (oldest first) and the current
// counterpart message. Empty turns are skipped.
func Assemble(history []Turn, current string) Context {
	turns := make([]Turn, 0, len(history))
	for _, t := range history {
		if strings.TrimSpace(t.Text) != "" {
			turns = append(turns, t)
		}
	}
	if len(turns) > Window {
		turns = turns[len(turns)-Window:]
	}

	var all []string
	for _, t := range turns {
		all = append(all, t.Text)
	}
	all = append(all, current)

	return Context{
		Turns:         turns,
		Topics:        Topics(strings.Join(all, " ")),
		Sentiment:     Analyze(current),
		LanguageStyle: LanguageStyle(lastN(turns, RoleThem, 3)),
		Repetition:    Repetition(lastN(turns, RoleSelf, 3)),
	}
}

// Topics returns the topic vocabulary entries matched by text. Gaming
// subtopics are only considered once gaming itself is detected.
func Topics(text string) []string {
	tokens := tokenize(text)
	var out []string
	gaming := false
	for _, tp := range topics {
		if matchAny(tokens, tp.keywords) {
			out = append(out, tp.name)
			gaming = gaming || tp.name == "gaming"
		}
	}
	if gaming {
		for _, tp := range gamingSubtopics {
			if matchAny(tokens, tp.keywords) {
				out = append(out, tp.name)
			}
		}
	}
	return out
}

// Analyze counts lexicon hits; the majority wins and ties are neutral.
func Analyze(text string) Sentiment {
	pos, neg := 0, 0
	for _, tok := range tokenize(text) {
		if _, ok := positiveWords[tok]; ok {
			pos++
		}
		if _, ok := negativeWords[tok]; ok {
			neg++
		}
	}
	switch {
	case pos > neg:
		return SentimentPositive
	case neg > pos:
		return SentimentNegative
	default:
		return SentimentNeutral
	}
}

// LanguageStyle buckets the share of bilingual marker tokens in turns.
func LanguageStyle(turns []Turn) string {
	if len(turns) == 0 {
		return StyleNoHistory
	}
	total, marked := 0, 0
	for _, t := range turns {
		for _, tok := range tokenize(t.Text) {
			total++
			if _, ok := hinglishWords[tok]; ok {
				marked++
			}
		}
	}
	if total == 0 {
		return StyleEnglish
	}
	ratio := float64(marked) / float64(total)
	switch {
	case ratio > 0.5:
		return StyleMostlyHinglish
	case ratio > 0.3:
		return StyleMixed
	case ratio > 0.1:
		return StyleMostlyEnglish
	default:
		return StyleEnglish
	}
}

// Repetition inspects self-authored turns for repeated questions.
func Repetition(self []Turn) string {
	if len(self) < 2 {
		return ""
	}
	status, activity := 0, 0
	seen := make(map[string]bool, len(self))
	exact := false
	for _, t := range self {
		if statusInquiry.MatchString(t.Text) {
			status++
		}
		if activityInquiry.MatchString(t.Text) {
			activity++
		}
		key := strings.ToLower(strings.TrimSpace(t.Text))
		if seen[key] {
			exact = true
		}
		seen[key] = true
	}
	switch {
	case status >= 2:
		return RepeatStatus
	case activity >= 2:
		return RepeatActivity
	case exact:
		return RepeatExact
	}
	return ""
}

func lastN(turns []Turn, role Role, n int) []Turn {
	var out []Turn
	for i := len(turns) - 1; i >= 0 && len(out) < n; i-- {
		if turns[i].Role == role {
			out = append(out, turns[i])
		}
	}
	return out
}

// tokenize lowercases and splits on anything that is not a letter or digit.
func tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// matchAny reports whether some token starts with one of the keywords.
func matchAny(tokens, keywords []string) bool {
	for _, tok := range tokens {
		for _, kw := range keywords {
			if strings.HasPrefix(tok, kw) {
				return true
			}
		}
	}
	return false
}

func set(words ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}
