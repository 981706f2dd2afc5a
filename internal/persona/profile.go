// Package persona resolves which voice and sampling parameters apply to a
// counterpart. Resolution is a pure function of the identity and the policy
// snapshot.
package persona

// Style is the tag of a resolved profile.
type Style string

const (
	StyleDefault   Style = "default"
	StyleCasual    Style = "casual"
	StyleRomantic  Style = "romantic"
	StyleFlirty    Style = "flirty"
	StyleExplicit  Style = "explicit"
	StylePolite    Style = "polite"
	StyleGroupGame Style = "group-game"
)

// EmojiPolicy controls what the sanitizer does with emoji.
type EmojiPolicy int

const (
	EmojiNone EmojiPolicy = iota
	EmojiOne
)

// SafetyTier marks profiles whose output is run through the safety filters.
type SafetyTier int

const (
	SafetyNormal SafetyTier = iota
	SafetyClamped
)

// Substitution replaces a whole word, ignoring case. An empty To removes it.
type Substitution struct {
	From string
	To   string
}

// Shaping is the content shaping applied to the most direct style.
type Shaping struct {
	Enabled     bool
	WordCap     int
	InjectTerms []string
}

// Profile is the resolved generation and style policy for one message.
type Profile struct {
	Style        Style
	SystemPrompt string
	Instructions string
	Temperature  float64
	MaxTokens    int
	Emoji        EmojiPolicy
	Safety       SafetyTier
	// LengthCap overrides the global length budget when positive.
	LengthCap     int
	Substitutions []Substitution
	Shaping       Shaping

	DisplayName string
	Context     string
	Protected   bool
	Group       bool
	GroupName   string
}
