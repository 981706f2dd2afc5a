package persona

import (
	"strings"

	"github.com/keshon/autoresponder/internal/config"
)

// ProtectedTemperature is the sampling temperature forced on protected entries.
const ProtectedTemperature = 0.3

// Request identifies who a profile is resolved for.
type Request struct {
	Identity  string
	IsGroup   bool
	GroupName string
}

// styleFunc fills in the style-specific parts of a profile built from an entry.
type styleFunc func(base Profile, e config.PersonaEntry) Profile

var styles = map[string]styleFunc{
	config.StyleCasual:   casual,
	config.StyleRomantic: romantic,
	config.StyleFlirty:   flirty,
	config.StyleExplicit: explicit,
	config.StylePolite:   polite,
}

var affectionSubstitutions = []Substitution{
	{From: "jaan", To: "baby"},
	{From: "sweetheart", To: ""},
}

// Resolve picks the profile for req. A designated game group wins over
// everything, then an explicit persona entry, then the default profile.
func Resolve(p *config.Policy, req Request) Profile {
	if req.IsGroup {
		if p.GameGroup.Enabled && req.GroupName == p.GameGroup.Name {
			return gameGroup(p, req)
		}
		prof := defaultProfile(p)
		prof.Group = true
		prof.GroupName = req.GroupName
		return prof
	}

	e, ok := p.Persona(req.Identity)
	if !ok {
		return defaultProfile(p)
	}

	base := defaultProfile(p)
	base.DisplayName = e.Name
	base.Context = e.Context
	base.LengthCap = e.MaxResponseLength

	if e.Protected {
		return protected(base)
	}

	fn, ok := styles[e.Style]
	if !ok {
		return base
	}
	prof := fn(base, e)
	if e.Temperature != nil {
		prof.Temperature = *e.Temperature
	}
	if strings.TrimSpace(e.Instructions) != "" {
		prof.Instructions = e.Instructions
	}
	return prof
}

func defaultProfile(p *config.Policy) Profile {
	return Profile{
		Style:        StyleDefault,
		SystemPrompt: p.AI.SystemPrompt,
		Temperature:  p.AI.Temperature,
		MaxTokens:    p.AI.MaxTokens,
		Emoji:        EmojiNone,
		Safety:       SafetyNormal,
	}
}

func gameGroup(p *config.Policy, req Request) Profile {
	g := p.GameGroup
	temp := g.Temperature
	tokens := g.MaxTokens
	if tokens <= 0 {
		tokens = 100
	}
	return Profile{
		Style:        StyleGroupGame,
		SystemPrompt: g.Prompt,
		Instructions: "At most one emoji per message.",
		Temperature:  temp,
		MaxTokens:    tokens,
		Emoji:        EmojiOne,
		Group:        true,
		GroupName:    req.GroupName,
	}
}

// protected forces the least direct style regardless of the entry's nominal one.
func protected(base Profile) Profile {
	base.Style = StyleCasual
	base.Protected = true
	base.Safety = SafetyClamped
	base.Temperature = ProtectedTemperature
	base.MaxTokens = 50
	base.SystemPrompt = "You are replying to someone who must be treated with respect. " +
		"Be friendly, polite and brief. Keep the conversation appropriate, no flirting and no pet names."
	base.Instructions = ""
	return base
}

func casual(base Profile, _ config.PersonaEntry) Profile {
	base.Style = StyleCasual
	base.MaxTokens = 50
	base.Instructions = "Chat casually like a close friend. One or two short sentences."
	return base
}

func polite(base Profile, _ config.PersonaEntry) Profile {
	base.Style = StylePolite
	base.MaxTokens = 50
	base.Instructions = "Be polite and respectful. Keep replies brief and warm."
	return base
}

func romantic(base Profile, _ config.PersonaEntry) Profile {
	base.Style = StyleRomantic
	base.Temperature = 0.7
	base.MaxTokens = 50
	base.Instructions = "You are texting your partner. Be affectionate and sweet, keep it short and natural."
	base.Substitutions = affectionSubstitutions
	return base
}

func flirty(base Profile, _ config.PersonaEntry) Profile {
	base.Style = StyleFlirty
	base.Temperature = 0.8
	base.MaxTokens = 60
	base.Instructions = "Be playful and lightly teasing. Short replies, no long paragraphs."
	base.Substitutions = affectionSubstitutions
	return base
}

func explicit(base Profile, e config.PersonaEntry) Profile {
	base.Style = StyleExplicit
	base.Temperature = 0.95
	base.MaxTokens = 30
	base.Instructions = "Be bold and direct. Use short confident statements, never hedge."
	base.Shaping = Shaping{Enabled: true, WordCap: e.WordCap, InjectTerms: e.InjectTerms}
	return base
}
