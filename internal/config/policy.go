package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// Persona styles accepted in the policy file.
const (
	StyleCasual   = "casual"
	StyleRomantic = "romantic"
	StyleFlirty   = "flirty"
	StyleExplicit = "explicit"
	StylePolite   = "polite"
)

// Game modes.
const (
	ModeCasual  = "casual"
	ModeSpicy   = "spicy"
	ModeExtreme = "extreme"
)

// Policy is an immutable snapshot of reply behavior. Components read it and
// never write it back; reloads swap in a whole new value.
type Policy struct {
	Enabled         bool                    `yaml:"enabled"`
	Allow           []string                `yaml:"allow"`
	Block           []string                `yaml:"block"`
	BlockedPhrases  []string                `yaml:"blocked_phrases"`
	Personal        PersonalPolicy          `yaml:"personal"`
	Groups          GroupPolicy             `yaml:"groups"`
	CooldownMinutes float64                 `yaml:"cooldown_minutes"`
	Personas        map[string]PersonaEntry `yaml:"personas"`
	GameGroup       GameGroup               `yaml:"game_group"`
	AI              AIDefaults              `yaml:"ai"`
	Proactive       Proactive               `yaml:"proactive"`
	Game            Game                    `yaml:"game"`
	Sanitizer       SanitizerBudget         `yaml:"sanitizer"`
	Safety          Safety                  `yaml:"safety"`
	Fallbacks       Fallbacks               `yaml:"fallbacks"`

	// Relay maps a contact to the identity its direct messages are forwarded
	// to instead of being answered.
	Relay map[string]string `yaml:"relay"`
}

type PersonalPolicy struct {
	Enabled bool `yaml:"enabled"`
}

type GroupPolicy struct {
	Enabled bool     `yaml:"enabled"`
	Allowed []string `yaml:"allowed"`
	Blocked []string `yaml:"blocked"`
}

// PersonaEntry configures how one counterpart is addressed.
type PersonaEntry struct {
	Name              string   `yaml:"name"`
	Style             string   `yaml:"style"`
	Protected         bool     `yaml:"protected"`
	Temperature       *float64 `yaml:"temperature"`
	Instructions      string   `yaml:"instructions"`
	Context           string   `yaml:"context"`
	MaxResponseLength int      `yaml:"max_response_length"`
	ReducedFrequency  bool     `yaml:"reduced_frequency"`
	Proactive         bool     `yaml:"proactive"`
	WordCap           int      `yaml:"word_cap"`
	InjectTerms       []string `yaml:"inject_terms"`
}

// GameGroup is the single group chat that gets its own persona.
type GameGroup struct {
	Enabled     bool    `yaml:"enabled"`
	Name        string  `yaml:"name"`
	Prompt      string  `yaml:"prompt"`
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
}

type AIDefaults struct {
	SystemPrompt string  `yaml:"system_prompt"`
	Temperature  float64 `yaml:"temperature"`
	MaxTokens    int     `yaml:"max_tokens"`
}

type Proactive struct {
	Enabled          bool                `yaml:"enabled"`
	FrequencyMinutes float64             `yaml:"frequency_minutes"`
	NameProbability  float64             `yaml:"name_probability"`
	Templates        map[string][]string `yaml:"templates"`
}

type Game struct {
	Triggers     []string      `yaml:"triggers"`
	DefaultMode  string        `yaml:"default_mode"`
	StartMessage string        `yaml:"start_message"`
	Questions    QuestionPools `yaml:"questions"`
	Reactions    Reactions     `yaml:"reactions"`
}

type QuestionPools struct {
	Truth       []string `yaml:"truth"`
	Dare        []string `yaml:"dare"`
	SpicyTruth  []string `yaml:"spicy_truth"`
	SpicyDare   []string `yaml:"spicy_dare"`
	ExtremeDare []string `yaml:"extreme_dare"`
	SafeTruth   []string `yaml:"safe_truth"`
	SafeDare    []string `yaml:"safe_dare"`
}

type Reactions struct {
	Truth              []string `yaml:"truth"`
	DareAffirm         []string `yaml:"dare_affirm"`
	DareDecline        []string `yaml:"dare_decline"`
	SpicyTruth         []string `yaml:"spicy_truth"`
	SpicyDareAffirm    []string `yaml:"spicy_dare_affirm"`
	SpicyDareDecline   []string `yaml:"spicy_dare_decline"`
	ExtremeDareAffirm  []string `yaml:"extreme_dare_affirm"`
	ExtremeDareDecline []string `yaml:"extreme_dare_decline"`
}

// SanitizerBudget is the global length budget. A reply longer than Limit is
// cut at a sentence break between MinBreak and Cut, or hard-cut at Cut.
type SanitizerBudget struct {
	Limit    int `yaml:"limit"`
	Cut      int `yaml:"cut"`
	MinBreak int `yaml:"min_break"`
}

// Safety holds the output filters applied to protected identities.
type Safety struct {
	Lexicon   bool     `yaml:"lexicon"`
	Strict    bool     `yaml:"strict"`
	Words     []string `yaml:"words"`
	Patterns  []string `yaml:"patterns"`
	Fallbacks []string `yaml:"fallbacks"`

	compiled []*regexp.Regexp
}

// CompiledPatterns returns Patterns compiled by Validate.
func (s Safety) CompiledPatterns() []*regexp.Regexp { return s.compiled }

func (s *Safety) compile() []error {
	var errs []error
	s.compiled = nil
	for _, pat := range s.Patterns {
		re, err := regexp.Compile(pat)
		if err != nil {
			errs = append(errs, fmt.Errorf("safety pattern %q: %w", pat, err))
			continue
		}
		s.compiled = append(s.compiled, re)
	}
	return errs
}

type Fallbacks struct {
	RateLimited    string   `yaml:"rate_limited"`
	Apology        []string `yaml:"apology"`
	RelayDelivered string   `yaml:"relay_delivered"`
	RelayFailed    string   `yaml:"relay_failed"`
}

// DefaultPolicy returns the built-in policy that a YAML file is layered on.
func DefaultPolicy() *Policy {
	p := &Policy{
		Enabled:  true,
		Personal: PersonalPolicy{Enabled: true},
		Personas: map[string]PersonaEntry{},
		GameGroup: GameGroup{
			Temperature: 0.7,
			MaxTokens:   100,
			Prompt: "You are a regular member of a gaming group chat. Talk like a teammate: " +
				"short, casual, a bit competitive. You know the game, its agents, maps and ranked grind.",
		},
		AI: AIDefaults{
			SystemPrompt: "You are replying to chat messages on behalf of the account owner. " +
				"Write like a real person texting: short, natural, no assistant phrasing, never mention being an AI.",
			Temperature: 0.7,
			MaxTokens:   80,
		},
		Proactive: Proactive{
			FrequencyMinutes: 120,
			NameProbability:  0.2,
			Templates: map[string][]string{
				"romantic": {"Thinking about you.", "Hope your day is going well, miss you.", "How is your day going?"},
				"polite":   {"Hope you are doing well.", "Just checking in, how have you been?"},
				"flirty":   {"Guess who was on my mind?", "You have been quiet today.", "What are you up to?"},
				"safe":     {"Hope you are doing well.", "How have you been?"},
				"default":  {"Hey, how are you doing?", "What's up?", "Long time, how have you been?"},
			},
		},
		Game: Game{
			Triggers:     []string{"truth or dare", "truth and dare"},
			DefaultMode:  ModeCasual,
			StartMessage: "Let's play Truth or Dare! Choose 'truth' or 'dare' to start playing.",
			Questions: QuestionPools{
				Truth: []string{
					"What is the most embarrassing thing you have done in public?",
					"What is a secret talent nobody knows about?",
					"Who was your first crush?",
					"What is the last lie you told?",
				},
				Dare: []string{
					"Send the last photo in your gallery.",
					"Text someone 'I know what you did' and tell me their reply.",
					"Sing the chorus of your favourite song and send a voice note.",
					"Change your status to something I pick for an hour.",
				},
				SpicyTruth: []string{
					"What is the boldest thing you have done to impress someone?",
					"Have you ever had a crush on a friend's partner?",
					"What is your idea of a perfect date?",
				},
				SpicyDare: []string{
					"Send a voice note saying the cheesiest pickup line you know.",
					"Describe your crush in three words.",
					"Let me write your next status message.",
				},
				ExtremeDare: []string{
					"Call the third person in your contacts and sing happy birthday.",
					"Post an embarrassing childhood photo for ten minutes.",
					"Send a voice note confessing your weirdest habit.",
				},
				SafeTruth: []string{
					"What is your favourite movie of all time?",
					"What is one place you really want to travel to?",
					"What was your favourite subject in school?",
				},
				SafeDare: []string{
					"Send your favourite song right now.",
					"Tell me a joke.",
					"Describe your day using only emojis.",
				},
			},
			Reactions: Reactions{
				Truth:              []string{"Interesting answer!", "Ooh, didn't expect that.", "Haha, noted."},
				DareAffirm:         []string{"Nice, you did it!", "Respect for actually doing it."},
				DareDecline:        []string{"Chicken! Next time then.", "Skipping already?"},
				SpicyTruth:         []string{"Bold answer!", "Well, that says a lot."},
				SpicyDareAffirm:    []string{"Bold move!", "Didn't think you would do it."},
				SpicyDareDecline:   []string{"Too spicy for you?", "Fair, that one was tough."},
				ExtremeDareAffirm:  []string{"Legend. Absolute legend.", "Okay, you win this round."},
				ExtremeDareDecline: []string{"Understandable, that one was wild.", "No shame in passing."},
			},
		},
		Sanitizer: SanitizerBudget{Limit: 100, Cut: 90, MinBreak: 30},
		Safety: Safety{
			Lexicon: true,
			Words:   []string{"sexy", "hot body", "kiss", "bed", "naked"},
			Patterns: []string{
				`(?i)\bsend\s+(me\s+)?(a\s+)?(pic|photo)s?\b`,
				`(?i)\b(come|stay)\s+over\s+tonight\b`,
			},
			Fallbacks: []string{"Aap kaise hain?", "Will respond soon.", "Hope you are doing well.", "Baad mein baat karte hain."},
		},
		Fallbacks: Fallbacks{
			RateLimited: "Sorry, reached message limit. Try again in a few minutes.",
			Apology: []string{
				"Sorry, having trouble responding. Try again soon.",
				"Thodi der baad baat karein?",
				"Connection issue hai. Baad mein reply karunga.",
				"Abhi busy hoon, thodi der mein free.",
				"Message dekha, jaldi reply karunga.",
				"Will respond soon.",
			},
			RelayDelivered: "Message delivered ✓",
			RelayFailed:    "Sorry, couldn't deliver your message at this time.",
		},
	}
	p.Safety.compile()
	return p
}

// LoadPolicy reads a YAML policy file on top of DefaultPolicy and validates it.
func LoadPolicy(path string) (*Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read policy: %w", err)
	}
	return ParsePolicy(data)
}

// ParsePolicy decodes YAML on top of DefaultPolicy and validates the result.
func ParsePolicy(data []byte) (*Policy, error) {
	p := DefaultPolicy()
	if err := yaml.Unmarshal(data, p); err != nil {
		return nil, fmt.Errorf("decode policy: %w", err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Validate normalizes identifiers and rejects values components cannot use.
func (p *Policy) Validate() error {
	var errs []error

	if p.Personas == nil {
		p.Personas = map[string]PersonaEntry{}
	}
	for id, e := range p.Personas {
		e.Style = strings.ToLower(strings.TrimSpace(e.Style))
		switch e.Style {
		case "", StyleCasual, StyleRomantic, StyleFlirty, StyleExplicit, StylePolite:
		default:
			errs = append(errs, fmt.Errorf("persona %s: unknown style %q", id, e.Style))
		}
		if e.Temperature != nil && (*e.Temperature < 0 || *e.Temperature > 1) {
			errs = append(errs, fmt.Errorf("persona %s: temperature %.2f outside [0,1]", id, *e.Temperature))
		}
		if e.MaxResponseLength < 0 || e.WordCap < 0 {
			errs = append(errs, fmt.Errorf("persona %s: negative length limits", id))
		}
		p.Personas[id] = e
	}

	if p.AI.Temperature < 0 || p.AI.Temperature > 1 {
		errs = append(errs, fmt.Errorf("ai.temperature %.2f outside [0,1]", p.AI.Temperature))
	}
	if p.AI.MaxTokens <= 0 {
		errs = append(errs, errors.New("ai.max_tokens must be positive"))
	}
	if p.GameGroup.Enabled && strings.TrimSpace(p.GameGroup.Name) == "" {
		errs = append(errs, errors.New("game_group.name is required when enabled"))
	}
	if p.GameGroup.Temperature < 0 || p.GameGroup.Temperature > 1 {
		errs = append(errs, fmt.Errorf("game_group.temperature %.2f outside [0,1]", p.GameGroup.Temperature))
	}

	switch p.Game.DefaultMode {
	case ModeCasual, ModeSpicy, ModeExtreme:
	case "":
		p.Game.DefaultMode = ModeCasual
	default:
		errs = append(errs, fmt.Errorf("game.default_mode %q unknown", p.Game.DefaultMode))
	}

	s := p.Sanitizer
	if s.Cut <= 0 || s.Limit < s.Cut || s.MinBreak < 0 || s.MinBreak > s.Cut {
		errs = append(errs, fmt.Errorf("sanitizer budget invalid (limit=%d cut=%d min_break=%d)", s.Limit, s.Cut, s.MinBreak))
	}

	if p.Proactive.FrequencyMinutes <= 0 {
		errs = append(errs, errors.New("proactive.frequency_minutes must be positive"))
	}
	if p.Proactive.NameProbability < 0 || p.Proactive.NameProbability > 1 {
		errs = append(errs, errors.New("proactive.name_probability outside [0,1]"))
	}
	if p.CooldownMinutes < 0 {
		errs = append(errs, errors.New("cooldown_minutes must not be negative"))
	}

	relay := make(map[string]string, len(p.Relay))
	for from, to := range p.Relay {
		from, to = strings.TrimSpace(from), strings.TrimSpace(to)
		switch {
		case from == "" || to == "":
			errs = append(errs, fmt.Errorf("relay %q -> %q: both ends are required", from, to))
		case from == to:
			errs = append(errs, fmt.Errorf("relay %s: target must differ from source", from))
		}
		relay[from] = to
	}
	p.Relay = relay

	errs = append(errs, p.Safety.compile()...)
	if len(p.Fallbacks.Apology) == 0 {
		errs = append(errs, errors.New("fallbacks.apology must not be empty"))
	}

	return errors.Join(errs...)
}

// RelayTarget returns the identity that direct messages from id are
// forwarded to, if any.
func (p *Policy) RelayTarget(id string) (string, bool) {
	to, ok := p.Relay[id]
	return to, ok
}

// Persona returns the entry for id, if configured.
func (p *Policy) Persona(id string) (PersonaEntry, bool) {
	e, ok := p.Personas[id]
	return e, ok
}
