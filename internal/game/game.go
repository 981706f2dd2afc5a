// Package game runs the truth-or-dare mini-game. While a session is active
// it answers messages itself and the generation pipeline is skipped.
package game

import (
	"math/rand"
	"slices"
	"strings"
	"time"
	"unicode"

	"github.com/keshon/autoresponder/internal/config"
)

const (
	MenuStandard   = "Choose 'truth', 'dare', 'spicy truth (st)', 'spicy dare (sd)', or 'extreme dare (xd)'"
	MenuRestricted = "Choose 'truth' or 'dare'"
	EndMessage     = "Game ended! We can play again anytime."
	NoQuestions    = "No questions available"
	nextRound      = "Next round? "
)

var (
	terminations = []string{"stop", "end", "quit"}
	menuRequests = []string{"next", "another"}
	affirmations = []string{"ok", "okay", "done", "yes", "haan", "ha", "han", "sure", "did it", "kar diya"}
)

var headers = map[QuestionType]string{
	QuestionTruth:       "🤔 TRUTH 🤔",
	QuestionDare:        "😈 DARE 😈",
	QuestionSpicyTruth:  "🔥 SPICY TRUTH 🔥",
	QuestionSpicyDare:   "🔥 SPICY DARE 🔥",
	QuestionExtremeDare: "⚠️ EXTREME DARE ⚠️",
}

const safeDareHeader = "😄 DARE 😄"

// Result reports whether the game consumed the message and what to reply.
type Result struct {
	IsGameResponse bool
	Message        string
	Ended          bool
}

// Manager applies game transitions against a SessionStore.
type Manager struct {
	store SessionStore
	intn  func(n int) int
	now   func() time.Time
}

func NewManager(store SessionStore) *Manager {
	return &Manager{store: store, intn: rand.Intn, now: time.Now}
}

// SetRand replaces the random source used for pool picks.
func (m *Manager) SetRand(intn func(n int) int) {
	m.intn = intn
}

// Active reports whether identity has a running session.
func (m *Manager) Active(identity string) bool {
	_, ok := m.store.Session(identity)
	return ok
}

// Handle advances identity's session with text. The caller serializes calls
// per identity.
func (m *Manager) Handle(p *config.Policy, identity, text string, protected bool) Result {
	msg := strings.ToLower(strings.TrimSpace(text))

	if isTrigger(p.Game.Triggers, msg) {
		return m.start(p, identity, msg, protected)
	}

	s, ok := m.store.Session(identity)
	if !ok {
		return Result{}
	}

	if slices.Contains(terminations, msg) {
		m.store.ClearSession(identity)
		return Result{IsGameResponse: true, Message: EndMessage, Ended: true}
	}

	if s.State == StateAwaitingAnswer {
		return m.answer(p, identity, s, msg)
	}

	if slices.Contains(menuRequests, msg) {
		return Result{IsGameResponse: true, Message: menu(s.Tier)}
	}
	q := parseChoice(msg, s.Tier)
	if q == QuestionNone {
		return Result{IsGameResponse: true, Message: menu(s.Tier)}
	}
	return m.ask(p, identity, s, q)
}

func (m *Manager) start(p *config.Policy, identity, msg string, protected bool) Result {
	mode := p.Game.DefaultMode
	switch {
	case strings.Contains(msg, config.ModeSpicy):
		mode = config.ModeSpicy
	case strings.Contains(msg, config.ModeExtreme):
		mode = config.ModeExtreme
	}
	tier := TierStandard
	if protected {
		tier = TierRestricted
		mode = config.ModeCasual
	}
	m.store.SetSession(identity, Session{
		State:     StateAwaitingChoice,
		Mode:      mode,
		Tier:      tier,
		StartedAt: m.now(),
	})
	start := p.Game.StartMessage
	if start == "" {
		start = "Let's play Truth or Dare!"
	}
	return Result{IsGameResponse: true, Message: start + "\n\n" + menu(tier)}
}

func (m *Manager) ask(p *config.Policy, identity string, s Session, q QuestionType) Result {
	pool, header := m.pool(p.Game.Questions, s.Tier, q)
	question := NoQuestions
	if len(pool) > 0 {
		question = pool[m.intn(len(pool))]
	}
	s.State = StateAwaitingAnswer
	s.Question = q
	s.LastQuestion = question
	m.store.SetSession(identity, s)
	return Result{IsGameResponse: true, Message: header + "\n" + question}
}

func (m *Manager) answer(p *config.Policy, identity string, s Session, msg string) Result {
	reactions := reactionPool(p.Game.Reactions, s.Question, affirmed(msg))
	reaction := "Nice!"
	if len(reactions) > 0 {
		reaction = reactions[m.intn(len(reactions))]
	}
	s.Responses++
	s.State = StateAwaitingChoice
	s.Question = QuestionNone
	m.store.SetSession(identity, s)
	return Result{IsGameResponse: true, Message: reaction + "\n\n" + nextRound + menu(s.Tier)}
}

func (m *Manager) pool(q config.QuestionPools, tier Tier, t QuestionType) ([]string, string) {
	if tier == TierRestricted {
		if t == QuestionTruth {
			return firstNonEmpty(q.SafeTruth, q.Truth), headers[QuestionTruth]
		}
		return firstNonEmpty(q.SafeDare, q.Dare), safeDareHeader
	}
	switch t {
	case QuestionSpicyTruth:
		return q.SpicyTruth, headers[t]
	case QuestionSpicyDare:
		return q.SpicyDare, headers[t]
	case QuestionExtremeDare:
		return q.ExtremeDare, headers[t]
	case QuestionDare:
		return q.Dare, headers[t]
	default:
		return q.Truth, headers[QuestionTruth]
	}
}

func reactionPool(r config.Reactions, q QuestionType, affirmed bool) []string {
	if !q.dareLike() {
		if q == QuestionSpicyTruth && len(r.SpicyTruth) > 0 {
			return r.SpicyTruth
		}
		return r.Truth
	}
	switch q {
	case QuestionSpicyDare:
		if affirmed {
			return r.SpicyDareAffirm
		}
		return r.SpicyDareDecline
	case QuestionExtremeDare:
		if affirmed {
			return r.ExtremeDareAffirm
		}
		return r.ExtremeDareDecline
	default:
		if affirmed {
			return r.DareAffirm
		}
		return r.DareDecline
	}
}

// parseChoice maps a choice message onto a subtype. Modifiers are ignored
// for the restricted tier.
func parseChoice(msg string, tier Tier) QuestionType {
	truth := strings.Contains(msg, "truth") || msg == "t" || msg == "st"
	dare := strings.Contains(msg, "dare") || msg == "d" || msg == "sd" || msg == "xd"
	switch {
	case truth:
		if tier == TierStandard && (strings.Contains(msg, "spicy") || msg == "st") {
			return QuestionSpicyTruth
		}
		return QuestionTruth
	case dare:
		if tier == TierStandard {
			if strings.Contains(msg, "extreme") || msg == "xd" {
				return QuestionExtremeDare
			}
			if strings.Contains(msg, "spicy") || msg == "sd" {
				return QuestionSpicyDare
			}
		}
		return QuestionDare
	}
	return QuestionNone
}

func menu(t Tier) string {
	if t == TierRestricted {
		return MenuRestricted
	}
	return MenuStandard
}

func isTrigger(triggers []string, msg string) bool {
	for _, t := range triggers {
		t = strings.ToLower(strings.TrimSpace(t))
		if t != "" && strings.Contains(msg, t) {
			return true
		}
	}
	return false
}

// affirmed reports whether an answer agrees to the dare. Entries match whole
// words so that "ha" does not fire inside "what" or "nah".
func affirmed(msg string) bool {
	padded := " " + strings.Join(strings.FieldsFunc(msg, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}), " ") + " "
	for _, a := range affirmations {
		if strings.Contains(padded, " "+a+" ") {
			return true
		}
	}
	return false
}

func firstNonEmpty(a, b []string) []string {
	if len(a) > 0 {
		return a
	}
	return b
}
