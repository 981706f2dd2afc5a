// Package admission decides whether an inbound message is eligible for a
// reply. Rules run in a fixed order and the first rejection wins.
package admission

import (
	"slices"
	"strings"

	"github.com/keshon/autoresponder/internal/config"
	"github.com/keshon/autoresponder/internal/transport"
)

// Reason names the rule that dropped a message.
type Reason string

const (
	ReasonSelf             Reason = "self"
	ReasonGroupDisabled    Reason = "group-disabled"
	ReasonGroupBlocked     Reason = "group-blocked"
	ReasonPersonalDisabled Reason = "personal-disabled"
	ReasonNotAllowed       Reason = "not-allowed"
	ReasonBlocked          Reason = "blocked"
	ReasonWildcard         Reason = "wildcard"
	ReasonKillSwitch       Reason = "kill-switch"
	ReasonBlockedPhrase    Reason = "blocked-phrase"
)

// Verdict is the outcome of Evaluate. Reason is empty when Proceed is true.
type Verdict struct {
	Proceed bool
	Reason  Reason
}

// Rule inspects one aspect of an envelope and reports a drop reason.
type Rule struct {
	Name  string
	Check func(p *config.Policy, env transport.Envelope) (Reason, bool)
}

// Rules is the evaluation order.
var Rules = []Rule{
	WithSelfCheck(),
	WithChatTypeCheck(),
	WithAllowList(),
	WithBlockList(),
	WithKillSwitch(),
	WithBlockedPhrases(),
}

// Evaluate runs Rules against env. It does not modify any state.
func Evaluate(p *config.Policy, env transport.Envelope) Verdict {
	for _, r := range Rules {
		if reason, drop := r.Check(p, env); drop {
			return Verdict{Reason: reason}
		}
	}
	return Verdict{Proceed: true}
}

func WithSelfCheck() Rule {
	return Rule{Name: "self", Check: func(_ *config.Policy, env transport.Envelope) (Reason, bool) {
		return ReasonSelf, env.FromSelf
	}}
}

// WithChatTypeCheck applies the group and personal chat toggles. An explicitly
// allowed group passes even when groups are disabled.
func WithChatTypeCheck() Rule {
	return Rule{Name: "chat-type", Check: func(p *config.Policy, env transport.Envelope) (Reason, bool) {
		if !env.IsGroup {
			return ReasonPersonalDisabled, !p.Personal.Enabled
		}
		if slices.Contains(p.Groups.Allowed, env.GroupName) {
			return "", false
		}
		if !p.Groups.Enabled {
			return ReasonGroupDisabled, true
		}
		return ReasonGroupBlocked, slices.Contains(p.Groups.Blocked, env.GroupName)
	}}
}

func WithAllowList() Rule {
	return Rule{Name: "allow", Check: func(p *config.Policy, env transport.Envelope) (Reason, bool) {
		return ReasonNotAllowed, len(p.Allow) > 0 && !slices.Contains(p.Allow, env.Sender)
	}}
}

// WithBlockList drops blocked senders. A "*" entry blocks everyone who is not
// on the allow-list.
func WithBlockList() Rule {
	return Rule{Name: "block", Check: func(p *config.Policy, env transport.Envelope) (Reason, bool) {
		if slices.Contains(p.Block, env.Sender) {
			return ReasonBlocked, true
		}
		if slices.Contains(p.Block, "*") && !slices.Contains(p.Allow, env.Sender) {
			return ReasonWildcard, true
		}
		return "", false
	}}
}

func WithKillSwitch() Rule {
	return Rule{Name: "kill-switch", Check: func(p *config.Policy, _ transport.Envelope) (Reason, bool) {
		return ReasonKillSwitch, !p.Enabled
	}}
}

func WithBlockedPhrases() Rule {
	return Rule{Name: "phrases", Check: func(p *config.Policy, env transport.Envelope) (Reason, bool) {
		body := strings.ToLower(env.Body)
		for _, phrase := range p.BlockedPhrases {
			phrase = strings.ToLower(strings.TrimSpace(phrase))
			if phrase != "" && strings.Contains(body, phrase) {
				return ReasonBlockedPhrase, true
			}
		}
		return "", false
	}}
}
