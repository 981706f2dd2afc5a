package admission

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/keshon/autoresponder/internal/config"
	"github.com/keshon/autoresponder/internal/transport"
)

func policy(mut func(p *config.Policy)) *config.Policy {
	p := config.DefaultPolicy()
	if mut != nil {
		mut(p)
	}
	return p
}

func TestEvaluate(t *testing.T) {
	direct := transport.Envelope{Sender: "alice", Chat: "alice", Body: "hey there"}
	group := transport.Envelope{Sender: "bob", Chat: "g1", Body: "gg", IsGroup: true, GroupName: "squad"}

	tests := []struct {
		name   string
		p      *config.Policy
		env    transport.Envelope
		want   Reason
		accept bool
	}{
		{"plain direct message", policy(nil), direct, "", true},
		{"own message", policy(nil), transport.Envelope{FromSelf: true, Sender: "alice"}, ReasonSelf, false},
		{"groups disabled", policy(nil), group, ReasonGroupDisabled, false},
		{"group explicitly allowed", policy(func(p *config.Policy) { p.Groups.Allowed = []string{"squad"} }), group, "", true},
		{"group blocked", policy(func(p *config.Policy) {
			p.Groups.Enabled = true
			p.Groups.Blocked = []string{"squad"}
		}), group, ReasonGroupBlocked, false},
		{"group enabled", policy(func(p *config.Policy) { p.Groups.Enabled = true }), group, "", true},
		{"personal disabled", policy(func(p *config.Policy) { p.Personal.Enabled = false }), direct, ReasonPersonalDisabled, false},
		{"allow-list miss", policy(func(p *config.Policy) { p.Allow = []string{"carol"} }), direct, ReasonNotAllowed, false},
		{"allow-list hit", policy(func(p *config.Policy) { p.Allow = []string{"alice"} }), direct, "", true},
		{"block-list", policy(func(p *config.Policy) { p.Block = []string{"alice"} }), direct, ReasonBlocked, false},
		{"wildcard block", policy(func(p *config.Policy) { p.Block = []string{"*"} }), direct, ReasonWildcard, false},
		{"wildcard with allow", policy(func(p *config.Policy) {
			p.Block = []string{"*"}
			p.Allow = []string{"alice"}
		}), direct, "", true},
		{"allow-list miss outranks block-list", policy(func(p *config.Policy) {
			p.Allow = []string{"bob"}
			p.Block = []string{"alice"}
		}), direct, ReasonNotAllowed, false},
		{"allow-list miss outranks wildcard", policy(func(p *config.Policy) {
			p.Allow = []string{"bob"}
			p.Block = []string{"*"}
		}), direct, ReasonNotAllowed, false},
		{"kill switch", policy(func(p *config.Policy) { p.Enabled = false }), direct, ReasonKillSwitch, false},
		{"blocked phrase any case", policy(func(p *config.Policy) { p.BlockedPhrases = []string{"THERE"} }), direct, ReasonBlockedPhrase, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := Evaluate(tt.p, tt.env)
			assert.Equal(t, tt.accept, v.Proceed)
			assert.Equal(t, tt.want, v.Reason)
		})
	}
}

func TestEvaluateOrderSelfBeforeKillSwitch(t *testing.T) {
	p := policy(func(p *config.Policy) {
		p.Enabled = false
		p.Block = []string{"alice"}
	})
	assert.Equal(t, ReasonSelf, Evaluate(p, transport.Envelope{Sender: "alice", FromSelf: true}).Reason)
	assert.Equal(t, ReasonBlocked, Evaluate(p, transport.Envelope{Sender: "alice"}).Reason)
}

func TestEvaluateDoesNotMutatePolicy(t *testing.T) {
	p := policy(func(p *config.Policy) { p.BlockedPhrases = []string{" Spam "} })
	Evaluate(p, transport.Envelope{Sender: "x", Body: "spam"})
	assert.Equal(t, []string{" Spam "}, p.BlockedPhrases)
}
