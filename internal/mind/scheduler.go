package mind

import (
	"context"
	"math/rand"
	"regexp"
	"slices"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/keshon/autoresponder/internal/config"
	"github.com/keshon/autoresponder/internal/transport"
)

const (
	DefaultTickInterval = 30 * time.Second
	// seedJitter spreads the first proactive baseline of each identity.
	seedJitter = 30 * time.Second
)

var firstYou = regexp.MustCompile(`(?i)\byou\b`)

// Scheduler sends unprompted check-in messages to idle identities. It runs
// one goroutine and never blocks on a busy identity.
type Scheduler struct {
	store     *Store
	policy    config.Source
	transport transport.Transport
	log       zerolog.Logger
	interval  time.Duration
	typing    bool

	intn   func(n int) int
	chance func() float64
	now    func() time.Time
}

func NewScheduler(store *Store, policy config.Source, tr transport.Transport, log zerolog.Logger, interval time.Duration, typing bool) *Scheduler {
	if interval <= 0 {
		interval = DefaultTickInterval
	}
	return &Scheduler{
		store:     store,
		policy:    policy,
		transport: tr,
		log:       log,
		interval:  interval,
		typing:    typing,
		intn:      rand.Intn,
		chance:    rand.Float64,
		now:       time.Now,
	}
}

// Run ticks until ctx is done.
func (s *Scheduler) Run(ctx context.Context) error {
	t := time.NewTicker(s.interval)
	defer t.Stop()
	s.log.Info().Dur("interval", s.interval).Msg("proactive scheduler started")
	for {
		select {
		case <-ctx.Done():
			s.log.Info().Msg("proactive scheduler stopped")
			return nil
		case <-t.C:
			s.Tick(ctx)
		}
	}
}

// Tick runs one scheduling pass and returns the identities that were sent a
// message.
func (s *Scheduler) Tick(ctx context.Context) []string {
	p := s.policy.Snapshot()
	if !p.Enabled || !p.Proactive.Enabled {
		return nil
	}
	freq := time.Duration(p.Proactive.FrequencyMinutes * float64(time.Minute))

	ids := make([]string, 0, len(p.Personas))
	for id, e := range p.Personas {
		if e.Proactive && !slices.Contains(p.Block, id) {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)

	var sent []string
	for _, id := range ids {
		if ctx.Err() != nil {
			break
		}
		now := s.now()
		st := s.store.Identity(id)
		st.seedProactive(now.Add(-time.Duration(s.intn(int(seedJitter/time.Millisecond))) * time.Millisecond))
		if !st.TryLock() {
			s.log.Debug().Str("identity", id).Msg("identity busy, skipping proactive")
			continue
		}
		ok := s.maybeSend(ctx, p, id, st, freq, now)
		st.Unlock()
		if ok {
			sent = append(sent, id)
		}
	}
	return sent
}

func (s *Scheduler) maybeSend(ctx context.Context, p *config.Policy, id string, st *IdentityState, freq time.Duration, now time.Time) bool {
	tm := st.Timers()
	if now.Sub(tm.LastProactive) < freq || now.Sub(tm.LastInteraction) < freq {
		return false
	}
	text := s.compose(p, id)
	if text == "" {
		return false
	}
	log := s.log.With().Str("identity", id).Logger()

	chat, err := s.transport.DirectChat(ctx, id)
	if err != nil {
		log.Warn().Err(err).Msg("cannot open direct chat")
		return false
	}
	if err := s.transport.SendTyping(ctx, chat); err != nil {
		log.Debug().Err(err).Msg("typing indicator failed")
	}
	if s.typing {
		if err := sleep(ctx, proactiveDelay(utf8.RuneCountInString(text))); err != nil {
			return false
		}
	}
	if err := s.transport.SendMessage(ctx, chat, text); err != nil {
		log.Warn().Err(err).Msg("proactive send failed")
		return false
	}
	st.SetLastProactive(now)
	log.Info().Str("text", preview(text)).Msg("proactive message sent")
	return true
}

// compose picks a template for the identity and personalizes it.
func (s *Scheduler) compose(p *config.Policy, id string) string {
	e, _ := p.Persona(id)
	pool := templatePool(p.Proactive.Templates, e)
	if len(pool) == 0 {
		return ""
	}
	text := pool[s.intn(len(pool))]
	if e.Name != "" && e.Style != config.StylePolite && s.chance() < p.Proactive.NameProbability {
		text = replaceFirst(text, e.Name)
	}
	return text
}

func templatePool(t map[string][]string, e config.PersonaEntry) []string {
	key := "default"
	switch {
	case e.Protected:
		key = "safe"
	case e.Style == config.StyleRomantic, e.Style == config.StylePolite, e.Style == config.StyleFlirty:
		key = e.Style
	}
	if pool := t[key]; len(pool) > 0 {
		return pool
	}
	return t["default"]
}

func replaceFirst(text, name string) string {
	loc := firstYou.FindStringIndex(text)
	if loc == nil {
		return text
	}
	return text[:loc[0]] + name + text[loc[1]:]
}
