// Package mind runs the reply pipeline and the proactive scheduler over a
// process-scoped identity store.
package mind

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/keshon/autoresponder/internal/admission"
	"github.com/keshon/autoresponder/internal/ai"
	"github.com/keshon/autoresponder/internal/config"
	"github.com/keshon/autoresponder/internal/convo"
	"github.com/keshon/autoresponder/internal/game"
	"github.com/keshon/autoresponder/internal/persona"
	"github.com/keshon/autoresponder/internal/sanitize"
	"github.com/keshon/autoresponder/internal/transport"
)

// ReducedFrequencyRate is the share of messages answered for identities
// marked reduced_frequency.
const ReducedFrequencyRate = 0.3

// ErrContextFetch wraps failures to load chat history. It is logged and the
// message proceeds with an empty context.
var ErrContextFetch = errors.New("context fetch failed")

// Generator produces raw reply text. *ai.Dispatcher implements it.
type Generator interface {
	Generate(ctx context.Context, req ai.Request) (string, error)
}

// Action is what the pipeline did with a message.
type Action string

const (
	ActionDropped   Action = "dropped"
	ActionGame      Action = "game"
	ActionCooldown  Action = "cooldown"
	ActionSkipped   Action = "skipped"
	ActionReplied   Action = "replied"
	ActionFallback  Action = "fallback"
	ActionThrottled Action = "throttled"
	ActionRelayed   Action = "relayed"
)

// ReasonRelayFailed marks a relayed message that could not be forwarded.
const ReasonRelayFailed = "relay-failed"

// Outcome describes one handled message.
type Outcome struct {
	ID     string
	Action Action
	Reason string
	Reply  string
	Style  persona.Style
}

// Options tunes runner timing.
type Options struct {
	TypingDelay       bool
	GenerationTimeout time.Duration
}

// Runner wires the pipeline stages to a transport and a generator.
type Runner struct {
	store     *Store
	policy    config.Source
	transport transport.Transport
	games     *game.Manager
	gen       Generator
	sanitizer *sanitize.Sanitizer
	limiter   *ReplyLimiter
	log       zerolog.Logger
	opts      Options

	intn   func(n int) int
	chance func() float64
	now    func() time.Time
}

func NewRunner(store *Store, policy config.Source, tr transport.Transport, gen Generator, log zerolog.Logger, opts Options) *Runner {
	if opts.GenerationTimeout <= 0 {
		opts.GenerationTimeout = 45 * time.Second
	}
	return &Runner{
		store:     store,
		policy:    policy,
		transport: tr,
		games:     game.NewManager(store),
		gen:       gen,
		sanitizer: sanitize.New(),
		limiter:   DefaultReplyLimiter(),
		log:       log,
		opts:      opts,
		intn:      rand.Intn,
		chance:    rand.Float64,
		now:       time.Now,
	}
}

// HandleEnvelope is a transport.Handler. Errors are logged, never returned.
func (r *Runner) HandleEnvelope(ctx context.Context, env transport.Envelope) {
	out, err := r.Handle(ctx, env)
	if err != nil {
		r.log.Error().Err(err).Str("msg_id", out.ID).Str("sender", env.Sender).Msg("message handling failed")
	}
}

// Handle runs one inbound message through the pipeline.
func (r *Runner) Handle(ctx context.Context, env transport.Envelope) (Outcome, error) {
	p := r.policy.Snapshot()
	out := Outcome{ID: env.ID}
	if out.ID == "" {
		out.ID = uuid.NewString()
	}
	log := r.log.With().Str("msg_id", out.ID).Str("sender", env.Sender).Bool("group", env.IsGroup).Logger()

	v := admission.Evaluate(p, env)
	if !v.Proceed {
		log.Debug().Str("reason", string(v.Reason)).Msg("message dropped")
		out.Action, out.Reason = ActionDropped, string(v.Reason)
		return out, nil
	}

	key := identityKey(env)
	st := r.store.Identity(key)
	if err := st.Lock(ctx); err != nil {
		return out, err
	}
	defer st.Unlock()

	now := r.now()
	st.Touch(now)
	entry, hasEntry := p.Persona(env.Sender)
	protected := hasEntry && entry.Protected

	if res := r.games.Handle(p, key, env.Body, protected); res.IsGameResponse {
		log.Info().Str("action", string(ActionGame)).Bool("ended", res.Ended).Msg("game turn")
		out.Action, out.Reply = ActionGame, res.Message
		return out, r.deliver(ctx, env.Chat, res.Message, gameDelay)
	}

	if target, ok := p.RelayTarget(env.Sender); ok && !env.IsGroup {
		out.Action = ActionRelayed
		if err := r.relay(ctx, target, env.Body); err != nil {
			if ctx.Err() != nil {
				return out, ctx.Err()
			}
			log.Warn().Err(err).Str("target", target).Msg("relay failed")
			out.Reason, out.Reply = ReasonRelayFailed, p.Fallbacks.RelayFailed
		} else {
			log.Info().Str("target", target).Msg("message relayed")
			out.Reply = p.Fallbacks.RelayDelivered
		}
		if out.Reply == "" {
			return out, nil
		}
		if err := r.transport.SendMessage(ctx, env.Chat, out.Reply); err != nil {
			return out, fmt.Errorf("send to %s: %w", env.Chat, err)
		}
		return out, nil
	}

	cooldown := time.Duration(p.CooldownMinutes * float64(time.Minute))
	if Cooling(st.Timers().LastReply, cooldown, now) {
		log.Debug().Dur("cooldown", cooldown).Msg("identity cooling down")
		out.Action = ActionCooldown
		return out, nil
	}
	if hasEntry && entry.ReducedFrequency && r.chance() >= ReducedFrequencyRate {
		log.Debug().Msg("skipped by reduced frequency")
		out.Action = ActionSkipped
		return out, nil
	}

	prof := persona.Resolve(p, persona.Request{Identity: env.Sender, IsGroup: env.IsGroup, GroupName: env.GroupName})
	out.Style = prof.Style

	if !r.limiter.Allow(now) {
		log.Warn().Msg("global generation cap reached")
		out.Action, out.Reply = ActionThrottled, p.Fallbacks.RateLimited
		st.SetLastReply(now)
		return out, r.deliver(ctx, env.Chat, out.Reply, replyDelay)
	}

	history, err := r.transport.FetchRecent(ctx, env.Chat, convo.Window+1)
	if err != nil {
		log.Warn().Err(fmt.Errorf("%w: %w", ErrContextFetch, err)).Msg("continuing with empty context")
		history = nil
	}
	c := convo.Assemble(toTurns(history, env), env.Body)
	req := BuildRequest(prof, c, env)
	logRequest(log, "reply", req)

	gctx, cancel := context.WithTimeout(ctx, r.opts.GenerationTimeout)
	raw, err := r.gen.Generate(gctx, req)
	cancel()
	r.limiter.Record(now)

	if err != nil {
		out.Action, out.Reply = ActionFallback, r.fallback(p, err)
		log.Warn().Err(err).Bool("rate_limited", ai.IsRateLimited(err)).Msg("generation failed, sending fallback")
	} else {
		out.Action, out.Reply = ActionReplied, r.sanitizer.Apply(p, prof, raw)
		log.Info().Str("style", string(prof.Style)).Str("reply", preview(out.Reply)).Msg("reply ready")
	}

	st.SetLastReply(now)
	return out, r.deliver(ctx, env.Chat, out.Reply, replyDelay)
}

// fallback picks the canned text sent when every backend failed.
func (r *Runner) fallback(p *config.Policy, err error) string {
	if ai.IsRateLimited(err) && p.Fallbacks.RateLimited != "" {
		return p.Fallbacks.RateLimited
	}
	if len(p.Fallbacks.Apology) == 0 {
		return sanitize.NeutralPhrase
	}
	return p.Fallbacks.Apology[r.intn(len(p.Fallbacks.Apology))]
}

// deliver shows a typing indicator, waits for the delay, then sends text.
func (r *Runner) deliver(ctx context.Context, chat, text string, delay func(int) time.Duration) error {
	if err := r.transport.SendTyping(ctx, chat); err != nil {
		r.log.Debug().Err(err).Str("chat", chat).Msg("typing indicator failed")
	}
	if r.opts.TypingDelay {
		if err := sleep(ctx, delay(utf8.RuneCountInString(text))); err != nil {
			return err
		}
	}
	if err := r.transport.SendMessage(ctx, chat, text); err != nil {
		return fmt.Errorf("send to %s: %w", chat, err)
	}
	return nil
}

// relay forwards body verbatim to the direct chat with target.
func (r *Runner) relay(ctx context.Context, target, body string) error {
	chat, err := r.transport.DirectChat(ctx, target)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", target, err)
	}
	return r.deliver(ctx, chat, body, relayDelay)
}

// identityKey is the key per-identity state lives under. A group chat is a
// single counterpart.
func identityKey(env transport.Envelope) string {
	if env.IsGroup {
		return env.Chat
	}
	return env.Sender
}

func replyDelay(n int) time.Duration {
	d := time.Duration(n) * 10 * time.Millisecond
	return min(max(d, 500*time.Millisecond), 3*time.Second)
}

func gameDelay(n int) time.Duration {
	return min(time.Duration(n)*10*time.Millisecond, time.Second)
}

func relayDelay(n int) time.Duration {
	return min(time.Duration(n)*12*time.Millisecond, 700*time.Millisecond)
}

func proactiveDelay(n int) time.Duration {
	return min(time.Duration(n)*15*time.Millisecond, 1500*time.Millisecond)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
