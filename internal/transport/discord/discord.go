// Package discord adapts a Discord bot account to transport.Transport.
// Guild channels are group chats; DM channels are direct chats.
package discord

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"

	"github.com/keshon/autoresponder/internal/transport"
)

// MaxMessageLen is Discord's per-message character limit.
const MaxMessageLen = 2000

// session is the subset of *discordgo.Session used for outbound calls.
type session interface {
	ChannelTyping(channelID string, options ...discordgo.RequestOption) error
	ChannelMessageSend(channelID, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessages(channelID string, limit int, beforeID, afterID, aroundID string, options ...discordgo.RequestOption) ([]*discordgo.Message, error)
	UserChannelCreate(recipientID string, options ...discordgo.RequestOption) (*discordgo.Channel, error)
}

// Bot is a Discord transport.
type Bot struct {
	dg  *discordgo.Session
	api session
	log zerolog.Logger

	mu     sync.RWMutex
	selfID string
}

// New creates the session without connecting.
func New(token string, log zerolog.Logger) (*Bot, error) {
	dg, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	dg.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsDirectMessages |
		discordgo.IntentsMessageContent
	return &Bot{dg: dg, api: dg, log: log}, nil
}

// gate tracks in-flight event handlers. Once closed it admits no new ones, so
// the WaitGroup counter never grows while close is waiting.
type gate struct {
	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

func (g *gate) enter() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return false
	}
	g.wg.Add(1)
	return true
}

func (g *gate) done() { g.wg.Done() }

// close stops admitting handlers and waits for the running ones.
func (g *gate) close() {
	g.mu.Lock()
	g.closed = true
	g.mu.Unlock()
	g.wg.Wait()
}

// Run opens the gateway and feeds message events to h until ctx is done.
func (b *Bot) Run(ctx context.Context, h transport.Handler) error {
	var g gate
	defer g.close()

	b.dg.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) {
		b.setSelf(r.User.ID)
		b.log.Info().Str("user", r.User.Username).Int("guilds", len(r.Guilds)).Msg("discord session ready")
	})
	b.dg.AddHandler(func(s *discordgo.Session, m *discordgo.MessageCreate) {
		if m.Author == nil || ctx.Err() != nil || !g.enter() {
			return
		}
		defer g.done()
		h(ctx, envelopeFrom(b.self(), m.Message, b.guildName(s, m.GuildID)))
	})

	if err := b.dg.Open(); err != nil {
		return fmt.Errorf("failed to open Discord session: %w", err)
	}
	defer b.dg.Close()

	<-ctx.Done()
	b.log.Info().Msg("shutdown signal received, closing discord session")
	return nil
}

func (b *Bot) SendTyping(ctx context.Context, chat string) error {
	return b.api.ChannelTyping(chat, discordgo.WithContext(ctx))
}

// SendMessage sends text, splitting it on line breaks when it exceeds the
// per-message limit.
func (b *Bot) SendMessage(ctx context.Context, chat, text string) error {
	for _, chunk := range splitMessage(text, MaxMessageLen) {
		if _, err := b.api.ChannelMessageSend(chat, chunk, discordgo.WithContext(ctx)); err != nil {
			return err
		}
	}
	return nil
}

// FetchRecent returns up to limit messages, oldest first. Discord caps a
// single page at 100.
func (b *Bot) FetchRecent(ctx context.Context, chat string, limit int) ([]transport.Message, error) {
	limit = min(max(limit, 1), 100)
	msgs, err := b.api.ChannelMessages(chat, limit, "", "", "", discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("fetch messages for %s: %w", chat, err)
	}
	self := b.self()
	out := make([]transport.Message, 0, len(msgs))
	for _, m := range slices.Backward(msgs) {
		if m.Author == nil || strings.TrimSpace(m.Content) == "" {
			continue
		}
		out = append(out, transport.Message{
			Author:   displayName(m.Author),
			FromSelf: m.Author.ID == self,
			Body:     m.Content,
			At:       m.Timestamp,
		})
	}
	return out, nil
}

// DirectChat opens (or reuses) the DM channel with a user.
func (b *Bot) DirectChat(ctx context.Context, identity string) (string, error) {
	ch, err := b.api.UserChannelCreate(identity, discordgo.WithContext(ctx))
	if err != nil {
		return "", fmt.Errorf("open DM with %s: %w", identity, err)
	}
	return ch.ID, nil
}

func (b *Bot) setSelf(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.selfID = id
}

func (b *Bot) self() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.selfID
}

// guildName resolves a guild name from state, then from the API.
func (b *Bot) guildName(s *discordgo.Session, guildID string) string {
	if guildID == "" {
		return ""
	}
	if g, err := s.State.Guild(guildID); err == nil {
		return g.Name
	}
	g, err := s.Guild(guildID)
	if err != nil {
		b.log.Warn().Err(err).Str("guild", guildID).Msg("failed to fetch guild")
		return ""
	}
	return g.Name
}

func envelopeFrom(selfID string, m *discordgo.Message, guildName string) transport.Envelope {
	return transport.Envelope{
		ID:         m.ID,
		Chat:       m.ChannelID,
		Sender:     m.Author.ID,
		AuthorName: displayName(m.Author),
		Body:       m.Content,
		IsGroup:    m.GuildID != "",
		GroupName:  guildName,
		FromSelf:   m.Author.ID == selfID,
		At:         m.Timestamp,
	}
}

func displayName(u *discordgo.User) string {
	if u.GlobalName != "" {
		return u.GlobalName
	}
	return u.Username
}

func splitMessage(msg string, limit int) []string {
	var result []string
	for len(msg) > limit {
		cut := strings.LastIndex(msg[:limit], "\n")
		if cut <= 0 {
			cut = limit
		}
		result = append(result, strings.TrimSpace(msg[:cut]))
		msg = strings.TrimSpace(msg[cut:])
	}
	if msg != "" {
		result = append(result, msg)
	}
	return result
}

var _ transport.Transport = (*Bot)(nil)
