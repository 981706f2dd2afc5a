package transport

import (
	"context"
	"errors"
	"sync"
	"time"
)

// Sent records one outbound call on a Memory transport.
type Sent struct {
	Chat   string
	Text   string
	Typing bool
	At     time.Time
}

// Memory is an in-process transport. Inbound messages are pushed with
// Deliver; outbound traffic is recorded and also appended to history.
type Memory struct {
	mu      sync.Mutex
	inbox   chan Envelope
	history map[string][]Message
	sent    []Sent
	onSend  func(Sent)

	// FetchErr, when set, is returned by FetchRecent.
	FetchErr error
	// SendErr, when set, is returned by SendMessage.
	SendErr error
}

func NewMemory() *Memory {
	return &Memory{
		inbox:   make(chan Envelope, 64),
		history: make(map[string][]Message),
	}
}

// OnSend registers a callback fired after each outbound message or typing call.
func (m *Memory) OnSend(f func(Sent)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onSend = f
}

// Deliver queues an inbound envelope and records it in the chat history.
func (m *Memory) Deliver(env Envelope) {
	if env.At.IsZero() {
		env.At = time.Now()
	}
	m.Record(env.Chat, Message{Author: env.AuthorName, FromSelf: env.FromSelf, Body: env.Body, At: env.At})
	m.inbox <- env
}

// Record appends a history entry without delivering it.
func (m *Memory) Record(chat string, msg Message) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.history[chat] = append(m.history[chat], msg)
}

func (m *Memory) Run(ctx context.Context, h Handler) error {
	var wg sync.WaitGroup
	defer wg.Wait()
	for {
		select {
		case <-ctx.Done():
			return nil
		case env := <-m.inbox:
			wg.Add(1)
			go func() {
				defer wg.Done()
				h(ctx, env)
			}()
		}
	}
}

func (m *Memory) SendTyping(ctx context.Context, chat string) error {
	m.record(Sent{Chat: chat, Typing: true, At: time.Now()})
	return nil
}

func (m *Memory) SendMessage(ctx context.Context, chat, text string) error {
	if m.SendErr != nil {
		return m.SendErr
	}
	s := Sent{Chat: chat, Text: text, At: time.Now()}
	m.Record(chat, Message{Author: "me", FromSelf: true, Body: text, At: s.At})
	m.record(s)
	return nil
}

func (m *Memory) record(s Sent) {
	m.mu.Lock()
	m.sent = append(m.sent, s)
	f := m.onSend
	m.mu.Unlock()
	if f != nil {
		f(s)
	}
}

func (m *Memory) FetchRecent(ctx context.Context, chat string, limit int) ([]Message, error) {
	if m.FetchErr != nil {
		return nil, m.FetchErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	h := m.history[chat]
	if limit > 0 && len(h) > limit {
		h = h[len(h)-limit:]
	}
	out := make([]Message, len(h))
	copy(out, h)
	return out, nil
}

func (m *Memory) DirectChat(ctx context.Context, identity string) (string, error) {
	if identity == "" {
		return "", errors.New("empty identity")
	}
	return identity, nil
}

// Sent returns outbound text messages, excluding typing indicators.
func (m *Memory) Sent() []Sent {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Sent
	for _, s := range m.sent {
		if !s.Typing {
			out = append(out, s)
		}
	}
	return out
}

// TypingCount returns how many typing indicators were sent.
func (m *Memory) TypingCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, s := range m.sent {
		if s.Typing {
			n++
		}
	}
	return n
}

var _ Transport = (*Memory)(nil)
