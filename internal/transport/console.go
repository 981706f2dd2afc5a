package transport

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Console reads inbound lines from r and writes outbound messages to w. A
// line of the form "@id message" is attributed to id; other lines come from
// the default sender. Lines are handled one at a time, in order.
type Console struct {
	r      io.Reader
	w      io.Writer
	sender string

	mu      sync.Mutex
	history map[string][]Message
}

func NewConsole(r io.Reader, w io.Writer, sender string) *Console {
	if sender == "" {
		sender = "console"
	}
	return &Console{r: r, w: w, sender: sender, history: make(map[string][]Message)}
}

// Run returns when input is exhausted or ctx is done.
func (c *Console) Run(ctx context.Context, h Handler) error {
	lines := make(chan string)
	errc := make(chan error, 1)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(c.r)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
		errc <- sc.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-errc:
					return err
				default:
					return nil
				}
			}
			env, ok := c.parse(line)
			if !ok {
				continue
			}
			c.append(env.Chat, Message{Author: env.AuthorName, Body: env.Body, At: env.At})
			h(ctx, env)
		}
	}
}

func (c *Console) parse(line string) (Envelope, bool) {
	line = strings.TrimSpace(line)
	if line == "" {
		return Envelope{}, false
	}
	sender := c.sender
	if rest, ok := strings.CutPrefix(line, "@"); ok {
		id, body, found := strings.Cut(rest, " ")
		if !found || strings.TrimSpace(body) == "" {
			return Envelope{}, false
		}
		sender, line = id, strings.TrimSpace(body)
	}
	return Envelope{
		ID:         uuid.NewString(),
		Chat:       sender,
		Sender:     sender,
		AuthorName: sender,
		Body:       line,
		At:         time.Now(),
	}, true
}

func (c *Console) append(chat string, m Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.history[chat] = append(c.history[chat], m)
}

func (c *Console) SendTyping(ctx context.Context, chat string) error { return nil }

func (c *Console) SendMessage(ctx context.Context, chat, text string) error {
	c.append(chat, Message{Author: "me", FromSelf: true, Body: text, At: time.Now()})
	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := fmt.Fprintf(c.w, "[%s] < %s\n", chat, text)
	return err
}

func (c *Console) FetchRecent(ctx context.Context, chat string, limit int) ([]Message, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	h := c.history[chat]
	if limit > 0 && len(h) > limit {
		h = h[len(h)-limit:]
	}
	out := make([]Message, len(h))
	copy(out, h)
	return out, nil
}

func (c *Console) DirectChat(ctx context.Context, identity string) (string, error) {
	return identity, nil
}

var _ Transport = (*Console)(nil)
