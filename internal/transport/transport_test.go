package transport

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConsoleRun(t *testing.T) {
	in := strings.NewReader("hello\n\n@bob hi from bob\n@bad\n")
	var out bytes.Buffer
	c := NewConsole(in, &out, "alice")

	var got []Envelope
	err := c.Run(context.Background(), func(ctx context.Context, env Envelope) {
		got = append(got, env)
		assert.NoError(t, c.SendMessage(ctx, env.Chat, "re: "+env.Body))
	})
	require.NoError(t, err)

	require.Len(t, got, 2)
	assert.Equal(t, "alice", got[0].Sender)
	assert.Equal(t, "hello", got[0].Body)
	assert.Equal(t, "bob", got[1].Sender)
	assert.Equal(t, "hi from bob", got[1].Body)
	assert.Equal(t, "[alice] < re: hello\n[bob] < re: hi from bob\n", out.String())

	h, err := c.FetchRecent(context.Background(), "bob", 10)
	require.NoError(t, err)
	require.Len(t, h, 2)
	assert.False(t, h[0].FromSelf)
	assert.True(t, h[1].FromSelf)
}

func TestMemoryHistoryAndSends(t *testing.T) {
	m := NewMemory()
	m.Record("c1", Message{Author: "a", Body: "one"})
	m.Record("c1", Message{Author: "a", Body: "two"})
	require.NoError(t, m.SendTyping(context.Background(), "c1"))
	require.NoError(t, m.SendMessage(context.Background(), "c1", "three"))

	h, err := m.FetchRecent(context.Background(), "c1", 2)
	require.NoError(t, err)
	require.Len(t, h, 2)
	assert.Equal(t, "two", h[0].Body)
	assert.True(t, h[1].FromSelf)

	assert.Len(t, m.Sent(), 1)
	assert.Equal(t, 1, m.TypingCount())
}

func TestMemoryRunDispatches(t *testing.T) {
	m := NewMemory()
	got := make(chan Envelope, 1)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Run(ctx, func(_ context.Context, env Envelope) { got <- env }) }()

	m.Deliver(Envelope{Chat: "c1", Sender: "u1", Body: "hi"})
	select {
	case env := <-got:
		assert.Equal(t, "hi", env.Body)
	case <-time.After(time.Second):
		t.Fatal("not dispatched")
	}
	cancel()
	require.NoError(t, <-done)
}
