package webhook

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/keshon/autoresponder/internal/transport"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func postEvent(t *testing.T, s *Server, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/v1/events", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.echo.ServeHTTP(rec, req)
	return rec
}

func TestReceiveDispatchesEnvelope(t *testing.T) {
	s := New(":0", "http://unused", zerolog.Nop())
	got := make(chan transport.Envelope, 1)
	s.bind(context.Background(), func(_ context.Context, env transport.Envelope) { got <- env })

	rec := postEvent(t, s, `{"id":"e1","chat":"c1","sender":"u1","author":"Alice","body":"hi there","group":true,"group_name":"Friends"}`)
	require.Equal(t, http.StatusAccepted, rec.Code)

	select {
	case env := <-got:
		assert.Equal(t, "e1", env.ID)
		assert.Equal(t, "c1", env.Chat)
		assert.Equal(t, "Alice", env.AuthorName)
		assert.True(t, env.IsGroup)
		assert.Equal(t, "Friends", env.GroupName)
		assert.False(t, env.At.IsZero())
	case <-time.After(time.Second):
		t.Fatal("handler not called")
	}
	s.wg.Wait()

	h, err := s.FetchRecent(context.Background(), "c1", 10)
	require.NoError(t, err)
	require.Len(t, h, 1)
	assert.Equal(t, "hi there", h[0].Body)
}

func TestReceiveRejectsBadEvents(t *testing.T) {
	s := New(":0", "http://unused", zerolog.Nop())

	rec := postEvent(t, s, `{"chat":"c1","sender":"u1","body":"hi"}`)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	s.bind(context.Background(), func(context.Context, transport.Envelope) {})
	for _, body := range []string{
		`{"chat":"","sender":"u1","body":"hi"}`,
		`{"chat":"c1","sender":"u1","body":"  "}`,
		`not json`,
	} {
		rec := postEvent(t, s, body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
	}
}

func TestHealth(t *testing.T) {
	s := New(":0", "http://unused", zerolog.Nop())
	rec := httptest.NewRecorder()
	s.echo.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ok")
}

func TestOutboundActions(t *testing.T) {
	var mu sync.Mutex
	var actions []Action
	cb := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var a Action
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&a))
		mu.Lock()
		actions = append(actions, a)
		mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}))
	defer cb.Close()

	s := New(":0", cb.URL, zerolog.Nop())
	defer s.client.CloseIdleConnections()
	ctx := context.Background()
	require.NoError(t, s.SendTyping(ctx, "c1"))
	require.NoError(t, s.SendMessage(ctx, "c1", "hello"))

	mu.Lock()
	assert.Equal(t, []Action{{Type: ActionTyping, Chat: "c1"}, {Type: ActionMessage, Chat: "c1", Text: "hello"}}, actions)
	mu.Unlock()

	h, err := s.FetchRecent(ctx, "c1", 10)
	require.NoError(t, err)
	require.Len(t, h, 1)
	assert.True(t, h[0].FromSelf)
}

func TestOutboundFailure(t *testing.T) {
	cb := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gateway down", http.StatusBadGateway)
	}))
	defer cb.Close()

	s := New(":0", cb.URL, zerolog.Nop())
	defer s.client.CloseIdleConnections()
	err := s.SendMessage(context.Background(), "c1", "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")

	h, _ := s.FetchRecent(context.Background(), "c1", 10)
	assert.Empty(t, h)
}

func TestHistoryCapped(t *testing.T) {
	s := New(":0", "http://unused", zerolog.Nop())
	for i := 0; i < historyCap+10; i++ {
		s.record("c1", transport.Message{Body: "x"})
	}
	h, _ := s.FetchRecent(context.Background(), "c1", 0)
	assert.Len(t, h, historyCap)
}

func TestRunStopsOnCancel(t *testing.T) {
	s := New("127.0.0.1:0", "http://unused", zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx, func(context.Context, transport.Envelope) {}) }()
	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("server did not stop")
	}
}
