// Package webhook bridges an external messaging gateway over HTTP. The
// gateway posts inbound events to the server and receives outbound actions
// on a callback URL.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/keshon/autoresponder/internal/transport"
)

const (
	historyCap      = 50
	shutdownTimeout = 5 * time.Second
)

// Event is an inbound message posted by the gateway.
type Event struct {
	ID        string    `json:"id"`
	Chat      string    `json:"chat"`
	Sender    string    `json:"sender"`
	Author    string    `json:"author"`
	Body      string    `json:"body"`
	Group     bool      `json:"group"`
	GroupName string    `json:"group_name"`
	FromSelf  bool      `json:"from_self"`
	At        time.Time `json:"at"`
}

// Action is an outbound call delivered to the callback URL.
type Action struct {
	Type string `json:"type"`
	Chat string `json:"chat"`
	Text string `json:"text,omitempty"`
}

const (
	ActionMessage = "message"
	ActionTyping  = "typing"
)

// Server is the webhook transport.
type Server struct {
	echo     *echo.Echo
	addr     string
	callback string
	client   *http.Client
	log      zerolog.Logger

	mu      sync.Mutex
	history map[string][]transport.Message
	handle  transport.Handler
	ctx     context.Context
	wg      sync.WaitGroup
}

func New(addr, callbackURL string, log zerolog.Logger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	s := &Server{
		echo:     e,
		addr:     addr,
		callback: callbackURL,
		client:   &http.Client{Timeout: 15 * time.Second},
		log:      log,
		history:  make(map[string][]transport.Message),
	}
	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod: true,
		LogURI:    true,
		LogStatus: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			s.log.Debug().Str("method", v.Method).Str("uri", v.URI).Int("status", v.Status).Msg("request")
			return nil
		},
	}))
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.echo.GET("/healthz", s.health)
	api := s.echo.Group("/v1")
	api.POST("/events", s.receive)
}

// Run serves inbound events until ctx is done, then drains in-flight handlers.
func (s *Server) Run(ctx context.Context, h transport.Handler) error {
	s.bind(ctx, h)
	errc := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", s.addr).Msg("webhook server listening")
		errc <- s.echo.Start(s.addr)
	}()

	var err error
	select {
	case err = <-errc:
	case <-ctx.Done():
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		err = s.echo.Shutdown(sctx)
		cancel()
		<-errc
	}
	s.wg.Wait()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) bind(ctx context.Context, h transport.Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ctx, s.handle = ctx, h
}

func (s *Server) health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) receive(c echo.Context) error {
	ev := new(Event)
	if err := c.Bind(ev); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if strings.TrimSpace(ev.Chat) == "" || strings.TrimSpace(ev.Sender) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "chat and sender are required")
	}
	if strings.TrimSpace(ev.Body) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "body is required")
	}

	s.mu.Lock()
	ctx, h := s.ctx, s.handle
	s.mu.Unlock()
	if h == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "not ready")
	}

	env := toEnvelope(*ev)
	s.record(env.Chat, transport.Message{Author: env.AuthorName, FromSelf: env.FromSelf, Body: env.Body, At: env.At})

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		h(ctx, env)
	}()
	return c.JSON(http.StatusAccepted, map[string]string{"id": env.ID})
}

func toEnvelope(ev Event) transport.Envelope {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.At.IsZero() {
		ev.At = time.Now()
	}
	author := ev.Author
	if author == "" {
		author = ev.Sender
	}
	return transport.Envelope{
		ID:         ev.ID,
		Chat:       ev.Chat,
		Sender:     ev.Sender,
		AuthorName: author,
		Body:       ev.Body,
		IsGroup:    ev.Group,
		GroupName:  ev.GroupName,
		FromSelf:   ev.FromSelf,
		At:         ev.At,
	}
}

func (s *Server) record(chat string, m transport.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h := append(s.history[chat], m)
	if len(h) > historyCap {
		h = h[len(h)-historyCap:]
	}
	s.history[chat] = h
}

func (s *Server) SendTyping(ctx context.Context, chat string) error {
	return s.post(ctx, Action{Type: ActionTyping, Chat: chat})
}

func (s *Server) SendMessage(ctx context.Context, chat, text string) error {
	if err := s.post(ctx, Action{Type: ActionMessage, Chat: chat, Text: text}); err != nil {
		return err
	}
	s.record(chat, transport.Message{Author: "me", FromSelf: true, Body: text, At: time.Now()})
	return nil
}

// FetchRecent serves history observed by this process, oldest first.
func (s *Server) FetchRecent(ctx context.Context, chat string, limit int) ([]transport.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h := s.history[chat]
	if limit > 0 && len(h) > limit {
		h = h[len(h)-limit:]
	}
	out := make([]transport.Message, len(h))
	copy(out, h)
	return out, nil
}

// DirectChat returns the identity itself; the gateway addresses direct chats
// by sender id.
func (s *Server) DirectChat(ctx context.Context, identity string) (string, error) {
	if identity == "" {
		return "", errors.New("empty identity")
	}
	return identity, nil
}

func (s *Server) post(ctx context.Context, a Action) error {
	body, err := json.Marshal(a)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.callback, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("callback %s: %w", a.Type, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("callback %s: status %d: %s", a.Type, resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	return nil
}

var _ transport.Transport = (*Server)(nil)
