package mind

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/keshon/autoresponder/internal/game"
)

// IdentityState is the per-identity slice of the store: timers, the game
// session and a turn lock that serializes the message path and the
// proactive path for one identity.
type IdentityState struct {
	turn chan struct{}

	mu              sync.Mutex
	lastInteraction time.Time
	lastProactive   time.Time
	lastReply       time.Time
	session         *game.Session
}

func newIdentityState() *IdentityState {
	return &IdentityState{turn: make(chan struct{}, 1)}
}

// Lock takes the turn lock, waiting until it is free or ctx is done.
func (s *IdentityState) Lock(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("acquire identity turn: %w", ctx.Err())
	case s.turn <- struct{}{}:
		return nil
	}
}

// TryLock takes the turn lock only if nobody holds it.
func (s *IdentityState) TryLock() bool {
	select {
	case s.turn <- struct{}{}:
		return true
	default:
		return false
	}
}

// Unlock releases the turn lock. Releasing a free lock is a no-op.
func (s *IdentityState) Unlock() {
	select {
	case <-s.turn:
	default:
	}
}

// Timers is a copy of an identity's timestamps.
type Timers struct {
	LastInteraction time.Time
	LastProactive   time.Time
	LastReply       time.Time
}

func (s *IdentityState) Timers() Timers {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Timers{LastInteraction: s.lastInteraction, LastProactive: s.lastProactive, LastReply: s.lastReply}
}

// Touch records an inbound interaction, resetting the proactive idle timer.
func (s *IdentityState) Touch(at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastInteraction = at
}

func (s *IdentityState) SetLastReply(at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastReply = at
}

func (s *IdentityState) SetLastProactive(at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastProactive = at
}

// seedProactive sets the first proactive baseline once.
func (s *IdentityState) seedProactive(at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastProactive.IsZero() {
		s.lastProactive = at
	}
}

// Store is the process-scoped identity table. It is not persisted.
type Store struct {
	mu  sync.RWMutex
	ids map[string]*IdentityState
}

func NewStore() *Store {
	return &Store{ids: make(map[string]*IdentityState)}
}

// Identity returns the state for id, creating it if needed.
func (s *Store) Identity(id string) *IdentityState {
	s.mu.RLock()
	st := s.ids[id]
	s.mu.RUnlock()
	if st != nil {
		return st
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if st = s.ids[id]; st != nil {
		return st
	}
	st = newIdentityState()
	s.ids[id] = st
	return st
}

// Identities returns all known identities, sorted.
func (s *Store) Identities() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.ids))
	for id := range s.ids {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (s *Store) Session(id string) (game.Session, bool) {
	st := s.Identity(id)
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.session == nil {
		return game.Session{}, false
	}
	return *st.session, true
}

func (s *Store) SetSession(id string, sess game.Session) {
	st := s.Identity(id)
	st.mu.Lock()
	defer st.mu.Unlock()
	st.session = &sess
}

func (s *Store) ClearSession(id string) {
	st := s.Identity(id)
	st.mu.Lock()
	defer st.mu.Unlock()
	st.session = nil
}

var _ game.SessionStore = (*Store)(nil)
