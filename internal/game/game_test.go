package game

import (
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keshon/autoresponder/internal/config"
)

type mapStore struct {
	mu sync.Mutex
	m  map[string]Session
}

func newMapStore() *mapStore { return &mapStore{m: map[string]Session{}} }

func (s *mapStore) Session(id string) (Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.m[id]
	return v, ok
}

func (s *mapStore) SetSession(id string, v Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[id] = v
}

func (s *mapStore) ClearSession(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, id)
}

func newTestManager() (*Manager, *mapStore, *config.Policy) {
	st := newMapStore()
	m := NewManager(st)
	m.SetRand(func(int) int { return 0 })
	return m, st, config.DefaultPolicy()
}

func TestNoSessionFallsThrough(t *testing.T) {
	m, _, p := newTestManager()
	res := m.Handle(p, "alice", "truth", false)
	assert.False(t, res.IsGameResponse)
	assert.Empty(t, res.Message)

	res = m.Handle(p, "alice", "stop", false)
	assert.False(t, res.IsGameResponse)
}

func TestTriggerThenTruth(t *testing.T) {
	m, st, p := newTestManager()

	res := m.Handle(p, "alice", "Let's play Truth or Dare!", false)
	require.True(t, res.IsGameResponse)
	assert.Contains(t, res.Message, MenuStandard)
	s, ok := st.Session("alice")
	require.True(t, ok)
	assert.Equal(t, StateAwaitingChoice, s.State)
	assert.Equal(t, config.ModeCasual, s.Mode)

	res = m.Handle(p, "alice", "TRUTH", false)
	require.True(t, res.IsGameResponse)
	s, _ = st.Session("alice")
	assert.Equal(t, StateAwaitingAnswer, s.State)
	assert.Equal(t, QuestionTruth, s.Question)
	assert.True(t, strings.HasPrefix(res.Message, "🤔 TRUTH 🤔\n"))
	assert.Equal(t, p.Game.Questions.Truth[0], s.LastQuestion)
}

func TestAnswerReturnsToChoice(t *testing.T) {
	m, st, p := newTestManager()
	m.Handle(p, "alice", "truth or dare", false)
	m.Handle(p, "alice", "d", false)

	res := m.Handle(p, "alice", "ok done", false)
	require.True(t, res.IsGameResponse)
	assert.True(t, strings.HasPrefix(res.Message, p.Game.Reactions.DareAffirm[0]+"\n\n"))
	assert.True(t, strings.HasSuffix(res.Message, "Next round? "+MenuStandard))

	s, _ := st.Session("alice")
	assert.Equal(t, StateAwaitingChoice, s.State)
	assert.Equal(t, 1, s.Responses)

	m.Handle(p, "alice", "dare", false)
	res = m.Handle(p, "alice", "nope", false)
	assert.True(t, strings.HasPrefix(res.Message, p.Game.Reactions.DareDecline[0]))
}

func TestShorthandChoices(t *testing.T) {
	tests := []struct {
		msg  string
		want QuestionType
		head string
	}{
		{"t", QuestionTruth, "🤔 TRUTH 🤔"},
		{"st", QuestionSpicyTruth, "🔥 SPICY TRUTH 🔥"},
		{"spicy truth", QuestionSpicyTruth, "🔥 SPICY TRUTH 🔥"},
		{"sd", QuestionSpicyDare, "🔥 SPICY DARE 🔥"},
		{"xd", QuestionExtremeDare, "⚠️ EXTREME DARE ⚠️"},
		{"extreme dare", QuestionExtremeDare, "⚠️ EXTREME DARE ⚠️"},
		{"d", QuestionDare, "😈 DARE 😈"},
	}
	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			m, st, p := newTestManager()
			m.Handle(p, "bob", "truth or dare", false)
			res := m.Handle(p, "bob", tt.msg, false)
			s, _ := st.Session("bob")
			assert.Equal(t, tt.want, s.Question)
			assert.True(t, strings.HasPrefix(res.Message, tt.head), res.Message)
		})
	}
}

func TestProtectedNeverSeesSpicyOrExtreme(t *testing.T) {
	m, st, p := newTestManager()
	msgs := []string{"spicy truth or dare extreme", "xd", "ok", "sd", "yes", "hmm", "next", "st", "done"}
	for _, msg := range msgs {
		res := m.Handle(p, "carol", msg, true)
		require.True(t, res.IsGameResponse, msg)
		lower := strings.ToLower(res.Message)
		assert.NotContains(t, lower, "spicy", msg)
		assert.NotContains(t, lower, "extreme", msg)
	}
	s, ok := st.Session("carol")
	require.True(t, ok)
	assert.Equal(t, TierRestricted, s.Tier)
	assert.Equal(t, config.ModeCasual, s.Mode)
}

func TestProtectedUsesSafePools(t *testing.T) {
	m, _, p := newTestManager()
	m.Handle(p, "carol", "truth or dare", true)
	res := m.Handle(p, "carol", "dare", true)
	assert.Equal(t, "😄 DARE 😄\n"+p.Game.Questions.SafeDare[0], res.Message)

	p.Game.Questions.SafeTruth = nil
	m.Handle(p, "carol", "ok", true)
	res = m.Handle(p, "carol", "truth", true)
	assert.Equal(t, "🤔 TRUTH 🤔\n"+p.Game.Questions.Truth[0], res.Message)
}

func TestModeFromTrigger(t *testing.T) {
	m, st, p := newTestManager()
	m.Handle(p, "a", "spicy truth or dare", false)
	s, _ := st.Session("a")
	assert.Equal(t, config.ModeSpicy, s.Mode)

	m.Handle(p, "b", "extreme truth or dare", false)
	s, _ = st.Session("b")
	assert.Equal(t, config.ModeExtreme, s.Mode)
}

func TestTerminationFromAnyState(t *testing.T) {
	for _, word := range []string{"stop", "END", " quit "} {
		m, st, p := newTestManager()
		m.Handle(p, "a", "truth or dare", false)
		m.Handle(p, "a", "truth", false)
		res := m.Handle(p, "a", word, false)
		assert.True(t, res.Ended)
		assert.Equal(t, EndMessage, res.Message)
		_, ok := st.Session("a")
		assert.False(t, ok)
	}
}

func TestUnmatchedInputReEmitsMenu(t *testing.T) {
	m, st, p := newTestManager()
	m.Handle(p, "a", "truth or dare", false)
	res := m.Handle(p, "a", "what do I do", false)
	assert.Equal(t, MenuStandard, res.Message)
	s, _ := st.Session("a")
	assert.Equal(t, StateAwaitingChoice, s.State)

	res = m.Handle(p, "a", "another", false)
	assert.Equal(t, MenuStandard, res.Message)
}

func TestTriggerReplacesSession(t *testing.T) {
	m, st, p := newTestManager()
	m.Handle(p, "a", "truth or dare", false)
	m.Handle(p, "a", "truth", false)
	m.Handle(p, "a", "truth or dare again", false)
	s, _ := st.Session("a")
	assert.Equal(t, StateAwaitingChoice, s.State)
	assert.Equal(t, QuestionNone, s.Question)
}

func TestEmptyPool(t *testing.T) {
	m, _, p := newTestManager()
	p.Game.Questions.ExtremeDare = nil
	m.Handle(p, "a", "truth or dare", false)
	res := m.Handle(p, "a", "xd", false)
	assert.Equal(t, "⚠️ EXTREME DARE ⚠️\n"+NoQuestions, res.Message)
}

func TestDareAffirmations(t *testing.T) {
	tests := []struct {
		answer string
		affirm bool
	}{
		{"ha kar diya", true},
		{"Haan, done!", true},
		{"okay fine", true},
		{"I did it", true},
		{"nah", false},
		{"what? no way", false},
		{"haha never", false},
	}
	for _, tt := range tests {
		t.Run(tt.answer, func(t *testing.T) {
			m, _, p := newTestManager()
			m.Handle(p, "alice", "truth or dare", false)
			m.Handle(p, "alice", "dare", false)

			res := m.Handle(p, "alice", tt.answer, false)
			want := p.Game.Reactions.DareDecline[0]
			if tt.affirm {
				want = p.Game.Reactions.DareAffirm[0]
			}
			assert.True(t, strings.HasPrefix(res.Message, want+"\n\n"), res.Message)
		})
	}
}

func TestEmptyPoolStillAwaitsAnswer(t *testing.T) {
	m, st, p := newTestManager()
	p.Game.Questions.SpicyTruth = nil
	m.Handle(p, "alice", "truth or dare", false)

	res := m.Handle(p, "alice", "spicy truth", false)
	require.True(t, res.IsGameResponse)
	assert.Equal(t, "🔥 SPICY TRUTH 🔥\n"+NoQuestions, res.Message)

	s, _ := st.Session("alice")
	assert.Equal(t, StateAwaitingAnswer, s.State)
	assert.Equal(t, QuestionSpicyTruth, s.Question)
}
