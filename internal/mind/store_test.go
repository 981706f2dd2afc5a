package mind

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keshon/autoresponder/internal/game"
)

func TestIdentityLock(t *testing.T) {
	st := NewStore().Identity("alice")
	require.NoError(t, st.Lock(context.Background()))
	assert.False(t, st.TryLock())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, st.Lock(ctx), context.DeadlineExceeded)

	st.Unlock()
	assert.True(t, st.TryLock())
	st.Unlock()
	st.Unlock()
}

func TestStoreIdentitiesAndSessions(t *testing.T) {
	s := NewStore()
	a := s.Identity("bob")
	assert.Same(t, a, s.Identity("bob"))
	s.Identity("alice")
	assert.Equal(t, []string{"alice", "bob"}, s.Identities())

	_, ok := s.Session("alice")
	assert.False(t, ok)
	s.SetSession("alice", game.Session{State: game.StateAwaitingChoice})
	got, ok := s.Session("alice")
	require.True(t, ok)
	assert.Equal(t, game.StateAwaitingChoice, got.State)
	s.ClearSession("alice")
	_, ok = s.Session("alice")
	assert.False(t, ok)
}

func TestTimers(t *testing.T) {
	st := NewStore().Identity("alice")
	st.seedProactive(testNow)
	st.seedProactive(testNow.Add(time.Hour))
	st.Touch(testNow.Add(time.Minute))
	st.SetLastReply(testNow.Add(2 * time.Minute))

	tm := st.Timers()
	assert.Equal(t, testNow, tm.LastProactive)
	assert.Equal(t, testNow.Add(time.Minute), tm.LastInteraction)
	assert.Equal(t, testNow.Add(2*time.Minute), tm.LastReply)
}

func TestReplyLimiter(t *testing.T) {
	l := &ReplyLimiter{maxPerMinute: 2, maxPerHour: 3}
	assert.True(t, l.Allow(testNow))
	l.Record(testNow)
	l.Record(testNow.Add(time.Second))
	assert.False(t, l.Allow(testNow.Add(2*time.Second)))
	assert.True(t, l.Allow(testNow.Add(2*time.Minute)))
	l.Record(testNow.Add(2 * time.Minute))
	assert.False(t, l.Allow(testNow.Add(3*time.Minute)), "hourly cap")
}

func TestCooling(t *testing.T) {
	assert.False(t, Cooling(time.Time{}, time.Minute, testNow))
	assert.False(t, Cooling(testNow, 0, testNow))
	assert.True(t, Cooling(testNow, time.Minute, testNow.Add(30*time.Second)))
	assert.False(t, Cooling(testNow, time.Minute, testNow.Add(time.Minute)))
}
