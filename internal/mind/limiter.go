package mind

import (
	"sync"
	"time"
)

// ReplyLimiter enforces global caps on generation calls.
type ReplyLimiter struct {
	mu           sync.Mutex
	perMinute    []time.Time
	perHour      []time.Time
	maxPerMinute int
	maxPerHour   int
}

// DefaultReplyLimiter returns a limiter allowing 20 generations per minute
// and 300 per hour.
func DefaultReplyLimiter() *ReplyLimiter {
	return &ReplyLimiter{
		perMinute:    make([]time.Time, 0, 32),
		perHour:      make([]time.Time, 0, 64),
		maxPerMinute: 20,
		maxPerHour:   300,
	}
}

// Cooling reports whether an identity replied to less than cooldown ago.
func Cooling(lastReply time.Time, cooldown time.Duration, now time.Time) bool {
	return cooldown > 0 && !lastReply.IsZero() && now.Sub(lastReply) < cooldown
}

// Allow reports whether the global caps leave room for a generation at now.
func (l *ReplyLimiter) Allow(now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.perMinute = trimBefore(l.perMinute, now.Add(-time.Minute))
	l.perHour = trimBefore(l.perHour, now.Add(-time.Hour))
	return len(l.perMinute) < l.maxPerMinute && len(l.perHour) < l.maxPerHour
}

// Record notes a generation call made at now.
func (l *ReplyLimiter) Record(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.perMinute = append(l.perMinute, now)
	l.perHour = append(l.perHour, now)
}

func trimBefore(ts []time.Time, cut time.Time) []time.Time {
	i := 0
	for i < len(ts) && !ts[i].After(cut) {
		i++
	}
	return ts[i:]
}
