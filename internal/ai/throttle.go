package ai

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// AdaptiveLimiter is a token bucket whose rate halves when a backend reports
// rate limiting and creeps back up after a quiet period of successes.
type AdaptiveLimiter struct {
	mu        sync.Mutex
	limiter   *rate.Limiter
	min, max  rate.Limit
	stepUp    rate.Limit
	stepDown  float64
	quiet     time.Duration
	lastError time.Time
	now       func() time.Time
}

// NewAdaptiveLimiter starts at initial requests per second, bounded by
// [initial/8, initial*2].
func NewAdaptiveLimiter(initial float64) *AdaptiveLimiter {
	if initial <= 0 {
		initial = 1
	}
	lim := rate.Limit(initial)
	return &AdaptiveLimiter{
		limiter:  rate.NewLimiter(lim, burst(lim)),
		min:      lim / 8,
		max:      lim * 2,
		stepUp:   lim / 4,
		stepDown: 0.5,
		quiet:    10 * time.Second,
		now:      time.Now,
	}
}

func (a *AdaptiveLimiter) Wait(ctx context.Context) error {
	return a.limiter.Wait(ctx)
}

// Success raises the rate once no rate limit was seen for the quiet period.
func (a *AdaptiveLimiter) Success() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.now().Sub(a.lastError) > a.quiet {
		a.adjust(a.limiter.Limit() + a.stepUp)
	}
}

func (a *AdaptiveLimiter) RateLimited() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.lastError = a.now()
	a.adjust(rate.Limit(float64(a.limiter.Limit()) * a.stepDown))
}

// CurrentLimit returns the current requests per second.
func (a *AdaptiveLimiter) CurrentLimit() float64 {
	return float64(a.limiter.Limit())
}

func (a *AdaptiveLimiter) adjust(l rate.Limit) {
	if l > a.max {
		l = a.max
	} else if l < a.min {
		l = a.min
	}
	if l != a.limiter.Limit() {
		a.limiter.SetLimit(l)
		a.limiter.SetBurst(burst(l))
	}
}

func burst(l rate.Limit) int {
	if l < 1 {
		return 1
	}
	return int(l)
}

// Throttled wraps a Provider with an AdaptiveLimiter.
type Throttled struct {
	next Provider
	lim  *AdaptiveLimiter
}

func Throttle(p Provider, rps float64) *Throttled {
	return &Throttled{next: p, lim: NewAdaptiveLimiter(rps)}
}

func (t *Throttled) Name() string { return t.next.Name() }

func (t *Throttled) Limiter() *AdaptiveLimiter { return t.lim }

func (t *Throttled) Generate(ctx context.Context, req Request) (string, error) {
	if err := t.lim.Wait(ctx); err != nil {
		return "", err
	}
	out, err := t.next.Generate(ctx, req)
	switch {
	case err == nil:
		t.lim.Success()
	case errors.Is(err, ErrRateLimited):
		t.lim.RateLimited()
	}
	return out, err
}

var _ Provider = (*Throttled)(nil)
