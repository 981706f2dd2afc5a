package ai

import (
	"errors"
	"fmt"
	"net/http"
)

// Generation failure classes. Backend errors wrap one of these when the
// cause is known.
var (
	ErrRateLimited        = errors.New("rate limited")
	ErrModelNotFound      = errors.New("model not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnavailable        = errors.New("backend unavailable")
	ErrEmptyReply         = errors.New("empty reply")
)

// StatusError is a non-2xx response from a backend.
type StatusError struct {
	Provider string
	Code     int
	Body     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s http %d: %s", e.Provider, e.Code, e.Body)
}

func (e *StatusError) StatusCode() int { return e.Code }

func (e *StatusError) Unwrap() error { return classify(e.Code) }

func classify(code int) error {
	switch {
	case code == http.StatusTooManyRequests:
		return ErrRateLimited
	case code == http.StatusNotFound:
		return ErrModelNotFound
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return ErrInvalidCredentials
	case code >= 500:
		return ErrUnavailable
	}
	return nil
}

// DispatchError is returned when every configured backend failed.
type DispatchError struct {
	Primary   error
	Secondary error // nil when no fallback is configured
}

func (e *DispatchError) Error() string {
	if e.Secondary == nil {
		return fmt.Sprintf("generation failed: %v", e.Primary)
	}
	return fmt.Sprintf("generation failed: primary: %v; fallback: %v", e.Primary, e.Secondary)
}

func (e *DispatchError) Unwrap() []error {
	if e.Secondary == nil {
		return []error{e.Primary}
	}
	return []error{e.Primary, e.Secondary}
}

// IsRateLimited reports whether any backend in err's chain was rate limited.
func IsRateLimited(err error) bool {
	return errors.Is(err, ErrRateLimited)
}
