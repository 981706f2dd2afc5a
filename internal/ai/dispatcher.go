package ai

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
)

// Dispatcher tries the primary backend and, on failure, the secondary once.
// It never substitutes text; callers decide what to send on failure.
type Dispatcher struct {
	primary   Provider
	secondary Provider
	log       zerolog.Logger
}

func NewDispatcher(primary, secondary Provider, log zerolog.Logger) *Dispatcher {
	return &Dispatcher{primary: primary, secondary: secondary, log: log}
}

// Backends returns the configured provider names, primary first.
func (d *Dispatcher) Backends() []string {
	var out []string
	if d.primary != nil {
		out = append(out, d.primary.Name())
	}
	if d.secondary != nil {
		out = append(out, d.secondary.Name())
	}
	return out
}

// Generate returns the first successful reply or a *DispatchError.
func (d *Dispatcher) Generate(ctx context.Context, req Request) (string, error) {
	if d.primary == nil {
		return "", &DispatchError{Primary: errors.New("no primary backend configured")}
	}
	reply, err := d.primary.Generate(ctx, req)
	if err == nil {
		d.log.Debug().Str("backend", d.primary.Name()).Int("len", len(reply)).Msg("generated")
		return reply, nil
	}
	d.log.Warn().Err(err).Str("backend", d.primary.Name()).Msg("primary backend failed")

	if d.secondary == nil || ctx.Err() != nil {
		return "", &DispatchError{Primary: err}
	}
	reply, err2 := d.secondary.Generate(ctx, req)
	if err2 == nil {
		d.log.Info().Str("backend", d.secondary.Name()).Msg("served by fallback backend")
		return reply, nil
	}
	d.log.Warn().Err(err2).Str("backend", d.secondary.Name()).Msg("fallback backend failed")
	return "", &DispatchError{Primary: err, Secondary: err2}
}
