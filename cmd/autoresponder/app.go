package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"

	"github.com/rs/zerolog"

	"github.com/keshon/autoresponder/internal/ai"
	"github.com/keshon/autoresponder/internal/config"
	"github.com/keshon/autoresponder/internal/logger"
)

// app holds the components shared by every command.
type app struct {
	cfg    *config.Config
	log    zerolog.Logger
	policy config.Source
	file   *config.FileSource
}

func loadApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if policyPath != "" {
		cfg.PolicyPath = policyPath
	}
	log := logger.New(logger.Options{Level: cfg.LogLevel, File: cfg.LogFile})
	if err := cfg.DotenvErr(); err != nil {
		log.Warn().Err(err).Msg(".env could not be parsed, using system environment only")
	}

	a := &app{cfg: cfg, log: log}
	file, err := config.OpenFile(cfg.PolicyPath, logger.Component(log, "policy"))
	switch {
	case err == nil:
		a.file, a.policy = file, file
		log.Info().Str("path", file.Path()).Msg("policy loaded")
	case errors.Is(err, fs.ErrNotExist):
		log.Warn().Str("path", cfg.PolicyPath).Msg("policy file not found, using built-in defaults")
		a.policy = config.NewStatic(config.DefaultPolicy())
	default:
		return nil, fmt.Errorf("load policy %s: %w", cfg.PolicyPath, err)
	}
	return a, nil
}

// dispatcher builds the primary and fallback backends, each behind its own
// adaptive throttle.
func (a *app) dispatcher(ctx context.Context) (*ai.Dispatcher, error) {
	primary, err := a.backend(ctx, a.cfg.AIPrimary)
	if err != nil {
		return nil, fmt.Errorf("primary backend: %w", err)
	}
	if primary == nil {
		return nil, errors.New("AI_PRIMARY must name a backend")
	}
	fallback, err := a.backend(ctx, a.cfg.AIFallback)
	if err != nil {
		a.log.Warn().Err(err).Str("backend", a.cfg.AIFallback).Msg("fallback backend unavailable, continuing without it")
		fallback = nil
	}
	d := ai.NewDispatcher(primary, fallback, logger.Component(a.log, "dispatcher"))
	a.log.Info().Strs("backends", d.Backends()).Msg("generation dispatcher ready")
	return d, nil
}

func (a *app) backend(ctx context.Context, name string) (ai.Provider, error) {
	p, err := ai.New(ctx, name, a.cfg)
	if err != nil || p == nil {
		return nil, err
	}
	if a.cfg.AIThrottle > 0 {
		return ai.Throttle(p, a.cfg.AIThrottle), nil
	}
	return p, nil
}
