package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/keshon/autoresponder/internal/logger"
	"github.com/keshon/autoresponder/internal/mind"
	"github.com/keshon/autoresponder/internal/transport"
	"github.com/keshon/autoresponder/internal/transport/discord"
	"github.com/keshon/autoresponder/internal/transport/webhook"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Connect the configured transport and answer messages",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	a, err := loadApp()
	if err != nil {
		return err
	}
	if err := a.cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tr, err := a.transport()
	if err != nil {
		return err
	}
	a.log.Info().Str("transport", a.cfg.Transport).Msgf("starting %s", appName)
	return a.serve(ctx, tr)
}

func (a *app) transport() (transport.Transport, error) {
	switch a.cfg.Transport {
	case "discord":
		return discord.New(a.cfg.DiscordToken, logger.Component(a.log, "discord"))
	case "webhook":
		return webhook.New(a.cfg.WebhookAddr, a.cfg.WebhookCallbackURL, logger.Component(a.log, "webhook")), nil
	case "console":
		return transport.NewConsole(os.Stdin, os.Stdout, ""), nil
	default:
		return nil, fmt.Errorf("unknown TRANSPORT %q", a.cfg.Transport)
	}
}

// serve runs the transport, the proactive scheduler and the policy watcher
// until ctx is done or one of them fails.
func (a *app) serve(ctx context.Context, tr transport.Transport) error {
	gen, err := a.dispatcher(ctx)
	if err != nil {
		return err
	}

	store := mind.NewStore()
	runner := mind.NewRunner(store, a.policy, tr, gen, logger.Component(a.log, "mind"), mind.Options{
		TypingDelay:       a.cfg.TypingDelay,
		GenerationTimeout: a.cfg.GenerationTimeout,
	})
	sched := mind.NewScheduler(store, a.policy, tr, logger.Component(a.log, "scheduler"), a.cfg.ProactiveInterval, a.cfg.TypingDelay)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer cancel()
		return tr.Run(gctx, runner.HandleEnvelope)
	})
	g.Go(func() error { return sched.Run(gctx) })
	if a.file != nil {
		g.Go(func() error { return a.file.Watch(gctx) })
	}
	if err := g.Wait(); err != nil {
		return err
	}
	a.log.Info().Msg("exited cleanly")
	return nil
}
