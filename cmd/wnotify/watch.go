package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"wnotify/internal/wnotify"
	"wnotify/internal/wnotify/event"
	"wnotify/internal/wnotify/metrics"
	"wnotify/internal/wnotify/poller"
	"wnotify/internal/wnotify/sound"
	"wnotify/internal/wnotify/watcher"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Long-poll the service and log every event received",
	Long: `Long-poll the service with the private key from WNOTIFY_PRIVATE_KEY and log
every event received until interrupted.

Use --beep to play a sound when a given event arrives:

  wnotify watch --beep signup --beep payment:cash`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		beeps, err := watchFlags(cmd, &current.cfg.Watcher)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return runWatch(ctx, current, beeps)
	},
}

func init() {
	watchCmd.Flags().StringArray("beep", nil, "play a sound on an event, as event[:sound] (repeatable)")
	watchCmd.Flags().Int("fan-out", watcher.DefaultFanOut, "number of concurrent poll loops")
	watchCmd.Flags().Duration("delay", watcher.DefaultDelay, "pause between consecutive polls of a loop")
}

// watchFlags returns the --beep values and applies --fan-out and --delay to
// config when they were given.
func watchFlags(cmd *cobra.Command, config *watcher.Config) ([]string, error) {
	beeps, err := cmd.Flags().GetStringArray("beep")
	if err != nil {
		return nil, fmt.Errorf("reading --beep: %w", err)
	}

	if cmd.Flags().Changed("fan-out") {
		n, err := cmd.Flags().GetInt("fan-out")
		if err != nil {
			return nil, fmt.Errorf("reading --fan-out: %w", err)
		}
		config.FanOut = n
	}

	if cmd.Flags().Changed("delay") {
		d, err := cmd.Flags().GetDuration("delay")
		if err != nil {
			return nil, fmt.Errorf("reading --delay: %w", err)
		}
		config.Delay = d
	}

	return beeps, nil
}

func runWatch(ctx context.Context, a *app, beeps []string) error {
	registry := event.NewRegistry(a.logger, event.WithRecorder(a.metrics))
	registry.Incoming().Register(event.Func(logPayload(a.logger)))

	if len(beeps) > 0 {
		beeper, err := sound.NewBeeper(a.client, sound.NewPlayer(a.cfg.Sound, os.Stdout), a.logger)
		if err != nil {
			return fmt.Errorf("failed to create beeper: %w", err)
		}
		for _, b := range beeps {
			name, snd, err := parseBeep(b)
			if err != nil {
				return err
			}
			beeper.BeepOn(registry, name, snd)
		}
	}

	basePoller, err := poller.NewPoller(a.client, a.logger, "")
	if err != nil {
		return fmt.Errorf("failed to create poller: %w", err)
	}
	p := poller.NewTracedPoller(poller.NewMetricsPoller(basePoller, a.metrics), a.tracer)

	w, err := watcher.New(a.cfg.Watcher, p, registry, a.logger, watcher.WithRecorder(a.metrics))
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)

	if a.cfg.Metrics.Enabled {
		server := metrics.NewServer(a.cfg.Metrics, a.metrics, a.logger, func() bool { return w.Running() > 0 })
		g.Go(func() error {
			return server.Start(gctx)
		})
		a.logger.Info("metrics server started",
			zap.String("endpoint", fmt.Sprintf("http://localhost:%d/metrics", a.cfg.Metrics.Port)),
			zap.String("health", fmt.Sprintf("http://localhost:%d/health", a.cfg.Metrics.Port)),
		)
	}

	g.Go(func() error {
		return w.Run(gctx)
	})

	return g.Wait()
}

func logPayload(logger *zap.Logger) func(context.Context, ...any) error {
	return func(_ context.Context, args ...any) error {
		if len(args) == 0 {
			return nil
		}
		p, ok := args[0].(wnotify.Payload)
		if !ok {
			return nil
		}

		fields := []zap.Field{
			zap.String("event", p.Event()),
			zap.Any("data", p.Data()),
		}
		if t := p.Time(); !t.IsZero() {
			fields = append(fields, zap.String("time", t.Format(time.RFC3339)))
		}
		logger.Info("event received", fields...)

		return nil
	}
}
