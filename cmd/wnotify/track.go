package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"wnotify/internal/wnotify/tracker"
)

var trackCmd = &cobra.Command{
	Use:   "track <event> [key=value...]",
	Short: "Send one event to the service",
	Long: `Send one event under the public key from WNOTIFY_PUBLIC_KEY. Each key=value
argument becomes a data field.

  wnotify track signup plan=pro source=web`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := parseFields(args[1:])
		if err != nil {
			return err
		}

		timeout, err := cmd.Flags().GetDuration("timeout")
		if err != nil {
			return fmt.Errorf("reading --timeout: %w", err)
		}
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		if err := runTrack(ctx, current, args[0], data); err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "tracked %s\n", args[0])
		return nil
	},
}

func init() {
	trackCmd.Flags().Duration("timeout", 10*time.Second, "give up on the request after this long")
}

func runTrack(ctx context.Context, a *app, name string, data map[string]string) error {
	base, err := tracker.NewTracker(a.cfg.Tracker, a.client, a.logger)
	if err != nil {
		return fmt.Errorf("failed to create tracker: %w", err)
	}
	t := tracker.NewTracedTracker(tracker.NewMetricsTracker(base, a.metrics), a.tracer)

	if err := t.Track(ctx, name, data); err != nil {
		return fmt.Errorf("failed to track %s: %w", name, err)
	}

	return nil
}
