package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"wnotify/internal/transport"
	"wnotify/internal/wnotify/metrics"
	"wnotify/internal/wnotify/sound"
	"wnotify/internal/wnotify/tracing"
	"wnotify/internal/wnotify/tracker"
	"wnotify/internal/wnotify/watcher"
)

var (
	version   = "dev"
	buildTime = ""
)

type Config struct {
	Transport transport.Config
	Watcher   watcher.Config
	Tracker   tracker.Config
	Sound     sound.Config
	Metrics   metrics.ServerConfig
	Tracing   tracing.Config
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
}

// app holds what every subcommand shares. It is built once the environment
// has been parsed.
type app struct {
	cfg             Config
	logger          *zap.Logger
	metrics         *metrics.Registry
	tracer          *tracing.Tracer
	client          *transport.HTTPClient
	tracingShutdown func(context.Context) error
}

var (
	cfg     Config
	baseURL string
	current *app
)

var rootCmd = &cobra.Command{
	Use:           "wnotify <command>",
	Short:         "Watch and track events on the wnotify service",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Flags().Changed("base-url") {
			cfg.Transport.BaseURL = baseURL
		}

		a, err := newApp(cfg)
		if err != nil {
			return err
		}
		current = a
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if current != nil {
			current.close()
		}
	},
}

func init() {
	if err := env.Parse(&cfg); err != nil {
		log.Fatalf("failed to parse environment variables: %v", err)
	}

	rootCmd.PersistentFlags().StringVar(&baseURL, "base-url", cfg.Transport.BaseURL, "wnotify service URL")

	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(trackCmd)
}

func newApp(cfg Config) (*app, error) {
	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	client, err := transport.NewHTTPClient(cfg.Transport)
	if err != nil {
		return nil, fmt.Errorf("failed to create http client: %w", err)
	}

	registry := metrics.NewRegistry()
	registry.SetSystemInfo(version, buildTime)

	a := &app{
		cfg:             cfg,
		logger:          logger,
		metrics:         registry,
		tracer:          tracing.NewNoopTracer(),
		client:          client,
		tracingShutdown: func(context.Context) error { return nil },
	}

	if cfg.Tracing.Enabled {
		tracer, shutdown, err := tracing.NewTracer(cfg.Tracing)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize tracing: %w", err)
		}
		a.tracer = tracer
		a.tracingShutdown = shutdown

		logger.Info("tracing initialized",
			zap.String("service", cfg.Tracing.ServiceName),
			zap.String("jaeger_endpoint", cfg.Tracing.JaegerEndpoint),
			zap.Float64("sample_rate", cfg.Tracing.SampleRate),
		)
	}

	return a, nil
}

func newLogger(level string) (*zap.Logger, error) {
	config := zap.NewProductionConfig()

	var zapLevel zapcore.Level
	if err := zapLevel.UnmarshalText([]byte(level)); err != nil {
		log.Printf("invalid log level %q, defaulting to info: %v", level, err)
		zapLevel = zapcore.InfoLevel
	}
	config.Level = zap.NewAtomicLevelAt(zapLevel)

	logger, err := config.Build(zap.AddCaller())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	return logger, nil
}

func (a *app) close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.tracingShutdown(ctx); err != nil {
		a.logger.Error("failed to cleanup tracing", zap.Error(err))
	}
	_ = a.logger.Sync()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
