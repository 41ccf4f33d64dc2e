package tracker

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"wnotify/internal/validator"
	"wnotify/internal/wnotify"
)

// ErrRateLimited is returned when an event exceeds the configured rate.
var ErrRateLimited = errors.New("tracker rate limit exceeded")

// Config holds the tracking credential and client-side limits.
type Config struct {
	PublicKey string `env:"WNOTIFY_PUBLIC_KEY"`
	// RateLimit is the number of events per second allowed; zero disables
	// limiting.
	RateLimit float64 `env:"TRACKER_RATE_LIMIT" envDefault:"0"`
	Burst     int     `env:"TRACKER_BURST" envDefault:"1"`
}

type Tracker struct {
	config    Config
	transport wnotify.Transport
	limiter   *rate.Limiter
	logger    *zap.Logger
}

func NewTracker(config Config, transport wnotify.Transport, logger *zap.Logger) (*Tracker, error) {
	t := Tracker{
		config:    config,
		transport: transport,
		logger:    logger,
	}

	if err := validator.Validate("tracker", t.transport, t.logger); err != nil {
		return nil, fmt.Errorf("failed to validate tracker deps: %w", err)
	}

	if config.RateLimit > 0 {
		t.limiter = rate.NewLimiter(rate.Limit(config.RateLimit), max(config.Burst, 1))
	}
	t.logger = t.logger.Named("tracker")

	return &t, nil
}

// Track implements wnotify.Tracker.Track. The response body is ignored.
func (t *Tracker) Track(ctx context.Context, event string, data map[string]string) error {
	if err := t.admit(); err != nil {
		return err
	}

	return t.send(ctx, event, query(data))
}

// Go sends the event in the background. Configuration and rate limit errors
// are returned immediately; the outcome of the request is only logged.
func (t *Tracker) Go(ctx context.Context, event string, data map[string]string) error {
	if err := t.admit(); err != nil {
		return err
	}

	// the caller may reuse data once Go returns
	q := query(data)

	ctx = context.WithoutCancel(ctx)
	go func() {
		if err := t.send(ctx, event, q); err != nil {
			t.logger.Debug("background track failed", zap.String("event", event), zap.Error(err))
		}
	}()

	return nil
}

func (t *Tracker) admit() error {
	if t.config.PublicKey == "" {
		return wnotify.ErrMissingPublicKey
	}
	if t.limiter != nil && !t.limiter.Allow() {
		return ErrRateLimited
	}
	return nil
}

func query(data map[string]string) url.Values {
	q := make(url.Values, len(data))
	for k, v := range data {
		q.Set(k, v)
	}
	return q
}

func (t *Tracker) send(ctx context.Context, event string, q url.Values) error {
	if _, err := t.transport.Get(ctx, wnotify.TrackPath(t.config.PublicKey, event), q); err != nil {
		return fmt.Errorf("failed to track event %s: %w", event, err)
	}

	t.logger.Debug("tracked event", zap.String("event", event), zap.Int("fields", len(q)))

	return nil
}
