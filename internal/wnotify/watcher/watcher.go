// Package watcher runs the long-poll loops that feed incoming payloads to the
// event registry.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"wnotify/internal/validator"
	"wnotify/internal/wnotify"
)

const (
	DefaultFanOut = 3
	DefaultDelay  = 100 * time.Millisecond
)

// ErrAlreadyStarted is returned by a second call to Start.
var ErrAlreadyStarted = errors.New("watcher already started")

type Config struct {
	PrivateKey string `env:"WNOTIFY_PRIVATE_KEY"`
	// FanOut is the number of poll loops run side by side.
	FanOut int `env:"WATCHER_FAN_OUT" envDefault:"3"`
	// Delay separates a finished request from the next one.
	Delay time.Duration `env:"WATCHER_DELAY" envDefault:"100ms"`
	// MaxDelay enables exponential backoff after failures when it exceeds
	// Delay. A success resets the loop to Delay.
	MaxDelay time.Duration `env:"WATCHER_MAX_DELAY" envDefault:"0s"`
	// DedupWindow drops a payload identical to one dispatched within the
	// window. Zero dispatches every payload received.
	DedupWindow time.Duration `env:"WATCHER_DEDUP_WINDOW" envDefault:"0s"`
}

// Receiver takes the payloads the loops receive.
type Receiver interface {
	Receive(ctx context.Context, p wnotify.Payload)
}

// Recorder receives loop lifecycle events, typically a metrics registry.
type Recorder interface {
	AddActiveLoops(delta int)
	RecordDuplicate()
}

type Option func(*Watcher)

func WithRecorder(r Recorder) Option {
	return func(w *Watcher) {
		w.recorder = r
	}
}

// Watcher long-polls the watch endpoint of a private key from several loops
// at once and hands every payload to a Receiver.
type Watcher struct {
	config   Config
	poller   wnotify.Poller
	receiver Receiver
	logger   *zap.Logger
	recorder Recorder
	dedup    *dedup

	mu       sync.Mutex
	group    *errgroup.Group
	endpoint string
	running  int
}

func New(config Config, poller wnotify.Poller, receiver Receiver, logger *zap.Logger, opts ...Option) (*Watcher, error) {
	w := Watcher{
		config:   config,
		poller:   poller,
		receiver: receiver,
		logger:   logger,
	}

	if err := validator.Validate("watcher", w.poller, w.receiver, w.logger); err != nil {
		return nil, fmt.Errorf("failed to validate watcher deps: %w", err)
	}

	switch {
	case config.FanOut < 0:
		return nil, fmt.Errorf("invalid fan out %d: must not be negative", config.FanOut)
	case config.Delay < 0, config.MaxDelay < 0, config.DedupWindow < 0:
		return nil, errors.New("invalid watcher durations: must not be negative")
	}
	if w.config.FanOut == 0 {
		w.config.FanOut = DefaultFanOut
	}
	if w.config.Delay == 0 {
		w.config.Delay = DefaultDelay
	}
	if w.config.DedupWindow > 0 {
		w.dedup = newDedup(w.config.DedupWindow)
	}

	for _, opt := range opts {
		opt(&w)
	}
	w.logger = w.logger.Named("watcher")

	return &w, nil
}

// Start launches the poll loops and returns. It fails before any request is
// made when no private key is configured. The loops run until ctx is done.
func (w *Watcher) Start(ctx context.Context) error {
	if w.config.PrivateKey == "" {
		return wnotify.ErrMissingPrivateKey
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.group != nil {
		return ErrAlreadyStarted
	}

	w.endpoint = wnotify.WatchPath(w.config.PrivateKey)

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < w.config.FanOut; i++ {
		g.Go(func() error {
			return w.loop(gctx, i)
		})
	}
	w.group = g

	w.logger.Info("watcher started",
		zap.Int("loops", w.config.FanOut),
		zap.Duration("delay", w.config.Delay),
	)

	return nil
}

// Wait blocks until every loop has stopped. Loops only stop when the context
// given to Start is done, which is not reported as an error.
func (w *Watcher) Wait() error {
	w.mu.Lock()
	g := w.group
	w.mu.Unlock()

	if g == nil {
		return nil
	}

	err := g.Wait()
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		err = nil
	}
	w.logger.Info("watcher stopped")

	return err
}

// Run starts the watcher and blocks until ctx is done.
func (w *Watcher) Run(ctx context.Context) error {
	if err := w.Start(ctx); err != nil {
		return err
	}
	return w.Wait()
}

// Running reports the number of loops currently polling.
func (w *Watcher) Running() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

func (w *Watcher) loop(ctx context.Context, id int) error {
	logger := w.logger.With(zap.Int("loop", id))
	delays := w.newDelays()

	w.track(1)
	defer w.track(-1)

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}

		timer.Reset(w.poll(ctx, logger, delays))
	}
}

// poll runs one request and returns how long to wait before the next.
func (w *Watcher) poll(ctx context.Context, logger *zap.Logger, delays backoff.BackOff) time.Duration {
	payload, err := w.poller.Poll(ctx, w.endpoint)
	if err != nil {
		next := delays.NextBackOff()
		if ctx.Err() == nil {
			logger.Debug("poll failed, retrying", zap.Duration("in", next), zap.Error(err))
		}
		return next
	}
	delays.Reset()

	if payload == nil {
		return w.config.Delay
	}

	if w.dedup != nil && w.dedup.duplicate(payload) {
		logger.Debug("dropping duplicate payload", zap.String("event", payload.Event()))
		if w.recorder != nil {
			w.recorder.RecordDuplicate()
		}
		return w.config.Delay
	}

	w.receiver.Receive(ctx, payload)

	return w.config.Delay
}

func (w *Watcher) newDelays() backoff.BackOff {
	if w.config.MaxDelay <= w.config.Delay {
		return backoff.NewConstantBackOff(w.config.Delay)
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = w.config.Delay
	b.MaxInterval = w.config.MaxDelay
	b.RandomizationFactor = 0
	b.Reset()

	return b
}

func (w *Watcher) track(delta int) {
	w.mu.Lock()
	w.running += delta
	w.mu.Unlock()

	if w.recorder != nil {
		w.recorder.AddActiveLoops(delta)
	}
}
