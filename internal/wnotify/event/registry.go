package event

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"wnotify/internal/wnotify"
)

const (
	// IncomingBus names the bus every received payload passes through.
	IncomingBus = "incoming_data"
	// ErrorsBus names the bus handler failures are reported on.
	ErrorsBus = "handler_errors"
)

// Recorder receives dispatch outcomes, typically a metrics registry.
type Recorder interface {
	RecordDispatch(event string, routed bool)
	RecordHandlerError(bus string)
}

// Option configures a Registry.
type Option func(*Registry)

// WithRecorder reports dispatch outcomes to r.
func WithRecorder(r Recorder) Option {
	return func(reg *Registry) {
		reg.recorder = r
	}
}

// Registry owns the named buses of a client and routes incoming payloads to
// them by their event name.
type Registry struct {
	logger   *zap.Logger
	recorder Recorder

	incoming *Bus
	errs     *Bus

	mu    sync.RWMutex
	buses map[string]*Bus
}

// NewRegistry creates a registry whose incoming bus routes every payload to
// the bus named by its event field.
func NewRegistry(logger *zap.Logger, opts ...Option) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}

	r := &Registry{
		logger: logger.Named("events"),
		buses:  make(map[string]*Bus),
	}
	for _, opt := range opts {
		opt(r)
	}

	r.errs = NewBus(ErrorsBus)
	r.errs.onError = func(_ context.Context, err *HandlerError) {
		r.logger.Error("error handler failed", zap.Error(err))
	}

	r.incoming = r.newBus(IncomingBus)
	r.incoming.Register(Func(r.route))

	return r
}

// Event returns the bus for name, creating it on first use.
func (r *Registry) Event(name string) *Bus {
	r.mu.RLock()
	b, ok := r.buses[name]
	r.mu.RUnlock()
	if ok {
		return b
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if b, ok := r.buses[name]; ok {
		return b
	}
	b = r.newBus(name)
	r.buses[name] = b

	return b
}

// Lookup returns the bus for name without creating it.
func (r *Registry) Lookup(name string) (*Bus, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	b, ok := r.buses[name]
	return b, ok
}

// Incoming returns the bus every received payload is dispatched on before it
// is routed by event name.
func (r *Registry) Incoming() *Bus {
	return r.incoming
}

// Errors returns the bus handler failures are dispatched on, each as a single
// *HandlerError argument.
func (r *Registry) Errors() *Bus {
	return r.errs
}

// Receive dispatches a payload on the incoming bus.
func (r *Registry) Receive(ctx context.Context, p wnotify.Payload) {
	_ = r.incoming.Dispatch(ctx, p)
}

// Handle dispatches p to the bus named by its event field, passing the whole
// payload as the only argument. Payloads without a string event field, or
// for events nobody asked for, are dropped.
func (r *Registry) Handle(ctx context.Context, p wnotify.Payload) {
	name, ok := p["event"].(string)
	if !ok {
		r.logger.Debug("dropping payload without event name")
		r.recordDispatch("", false)
		return
	}

	b, ok := r.Lookup(name)
	if !ok {
		r.logger.Debug("dropping payload without handlers", zap.String("event", name))
		r.recordDispatch(name, false)
		return
	}

	r.recordDispatch(name, true)
	_ = b.Dispatch(ctx, p)
}

func (r *Registry) route(ctx context.Context, args ...any) error {
	if len(args) == 0 {
		return nil
	}

	p, ok := args[0].(wnotify.Payload)
	if !ok {
		return nil
	}

	r.Handle(ctx, p)
	return nil
}

func (r *Registry) newBus(name string) *Bus {
	b := NewBus(name)
	b.onError = r.reportError
	return b
}

func (r *Registry) reportError(ctx context.Context, err *HandlerError) {
	r.logger.Error("event handler failed",
		zap.String("event", err.Bus),
		zap.Int("handler", err.Index),
		zap.Error(err.Err),
	)

	if r.recorder != nil {
		r.recorder.RecordHandlerError(err.Bus)
	}

	_ = r.errs.Dispatch(ctx, err)
}

func (r *Registry) recordDispatch(event string, routed bool) {
	if r.recorder != nil {
		r.recorder.RecordDispatch(event, routed)
	}
}
