// Package event implements the in-process fan-out of incoming payloads: named
// buses of handlers and the registry that routes payloads to them.
package event

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
)

// Handler receives the arguments of a dispatch.
//
// Handlers are compared with == when deregistered, so implementations should
// be pointers or other comparable values. Use Func to wrap a plain function.
type Handler interface {
	Handle(ctx context.Context, args ...any) error
}

type funcHandler struct {
	fn func(ctx context.Context, args ...any) error
}

// Func wraps fn in a Handler. Every call returns a distinct handler, so keep
// the result to deregister it later.
func Func(fn func(ctx context.Context, args ...any) error) Handler {
	return &funcHandler{fn: fn}
}

func (h *funcHandler) Handle(ctx context.Context, args ...any) error {
	return h.fn(ctx, args...)
}

// HandlerError wraps a failure raised by a single handler during a dispatch.
type HandlerError struct {
	Bus   string
	Index int
	Err   error
}

func (e *HandlerError) Error() string {
	return fmt.Sprintf("handler %d on %q failed: %v", e.Index, e.Bus, e.Err)
}

func (e *HandlerError) Unwrap() error {
	return e.Err
}

// Bus is an ordered list of handlers invoked together.
type Bus struct {
	name    string
	onError func(ctx context.Context, err *HandlerError)

	mu       sync.RWMutex
	handlers []Handler
}

// NewBus creates an empty bus.
func NewBus(name string) *Bus {
	return &Bus{name: name}
}

func (b *Bus) Name() string {
	return b.name
}

// Register appends h. Registering the same handler twice makes it run twice
// per dispatch.
func (b *Bus) Register(h Handler) {
	if h == nil {
		return
	}

	b.mu.Lock()
	b.handlers = append(b.handlers, h)
	b.mu.Unlock()
}

// Deregister removes the first registration of h and reports whether one was
// found.
func (b *Bus) Deregister(h Handler) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i, registered := range b.handlers {
		if sameHandler(registered, h) {
			// copy into a fresh slice: in-flight dispatches hold the old one
			hs := make([]Handler, 0, len(b.handlers)-1)
			hs = append(hs, b.handlers[:i]...)
			b.handlers = append(hs, b.handlers[i+1:]...)
			return true
		}
	}

	return false
}

// Len returns the number of registrations.
func (b *Bus) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.handlers)
}

// Handlers returns a copy of the registrations in order.
func (b *Bus) Handlers() []Handler {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]Handler(nil), b.handlers...)
}

// Dispatch calls every handler registered when Dispatch starts, in
// registration order. A handler that fails or panics does not stop the
// others; all failures are returned joined.
func (b *Bus) Dispatch(ctx context.Context, args ...any) error {
	var errs []error
	for i, h := range b.Handlers() {
		if err := invoke(ctx, h, args); err != nil {
			herr := &HandlerError{Bus: b.name, Index: i, Err: err}
			if b.onError != nil {
				b.onError(ctx, herr)
			}
			errs = append(errs, herr)
		}
	}

	return errors.Join(errs...)
}

func invoke(ctx context.Context, h Handler, args []any) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panicked: %v", r)
		}
	}()

	return h.Handle(ctx, args...)
}

func sameHandler(a, b Handler) bool {
	ta := reflect.TypeOf(a)
	if ta != reflect.TypeOf(b) || !ta.Comparable() {
		return false
	}
	return a == b
}
