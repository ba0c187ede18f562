// Package sandbox hosts the scripting bridge between the host and the
// formatting service.
//
// Scripts run in a goja VM with the module globals removed. Two globals are
// exposed: console.log, routed to the installed diagnostic sink, and
// format_markdown, which returns a promise settled by the format service.
package sandbox

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/dop251/goja"

	"go-markdown-fmt/internal/diag"
)

var (
	// ErrPending is returned when the format promise is still pending after
	// all queued jobs ran.
	ErrPending = errors.New("sandbox: format promise still pending")
	// ErrNoEntryPoint is returned when format_markdown is not a function.
	ErrNoEntryPoint = errors.New("sandbox: format_markdown is not callable")
	// ErrTimeout interrupts a script running longer than Config.Timeout.
	ErrTimeout = errors.New("sandbox: execution timeout exceeded")
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("sandbox: runtime closed")
)

// EntryPoint is the global the host calls to format a document.
const EntryPoint = "format_markdown"

// RejectedError carries a rejection reason that is not a Go error.
type RejectedError struct {
	Reason  any
	Message string
}

func (e *RejectedError) Error() string {
	return "sandbox: format rejected: " + e.Message
}

// Formatter is the service format_markdown delegates to.
type Formatter interface {
	Format(ctx context.Context, content string) (string, error)
}

// Config holds runtime limits.
type Config struct {
	// Timeout bounds a single Execute or FormatMarkdown call. Zero means no
	// limit.
	Timeout time.Duration
}

// Runtime wraps a goja VM. Calls are serialized.
type Runtime struct {
	mu      sync.Mutex
	vm      *goja.Runtime
	config  Config
	service Formatter
	sink    *diag.Sink

	// ctx is the context of the call in progress.
	ctx context.Context
}

// New creates a runtime bound to service. The sink is installed before any
// script can run; a nil sink discards output.
func New(service Formatter, sink *diag.Sink, config Config) (*Runtime, error) {
	r := &Runtime{
		vm:      goja.New(),
		config:  config,
		service: service,
		ctx:     context.Background(),
	}
	if err := r.setupGlobals(); err != nil {
		return nil, err
	}
	if err := r.installSink(sink); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Runtime) setupGlobals() error {
	for _, name := range []string{"require", "process", "module", "exports"} {
		if err := r.vm.Set(name, goja.Undefined()); err != nil {
			return fmt.Errorf("sandbox: remove %s: %w", name, err)
		}
	}
	if err := r.vm.Set(EntryPoint, r.formatMarkdown); err != nil {
		return fmt.Errorf("sandbox: bind %s: %w", EntryPoint, err)
	}
	return nil
}

// InstallSink replaces the diagnostic sink and rebinds console. The last
// installation wins; a nil sink discards output.
func (r *Runtime) InstallSink(sink *diag.Sink) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.vm == nil {
		return ErrClosed
	}
	return r.installSink(sink)
}

func (r *Runtime) installSink(sink *diag.Sink) error {
	if sink == nil {
		sink = diag.NewSink(diag.Writer(io.Discard))
	}
	r.sink = sink
	console := r.vm.NewObject()
	if err := console.Set("log", r.consoleLog); err != nil {
		return fmt.Errorf("sandbox: bind console.log: %w", err)
	}
	return r.vm.Set("console", console)
}

// consoleLog writes its argument to the sink once and returns the very same
// value. A sink failure is thrown into the script.
func (r *Runtime) consoleLog(call goja.FunctionCall) goja.Value {
	v := call.Argument(0)
	if _, err := r.sink.Log(export(v)); err != nil {
		panic(r.vm.NewGoError(err))
	}
	return v
}

func (r *Runtime) formatMarkdown(call goja.FunctionCall) goja.Value {
	promise, resolve, reject := r.vm.NewPromise()

	content, ok := call.Argument(0).Export().(string)
	if !ok {
		_ = reject(r.vm.NewTypeError("%s: content must be a string", EntryPoint))
		return r.vm.ToValue(promise)
	}
	out, err := r.service.Format(r.ctx, content)
	if err != nil {
		_ = reject(r.vm.NewGoError(err))
	} else {
		_ = resolve(out)
	}
	return r.vm.ToValue(promise)
}

// Execute runs script and returns its exported completion value. Promise
// jobs queued by the script run before Execute returns.
func (r *Runtime) Execute(ctx context.Context, script string) (any, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	v, err := r.run(ctx, func() (goja.Value, error) {
		return r.vm.RunString(script)
	})
	if err != nil {
		return nil, err
	}
	return export(v), nil
}

// FormatMarkdown calls the format_markdown global with content and settles
// the returned promise. A Go error behind a rejection is returned unchanged.
func (r *Runtime) FormatMarkdown(ctx context.Context, content string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.vm == nil {
		return "", ErrClosed
	}
	fn, ok := goja.AssertFunction(r.vm.Get(EntryPoint))
	if !ok {
		return "", ErrNoEntryPoint
	}
	v, err := r.run(ctx, func() (goja.Value, error) {
		return fn(goja.Undefined(), r.vm.ToValue(content))
	})
	if err != nil {
		return "", err
	}
	return r.settle(v)
}

// run calls fn with ctx installed and interrupts the VM when ctx ends or the
// timeout fires.
func (r *Runtime) run(ctx context.Context, fn func() (goja.Value, error)) (goja.Value, error) {
	if r.vm == nil {
		return nil, ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var timeout <-chan time.Time
	if r.config.Timeout > 0 {
		timer := time.NewTimer(r.config.Timeout)
		defer timer.Stop()
		timeout = timer.C
	}

	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		select {
		case <-ctx.Done():
			r.vm.Interrupt(ctx.Err())
		case <-timeout:
			r.vm.Interrupt(ErrTimeout)
		case <-done:
		}
	}()

	r.ctx = ctx
	v, err := fn()
	r.ctx = context.Background()

	close(done)
	wg.Wait()
	r.vm.ClearInterrupt()
	return v, err
}

func (r *Runtime) settle(v goja.Value) (string, error) {
	p, ok := v.Export().(*goja.Promise)
	if !ok {
		if s, ok := v.Export().(string); ok {
			return s, nil
		}
		return "", &RejectedError{Reason: export(v), Message: "non-string result " + v.String()}
	}

	switch p.State() {
	case goja.PromiseStatePending:
		return "", ErrPending
	case goja.PromiseStateRejected:
		return "", rejection(p.Result())
	}
	s, ok := p.Result().Export().(string)
	if !ok {
		return "", &RejectedError{Reason: export(p.Result()), Message: "non-string result " + p.Result().String()}
	}
	return s, nil
}

func rejection(reason goja.Value) error {
	if obj, ok := reason.(*goja.Object); ok {
		if v := obj.Get("value"); v != nil {
			if err, ok := v.Export().(error); ok {
				return err
			}
		}
	}
	return &RejectedError{Reason: export(reason), Message: reason.String()}
}

func export(v goja.Value) any {
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return nil
	}
	return v.Export()
}

// Close releases the VM. Later calls return ErrClosed.
func (r *Runtime) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.vm = nil
	r.sink = nil
	return nil
}
