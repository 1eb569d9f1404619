// Package scripting hosts bot scripts on a goja runtime.
//
// Scripts extend bots with goals, actions, action records and weight configs
// by subclassing the base classes of the "qf:ai" module and registering them.
// Values crossing back into native code are checked against the types found
// at the last script load; a value of the wrong type is a fatal invariant
// violation that poisons the host.
//
// goja.Runtime is not goroutine safe. Every access goes through the event
// loop, and native objects reached from scripts (bots, spot controllers) are
// only touched while the native caller blocks in a host call.
package scripting

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dop251/goja"
	"github.com/dop251/goja_nodejs/eventloop"
	"github.com/dop251/goja_nodejs/require"

	"github.com/Qfusion/qfusion-sub007/internal/bot"
	"github.com/Qfusion/qfusion-sub007/internal/invariant"
)

// DefaultSyncTimeout is the maximum duration to wait for RunOnLoopSync.
const DefaultSyncTimeout = 5 * time.Second

// ModuleName is the name scripts require the bot API by.
const ModuleName = "qf:ai"

var (
	ErrNotRunning = errors.New("scripting: event loop not running")
	ErrStopped    = errors.New("scripting: host stopped before completion")
)

// BotLister lists the bots visible to scripts.
type BotLister interface {
	All() []*bot.Bot
}

// Options configures a Host. Every field is optional.
type Options struct {
	Spots   SpotController
	Bots    BotLister
	Logger  *slog.Logger
	Timeout time.Duration
}

// Host owns one goja runtime and the event loop that serializes access to it.
type Host struct {
	loop     *eventloop.EventLoop
	registry *require.Registry
	timeout  time.Duration
	logger   *slog.Logger

	spots SpotController
	bots  BotLister

	// loopID is the goroutine id of the event loop, for reentrant calls.
	loopID atomic.Int64
	// poisoned holds the first fatal violation raised across the boundary.
	poisoned atomic.Pointer[invariant.Violation]

	mu      sync.RWMutex
	started bool
	stopped bool

	ctx    context.Context
	cancel context.CancelFunc

	// loop-only state
	vm        *goja.Runtime
	bases     baseClasses
	checker   *Checker
	factories factories
}

// NewHost starts the event loop and installs the qf:ai module. The host
// stops when ctx is cancelled or Close is called.
func NewHost(ctx context.Context, opts Options) (*Host, error) {
	registry := require.NewRegistry()
	loop := eventloop.NewEventLoop(
		eventloop.WithRegistry(registry),
		eventloop.EnableConsole(true),
	)

	childCtx, cancel := context.WithCancel(context.Background())
	h := &Host{
		loop:     loop,
		registry: registry,
		timeout:  opts.Timeout,
		logger:   opts.Logger,
		spots:    opts.Spots,
		bots:     opts.Bots,
		ctx:      childCtx,
		cancel:   cancel,
	}
	if h.timeout <= 0 {
		h.timeout = DefaultSyncTimeout
	}
	if h.logger == nil {
		h.logger = slog.Default()
	}
	h.checker = newChecker(h.poison)
	registry.RegisterNativeModule(ModuleName, h.moduleLoader)

	loop.Start()
	h.mu.Lock()
	h.started = true
	h.mu.Unlock()

	errCh := make(chan error, 1)
	ok := loop.RunOnLoop(func(vm *goja.Runtime) {
		h.loopID.Store(currentGoroutineID())
		h.vm = vm
		bases, err := newBaseClasses(h, vm)
		h.bases = bases
		errCh <- err
	})
	if !ok {
		cancel()
		return nil, ErrNotRunning
	}
	if err := <-errCh; err != nil {
		cancel()
		loop.Stop()
		return nil, fmt.Errorf("scripting: initialize host: %w", err)
	}

	if ctx.Done() != nil {
		context.AfterFunc(ctx, func() {
			_ = h.Close()
		})
	}
	return h, nil
}

// Close stops the event loop. It is safe to call more than once.
func (h *Host) Close() error {
	h.mu.Lock()
	if h.stopped {
		h.mu.Unlock()
		return nil
	}
	h.stopped = true
	h.mu.Unlock()

	h.cancel()
	h.loop.Stop()
	return nil
}

// Done is closed once the host stops.
func (h *Host) Done() <-chan struct{} { return h.ctx.Done() }

func (h *Host) IsRunning() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.started && !h.stopped
}

// Poisoned returns the fatal violation that disabled the host, if any.
func (h *Host) Poisoned() error {
	if v := h.poisoned.Load(); v != nil {
		return v
	}
	return nil
}

func (h *Host) poison(v *invariant.Violation) {
	if h.poisoned.CompareAndSwap(nil, v) {
		h.logger.Error("script host poisoned", "site", v.Site, "actual", v.Actual, "expected", v.Expected)
	}
}

// RunOnLoopSync runs fn on the event loop and waits for it. A fatal
// violation raised by fn is returned as a *invariant.Violation error, and
// every later call returns it too.
func (h *Host) RunOnLoopSync(fn func(*goja.Runtime) error) error {
	if err := h.Poisoned(); err != nil {
		return err
	}
	h.mu.RLock()
	if !h.started || h.stopped {
		h.mu.RUnlock()
		return ErrNotRunning
	}
	timeout := h.timeout
	h.mu.RUnlock()

	errCh := make(chan error, 1)
	ok := h.loop.RunOnLoop(func(vm *goja.Runtime) {
		errCh <- h.guard(vm, fn)
	})
	if !ok {
		return ErrNotRunning
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case err := <-errCh:
		return err
	case <-h.Done():
		return ErrStopped
	case <-timer.C:
		return fmt.Errorf("scripting: operation timed out after %v", timeout)
	}
}

// run is RunOnLoopSync, except that it calls fn directly when already on the
// event loop goroutine, e.g. when a script calls back into native code that
// calls a script again.
func (h *Host) run(fn func(*goja.Runtime) error) error {
	if id := h.loopID.Load(); id > 0 && currentGoroutineID() == id {
		if err := h.Poisoned(); err != nil {
			return err
		}
		return h.guard(h.vm, fn)
	}
	return h.RunOnLoopSync(fn)
}

func (h *Host) guard(vm *goja.Runtime, fn func(*goja.Runtime) error) (err error) {
	defer func() {
		invariant.Recover(&err)
		var v *invariant.Violation
		if errors.As(err, &v) {
			h.poison(v)
		}
	}()
	return fn(vm)
}

// LoadScript compiles and runs a script, then rescans the registered script
// types. Factories and types registered by earlier loads stay registered.
func (h *Host) LoadScript(name, code string) error {
	err := h.RunOnLoopSync(func(vm *goja.Runtime) error {
		prg, err := goja.Compile(name, code, true)
		if err != nil {
			return fmt.Errorf("failed to compile %s: %w", name, err)
		}
		if _, err := vm.RunProgram(prg); err != nil {
			return fmt.Errorf("failed to run %s: %w", name, err)
		}
		if err := h.checker.Rescan(vm, h.bases); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		return h.factories.validate(h.checker)
	})
	if err != nil {
		h.logger.Warn("script load failed", "script", name, "error", err)
		return err
	}
	h.logger.Debug("script loaded", "script", name, "types", h.checker.Len())
	return nil
}

// fatal re-raises a violation returned by a call on the loop in the native
// caller, and passes other errors through.
func fatal(err error) error {
	var v *invariant.Violation
	if errors.As(err, &v) {
		panic(v)
	}
	return err
}
