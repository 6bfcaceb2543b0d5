// Package gojahost is an in-process napi.Env backed by the goja JavaScript engine.
//
// A Runtime is single threaded like the host it models: create it, evaluate
// scripts, and drive its loop from one goroutine. Async work executes on a
// bounded pool of goroutines and completes back on the loop.
package gojahost

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"time"

	"github.com/dop251/goja"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	napi "github.com/buke/napi-go"
)

// Runtime is a goja VM exposed through napi.Env.
type Runtime struct {
	vm     *goja.Runtime
	loop   *Loop
	logger *zap.Logger
	opts   options

	ctx    context.Context
	cancel context.CancelFunc
	pool   *semaphore.Weighted

	// Handle table. values[0] is never handed out.
	values []goja.Value
	scopes []int
	frames []frame

	pending   goja.Value // exception waiting to be thrown
	lastError napi.ExtendedErrorInfo
	uncaught  error

	refs    map[napi.Reference]goja.Value
	nextRef napi.Reference

	finalizers  map[uint64]*finalizer
	nextFinal   uint64
	wrapKey     *goja.Symbol
	errorCtor   goja.Value
	externalTyp reflect.Type

	works    map[napi.AsyncWork]*work
	nextWork napi.AsyncWork

	modules map[string]*napi.ModuleDescriptor
	loaded  map[string]goja.Value

	closed bool
}

var _ napi.Env = (*Runtime)(nil)
var _ napi.ModuleRegistrar = (*Runtime)(nil)

// New creates a runtime.
func New(opts ...Option) *Runtime {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = napi.Logger()
	}

	ctx, cancel := context.WithCancel(context.Background())
	vm := goja.New()
	r := &Runtime{
		vm:          vm,
		loop:        NewLoop(),
		logger:      o.logger,
		opts:        o,
		ctx:         ctx,
		cancel:      cancel,
		pool:        semaphore.NewWeighted(o.workers),
		values:      make([]goja.Value, 1, 64),
		refs:        make(map[napi.Reference]goja.Value),
		finalizers:  make(map[uint64]*finalizer),
		wrapKey:     goja.NewSymbol("napi.wrap"),
		errorCtor:   vm.Get("Error"),
		externalTyp: reflect.TypeOf((*external)(nil)),
		works:       make(map[napi.AsyncWork]*work),
		modules:     make(map[string]*napi.ModuleDescriptor),
		loaded:      make(map[string]goja.Value),
	}
	if o.require {
		r.installRequire()
	}
	return r
}

// VM returns the underlying goja runtime.
func (r *Runtime) VM() *goja.Runtime {
	return r.vm
}

// Loop returns the runtime's job loop.
func (r *Runtime) Loop() *Loop {
	return r.loop
}

// Eval runs a script and returns its completion value.
func (r *Runtime) Eval(code string) (goja.Value, error) {
	return r.EvalFile("<eval>", code)
}

// EvalFile runs a script, reporting errors against filename.
func (r *Runtime) EvalFile(filename, code string) (goja.Value, error) {
	if r.closed {
		return nil, ErrClosed
	}
	if r.opts.timeout > 0 {
		timer := time.AfterFunc(r.opts.timeout, func() {
			r.vm.Interrupt("execution timeout")
		})
		defer func() {
			timer.Stop()
			r.vm.ClearInterrupt()
		}()
	}
	return r.vm.RunScript(filename, code)
}

// Set binds a global variable.
func (r *Runtime) Set(name string, v interface{}) error {
	return r.vm.Set(name, v)
}

// RunLoop drives async completions and finalizers until no work is left.
// It returns the exceptions thrown by async continuations that nothing caught.
func (r *Runtime) RunLoop(ctx context.Context) error {
	if err := r.loop.Run(ctx); err != nil {
		return err
	}
	return r.takeUncaught()
}

// Await drives the loop until the promise v settles and returns its result.
// Values that are not promises are returned unchanged.
func (r *Runtime) Await(ctx context.Context, v goja.Value) (goja.Value, error) {
	obj, ok := v.(*goja.Object)
	if !ok {
		return v, nil
	}
	p, ok := obj.Export().(*goja.Promise)
	if !ok {
		return v, nil
	}
	for p.State() == goja.PromiseStatePending {
		if !r.loop.IsLoopPending() {
			return nil, fmt.Errorf("gojahost: promise can never settle, no work is pending")
		}
		if err := r.loop.RunOnce(ctx); err != nil {
			return nil, err
		}
	}
	if err := r.takeUncaught(); err != nil {
		return nil, err
	}
	if p.State() == goja.PromiseStateRejected {
		return nil, &RejectionError{Reason: p.Result()}
	}
	return p.Result(), nil
}

// Close runs every outstanding finalizer, drops queued work and stops the loop.
// The runtime cannot be used afterwards.
func (r *Runtime) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	r.cancel()
	r.loop.Stop()

	var err error
	ids := make([]uint64, 0, len(r.finalizers))
	for id := range r.finalizers {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		err = multierr.Append(err, r.runFinalizer(id))
	}

	for ref := range r.refs {
		delete(r.refs, ref)
	}
	r.values = r.values[:1]
	r.scopes = nil
	r.frames = nil
	r.logger.Debug("runtime closed", zap.Int("finalizers", len(ids)), zap.Int("abandoned_work", len(r.works)))
	return multierr.Append(err, r.takeUncaught())
}

func (r *Runtime) takeUncaught() error {
	err := r.uncaught
	r.uncaught = nil
	return err
}

// reportUncaught records an exception that escaped to the loop.
func (r *Runtime) reportUncaught(where string) {
	if r.pending == nil {
		return
	}
	exc := r.pending
	r.pending = nil
	r.logger.Warn("uncaught exception", zap.String("in", where), zap.String("exception", exc.String()))
	r.uncaught = multierr.Append(r.uncaught, &RejectionError{Reason: exc})
}
