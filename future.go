package napi

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"
)

// FutureState is the lifecycle position of a Future.
type FutureState int32

const (
	FutureCreated FutureState = iota
	FutureQueued
	FutureRunning
	FutureResolved
	FutureRejected
)

func (s FutureState) String() string {
	switch s {
	case FutureCreated:
		return "created"
	case FutureQueued:
		return "queued"
	case FutureRunning:
		return "running"
	case FutureResolved:
		return "resolved"
	case FutureRejected:
		return "rejected"
	}
	return fmt.Sprintf("FutureState(%d)", int32(s))
}

// Future is a Go computation running as host async work. Encoding a *Future
// yields a thenable the host can await.
//
// Everything except execute runs on the host thread.
type Future[T any] struct {
	env    Env
	name   string
	work   AsyncWork
	fn     func(ctx context.Context) (T, error)
	ctx    context.Context
	cancel context.CancelFunc
	state  atomic.Int32

	// Written by execute, read by complete. The host orders the two.
	value T
	err   error

	continuations []continuation
}

// continuation is one then() registration. A zero Reference means the callback
// was not supplied.
type continuation struct {
	onFulfilled Reference
	onRejected  Reference
}

// thenable is the type-erased face of a Future, as seen from the then function.
type thenable interface {
	subscribe(env Env, args ThenArgs) error
}

// Spawn queues fn as host async work. fn runs off the host thread and must not
// touch env or any Value; its result is encoded on the host thread once it returns.
func Spawn[T any](env Env, name string, fn func(ctx context.Context) (T, error)) (*Future[T], error) {
	if fn == nil {
		return nil, newError(InvalidArgument, "async work %q has no function", name)
	}
	ctx, cancel := context.WithCancel(context.Background())
	f := &Future[T]{env: env, name: name, fn: fn, ctx: ctx, cancel: cancel}

	work, err := env.CreateAsyncWork(name, f.execute, f.complete)
	if err != nil {
		cancel()
		return nil, check(env, err)
	}
	f.work = work
	f.state.Store(int32(FutureQueued))
	if err := env.QueueAsyncWork(work); err != nil {
		f.state.Store(int32(FutureCreated))
		if derr := env.DeleteAsyncWork(work); derr != nil {
			Logger().Warn("failed to delete async work", zap.String("name", name), zap.Error(derr))
		}
		cancel()
		return nil, check(env, err)
	}
	Logger().Debug("queued async work", zap.String("name", name))
	return f, nil
}

// State returns the current lifecycle state.
func (f *Future[T]) State() FutureState {
	return FutureState(f.state.Load())
}

// Cancel asks the host to drop the work if it has not started yet; the future
// then rejects with a Cancelled error. Work that is already running sees its
// context cancelled and completes normally, including work the host has
// dequeued but not yet started. Must be called on the host thread.
func (f *Future[T]) Cancel() error {
	f.cancel()
	switch f.State() {
	case FutureRunning, FutureResolved, FutureRejected:
		return nil
	}
	if err := f.env.CancelAsyncWork(f.work); err != nil {
		// A host picks work up before execute moves the state to running, and
		// refuses to cancel it with a generic failure.
		var status Status
		if errors.As(err, &status) && status == StatusGenericFailure {
			Logger().Debug("async work already started", zap.String("name", f.name))
			return nil
		}
		return check(f.env, err)
	}
	return nil
}

func (f *Future[T]) execute() {
	if !f.state.CompareAndSwap(int32(FutureQueued), int32(FutureRunning)) {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			f.err = newError(GenericFailure, "%s: panic: %v", f.name, r)
		}
	}()
	f.value, f.err = f.fn(f.ctx)
}

func (f *Future[T]) complete(env Env, status Status) {
	defer f.cancel()
	if err := env.DeleteAsyncWork(f.work); err != nil {
		Logger().Warn("failed to delete async work", zap.String("name", f.name), zap.Error(err))
	}

	if status != StatusOK {
		f.err = &Error{Message: fmt.Sprintf("async work %s: %s", f.name, status.text()), Kind: KindFromStatus(status)}
	}
	if f.err != nil {
		f.state.Store(int32(FutureRejected))
	} else {
		f.state.Store(int32(FutureResolved))
	}
	Logger().Debug("async work completed", zap.String("name", f.name), zap.Stringer("state", f.State()))

	pending := f.continuations
	f.continuations = nil
	for _, c := range pending {
		f.settle(env, c)
	}
}

func (f *Future[T]) subscribe(env Env, args ThenArgs) error {
	var c continuation
	var err error
	if args.OnFulfilled != 0 {
		if c.onFulfilled, err = env.CreateReference(Value(args.OnFulfilled), 1); err != nil {
			return check(env, err)
		}
	}
	if args.OnRejected != 0 {
		if c.onRejected, err = env.CreateReference(Value(args.OnRejected), 1); err != nil {
			c.release(env)
			return check(env, err)
		}
	}

	switch f.State() {
	case FutureResolved, FutureRejected:
		f.settle(env, c)
	default:
		f.continuations = append(f.continuations, c)
	}
	return nil
}

// settle runs the one continuation of c that matches the outcome.
func (f *Future[T]) settle(env Env, c continuation) {
	defer c.release(env)

	reason := f.err
	if reason == nil {
		v, err := Encode(env, f.value)
		if err == nil {
			f.invoke(env, c.onFulfilled, v)
			return
		}
		reason = err
	}
	v, err := Encode(env, reason)
	if err != nil {
		Logger().Warn("failed to encode rejection", zap.String("name", f.name), zap.Error(err))
		return
	}
	f.invoke(env, c.onRejected, v)
}

func (f *Future[T]) invoke(env Env, ref Reference, arg Value) {
	if ref == 0 {
		return
	}
	fn, err := env.GetReferenceValue(ref)
	if err != nil {
		Logger().Warn("continuation is gone", zap.String("name", f.name), zap.Error(err))
		return
	}
	recv, err := env.GetUndefined()
	if err != nil {
		return
	}
	if _, err := env.CallFunction(recv, fn, []Value{arg}); err != nil {
		// The continuation threw; nobody above us can catch it.
		if exc, cerr := env.GetAndClearLastException(); cerr == nil {
			Logger().Warn("continuation threw", zap.String("name", f.name), zap.Uint64("exception", uint64(exc)))
		}
	}
}

func (c continuation) release(env Env) {
	for _, ref := range [...]Reference{c.onFulfilled, c.onRejected} {
		if ref == 0 {
			continue
		}
		if err := env.DeleteReference(ref); err != nil {
			Logger().Warn("failed to delete reference", zap.Error(err))
		}
	}
}

// MarshalNAPI encodes the future as {then, state}. state is an external owning
// the future; then registers continuations on it.
func (f *Future[T]) MarshalNAPI(env Env) (Value, error) {
	obj, err := env.CreateObject()
	if err != nil {
		return 0, check(env, err)
	}

	id := slots.store(thenable(f))
	state, err := env.CreateExternal(id, releaseSlot, 0)
	if err != nil {
		slots.release(id)
		return 0, check(env, err)
	}
	if err := env.SetNamedProperty(obj, "state", state); err != nil {
		return 0, check(env, err)
	}

	then, err := CreateFunction(env, "then", thenFunc)
	if err != nil {
		return 0, err
	}
	if err := env.SetNamedProperty(obj, "then", then); err != nil {
		return 0, check(env, err)
	}
	return obj, nil
}

// thenFunc is the body of every thenable's then method.
func thenFunc(env Env, this Value, args ThenArgs) (Void, error) {
	if err := expectType(env, this, TypeObject); err != nil {
		return Void{}, err
	}
	state, err := env.GetNamedProperty(this, "state")
	if err != nil {
		return Void{}, check(env, err)
	}
	if typ, err := env.TypeOf(state); err != nil || typ != TypeExternal {
		return Void{}, newError(InvalidArgument, "then called on an object without async state")
	}
	id, err := env.GetValueExternal(state)
	if err != nil {
		return Void{}, check(env, err)
	}
	stored, _ := slots.load(id)
	t, ok := stored.(thenable)
	if !ok {
		return Void{}, newError(GenericFailure, "async state %d is gone", id)
	}
	return Void{}, t.subscribe(env, args)
}

// ThenArgs are the arguments of then: an onFulfilled function and an optional
// onRejected function. undefined and null leave a callback unset.
type ThenArgs struct {
	OnFulfilled Function
	OnRejected  Function
}

// UnmarshalNAPI implements Unmarshaler.
func (t *ThenArgs) UnmarshalNAPI(env Env, _ Value, args []Value) error {
	if len(args) < 1 || len(args) > 2 {
		return newError(InvalidArgument, "expected 1 or 2 arguments, got %d", len(args))
	}
	var err error
	if t.OnFulfilled, err = optionalFunction(env, args[0]); err != nil {
		return err
	}
	if len(args) == 2 {
		t.OnRejected, err = optionalFunction(env, args[1])
	}
	return err
}

func optionalFunction(env Env, v Value) (Function, error) {
	typ, err := env.TypeOf(v)
	if err != nil {
		return 0, check(env, err)
	}
	switch typ {
	case TypeUndefined, TypeNull:
		return 0, nil
	case TypeFunction:
		return Function(v), nil
	}
	return 0, typeError(TypeFunction, typ)
}
