package napi

import (
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// Func is a Go closure callable from the host. args is decoded from the call's
// argument list with Decode; the result is encoded with Encode. A returned error
// is thrown in the host.
type Func[A, R any] func(env Env, this Value, args A) (R, error)

// closureSlot is the native side of a host function. Its id in the handle store
// is the function's user data.
type closureSlot struct {
	name   string
	invoke func(env Env, this Value, args []Value) (Value, error)
}

// CreateFunction creates a host function that calls fn.
//
// The closure is owned by the returned function from then on: the host
// finalizer of the function object is the only thing that frees it.
func CreateFunction[A, R any](env Env, name string, fn Func[A, R]) (Value, error) {
	if fn == nil {
		return 0, newError(InvalidArgument, "function %q is nil", name)
	}
	if _, err := encodeName(name); err != nil {
		return 0, err
	}

	slot := &closureSlot{
		name: name,
		invoke: func(env Env, this Value, raw []Value) (Value, error) {
			args, err := Decode[A](env, this, raw)
			if err != nil {
				return 0, err
			}
			result, err := fn(env, this, args)
			if err != nil {
				return 0, err
			}
			return Encode(env, result)
		},
	}
	id := slots.store(slot)

	fnVal, err := env.CreateFunction(name, dispatch, id)
	if err != nil {
		slots.release(id)
		return 0, check(env, err)
	}
	if err := env.AddFinalizer(fnVal, id, releaseSlot, 0); err != nil {
		slots.release(id)
		return 0, check(env, err)
	}
	Logger().Debug("created function", zap.String("name", name), zapSlot(id))
	return fnVal, nil
}

// dispatch is the one callback every function created by CreateFunction shares.
func dispatch(env Env, info CallbackInfo) Value {
	frame, err := env.GetCallbackInfo(info, MaxArgs)
	if err != nil {
		return throw(env, check(env, err))
	}
	if frame.Argc > MaxArgs {
		return throw(env, newError(InvalidArgument, "expected at most %d arguments, got %d", MaxArgs, frame.Argc))
	}

	stored, _ := slots.load(frame.Data)
	slot, ok := stored.(*closureSlot)
	if !ok {
		// The host handed back user data that was never ours or was already
		// finalized: the adapter itself is broken.
		panic(fmt.Sprintf("napi: no native closure for slot %d", frame.Data))
	}

	result, err := slot.call(env, frame.This, frame.Args)
	if err != nil {
		return throw(env, err)
	}
	return result
}

// call runs the closure, turning a Go panic into an error so it never unwinds
// into the host.
func (s *closureSlot) call(env Env, this Value, args []Value) (result Value, err error) {
	defer func() {
		if r := recover(); r != nil {
			Logger().Error("native function panicked", zap.String("name", s.name), zap.Any("panic", r))
			err = newError(GenericFailure, "%s: panic: %v", s.name, r)
		}
	}()
	return s.invoke(env, this, args)
}

// throw raises err in the host, unless an exception is already pending, and
// returns undefined for the callback to hand back.
func throw(env Env, err error) Value {
	code, msg := GenericFailure, err.Error()
	var e *Error
	if errors.As(err, &e) {
		code, msg = e.Kind, e.Message
	}

	pending, perr := env.IsExceptionPending()
	if perr != nil || !pending {
		if terr := env.ThrowError(code.String(), msg); terr != nil {
			Logger().Warn("failed to throw error", zap.String("code", code.String()), zap.String("message", msg), zap.Error(terr))
		}
	}
	Logger().Debug("threw error", zap.String("code", code.String()), zap.String("message", msg))

	v, uerr := env.GetUndefined()
	if uerr != nil {
		return 0
	}
	return v
}

// encodeName checks that a property or function name can cross the boundary.
func encodeName(name string) (string, error) {
	for i := 0; i < len(name); i++ {
		if name[i] == 0 {
			return "", newError(GenericFailure, "string must not contain 0 byte")
		}
	}
	return name, nil
}
