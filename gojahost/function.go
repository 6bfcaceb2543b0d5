package gojahost

import (
	"github.com/dop251/goja"
	"go.uber.org/zap"

	napi "github.com/buke/napi-go"
)

// CreateFunction implements napi.Env. Every call of the returned function runs
// cb inside a fresh handle scope with a CallbackInfo describing the call.
func (r *Runtime) CreateFunction(name string, cb napi.Callback, data uintptr) (napi.Value, error) {
	if cb == nil {
		return 0, r.fail(napi.StatusInvalidArg, "callback is nil")
	}
	fn := r.vm.ToValue(func(call goja.FunctionCall) goja.Value {
		return r.invoke(cb, data, call)
	}).(*goja.Object)
	if err := fn.DefineDataProperty("name", r.vm.ToValue(name), goja.FLAG_FALSE, goja.FLAG_FALSE, goja.FLAG_TRUE); err != nil {
		return 0, r.fail(napi.StatusGenericFailure, "set function name: %v", err)
	}
	return r.put(fn), nil
}

// invoke is the goja side of every native function.
func (r *Runtime) invoke(cb napi.Callback, data uintptr, call goja.FunctionCall) goja.Value {
	r.openScope()
	r.frames = append(r.frames, frame{this: call.This, args: call.Arguments, data: data})
	defer func() {
		r.frames = r.frames[:len(r.frames)-1]
		r.closeScope()
	}()

	result := cb(r, napi.CallbackInfo(len(r.frames)))
	var ret goja.Value = goja.Undefined()
	if result != 0 && int(result) < len(r.values) {
		ret = r.values[result]
	}

	if exc := r.pending; exc != nil {
		r.pending = nil
		// goja rethrows a panicking Value as a JavaScript exception.
		panic(exc)
	}
	return ret
}

// GetCallbackInfo implements napi.Env.
func (r *Runtime) GetCallbackInfo(info napi.CallbackInfo, maxArgs int) (napi.CallFrame, error) {
	if info == 0 || int(info) > len(r.frames) {
		return napi.CallFrame{}, r.fail(napi.StatusInvalidArg, "invalid callback info %d", info)
	}
	f := r.frames[info-1]
	n := len(f.args)
	if n > maxArgs {
		n = maxArgs
	}
	args := make([]napi.Value, n)
	for i := range args {
		args[i] = r.put(f.args[i])
	}
	return napi.CallFrame{
		Args: args,
		Argc: len(f.args),
		This: r.put(f.this),
		Data: f.data,
	}, nil
}

// CallFunction implements napi.Env. An exception thrown by the callee is left
// pending and reported as StatusPendingException.
func (r *Runtime) CallFunction(recv, fn napi.Value, args []napi.Value) (napi.Value, error) {
	if r.pending != nil {
		return 0, r.fail(napi.StatusPendingException, "an exception is already pending")
	}
	fnVal, err := r.get(fn)
	if err != nil {
		return 0, err
	}
	callable, ok := goja.AssertFunction(fnVal)
	if !ok {
		return 0, r.fail(napi.StatusFunctionExpected, "value is not a function")
	}
	this, err := r.get(recv)
	if err != nil {
		return 0, err
	}
	argv := make([]goja.Value, len(args))
	for i, a := range args {
		if argv[i], err = r.get(a); err != nil {
			return 0, err
		}
	}

	result, err := callable(this, argv...)
	if err != nil {
		if exc, ok := err.(*goja.Exception); ok {
			r.pending = exc.Value()
		} else {
			r.pending = r.vm.NewGoError(err)
		}
		r.logger.Debug("call threw", zap.Error(err))
		return 0, r.fail(napi.StatusPendingException, "%v", err)
	}
	return r.put(result), nil
}
