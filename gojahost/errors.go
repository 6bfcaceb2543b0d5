package gojahost

import (
	"errors"
	"fmt"

	"github.com/dop251/goja"

	napi "github.com/buke/napi-go"
)

// ErrClosed is returned by a Runtime after Close.
var ErrClosed = errors.New("gojahost: runtime is closed")

// RejectionError carries a JavaScript value that was thrown or rejected and
// reached Go.
type RejectionError struct {
	Reason goja.Value
}

func (e *RejectionError) Error() string {
	if e.Reason == nil {
		return "gojahost: rejected with undefined"
	}
	if obj, ok := e.Reason.(*goja.Object); ok {
		if code := obj.Get("code"); code != nil && !goja.IsUndefined(code) {
			return fmt.Sprintf("%s [%s]", obj.String(), code.String())
		}
	}
	return e.Reason.String()
}

// Code returns the `code` property of the reason, or "".
func (e *RejectionError) Code() string {
	obj, ok := e.Reason.(*goja.Object)
	if !ok {
		return ""
	}
	code := obj.Get("code")
	if code == nil || goja.IsUndefined(code) {
		return ""
	}
	return code.String()
}

// fail records status as the last error and returns it.
func (r *Runtime) fail(status napi.Status, format string, args ...interface{}) error {
	r.lastError = napi.ExtendedErrorInfo{Message: fmt.Sprintf(format, args...), Status: status}
	return status
}

// catch turns a JavaScript exception raised by f into a pending exception.
func (r *Runtime) catch(f func()) error {
	if exc := r.vm.Try(f); exc != nil {
		r.pending = exc.Value()
		return r.fail(napi.StatusPendingException, "%s", exc.Error())
	}
	return nil
}

// ThrowError implements napi.Env.
func (r *Runtime) ThrowError(code, msg string) error {
	if r.pending != nil {
		return r.fail(napi.StatusPendingException, "an exception is already pending")
	}
	errObj, err := r.newError(code, r.vm.ToValue(msg))
	if err != nil {
		return err
	}
	r.pending = errObj
	return nil
}

// newError constructs an Error with the given message and optional code.
func (r *Runtime) newError(code string, msg goja.Value) (*goja.Object, error) {
	errObj, err := r.vm.New(r.errorCtor, msg)
	if err != nil {
		return nil, r.fail(napi.StatusGenericFailure, "construct Error: %v", err)
	}
	if code != "" {
		if err := errObj.Set("code", code); err != nil {
			return nil, r.fail(napi.StatusGenericFailure, "set code: %v", err)
		}
	}
	return errObj, nil
}

// IsExceptionPending implements napi.Env.
func (r *Runtime) IsExceptionPending() (bool, error) {
	return r.pending != nil, nil
}

// GetAndClearLastException implements napi.Env. It returns undefined when no
// exception is pending.
func (r *Runtime) GetAndClearLastException() (napi.Value, error) {
	exc := r.pending
	r.pending = nil
	if exc == nil {
		exc = goja.Undefined()
	}
	return r.put(exc), nil
}

// GetLastErrorInfo implements napi.Env.
func (r *Runtime) GetLastErrorInfo() (*napi.ExtendedErrorInfo, error) {
	info := r.lastError
	return &info, nil
}
