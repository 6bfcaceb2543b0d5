package gojahost

import (
	"github.com/dop251/goja"

	napi "github.com/buke/napi-go"
)

// frame is the state behind one napi.CallbackInfo.
type frame struct {
	this goja.Value
	args []goja.Value
	data uintptr
}

// put registers v in the current handle scope.
func (r *Runtime) put(v goja.Value) napi.Value {
	if v == nil {
		v = goja.Undefined()
	}
	r.values = append(r.values, v)
	return napi.Value(len(r.values) - 1)
}

// get resolves a handle of the current or an enclosing scope.
func (r *Runtime) get(h napi.Value) (goja.Value, error) {
	if h == 0 || int(h) >= len(r.values) {
		return nil, r.fail(napi.StatusInvalidArg, "invalid handle %d", h)
	}
	return r.values[h], nil
}

func (r *Runtime) object(h napi.Value) (*goja.Object, error) {
	v, err := r.get(h)
	if err != nil {
		return nil, err
	}
	obj, ok := v.(*goja.Object)
	if !ok {
		return nil, r.fail(napi.StatusObjectExpected, "value is not an object")
	}
	return obj, nil
}

func (r *Runtime) openScope() {
	r.scopes = append(r.scopes, len(r.values))
}

// closeScope invalidates every handle created since the matching openScope.
func (r *Runtime) closeScope() {
	n := len(r.scopes) - 1
	base := r.scopes[n]
	r.scopes = r.scopes[:n]
	for i := base; i < len(r.values); i++ {
		r.values[i] = nil
	}
	r.values = r.values[:base]
}

// Scope runs fn inside a handle scope. Handles created by fn are invalid once
// it returns.
func (r *Runtime) Scope(fn func() error) error {
	if r.closed {
		return ErrClosed
	}
	r.openScope()
	defer r.closeScope()
	return fn()
}

// Handle registers a goja value in the current scope.
func (r *Runtime) Handle(v goja.Value) napi.Value {
	return r.put(v)
}

// Value resolves a handle to its goja value, or nil if the handle is invalid.
func (r *Runtime) Value(h napi.Value) goja.Value {
	v, err := r.get(h)
	if err != nil {
		return nil
	}
	return v
}

// LiveHandles reports how many handles are currently valid.
func (r *Runtime) LiveHandles() int {
	return len(r.values) - 1
}
