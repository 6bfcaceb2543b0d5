package gojahost

import (
	"fmt"
	"runtime"

	"github.com/dop251/goja"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	napi "github.com/buke/napi-go"
)

// external is the Go side of a value created by CreateExternal.
type external struct {
	data uintptr
}

// wrapping is what Wrap attaches to an object under the runtime's wrap symbol.
type wrapping struct {
	data      uintptr
	finalizer uint64
}

type finalizer struct {
	fin     napi.Finalizer
	data    uintptr
	hint    uintptr
	cleanup runtime.Cleanup
	tracked bool
}

// attachFinalizer arranges for fin to run once obj is collected, or on Close,
// whichever comes first.
func (r *Runtime) attachFinalizer(obj *goja.Object, data uintptr, fin napi.Finalizer, hint uintptr) uint64 {
	if fin == nil {
		return 0
	}
	r.nextFinal++
	id := r.nextFinal
	f := &finalizer{fin: fin, data: data, hint: hint}
	if r.opts.collector {
		f.cleanup = runtime.AddCleanup(obj, r.collected, id)
		f.tracked = true
	}
	r.finalizers[id] = f
	return id
}

// collected runs on the collector's goroutine; the finalizer itself runs on the loop.
func (r *Runtime) collected(id uint64) {
	if err := r.loop.ScheduleJob(func() {
		if err := r.runFinalizer(id); err != nil {
			r.uncaught = multierr.Append(r.uncaught, err)
		}
	}); err != nil {
		r.logger.Debug("dropped finalizer", zap.Uint64("finalizer", id), zap.Error(err))
	}
}

// runFinalizer runs and forgets finalizer id. Unknown ids are ignored, so each
// finalizer runs at most once.
func (r *Runtime) runFinalizer(id uint64) (err error) {
	f, ok := r.finalizers[id]
	if !ok {
		return nil
	}
	delete(r.finalizers, id)
	if f.tracked {
		f.cleanup.Stop()
	}

	r.openScope()
	defer func() {
		r.closeScope()
		if p := recover(); p != nil {
			err = fmt.Errorf("gojahost: finalizer %d panicked: %v", id, p)
		}
	}()
	f.fin(r, f.data, f.hint)
	r.reportUncaught("finalizer")
	r.logger.Debug("ran finalizer", zap.Uint64("finalizer", id))
	return nil
}

// cancelFinalizer forgets finalizer id without running it.
func (r *Runtime) cancelFinalizer(id uint64) {
	f, ok := r.finalizers[id]
	if !ok {
		return
	}
	delete(r.finalizers, id)
	if f.tracked {
		f.cleanup.Stop()
	}
}

// PendingFinalizers reports how many finalizers have not run yet.
func (r *Runtime) PendingFinalizers() int {
	return len(r.finalizers)
}

// CreateExternal implements napi.Env.
func (r *Runtime) CreateExternal(data uintptr, fin napi.Finalizer, hint uintptr) (napi.Value, error) {
	obj := r.vm.ToValue(&external{data: data}).(*goja.Object)
	r.attachFinalizer(obj, data, fin, hint)
	return r.put(obj), nil
}

// GetValueExternal implements napi.Env.
func (r *Runtime) GetValueExternal(h napi.Value) (uintptr, error) {
	v, err := r.expect(h, napi.TypeExternal, napi.StatusInvalidArg)
	if err != nil {
		return 0, err
	}
	return v.Export().(*external).data, nil
}

// AddFinalizer implements napi.Env.
func (r *Runtime) AddFinalizer(object napi.Value, data uintptr, fin napi.Finalizer, hint uintptr) error {
	obj, err := r.object(object)
	if err != nil {
		return err
	}
	if fin == nil {
		return r.fail(napi.StatusInvalidArg, "finalizer is nil")
	}
	r.attachFinalizer(obj, data, fin, hint)
	return nil
}

func (r *Runtime) wrapOf(obj *goja.Object) *wrapping {
	v := obj.GetSymbol(r.wrapKey)
	if v == nil {
		return nil
	}
	w, _ := v.Export().(*wrapping)
	return w
}

// Wrap implements napi.Env. An object can be wrapped once.
func (r *Runtime) Wrap(object napi.Value, data uintptr, fin napi.Finalizer, hint uintptr) error {
	obj, err := r.object(object)
	if err != nil {
		return err
	}
	if r.wrapOf(obj) != nil {
		return r.fail(napi.StatusInvalidArg, "object is already wrapped")
	}
	w := &wrapping{data: data}
	if err := obj.DefineDataPropertySymbol(r.wrapKey, r.vm.ToValue(w), goja.FLAG_FALSE, goja.FLAG_TRUE, goja.FLAG_FALSE); err != nil {
		return r.fail(napi.StatusGenericFailure, "wrap: %v", err)
	}
	w.finalizer = r.attachFinalizer(obj, data, fin, hint)
	return nil
}

// Unwrap implements napi.Env.
func (r *Runtime) Unwrap(object napi.Value) (uintptr, error) {
	obj, err := r.object(object)
	if err != nil {
		return 0, err
	}
	w := r.wrapOf(obj)
	if w == nil {
		return 0, r.fail(napi.StatusInvalidArg, "object is not wrapped")
	}
	return w.data, nil
}

// RemoveWrap implements napi.Env. The wrap's finalizer will not run.
func (r *Runtime) RemoveWrap(object napi.Value) (uintptr, error) {
	obj, err := r.object(object)
	if err != nil {
		return 0, err
	}
	w := r.wrapOf(obj)
	if w == nil {
		return 0, r.fail(napi.StatusInvalidArg, "object is not wrapped")
	}
	if err := obj.DeleteSymbol(r.wrapKey); err != nil {
		return 0, r.fail(napi.StatusGenericFailure, "remove wrap: %v", err)
	}
	r.cancelFinalizer(w.finalizer)
	return w.data, nil
}

// CreateReference implements napi.Env. References are always strong; the
// initial count only has to be a valid value.
func (r *Runtime) CreateReference(h napi.Value, _ uint32) (napi.Reference, error) {
	v, err := r.get(h)
	if err != nil {
		return 0, err
	}
	r.nextRef++
	r.refs[r.nextRef] = v
	return r.nextRef, nil
}

// GetReferenceValue implements napi.Env.
func (r *Runtime) GetReferenceValue(ref napi.Reference) (napi.Value, error) {
	v, ok := r.refs[ref]
	if !ok {
		return 0, r.fail(napi.StatusInvalidArg, "invalid reference %d", ref)
	}
	return r.put(v), nil
}

// DeleteReference implements napi.Env.
func (r *Runtime) DeleteReference(ref napi.Reference) error {
	if _, ok := r.refs[ref]; !ok {
		return r.fail(napi.StatusInvalidArg, "invalid reference %d", ref)
	}
	delete(r.refs, ref)
	return nil
}

// LiveReferences reports how many references have not been deleted.
func (r *Runtime) LiveReferences() int {
	return len(r.refs)
}
