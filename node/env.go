package node

/*
#include <stdlib.h>
#include "napi.h"
*/
import "C"
import (
	"runtime/cgo"
	"sync"
	"unsafe"

	napi "github.com/buke/napi-go"
)

// Env is the napi.Env of a Node-API environment. It is only valid on the
// thread Node called into the addon on.
type Env struct {
	env C.napi_env
}

var _ napi.Env = Env{}

func toC(v napi.Value) C.napi_value {
	return C.napi_value(unsafe.Pointer(uintptr(v)))
}

func fromC(v C.napi_value) napi.Value {
	return napi.Value(uintptr(unsafe.Pointer(v)))
}

func status(s C.napi_status) error {
	if s == C.napi_ok {
		return nil
	}
	return napi.Status(s)
}

// value runs a napi_* call producing a napi_value.
func value(call func(result *C.napi_value) C.napi_status) (napi.Value, error) {
	var result C.napi_value
	if err := status(call(&result)); err != nil {
		return 0, err
	}
	return fromC(result), nil
}

// GetUndefined implements napi.Env.
func (e Env) GetUndefined() (napi.Value, error) {
	return value(func(r *C.napi_value) C.napi_status { return C.napi_get_undefined(e.env, r) })
}

// GetNull implements napi.Env.
func (e Env) GetNull() (napi.Value, error) {
	return value(func(r *C.napi_value) C.napi_status { return C.napi_get_null(e.env, r) })
}

// GetGlobal implements napi.Env.
func (e Env) GetGlobal() (napi.Value, error) {
	return value(func(r *C.napi_value) C.napi_status { return C.napi_get_global(e.env, r) })
}

// GetBoolean implements napi.Env.
func (e Env) GetBoolean(b bool) (napi.Value, error) {
	return value(func(r *C.napi_value) C.napi_status { return C.napi_get_boolean(e.env, C.bool(b), r) })
}

// CreateDouble implements napi.Env.
func (e Env) CreateDouble(f float64) (napi.Value, error) {
	return value(func(r *C.napi_value) C.napi_status { return C.napi_create_double(e.env, C.double(f), r) })
}

// CreateInt32 implements napi.Env.
func (e Env) CreateInt32(i int32) (napi.Value, error) {
	return value(func(r *C.napi_value) C.napi_status { return C.napi_create_int32(e.env, C.int32_t(i), r) })
}

// CreateUint32 implements napi.Env.
func (e Env) CreateUint32(u uint32) (napi.Value, error) {
	return value(func(r *C.napi_value) C.napi_status { return C.napi_create_uint32(e.env, C.uint32_t(u), r) })
}

// CreateInt64 implements napi.Env.
func (e Env) CreateInt64(i int64) (napi.Value, error) {
	return value(func(r *C.napi_value) C.napi_status { return C.napi_create_int64(e.env, C.int64_t(i), r) })
}

// CreateStringUTF8 implements napi.Env.
func (e Env) CreateStringUTF8(s string) (napi.Value, error) {
	cs := C.CString(s)
	defer C.free(unsafe.Pointer(cs))
	return value(func(r *C.napi_value) C.napi_status {
		return C.napi_create_string_utf8(e.env, cs, C.size_t(len(s)), r)
	})
}

// CreateObject implements napi.Env.
func (e Env) CreateObject() (napi.Value, error) {
	return value(func(r *C.napi_value) C.napi_status { return C.napi_create_object(e.env, r) })
}

// CreateArray implements napi.Env.
func (e Env) CreateArray() (napi.Value, error) {
	return value(func(r *C.napi_value) C.napi_status { return C.napi_create_array(e.env, r) })
}

// CreateArrayWithLength implements napi.Env.
func (e Env) CreateArrayWithLength(length int) (napi.Value, error) {
	return value(func(r *C.napi_value) C.napi_status {
		return C.napi_create_array_with_length(e.env, C.size_t(length), r)
	})
}

// CreateError implements napi.Env.
func (e Env) CreateError(code, msg napi.Value) (napi.Value, error) {
	return value(func(r *C.napi_value) C.napi_status { return C.napi_create_error(e.env, toC(code), toC(msg), r) })
}

// TypeOf implements napi.Env.
func (e Env) TypeOf(v napi.Value) (napi.ValueType, error) {
	var t C.napi_valuetype
	if err := status(C.napi_typeof(e.env, toC(v), &t)); err != nil {
		return 0, err
	}
	return napi.ValueType(t), nil
}

// IsArray implements napi.Env.
func (e Env) IsArray(v napi.Value) (bool, error) {
	var b C.bool
	err := status(C.napi_is_array(e.env, toC(v), &b))
	return bool(b), err
}

// IsError implements napi.Env.
func (e Env) IsError(v napi.Value) (bool, error) {
	var b C.bool
	err := status(C.napi_is_error(e.env, toC(v), &b))
	return bool(b), err
}

// GetArrayLength implements napi.Env.
func (e Env) GetArrayLength(v napi.Value) (uint32, error) {
	var n C.uint32_t
	err := status(C.napi_get_array_length(e.env, toC(v), &n))
	return uint32(n), err
}

// GetValueBool implements napi.Env.
func (e Env) GetValueBool(v napi.Value) (bool, error) {
	var b C.bool
	err := status(C.napi_get_value_bool(e.env, toC(v), &b))
	return bool(b), err
}

// GetValueDouble implements napi.Env.
func (e Env) GetValueDouble(v napi.Value) (float64, error) {
	var f C.double
	err := status(C.napi_get_value_double(e.env, toC(v), &f))
	return float64(f), err
}

// GetValueInt32 implements napi.Env.
func (e Env) GetValueInt32(v napi.Value) (int32, error) {
	var i C.int32_t
	err := status(C.napi_get_value_int32(e.env, toC(v), &i))
	return int32(i), err
}

// GetValueUint32 implements napi.Env.
func (e Env) GetValueUint32(v napi.Value) (uint32, error) {
	var u C.uint32_t
	err := status(C.napi_get_value_uint32(e.env, toC(v), &u))
	return uint32(u), err
}

// GetValueInt64 implements napi.Env.
func (e Env) GetValueInt64(v napi.Value) (int64, error) {
	var i C.int64_t
	err := status(C.napi_get_value_int64(e.env, toC(v), &i))
	return int64(i), err
}

// GetValueStringUTF8 implements napi.Env.
func (e Env) GetValueStringUTF8(v napi.Value, buf []byte) (int, error) {
	var n C.size_t
	var p *C.char
	if len(buf) > 0 {
		p = (*C.char)(unsafe.Pointer(&buf[0]))
	} else if buf != nil {
		return 0, nil
	}
	err := status(C.napi_get_value_string_utf8(e.env, toC(v), p, C.size_t(len(buf)), &n))
	return int(n), err
}

// SetNamedProperty implements napi.Env.
func (e Env) SetNamedProperty(object napi.Value, name string, v napi.Value) error {
	cname, free := atom(name)
	defer free()
	return status(C.napi_set_named_property(e.env, toC(object), cname, toC(v)))
}

// GetNamedProperty implements napi.Env.
func (e Env) GetNamedProperty(object napi.Value, name string) (napi.Value, error) {
	cname, free := atom(name)
	defer free()
	return value(func(r *C.napi_value) C.napi_status {
		return C.napi_get_named_property(e.env, toC(object), cname, r)
	})
}

// HasNamedProperty implements napi.Env.
func (e Env) HasNamedProperty(object napi.Value, name string) (bool, error) {
	cname, free := atom(name)
	defer free()
	var b C.bool
	err := status(C.napi_has_named_property(e.env, toC(object), cname, &b))
	return bool(b), err
}

// GetPropertyNames implements napi.Env.
func (e Env) GetPropertyNames(object napi.Value) (napi.Value, error) {
	return value(func(r *C.napi_value) C.napi_status { return C.napi_get_property_names(e.env, toC(object), r) })
}

// SetElement implements napi.Env.
func (e Env) SetElement(array napi.Value, index uint32, v napi.Value) error {
	return status(C.napi_set_element(e.env, toC(array), C.uint32_t(index), toC(v)))
}

// GetElement implements napi.Env.
func (e Env) GetElement(array napi.Value, index uint32) (napi.Value, error) {
	return value(func(r *C.napi_value) C.napi_status {
		return C.napi_get_element(e.env, toC(array), C.uint32_t(index), r)
	})
}

// CreateFunction creates a function that calls cb through the C trampoline.
// The Go side of the function is freed by a finalizer on the function object.
func (e Env) CreateFunction(name string, cb napi.Callback, data uintptr) (napi.Value, error) {
	h := cgo.NewHandle(&funcEntry{cb: cb, data: data})
	cname, free := atom(name)
	defer free()
	fn, err := value(func(r *C.napi_value) C.napi_status {
		return C.napi_create_function(e.env, cname, C.size_t(len(name)), C.napi_callback(C.napiGoCallback),
			unsafe.Pointer(uintptr(h)), r)
	})
	if err != nil {
		h.Delete()
		return 0, err
	}
	release := newFinalEntry(func(napi.Env, uintptr, uintptr) { h.Delete() }, 0, 0)
	if err := status(C.napi_add_finalizer(e.env, toC(fn), release, C.napi_finalize(C.napiGoFinalize), nil, nil)); err != nil {
		dropEntry(release)
		return 0, err
	}
	return fn, nil
}

// GetCallbackInfo implements napi.Env.
func (e Env) GetCallbackInfo(info napi.CallbackInfo, maxArgs int) (napi.CallFrame, error) {
	cinfo := C.napi_callback_info(unsafe.Pointer(uintptr(info)))
	argc := C.size_t(maxArgs)
	var argv []C.napi_value
	var argp *C.napi_value
	if maxArgs > 0 {
		argv = make([]C.napi_value, maxArgs)
		argp = &argv[0]
	}
	var this C.napi_value
	var data unsafe.Pointer
	if err := status(C.napi_get_cb_info(e.env, cinfo, &argc, argp, &this, &data)); err != nil {
		return napi.CallFrame{}, err
	}

	n := int(argc)
	if n > maxArgs {
		n = maxArgs
	}
	frame := napi.CallFrame{
		Args: make([]napi.Value, n),
		Argc: int(argc),
		This: fromC(this),
	}
	for i := 0; i < n; i++ {
		frame.Args[i] = fromC(argv[i])
	}
	if data != nil {
		frame.Data = cgo.Handle(uintptr(data)).Value().(*funcEntry).data
	}
	return frame, nil
}

// CallFunction implements napi.Env.
func (e Env) CallFunction(recv, fn napi.Value, args []napi.Value) (napi.Value, error) {
	var argp *C.napi_value
	if len(args) > 0 {
		argv := make([]C.napi_value, len(args))
		for i, a := range args {
			argv[i] = toC(a)
		}
		argp = &argv[0]
	}
	return value(func(r *C.napi_value) C.napi_status {
		return C.napi_call_function(e.env, toC(recv), toC(fn), C.size_t(len(args)), argp, r)
	})
}

// CreateExternal implements napi.Env.
func (e Env) CreateExternal(data uintptr, fin napi.Finalizer, hint uintptr) (napi.Value, error) {
	entry := newFinalEntry(fin, data, hint)
	v, err := value(func(r *C.napi_value) C.napi_status {
		return C.napi_create_external(e.env, entry, C.napi_finalize(C.napiGoFinalize), nil, r)
	})
	if err != nil {
		dropEntry(entry)
	}
	return v, err
}

// GetValueExternal implements napi.Env.
func (e Env) GetValueExternal(v napi.Value) (uintptr, error) {
	var p unsafe.Pointer
	if err := status(C.napi_get_value_external(e.env, toC(v), &p)); err != nil {
		return 0, err
	}
	return entryData(p), nil
}

// AddFinalizer implements napi.Env.
func (e Env) AddFinalizer(object napi.Value, data uintptr, fin napi.Finalizer, hint uintptr) error {
	entry := newFinalEntry(fin, data, hint)
	err := status(C.napi_add_finalizer(e.env, toC(object), entry, C.napi_finalize(C.napiGoFinalize), nil, nil))
	if err != nil {
		dropEntry(entry)
	}
	return err
}

// Wrap implements napi.Env.
func (e Env) Wrap(object napi.Value, data uintptr, fin napi.Finalizer, hint uintptr) error {
	entry := newFinalEntry(fin, data, hint)
	err := status(C.napi_wrap(e.env, toC(object), entry, C.napi_finalize(C.napiGoFinalize), nil, nil))
	if err != nil {
		dropEntry(entry)
	}
	return err
}

// Unwrap implements napi.Env.
func (e Env) Unwrap(object napi.Value) (uintptr, error) {
	var p unsafe.Pointer
	if err := status(C.napi_unwrap(e.env, toC(object), &p)); err != nil {
		return 0, err
	}
	return entryData(p), nil
}

// RemoveWrap implements napi.Env.
func (e Env) RemoveWrap(object napi.Value) (uintptr, error) {
	var p unsafe.Pointer
	if err := status(C.napi_remove_wrap(e.env, toC(object), &p)); err != nil {
		return 0, err
	}
	data := entryData(p)
	dropEntry(p)
	return data, nil
}

// CreateReference implements napi.Env.
func (e Env) CreateReference(v napi.Value, initialRefcount uint32) (napi.Reference, error) {
	var ref C.napi_ref
	if err := status(C.napi_create_reference(e.env, toC(v), C.uint32_t(initialRefcount), &ref)); err != nil {
		return 0, err
	}
	return napi.Reference(uintptr(unsafe.Pointer(ref))), nil
}

// GetReferenceValue implements napi.Env.
func (e Env) GetReferenceValue(ref napi.Reference) (napi.Value, error) {
	return value(func(r *C.napi_value) C.napi_status {
		return C.napi_get_reference_value(e.env, C.napi_ref(unsafe.Pointer(uintptr(ref))), r)
	})
}

// DeleteReference implements napi.Env.
func (e Env) DeleteReference(ref napi.Reference) error {
	return status(C.napi_delete_reference(e.env, C.napi_ref(unsafe.Pointer(uintptr(ref)))))
}

// ThrowError implements napi.Env.
func (e Env) ThrowError(code, msg string) error {
	ccode := C.CString(code)
	defer C.free(unsafe.Pointer(ccode))
	cmsg := C.CString(msg)
	defer C.free(unsafe.Pointer(cmsg))
	return status(C.napi_throw_error(e.env, ccode, cmsg))
}

// IsExceptionPending implements napi.Env.
func (e Env) IsExceptionPending() (bool, error) {
	var b C.bool
	err := status(C.napi_is_exception_pending(e.env, &b))
	return bool(b), err
}

// GetAndClearLastException implements napi.Env.
func (e Env) GetAndClearLastException() (napi.Value, error) {
	return value(func(r *C.napi_value) C.napi_status { return C.napi_get_and_clear_last_exception(e.env, r) })
}

// GetLastErrorInfo implements napi.Env.
func (e Env) GetLastErrorInfo() (*napi.ExtendedErrorInfo, error) {
	var info *C.napi_extended_error_info
	if err := status(C.napi_get_last_error_info(e.env, &info)); err != nil {
		return nil, err
	}
	out := &napi.ExtendedErrorInfo{
		EngineCode: uint32(info.engine_error_code),
		Status:     napi.Status(info.error_code),
	}
	if info.error_message != nil {
		out.Message = C.GoString(info.error_message)
	}
	return out, nil
}

// works maps live async work handles to their cgo handle.
var works sync.Map // map[napi.AsyncWork]cgo.Handle

// CreateAsyncWork implements napi.Env.
func (e Env) CreateAsyncWork(name string, execute napi.AsyncExecute, complete napi.AsyncComplete) (napi.AsyncWork, error) {
	resourceName, err := e.CreateStringUTF8(name)
	if err != nil {
		return 0, err
	}
	h := cgo.NewHandle(&workEntry{name: name, execute: execute, complete: complete})
	var w C.napi_async_work
	err = status(C.napi_create_async_work(e.env, nil, toC(resourceName),
		C.napi_async_execute_callback(C.napiGoExecute), C.napi_async_complete_callback(C.napiGoComplete),
		unsafe.Pointer(uintptr(h)), &w))
	if err != nil {
		h.Delete()
		return 0, err
	}
	id := napi.AsyncWork(uintptr(unsafe.Pointer(w)))
	works.Store(id, h)
	return id, nil
}

func asyncWork(w napi.AsyncWork) C.napi_async_work {
	return C.napi_async_work(unsafe.Pointer(uintptr(w)))
}

// QueueAsyncWork implements napi.Env.
func (e Env) QueueAsyncWork(w napi.AsyncWork) error {
	return status(C.napi_queue_async_work(e.env, asyncWork(w)))
}

// CancelAsyncWork implements napi.Env.
func (e Env) CancelAsyncWork(w napi.AsyncWork) error {
	return status(C.napi_cancel_async_work(e.env, asyncWork(w)))
}

// DeleteAsyncWork implements napi.Env.
func (e Env) DeleteAsyncWork(w napi.AsyncWork) error {
	if err := status(C.napi_delete_async_work(e.env, asyncWork(w))); err != nil {
		return err
	}
	if h, ok := works.LoadAndDelete(w); ok {
		h.(cgo.Handle).Delete()
	}
	return nil
}
