package node

/*
#include "napi.h"
*/
import "C"
import (
	"runtime/cgo"
	"unsafe"

	"go.uber.org/zap"

	napi "github.com/buke/napi-go"
)

// funcEntry is the user data of every function created through Env.
type funcEntry struct {
	cb   napi.Callback
	data uintptr
}

// finalEntry is the user data of every external, wrap and finalizer.
type finalEntry struct {
	fin  napi.Finalizer
	data uintptr
	hint uintptr
}

// workEntry is the user data of an async work item.
type workEntry struct {
	name     string
	execute  napi.AsyncExecute
	complete napi.AsyncComplete
}

//export goCallback
func goCallback(env C.napi_env, info C.napi_callback_info) C.napi_value {
	var data unsafe.Pointer
	if s := C.napi_get_cb_info(env, info, nil, nil, nil, &data); s != C.napi_ok {
		napi.Logger().Error("napi_get_cb_info failed", zap.Int("status", int(s)))
		return nil
	}
	entry := cgo.Handle(uintptr(data)).Value().(*funcEntry)
	result := entry.cb(Env{env: env}, napi.CallbackInfo(uintptr(unsafe.Pointer(info))))
	return toC(result)
}

//export goFinalize
func goFinalize(env C.napi_env, id C.uintptr_t) {
	h := cgo.Handle(id)
	entry := h.Value().(*finalEntry)
	h.Delete()
	if entry.fin != nil {
		entry.fin(Env{env: env}, entry.data, entry.hint)
	}
}

//export goExecute
func goExecute(id C.uintptr_t) {
	entry := cgo.Handle(id).Value().(*workEntry)
	defer func() {
		if r := recover(); r != nil {
			napi.Logger().Error("async work panicked", zap.String("name", entry.name), zap.Any("panic", r))
		}
	}()
	entry.execute()
}

//export goComplete
func goComplete(env C.napi_env, status C.napi_status, id C.uintptr_t) {
	entry := cgo.Handle(id).Value().(*workEntry)
	if entry.complete != nil {
		entry.complete(Env{env: env}, napi.Status(status))
	}
}

// newFinalEntry boxes a finalizer for the C side.
func newFinalEntry(fin napi.Finalizer, data, hint uintptr) unsafe.Pointer {
	h := cgo.NewHandle(&finalEntry{fin: fin, data: data, hint: hint})
	return unsafe.Pointer(uintptr(h))
}

// entryData returns the Go payload of a finalEntry pointer handed back by the host.
func entryData(p unsafe.Pointer) uintptr {
	if p == nil {
		return 0
	}
	return cgo.Handle(uintptr(p)).Value().(*finalEntry).data
}

// dropEntry frees a finalEntry without running its finalizer.
func dropEntry(p unsafe.Pointer) {
	if p != nil {
		cgo.Handle(uintptr(p)).Delete()
	}
}
