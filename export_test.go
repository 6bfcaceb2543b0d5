package napi

import "sync"

// Dispatch exposes the shared function callback to external tests.
var Dispatch Callback = dispatch

// ResetInitialize forgets the registered module so Initialize can run again.
func ResetInitialize() {
	initOnce = sync.Once{}
	registered = nil
}
