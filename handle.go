package napi

import (
	"sync"
	"sync/atomic"
)

// handleStore owns native values whose lifetime has been handed to the host.
// The id returned by store is what travels through the host as user data; the
// host finalizer gives it back through release, which frees it exactly once.
type handleStore struct {
	values sync.Map      // map[uintptr]interface{}
	nextID atomic.Uint64 // 0 is reserved as invalid
}

// slots holds every closure slot and boxed thenable state of the process.
var slots = &handleStore{}

// store keeps value and returns its id.
func (hs *handleStore) store(value interface{}) uintptr {
	id := uintptr(hs.nextID.Add(1))
	hs.values.Store(id, value)
	return id
}

// load returns the value stored under id.
func (hs *handleStore) load(id uintptr) (interface{}, bool) {
	if id == 0 {
		return nil, false
	}
	return hs.values.Load(id)
}

// release removes id. It reports false if id was never stored or is already gone,
// so a second release is harmless.
func (hs *handleStore) release(id uintptr) bool {
	if id == 0 {
		return false
	}
	_, ok := hs.values.LoadAndDelete(id)
	return ok
}

// count returns the number of live entries.
func (hs *handleStore) count() int {
	n := 0
	hs.values.Range(func(_, _ interface{}) bool {
		n++
		return true
	})
	return n
}

// releaseSlot is the Finalizer attached to every host object that owns a slot.
func releaseSlot(_ Env, data uintptr, _ uintptr) {
	if slots.release(data) {
		Logger().Debug("released native slot", zapSlot(data))
	}
}

// LiveSlots reports how many closure slots and thenable states are still owned
// by host objects that have not been finalized.
func LiveSlots() int {
	return slots.count()
}
