package node

/*
#include <stdlib.h>
*/
import "C"
import (
	"sync"
	"sync/atomic"
	"unsafe"
)

const (
	maxAtoms      = 4096
	maxAtomLength = 64
)

// atoms interns property and function names as C strings. Most names come from
// Go source (struct fields, export names, then/state) and repeat on every call.
var (
	atoms     sync.Map // map[string]*C.char
	atomCount atomic.Int32
)

// atom returns a NUL-terminated C copy of name and the function releasing it.
// Interned names are never freed.
func atom(name string) (*C.char, func()) {
	if p, ok := atoms.Load(name); ok {
		return p.(*C.char), func() {}
	}
	cs := C.CString(name)
	if len(name) > maxAtomLength || atomCount.Load() >= maxAtoms {
		return cs, func() { C.free(unsafe.Pointer(cs)) }
	}
	p, loaded := atoms.LoadOrStore(name, cs)
	if loaded {
		C.free(unsafe.Pointer(cs))
	} else {
		atomCount.Add(1)
	}
	return p.(*C.char), func() {}
}
