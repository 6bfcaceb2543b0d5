package napi

// CallbackInfo is the opaque per-call record a host passes to a Callback.
type CallbackInfo uintptr

// Callback is the single fixed signature through which the host calls native code.
type Callback func(env Env, info CallbackInfo) Value

// CallFrame is what GetCallbackInfo extracts from a CallbackInfo.
// Argc is the number of arguments the host call actually passed; Args holds at
// most the requested maximum.
type CallFrame struct {
	Args []Value
	Argc int
	This Value
	Data uintptr
}

// Finalizer is invoked by the host collector once the object it was attached to
// is unreachable. data is the pointer-sized payload given at attachment time.
type Finalizer func(env Env, data uintptr, hint uintptr)

// AsyncWork is a host handle to a queued work item.
type AsyncWork uintptr

// AsyncExecute runs off the host thread. It must not touch Env or any Value.
type AsyncExecute func()

// AsyncComplete runs on the host thread once execute has returned, or with
// StatusCancelled when the item was cancelled before it started.
type AsyncComplete func(env Env, status Status)

// Env is the host's native ABI as a set of fallible operations. Every method
// must be called on the host thread. A failed call returns a Status (or an error
// wrapping one) and records details retrievable through GetLastErrorInfo.
type Env interface {
	// Value constructors.
	GetUndefined() (Value, error)
	GetNull() (Value, error)
	GetGlobal() (Value, error)
	GetBoolean(b bool) (Value, error)
	CreateDouble(f float64) (Value, error)
	CreateInt32(i int32) (Value, error)
	CreateUint32(u uint32) (Value, error)
	CreateInt64(i int64) (Value, error)
	CreateStringUTF8(s string) (Value, error)
	CreateObject() (Value, error)
	CreateArray() (Value, error)
	CreateArrayWithLength(length int) (Value, error)
	CreateError(code, msg Value) (Value, error)

	// Value readers.
	TypeOf(v Value) (ValueType, error)
	IsArray(v Value) (bool, error)
	IsError(v Value) (bool, error)
	GetArrayLength(v Value) (uint32, error)
	GetValueBool(v Value) (bool, error)
	GetValueDouble(v Value) (float64, error)
	GetValueInt32(v Value) (int32, error)
	GetValueUint32(v Value) (uint32, error)
	GetValueInt64(v Value) (int64, error)
	// GetValueStringUTF8 returns the UTF-8 byte length of v when buf is nil.
	// Otherwise it copies at most len(buf)-1 bytes into buf and returns the
	// number of bytes copied.
	GetValueStringUTF8(v Value, buf []byte) (int, error)

	// Object and array mutation.
	SetNamedProperty(object Value, name string, v Value) error
	GetNamedProperty(object Value, name string) (Value, error)
	HasNamedProperty(object Value, name string) (bool, error)
	GetPropertyNames(object Value) (Value, error)
	SetElement(array Value, index uint32, v Value) error
	GetElement(array Value, index uint32) (Value, error)

	// Function machinery.
	CreateFunction(name string, cb Callback, data uintptr) (Value, error)
	GetCallbackInfo(info CallbackInfo, maxArgs int) (CallFrame, error)
	CallFunction(recv, fn Value, args []Value) (Value, error)

	// Externals and lifetime.
	CreateExternal(data uintptr, fin Finalizer, hint uintptr) (Value, error)
	GetValueExternal(v Value) (uintptr, error)
	AddFinalizer(object Value, data uintptr, fin Finalizer, hint uintptr) error
	Wrap(object Value, data uintptr, fin Finalizer, hint uintptr) error
	Unwrap(object Value) (uintptr, error)
	RemoveWrap(object Value) (uintptr, error)
	CreateReference(v Value, initialRefcount uint32) (Reference, error)
	GetReferenceValue(ref Reference) (Value, error)
	DeleteReference(ref Reference) error

	// Errors.
	ThrowError(code, msg string) error
	IsExceptionPending() (bool, error)
	GetAndClearLastException() (Value, error)
	GetLastErrorInfo() (*ExtendedErrorInfo, error)

	// Async work.
	CreateAsyncWork(name string, execute AsyncExecute, complete AsyncComplete) (AsyncWork, error)
	QueueAsyncWork(work AsyncWork) error
	CancelAsyncWork(work AsyncWork) error
	DeleteAsyncWork(work AsyncWork) error
}
