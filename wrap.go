package napi

// Finalizable is implemented by wrapped Go objects that need cleanup.
// Finalize is called on the host thread once the host object is collected.
type Finalizable interface {
	Finalize()
}

// Wrap attaches native to the host object. The object owns native from then on;
// it is dropped, after Finalize if it has one, when the object is collected.
func Wrap(env Env, object Value, native interface{}) error {
	if native == nil {
		return newError(InvalidArgument, "cannot wrap nil")
	}
	if err := expectType(env, object, TypeObject); err != nil {
		return err
	}
	id := slots.store(native)
	if err := env.Wrap(object, id, finalizeWrapped, 0); err != nil {
		slots.release(id)
		return check(env, err)
	}
	return nil
}

// Unwrap returns the Go object wrapped by object.
func Unwrap[T any](env Env, object Value) (T, error) {
	var zero T
	id, err := env.Unwrap(object)
	if err != nil {
		return zero, check(env, err)
	}
	stored, ok := slots.load(id)
	if !ok {
		return zero, newError(GenericFailure, "wrapped object %d is gone", id)
	}
	native, ok := stored.(T)
	if !ok {
		return zero, newError(InvalidArgument, "wrapped object is %T, not %T", stored, zero)
	}
	return native, nil
}

// RemoveWrap detaches and returns the Go object wrapped by object. Finalize is
// not called; the caller owns the object again.
func RemoveWrap(env Env, object Value) (interface{}, error) {
	id, err := env.RemoveWrap(object)
	if err != nil {
		return nil, check(env, err)
	}
	stored, _ := slots.load(id)
	slots.release(id)
	return stored, nil
}

func finalizeWrapped(_ Env, data uintptr, _ uintptr) {
	stored, ok := slots.load(data)
	if !ok {
		return
	}
	slots.release(data)
	if f, ok := stored.(Finalizable); ok {
		f.Finalize()
	}
	Logger().Debug("finalized wrapped object", zapSlot(data))
}
