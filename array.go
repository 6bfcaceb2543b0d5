package napi

// Array is a view over a host array handle.
type Array struct {
	env   Env
	value Value
}

// NewArray creates a host array of the given length.
func NewArray(env Env, length int) (Array, error) {
	v, err := env.CreateArrayWithLength(length)
	if err != nil {
		return Array{}, check(env, err)
	}
	return Array{env: env, value: v}, nil
}

// AsArray checks that v is a host array and returns a view over it.
func AsArray(env Env, v Value) (Array, error) {
	ok, err := env.IsArray(v)
	if err != nil {
		return Array{}, check(env, err)
	}
	if !ok {
		return Array{}, newError(InvalidArgument, "expected array")
	}
	return Array{env: env, value: v}, nil
}

// Value returns the underlying handle.
func (a Array) Value() Value {
	return a.value
}

// Len returns the array length.
func (a Array) Len() (int, error) {
	n, err := a.env.GetArrayLength(a.value)
	if err != nil {
		return 0, check(a.env, err)
	}
	return int(n), nil
}

// Get returns the element at index i.
func (a Array) Get(i int) (Value, error) {
	v, err := a.env.GetElement(a.value, uint32(i))
	if err != nil {
		return 0, check(a.env, err)
	}
	return v, nil
}

// Set writes v at index i.
func (a Array) Set(i int, v Value) error {
	return check(a.env, a.env.SetElement(a.value, uint32(i), v))
}

// Push appends v and returns the new length.
func (a Array) Push(v Value) (int, error) {
	n, err := a.Len()
	if err != nil {
		return 0, err
	}
	if err := a.Set(n, v); err != nil {
		return 0, err
	}
	return n + 1, nil
}
