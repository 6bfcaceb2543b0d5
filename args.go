package napi

// Pair decodes exactly two arguments.
type Pair[A, B any] struct {
	First  A
	Second B
}

// UnmarshalNAPI implements Unmarshaler.
func (p *Pair[A, B]) UnmarshalNAPI(env Env, this Value, args []Value) error {
	if len(args) != 2 {
		return argCountError(2, len(args))
	}
	var err error
	if p.First, err = Decode[A](env, this, args[0:1]); err != nil {
		return err
	}
	p.Second, err = Decode[B](env, this, args[1:2])
	return err
}

// Triple decodes exactly three arguments.
type Triple[A, B, C any] struct {
	First  A
	Second B
	Third  C
}

// UnmarshalNAPI implements Unmarshaler.
func (t *Triple[A, B, C]) UnmarshalNAPI(env Env, this Value, args []Value) error {
	if len(args) != 3 {
		return argCountError(3, len(args))
	}
	var err error
	if t.First, err = Decode[A](env, this, args[0:1]); err != nil {
		return err
	}
	if t.Second, err = Decode[B](env, this, args[1:2]); err != nil {
		return err
	}
	t.Third, err = Decode[C](env, this, args[2:3])
	return err
}

// RawArgs takes up to MaxArgs arguments without looking at them.
type RawArgs []Value

// UnmarshalNAPI implements Unmarshaler.
func (r *RawArgs) UnmarshalNAPI(_ Env, _ Value, args []Value) error {
	*r = append((*r)[:0], args...)
	return nil
}
