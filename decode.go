package napi

import (
	"math"
	"reflect"
	"unicode/utf8"
)

// Unmarshaler is implemented by types that decode themselves from the whole
// argument list of a call.
type Unmarshaler interface {
	UnmarshalNAPI(env Env, this Value, args []Value) error
}

// maxUint64Float is 2^64, the first double a uint64 cannot hold.
const maxUint64Float = float64(1 << 64)

var (
	valueType    = reflect.TypeOf(Value(0))
	functionType = reflect.TypeOf(Function(0))
)

// Decode converts the argument list of a host call into a T.
//
// Decode uses the following rules:
//   - Void or any struct without fields accepts any arguments
//   - string, bool, integers and floats take exactly one argument of the matching type
//   - slices and arrays take exactly one host array; elements are decoded one by one
//   - structs take exactly one host object; exported fields are read by name
//   - maps with string keys take exactly one host object
//   - pointers accept undefined and null as nil
//   - Value passes the handle through, Function checks that it is callable
//   - interface{} decodes by the host type tag
//
// Struct field names come from the "napi" tag, then the "json" tag, then the
// field name. Fields tagged "-" are skipped.
//
// Types implementing Unmarshaler decode the argument list themselves.
func Decode[T any](env Env, this Value, args []Value) (T, error) {
	var out T
	if err := decodeArgs(env, this, args, reflect.ValueOf(&out).Elem()); err != nil {
		return out, err
	}
	return out, nil
}

// decodeArgs decodes an argument list into rv. Nested values are decoded as
// one-element lists through here as well.
func decodeArgs(env Env, this Value, args []Value, rv reflect.Value) error {
	if rv.CanAddr() {
		if u, ok := rv.Addr().Interface().(Unmarshaler); ok {
			return u.UnmarshalNAPI(env, this, args)
		}
	}
	if isUnit(rv.Type()) {
		return nil
	}
	if len(args) != 1 {
		return argCountError(1, len(args))
	}
	return decodeValue(env, this, args[0], rv)
}

func isUnit(t reflect.Type) bool {
	return t.Kind() == reflect.Struct && t.NumField() == 0
}

func decodeValue(env Env, this Value, v Value, rv reflect.Value) error {
	switch rv.Type() {
	case valueType:
		rv.SetUint(uint64(v))
		return nil
	case functionType:
		if err := expectType(env, v, TypeFunction); err != nil {
			return err
		}
		rv.SetUint(uint64(v))
		return nil
	}

	switch rv.Kind() {
	case reflect.Ptr:
		return decodePointer(env, this, v, rv)

	case reflect.Interface:
		if rv.Type().NumMethod() != 0 {
			return newError(InvalidArgument, "cannot decode into non-empty interface %s", rv.Type())
		}
		val, err := decodeDynamic(env, v)
		if err != nil {
			return err
		}
		if val == nil {
			rv.Set(reflect.Zero(rv.Type()))
		} else {
			rv.Set(reflect.ValueOf(val))
		}
		return nil

	case reflect.String:
		if err := expectType(env, v, TypeString); err != nil {
			return err
		}
		s, err := getString(env, v)
		if err != nil {
			return err
		}
		rv.SetString(s)
		return nil

	case reflect.Bool:
		if err := expectType(env, v, TypeBoolean); err != nil {
			return err
		}
		b, err := env.GetValueBool(v)
		if err != nil {
			return check(env, err)
		}
		rv.SetBool(b)
		return nil

	case reflect.Int, reflect.Int64:
		if err := expectType(env, v, TypeNumber); err != nil {
			return err
		}
		i, err := env.GetValueInt64(v)
		if err != nil {
			return check(env, err)
		}
		if rv.OverflowInt(i) {
			return newError(NumberExpected, "value %d overflows %s", i, rv.Type())
		}
		rv.SetInt(i)
		return nil

	case reflect.Int8, reflect.Int16, reflect.Int32:
		if err := expectType(env, v, TypeNumber); err != nil {
			return err
		}
		i, err := env.GetValueInt32(v)
		if err != nil {
			return check(env, err)
		}
		if rv.OverflowInt(int64(i)) {
			return newError(NumberExpected, "value %d overflows %s", i, rv.Type())
		}
		rv.SetInt(int64(i))
		return nil

	case reflect.Uint8, reflect.Uint16, reflect.Uint32:
		if err := expectType(env, v, TypeNumber); err != nil {
			return err
		}
		u, err := env.GetValueUint32(v)
		if err != nil {
			return check(env, err)
		}
		if rv.OverflowUint(uint64(u)) {
			return newError(NumberExpected, "value %d overflows %s", u, rv.Type())
		}
		rv.SetUint(uint64(u))
		return nil

	case reflect.Uint, reflect.Uint64, reflect.Uintptr:
		// Read as a double: the int64 accessor saturates at 2^63.
		if err := expectType(env, v, TypeNumber); err != nil {
			return err
		}
		f, err := env.GetValueDouble(v)
		if err != nil {
			return check(env, err)
		}
		f = math.Trunc(f)
		if math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
			return newError(NumberExpected, "expected unsigned integer, got %v", f)
		}
		if f >= maxUint64Float {
			return newError(NumberExpected, "value %v overflows %s", f, rv.Type())
		}
		u := uint64(f)
		if rv.OverflowUint(u) {
			return newError(NumberExpected, "value %d overflows %s", u, rv.Type())
		}
		rv.SetUint(u)
		return nil

	case reflect.Float32, reflect.Float64:
		if err := expectType(env, v, TypeNumber); err != nil {
			return err
		}
		f, err := env.GetValueDouble(v)
		if err != nil {
			return check(env, err)
		}
		rv.SetFloat(f)
		return nil

	case reflect.Slice:
		return decodeSlice(env, this, v, rv)

	case reflect.Array:
		return decodeFixedArray(env, this, v, rv)

	case reflect.Map:
		return decodeMap(env, this, v, rv)

	case reflect.Struct:
		if isUnit(rv.Type()) {
			return nil
		}
		return decodeStruct(env, this, v, rv)
	}

	return newError(InvalidArgument, "unsupported type: %s", rv.Type())
}

func decodePointer(env Env, this Value, v Value, rv reflect.Value) error {
	typ, err := env.TypeOf(v)
	if err != nil {
		return check(env, err)
	}
	if typ == TypeUndefined || typ == TypeNull {
		rv.Set(reflect.Zero(rv.Type()))
		return nil
	}
	if rv.IsNil() {
		rv.Set(reflect.New(rv.Type().Elem()))
	}
	return decodeArgs(env, this, []Value{v}, rv.Elem())
}

func decodeSlice(env Env, this Value, v Value, rv reflect.Value) error {
	arr, err := AsArray(env, v)
	if err != nil {
		return err
	}
	n, err := arr.Len()
	if err != nil {
		return err
	}
	slice := reflect.MakeSlice(rv.Type(), n, n)
	for i := 0; i < n; i++ {
		elem, err := arr.Get(i)
		if err != nil {
			return err
		}
		// The element's own error is returned unchanged.
		if err := decodeArgs(env, this, []Value{elem}, slice.Index(i)); err != nil {
			return err
		}
	}
	rv.Set(slice)
	return nil
}

func decodeFixedArray(env Env, this Value, v Value, rv reflect.Value) error {
	arr, err := AsArray(env, v)
	if err != nil {
		return err
	}
	n, err := arr.Len()
	if err != nil {
		return err
	}
	if n != rv.Len() {
		return newError(InvalidArgument, "expected array of length %d, got %d", rv.Len(), n)
	}
	for i := 0; i < n; i++ {
		elem, err := arr.Get(i)
		if err != nil {
			return err
		}
		if err := decodeArgs(env, this, []Value{elem}, rv.Index(i)); err != nil {
			return err
		}
	}
	return nil
}

func decodeMap(env Env, this Value, v Value, rv reflect.Value) error {
	if rv.Type().Key().Kind() != reflect.String {
		return newError(InvalidArgument, "unsupported map key type: %s", rv.Type().Key())
	}
	if err := expectType(env, v, TypeObject); err != nil {
		return err
	}
	names, err := propertyNames(env, v)
	if err != nil {
		return err
	}
	m := reflect.MakeMapWithSize(rv.Type(), len(names))
	for _, name := range names {
		prop, err := env.GetNamedProperty(v, name)
		if err != nil {
			return check(env, err)
		}
		elem := reflect.New(rv.Type().Elem()).Elem()
		if err := decodeArgs(env, this, []Value{prop}, elem); err != nil {
			return fieldError(name, err)
		}
		m.SetMapIndex(reflect.ValueOf(name).Convert(rv.Type().Key()), elem)
	}
	rv.Set(m)
	return nil
}

func decodeStruct(env Env, this Value, v Value, rv reflect.Value) error {
	if err := expectType(env, v, TypeObject); err != nil {
		return err
	}
	for _, f := range structFields(rv.Type()) {
		prop, err := env.GetNamedProperty(v, f.name)
		if err != nil {
			return check(env, err)
		}
		if f.omitEmpty {
			typ, err := env.TypeOf(prop)
			if err != nil {
				return check(env, err)
			}
			if typ == TypeUndefined {
				continue
			}
		}
		if err := decodeArgs(env, this, []Value{prop}, rv.Field(f.index)); err != nil {
			return fieldError(f.name, err)
		}
	}
	return nil
}

// decodeDynamic decodes v by its host type tag.
func decodeDynamic(env Env, v Value) (interface{}, error) {
	typ, err := env.TypeOf(v)
	if err != nil {
		return nil, check(env, err)
	}
	switch typ {
	case TypeUndefined, TypeNull:
		return nil, nil
	case TypeBoolean:
		b, err := env.GetValueBool(v)
		return b, check(env, err)
	case TypeNumber:
		f, err := env.GetValueDouble(v)
		return f, check(env, err)
	case TypeString:
		return getString(env, v)
	case TypeFunction:
		return Function(v), nil
	case TypeObject:
		isArray, err := env.IsArray(v)
		if err != nil {
			return nil, check(env, err)
		}
		if isArray {
			var out []interface{}
			err := decodeSlice(env, 0, v, reflect.ValueOf(&out).Elem())
			return out, err
		}
		var out map[string]interface{}
		err = decodeMap(env, 0, v, reflect.ValueOf(&out).Elem())
		return out, err
	default:
		// Symbols, externals and bigints stay opaque.
		return v, nil
	}
}

func expectType(env Env, v Value, want ValueType) error {
	got, err := env.TypeOf(v)
	if err != nil {
		return check(env, err)
	}
	if got != want {
		return typeError(want, got)
	}
	return nil
}

// getString reads a host string: probe the length, then fill a buffer of that size.
func getString(env Env, v Value) (string, error) {
	size, err := env.GetValueStringUTF8(v, nil)
	if err != nil {
		return "", check(env, err)
	}
	buf := make([]byte, size+1)
	written, err := env.GetValueStringUTF8(v, buf)
	if err != nil {
		return "", check(env, err)
	}
	if written != size {
		return "", newError(GenericFailure, "buffer size mismatch, expected %d, got %d", size, written)
	}
	if !utf8.Valid(buf[:size]) {
		return "", newError(GenericFailure, "host string is not valid UTF-8")
	}
	return string(buf[:size]), nil
}

func propertyNames(env Env, object Value) ([]string, error) {
	v, err := env.GetPropertyNames(object)
	if err != nil {
		return nil, check(env, err)
	}
	var names []string
	if err := decodeSlice(env, 0, v, reflect.ValueOf(&names).Elem()); err != nil {
		return nil, err
	}
	return names, nil
}

// fieldError prefixes err with the property it came from, keeping its kind.
func fieldError(name string, err error) error {
	e, ok := err.(*Error)
	if !ok {
		return err
	}
	return &Error{Message: "property " + name + ": " + e.Message, EngineCode: e.EngineCode, Kind: e.Kind}
}
