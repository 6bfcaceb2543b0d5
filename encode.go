package napi

import (
	"errors"
	"reflect"
	"sort"
	"strings"
	"sync"
	"unicode/utf8"
)

// Marshaler is implemented by types that encode themselves into a host value.
type Marshaler interface {
	MarshalNAPI(env Env) (Value, error)
}

var errorType = reflect.TypeOf((*error)(nil)).Elem()

// Encode returns the host value encoding of v.
//
// Encode uses the following type mappings:
//   - nil, Void and structs without fields -> undefined
//   - nil pointer -> null
//   - bool -> boolean
//   - every integer and float width -> number (a double; integers beyond 2^53 lose precision)
//   - string -> string (must be valid UTF-8 without NUL bytes)
//   - slice/array -> array, elements written in order
//   - struct -> object, exported fields written in declaration order
//   - map with string keys -> object, keys written in sorted order
//   - error -> Error object with message and code
//   - Value and Function -> passed through
//
// Types implementing Marshaler are encoded with their MarshalNAPI method.
// The first failing element or field aborts the whole encode.
func Encode(env Env, v interface{}) (Value, error) {
	if v == nil {
		return undefined(env)
	}
	return encodeValue(env, reflect.ValueOf(v))
}

func encodeValue(env Env, rv reflect.Value) (Value, error) {
	if rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return undefined(env)
		}
		rv = rv.Elem()
	}

	if rv.CanInterface() {
		switch x := rv.Interface().(type) {
		case Marshaler:
			if rv.Kind() == reflect.Ptr && rv.IsNil() {
				return null(env)
			}
			return x.MarshalNAPI(env)
		case Value:
			return x, nil
		case Function:
			return Value(x), nil
		}
		if rv.Type().Implements(errorType) && !(rv.Kind() == reflect.Ptr && rv.IsNil()) {
			return encodeError(env, rv.Interface().(error))
		}
	}

	switch rv.Kind() {
	case reflect.Ptr:
		if rv.IsNil() {
			return null(env)
		}
		return encodeValue(env, rv.Elem())

	case reflect.Bool:
		v, err := env.GetBoolean(rv.Bool())
		return v, check(env, err)

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		v, err := env.CreateDouble(float64(rv.Int()))
		return v, check(env, err)

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		v, err := env.CreateDouble(float64(rv.Uint()))
		return v, check(env, err)

	case reflect.Float32, reflect.Float64:
		v, err := env.CreateDouble(rv.Float())
		return v, check(env, err)

	case reflect.String:
		return encodeString(env, rv.String())

	case reflect.Slice, reflect.Array:
		return encodeSequence(env, rv)

	case reflect.Map:
		return encodeMap(env, rv)

	case reflect.Struct:
		if isUnit(rv.Type()) {
			return undefined(env)
		}
		return encodeStruct(env, rv)
	}

	return 0, newError(InvalidArgument, "unsupported type: %s", rv.Type())
}

func undefined(env Env) (Value, error) {
	v, err := env.GetUndefined()
	return v, check(env, err)
}

func null(env Env) (Value, error) {
	v, err := env.GetNull()
	return v, check(env, err)
}

func encodeString(env Env, s string) (Value, error) {
	if strings.IndexByte(s, 0) >= 0 {
		return 0, newError(GenericFailure, "string must not contain 0 byte")
	}
	if !utf8.ValidString(s) {
		return 0, newError(GenericFailure, "string is not valid UTF-8")
	}
	v, err := env.CreateStringUTF8(s)
	return v, check(env, err)
}

func encodeSequence(env Env, rv reflect.Value) (Value, error) {
	arr, err := NewArray(env, rv.Len())
	if err != nil {
		return 0, err
	}
	for i := 0; i < rv.Len(); i++ {
		elem, err := encodeValue(env, rv.Index(i))
		if err != nil {
			return 0, err
		}
		if err := arr.Set(i, elem); err != nil {
			return 0, err
		}
	}
	return arr.Value(), nil
}

func encodeMap(env Env, rv reflect.Value) (Value, error) {
	if rv.Type().Key().Kind() != reflect.String {
		return 0, newError(InvalidArgument, "unsupported map key type: %s", rv.Type().Key())
	}
	if rv.IsNil() {
		return null(env)
	}
	obj, err := env.CreateObject()
	if err != nil {
		return 0, check(env, err)
	}
	keys := rv.MapKeys()
	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
	for _, key := range keys {
		val, err := encodeValue(env, rv.MapIndex(key))
		if err != nil {
			return 0, fieldError(key.String(), err)
		}
		if err := env.SetNamedProperty(obj, key.String(), val); err != nil {
			return 0, check(env, err)
		}
	}
	return obj, nil
}

func encodeStruct(env Env, rv reflect.Value) (Value, error) {
	obj, err := env.CreateObject()
	if err != nil {
		return 0, check(env, err)
	}
	for _, f := range structFields(rv.Type()) {
		fv := rv.Field(f.index)
		if f.omitEmpty && fv.IsZero() {
			continue
		}
		val, err := encodeValue(env, fv)
		if err != nil {
			return 0, fieldError(f.name, err)
		}
		if err := env.SetNamedProperty(obj, f.name, val); err != nil {
			return 0, check(env, err)
		}
	}
	return obj, nil
}

// encodeError builds a host Error object. A *Error contributes its kind as the code.
func encodeError(env Env, err error) (Value, error) {
	code, msg := GenericFailure.String(), err.Error()
	var e *Error
	if errors.As(err, &e) {
		code, msg = e.Kind.String(), e.Message
	}
	codeVal, cerr := encodeString(env, code)
	if cerr != nil {
		return 0, cerr
	}
	msgVal, cerr := encodeString(env, strings.ToValidUTF8(strings.ReplaceAll(msg, "\x00", ""), "\uFFFD"))
	if cerr != nil {
		return 0, cerr
	}
	v, cerr := env.CreateError(codeVal, msgVal)
	return v, check(env, cerr)
}

// field describes one exported struct field as seen by the host.
type field struct {
	name      string
	index     int
	omitEmpty bool
}

var fieldCache sync.Map // map[reflect.Type][]field

// structFields returns the host-visible fields of struct type t in declaration order.
func structFields(t reflect.Type) []field {
	if cached, ok := fieldCache.Load(t); ok {
		return cached.([]field)
	}
	fields := make([]field, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if !sf.IsExported() {
			continue
		}
		f := field{name: sf.Name, index: i}
		tag := sf.Tag.Get("napi")
		if tag == "" {
			tag = sf.Tag.Get("json")
		}
		if tag == "-" {
			continue
		}
		if tag != "" {
			name, opts, _ := strings.Cut(tag, ",")
			if name != "" {
				f.name = name
			}
			f.omitEmpty = opts == "omitempty"
		}
		fields = append(fields, f)
	}
	fieldCache.Store(t, fields)
	return fields
}
