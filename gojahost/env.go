package gojahost

import (
	"math"
	"math/big"
	"reflect"
	"strconv"

	"github.com/dop251/goja"

	napi "github.com/buke/napi-go"
)

var bigIntType = reflect.TypeOf((*big.Int)(nil))

// GetUndefined implements napi.Env.
func (r *Runtime) GetUndefined() (napi.Value, error) {
	return r.put(goja.Undefined()), nil
}

// GetNull implements napi.Env.
func (r *Runtime) GetNull() (napi.Value, error) {
	return r.put(goja.Null()), nil
}

// GetGlobal implements napi.Env.
func (r *Runtime) GetGlobal() (napi.Value, error) {
	return r.put(r.vm.GlobalObject()), nil
}

// GetBoolean implements napi.Env.
func (r *Runtime) GetBoolean(b bool) (napi.Value, error) {
	return r.put(r.vm.ToValue(b)), nil
}

// CreateDouble implements napi.Env.
func (r *Runtime) CreateDouble(f float64) (napi.Value, error) {
	return r.put(r.vm.ToValue(f)), nil
}

// CreateInt32 implements napi.Env.
func (r *Runtime) CreateInt32(i int32) (napi.Value, error) {
	return r.put(r.vm.ToValue(i)), nil
}

// CreateUint32 implements napi.Env.
func (r *Runtime) CreateUint32(u uint32) (napi.Value, error) {
	return r.put(r.vm.ToValue(u)), nil
}

// CreateInt64 implements napi.Env. The result is a number, so values beyond
// 2^53 are rounded.
func (r *Runtime) CreateInt64(i int64) (napi.Value, error) {
	return r.put(r.vm.ToValue(float64(i))), nil
}

// CreateStringUTF8 implements napi.Env.
func (r *Runtime) CreateStringUTF8(s string) (napi.Value, error) {
	return r.put(r.vm.ToValue(s)), nil
}

// CreateObject implements napi.Env.
func (r *Runtime) CreateObject() (napi.Value, error) {
	return r.put(r.vm.NewObject()), nil
}

// CreateArray implements napi.Env.
func (r *Runtime) CreateArray() (napi.Value, error) {
	return r.put(r.vm.NewArray()), nil
}

// CreateArrayWithLength implements napi.Env.
func (r *Runtime) CreateArrayWithLength(length int) (napi.Value, error) {
	if length < 0 || int64(length) > math.MaxUint32 {
		return 0, r.fail(napi.StatusInvalidArg, "invalid array length %d", length)
	}
	arr := r.vm.NewArray()
	if err := r.catch(func() { arr.Set("length", length) }); err != nil {
		return 0, err
	}
	return r.put(arr), nil
}

// CreateError implements napi.Env. code may be 0 for no code.
func (r *Runtime) CreateError(code, msg napi.Value) (napi.Value, error) {
	msgVal, err := r.get(msg)
	if err != nil {
		return 0, err
	}
	if r.typeOf(msgVal) != napi.TypeString {
		return 0, r.fail(napi.StatusStringExpected, "error message must be a string")
	}
	var codeStr string
	if code != 0 {
		codeVal, err := r.get(code)
		if err != nil {
			return 0, err
		}
		if r.typeOf(codeVal) != napi.TypeString {
			return 0, r.fail(napi.StatusStringExpected, "error code must be a string")
		}
		codeStr = codeVal.String()
	}
	errObj, err := r.newError(codeStr, msgVal)
	if err != nil {
		return 0, err
	}
	return r.put(errObj), nil
}

// typeOf classifies a goja value by the host's type tags.
func (r *Runtime) typeOf(v goja.Value) napi.ValueType {
	if v == nil || goja.IsUndefined(v) {
		return napi.TypeUndefined
	}
	if goja.IsNull(v) {
		return napi.TypeNull
	}
	switch x := v.(type) {
	case *goja.Object:
		if x.ExportType() == r.externalTyp {
			return napi.TypeExternal
		}
		if _, ok := goja.AssertFunction(x); ok {
			return napi.TypeFunction
		}
		return napi.TypeObject
	case *goja.Symbol:
		return napi.TypeSymbol
	}
	switch t := v.ExportType(); {
	case t == nil:
		return napi.TypeUndefined
	case t == bigIntType:
		return napi.TypeBigInt
	case t.Kind() == reflect.Bool:
		return napi.TypeBoolean
	case t.Kind() == reflect.String:
		return napi.TypeString
	case t.Kind() == reflect.Int64, t.Kind() == reflect.Float64:
		return napi.TypeNumber
	}
	return napi.TypeObject
}

// TypeOf implements napi.Env.
func (r *Runtime) TypeOf(h napi.Value) (napi.ValueType, error) {
	v, err := r.get(h)
	if err != nil {
		return 0, err
	}
	return r.typeOf(v), nil
}

// IsArray implements napi.Env.
func (r *Runtime) IsArray(h napi.Value) (bool, error) {
	v, err := r.get(h)
	if err != nil {
		return false, err
	}
	obj, ok := v.(*goja.Object)
	return ok && obj.ClassName() == "Array", nil
}

// IsError implements napi.Env.
func (r *Runtime) IsError(h napi.Value) (bool, error) {
	v, err := r.get(h)
	if err != nil {
		return false, err
	}
	obj, ok := v.(*goja.Object)
	return ok && obj.ClassName() == "Error", nil
}

// GetArrayLength implements napi.Env.
func (r *Runtime) GetArrayLength(h napi.Value) (uint32, error) {
	isArray, err := r.IsArray(h)
	if err != nil {
		return 0, err
	}
	if !isArray {
		return 0, r.fail(napi.StatusArrayExpected, "value is not an array")
	}
	obj, _ := r.object(h)
	return uint32(obj.Get("length").ToInteger()), nil
}

// expect returns the goja value behind h if it has type want.
func (r *Runtime) expect(h napi.Value, want napi.ValueType, status napi.Status) (goja.Value, error) {
	v, err := r.get(h)
	if err != nil {
		return nil, err
	}
	if got := r.typeOf(v); got != want {
		return nil, r.fail(status, "expected %s, got %s", want, got)
	}
	return v, nil
}

// GetValueBool implements napi.Env.
func (r *Runtime) GetValueBool(h napi.Value) (bool, error) {
	v, err := r.expect(h, napi.TypeBoolean, napi.StatusBooleanExpected)
	if err != nil {
		return false, err
	}
	return v.ToBoolean(), nil
}

// GetValueDouble implements napi.Env.
func (r *Runtime) GetValueDouble(h napi.Value) (float64, error) {
	v, err := r.expect(h, napi.TypeNumber, napi.StatusNumberExpected)
	if err != nil {
		return 0, err
	}
	return v.ToFloat(), nil
}

// GetValueInt32 implements napi.Env. Non-finite numbers read as 0; others are
// truncated and wrapped to 32 bits.
func (r *Runtime) GetValueInt32(h napi.Value) (int32, error) {
	f, err := r.GetValueDouble(h)
	if err != nil {
		return 0, err
	}
	return int32(uint32(wrapInt(f))), nil
}

// GetValueUint32 implements napi.Env, with the same rules as GetValueInt32.
func (r *Runtime) GetValueUint32(h napi.Value) (uint32, error) {
	f, err := r.GetValueDouble(h)
	if err != nil {
		return 0, err
	}
	return uint32(wrapInt(f)), nil
}

// GetValueInt64 implements napi.Env. Non-finite numbers read as 0; values out
// of range saturate.
func (r *Runtime) GetValueInt64(h napi.Value) (int64, error) {
	v, err := r.expect(h, napi.TypeNumber, napi.StatusNumberExpected)
	if err != nil {
		return 0, err
	}
	if i, ok := v.Export().(int64); ok {
		return i, nil
	}
	f := v.ToFloat()
	switch {
	case math.IsNaN(f), math.IsInf(f, 0):
		return 0, nil
	case f >= math.MaxInt64:
		return math.MaxInt64, nil
	case f <= math.MinInt64:
		return math.MinInt64, nil
	}
	return int64(f), nil
}

// wrapInt truncates f and reduces it modulo 2^64; NaN and infinities give 0.
func wrapInt(f float64) int64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	f = math.Trunc(f)
	if f >= -(1<<63) && f < 1<<63 {
		return int64(f)
	}
	m := math.Mod(f, 1<<64)
	if m < 0 {
		m += 1 << 64
	}
	if m >= 1<<64 {
		return 0
	}
	return int64(uint64(m))
}

// GetValueStringUTF8 implements napi.Env.
func (r *Runtime) GetValueStringUTF8(h napi.Value, buf []byte) (int, error) {
	v, err := r.expect(h, napi.TypeString, napi.StatusStringExpected)
	if err != nil {
		return 0, err
	}
	s := v.String()
	if buf == nil {
		return len(s), nil
	}
	if len(buf) == 0 {
		return 0, nil
	}
	n := copy(buf[:len(buf)-1], s)
	buf[n] = 0
	return n, nil
}

// SetNamedProperty implements napi.Env.
func (r *Runtime) SetNamedProperty(object napi.Value, name string, h napi.Value) error {
	obj, err := r.object(object)
	if err != nil {
		return err
	}
	v, err := r.get(h)
	if err != nil {
		return err
	}
	var serr error
	if err := r.catch(func() { serr = obj.Set(name, v) }); err != nil {
		return err
	}
	if serr != nil {
		return r.fail(napi.StatusGenericFailure, "set %s: %v", name, serr)
	}
	return nil
}

// GetNamedProperty implements napi.Env. Missing properties read as undefined.
func (r *Runtime) GetNamedProperty(object napi.Value, name string) (napi.Value, error) {
	obj, err := r.object(object)
	if err != nil {
		return 0, err
	}
	var v goja.Value
	if err := r.catch(func() { v = obj.Get(name) }); err != nil {
		return 0, err
	}
	return r.put(v), nil
}

// HasNamedProperty implements napi.Env.
func (r *Runtime) HasNamedProperty(object napi.Value, name string) (bool, error) {
	obj, err := r.object(object)
	if err != nil {
		return false, err
	}
	var v goja.Value
	if err := r.catch(func() { v = obj.Get(name) }); err != nil {
		return false, err
	}
	return v != nil, nil
}

// GetPropertyNames implements napi.Env: the own enumerable string keys, as an array.
func (r *Runtime) GetPropertyNames(object napi.Value) (napi.Value, error) {
	obj, err := r.object(object)
	if err != nil {
		return 0, err
	}
	var keys []string
	if err := r.catch(func() { keys = obj.Keys() }); err != nil {
		return 0, err
	}
	items := make([]interface{}, len(keys))
	for i, k := range keys {
		items[i] = k
	}
	return r.put(r.vm.NewArray(items...)), nil
}

// SetElement implements napi.Env.
func (r *Runtime) SetElement(array napi.Value, index uint32, h napi.Value) error {
	return r.SetNamedProperty(array, strconv.FormatUint(uint64(index), 10), h)
}

// GetElement implements napi.Env.
func (r *Runtime) GetElement(array napi.Value, index uint32) (napi.Value, error) {
	return r.GetNamedProperty(array, strconv.FormatUint(uint64(index), 10))
}
