package napi_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	napi "github.com/buke/napi-go"
)

type point struct {
	X float64 `napi:"x"`
	Y float64 `json:"y"`
}

type profile struct {
	Name     string            `napi:"name"`
	Age      int               `napi:"age"`
	Nickname *string           `napi:"nickname"`
	Tags     []string          `napi:"tags,omitempty"`
	Extra    map[string]string `napi:"extra,omitempty"`
	Secret   string            `napi:"-"`
	internal int
}

func TestDecode_Scalars(t *testing.T) {
	rt := newRuntime(t)

	s, err := napi.Decode[string](rt, 0, eval(t, rt, `"héllo 🌍"`))
	require.NoError(t, err)
	require.Equal(t, "héllo 🌍", s)

	b, err := napi.Decode[bool](rt, 0, eval(t, rt, `true`))
	require.NoError(t, err)
	require.True(t, b)

	f, err := napi.Decode[float64](rt, 0, eval(t, rt, `1.5`))
	require.NoError(t, err)
	require.Equal(t, 1.5, f)

	i, err := napi.Decode[int64](rt, 0, eval(t, rt, `-9007199254740991`))
	require.NoError(t, err)
	require.Equal(t, int64(-9007199254740991), i)

	i32, err := napi.Decode[int32](rt, 0, eval(t, rt, `-42`))
	require.NoError(t, err)
	require.Equal(t, int32(-42), i32)

	u8, err := napi.Decode[uint8](rt, 0, eval(t, rt, `255`))
	require.NoError(t, err)
	require.Equal(t, uint8(255), u8)

	u64, err := napi.Decode[uint64](rt, 0, eval(t, rt, `4294967296`))
	require.NoError(t, err)
	require.Equal(t, uint64(4294967296), u64)
}

func TestDecode_EmptyString(t *testing.T) {
	rt := newRuntime(t)
	s, err := napi.Decode[string](rt, 0, eval(t, rt, `""`))
	require.NoError(t, err)
	require.Equal(t, "", s)
}

func TestDecode_Arity(t *testing.T) {
	rt := newRuntime(t)

	_, err := napi.Decode[string](rt, 0, nil)
	e := requireKind(t, napi.InvalidArgument, err)
	require.Equal(t, "expected 1 argument, got 0", e.Message)

	_, err = napi.Decode[float64](rt, 0, eval(t, rt, `1`, `2`))
	e = requireKind(t, napi.InvalidArgument, err)
	require.Equal(t, "expected 1 argument, got 2", e.Message)

	_, err = napi.Decode[napi.Pair[int, int]](rt, 0, eval(t, rt, `1`))
	e = requireKind(t, napi.InvalidArgument, err)
	require.Equal(t, "expected 2 arguments, got 1", e.Message)
}

func TestDecode_TypeMismatch(t *testing.T) {
	rt := newRuntime(t)

	tests := []struct {
		name    string
		decode  func([]napi.Value) error
		input   string
		kind    napi.ErrorKind
		message string
	}{
		{
			name:    "NumberFromString",
			decode:  func(args []napi.Value) error { _, err := napi.Decode[float64](rt, 0, args); return err },
			input:   `"42"`,
			kind:    napi.NumberExpected,
			message: "expected argument to be of type Number, but found it to be of type String",
		},
		{
			name:    "StringFromNumber",
			decode:  func(args []napi.Value) error { _, err := napi.Decode[string](rt, 0, args); return err },
			input:   `42`,
			kind:    napi.StringExpected,
			message: "expected argument to be of type String, but found it to be of type Number",
		},
		{
			name:    "BoolFromNull",
			decode:  func(args []napi.Value) error { _, err := napi.Decode[bool](rt, 0, args); return err },
			input:   `null`,
			kind:    napi.BooleanExpected,
			message: "expected argument to be of type Boolean, but found it to be of type Null",
		},
		{
			name:    "StructFromUndefined",
			decode:  func(args []napi.Value) error { _, err := napi.Decode[point](rt, 0, args); return err },
			input:   `undefined`,
			kind:    napi.ObjectExpected,
			message: "expected argument to be of type Object, but found it to be of type Undefined",
		},
		{
			name:    "FunctionFromObject",
			decode:  func(args []napi.Value) error { _, err := napi.Decode[napi.Function](rt, 0, args); return err },
			input:   `{}`,
			kind:    napi.FunctionExpected,
			message: "expected argument to be of type Function, but found it to be of type Object",
		},
		{
			name:    "SliceFromObject",
			decode:  func(args []napi.Value) error { _, err := napi.Decode[[]int](rt, 0, args); return err },
			input:   `{length: 1}`,
			kind:    napi.InvalidArgument,
			message: "expected array",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.decode(eval(t, rt, tt.input))
			e := requireKind(t, tt.kind, err)
			require.Equal(t, tt.message, e.Message)
		})
	}
}

func TestDecode_Integers(t *testing.T) {
	rt := newRuntime(t)

	t.Run("Int32Wraps", func(t *testing.T) {
		v, err := napi.Decode[int32](rt, 0, eval(t, rt, `4294967295`))
		require.NoError(t, err)
		require.Equal(t, int32(-1), v)
	})

	t.Run("Int8Overflow", func(t *testing.T) {
		_, err := napi.Decode[int8](rt, 0, eval(t, rt, `300`))
		requireKind(t, napi.NumberExpected, err)
	})

	t.Run("Uint64Negative", func(t *testing.T) {
		_, err := napi.Decode[uint64](rt, 0, eval(t, rt, `-1`))
		e := requireKind(t, napi.NumberExpected, err)
		require.Equal(t, "expected unsigned integer, got -1", e.Message)
	})

	t.Run("Uint64Range", func(t *testing.T) {
		tests := []struct {
			name string
			expr string
			want uint64
			msg  string
		}{
			{name: "TwoPow63", expr: `9223372036854775808`, want: 1 << 63},
			{name: "LargestExact", expr: `18446744073709549568`, want: 18446744073709549568},
			{name: "Fraction", expr: `-0.5`, want: 0},
			{name: "TooLarge", expr: `1e20`, msg: "value 1e+20 overflows uint64"},
			{name: "TwoPow64", expr: `18446744073709551616`, msg: "value 1.8446744073709552e+19 overflows uint64"},
			{name: "NaN", expr: `NaN`, msg: "expected unsigned integer, got NaN"},
			{name: "Infinity", expr: `Infinity`, msg: "expected unsigned integer, got +Inf"},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				v, err := napi.Decode[uint64](rt, 0, eval(t, rt, tt.expr))
				if tt.msg != "" {
					e := requireKind(t, napi.NumberExpected, err)
					require.Equal(t, tt.msg, e.Message)
					return
				}
				require.NoError(t, err)
				require.Equal(t, tt.want, v)
			})
		}
	})

	t.Run("Uint32Overflow", func(t *testing.T) {
		_, err := napi.Decode[uint32](rt, 0, eval(t, rt, `4294967296`))
		e := requireKind(t, napi.NumberExpected, err)
		require.Equal(t, "value 4294967296 overflows uint32", e.Message)
	})

	t.Run("Int64Truncates", func(t *testing.T) {
		v, err := napi.Decode[int64](rt, 0, eval(t, rt, `-7.9`))
		require.NoError(t, err)
		require.Equal(t, int64(-7), v)
	})

	t.Run("Int64NaN", func(t *testing.T) {
		v, err := napi.Decode[int64](rt, 0, eval(t, rt, `NaN`))
		require.NoError(t, err)
		require.Zero(t, v)
	})
}

func TestDecode_Void(t *testing.T) {
	rt := newRuntime(t)

	_, err := napi.Decode[napi.Void](rt, 0, nil)
	require.NoError(t, err)

	_, err = napi.Decode[napi.Void](rt, 0, eval(t, rt, `1`, `"two"`, `null`))
	require.NoError(t, err)
}

func TestDecode_Slices(t *testing.T) {
	rt := newRuntime(t)

	t.Run("Strings", func(t *testing.T) {
		v, err := napi.Decode[[]string](rt, 0, eval(t, rt, `["a", "b", "c"]`))
		require.NoError(t, err)
		require.Equal(t, []string{"a", "b", "c"}, v)
	})

	t.Run("Empty", func(t *testing.T) {
		v, err := napi.Decode[[]float64](rt, 0, eval(t, rt, `[]`))
		require.NoError(t, err)
		require.NotNil(t, v)
		require.Empty(t, v)
	})

	t.Run("Nested", func(t *testing.T) {
		v, err := napi.Decode[[][]int](rt, 0, eval(t, rt, `[[1, 2], [], [3]]`))
		require.NoError(t, err)
		require.Equal(t, [][]int{{1, 2}, {}, {3}}, v)
	})

	t.Run("ElementError", func(t *testing.T) {
		_, err := napi.Decode[[]string](rt, 0, eval(t, rt, `["a", 2, "c"]`))
		e := requireKind(t, napi.StringExpected, err)
		require.Equal(t, "expected argument to be of type String, but found it to be of type Number", e.Message)
	})

	t.Run("FixedArray", func(t *testing.T) {
		v, err := napi.Decode[[3]int](rt, 0, eval(t, rt, `[1, 2, 3]`))
		require.NoError(t, err)
		require.Equal(t, [3]int{1, 2, 3}, v)

		_, err = napi.Decode[[3]int](rt, 0, eval(t, rt, `[1, 2]`))
		e := requireKind(t, napi.InvalidArgument, err)
		require.Equal(t, "expected array of length 3, got 2", e.Message)
	})
}

func TestDecode_Structs(t *testing.T) {
	rt := newRuntime(t)

	t.Run("Tags", func(t *testing.T) {
		p, err := napi.Decode[point](rt, 0, eval(t, rt, `{x: 1, y: 2, z: 3}`))
		require.NoError(t, err)
		require.Equal(t, point{X: 1, Y: 2}, p)
	})

	t.Run("OptionalFields", func(t *testing.T) {
		p, err := napi.Decode[profile](rt, 0, eval(t, rt, `{name: "ada", age: 36, Secret: "no"}`))
		require.NoError(t, err)
		assert.Equal(t, "ada", p.Name)
		assert.Equal(t, 36, p.Age)
		assert.Nil(t, p.Nickname)
		assert.Nil(t, p.Tags)
		assert.Nil(t, p.Extra)
		assert.Empty(t, p.Secret)
	})

	t.Run("AllFields", func(t *testing.T) {
		p, err := napi.Decode[profile](rt, 0, eval(t, rt,
			`{name: "ada", age: 36, nickname: "countess", tags: ["math"], extra: {born: "1815"}}`))
		require.NoError(t, err)
		require.NotNil(t, p.Nickname)
		assert.Equal(t, "countess", *p.Nickname)
		assert.Equal(t, []string{"math"}, p.Tags)
		assert.Equal(t, map[string]string{"born": "1815"}, p.Extra)
	})

	t.Run("MissingRequiredField", func(t *testing.T) {
		_, err := napi.Decode[profile](rt, 0, eval(t, rt, `{name: "ada"}`))
		e := requireKind(t, napi.NumberExpected, err)
		require.Equal(t, "property age: expected argument to be of type Number, but found it to be of type Undefined", e.Message)
	})

	t.Run("NullPointerField", func(t *testing.T) {
		p, err := napi.Decode[profile](rt, 0, eval(t, rt, `{name: "ada", age: 1, nickname: null}`))
		require.NoError(t, err)
		require.Nil(t, p.Nickname)
	})

	t.Run("PointerToStruct", func(t *testing.T) {
		p, err := napi.Decode[*point](rt, 0, eval(t, rt, `{x: 5, y: 6}`))
		require.NoError(t, err)
		require.Equal(t, &point{X: 5, Y: 6}, p)

		p, err = napi.Decode[*point](rt, 0, eval(t, rt, `undefined`))
		require.NoError(t, err)
		require.Nil(t, p)
	})
}

func TestDecode_Maps(t *testing.T) {
	rt := newRuntime(t)

	m, err := napi.Decode[map[string]float64](rt, 0, eval(t, rt, `{a: 1, b: 2}`))
	require.NoError(t, err)
	require.Equal(t, map[string]float64{"a": 1, "b": 2}, m)

	_, err = napi.Decode[map[string]float64](rt, 0, eval(t, rt, `{a: 1, b: "x"}`))
	e := requireKind(t, napi.NumberExpected, err)
	require.Contains(t, e.Message, "property b:")

	_, err = napi.Decode[map[int]string](rt, 0, eval(t, rt, `{}`))
	requireKind(t, napi.InvalidArgument, err)
}

func TestDecode_Dynamic(t *testing.T) {
	rt := newRuntime(t)

	v, err := napi.Decode[interface{}](rt, 0, eval(t, rt, `{a: [1, "two", true, null], b: {c: 3}}`))
	require.NoError(t, err)
	require.Equal(t, map[string]interface{}{
		"a": []interface{}{1.0, "two", true, nil},
		"b": map[string]interface{}{"c": 3.0},
	}, v)

	v, err = napi.Decode[interface{}](rt, 0, eval(t, rt, `undefined`))
	require.NoError(t, err)
	require.Nil(t, v)

	v, err = napi.Decode[interface{}](rt, 0, eval(t, rt, `function() {}`))
	require.NoError(t, err)
	require.IsType(t, napi.Function(0), v)
}

func TestDecode_ValuePassThrough(t *testing.T) {
	rt := newRuntime(t)

	args := eval(t, rt, `({marker: 1})`)
	v, err := napi.Decode[napi.Value](rt, 0, args)
	require.NoError(t, err)
	require.Equal(t, args[0], v)
}

func TestDecode_Tuples(t *testing.T) {
	rt := newRuntime(t)

	pair, err := napi.Decode[napi.Pair[string, float64]](rt, 0, eval(t, rt, `"a"`, `1`))
	require.NoError(t, err)
	require.Equal(t, "a", pair.First)
	require.Equal(t, 1.0, pair.Second)

	_, err = napi.Decode[napi.Pair[string, float64]](rt, 0, eval(t, rt, `"a"`, `"b"`))
	requireKind(t, napi.NumberExpected, err)

	triple, err := napi.Decode[napi.Triple[bool, []int, point]](rt, 0, eval(t, rt, `false`, `[7]`, `{x: 1, y: 1}`))
	require.NoError(t, err)
	require.False(t, triple.First)
	require.Equal(t, []int{7}, triple.Second)
	require.Equal(t, point{X: 1, Y: 1}, triple.Third)

	_, err = napi.Decode[napi.Triple[bool, bool, bool]](rt, 0, eval(t, rt, `true`))
	e := requireKind(t, napi.InvalidArgument, err)
	require.Equal(t, "expected 3 arguments, got 1", e.Message)

	raw, err := napi.Decode[napi.RawArgs](rt, 0, eval(t, rt, `1`, `2`, `3`, `4`))
	require.NoError(t, err)
	require.Len(t, raw, 4)
}
