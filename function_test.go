package napi_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	napi "github.com/buke/napi-go"
)

type greeting struct {
	Foo string `napi:"foo"`
	Bar int    `napi:"bar"`
}

type counted struct {
	calls *int
}

func (c counted) MarshalNAPI(env napi.Env) (napi.Value, error) {
	*c.calls++
	return napi.Encode(env, *c.calls)
}

func TestCreateFunction_Hello(t *testing.T) {
	rt := newRuntime(t)
	define(t, rt, "hello", func(napi.Env, napi.Value, napi.Void) (greeting, error) {
		return greeting{Foo: "hello", Bar: 42}, nil
	})

	require.Equal(t, `{"foo":"hello","bar":42}`, run(t, rt, `JSON.stringify(hello())`))
	require.Equal(t, `{"foo":"hello","bar":42}`, run(t, rt, `JSON.stringify(hello(1, "ignored"))`))
	require.Equal(t, "hello", run(t, rt, `hello.name`))
}

func TestCreateFunction_Echo(t *testing.T) {
	rt := newRuntime(t)
	define(t, rt, "echo", func(_ napi.Env, _ napi.Value, values []string) ([]string, error) {
		return values, nil
	})

	require.Equal(t, `["a","b"]`, run(t, rt, `JSON.stringify(echo(["a", "b"]))`))
	require.Equal(t, `[]`, run(t, rt, `JSON.stringify(echo([]))`))
	require.Equal(t,
		"StringExpected: expected argument to be of type String, but found it to be of type Number",
		catchJS(t, rt, `echo(["a", 1])`))
	require.Equal(t, "InvalidArgument: expected 1 argument, got 0", catchJS(t, rt, `echo()`))
}

func TestCreateFunction_ArgumentErrors(t *testing.T) {
	rt := newRuntime(t)
	define(t, rt, "add", func(_ napi.Env, _ napi.Value, args napi.Pair[float64, float64]) (float64, error) {
		return args.First + args.Second, nil
	})

	require.Equal(t, "3", run(t, rt, `add(1, 2)`))
	require.Equal(t,
		"NumberExpected: expected argument to be of type Number, but found it to be of type String",
		catchJS(t, rt, `add(1, "2")`))
	require.Equal(t, "InvalidArgument: expected 2 arguments, got 3", catchJS(t, rt, `add(1, 2, 3)`))
	require.Equal(t,
		"InvalidArgument: expected at most 16 arguments, got 20",
		catchJS(t, rt, `add(...Array.from({length: 20}, (_, i) => i))`))
	require.Equal(t, "true", run(t, rt, `(() => { try { add() } catch (e) { return e instanceof Error } })()`))
}

func TestCreateFunction_ClosureErrors(t *testing.T) {
	rt := newRuntime(t)
	define(t, rt, "fail", func(_ napi.Env, _ napi.Value, kind string) (napi.Void, error) {
		switch kind {
		case "cancelled":
			return napi.Void{}, &napi.Error{Kind: napi.Cancelled, Message: "stopped"}
		case "wrapped":
			return napi.Void{}, fmt.Errorf("outer: %w", &napi.Error{Kind: napi.ObjectExpected, Message: "inner"})
		case "panic":
			panic("boom")
		}
		return napi.Void{}, errors.New("plain " + kind)
	})

	require.Equal(t, "Cancelled: stopped", catchJS(t, rt, `fail("cancelled")`))
	require.Equal(t, "GenericFailure: plain other", catchJS(t, rt, `fail("other")`))
	require.Equal(t, "ObjectExpected: inner", catchJS(t, rt, `fail("wrapped")`))
	require.Equal(t, "GenericFailure: fail: panic: boom", catchJS(t, rt, `fail("panic")`))

	// The runtime keeps working after a recovered panic.
	require.Equal(t, "Cancelled: stopped", catchJS(t, rt, `fail("cancelled")`))
}

func TestCreateFunction_EncodeError(t *testing.T) {
	rt := newRuntime(t)
	define(t, rt, "bad", func(napi.Env, napi.Value, napi.Void) (string, error) {
		return "nul\x00", nil
	})

	require.Equal(t, "GenericFailure: string must not contain 0 byte", catchJS(t, rt, `bad()`))
}

func TestCreateFunction_EncodesOncePerCall(t *testing.T) {
	rt := newRuntime(t)
	calls := 0
	define(t, rt, "count", func(napi.Env, napi.Value, napi.Void) (counted, error) {
		return counted{calls: &calls}, nil
	})

	require.Equal(t, "1", run(t, rt, `count()`))
	require.Equal(t, "2", run(t, rt, `count()`))
	require.Equal(t, 2, calls)
}

func TestCreateFunction_PendingExceptionWins(t *testing.T) {
	rt := newRuntime(t)
	define(t, rt, "call", func(env napi.Env, _ napi.Value, fn napi.Function) (napi.Value, error) {
		recv, err := env.GetUndefined()
		if err != nil {
			return 0, err
		}
		return env.CallFunction(recv, napi.Value(fn), nil)
	})

	require.Equal(t, "42", run(t, rt, `call(() => 42)`))
	require.Equal(t, "custom: from js",
		catchJS(t, rt, `call(() => { const e = new Error("from js"); e.code = "custom"; throw e })`))
}

func TestCreateFunction_This(t *testing.T) {
	rt := newRuntime(t)
	define(t, rt, "self", func(env napi.Env, this napi.Value, _ napi.Void) (string, error) {
		name, err := env.GetNamedProperty(this, "name")
		if err != nil {
			return "", err
		}
		return napi.Decode[string](env, this, []napi.Value{name})
	})

	require.Equal(t, "obj", run(t, rt, `({name: "obj", self}).self()`))
}

func TestCreateFunction_InvalidName(t *testing.T) {
	rt := newRuntime(t)
	_, err := napi.CreateFunction(rt, "bad\x00name", func(napi.Env, napi.Value, napi.Void) (napi.Void, error) {
		return napi.Void{}, nil
	})
	requireKind(t, napi.GenericFailure, err)

	_, err = napi.CreateFunction[napi.Void, napi.Void](rt, "nil", nil)
	requireKind(t, napi.InvalidArgument, err)
}

func TestCreateFunction_SlotsReleasedOnClose(t *testing.T) {
	before := napi.LiveSlots()
	rt := newRuntime(t)
	for i := 0; i < 5; i++ {
		define(t, rt, fmt.Sprintf("f%d", i), func(napi.Env, napi.Value, napi.Void) (int, error) {
			return i, nil
		})
	}
	assert.Equal(t, before+5, napi.LiveSlots())
	assert.Equal(t, 5, rt.PendingFinalizers())

	require.NoError(t, rt.Close())
	assert.Equal(t, before, napi.LiveSlots())
	assert.Zero(t, rt.PendingFinalizers())
}

func TestDispatch_MissingSlotPanics(t *testing.T) {
	rt := newRuntime(t)
	err := rt.Scope(func() error {
		fn, err := rt.CreateFunction("ghost", napi.Dispatch, 999999)
		if err != nil {
			return err
		}
		global, err := rt.GetGlobal()
		if err != nil {
			return err
		}
		return rt.SetNamedProperty(global, "ghost", fn)
	})
	require.NoError(t, err)

	require.PanicsWithValue(t, "napi: no native closure for slot 999999", func() {
		_, _ = rt.Eval(`ghost()`)
	})
}
