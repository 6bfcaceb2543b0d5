package gojahost_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	napi "github.com/buke/napi-go"
	"github.com/buke/napi-go/gojahost"
)

func TestModule_Load(t *testing.T) {
	rt := newRuntime(t)
	loads := 0
	require.NoError(t, rt.RegisterModule(&napi.ModuleDescriptor{
		ModuleName: "counter",
		Register: func(env napi.Env, exports napi.Value) (napi.Value, error) {
			loads++
			v, err := env.CreateInt32(int32(loads))
			if err != nil {
				return 0, err
			}
			return exports, env.SetNamedProperty(exports, "loads", v)
		},
	}))

	exports, err := rt.Load("counter")
	require.NoError(t, err)
	require.Equal(t, int64(1), exports.ToObject(rt.VM()).Get("loads").Export())

	require.Equal(t, "1 true", evalString(t, rt, `require("counter").loads + " " + (require("counter") === require("counter"))`))
	require.Equal(t, 1, loads)
}

func TestModule_ReplaceExports(t *testing.T) {
	rt := newRuntime(t)
	require.NoError(t, rt.RegisterModule(&napi.ModuleDescriptor{
		ModuleName: "answer",
		Register: func(env napi.Env, _ napi.Value) (napi.Value, error) {
			return env.CreateInt32(42)
		},
	}))
	require.Equal(t, "42", evalString(t, rt, `String(require("answer"))`))
}

func TestModule_Errors(t *testing.T) {
	rt := newRuntime(t)

	require.Error(t, rt.RegisterModule(&napi.ModuleDescriptor{ModuleName: "x"}))
	require.Error(t, rt.RegisterModule(&napi.ModuleDescriptor{Register: func(napi.Env, napi.Value) (napi.Value, error) { return 0, nil }}))

	desc := &napi.ModuleDescriptor{
		ModuleName: "fails",
		Register: func(napi.Env, napi.Value) (napi.Value, error) {
			return 0, errors.New("cannot load")
		},
	}
	require.NoError(t, rt.RegisterModule(desc))
	require.Error(t, rt.RegisterModule(desc), "duplicate names are rejected")

	_, err := rt.Load("fails")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot load")

	_, err = rt.Load("missing")
	require.Error(t, err)

	require.Contains(t, evalString(t, rt, `(() => { try { require("missing") } catch (e) { return e.message } })()`), "not registered")
}

func TestModule_RegisterThrows(t *testing.T) {
	rt := newRuntime(t)
	require.NoError(t, rt.RegisterModule(&napi.ModuleDescriptor{
		ModuleName: "thrower",
		Register: func(env napi.Env, _ napi.Value) (napi.Value, error) {
			return 0, env.ThrowError("E_INIT", "bad init")
		},
	}))

	_, err := rt.Load("thrower")
	var rej *gojahost.RejectionError
	require.ErrorAs(t, err, &rej)
	assert.Equal(t, "E_INIT", rej.Code())

	require.Equal(t, "E_INIT", evalString(t, rt, `(() => { try { require("thrower") } catch (e) { return e.code } })()`))
}

func TestModule_WithoutRequire(t *testing.T) {
	rt := newRuntime(t, gojahost.WithRequire(false))
	require.Equal(t, "undefined", evalString(t, rt, `typeof require`))
}
