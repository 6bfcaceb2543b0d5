package napi_test

import (
	"testing"

	"github.com/dop251/goja"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	napi "github.com/buke/napi-go"
	"github.com/buke/napi-go/gojahost"
)

// newRuntime returns a runtime whose finalizers only run on Close.
func newRuntime(t *testing.T, opts ...gojahost.Option) *gojahost.Runtime {
	t.Helper()
	opts = append([]gojahost.Option{
		gojahost.WithLogger(zaptest.NewLogger(t)),
		gojahost.WithCollector(false),
	}, opts...)
	rt := gojahost.New(opts...)
	t.Cleanup(func() { require.NoError(t, rt.Close()) })
	return rt
}

// eval evaluates each expression and returns handles to the results.
func eval(t *testing.T, rt *gojahost.Runtime, exprs ...string) []napi.Value {
	t.Helper()
	handles := make([]napi.Value, len(exprs))
	for i, expr := range exprs {
		v, err := rt.Eval("(" + expr + ")")
		require.NoError(t, err, expr)
		handles[i] = rt.Handle(v)
	}
	return handles
}

// stringify renders a handle with JSON.stringify.
func stringify(t *testing.T, rt *gojahost.Runtime, h napi.Value) string {
	t.Helper()
	vm := rt.VM()
	json := vm.Get("JSON").ToObject(vm)
	fn, ok := goja.AssertFunction(json.Get("stringify"))
	require.True(t, ok)
	out, err := fn(json, rt.Value(h))
	require.NoError(t, err)
	return out.String()
}

// requireKind asserts that err is a napi error of the given kind.
func requireKind(t *testing.T, kind napi.ErrorKind, err error) *napi.Error {
	t.Helper()
	require.Error(t, err)
	var e *napi.Error
	require.ErrorAs(t, err, &e)
	require.Equal(t, kind, e.Kind, e.Message)
	return e
}

// define binds a Go function into the global scope of rt.
func define[A, R any](t *testing.T, rt *gojahost.Runtime, name string, fn napi.Func[A, R]) {
	t.Helper()
	err := rt.Scope(func() error {
		f, err := napi.CreateFunction(rt, name, fn)
		if err != nil {
			return err
		}
		global, err := rt.GetGlobal()
		if err != nil {
			return err
		}
		return rt.SetNamedProperty(global, name, f)
	})
	require.NoError(t, err)
}

// run evaluates code and returns the string form of its completion value.
func run(t *testing.T, rt *gojahost.Runtime, code string) string {
	t.Helper()
	v, err := rt.Eval(code)
	require.NoError(t, err, code)
	return v.String()
}

// catchJS evaluates expr and returns "code: message" of the error it throws.
func catchJS(t *testing.T, rt *gojahost.Runtime, expr string) string {
	t.Helper()
	return run(t, rt, `(() => { try { `+expr+`; return "no error" } catch (e) { return e.code + ": " + e.message } })()`)
}
