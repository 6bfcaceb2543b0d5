package gojahost_test

import (
	"context"
	"testing"
	"time"

	"github.com/dop251/goja"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	napi "github.com/buke/napi-go"
	"github.com/buke/napi-go/gojahost"
)

func newRuntime(t *testing.T, opts ...gojahost.Option) *gojahost.Runtime {
	t.Helper()
	opts = append([]gojahost.Option{
		gojahost.WithLogger(zaptest.NewLogger(t)),
		gojahost.WithCollector(false),
	}, opts...)
	rt := gojahost.New(opts...)
	t.Cleanup(func() { _ = rt.Close() })
	return rt
}

// handle evaluates expr and registers the result in the current scope.
func handle(t *testing.T, rt *gojahost.Runtime, expr string) napi.Value {
	t.Helper()
	v, err := rt.Eval("(" + expr + ")")
	require.NoError(t, err, expr)
	return rt.Handle(v)
}

func setGlobal(t *testing.T, rt *gojahost.Runtime, name string, h napi.Value) {
	t.Helper()
	global, err := rt.GetGlobal()
	require.NoError(t, err)
	require.NoError(t, rt.SetNamedProperty(global, name, h))
}

func evalString(t *testing.T, rt *gojahost.Runtime, code string) string {
	t.Helper()
	v, err := rt.Eval(code)
	require.NoError(t, err, code)
	return v.String()
}

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func exported(v goja.Value) interface{} {
	if v == nil {
		return nil
	}
	return v.Export()
}
