package napi_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	napi "github.com/buke/napi-go"
)

func TestSetLogger(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	napi.SetLogger(zap.New(core))
	t.Cleanup(func() { napi.SetLogger(nil) })

	rt := newRuntime(t)
	define(t, rt, "fail", func(napi.Env, napi.Value, napi.Void) (napi.Void, error) {
		return napi.Void{}, &napi.Error{Kind: napi.Cancelled, Message: "stopped"}
	})
	require.Equal(t, "Cancelled: stopped", catchJS(t, rt, `fail()`))

	require.Equal(t, 1, logs.FilterMessage("created function").FilterField(zap.String("name", "fail")).Len())
	thrown := logs.FilterMessage("threw error").All()
	require.Len(t, thrown, 1)
	require.Equal(t, "Cancelled", thrown[0].ContextMap()["code"])
}
