// Command napi-hello is a Node addon built with the napi binding.
//
//	go build -buildmode=c-shared -o hello.node ./cmd/napi-hello
//	node -e 'console.log(require("./hello.node").hello())'
package main

import (
	"context"
	"time"

	"go.uber.org/zap"

	napi "github.com/buke/napi-go"
	"github.com/buke/napi-go/node"
)

type greeting struct {
	Foo string `napi:"foo"`
	Bar int    `napi:"bar"`
}

func hello(napi.Env, napi.Value, napi.Void) (greeting, error) {
	return greeting{Foo: "hello", Bar: 42}, nil
}

func echo(_ napi.Env, _ napi.Value, values []string) ([]string, error) {
	return values, nil
}

func add(_ napi.Env, _ napi.Value, args napi.Pair[float64, float64]) (float64, error) {
	return args.First + args.Second, nil
}

func delayedSum(env napi.Env, _ napi.Value, values []float64) (*napi.Future[float64], error) {
	return napi.Spawn(env, "delayedSum", func(ctx context.Context) (float64, error) {
		select {
		case <-time.After(10 * time.Millisecond):
		case <-ctx.Done():
			return 0, ctx.Err()
		}
		var sum float64
		for _, v := range values {
			sum += v
		}
		return sum, nil
	})
}

func init() {
	if logger, err := zap.NewProduction(); err == nil {
		napi.SetLogger(logger)
	}

	mb := napi.NewModuleBuilder("hello").
		Export("hello", napi.FunctionExport("hello", hello)).
		Export("echo", napi.FunctionExport("echo", echo)).
		Export("add", napi.FunctionExport("add", add)).
		Export("delayedSum", napi.FunctionExport("delayedSum", delayedSum)).
		Value("version", napi.APIVersion)
	desc, err := mb.Build()
	if err != nil {
		panic(err)
	}
	if err := napi.Initialize(node.Registrar{}, desc); err != nil {
		panic(err)
	}
}

func main() {}
