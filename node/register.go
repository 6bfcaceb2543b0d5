// Package node connects the napi binding to a real Node-API host.
//
// Build the addon with -buildmode=c-shared, name the result *.node and call
// napi.Initialize(node.Registrar{}, desc) from an init function. Node resolves
// napi_register_module_v1 when it loads the library and receives the exports
// built by desc.Register.
package node

/*
#cgo linux LDFLAGS: -Wl,--allow-shlib-undefined
#cgo darwin LDFLAGS: -Wl,-undefined,dynamic_lookup
#include "napi.h"
*/
import "C"
import (
	"errors"

	"go.uber.org/zap"

	napi "github.com/buke/napi-go"
)

// Registrar accepts the module descriptor for Node's registration entry point.
type Registrar struct{}

// RegisterModule implements napi.ModuleRegistrar. Node pulls the descriptor
// later through napi_register_module_v1.
func (Registrar) RegisterModule(desc *napi.ModuleDescriptor) error {
	if desc.APIVersion > napi.APIVersion {
		return errors.New("node: module api version is newer than the binding")
	}
	return nil
}

//export napi_register_module_v1
func napi_register_module_v1(env C.napi_env, exports C.napi_value) C.napi_value {
	e := Env{env: env}
	desc, ok := napi.Registered()
	if !ok {
		napi.Logger().Error("no module registered; call napi.Initialize from init")
		e.ThrowError(napi.GenericFailure.String(), "no module registered")
		return nil
	}

	result, err := desc.Register(e, fromC(exports))
	if err != nil {
		napi.Logger().Error("module registration failed", zap.String("module", desc.ModuleName), zap.Error(err))
		if pending, _ := e.IsExceptionPending(); !pending {
			code, msg := napi.GenericFailure, err.Error()
			var nerr *napi.Error
			if errors.As(err, &nerr) {
				code, msg = nerr.Kind, nerr.Message
			}
			e.ThrowError(code.String(), msg)
		}
		return nil
	}
	if result == 0 {
		return exports
	}
	return toC(result)
}
