package gojahost

import (
	"errors"
	"fmt"

	"github.com/dop251/goja"
	"go.uber.org/zap"

	napi "github.com/buke/napi-go"
)

// RegisterModule implements napi.ModuleRegistrar. The module is instantiated
// lazily by Load or require.
func (r *Runtime) RegisterModule(desc *napi.ModuleDescriptor) error {
	if desc == nil || desc.Register == nil {
		return errors.New("gojahost: module has no register function")
	}
	if desc.ModuleName == "" {
		return errors.New("gojahost: module name cannot be empty")
	}
	if _, ok := r.modules[desc.ModuleName]; ok {
		return fmt.Errorf("gojahost: module %s is already registered", desc.ModuleName)
	}
	r.modules[desc.ModuleName] = desc
	return nil
}

// Load instantiates a registered module and returns its exports. The exports
// are cached, so the register function runs once per runtime.
func (r *Runtime) Load(name string) (goja.Value, error) {
	if exports, ok := r.loaded[name]; ok {
		return exports, nil
	}
	desc, ok := r.modules[name]
	if !ok {
		return nil, fmt.Errorf("gojahost: module %s is not registered", name)
	}

	var exports goja.Value
	err := r.Scope(func() error {
		target := r.put(r.vm.NewObject())
		result, err := desc.Register(r, target)
		if exc := r.pending; exc != nil {
			r.pending = nil
			return &RejectionError{Reason: exc}
		}
		if err != nil {
			return fmt.Errorf("gojahost: load %s: %w", name, err)
		}
		if result == 0 {
			result = target
		}
		exports, err = r.get(result)
		return err
	})
	if err != nil {
		return nil, err
	}
	r.loaded[name] = exports
	r.logger.Debug("loaded module", zap.String("module", name), zap.String("filename", desc.Filename))
	return exports, nil
}

// installRequire binds require(name) to Load.
func (r *Runtime) installRequire() {
	r.vm.Set("require", func(call goja.FunctionCall) goja.Value {
		name := call.Argument(0).String()
		exports, err := r.Load(name)
		if err != nil {
			var rej *RejectionError
			if errors.As(err, &rej) {
				panic(rej.Reason)
			}
			panic(r.vm.NewGoError(err))
		}
		return exports
	})
}
