package napi

import (
	"errors"
	"fmt"
	"sync"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// RegisterFunc populates the exports object of a module and returns the value
// the host should use as the module's exports.
type RegisterFunc func(env Env, exports Value) (Value, error)

// ModuleDescriptor is the record the host's registration entry point consumes.
type ModuleDescriptor struct {
	APIVersion int
	Flags      uint32
	Filename   string
	Register   RegisterFunc
	ModuleName string
}

// ModuleRegistrar is the host side of module registration.
type ModuleRegistrar interface {
	RegisterModule(desc *ModuleDescriptor) error
}

// ErrAlreadyInitialized is returned by every Initialize call after the first.
var ErrAlreadyInitialized = errors.New("napi: module already initialized")

var (
	initOnce   sync.Once
	registered *ModuleDescriptor
)

// Initialize hands desc to the host. It is meant to be called once per process,
// typically from the addon's init function; later calls fail with
// ErrAlreadyInitialized without touching the host.
func Initialize(r ModuleRegistrar, desc ModuleDescriptor) error {
	err := ErrAlreadyInitialized
	initOnce.Do(func() {
		err = initialize(r, desc)
	})
	return err
}

func initialize(r ModuleRegistrar, desc ModuleDescriptor) error {
	if r == nil {
		return newError(InvalidArgument, "module %q has no registrar", desc.ModuleName)
	}
	if desc.APIVersion == 0 {
		desc.APIVersion = APIVersion
	}
	if err := validateDescriptor(&desc); err != nil {
		return err
	}
	if err := r.RegisterModule(&desc); err != nil {
		return fmt.Errorf("register module %s: %w", desc.ModuleName, err)
	}
	registered = &desc
	Logger().Debug("registered module", zap.String("module", desc.ModuleName), zap.Int("api_version", desc.APIVersion))
	return nil
}

// Registered returns the descriptor accepted by Initialize, if any.
func Registered() (*ModuleDescriptor, bool) {
	return registered, registered != nil
}

func validateDescriptor(desc *ModuleDescriptor) error {
	var err error
	if desc.ModuleName == "" {
		err = multierr.Append(err, errors.New("module name cannot be empty"))
	} else if _, nerr := encodeName(desc.ModuleName); nerr != nil {
		err = multierr.Append(err, fmt.Errorf("module name: %w", nerr))
	}
	if desc.Register == nil {
		err = multierr.Append(err, errors.New("register function cannot be nil"))
	}
	if desc.APIVersion < 0 || desc.APIVersion > APIVersion {
		err = multierr.Append(err, fmt.Errorf("unsupported api version %d", desc.APIVersion))
	}
	if err != nil {
		return fmt.Errorf("module validation failed: %w", err)
	}
	return nil
}

// Export produces the value of one module export.
type Export func(env Env) (Value, error)

// FunctionExport exports fn as a host function named name.
func FunctionExport[A, R any](name string, fn Func[A, R]) Export {
	return func(env Env) (Value, error) {
		return CreateFunction(env, name, fn)
	}
}

// ValueExport exports the encoding of v.
func ValueExport(v interface{}) Export {
	return func(env Env) (Value, error) {
		return Encode(env, v)
	}
}

// ModuleExportEntry is a single named export.
type ModuleExportEntry struct {
	Name   string
	Export Export
}

// ModuleBuilder declares the exports of a module.
type ModuleBuilder struct {
	name     string
	filename string
	exports  []ModuleExportEntry
}

// NewModuleBuilder creates a ModuleBuilder for the named module.
func NewModuleBuilder(name string) *ModuleBuilder {
	return &ModuleBuilder{
		name:    name,
		exports: make([]ModuleExportEntry, 0),
	}
}

// Filename records the file the module was loaded from.
func (mb *ModuleBuilder) Filename(filename string) *ModuleBuilder {
	mb.filename = filename
	return mb
}

// Export adds a named export. Exports are set in declaration order.
func (mb *ModuleBuilder) Export(name string, export Export) *ModuleBuilder {
	mb.exports = append(mb.exports, ModuleExportEntry{Name: name, Export: export})
	return mb
}

// Function adds a function export taking the raw argument list.
func (mb *ModuleBuilder) Function(name string, fn Func[RawArgs, Value]) *ModuleBuilder {
	return mb.Export(name, FunctionExport(name, fn))
}

// Value adds an export holding the encoding of v.
func (mb *ModuleBuilder) Value(name string, v interface{}) *ModuleBuilder {
	return mb.Export(name, ValueExport(v))
}

// Build validates the builder and returns the descriptor of the module.
func (mb *ModuleBuilder) Build() (ModuleDescriptor, error) {
	if err := mb.validate(); err != nil {
		return ModuleDescriptor{}, err
	}
	exports := append([]ModuleExportEntry(nil), mb.exports...)
	return ModuleDescriptor{
		APIVersion: APIVersion,
		Filename:   mb.filename,
		ModuleName: mb.name,
		Register: func(env Env, target Value) (Value, error) {
			for _, e := range exports {
				v, err := e.Export(env)
				if err != nil {
					return 0, fmt.Errorf("export %s: %w", e.Name, err)
				}
				if err := env.SetNamedProperty(target, e.Name, v); err != nil {
					return 0, check(env, err)
				}
			}
			return target, nil
		},
	}, nil
}

func (mb *ModuleBuilder) validate() error {
	var err error
	if mb.name == "" {
		err = multierr.Append(err, errors.New("module name cannot be empty"))
	}
	seen := make(map[string]bool, len(mb.exports))
	for _, e := range mb.exports {
		switch {
		case e.Name == "":
			err = multierr.Append(err, errors.New("export name cannot be empty"))
		case seen[e.Name]:
			err = multierr.Append(err, fmt.Errorf("duplicate export name: %s", e.Name))
		}
		if e.Export == nil {
			err = multierr.Append(err, fmt.Errorf("export %q has no value", e.Name))
		}
		seen[e.Name] = true
	}
	if err != nil {
		return fmt.Errorf("module validation failed: %w", err)
	}
	return nil
}
