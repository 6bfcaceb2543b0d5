/*
Package napi binds Go code to an embedding JavaScript host through a Node-API shaped
value-exchange ABI.

The host hands the binding opaque Value handles. Decode turns them into typed Go
arguments, Encode turns Go results back into handles, CreateFunction exposes a Go
closure through one fixed host callback, and Future bridges a Go computation to a
thenable the host can await.

The host itself is reached only through the Env interface. Implementations live in
sub-packages: gojahost runs an in-process goja engine, node talks to the real Node-API
C symbols when the package is built into a Node addon.
*/
package napi

// APIVersion is the module API version written into every ModuleDescriptor.
const APIVersion = 1

// MaxArgs is the largest number of arguments a wrapped function receives.
// Calls that pass more fail with InvalidArgument.
const MaxArgs = 16
