package core

import "unsafe"

// Handle is an opaque runtime handle (napi_env, napi_value, or an engine
// specific pointer for in-process engines).
type Handle unsafe.Pointer

// RegisterFunc is the module registration callback handed across the foreign
// boundary. It has the napi_addon_register_func shape: it receives the
// environment and a fresh exports object and returns the exports to publish.
type RegisterFunc func(env, exports Handle) Handle

// RunOptions is the argument block of the foreign start entry point.
type RunOptions struct {
	Argc     int
	Argv     unsafe.Pointer // NULL-terminated array of NUL-terminated strings
	Register RegisterFunc
}

// RunResult is what the foreign start entry point reports once its event loop
// has exited. Error, when non-nil, is owned by the caller and must be released
// with the library's Allocator.
type RunResult struct {
	ExitCode int
	Error    unsafe.Pointer
}

// Stop status codes.
const (
	StopOK         = 0
	StopNotRunning = -1
)

// Library is the foreign boundary. Implementations are selected by build tags:
// the in-process engines (QuickJS, V8) and the cgo libnode binding.
type Library interface {
	Allocator

	// Run starts the runtime and blocks until its event loop exits. It may be
	// called at most once per process for libraries backed by real Node.js.
	Run(opts RunOptions) RunResult

	// Stop asks the running event loop to exit. Safe from any goroutine.
	Stop() int

	// Binding wraps a raw env handle received by a RegisterFunc.
	Binding(env Handle) Binding
}

// Allocator manages memory on the foreign side of the boundary.
type Allocator interface {
	CString(s string) (unsafe.Pointer, error)
	GoString(p unsafe.Pointer) string
	Malloc(n int) (unsafe.Pointer, error)
	Free(p unsafe.Pointer)
}

// Binding is the minimal capability a registration callback gets on its
// environment. Richer object-model bindings are layered on top by callers.
type Binding interface {
	// RunScript evaluates source in the global scope and converts the result
	// through JSON (numbers become float64, objects map[string]any, and so on).
	RunScript(source string) (any, error)

	// SetNamedProperty sets obj[name] to a JSON-representable Go value.
	SetNamedProperty(obj Handle, name string, value any) error

	// Throw raises err as a JavaScript exception in the runtime.
	Throw(err error)
}
