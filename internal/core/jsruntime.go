package core

// JSRuntime abstracts an in-process JavaScript engine (QuickJS or V8) behind
// the interface used by internal/nodeshim, internal/eventloop and
// internal/host.
type JSRuntime interface {
	// Eval evaluates JavaScript source and discards the result.
	Eval(js string) error

	// EvalString evaluates JavaScript and returns the result as a Go string.
	EvalString(js string) (string, error)

	// RegisterFunc registers a Go function as a global JavaScript function.
	// Arguments and results are limited to string, int and bool.
	// A trailing error result is thrown as a TypeError.
	RegisterFunc(name string, fn any) error

	// RunMicrotasks pumps the microtask queue (Promise callbacks, etc.) and
	// reports an exception raised by one of the jobs.
	// V8: PerformMicrotaskCheckpoint, QuickJS: ExecutePendingJob loop.
	RunMicrotasks() error
}

// Engine is a JSRuntime that owns its VM and can be interrupted from
// another goroutine.
type Engine interface {
	JSRuntime

	// Interrupt aborts JavaScript currently executing and makes later
	// evaluations fail. Safe from any goroutine.
	Interrupt()

	Close()
}
