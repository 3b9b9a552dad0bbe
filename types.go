package nodejs

import "github.com/cryguy/nodejs/internal/core"

type (
	// Error is returned by every lifecycle operation. Its text is
	// "<message> (code: <code>)".
	Error = core.Error
	// Kind categorizes an Error.
	Kind = core.Kind
	// Args configures the argument vector the runtime sees.
	Args = core.Args
	// Env is handed to RunEnv callbacks.
	Env = core.Env
	// ModuleContext is handed to RunModule callbacks.
	ModuleContext = core.ModuleContext
)

const (
	KindGeneric         = core.KindGeneric
	KindGuardViolation  = core.KindGuardViolation
	KindEnvironment     = core.KindEnvironment
	KindForeignReported = core.KindForeignReported
	KindNonZeroExit     = core.KindNonZeroExit
	KindStop            = core.KindStop
)

var (
	// ErrAlreadyRunning matches the error of a second start in one process.
	ErrAlreadyRunning = core.ErrAlreadyRunning
	// ErrNotRunning matches a stop issued while nothing was running.
	ErrNotRunning = core.ErrNotRunning
)

// NewError creates an Error with an arbitrary message and code.
func NewError(message string, code int) *Error {
	return core.NewError(message, code)
}

// NewArgs returns an empty argument list; the invocation path of the current
// process is inserted as the first argument.
func NewArgs() Args {
	return core.NewArgs()
}

// ProcessArgs forwards the current process's arguments to the runtime.
func ProcessArgs() Args {
	return core.ProcessArgs()
}
