package core

import "fmt"

// Kind categorizes where a runtime failure came from.
type Kind string

const (
	KindGeneric         Kind = "generic"
	KindGuardViolation  Kind = "guard_violation"  // second start in the same process
	KindEnvironment     Kind = "environment"      // host arguments unusable
	KindForeignReported Kind = "foreign_reported" // runtime returned an explicit message
	KindNonZeroExit     Kind = "non_zero_exit"    // runtime exited non-zero without a message
	KindStop            Kind = "stop"             // stop rejected or failed
)

// Error is the failure type reported by every lifecycle operation. It is
// immutable once constructed.
type Error struct {
	message string
	code    int
	kind    Kind
}

// Sentinels for errors.Is. They match any Error of the same kind (and code,
// when the sentinel carries a non-zero one).
var (
	ErrAlreadyRunning = &Error{kind: KindGuardViolation}
	ErrNotRunning     = &Error{kind: KindStop, code: -1}
)

// NewError creates a generic Error. Any message/code pair is accepted.
func NewError(message string, code int) *Error {
	return &Error{message: message, code: code, kind: KindGeneric}
}

func newKindError(kind Kind, message string, code int) *Error {
	return &Error{message: message, code: code, kind: kind}
}

// AlreadyRunning is returned when the runtime was already started in this process.
func AlreadyRunning() *Error {
	return newKindError(KindGuardViolation, "Node.js is already running", 1)
}

// EnvironmentError reports that the host's own arguments could not be used.
func EnvironmentError(message string) *Error {
	return newKindError(KindEnvironment, message, 1)
}

// ForeignError carries a message reported by the runtime, verbatim.
func ForeignError(message string, code int) *Error {
	return newKindError(KindForeignReported, message, code)
}

// NonZeroExit is synthesized when the runtime exits with a non-zero code but
// no message.
func NonZeroExit(code int) *Error {
	return newKindError(KindNonZeroExit, "Node.js exited with a non-zero exit code", code)
}

// StopError maps a non-zero stop status to an Error. -1 means nothing was running.
func StopError(code int) *Error {
	if code == -1 {
		return newKindError(KindStop, "Node.js failed to stop: Node.js is not running", code)
	}
	return newKindError(KindStop, "Node.js failed to stop", code)
}

func (e *Error) Message() string { return e.message }
func (e *Error) Code() int       { return e.code }
func (e *Error) Kind() Kind      { return e.kind }

func (e *Error) Error() string {
	return fmt.Sprintf("%s (code: %d)", e.message, e.code)
}

// Is reports whether target is a sentinel of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || t.message != "" {
		return false
	}
	if t.kind != e.kind {
		return false
	}
	return t.code == 0 || t.code == e.code
}
