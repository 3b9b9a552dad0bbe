package quickjs

import (
	"errors"
	"sync"
	"unsafe"

	"modernc.org/libc"
	lib "modernc.org/libquickjs"
)

var errUnhandledRejection = errors.New("unhandled promise rejection")

// trackers maps a JSRuntime pointer to its tracker; it is the opaque value
// handed to JS_SetHostPromiseRejectionTracker.
var trackers sync.Map

// rejectionTracker records promises rejected while nobody handles them.
// QuickJS reports each rejection when it happens and again once a handler is
// attached, so whatever is still pending after a microtask checkpoint is
// unhandled. Only used on the engine goroutine.
type rejectionTracker struct {
	pending []rejection
}

type rejection struct {
	promise lib.TJSValue
	reason  lib.TJSValue
}

func (t *rejectionTracker) install(tls *libc.TLS, cRuntime uintptr) {
	trackers.Store(cRuntime, t)
	lib.XJS_SetHostPromiseRejectionTracker(tls, cRuntime, fp(promiseRejectionTracker), cRuntime)
}

func (t *rejectionTracker) uninstall(cRuntime uintptr) {
	trackers.Delete(cRuntime)
}

// promiseRejectionTracker is the JSHostPromiseRejectionTracker callback.
func promiseRejectionTracker(tls *libc.TLS, cContext uintptr, promise, reason lib.TJSValue, isHandled int32, opaque uintptr) {
	v, ok := trackers.Load(opaque)
	if !ok {
		return
	}
	t := v.(*rejectionTracker)

	if isHandled == 0 {
		t.pending = append(t.pending, rejection{
			promise: lib.XDupValue(tls, cContext, promise),
			reason:  lib.XDupValue(tls, cContext, reason),
		})
		return
	}
	for i, r := range t.pending {
		if valuePtr(r.promise) == valuePtr(promise) {
			lib.XFreeValue(tls, cContext, r.promise)
			lib.XFreeValue(tls, cContext, r.reason)
			t.pending = append(t.pending[:i], t.pending[i+1:]...)
			return
		}
	}
}

// take returns the reason of the oldest unhandled rejection and forgets all
// pending ones.
func (t *rejectionTracker) take(tls *libc.TLS, cContext uintptr) (string, bool) {
	if len(t.pending) == 0 {
		return "", false
	}
	reason := valueString(tls, cContext, t.pending[0].reason)
	t.release(tls, cContext)
	return reason, true
}

func (t *rejectionTracker) release(tls *libc.TLS, cContext uintptr) {
	for _, r := range t.pending {
		lib.XFreeValue(tls, cContext, r.promise)
		lib.XFreeValue(tls, cContext, r.reason)
	}
	t.pending = nil
}

// valuePtr returns the object pointer of a reference-counted value.
func valuePtr(v lib.TJSValue) uintptr {
	return *(*uintptr)(unsafe.Pointer(&v.Fu))
}
