package quickjs

import (
	"errors"
	"fmt"
	"reflect"
	"unsafe"

	"modernc.org/libc"
	lib "modernc.org/libquickjs"
	"modernc.org/quickjs"
)

var errPendingJob = errors.New("uncaught exception in pending job")

// executePendingJobs runs all pending microtasks (Promise callbacks, etc.) in
// the QuickJS runtime. The modernc.org/quickjs Go wrapper never calls
// JS_ExecutePendingJob, so Promise .then() callbacks would otherwise never
// fire. An exception escaping a job is cleared and reported.
func executePendingJobs(tls *libc.TLS, cContext, cRuntime uintptr) error {
	for {
		ret := lib.XJS_ExecutePendingJob(tls, cRuntime, 0)
		if ret == 0 {
			return nil
		}
		if ret < 0 {
			exc := lib.XJS_GetException(tls, cContext)
			msg := valueString(tls, cContext, exc)
			lib.XFreeValue(tls, cContext, exc)
			return fmt.Errorf("%w: %s", errPendingJob, msg)
		}
	}
}

// valueString converts v with JS ToString.
func valueString(tls *libc.TLS, cContext uintptr, v lib.TJSValue) string {
	p := lib.XJS_ToCStringLen2(tls, cContext, 0, v, 0)
	if p == 0 {
		exc := lib.XJS_GetException(tls, cContext)
		lib.XFreeValue(tls, cContext, exc)
		return "<unprintable value>"
	}
	defer lib.XJS_FreeCString(tls, cContext, p)
	return libc.GoString(p)
}

// extractRuntime uses unsafe reflection to pull the unexported context,
// runtime and tls values out of a *quickjs.VM.
//
// VM struct layout (modernc.org/quickjs@v0.17.1):
//
//	type VM struct {
//	    cContext       uintptr
//	    goFuncs       map[string]int32
//	    int32_16      lib.TJSValue
//	    int32_2       lib.TJSValue
//	    runtime       *runtime
//	    ...
//	}
//
//	type runtime struct {
//	    cRuntime uintptr
//	    tls      *libc.TLS
//	}
func extractRuntime(vm *quickjs.VM) (cContext, cRuntime uintptr, tls *libc.TLS, ok bool) {
	vmVal := reflect.ValueOf(vm).Elem()

	ctxField := vmVal.FieldByName("cContext")
	if !ctxField.IsValid() {
		return 0, 0, nil, false
	}
	cContext = uintptr(ctxField.Uint())

	rtField := vmVal.FieldByName("runtime")
	if !rtField.IsValid() || rtField.IsNil() {
		return 0, 0, nil, false
	}
	rtPtr := unsafe.Pointer(rtField.Pointer())
	rtVal := reflect.NewAt(rtField.Type().Elem(), rtPtr).Elem()

	cRuntimeField := rtVal.FieldByName("cRuntime")
	if !cRuntimeField.IsValid() {
		return 0, 0, nil, false
	}
	cRuntime = uintptr(cRuntimeField.Uint())

	tlsField := rtVal.FieldByName("tls")
	if !tlsField.IsValid() || tlsField.IsNil() {
		return 0, 0, nil, false
	}
	tls = (*libc.TLS)(unsafe.Pointer(tlsField.Pointer()))

	return cContext, cRuntime, tls, true
}
