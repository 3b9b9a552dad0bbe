// Package quickjs runs the embedding ABI on modernc.org/quickjs, a pure Go
// build of QuickJS. It is the default engine.
package quickjs

import (
	"errors"
	"fmt"
	"sync/atomic"
	"unsafe"

	"modernc.org/libc"
	lib "modernc.org/libquickjs"
	"modernc.org/quickjs"

	"github.com/cryguy/nodejs/internal/core"
)

// Runtime implements core.Engine for the QuickJS engine.
type Runtime struct {
	vm       *quickjs.VM
	tls      *libc.TLS
	cContext uintptr
	cRuntime uintptr

	// interrupt is a C int32 read by interruptHandler. Unlike the VM's own
	// flag it is never reset by a later eval.
	interrupt  uintptr
	rejections *rejectionTracker
}

var _ core.Engine = (*Runtime)(nil)

// New creates a QuickJS VM.
func New() (*Runtime, error) {
	vm, err := quickjs.NewVM()
	if err != nil {
		return nil, fmt.Errorf("creating QuickJS VM: %w", err)
	}
	cContext, cRuntime, tls, ok := extractRuntime(vm)
	if !ok {
		_ = vm.Close()
		return nil, errors.New("creating QuickJS VM: unsupported modernc.org/quickjs layout")
	}

	r := &Runtime{
		vm:         vm,
		tls:        tls,
		cContext:   cContext,
		cRuntime:   cRuntime,
		interrupt:  libc.Xcalloc(tls, 1, libc.Tsize_t(unsafe.Sizeof(int32(0)))),
		rejections: &rejectionTracker{},
	}
	if r.interrupt == 0 {
		_ = vm.Close()
		return nil, errors.New("creating QuickJS VM: out of memory")
	}
	lib.XJS_SetInterruptHandler(tls, cRuntime, fp(interruptHandler), r.interrupt)
	r.rejections.install(tls, cRuntime)
	return r, nil
}

// Eval evaluates JavaScript and discards the result.
func (r *Runtime) Eval(js string) error {
	v, err := r.vm.EvalValue(js, quickjs.EvalGlobal)
	if err != nil {
		return err
	}
	v.Free()
	return nil
}

// EvalString evaluates JavaScript and returns the result as a Go string.
func (r *Runtime) EvalString(js string) (string, error) {
	result, err := r.vm.Eval(js, quickjs.EvalGlobal)
	if err != nil {
		return "", err
	}
	if result == nil {
		return "", nil
	}
	return fmt.Sprint(result), nil
}

// RegisterFunc registers a Go function as a global JavaScript function.
// Multi-value Go returns (T, error) are automatically unwrapped: on success
// returns T, on error throws a TypeError. This is necessary because the
// QuickJS Go wrapper returns multi-value results as JS arrays.
func (r *Runtime) RegisterFunc(name string, fn any) error {
	rawName := "__raw_" + name
	if err := r.vm.RegisterFunc(rawName, fn, false); err != nil {
		return err
	}
	wrapJS := fmt.Sprintf(`(function() {
		var raw = globalThis[%q];
		globalThis[%q] = function() {
			var r = raw.apply(this, arguments);
			if (Array.isArray(r)) {
				if (r[1] !== null && r[1] !== undefined) throw new TypeError("calling %s: " + r[1]);
				return r[0];
			}
			return r;
		};
		delete globalThis[%q];
	})()`, rawName, name, name, rawName)
	return r.Eval(wrapJS)
}

// RunMicrotasks pumps the QuickJS job queue, then reports the first promise
// rejected without a handler.
func (r *Runtime) RunMicrotasks() error {
	if err := executePendingJobs(r.tls, r.cContext, r.cRuntime); err != nil {
		return err
	}
	if reason, ok := r.rejections.take(r.tls, r.cContext); ok {
		return fmt.Errorf("%w: %s", errUnhandledRejection, reason)
	}
	return nil
}

// Interrupt aborts the JavaScript currently running in the VM. Every later
// evaluation is aborted as soon as QuickJS polls the interrupt handler.
func (r *Runtime) Interrupt() {
	atomic.StoreInt32((*int32)(unsafe.Pointer(r.interrupt)), 1)
}

// Close releases the VM.
func (r *Runtime) Close() {
	r.rejections.release(r.tls, r.cContext)
	r.rejections.uninstall(r.cRuntime)
	_ = r.vm.Close()
	libc.Xfree(r.tls, r.interrupt)
}

// interruptHandler is the JS_SetInterruptHandler callback; non-zero aborts.
func interruptHandler(tls *libc.TLS, rt, opaque uintptr) int32 {
	if opaque == 0 {
		return 0
	}
	return atomic.LoadInt32((*int32)(unsafe.Pointer(opaque)))
}

// fp converts a Go function to the function pointer representation the
// ccgo-translated library calls through.
func fp(f any) uintptr {
	type iface [2]uintptr
	return (*iface)(unsafe.Pointer(&f))[1]
}
