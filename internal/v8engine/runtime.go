//go:build v8

// Package v8engine runs the embedding ABI on V8 through github.com/tommie/v8go.
package v8engine

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"sync/atomic"

	v8 "github.com/tommie/v8go"

	"github.com/cryguy/nodejs/internal/core"
	"github.com/cryguy/nodejs/internal/host"
)

// Runtime implements core.Engine for the V8 engine.
type Runtime struct {
	iso *v8.Isolate
	ctx *v8.Context

	interrupted atomic.Bool
}

var (
	errInterrupted = errors.New("execution interrupted")
	errorType      = reflect.TypeOf((*error)(nil)).Elem()
)

var _ core.Engine = (*Runtime)(nil)

// New creates an isolate with a single context.
func New() (*Runtime, error) {
	iso := v8.NewIsolate()
	return &Runtime{iso: iso, ctx: v8.NewContext(iso)}, nil
}

// NewLibrary returns the embedding ABI backed by fresh V8 isolates.
func NewLibrary() *host.Library {
	return host.New("v8", func() (core.Engine, error) {
		return New()
	})
}

// Eval evaluates JavaScript and discards the result.
func (r *Runtime) Eval(js string) error {
	if r.interrupted.Load() {
		return errInterrupted
	}
	_, err := r.ctx.RunScript(js, "eval.js")
	return err
}

// EvalString evaluates JavaScript and returns the result as a Go string.
func (r *Runtime) EvalString(js string) (string, error) {
	if r.interrupted.Load() {
		return "", errInterrupted
	}
	val, err := r.ctx.RunScript(js, "eval_string.js")
	if err != nil {
		return "", err
	}
	if val == nil || val.IsUndefined() {
		return "", nil
	}
	return val.String(), nil
}

// RegisterFunc registers a Go function as a global JavaScript function.
// Uses reflection to inspect the Go function's signature and creates a
// V8 FunctionTemplate that marshals arguments and return values.
//
// Supported Go function signatures:
//   - func(args...): no return, JS function returns undefined
//   - func(args...) T: single return, JS function returns T
//   - func(args...) (T, error): on success returns T, on error throws
//
// Arguments and T are limited to string, int and bool.
func (r *Runtime) RegisterFunc(name string, fn any) error {
	fnVal := reflect.ValueOf(fn)
	fnType := fnVal.Type()

	if fnType.Kind() != reflect.Func {
		return fmt.Errorf("RegisterFunc: expected function, got %T", fn)
	}
	for i := 0; i < fnType.NumIn(); i++ {
		if err := checkBridgeType(fnType.In(i)); err != nil {
			return fmt.Errorf("RegisterFunc %s: argument %d: %w", name, i, err)
		}
	}
	switch {
	case fnType.NumOut() > 2:
		return fmt.Errorf("RegisterFunc %s: too many results", name)
	case fnType.NumOut() == 2 && fnType.Out(1) != errorType:
		return fmt.Errorf("RegisterFunc %s: second result must be error", name)
	case fnType.NumOut() >= 1:
		if err := checkBridgeType(fnType.Out(0)); err != nil {
			return fmt.Errorf("RegisterFunc %s: result: %w", name, err)
		}
	}

	tmpl := v8.NewFunctionTemplate(r.iso, func(info *v8.FunctionCallbackInfo) *v8.Value {
		args := info.Args()

		if len(args) < fnType.NumIn() {
			r.throw(fmt.Sprintf("%s requires at least %d argument(s), got %d", name, fnType.NumIn(), len(args)))
			return nil
		}

		goArgs := make([]reflect.Value, fnType.NumIn())
		for i := range goArgs {
			goArgs[i] = jsToGoArg(args[i], fnType.In(i))
		}

		results := fnVal.Call(goArgs)

		switch fnType.NumOut() {
		case 0:
			return nil
		case 2:
			if errVal := results[1]; !errVal.IsNil() {
				r.throw(fmt.Sprintf("calling %s: %s", name, errVal.Interface().(error).Error()))
				return nil
			}
		}
		return goToJSValue(r.iso, results[0])
	})

	return r.ctx.Global().Set(name, tmpl.GetFunction(r.ctx))
}

func (r *Runtime) throw(msg string) {
	jsMsg, _ := v8.NewValue(r.iso, msg)
	r.iso.ThrowException(jsMsg)
}

// RunMicrotasks pumps the V8 microtask queue. V8 reports job exceptions
// through its rejection tracker, not here.
func (r *Runtime) RunMicrotasks() error {
	r.ctx.PerformMicrotaskCheckpoint()
	return nil
}

// Interrupt terminates the JavaScript currently running in the isolate.
// Later evaluations fail without running.
func (r *Runtime) Interrupt() {
	r.interrupted.Store(true)
	r.iso.TerminateExecution()
}

// Close disposes the context and the isolate.
func (r *Runtime) Close() {
	r.ctx.Close()
	r.iso.Dispose()
}

// checkBridgeType rejects types the bridge cannot convert.
func checkBridgeType(t reflect.Type) error {
	switch t.Kind() {
	case reflect.String, reflect.Int, reflect.Bool:
		return nil
	default:
		return fmt.Errorf("unsupported bridge type %s", t)
	}
}

// jsToGoArg converts a V8 value to a string, int or bool argument.
func jsToGoArg(val *v8.Value, targetType reflect.Type) reflect.Value {
	switch targetType.Kind() {
	case reflect.String:
		return reflect.ValueOf(val.String())
	case reflect.Int:
		return reflect.ValueOf(int(val.Integer()))
	default:
		return reflect.ValueOf(val.Boolean())
	}
}

// goToJSValue converts a string, int or bool result. Ints outside the int32
// range become JS numbers rather than being truncated.
func goToJSValue(iso *v8.Isolate, val reflect.Value) *v8.Value {
	var v *v8.Value
	switch val.Kind() {
	case reflect.String:
		v, _ = v8.NewValue(iso, val.String())
	case reflect.Int:
		n := val.Int()
		if n >= math.MinInt32 && n <= math.MaxInt32 {
			v, _ = v8.NewValue(iso, int32(n))
		} else {
			v, _ = v8.NewValue(iso, float64(n))
		}
	case reflect.Bool:
		v, _ = v8.NewValue(iso, val.Bool())
	}
	return v
}
