//go:build libnode && cgo

// Package libnode binds the embedding ABI of a patched libnode shared
// library (node_run/node_stop) and the N-API calls a registration callback
// needs. The library must be installed where the linker finds -lnode.
package libnode

/*
#cgo CFLAGS: -I${SRCDIR} -I/usr/local/include/node
#cgo LDFLAGS: -lnode
#include <stdlib.h>
#include <node_api.h>
#include "node_embedding_api.h"

extern napi_value embedRegisterModule(napi_env env, napi_value exports);

static node_run_result_t embed_run(int argc, void* argv) {
	node_options_t opts;
	opts.process_argc = argc;
	opts.process_argv = (const char* const*)argv;
	opts.napi_reg_func = (void*)embedRegisterModule;
	return node_run(opts);
}

static napi_status embed_to_utf8(napi_env env, napi_value v, char** out) {
	napi_value str;
	size_t len = 0;
	napi_status s;
	*out = NULL;
	if ((s = napi_coerce_to_string(env, v, &str)) != napi_ok) return s;
	if ((s = napi_get_value_string_utf8(env, str, NULL, 0, &len)) != napi_ok) return s;
	*out = (char*)malloc(len + 1);
	if (*out == NULL) return napi_generic_failure;
	return napi_get_value_string_utf8(env, str, *out, len + 1, &len);
}

// Clears the pending exception and returns its string form (malloc'd) or NULL.
static char* embed_take_exception(napi_env env) {
	napi_value exc;
	char* msg = NULL;
	if (napi_get_and_clear_last_exception(env, &exc) != napi_ok) return NULL;
	if (embed_to_utf8(env, exc, &msg) != napi_ok) {
		free(msg);
		return NULL;
	}
	return msg;
}

static napi_status embed_json(napi_env env, const char* method, napi_value* json, napi_value* fn) {
	napi_value global;
	napi_status s;
	if ((s = napi_get_global(env, &global)) != napi_ok) return s;
	if ((s = napi_get_named_property(env, global, "JSON", json)) != napi_ok) return s;
	return napi_get_named_property(env, *json, method, fn);
}

// Evaluates src and stores JSON.stringify({v: result}) in *out (malloc'd).
static napi_status embed_run_script(napi_env env, const char* src, size_t len, char** out) {
	napi_value script, result, json, stringify, wrapper, str;
	napi_status s;
	*out = NULL;
	if ((s = napi_create_string_utf8(env, src, len, &script)) != napi_ok) return s;
	if ((s = napi_run_script(env, script, &result)) != napi_ok) return s;
	if ((s = embed_json(env, "stringify", &json, &stringify)) != napi_ok) return s;
	if ((s = napi_create_object(env, &wrapper)) != napi_ok) return s;
	if ((s = napi_set_named_property(env, wrapper, "v", result)) != napi_ok) return s;
	if ((s = napi_call_function(env, json, stringify, 1, &wrapper, &str)) != napi_ok) return s;
	return embed_to_utf8(env, str, out);
}

// Sets obj[name] = JSON.parse(data).
static napi_status embed_set_json_property(napi_env env, napi_value obj, const char* name, const char* data, size_t len) {
	napi_value json, parse, text, value;
	napi_status s;
	if ((s = embed_json(env, "parse", &json, &parse)) != napi_ok) return s;
	if ((s = napi_create_string_utf8(env, data, len, &text)) != napi_ok) return s;
	if ((s = napi_call_function(env, json, parse, 1, &text, &value)) != napi_ok) return s;
	return napi_set_named_property(env, obj, name, value);
}
*/
import "C"

import (
	"encoding/json"
	"errors"
	"fmt"
	"runtime"
	"sync/atomic"
	"unsafe"

	"github.com/cryguy/nodejs/internal/core"
)

// registration is the RegisterFunc of the in-flight node_run call. The
// exported C trampoline forwards to it.
type registration struct {
	fn core.RegisterFunc
}

var registered atomic.Pointer[registration]

// Library is the core.Library backed by libnode.
type Library struct{}

var _ core.Library = (*Library)(nil)

// New returns the libnode library.
func New() *Library {
	return &Library{}
}

// Run calls node_run. libnode supports a single call per process.
func (l *Library) Run(opts core.RunOptions) core.RunResult {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	registered.Store(&registration{fn: opts.Register})
	defer registered.Store(nil)

	res := C.embed_run(C.int(opts.Argc), opts.Argv)
	return core.RunResult{
		ExitCode: int(res.exit_code),
		Error:    unsafe.Pointer(res.error),
	}
}

// Stop calls node_stop.
func (l *Library) Stop() int {
	return int(C.node_stop())
}

func (l *Library) CString(s string) (unsafe.Pointer, error) {
	return unsafe.Pointer(C.CString(s)), nil
}

func (l *Library) GoString(p unsafe.Pointer) string {
	if p == nil {
		return ""
	}
	return C.GoString((*C.char)(p))
}

func (l *Library) Malloc(n int) (unsafe.Pointer, error) {
	p := C.malloc(C.size_t(n))
	if p == nil {
		return nil, errors.New("out of memory")
	}
	return p, nil
}

func (l *Library) Free(p unsafe.Pointer) {
	C.free(p)
}

// Binding wraps a napi_env.
func (l *Library) Binding(env core.Handle) core.Binding {
	return &binding{env: C.napi_env(unsafe.Pointer(env))}
}

type binding struct {
	env C.napi_env
}

func (b *binding) RunScript(source string) (any, error) {
	src := C.CString(source)
	defer C.free(unsafe.Pointer(src))

	var out *C.char
	status := C.embed_run_script(b.env, src, C.size_t(len(source)), &out)
	if out != nil {
		defer C.free(unsafe.Pointer(out))
	}
	if err := b.statusError(status); err != nil {
		return nil, err
	}

	var res struct {
		V any `json:"v"`
	}
	if err := json.Unmarshal([]byte(C.GoString(out)), &res); err != nil {
		return nil, fmt.Errorf("decoding script result: %w", err)
	}
	return res.V, nil
}

func (b *binding) SetNamedProperty(obj core.Handle, name string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", name, err)
	}
	cName := C.CString(name)
	defer C.free(unsafe.Pointer(cName))
	cData := C.CString(string(data))
	defer C.free(unsafe.Pointer(cData))

	status := C.embed_set_json_property(b.env, C.napi_value(unsafe.Pointer(obj)), cName, cData, C.size_t(len(data)))
	return b.statusError(status)
}

func (b *binding) Throw(err error) {
	msg := C.CString(err.Error())
	defer C.free(unsafe.Pointer(msg))
	C.napi_throw_error(b.env, nil, msg)
}

// statusError converts a napi_status, taking the pending exception if any.
func (b *binding) statusError(status C.napi_status) error {
	switch status {
	case C.napi_ok:
		return nil
	case C.napi_pending_exception:
		msg := C.embed_take_exception(b.env)
		if msg == nil {
			return errors.New("uncaught exception")
		}
		defer C.free(unsafe.Pointer(msg))
		return errors.New(C.GoString(msg))
	default:
		return fmt.Errorf("napi call failed with status %d", int(status))
	}
}
