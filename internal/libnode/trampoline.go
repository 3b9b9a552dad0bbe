//go:build libnode && cgo

package libnode

/*
#include <node_api.h>
*/
import "C"

import (
	"unsafe"

	"github.com/cryguy/nodejs/internal/core"
)

// embedRegisterModule is the napi_addon_register_func passed to node_run.
// Exported functions cannot carry state, so it forwards to the RegisterFunc
// of the call in flight.
//
//export embedRegisterModule
func embedRegisterModule(env C.napi_env, exports C.napi_value) C.napi_value {
	r := registered.Load()
	if r == nil || r.fn == nil {
		return exports
	}
	out := r.fn(core.Handle(unsafe.Pointer(env)), core.Handle(unsafe.Pointer(exports)))
	return C.napi_value(unsafe.Pointer(out))
}
