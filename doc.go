// Package nodejs embeds a JavaScript runtime in a Go process and runs it
// with a single-shot lifecycle: the runtime can be started once per process,
// blocks the calling goroutine until its event loop exits, and can be asked
// to stop from any other goroutine.
//
// The default build runs a pure Go QuickJS engine with Node-compatible
// process, console and timer globals. Build with -tags v8 for V8, or with
// -tags libnode (and cgo) to link a patched libnode exposing node_run and
// node_stop.
//
//	err := nodejs.RunModule(func(ctx *nodejs.ModuleContext) error {
//		return ctx.Export("greeting", "hello")
//	})
//
// Package raw exposes the same operations without the once-per-process guard.
package nodejs
