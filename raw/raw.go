// Package raw exposes the unguarded lifecycle functions of the embedded
// runtime. A runtime may be started at most once per process and the
// functions here do not check that; package nodejs wraps them with a guard.
package raw

import (
	"sync"

	"go.uber.org/zap"

	"github.com/cryguy/nodejs/internal/core"
)

// library is the foreign library selected at build time.
var library = sync.OnceValue(newLibrary)

// Run starts the runtime with args and a raw registration callback, and
// blocks until its event loop exits. Call at most once per process.
func Run(args core.Args, register core.RegisterFunc) error {
	return run(library(), args, register)
}

func run(lib core.Library, args core.Args, register core.RegisterFunc) error {
	argv, err := args.Resolve()
	if err != nil {
		return err
	}

	buf, err := core.NewArgBuffer(lib, argv)
	if err != nil {
		return core.NewError(err.Error(), 1)
	}
	defer buf.Free()

	core.Logger().Debug("starting runtime", zap.Strings("argv", argv))
	res := lib.Run(core.RunOptions{
		Argc:     buf.Argc(),
		Argv:     buf.Argv(),
		Register: register,
	})
	core.Logger().Debug("runtime exited", zap.Int("exit_code", res.ExitCode))

	return resultError(lib, res)
}

// resultError translates a RunResult, releasing the foreign error string.
func resultError(alloc core.Allocator, res core.RunResult) error {
	if res.Error != nil {
		msg := alloc.GoString(res.Error)
		alloc.Free(res.Error)
		return core.ForeignError(msg, res.ExitCode)
	}
	if res.ExitCode != 0 {
		return core.NonZeroExit(res.ExitCode)
	}
	return nil
}

// Stop asks the running runtime to exit its event loop. It may be called
// from any goroutine and fails with code -1 when nothing is running.
func Stop() error {
	if code := library().Stop(); code != core.StopOK {
		return core.StopError(code)
	}
	return nil
}
