// Package host implements the embedding ABI (start, stop, registration
// callback, exit code and error reporting) on top of an in-process engine.
package host

import (
	"fmt"
	"io"
	"os"
	"sync"
	"unsafe"

	"go.uber.org/zap"

	"github.com/cryguy/nodejs/internal/core"
	"github.com/cryguy/nodejs/internal/eventloop"
	"github.com/cryguy/nodejs/internal/nodeshim"
)

// Factory creates a fresh engine for one run.
type Factory func() (core.Engine, error)

// Library is a core.Library backed by an in-process engine. Unlike libnode
// it can be started more than once per process; the single-shot rule is
// enforced by the callers.
type Library struct {
	*allocator

	name      string
	newEngine Factory
	streams   nodeshim.Streams

	mu     sync.Mutex
	active *instance
}

var _ core.Library = (*Library)(nil)

// New creates a Library that runs engines produced by factory.
func New(name string, factory Factory) *Library {
	return &Library{
		allocator: newAllocator(),
		name:      name,
		newEngine: factory,
		streams:   nodeshim.Streams{Stdout: os.Stdout, Stderr: os.Stderr},
	}
}

// SetStreams redirects console and process.stdout/stderr of later runs.
func (l *Library) SetStreams(stdout, stderr io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.streams = nodeshim.Streams{Stdout: stdout, Stderr: stderr}
}

// Run bootstraps an engine, calls opts.Register once with a fresh exports
// object, and spins the event loop until it drains, process.exit is called,
// or Stop is requested.
func (l *Library) Run(opts core.RunOptions) core.RunResult {
	argv := core.ReadArgv(l, opts.Argc, opts.Argv)

	eng, err := l.newEngine()
	if err != nil {
		return l.fail(fmt.Errorf("creating %s engine: %w", l.name, err))
	}
	defer eng.Close()

	l.mu.Lock()
	streams := l.streams
	l.mu.Unlock()

	inst := &instance{
		lib:     l,
		eng:     eng,
		loop:    eventloop.New(),
		stderr:  streams.Stderr,
		exports: &linkedBinding{name: nodeshim.EmbedderModule},
	}
	if err := inst.bootstrap(argv, streams); err != nil {
		return l.fail(err)
	}

	if opts.Register != nil {
		opts.Register(inst.handle(), inst.exportsHandle())
	}
	if err := inst.takeThrown(); err != nil && !inst.exitRequested() {
		inst.reportUncaught(err)
		return core.RunResult{ExitCode: 1}
	}
	if inst.exitRequested() {
		return core.RunResult{ExitCode: inst.code()}
	}

	l.setActive(inst)
	spinErr := inst.loop.Spin(eng)
	l.setActive(nil)

	switch {
	case inst.exitRequested():
		return core.RunResult{ExitCode: inst.code()}
	case inst.stopRequested():
		code, _ := nodeshim.ExitCode(eng)
		return core.RunResult{ExitCode: code}
	case spinErr != nil:
		inst.reportUncaught(spinErr)
		return core.RunResult{ExitCode: 1}
	}

	code, err := nodeshim.ExitCode(eng)
	if err != nil {
		return l.fail(fmt.Errorf("reading exit code: %w", err))
	}
	return core.RunResult{ExitCode: code}
}

// Stop ends the spinning event loop of the current run.
func (l *Library) Stop() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.active == nil {
		return core.StopNotRunning
	}
	l.active.stop()
	return core.StopOK
}

// Binding returns the instance behind an env handle passed to a RegisterFunc.
func (l *Library) Binding(env core.Handle) core.Binding {
	return (*instance)(unsafe.Pointer(env))
}

func (l *Library) setActive(inst *instance) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.active = inst
}

// fail reports err as a foreign-owned error string with exit code 1.
func (l *Library) fail(err error) core.RunResult {
	core.Logger().Debug("runtime bootstrap failed", zap.String("engine", l.name), zap.Error(err))
	msg, cerr := l.CString(err.Error())
	if cerr != nil {
		return core.RunResult{ExitCode: 1}
	}
	return core.RunResult{ExitCode: 1, Error: msg}
}
