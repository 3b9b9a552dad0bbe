package nodejs

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/cryguy/nodejs/internal/core"
	"github.com/cryguy/nodejs/raw"
)

// State is the lifecycle state of the process-wide runtime.
type State int

const (
	StateNotStarted State = iota
	StateRunning
	StateStopped // the runtime returned without error
	StateCrashed // the runtime returned an error or panicked; see LastError
)

func (s State) String() string {
	switch s {
	case StateNotStarted:
		return "not_started"
	case StateRunning:
		return "running"
	case StateStopped:
		return "stopped"
	case StateCrashed:
		return "crashed"
	default:
		return "unknown"
	}
}

// guard allows a single start per process. The mutex only protects the
// transition; it is not held while the runtime runs.
var guard struct {
	mu    sync.Mutex
	state State
	err   error
}

// CurrentState reports where the process-wide runtime is in its lifecycle.
func CurrentState() State {
	guard.mu.Lock()
	defer guard.mu.Unlock()
	return guard.state
}

// LastError returns the error the runtime ended with once it is in
// StateCrashed, and nil otherwise.
func LastError() error {
	guard.mu.Lock()
	defer guard.mu.Unlock()
	return guard.err
}

func acquire() error {
	guard.mu.Lock()
	defer guard.mu.Unlock()
	if guard.state != StateNotStarted {
		core.Logger().Debug("rejecting start", zap.Stringer("state", guard.state))
		return core.AlreadyRunning()
	}
	guard.state = StateRunning
	return nil
}

func release(err error) {
	state := StateStopped
	if err != nil {
		state = StateCrashed
	}

	guard.mu.Lock()
	defer guard.mu.Unlock()
	guard.state = state
	guard.err = err
	core.Logger().Debug("runtime finished", zap.Stringer("state", state), zap.Error(err))
}

// runAcquired runs fn after acquire succeeded and records how it ended. A
// panic in fn leaves the guard in StateCrashed and keeps unwinding.
func runAcquired(fn func() error) error {
	defer func() {
		if r := recover(); r != nil {
			release(core.NewError(fmt.Sprintf("runtime panicked: %v", r), 1))
			panic(r)
		}
	}()
	err := fn()
	release(err)
	return err
}

func guarded(fn func() error) error {
	if err := acquire(); err != nil {
		return err
	}
	return runAcquired(fn)
}

// RunModule starts the runtime with the arguments of NewArgs and calls init
// once with the module context of the embedder binding, which scripts reach
// through process._linkedBinding('__embedder_mod'). It blocks until the event
// loop exits. A second call in the same process fails with ErrAlreadyRunning
// whether or not the first call has returned.
func RunModule(init func(*ModuleContext) error) error {
	return RunModuleWithArgs(NewArgs(), init)
}

// RunModuleWithArgs is RunModule with explicit arguments.
func RunModuleWithArgs(args Args, init func(*ModuleContext) error) error {
	return guarded(func() error {
		return raw.RunModule(args, init)
	})
}

// RunEnv is RunModule for callbacks that only need the environment.
func RunEnv(init func(*Env) error) error {
	return RunEnvWithArgs(NewArgs(), init)
}

// RunEnvWithArgs is RunEnv with explicit arguments.
func RunEnvWithArgs(args Args, init func(*Env) error) error {
	return guarded(func() error {
		return raw.RunEnv(args, init)
	})
}

// Stop asks the running runtime to exit its event loop. It is safe to call
// from any goroutine; when nothing is running it returns an error matching
// ErrNotRunning.
func Stop() error {
	return raw.Stop()
}
