package raw

import (
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/cryguy/nodejs/internal/core"
)

// pending is the single-use initializer waiting for the registration callback.
type pending[C any] struct {
	init func(C) error
}

// trampoline adapts a capturing initializer to the stateless RegisterFunc
// shape. The slot is armed right before the foreign start call and taken
// inside once, so the initializer runs at most once per process no matter
// how often the runtime invokes the callback.
type trampoline[C any] struct {
	name string
	slot atomic.Pointer[pending[C]]
	once sync.Once
	wrap func(b core.Binding, env, exports core.Handle) C
}

var (
	moduleTrampoline = &trampoline[*core.ModuleContext]{
		name: "module",
		wrap: core.NewModuleContext,
	}
	envTrampoline = &trampoline[*core.Env]{
		name: "env",
		wrap: func(b core.Binding, env, _ core.Handle) *core.Env {
			return core.NewEnv(b, env)
		},
	}
)

func (t *trampoline[C]) arm(init func(C) error) {
	t.slot.Store(&pending[C]{init: init})
}

func (t *trampoline[C]) disarm() {
	t.slot.Store(nil)
}

func (t *trampoline[C]) register(lib core.Library) core.RegisterFunc {
	return func(env, exports core.Handle) core.Handle {
		ran := false
		t.once.Do(func() {
			ran = true
			p := t.slot.Swap(nil)
			if p == nil || p.init == nil {
				return
			}
			b := lib.Binding(env)
			if err := invoke(p.init, t.wrap(b, env, exports)); err != nil {
				b.Throw(err)
			}
		})
		if !ran {
			core.Logger().Warn("ignoring repeated module registration", zap.String("variant", t.name))
		}
		return exports
	}
}

// invoke runs init, turning a panic into an error so it can be thrown into
// the runtime instead of unwinding through foreign frames.
func invoke[C any](init func(C) error, c C) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in module initialization: %v", r)
		}
	}()
	return init(c)
}

func runTrampoline[C any](lib core.Library, t *trampoline[C], args core.Args, init func(C) error) error {
	t.arm(init)
	defer t.disarm()
	return run(lib, args, t.register(lib))
}

// RunModule starts the runtime and calls init once with the module context
// of the embedder binding. An error returned by init is thrown into the
// runtime as an exception. Call at most once per process.
func RunModule(args core.Args, init func(*core.ModuleContext) error) error {
	return runTrampoline(library(), moduleTrampoline, args, init)
}

// RunEnv is RunModule for callbacks that only need the environment.
func RunEnv(args core.Args, init func(*core.Env) error) error {
	return runTrampoline(library(), envTrampoline, args, init)
}
