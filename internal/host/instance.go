package host

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"unsafe"

	"go.uber.org/zap"

	"github.com/cryguy/nodejs/internal/core"
	"github.com/cryguy/nodejs/internal/eventloop"
	"github.com/cryguy/nodejs/internal/nodeshim"
)

// linkedBinding identifies an exports object created by nodeshim.LinkBinding.
type linkedBinding struct {
	name string
}

// instance is one run of an engine. Its address is the env handle given to
// the registration callback.
type instance struct {
	lib     *Library
	eng     core.Engine
	loop    *eventloop.EventLoop
	stderr  io.Writer
	exports *linkedBinding

	mu       sync.Mutex
	exiting  bool
	exitCode int
	stopped  bool
	thrown   error
}

var _ core.Binding = (*instance)(nil)

func (i *instance) handle() core.Handle {
	return core.Handle(unsafe.Pointer(i))
}

func (i *instance) exportsHandle() core.Handle {
	return core.Handle(unsafe.Pointer(i.exports))
}

func (i *instance) bootstrap(argv []string, streams nodeshim.Streams) error {
	if err := nodeshim.SetupProcess(i.eng, nodeshim.ProcessConfig{
		Argv:   argv,
		Engine: i.lib.name,
		Exit:   i.exit,
	}); err != nil {
		return fmt.Errorf("setting up process: %w", err)
	}
	if err := nodeshim.SetupConsole(i.eng, streams); err != nil {
		return fmt.Errorf("setting up console: %w", err)
	}
	if err := nodeshim.SetupTimers(i.eng, i.loop); err != nil {
		return fmt.Errorf("setting up timers: %w", err)
	}
	if err := nodeshim.LinkBinding(i.eng, i.exports.name); err != nil {
		return fmt.Errorf("linking %s: %w", i.exports.name, err)
	}
	return nil
}

// exit is the process.exit hook.
func (i *instance) exit(code int) {
	i.mu.Lock()
	i.exiting = true
	i.exitCode = code
	i.mu.Unlock()
	i.loop.Quit()
}

func (i *instance) stop() {
	i.mu.Lock()
	i.stopped = true
	i.mu.Unlock()
	i.loop.Quit()
	i.eng.Interrupt()
}

func (i *instance) exitRequested() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.exiting
}

func (i *instance) stopRequested() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.stopped
}

func (i *instance) code() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.exitCode
}

func (i *instance) takeThrown() error {
	i.mu.Lock()
	defer i.mu.Unlock()
	err := i.thrown
	i.thrown = nil
	return err
}

// reportUncaught prints an uncaught exception the way node does before
// exiting with code 1.
func (i *instance) reportUncaught(err error) {
	core.Logger().Debug("uncaught exception", zap.String("engine", i.lib.name), zap.Error(err))
	if i.stderr != nil {
		_, _ = fmt.Fprintf(i.stderr, "Uncaught %v\n", err)
	}
}

// RunScript evaluates source with indirect eval so it runs in global scope.
func (i *instance) RunScript(source string) (any, error) {
	src, err := json.Marshal(source)
	if err != nil {
		return nil, fmt.Errorf("encoding script: %w", err)
	}
	out, err := i.eng.EvalString(fmt.Sprintf("JSON.stringify({ v: (0, eval)(%s) })", src))
	if err != nil {
		return nil, err
	}
	var res struct {
		V any `json:"v"`
	}
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		return nil, fmt.Errorf("decoding script result: %w", err)
	}
	return res.V, nil
}

func (i *instance) SetNamedProperty(obj core.Handle, name string, value any) error {
	if obj != i.exportsHandle() {
		return errors.New("unknown object handle")
	}
	binding, err := json.Marshal(i.exports.name)
	if err != nil {
		return err
	}
	key, err := json.Marshal(name)
	if err != nil {
		return err
	}
	val, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", name, err)
	}
	return i.eng.Eval(fmt.Sprintf("process._linkedBinding(%s)[%s] = %s;", binding, key, val))
}

// Throw records err; it surfaces as an uncaught exception once the
// registration callback returns. The first exception wins.
func (i *instance) Throw(err error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.thrown == nil {
		i.thrown = err
	}
}
