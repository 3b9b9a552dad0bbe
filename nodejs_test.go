package nodejs

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/cryguy/nodejs/internal/testutil"
)

func TestNewError(t *testing.T) {
	err := NewError("custom failure", 12)
	assert.Equal(t, "custom failure (code: 12)", err.Error())
	assert.Equal(t, "custom failure", err.Message())
	assert.Equal(t, 12, err.Code())
	assert.Equal(t, KindGeneric, err.Kind())
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "not_started", StateNotStarted.String())
	assert.Equal(t, "running", StateRunning.String())
	assert.Equal(t, "stopped", StateStopped.String())
	assert.Equal(t, "crashed", StateCrashed.String())
	assert.Equal(t, "unknown", State(99).String())
}

func TestRunModule_SecondStartRejected(t *testing.T) {
	if !testutil.Isolate(t) {
		return
	}
	assert.Equal(t, StateNotStarted, CurrentState())

	var answer any
	err := RunModule(func(ctx *ModuleContext) error {
		var err error
		answer, err = ctx.RunScript("40 + 2")
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, float64(42), answer)
	assert.Equal(t, StateStopped, CurrentState())
	assert.NoError(t, LastError())

	called := false
	err = RunModule(func(*ModuleContext) error {
		called = true
		return nil
	})
	require.ErrorIs(t, err, ErrAlreadyRunning)
	assert.Equal(t, "Node.js is already running (code: 1)", err.Error())

	err = RunEnvWithArgs(NewArgs().WithArgs("x"), func(*Env) error {
		called = true
		return nil
	})
	require.ErrorIs(t, err, ErrAlreadyRunning)
	assert.False(t, called, "a rejected start must not reach the runtime")
}

func TestRunModuleWithArgs_ArgvRoundTrip(t *testing.T) {
	if !testutil.Isolate(t) {
		return
	}

	var argv any
	err := RunModuleWithArgs(NewArgs().WithArgs("script.js", "--flag"), func(ctx *ModuleContext) error {
		var err error
		argv, err = ctx.RunScript("process.argv")
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, []any{os.Args[0], "script.js", "--flag"}, argv)
}

func TestRunEnv_ProcessArgs(t *testing.T) {
	if !testutil.Isolate(t) {
		return
	}

	var argv any
	err := RunEnvWithArgs(ProcessArgs(), func(env *Env) error {
		var err error
		argv, err = env.RunScript("process.argv")
		return err
	})
	require.NoError(t, err)

	want := make([]any, len(os.Args))
	for i, a := range os.Args {
		want[i] = a
	}
	assert.Equal(t, want, argv)
}

func TestRunModule_InitErrorExitsNonZero(t *testing.T) {
	if !testutil.Isolate(t) {
		return
	}
	err := RunModule(func(*ModuleContext) error {
		return NewError("registration refused", 5)
	})
	var e *Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, KindNonZeroExit, e.Kind())
	assert.Equal(t, 1, e.Code())
	assert.Equal(t, StateCrashed, CurrentState())
	assert.Equal(t, err, LastError())
}

func TestRunEnv_FailedRunStillBlocksRestart(t *testing.T) {
	if !testutil.Isolate(t) {
		return
	}
	err := RunEnv(func(env *Env) error {
		_, err := env.RunScript("process.exit(42)")
		return err
	})
	var e *Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, 42, e.Code())
	assert.Equal(t, StateCrashed, CurrentState())
	assert.Same(t, e, LastError())

	called := false
	err = RunEnv(func(*Env) error {
		called = true
		return nil
	})
	require.ErrorIs(t, err, ErrAlreadyRunning)
	assert.False(t, called)
	assert.Same(t, e, LastError(), "a rejected start must not replace the recorded error")
}

func TestRunEnv_UncaughtException(t *testing.T) {
	if !testutil.Isolate(t) {
		return
	}
	err := RunEnv(func(env *Env) error {
		_, err := env.RunScript("setImmediate(function() { throw new Error('boom'); })")
		return err
	})
	var e *Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, 1, e.Code())
}

func TestStop_NotRunning(t *testing.T) {
	if !testutil.Isolate(t) {
		return
	}
	err := Stop()
	require.ErrorIs(t, err, ErrNotRunning)
	assert.Equal(t, -1, err.(*Error).Code())
}

func TestStart_StopFromAnotherGoroutine(t *testing.T) {
	if !testutil.Isolate(t) {
		return
	}

	inst, err := Start(context.Background(), NewArgs(), func(ctx *ModuleContext) error {
		_, err := ctx.RunScript("setInterval(function() {}, 1000)")
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, StateRunning, CurrentState())

	_, err = Start(context.Background(), NewArgs(), nil)
	require.ErrorIs(t, err, ErrAlreadyRunning)
	require.ErrorIs(t, RunModule(nil), ErrAlreadyRunning)

	time.Sleep(time.Second)
	require.Eventually(t, func() bool { return inst.Stop() == nil }, 10*time.Second, 10*time.Millisecond)

	select {
	case <-inst.Done():
	case <-time.After(10 * time.Second):
		t.Fatal("runtime did not return after Stop")
	}
	require.NoError(t, inst.Wait())
	assert.Equal(t, StateStopped, CurrentState())
	assert.NoError(t, LastError())

	err = Stop()
	require.ErrorIs(t, err, ErrNotRunning)
}

func TestStart_ContextCancel(t *testing.T) {
	if !testutil.Isolate(t) {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	inst, err := Start(ctx, NewArgs(), func(ctx *ModuleContext) error {
		_, err := ctx.RunScript("setInterval(function() {}, 1000)")
		return err
	})
	require.NoError(t, err)
	cancel()

	select {
	case <-inst.Done():
	case <-time.After(10 * time.Second):
		t.Fatal("runtime did not return after cancellation")
	}
	require.NoError(t, inst.Wait())
}

func TestStart_CancelledContext(t *testing.T) {
	if !testutil.Isolate(t) {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Start(ctx, NewArgs(), nil)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StateNotStarted, CurrentState())
}

func TestRunAcquired_PanicMarksCrashed(t *testing.T) {
	if !testutil.Isolate(t) {
		return
	}
	require.NoError(t, acquire())
	assert.Panics(t, func() {
		_ = runAcquired(func() error { panic("foreign call failed") })
	})
	assert.Equal(t, StateCrashed, CurrentState())
	require.Error(t, LastError())
	assert.Contains(t, LastError().Error(), "foreign call failed")
	require.ErrorIs(t, RunModule(nil), ErrAlreadyRunning)
}

func TestSetLogger(t *testing.T) {
	observed, logs := observer.New(zap.DebugLevel)
	SetLogger(zap.New(observed))
	t.Cleanup(func() { SetLogger(nil) })

	Logger().Info("configured")
	assert.Equal(t, 1, logs.FilterMessage("configured").Len())

	SetLogger(nil)
	Logger().Info("dropped")
	assert.Zero(t, logs.FilterMessage("dropped").Len())
}
