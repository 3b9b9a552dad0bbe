package nodeshim_test

import (
	"bytes"
	"encoding/json"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cryguy/nodejs/internal/eventloop"
	"github.com/cryguy/nodejs/internal/nodeshim"
	"github.com/cryguy/nodejs/internal/quickjs"
)

func newRuntime(t *testing.T) *quickjs.Runtime {
	t.Helper()
	rt, err := quickjs.New()
	require.NoError(t, err)
	t.Cleanup(rt.Close)
	return rt
}

func evalJSON(t *testing.T, rt *quickjs.Runtime, expr string, out any) {
	t.Helper()
	s, err := rt.EvalString("JSON.stringify(" + expr + ")")
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(s), out), "result: %s", s)
}

func TestSetupProcess_Globals(t *testing.T) {
	rt := newRuntime(t)
	require.NoError(t, nodeshim.SetupProcess(rt, nodeshim.ProcessConfig{
		Argv:   []string{"/bin/host", "script.js", "--flag"},
		Engine: "quickjs",
	}))

	var p struct {
		Argv     []string          `json:"argv"`
		Argv0    string            `json:"argv0"`
		ExecArgv []string          `json:"execArgv"`
		Platform string            `json:"platform"`
		Version  string            `json:"version"`
		Versions map[string]string `json:"versions"`
		Pid      int               `json:"pid"`
		HasEnv   bool              `json:"hasEnv"`
		Global   bool              `json:"global"`
	}
	evalJSON(t, rt, `{
		argv: process.argv, argv0: process.argv0, execArgv: process.execArgv,
		platform: process.platform, version: process.version, versions: process.versions,
		pid: process.pid, hasEnv: typeof process.env === 'object', global: global === globalThis
	}`, &p)

	assert.Equal(t, []string{"/bin/host", "script.js", "--flag"}, p.Argv)
	assert.Equal(t, "/bin/host", p.Argv0)
	assert.Empty(t, p.ExecArgv)
	assert.Equal(t, nodeshim.Version, p.Version)
	assert.Equal(t, "quickjs", p.Versions["engine"])
	assert.NotZero(t, p.Pid)
	assert.True(t, p.HasEnv)
	assert.True(t, p.Global)
	if runtime.GOOS == "linux" {
		assert.Equal(t, "linux", p.Platform)
	}
}

func TestSetupProcess_Exit(t *testing.T) {
	rt := newRuntime(t)
	var codes []int
	require.NoError(t, nodeshim.SetupProcess(rt, nodeshim.ProcessConfig{
		Argv: []string{"/bin/host"},
		Exit: func(code int) { codes = append(codes, code) },
	}))

	err := rt.Eval("process.exit(42); globalThis.after = true;")
	require.Error(t, err)
	assert.Equal(t, []int{42}, codes)

	after, err := rt.EvalString("String(typeof globalThis.after)")
	require.NoError(t, err)
	assert.Equal(t, "undefined", after)

	code, err := nodeshim.ExitCode(rt)
	require.NoError(t, err)
	assert.Equal(t, 42, code)
}

func TestSetupProcess_ExitUsesExitCode(t *testing.T) {
	rt := newRuntime(t)
	var codes []int
	require.NoError(t, nodeshim.SetupProcess(rt, nodeshim.ProcessConfig{
		Exit: func(code int) { codes = append(codes, code) },
	}))

	require.Error(t, rt.Eval("process.exitCode = 7; process.exit();"))
	assert.Equal(t, []int{7}, codes)
}

func TestExitCode(t *testing.T) {
	rt := newRuntime(t)
	code, err := nodeshim.ExitCode(rt)
	require.NoError(t, err)
	assert.Zero(t, code, "no process object")

	require.NoError(t, nodeshim.SetupProcess(rt, nodeshim.ProcessConfig{}))
	code, err = nodeshim.ExitCode(rt)
	require.NoError(t, err)
	assert.Zero(t, code)

	require.NoError(t, rt.Eval("process.exitCode = 3;"))
	code, err = nodeshim.ExitCode(rt)
	require.NoError(t, err)
	assert.Equal(t, 3, code)
}

func TestLinkBinding(t *testing.T) {
	rt := newRuntime(t)
	require.NoError(t, nodeshim.SetupProcess(rt, nodeshim.ProcessConfig{}))
	require.NoError(t, nodeshim.LinkBinding(rt, nodeshim.EmbedderModule))
	require.NoError(t, rt.Eval("process._linkedBinding('__embedder_mod').answer = 42;"))

	var got struct {
		Answer int `json:"answer"`
	}
	evalJSON(t, rt, "process._linkedBinding('__embedder_mod')", &got)
	assert.Equal(t, 42, got.Answer)

	assert.Error(t, rt.Eval("process._linkedBinding('missing');"))
}

func TestSetupConsole(t *testing.T) {
	rt := newRuntime(t)
	var stdout, stderr bytes.Buffer
	require.NoError(t, nodeshim.SetupProcess(rt, nodeshim.ProcessConfig{}))
	require.NoError(t, nodeshim.SetupConsole(rt, nodeshim.Streams{Stdout: &stdout, Stderr: &stderr}))

	require.NoError(t, rt.Eval(`
		console.log('hello', 1, {a: true});
		console.error('bad');
		process.stdout.write('raw');
		process.stderr.write('err');
	`))

	assert.Equal(t, "hello 1 {\"a\":true}\nraw", stdout.String())
	assert.Equal(t, "bad\nerr", stderr.String())
}

func TestSetupTimers(t *testing.T) {
	rt := newRuntime(t)
	el := eventloop.New()
	require.NoError(t, nodeshim.SetupTimers(rt, el))

	require.NoError(t, rt.Eval(`
		globalThis.order = [];
		setTimeout(function(v) { order.push(v); }, 50, 'timeout');
		setImmediate(function() { order.push('immediate'); });
		var dropped = setTimeout(function() { order.push('dropped'); }, 0);
		clearTimeout(dropped);
		var n = 0;
		var iv = setInterval(function() { if (++n === 2) clearInterval(iv); order.push('interval'); }, 1);
		Promise.resolve().then(function() { order.push('microtask'); });
	`))
	require.NoError(t, el.Spin(rt))
	assert.False(t, el.HasPending())

	var order []string
	evalJSON(t, rt, "order", &order)
	require.NotEmpty(t, order)
	assert.Equal(t, "microtask", order[0])
	assert.Contains(t, order, "immediate")
	assert.Equal(t, "timeout", order[len(order)-1])
	assert.NotContains(t, order, "dropped")

	intervals := 0
	for _, o := range order {
		if o == "interval" {
			intervals++
		}
	}
	assert.Equal(t, 2, intervals)
}

func TestSetupTimers_RejectsNonFunction(t *testing.T) {
	rt := newRuntime(t)
	require.NoError(t, nodeshim.SetupTimers(rt, eventloop.New()))
	assert.Error(t, rt.Eval("setTimeout('code', 0);"))
}
