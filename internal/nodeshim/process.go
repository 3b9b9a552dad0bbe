package nodeshim

import (
	"encoding/json"
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/cryguy/nodejs/internal/core"
)

// EmbedderModule is the linked binding name the registration callback
// populates, as in the libnode embedding bootstrap.
const EmbedderModule = "__embedder_mod"

// Version is reported as process.version by in-process engines.
const Version = "v0.0.0-embedded"

// ProcessConfig describes the process object installed into an engine.
type ProcessConfig struct {
	Argv   []string
	Engine string // reported in process.versions

	// Exit is called by process.exit with the requested code before the
	// exit signal is thrown.
	Exit func(code int)
}

type processJSON struct {
	Argv     []string          `json:"argv"`
	ExecPath string            `json:"execPath"`
	Env      map[string]string `json:"env"`
	Pid      int               `json:"pid"`
	Ppid     int               `json:"ppid"`
	Platform string            `json:"platform"`
	Arch     string            `json:"arch"`
	Version  string            `json:"version"`
	Versions map[string]string `json:"versions"`
}

const processJS = `
(function(cfg) {
	var process = {};
	process.title = 'node';
	process.argv = cfg.argv.slice();
	process.argv0 = cfg.argv.length > 0 ? cfg.argv[0] : '';
	process.execArgv = [];
	process.execPath = cfg.execPath;
	process.env = cfg.env;
	process.pid = cfg.pid;
	process.ppid = cfg.ppid;
	process.platform = cfg.platform;
	process.arch = cfg.arch;
	process.version = cfg.version;
	process.versions = cfg.versions;
	process.exitCode = undefined;

	var exitSignal = Object.freeze({ __processExit: true });
	globalThis.__processExitSignal = exitSignal;

	process.cwd = function() { return __process_cwd(); };
	process.exit = function(code) {
		if (code !== undefined && code !== null) process.exitCode = code;
		__process_exit(process.exitCode | 0);
		throw exitSignal;
	};
	process.nextTick = function(fn) {
		if (typeof fn !== 'function') throw new TypeError('callback must be a function');
		var args = Array.prototype.slice.call(arguments, 1);
		Promise.resolve().then(function() {
			try {
				fn.apply(null, args);
			} catch (e) {
				// surfaces as an uncaught exception
				setTimeout(function() { throw e; }, 0);
			}
		});
	};

	var bindings = {};
	process._linkedBinding = function(name) {
		if (!Object.prototype.hasOwnProperty.call(bindings, name)) {
			throw new Error('No such binding: ' + name);
		}
		return bindings[name];
	};
	globalThis.__linkBinding = function(name) {
		bindings[name] = {};
		return bindings[name];
	};

	globalThis.process = process;
	globalThis.global = globalThis;
})(%s);
`

// SetupProcess installs a Node-compatible process object.
func SetupProcess(rt core.JSRuntime, cfg ProcessConfig) error {
	if err := rt.RegisterFunc("__process_exit", func(code int) {
		if cfg.Exit != nil {
			cfg.Exit(code)
		}
	}); err != nil {
		return err
	}

	if err := rt.RegisterFunc("__process_cwd", func() (string, error) {
		return os.Getwd()
	}); err != nil {
		return err
	}

	execPath, err := os.Executable()
	if err != nil && len(cfg.Argv) > 0 {
		execPath = cfg.Argv[0]
	}

	state, err := json.Marshal(processJSON{
		Argv:     append([]string{}, cfg.Argv...),
		ExecPath: execPath,
		Env:      environ(),
		Pid:      os.Getpid(),
		Ppid:     os.Getppid(),
		Platform: platform(),
		Arch:     arch(),
		Version:  Version,
		Versions: map[string]string{"node": strings.TrimPrefix(Version, "v"), "engine": cfg.Engine},
	})
	if err != nil {
		return fmt.Errorf("encoding process state: %w", err)
	}

	return rt.Eval(fmt.Sprintf(processJS, state))
}

// LinkBinding creates the exports object for a linked binding.
func LinkBinding(rt core.JSRuntime, name string) error {
	return rt.Eval(fmt.Sprintf("globalThis.__linkBinding(%q);", name))
}

// ExitCode reads process.exitCode, coerced to an integer (0 when unset).
func ExitCode(rt core.JSRuntime) (int, error) {
	s, err := rt.EvalString("String(globalThis.process ? (process.exitCode | 0) : 0)")
	if err != nil {
		return 0, err
	}
	var code int
	if _, err := fmt.Sscan(s, &code); err != nil {
		return 0, fmt.Errorf("parsing exit code %q: %w", s, err)
	}
	return code, nil
}

func environ() map[string]string {
	env := make(map[string]string)
	for _, kv := range os.Environ() {
		k, v, ok := strings.Cut(kv, "=")
		if ok && k != "" {
			env[k] = v
		}
	}
	return env
}

func platform() string {
	if runtime.GOOS == "windows" {
		return "win32"
	}
	return runtime.GOOS
}

func arch() string {
	switch runtime.GOARCH {
	case "amd64":
		return "x64"
	case "386":
		return "ia32"
	default:
		return runtime.GOARCH
	}
}
