package nodeshim

import (
	"io"
	"sync"

	"github.com/cryguy/nodejs/internal/core"
)

// Streams are the writers behind console and process.stdout/stderr.
type Streams struct {
	Stdout io.Writer
	Stderr io.Writer
}

const consoleJS = `
(function() {
	function format(arg) {
		if (typeof arg === 'string') return arg;
		if (arg instanceof Error) return arg.stack ? String(arg.stack) : String(arg);
		if (typeof arg === 'object' && arg !== null) {
			try { return JSON.stringify(arg); } catch (e) { return String(arg); }
		}
		return String(arg);
	}
	function writer(fd) {
		return function() {
			var parts = [];
			for (var i = 0; i < arguments.length; i++) parts.push(format(arguments[i]));
			__stdio_write(fd, parts.join(' ') + '\n');
		};
	}
	var con = {};
	con.log = con.info = con.debug = con.trace = writer(1);
	con.warn = con.error = writer(2);
	globalThis.console = con;

	if (globalThis.process) {
		process.stdout = { fd: 1, write: function(s) { __stdio_write(1, String(s)); return true; } };
		process.stderr = { fd: 2, write: function(s) { __stdio_write(2, String(s)); return true; } };
	}
})();
`

// SetupConsole installs console and process.stdout/stderr writing to s.
// Must run after SetupProcess.
func SetupConsole(rt core.JSRuntime, s Streams) error {
	var mu sync.Mutex
	if err := rt.RegisterFunc("__stdio_write", func(fd int, msg string) {
		w := s.Stdout
		if fd == 2 {
			w = s.Stderr
		}
		if w == nil {
			return
		}
		mu.Lock()
		defer mu.Unlock()
		_, _ = io.WriteString(w, msg)
	}); err != nil {
		return err
	}
	return rt.Eval(consoleJS)
}
