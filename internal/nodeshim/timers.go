package nodeshim

import (
	"time"

	"github.com/cryguy/nodejs/internal/core"
	"github.com/cryguy/nodejs/internal/eventloop"
)

// timersJS is the JavaScript side of setTimeout/setInterval/setImmediate and
// their clear functions. Callbacks stay in JS; Go only schedules IDs.
const timersJS = `
(function() {
	globalThis.__timerCallbacks = {};
	function schedule(fn, delay, isInterval, extra) {
		if (typeof fn !== 'function') {
			throw new TypeError('The "callback" argument must be of type function');
		}
		var args = Array.prototype.slice.call(extra);
		var id = __timerRegister(Math.max(0, Math.floor(Number(delay) || 0)), isInterval);
		globalThis.__timerCallbacks[id] = { fn: fn, args: args, interval: isInterval };
		return id;
	}
	function clear(id) {
		if (typeof id !== 'number') return;
		__timerClear(id);
		delete globalThis.__timerCallbacks[id];
	}
	globalThis.setTimeout = function(fn, delay) {
		return schedule(fn, delay, false, Array.prototype.slice.call(arguments, 2));
	};
	globalThis.setInterval = function(fn, interval) {
		return schedule(fn, interval, true, Array.prototype.slice.call(arguments, 2));
	};
	globalThis.setImmediate = function(fn) {
		return schedule(fn, 0, false, Array.prototype.slice.call(arguments, 1));
	};
	globalThis.clearTimeout = globalThis.clearInterval = globalThis.clearImmediate = clear;
	if (typeof globalThis.queueMicrotask !== 'function') {
		globalThis.queueMicrotask = function(fn) { Promise.resolve().then(fn); };
	}
})();
`

// SetupTimers registers Go-backed timers driven by el.
func SetupTimers(rt core.JSRuntime, el *eventloop.EventLoop) error {
	if err := rt.RegisterFunc("__timerRegister", func(delayMs int, isInterval bool) int {
		return el.RegisterTimer(time.Duration(delayMs)*time.Millisecond, isInterval)
	}); err != nil {
		return err
	}

	if err := rt.RegisterFunc("__timerClear", func(id int) {
		el.ClearTimer(id)
	}); err != nil {
		return err
	}

	return rt.Eval(timersJS)
}
