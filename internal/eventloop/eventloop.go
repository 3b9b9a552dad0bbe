package eventloop

import (
	"fmt"
	"sync"
	"time"

	"github.com/cryguy/nodejs/internal/core"
)

// minInterval is the shortest allowed setInterval period.
const minInterval = time.Millisecond

// timerEntry represents a pending setTimeout, setInterval or setImmediate
// callback. The actual callback is stored in globalThis.__timerCallbacks[id]
// on the JS side. Go only tracks scheduling metadata.
type timerEntry struct {
	deadline time.Time
	interval time.Duration // 0 for one-shot timers
	id       int
	cleared  bool
}

// EventLoop drives Go-backed timers for an in-process engine. Spin runs on
// the engine's goroutine; Quit may be called from anywhere.
type EventLoop struct {
	mu     sync.Mutex
	timers map[int]*timerEntry
	nextID int

	quit     chan struct{}
	quitOnce sync.Once
}

// New creates a new EventLoop.
func New() *EventLoop {
	return &EventLoop{
		timers: make(map[int]*timerEntry),
		quit:   make(chan struct{}),
	}
}

// RegisterTimer creates a timer entry and returns its ID.
// The actual JS callback is stored in globalThis.__timerCallbacks[id].
func (el *EventLoop) RegisterTimer(delay time.Duration, isInterval bool) int {
	el.mu.Lock()
	defer el.mu.Unlock()
	if delay < 0 {
		delay = 0
	}
	el.nextID++
	entry := &timerEntry{
		deadline: time.Now().Add(delay),
		id:       el.nextID,
	}
	if isInterval {
		entry.interval = max(delay, minInterval)
	}
	el.timers[entry.id] = entry
	return entry.id
}

// ClearTimer cancels a timer by ID.
func (el *EventLoop) ClearTimer(id int) {
	el.mu.Lock()
	defer el.mu.Unlock()
	if t, ok := el.timers[id]; ok {
		t.cleared = true
		delete(el.timers, id)
	}
}

// HasPending returns true if there are any active timers.
func (el *EventLoop) HasPending() bool {
	el.mu.Lock()
	defer el.mu.Unlock()
	return len(el.timers) > 0
}

// Quit makes Spin return at its next wait or between callbacks.
func (el *EventLoop) Quit() {
	el.quitOnce.Do(func() { close(el.quit) })
}

// Quitting reports whether Quit has been called.
func (el *EventLoop) Quitting() bool {
	select {
	case <-el.quit:
		return true
	default:
		return false
	}
}

// Spin fires timers until none remain or Quit is called. An exception thrown
// by a callback or a microtask ends the loop and is returned.
// Must be called on the runtime's goroutine (JS engines are single-threaded).
func (el *EventLoop) Spin(rt core.JSRuntime) error {
	if err := rt.RunMicrotasks(); err != nil {
		return err
	}
	for {
		if el.Quitting() {
			return nil
		}

		next := el.nextTimer()
		if next == nil {
			return nil
		}

		if wait := time.Until(next.deadline); wait > 0 {
			t := time.NewTimer(wait)
			select {
			case <-el.quit:
				t.Stop()
				return nil
			case <-t.C:
			}
		}

		id, ok := el.claim(next)
		if !ok {
			continue
		}
		if el.Quitting() {
			return nil
		}
		if err := el.fireTimer(rt, id); err != nil {
			return err
		}
		if err := rt.RunMicrotasks(); err != nil {
			return err
		}
	}
}

// nextTimer returns the timer with the earliest deadline, lowest ID first on ties.
func (el *EventLoop) nextTimer() *timerEntry {
	el.mu.Lock()
	defer el.mu.Unlock()
	var next *timerEntry
	for _, t := range el.timers {
		if next == nil || t.deadline.Before(next.deadline) ||
			(t.deadline.Equal(next.deadline) && t.id < next.id) {
			next = t
		}
	}
	return next
}

// claim reschedules or removes a due timer. It fails if the timer was
// cleared while the loop was waiting on it.
func (el *EventLoop) claim(t *timerEntry) (int, bool) {
	el.mu.Lock()
	defer el.mu.Unlock()
	if t.cleared {
		return 0, false
	}
	if t.interval > 0 {
		t.deadline = time.Now().Add(t.interval)
	} else {
		delete(el.timers, t.id)
	}
	return t.id, true
}

// fireTimer invokes the JS-side callback registered under id.
func (el *EventLoop) fireTimer(rt core.JSRuntime, id int) error {
	js := fmt.Sprintf(`(function() {
		var entry = globalThis.__timerCallbacks[%d];
		if (!entry) return;
		if (!entry.interval) delete globalThis.__timerCallbacks[%d];
		entry.fn.apply(null, entry.args || []);
	})()`, id, id)
	return rt.Eval(js)
}
