package host

import (
	"errors"
	"sync"
	"unsafe"

	"modernc.org/libc"
)

// allocator hands out C-compatible memory from modernc.org/libc so the
// in-process engines expose the same ownership rules as libnode: argv and
// error strings live outside the Go heap and are released explicitly.
type allocator struct {
	mu  sync.Mutex // libc.TLS is not safe for concurrent use
	tls *libc.TLS
}

func newAllocator() *allocator {
	return &allocator{tls: libc.NewTLS()}
}

func (a *allocator) CString(s string) (unsafe.Pointer, error) {
	p, err := libc.CString(s)
	if err != nil {
		return nil, err
	}
	return unsafe.Pointer(p), nil
}

func (a *allocator) GoString(p unsafe.Pointer) string {
	if p == nil {
		return ""
	}
	return libc.GoString(uintptr(p))
}

func (a *allocator) Malloc(n int) (unsafe.Pointer, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	p := libc.Xmalloc(a.tls, libc.Tsize_t(n))
	if p == 0 {
		return nil, errors.New("out of memory")
	}
	return unsafe.Pointer(p), nil
}

func (a *allocator) Free(p unsafe.Pointer) {
	if p == nil {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	libc.Xfree(a.tls, uintptr(p))
}
