package core

import (
	"fmt"
	"unsafe"
)

// ArgBuffer holds an argument vector in foreign memory: one NUL-terminated
// string per argument plus a NULL-terminated pointer array into them. It must
// outlive the foreign call that reads Argv, so callers defer Free right after
// building it.
type ArgBuffer struct {
	alloc Allocator
	strs  []unsafe.Pointer
	array unsafe.Pointer
}

// NewArgBuffer copies args into memory owned by alloc.
func NewArgBuffer(alloc Allocator, args []string) (*ArgBuffer, error) {
	b := &ArgBuffer{alloc: alloc, strs: make([]unsafe.Pointer, 0, len(args))}

	for i, arg := range args {
		p, err := alloc.CString(arg)
		if err != nil {
			b.Free()
			return nil, fmt.Errorf("allocating argument %d: %w", i, err)
		}
		b.strs = append(b.strs, p)
	}

	array, err := alloc.Malloc((len(args) + 1) * int(unsafe.Sizeof(uintptr(0))))
	if err != nil {
		b.Free()
		return nil, fmt.Errorf("allocating argv array: %w", err)
	}
	b.array = array

	slots := unsafe.Slice((*unsafe.Pointer)(array), len(args)+1)
	copy(slots, b.strs)
	slots[len(args)] = nil

	return b, nil
}

// Argc returns the number of arguments.
func (b *ArgBuffer) Argc() int { return len(b.strs) }

// Argv returns the pointer array. Valid until Free.
func (b *ArgBuffer) Argv() unsafe.Pointer { return b.array }

// Strings reads the buffer back.
func (b *ArgBuffer) Strings() []string {
	return ReadArgv(b.alloc, b.Argc(), b.array)
}

// Free releases all foreign memory. Safe to call more than once.
func (b *ArgBuffer) Free() {
	for _, p := range b.strs {
		b.alloc.Free(p)
	}
	b.strs = nil
	if b.array != nil {
		b.alloc.Free(b.array)
		b.array = nil
	}
}

// ReadArgv copies argc strings out of a foreign argv array.
func ReadArgv(alloc Allocator, argc int, argv unsafe.Pointer) []string {
	if argc <= 0 || argv == nil {
		return nil
	}
	slots := unsafe.Slice((*unsafe.Pointer)(argv), argc)
	out := make([]string, argc)
	for i, p := range slots {
		out[i] = alloc.GoString(p)
	}
	return out
}
