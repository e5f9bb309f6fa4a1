package blink

import (
	"unsafe"

	"github.com/zakarumych/blink-alloc/internal/debug"
)

// New allocates space for a T from a and copies value into it, returning a
// pointer valid until the next Reset of a.
func New[T any](a Allocator, value T) (*T, error) {
	addr, err := a.Allocate(LayoutOf[T]())
	if err != nil {
		return nil, err
	}
	p := (*T)(unsafe.Pointer(addr))
	*p = value
	return p, nil
}

// Free releases the placement p back to a. Like Allocator.Deallocate, it
// only has an effect when p sits at a's current tip.
func Free[T any](a Allocator, p *T) {
	a.Deallocate(uintptr(unsafe.Pointer(p)), LayoutOf[T]())
}

// Realloc reinterprets the placement at p, of static type From, as a value
// of type To, growing or shrinking the underlying allocation as needed and
// preserving the overlapping prefix of raw bytes. It is the generic
// counterpart of Allocator.Grow/Shrink for callers who don't want to
// juggle Layout values themselves.
func Realloc[To, From any](a Allocator, p *From) (*To, error) {
	oldLayout := LayoutOf[From]()
	newLayout := LayoutOf[To]()
	addr := uintptr(unsafe.Pointer(p))

	var newAddr uintptr
	if newLayout.Size <= oldLayout.Size {
		newAddr = a.Shrink(addr, oldLayout, newLayout)
	} else {
		var err error
		newAddr, err = a.Grow(addr, oldLayout, newLayout)
		if err != nil {
			return nil, err
		}
	}
	return (*To)(unsafe.Pointer(newAddr)), nil
}

// TrackedHandle is a placement recorded alongside the generation its owning
// LocalArena was on when it was made. Dereferencing it after the arena has
// since been Reset is a programmer error; in debug builds that error is
// caught instead of silently handing back a pointer into reused memory.
//
// This is this port's stand-in for the borrow-checker-enforced "no handles
// outlive a reset" invariant: Go has no such static check, so the guard is
// opt-in, runtime, and compiled out entirely in release builds.
type TrackedHandle[T any] struct {
	addr uintptr
	gen  uint64
}

// TrackedAlloc is New, but the returned handle records a's current
// generation for later verification by Deref.
func TrackedAlloc[T any](a *LocalArena, value T) (TrackedHandle[T], error) {
	p, err := New[T](a, value)
	if err != nil {
		return TrackedHandle[T]{}, err
	}
	return TrackedHandle[T]{addr: uintptr(unsafe.Pointer(p)), gen: a.gen}, nil
}

// Deref returns the handle's placement. In debug builds it first asserts
// that a has not been reset since the handle was created.
func (h TrackedHandle[T]) Deref(a *LocalArena) *T {
	debug.Assert(h.gen == a.gen,
		"handle used after Reset (created at generation %d, arena is now at %d)", h.gen, a.gen)
	return (*T)(unsafe.Pointer(h.addr))
}
