package blink

import (
	"unsafe"

	"github.com/zakarumych/blink-alloc/internal/layout"
)

// Layout describes the size and alignment requirement of a placement. It
// carries no type information: every method in this package that accepts a
// Layout is working with raw, untyped memory, exactly like a C allocator.
type Layout = layout.Layout

// LayoutOf returns the size and alignment of T, suitable for passing to
// Allocator.Allocate.
func LayoutOf[T any]() Layout { return layout.Of[T]() }

// Allocator is the contract every arena in this package implements. It is
// also the contract a LocalProxy's parent SyncArena satisfies when leasing
// sub-chunks, and the contract a LocalArena's or SyncArena's own host
// (delegate) must satisfy when it is itself another arena rather than the
// heap.
//
// Grow and Shrink are resize operations against a previously returned
// address: they may return that same address unchanged (the common case
// when the placement sits at the arena's current tip and can be extended or
// retracted in place) or a new address with the overlapping prefix copied
// over. Deallocate is a hint, not a promise: an arena only reclaims space
// immediately when the freed placement sits at the tip; otherwise the bytes
// are recovered in bulk at the next Reset.
type Allocator interface {
	// Allocate reserves l.Size bytes aligned to l.Align and returns their
	// address. It fails only when the request exceeds the maximum chunk
	// size or the delegate cannot supply more memory.
	Allocate(l Layout) (uintptr, error)

	// Deallocate releases the placement at addr. It is a no-op unless addr
	// is the most recently allocated placement still outstanding.
	Deallocate(addr uintptr, l Layout)

	// Grow resizes the placement at addr from old to new, where new.Size >=
	// old.Size. It returns a new address when the placement could not be
	// extended in place.
	Grow(addr uintptr, old, new Layout) (uintptr, error)

	// Shrink resizes the placement at addr from old to new, where new.Size
	// <= old.Size. Shrink cannot fail: at worst it returns addr unchanged.
	Shrink(addr uintptr, old, new Layout) uintptr
}

// maxAlign is the alignment of the strictest scalar the Go runtime itself
// aligns to on every supported platform; it is used as the alignment of
// chunks and leases carved out of a shared delegate, since their contents
// are not known in advance.
const maxAlign = int(unsafe.Sizeof(uintptr(0)))
