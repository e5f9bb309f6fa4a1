package blink

import (
	"errors"
	"fmt"
	"iter"
	"unsafe"

	"github.com/zakarumych/blink-alloc/internal/debug"
)

// Dropper is implemented by values that hold resources or nested
// allocations needing explicit cleanup before the arena holding them is
// reset. Go has no destructor protocol of its own; this is this package's
// stand-in for it, and only values implementing it get a drop record at
// all — placing an ordinary value with DropArena.Put costs nothing extra.
type Dropper interface {
	Drop()
}

// destructor is one registered cleanup action, run in reverse registration
// order by DropArena.Reset.
type destructor struct {
	fn func()
}

// DropArena wraps a LocalArena and additionally runs the Drop method of
// every Dropper value placed into it, in reverse order, immediately before
// the wrapped arena is reset.
//
// Drop records are kept in an ordinary growable Go slice rather than
// inside the wrapped arena's own byte chunks: a destructor closure holds
// live Go pointers (the receiver, any captured state), and arena memory is
// meant to hold pointer-free payloads that the garbage collector does not
// need to scan. Mixing the two would force every chunk to be scanned.
type DropArena struct {
	arena *LocalArena
	drops []destructor
}

// NewDropArena wraps a freshly constructed LocalArena.
func NewDropArena(opts ...Option) *DropArena {
	return &DropArena{arena: NewLocalArena(opts...)}
}

// Arena returns the wrapped LocalArena, for callers that need raw
// Allocate/Grow/Shrink access or its Metrics.
func (d *DropArena) Arena() *LocalArena { return d.arena }

var _ Allocator = (*DropArena)(nil)

// Allocate implements Allocator by forwarding to the wrapped arena. Placing
// a value this way does not register a destructor even if its type
// implements Dropper; use Put for that.
func (d *DropArena) Allocate(l Layout) (uintptr, error) { return d.arena.Allocate(l) }

// Deallocate implements Allocator by forwarding to the wrapped arena.
func (d *DropArena) Deallocate(addr uintptr, l Layout) { d.arena.Deallocate(addr, l) }

// Grow implements Allocator by forwarding to the wrapped arena.
func (d *DropArena) Grow(addr uintptr, old, new Layout) (uintptr, error) {
	return d.arena.Grow(addr, old, new)
}

// Shrink implements Allocator by forwarding to the wrapped arena.
func (d *DropArena) Shrink(addr uintptr, old, new Layout) uintptr {
	return d.arena.Shrink(addr, old, new)
}

func dropperOf[T any](p *T) (Dropper, bool) {
	d, ok := any(p).(Dropper)
	return d, ok
}

// Put allocates space for a T from d and copies value into it. If T
// implements Dropper, its Drop method is registered to run on the next
// Reset.
func Put[T any](d *DropArena, value T) (*T, error) {
	p, err := New[T](d.arena, value)
	if err != nil {
		return nil, err
	}
	if dr, ok := dropperOf(p); ok {
		d.drops = append(d.drops, destructor{fn: dr.Drop})
	}
	return p, nil
}

// CopyBytes copies b into space allocated from d and returns the copy.
func CopyBytes(d *DropArena, b []byte) ([]byte, error) {
	if len(b) == 0 {
		return nil, nil
	}
	addr, err := d.arena.Allocate(Layout{Size: len(b), Align: 1})
	if err != nil {
		return nil, err
	}
	dst := unsafe.Slice((*byte)(unsafe.Pointer(addr)), len(b))
	copy(dst, b)
	return dst, nil
}

// CopyString copies s into space allocated from d and returns the copy.
func CopyString(d *DropArena, s string) (string, error) {
	if len(s) == 0 {
		return "", nil
	}
	b, err := CopyBytes(d, unsafe.Slice(unsafe.StringData(s), len(s)))
	if err != nil {
		return "", err
	}
	return unsafe.String(&b[0], len(b)), nil
}

// Emplacer builds a contiguous, arena-backed []T one element at a time from
// an arbitrary sequence.
type Emplacer[T any] struct {
	d *DropArena
}

// Emplace starts building a []T inside d.
func Emplace[T any](d *DropArena) *Emplacer[T] {
	return &Emplacer[T]{d: d}
}

// FromSeq consumes seq, copying each yielded value into arena-backed
// storage that grows geometrically as needed (doubling, tip-aware, exactly
// like Allocator.Grow), and returns the resulting slice. seq's length hint,
// if any, is never trusted: growth only ever happens reactively, so a
// sequence that lies about its length (or has none at all, like most
// range-over-func sequences) is handled identically to one that doesn't.
//
// If T implements Dropper, one drop record is registered for the whole
// slice, running Drop on every element in reverse index order.
func (e *Emplacer[T]) FromSeq(seq iter.Seq[T]) ([]T, error) {
	a := e.d.arena
	l := LayoutOf[T]()

	const initialCount = 4
	count := initialCount
	base, err := a.Allocate(Layout{Size: l.Size * count, Align: l.Align})
	if err != nil {
		return nil, err
	}

	n := 0
	for v := range seq {
		if n == count {
			newCount := count * 2
			newBase, err := a.Grow(base,
				Layout{Size: l.Size * count, Align: l.Align},
				Layout{Size: l.Size * newCount, Align: l.Align})
			if err != nil {
				return nil, err
			}
			base, count = newBase, newCount
		}

		elem := (*T)(unsafe.Pointer(base + uintptr(n)*uintptr(l.Size)))
		*elem = v
		n++
	}

	result := unsafe.Slice((*T)(unsafe.Pointer(base)), n)

	var zero T
	if _, ok := dropperOf(&zero); ok {
		e.d.drops = append(e.d.drops, destructor{fn: func() {
			for i := len(result) - 1; i >= 0; i-- {
				if dr, ok := dropperOf(&result[i]); ok {
					dr.Drop()
				}
			}
		}})
	}

	return result, nil
}

// Reset runs every registered destructor in reverse registration order,
// then resets the wrapped arena. A destructor that panics does not stop
// the remaining destructors from running, nor does it stop the underlying
// arena from being reset; every panic observed is collected and re-raised,
// joined, once cleanup has otherwise finished.
func (d *DropArena) Reset() {
	var panics []error

	for i := len(d.drops) - 1; i >= 0; i-- {
		fn := d.drops[i].fn
		func() {
			defer func() {
				if r := recover(); r != nil {
					debug.Log(nil, "DropArena.Reset", "destructor %d panicked: %v", i, r)
					panics = append(panics, fmt.Errorf("destructor panic: %v", r))
				}
			}()
			fn()
		}()
	}

	d.drops = d.drops[:0]
	d.arena.Reset()

	if len(panics) > 0 {
		panic(errors.Join(panics...))
	}
}

// Release runs every registered destructor (see Reset) and returns every
// chunk, including the retained reserve, to the delegate.
func (d *DropArena) Release() {
	d.Reset()
	d.arena.Release()
}
