package blink

import "unsafe"

// LocalProxy is a single goroutine's private view onto a SyncArena. It
// leases a sub-chunk from its parent with one atomic-guarded Allocate call,
// then bump-allocates out of that lease using the same unsynchronized
// engine LocalArena uses, paying the parent's synchronization cost only
// once per lease instead of once per allocation.
//
// Obtain one via SyncArena.LocalProxy; do not share a LocalProxy across
// goroutines.
type LocalProxy struct {
	parent *SyncArena
	lease  chunk
	leaseSize int
}

var _ Allocator = (*LocalProxy)(nil)

// Allocate implements Allocator.
func (p *LocalProxy) Allocate(l Layout) (uintptr, error) {
	if l.Size == 0 {
		return zeroSentinel(l.Align), nil
	}

	if addr, ok := bumpAlloc(&p.lease, l); ok {
		return addr, nil
	}

	if err := p.relet(l.Size + l.Align); err != nil {
		return 0, err
	}

	addr, ok := bumpAlloc(&p.lease, l)
	if !ok {
		return 0, outOfMemoryf("leased chunk of %d bytes too small for %+v", p.lease.capacity(), l)
	}
	return addr, nil
}

// relet asks the parent SyncArena for a new lease of at least need bytes.
// The lease is itself an ordinary allocation against the parent, so it
// participates in the parent's own chunk accounting; only its carving into
// smaller placements happens lock-free, local to this goroutine.
func (p *LocalProxy) relet(need int) error {
	size := p.leaseSize
	if size < need {
		size = need
	}

	addr, err := p.parent.Allocate(Layout{Size: size, Align: maxAlign})
	if err != nil {
		return err
	}

	p.lease = chunk{buf: unsafe.Slice((*byte)(unsafe.Pointer(addr)), size)}

	p.leaseSize = size * 2
	if p.leaseSize > p.parent.max {
		p.leaseSize = p.parent.max
	}
	return nil
}

// Deallocate implements Allocator.
func (p *LocalProxy) Deallocate(addr uintptr, l Layout) {
	if l.Size == 0 {
		return
	}
	bumpFree(&p.lease, addr, l.Size)
}

// Grow implements Allocator. Unlike LocalArena, a proxy keeps no list of
// chunks it has moved on from: once a placement can no longer be extended
// in its current lease, the fallback is always a plain allocate-and-copy,
// with nothing to retract afterward.
func (p *LocalProxy) Grow(addr uintptr, old, new Layout) (uintptr, error) {
	if a, ok := bumpGrow(&p.lease, addr, old, new); ok {
		return a, nil
	}

	newAddr, err := p.Allocate(new)
	if err != nil {
		return 0, err
	}
	copyMem(newAddr, addr, old.Size)
	return newAddr, nil
}

// Shrink implements Allocator.
func (p *LocalProxy) Shrink(addr uintptr, old, new Layout) uintptr {
	return bumpShrink(&p.lease, addr, old, new)
}

// Reset forgets this proxy's lease bookkeeping. It does not, and cannot,
// rewind the parent's cursor: the leased bytes are only reclaimed when the
// parent SyncArena itself is reset. This is the conservative resolution of
// whether a proxy reset should attempt to hand its lease back early: doing
// so safely would require the parent to track per-lease lifetimes, which
// would reintroduce the per-allocation bookkeeping a bump allocator exists
// to avoid.
func (p *LocalProxy) Reset() {
	p.lease = chunk{}
	p.leaseSize = p.parent.initial
}
