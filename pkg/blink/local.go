package blink

import "github.com/zakarumych/blink-alloc/internal/debug"

// LocalArena is a single-owner bump allocator. It performs no
// synchronization at all, so a LocalArena must not be shared across
// goroutines without an external lock; SyncArena is the concurrent
// counterpart.
type LocalArena struct {
	chunks chunkList
	gen    uint64 // bumped on every Reset; backs TrackedAlloc's debug check
}

// NewLocalArena constructs an empty LocalArena. No chunk is acquired from
// the delegate until the first allocation.
func NewLocalArena(opts ...Option) *LocalArena {
	c := newConfig(opts)
	return &LocalArena{chunks: newChunkList(c.initial, c.max, c.src)}
}

var _ Allocator = (*LocalArena)(nil)

// Allocate implements Allocator.
func (a *LocalArena) Allocate(l Layout) (uintptr, error) {
	if l.Size == 0 {
		return zeroSentinel(l.Align), nil
	}

	if a.chunks.current != nil {
		if addr, ok := bumpAlloc(a.chunks.current, l); ok {
			return addr, nil
		}
	}

	if err := a.chunks.acquireFor(l.Size, l.Align); err != nil {
		return 0, err
	}

	addr, ok := bumpAlloc(a.chunks.current, l)
	debug.Assert(ok, "freshly acquired chunk too small for %+v", l)
	return addr, nil
}

// Deallocate implements Allocator.
func (a *LocalArena) Deallocate(addr uintptr, l Layout) {
	if l.Size == 0 || a.chunks.current == nil {
		return
	}
	bumpFree(a.chunks.current, addr, l.Size)
}

// Grow implements Allocator.
func (a *LocalArena) Grow(addr uintptr, old, new Layout) (uintptr, error) {
	if a.chunks.current != nil {
		if p, ok := bumpGrow(a.chunks.current, addr, old, new); ok {
			return p, nil
		}
	}

	abandoned := a.chunks.current
	wasTip := abandoned != nil && atTip(abandoned, addr, old.Size)

	newAddr, err := a.Allocate(new)
	if err != nil {
		return 0, err
	}
	copyMem(newAddr, addr, old.Size)

	// Only reclaim the old tail when the new placement actually landed in a
	// different chunk: if it stayed in the same one, abandoned's cursor has
	// already advanced past the new placement, and retracting it here would
	// eat into data we just wrote.
	if wasTip && a.chunks.current != abandoned {
		abandoned.cursor -= old.Size
	}
	return newAddr, nil
}

// Shrink implements Allocator.
func (a *LocalArena) Shrink(addr uintptr, old, new Layout) uintptr {
	if a.chunks.current == nil {
		return addr
	}
	return bumpShrink(a.chunks.current, addr, old, new)
}

// Reset reclaims every placement made since the arena was created or last
// reset. It keeps the single largest chunk acquired so far as a retained
// reserve instead of returning everything to the delegate.
func (a *LocalArena) Reset() {
	a.chunks.reset()
	a.gen++
}

// Release returns every chunk to the delegate, including the retained
// reserve that Reset keeps. Call this when the arena itself is being
// discarded, not merely reused for another phase.
func (a *LocalArena) Release() {
	a.chunks.drop()
	a.gen++
}
