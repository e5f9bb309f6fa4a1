package blink

import (
	"unsafe"

	"github.com/zakarumych/blink-alloc/internal/layout"
)

// zeroSentinel returns a non-null, suitably-aligned address for a
// zero-size placement without touching any chunk at all. Nothing ever
// dereferences it: its only job is to compare unequal to a nil pointer and
// satisfy `addr % align == 0`, and align itself trivially satisfies that.
func zeroSentinel(align int) uintptr {
	if align <= 0 {
		align = 1
	}
	return uintptr(align)
}

// atTip reports whether the placement [addr, addr+size) is the most
// recently bump-allocated region of c, i.e. whether it ends exactly at c's
// cursor. Grow, Shrink and Deallocate are all only able to act in place
// when this holds.
func atTip(c *chunk, addr uintptr, size int) bool {
	return c.buf != nil && addr+uintptr(size) == c.base()+uintptr(c.cursor)
}

// bumpAlloc advances c's cursor to satisfy l, returning the aligned address
// and true, or false if c does not have enough remaining capacity.
func bumpAlloc(c *chunk, l Layout) (uintptr, bool) {
	if l.Size == 0 {
		return zeroSentinel(l.Align), true
	}

	base := c.base()
	cur := base + uintptr(c.cursor)
	aligned := layout.RoundUp(cur, uintptr(l.Align))
	end := aligned + uintptr(l.Size)

	if end > base+uintptr(c.capacity()) {
		return 0, false
	}

	c.cursor = int(end - base)
	return aligned, true
}

// bumpGrow extends the placement at addr in place when it sits at c's tip,
// has room within c's remaining capacity, and addr already satisfies the
// new, stricter alignment. It never moves data: callers fall back to a
// fresh allocation plus copy on failure.
func bumpGrow(c *chunk, addr uintptr, old, new Layout) (uintptr, bool) {
	if !atTip(c, addr, old.Size) || addr%uintptr(new.Align) != 0 {
		return 0, false
	}

	base := c.base()
	newCursor := int(addr-base) + new.Size
	if newCursor > c.capacity() {
		return 0, false
	}

	c.cursor = newCursor
	return addr, true
}

// bumpShrink retracts c's cursor when the placement at addr sits at the
// tip, so the released tail bytes are immediately available again. It
// always succeeds, returning addr unchanged either way.
func bumpShrink(c *chunk, addr uintptr, old, new Layout) uintptr {
	if atTip(c, addr, old.Size) {
		c.cursor = int(addr-c.base()) + new.Size
	}
	return addr
}

// bumpFree retracts c's cursor when the placement at addr sits at the tip,
// reclaiming it immediately; otherwise it is a no-op reclaimed in bulk at
// the next Reset.
func bumpFree(c *chunk, addr uintptr, size int) {
	if atTip(c, addr, size) {
		c.cursor = int(addr - c.base())
	}
}

// copyMem copies n bytes from src to dst using raw addresses. Both ranges
// must be live and non-overlapping (true of every grow/shrink call site in
// this package, since the destination is always a freshly carved region).
func copyMem(dst, src uintptr, n int) {
	if n == 0 {
		return
	}
	d := unsafe.Slice((*byte)(unsafe.Pointer(dst)), n)
	s := unsafe.Slice((*byte)(unsafe.Pointer(src)), n)
	copy(d, s)
}
