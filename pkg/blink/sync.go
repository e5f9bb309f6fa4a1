package blink

import (
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/timandy/routine"

	"github.com/zakarumych/blink-alloc/internal/layout"
)

// syncChunk is a chunk shared by every goroutine allocating from a
// SyncArena. Its cursor is an atomic offset rather than a plain int so
// that Allocate's fast path can advance it with a single CAS.
type syncChunk struct {
	buf  []byte
	base uintptr
	cap  int

	cursor atomic.Uint64
}

// SyncArena is a bump allocator many goroutines can allocate from
// concurrently. The common case — bumping the cursor of the active chunk —
// never takes a lock: it is a compare-and-swap retry loop. Only rotating to
// a new chunk, once the active one is exhausted, takes the arena's mutex,
// and only briefly.
//
// Reset requires that the caller has already excluded every other
// goroutine from allocating; SyncArena itself enforces no such exclusion.
type SyncArena struct {
	cur atomic.Pointer[syncChunk]
	mu  sync.Mutex // guards rotation and the chunks slice

	chunks []*syncChunk
	src    ChunkSource
	initial, max int

	proxies sync.Map // goroutine id (int64) -> *LocalProxy
}

// NewSyncArena constructs an empty SyncArena. No chunk is acquired from the
// delegate until the first allocation.
func NewSyncArena(opts ...Option) *SyncArena {
	c := newConfig(opts)
	return &SyncArena{src: c.src, initial: c.initial, max: c.max}
}

var _ Allocator = (*SyncArena)(nil)

// Allocate implements Allocator.
func (s *SyncArena) Allocate(l Layout) (uintptr, error) {
	if l.Size == 0 {
		return zeroSentinel(l.Align), nil
	}

	for {
		c := s.cur.Load()
		if c == nil {
			if err := s.rotate(c); err != nil {
				return 0, err
			}
			continue
		}

		old := c.cursor.Load()
		aligned := layout.RoundUp(c.base+uintptr(old), uintptr(l.Align))
		next := uint64(aligned-c.base) + uint64(l.Size)

		if next > uint64(c.cap) {
			if err := s.rotateFor(c, l.Size+l.Align); err != nil {
				return 0, err
			}
			continue
		}

		if c.cursor.CompareAndSwap(old, next) {
			return aligned, nil
		}
		// Lost the race against another allocator on the same chunk; retry.
	}
}

// rotate is rotateFor sized for the initial chunk.
func (s *SyncArena) rotate(observed *syncChunk) error {
	return s.rotateFor(observed, 0)
}

// rotateFor installs a fresh chunk able to satisfy a request of at least
// need bytes, unless another goroutine has already rotated past observed.
func (s *SyncArena) rotateFor(observed *syncChunk, need int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cur.Load() != observed {
		return nil // someone else already rotated; caller retries
	}

	var want int
	switch {
	case observed == nil:
		want = s.initial
	default:
		want = observed.cap * 2
	}
	if want > s.max {
		want = s.max
	}
	if want < need {
		want = need
	}
	if need > s.max {
		return outOfMemoryf("requested %d bytes exceeds max chunk size %d", need, s.max)
	}

	buf, err := s.src.NewChunk(want)
	if err != nil {
		return outOfMemory(err)
	}

	nc := &syncChunk{buf: buf, base: uintptr(unsafe.Pointer(&buf[0])), cap: want}
	s.chunks = append(s.chunks, nc)
	s.cur.Store(nc)
	return nil
}

// Deallocate implements Allocator. It is best-effort: the tip check and the
// cursor retraction are not atomic as a pair, so a concurrent allocation
// racing this call may simply keep the bytes live until the next Reset.
func (s *SyncArena) Deallocate(addr uintptr, l Layout) {
	if l.Size == 0 {
		return
	}
	c := s.cur.Load()
	if c == nil {
		return
	}
	old := c.cursor.Load()
	if addr+uintptr(l.Size) == c.base+uintptr(old) {
		c.cursor.CompareAndSwap(old, uint64(addr-c.base))
	}
}

// Grow implements Allocator.
func (s *SyncArena) Grow(addr uintptr, old, new Layout) (uintptr, error) {
	if c := s.cur.Load(); c != nil {
		cur := c.cursor.Load()
		if addr+uintptr(old.Size) == c.base+uintptr(cur) && addr%uintptr(new.Align) == 0 {
			next := uint64(addr-c.base) + uint64(new.Size)
			if next <= uint64(c.cap) && c.cursor.CompareAndSwap(cur, next) {
				return addr, nil
			}
		}
	}

	newAddr, err := s.Allocate(new)
	if err != nil {
		return 0, err
	}
	copyMem(newAddr, addr, old.Size)
	return newAddr, nil
}

// Shrink implements Allocator. Like Deallocate, the in-place retraction is
// best-effort under concurrency; it never fails.
func (s *SyncArena) Shrink(addr uintptr, old, new Layout) uintptr {
	if c := s.cur.Load(); c != nil {
		cur := c.cursor.Load()
		if addr+uintptr(old.Size) == c.base+uintptr(cur) {
			c.cursor.CompareAndSwap(cur, uint64(addr-c.base)+uint64(new.Size))
		}
	}
	return addr
}

// Reset reclaims every placement made since the arena was created or last
// reset, keeping the single largest chunk as a retained reserve, and
// forgets every goroutine's leased LocalProxy. The caller must ensure no
// other goroutine is concurrently allocating.
func (s *SyncArena) Reset() {
	if len(s.chunks) == 0 {
		return
	}

	keep := 0
	for i := 1; i < len(s.chunks); i++ {
		if s.chunks[i].cap >= s.chunks[keep].cap {
			keep = i
		}
	}

	survivor := s.chunks[keep]
	for i, c := range s.chunks {
		if i != keep {
			s.src.FreeChunk(c.buf)
		}
	}

	survivor.cursor.Store(0)
	s.chunks = s.chunks[:0]
	s.chunks = append(s.chunks, survivor)
	s.cur.Store(survivor)

	s.proxies.Range(func(k, _ any) bool {
		s.proxies.Delete(k)
		return true
	})
}

// LocalProxy returns the calling goroutine's leased sub-chunk of s,
// creating one on first use. Every subsequent call from the same goroutine,
// until the next Reset, returns the same LocalProxy.
func (s *SyncArena) LocalProxy() *LocalProxy {
	gid := routine.Goid()
	if v, ok := s.proxies.Load(gid); ok {
		return v.(*LocalProxy)
	}
	p := &LocalProxy{parent: s, leaseSize: s.initial}
	actual, _ := s.proxies.LoadOrStore(gid, p)
	return actual.(*LocalProxy)
}
