package blink

import (
	"sync"

	"github.com/dolthub/maphash"
	"github.com/timandy/routine"

	"github.com/zakarumych/blink-alloc/internal/xsync"
)

// ArenaCache pools reset, warmed-up LocalArenas across tasks. A task that
// borrows one it finds idle skips the cold start of growing chunks back up
// to the working-set size: the retained-reserve chunk Reset leaves behind
// is still there.
//
// Borrow first checks whether the calling goroutine left an arena behind on
// its own last Return, via routine.Goid: a goroutine that borrows, returns,
// and later borrows again gets the very same arena back, with no trip
// through the shared free list at all. Only when there is no such
// goroutine-affine arena does Borrow fall back to the shared queue.
//
// Beyond that affinity slot, up to capacity arenas are held in a simple LIFO
// free list; beyond that, returned arenas have their chunks released to the
// delegate and spill into a sync.Pool-backed overflow, whose contents the
// garbage collector is free to reclaim under
// memory pressure rather than pinning an unbounded number of arenas in
// memory.
type ArenaCache struct {
	mu   sync.Mutex
	idle []*LocalArena

	capacity int
	overflow xsync.Pool[LocalArena]

	affinity sync.Map // goroutine id (int64) -> *LocalArena
}

// NewArenaCache constructs a cache whose shared free list retains at most
// capacity idle arenas (in addition to one affinity slot per returning
// goroutine), each configured with opts.
func NewArenaCache(capacity int, opts ...Option) *ArenaCache {
	c := &ArenaCache{capacity: capacity}
	c.overflow.New = func() *LocalArena { return NewLocalArena(opts...) }
	c.overflow.Reset = func(a *LocalArena) { a.Reset() }
	return c
}

// Borrow returns the calling goroutine's own last-returned arena if it left
// one behind, then an idle arena from the shared free list, then a new or
// overflow-pooled one. The returned arena is always already reset and ready
// to allocate from.
func (c *ArenaCache) Borrow() *LocalArena {
	if v, ok := c.affinity.LoadAndDelete(routine.Goid()); ok {
		return v.(*LocalArena)
	}

	c.mu.Lock()
	if n := len(c.idle); n > 0 {
		a := c.idle[n-1]
		c.idle = c.idle[:n-1]
		c.mu.Unlock()
		return a
	}
	c.mu.Unlock()
	return c.overflow.Get()
}

// IdleLen reports how many arenas are currently sitting in the bounded
// idle free list (not counting anything spilled into the overflow pool).
func (c *ArenaCache) IdleLen() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.idle)
}

// Return resets a and leaves it as the calling goroutine's affinity slot
// for the next Borrow from this same goroutine. Whatever arena previously
// occupied that slot — left over from an earlier Return this goroutine
// never came back to collect — falls through to the shared free list, and
// from there to the overflow pool once that list is at capacity.
func (c *ArenaCache) Return(a *LocalArena) {
	a.Reset()

	if prev, loaded := c.affinity.Swap(routine.Goid(), a); loaded {
		c.stash(prev.(*LocalArena))
	}
}

// stash places a onto the shared free list. Once that list is already at
// capacity, a's chunks are all released to the delegate and the emptied
// arena spills into the overflow pool.
func (c *ArenaCache) stash(a *LocalArena) {
	c.mu.Lock()
	if len(c.idle) < c.capacity {
		c.idle = append(c.idle, a)
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()

	a.Release()
	c.overflow.Put(a)
}

// StripedCache is an ArenaCache sharded by an explicit key, so that callers
// who can name a natural affinity for reuse — a connection ID, a shard
// number, a worker index — route their borrows to the same shard instead
// of contending on one shared free list.
type StripedCache[K comparable] struct {
	shards []*ArenaCache
	hasher maphash.Hasher[K]
}

// NewStripedCache constructs a StripedCache with the given number of
// shards, each its own ArenaCache of the given per-shard capacity.
func NewStripedCache[K comparable](shards, perShardCapacity int, opts ...Option) *StripedCache[K] {
	if shards < 1 {
		shards = 1
	}
	s := &StripedCache[K]{
		shards: make([]*ArenaCache, shards),
		hasher: maphash.NewHasher[K](),
	}
	for i := range s.shards {
		s.shards[i] = NewArenaCache(perShardCapacity, opts...)
	}
	return s
}

func (s *StripedCache[K]) shardFor(key K) *ArenaCache {
	h := s.hasher.Hash(key)
	return s.shards[h%uint64(len(s.shards))]
}

// Borrow returns an idle arena from key's shard, or a fresh one if that
// shard's cache and overflow are both empty.
func (s *StripedCache[K]) Borrow(key K) *LocalArena {
	return s.shardFor(key).Borrow()
}

// Return gives a back to key's shard. The key need not be the same one
// passed to the matching Borrow call, but using the same key is what lets
// a caller build up per-shard affinity over repeated borrow/return cycles.
func (s *StripedCache[K]) Return(key K, a *LocalArena) {
	s.shardFor(key).Return(a)
}
