package blink

import "unsafe"

// Default chunk sizing, chosen to match a typical request/response or
// per-frame working set without forcing most callers to tune anything.
const (
	DefaultInitialChunkSize = 4 << 10 // 4 KiB
	DefaultMaxChunkSize     = 2 << 30 // 2 GiB
)

type config struct {
	initial int
	max     int
	src     ChunkSource
}

// Option configures a LocalArena or SyncArena at construction time.
type Option func(*config)

// WithInitialChunkSize sets the size of the first chunk an arena acquires.
// Subsequent chunks double in size up to WithMaxChunkSize.
func WithInitialChunkSize(n int) Option {
	return func(c *config) { c.initial = n }
}

// WithMaxChunkSize caps how large a single chunk is allowed to grow. A
// request whose size plus alignment slack exceeds this bound fails with
// ErrOutOfMemory rather than silently allocating an oversized chunk.
func WithMaxChunkSize(n int) Option {
	return func(c *config) { c.max = n }
}

// WithDelegate replaces the default heap-backed ChunkSource, letting one
// arena's chunks be carved from another Allocator instead of directly from
// the Go heap: nesting a LocalArena or SyncArena inside another one this way
// means only the outer arena ever talks to the Go heap directly.
//
// Internally this adapts d's Allocate/Deallocate pair to the narrower
// NewChunk/FreeChunk shape a chunkList actually needs; callers never see
// ChunkSource at all.
func WithDelegate(d Allocator) Option {
	return func(c *config) { c.src = allocatorSource{delegate: d} }
}

// allocatorSource adapts an Allocator into a ChunkSource, so that one
// arena's chunks can be carved out of another arena's placements. Each
// chunk is just an ordinary placement on the delegate, sized and aligned
// like any other.
type allocatorSource struct {
	delegate Allocator
}

func (s allocatorSource) NewChunk(size int) ([]byte, error) {
	addr, err := s.delegate.Allocate(Layout{Size: size, Align: maxAlign})
	if err != nil {
		return nil, err
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(addr)), size), nil
}

func (s allocatorSource) FreeChunk(buf []byte) {
	if len(buf) == 0 {
		return
	}
	addr := uintptr(unsafe.Pointer(&buf[0]))
	s.delegate.Deallocate(addr, Layout{Size: len(buf), Align: maxAlign})
}

func newConfig(opts []Option) config {
	c := config{
		initial: DefaultInitialChunkSize,
		max:     DefaultMaxChunkSize,
		src:     heapSource{},
	}
	for _, opt := range opts {
		opt(&c)
	}
	if c.initial > c.max {
		c.initial = c.max
	}
	return c
}
