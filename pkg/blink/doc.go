// Package blink implements a family of bump (blink) arena allocators.
//
// An arena services allocation requests by advancing a cursor inside a
// pre-acquired memory chunk, and releases every outstanding allocation at
// once with a bulk Reset. This trades per-allocation bookkeeping (and the
// ability to free a single object early) for allocation and bulk-release
// costs that are close to free, which suits workloads with clear phase
// structure: a build/use phase followed by a discard phase bounded by a
// frame, a request, or a task.
//
// # Allocator family
//
//   - [LocalArena] is the single-owner, non-synchronized workhorse. Use it
//     when one goroutine owns the whole allocate/use/reset cycle.
//   - [SyncArena] lets many goroutines allocate from one shared pool. Its
//     fast path is a lock-free CAS on the active chunk's cursor; chunk
//     rotation briefly takes an internal mutex.
//   - [LocalProxy], obtained from [SyncArena.LocalProxy], hands a goroutine
//     its own leased sub-chunk of a SyncArena, so that goroutine can bump
//     allocate without touching an atomic at all until its lease runs out.
//   - [DropArena] wraps a [LocalArena] and additionally runs registered
//     destructors (for values implementing [Dropper]) in reverse order
//     before the wrapped arena is reset.
//   - [ArenaCache] and [StripedCache] pool warmed arenas across tasks so a
//     new task can borrow one that has already grown to the working-set
//     size instead of starting cold.
//
// # What a Reset does not do
//
// Reset never frees every chunk: it keeps the single largest chunk seen so
// far as a "retained reserve" so that the next phase's first allocations
// find headroom immediately, without a round trip to the delegate. This is
// why a LocalArena that has been reset many times tends to stop calling its
// delegate altogether once its working set stabilizes.
//
// # Safety
//
// Every pointer into memory obtained from an arena is only valid until the
// next Reset (or until the arena itself is dropped). Go has no borrow
// checker to enforce this, so the untyped Allocate/Grow/Shrink contract
// trusts caller discipline, exactly as a raw allocator contract does in any
// language. [TrackedAlloc] offers an opt-in, debug-build-only generation
// check for call sites that want it; see its documentation for the
// trade-off.
package blink
