package blink

import "testing"

func TestChunkListAcquireForDoublesChunkSize(t *testing.T) {
	cl := newChunkList(16, 1<<20, heapSource{})

	if err := cl.acquireFor(4, 1); err != nil {
		t.Fatalf("acquireFor: %v", err)
	}
	firstCap := cl.current.capacity()
	if firstCap < 16 {
		t.Fatalf("first chunk capacity = %d, want at least the initial size", firstCap)
	}

	// Force a second chunk by filling the first and requesting more.
	cl.current.cursor = cl.current.capacity()
	if err := cl.acquireFor(4, 1); err != nil {
		t.Fatalf("acquireFor: %v", err)
	}
	secondCap := cl.current.capacity()
	if secondCap < firstCap*2 {
		t.Fatalf("second chunk capacity = %d, want at least double the first (%d)", secondCap, firstCap)
	}
}

func TestChunkListAcquireForRespectsMaxChunkSize(t *testing.T) {
	cl := newChunkList(16, 32, heapSource{})

	if err := cl.acquireFor(128, 1); err == nil {
		t.Fatalf("expected acquireFor to fail when the request exceeds the max chunk size")
	}
}

func TestChunkListDropFreesEveryChunk(t *testing.T) {
	src := &countingSource{}
	cl := newChunkList(16, 1<<20, src)

	if err := cl.acquireFor(4, 1); err != nil {
		t.Fatalf("acquireFor: %v", err)
	}
	cl.current.cursor = cl.current.capacity()
	if err := cl.acquireFor(4, 1); err != nil {
		t.Fatalf("acquireFor: %v", err)
	}

	cl.drop()

	if src.freed != 2 {
		t.Fatalf("drop should free every chunk, freed %d", src.freed)
	}
	if cl.current != nil || len(cl.chunks) != 0 {
		t.Fatalf("drop should leave the list empty")
	}
}
