package blink

// ArenaMetrics is a point-in-time snapshot of a LocalArena's or SyncArena's chunk
// bookkeeping, useful for sizing WithInitialChunkSize/WithMaxChunkSize or
// for exporting occupancy to an external metrics system.
type ArenaMetrics struct {
	// SizeInUse is the number of bytes bump-allocated across every chunk
	// since the arena was created or last reset.
	SizeInUse int

	// Capacity is the combined capacity of every chunk currently held,
	// including the unused tail of the current chunk.
	Capacity int

	// NumChunks is how many chunks the arena currently holds.
	NumChunks int

	// CurrentChunkSize is the capacity of the chunk new allocations are
	// currently being carved from, or zero if no chunk has been acquired
	// yet.
	CurrentChunkSize int
}

// Utilization returns SizeInUse/Capacity, or 0 if Capacity is 0.
func (m ArenaMetrics) Utilization() float64 {
	if m.Capacity == 0 {
		return 0
	}
	return float64(m.SizeInUse) / float64(m.Capacity)
}

// Metrics reports a's current chunk bookkeeping.
func (a *LocalArena) Metrics() ArenaMetrics {
	var m ArenaMetrics
	m.NumChunks = len(a.chunks.chunks)
	for _, c := range a.chunks.chunks {
		m.Capacity += c.capacity()
		m.SizeInUse += c.cursor
	}
	if a.chunks.current != nil {
		m.CurrentChunkSize = a.chunks.current.capacity()
	}
	return m
}

// Metrics reports s's current chunk bookkeeping. Unlike LocalArena.Metrics,
// this is only a best-effort snapshot: other goroutines may be allocating
// concurrently while it is taken.
func (s *SyncArena) Metrics() ArenaMetrics {
	s.mu.Lock()
	defer s.mu.Unlock()

	var m ArenaMetrics
	m.NumChunks = len(s.chunks)
	for _, c := range s.chunks {
		m.Capacity += c.cap
		m.SizeInUse += int(c.cursor.Load())
	}
	if cur := s.cur.Load(); cur != nil {
		m.CurrentChunkSize = cur.cap
	}
	return m
}
