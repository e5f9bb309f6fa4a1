package blink_test

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zakarumych/blink-alloc/pkg/blink"
)

func TestArenaCacheCapsIdleArenas(t *testing.T) {
	const capacity = 4
	c := blink.NewArenaCache(capacity, blink.WithInitialChunkSize(32))

	borrowed := make([]*blink.LocalArena, 8)
	for i := range borrowed {
		borrowed[i] = c.Borrow()
		_, err := blink.New(borrowed[i], i)
		require.NoError(t, err)
	}

	for _, a := range borrowed {
		c.Return(a)
	}

	assert.LessOrEqual(t, c.IdleLen(), capacity)

	reborrowed := 0
	for i := 0; i < capacity; i++ {
		a := c.Borrow()
		if a != nil {
			reborrowed++
		}
	}
	assert.Equal(t, capacity, reborrowed)
}

func TestArenaCacheBorrowReturnsAReadyToUseArena(t *testing.T) {
	c := blink.NewArenaCache(2, blink.WithInitialChunkSize(64))

	a := c.Borrow()
	p, err := blink.New(a, 7)
	require.NoError(t, err)
	assert.Equal(t, 7, *p)

	c.Return(a)
	assert.Equal(t, 0, a.Metrics().SizeInUse)
}

func TestStripedCacheRoutesByKey(t *testing.T) {
	s := blink.NewStripedCache[string](4, 2, blink.WithInitialChunkSize(32))

	keys := []string{"alpha", "beta", "gamma", "delta"}
	for _, k := range keys {
		a := s.Borrow(k)
		_, err := blink.New(a, k)
		require.NoError(t, err)
		s.Return(k, a)
	}

	// Every key should be able to borrow without error, whichever shard it
	// lands on.
	for i := 0; i < 100; i++ {
		k := strconv.Itoa(i)
		a := s.Borrow(k)
		require.NotNil(t, a)
		s.Return(k, a)
	}
}
