package blink_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zakarumych/blink-alloc/pkg/blink"
)

func TestLocalProxyAllocatesAndGrows(t *testing.T) {
	s := blink.NewSyncArena(blink.WithInitialChunkSize(64))
	p := s.LocalProxy()

	v, err := blink.New(p, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, *v)

	type big struct{ bytes [512]byte }
	bp, err := blink.New(p, big{})
	require.NoError(t, err)
	assert.NotNil(t, bp)
}

func TestLocalProxyDoesNotPanicOnRepeatedLeases(t *testing.T) {
	s := blink.NewSyncArena(blink.WithInitialChunkSize(8))
	p := s.LocalProxy()

	for i := 0; i < 200; i++ {
		_, err := blink.New(p, [16]byte{})
		require.NoError(t, err)
	}
}
