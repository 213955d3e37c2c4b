package heap

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArena_AllocAligned(t *testing.T) {
	a := NewArena(1 << 16)

	p1, err := a.Alloc(3, 1)
	require.NoError(t, err)
	assert.NotZero(t, p1)

	p2, err := a.Alloc(16, 8)
	require.NoError(t, err)
	assert.Zero(t, p2%8)
	assert.GreaterOrEqual(t, p2, p1+3)

	assert.Equal(t, uint32(19), a.Live())
}

func TestArena_ViewAliases(t *testing.T) {
	a := NewArena(1 << 16)
	ptr, err := a.Alloc(8, 4)
	require.NoError(t, err)

	view, err := a.View(ptr, 8)
	require.NoError(t, err)
	copy(view, []byte{1, 2, 3, 4, 5, 6, 7, 8})

	got, err := a.Read(ptr+2, 4)
	require.NoError(t, err)
	assert.Equal(t, []byte{3, 4, 5, 6}, got)

	require.NoError(t, a.Write(ptr, []byte{9}))
	assert.Equal(t, byte(9), view[0])
}

func TestArena_Exhaustion(t *testing.T) {
	a := NewArena(100)

	ptr, err := a.Alloc(60, 4)
	require.NoError(t, err)

	_, err = a.Alloc(60, 4)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrOutOfMemory))

	a.Free(ptr, 60, 4)
	assert.Zero(t, a.Live())

	_, err = a.Alloc(100, 4)
	require.NoError(t, err)
}

func TestArena_LargeAllocationGetsOwnSlab(t *testing.T) {
	a := NewArena(1 << 20)
	small, err := a.Alloc(16, 4)
	require.NoError(t, err)
	big, err := a.Alloc(defaultSlabSize*2, 4)
	require.NoError(t, err)

	view, err := a.View(big, defaultSlabSize*2)
	require.NoError(t, err)
	assert.Len(t, view, defaultSlabSize*2)

	_, err = a.View(small, 16)
	require.NoError(t, err)
}

func TestArena_OutOfBounds(t *testing.T) {
	a := NewArena(1 << 16)
	_, err := a.View(0, 4)
	assert.True(t, errors.Is(err, ErrOutOfBounds))

	ptr, err := a.Alloc(4, 4)
	require.NoError(t, err)
	_, err = a.View(ptr, a.Size()+1)
	assert.True(t, errors.Is(err, ErrOutOfBounds))
}

func TestArena_Concurrent(t *testing.T) {
	a := NewArena(1 << 20)
	var wg sync.WaitGroup
	ptrs := make([]uint32, 64)
	for i := range ptrs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p, err := a.Alloc(32, 4)
			if err == nil {
				ptrs[i] = p
			}
		}(i)
	}
	wg.Wait()

	seen := make(map[uint32]bool)
	for _, p := range ptrs {
		require.NotZero(t, p)
		require.False(t, seen[p], "duplicate region %d", p)
		seen[p] = true
	}
	assert.Equal(t, uint32(64*32), a.Live())
}
