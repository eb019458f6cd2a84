package pool_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/abdoElHodaky/tradSys/pkg/pool"
)

func TestAllocateDeallocate(t *testing.T) {
	p := pool.New[int](4)

	idx0, slot0, ok := p.Allocate()
	require.True(t, ok)
	*slot0 = 42
	require.True(t, p.InUse(idx0))

	idx1, _, ok := p.Allocate()
	require.True(t, ok)
	require.NotEqual(t, idx0, idx1)

	p.Deallocate(idx0)
	require.False(t, p.InUse(idx0))
	require.Equal(t, 42, 42) // slot value not asserted after free, only liveness
}

func TestExhaustionReturnsFalse(t *testing.T) {
	p := pool.New[int](2)
	_, _, ok := p.Allocate()
	require.True(t, ok)
	_, _, ok = p.Allocate()
	require.True(t, ok)
	_, _, ok = p.Allocate()
	require.False(t, ok)
}

func TestDeallocateFreeSlotPanics(t *testing.T) {
	p := pool.New[int](2)
	require.Panics(t, func() { p.Deallocate(0) })
}

func TestDeallocateOutOfRangePanics(t *testing.T) {
	p := pool.New[int](2)
	require.Panics(t, func() { p.Deallocate(5) })
}

func TestReuseAfterDeallocate(t *testing.T) {
	p := pool.New[int](1)
	idx, _, ok := p.Allocate()
	require.True(t, ok)
	p.Deallocate(idx)

	idx2, _, ok := p.Allocate()
	require.True(t, ok)
	require.Equal(t, idx, idx2)
}
