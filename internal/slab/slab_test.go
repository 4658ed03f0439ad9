package slab_test

import (
	"runtime"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vos/internal/earlyalloc"
	"vos/internal/page"
	"vos/internal/slab"
)

func newZone(t *testing.T, orders uint) *page.Zone {
	t.Helper()
	top := uintptr(page.PageSize) << (page.MaxOrder - 1)
	backing := make([]byte, top*(1<<orders)+1<<20)
	base := uintptr(unsafe.Pointer(&backing[0]))
	aligned := (base + top - 1) &^ (top - 1)

	var early earlyalloc.Allocator
	early.Init(aligned, uintptr(len(backing))-(aligned-base))

	var z page.Zone
	z.Init(&early, []page.Region{{Start: aligned, Size: top * (1 << orders)}})
	t.Cleanup(func() { runtime.KeepAlive(backing) })
	return &z
}

// A cache with object size 64 and HWCACHE_ALIGN set: three
// allocations yield pointers with pairwise distances that are multiples
// of 64 and each aligned to 64.
func TestThreeAllocationsAreEvenlySpacedAndAligned(t *testing.T) {
	z := newZone(t, 2)
	c := slab.Create(z, "test-64", 64, slab.HWCacheAlign)
	require.NotNil(t, c)

	a := c.Alloc(0)
	b := c.Alloc(0)
	d := c.Alloc(0)
	require.NotZero(t, a)
	require.NotZero(t, b)
	require.NotZero(t, d)

	for _, p := range []uintptr{a, b, d} {
		assert.Zero(t, p%64, "pointer %#x must be 64-aligned", p)
	}
	assert.Zero(t, diff(a, b)%64)
	assert.Zero(t, diff(b, d)%64)
	assert.Zero(t, diff(a, d)%64)
}

func diff(a, b uintptr) uintptr {
	if a > b {
		return a - b
	}
	return b - a
}

// Slab isolation: kmem_cache_alloc never returns the same
// object to two live callers; freeing then re-allocating returns a valid
// region.
func TestAllocNeverAliasesLiveObjects(t *testing.T) {
	z := newZone(t, 2)
	c := slab.Create(z, "test-32", 32, 0)
	require.NotNil(t, c)

	seen := map[uintptr]bool{}
	const n = 64
	ptrs := make([]uintptr, 0, n)
	for i := 0; i < n; i++ {
		p := c.Alloc(0)
		require.NotZero(t, p)
		require.False(t, seen[p], "object %#x allocated twice while live", p)
		seen[p] = true
		ptrs = append(ptrs, p)
	}

	c.Free(0, ptrs[0])
	reused := c.Alloc(0)
	require.NotZero(t, reused)
	assert.Equal(t, ptrs[0], reused, "freed object should be the next one reused by the lockless cpu freelist")
}

// Slab layout invariant: for a cache with object size s,
// all returned pointers on a slab are at offsets 0, s, 2s, ... from the
// slab base.
func TestObjectOffsetsAreMultiplesOfObjectSize(t *testing.T) {
	z := newZone(t, 2)
	c := slab.Create(z, "test-48", 48, 0)
	require.NotNil(t, c)

	first := c.Alloc(0)
	require.NotZero(t, first)
	stats := c.Stats()

	for i := 0; i < 5; i++ {
		p := c.Alloc(0)
		require.NotZero(t, p)
		off := diff(p, first)
		assert.Zero(t, off%uintptr(stats.Size))
	}
}

func TestCacheStatsTracksLiveObjectsAndSlabs(t *testing.T) {
	z := newZone(t, 2)
	c := slab.Create(z, "test-stats", 32, 0)
	require.NotNil(t, c)

	assert.Zero(t, c.Stats().ObjectsAllocated)
	assert.Zero(t, c.Stats().SlabsActive)

	a := c.Alloc(0)
	require.NotZero(t, a)
	b := c.Alloc(0)
	require.NotZero(t, b)

	stats := c.Stats()
	assert.EqualValues(t, 2, stats.ObjectsAllocated)
	assert.EqualValues(t, 1, stats.SlabsActive)

	c.Free(0, a)
	assert.EqualValues(t, 1, c.Stats().ObjectsAllocated)
}

func TestFreeThenAllocReturnsValidRegion(t *testing.T) {
	z := newZone(t, 2)
	c := slab.Create(z, "test-16", 16, 0)
	require.NotNil(t, c)

	p := c.Alloc(0)
	require.NotZero(t, p)
	c.Free(0, p)
	p2 := c.Alloc(0)
	require.NotZero(t, p2)
}

func TestBootstrapStateAdvancesOnCreate(t *testing.T) {
	z := newZone(t, 2)
	before := slab.CurrentState()
	c := slab.Create(z, "bootstrap-probe", 24, 0)
	require.NotNil(t, c)
	assert.GreaterOrEqual(t, slab.CurrentState(), before)

	slab.Publish()
	assert.Equal(t, slab.Full, slab.CurrentState())
}
