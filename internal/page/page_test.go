package page_test

import (
	"runtime"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vos/internal/earlyalloc"
	"vos/internal/page"
)

func TestPageSizeInvariant(t *testing.T) {
	var p page.Page
	size := unsafe.Sizeof(p)
	assert.Zero(t, size%32, "Page size %d must be a multiple of 32", size)
}

func TestDebugFlagsDecodesPackedWord(t *testing.T) {
	var p page.Page
	p.SetCustomFlags(0xAB)
	p.SetInternalFlags(0x01)
	p.SetZoneID(2)

	d := p.DebugFlags()
	assert.EqualValues(t, 0xAB, d.Custom)
	assert.EqualValues(t, 0x01, d.Internal)
	assert.EqualValues(t, 2, d.ZoneID)
	assert.Zero(t, d.Reserved)
}

func newZone(t *testing.T, totalBytes uintptr) *page.Zone {
	t.Helper()
	top := uintptr(page.PageSize) << (page.MaxOrder - 1)
	backing := make([]byte, totalBytes+2*top)
	base := uintptr(unsafe.Pointer(&backing[0]))
	// Align base up to the top-order block size and give Init one extra
	// top-order block at the front of the region: Init carves its
	// bookkeeping from there and starts the allocatable range at the next
	// top-order boundary, leaving exactly totalBytes allocatable.
	aligned := (base + top - 1) &^ (top - 1)

	var early earlyalloc.Allocator
	early.Init(aligned, uintptr(len(backing))-(aligned-base))

	var z page.Zone
	z.Init(&early, []page.Region{{Start: aligned, Size: totalBytes + top}})
	// backing's address was handed out via raw pointer arithmetic, which
	// severs the normal slice-aliasing reference the GC would otherwise
	// track; keep it reachable for the life of the test.
	t.Cleanup(func() { runtime.KeepAlive(backing) })
	return &z
}

// alloc_pages(order) followed by free_pages(addr, order) leaves the
// zone's free-block counts exactly as they were before the alloc.
func TestAllocFreeRoundTrip(t *testing.T) {
	z := newZone(t, uintptr(page.PageSize)<<(page.MaxOrder-1)*4)

	before := z.Stats()

	addr := z.AllocPages(2)
	require.NotZero(t, addr)
	assert.Zero(t, addr%(uintptr(page.PageSize)<<2), "block must be naturally aligned")

	z.FreePages(addr, 2)
	after := z.Stats()

	assert.Equal(t, before, after)
}

func TestAllocSplitsLargerBlock(t *testing.T) {
	z := newZone(t, uintptr(page.PageSize)<<(page.MaxOrder-1))

	before := z.Stats()
	require.Equal(t, 1, before.FreeBlocksByOrder[page.MaxOrder-1])

	addr := z.AllocPages(0)
	require.NotZero(t, addr)

	after := z.Stats()
	assert.Zero(t, after.FreeBlocksByOrder[page.MaxOrder-1])
	// Splitting order (MaxOrder-1) down to 0 leaves exactly one free
	// block at every intermediate order.
	for o := 0; o < page.MaxOrder-1; o++ {
		assert.Equal(t, 1, after.FreeBlocksByOrder[o], "order %d", o)
	}

	z.FreePages(addr, 0)
	final := z.Stats()
	assert.Equal(t, before, final)
}

func TestAllocExhaustionReturnsZero(t *testing.T) {
	z := newZone(t, uintptr(page.PageSize)<<(page.MaxOrder-1))

	first := z.AllocPages(page.MaxOrder - 1)
	require.NotZero(t, first)

	second := z.AllocPages(page.MaxOrder - 1)
	assert.Zero(t, second)

	z.FreePages(first, page.MaxOrder-1)
}

func TestAllocZeroedPageInvokesZeroFill(t *testing.T) {
	z := newZone(t, uintptr(page.PageSize)<<(page.MaxOrder-1))

	var zeroed []uintptr
	z.ZeroFill = func(addr uintptr, size uintptr) {
		zeroed = append(zeroed, addr)
		assert.EqualValues(t, page.PageSize, size)
	}

	addr := z.AllocZeroedPage()
	require.NotZero(t, addr)
	require.Len(t, zeroed, 1)
	assert.Equal(t, addr, zeroed[0])
}

func TestPageToAddressRoundTrip(t *testing.T) {
	z := newZone(t, uintptr(page.PageSize)<<(page.MaxOrder-1))

	addr := z.AllocPages(0)
	require.NotZero(t, addr)

	p := z.AddressToPage(addr)
	assert.Equal(t, addr, z.PageToAddress(p))
}

func TestMultiZoneRegionWarns(t *testing.T) {
	top := uintptr(page.PageSize) << (page.MaxOrder - 1)
	backing := make([]byte, top*8)
	base := uintptr(unsafe.Pointer(&backing[0]))
	aligned := (base + top - 1) &^ (top - 1)

	var early earlyalloc.Allocator
	early.Init(aligned, uintptr(len(backing))-(aligned-base))

	var z page.Zone
	z.Init(&early, []page.Region{
		{Start: aligned, Size: top * 2},
		{Start: aligned + top*4, Size: top * 2},
	})
	t.Cleanup(func() { runtime.KeepAlive(backing) })
	assert.True(t, z.MultiZoneWarning)
}
