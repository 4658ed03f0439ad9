package earlyalloc_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vos/internal/earlyalloc"
)

func TestAllocBytesAlignedAdvancesAndAligns(t *testing.T) {
	var a earlyalloc.Allocator
	a.Init(0x1001, 1<<20)

	p1 := a.AllocBytesAligned(8, 0) // order 0 => 1-byte "alignment" (none)
	require.Equal(t, uintptr(0x1001), p1)

	p2 := a.AllocBytesAligned(100, 12) // page-aligned (order 12 == 4096)
	assert.Zero(t, p2%4096)
	assert.Greater(t, p2, p1)
}

func TestAllocBytesAlignedRespectsLimit(t *testing.T) {
	var a earlyalloc.Allocator
	a.Init(0, 32) // 16 + 8 bytes fit under the bound; a further 16 do not

	p := a.AllocBytesAligned(16, 0)
	require.Equal(t, uintptr(0), p)

	p2 := a.AllocBytesAligned(8, 0)
	require.NotEqual(t, uintptr(0), p2)
	assert.Equal(t, uintptr(0), a.AllocBytesAligned(16, 0))
}

func TestRetireStopsFurtherAllocs(t *testing.T) {
	var a earlyalloc.Allocator
	a.Init(0x2000, 0)
	a.Retire()
	assert.Panics(t, func() { a.AllocBytes(8) })
}

func TestStatsTracksReservedBytes(t *testing.T) {
	var a earlyalloc.Allocator
	a.Init(0x4000, 0)
	a.AllocBytes(10)
	s := a.Stats()
	assert.Equal(t, uintptr(0x4000), s.Base)
	assert.GreaterOrEqual(t, s.Reserved, uintptr(10))
	assert.Equal(t, int64(-1), s.Remaining)
}
