package paging_test

import (
	"runtime"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vos/internal/earlyalloc"
	"vos/internal/paging"
)

func newEarlyBackedAllocator(t *testing.T, size uintptr) {
	t.Helper()
	backing := make([]byte, size+4096)
	base := uintptr(unsafe.Pointer(&backing[0]))
	aligned := (base + 4095) &^ 4095

	var a earlyalloc.Allocator
	a.Init(aligned, size)
	paging.SetEarlyAllocator(&a)
	t.Cleanup(func() { runtime.KeepAlive(backing) })
}

func TestDecodePTEFlagsReportsPermissionBits(t *testing.T) {
	entry := uint64(paging.BitValid | paging.BitRead | paging.BitWrite | paging.BitAccess)
	d := paging.DecodePTEFlags(entry)
	assert.True(t, d.Valid)
	assert.True(t, d.Read)
	assert.True(t, d.Write)
	assert.False(t, d.Execute)
	assert.True(t, d.Access)
	assert.False(t, d.Dirty)
}

// Map a 4 KiB page in Sv39 with
// read/write bits, then virt_to_phys on an address inside that page
// returns the expected physical address with the page offset preserved.
func TestSv39MapAndVirtToPhysRoundTrip(t *testing.T) {
	newEarlyBackedAllocator(t, 1<<20)

	root := paging.CreateRootTable(paging.Sv39)
	require.NotNil(t, root)

	const vAddr = uintptr(0x1000 * 0x1000) // aligned to 4 KiB, arbitrary VPNs
	const pAddr = uintptr(0x2000 * 0x1000)

	root.Map(vAddr, pAddr, uint32(paging.BitReadWrite|paging.BitAccess|paging.BitDirty), 0)

	got, ok := root.VirtToPhys(vAddr + 0x123)
	require.True(t, ok)
	assert.Equal(t, pAddr+0x123, got)
}

func TestSv39UnmapClearsTranslation(t *testing.T) {
	newEarlyBackedAllocator(t, 1<<20)

	root := paging.CreateRootTable(paging.Sv39)
	require.NotNil(t, root)

	const vAddr = uintptr(0x4000 * 0x1000)
	const pAddr = uintptr(0x5000 * 0x1000)
	root.Map(vAddr, pAddr, uint32(paging.BitReadWrite|paging.BitAccess), 0)

	_, ok := root.VirtToPhys(vAddr)
	require.True(t, ok)

	changed := root.Unmap(vAddr)
	assert.True(t, changed)

	_, ok = root.VirtToPhys(vAddr)
	assert.False(t, ok)
}

func TestVirtToPhysWithoutAccessBitFaults(t *testing.T) {
	newEarlyBackedAllocator(t, 1<<20)

	root := paging.CreateRootTable(paging.Sv39)
	require.NotNil(t, root)

	const vAddr = uintptr(0x6000 * 0x1000)
	const pAddr = uintptr(0x7000 * 0x1000)
	// No Access bit set: simulates a swapped-out page.
	root.Map(vAddr, pAddr, uint32(paging.BitReadWrite), 0)

	_, ok := root.VirtToPhys(vAddr)
	assert.False(t, ok)
}

func TestBareModeIsIdentity(t *testing.T) {
	root := paging.CreateRootTable(paging.Bare)
	require.NotNil(t, root)

	got, ok := root.VirtToPhys(0xDEADBEEF)
	assert.True(t, ok)
	assert.Equal(t, uintptr(0xDEADBEEF), got)
	assert.False(t, root.Unmap(0xDEADBEEF))
}

func TestProtectChangesPermissionsWithoutMovingPPN(t *testing.T) {
	newEarlyBackedAllocator(t, 1<<20)

	root := paging.CreateRootTable(paging.Sv39)
	require.NotNil(t, root)

	const vAddr = uintptr(0x8000 * 0x1000)
	const pAddr = uintptr(0x9000 * 0x1000)
	root.Map(vAddr, pAddr, uint32(paging.BitReadWrite|paging.BitAccess), 0)

	ok := root.Protect(vAddr, uint32(paging.BitReadExecute|paging.BitAccess))
	require.True(t, ok)

	got, ok := root.VirtToPhys(vAddr)
	require.True(t, ok)
	assert.Equal(t, pAddr, got)
}

func TestFreeUnusedEntryReclaimsEmptySubTable(t *testing.T) {
	newEarlyBackedAllocator(t, 1<<20)

	root := paging.CreateRootTable(paging.Sv39)
	require.NotNil(t, root)

	const vAddr = uintptr(0xA000 * 0x1000)
	const pAddr = uintptr(0xB000 * 0x1000)
	root.Map(vAddr, pAddr, uint32(paging.BitReadWrite|paging.BitAccess), 0)
	require.True(t, root.Unmap(vAddr))

	changed := root.FreeUnusedEntry()
	assert.True(t, changed)
}
