package paging

import (
	"unsafe"

	"vos/internal/earlyalloc"
	"vos/internal/page"
	"vos/internal/riscv"
)

// Before the buddy allocator is up, table pages come from the early bump
// allocator; EnablePageAllocator switches the source over exactly once,
// matching the original's "must be called only once after the buddy
// allocator system had been inited and before any MMU API is called".
var (
	earlyAlloc  *earlyalloc.Allocator
	zone        *page.Zone
	allocPageFn func() uintptr = earlyAllocPage
	freePageFn  func(uintptr)  = earlyFreePage
)

// SetEarlyAllocator installs the bump allocator this package draws table
// pages from until EnablePageAllocator is called.
func SetEarlyAllocator(a *earlyalloc.Allocator) { earlyAlloc = a }

func earlyAllocPage() uintptr {
	return earlyAlloc.AllocBytesAligned(riscv.PageSize, riscv.PageShift)
}

func earlyFreePage(uintptr) {} // no-op: bump allocator never frees

func kernelAllocPage() uintptr { return zone.AllocPages(0) }
func kernelFreePage(addr uintptr) { zone.FreePages(addr, 0) }

// AllocPage reserves one page for page-table use via whichever source is
// currently active.
func AllocPage() uintptr { return allocPageFn() }

// FreePage releases a page-table page back to its source.
func FreePage(addr uintptr) { freePageFn(addr) }

// AllocZeroedPage allocates a page and zeroes it word-at-a-time — every
// newly materialized page-table level must start all-zero (all entries
// invalid).
func AllocZeroedPage() uintptr {
	addr := AllocPage()
	if addr != 0 {
		zeroPage(addr)
	}
	return addr
}

func zeroPage(addr uintptr) {
	words := (*[riscv.PageSize / 8]uint64)(unsafe.Pointer(addr)) //nolint:govet
	for i := range words {
		words[i] = 0
	}
}

// EnablePageAllocator switches table-page sourcing from the early bump
// allocator to the buddy allocator.
func EnablePageAllocator(z *page.Zone) {
	zone = z
	allocPageFn = kernelAllocPage
	freePageFn = kernelFreePage
}
