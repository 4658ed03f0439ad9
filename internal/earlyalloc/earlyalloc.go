// Package earlyalloc is the bump allocator that hands out page-aligned
// memory from the linker-defined heap before the buddy allocator
// (internal/page) is up. Grounded on original_source/src/mm/early.rs.
//
// There is exactly one cursor, it never frees, and it is only ever valid
// to call before secondary harts are released (no locking — matching the
// original's single-threaded-at-boot assumption).
package earlyalloc

import "fmt"

// Allocator is the bump cursor. The zero value is not usable; call Init.
type Allocator struct {
	base    uintptr
	cursor  uintptr
	limit   uintptr // 0 means unbounded (real boot heap is effectively open-ended)
	retired bool
}

// Init sets the cursor to heapBase. limit, if non-zero, is the region's
// size in bytes from heapBase (used by tests; a real boot image leaves it 0 and trusts the linker
// script to have reserved enough space before the next carve-out).
func (a *Allocator) Init(heapBase uintptr, limit uintptr) {
	a.base = heapBase
	a.cursor = heapBase
	a.limit = limit
	a.retired = false
}

// Retire marks the allocator unusable. Called once the buddy allocator is
// initialized; any further AllocBytes call panics, since once the buddy
// allocator is initialised any further call is a usage error.
func (a *Allocator) Retire() { a.retired = true }

func alignUp(v uintptr, align uintptr) uintptr {
	if align == 0 {
		return v
	}
	return (v + align - 1) &^ (align - 1)
}

// AllocBytesAligned reserves n bytes aligned to 1<<order and returns the
// aligned start address, advancing the cursor. Returns 0 if a bound was
// set and the allocation would exceed it.
func (a *Allocator) AllocBytesAligned(n uintptr, order uint) uintptr {
	if a.retired {
		panic("earlyalloc: AllocBytesAligned called after Retire")
	}
	align := uintptr(1) << order
	start := alignUp(a.cursor, align)
	end := start + n
	if a.limit != 0 && end > a.base+a.limit {
		return 0
	}
	a.cursor = end
	return start
}

// AllocBytes reserves n bytes at byte granularity (no alignment applied).
func (a *Allocator) AllocBytes(n uintptr) uintptr {
	return a.AllocBytesAligned(n, 0)
}

// Stats reports bytes reserved so far and bytes remaining under the bound,
// supplemental from original_source/src/mm/early.rs's own debug helper.
// Remaining is -1 when the allocator is unbounded.
type Stats struct {
	Base      uintptr
	Reserved  uintptr
	Remaining int64
}

func (a *Allocator) Stats() Stats {
	remaining := int64(-1)
	if a.limit != 0 {
		remaining = int64(a.base + a.limit - a.cursor)
	}
	return Stats{Base: a.base, Reserved: a.cursor - a.base, Remaining: remaining}
}

func (s Stats) String() string {
	if s.Remaining < 0 {
		return fmt.Sprintf("earlyalloc: base=%#x reserved=%d remaining=unbounded", s.Base, s.Reserved)
	}
	return fmt.Sprintf("earlyalloc: base=%#x reserved=%d remaining=%d", s.Base, s.Reserved, s.Remaining)
}
