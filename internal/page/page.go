// Package page implements the binary-buddy physical page allocator.
// Grounded on original_source/src/mm/page.rs, with an explicit zone lock
// that file's draft lacks.
//
// Addresses are plain uintptr arithmetic throughout, exactly as the
// original treats physical addresses: this package never dereferences
// zone memory itself (that only happens once a caller has a direct or
// identity mapping, which is internal/paging's job). The one place real
// bytes must be touched — zeroing a freshly allocated page — is done
// through an injectable hook so this package stays testable hosted
// without a real physical-memory backing.
package page

import (
	"vos/internal/bitfield"
	"vos/internal/earlyalloc"
	"vos/internal/riscv"
	"vos/internal/spinlock"
)

const (
	// MaxOrder is the number of buddy orders, 0..9.
	MaxOrder = 10

	PageSize = riscv.PageSize

	// topOrderPages is the size in pages of the largest buddy block.
	topOrderPages = 1 << (MaxOrder - 1)
)

// Page is the dense per-frame descriptor. Its size must be a
// multiple of 32 bytes with at least 28 bytes of private area ahead of the
// flags word; see TestPageSizeInvariant.
type Page struct {
	next     *Page
	prev     *Page
	RefCount int32
	_        [8]byte // private area reserved for slab/vmalloc reinterpretation
	flags    uint32
}

// Packed flags layout: [custom 8 | internal 8 | zone-id 8 | reserved 8].
const (
	flagsCustomShift   = 24
	flagsInternalShift = 16
	flagsZoneIDShift   = 8
	flagsReservedShift = 0
	flagsByteMask      = 0xFF
)

func (p *Page) CustomFlags() uint8   { return uint8(p.flags >> flagsCustomShift) }
func (p *Page) InternalFlags() uint8 { return uint8(p.flags >> flagsInternalShift) }
func (p *Page) ZoneID() uint8        { return uint8(p.flags >> flagsZoneIDShift) }

func (p *Page) SetCustomFlags(v uint8) {
	p.flags = p.flags&^(flagsByteMask<<flagsCustomShift) | uint32(v)<<flagsCustomShift
}
func (p *Page) SetInternalFlags(v uint8) {
	p.flags = p.flags&^(flagsByteMask<<flagsInternalShift) | uint32(v)<<flagsInternalShift
}
func (p *Page) SetZoneID(v uint8) {
	p.flags = p.flags&^(flagsByteMask<<flagsZoneIDShift) | uint32(v)<<flagsZoneIDShift
}

// Internal-flags bits (the "internal 8" byte): allocator bookkeeping that
// is not meaningful to callers.
const (
	internalFree uint8 = 1 << 0 // on a buddy free list (vs. allocated/owned)
)

// DecodedFlags is a named-field view of the packed flags word, for debug
// dumps only — the hot alloc/free path above never builds one of these.
type DecodedFlags struct {
	Reserved uint8 `bitfield:"8"`
	ZoneID   uint8 `bitfield:"8"`
	Internal uint8 `bitfield:"8"`
	Custom   uint8 `bitfield:"8"`
}

// DebugFlags decodes the flags word into named fields via the reflection
// based bitfield packer, for debug dumps/test assertions where field
// names read better than shift constants.
func (p *Page) DebugFlags() DecodedFlags {
	var d DecodedFlags
	if err := bitfield.Unpack(uint64(p.flags), &d); err != nil {
		panic(err)
	}
	return d
}

func (p *Page) isFree() bool  { return p.InternalFlags()&internalFree != 0 }
func (p *Page) setFree(v bool) {
	cur := p.InternalFlags()
	if v {
		p.SetInternalFlags(cur | internalFree)
	} else {
		p.SetInternalFlags(cur &^ internalFree)
	}
}

// freeArea is one order's free list head plus its buddy-parity bitmap.
type freeArea struct {
	head *Page
	// bitmap[i] bit j records the XOR-parity of buddy-pair j at this
	// order: toggled on each alloc/free, merge triggers when the bit
	// becomes 0 (Linux-style). The top order carries no bitmap (no
	// buddy to merge with).
	bitmap []byte
}

func (a *freeArea) push(p *Page) {
	p.next = a.head
	p.prev = nil
	if a.head != nil {
		a.head.prev = p
	}
	a.head = p
	p.setFree(true)
}

func (a *freeArea) popHead() *Page {
	p := a.head
	if p == nil {
		return nil
	}
	a.head = p.next
	if a.head != nil {
		a.head.prev = nil
	}
	p.next, p.prev = nil, nil
	p.setFree(false)
	return p
}

func (a *freeArea) remove(p *Page) {
	if p.prev != nil {
		p.prev.next = p.next
	} else {
		a.head = p.next
	}
	if p.next != nil {
		p.next.prev = p.prev
	}
	p.next, p.prev = nil, nil
	p.setFree(false)
}

func (a *freeArea) toggleBit(pairIdx uint32) (nowZero bool) {
	if a.bitmap == nil {
		return false
	}
	byteIdx := pairIdx / 8
	bit := byte(1) << (pairIdx % 8)
	a.bitmap[byteIdx] ^= bit
	return a.bitmap[byteIdx]&bit == 0
}

func (a *freeArea) count() int {
	n := 0
	for p := a.head; p != nil; p = p.next {
		n++
	}
	return n
}

// Region is a (start, size) physical memory range as reported by the
// boundary device-tree layer.
type Region struct {
	Start uintptr
	Size  uintptr
}

// Zone owns one contiguous physical range: only one zone is currently
// supported (Init warns if more than one region is handed in, and uses
// only the first).
type Zone struct {
	lock spinlock.SpinLockPure

	base     uintptr // first allocatable page-aligned address
	numPages uint32
	pages    []Page
	areas    [MaxOrder]freeArea

	// ZeroFill, if set, is invoked by AllocZeroedPage to zero the page at
	// the given address with word-sized stores. Left nil
	// in a freestanding build backed by a real direct map; tests install
	// a fake-memory recorder.
	ZeroFill func(addr uintptr, size uintptr)

	// MultiZoneWarning is set true by Init if more than one region was
	// supplied; this allocator-only package does not log it.
	MultiZoneWarning bool
}

func alignDown(v, align uintptr) uintptr { return v &^ (align - 1) }
func alignUp(v, align uintptr) uintptr   { return (v + align - 1) &^ (align - 1) }

// Init carves the zone's bookkeeping (per-order bitmaps, dense Page array)
// out of the early bump allocator, then seeds the top-order free list with
// every maximally aligned, maximally sized block.
func (z *Zone) Init(early *earlyalloc.Allocator, regions []Region) {
	if len(regions) == 0 {
		panic("page: Zone.Init called with no memory regions")
	}
	if len(regions) > 1 {
		z.MultiZoneWarning = true
	}
	region := regions[0]

	topBlockBytes := uintptr(PageSize) << (MaxOrder - 1)
	zoneEnd := alignDown(region.Start+region.Size, topBlockBytes)
	if zoneEnd <= region.Start {
		panic("page: zone region too small for a single top-order block")
	}

	// (a) per-order bitmaps: order i needs ceil(pages / (2*2^i)) bits,
	// for i in [0, MaxOrder-1); the top order needs none.
	// We don't yet know `pages` (it depends on where the allocatable
	// region starts, which depends on the bitmaps' own size) so follow
	// the original's approach: size the bookkeeping against the region
	// as if it were entirely allocatable, which only overestimates by
	// the (tiny) bookkeeping area itself.
	approxPages := uint32((zoneEnd - region.Start) / PageSize)

	for i := 0; i < MaxOrder-1; i++ {
		pairCount := (uint64(approxPages) + uint64(2<<uint(i)) - 1) / uint64(2<<uint(i))
		nbytes := (pairCount + 7) / 8
		if nbytes == 0 {
			nbytes = 1
		}
		addr := early.AllocBytesAligned(uintptr(nbytes), 0)
		z.areas[i].bitmap = unsafeBytesAt(addr, uintptr(nbytes))
	}

	// (b) dense Page descriptor array.
	pageArrayAddr := early.AllocBytesAligned(uintptr(approxPages)*pageStructSize, 3)
	z.pages = unsafePagesAt(pageArrayAddr, approxPages)

	// (c) allocatable region, rounded up to the top-order block size.
	allocStart := early.AllocBytesAligned(0, 20) // bump to a safely far-aligned point
	allocStart = alignUp(allocStart, topBlockBytes)
	if allocStart >= zoneEnd {
		panic("page: no room left for allocatable region after bookkeeping")
	}
	z.base = allocStart
	z.numPages = uint32((zoneEnd - allocStart) / PageSize)
	if z.numPages > approxPages {
		z.numPages = approxPages
	}
	z.pages = z.pages[:z.numPages]

	for i := range z.pages {
		z.pages[i] = Page{}
	}

	// Seed top-order free list: every maximally aligned, maximally sized
	// block becomes one free entry.
	for idx := uint32(0); idx+topOrderPages <= z.numPages; idx += topOrderPages {
		z.areas[MaxOrder-1].push(&z.pages[idx])
	}
}

// unsafeBytesAt and unsafePagesAt materialize Go slices over bump-allocated
// addresses. In a real freestanding build these addresses are identity- or
// direct-mapped physical memory; this package only needs a []byte/[]Page
// view to manipulate bookkeeping it itself owns. Kept in page.go (rather
// than split into a separate unsafe-helpers file) because they exist
// solely to serve Zone.Init.
func unsafeBytesAt(addr uintptr, n uintptr) []byte {
	return (*[1 << 30]byte)(ptrFromUintptr(addr))[:n:n]
}

func unsafePagesAt(addr uintptr, n uint32) []Page {
	return (*[1 << 26]Page)(ptrFromUintptr(addr))[:n:n]
}
