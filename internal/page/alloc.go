package page

import "vos/internal/spinlock"

// frameIndex returns the page-frame index within the zone for addr.
func (z *Zone) frameIndex(addr uintptr) uint32 {
	return uint32((addr - z.base) / PageSize)
}

// PageToAddress returns the physical address of the page frame p
// describes.
func (z *Zone) PageToAddress(p *Page) uintptr {
	idx := uint32(p - &z.pages[0])
	return z.base + uintptr(idx)*PageSize
}

// AddressToPage returns the descriptor for the frame containing addr.
func (z *Zone) AddressToPage(addr uintptr) *Page {
	return &z.pages[z.frameIndex(addr)]
}

// buddyIndex returns the frame index of order's buddy for the block
// starting at frame idx.
func buddyIndex(idx uint32, order uint) uint32 {
	return idx ^ (1 << order)
}

// split repeatedly halves a block of order `have` down to `want`,
// pushing each freed upper half onto its own order's free list and
// toggling that order's parity bit, exactly mirroring the original's
// expand_areas step.
func (z *Zone) split(p *Page, have, want uint) *Page {
	idx := uint32(p - &z.pages[0])
	for have > want {
		have--
		buddy := buddyIndex(idx, have)
		if have < MaxOrder-1 {
			z.areas[have].toggleBit(pairIndex(idx, have))
		}
		z.areas[have].push(&z.pages[buddy])
	}
	return p
}

// pairIndex maps a block's starting frame index to its pair index within
// an order's bitmap (one bit per buddy pair: pair = idx / (2 * 2^order)).
func pairIndex(idx uint32, order uint) uint32 {
	return idx / (2 << order)
}

// AllocPages removes and returns the address of a free block of the
// requested order, splitting a larger block if no exact match is free.
// Returns 0 if the zone has no block large enough.
func (z *Zone) AllocPages(order uint) uintptr {
	if order >= MaxOrder {
		panic("page: order out of range")
	}
	g := spinlock.LockGuarded(&z.lock)
	defer g.Release()

	for o := order; o < MaxOrder; o++ {
		p := z.areas[o].head
		if p == nil {
			continue
		}
		idx := uint32(p - &z.pages[0])
		z.areas[o].remove(p)
		if o < MaxOrder-1 {
			z.areas[o].toggleBit(pairIndex(idx, o))
		}
		p = z.split(p, o, order)
		p.RefCount = 1
		return z.PageToAddress(p)
	}
	return 0
}

// GetFreePages is the descriptor-returning sibling of AllocPages: callers
// that want the Page pointer rather than the
// address (e.g. the slab allocator claiming backing pages) use this.
func (z *Zone) GetFreePages(order uint) *Page {
	addr := z.AllocPages(order)
	if addr == 0 {
		return nil
	}
	return z.AddressToPage(addr)
}

// AllocZeroedPage allocates a single page (order 0) and zeroes it via
// ZeroFill if one is installed, zeroing using word-sized stores.
func (z *Zone) AllocZeroedPage() uintptr {
	addr := z.AllocPages(0)
	if addr == 0 {
		return 0
	}
	if z.ZeroFill != nil {
		z.ZeroFill(addr, PageSize)
	}
	return addr
}

// FreePages returns a previously allocated block to the zone, merging
// with its buddy up through orders while the XOR-parity bit indicates
// both halves are now free.
func (z *Zone) FreePages(addr uintptr, order uint) {
	if order >= MaxOrder {
		panic("page: order out of range")
	}
	g := spinlock.LockGuarded(&z.lock)
	defer g.Release()

	idx := z.frameIndex(addr)
	p := &z.pages[idx]
	p.RefCount = 0

	for order < MaxOrder-1 {
		pair := pairIndex(idx, order)
		bothFree := z.areas[order].toggleBit(pair)
		if !bothFree {
			break
		}
		buddyIdx := buddyIndex(idx, order)
		buddy := &z.pages[buddyIdx]
		if !buddy.isFree() {
			// Buddy isn't actually on this order's free list (e.g. it
			// was itself already merged upward); undo the toggle and
			// stop — this matches the original's conservative merge
			// guard.
			z.areas[order].toggleBit(pair)
			break
		}
		z.areas[order].remove(buddy)
		if buddyIdx < idx {
			idx = buddyIdx
		}
		order++
		p = &z.pages[idx]
	}
	z.areas[order].push(p)
}

// Stats reports the free-block count at each order, supplemental for
// a /proc/buddyinfo-style diagnostic.
type Stats struct {
	FreeBlocksByOrder [MaxOrder]int
	NumPages          uint32
}

func (z *Zone) Stats() Stats {
	g := spinlock.LockGuarded(&z.lock)
	defer g.Release()
	var s Stats
	s.NumPages = z.numPages
	for i := range z.areas {
		s.FreeBlocksByOrder[i] = z.areas[i].count()
	}
	return s
}
