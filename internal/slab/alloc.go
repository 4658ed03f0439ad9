package slab

import (
	"vos/internal/riscv"
	"vos/internal/spinlock"
)

// Alloc implements kmem_cache_alloc's fast/slow path. cpuID
// selects which hart's per-CPU descriptor to use — callers are expected
// to call this with preemption disabled and their own hart id, exactly
// as the slow path's "disable IRQs to stabilise per-CPU state" note
// requires; this package does not re-derive the current hart itself (no
// import of the cpuinfo/sched packages, to keep this leaf
// allocator free of the dependency-inversion machinery internal/sched
// needs).
func (c *Cache) Alloc(cpuID int) uintptr {
	cc := &c.cpu[cpuID]

	for {
		head := cc.freeList.Load()
		if head == 0 || cc.slab == nil {
			return c.allocSlow(cpuID)
		}
		next := readNextPtr(head)
		if cc.freeList.CompareAndSwap(head, next) {
			cc.slab.incUse()
			c.objectsAllocated.Add(1)
			return head
		}
	}
}

func (c *Cache) allocSlow(cpuID int) uintptr {
	cc := &c.cpu[cpuID]

	if cc.slab != nil {
		if head, ok := cc.slab.takeFreelist(); ok {
			cc.freeList.Store(head)
			return c.Alloc(cpuID)
		}
	}

	if cc.partial != nil {
		s := cc.partial
		cc.partial = s.next
		s.next = nil
		cc.slab = s
		if head, ok := s.takeFreelist(); ok {
			cc.freeList.Store(head)
		}
		return c.Alloc(cpuID)
	}

	if s := c.popNodePartial(); s != nil {
		s.setFrozen(true)
		cc.slab = s
		if head, ok := s.takeFreelist(); ok {
			cc.freeList.Store(head)
		}
		return c.Alloc(cpuID)
	}

	s := c.newSlab()
	if s == nil {
		return 0
	}
	s.setFrozen(true)
	cc.slab = s
	head, _ := s.takeFreelist()
	cc.freeList.Store(head)
	return c.Alloc(cpuID)
}

func (c *Cache) popNodePartial() *slub {
	g := spinlock.LockGuarded(&c.node.lock)
	defer g.Release()
	s := c.node.partial
	if s == nil {
		return nil
	}
	c.node.partial = s.next
	s.next = nil
	c.node.nrPartial--
	return s
}

func (c *Cache) pushNodePartial(s *slub) {
	g := spinlock.LockGuarded(&c.node.lock)
	defer g.Release()
	s.next = c.node.partial
	c.node.partial = s
	c.node.nrPartial++
}

// newSlab asks the buddy allocator for 2^pageOrder pages and threads
// their objects into a singly linked free list.
func (c *Cache) newSlab() *slub {
	addr := c.zone.AllocPages(uint(c.pageOrder))
	if addr == 0 {
		return nil
	}

	n := c.objsPerSlab
	for i := uint32(0); i+1 < n; i++ {
		cur := addr + uintptr(i)*uintptr(c.size)
		next := addr + uintptr(i+1)*uintptr(c.size)
		writeNextPtr(cur, next)
	}
	writeNextPtr(addr+uintptr(n-1)*uintptr(c.size), 0)

	s := &slub{base: addr}
	s.localFreeList.Store(addr)
	s.counters.Store(packCounters(0, false))

	g := spinlock.LockGuarded(&c.registryMu)
	c.registry[addr] = s
	g.Release()

	c.slabsActive.Add(1)
	return s
}

func (c *Cache) slabBase(obj uintptr) uintptr {
	blockSize := uintptr(1) << (c.pageOrder + riscv.PageShift)
	return obj &^ (blockSize - 1)
}

func (c *Cache) slabFor(obj uintptr) *slub {
	base := c.slabBase(obj)
	g := spinlock.LockGuarded(&c.registryMu)
	defer g.Release()
	return c.registry[base]
}

// Free implements the free path: objects
// belonging to the CPU's own active slab go back on the lockless
// per-CPU list; everything else goes on the owning slab's internal
// freelist, draining the slab back to the buddy allocator once its last
// object is freed.
func (c *Cache) Free(cpuID int, obj uintptr) {
	cc := &c.cpu[cpuID]
	s := c.slabFor(obj)
	if s == nil {
		panic("slab: Free of pointer not owned by this cache")
	}

	if cc.slab == s {
		for {
			head := cc.freeList.Load()
			writeNextPtr(obj, head)
			if cc.freeList.CompareAndSwap(head, obj) {
				s.decUse()
				c.objectsFreed.Add(1)
				return
			}
		}
	}

	s.pushFreelist(obj)
	c.objectsFreed.Add(1)
	if s.decUse() == 0 {
		c.drainEmptySlab(s)
	}
}

// drainEmptySlab returns a fully-freed slab's pages to the buddy
// allocator, first unlinking it from the node partial list if it was
// sitting there.
func (c *Cache) drainEmptySlab(s *slub) {
	c.removeFromNodePartial(s)

	g := spinlock.LockGuarded(&c.registryMu)
	delete(c.registry, s.base)
	g.Release()

	c.zone.FreePages(s.base, uint(c.pageOrder))
	c.slabsActive.Add(-1)
}

func (c *Cache) removeFromNodePartial(s *slub) {
	g := spinlock.LockGuarded(&c.node.lock)
	defer g.Release()
	if c.node.partial == s {
		c.node.partial = s.next
		s.next = nil
		c.node.nrPartial--
		return
	}
	prev := c.node.partial
	for prev != nil && prev.next != s {
		prev = prev.next
	}
	if prev != nil {
		prev.next = s.next
		s.next = nil
		c.node.nrPartial--
	}
}

// DeactivateCPUSlab gives up the CPU's current active slab. A slab with
// no objects in use is returned to the buddy allocator; otherwise it
// goes onto the CPU's own partial chain or, once that chain holds
// cpuPartialSlabs slabs, is unfrozen and moved to the node's partial
// list.
// Supplemental: needed for a CPU to voluntarily give up a slab it's no
// longer actively allocating from (e.g. on a context switch away).
func (c *Cache) DeactivateCPUSlab(cpuID int) {
	cc := &c.cpu[cpuID]
	if cc.slab == nil {
		return
	}
	s := cc.slab
	cc.slab = nil
	if head := cc.freeList.Swap(0); head != 0 {
		// fold any objects still resident on the cpu-local list back
		// into the slab's own freelist before parking it.
		tail := head
		for readNextPtr(tail) != 0 {
			tail = readNextPtr(tail)
		}
		for {
			slabHead := s.localFreeList.Load()
			writeNextPtr(tail, slabHead)
			if s.localFreeList.CompareAndSwap(slabHead, head) {
				break
			}
		}
	}

	if s.inUse() == 0 {
		c.drainEmptySlab(s)
		return
	}

	count := uint32(0)
	for p := cc.partial; p != nil; p = p.next {
		count++
	}
	if count < c.cpuPartialSlabs {
		s.next = cc.partial
		cc.partial = s
		return
	}

	s.setFrozen(false)
	c.pushNodePartial(s)
}

// Destroy releases a cache. Any slab still holding live objects is a
// caller bug: programmer errors are asserts here, not recoverable
// errors.
func (c *Cache) Destroy() {
	for i := range c.cpu {
		if c.cpu[i].slab != nil || c.cpu[i].partial != nil {
			panic("slab: Destroy called with outstanding active slabs")
		}
	}
	if c.node.partial != nil {
		panic("slab: Destroy called with outstanding node-partial slabs")
	}
}

// CacheStats reports point-in-time cache occupancy, supplemental from
// original_source/src/mm/kmem/mod.rs for a /proc/slabinfo-style
// diagnostic: layout facts plus live object/slab counts, surfaced by
// cmd/harness's status report and exercised directly by tests.
type CacheStats struct {
	ObjectSize  uint32
	Size        uint32
	Align       uint32
	ObjsPerSlab uint32
	PageOrder   uint32
	NodePartial uint32

	ObjectsAllocated uint64 // objects currently outstanding (alloc - free)
	SlabsActive      int64
}

func (c *Cache) Stats() CacheStats {
	g := spinlock.LockGuarded(&c.node.lock)
	defer g.Release()
	return CacheStats{
		ObjectSize:       c.ObjectSize,
		Size:             c.size,
		Align:            c.align,
		ObjsPerSlab:      c.objsPerSlab,
		PageOrder:        c.pageOrder,
		NodePartial:      c.node.nrPartial,
		ObjectsAllocated: c.objectsAllocated.Load() - c.objectsFreed.Load(),
		SlabsActive:      c.slabsActive.Load(),
	}
}
