// Package slab implements a SLUB-style object-cache allocator layered on
// the binary buddy allocator. Grounded on
// original_source/src/mm/kmem/mod.rs and its slub submodule: cache
// sizing (calc_order/calc_slab_order/order_objects/get_order,
// set_cpu_partial) is carried over near line-for-line since it is pure
// arithmetic; the per-CPU fast path, node partial list and bootstrap
// state machine are reworked into Go idiom (see package-level doc
// comments on state.go and slub.go for the specific deviations).
package slab

import (
	"sync/atomic"

	"vos/internal/page"
	"vos/internal/riscv"
	"vos/internal/spinlock"
)

// MaxCPU bounds the per-CPU descriptor array. Nothing here fixes a
// hart count (that lives in internal/cpuinfo instead); eight is
// a generous bound for the QEMU virt machine configurations this kernel
// targets and keeps Cache a fixed-size, allocation-free struct.
const MaxCPU = 8

// Flags to pass to Create, mirroring slab_flags in the original.
const (
	HWCacheAlign    uint32 = 1 << 13
	CacheDMA        uint32 = 1 << 14
	CacheDMA32      uint32 = 1 << 15
	ReclaimAccount  uint32 = 1 << 17
)

const (
	archKmallocMinAlign  = 8 // align_of::<u64>()
	pageAllocCostlyOrder = 3 // PAGE_ALLOC_COSTLY_ORDER, matches internal/riscv-adjacent convention
	pageAllocMaxOrder    = page.MaxOrder - 1
	maxObjsPerPage       = 1<<16 - 1
	minPartial           = 5
	maxPartial           = 10
)

// Cache is a kmem_cache: a set of same-sized object slots backed by
// buddy-allocated slabs.
type Cache struct {
	Name       string
	ObjectSize uint32 // caller-requested size
	size       uint32 // padded/aligned size actually used
	align      uint32
	objsPerSlab uint32
	pageOrder  uint32
	flags      uint32
	allocFlags uint32

	cpuPartialSlabs  uint32
	nodePartialSlabs uint32

	objectsAllocated atomic.Uint64 // supplemental counters for CacheStats
	objectsFreed     atomic.Uint64
	slabsActive      atomic.Int64

	zone *page.Zone

	cpu  [MaxCPU]cpuCache
	node cacheNode

	registryMu spinlock.SpinLockPure
	registry   map[uintptr]*slub // slab base address -> descriptor
}

type cpuCache struct {
	freeList atomic.Uintptr // lockless Treiber-stack head of free objects
	slab     *slub          // active slab this CPU is allocating from
	partial  *slub          // frozen slabs this CPU owns but isn't actively using
}

type cacheNode struct {
	partial   *slub
	lock      spinlock.SpinLockPure
	nrPartial uint32
}

// Create builds and sizes a new cache (kmem_cache_create /
// kmem_cache_open / calc_sizes). zone supplies the backing pages.
func Create(zone *page.Zone, name string, objectSize uint32, flags uint32) *Cache {
	c := &Cache{
		Name:       name,
		ObjectSize: objectSize,
		flags:      flags,
		zone:       zone,
		registry:   make(map[uintptr]*slub),
	}

	align := archAlign(objectSize)
	c.align = calcAlignment(flags, align, objectSize)
	if !c.calcSizes() {
		return nil
	}

	c.nodePartialSlabs = clampU32(ilog2(c.size)/2, minPartial, maxPartial)
	c.setCPUPartial()

	if CurrentState() == Down {
		advanceState(Partial)
	} else if CurrentState() == Partial {
		advanceState(Up)
	}

	return c
}

func archAlign(size uint32) uint32 {
	if isPowerOfTwo(size) && size > archKmallocMinAlign {
		return size
	}
	return archKmallocMinAlign
}

func isPowerOfTwo(v uint32) bool { return v != 0 && v&(v-1) == 0 }

// calcAlignment figures out the alignment of objects given flags, a
// baseline alignment and the object size: the HWCACHE_ALIGN flag rounds
// alignment up toward the line size (default 64).
func calcAlignment(flags, align, size uint32) uint32 {
	if flags&HWCacheAlign != 0 {
		rAlign := uint32(64)
		for size <= rAlign/2 {
			rAlign /= 2
		}
		if rAlign > align {
			align = rAlign
		}
	}
	return alignUpPow2(align, 8) // align up to pointer size
}

func alignUpPow2(v, align uint32) uint32 {
	return (v + align - 1) &^ (align - 1)
}

// calcSizes pads the object size and picks the slab page order.
func (c *Cache) calcSizes() bool {
	size := alignUpPow2(c.ObjectSize, 8)
	size = alignUpBy(size, c.align)
	c.size = size

	order, ok := calcOrder(size)
	if !ok {
		return false
	}
	c.pageOrder = order
	c.objsPerSlab = orderObjects(order, size)
	return c.objsPerSlab != 0
}

func alignUpBy(v, align uint32) uint32 {
	if align == 0 {
		return v
	}
	return ((v + align - 1) / align) * align
}

// calcOrder picks the smallest order that keeps enough objects per slab
// without excessive waste: tries fraction 16->8->4 at decreasing
// min-object counts, then falls back to single-object slabs.
func calcOrder(size uint32) (uint32, bool) {
	const nrCPUs = MaxCPU
	minObjects := (32 - leadingZeros32(nrCPUs)) * 4
	maxObjects := orderObjects(pageAllocCostlyOrder, size)
	if minObjects > maxObjects {
		minObjects = maxObjects
	}

	for minObjects > 1 {
		for fraction := uint32(16); fraction >= 4; fraction /= 2 {
			order := calcSlabOrder(size, minObjects, pageAllocCostlyOrder, fraction)
			if order <= pageAllocCostlyOrder {
				return order, true
			}
		}
		minObjects--
	}

	if order := calcSlabOrder(size, 1, pageAllocCostlyOrder, 1); order <= pageAllocCostlyOrder {
		return order, true
	}
	if order := calcSlabOrder(size, 1, pageAllocMaxOrder, 1); order < pageAllocMaxOrder {
		return order, true
	}
	return 0, false
}

func calcSlabOrder(size, minObjects, maxOrder, fractLeftover uint32) uint32 {
	if orderObjects(0, size) > maxObjsPerPage {
		return getOrder(size*maxObjsPerPage) - 1
	}

	order := getOrder(size * minObjects)
	for order <= maxOrder {
		slabSize := uint32(page.PageSize) << order
		rem := slabSize % size
		if rem <= slabSize/fractLeftover {
			break
		}
		order++
	}
	return order
}

func orderObjects(order, size uint32) uint32 {
	return (uint32(page.PageSize) << order) / size
}

func getOrder(size uint32) uint32 {
	size--
	size >>= riscv.PageShift
	return 32 - leadingZeros32(size)
}

// setCPUPartial sizes the per-CPU partial chain cap: 6 slabs
// if object size >= page, 24 if >= 1 KiB, 52 if >= 256 B, else 120.
func (c *Cache) setCPUPartial() {
	switch {
	case c.size >= uint32(page.PageSize):
		c.cpuPartialSlabs = 6
	case c.size >= 1024:
		c.cpuPartialSlabs = 24
	case c.size >= 256:
		c.cpuPartialSlabs = 52
	default:
		c.cpuPartialSlabs = 120
	}
}

func clampU32(v, lo, hi uint32) uint32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func ilog2(v uint32) uint32 {
	if v == 0 {
		return 0
	}
	return 31 - leadingZeros32(v)
}

func leadingZeros32(v uint32) uint32 {
	if v == 0 {
		return 32
	}
	n := uint32(0)
	for v&0x8000_0000 == 0 {
		v <<= 1
		n++
	}
	return n
}
