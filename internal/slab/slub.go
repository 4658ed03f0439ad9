package slab

import (
	"sync/atomic"
	"unsafe"
)

// slub is a single slab's descriptor. The original
// packs this directly over the Page descriptor's own memory ("same
// memory area reinterprets as a slab descriptor"); this port keeps it as
// an independently allocated Go struct instead, since true struct-union
// aliasing across the page/slab package boundary would require
// internal/page to expose its private Page layout, which it deliberately
// doesn't. A slab's base address is the key connecting the two: see
// Cache.registry.
//
// The original further packs inuse-count and a frozen bit into the same
// 64-bit word as the slab-local freelist head (budgeted at 16|47|1
// bits). This port keeps inuse/frozen in one CAS-able word (counters)
// but keeps the freelist head as its own atomic pointer-sized word
// (localFreeList) rather than squeezing a real 64-bit address into 47
// bits — object addresses here are ordinary Go heap/process addresses,
// not physical addresses bounded to fit that budget.
type slub struct {
	base          uintptr
	next          *slub // intrusive link for partial chains
	localFreeList atomic.Uintptr
	counters      atomic.Uint64 // packed: inUse:32 | frozen:1
}

const frozenBit = uint64(1) << 32

func packCounters(inUse uint32, frozen bool) uint64 {
	w := uint64(inUse)
	if frozen {
		w |= frozenBit
	}
	return w
}

func unpackCounters(w uint64) (inUse uint32, frozen bool) {
	return uint32(w & 0xFFFF_FFFF), w&frozenBit != 0
}

func (s *slub) inUse() uint32 {
	iu, _ := unpackCounters(s.counters.Load())
	return iu
}

func (s *slub) isFrozen() bool {
	_, fr := unpackCounters(s.counters.Load())
	return fr
}

func (s *slub) setFrozen(v bool) {
	for {
		w := s.counters.Load()
		iu, _ := unpackCounters(w)
		nw := packCounters(iu, v)
		if s.counters.CompareAndSwap(w, nw) {
			return
		}
	}
}

// takeFreelist atomically claims the slab's entire local freelist chain,
// handing its head to the caller, promoting it to the per-CPU free list.
func (s *slub) takeFreelist() (head uintptr, ok bool) {
	head = s.localFreeList.Swap(0)
	return head, head != 0
}

// incUse bumps the in-use counter, returning the new value.
func (s *slub) incUse() uint32 {
	for {
		w := s.counters.Load()
		iu, fr := unpackCounters(w)
		nw := packCounters(iu+1, fr)
		if s.counters.CompareAndSwap(w, nw) {
			return iu + 1
		}
	}
}

// decUse drops the in-use counter, returning the new value.
func (s *slub) decUse() uint32 {
	for {
		w := s.counters.Load()
		iu, fr := unpackCounters(w)
		if iu == 0 {
			return 0
		}
		nw := packCounters(iu-1, fr)
		if s.counters.CompareAndSwap(w, nw) {
			return iu - 1
		}
	}
}

// pushFreelist CAS-pushes obj onto the slab's own freelist, chaining
// through the object's first word.
func (s *slub) pushFreelist(obj uintptr) {
	for {
		head := s.localFreeList.Load()
		writeNextPtr(obj, head)
		if s.localFreeList.CompareAndSwap(head, obj) {
			return
		}
	}
}

func readNextPtr(addr uintptr) uintptr {
	return *(*uintptr)(unsafe.Pointer(addr)) //nolint:govet
}

func writeNextPtr(addr uintptr, next uintptr) {
	*(*uintptr)(unsafe.Pointer(addr)) = next //nolint:govet
}
