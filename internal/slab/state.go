package slab

import "sync/atomic"

// State is the bootstrap state machine the allocator walks through before
// kmalloc-style caches are fully usable, grounded on
// original_source/src/mm/kmem/mod.rs's
// `SlabState` enum.
type State uint32

const (
	// Down: no kmem_cache_node storage exists yet.
	Down State = iota
	// Partial: the cache that manages KmemCacheNode-equivalent
	// bookkeeping exists (our first Cache.Create call).
	Partial
	// PartialNode: per-size kmalloc caches can bootstrap their own node
	// storage.
	PartialNode
	// Up: caches are usable but not yet published.
	Up
	// Full: the sysfs-like publication step has run.
	Full
)

func (s State) String() string {
	switch s {
	case Down:
		return "down"
	case Partial:
		return "partial"
	case PartialNode:
		return "partial-node"
	case Up:
		return "up"
	case Full:
		return "full"
	default:
		return "unknown"
	}
}

var globalState atomic.Uint32

// CurrentState reports the allocator's global bootstrap state.
func CurrentState() State { return State(globalState.Load()) }

// advanceState moves the global state forward only (never backward);
// used by Create to mirror the original's one-way bootstrap walk without
// requiring callers to hand-allocate the node cache themselves.
func advanceState(to State) {
	for {
		cur := State(globalState.Load())
		if to <= cur {
			return
		}
		if globalState.CompareAndSwap(uint32(cur), uint32(to)) {
			return
		}
	}
}

// Publish advances the allocator to Full, the supplemental analogue of the
// original's sysfs registration step: after that publication step the
// allocator reaches Full. It is a process-wide,
// one-shot transition — there is nothing per-cache left to do here since
// this port has no sysfs equivalent, but the state is still observable so
// callers (and tests) can assert on bring-up order.
func Publish() { advanceState(Full) }
