// Package spinlock implements the kernel's only blocking primitive: a pure
// spin-lock plus the preempt/IRQ-aware wrappers built on top of it. There is
// no sleeping mutex in this core — all kernel-side blocking is
// spin-based — grounded on
// original_source/src/base/sync/spin_lock.rs.
package spinlock

import (
	"sync/atomic"

	"vos/internal/sched/preempt"
)

// SpinLockPure is the bare primitive: lock/unlock only, no preemption or
// IRQ side effects. Acquire uses a compare-and-swap spin loop; Go's
// sync.Mutex is deliberately not used here because the kernel core must
// control exactly what memory-ordering semantics are issued at acquire and
// release (documented acquire/release barriers, matching the rw/r/w fence
// predicates the original issues via its barrier! macros).
type SpinLockPure struct {
	locked atomic.Bool
}

// Lock spins until the lock is acquired.
func (l *SpinLockPure) Lock() {
	for !l.TryLock() {
		// busy-wait; a real bring-up would issue a `pause`-equivalent hint
		// here (RISC-V has none standardized at Zihintpause-absent ISAs).
	}
}

// TryLock attempts to acquire the lock once. Go's CompareAndSwap does not
// fail spuriously, so a false result means the lock was held; callers
// decide whether to retry or skip.
func (l *SpinLockPure) TryLock() bool {
	return l.locked.CompareAndSwap(false, true)
}

// Unlock releases the lock. Panics if the lock was not held, matching the
// assert-on-contract-violation policy this kernel core follows
// throughout.
func (l *SpinLockPure) Unlock() {
	if !l.locked.CompareAndSwap(true, false) {
		panic("spinlock: unlock of unlocked SpinLockPure")
	}
}

// Guard releases its SpinLockPure when dropped via Release (defer guard.Release()).
type Guard struct {
	lock *SpinLockPure
}

// Release unlocks the guarded lock. Safe to call at most once.
func (g Guard) Release() { g.lock.Unlock() }

// LockGuarded acquires l and returns a guard for deferred release.
func LockGuarded(l *SpinLockPure) Guard {
	l.Lock()
	return Guard{lock: l}
}

// RawSpinLock acquires l with preemption disabled around the critical
// section. The returned Guard's Release only unlocks; ReleaseRaw unlocks
// and re-enables preemption, possibly invoking the scheduler if a
// reschedule became pending while preemption was off.
func RawSpinLock(l *SpinLockPure) Guard {
	preempt.Disable()
	l.Lock()
	return Guard{lock: l}
}

// ReleaseRaw unlocks l and re-enables preemption, undoing RawSpinLock.
func ReleaseRaw(l *SpinLockPure) {
	l.Unlock()
	preempt.Enable()
}

// IRQGuard additionally restores (or forces-disabled) the IRQ-enable state.
type IRQGuard struct {
	lock       *SpinLockPure
	savedFlags uint64
	restore    bool
}

// RawSpinLockIRQ disables IRQs unconditionally, then preemption, then
// acquires l. Release (via ReleaseRawIRQ) re-enables IRQs unconditionally.
func RawSpinLockIRQ(l *SpinLockPure, disableIRQ, enableIRQ func()) IRQGuard {
	disableIRQ()
	preempt.Disable()
	l.Lock()
	return IRQGuard{lock: l}
}

// ReleaseRawIRQ unlocks l, re-enables preemption, then unconditionally
// re-enables IRQs.
func ReleaseRawIRQ(l *SpinLockPure, enableIRQ func()) {
	l.Unlock()
	preempt.Enable()
	enableIRQ()
}

// RawSpinLockIRQSave saves the current IRQ-enabled flag, disables IRQs and
// preemption, then acquires l. Use with ReleaseRawIRQRestore, which
// restores (rather than unconditionally sets) the IRQ state.
func RawSpinLockIRQSave(l *SpinLockPure, readFlagsAndDisable func() uint64) IRQGuard {
	flags := readFlagsAndDisable()
	preempt.Disable()
	l.Lock()
	return IRQGuard{lock: l, savedFlags: flags, restore: true}
}

// ReleaseRawIRQRestore unlocks l, re-enables preemption, then restores the
// IRQ-enable flag captured by RawSpinLockIRQSave.
func ReleaseRawIRQRestore(g IRQGuard, restoreFlags func(uint64)) {
	g.lock.Unlock()
	preempt.Enable()
	if g.restore {
		restoreFlags(g.savedFlags)
	}
}
