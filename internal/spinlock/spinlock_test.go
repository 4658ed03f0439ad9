package spinlock_test

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"

	"vos/internal/sched/preempt"
	"vos/internal/spinlock"
)

func init() {
	// The spinlock package's RawSpinLock helpers drive the preempt
	// counter; give them a harmless single-goroutine-per-P provider so
	// tests that don't care about preemption semantics still work.
	var c preempt.Counter
	preempt.SetCurrentProvider(func() *preempt.Counter { return &c })
}

// With N concurrent would-be holders, at any instant at most one
// goroutine observes SpinLockPure in the locked state.
func TestMutualExclusion(t *testing.T) {
	var lock spinlock.SpinLockPure
	var inCritical atomic.Int32
	var maxObserved atomic.Int32
	var wg sync.WaitGroup

	const goroutines = 32
	const iterations = 200

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < iterations; j++ {
				lock.Lock()
				n := inCritical.Add(1)
				for {
					m := maxObserved.Load()
					if n <= m || maxObserved.CompareAndSwap(m, n) {
						break
					}
				}
				inCritical.Add(-1)
				lock.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, maxObserved.Load(), int32(1))
}

func TestUnlockOfUnlockedPanics(t *testing.T) {
	var lock spinlock.SpinLockPure
	assert.Panics(t, func() { lock.Unlock() })
}

func TestGuardedLockReleases(t *testing.T) {
	var lock spinlock.SpinLockPure
	g := spinlock.LockGuarded(&lock)
	assert.False(t, lock.TryLock())
	g.Release()
	assert.True(t, lock.TryLock())
	lock.Unlock()
}
