package sched

import "vos/internal/spinlock"

// sleepQueue is a singly-linked list ordered by ascending WakeTime,
// supplemental from original_source/src/sched/mod.rs's timer-driven wake
// list: timed sleep is a separate concern from a sleeping-mutex layer,
// so Nanosleep-style wake-ups stay in scope here. Tick pops
// every entry whose WakeTime has passed and hands it back to the ready
// list.
type sleepQueue struct {
	lock spinlock.SpinLockPure
	head *TaskInfo
}

var sleeping sleepQueue

// Sleep removes t from the ready list if present, marks it interruptibly
// asleep, and links it into the sleep queue so a future Tick(now) with
// now >= wakeTime moves it back to Ready.
func Sleep(t *TaskInfo, wakeTime uint64) {
	RemoveTask(t)

	t.Status = StatusInterruptibleSleep
	t.WakeTime = wakeTime

	sleeping.lock.Lock()
	defer sleeping.lock.Unlock()

	if sleeping.head == nil || wakeTime < sleeping.head.WakeTime {
		t.SleepNext = sleeping.head
		sleeping.head = t
		return
	}
	prev := sleeping.head
	for prev.SleepNext != nil && prev.SleepNext.WakeTime <= wakeTime {
		prev = prev.SleepNext
	}
	t.SleepNext = prev.SleepNext
	prev.SleepNext = t
}

// Tick wakes every sleeping task whose WakeTime has passed and requeues
// it onto the ready list. A real boot wires this to the timer-tick hook
// alongside Schedule; it is also the only way a test can deterministically
// observe a sleep's expiry.
func Tick(now uint64) {
	sleeping.lock.Lock()
	var woken []*TaskInfo
	for sleeping.head != nil && sleeping.head.WakeTime <= now {
		t := sleeping.head
		sleeping.head = t.SleepNext
		t.SleepNext = nil
		woken = append(woken, t)
	}
	sleeping.lock.Unlock()

	for _, t := range woken {
		AddTask(t)
	}
}

// resetSleepQueueForTest clears global sleep-queue state between tests.
func resetSleepQueueForTest() {
	sleeping.lock = spinlock.SpinLockPure{}
	sleeping.head = nil
}
