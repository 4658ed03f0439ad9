package sched

import "vos/internal/spinlock"

// readyList is the global FIFO run queue: a nil-terminated doubly-linked
// list with head and tail pointers, protected by its own lock. It is not
// circular and has no sentinel node.
type readyList struct {
	lock spinlock.SpinLockPure
	head *TaskInfo // first queued task, nil when the list is empty
	tail *TaskInfo
}

var global readyList

// AddTask appends t to the tail of the ready list. Idle tasks are never
// enqueued: they run only
// when the list is empty.
func AddTask(t *TaskInfo) {
	if t.IsIdle {
		return
	}
	global.lock.Lock()
	defer global.lock.Unlock()

	t.Next = nil
	t.Prev = global.tail
	if global.tail != nil {
		global.tail.Next = t
	} else {
		global.head = t
	}
	global.tail = t
	t.Status = StatusReady
}

// popReadyHead removes and returns the ready list's head, or nil if empty.
func popReadyHead() *TaskInfo {
	global.lock.Lock()
	defer global.lock.Unlock()

	t := global.head
	if t == nil {
		return nil
	}
	global.head = t.Next
	if global.head != nil {
		global.head.Prev = nil
	} else {
		global.tail = nil
	}
	t.Next, t.Prev = nil, nil
	return t
}

// RemoveTask unlinks t from the ready list if present (used when a task
// transitions to a sleep or dead state while still queued). Reports
// whether it was actually found and removed.
func RemoveTask(t *TaskInfo) bool {
	global.lock.Lock()
	defer global.lock.Unlock()

	if t.Next == nil && t.Prev == nil && global.head != t {
		return false
	}
	if t.Prev != nil {
		t.Prev.Next = t.Next
	} else if global.head == t {
		global.head = t.Next
	}
	if t.Next != nil {
		t.Next.Prev = t.Prev
	} else if global.tail == t {
		global.tail = t.Prev
	}
	t.Next, t.Prev = nil, nil
	return true
}

// ReadyLen reports the number of tasks currently queued (diagnostic /
// test use only; not on any hot path).
func ReadyLen() int {
	global.lock.Lock()
	defer global.lock.Unlock()
	n := 0
	for t := global.head; t != nil; t = t.Next {
		n++
	}
	return n
}

// resetReadyListForTest clears global queue state between tests.
func resetReadyListForTest() {
	global.lock = spinlock.SpinLockPure{}
	global.head, global.tail = nil, nil
}
