// Package sched implements the global FIFO ready list and the
// schedule() algorithm, grounded on
// original_source/src/sched/mod.rs (TaskInfo, ready_list,
// schedule/switch_to_task) and wired to the already-built preempt
// counter and spin-lock packages. File layout follows the same
// core-types / allocator-wiring / algorithm / tests split used by
// internal/page, internal/slab and internal/paging.
package sched

import (
	"vos/internal/sched/preempt"
	"vos/internal/trap"
)

// TaskStatus is a task's run state.
type TaskStatus uint8

const (
	StatusReady TaskStatus = iota
	StatusRunning
	StatusInterruptibleSleep
	StatusUninterruptibleSleep
	StatusDeadZombie
	StatusDead
)

func (s TaskStatus) String() string {
	switch s {
	case StatusReady:
		return "Ready"
	case StatusRunning:
		return "Running"
	case StatusInterruptibleSleep:
		return "InterruptibleSleep"
	case StatusUninterruptibleSleep:
		return "UninterruptibleSleep"
	case StatusDeadZombie:
		return "DeadZombie"
	case StatusDead:
		return "Dead"
	default:
		return "unknown"
	}
}

// TaskType distinguishes kernel threads from user tasks; the scheduler
// uses it to pick sstatus.SPP on dispatch and the realtime/normal
// time-slice band.
type TaskType uint8

const (
	TypeKernel TaskType = iota
	TypeUser
)

// Priority bands: ordinary tasks occupy -10..10, realtime
// tasks 51..60. Nothing in between is valid.
const (
	MinNormalPriority = -10
	MaxNormalPriority = 10
	MinRealtimePriority = 51
	MaxRealtimePriority = 60
)

// IsRealtime reports whether p falls in the realtime priority band.
func IsRealtime(p int8) bool { return p >= MinRealtimePriority && p <= MaxRealtimePriority }

// TaskInfo is one schedulable entity: a kernel thread or a user task.
// Next/Prev link it into the global ready list; a task not currently on
// that list has both nil.
type TaskInfo struct {
	Next, Prev *TaskInfo

	Tid    uint64
	Status TaskStatus
	Kind   TaskType

	// UserInKernel is set while a user task is executing kernel code on
	// its behalf (a syscall in flight) — this bit matters for the
	// scheduler's SPP decision independent of Kind.
	UserInKernel bool

	StaticPriority int8
	SchedPriority  int8
	ExitCode       int32

	Frame   trap.TaskTrapFrame
	Preempt preempt.Counter

	// IsIdle marks a per-CPU idle task; ready_list_add_task refuses to
	// enqueue one.
	IsIdle bool

	// CPU is the id of the hart this task is current running on, valid
	// only while Status == StatusRunning.
	CPU uint32

	// WakeTime is the mtime tick value at which Tick wakes this task,
	// valid only while linked into the sleep queue (SleepNext != nil
	// or it is the queue head) with Status == StatusInterruptibleSleep.
	WakeTime uint64
	SleepNext *TaskInfo
}

// NewTask builds a task in Ready state. It does not wire the preempt
// counter's current-task provider; sched.Init does that once.
func NewTask(tid uint64, kind TaskType, priority int8) *TaskInfo {
	return &TaskInfo{
		Tid:            tid,
		Status:         StatusReady,
		Kind:           kind,
		StaticPriority: priority,
		SchedPriority:  priority,
	}
}
