package sched

import (
	"vos/internal/sched/preempt"
	"vos/internal/trap"
)

// bootCPU is set by Init; used by the provider closures below since
// preempt's current-task accessor is not itself cpu-aware (it answers
// "the task running wherever this call happens to execute").
var bootCPU uint32

// Init wires this package into preempt's current-task/schedule hooks and
// trap's timer-tick hook, breaking the import cycle the way
// internal/spinlock already does for preempt. Call once at boot after
// the first idle task is registered.
func Init(cpu uint32) {
	bootCPU = cpu
	preempt.SetCurrentProvider(func() *preempt.Counter {
		if t := currentTask[bootCPU]; t != nil {
			return &t.Preempt
		}
		return &preempt.Counter{}
	})
	preempt.SetScheduleFunc(func() { Schedule(bootCPU) })
	trap.TimerTick = func() {
		c := currentTask[bootCPU]
		if c != nil {
			c.Preempt.SetNeedResched()
		}
		if preempt.Preemptible() {
			Schedule(bootCPU)
		}
	}
	// KillTask is the stub side of "terminate the faulting task,
	// reschedule": mark the current task a zombie and immediately hand
	// the hart to whatever runs next. Nothing here reaps the zombie or
	// reports the exit status to a parent.
	trap.KillTask = func(frame *trap.TaskTrapFrame) {
		if c := currentTask[bootCPU]; c != nil {
			c.Status = StatusDeadZombie
		}
		Schedule(bootCPU)
	}
}
