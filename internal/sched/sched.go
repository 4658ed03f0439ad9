package sched

import "vos/internal/cpuinfo"

// MaxCPU bounds the per-CPU idle-task and current-task tables; matches
// internal/cpuinfo.MaxHarts and internal/slab.MaxCPU.
const MaxCPU = cpuinfo.MaxHarts

var (
	idleTasks   [MaxCPU]*TaskInfo
	currentTask [MaxCPU]*TaskInfo
)

// Hooks the real build wires to hardware access; left nil in tests that
// only exercise the pure scheduling decision.
var (
	// SetSSTATUSSPP programs sstatus.SPP for the task about to run: true
	// for a kernel task or a user task with UserInKernel set (it resumes
	// in S-mode), false for any other user task.
	SetSSTATUSSPP func(spp bool)

	// ReadTime / WriteStimecmp back the mtime/stimecmp CSR pair.
	ReadTime       func() uint64
	WriteStimecmp  func(uint64)

	// SwitchToTask performs the actual register/stack/satp swap into
	// next; a real build implements this in assembly.
	SwitchToTask func(next *TaskInfo)
)

// RegisterIdleTask installs cpu's idle task, created once at boot.
func RegisterIdleTask(cpu uint32, t *TaskInfo) {
	t.IsIdle = true
	t.Kind = TypeKernel
	idleTasks[cpu] = t
}

// CurrentTask returns the task presently running on cpu, or nil before
// the first Schedule call on that cpu.
func CurrentTask(cpu uint32) *TaskInfo { return currentTask[cpu] }

// Normal and realtime time slices: roughly 8 ms and 4 ms respectively,
// expressed in timebase ticks.
const (
	normalSliceDivisor    = 128
	realtimeSliceDivisor  = 256
)

func sliceFor(t *TaskInfo, timebaseFreq uint64) uint64 {
	if IsRealtime(t.SchedPriority) {
		return timebaseFreq / realtimeSliceDivisor
	}
	return timebaseFreq / normalSliceDivisor
}

// Schedule runs the five-step dispatch algorithm for cpu: pop the ready
// head (or fall back to cpu's idle task), program
// SPP and the next timer deadline, repoint the task's trap frame (and,
// for a user task caught mid-syscall, its kernel trap frame too) at
// this hart's frame info, mark it Running, and hand off via
// SwitchToTask. The previously running task (if any and still marked
// Running, i.e. not asleep or dead) goes back onto the ready list.
func Schedule(cpu uint32) *TaskInfo {
	prev := currentTask[cpu]

	next := popReadyHead()
	if next == nil {
		next = idleTasks[cpu]
	}
	if next == nil {
		panic("sched: no ready task and no idle task registered for cpu")
	}

	if prev != nil && prev != next && !prev.IsIdle &&
		prev.Status == StatusRunning {
		AddTask(prev)
	}

	if SetSSTATUSSPP != nil {
		SetSSTATUSSPP(next.Kind == TypeKernel || next.UserInKernel)
	}

	if ReadTime != nil && WriteStimecmp != nil {
		if hart := cpuinfo.For(cpu); hart != nil {
			WriteStimecmp(ReadTime() + sliceFor(next, hart.Info.TimebaseFreq))
		}
	}

	if hart := cpuinfo.For(cpu); hart != nil {
		next.Frame.HartFrame = &hart.Frame
		if next.UserInKernel && next.Frame.Kernel != nil {
			next.Frame.Kernel.HartFrame = &hart.Frame
		}
	}

	next.Status = StatusRunning
	next.CPU = cpu
	currentTask[cpu] = next

	if SwitchToTask != nil {
		SwitchToTask(next)
	}
	return next
}
