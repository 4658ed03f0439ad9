package trap

import "vos/internal/riscv"

// Hooks let the scheduler and higher layers plug into dispatch without
// trap importing sched (the same provider-injection pattern used by
// internal/spinlock and internal/sched/preempt to break that cycle).
var (
	// TimerTick fires on every timer interrupt, before HandleTrap decides
	// the return pc. The scheduler registers its tick/preempt-check here.
	TimerTick func()

	// Syscall services a u-mode ecall (scause==8). Its return value is
	// written back into frame.Int[RegA0] by the caller-supplied hook
	// itself; HandleTrap only advances pc.
	Syscall func(frame *TaskTrapFrame)

	// PageFault runs the swap-in policy for a page-fault exception.
	// Returning false means the fault could not be resolved and is
	// fatal.
	PageFault func(stval uint64, frame *TaskTrapFrame) bool

	// ExternalInterrupt services scause==9 (PLIC claim/dispatch/complete).
	ExternalInterrupt func()

	// KillTask terminates the task that faulted in U-mode and reschedules;
	// the scheduler registers this. Left nil in tests that exercise
	// HandleTrap without a full scheduler wired up.
	KillTask func(frame *TaskTrapFrame)
)

// HandleTrap is what the trap vector calls after saving registers.
// It returns the pc the vector
// should resume at.
func HandleTrap(sepc, stval, scause, sstatus uint64, frame *TaskTrapFrame) uint64 {
	if riscv.IsInterrupt(scause) {
		return handleAsync(sepc, riscv.ExceptionCode(scause))
	}
	return handleSync(sepc, stval, sstatus, riscv.ExceptionCode(scause), frame)
}

func handleAsync(sepc, code uint64) uint64 {
	switch code {
	case riscv.IntSoftware:
		return sepc
	case riscv.IntTimer:
		if TimerTick != nil {
			TimerTick()
		}
		return sepc
	case riscv.IntExternal:
		if ExternalInterrupt != nil {
			ExternalInterrupt()
		}
		return sepc
	default:
		panic("trap: unhandled asynchronous cause")
	}
}

func handleSync(sepc, stval, sstatus, code uint64, frame *TaskTrapFrame) uint64 {
	fromSMode := sstatus&riscv.SstatusSPP != 0

	switch code {
	case riscv.ExcInstrAddrMisaligned, riscv.ExcInstrAccessFault, riscv.ExcIllegalInstr:
		// Instruction-fault family: fatal only when it originates in
		// S-mode, where no recoverable policy exists. A U-mode program
		// hitting one of these just loses its task.
		if fromSMode {
			panic("trap: fatal instruction fault in S-mode")
		}
		if KillTask != nil {
			KillTask(frame)
		}
		return sepc

	case riscv.ExcBreakpoint:
		return sepc + 2

	case riscv.ExcLoadAddrMisaligned, riscv.ExcLoadAccessFault,
		riscv.ExcStoreAddrMisaligned, riscv.ExcStoreAccessFault:
		if fromSMode {
			panic("trap: fatal load/store fault in S-mode")
		}
		if KillTask != nil {
			KillTask(frame)
		}
		return sepc

	case riscv.ExcEcallFromU:
		if Syscall != nil {
			Syscall(frame)
		}
		return sepc + 4

	case riscv.ExcInstrPageFault, riscv.ExcLoadPageFault, riscv.ExcStorePageFault:
		if fromSMode {
			panic("trap: fatal page fault in S-mode")
		}
		if PageFault != nil && PageFault(stval, frame) {
			return sepc
		}
		panic("trap: unresolved page fault")

	default:
		panic("trap: unhandled synchronous cause")
	}
}
