package trap_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"vos/internal/riscv"
	"vos/internal/trap"
)

func TestTimerInterruptFiresTickHookAndReturnsSamePC(t *testing.T) {
	fired := false
	trap.TimerTick = func() { fired = true }
	defer func() { trap.TimerTick = nil }()

	const sepc = 0x8020_0000
	got := trap.HandleTrap(sepc, 0, riscv.CauseInterruptBit|riscv.IntTimer, 0, &trap.TaskTrapFrame{})
	assert.True(t, fired)
	assert.Equal(t, uint64(sepc), got)
}

func TestSoftwareInterruptReturnsSamePC(t *testing.T) {
	const sepc = 0x1000
	got := trap.HandleTrap(sepc, 0, riscv.CauseInterruptBit|riscv.IntSoftware, 0, &trap.TaskTrapFrame{})
	assert.Equal(t, uint64(sepc), got)
}

func TestUnknownInterruptPanics(t *testing.T) {
	assert.Panics(t, func() {
		trap.HandleTrap(0, 0, riscv.CauseInterruptBit|63, 0, &trap.TaskTrapFrame{})
	})
}

func TestBreakpointSkipsTwoBytes(t *testing.T) {
	const sepc = 0x2000
	got := trap.HandleTrap(sepc, 0, riscv.ExcBreakpoint, 0, &trap.TaskTrapFrame{})
	assert.Equal(t, uint64(sepc+2), got)
}

func TestUserEcallAdvancesFourBytesAndInvokesSyscall(t *testing.T) {
	var seen *trap.TaskTrapFrame
	trap.Syscall = func(f *trap.TaskTrapFrame) { seen = f }
	defer func() { trap.Syscall = nil }()

	frame := &trap.TaskTrapFrame{}
	const sepc = 0x3000
	got := trap.HandleTrap(sepc, 0, riscv.ExcEcallFromU, 0, frame)
	assert.Equal(t, uint64(sepc+4), got)
	assert.Same(t, frame, seen)
}

func TestPageFaultFromSModeIsFatal(t *testing.T) {
	assert.Panics(t, func() {
		trap.HandleTrap(0, 0x4000, riscv.ExcLoadPageFault, riscv.SstatusSPP, &trap.TaskTrapFrame{})
	})
}

func TestPageFaultResolvedByHookRetriesSamePC(t *testing.T) {
	trap.PageFault = func(stval uint64, f *trap.TaskTrapFrame) bool { return stval == 0x5000 }
	defer func() { trap.PageFault = nil }()

	const sepc = 0x6000
	got := trap.HandleTrap(sepc, 0x5000, riscv.ExcLoadPageFault, 0, &trap.TaskTrapFrame{})
	assert.Equal(t, uint64(sepc), got)
}

func TestUnresolvedPageFaultPanics(t *testing.T) {
	assert.Panics(t, func() {
		trap.HandleTrap(0, 0x9999, riscv.ExcStorePageFault, 0, &trap.TaskTrapFrame{})
	})
}

func TestInstructionFaultFromSModeIsFatal(t *testing.T) {
	assert.Panics(t, func() {
		trap.HandleTrap(0, 0, riscv.ExcIllegalInstr, riscv.SstatusSPP, &trap.TaskTrapFrame{})
	})
}

func TestInstructionFaultFromUModeKillsTaskInsteadOfPanicking(t *testing.T) {
	var killed *trap.TaskTrapFrame
	trap.KillTask = func(f *trap.TaskTrapFrame) { killed = f }
	defer func() { trap.KillTask = nil }()

	frame := &trap.TaskTrapFrame{}
	const sepc = 0x7000
	got := trap.HandleTrap(sepc, 0, riscv.ExcIllegalInstr, 0, frame)
	assert.Equal(t, uint64(sepc), got)
	assert.Same(t, frame, killed)
}

func TestLoadStoreFaultFromSModeIsFatal(t *testing.T) {
	assert.Panics(t, func() {
		trap.HandleTrap(0, 0, riscv.ExcLoadAccessFault, riscv.SstatusSPP, &trap.TaskTrapFrame{})
	})
}

func TestLoadStoreFaultFromUModeKillsTaskInsteadOfPanicking(t *testing.T) {
	var killed *trap.TaskTrapFrame
	trap.KillTask = func(f *trap.TaskTrapFrame) { killed = f }
	defer func() { trap.KillTask = nil }()

	frame := &trap.TaskTrapFrame{}
	const sepc = 0x7100
	got := trap.HandleTrap(sepc, 0, riscv.ExcStoreAccessFault, 0, frame)
	assert.Equal(t, uint64(sepc), got)
	assert.Same(t, frame, killed)
}
