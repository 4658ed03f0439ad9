// Package trap implements the kernel's trap-frame layout and the
// handle_trap dispatch table. Grounded on original_source's trap.rs
// (TaskTrapFrame / KernelTrapFrame / trap_handler) and on mazarin's
// own interrupt-dispatch loop in
// _examples/iansmith-mazarin/src/go/mazarin/interrupt.go, which the
// handler table below imitates in spirit (a scause-keyed switch that
// falls through to a panic for anything unexpected).
package trap

import "vos/internal/cpuinfo"

// TaskTrapFrame is exactly what sscratch points at while a task runs in
// U-mode: the asm vector saves/restores it verbatim on every trap.
type TaskTrapFrame struct {
	Int   [32]uint64 // x0..x31 (x0 slot unused, kept for flat indexing)
	Float [32]uint64 // f0..f31, saved only when sstatus.FS==Dirty
	PC    uint64

	HartFrame *cpuinfo.HartFrameInfo
	Kernel    *KernelTrapFrame
	Satp      uint64
	FSDirty   bool
}

// KernelTrapFrame shares TaskTrapFrame's prefix through PC and
// HartFrame, but where TaskTrapFrame holds its Kernel pointer, this
// frame
// instead back-points at the TaskTrapFrame it interrupted — a recursive
// trap (e.g. a page fault while already in the trap handler) chains
// through this pointer rather than through a stack pointer.
type KernelTrapFrame struct {
	Int   [32]uint64
	Float [32]uint64
	PC    uint64

	HartFrame *cpuinfo.HartFrameInfo
	Task      *TaskTrapFrame
	Satp      uint64
	FSDirty   bool
}

// register indices, RISC-V calling convention (for callers that want
// named access rather than raw Int[n]).
const (
	RegZero = 0
	RegRA   = 1
	RegSP   = 2
	RegGP   = 3
	RegTP   = 4
	RegA0   = 10
	RegA7   = 17
)
