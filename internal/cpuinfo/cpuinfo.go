// Package cpuinfo holds the per-hart trap stack and its two embedded
// records, CpuInfo and HartFrameInfo.
// Grounded on mazarin's own per-core bring-up data
// (_examples/iansmith-mazarin/src/go/mazarin/kernel.go sets up one
// stack/state block per core at boot) and on original_source's
// HartTrapStack shape.
package cpuinfo

import (
	"unsafe"

	"vos/internal/riscv"
)

// CpuInfo is read-only after boot; tp is set to point at it once per
// hart, making current() a single register read in the real build: tp
// permanently points to this hart's CpuInfo.
type CpuInfo struct {
	ClockFreq    uint64
	TimebaseFreq uint64
	HartID       uint64
	CpuID        uint32
	_            uint32 // padding
}

// HartFrameInfo carries the pre-computed sp/gp/tp values the trap vector
// loads on entry, letting the asm vector recover a usable
// stack in a few instructions.
type HartFrameInfo struct {
	SP uintptr
	GP uintptr
	TP uintptr
}

// HartTrapStack is exactly one 4 KiB page per hart: CpuInfo and
// HartFrameInfo live at the high end, the rest is the trap-handler
// stack growing down from just below them.
type HartTrapStack struct {
	stack [riscv.PageSize - stackReservedBytes]byte
	Info  CpuInfo
	Frame HartFrameInfo
}

// stackReservedBytes must equal sizeof(CpuInfo)+sizeof(HartFrameInfo)
// exactly so HartTrapStack totals one page; see TestHartTrapStackFitsOnePage.
const stackReservedBytes = 32 + 24

// StackTop returns the address one-past-the-end of the handler stack
// region (the initial sp value for this hart's trap vector).
func (h *HartTrapStack) StackTop() uintptr {
	return uintptrOf(unsafe.Pointer(&h.stack[0])) + uintptr(len(h.stack))
}

// registry is the (small, fixed) table of known harts; populated once at
// boot by Init, read thereafter without locking: CpuInfo/HartFrameInfo
// are mutated only at boot.
var registry [MaxHarts]*HartTrapStack

// MaxHarts bounds the hart table. Hart count otherwise comes from the
// device tree; 8 matches internal/slab.MaxCPU and the
// QEMU virt machine's typical `-smp` ceiling for this kernel's targets.
const MaxHarts = 8

// Init installs the trap stack for hartID, deriving CpuInfo's clock and
// timebase frequencies from the device tree. Must be called once per
// hart before that hart ever traps.
func Init(hartID uint64, cpuID uint32, clockFreq, timebaseFreq uint64, stack *HartTrapStack) {
	stack.Info = CpuInfo{
		ClockFreq:    clockFreq,
		TimebaseFreq: timebaseFreq,
		HartID:       hartID,
		CpuID:        cpuID,
	}
	stack.Frame = HartFrameInfo{
		SP: stack.StackTop(),
		GP: 0, // filled by the linker-relocated gp at boot; left 0 in tests
		TP: uintptrOf(unsafe.Pointer(&stack.Info)),
	}
	registry[cpuID] = stack
}

// For returns the hart trap stack registered for cpuID, or nil.
func For(cpuID uint32) *HartTrapStack {
	if int(cpuID) >= len(registry) {
		return nil
	}
	return registry[cpuID]
}
