// Command kernel is the freestanding RISC-V kernel image. KernelMain is
// the real entry point, called directly by the boot assembly stub the
// same way _examples/iansmith-mazarin/src/go/mazarin/kernel.go's boot.s
// calls KernelMain: main() below exists only so Go's build tooling has a
// package main entry point to compile and never runs on real hardware.
package main

import (
	_ "unsafe" // for go:linkname

	"vos/internal/console"
	"vos/internal/cpuinfo"
	"vos/internal/earlyalloc"
	"vos/internal/fdt"
	"vos/internal/page"
	"vos/internal/paging"
	"vos/internal/riscv"
	"vos/internal/sched"
)

// earlyHeapSize bounds the bump allocator used to carve the buddy
// allocator's own bookkeeping (bitmaps, Page array) out of early memory,
// before the buddy allocator exists to serve that request itself.
const earlyHeapSize = 1 << 20

// KernelMain is m_init+kmain, called by the
// boot assembly with the hart id and an already-parsed device-tree
// (info is produced by a board-specific boundary layer that walks the
// real FDT blob; internal/fdt itself stays a thin consumer). sink is
// the only place this function ever writes
// output — the freestanding core never imports a logging library, only
// the console.Sink boundary, matching mazarin's uartPuts/gpuPuts.
//
//go:linkname KernelMain KernelMain
func KernelMain(hartID uint64, info *fdt.Info, sink console.Sink) {
	sink.WriteString("vos: boot\n")

	if err := info.Validate(); err != nil {
		sink.WriteString("vos: " + err.Error() + "\n")
		panic(err)
	}

	cpu, ok := info.BootCPU(hartID)
	if !ok {
		panic("vos: device tree has no descriptor for the boot hart")
	}

	var hartStack cpuinfo.HartTrapStack
	cpuinfo.Init(hartID, cpu.CPUID, cpu.ClockFreq, cpu.TimebaseFreq, &hartStack)

	var alloc earlyalloc.Allocator
	alloc.Init(earlyHeapRegion())

	var zone page.Zone
	zone.Init(&alloc, info.MemoryRegions)
	paging.EnablePageAllocator(&zone)

	root39 := paging.CreateRootTable(paging.Sv39)
	_ = root39 // identity-maps the kernel in a full boot sequence

	idle := sched.NewTask(0, sched.TypeKernel, 0)
	sched.RegisterIdleTask(cpu.CPUID, idle)
	sched.Init(cpu.CPUID)

	sink.WriteString("vos: boot complete\n")

	for {
		riscv.Wfi()
	}
}

// earlyHeapRegion is a placeholder: a real bring-up derives it from the
// linker script's _end symbol. Kept as a named function (rather than an
// inlined literal in KernelMain) so a future linker-script wiring pass
// has one obvious place to fill in.
func earlyHeapRegion() (uintptr, uintptr) { return 0, earlyHeapSize }

func main() {
	KernelMain(0, &fdt.Info{
		MemoryRegions: []page.Region{{Start: earlyHeapSize, Size: 64 << 20}},
		CPUs:          []fdt.CPUDescriptor{{HartID: 0, TimebaseFreq: 10_000_000}},
	}, console.NoopSink{})
}
