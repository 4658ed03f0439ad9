// Package fdt is the device-tree boundary: it consumes already-parsed
// memory regions, cpu descriptors and a bootargs string, and
// deliberately does not parse a real FDT
// blob — that belongs to a board-specific boundary layer outside this
// kernel core, grounded on
// _examples/original_source/src/driver/fdt/mod.rs's own
// consumed-properties list.
package fdt

import (
	"github.com/pkg/errors"

	"vos/internal/page"
)

// CPUDescriptor is one hart's boot-time identity and clock facts, as a
// real bring-up's device-tree walker would hand them to KernelMain.
type CPUDescriptor struct {
	HartID       uint64
	CPUID        uint32
	ClockFreq    uint64
	TimebaseFreq uint64
}

// Info is everything the boundary layer has already extracted from the
// device tree by the time the kernel core sees it.
type Info struct {
	MemoryRegions []page.Region
	CPUs          []CPUDescriptor
	Bootargs      string
}

// Validate reports whether Info has enough to boot: at least one memory
// region and at least one cpu descriptor. A real boundary layer calls
// this right after walking the device tree, before handing Info to
// KernelMain.
func (i *Info) Validate() error {
	if len(i.MemoryRegions) == 0 {
		return errors.New("fdt: device tree described no memory regions")
	}
	if len(i.CPUs) == 0 {
		return errors.New("fdt: device tree described no cpus")
	}
	return nil
}

// BootCPU returns the descriptor for hartID, if present.
func (i *Info) BootCPU(hartID uint64) (CPUDescriptor, bool) {
	for _, c := range i.CPUs {
		if c.HartID == hartID {
			return c, true
		}
	}
	return CPUDescriptor{}, false
}
