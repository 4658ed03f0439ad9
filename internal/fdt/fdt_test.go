package fdt_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"vos/internal/fdt"
	"vos/internal/page"
)

func TestBootCPUFindsMatchingHart(t *testing.T) {
	info := &fdt.Info{
		MemoryRegions: []page.Region{{Start: 0x80000000, Size: 64 << 20}},
		CPUs: []fdt.CPUDescriptor{
			{HartID: 0, CPUID: 0, TimebaseFreq: 10_000_000},
			{HartID: 1, CPUID: 1, TimebaseFreq: 10_000_000},
		},
		Bootargs: "console=ttyS0",
	}

	got, ok := info.BootCPU(1)
	assert.True(t, ok)
	assert.Equal(t, uint32(1), got.CPUID)

	_, ok = info.BootCPU(99)
	assert.False(t, ok)
}

func TestValidateRejectsEmptyInfo(t *testing.T) {
	assert.Error(t, (&fdt.Info{}).Validate())
	assert.Error(t, (&fdt.Info{MemoryRegions: []page.Region{{Size: 1}}}).Validate())
	assert.NoError(t, (&fdt.Info{
		MemoryRegions: []page.Region{{Size: 1}},
		CPUs:          []fdt.CPUDescriptor{{HartID: 0}},
	}).Validate())
}
