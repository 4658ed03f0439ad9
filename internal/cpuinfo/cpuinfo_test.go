package cpuinfo_test

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vos/internal/cpuinfo"
)

func TestHartTrapStackFitsOnePage(t *testing.T) {
	assert.Equal(t, uintptr(4096), unsafe.Sizeof(cpuinfo.HartTrapStack{}))
}

func TestInitPopulatesFrameInfo(t *testing.T) {
	var stack cpuinfo.HartTrapStack
	cpuinfo.Init(3, 1, 1_000_000_000, 10_000_000, &stack)

	got := cpuinfo.For(1)
	require.NotNil(t, got)
	assert.Equal(t, uint64(3), got.Info.HartID)
	assert.Equal(t, uint32(1), got.Info.CpuID)
	assert.Equal(t, uint64(10_000_000), got.Info.TimebaseFreq)

	assert.Equal(t, stack.StackTop(), got.Frame.SP)
	assert.NotZero(t, got.Frame.TP)
}

func TestForOutOfRangeReturnsNil(t *testing.T) {
	assert.Nil(t, cpuinfo.For(255))
}
