package sched

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSleepRemovesFromReadyListAndTick(t *testing.T) {
	resetForTest()

	a := NewTask(1, TypeUser, 0)
	AddTask(a)
	require.Equal(t, 1, ReadyLen())

	Sleep(a, 100)
	assert.Equal(t, 0, ReadyLen())
	assert.Equal(t, StatusInterruptibleSleep, a.Status)

	Tick(50)
	assert.Equal(t, 0, ReadyLen(), "wake time not reached yet")

	Tick(100)
	assert.Equal(t, 1, ReadyLen())
	assert.Equal(t, StatusReady, a.Status)
}

func TestTickWakesInWakeTimeOrder(t *testing.T) {
	resetForTest()

	late := NewTask(1, TypeUser, 0)
	early := NewTask(2, TypeUser, 0)
	mid := NewTask(3, TypeUser, 0)

	Sleep(late, 300)
	Sleep(early, 100)
	Sleep(mid, 200)

	Tick(250)

	first := popReadyHead()
	second := popReadyHead()
	third := popReadyHead()
	require.NotNil(t, first)
	require.NotNil(t, second)
	assert.Nil(t, third)
	assert.Equal(t, early.Tid, first.Tid)
	assert.Equal(t, mid.Tid, second.Tid)
	assert.Equal(t, StatusInterruptibleSleep, late.Status, "not yet due")
}
