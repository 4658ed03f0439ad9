package bitfield_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vos/internal/bitfield"
)

type pageFlagsView struct {
	Custom   uint8 `bitfield:"8"`
	Internal uint8 `bitfield:"8"`
	ZoneID   uint8 `bitfield:"8"`
	Reserved uint8 `bitfield:"8"`
}

func TestPackUnpackRoundTrip(t *testing.T) {
	in := pageFlagsView{Custom: 0xAB, Internal: 0x01, ZoneID: 3, Reserved: 0}

	packed, err := bitfield.Pack(in)
	require.NoError(t, err)
	assert.Equal(t, uint64(0xAB)|uint64(0x01)<<8|uint64(3)<<16, packed)

	var out pageFlagsView
	require.NoError(t, bitfield.Unpack(packed, &out))
	assert.Equal(t, in, out)
}

func TestPackRejectsOverflow(t *testing.T) {
	type tooBig struct {
		V uint16 `bitfield:"8"`
	}
	_, err := bitfield.Pack(tooBig{V: 256})
	assert.Error(t, err)
}

func TestUnpackRequiresPointer(t *testing.T) {
	err := bitfield.Unpack(0, pageFlagsView{})
	assert.Error(t, err)
}
