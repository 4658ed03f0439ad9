package paging

import "vos/internal/bitfield"

// DecodedPTE is a named-field view of a leaf PTE's flag byte, for debug
// dumps and tests only. The walker above never builds one of these on
// its hot path — it tests EntryBits directly against the raw word.
type DecodedPTE struct {
	Valid   bool `bitfield:"1"`
	Read    bool `bitfield:"1"`
	Write   bool `bitfield:"1"`
	Execute bool `bitfield:"1"`
	User    bool `bitfield:"1"`
	Global  bool `bitfield:"1"`
	Access  bool `bitfield:"1"`
	Dirty   bool `bitfield:"1"`
}

// DecodePTEFlags unpacks a raw PTE's low flag byte into named fields.
func DecodePTEFlags(entry uint64) DecodedPTE {
	var d DecodedPTE
	if err := bitfield.Unpack(entry&pteFlagMask, &d); err != nil {
		panic(err)
	}
	return d
}
