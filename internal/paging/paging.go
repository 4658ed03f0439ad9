// Package paging implements the uniform Sv39/Sv48/Sv57 page-table
// engine shared across all three RISC-V paging modes, grounded near
// line-for-line on original_source/src/mm/mmu.rs's
// const-generic LEVELS design — Go has no const generics over array
// sizes the way Rust does, so LEVELS becomes an ordinary runtime int
// carried on Mode, and the per-mode Sv39Table/Sv48Table/Sv57Table
// wrapper types collapse into one genericTable distinguished only by
// its Mode field.
//
// Any function here walks and writes raw physical memory through
// unsafe.Pointer, exactly as the original's safety note requires ("must
// be called from M-mode or S-mode with an identity PTE covering the
// page-table memory") — there is no higher-level abstraction possible
// once you're manipulating hardware PTE bits directly.
package paging

import (
	"unsafe"

	"vos/internal/riscv"
)

const (
	lMask       = uintptr(0x1ff)
	pteFlagMask = uint64(0x3ff)
	ptePPNMask  = ^uint64(0x3ff)
	pteSize     = 8
	entriesLen  = riscv.PageSize / pteSize // 512
	maxLevels   = 5
)

// EntryBits are the PTE permission/attribute flags: V/R/W/X/U/G/A/D.
type EntryBits uint32

const (
	BitNone    EntryBits = 0
	BitValid   EntryBits = 1 << 0
	BitRead    EntryBits = 1 << 1
	BitWrite   EntryBits = 1 << 2
	BitExecute EntryBits = 1 << 3
	BitUser    EntryBits = 1 << 4
	BitGlobal  EntryBits = 1 << 5
	BitAccess  EntryBits = 1 << 6
	BitDirty   EntryBits = 1 << 7

	BitReadWrite        = BitRead | BitWrite
	BitReadExecute      = BitRead | BitExecute
	BitReadWriteExecute = BitRead | BitWrite | BitExecute

	BitUserReadWrite        = BitRead | BitWrite | BitUser
	BitUserReadExecute      = BitRead | BitExecute | BitUser
	BitUserReadWriteExecute = BitRead | BitWrite | BitExecute | BitUser
)

// isBitsValid rejects the reserved Write-without-Read combination:
// writable pages must also be marked readable.
func isBitsValid(bits uint32) bool { return bits&0b0110 != 0b0100 }

func isBitsValidLeaf(bits uint32) bool {
	return isBitsValid(bits) && bits&0b1110 != 0
}

// Mode is the address-translation schema selected via satp.
type Mode uint8

const (
	Bare Mode = 0
	Sv39 Mode = 8
	Sv48 Mode = 9
	Sv57 Mode = 10
)

// Levels returns the page-table depth for the mode (3/4/5), or 0 for
// Bare (no translation).
func (m Mode) Levels() int {
	switch m {
	case Sv39:
		return 3
	case Sv48:
		return 4
	case Sv57:
		return 5
	default:
		return 0
	}
}

// ValSATP returns the mode field already shifted into satp bits [63:60].
func (m Mode) ValSATP() uint64 { return uint64(m) << 60 }

func entryAt(root uintptr, idx uintptr) uintptr { return root + idx*pteSize }

func readEntry(addr uintptr) uint64 {
	return *(*uint64)(unsafe.Pointer(addr)) //nolint:govet
}

func writeEntry(addr uintptr, v uint64) {
	*(*uint64)(unsafe.Pointer(addr)) = v //nolint:govet
}

func isValid(e uint64) bool { return e&uint64(BitValid) != 0 }
func isLeaf(e uint64) bool  { return e&uint64(BitReadWriteExecute) != 0 }
