package paging

import "vos/internal/riscv"

// Table is the uniform page-table handle: one
// interface, backed at runtime by whichever mode (Bare/Sv39/Sv48/Sv57)
// the root was created with.
type Table interface {
	Addr() uintptr
	Mode() Mode

	// Map installs a translation; level picks the page size (0 = 4 KiB,
	// 1 = megapage, ...). Both addresses must already be aligned to
	// that level's page size.
	Map(vAddr, pAddr uintptr, bits uint32, level uint32)

	// Unmap clears the leaf PTE for vAddr. Reports whether anything
	// changed.
	Unmap(vAddr uintptr) bool

	// VirtToPhys walks the table the way hardware would. The second
	// return is false on anything that would fault.
	VirtToPhys(vAddr uintptr) (uintptr, bool)

	// FreeUnusedEntry releases any sub-table that ended up entirely
	// unmapped. The root itself is never freed by this call.
	FreeUnusedEntry() bool

	// Destroy frees the entire table, including the root. The Table
	// must not be used afterward.
	Destroy()

	// Protect changes the permission bits of an existing leaf PTE
	// in-place without touching its PPN: a supplemental permission-change
	// operation beyond map/unmap/virt_to_phys/free_unused_entry/destroy,
	// e.g. for W^X transitions.
	Protect(vAddr uintptr, bits uint32) bool
}

// genericTable backs Sv39/Sv48/Sv57 uniformly; LEVELS in the original is
// a compile-time const generic parameter — here it's just the runtime
// value Mode.Levels() returns, since all three modes share one PTE
// format and only differ in walk depth.
type genericTable struct {
	addr uintptr
	mode Mode
}

func (t *genericTable) Addr() uintptr { return t.addr }
func (t *genericTable) Mode() Mode    { return t.mode }

func (t *genericTable) Map(vAddr, pAddr uintptr, bits uint32, level uint32) {
	doMap(t.mode.Levels(), t.addr, vAddr, pAddr, bits, level)
}

func (t *genericTable) Unmap(vAddr uintptr) bool {
	return doUnmap(t.mode.Levels(), t.addr, vAddr)
}

func (t *genericTable) VirtToPhys(vAddr uintptr) (uintptr, bool) {
	return doVirtToPhys(t.mode.Levels(), t.addr, vAddr)
}

func (t *genericTable) FreeUnusedEntry() bool {
	return doFreeUnusedEntry(t.mode.Levels(), t.addr)
}

func (t *genericTable) Destroy() {
	doDestroy(t.addr, 1, uint32(t.mode.Levels()))
}

func (t *genericTable) Protect(vAddr uintptr, bits uint32) bool {
	levels := t.mode.Levels()
	entryAddr := t.addr
	for i := levels - 1; i >= 0; i-- {
		shift := uint(i*9 + riscv.PageShift)
		vpn := (vAddr >> shift) & lMask
		addr := entryAt(entryAddr, vpn)
		e := readEntry(addr)
		if !isValid(e) {
			return false
		}
		if isLeaf(e) {
			if !isBitsValidLeaf(bits) {
				panic("paging: invalid leaf entry bits passed to Protect")
			}
			writeEntry(addr, (e&ptePPNMask)|(uint64(bits)&pteFlagMask)|uint64(BitValid))
			return true
		}
		entryAddr = uintptr((e & ptePPNMask) << 2)
	}
	return false
}

// bareTable is the degenerate "no translation" mode (Bare satp mode
// means physical addressing): every operation is either
// a no-op or the identity function.
type bareTable struct{}

func (bareTable) Addr() uintptr                              { return 0 }
func (bareTable) Mode() Mode                                  { return Bare }
func (bareTable) Map(uintptr, uintptr, uint32, uint32)        {}
func (bareTable) Unmap(uintptr) bool                          { return false }
func (bareTable) VirtToPhys(vAddr uintptr) (uintptr, bool)    { return vAddr, true }
func (bareTable) FreeUnusedEntry() bool                       { return false }
func (bareTable) Destroy()                                    {}
func (bareTable) Protect(uintptr, uint32) bool                { return false }

var sharedBareTable Table = bareTable{}

// CreateRootTable allocates and zeroes a new root table for mode.
// Bare mode returns a shared
// stateless handle since it owns no memory.
func CreateRootTable(mode Mode) Table {
	if mode == Bare {
		return sharedBareTable
	}
	addr := AllocZeroedPage()
	if addr == 0 {
		return nil
	}
	return &genericTable{addr: addr, mode: mode}
}

// BuildTableFromAddr wraps an existing page-table root (e.g. the one
// satp already points at) without allocating. The caller must ensure
// mode actually matches the table's format.
func BuildTableFromAddr(addr uintptr, mode Mode) Table {
	if mode == Bare {
		return sharedBareTable
	}
	return &genericTable{addr: addr, mode: mode}
}

// CopyRootTable duplicates only the root level: branch entries keep
// pointing at the same sub-tables — used for per-task address spaces
// that share the kernel's upper half.
func CopyRootTable(root Table) Table {
	if root.Mode() == Bare {
		return sharedBareTable
	}
	dst := AllocPage()
	if dst == 0 {
		return nil
	}
	src := root.Addr()
	for i := 0; i < entriesLen; i++ {
		writeEntry(entryAt(dst, uintptr(i)), readEntry(entryAt(src, uintptr(i))))
	}
	return BuildTableFromAddr(dst, root.Mode())
}
