package paging

import "vos/internal/riscv"

// doMap is the common map algorithm shared by Sv39/48/57. level selects
// the largest page size to stop splitting at: 0
// maps a 4 KiB page, 1 a megapage, and so on.
func doMap(levels int, root, vAddr, pAddr uintptr, bits uint32, level uint32) {
	if !isBitsValidLeaf(bits) {
		panic("paging: invalid or non-leaf entry bits passed to Map")
	}
	alignShift := uint(level)*9 + riscv.PageShift
	alignMask := uintptr(1)<<alignShift - 1
	if vAddr&alignMask != 0 || pAddr&alignMask != 0 {
		panic("paging: virtual or physical address not aligned to the requested level's page size")
	}

	ppnMask := uintptr(1)<<(44-uint(levels-1)*9) - 1

	var ppn [maxLevels]uintptr
	topShift := uint((levels-1)*9 + riscv.PageShift)
	vpn := (vAddr >> topShift) & lMask
	ppn[levels-1] = (pAddr >> topShift) & ppnMask

	entryAddr := entryAt(root, vpn)
	for i := levels - 2; i >= int(level); i-- {
		e := readEntry(entryAddr)
		if !isValid(e) {
			pg := AllocZeroedPage()
			if pg == 0 {
				panic("paging: out of memory allocating a page-table level")
			}
			writeEntry(entryAddr, (uint64(pg)>>2)|uint64(BitValid))
			e = readEntry(entryAddr)
		} else if isLeaf(e) {
			panic("paging: Map collided with an existing leaf entry higher in the table")
		}

		nextRoot := uintptr((e & ptePPNMask) << 2)
		shift := uint(i*9 + riscv.PageShift)
		vpnI := (vAddr >> shift) & lMask
		entryAddr = entryAt(nextRoot, vpnI)
		ppn[i] = (pAddr >> shift) & lMask
	}

	entry := (uint64(bits) & pteFlagMask) | uint64(BitValid)
	for i := 0; i < levels; i++ {
		entry |= uint64(ppn[i]) << (uint(i)*9 + 10)
	}
	writeEntry(entryAddr, entry)
}

// doUnmap clears the leaf PTE mapping vAddr, returning whether a PTE was
// actually changed.
func doUnmap(levels int, root, vAddr uintptr) bool {
	entryAddr := root
	for i := levels - 1; i >= 0; i-- {
		shift := uint(i*9 + riscv.PageShift)
		vpn := (vAddr >> shift) & lMask
		addr := entryAt(entryAddr, vpn)
		e := readEntry(addr)
		if !isValid(e) {
			return false
		}
		if isLeaf(e) {
			writeEntry(addr, 0)
			return true
		}
		entryAddr = uintptr((e & ptePPNMask) << 2)
	}
	return false
}

// doVirtToPhys walks the table exactly as hardware would (RISC-V
// Privileged Spec §4.3.2), returning false on anything that would fault:
// an invalid entry, or a leaf whose Access bit is clear.
func doVirtToPhys(levels int, root, vAddr uintptr) (uintptr, bool) {
	entryAddr := root
	for i := levels - 1; i >= 0; i-- {
		shift := uint(i*9 + riscv.PageShift)
		vpn := (vAddr >> shift) & lMask
		addr := entryAt(entryAddr, vpn)
		e := readEntry(addr)
		if !isValid(e) {
			break
		}
		if isLeaf(e) {
			if e&uint64(BitAccess) == 0 {
				break
			}
			mask := uintptr(1)<<shift - 1
			vaOffset := vAddr & mask
			pn := uintptr(e<<2) &^ mask
			return pn | vaOffset, true
		}
		entryAddr = uintptr((e & ptePPNMask) << 2)
	}
	return 0, false
}

func leafTableIsUsed(addr uintptr) bool {
	var valid uint64
	for i := 0; i < entriesLen; i++ {
		valid |= readEntry(entryAt(addr, uintptr(i)))
	}
	return valid&uint64(BitValid) != 0
}

// walkAndFreeUnused recursively frees any fully-unmapped sub-table
// reachable from addr, returning (stillUsed, changed).
func walkAndFreeUnused(addr uintptr, level, maxLevel uint32) (bool, bool) {
	if level >= maxLevel {
		return leafTableIsUsed(addr), false
	}

	var valid uint64
	update := false
	for i := 0; i < entriesLen; i++ {
		entryAddr := entryAt(addr, uintptr(i))
		e := readEntry(entryAddr)
		if !isValid(e) {
			continue
		}
		if isLeaf(e) {
			valid |= e
			continue
		}
		sub := uintptr((e & ptePPNMask) << 2)
		bv, bu := walkAndFreeUnused(sub, level+1, maxLevel)
		if bv {
			valid |= uint64(BitValid)
			update = update || bu
		} else {
			FreePage(sub)
			writeEntry(entryAddr, 0)
			update = true
		}
	}
	return valid&uint64(BitValid) != 0, update
}

// doFreeUnusedEntry walks the root's direct children and releases any
// sub-table that ended up entirely unmapped. The root table itself is
// never freed.
func doFreeUnusedEntry(levels int, root uintptr) bool {
	update := false
	for i := 0; i < entriesLen; i++ {
		entryAddr := entryAt(root, uintptr(i))
		e := readEntry(entryAddr)
		if !isValid(e) || isLeaf(e) {
			continue
		}
		addr := uintptr((e & ptePPNMask) << 2)
		valid, u := walkAndFreeUnused(addr, 2, uint32(levels))
		if valid {
			update = update || u
		} else {
			FreePage(addr)
			writeEntry(entryAddr, 0)
			update = true
		}
	}
	return update
}

// doDestroy recursively frees every page-table level reachable from
// addr, including addr itself.
func doDestroy(addr uintptr, level, maxLevel uint32) {
	if level < maxLevel {
		for i := 0; i < entriesLen; i++ {
			entryAddr := entryAt(addr, uintptr(i))
			e := readEntry(entryAddr)
			if isValid(e) && !isLeaf(e) {
				child := uintptr((e & ptePPNMask) << 2)
				doDestroy(child, level+1, maxLevel)
			}
		}
	}
	FreePage(addr)
}
