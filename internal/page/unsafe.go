package page

import "unsafe"

// pageStructSize is the layout-dependent size used to size the dense
// descriptor array during Zone.Init.
var pageStructSize = unsafe.Sizeof(Page{})

func ptrFromUintptr(addr uintptr) unsafe.Pointer {
	return unsafe.Pointer(addr) //nolint:govet // address arithmetic over bump-allocator memory
}
