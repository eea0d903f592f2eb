//go:build windows

package gc

import (
	"unsafe"

	"golang.org/x/sys/windows"
)

// StackBottom locates the highest address of the calling thread's stack
// segment using VirtualQuery over the address of a local variable: the
// BaseAddress+RegionSize of the page run containing that local is its high
// end, and on Windows (stack grows downward, same as Unix) that is the
// bottom of the stack.
func (v *windowsVM) StackBottom() (uintptr, error) {
	top := currentStackTop()

	var mbi windows.MemoryBasicInformation
	err := windows.VirtualQuery(top, &mbi, unsafe.Sizeof(mbi))
	if err != nil {
		return 0, err
	}
	bottom := uintptr(mbi.BaseAddress) + uintptr(mbi.RegionSize)
	return bottom, nil
}

//go:noinline
func currentStackTop() uintptr {
	var local byte
	return uintptr(unsafe.Pointer(&local))
}
