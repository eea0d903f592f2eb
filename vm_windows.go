//go:build windows

package gc

import (
	"fmt"

	"golang.org/x/sys/windows"
)

// windowsVM implements vmSubstrate on Windows via VirtualAlloc/VirtualFree,
// the teacher's convention for platform collaborators
// isolated behind build-tagged twin files.
type windowsVM struct {
	pageSize uintptr
}

func newPlatformVM() vmSubstrate {
	var si windows.SystemInfo
	windows.GetSystemInfo(&si)
	return &windowsVM{pageSize: uintptr(si.PageSize)}
}

func (v *windowsVM) PageSize() uintptr { return v.pageSize }

func (v *windowsVM) ReserveFixed(base, size uintptr) error {
	addr, err := windows.VirtualAlloc(base, size, windows.MEM_RESERVE, windows.PAGE_NOACCESS)
	if err != nil {
		return fmt.Errorf("VirtualAlloc(fixed, base=%#x, size=%d): %w", base, size, err)
	}
	if addr != base {
		windows.VirtualFree(addr, 0, windows.MEM_RELEASE)
		return fmt.Errorf("VirtualAlloc(fixed, base=%#x): system returned %#x", base, addr)
	}
	return nil
}

func (v *windowsVM) ReserveAnywhere(size uintptr) (uintptr, error) {
	addr, err := windows.VirtualAlloc(0, size, windows.MEM_RESERVE, windows.PAGE_NOACCESS)
	if err != nil {
		return 0, fmt.Errorf("VirtualAlloc(anywhere, size=%d): %w", size, err)
	}
	return addr, nil
}

func (v *windowsVM) Release(addr, size uintptr) error {
	// MEM_RELEASE requires size == 0 and addr to be the base of the original
	// reservation; callers always release whole reservations.
	if err := windows.VirtualFree(addr, 0, windows.MEM_RELEASE); err != nil {
		return fmt.Errorf("VirtualFree(%#x): %w", addr, err)
	}
	return nil
}

func (v *windowsVM) Commit(addr, size uintptr) error {
	alignedAddr := alignDown(addr, v.pageSize)
	alignedEnd := alignUp(addr+size, v.pageSize)
	_, err := windows.VirtualAlloc(alignedAddr, alignedEnd-alignedAddr, windows.MEM_COMMIT, windows.PAGE_READWRITE)
	if err != nil {
		return fmt.Errorf("VirtualAlloc(commit, %#x, %d): %w", alignedAddr, alignedEnd-alignedAddr, err)
	}
	return nil
}

func (v *windowsVM) AdviseDiscardable(addr, size uintptr) error {
	alignedAddr := alignUp(addr, v.pageSize)
	alignedEnd := alignDown(addr+size, v.pageSize)
	if alignedEnd <= alignedAddr {
		return nil
	}
	// Windows has no direct MADV_DONTNEED equivalent that preserves the
	// reservation; decommitting drops the physical pages, and committing the
	// range again right away leaves it accessible and reading as zeros.
	if err := windows.VirtualFree(alignedAddr, alignedEnd-alignedAddr, windows.MEM_DECOMMIT); err != nil {
		return fmt.Errorf("VirtualFree(decommit, %#x, %d): %w", alignedAddr, alignedEnd-alignedAddr, err)
	}
	return v.Commit(alignedAddr, alignedEnd-alignedAddr)
}
