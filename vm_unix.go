//go:build linux || darwin

package gc

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// unixVM implements vmSubstrate on Linux and Darwin using raw mmap/mprotect/
// munmap/madvise syscalls via golang.org/x/sys/unix, the same house style
// the teacher repo uses for direct syscall access (see the asyncio package's
// zerocopy_unix_file.go, which reaches for x/sys/unix.Sendfile rather than
// hand-rolled syscall numbers).
type unixVM struct {
	pageSize uintptr
}

func newPlatformVM() vmSubstrate {
	return &unixVM{pageSize: uintptr(unix.Getpagesize())}
}

func (v *unixVM) PageSize() uintptr { return v.pageSize }

func (v *unixVM) ReserveFixed(base, size uintptr) error {
	addr, _, errno := unix.Syscall6(
		unix.SYS_MMAP,
		base, size,
		uintptr(unix.PROT_NONE),
		uintptr(unix.MAP_PRIVATE|unix.MAP_ANON|mapFixedFlag|mapNoReserveFlag),
		^uintptr(0), 0,
	)
	if errno != 0 {
		return fmt.Errorf("mmap(fixed, base=%#x, size=%d): %w", base, size, errno)
	}
	if addr != base {
		// The kernel placed the mapping elsewhere (the fixed flag is only a
		// hint on Darwin and on kernels without MAP_FIXED_NOREPLACE); undo
		// and fail loudly rather than silently operate on the wrong range.
		unix.Syscall(unix.SYS_MUNMAP, addr, size, 0)
		return fmt.Errorf("mmap(fixed, base=%#x): kernel returned %#x", base, addr)
	}
	return nil
}

func (v *unixVM) ReserveAnywhere(size uintptr) (uintptr, error) {
	addr, _, errno := unix.Syscall6(
		unix.SYS_MMAP,
		0, size,
		uintptr(unix.PROT_NONE),
		uintptr(unix.MAP_PRIVATE|unix.MAP_ANON|mapNoReserveFlag),
		^uintptr(0), 0,
	)
	if errno != 0 {
		return 0, fmt.Errorf("mmap(anywhere, size=%d): %w", size, errno)
	}
	return addr, nil
}

func (v *unixVM) Release(addr, size uintptr) error {
	_, _, errno := unix.Syscall(unix.SYS_MUNMAP, addr, size, 0)
	if errno != 0 {
		return fmt.Errorf("munmap(%#x, %d): %w", addr, size, errno)
	}
	return nil
}

func (v *unixVM) Commit(addr, size uintptr) error {
	alignedAddr := alignDown(addr, v.pageSize)
	alignedEnd := alignUp(addr+size, v.pageSize)
	_, _, errno := unix.Syscall(
		unix.SYS_MPROTECT, alignedAddr, alignedEnd-alignedAddr,
		uintptr(unix.PROT_READ|unix.PROT_WRITE),
	)
	if errno != 0 {
		return fmt.Errorf("mprotect(%#x, %d): %w", alignedAddr, alignedEnd-alignedAddr, errno)
	}
	return nil
}

func (v *unixVM) AdviseDiscardable(addr, size uintptr) error {
	alignedAddr := alignUp(addr, v.pageSize)
	alignedEnd := alignDown(addr+size, v.pageSize)
	if alignedEnd <= alignedAddr {
		return nil // sub-page range, nothing to advise
	}
	_, _, errno := unix.Syscall(
		unix.SYS_MADVISE, alignedAddr, alignedEnd-alignedAddr,
		uintptr(madviseDontNeed),
	)
	if errno != 0 {
		return fmt.Errorf("madvise(%#x, %d): %w", alignedAddr, alignedEnd-alignedAddr, errno)
	}
	return nil
}
