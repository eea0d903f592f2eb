//go:build linux

package gc

import "golang.org/x/sys/unix"

// Linux-specific mmap/madvise flags. MAP_NORESERVE tells the kernel not to
// reserve swap space for the reservation, which is essential when reserving
// terabytes of address space that will mostly never be committed.
// MAP_FIXED_NOREPLACE makes the fixed reservation fail with EEXIST instead
// of silently replacing anything already mapped in the range.
const (
	mapFixedFlag     = unix.MAP_FIXED_NOREPLACE
	mapNoReserveFlag = unix.MAP_NORESERVE
	madviseDontNeed  = unix.MADV_DONTNEED
)
