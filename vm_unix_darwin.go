//go:build darwin

package gc

import "golang.org/x/sys/unix"

// Darwin has no MAP_NORESERVE (overcommit is the default behavior); the huge
// VA reservation simply never touches swap accounting. MADV_FREE is the
// Darwin-native lazy-reclaim hint but MADV_DONTNEED is still honored and
// keeps the two platform files symmetric. Darwin has no non-replacing
// fixed mapping either, so the base address is passed as a hint only and
// ReserveFixed rejects any mapping placed elsewhere.
const (
	mapFixedFlag     = 0
	mapNoReserveFlag = 0
	madviseDontNeed  = unix.MADV_DONTNEED
)
