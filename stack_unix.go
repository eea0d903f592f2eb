//go:build linux || darwin

package gc

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

// StackBottom locates the highest address of the calling OS thread's stack
// segment, assuming the classic downward-growing-stack model. It combines
// the RLIMIT_STACK-reported segment size with the address of a local in a
// non-inlined helper (currentStackTop), mirroring spec §4.6/§6: the
// non-inlined call forces the compiler to spill caller-saved registers, and
// the helper's own local sits close to the top of the segment at the point
// collect() is entered.
//
// Caveat: unlike a native thread whose OS stack is the only stack it will
// ever use, a goroutine's stack is managed by the Go runtime and can move
// on growth. The mutator is required (see package doc) to pin the calling
// goroutine to its OS thread with runtime.LockOSThread before Init. Init
// calls StackBottom once and keeps the result only as a fallback;
// stackRootSpan calls it again at every collection so the scanned window
// follows the stack wherever it currently lives.
func (v *unixVM) StackBottom() (uintptr, error) {
	var rlim unix.Rlimit
	limit := defaultStackLimit
	if err := unix.Getrlimit(unix.RLIMIT_STACK, &rlim); err == nil && rlim.Cur > 0 && rlim.Cur != unix.RLIM_INFINITY {
		limit = uintptr(rlim.Cur)
	}

	top := currentStackTop()
	return top + limit, nil
}

//go:noinline
func currentStackTop() uintptr {
	var local byte
	return uintptr(unsafe.Pointer(&local))
}
