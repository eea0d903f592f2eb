//go:build !gcdebug

package gc

// No-op build: assertion calls compile away entirely when gcdebug is not
// set, matching the teacher's block_manager_debug/_off.go twin-file pattern
// for zero-cost debug instrumentation.

func debugAssertInvariants(*state) {}

func debugAssertRegion(*region) {}

func debugAssertFreelistHygiene(*state, *region) {}
