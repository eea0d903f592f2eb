//go:build gcdebug

package gc

import "fmt"

// debugAssertInvariants checks the region-table invariants of spec §3 that
// must hold between mutator calls. Build with -tags gcdebug to enable; the
// no-op twin lives in debug_off.go.
func debugAssertInvariants(s *state) {
	for i := range s.regions {
		debugAssertRegion(&s.regions[i])
	}
}

func debugAssertRegion(r *region) {
	if !(r.startPtr <= r.markStartPtr &&
		r.markStartPtr <= r.markEndPtr &&
		r.markEndPtr <= r.freePtr &&
		r.freePtr <= r.protectPtr &&
		r.protectPtr <= r.endPtr) {
		panic(fmt.Sprintf("gc: region invariant violated: start=%#x markStart=%#x markEnd=%#x free=%#x protect=%#x end=%#x",
			r.startPtr, r.markStartPtr, r.markEndPtr, r.freePtr, r.protectPtr, r.endPtr))
	}
}

// debugAssertFreelistHygiene walks r's freelist and panics if any obfuscated
// link, interpreted as a plain pointer, would satisfy IsPtr — the
// acceptance criterion for spec §9 "Obfuscated freelist links".
func debugAssertFreelistHygiene(s *state, r *region) {
	for p := r.freelist; p != 0; {
		rawWord := pointerAt(p) // the obfuscated ~next value as literally stored
		if isPtr(s.cfg, rawWord) {
			panic(fmt.Sprintf("gc: freelist hygiene violated at %#x", p))
		}
		p = freelistNext(p)
	}
}
