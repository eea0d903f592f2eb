package gc

import (
	"runtime"
	"testing"
	"unsafe"
)

func TestRegisterRootRejectsOversize(t *testing.T) {
	s := mustState()
	oversized := s.cfg.MaxRootSize + 1

	var gotErr Error
	SetErrorHandler(func(e Error) bool {
		gotErr = e
		return false
	})
	defer SetErrorHandler(nil)

	if err := RegisterRoot(s.cfg.Base, oversized); err == nil {
		t.Fatal("RegisterRoot should reject a range larger than MaxRootSize")
	}
	if gotErr.Op != "RegisterRoot" {
		t.Errorf("error handler saw op %q, want RegisterRoot", gotErr.Op)
	}
}

func TestRegisterRootWithinLimitSucceeds(t *testing.T) {
	var local [64]byte
	addr := uintptr(unsafe.Pointer(&local[0]))
	if err := RegisterRoot(addr, uintptr(len(local))); err != nil {
		t.Errorf("RegisterRoot within MaxRootSize failed: %v", err)
	}
}

// TestRegisterDynamicRootReflectsMutation covers the SPEC_FULL.md §8
// "Dynamic root mutation" scenario: a dynamic root's span is re-read fresh
// from the mutator's own indirection on every Collect, not cached at
// registration time. The mutator relocates its backing storage between two
// collections; the object newly pointed at must survive, and the object
// only the stale location referenced must not be kept alive by it.
func TestRegisterDynamicRootReflectsMutation(t *testing.T) {
	var slotA, slotB uintptr // the mutator's two candidate backing slots
	var dataPtr *uintptr = &slotA
	var count uintptr = 1

	if err := RegisterDynamicRoot(
		(*uintptr)(unsafe.Pointer(&dataPtr)),
		&count,
		unsafe.Sizeof(slotA),
	); err != nil {
		t.Fatalf("RegisterDynamicRoot failed: %v", err)
	}

	qOld := Allocate(48)
	if qOld == 0 {
		t.Fatal("Allocate(qOld) failed")
	}
	slotA = qOld
	Collect()
	if !survivedLastCollect(slotA) {
		t.Fatalf("qOld (%#x) reclaimed while still referenced by the dynamic root", slotA)
	}

	// The mutator relocates its storage: point the root's indirection at
	// slotB and drop the only other reference to qOld.
	qNew := Allocate(48)
	if qNew == 0 {
		t.Fatal("Allocate(qNew) failed")
	}
	slotB = qNew
	dataPtr = &slotB
	slotA = 0

	Collect()
	Collect()

	if !survivedLastCollect(qNew) {
		t.Errorf("qNew (%#x) reclaimed despite being referenced by the relocated dynamic root", qNew)
	}

	reused := Allocate(48)
	if reused != qOld {
		t.Logf("reused chunk %#x != qOld %#x (allocator not required to reuse immediately, but commonly does)", reused, qOld)
	}
	runtime.KeepAlive(dataPtr)
}
