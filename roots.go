package gc

import "unsafe"

// rootNode is one entry in the singly-linked root list (spec §4.8). Removal
// is not supported; nodes live for the life of the process once registered.
//
// For a static root, ptr/size point at the node's own staticPtr/staticSize
// fields (so the mark phase can treat every root uniformly as an indirect
// pair); for a dynamic root they point at mutator-owned storage the mutator
// may update in place.
type rootNode struct {
	staticPtr  uintptr
	staticSize uintptr

	ptr      *uintptr
	size     *uintptr
	elemSize uintptr

	next *rootNode
}

// RegisterRoot records a static memory range as a GC root: every
// pointer-size-aligned word in [ptr, ptr+size) is scanned as a potential
// pointer on every collection for the life of the process.
func RegisterRoot(ptr uintptr, size uintptr) error {
	return mustState().registerRoot(ptr, size, 1, false)
}

// RegisterDynamicRoot records an indirect root: the mutator's own storage at
// *ptrAddr (length *sizeAddr, in units of elemSize) may be updated in place
// at any time; the collector re-reads the indirection on every collection.
func RegisterDynamicRoot(ptrAddr *uintptr, sizeAddr *uintptr, elemSize uintptr) error {
	return mustState().registerDynamicRoot(ptrAddr, sizeAddr, elemSize)
}

func (s *state) registerRoot(ptr, size, elemSize uintptr, dynamic bool) error {
	if size*elemSize > s.cfg.MaxRootSize {
		err := &Error{Kind: KindOutOfRegionSpace, Op: "RegisterRoot", Size: size}
		s.reportError(err)
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	n := &rootNode{staticPtr: ptr, staticSize: size, elemSize: elemSize}
	n.ptr = &n.staticPtr
	n.size = &n.staticSize
	n.next = s.roots
	s.roots = n
	s.rootBytes += size * elemSize
	return nil
}

func (s *state) registerDynamicRoot(ptrAddr, sizeAddr *uintptr, elemSize uintptr) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := &rootNode{ptr: ptrAddr, size: sizeAddr, elemSize: elemSize}
	n.next = s.roots
	s.roots = n
	return nil
}

// span returns the current byte range [start, end) this root covers,
// re-reading the indirection every time since dynamic roots may have been
// updated by the mutator since the last collection.
func (n *rootNode) span() (start, end uintptr) {
	base := *n.ptr
	count := *n.size
	if base == 0 || count == 0 {
		return 0, 0
	}
	return base, base + count*n.elemSize
}

// stackRootSpan computes the synthetic stack root's range per spec §4.6:
// [current_stack_top, stack_bottom). currentStackTop is implemented per
// platform in stack_unix.go/stack_windows.go via a non-inlined helper whose
// local forces the compiler to have spilled caller-saved registers across
// the call.
//
// Both ends are recomputed fresh on every call rather than reusing the
// bound captured at Init. A goroutine's stack is a Go-runtime-managed,
// growable block that the runtime is free to copy to a new address once
// call depth exceeds its current allocation; runtime.LockOSThread pins the
// goroutine to an OS thread but has no bearing on that stack's address, so
// an Init-time snapshot of stack_bottom goes stale the moment the stack
// grows and can silently drop or misplace the stack root on a later
// Collect (see TestStackSurvivesGrowthBetweenCollections). Recomputing
// vm.StackBottom() here re-anchors the window to wherever the current
// stack segment actually lives at the moment each collection runs.
func (s *state) stackRootSpan() (start, end uintptr) {
	top := currentStackTop()
	bottom, err := vm.StackBottom()
	if err != nil {
		// Platform query failed; fall back to the Init-time measurement
		// rather than dropping the stack root entirely.
		bottom = s.stackBottom
	}
	return top, bottom
}

// pointerAt reads a uintptr-sized word at addr without bounds checking;
// used only on addresses already known to lie within a scan interval.
func pointerAt(addr uintptr) uintptr {
	return *(*uintptr)(unsafe.Pointer(addr))
}
