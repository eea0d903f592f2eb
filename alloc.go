package gc

import "unsafe"

// freelistNext unhides the obfuscated next-link stored at the head of a
// freelist node: the chunk's first word holds ~next, the bitwise complement,
// so a conservative mark scan walking the chunk never sees a value that
// satisfies IsPtr (spec §3 "Freelist node", invariant in §9 "Obfuscated
// freelist links").
func freelistNext(head uintptr) uintptr {
	return ^pointerAt(head)
}

func setFreelistNext(head, next uintptr) {
	*(*uintptr)(unsafe.Pointer(head)) = ^next
}

// Allocate returns an Alignment-aligned pointer to at least size bytes of
// fresh storage, or 0 if the request cannot be satisfied (surfaced as a
// non-fatal KindCommitFailed/KindOutOfRegionSpace error, retrievable via
// LastError) or the process aborts (KindHugeSizeOverflow, which is fatal).
// The returned memory is not zeroed; see spec §4.3.
func Allocate(size uintptr) uintptr {
	return mustState().allocate(size)
}

func (s *state) allocate(size uintptr) uintptr {
	idx, err := sizeToIndex(s.cfg, size)
	if err != nil {
		s.reportError(err.(*Error))
		return 0
	}
	return s.allocateIndex(idx)
}

// allocateIndex implements the three-tier fast path of spec §4.3 for a
// region already resolved by index: after one check of the dynamic
// collection trigger, freelist pop, lazy sweep refill, then bump allocate
// (which commits pages on demand).
func (s *state) allocateIndex(idx int) uintptr {
	r := &s.regions[idx]

	s.mu.Lock()
	defer s.mu.Unlock()

	s.sinceLastGC += r.size
	if s.enabled && s.sinceLastGC > s.trigger {
		s.collectLocked()
	}

	if p := s.tryFreelistPop(r); p != 0 {
		return p
	}
	if s.refillFreelist(r) {
		if p := s.tryFreelistPop(r); p != 0 {
			return p
		}
	}
	return s.bumpAllocate(r)
}

func (s *state) tryFreelistPop(r *region) uintptr {
	if r.freelist == 0 {
		return 0
	}
	p := r.freelist
	r.freelist = freelistNext(p)
	return p
}

// refillFreelist performs the lazy sweep-refill step: walk forward from
// markStartPtr up to FreelistRefill unmarked chunks, pushing each onto the
// freelist, and report whether any chunk was pushed.
func (s *state) refillFreelist(r *region) bool {
	if r.markStartPtr >= r.markEndPtr {
		return false
	}
	pushed := 0
	for pushed < s.cfg.FreelistRefill && r.markStartPtr < r.markEndPtr {
		chunk := r.markStartPtr
		r.markStartPtr += r.size
		if r.markBitmap != 0 && markBitTest(r, chunk) {
			continue
		}
		setFreelistNext(chunk, r.freelist)
		r.freelist = chunk
		pushed++
	}
	return pushed > 0
}

// bumpAllocate returns freePtr and advances it, extending committed pages on
// demand (spec §4.3 steps 4-5).
func (s *state) bumpAllocate(r *region) uintptr {
	if r.freePtr+r.size > r.endPtr {
		s.reportError(&Error{Kind: KindOutOfRegionSpace, Op: "Allocate", Size: r.size})
		return 0
	}
	p := r.freePtr
	r.freePtr += r.size

	if p+r.size > r.protectPtr {
		grain := s.cfg.ProtectGrain * vm.PageSize()
		if grain < r.size {
			grain = r.size
		}
		commitStart := alignDown(r.protectPtr, vm.PageSize())
		commitEnd := r.freePtr
		if commitEnd-commitStart < grain {
			commitEnd = commitStart + grain
		}
		if commitEnd > r.endPtr {
			commitEnd = r.endPtr
		}
		if err := vm.Commit(commitStart, commitEnd-commitStart); err != nil {
			r.freePtr = p
			s.reportError(&Error{Kind: KindCommitFailed, Op: "Allocate", Size: r.size, Err: err})
			return 0
		}
		r.protectPtr = commitEnd
	}
	return p
}

// Reallocate implements spec §4.4: same-region no-op, otherwise allocate
// fresh, copy the overlap, free the old pointer.
func Reallocate(p uintptr, newSize uintptr) uintptr {
	return mustState().reallocate(p, newSize)
}

func (s *state) reallocate(p uintptr, newSize uintptr) uintptr {
	if p == 0 {
		return s.allocate(newSize)
	}

	newIdx, err := sizeToIndex(s.cfg, newSize)
	if err != nil {
		s.reportError(err.(*Error))
		return 0
	}

	oldIdx := regionIndex(s.cfg, p)
	if oldIdx == newIdx {
		return p
	}

	oldSize := s.regions[oldIdx].size
	np := s.allocateIndex(newIdx)
	if np == 0 {
		return 0
	}

	n := oldSize
	if s.regions[newIdx].size < n {
		n = s.regions[newIdx].size
	}
	copy(unsafe.Slice((*byte)(unsafe.Pointer(np)), n), unsafe.Slice((*byte)(unsafe.Pointer(p)), n))
	s.free(p)
	return np
}

// Free releases p back to its region's freelist. Calling Free with 0 is a
// no-op; calling it on a pointer not returned by Allocate/Reallocate, or
// already freed, is undefined behavior (spec §4.5).
func Free(p uintptr) {
	if p == 0 {
		return
	}
	mustState().free(p)
}

func (s *state) free(p uintptr) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := regionIndex(s.cfg, p)
	r := &s.regions[idx]
	setFreelistNext(p, r.freelist)
	r.freelist = p
	debugAssertFreelistHygiene(s, r)

	// Spec §9 open question: the source subtracts the region *index*, not
	// its byte size, from since_last_gc here; SPEC_FULL resolves this as a
	// bug and uses the region's byte size instead, consistent with the
	// accounting step in allocate (§4.3 step 1).
	if s.sinceLastGC > r.size {
		s.sinceLastGC -= r.size
	} else {
		s.sinceLastGC = 0
	}
}

// IsPtr reports whether p falls anywhere inside the reserved pool.
func IsPtr(p uintptr) bool {
	s := mustState()
	return isPtr(s.cfg, p)
}

// SizeOf returns the chunk size of the region owning p. p must satisfy
// IsPtr(p).
func SizeOf(p uintptr) uintptr {
	s := mustState()
	return s.regions[regionIndex(s.cfg, p)].size
}

// BaseOf returns the start address of the chunk containing p, for any
// interior pointer p satisfying IsPtr(p).
func BaseOf(p uintptr) uintptr {
	s := mustState()
	r := &s.regions[regionIndex(s.cfg, p)]
	return chunkBase(r, p)
}
