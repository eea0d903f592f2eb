package gc

// sweep runs the per-region reverse walk of spec §4.7 over every touched
// region and returns the total bytes advised discardable back to the OS.
func (s *state) sweep() uintptr {
	returning := s.sweepCount%s.cfg.ReturnPeriod == 0
	var totalSwept uintptr

	for i := range s.regions {
		r := &s.regions[i]
		if r.freePtr <= r.startPtr {
			continue
		}
		regionReturning := returning || r.band == bandBig || r.band == bandHuge
		totalSwept += s.sweepRegion(r, regionReturning)
	}
	return totalSwept
}

// sweepRegion implements spec §4.7 steps 1-4 for one region.
func (s *state) sweepRegion(r *region, returning bool) uintptr {
	pageSize := vm.PageSize()
	lastIdx := chunkIndex(r, r.freePtr-r.size)
	target := lastIdx / 2

	var runBytes uintptr
	var runEnd uintptr // exclusive end address of the current unmarked run
	firstEventSeen := false
	var swept uintptr

	flushRun := func(runStartAddr uintptr) {
		if runBytes < 3*pageSize {
			return
		}
		pageStart := alignUp(runStartAddr, pageSize)
		pageEnd := alignDown(runEnd, pageSize)
		if pageEnd > pageStart {
			if err := vm.AdviseDiscardable(pageStart, pageEnd-pageStart); err == nil {
				swept += pageEnd - pageStart
			}
		}
	}

	idx := lastIdx
	for {
		addr := r.startPtr + uintptr(idx)*r.size
		marked := r.markBitmap != 0 && markBitTest(r, addr)

		if marked || idx < target {
			flushRun(addr + r.size)
			if !firstEventSeen {
				firstEventSeen = true
				r.freePtr = addr + r.size
				if !returning {
					break
				}
			}
			runBytes = 0
			runEnd = 0
			if idx < target || idx == 0 {
				break
			}
		} else {
			if runEnd == 0 {
				runEnd = addr + r.size
			}
			runBytes += r.size
		}

		if idx == 0 {
			// The walk bottomed out while an unmarked run was still open
			// (the marked/idx<target branch above always flushes and
			// resets runBytes/runEnd before this point, so the two flush
			// call sites never double-flush the same run): flush it now so
			// a region whose lowest chunk is unmarked still gets its
			// trailing pages advised discardable.
			flushRun(addr)
			break
		}
		idx--
	}

	if !firstEventSeen {
		// Every chunk down to the floor was unmarked; the whole region is
		// free. freePtr collapses to startPtr.
		r.freePtr = r.startPtr
	}

	r.markStartPtr = r.startPtr
	r.markEndPtr = r.freePtr
	r.freelist = 0

	return swept
}
