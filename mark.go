package gc

import "unsafe"

// markEntry is one (word_ptr, word_end) scan interval on the mark worklist
// (spec §3 "Mark worklist", §4.6). The worklist lives in the dedicated VA
// reservation captured at Init (state.markWorklistBase), not on the Go
// heap, so a pathologically deep object graph exhausts a fixed bound rather
// than growing an ordinary slice without limit.
type markEntry struct {
	start, end uintptr
}

const markEntrySize = unsafe.Sizeof(markEntry{})

// markWorklist is a bounded descending stack of markEntry values backed by
// state.markWorklistBase: the first entry pushed occupies the highest slot.
type markWorklist struct {
	entries []markEntry
	top     int
}

func (s *state) newMarkWorklist() *markWorklist {
	capacity := int(s.markWorklistSize / markEntrySize)
	entries := unsafe.Slice((*markEntry)(unsafe.Pointer(s.markWorklistBase)), capacity)
	return &markWorklist{entries: entries}
}

func (w *markWorklist) empty() bool { return w.top == 0 }

func (w *markWorklist) push(start, end uintptr) bool {
	if start >= end || w.top >= len(w.entries) {
		return false
	}
	w.entries[len(w.entries)-1-w.top] = markEntry{start, end}
	w.top++
	return true
}

func (w *markWorklist) pop() (markEntry, bool) {
	if w.top == 0 {
		return markEntry{}, false
	}
	w.top--
	return w.entries[len(w.entries)-1-w.top], true
}

// collect runs one full mark-sweep cycle, locking the collector for its
// duration per the stop-the-world contract of spec §5.
func (s *state) collect() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.collectLocked()
}

// collectLocked assumes s.mu is already held (the allocation-triggered path
// in alloc.go calls it directly to avoid re-entering the lock).
func (s *state) collectLocked() {
	start := nanotime()

	if err := s.markInit(); err != nil {
		s.reportError(err)
		return
	}

	live := s.mark()
	swept := s.sweep()
	debugAssertInvariants(s)

	s.sweepCount++
	s.recomputeTrigger(live)

	pause := nanotime() - start
	s.recordCollection(pause, uint64(live), uint64(swept), s.regionsCommittedCount())
}

// recomputeTrigger implements spec §4.3 step 1's post-collection update:
// trigger = (2*used + 2*stack + roots) / GrowthFactor, floored at MinTrigger.
func (s *state) recomputeTrigger(liveBytes uintptr) {
	stackTop, stackEnd := s.stackRootSpan()
	stackBytes := uintptr(0)
	if stackEnd > stackTop {
		stackBytes = stackEnd - stackTop
	}

	next := uintptr(float64(2*liveBytes+2*stackBytes+s.rootBytes) / s.cfg.GrowthFactor)
	if next < s.cfg.MinTrigger {
		next = s.cfg.MinTrigger
	}
	s.trigger = next
	s.sinceLastGC = 0
}

// markInit ensures every touched region has a zeroed mark bitmap covering
// its live prefix, per spec §4.6 "Mark-init".
func (s *state) markInit() *Error {
	for i := range s.regions {
		r := &s.regions[i]
		if r.freePtr <= r.startPtr {
			continue
		}
		if err := s.ensureMarkBitmap(r); err != nil {
			return err
		}
	}
	return nil
}

func (s *state) ensureMarkBitmap(r *region) *Error {
	numChunks := s.cfg.RegionSize / r.size
	fullBytes := alignUp((numChunks+7)/8, 8)

	firstUse := r.markBitmap == 0
	if firstUse {
		addr, err := vm.ReserveAnywhere(fullBytes + vm.PageSize())
		if err != nil {
			return &Error{Kind: KindMarkBitmapAllocFailed, Op: "collect", Size: fullBytes, Err: err}
		}
		r.markBitmap = addr
		r.markBits = fullBytes
	}

	liveChunks := (r.freePtr - r.startPtr) / r.size
	livePrefix := alignUp((liveChunks+7)/8, 8)
	if livePrefix > r.markBits {
		livePrefix = r.markBits
	}

	if firstUse {
		if err := vm.Commit(r.markBitmap, livePrefix); err != nil {
			return &Error{Kind: KindMarkBitmapAllocFailed, Op: "collect", Size: livePrefix, Err: err}
		}
		// Freshly committed pages read as zero; nothing further to do.
		return nil
	}

	if err := vm.Commit(r.markBitmap, livePrefix); err != nil {
		return &Error{Kind: KindMarkBitmapAllocFailed, Op: "collect", Size: livePrefix, Err: err}
	}
	if err := vm.AdviseDiscardable(r.markBitmap, livePrefix); err != nil {
		return &Error{Kind: KindMarkBitmapAllocFailed, Op: "collect", Size: livePrefix, Err: err}
	}
	// AdviseDiscardable only covers whole pages; clear the partial tail page.
	wholePages := alignDown(livePrefix, vm.PageSize())
	clear(unsafe.Slice((*byte)(unsafe.Pointer(r.markBitmap+wholePages)), livePrefix-wholePages))
	return nil
}

// mark runs the conservative mark phase (spec §4.6) and returns the total
// live byte count.
func (s *state) mark() uintptr {
	w := s.newMarkWorklist()
	var live uintptr

	pendingRoots := s.pendingRootSpans()
	rootIdx := 0

	for {
		entry, ok := w.pop()
		if !ok {
			if rootIdx >= len(pendingRoots) {
				break
			}
			entry = pendingRoots[rootIdx]
			rootIdx++
			if entry.start >= entry.end {
				continue
			}
		}
		live += s.scanInterval(w, entry)
	}
	return live
}

// pendingRootSpans assembles the synthetic stack root followed by every
// registered root's current span, per spec §4.6 "Root assembly".
func (s *state) pendingRootSpans() []markEntry {
	spans := make([]markEntry, 0, 8)
	stackTop, stackBottom := s.stackRootSpan()
	if stackBottom > stackTop {
		spans = append(spans, markEntry{stackTop, stackBottom})
	}
	for n := s.roots; n != nil; n = n.next {
		start, end := n.span()
		if end > start {
			spans = append(spans, markEntry{start, end})
		}
	}
	return spans
}

// scanInterval walks [entry.start, entry.end) word by word, marking and
// pushing newly discovered chunks, and applies the depth throttle of spec
// §4.6 step 3. It returns the total size of the chunks whose mark bit this
// call set, including those set by its recursive dive; a chunk is counted
// when its bit is set, so the chunks reached later by draining the entries
// it pushed are counted by the calls that scan those entries.
func (s *state) scanInterval(w *markWorklist, entry markEntry) uintptr {
	var live uintptr
	pushedThisFrame := 0
	p := alignDown(entry.start, unsafe.Sizeof(uintptr(0)))

	for p < entry.end {
		word := pointerAt(p)
		p += unsafe.Sizeof(uintptr(0))

		if !isPtr(s.cfg, word) {
			continue
		}
		idx := regionIndex(s.cfg, word)
		r := &s.regions[idx]
		if word < r.startPtr || word >= r.freePtr {
			continue
		}

		wasSet := markBitTestAndSet(r, word)
		if wasSet {
			continue
		}
		live += r.size

		childBase := chunkBase(r, word)
		childEnd := childBase + r.size

		pushedThisFrame++
		if pushedThisFrame > s.cfg.MaxPushPerFrame && p < entry.end {
			// Depth throttle: push the remaining portion of this frame back
			// onto the worklist in place of diving further breadth-first,
			// and dive into the child just discovered instead. This bounds
			// worklist depth in pointer-dense objects (spec §4.6 step 3).
			w.push(p, entry.end)
			live += s.scanInterval(w, markEntry{childBase, childEnd})
			return live
		}

		w.push(childBase, childEnd)
	}
	return live
}

// markBitIndex computes the word offset and bit mask within r's mark bitmap
// for the chunk containing p.
func markBitIndex(r *region, p uintptr) (wordOffset uintptr, mask uint64) {
	bit := chunkIndex(r, p)
	wordOffset = uintptr(bit/64) * 8
	mask = uint64(1) << (bit % 64)
	return
}

func markBitWord(r *region, wordOffset uintptr) *uint64 {
	return (*uint64)(unsafe.Pointer(r.markBitmap + wordOffset))
}

// markBitTest reports whether the chunk containing p is marked.
func markBitTest(r *region, p uintptr) bool {
	wordOffset, mask := markBitIndex(r, p)
	return *markBitWord(r, wordOffset)&mask != 0
}

// markBitTestAndSet sets the mark bit for the chunk containing p and
// reports whether it was already set.
func markBitTestAndSet(r *region, p uintptr) bool {
	wordOffset, mask := markBitIndex(r, p)
	word := markBitWord(r, wordOffset)
	wasSet := *word&mask != 0
	*word |= mask
	return wasSet
}
