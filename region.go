package gc

// region is the per-size-class bookkeeping record described in spec §3/§4.2.
// All fields are private to the package; mutator code never sees a region
// directly, only through the address-arithmetic helpers below.
type region struct {
	size    uintptr // chunk size in bytes
	invSize uint64  // reciprocal of size, for the multiply-high index trick

	startPtr uintptr // region VA bounds, startPtr aligned up to size
	endPtr   uintptr

	freePtr    uintptr // bump pointer: one past the last ever-allocated chunk
	protectPtr uintptr // one past the last page committed

	freelist uintptr // head of the intrusive freelist, 0 means empty

	markStartPtr uintptr // [markStartPtr, markEndPtr) awaits freelist refill
	markEndPtr   uintptr

	markBitmap uintptr // VA of this region's mark bitmap, 0 if never allocated
	markBits   uintptr // size in bytes of the committed mark bitmap range

	startIdx uint64 // object_index(startPtr), subtracted for a 0-based index

	band band
}

// band identifies which of the three equal-count size-class bands a region
// belongs to (spec §3 "Size classes").
type band int

const (
	bandSmall band = iota
	bandBig
	bandHuge
)

// initRegions builds the fixed-length region table for cfg, following spec
// §4.2 exactly: each band has cfg.NumRegions/3 regions, chunk size grows
// linearly within a band starting from that band's unit, and every region's
// startPtr is BASE + i*RegionSize rounded up to a multiple of its own chunk
// size.
func initRegions(cfg *Config) []region {
	perBand := cfg.NumRegions / 3
	unit := cfg.Alignment
	bigUnit := uintptr(perBand) * unit
	hugeUnit := uintptr(perBand) * bigUnit

	regions := make([]region, cfg.NumRegions)
	for i := 0; i < cfg.NumRegions; i++ {
		var b band
		var size uintptr
		switch {
		case i < perBand:
			b = bandSmall
			size = unit * uintptr(i+1)
		case i < 2*perBand:
			b = bandBig
			size = bigUnit * uintptr(i-perBand+1)
		default:
			b = bandHuge
			size = hugeUnit * uintptr(i-2*perBand+1)
		}

		regionBase := cfg.Base + uintptr(i)*cfg.RegionSize
		// Chunk sizes are not all powers of two, so round up by division
		// rather than with alignUp's mask.
		startPtr := (regionBase + size - 1) / size * size

		r := &regions[i]
		r.size = size
		r.invSize = reciprocal(size)
		r.startPtr = startPtr
		r.endPtr = regionBase + cfg.RegionSize
		r.freePtr = startPtr
		r.protectPtr = startPtr
		r.markStartPtr = startPtr
		r.markEndPtr = startPtr
		r.band = b
		r.startIdx = objectIndexRaw(startPtr, r.invSize)
	}
	return regions
}

// bandUnits returns (bigUnit, hugeUnit) for cfg, the two band thresholds
// used by sizeToIndex. Small-band chunk sizes top out at bigUnit.
func bandUnits(cfg *Config) (bigUnit, hugeUnit uintptr) {
	perBand := uintptr(cfg.NumRegions / 3)
	bigUnit = perBand * cfg.Alignment
	hugeUnit = perBand * bigUnit
	return
}

// sizeToIndex maps a requested byte size to a region index, selecting the
// band by strict comparison against bigUnit/hugeUnit (spec §9 open question:
// the source's strict `>` comparison is mirrored deliberately, including at
// the band boundary, and covered by tests).
func sizeToIndex(cfg *Config, size uintptr) (int, error) {
	if size == 0 {
		size = 1
	}
	perBand := cfg.NumRegions / 3
	unit := cfg.Alignment
	bigUnit, hugeUnit := bandUnits(cfg)

	switch {
	case size <= bigUnit:
		idx := int((size-1)/unit) + 0
		if idx >= perBand {
			idx = perBand - 1
		}
		return idx, nil
	case size <= hugeUnit:
		idx := perBand + int((size-1)/bigUnit)
		if idx >= 2*perBand {
			idx = 2*perBand - 1
		}
		return idx, nil
	default:
		maxHuge := hugeUnit * uintptr(perBand)
		if size > maxHuge {
			return 0, &Error{Kind: KindHugeSizeOverflow, Op: "sizeToIndex", Size: size}
		}
		idx := 2*perBand + int((size-1)/hugeUnit)
		if idx >= cfg.NumRegions {
			idx = cfg.NumRegions - 1
		}
		return idx, nil
	}
}

// isPtr reports whether p falls anywhere inside the reserved pool. This is
// the single unsigned-underflow comparison from spec §4.1: (p - base) when p
// < base wraps around to a huge unsigned value, so one comparison bounds
// both sides.
func isPtr(cfg *Config, p uintptr) bool {
	return p-cfg.Base < cfg.RegionSize*uintptr(cfg.NumRegions)
}

// regionIndex returns the region index owning p. Callers must have already
// verified isPtr(cfg, p).
func regionIndex(cfg *Config, p uintptr) int {
	return int((p - cfg.Base) / cfg.RegionSize)
}

// objectIndexRaw computes the multiply-high reciprocal division of p by the
// region whose reciprocal is invSize, without materializing a region value;
// used both by the hot-path objectIndex and by initRegions to compute
// startIdx before the region table is fully populated.
func objectIndexRaw(p uintptr, invSize uint64) uint64 {
	return mulhi64(uint64(p), invSize)
}

// chunkIndex returns the 0-based chunk index of the chunk containing p
// within r: the mark-phase and freelist-refill "chunk_index" of spec §4.6,
// i.e. object_index(p) with r.startIdx subtracted back out.
func chunkIndex(r *region, p uintptr) uint64 {
	q := objectIndexRaw(p, r.invSize)
	// The reciprocal is rounded up, so q can be one past p/size for
	// addresses near the end of a chunk; step back in that case.
	if uintptr(q)*r.size > p {
		q--
	}
	return q - r.startIdx
}

// chunkBase returns the start address of the chunk containing p, defined
// for any interior pointer into r (spec §4.1 base(p) = object_index(p) *
// region.size; equivalently startPtr + chunkIndex(p)*size, since startPtr
// itself is an exact multiple of size).
func chunkBase(r *region, p uintptr) uintptr {
	return r.startPtr + uintptr(chunkIndex(r, p))*r.size
}
