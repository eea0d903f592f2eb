package gc

// Tagged-pointer helpers (spec §4.9). Because every chunk base is aligned to
// cfg.Alignment, the low log2(Alignment) bits of a base address are free for
// caller-defined tags; SetTag/GetTag/StripTag manipulate only those bits.
// SetExtTag/GetExtTag additionally support an arbitrary in-object offset via
// the interior-pointer base recovery (BaseOf), so a caller can stash any
// offset within the object, not just the low alignment bits.

// SetTag returns p with its low alignment bits replaced by tag. tag must
// satisfy 0 <= tag < Alignment; out-of-range bits are silently truncated.
func SetTag(p uintptr, tag uintptr) uintptr {
	s := mustState()
	mask := s.cfg.Alignment - 1
	return (p &^ mask) | (tag & mask)
}

// GetTag extracts the low alignment-bit tag previously set with SetTag.
func GetTag(p uintptr) uintptr {
	s := mustState()
	return p & (s.cfg.Alignment - 1)
}

// StripTag clears the low alignment-bit tag, recovering the untagged base
// (assuming p carries only a SetTag-style tag, not an arbitrary interior
// offset — use BaseOf for the latter).
func StripTag(p uintptr) uintptr {
	s := mustState()
	return p &^ (s.cfg.Alignment - 1)
}

// SetExtTag encodes an arbitrary in-object byte offset into p by returning
// base+offset; recoverable later with GetExtTag regardless of how large
// offset is, as long as it remains within the object's chunk size.
func SetExtTag(p uintptr, offset uintptr) uintptr {
	return BaseOf(p) + offset
}

// GetExtTag returns p's offset from the start of its owning chunk, recovered
// via the same interior-pointer base arithmetic BaseOf uses.
func GetExtTag(p uintptr) uintptr {
	return p - BaseOf(p)
}
