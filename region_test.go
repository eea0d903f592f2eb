package gc

import "testing"

// testConfig builds a small, self-contained Config for exercising the pure
// address-arithmetic helpers without touching the process-global state or
// any real VM reservation.
func testConfig() *Config {
	cfg := defaultConfig()
	cfg.NumRegions = 12 // 4 regions per band, still a multiple of 3
	cfg.RegionSize = 1 << 20
	cfg.Alignment = 16
	return cfg
}

func TestSizeToIndexBandBoundaries(t *testing.T) {
	cfg := testConfig()
	perBand := cfg.NumRegions / 3
	bigUnit, hugeUnit := bandUnits(cfg)

	cases := []struct {
		size    uintptr
		wantIdx int
	}{
		{1, 0},
		{16, 0},
		{17, 1},
		{32, 1},
		{bigUnit, perBand - 1},
		{bigUnit + 1, perBand + 1},
		{hugeUnit, 2*perBand - 1},
		{hugeUnit + 1, 2*perBand + 1},
	}
	for _, c := range cases {
		idx, err := sizeToIndex(cfg, c.size)
		if err != nil {
			t.Fatalf("sizeToIndex(%d): unexpected error %v", c.size, err)
		}
		if idx != c.wantIdx {
			t.Errorf("sizeToIndex(%d) = %d, want %d", c.size, idx, c.wantIdx)
		}
	}
}

func TestSizeToIndexOverflow(t *testing.T) {
	cfg := testConfig()
	perBand := cfg.NumRegions / 3
	_, hugeUnit := bandUnits(cfg)
	tooLarge := hugeUnit*uintptr(perBand) + 1

	_, err := sizeToIndex(cfg, tooLarge)
	if err == nil {
		t.Fatalf("sizeToIndex(%d) should overflow the huge band", tooLarge)
	}
	gcErr, ok := err.(*Error)
	if !ok || gcErr.Kind != KindHugeSizeOverflow {
		t.Errorf("sizeToIndex(%d) error = %v, want KindHugeSizeOverflow", tooLarge, err)
	}
}

func TestIsPtrUnderflow(t *testing.T) {
	cfg := testConfig()
	total := cfg.RegionSize * uintptr(cfg.NumRegions)

	if isPtr(cfg, cfg.Base-1) {
		t.Error("isPtr should reject the address just below base (underflow check)")
	}
	if !isPtr(cfg, cfg.Base) {
		t.Error("isPtr should accept base itself")
	}
	if !isPtr(cfg, cfg.Base+total-1) {
		t.Error("isPtr should accept the last valid byte")
	}
	if isPtr(cfg, cfg.Base+total) {
		t.Error("isPtr should reject the first byte past the reserved pool")
	}
}

func TestRegionIndexAndChunkBase(t *testing.T) {
	cfg := testConfig()
	regions := initRegions(cfg)

	for i, want := range []int{0, 1, len(regions) - 1} {
		_ = i
		r := &regions[want]
		mid := r.startPtr + r.size*3 // an interior chunk, not the first
		if got := regionIndex(cfg, mid); got != want {
			t.Errorf("regionIndex(region %d interior addr) = %d, want %d", want, got, want)
		}
		base := chunkBase(r, mid)
		if base != r.startPtr+r.size*3 {
			t.Errorf("chunkBase region %d = %#x, want %#x", want, base, r.startPtr+r.size*3)
		}
		// Any offset within the chunk must recover the same base.
		for _, off := range []uintptr{0, 1, r.size - 1} {
			if got := chunkBase(r, base+off); got != base {
				t.Errorf("chunkBase(base+%d) in region %d = %#x, want %#x", off, want, got, base)
			}
		}
	}
}

func TestReciprocalMatchesDivision(t *testing.T) {
	sizes := []uintptr{16, 32, 4096, 1 << 20, 3 * 16, 7 * 4096}
	for _, size := range sizes {
		inv := reciprocal(size)
		for _, p := range []uint64{0, 1, uint64(size) - 1, uint64(size), uint64(size) + 1, uint64(size) * 1000, ^uint64(0) - 1} {
			got := mulhi64(p, inv)
			want := p / uint64(size)
			if got != want {
				t.Errorf("mulhi64(%d, reciprocal(%d)) = %d, want %d", p, size, got, want)
			}
		}
	}
}

func TestInitRegionsInvariants(t *testing.T) {
	cfg := testConfig()
	regions := initRegions(cfg)

	perBand := cfg.NumRegions / 3
	bigUnit, hugeUnit := bandUnits(cfg)

	for i := range regions {
		r := &regions[i]
		if r.startPtr%r.size != 0 {
			t.Errorf("region %d startPtr %#x not aligned to its own size %d", i, r.startPtr, r.size)
		}
		if r.freePtr != r.startPtr || r.protectPtr != r.startPtr {
			t.Errorf("region %d freePtr/protectPtr should start equal to startPtr", i)
		}
		switch {
		case i < perBand:
			if r.band != bandSmall {
				t.Errorf("region %d should be in the small band", i)
			}
		case i < 2*perBand:
			if r.band != bandBig {
				t.Errorf("region %d should be in the big band", i)
			}
		default:
			if r.band != bandHuge {
				t.Errorf("region %d should be in the huge band", i)
			}
		}
	}
	if regions[perBand-1].size != bigUnit {
		t.Errorf("last small region size = %d, want bigUnit %d", regions[perBand-1].size, bigUnit)
	}
	if regions[2*perBand-1].size != hugeUnit {
		t.Errorf("last big region size = %d, want hugeUnit %d", regions[2*perBand-1].size, hugeUnit)
	}
}
