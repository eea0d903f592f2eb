package gc

import "testing"

func TestAlignUpDown(t *testing.T) {
	cases := []struct{ size, alignment, wantUp, wantDown uintptr }{
		{0, 16, 0, 0},
		{1, 16, 16, 0},
		{16, 16, 16, 16},
		{17, 16, 32, 16},
		{4095, 4096, 4096, 0},
	}
	for _, c := range cases {
		if got := alignUp(c.size, c.alignment); got != c.wantUp {
			t.Errorf("alignUp(%d,%d) = %d, want %d", c.size, c.alignment, got, c.wantUp)
		}
	}
	downCases := []struct{ addr, alignment, want uintptr }{
		{0, 16, 0},
		{15, 16, 0},
		{16, 16, 16},
		{31, 16, 16},
	}
	for _, c := range downCases {
		if got := alignDown(c.addr, c.alignment); got != c.want {
			t.Errorf("alignDown(%d,%d) = %d, want %d", c.addr, c.alignment, got, c.want)
		}
	}
}

func TestOptionsOverrideDefaults(t *testing.T) {
	cfg := defaultConfig()
	opts := []Option{
		WithAlignment(32),
		WithGrowthFactor(2.0),
		WithMinTrigger(1),
		WithFreelistRefill(8),
		WithReturnPeriod(4),
		WithMaxRootSize(1024),
		WithMaxPushPerFrame(16),
	}
	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.Alignment != 32 {
		t.Errorf("Alignment = %d, want 32", cfg.Alignment)
	}
	if cfg.GrowthFactor != 2.0 {
		t.Errorf("GrowthFactor = %v, want 2.0", cfg.GrowthFactor)
	}
	if cfg.MinTrigger != 1 {
		t.Errorf("MinTrigger = %d, want 1", cfg.MinTrigger)
	}
	if cfg.FreelistRefill != 8 {
		t.Errorf("FreelistRefill = %d, want 8", cfg.FreelistRefill)
	}
	if cfg.ReturnPeriod != 4 {
		t.Errorf("ReturnPeriod = %d, want 4", cfg.ReturnPeriod)
	}
	if cfg.MaxRootSize != 1024 {
		t.Errorf("MaxRootSize = %d, want 1024", cfg.MaxRootSize)
	}
	if cfg.MaxPushPerFrame != 16 {
		t.Errorf("MaxPushPerFrame = %d, want 16", cfg.MaxPushPerFrame)
	}
}
