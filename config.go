// Package gc implements a lightweight conservative mark-and-sweep collector
// for single-threaded 64-bit mutators. It reserves a large contiguous
// virtual-address region up front, carves it into fixed-size-class
// sub-regions, and satisfies allocations from those sub-regions so that an
// object's size, base address, and owning region can be recovered from the
// raw bit pattern of a pointer alone.
//
// The collector's stack-scanning root (see Collect) assumes a single,
// fixed OS-thread stack: the calling goroutine must be pinned with
// runtime.LockOSThread before Init and must remain the sole mutator of the
// collector's state for the life of the process. This is a deliberate
// narrowing of Go's usual multi-goroutine, movable-stack model down to the
// single-threaded contract this collector's design assumes.
package gc

import "math/bits"

// Tunable compile-time-equivalent constants. Defaults mirror the values a
// conservative collector of this shape typically ships with; all are
// overridable via Option at Init time for VA-constrained hosts.
const (
	// DefaultAlignment is the minimum alignment of every returned object and
	// the number of low bits available to SetTag/GetTag.
	DefaultAlignment uintptr = 16

	// DefaultNumRegions must be a multiple of 3: one band each for small,
	// big, and huge size classes.
	DefaultNumRegions = 768

	// DefaultRegionSize is the per-region virtual-address span. At the
	// default NumRegions this reserves DefaultRegionSize*DefaultNumRegions
	// bytes of VA (3 TiB) without committing any physical memory.
	DefaultRegionSize uintptr = 4 << 30 // 4 GiB

	// DefaultBase (16 TiB) is chosen in a rarely-mapped slice of the user
	// address space so ordinary heap/stack/mmap addresses from the host
	// process are unlikely to alias it. If part of the range is already
	// mapped when Init runs, the reservation fails rather than replacing
	// that mapping. A host integer that merely looks like an address in the
	// range is harmless: IsPtr is the single safety net that makes
	// misclassification merely conservative, never unsafe.
	DefaultBase uintptr = 0x0000_1000_0000_0000

	// DefaultGrowthFactor and DefaultMinTrigger govern the dynamic
	// collection trigger recomputed after every collection (spec step
	// 4.3.1): trigger = (2*used + 2*stack + roots) / GrowthFactor.
	DefaultGrowthFactor = 1.75
	DefaultMinTrigger    uintptr = 100_000

	// DefaultFreelistRefill bounds how many chunks a single allocation call
	// will pull from the lazy sweep-refill range before giving up and
	// falling through to bump allocation.
	DefaultFreelistRefill = 256

	// DefaultProtectGrain is the number of pages committed at once when the
	// bump pointer crosses the committed high-water mark.
	DefaultProtectGrain uintptr = 64

	// DefaultMarkStackBytes sizes the dedicated VA reservation backing the
	// mark worklist (a stack of scan intervals growing down from the top of
	// the reservation).
	DefaultMarkStackBytes uintptr = 1 << 30 // 1 GiB

	// DefaultReturnPeriod: every Nth sweep additionally advises pages
	// discardable back to the OS for small-band regions; big and huge
	// regions always do this.
	DefaultReturnPeriod uint64 = 8

	// DefaultMaxRootSize rejects absurdly large root registrations, which
	// are almost certainly a caller mistake (e.g. registering the whole
	// data segment by accident).
	DefaultMaxRootSize uintptr = 1 << 30

	// DefaultMaxPushPerFrame throttles mark-phase recursion depth: once a
	// single parent has pushed this many children while still being
	// scanned, the scanner dives into the deepest child instead of
	// continuing to broaden, bounding worklist depth for pointer-dense
	// structures.
	DefaultMaxPushPerFrame = 1024

	// defaultStackLimit is used when the platform reports no usable stack
	// rlimit (e.g. RLIM_INFINITY).
	defaultStackLimit uintptr = 8 << 20 // 8 MiB
)

// Config holds the resolved, possibly Option-overridden, tunables for a
// single collector instance. There is exactly one live Config per process
// (see the package-global singleton in gc.go) because the region table must
// be reachable by pointer arithmetic alone at a known location.
type Config struct {
	Base            uintptr
	RegionSize      uintptr
	NumRegions      int
	Alignment       uintptr
	GrowthFactor    float64
	MinTrigger      uintptr
	FreelistRefill  int
	ProtectGrain    uintptr
	MarkStackBytes  uintptr
	ReturnPeriod    uint64
	MaxRootSize     uintptr
	MaxPushPerFrame int
}

// Option mutates a Config during Init.
type Option func(*Config)

func defaultConfig() *Config {
	return &Config{
		Base:            DefaultBase,
		RegionSize:      DefaultRegionSize,
		NumRegions:      DefaultNumRegions,
		Alignment:       DefaultAlignment,
		GrowthFactor:    DefaultGrowthFactor,
		MinTrigger:      DefaultMinTrigger,
		FreelistRefill:  DefaultFreelistRefill,
		ProtectGrain:    DefaultProtectGrain,
		MarkStackBytes:  DefaultMarkStackBytes,
		ReturnPeriod:    DefaultReturnPeriod,
		MaxRootSize:     DefaultMaxRootSize,
		MaxPushPerFrame: DefaultMaxPushPerFrame,
	}
}

// WithBase overrides the fixed virtual-address base of the reserved pool.
func WithBase(base uintptr) Option { return func(c *Config) { c.Base = base } }

// WithRegionSize overrides the per-region VA span. Use a smaller value on
// hosts with tight VA quotas (containers, 32-bit-adjacent overlay limits);
// the collector only ever commits pages it actually touches.
func WithRegionSize(size uintptr) Option { return func(c *Config) { c.RegionSize = size } }

// WithNumRegions overrides the region count. Must remain a multiple of 3.
func WithNumRegions(n int) Option { return func(c *Config) { c.NumRegions = n } }

// WithAlignment overrides the minimum object alignment and tag-bit width.
func WithAlignment(a uintptr) Option { return func(c *Config) { c.Alignment = a } }

// WithGrowthFactor overrides the post-collection trigger growth factor.
func WithGrowthFactor(f float64) Option { return func(c *Config) { c.GrowthFactor = f } }

// WithMinTrigger overrides the floor on the collection trigger.
func WithMinTrigger(n uintptr) Option { return func(c *Config) { c.MinTrigger = n } }

// WithFreelistRefill overrides the lazy-refill batch size.
func WithFreelistRefill(n int) Option { return func(c *Config) { c.FreelistRefill = n } }

// WithReturnPeriod overrides how often a sweep returns pages for the small
// band; big and huge band regions return pages on every sweep.
func WithReturnPeriod(n uint64) Option { return func(c *Config) { c.ReturnPeriod = n } }

// WithMaxRootSize overrides the per-root size ceiling.
func WithMaxRootSize(n uintptr) Option { return func(c *Config) { c.MaxRootSize = n } }

// WithMaxPushPerFrame overrides the mark-phase depth-throttle constant.
func WithMaxPushPerFrame(n int) Option { return func(c *Config) { c.MaxPushPerFrame = n } }

// alignUp rounds size up to the nearest multiple of alignment, which must be
// a power of two.
func alignUp(size, alignment uintptr) uintptr {
	return (size + alignment - 1) &^ (alignment - 1)
}

// alignDown rounds addr down to the nearest multiple of alignment, which
// must be a power of two.
func alignDown(addr, alignment uintptr) uintptr {
	return addr &^ (alignment - 1)
}

// reciprocal computes the multiply-high magic number for dividing by d
// without a division instruction on the hot path. The result is
// ceil(2^64/d), so mulhi64(p, reciprocal(d)) equals p/d exactly when d is a
// power of two and is otherwise either p/d or p/d+1 (the excess appears when
// p mod d is close to d); chunkIndex corrects that case. The single division
// it performs happens once per region at init time, never on the allocation
// or mark fast paths.
func reciprocal(d uintptr) uint64 {
	dd := uint64(d)
	return ^uint64(0)/dd + 1
}

// mulhi64 returns the high 64 bits of the full 128-bit product a*b.
func mulhi64(a, b uint64) uint64 {
	hi, _ := bits.Mul64(a, b)
	return hi
}
