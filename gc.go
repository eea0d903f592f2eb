package gc

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// state is the single process-global collector instance. Spec §9 "Global
// mutable state" calls this out explicitly: the region table must be
// reachable by pointer arithmetic alone at a known location, so Go's usual
// dependency-injected-struct style gives way to a package singleton behind
// an init-once guard, same as the teacher's runtime packages keep a single
// process-wide allocator/arena behind a sync.Once.
type state struct {
	cfg     *Config
	regions []region

	roots     *rootNode
	rootBytes uintptr

	sinceLastGC uintptr
	trigger     uintptr
	sweepCount  uint64
	enabled     bool

	stackBottom uintptr

	errorHandler func(Error) bool
	lastError    error

	stats Stats

	markWorklistBase uintptr
	markWorklistSize uintptr

	mu sync.Mutex
}

var (
	globalState   *state
	globalInitErr error
	initOnce      sync.Once
)

// Stats reports collector counters, analogous to the teacher's GCStats
// aggregate (allocator/runtime.go): atomics-backed where a field is
// observed outside the single mutator call path. Collections, BytesSwept,
// TotalPauseNanos, and PagesReturned accumulate across the process
// lifetime; BytesLive, LastPauseNanos, and RegionsCommitted are gauges
// overwritten by the most recent collection.
type Stats struct {
	Collections      uint64
	BytesLive        uint64
	BytesSwept       uint64
	LastPauseNanos   int64
	TotalPauseNanos  int64
	RegionsCommitted uint64
	PagesReturned    uint64
}

// Init reserves the main pool and prepares the collector for use. It must
// be called before any other public function; it is idempotent; a second
// call observes the same error (or nil) as the first. Per spec §5/§6, the
// calling goroutine should be pinned with runtime.LockOSThread beforehand
// so every subsequent Collect scans that same goroutine's stack. The stack
// bottom captured here is used only when the per-collection query fails.
func Init(opts ...Option) error {
	initOnce.Do(func() {
		cfg := defaultConfig()
		for _, opt := range opts {
			opt(cfg)
		}
		globalInitErr = initState(cfg)
	})
	return globalInitErr
}

func initState(cfg *Config) error {
	if cfg.NumRegions%3 != 0 {
		return &Error{Kind: KindUnsupportedPlatform, Op: "Init", Err: fmt.Errorf("NumRegions %d is not a multiple of 3", cfg.NumRegions)}
	}

	totalSize := cfg.RegionSize * uintptr(cfg.NumRegions)
	if err := vm.ReserveFixed(cfg.Base, totalSize); err != nil {
		return &Error{Kind: KindReserveFailed, Op: "Init", Size: totalSize, Err: err}
	}

	worklistAddr, err := vm.ReserveAnywhere(cfg.MarkStackBytes)
	if err != nil {
		vm.Release(cfg.Base, totalSize)
		return &Error{Kind: KindReserveFailed, Op: "Init", Size: cfg.MarkStackBytes, Err: err}
	}
	if err := vm.Commit(worklistAddr, cfg.MarkStackBytes); err != nil {
		vm.Release(cfg.Base, totalSize)
		vm.Release(worklistAddr, cfg.MarkStackBytes)
		return &Error{Kind: KindReserveFailed, Op: "Init", Size: cfg.MarkStackBytes, Err: err}
	}

	bottom, err := vm.StackBottom()
	if err != nil {
		vm.Release(cfg.Base, totalSize)
		vm.Release(worklistAddr, cfg.MarkStackBytes)
		return &Error{Kind: KindUnsupportedPlatform, Op: "Init", Err: err}
	}

	s := &state{
		cfg:              cfg,
		regions:          initRegions(cfg),
		enabled:          true,
		stackBottom:      bottom,
		trigger:          cfg.MinTrigger,
		markWorklistBase: worklistAddr,
		markWorklistSize: cfg.MarkStackBytes,
	}
	globalState = s
	return nil
}

// mustState returns the live singleton, panicking if Init has not been
// called. Every exported entry point other than Init funnels through this,
// mirroring the teacher's
// "must be initialized" guard idiom used across its runtime singletons.
func mustState() *state {
	if globalState == nil {
		panic("gc: Init must be called before any other collector operation")
	}
	return globalState
}

// Enable resumes automatic collection triggered by the allocation
// threshold. Collection triggered explicitly via Collect is unaffected by
// this flag.
func Enable() { mustState().setEnabled(true) }

// Disable suppresses automatic collection. Explicit Collect calls still run
// a full cycle.
func Disable() { mustState().setEnabled(false) }

func (s *state) setEnabled(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.enabled = v
}

// Collect forces a full mark-sweep cycle regardless of the enabled flag or
// the allocation trigger.
func Collect() {
	mustState().collect()
}

// StatsSnapshot returns a copy of the collector's cumulative counters.
func StatsSnapshot() Stats {
	s := mustState()
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// nanotime is a thin wrapper so the pause-timing call site in mark.go reads
// like the rest of the collector's small pure helpers.
func nanotime() int64 { return time.Now().UnixNano() }

func (s *state) recordCollection(pauseNanos int64, live, swept uint64, regionsCommitted uint64) {
	atomic.AddUint64(&s.stats.Collections, 1)
	atomic.StoreUint64(&s.stats.BytesLive, live)
	atomic.AddUint64(&s.stats.BytesSwept, swept)
	atomic.StoreInt64(&s.stats.LastPauseNanos, pauseNanos)
	atomic.AddInt64(&s.stats.TotalPauseNanos, pauseNanos)
	atomic.StoreUint64(&s.stats.RegionsCommitted, regionsCommitted)
	atomic.AddUint64(&s.stats.PagesReturned, swept/uint64(vm.PageSize()))
}

// regionsCommittedCount reports how many regions currently have at least
// one committed page (region.protectPtr advanced past region.startPtr).
func (s *state) regionsCommittedCount() uint64 {
	var n uint64
	for i := range s.regions {
		if s.regions[i].protectPtr > s.regions[i].startPtr {
			n++
		}
	}
	return n
}
