package main

import (
	"flag"
	"fmt"
	"os"
	"runtime"
	"unsafe"

	gc "github.com/orizon-lang/orizon-gc"
)

// gcdemo exercises the public collector API end to end: init, allocate a
// batch of objects across several size classes, drop most of the
// references, force a collection, and report what survived.
func main() {
	var (
		count      int
		sizeBytes  int
		collectAll bool
		showStats  bool
	)

	flag.IntVar(&count, "count", 1000, "number of objects to allocate")
	flag.IntVar(&sizeBytes, "size", 64, "size in bytes of each object")
	flag.BoolVar(&collectAll, "collect", true, "force a collection after allocating")
	flag.BoolVar(&showStats, "stats", true, "print collector stats afterwards")
	flag.Parse()

	// The collector assumes a single OS-thread-pinned mutator (see the
	// package doc on stack scanning); a demo binary is exactly that shape.
	runtime.LockOSThread()

	if err := gc.Init(); err != nil {
		fmt.Fprintln(os.Stderr, "gcdemo: init failed:", err)
		os.Exit(1)
	}

	fmt.Printf("allocating %d objects of %d bytes\n", count, sizeBytes)

	survivors := make([]uintptr, 0, count/10)
	for i := 0; i < count; i++ {
		p := gc.Allocate(uintptr(sizeBytes))
		if p == 0 {
			fmt.Fprintln(os.Stderr, "gcdemo: allocation failed:", gc.LastError())
			break
		}
		if i%10 == 0 {
			// Keep a root-visible reference to one in ten objects; the rest
			// become garbage the moment this loop iteration ends.
			survivors = append(survivors, p)
		}
	}

	// survivors itself lives on the Go heap, not the scanned OS stack, so
	// its backing array must be registered explicitly; a bare stack local
	// would not need this.
	if len(survivors) > 0 {
		size := uintptr(len(survivors)) * unsafe.Sizeof(uintptr(0))
		if err := gc.RegisterRoot(uintptr(unsafe.Pointer(&survivors[0])), size); err != nil {
			fmt.Fprintln(os.Stderr, "gcdemo: register root failed:", err)
		}
	}

	if collectAll {
		gc.Collect()
	}

	fmt.Printf("kept %d references alive across collection\n", len(survivors))
	for _, p := range survivors[:min(3, len(survivors))] {
		fmt.Printf("  survivor base=%#x size=%d\n", gc.BaseOf(p), gc.SizeOf(p))
	}

	if showStats {
		st := gc.StatsSnapshot()
		fmt.Printf("collections=%d live=%d swept=%d lastPause=%dns\n",
			st.Collections, st.BytesLive, st.BytesSwept, st.LastPauseNanos)
	}

	runtime.KeepAlive(survivors)
}
