package profiling

import (
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"
)

// Per-frame span timings and long-lived event counters for the terrain
// pipeline. Workers and the coordinating goroutine both report here.

type span struct {
	total time.Duration
	calls int
}

var (
	mu       sync.Mutex
	spans    = make(map[string]span)
	counters = make(map[string]uint64)
)

// Track returns a stop function that records the elapsed time under name.
//
//	defer profiling.Track("meshing.Extract")()
func Track(name string) func() {
	start := time.Now()
	return func() {
		d := time.Since(start)
		mu.Lock()
		s := spans[name]
		s.total += d
		s.calls++
		spans[name] = s
		mu.Unlock()
	}
}

// Count increments the named event counter. Counters survive ResetFrame.
func Count(name string) {
	Add(name, 1)
}

// Add increments the named counter by n.
func Add(name string, n uint64) {
	mu.Lock()
	counters[name] += n
	mu.Unlock()
}

// Counter returns the current value of a counter.
func Counter(name string) uint64 {
	mu.Lock()
	defer mu.Unlock()
	return counters[name]
}

// Counters returns a copy of all counters.
func Counters() map[string]uint64 {
	mu.Lock()
	defer mu.Unlock()
	return maps.Clone(counters)
}

// ResetFrame drops the span timings. Call at the start of each frame.
func ResetFrame() {
	mu.Lock()
	clear(spans)
	mu.Unlock()
}

// ResetCounters zeroes every counter.
func ResetCounters() {
	mu.Lock()
	clear(counters)
	mu.Unlock()
}

// Snapshot returns the accumulated time per span since the last ResetFrame.
func Snapshot() map[string]time.Duration {
	mu.Lock()
	defer mu.Unlock()
	out := make(map[string]time.Duration, len(spans))
	for name, s := range spans {
		out[name] = s.total
	}
	return out
}

// Calls returns how often name was tracked since the last ResetFrame.
func Calls(name string) int {
	mu.Lock()
	defer mu.Unlock()
	return spans[name].calls
}

// TopN formats the n most expensive spans, e.g.
// "meshing.Extract:4.2ms/12, world.Generate:2.1ms/3".
func TopN(n int) string {
	mu.Lock()
	names := slices.Collect(maps.Keys(spans))
	snap := maps.Clone(spans)
	mu.Unlock()

	slices.SortFunc(names, func(a, b string) int {
		if d := snap[b].total - snap[a].total; d != 0 {
			if d > 0 {
				return 1
			}
			return -1
		}
		return strings.Compare(a, b)
	})
	names = names[:min(n, len(names))]

	var sb strings.Builder
	for i, name := range names {
		if i > 0 {
			sb.WriteString(", ")
		}
		s := snap[name]
		fmt.Fprintf(&sb, "%s:%.1fms/%d", name, float64(s.total.Microseconds())/1000, s.calls)
	}
	return sb.String()
}
