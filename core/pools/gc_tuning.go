package pools

import (
	"runtime"
	"runtime/debug"
)

// GCProfile tunes the runtime for a reactor that recycles nearly all of
// its per-request memory through pools.
type GCProfile struct {
	// Percent is the GOGC target. Higher values mean fewer collections
	// at the cost of a larger heap.
	Percent int

	// MemoryLimit is a soft heap cap in bytes; 0 leaves it unset.
	MemoryLimit int64

	// Ballast is a retained allocation that raises the heap baseline so
	// the collector does not fire on startup churn.
	Ballast int64
}

// ballast keeps the profile's baseline allocation live.
var ballast []byte

// ApplyGCProfile installs a profile process-wide.
func ApplyGCProfile(p GCProfile) {
	if p.Percent > 0 {
		debug.SetGCPercent(p.Percent)
	}
	if p.MemoryLimit > 0 {
		debug.SetMemoryLimit(p.MemoryLimit)
	}
	if p.Ballast > 0 {
		runtime.GC()
		ballast = make([]byte, p.Ballast)
	}
}

// OptimizeForHighThroughput trades heap size for collection frequency.
// The engine applies this profile at startup.
func OptimizeForHighThroughput() {
	ApplyGCProfile(GCProfile{
		Percent: 300,
		Ballast: 64 << 20,
	})
}

// OptimizeForLowLatency is the moderate profile for workloads where
// pause spread matters more than peak request rate.
func OptimizeForLowLatency() {
	ApplyGCProfile(GCProfile{
		Percent: 150,
		Ballast: 16 << 20,
	})
}
