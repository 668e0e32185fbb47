package pools

import (
	"sync"
	"sync/atomic"
)

// SmartPool pre-warms a set of reusable objects and tracks its hit rate.
// The owner calls Optimize from its housekeeping tick to top the pool
// back up when reuse drops below the target, so no background goroutine
// is needed.
type SmartPool struct {
	pool    sync.Pool
	newFn   func() any
	resetFn func(any)

	gets   atomic.Uint64
	puts   atomic.Uint64
	misses atomic.Uint64

	warmupSize    int
	targetHitRate float64
}

// SmartPoolConfig configures a SmartPool. Zero WarmupSize and
// TargetHitRate default to 100 objects and 0.90.
type SmartPoolConfig struct {
	New           func() any
	Reset         func(any)
	WarmupSize    int
	TargetHitRate float64
}

// NewSmartPool creates the pool and warms it up immediately.
func NewSmartPool(config SmartPoolConfig) *SmartPool {
	if config.WarmupSize == 0 {
		config.WarmupSize = 100
	}
	if config.TargetHitRate == 0 {
		config.TargetHitRate = 0.90
	}

	sp := &SmartPool{
		newFn:         config.New,
		resetFn:       config.Reset,
		warmupSize:    config.WarmupSize,
		targetHitRate: config.TargetHitRate,
	}
	sp.pool.New = func() any {
		sp.misses.Add(1)
		return sp.newFn()
	}

	sp.Warmup()
	return sp
}

// Get takes an object from the pool, allocating on a miss.
func (sp *SmartPool) Get() any {
	sp.gets.Add(1)
	return sp.pool.Get()
}

// Put resets obj and returns it to the pool.
func (sp *SmartPool) Put(obj any) {
	if obj == nil {
		return
	}
	sp.puts.Add(1)
	if sp.resetFn != nil {
		sp.resetFn(obj)
	}
	sp.pool.Put(obj)
}

// Warmup stocks the pool with warmupSize fresh objects.
func (sp *SmartPool) Warmup() {
	for i := 0; i < sp.warmupSize; i++ {
		sp.pool.Put(sp.newFn())
	}
}

// Optimize tops the pool up when the observed hit rate trails the
// target. It only acts once enough traffic has passed to make the rate
// meaningful.
func (sp *SmartPool) Optimize() {
	s := sp.Stats()
	if s.Gets > 1000 && s.HitRate < sp.targetHitRate {
		extra := sp.warmupSize / 10
		for i := 0; i < extra; i++ {
			sp.pool.Put(sp.newFn())
		}
	}
}

// SmartPoolStats is a point-in-time view of pool traffic. HitRate is the
// share of Gets served without allocating.
type SmartPoolStats struct {
	Gets    uint64
	Puts    uint64
	Misses  uint64
	HitRate float64
}

// Stats snapshots the counters.
func (sp *SmartPool) Stats() SmartPoolStats {
	gets := sp.gets.Load()
	misses := sp.misses.Load()

	hitRate := 0.0
	if gets > 0 && gets > misses {
		hitRate = float64(gets-misses) / float64(gets)
	}

	return SmartPoolStats{
		Gets:    gets,
		Puts:    sp.puts.Load(),
		Misses:  misses,
		HitRate: hitRate,
	}
}
