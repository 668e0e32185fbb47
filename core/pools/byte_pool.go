package pools

import "sync"

// Size tiers matched to HTTP traffic: request heads, typical requests,
// read scratch, and large formatted responses.
var defaultTiers = []int{512, 2048, 8192, 32768}

// BytePool hands out byte slices from tiered free lists. A slice comes
// back with the requested length and the capacity of the smallest tier
// that fits; requests beyond the largest tier fall through to plain
// allocation.
type BytePool struct {
	tiers []int
	pools []*sync.Pool
}

// NewBytePool creates a pool over the default size tiers.
func NewBytePool() *BytePool {
	return NewBytePoolSized(defaultTiers)
}

// NewBytePoolSized creates a pool over custom tiers, which must be in
// ascending order.
func NewBytePoolSized(tiers []int) *BytePool {
	bp := &BytePool{
		tiers: tiers,
		pools: make([]*sync.Pool, len(tiers)),
	}
	for i, tier := range tiers {
		n := tier
		bp.pools[i] = &sync.Pool{
			New: func() any {
				buf := make([]byte, n)
				return &buf
			},
		}
	}
	return bp
}

// Get returns a slice of length n backed by pooled storage.
func (bp *BytePool) Get(n int) []byte {
	for i, tier := range bp.tiers {
		if n <= tier {
			buf := *bp.pools[i].Get().(*[]byte)
			return buf[:n]
		}
	}
	return make([]byte, n)
}

// Put returns a slice to its tier. Slices whose capacity matches no
// tier were not pooled and are left to the garbage collector.
func (bp *BytePool) Put(buf []byte) {
	c := cap(buf)
	for i, tier := range bp.tiers {
		if c == tier {
			buf = buf[:c]
			bp.pools[i].Put(&buf)
			return
		}
	}
}
