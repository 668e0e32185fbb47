package pools

import (
	"sync"
	"sync/atomic"
)

// ConnectionPoolable is implemented by reactor connection objects so the
// pool can scrub state between the socket that released an object and
// the one that receives it next.
type ConnectionPoolable interface {
	Reset()
	SetFD(fd int)
}

// ConnectionPool recycles connection objects across accepts. Objects are
// Reset on the way in, never on the way out, so a Get always yields a
// clean object.
type ConnectionPool struct {
	pool sync.Pool
	gets atomic.Uint64
	puts atomic.Uint64

	// sizing hint only; sync.Pool decides actual retention
	capacity int
}

// NewConnectionPool creates a pool producing fresh objects with newFunc.
// capacity is the expected peak of concurrently live connections.
func NewConnectionPool(capacity int, newFunc func() any) *ConnectionPool {
	cp := &ConnectionPool{capacity: capacity}
	cp.pool.New = newFunc
	return cp
}

// Get takes a clean connection object from the pool.
func (cp *ConnectionPool) Get() any {
	cp.gets.Add(1)
	return cp.pool.Get()
}

// Put scrubs obj and returns it to the pool.
func (cp *ConnectionPool) Put(obj any) {
	if p, ok := obj.(ConnectionPoolable); ok {
		p.Reset()
	}
	cp.puts.Add(1)
	cp.pool.Put(obj)
}

// Stats reports the running get/put totals and their ratio.
func (cp *ConnectionPool) Stats() (gets, puts uint64, hitRate float64) {
	g := cp.gets.Load()
	p := cp.puts.Load()
	if g > 0 {
		hitRate = float64(p) / float64(g)
	}
	return g, p, hitRate
}
