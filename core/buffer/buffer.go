package buffer

import "sync"

// Initial capacity for empty buffers
const initialCapacity = 64

// Buffer is an append-only byte accumulator. Capacity grows by doubling
// until it suffices and never shrinks; Reset drops the length only, so a
// buffer reused across keep-alive requests keeps its high-water capacity.
type Buffer struct {
	b []byte
}

// New creates an empty Buffer with the default initial capacity.
func New() *Buffer {
	return &Buffer{b: make([]byte, 0, initialCapacity)}
}

// NewSize creates an empty Buffer with capacity for at least n bytes.
func NewSize(n int) *Buffer {
	if n < initialCapacity {
		n = initialCapacity
	}
	return &Buffer{b: make([]byte, 0, n)}
}

// Len returns the number of bytes accumulated.
func (b *Buffer) Len() int { return len(b.b) }

// Cap returns the current capacity.
func (b *Buffer) Cap() int { return cap(b.b) }

// Bytes returns the accumulated bytes. The slice aliases the buffer's
// storage and is valid until the next append or Reset.
func (b *Buffer) Bytes() []byte { return b.b }

// String returns the accumulated bytes as a string copy.
func (b *Buffer) String() string { return string(b.b) }

// Grow ensures capacity for at least n more bytes, doubling as needed.
func (b *Buffer) Grow(n int) {
	need := len(b.b) + n
	if need <= cap(b.b) {
		return
	}
	newCap := cap(b.b)
	if newCap == 0 {
		newCap = initialCapacity
	}
	for newCap < need {
		newCap *= 2
	}
	nb := make([]byte, len(b.b), newCap)
	copy(nb, b.b)
	b.b = nb
}

// Append adds p to the end of the buffer.
func (b *Buffer) Append(p []byte) {
	b.Grow(len(p))
	b.b = append(b.b, p...)
}

// AppendByte adds a single byte.
func (b *Buffer) AppendByte(c byte) {
	b.Grow(1)
	b.b = append(b.b, c)
}

// AppendString adds s to the end of the buffer.
func (b *Buffer) AppendString(s string) {
	b.Grow(len(s))
	b.b = append(b.b, s...)
}

// Reset drops the contents but keeps the capacity.
func (b *Buffer) Reset() {
	b.b = b.b[:0]
}

var bufferPool = sync.Pool{
	New: func() any {
		return New()
	},
}

// Acquire returns an empty Buffer from the pool.
func Acquire() *Buffer {
	return bufferPool.Get().(*Buffer)
}

// Release resets the buffer and returns it to the pool.
func Release(b *Buffer) {
	b.Reset()
	bufferPool.Put(b)
}
