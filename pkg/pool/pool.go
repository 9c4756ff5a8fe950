package pool

import (
	"sync"
	"sync/atomic"
)

// Pool represents a generic object pool with type safety.
// It wraps sync.Pool with statistics tracking and an optional reset hook.
// The pool is safe for concurrent use.
type Pool[T any] struct {
	pool  sync.Pool
	new   func() T
	reset func(T)
	stats struct {
		allocated int64
		inUse     int64
		hits      int64
		misses    int64
	}
}

// New creates a new typed pool with custom allocation and reset functions.
// The new function is called when the pool is empty. The reset function,
// if not nil, is called on every object handed back through Put.
func New[T any](new func() T, reset func(T)) *Pool[T] {
	p := &Pool[T]{
		new:   new,
		reset: reset,
	}
	p.pool.New = func() interface{} {
		atomic.AddInt64(&p.stats.allocated, 1)
		atomic.AddInt64(&p.stats.misses, 1)
		return new()
	}
	return p
}

// Get retrieves an object from the pool, creating one if the pool is empty.
func (p *Pool[T]) Get() T {
	atomic.AddInt64(&p.stats.inUse, 1)
	obj := p.pool.Get().(T)
	atomic.AddInt64(&p.stats.hits, 1)
	return obj
}

// Put returns an object to the pool for reuse.
func (p *Pool[T]) Put(obj T) {
	if p.reset != nil {
		p.reset(obj)
	}
	atomic.AddInt64(&p.stats.inUse, -1)
	p.pool.Put(obj)
}

// Stats returns current pool statistics.
//
// Returns:
//   - allocated: Total number of objects created by the pool
//   - inUse: Number of objects currently checked out from the pool
//   - hits: Number of Get operations
//   - misses: Number of times a new object had to be created
func (p *Pool[T]) Stats() (allocated, inUse, hits, misses int64) {
	return atomic.LoadInt64(&p.stats.allocated),
		atomic.LoadInt64(&p.stats.inUse),
		atomic.LoadInt64(&p.stats.hits),
		atomic.LoadInt64(&p.stats.misses)
}

// DefaultBufferSizes are the bucket sizes used by NewBufferPool.
var DefaultBufferSizes = []int{
	64,       // 64B
	512,      // 512B
	4096,     // 4KB
	32768,    // 32KB
	262144,   // 256KB
	1048576,  // 1MB
	4194304,  // 4MB
	16777216, // 16MB
}

// BufferPool manages byte buffer pooling with size-based buckets.
// Requests are served from the smallest bucket that fits; requests larger
// than the biggest bucket are allocated directly.
type BufferPool struct {
	pools []*Pool[[]byte]
	sizes []int
}

// NewBufferPool creates a buffer pool with DefaultBufferSizes buckets.
func NewBufferPool() *BufferPool {
	return NewBufferPoolWithSizes(DefaultBufferSizes)
}

// NewBufferPoolWithSizes creates a buffer pool with the given ascending bucket sizes.
func NewBufferPoolWithSizes(sizes []int) *BufferPool {
	pools := make([]*Pool[[]byte], len(sizes))
	for i, size := range sizes {
		pools[i] = New(
			func() []byte {
				return make([]byte, size)
			},
			nil,
		)
	}

	return &BufferPool{
		pools: pools,
		sizes: append([]int(nil), sizes...),
	}
}

// Get returns a buffer of length size. Its capacity is the bucket size,
// which may be larger. Pooled buffers are not cleared.
//
// Example:
//
//	buf := bufferPool.Get(2048)  // Returns a 4KB buffer with length 2048
//	defer bufferPool.Put(buf)
func (p *BufferPool) Get(size int) []byte {
	for i, s := range p.sizes {
		if s >= size {
			buf := p.pools[i].Get()
			return buf[:size]
		}
	}

	return make([]byte, size)
}

// Put returns a buffer to the bucket matching its capacity.
// Buffers that don't match any bucket are released to the garbage collector.
func (p *BufferPool) Put(buf []byte) {
	size := cap(buf)
	for i, s := range p.sizes {
		if s == size {
			p.pools[i].Put(buf[:size])
			return
		}
	}
}

// Stats sums the statistics of every bucket.
func (p *BufferPool) Stats() (allocated, inUse, hits, misses int64) {
	for _, bucket := range p.pools {
		a, u, h, m := bucket.Stats()
		allocated += a
		inUse += u
		hits += h
		misses += m
	}
	return
}
