package memory

import (
	"math"

	arrowmem "github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/ajitpratap0/strata/pkg/pool"
)

// DefaultMaxAllocation is the largest single allocation the default allocator
// will attempt. Larger requests fail with an out of memory error instead of
// reaching the Go runtime, which cannot recover from exhausting the heap.
const DefaultMaxAllocation int64 = 1 << 32

// Allocator provides the memory behind a Buffer.
//
// Reallocate returns a slice of length newSize whose first min(oldSize, newSize)
// bytes equal those of old. Returning nil for a positive newSize signals an
// out-of-memory condition; old is then still owned by the caller. A newSize of
// zero releases old and returns nil.
//
// Free releases a slice previously returned by Reallocate. It is called exactly
// once per buffer lifetime, possibly with a nil slice.
type Allocator interface {
	Reallocate(old []byte, oldSize, newSize int64) []byte
	Free(buf []byte, size int64)
}

// GoAllocator allocates from the Go heap.
type GoAllocator struct {
	// MaxBytes bounds a single allocation; zero means DefaultMaxAllocation.
	MaxBytes int64
}

var defaultAllocator Allocator = &GoAllocator{MaxBytes: DefaultMaxAllocation}

// DefaultAllocator returns the allocator used by buffers that were never
// given one.
func DefaultAllocator() Allocator {
	return defaultAllocator
}

// SetDefaultAllocator replaces the process-wide default allocator. Passing nil
// restores the Go heap allocator.
func SetDefaultAllocator(a Allocator) {
	if a == nil {
		a = &GoAllocator{MaxBytes: DefaultMaxAllocation}
	}
	defaultAllocator = a
}

func (a *GoAllocator) limit() int64 {
	if a.MaxBytes <= 0 {
		return DefaultMaxAllocation
	}
	return a.MaxBytes
}

// Reallocate implements Allocator.
func (a *GoAllocator) Reallocate(old []byte, oldSize, newSize int64) []byte {
	if newSize <= 0 || newSize > a.limit() || newSize > math.MaxInt {
		return nil
	}
	buf := make([]byte, newSize)
	copy(buf, old[:min(oldSize, newSize, int64(len(old)))])
	return buf
}

// Free implements Allocator. The garbage collector reclaims the memory.
func (a *GoAllocator) Free([]byte, int64) {}

// DeallocatorFunc is invoked when a buffer wrapping foreign memory is released.
type DeallocatorFunc func(buf []byte, size int64, privateData interface{})

type deallocator struct {
	fn          DeallocatorFunc
	privateData interface{}
}

// Deallocator returns an allocator that can only free. It wraps memory owned
// by someone else: every reallocation fails with out-of-memory and Free calls
// fn with privateData.
func Deallocator(fn DeallocatorFunc, privateData interface{}) Allocator {
	return &deallocator{fn: fn, privateData: privateData}
}

func (d *deallocator) Reallocate([]byte, int64, int64) []byte { return nil }

func (d *deallocator) Free(buf []byte, size int64) {
	if d.fn != nil {
		d.fn(buf, size, d.privateData)
	}
}

// PooledAllocator recycles memory through a size-bucketed pool.BufferPool.
type PooledAllocator struct {
	pool *pool.BufferPool
}

// NewPooledAllocator wraps bp; a nil bp gets a pool with the default buckets.
func NewPooledAllocator(bp *pool.BufferPool) *PooledAllocator {
	if bp == nil {
		bp = pool.NewBufferPool()
	}
	return &PooledAllocator{pool: bp}
}

// Reallocate implements Allocator. Growing within the capacity of the current
// bucket does not move the data.
func (a *PooledAllocator) Reallocate(old []byte, oldSize, newSize int64) []byte {
	if newSize <= 0 {
		a.Free(old, oldSize)
		return nil
	}
	if newSize > math.MaxInt {
		return nil
	}
	if old != nil && int64(cap(old)) >= newSize {
		return old[:newSize]
	}
	buf := a.pool.Get(int(newSize))
	copy(buf, old[:min(oldSize, newSize, int64(len(old)))])
	if old != nil {
		a.pool.Put(old)
	}
	return buf
}

// Free implements Allocator.
func (a *PooledAllocator) Free(buf []byte, _ int64) {
	if buf != nil {
		a.pool.Put(buf)
	}
}

// ArrowAllocator adapts an arrow-go allocator, which lets arrays built here
// share accounting with arrow-go's CheckedAllocator or a custom pool.
type ArrowAllocator struct {
	mem arrowmem.Allocator
}

// NewArrowAllocator wraps mem; nil selects arrow-go's default allocator.
func NewArrowAllocator(mem arrowmem.Allocator) *ArrowAllocator {
	if mem == nil {
		mem = arrowmem.DefaultAllocator
	}
	return &ArrowAllocator{mem: mem}
}

// Reallocate implements Allocator.
func (a *ArrowAllocator) Reallocate(old []byte, oldSize, newSize int64) []byte {
	switch {
	case newSize <= 0:
		a.Free(old, oldSize)
		return nil
	case newSize > math.MaxInt:
		return nil
	case old == nil:
		return a.mem.Allocate(int(newSize))
	default:
		return a.mem.Reallocate(int(newSize), old)
	}
}

// Free implements Allocator.
func (a *ArrowAllocator) Free(buf []byte, _ int64) {
	if buf != nil {
		a.mem.Free(buf)
	}
}
